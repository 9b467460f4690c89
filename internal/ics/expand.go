package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "signage/internal/log"
	"signage/internal/model"
)

const defaultMaxOccurrencesPerEvent = 500

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the zone every occurrence is converted to.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the inclusive window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps runaway rules. Zero means 500.
	MaxOccurrencesPerEvent int
}

// Expand turns parsed VEVENTs into concrete occurrences inside the
// configured window, applying RRULE, EXDATE and RECURRENCE-ID overrides.
// Occurrences come back sorted by start.
func Expand(events []ParsedEvent, cfg ExpandConfig) ([]model.Occurrence, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("ics: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	overrides := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
		}
	}

	out := make([]model.Occurrence, 0)
	for _, ev := range events {
		if ev.IsOverride() {
			continue
		}
		starts := instanceStarts(ev, cfg)
		duration := ev.End.Sub(ev.Start)
		for _, start := range starts {
			inst, instStart, instEnd := ev, start, start.Add(duration)
			if o, ok := findOverride(overrides[ev.UID], start); ok {
				inst, instStart, instEnd = o, o.Start, o.End
			}
			if !overlaps(instStart, instEnd, cfg.RangeStart, cfg.RangeEnd) {
				continue
			}
			out = append(out, occurrence(inst, instStart, instEnd, cfg.DisplayLocation))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

// instanceStarts lists the base start times of ev that may touch the window.
func instanceStarts(ev ParsedEvent, cfg ExpandConfig) []time.Time {
	if ev.RawRRule == "" {
		return []time.Time{ev.Start}
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen the lower bound by the event length so instances that began
	// before the window but are still running are kept.
	loc := ev.Start.Location()
	from := cfg.RangeStart.Add(-ev.End.Sub(ev.Start)).In(loc)
	starts := set.Between(from, cfg.RangeEnd.In(loc), true)
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		appLog.Warn("ics: occurrences truncated", "uid", ev.UID, "cap", cfg.MaxOccurrencesPerEvent)
		starts = starts[:cfg.MaxOccurrencesPerEvent]
	}
	return starts
}

func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, o := range overrides {
		if o.Recurrence.Equal(start) {
			return o, true
		}
	}
	return ParsedEvent{}, false
}

func occurrence(ev ParsedEvent, start, end time.Time, loc *time.Location) model.Occurrence {
	return model.Occurrence{
		SourceID:   ev.SourceID,
		UID:        ev.UID,
		Summary:    ev.Summary,
		Location:   ev.Location,
		Organizer:  ev.Organizer,
		Categories: ev.Categories,
		AllDay:     ev.AllDay,
		Start:      start.In(loc),
		End:        end.In(loc),
	}
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}

// Records converts timed occurrences into schedule records. All-day
// occurrences have no start time to show and are dropped.
func Records(occs []model.Occurrence) []model.Record {
	out := make([]model.Record, 0, len(occs))
	for _, o := range occs {
		if o.AllDay {
			continue
		}
		rec := model.Record{
			ID:       o.UID + "@" + o.Start.Format("20060102T1504"),
			Title:    o.Summary,
			Date:     o.Start.Format("2006-01-02"),
			Time:     o.Start.Format("15:04"),
			Duration: int(o.End.Sub(o.Start).Minutes()),
			Location: o.Location,
			Speaker:  o.Organizer,
		}
		if len(o.Categories) > 0 {
			rec.Category = o.Categories[0]
		}
		out = append(out, rec)
	}
	return out
}

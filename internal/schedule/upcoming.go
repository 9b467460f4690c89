package schedule

import (
	"slices"
	"time"

	"signage/internal/model"
)

// Window bounds which events count as upcoming.
type Window struct {
	// Lookahead is how many minutes ahead an event may start.
	Lookahead int
	// Max caps the result length.
	Max int
}

// DefaultWindow lists running events and those starting within four
// hours, at most six of them.
var DefaultWindow = Window{Lookahead: 240, Max: 6}

// Upcoming selects the events worth showing at now. An event qualifies when
// its category equals filter (if filter is set, exact match), it falls on
// now's calendar day and -duration <= start-now <= w.Lookahead in minutes.
// The result is stably sorted by start and truncated to w.Max. now should
// already be in the display location.
func Upcoming(events []model.Event, now time.Time, filter string, w Window) []model.Event {
	today := model.DateOf(now)
	nowMinute := model.ClockOf(now).Minute()

	out := make([]model.Event, 0, min(len(events), max(w.Max, 0)))
	for _, ev := range events {
		if filter != "" && ev.Category != filter {
			continue
		}
		if ev.Date != today {
			continue
		}
		diff := ev.Start.Minute() - nowMinute
		if diff < -ev.Duration || diff > w.Lookahead {
			continue
		}
		out = append(out, ev)
	}

	slices.SortStableFunc(out, func(a, b model.Event) int {
		return a.Start.Minute() - b.Start.Minute()
	})

	if w.Max >= 0 && len(out) > w.Max {
		out = out[:w.Max]
	}
	return out
}

package sched

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	appLog "signage/internal/log"
	"signage/internal/model"
)

var timeLayouts = []string{"2006-01-02 15:04", "2006-01-02 15:04:05"}

// categoryRules are checked in order; the first match wins. Each rule
// matches when any of its keywords occurs in the respective lowercased field.
var categoryRules = []struct {
	category string
	inType   []string
	inTitle  []string
	inTags   []string
}{
	{"embedded", []string{"embedded"}, []string{"embedded"}, []string{"embedded"}},
	{"gamedev", []string{"gamedev"}, []string{"game"}, []string{"gamedev"}},
	{"scientific", []string{"scientific"}, []string{"scientific"}, []string{"scientific"}},
	{"robotics", []string{"robotics"}, []string{"ai"}, []string{"robotics"}},
	{"business", []string{"business"}, nil, []string{"business"}},
	{"tooling", []string{"tooling"}, []string{"tool"}, []string{"tooling"}},
	{"iso", []string{"iso", "wg21"}, nil, []string{"iso"}},
	{"basics", []string{"back to basics"}, nil, []string{"basics"}},
	{"education", []string{"education", "workshop"}, nil, []string{"education"}},
	{"social", []string{"social"}, []string{"reception", "dinner"}, []string{"social"}},
	{"keynote", []string{"keynote"}, []string{"keynote"}, nil},
	{"registration", []string{"registration"}, []string{"registration"}, nil},
}

// Categorize maps a session to a display category by keyword. Matching is
// plain substring search, so "ai" in a title also hits words like "main".
func Categorize(title, sessionType, tags string) string {
	title, sessionType, tags = strings.ToLower(title), strings.ToLower(sessionType), strings.ToLower(tags)
	for _, r := range categoryRules {
		if containsAny(sessionType, r.inType) || containsAny(title, r.inTitle) || containsAny(tags, r.inTags) {
			return r.category
		}
	}
	return model.GeneralCategory
}

// Categories lists every value Categorize can return, in rule order.
func Categories() []string {
	out := make([]string, 0, len(categoryRules)+1)
	for _, r := range categoryRules {
		out = append(out, r.category)
	}
	return append(out, model.GeneralCategory)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Location picks the room to show for a session.
func Location(title, venue, address string) string {
	if strings.Contains(title, "[Online]") {
		return "Online"
	}
	for _, v := range []string{venue, address} {
		if v = strings.TrimSpace(v); v != "" && v != "TBA" {
			return v
		}
	}
	return "TBA"
}

// DefaultConference is the document header used when the caller sets none.
var DefaultConference = model.Conference{
	Name:     "CppCon 2025",
	Dates:    "September 10-24, 2025",
	Location: "Aurora, Colorado",
}

// Convert builds a schedule document from exported sessions. Inactive
// sessions are dropped; sessions with unusable times are logged and skipped.
func Convert(conf model.Conference, sessions []Session) model.Document {
	doc := model.Document{Conference: &conf, Events: make([]model.Record, 0, len(sessions))}
	for i, s := range sessions {
		if !strings.EqualFold(s.Active, "y") {
			continue
		}
		rec, err := convertSession(s)
		if err != nil {
			key := s.UniqueKey()
			if key == "" {
				key = "#" + strconv.Itoa(i)
			}
			appLog.Warn("sched session skipped", "key", key, "reason", err.Error())
			continue
		}
		if rec.ID == "" {
			rec.ID = strconv.Itoa(len(doc.Events))
		}
		doc.Events = append(doc.Events, rec)
	}
	return doc
}

func convertSession(s Session) (model.Record, error) {
	start, err := parseTime(s.Start)
	if err != nil {
		return model.Record{}, fmt.Errorf("event_start: %w", err)
	}
	end, err := parseTime(s.End)
	if err != nil {
		return model.Record{}, fmt.Errorf("event_end: %w", err)
	}
	if end.Before(start) {
		return model.Record{}, fmt.Errorf("event_end %s before event_start %s", s.End, s.Start)
	}

	names := make([]string, 0, len(s.Speakers))
	for _, sp := range s.Speakers {
		names = append(names, sp.Name)
	}

	return model.Record{
		ID:       string(s.ID),
		Title:    s.Name,
		Date:     start.Format(time.DateOnly),
		Time:     start.Format("15:04"),
		Duration: int(end.Sub(start) / time.Minute),
		Location: Location(s.Name, s.Venue, s.Address),
		Category: Categorize(s.Name, s.Type(), string(s.Tags)),
		Speaker:  strings.Join(names, ","),
	}, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

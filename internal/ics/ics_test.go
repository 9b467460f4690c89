package ics

import (
	"strings"
	"testing"
	"time"
)

const standupCalendar = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//signage//test//EN
BEGIN:VEVENT
UID:standup@example.com
DTSTAMP:20250901T000000Z
DTSTART:20250915T150000Z
DTEND:20250915T153000Z
SUMMARY:Standup
LOCATION:Room 1
CATEGORIES:meetings,daily
ORGANIZER;CN=Ada Lovelace:mailto:ada@example.com
RRULE:FREQ=DAILY;COUNT=5
EXDATE:20250917T150000Z
END:VEVENT
BEGIN:VEVENT
UID:standup@example.com
DTSTAMP:20250901T000000Z
RECURRENCE-ID:20250916T150000Z
DTSTART:20250916T160000Z
DTEND:20250916T163000Z
SUMMARY:Standup (moved)
LOCATION:Room 2
END:VEVENT
BEGIN:VEVENT
UID:holiday@example.com
DTSTAMP:20250901T000000Z
DTSTART;VALUE=DATE:20250915
DTEND;VALUE=DATE:20250916
SUMMARY:Holiday
END:VEVENT
END:VCALENDAR
`

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParseICSFields(t *testing.T) {
	events, err := ParseICS("test", crlf(standupCalendar))
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}

	var base *ParsedEvent
	for i := range events {
		if events[i].UID == "standup@example.com" && !events[i].IsOverride() {
			base = &events[i]
		}
	}
	if base == nil {
		t.Fatalf("base standup event not found in %d events", len(events))
	}
	if base.Organizer != "Ada Lovelace" {
		t.Errorf("Organizer = %q", base.Organizer)
	}
	if len(base.Categories) != 2 || base.Categories[0] != "meetings" {
		t.Errorf("Categories = %v", base.Categories)
	}
	if len(base.ExDates) != 1 {
		t.Errorf("ExDates = %v", base.ExDates)
	}
	if base.RawRRule == "" {
		t.Error("RRULE not captured")
	}
}

func TestExpandAppliesExdateAndOverride(t *testing.T) {
	events, err := ParseICS("test", crlf(standupCalendar))
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}

	occs, err := Expand(events, ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2025, 9, 18, 23, 59, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}

	recs := Records(occs)
	type want struct{ title, date, time string }
	expected := []want{
		{"Standup", "2025-09-15", "15:00"},
		{"Standup (moved)", "2025-09-16", "16:00"},
		{"Standup", "2025-09-18", "15:00"},
	}
	if len(recs) != len(expected) {
		t.Fatalf("got %d records: %+v", len(recs), recs)
	}
	for i, w := range expected {
		r := recs[i]
		if r.Title != w.title || r.Date != w.date || r.Time != w.time {
			t.Errorf("record %d = %+v, want %+v", i, r, w)
		}
		if r.Duration != 30 {
			t.Errorf("record %d duration = %d", i, r.Duration)
		}
	}
	if recs[0].Category != "meetings" || recs[0].Speaker != "Ada Lovelace" {
		t.Errorf("first record = %+v", recs[0])
	}
	if recs[1].Location != "Room 2" {
		t.Errorf("override location = %q", recs[1].Location)
	}
}

func TestExpandRejectsInvertedRange(t *testing.T) {
	now := time.Now()
	if _, err := Expand(nil, ExpandConfig{RangeStart: now, RangeEnd: now.Add(-time.Hour)}); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseICSEmptyBody(t *testing.T) {
	if _, err := ParseICS("test", nil); err == nil {
		t.Fatal("expected error for empty body")
	}
}

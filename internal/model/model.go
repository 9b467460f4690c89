package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GeneralCategory is the styling bucket for events without a category.
// It is never used for filtering.
const GeneralCategory = "general"

// Date is a calendar day with no time or zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Clock is a local time of day. Hours may exceed 23 when produced by
// EndTime for an event that runs past midnight.
type Clock struct {
	Hours   int
	Minutes int
}

// ParseClock parses "HH:MM" (an optional ":SS" suffix is ignored).
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Clock{}, fmt.Errorf("invalid time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("invalid minute in %q", s)
	}
	return Clock{Hours: h, Minutes: m}, nil
}

// ClockOf returns the hour and minute of t.
func ClockOf(t time.Time) Clock {
	return Clock{Hours: t.Hour(), Minutes: t.Minute()}
}

// Minute is the minute-of-day, hours*60+minutes.
func (c Clock) Minute() int {
	return c.Hours*60 + c.Minutes
}

// String formats HH:MM. An hour of 24 or more wraps, so an event ending
// at {24, 15} displays as "00:15".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hours%24, c.Minutes)
}

// EndTime adds duration minutes to start without day rollover:
// EndTime({23,45}, 30) is {24,15}.
func EndTime(start Clock, duration int) Clock {
	total := start.Minute() + duration
	return Clock{Hours: total / 60, Minutes: total % 60}
}

// Event is one scheduled entry as loaded from the schedule document.
// Events are immutable once a load completes.
type Event struct {
	Title    string
	Date     Date
	Start    Clock
	Duration int // minutes
	Location string
	Speaker  string
	Category string
}

// End is the computed end clock; see EndTime.
func (e Event) End() Clock {
	return EndTime(e.Start, e.Duration)
}

// StyleCategory is Category, or GeneralCategory when empty.
func (e Event) StyleCategory() string {
	if e.Category == "" {
		return GeneralCategory
	}
	return e.Category
}

// Conference is the optional header block of a schedule document.
type Conference struct {
	Name     string `json:"name"`
	Dates    string `json:"dates,omitempty"`
	Location string `json:"location,omitempty"`
}

// Record is the wire shape of one event in schedule.json.
type Record struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Duration int    `json:"duration"`
	Location string `json:"location"`
	Category string `json:"category,omitempty"`
	Speaker  string `json:"speaker,omitempty"`
}

// Document is the wire shape of schedule.json.
type Document struct {
	Conference *Conference `json:"conference,omitempty"`
	Events     []Record    `json:"events"`
}

// Occurrence represents a single concrete instance of a calendar event
// (after recurrence expansion and timezone normalization).
type Occurrence struct {
	SourceID string // calendar source ID
	UID      string // iCalendar UID

	Summary    string
	Location   string
	Organizer  string
	Categories []string

	AllDay bool

	// Start / End are in the configured display timezone.
	Start time.Time
	End   time.Time
}

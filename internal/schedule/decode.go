package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"signage/internal/model"
)

// ErrMalformedEvent wraps every per-record decode failure.
var ErrMalformedEvent = errors.New("malformed event")

// Decoded is the outcome of decoding one schedule document.
type Decoded struct {
	Conference *model.Conference
	Events     []model.Event
	// Skipped holds one error per record that was dropped.
	Skipped []error
}

// record mirrors model.Record but tolerates what producers actually emit:
// float durations, numeric or string ids, null speakers.
type record struct {
	Title    string      `json:"title"`
	Date     string      `json:"date"`
	Time     string      `json:"time"`
	Duration json.Number `json:"duration"`
	Location string      `json:"location"`
	Speaker  string      `json:"speaker"`
	Category string      `json:"category"`
}

// zoneless layouts are interpreted in the display location.
var zonelessDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"Mon Jan _2 15:04:05 2006", // strftime %c
	"Mon Jan 2 15:04:05 2006",
	"Monday January 2, 2006",
	"January 2, 2006",
}

// Decode parses a schedule document. A body that is not a JSON object is
// an error; a bad record only lands in Decoded.Skipped. A missing events
// field yields an empty list.
func Decode(body []byte, loc *time.Location) (Decoded, error) {
	if loc == nil {
		loc = time.Local
	}

	var doc struct {
		Conference *model.Conference `json:"conference"`
		Events     []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return Decoded{}, fmt.Errorf("schedule: decode document: %w", err)
	}

	out := Decoded{
		Conference: doc.Conference,
		Events:     make([]model.Event, 0, len(doc.Events)),
	}
	for i, raw := range doc.Events {
		ev, err := decodeRecord(raw, loc)
		if err != nil {
			out.Skipped = append(out.Skipped, fmt.Errorf("event %d: %w", i, err))
			continue
		}
		out.Events = append(out.Events, ev)
	}
	return out, nil
}

func decodeRecord(raw json.RawMessage, loc *time.Location) (model.Event, error) {
	var r record
	if err := json.Unmarshal(raw, &r); err != nil {
		return model.Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if strings.TrimSpace(r.Title) == "" {
		return model.Event{}, fmt.Errorf("%w: missing title", ErrMalformedEvent)
	}

	date, err := parseDate(r.Date, loc)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: %q: %v", ErrMalformedEvent, r.Title, err)
	}
	start, err := model.ParseClock(r.Time)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: %q: %v", ErrMalformedEvent, r.Title, err)
	}
	duration, err := parseDuration(r.Duration)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: %q: %v", ErrMalformedEvent, r.Title, err)
	}

	return model.Event{
		Title:    r.Title,
		Date:     date,
		Start:    start,
		Duration: duration,
		Location: r.Location,
		Speaker:  r.Speaker,
		Category: r.Category,
	}, nil
}

func parseDate(s string, loc *time.Location) (model.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.Date{}, errors.New("missing date")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return model.DateOf(t.In(loc)), nil
	}
	for _, layout := range zonelessDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return model.DateOf(t), nil
		}
	}
	return model.Date{}, fmt.Errorf("unrecognized date %q", s)
}

func parseDuration(n json.Number) (int, error) {
	if n == "" {
		return 0, errors.New("missing duration")
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid duration %q", n)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative duration %q", n)
	}
	return int(math.Round(f)), nil
}

package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"signage/internal/ics"
	"signage/internal/model"
)

// ICSSource turns an iCalendar feed into a schedule document. Only the
// occurrences between yesterday and the end of tomorrow are expanded;
// the relevance filter never looks further.
type ICSSource struct {
	http  *HTTPSource
	loc   *time.Location
	clock clockwork.Clock
}

func NewICSSource(url string, timeout time.Duration, loc *time.Location, clock clockwork.Clock) *ICSSource {
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ICSSource{
		http:  NewHTTPSource(url, timeout),
		loc:   loc,
		clock: clock,
	}
}

func (s *ICSSource) String() string {
	return "ics " + redactURL(s.http.url)
}

func (s *ICSSource) Fetch(ctx context.Context) ([]byte, error) {
	body, err := s.http.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	parsed, err := ics.ParseICS(redactURL(s.http.url), body)
	if err != nil {
		return nil, fmt.Errorf("schedule: parse ics: %w", err)
	}

	now := s.clock.Now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	occs, err := ics.Expand(parsed, ics.ExpandConfig{
		DisplayLocation: s.loc,
		RangeStart:      today.AddDate(0, 0, -1),
		RangeEnd:        today.AddDate(0, 0, 2),
	})
	if err != nil {
		return nil, fmt.Errorf("schedule: expand ics: %w", err)
	}

	return json.Marshal(model.Document{Events: ics.Records(occs)})
}

package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"signage/internal/config"
	appLog "signage/internal/log"
	"signage/internal/model"
)

// Source produces the raw schedule document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// NewSource builds the Source selected by cfg.Source.Kind.
func NewSource(cfg *config.Config, loc *time.Location, clock clockwork.Clock) (Source, error) {
	timeout, err := time.ParseDuration(cfg.Source.Timeout)
	if err != nil {
		return nil, fmt.Errorf("schedule: invalid source timeout %q: %w", cfg.Source.Timeout, err)
	}

	switch cfg.Source.Kind {
	case config.SourceHTTP:
		if cfg.Source.URL == "" {
			return nil, fmt.Errorf("schedule: source kind %q requires url", cfg.Source.Kind)
		}
		return NewHTTPSource(cfg.Source.URL, timeout), nil
	case config.SourceICS:
		if cfg.Source.URL == "" {
			return nil, fmt.Errorf("schedule: source kind %q requires url", cfg.Source.Kind)
		}
		return NewICSSource(cfg.Source.URL, timeout, loc, clock), nil
	case config.SourceFile:
		return NewFileSource(nil, cfg.Source.Path), nil
	default:
		return nil, fmt.Errorf("schedule: unknown source kind %q", cfg.Source.Kind)
	}
}

// Status summarizes the loader for health reporting.
type Status struct {
	Source      string    `json:"source"`
	EventCount  int       `json:"event_count"`
	Skipped     int       `json:"skipped"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitzero"`
}

// Loaded reports whether at least one load succeeded.
func (s Status) Loaded() bool {
	return !s.LastSuccess.IsZero()
}

// Loader owns the in-memory event list. Each successful Load replaces
// the list wholesale; a failed Load keeps the previous one.
type Loader struct {
	src     Source
	loc     *time.Location
	clock   clockwork.Clock
	timeout time.Duration

	group singleflight.Group

	mu         sync.RWMutex
	events     []model.Event
	conference *model.Conference
	status     Status
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// Location is used to resolve zoneless dates.
	Location *time.Location
	Clock    clockwork.Clock
	// Timeout bounds one Load including decode. Zero means no extra bound
	// beyond the source's own.
	Timeout time.Duration
}

func NewLoader(src Source, opts LoaderOptions) *Loader {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	l := &Loader{
		src:     src,
		loc:     opts.Location,
		clock:   opts.Clock,
		timeout: opts.Timeout,
		events:  []model.Event{},
	}
	l.status.Source = fmt.Sprint(src)
	return l
}

// Load fetches and decodes the document and swaps it in. Calls that
// overlap an in-flight Load wait for it and share its result instead of
// starting a second fetch.
func (l *Loader) Load(ctx context.Context) error {
	_, err, shared := l.group.Do("load", func() (any, error) {
		return nil, l.load(ctx)
	})
	if shared {
		appLog.Debug("schedule load shared with in-flight fetch")
	}
	return err
}

func (l *Loader) load(ctx context.Context) error {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	body, err := l.src.Fetch(ctx)
	if err == nil {
		var decoded Decoded
		decoded, err = Decode(body, l.loc)
		if err == nil {
			l.replace(decoded)
			return nil
		}
	}

	l.mu.Lock()
	l.status.LastError = err.Error()
	l.status.LastErrorAt = l.clock.Now()
	kept := len(l.events)
	l.mu.Unlock()

	appLog.Error("schedule load failed; keeping previous events", err, "source", l.status.Source, "kept", kept)
	return err
}

func (l *Loader) replace(d Decoded) {
	for _, skipErr := range d.Skipped {
		appLog.Warn("schedule record skipped", "reason", skipErr.Error())
	}

	l.mu.Lock()
	l.events = d.Events
	l.conference = d.Conference
	l.status.EventCount = len(d.Events)
	l.status.Skipped = len(d.Skipped)
	l.status.LastSuccess = l.clock.Now()
	l.status.LastError = ""
	l.status.LastErrorAt = time.Time{}
	l.mu.Unlock()

	appLog.Debug("schedule loaded", "events", len(d.Events), "skipped", len(d.Skipped))
}

// Events returns the current list. Callers must not modify it.
func (l *Loader) Events() []model.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.events
}

// Conference returns the document header of the last successful load.
func (l *Loader) Conference() *model.Conference {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.conference
}

func (l *Loader) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

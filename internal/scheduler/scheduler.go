package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	appLog "signage/internal/log"
)

// DefaultResolution is how often Run checks for due tasks.
const DefaultResolution = 50 * time.Millisecond

// Task is a named periodic job.
type Task struct {
	Name     string
	Schedule cron.Schedule
	// RunNow fires the task on the first tick instead of waiting for
	// its first scheduled time.
	RunNow bool
	Fn     func(ctx context.Context)
}

type entry struct {
	task    Task
	next    time.Time
	running atomic.Bool
}

// Scheduler runs named tasks on independent schedules. A task still
// running when it comes due again is skipped for that slot.
type Scheduler struct {
	clock      clockwork.Clock
	resolution time.Duration

	mu      sync.Mutex
	entries []*entry
	wg      sync.WaitGroup
}

func New(clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{clock: clock, resolution: DefaultResolution}
}

// Add registers a task. Names must be unique.
func (s *Scheduler) Add(t Task) error {
	if t.Name == "" {
		return errors.New("scheduler: task name is empty")
	}
	if t.Schedule == nil {
		return fmt.Errorf("scheduler: task %q has no schedule", t.Name)
	}
	if t.Fn == nil {
		return fmt.Errorf("scheduler: task %q has no func", t.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.task.Name == t.Name {
			return fmt.Errorf("scheduler: duplicate task %q", t.Name)
		}
	}
	s.entries = append(s.entries, &entry{task: t})
	return nil
}

// Tick starts every task due at now and returns their names. Tasks run on
// their own goroutines with ctx; use Wait to join them.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fired []string
	for _, e := range s.entries {
		if e.next.IsZero() {
			e.next = e.task.Schedule.Next(now)
			if !e.task.RunNow {
				continue
			}
		} else if now.Before(e.next) {
			continue
		} else {
			e.next = e.task.Schedule.Next(now)
		}

		if !e.running.CompareAndSwap(false, true) {
			appLog.Debug("scheduler: task still running, skipped", "task", e.task.Name)
			continue
		}
		fired = append(fired, e.task.Name)

		s.wg.Add(1)
		go func(e *entry) {
			defer s.wg.Done()
			defer e.running.Store(false)
			e.task.Fn(ctx)
		}(e)
	}
	return fired
}

// Next reports when the named task fires next; zero before the first tick.
func (s *Scheduler) Next(name string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.task.Name == name {
			return e.next
		}
	}
	return time.Time{}
}

// Wait blocks until every started task has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Run ticks on the injected clock until ctx is cancelled, then waits for
// running tasks.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.resolution)
	defer ticker.Stop()

	s.Tick(ctx, s.clock.Now())
	for {
		select {
		case <-ctx.Done():
			s.Wait()
			return
		case <-ticker.Chan():
			s.Tick(ctx, s.clock.Now())
		}
	}
}

// ParseSchedule accepts a Go duration ("30s", "1m") or a standard cron
// spec including descriptors ("@hourly", "0 * * * *", "@every 1h").
// Durations are rounded down to whole seconds, minimum one second.
func ParseSchedule(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("scheduler: empty schedule")
	}
	if d, err := time.ParseDuration(spec); err == nil {
		if d <= 0 {
			return nil, fmt.Errorf("scheduler: non-positive interval %q", spec)
		}
		return cron.Every(d), nil
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid schedule %q: %w", spec, err)
	}
	return sched, nil
}

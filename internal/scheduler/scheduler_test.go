package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

var t0 = time.Date(2025, 9, 15, 9, 0, 0, 0, time.UTC)

func mustSchedule(t *testing.T, spec string) Task {
	t.Helper()
	s, err := ParseSchedule(spec)
	if err != nil {
		t.Fatalf("ParseSchedule(%q): %v", spec, err)
	}
	return Task{Schedule: s}
}

type counter struct {
	mu sync.Mutex
	n  map[string]int
}

func (c *counter) fn(name string) func(context.Context) {
	return func(context.Context) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.n == nil {
			c.n = map[string]int{}
		}
		c.n[name]++
	}
}

func (c *counter) get(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n[name]
}

func TestTickIndependentIntervals(t *testing.T) {
	s := New(clockwork.NewFakeClockAt(t0))
	c := &counter{}

	for _, spec := range []struct {
		name, sched string
		runNow      bool
	}{
		{"clock", "1s", false},
		{"reload", "30s", true},
		{"ads", "10s", true},
		{"page-reload", "@hourly", false},
	} {
		task := mustSchedule(t, spec.sched)
		task.Name, task.RunNow, task.Fn = spec.name, spec.runNow, c.fn(spec.name)
		if err := s.Add(task); err != nil {
			t.Fatal(err)
		}
	}

	ctx := context.Background()
	for sec := 0; sec <= 3600; sec++ {
		s.Tick(ctx, t0.Add(time.Duration(sec)*time.Second))
		s.Wait()
	}

	want := map[string]int{
		"clock":       3600,
		"reload":      1 + 120,
		"ads":         1 + 360,
		"page-reload": 1,
	}
	for name, n := range want {
		if got := c.get(name); got != n {
			t.Errorf("%s ran %d times, want %d", name, got, n)
		}
	}
}

func TestTickRunNowFiresImmediately(t *testing.T) {
	s := New(nil)
	c := &counter{}
	task := mustSchedule(t, "10s")
	task.Name, task.RunNow, task.Fn = "ads", true, c.fn("ads")
	if err := s.Add(task); err != nil {
		t.Fatal(err)
	}

	fired := s.Tick(context.Background(), t0)
	s.Wait()
	if len(fired) != 1 || fired[0] != "ads" {
		t.Fatalf("fired = %v", fired)
	}
	if !s.Next("ads").Equal(t0.Add(10 * time.Second)) {
		t.Errorf("next = %v", s.Next("ads"))
	}

	if fired := s.Tick(context.Background(), t0.Add(9*time.Second)); len(fired) != 0 {
		t.Errorf("fired early: %v", fired)
	}
}

func TestTickSkipsTaskStillRunning(t *testing.T) {
	s := New(nil)
	release := make(chan struct{})
	var runs atomic.Int32

	task := mustSchedule(t, "1s")
	task.Name, task.RunNow = "reload", true
	task.Fn = func(context.Context) {
		runs.Add(1)
		<-release
	}
	if err := s.Add(task); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	s.Tick(ctx, t0)
	for sec := 1; sec <= 5; sec++ {
		if fired := s.Tick(ctx, t0.Add(time.Duration(sec)*time.Second)); len(fired) != 0 {
			t.Fatalf("second %d: overlapping run started", sec)
		}
	}
	close(release)
	s.Wait()

	if runs.Load() != 1 {
		t.Fatalf("runs = %d, want 1", runs.Load())
	}
	if fired := s.Tick(ctx, t0.Add(6*time.Second)); len(fired) != 1 {
		t.Fatalf("task should run again once free, fired = %v", fired)
	}
	s.Wait()
}

func TestAddValidation(t *testing.T) {
	s := New(nil)
	ok := mustSchedule(t, "1s")
	ok.Name, ok.Fn = "a", func(context.Context) {}

	if err := s.Add(ok); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(ok); err == nil {
		t.Error("duplicate name accepted")
	}
	if err := s.Add(Task{Name: "b", Fn: ok.Fn}); err == nil {
		t.Error("nil schedule accepted")
	}
	if err := s.Add(Task{Name: "c", Schedule: ok.Schedule}); err == nil {
		t.Error("nil func accepted")
	}
}

func TestParseSchedule(t *testing.T) {
	for _, spec := range []string{"1s", "30s", "10m", "@hourly", "0 * * * *", "@every 1h"} {
		if _, err := ParseSchedule(spec); err != nil {
			t.Errorf("ParseSchedule(%q): %v", spec, err)
		}
	}
	for _, spec := range []string{"", "0s", "-5s", "every hour", "61 * * * *"} {
		if _, err := ParseSchedule(spec); err == nil {
			t.Errorf("ParseSchedule(%q) should fail", spec)
		}
	}

	hourly, _ := ParseSchedule("@hourly")
	if next := hourly.Next(t0.Add(5 * time.Minute)); !next.Equal(t0.Add(time.Hour)) {
		t.Errorf("@hourly next = %v", next)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	s := New(clock)
	ran := make(chan struct{}, 1)
	task := mustSchedule(t, "1s")
	task.Name, task.RunNow = "clock", true
	task.Fn = func(context.Context) {
		select {
		case ran <- struct{}{}:
		default:
		}
	}
	if err := s.Add(task); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("RunNow task did not fire on start")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

package main

import (
	"context"

	"signage/internal/hub"
	appLog "signage/internal/log"
	"signage/internal/scheduler"
)

// Task names, as they appear in logs.
const (
	taskClock      = "clock"
	taskReload     = "reload"
	taskRender     = "render"
	taskAds        = "ads"
	taskPageReload = "page-reload"
	taskCapture    = "capture"
)

func (a *app) tasks() ([]scheduler.Task, error) {
	iv := a.conf.Intervals
	specs := []struct {
		name   string
		spec   string
		runNow bool
		fn     func(context.Context)
	}{
		{taskClock, iv.Clock, true, a.tickClock},
		{taskReload, iv.Reload, true, a.reload},
		{taskRender, iv.Render, false, a.render},
		{taskAds, iv.Ads, true, a.rotateAd},
		{taskPageReload, iv.PageReload, false, a.reloadPages},
		{taskCapture, a.conf.Capture.Cron, false, a.captureTask},
	}

	tasks := make([]scheduler.Task, 0, len(specs))
	for _, s := range specs {
		if s.name == taskAds && a.rot.Len() == 0 {
			appLog.Info("ad rotation disabled: no banners configured")
			continue
		}
		if s.name == taskCapture && !shouldCapture(a.conf, false) {
			continue
		}
		sched, err := scheduler.ParseSchedule(s.spec)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, scheduler.Task{Name: s.name, Schedule: sched, RunNow: s.runNow, Fn: s.fn})
	}
	return tasks, nil
}

func (a *app) tickClock(context.Context) {
	a.hub.BroadcastClock()
}

// reload refreshes the event list; failures keep the previous list on screen.
func (a *app) reload(ctx context.Context) {
	if err := a.loader.Load(ctx); err != nil {
		return
	}
	a.hub.BroadcastEvents()
}

// render re-applies the window as time moves, without fetching.
func (a *app) render(context.Context) {
	a.hub.BroadcastEvents()
}

// rotateAd fades the current banner out, waits the transition, then shows
// the next one. The very first banner appears without a fade.
func (a *app) rotateAd(ctx context.Context) {
	if cur, ok := a.rot.Current(); ok {
		a.hub.BroadcastAd(hub.PhaseFade, cur)
		select {
		case <-ctx.Done():
			return
		case <-a.clock.After(a.rot.Transition()):
		}
	}
	if f, ok := a.rot.Next(); ok {
		a.hub.BroadcastAd(hub.PhaseShow, f)
	}
}

func (a *app) reloadPages(context.Context) {
	appLog.Info("asking kiosk pages to reload", "clients", a.hub.ClientCount())
	a.hub.BroadcastReload()
}

func (a *app) captureTask(ctx context.Context) {
	if err := a.capture(ctx); err != nil {
		appLog.Error("kiosk capture failed", err, "url", a.conf.CaptureURL())
	}
}

package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"signage/internal/capture"
	"signage/internal/config"
	"signage/internal/display"
	"signage/internal/hub"
	appLog "signage/internal/log"
	"signage/internal/power"
	"signage/internal/rotator"
	"signage/internal/schedule"
	"signage/internal/scheduler"
	"signage/internal/web"
)

const version = "1.0.0"

type flagConfig struct {
	configPath string
	listen     string
	category   string
	once       bool
}

// app holds the wired components shared by the daemon and -once paths.
type app struct {
	conf   *config.Config
	clock  clockwork.Clock
	loader *schedule.Loader
	ctrl   *display.Controller
	rot    *rotator.Rotator
	hub    *hub.Hub
	power  *power.Monitor

	// watchPath is the schedule file reloaded on change; empty disables it.
	watchPath string
}

func main() {
	appLog.Info("signage starting", "version", version)

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	flags.apply(conf)
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"source", conf.Source.Kind,
		"category", conf.Category,
		"max_events", conf.Display.MaxEvents,
		"lookahead_minutes", conf.Display.LookaheadMinutes,
		"ads", len(visuals(conf)),
		"capture", conf.Capture.Cron,
		"capture_url", conf.CaptureURL(),
		"once", flags.once,
	)

	a, err := newApp(conf, clockwork.NewRealClock())
	if err != nil {
		appLog.Error("failed to initialize", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if flags.once {
		if err := a.runOnce(ctx); err != nil {
			appLog.Error("single run failed", err)
			os.Exit(1)
		}
		return
	}

	if err := a.run(ctx); err != nil {
		appLog.Error("signage stopped with error", err)
		os.Exit(1)
	}
	appLog.Info("signage exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/signage/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.category, "category", "", "Default category filter (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Load the schedule, log the current view, capture once and exit")

	flag.Parse()

	return cfg
}

// apply layers command-line overrides onto the loaded config.
func (f flagConfig) apply(conf *config.Config) {
	if f.listen != "" {
		conf.Listen = f.listen
	}
	if f.category != "" {
		conf.Category = f.category
	}
}

// shouldCapture reports whether a screenshot is due: -once always captures
// when there is somewhere to write it, the daemon only with a capture cron.
func shouldCapture(conf *config.Config, once bool) bool {
	if once {
		return conf.Capture.Output != ""
	}
	return conf.Capture.Cron != ""
}

func newApp(conf *config.Config, clock clockwork.Clock) (*app, error) {
	loc := resolveLocationOrLocal(conf.Timezone)

	src, err := schedule.NewSource(conf, loc, clock)
	if err != nil {
		return nil, err
	}
	timeout, err := time.ParseDuration(conf.Source.Timeout)
	if err != nil {
		return nil, err
	}
	transition, err := time.ParseDuration(conf.Intervals.AdTransition)
	if err != nil {
		return nil, err
	}

	loader := schedule.NewLoader(src, schedule.LoaderOptions{
		Location: loc,
		Clock:    clock,
		Timeout:  timeout,
	})
	ctrl := display.NewController(loader, display.Options{
		Clock:    clock,
		Location: loc,
		Window: schedule.Window{
			Lookahead: conf.Display.LookaheadMinutes,
			Max:       conf.Display.MaxEvents,
		},
	})
	rot := rotator.New(visuals(conf), transition)

	var watchPath string
	if fs, ok := src.(*schedule.FileSource); ok && conf.Source.Watch {
		watchPath = fs.Path()
	}

	return &app{
		conf:   conf,
		clock:  clock,
		loader: loader,
		ctrl:   ctrl,
		rot:    rot,
		hub:    hub.New(ctrl, rot, conf.Category),
		power:  power.NewMonitor(power.NewReader(conf.Power), clock, 0),

		watchPath: watchPath,
	}, nil
}

// visuals is the banner list: nil config means the built-in set.
func visuals(conf *config.Config) []string {
	if conf.Ads == nil {
		return rotator.DefaultVisuals
	}
	return conf.Ads
}

func (a *app) run(ctx context.Context) error {
	s := scheduler.New(a.clock)
	tasks, err := a.tasks()
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if err := s.Add(t); err != nil {
			return err
		}
	}

	if a.watchPath != "" {
		go func() {
			err := schedule.Watch(ctx, a.watchPath, time.Second, func() {
				if err := a.loader.Load(ctx); err == nil {
					a.hub.BroadcastEvents()
				}
			})
			if err != nil {
				appLog.Error("schedule watch stopped", err, "path", a.watchPath)
			}
		}()
	}

	go s.Run(ctx)

	srv := web.NewServer(a.conf, web.Deps{
		Loader: a.loader,
		Viewer: a.ctrl,
		Hub:    a.hub,
		Ads:    a.rot,
		Power:  a.power,
	})
	err = srv.Run(ctx)
	s.Wait()
	return err
}

// runOnce loads the schedule, logs what the default page would show and
// serves the page long enough to screenshot it.
func (a *app) runOnce(ctx context.Context) error {
	if err := a.loader.Load(ctx); err != nil {
		return err
	}
	a.rot.Next()

	v := a.ctrl.View(a.conf.Category)
	appLog.Info("current view", "title", v.Title, "day", v.Day, "time", v.Time, "items", len(v.Items), "empty", v.Empty)
	for _, it := range v.Items {
		appLog.Info("event", "title", it.Title, "time", it.TimeRange, "location", it.Location, "category", it.Category)
	}

	if !shouldCapture(a.conf, true) {
		return nil
	}

	// Listen before capturing so the browser never races the server.
	ln, err := net.Listen("tcp", a.conf.Listen)
	if err != nil {
		return err
	}
	srvCtx, stop := context.WithCancel(ctx)
	defer stop()
	srv := web.NewServer(a.conf, web.Deps{Loader: a.loader, Viewer: a.ctrl, Hub: a.hub, Ads: a.rot, Power: a.power})
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(srvCtx, ln) }()

	err = a.capture(ctx)
	stop()
	if serr := <-errCh; err == nil {
		err = serr
	}
	return err
}

func (a *app) captureOptions() capture.Options {
	return capture.Options{
		URL:        a.conf.CaptureURL(),
		OutputPath: a.conf.Capture.Output,
		Width:      a.conf.Capture.Width,
		Height:     a.conf.Capture.Height,
	}
}

func (a *app) capture(ctx context.Context) error {
	start := time.Now()
	if err := capture.KioskPNG(ctx, a.captureOptions()); err != nil {
		return err
	}
	appLog.Info("kiosk captured", "output", a.conf.Capture.Output, "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

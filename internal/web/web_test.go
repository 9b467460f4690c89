package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"

	"signage/internal/config"
	"signage/internal/display"
	"signage/internal/hub"
	"signage/internal/power"
	"signage/internal/rotator"
	"signage/internal/sched"
	"signage/internal/schedule"
)

const doc = `{
  "conference": {"name": "CppCon 2025"},
  "events": [
    {"title": "Keynote", "date": "2025-09-15", "time": "14:00", "duration": 60, "location": "Main Hall", "category": "keynote", "speaker": "B. S."},
    {"title": "Templates Lab", "date": "2025-09-15", "time": "15:00", "duration": 90, "location": "Room 2", "category": "workshop"}
  ]
}`

type fixture struct {
	srv    *httptest.Server
	fs     afero.Fs
	loader *schedule.Loader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.September, 15, 13, 30, 0, 0, time.UTC))

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/srv/schedule.json", []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	loader := schedule.NewLoader(schedule.NewFileSource(fs, "/srv/schedule.json"),
		schedule.LoaderOptions{Location: time.UTC, Clock: clock})

	ctrl := display.NewController(loader, display.Options{Clock: clock, Location: time.UTC})
	rot := rotator.New(rotator.DefaultVisuals, 0)
	rot.Next()
	h := hub.New(ctrl, rot, "")

	cfg := config.DefaultConfig()
	cfg.Capture.Output = t.TempDir() + "/preview.png"
	s := NewServer(cfg, Deps{
		Loader: loader,
		Viewer: ctrl,
		Hub:    h,
		Ads:    rot,
		Power:  power.NewMonitor(power.NewReader(cfg.Power), clock, 0),
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	return &fixture{srv: srv, fs: fs, loader: loader}
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestHealthDegradedUntilLoaded(t *testing.T) {
	f := newFixture(t)

	var h struct {
		Status     string       `json:"status"`
		EventCount int          `json:"event_count"`
		Power      power.Status `json:"power"`
	}
	_, body := get(t, f.srv.URL+"/health")
	if err := json.Unmarshal([]byte(body), &h); err != nil {
		t.Fatal(err)
	}
	if h.Status != "degraded" || h.Power.Known {
		t.Errorf("health = %s", body)
	}

	if err := f.loader.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, body = get(t, f.srv.URL+"/health")
	if err := json.Unmarshal([]byte(body), &h); err != nil {
		t.Fatal(err)
	}
	if h.Status != "ok" || h.EventCount != 2 {
		t.Errorf("health = %s", body)
	}
}

func TestPageRendersSlots(t *testing.T) {
	f := newFixture(t)
	if err := f.loader.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	resp, body := get(t, f.srv.URL+"/?category=workshop")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, want := range []string{
		"Upcoming Workshop Events",
		"Templates Lab",
		"15:00 - 16:30 (90 min)",
		`data-ready="true"`,
		"CppCon 2025",
		`id="` + display.SlotAdBanner + `"`,
		`data-slot-events="` + display.SlotEvents + `"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, ">Keynote<") {
		t.Error("keynote shown under workshop filter")
	}
}

func TestDisplayAPIBeforeLoadShowsPlaceholder(t *testing.T) {
	f := newFixture(t)

	_, body := get(t, f.srv.URL+"/api/display")
	var v display.View
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		t.Fatal(err)
	}
	if !v.Empty || v.Items[0].Title != "No upcoming events" {
		t.Errorf("view = %+v", v)
	}
}

func TestRefreshPicksUpNewDocument(t *testing.T) {
	f := newFixture(t)
	if err := f.loader.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	updated := strings.Replace(doc, `"Templates Lab"`, `"Coroutines Lab"`, 1)
	if err := afero.WriteFile(f.fs, "/srv/schedule.json", []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(f.srv.URL+"/api/refresh", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d", resp.StatusCode)
	}

	_, body := get(t, f.srv.URL+"/api/events")
	if !strings.Contains(body, "Coroutines Lab") || !strings.Contains(body, `"end":"16:30"`) {
		t.Errorf("events = %s", body)
	}
}

func TestRefreshFailureKeepsEvents(t *testing.T) {
	f := newFixture(t)
	if err := f.loader.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(f.fs, "/srv/schedule.json", []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(f.srv.URL+"/api/refresh", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	if n := len(f.loader.Events()); n != 2 {
		t.Errorf("events = %d, want previous 2", n)
	}
}

func TestRefreshRequiresPost(t *testing.T) {
	f := newFixture(t)
	resp, _ := get(t, f.srv.URL+"/api/refresh")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestStaticAssets(t *testing.T) {
	f := newFixture(t)
	for _, p := range []string{"/static/signage.css", "/static/signage.js"} {
		resp, body := get(t, f.srv.URL+p)
		if resp.StatusCode != http.StatusOK || body == "" {
			t.Errorf("%s: status %d", p, resp.StatusCode)
		}
	}
}

func TestStylesheetColoursEveryCategory(t *testing.T) {
	f := newFixture(t)
	_, css := get(t, f.srv.URL+"/static/signage.css")
	for _, c := range sched.Categories() {
		if !strings.Contains(css, ".event-bullet-"+c+" ") {
			t.Errorf("no bullet rule for category %q", c)
		}
		if !strings.Contains(css, "--"+c+":") {
			t.Errorf("no colour variable for category %q", c)
		}
	}
}

func TestScriptSkipsMissingSlots(t *testing.T) {
	f := newFixture(t)
	_, js := get(t, f.srv.URL+"/static/signage.js")
	for _, want := range []string{
		"if (!slots.day)",
		"if (slots.title)",
		"if (!slots.events)",
		"if (!slots.ad)",
		`body.dataset["slot" + name]`,
	} {
		if !strings.Contains(js, want) {
			t.Errorf("signage.js missing guard %q", want)
		}
	}
}

func TestPreviewMissingIs404(t *testing.T) {
	f := newFixture(t)
	resp, _ := get(t, f.srv.URL+"/preview.png")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

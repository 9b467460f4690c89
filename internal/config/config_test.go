package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8080" {
		t.Errorf("Listen = %q", cfg.Listen)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestLoadNormalizesPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`
listen: ":9000"
category: workshops
source:
  kind: http
  url: https://example.com/schedule.json
intervals:
  reload: 1m
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Listen != ":9000" || cfg.Category != "workshops" {
		t.Errorf("explicit values lost: %+v", cfg)
	}
	if cfg.Source.Kind != SourceHTTP || cfg.Source.Path != "" {
		t.Errorf("source = %+v", cfg.Source)
	}
	if cfg.Intervals.Reload != "1m" || cfg.Intervals.Clock != "1s" || cfg.Intervals.PageReload != "@hourly" {
		t.Errorf("intervals = %+v", cfg.Intervals)
	}
	if cfg.Display.MaxEvents != 6 || cfg.Display.LookaheadMinutes != 240 {
		t.Errorf("display = %+v", cfg.Display)
	}
	if cfg.Ads != nil {
		t.Errorf("Ads should stay nil so built-in banners are used, got %v", cfg.Ads)
	}
}

func TestEmptyAdsListSurvivesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("ads: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ads == nil || len(cfg.Ads) != 0 {
		t.Errorf("Ads = %#v, want empty non-nil", cfg.Ads)
	}
}

func TestUnknownSourceKindFallsBackToFile(t *testing.T) {
	cfg := &Config{Source: SourceConfig{Kind: "ftp"}}
	cfg.Normalize()
	if cfg.Source.Kind != SourceFile || cfg.Source.Path != "schedule.json" {
		t.Errorf("source = %+v", cfg.Source)
	}
}

func TestSaveRejectsEmptyPath(t *testing.T) {
	if err := Save("", DefaultConfig()); err == nil {
		t.Fatal("expected error for empty path")
	}
	if err := Save(filepath.Join(t.TempDir(), "c.yaml"), nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestLoadFsRoundTrip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	cfg := DefaultConfig()
	cfg.Category = "keynote"
	cfg.Ads = []string{"<svg/>"}
	if err := SaveFs(fsys, "/etc/signage/config.yaml", cfg); err != nil {
		t.Fatalf("SaveFs: %v", err)
	}

	got, err := LoadFs(fsys, "/etc/signage/config.yaml")
	if err != nil {
		t.Fatalf("LoadFs: %v", err)
	}
	if got.Category != "keynote" || len(got.Ads) != 1 {
		t.Errorf("loaded = %+v", got)
	}

	entries, _ := afero.ReadDir(fsys, "/etc/signage")
	if len(entries) != 1 {
		t.Errorf("temp file left behind: %d entries", len(entries))
	}
}

func TestLoadFsRejectsBadYAML(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/c.yaml", []byte("listen: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFs(fsys, "/c.yaml"); err == nil {
		t.Error("bad yaml accepted")
	}
}

func TestCaptureURLFollowsListen(t *testing.T) {
	tests := []struct {
		listen, url, want string
	}{
		{"127.0.0.1:8080", "", "http://127.0.0.1:8080/"},
		{"127.0.0.1:9090", "", "http://127.0.0.1:9090/"},
		{":9000", "", "http://127.0.0.1:9000/"},
		{"0.0.0.0:9000", "", "http://127.0.0.1:9000/"},
		{"[::]:9000", "", "http://127.0.0.1:9000/"},
		{"kiosk.local:80", "", "http://kiosk.local:80/"},
		{":9000", "http://other:1/?category=keynote", "http://other:1/?category=keynote"},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Listen = tt.listen
		cfg.Capture.URL = tt.url
		if got := cfg.CaptureURL(); got != tt.want {
			t.Errorf("CaptureURL(listen=%q, url=%q) = %q, want %q", tt.listen, tt.url, got, tt.want)
		}
	}
}

func TestNormalizeLeavesCaptureURLUnset(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Capture.URL != "" {
		t.Errorf("Capture.URL = %q, want empty so -listen can change it", cfg.Capture.URL)
	}
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Source kinds accepted in SourceConfig.Kind.
const (
	SourceHTTP = "http"
	SourceFile = "file"
	SourceICS  = "ics"
)

// SourceConfig describes where the schedule document comes from.
type SourceConfig struct {
	// Kind is one of "http", "file" or "ics".
	Kind string `yaml:"kind" json:"kind"`
	// URL is used by the http and ics kinds.
	URL string `yaml:"url" json:"url"`
	// Path is the local schedule.json used by the file kind. It is also
	// served at /schedule.json.
	Path string `yaml:"path" json:"path"`
	// Watch reloads immediately when the file at Path changes.
	Watch bool `yaml:"watch" json:"watch"`
	// Timeout bounds a single fetch, as a Go duration string.
	Timeout string `yaml:"timeout" json:"timeout"`
}

// DisplayConfig controls the relevance window.
type DisplayConfig struct {
	// MaxEvents caps the rendered list.
	MaxEvents int `yaml:"max_events" json:"max_events"`
	// LookaheadMinutes is how far ahead an event may start and still be listed.
	LookaheadMinutes int `yaml:"lookahead_minutes" json:"lookahead_minutes"`
}

// IntervalsConfig holds one schedule per periodic task. Each value is
// either a Go duration ("30s") or a cron spec ("@hourly", "0 * * * *").
type IntervalsConfig struct {
	Clock      string `yaml:"clock" json:"clock"`
	Reload     string `yaml:"reload" json:"reload"`
	Render     string `yaml:"render" json:"render"`
	Ads        string `yaml:"ads" json:"ads"`
	PageReload string `yaml:"page_reload" json:"page_reload"`

	// AdTransition is the fade pause between two banners (duration only).
	AdTransition string `yaml:"ad_transition" json:"ad_transition"`
}

// CaptureConfig controls the periodic kiosk screenshot.
type CaptureConfig struct {
	// Cron enables periodic capture when non-empty.
	Cron   string `yaml:"cron" json:"cron"`
	// URL defaults to this kiosk's own page; see Config.CaptureURL.
	URL    string `yaml:"url" json:"url"`
	Output string `yaml:"output" json:"output"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

// PowerConfig describes an optional I2C battery controller on the kiosk.
type PowerConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Bus     string `yaml:"bus" json:"bus"`
	Addr    uint16 `yaml:"addr" json:"addr"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the kiosk page and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone in which "today" and "now" are evaluated.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Category is the default category filter for pages opened without
	// a ?category= parameter. Empty shows every category.
	Category string `yaml:"category" json:"category"`

	Source    SourceConfig    `yaml:"source" json:"source"`
	Display   DisplayConfig   `yaml:"display" json:"display"`
	Intervals IntervalsConfig `yaml:"intervals" json:"intervals"`

	// Ads is the ordered list of banner SVG documents. A nil list uses the
	// built-in banners, an explicit empty list disables rotation.
	Ads []string `yaml:"ads" json:"ads"`

	Capture CaptureConfig `yaml:"capture" json:"capture"`
	Power   PowerConfig   `yaml:"power" json:"power"`
}

// CaptureURL is the page the capture step loads: capture.url when set,
// otherwise the root page on Listen. An unspecified or wildcard host maps to
// loopback. Call it after any overrides to Listen.
func (c *Config) CaptureURL() string {
	if c.Capture.URL != "" {
		return c.Capture.URL
	}
	host, port, err := net.SplitHostPort(c.Listen)
	if err != nil {
		return "http://" + c.Listen + "/"
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	switch c.Source.Kind {
	case SourceHTTP, SourceFile, SourceICS:
	default:
		c.Source.Kind = SourceFile
	}
	if c.Source.Kind == SourceFile && c.Source.Path == "" {
		c.Source.Path = "schedule.json"
	}
	if c.Source.Timeout == "" {
		c.Source.Timeout = "15s"
	}

	if c.Display.MaxEvents <= 0 {
		c.Display.MaxEvents = 6
	}
	if c.Display.LookaheadMinutes <= 0 {
		c.Display.LookaheadMinutes = 240
	}

	iv := &c.Intervals
	if iv.Clock == "" {
		iv.Clock = "1s"
	}
	if iv.Reload == "" {
		iv.Reload = "30s"
	}
	if iv.Render == "" {
		iv.Render = "30s"
	}
	if iv.Ads == "" {
		iv.Ads = "10s"
	}
	if iv.AdTransition == "" {
		iv.AdTransition = "250ms"
	}
	if iv.PageReload == "" {
		iv.PageReload = "@hourly"
	}

	if c.Capture.Output == "" {
		c.Capture.Output = "/var/lib/signage/preview.png"
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = 1920
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = 1080
	}

	if c.Power.Addr == 0 {
		c.Power.Addr = 0x57
	}
}

// Load reads the YAML config at path from the OS filesystem. See LoadFs.
func Load(path string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), path)
}

// LoadFs reads the YAML config at path. A missing file is created with the
// defaults (0600, parent directories included) and those defaults are
// returned; if that write fails the defaults come back alongside the error.
func LoadFs(fsys afero.Fs, path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := DefaultConfig()
		return cfg, SaveFs(fsys, path, cfg)
	}
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path on the OS filesystem. See SaveFs.
func Save(path string, cfg *Config) error {
	return SaveFs(afero.NewOsFs(), path, cfg)
}

// SaveFs normalizes cfg and replaces path with it via a temp file in the
// same directory, leaving the result readable by the owner only.
func SaveFs(fsys afero.Fs, path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := afero.TempFile(fsys, dir, ".signage-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = fsys.Remove(tmpName) }()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if err := fsys.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return fsys.Rename(tmpName, path)
}

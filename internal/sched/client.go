// Package sched produces schedule.json documents from a Sched event site,
// either through its export API or by scraping the public listing.
package sched

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	appLog "signage/internal/log"
)

const userAgent = "signage-import/1.0"

// ErrNoAPIKey is returned when a client is built without a key.
var ErrNoAPIKey = errors.New("sched: api key is required")

// Speaker is one presenter attached to a session.
type Speaker struct {
	Name string `json:"name"`
}

// Session is one entry of the session/export response. Only the fields the
// converter uses are decoded. Exports name the key and type either event_*
// or session_*; use UniqueKey and Type rather than the raw fields.
type Session struct {
	ID          flexString `json:"id"`
	Key         string     `json:"event_key"`
	SessionKey  string     `json:"session_key"`
	Active      string     `json:"active"`
	Name        string     `json:"name"`
	Start       string     `json:"event_start"`
	End         string     `json:"event_end"`
	EventType   string     `json:"event_type"`
	SessionType string     `json:"session_type"`
	Venue       string     `json:"venue"`
	Address     string     `json:"address"`
	Tags        flexString `json:"tags"`
	Speakers    []Speaker  `json:"speakers"`
}

// UniqueKey is event_key, falling back to session_key.
func (s Session) UniqueKey() string {
	if s.Key != "" {
		return s.Key
	}
	return s.SessionKey
}

// Type is event_type, falling back to session_type.
func (s Session) Type() string {
	if s.EventType != "" {
		return s.EventType
	}
	return s.SessionType
}

// flexString accepts a JSON string, number or null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("sched: expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

// ClientOptions tunes the HTTP behaviour of a Client.
type ClientOptions struct {
	RetryCount int
	RetryWait  time.Duration
	Timeout    time.Duration
}

// Client talks to the Sched API of one event site, e.g.
// https://cppcon2025.sched.com/api.
type Client struct {
	http *resty.Client
	key  string
}

func NewClient(baseURL, apiKey string, opts ClientOptions) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if opts.RetryCount <= 0 {
		opts.RetryCount = 3
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 2 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	rc := resty.New().
		SetBaseURL(baseURL).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(4*opts.RetryWait).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", userAgent).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	return &Client{http: rc, key: apiKey}, nil
}

// Sessions exports every session. Entries that do not decode are logged and
// skipped.
func (c *Client) Sessions(ctx context.Context) ([]Session, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api_key": c.key,
			"format":  "json",
		}).
		Get("/session/export")
	if err != nil {
		return nil, fmt.Errorf("sched: export request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("sched: export returned %s", resp.Status())
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("sched: decode export: %w", err)
	}

	sessions := make([]Session, 0, len(raw))
	for i, r := range raw {
		var s Session
		if err := json.Unmarshal(r, &s); err != nil {
			appLog.Warn("sched session skipped", "index", i, "reason", err.Error())
			continue
		}
		sessions = append(sessions, s)
	}
	appLog.Info("sched sessions fetched", "count", len(sessions))
	return sessions, nil
}

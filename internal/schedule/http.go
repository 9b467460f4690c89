package schedule

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	appLog "signage/internal/log"
)

// HTTPSource fetches a document over HTTP, honoring ETag and
// Last-Modified. Validators and the last body live in memory only; a 304
// replays the last body.
type HTTPSource struct {
	url    string
	client *http.Client

	mu           sync.Mutex
	etag         string
	lastModified string
	body         []byte
}

// NewHTTPSource creates an HTTPSource for url. A zero timeout means 15s.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) String() string {
	return "http " + redactURL(s.url)
}

// Fetch performs one conditional GET.
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	if s.url == "" {
		return nil, errors.New("schedule: source URL is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	etag, lastModified, cached := s.etag, s.lastModified, s.body
	s.mu.Unlock()

	if len(cached) > 0 {
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
		if lastModified != "" {
			req.Header.Set("If-Modified-Since", lastModified)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("schedule: fetch %s: %w", redactURL(s.url), err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("schedule: read %s: %w", redactURL(s.url), err)
		}

		s.mu.Lock()
		s.etag = resp.Header.Get("ETag")
		s.lastModified = resp.Header.Get("Last-Modified")
		s.body = body
		s.mu.Unlock()

		appLog.Debug("schedule fetch success", "url", redactURL(s.url), "bytes", len(body))
		return body, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return nil, errors.New("schedule: received 304 Not Modified but no previous body")
		}
		appLog.Debug("schedule fetch not modified", "url", redactURL(s.url))
		return cached, nil

	default:
		return nil, fmt.Errorf("schedule: fetch %s: %s", redactURL(s.url), resp.Status)
	}
}

// redactURL hides the path and query of a URL for logging, keeping
// scheme and host:
//
//	https://example.com/private.ics?token=abcd -> https://example.com/...(redacted)
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "...(redacted)"
	}

	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}
	if j == len(u) {
		return u
	}
	return u[:j] + redactedSuffix
}

package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"time"

	"signage/internal/config"
	"signage/internal/display"
	"signage/internal/hub"
	appLog "signage/internal/log"
	"signage/internal/model"
	"signage/internal/power"
	"signage/internal/schedule"
)

//go:embed static
var embeddedStatic embed.FS

// Loader is the slice of *schedule.Loader the HTTP surface needs.
type Loader interface {
	Load(ctx context.Context) error
	Events() []model.Event
	Conference() *model.Conference
	Status() schedule.Status
}

// Viewer computes a display view; *display.Controller implements it.
type Viewer interface {
	View(category string) display.View
}

// Deps are the running components the server exposes.
type Deps struct {
	Loader Loader
	Viewer Viewer
	Hub    *hub.Hub
	Ads    hub.AdSource
	Power  *power.Monitor
}

// Server provides the kiosk page, its websocket feed and a small JSON API.
type Server struct {
	cfg  *config.Config
	deps Deps
	mux  *http.ServeMux
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mux:  http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run listens on cfg.Listen and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully and
// disconnects kiosk pages.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.deps.Hub != nil {
		s.deps.Hub.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handlePage)
	s.mux.HandleFunc("GET /api/display", s.handleDisplay)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
	s.mux.HandleFunc("GET /schedule.json", s.handleScheduleFile)
	s.mux.Handle("GET /static/", s.staticFileServer())
	if s.deps.Hub != nil {
		s.mux.Handle("GET /ws", s.deps.Hub)
	}
}

func (s *Server) category(r *http.Request) string {
	if s.deps.Hub != nil {
		return s.deps.Hub.CategoryFor(r)
	}
	return r.URL.Query().Get("category")
}

type healthResponse struct {
	State string `json:"status"`
	schedule.Status
	Clients int          `json:"clients"`
	Power   power.Status `json:"power"`
}

// handleHealth reports "ok" once a schedule has loaded, "degraded" before
// that. A failed refresh after a good load stays "ok" and shows last_error.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{State: "ok", Status: s.deps.Loader.Status()}
	if !resp.Loaded() {
		resp.State = "degraded"
	}
	if s.deps.Hub != nil {
		resp.Clients = s.deps.Hub.ClientCount()
	}
	if s.deps.Power != nil {
		resp.Power = s.deps.Power.Status(r.Context())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	p := display.Page{
		View:   s.deps.Viewer.View(s.category(r)),
		Ready:  s.deps.Loader.Status().Loaded(),
		WSPath: "/ws",
	}
	if conf := s.deps.Loader.Conference(); conf != nil {
		p.Conference = conf.Name
	}
	if s.deps.Ads != nil {
		p.Ad = display.AdMarkup(s.deps.Ads.Current())
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := display.RenderPage(w, p); err != nil {
		appLog.Error("render page failed", err, "category", p.View.Category)
	}
}

func (s *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Viewer.View(s.category(r)))
}

// eventDTO is the JSON view of one loaded event.
type eventDTO struct {
	Title    string `json:"title"`
	Date     string `json:"date"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Duration int    `json:"duration"`
	Location string `json:"location,omitempty"`
	Speaker  string `json:"speaker,omitempty"`
	Category string `json:"category,omitempty"`
}

type eventsResponse struct {
	Conference *model.Conference `json:"conference,omitempty"`
	Events     []eventDTO        `json:"events"`
}

// handleEvents returns every loaded event, unfiltered, in document order.
func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	events := s.deps.Loader.Events()
	dtos := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		dtos = append(dtos, eventDTO{
			Title:    ev.Title,
			Date:     ev.Date.String(),
			Start:    ev.Start.String(),
			End:      ev.End().String(),
			Duration: ev.Duration,
			Location: ev.Location,
			Speaker:  ev.Speaker,
			Category: ev.Category,
		})
	}
	writeJSON(w, http.StatusOK, eventsResponse{
		Conference: s.deps.Loader.Conference(),
		Events:     dtos,
	})
}

// handleRefresh reloads the schedule now and pushes the result to pages.
// Concurrent refreshes share one fetch.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	// The load outlives a client that hangs up mid-request.
	ctx := context.WithoutCancel(r.Context())
	err := s.deps.Loader.Load(ctx)
	status := s.deps.Loader.Status()
	if err != nil {
		appLog.Error("manual refresh failed", err)
		writeJSON(w, http.StatusBadGateway, struct {
			Error string `json:"error"`
			schedule.Status
		}{Error: err.Error(), Status: status})
		return
	}
	if s.deps.Hub != nil {
		s.deps.Hub.BroadcastEvents()
	}
	writeJSON(w, http.StatusOK, status)
}

// handlePreview serves the last kiosk capture from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, s.cfg.Capture.Output)
}

// handleScheduleFile exposes the local document so other kiosks can use this
// one as their http source.
func (s *Server) handleScheduleFile(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Source.Kind != config.SourceFile {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	http.ServeFile(w, r, s.cfg.Source.Path)
}

func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static assets not available", http.StatusServiceUnavailable)
		})
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

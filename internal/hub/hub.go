package hub

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"signage/internal/display"
	appLog "signage/internal/log"
	"signage/internal/rotator"
)

const writeWait = 10 * time.Second

// Viewer computes views; *display.Controller implements it.
type Viewer interface {
	View(category string) display.View
	Now() time.Time
}

// AdSource reports the banner on screen; *rotator.Rotator implements it.
type AdSource interface {
	Current() (rotator.Frame, bool)
}

type client struct {
	conn     *websocket.Conn
	send     chan []byte
	category string
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

// Hub pushes display frames to connected kiosk pages. Each page picks its
// category filter once, when it connects.
type Hub struct {
	viewer          Viewer
	ads             AdSource
	defaultCategory string
	upgrader        websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]bool
}

func New(viewer Viewer, ads AdSource, defaultCategory string) *Hub {
	h := &Hub{
		viewer:          viewer,
		ads:             ads,
		defaultCategory: defaultCategory,
		clients:         make(map[*client]bool),
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: checkOrigin}
	return h
}

// CategoryFor resolves the filter for a request: ?category= when present
// (even if empty), else the configured default.
func (h *Hub) CategoryFor(r *http.Request) string {
	q := r.URL.Query()
	if _, ok := q["category"]; ok {
		return q.Get("category")
	}
	return h.defaultCategory
}

// ServeHTTP upgrades the request and registers the page.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		appLog.Error("ws upgrade failed", err, "remote", r.RemoteAddr)
		return
	}

	c := &client{
		conn:     conn,
		send:     make(chan []byte, 32),
		category: h.CategoryFor(r),
	}
	go c.writePump()

	// Snapshot frames are queued under the registration lock, ahead of any
	// broadcast.
	frames := h.snapshot(c.category)
	h.mu.Lock()
	h.clients[c] = true
	for _, data := range frames {
		trySend(c, data)
	}
	h.mu.Unlock()
	appLog.Info("kiosk connected", "remote", r.RemoteAddr, "category", c.category)

	go func() {
		defer func() {
			h.remove(c)
			appLog.Info("kiosk disconnected", "remote", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// snapshot encodes clock, events and the current banner for a new page.
func (h *Hub) snapshot(category string) [][]byte {
	v := h.viewer.View(category)
	msgs := []Message{
		{Type: MsgClock, Payload: ClockPayload{Day: v.Day, Time: v.Time}},
		eventsMessage(v),
	}
	if f, ok := h.ads.Current(); ok {
		msgs = append(msgs, Message{Type: MsgAd, Payload: AdPayload{Phase: PhaseShow, Frame: f}})
	}

	frames := make([][]byte, 0, len(msgs))
	for _, m := range msgs {
		if data, ok := encode(m); ok {
			frames = append(frames, data)
		}
	}
	return frames
}

// BroadcastClock pushes the day/time slot to every page.
func (h *Hub) BroadcastClock() {
	day, clock := display.DayClock(h.viewer.Now())
	h.broadcast(Message{Type: MsgClock, Payload: ClockPayload{Day: day, Time: clock}})
}

// BroadcastEvents re-renders the events list once per distinct category
// among connected pages.
func (h *Hub) BroadcastEvents() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rendered := make(map[string][]byte)
	for c := range h.clients {
		data, done := rendered[c.category]
		if !done {
			var ok bool
			if data, ok = encode(eventsMessage(h.viewer.View(c.category))); !ok {
				continue
			}
			rendered[c.category] = data
		}
		trySend(c, data)
	}
}

// BroadcastAd pushes one phase of a banner transition.
func (h *Hub) BroadcastAd(phase string, f rotator.Frame) {
	h.broadcast(Message{Type: MsgAd, Payload: AdPayload{Phase: phase, Frame: f}})
}

// BroadcastReload asks every page to reload itself.
func (h *Hub) BroadcastReload() {
	h.broadcast(Message{Type: MsgReload})
}

// ClientCount is the number of connected pages.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every page.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcast(m Message) {
	data, ok := encode(m)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		trySend(c, data)
	}
}

func eventsMessage(v display.View) Message {
	html, err := display.RenderEvents(v)
	if err != nil {
		appLog.Error("render events failed", err, "category", v.Category)
	}
	return Message{Type: MsgEvents, Payload: EventsPayload{Title: v.Title, Empty: v.Empty, HTML: html}}
}

func encode(m Message) ([]byte, bool) {
	data, err := json.Marshal(m)
	if err != nil {
		appLog.Error("encode frame failed", err, "type", string(m.Type))
		return nil, false
	}
	return data, true
}

// trySend drops the frame for a page that is not keeping up; the next
// tick carries fresh state anyway. Callers hold h.mu.
func trySend(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		appLog.Debug("kiosk too slow, frame dropped", "category", c.category)
	}
}

// checkOrigin accepts same-host pages, local pages and non-browser clients.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Host == r.Host {
		return true
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1" || strings.HasSuffix(host, ".localhost")
}

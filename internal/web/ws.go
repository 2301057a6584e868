package web

import (
	"context"
	"html/template"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lewisedginton/itinerary_planner/internal/itinerary"
	"github.com/lewisedginton/itinerary_planner/internal/logstream"
	"github.com/lewisedginton/itinerary_planner/pkg/logger"
)

// Frame types pushed to the browser.
const (
	FrameToast    = "toast"
	FrameMarkdown = "markdown"
	FrameElapsed  = "elapsed"
	FrameResult   = "result"
	FrameError    = "error"
)

const (
	maxRequestBytes = 16 << 10
	writeWait       = 10 * time.Second
)

// Frame is one server to client message.
type Frame struct {
	Type    string        `json:"type"`
	Text    string        `json:"text,omitempty"`
	HTML    template.HTML `json:"html,omitempty"`
	Seconds float64       `json:"seconds,omitempty"`
	RunID   string        `json:"run_id,omitempty"`
}

// frameWriter serializes writes to a websocket. After the first failed
// write every later frame is dropped.
type frameWriter struct {
	mu       sync.Mutex
	conn     *websocket.Conn
	renderer *Renderer
	err      error
}

func (f *frameWriter) send(frame Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	_ = f.conn.SetWriteDeadline(time.Now().Add(writeWait))
	f.err = f.conn.WriteJSON(frame)
	return f.err
}

func (f *frameWriter) Toast(text string) {
	_ = f.send(Frame{Type: FrameToast, Text: text, HTML: f.renderer.Render(text)})
}

func (f *frameWriter) Markdown(text string) {
	_ = f.send(Frame{Type: FrameMarkdown, Text: text, HTML: f.renderer.Render(text)})
}

// stream runs one pipeline over a websocket. The client sends the trip as
// JSON; closing the socket cancels the run.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied
		h.log.Debug("Websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer func() { _ = conn.Close() }()

	log := logger.GetLoggerFromContext(r.Context(), h.log)
	conn.SetReadLimit(maxRequestBytes)

	var req itinerary.TripRequest
	if err := conn.ReadJSON(&req); err != nil {
		log.Warn("Invalid websocket request", logger.ErrorField(err))
		return
	}
	log.Info("Itinerary requested", logger.StringField("trip", req.Summary()), logger.StringField("transport", "websocket"))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// the client never speaks again; a read error means it went away
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	frames := &frameWriter{conn: conn, renderer: h.renderer}
	adapter := logstream.New(frames, logstream.WithRoles(itinerary.Roles()...))
	record, err := h.planner.Plan(ctx, req, adapter)
	adapter.Flush()

	if err != nil {
		if ctx.Err() != nil {
			log.Info("Itinerary run cancelled, client went away")
			return
		}
		log.Error("Itinerary run failed", logger.ErrorField(err))
		_ = frames.send(Frame{Type: FrameError, Text: err.Error()})
	} else {
		_ = frames.send(Frame{Type: FrameElapsed, Text: formatElapsed(record.ElapsedSeconds), Seconds: record.ElapsedSeconds})
		_ = frames.send(Frame{Type: FrameResult, HTML: h.renderer.Render(record.Itinerary), Text: record.Itinerary, RunID: record.ID.String()})
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// checkOrigin allows same-origin upgrades plus the configured origins.
func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

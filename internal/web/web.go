// Package web serves the itinerary planner page: the trip form, the live
// processing log and the rendered itinerary.
package web

import (
	"context"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/lewisedginton/itinerary_planner/internal/archive"
	"github.com/lewisedginton/itinerary_planner/internal/itinerary"
	"github.com/lewisedginton/itinerary_planner/internal/logstream"
	"github.com/lewisedginton/itinerary_planner/pkg/logger"
)

// StreamPath is the websocket endpoint. It must be exempt from the
// timeout and compression middleware.
const StreamPath = "/ws"

const pageTitle = "Itinerary Planner"

//go:embed templates/*.tmpl static/*
var assets embed.FS

var (
	backgroundOnce sync.Once
	backgroundCSS  template.CSS
)

// background returns the page background as an inline CSS declaration.
// The image is encoded once per process.
func background() template.CSS {
	backgroundOnce.Do(func() {
		data, err := assets.ReadFile("static/wall6.png")
		if err != nil {
			return
		}
		backgroundCSS = template.CSS(`background-image: url("data:image/png;base64,` + //nolint:gosec // G203: embedded asset
			base64.StdEncoding.EncodeToString(data) + `"); background-size: cover;`)
	})
	return backgroundCSS
}

// Runner runs one trip request, streaming its trace to trace.
type Runner interface {
	Plan(ctx context.Context, req itinerary.TripRequest, trace io.Writer) (*archive.Record, error)
}

// Archive looks up past runs.
type Archive interface {
	Get(ctx context.Context, id string) (*archive.Record, error)
	List(ctx context.Context) ([]string, error)
}

// Config wires the handler.
type Config struct {
	Planner Runner
	// Archive is optional. Leave it nil, not a typed nil pointer, to disable
	// the itinerary history routes.
	Archive Archive
	Logger  logger.Logger
	// AllowedOrigins lists extra origins allowed to open the websocket.
	// Same-origin requests are always allowed.
	AllowedOrigins []string
}

// Handler serves the UI.
type Handler struct {
	planner  Runner
	archive  Archive
	renderer *Renderer
	tmpl     *template.Template
	static   http.Handler
	upgrader websocket.Upgrader
	log      logger.Logger
}

// New parses the embedded templates and builds the handler.
func New(cfg Config) (*Handler, error) {
	if cfg.Planner == nil {
		return nil, errors.New("web handler requires a planner")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	tmpl, err := template.ParseFS(assets, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	staticFS, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open static assets: %w", err)
	}

	return &Handler{
		planner:  cfg.Planner,
		archive:  cfg.Archive,
		renderer: NewRenderer(),
		tmpl:     tmpl,
		static:   http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
		},
		log: log.WithFields(logger.StringField("component", "web")),
	}, nil
}

// Routes mounts the UI on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.index)
	r.Post("/run", h.run)
	r.Get(StreamPath, h.stream)
	r.Get("/itineraries", h.listItineraries)
	r.Get("/itineraries/{id}", h.showItinerary)
	r.Handle("/static/*", h.static)
}

// fieldValue is one form input as rendered.
type fieldValue struct {
	Name  string
	Label string
	Value string
}

// entry is one item of the processing log.
type entry struct {
	Toast bool
	HTML  template.HTML
}

type pageData struct {
	Title      string
	Background template.CSS
	Members    []itinerary.Member
	Fields     []fieldValue
	Processing []entry
	Elapsed    string
	Result     template.HTML
	RunID      string
	Error      string
	History    []string
	Archived   bool
}

func (h *Handler) newPage(req itinerary.TripRequest) pageData {
	values := map[string]string{
		"origin":      req.Origin,
		"destination": req.Destination,
		"budget":      req.Budget,
		"days":        req.Days,
	}
	fields := make([]fieldValue, 0, len(itinerary.FormFields))
	for _, f := range itinerary.FormFields {
		fields = append(fields, fieldValue{Name: f.Name, Label: f.Label, Value: values[f.Name]})
	}
	return pageData{
		Title:      pageTitle,
		Background: background(),
		Members:    itinerary.About(),
		Fields:     fields,
		Archived:   h.archive != nil,
	}
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		h.log.Error("Failed to render page", logger.StringField("template", name), logger.ErrorField(err))
	}
}

func (h *Handler) index(w http.ResponseWriter, _ *http.Request) {
	h.render(w, http.StatusOK, "index.html.tmpl", h.newPage(itinerary.TripRequest{}))
}

// transcript collects adapter output in arrival order.
type transcript struct {
	renderer *Renderer
	mu       sync.Mutex
	entries  []entry
}

func (t *transcript) Toast(text string) {
	html := t.renderer.Render(text)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry{Toast: true, HTML: html})
}

func (t *transcript) Markdown(text string) {
	html := t.renderer.Render(text)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry{HTML: html})
}

// run is the blocking form submission: the request waits for the whole
// pipeline and the page comes back with the log and the result.
func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	req := itinerary.RequestFromForm(r.PostForm.Get)

	log := logger.GetLoggerFromContext(r.Context(), h.log)
	log.Info("Itinerary requested", logger.StringField("trip", req.Summary()))

	t := &transcript{renderer: h.renderer}
	adapter := logstream.New(t, logstream.WithRoles(itinerary.Roles()...))
	record, err := h.planner.Plan(r.Context(), req, adapter)
	adapter.Flush()

	data := h.newPage(req)
	data.Processing = t.entries
	if err != nil {
		log.Error("Itinerary run failed", logger.ErrorField(err))
		data.Error = err.Error()
		h.render(w, statusFor(err), "index.html.tmpl", data)
		return
	}

	data.Elapsed = formatElapsed(record.ElapsedSeconds)
	data.Result = h.renderer.Render(record.Itinerary)
	data.RunID = record.ID.String()
	h.render(w, http.StatusOK, "index.html.tmpl", data)
}

func (h *Handler) listItineraries(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		http.NotFound(w, r)
		return
	}
	ids, err := h.archive.List(r.Context())
	if err != nil {
		h.log.Error("Failed to list itineraries", logger.ErrorField(err))
		http.Error(w, "failed to list itineraries", http.StatusInternalServerError)
		return
	}
	data := h.newPage(itinerary.TripRequest{})
	data.History = ids
	h.render(w, http.StatusOK, "history.html.tmpl", data)
}

func (h *Handler) showItinerary(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		http.NotFound(w, r)
		return
	}
	record, err := h.archive.Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, archive.ErrInvalidID):
		http.Error(w, "invalid itinerary id", http.StatusBadRequest)
		return
	case errors.Is(err, archive.ErrNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		h.log.Error("Failed to load itinerary", logger.ErrorField(err))
		http.Error(w, "failed to load itinerary", http.StatusInternalServerError)
		return
	}

	data := h.newPage(record.Request)
	data.Elapsed = formatElapsed(record.ElapsedSeconds)
	data.Result = h.renderer.Render(record.Itinerary)
	data.RunID = record.ID.String()
	h.render(w, http.StatusOK, "index.html.tmpl", data)
}

func formatElapsed(seconds float64) string {
	return fmt.Sprintf("Total Time Elapsed: %.2f seconds", seconds)
}

func statusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

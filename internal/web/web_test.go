package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/lewisedginton/itinerary_planner/internal/archive"
	"github.com/lewisedginton/itinerary_planner/internal/itinerary"
	"github.com/lewisedginton/itinerary_planner/pkg/prefixed_uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlanner writes a canned trace and returns a canned record.
type fakePlanner struct {
	mu    sync.Mutex
	trace []string
	out   string
	err   error
	block bool

	got       []itinerary.TripRequest
	cancelled chan struct{}
}

func (f *fakePlanner) Plan(ctx context.Context, req itinerary.TripRequest, trace io.Writer) (*archive.Record, error) {
	f.mu.Lock()
	f.got = append(f.got, req)
	f.mu.Unlock()

	for _, chunk := range f.trace {
		_, _ = io.WriteString(trace, chunk)
	}
	if f.block {
		<-ctx.Done()
		close(f.cancelled)
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &archive.Record{
		ID:             prefixed_uuid.NewRunID(),
		Request:        req,
		Itinerary:      f.out,
		ElapsedSeconds: 1.5,
	}, nil
}

func (f *fakePlanner) requests() []itinerary.TripRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]itinerary.TripRequest(nil), f.got...)
}

type fakeArchive struct {
	records map[string]*archive.Record
}

func (a *fakeArchive) Get(_ context.Context, id string) (*archive.Record, error) {
	if _, err := prefixed_uuid.ParseWithPrefix(id, prefixed_uuid.RunPrefix); err != nil {
		return nil, archive.ErrInvalidID
	}
	rec, ok := a.records[id]
	if !ok {
		return nil, archive.ErrNotFound
	}
	return rec, nil
}

func (a *fakeArchive) List(context.Context) ([]string, error) {
	var ids []string
	for id := range a.records {
		ids = append(ids, id)
	}
	return ids, nil
}

var sampleTrace = []string{
	"[DEBUG]: == Working Agent: Itinerary Planner\n",
	"\x1b[1m> Entering new CrewAgentExecutor chain...\x1b[0m\n",
	`Action Input: {"task": "Find hotels", "coworker": "Tour and travel agent"}` + "\n",
	"Final Answer: partial",
}

func newServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	h, err := New(cfg)
	require.NoError(t, err)
	r := chi.NewRouter()
	h.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestNew_RequiresPlanner(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestIndex(t *testing.T) {
	srv := newServer(t, Config{Planner: &fakePlanner{}})

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	page := body(t, resp)

	assert.Contains(t, page, "<title>Itinerary Planner</title>")
	assert.Contains(t, page, "About the Team:")
	assert.Contains(t, page, `src="/static/logo.png"`)
	assert.Contains(t, page, "Run Analysis")
	assert.Contains(t, page, "data:image/png;base64,")
	assert.Contains(t, page, "Provide detailed researched content to itinerary planner.")
	assert.NotContains(t, page, "Past itineraries")

	// labels and inputs keep their historical pairing and order
	last := -1
	for _, f := range itinerary.FormFields {
		input := fmt.Sprintf(`name="%s"`, f.Name)
		idx := strings.Index(page, input)
		require.NotEqual(t, -1, idx, f.Name)
		assert.Greater(t, idx, last, f.Name)
		assert.Greater(t, idx, strings.Index(page, f.Label), f.Name)
		last = idx
	}
}

func TestBackground_Cached(t *testing.T) {
	first := background()
	require.NotEmpty(t, first)
	assert.True(t, strings.HasPrefix(string(first), `background-image: url("data:image/png;base64,iVBOR`))
	assert.Equal(t, first, background())
}

func TestStatic(t *testing.T) {
	srv := newServer(t, Config{Planner: &fakePlanner{}})

	resp, err := http.Get(srv.URL + "/static/logo.png")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	_ = body(t, resp)
}

func TestRun(t *testing.T) {
	planner := &fakePlanner{trace: sampleTrace, out: "# Day 1\nBeach"}
	srv := newServer(t, Config{Planner: planner, Archive: &fakeArchive{}})

	form := url.Values{
		"days":        {"4"},
		"origin":      {"Mumbai"},
		"budget":      {"30000"},
		"destination": {"Goa"},
	}
	resp, err := http.PostForm(srv.URL+"/run", form)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	page := body(t, resp)

	require.Len(t, planner.requests(), 1)
	assert.Equal(t, itinerary.TripRequest{Origin: "Mumbai", Destination: "Goa", Budget: "30000", Days: "4"}, planner.requests()[0])

	assert.Contains(t, page, "Processing!")
	assert.Contains(t, page, `<span class="tone-red">Itinerary Planner</span>`)
	assert.Contains(t, page, `<span class="tone-green">Entering new CrewAgentExecutor chain</span>`)
	assert.Contains(t, page, "🤖 Find hotels")
	// the trailing partial line is flushed at the end of the run
	assert.Contains(t, page, "Final Answer: partial")
	assert.NotContains(t, page, "\x1b[")

	assert.Contains(t, page, "Total Time Elapsed: 1.50 seconds")
	assert.Contains(t, page, "Results:")
	assert.Contains(t, page, "Day 1</h1>")
	assert.Contains(t, page, `href="/itineraries/run-`)
	assert.Contains(t, page, `value="Mumbai"`)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"model failure", errors.New("task 1 (Tour and travel agent): boom"), http.StatusInternalServerError},
		{"timeout", fmt.Errorf("task 2: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, Config{Planner: &fakePlanner{err: tt.err}})

			resp, err := http.PostForm(srv.URL+"/run", url.Values{"origin": {"Mumbai"}})
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			page := body(t, resp)
			assert.Contains(t, page, tt.err.Error())
			assert.NotContains(t, page, "Total Time Elapsed")
		})
	}
}

func TestItineraries(t *testing.T) {
	rec := &archive.Record{
		ID:             prefixed_uuid.NewRunID(),
		Request:        itinerary.TripRequest{Origin: "Delhi", Destination: "Jaipur", Days: "2"},
		Itinerary:      "**Amber Fort**",
		ElapsedSeconds: 42,
	}
	store := &fakeArchive{records: map[string]*archive.Record{rec.ID.String(): rec}}
	srv := newServer(t, Config{Planner: &fakePlanner{}, Archive: store})

	tests := []struct {
		name     string
		path     string
		status   int
		contains string
	}{
		{"found", "/itineraries/" + rec.ID.String(), http.StatusOK, "<strong>Amber Fort</strong>"},
		{"elapsed", "/itineraries/" + rec.ID.String(), http.StatusOK, "Total Time Elapsed: 42.00 seconds"},
		{"unknown", "/itineraries/" + prefixed_uuid.NewRunID().String(), http.StatusNotFound, ""},
		{"invalid", "/itineraries/not-a-run", http.StatusBadRequest, "invalid itinerary id"},
		{"list", "/itineraries", http.StatusOK, rec.ID.String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Contains(t, body(t, resp), tt.contains)
		})
	}
}

func TestItineraries_ArchiveDisabled(t *testing.T) {
	srv := newServer(t, Config{Planner: &fakePlanner{}})

	for _, path := range []string{"/itineraries", "/itineraries/" + prefixed_uuid.NewRunID().String()} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		_ = body(t, resp)
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+StreamPath, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrames(t *testing.T, conn *websocket.Conn) []Frame {
	t.Helper()
	var frames []Frame
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err)
			return frames
		}
		frames = append(frames, f)
	}
}

func TestStream(t *testing.T) {
	planner := &fakePlanner{trace: sampleTrace, out: "# Day 1"}
	srv := newServer(t, Config{Planner: planner})
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(itinerary.TripRequest{Origin: "Mumbai", Destination: "Goa", Budget: "30000", Days: "4"}))
	frames := readFrames(t, conn)

	var types []string
	for _, f := range frames {
		types = append(types, f.Type)
	}
	assert.Equal(t, []string{
		FrameMarkdown, // working agent
		FrameMarkdown, // chain marker
		FrameToast,
		FrameMarkdown, // action input
		FrameMarkdown, // flushed partial line
		FrameElapsed,
		FrameResult,
	}, types)

	assert.Contains(t, string(frames[0].HTML), `<span class="tone-red">Itinerary Planner</span>`)
	assert.Equal(t, ":robot_face: Find hotels", frames[2].Text)
	assert.Equal(t, "Final Answer: partial", frames[4].Text)
	assert.Equal(t, "Total Time Elapsed: 1.50 seconds", frames[5].Text)
	assert.InDelta(t, 1.5, frames[5].Seconds, 0.001)
	assert.Contains(t, string(frames[6].HTML), "Day 1</h1>")
	assert.True(t, strings.HasPrefix(frames[6].RunID, "run-"))

	require.Len(t, planner.requests(), 1)
	assert.Equal(t, "Goa", planner.requests()[0].Destination)
}

func TestStream_Error(t *testing.T) {
	srv := newServer(t, Config{Planner: &fakePlanner{err: errors.New("search quota exceeded")}})
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(itinerary.TripRequest{Origin: "Mumbai"}))
	frames := readFrames(t, conn)

	require.Len(t, frames, 1)
	assert.Equal(t, FrameError, frames[0].Type)
	assert.Equal(t, "search quota exceeded", frames[0].Text)
}

func TestStream_ClientCloseCancelsRun(t *testing.T) {
	planner := &fakePlanner{block: true, cancelled: make(chan struct{})}
	srv := newServer(t, Config{Planner: planner})
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(itinerary.TripRequest{Origin: "Mumbai"}))
	require.Eventually(t, func() bool { return len(planner.requests()) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, conn.Close())

	select {
	case <-planner.cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("run was not cancelled after the client disconnected")
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin header", nil, "", true},
		{"same origin", nil, "http://planner.local", true},
		{"foreign origin", nil, "http://evil.example", false},
		{"allowed origin", []string{"http://app.example"}, "http://app.example", true},
		{"wildcard", []string{"*"}, "http://evil.example", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://planner.local/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checkOrigin(tt.allowed)(r))
		})
	}
}

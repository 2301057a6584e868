// Package logstream turns the crew's free-form trace into UI updates.
//
// The Adapter is an io.Writer. Each chunk written to it is stripped of ANSI
// escapes and scanned for task hints, which become toasts. Chain markers and
// agent role names are wrapped in colour directives (":red[...]"). Cleaned
// chunks are buffered and flushed to the sink as one markdown write whenever
// a raw chunk contains a newline.
package logstream

import (
	"regexp"
	"strings"
	"sync"
)

// DefaultChainMarker is printed by the crew trace when an agent starts a task.
const DefaultChainMarker = "Entering new CrewAgentExecutor chain"

// ToastPrefix precedes every task hint.
const ToastPrefix = ":robot_face: "

// Palette is cycled through, one step per chain marker.
var Palette = [...]string{"red", "green", "blue", "orange"}

var (
	ansiPattern       = regexp.MustCompile(`\x1B\[[0-9;]*[mK]`)
	quotedTaskPattern = regexp.MustCompile(`(?i)"task"\s*:\s*"(.*?)"`)
	bareTaskPattern   = regexp.MustCompile(`(?i)task\s*:\s*([^\n]*)`)
)

// Sink receives the adapter's output. Implementations must not call back
// into the adapter.
type Sink interface {
	Toast(text string)
	Markdown(text string)
}

// Adapter is safe for concurrent use.
type Adapter struct {
	sink   Sink
	roles  []string
	marker string

	mu         sync.Mutex
	colorIndex int
	buffer     []string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithRoles sets the role names to colourise, applied in order.
func WithRoles(roles ...string) Option {
	return func(a *Adapter) { a.roles = append(a.roles[:0], roles...) }
}

// WithChainMarker overrides DefaultChainMarker.
func WithChainMarker(marker string) Option {
	return func(a *Adapter) {
		if marker != "" {
			a.marker = marker
		}
	}
}

// New returns an Adapter writing to sink.
func New(sink Sink, opts ...Option) *Adapter {
	a := &Adapter{sink: sink, marker: DefaultChainMarker}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Write implements io.Writer. It never fails.
func (a *Adapter) Write(p []byte) (int, error) {
	a.WriteString(string(p))
	return len(p), nil
}

// WriteString processes one chunk.
func (a *Adapter) WriteString(chunk string) {
	cleaned := StripANSI(chunk)

	a.mu.Lock()
	defer a.mu.Unlock()

	if task, ok := ExtractTask(cleaned); ok {
		a.sink.Toast(ToastPrefix + task)
	}

	if strings.Contains(cleaned, a.marker) {
		a.colorIndex = (a.colorIndex + 1) % len(Palette)
		cleaned = strings.ReplaceAll(cleaned, a.marker, colorize(a.color(), a.marker))
	}

	for _, role := range a.roles {
		if role != "" && strings.Contains(cleaned, role) {
			cleaned = strings.ReplaceAll(cleaned, role, colorize(a.color(), role))
		}
	}

	a.buffer = append(a.buffer, cleaned)
	if strings.Contains(chunk, "\n") {
		a.flushLocked()
	}
}

// Flush emits whatever is buffered. Call it once the run finishes so a
// trailing line without a newline still reaches the sink.
func (a *Adapter) Flush() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.buffer) > 0 {
		a.flushLocked()
	}
}

// Color returns the palette colour currently applied to roles.
func (a *Adapter) Color() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.color()
}

func (a *Adapter) color() string {
	return Palette[a.colorIndex]
}

func (a *Adapter) flushLocked() {
	a.sink.Markdown(strings.Join(a.buffer, ""))
	a.buffer = a.buffer[:0]
}

// StripANSI removes SGR and erase-line escape sequences.
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// ExtractTask finds a task hint in s. The quoted JSON form
// ("task": "...") takes precedence over the bare form (task: ...).
func ExtractTask(s string) (string, bool) {
	if m := quotedTaskPattern.FindStringSubmatch(s); m != nil {
		return m[1], m[1] != ""
	}
	if m := bareTaskPattern.FindStringSubmatch(s); m != nil {
		v := strings.TrimSpace(m[1])
		return v, v != ""
	}
	return "", false
}

func colorize(color, text string) string {
	return ":" + color + "[" + text + "]"
}

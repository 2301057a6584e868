package logstream

import "sync"

// Recorder is a Sink that keeps everything it receives.
type Recorder struct {
	mu       sync.Mutex
	toasts   []string
	markdown []string
}

func (r *Recorder) Toast(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, text)
}

func (r *Recorder) Markdown(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markdown = append(r.markdown, text)
}

// Toasts returns a copy of the toasts received so far.
func (r *Recorder) Toasts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.toasts...)
}

// MarkdownWrites returns a copy of the markdown writes received so far.
func (r *Recorder) MarkdownWrites() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.markdown...)
}

// SinkFuncs adapts a pair of functions to Sink. Nil funcs are skipped.
type SinkFuncs struct {
	OnToast    func(string)
	OnMarkdown func(string)
}

func (s SinkFuncs) Toast(text string) {
	if s.OnToast != nil {
		s.OnToast(text)
	}
}

func (s SinkFuncs) Markdown(text string) {
	if s.OnMarkdown != nil {
		s.OnMarkdown(text)
	}
}

// Tee fans every call out to each sink in order.
type Tee []Sink

func (t Tee) Toast(text string) {
	for _, s := range t {
		s.Toast(text)
	}
}

func (t Tee) Markdown(text string) {
	for _, s := range t {
		s.Markdown(text)
	}
}

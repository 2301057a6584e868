package crew

import (
	"fmt"
	"io"
	"sync"

	"github.com/lewisedginton/itinerary_planner/internal/tools/searchtext"
	"github.com/muesli/termenv"
)

// ChainMarker is printed when an agent starts working on a prompt.
const ChainMarker = "Entering new CrewAgentExecutor chain"

// Trace writes the verbose run log. Each line goes out in a single Write so
// a line-buffered consumer sees whole lines.
type Trace struct {
	mu    sync.Mutex
	out   *termenv.Output
	limit int
}

// NewTrace returns a trace writing to w with the given colour profile.
// Observations longer than observationLimit runes are truncated; zero keeps
// them whole. A nil writer discards everything.
func NewTrace(w io.Writer, profile termenv.Profile, observationLimit int) *Trace {
	if w == nil {
		w = io.Discard
	}
	return &Trace{
		out:   termenv.NewOutput(w, termenv.WithProfile(profile)),
		limit: observationLimit,
	}
}

func (t *Trace) line(s string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintln(t.out, s)
}

func (t *Trace) style(s string, c termenv.Color, bold bool) string {
	st := t.out.String(s).Foreground(c)
	if bold {
		st = st.Bold()
	}
	return st.String()
}

// WorkingAgent announces the agent picking up a task.
func (t *Trace) WorkingAgent(role string) {
	if t == nil {
		return
	}
	t.line(t.style("[DEBUG]: == Working Agent: "+role, termenv.ANSIMagenta, true))
}

// StartingTask announces the task description.
func (t *Trace) StartingTask(description string) {
	if t == nil {
		return
	}
	t.line(t.style("[INFO]: == Starting Task: "+description, termenv.ANSIMagenta, true))
}

// EnterChain marks the start of one agent execution.
func (t *Trace) EnterChain() {
	if t == nil {
		return
	}
	t.line("\n" + t.style("> "+ChainMarker+"...", termenv.ANSIWhite, true))
}

// Action records a tool call and its JSON arguments.
func (t *Trace) Action(tool, input string) {
	if t == nil {
		return
	}
	t.line(t.style("Action: "+tool, termenv.ANSIBlue, false) + "\n" +
		t.style("Action Input: "+input, termenv.ANSIBlue, false))
}

// Observation records a tool result.
func (t *Trace) Observation(result string) {
	if t == nil {
		return
	}
	t.line("Observation: " + searchtext.Truncate(result, t.limit))
}

// FinalAnswer records the agent's answer.
func (t *Trace) FinalAnswer(answer string) {
	if t == nil {
		return
	}
	t.line(t.style("Final Answer: ", termenv.ANSIGreen, true) + answer)
}

// FinishChain marks the end of one agent execution.
func (t *Trace) FinishChain() {
	if t == nil {
		return
	}
	t.line("\n" + t.style("> Finished chain.", termenv.ANSIWhite, true))
}

// TaskOutput records the output attributed to an agent.
func (t *Trace) TaskOutput(role, output string) {
	if t == nil {
		return
	}
	t.line(t.style(fmt.Sprintf("[DEBUG]: == [%s] Task output: %s", role, output), termenv.ANSIMagenta, true) + "\n")
}

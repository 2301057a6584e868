// Package crew runs a small, sequential team of LLM agents on top of the ADK.
//
// A Crew owns agents (personas bound to a model and tools) and tasks (units
// of work assigned to one agent). Kickoff runs the tasks in order, feeding
// each task the outputs it depends on, and writes a human readable trace of
// the run to the configured verbose writer.
package crew

import (
	"fmt"
	"strings"
	"unicode"

	"google.golang.org/adk/model"
	"google.golang.org/adk/tool"
)

// Agent describes a persona. It holds no run state and can be shared by
// several tasks.
type Agent struct {
	Role      string
	Goal      string
	Backstory string

	Tools    []tool.Tool
	Toolsets []tool.Toolset

	// LLM overrides the crew's default model.
	LLM model.LLM

	// AllowDelegation gives the agent a delegate_work tool bound to the
	// other agents of the crew.
	AllowDelegation bool
}

// name returns the ADK agent name derived from the role, e.g.
// "Itinerary Planner" becomes "itinerary_planner".
func (a *Agent) name() string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(a.Role)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	name := strings.TrimSuffix(b.String(), "_")
	if name == "" {
		return "agent"
	}
	if unicode.IsDigit(rune(name[0])) {
		name = "agent_" + name
	}
	return name
}

// instruction is the static system prompt. The goal is sent with each task
// because it usually embeds user input, and braces in user input would be
// read as state placeholders by the ADK.
func (a *Agent) instruction() string {
	return fmt.Sprintf("You are %s.\n%s", a.Role, a.Backstory)
}

func (a *Agent) validate() error {
	if strings.TrimSpace(a.Role) == "" {
		return fmt.Errorf("agent role is required")
	}
	if strings.ContainsAny(a.Role+a.Backstory, "{}") {
		return fmt.Errorf("agent %q: role and backstory must not contain braces", a.Role)
	}
	return nil
}

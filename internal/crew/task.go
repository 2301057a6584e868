package crew

import (
	"fmt"
	"strings"
	"time"

	"github.com/lewisedginton/itinerary_planner/internal/tools/searchtext"
)

// Task is one unit of work for one agent.
type Task struct {
	Description    string
	ExpectedOutput string
	Agent          *Agent

	// Context lists the tasks whose output this task receives. When empty,
	// a sequential crew passes the previous task's output.
	Context []*Task
}

// TaskOutput is the result of one task.
type TaskOutput struct {
	Description string        `json:"description"`
	Agent       string        `json:"agent"`
	Raw         string        `json:"raw"`
	Duration    time.Duration `json:"duration"`
}

func (t *Task) validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("task description is required")
	}
	if t.Agent == nil {
		return fmt.Errorf("task %q has no agent", truncateLabel(t.Description))
	}
	return nil
}

// prompt renders the user message sent to the agent for this task.
func prompt(goal, description, expected, context string) string {
	var b strings.Builder
	if goal != "" {
		fmt.Fprintf(&b, "Your personal goal is: %s\n\n", goal)
	}
	fmt.Fprintf(&b, "Current Task: %s\n\n", description)
	if expected != "" {
		fmt.Fprintf(&b, "This is the expect criteria for your final answer: %s\n", expected)
		b.WriteString("You MUST return the actual complete content as the final answer, not a summary.\n\n")
	}
	if context != "" {
		fmt.Fprintf(&b, "This is the context you're working with:\n%s\n\n", context)
	}
	b.WriteString("Begin! Use the tools available when they help and give your best Final Answer.")
	return b.String()
}

func truncateLabel(s string) string {
	return searchtext.Truncate(strings.Join(strings.Fields(s), " "), 40)
}

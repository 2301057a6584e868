package crew

import (
	"fmt"
	"strings"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
)

// DelegateToolName is the name of the delegation tool.
const DelegateToolName = "delegate_work"

// DelegateArgs are the arguments of the delegation tool.
type DelegateArgs struct {
	Task     string `json:"task" jsonschema:"The task to delegate"`
	Context  string `json:"context" jsonschema:"Everything the coworker needs to know to do the task"`
	Coworker string `json:"coworker" jsonschema:"The role of the coworker to delegate to"`
}

// DelegateResult carries the coworker's answer or an error message the
// delegating agent can act on.
type DelegateResult struct {
	Coworker string `json:"coworker,omitempty"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
}

const delegateExpectedOutput = "Your best answer to your coworker asking you this, accounting for the context shared."

// newDelegateTool binds a delegation tool to coworkers. Delegated runs never
// get a delegation tool themselves, which keeps delegation one level deep.
func (c *Crew) newDelegateTool(coworkers []*Agent) (tool.Tool, error) {
	roles := make([]string, len(coworkers))
	for i, a := range coworkers {
		roles[i] = a.Role
	}

	description := fmt.Sprintf("Delegate a specific task to one of the following coworkers: %s. "+
		"The input must name the task, the full context, and the coworker's role exactly. "+
		"Coworkers know nothing about your task, so share absolutely everything you know.",
		strings.Join(roles, ", "))

	return functiontool.New(functiontool.Config{
		Name:        DelegateToolName,
		Description: description,
	}, func(ctx tool.Context, args DelegateArgs) (DelegateResult, error) {
		coworker := findCoworker(coworkers, args.Coworker)
		if coworker == nil {
			return DelegateResult{Error: fmt.Sprintf(
				"Co-worker %q not found, it must be one of the following options:\n- %s",
				args.Coworker, strings.Join(roles, "\n- "))}, nil
		}
		if strings.TrimSpace(args.Task) == "" {
			return DelegateResult{Error: "task is required"}, nil
		}

		out, err := c.exec.execute(ctx, execRequest{
			agent:   coworker,
			llm:     c.modelFor(coworker),
			tools:   coworker.Tools,
			message: prompt(coworker.Goal, args.Task, delegateExpectedOutput, args.Context),
		})
		if err != nil {
			return DelegateResult{Coworker: coworker.Role, Error: err.Error()}, nil
		}
		return DelegateResult{Coworker: coworker.Role, Output: out}, nil
	})
}

func findCoworker(coworkers []*Agent, role string) *Agent {
	want := strings.ToLower(strings.TrimSpace(role))
	for _, a := range coworkers {
		if strings.ToLower(strings.TrimSpace(a.Role)) == want {
			return a
		}
	}
	return nil
}

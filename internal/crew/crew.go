package crew

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lewisedginton/itinerary_planner/pkg/logger"
	"github.com/muesli/termenv"
	"google.golang.org/adk/model"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
)

// ErrNoTasks is returned when a crew is built without tasks.
var ErrNoTasks = errors.New("crew has no tasks")

// Process selects how tasks are scheduled.
type Process string

// Sequential runs tasks one after another in declaration order.
const Sequential Process = "sequential"

const defaultAppName = "crew"

// Observer receives run events, typically for metrics.
type Observer interface {
	TaskCompleted(agentRole string)
	ToolCalled(tool string, err error)
}

type nopObserver struct{}

func (nopObserver) TaskCompleted(string)     {}
func (nopObserver) ToolCalled(string, error) {}

// Config assembles a crew.
type Config struct {
	Agents  []*Agent
	Tasks   []*Task
	Process Process

	// LLM is used by agents that do not carry their own.
	LLM model.LLM

	// Verbose receives the run trace. Nil disables tracing.
	Verbose io.Writer
	// Profile controls trace colouring; termenv.Ascii disables it.
	Profile          termenv.Profile
	ObservationLimit int

	AppName  string
	Sessions session.Service
	Observer Observer
	Logger   logger.Logger
}

// Crew is an immutable team of agents and tasks.
type Crew struct {
	agents []*Agent
	tasks  []*Task
	llm    model.LLM
	exec   *executor
	log    logger.Logger

	// delegation tools keyed by agent, built once
	delegates map[*Agent]tool.Tool
}

// Result is the outcome of Kickoff.
type Result struct {
	// Output is the raw output of the last task.
	Output  string
	Tasks   []TaskOutput
	Elapsed time.Duration
}

// New validates cfg and builds a crew.
func New(cfg Config) (*Crew, error) {
	if len(cfg.Tasks) == 0 {
		return nil, ErrNoTasks
	}
	if cfg.Process != "" && cfg.Process != Sequential {
		return nil, fmt.Errorf("unsupported process %q", cfg.Process)
	}

	agents := append([]*Agent(nil), cfg.Agents...)
	for _, t := range cfg.Tasks {
		if err := t.validate(); err != nil {
			return nil, err
		}
		if !containsAgent(agents, t.Agent) {
			agents = append(agents, t.Agent)
		}
	}
	for _, a := range agents {
		if err := a.validate(); err != nil {
			return nil, err
		}
		if a.LLM == nil && cfg.LLM == nil {
			return nil, fmt.Errorf("agent %q has no LLM and the crew has no default", a.Role)
		}
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = session.InMemoryService()
	}
	appName := cfg.AppName
	if appName == "" {
		appName = defaultAppName
	}

	var trace *Trace
	if cfg.Verbose != nil {
		trace = NewTrace(cfg.Verbose, cfg.Profile, cfg.ObservationLimit)
	}

	c := &Crew{
		agents: agents,
		tasks:  cfg.Tasks,
		llm:    cfg.LLM,
		log:    log.WithFields(logger.StringField("component", "crew")),
		exec: &executor{
			appName:  appName,
			sessions: sessions,
			trace:    trace,
			observer: observer,
			log:      log,
		},
		delegates: make(map[*Agent]tool.Tool),
	}

	for _, a := range agents {
		if !a.AllowDelegation {
			continue
		}
		coworkers := otherAgents(agents, a)
		if len(coworkers) == 0 {
			continue
		}
		dt, err := c.newDelegateTool(coworkers)
		if err != nil {
			return nil, fmt.Errorf("failed to create delegation tool for %q: %w", a.Role, err)
		}
		c.delegates[a] = dt
	}

	return c, nil
}

// Agents returns the crew's agents, including those only referenced by tasks.
func (c *Crew) Agents() []*Agent {
	return append([]*Agent(nil), c.agents...)
}

// Kickoff runs every task in order and returns the last task's output.
// The first failing task aborts the run; nothing is retried.
func (c *Crew) Kickoff(ctx context.Context) (*Result, error) {
	start := time.Now()
	outputs := make(map[*Task]string, len(c.tasks))
	result := &Result{}
	var previous string

	for i, task := range c.tasks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		a := task.Agent
		log := c.log.WithFields(
			logger.IntField("task", i+1),
			logger.StringField("agent", a.Role))
		log.Info("Starting task")

		c.exec.trace.WorkingAgent(a.Role)
		c.exec.trace.StartingTask(task.Description)

		taskStart := time.Now()
		out, err := c.exec.execute(ctx, execRequest{
			agent:   a,
			llm:     c.modelFor(a),
			tools:   c.toolsFor(a),
			message: prompt(a.Goal, task.Description, task.ExpectedOutput, c.contextFor(task, outputs, previous)),
		})
		if err != nil {
			log.Error("Task failed", logger.ErrorField(err))
			return nil, fmt.Errorf("task %d (%s): %w", i+1, a.Role, err)
		}

		c.exec.trace.TaskOutput(a.Role, out)
		c.exec.observer.TaskCompleted(a.Role)

		elapsed := time.Since(taskStart)
		log.Info("Task completed", logger.DurationField("duration", elapsed))

		outputs[task] = out
		previous = out
		result.Tasks = append(result.Tasks, TaskOutput{
			Description: task.Description,
			Agent:       a.Role,
			Raw:         out,
			Duration:    elapsed,
		})
	}

	result.Output = previous
	result.Elapsed = time.Since(start)
	return result, nil
}

func (c *Crew) contextFor(task *Task, outputs map[*Task]string, previous string) string {
	if len(task.Context) == 0 {
		return previous
	}
	var parts []string
	for _, dep := range task.Context {
		if out, ok := outputs[dep]; ok && out != "" {
			parts = append(parts, out)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (c *Crew) modelFor(a *Agent) model.LLM {
	if a.LLM != nil {
		return a.LLM
	}
	return c.llm
}

func (c *Crew) toolsFor(a *Agent) []tool.Tool {
	dt, ok := c.delegates[a]
	if !ok {
		return a.Tools
	}
	tools := make([]tool.Tool, 0, len(a.Tools)+1)
	tools = append(tools, a.Tools...)
	return append(tools, dt)
}

func containsAgent(agents []*Agent, a *Agent) bool {
	for _, x := range agents {
		if x == a {
			return true
		}
	}
	return false
}

func otherAgents(agents []*Agent, self *Agent) []*Agent {
	var out []*Agent
	for _, a := range agents {
		if a != self {
			out = append(out, a)
		}
	}
	return out
}

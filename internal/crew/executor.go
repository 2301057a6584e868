package crew

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lewisedginton/itinerary_planner/pkg/logger"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
	"google.golang.org/genai"
)

const userID = "crew"

// ErrNoAnswer is returned when an agent finishes without any text output.
var ErrNoAnswer = errors.New("agent finished without a final answer")

// executor runs one agent on one prompt through an ADK runner.
type executor struct {
	appName  string
	sessions session.Service
	trace    *Trace
	observer Observer
	log      logger.Logger
}

type execRequest struct {
	agent   *Agent
	llm     model.LLM
	tools   []tool.Tool
	message string
}

func (e *executor) execute(ctx context.Context, req execRequest) (string, error) {
	if req.message == "" {
		return "", fmt.Errorf("message is required")
	}

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        req.agent.name(),
		Model:       req.llm,
		Description: req.agent.Role,
		Instruction: req.agent.instruction(),
		Tools:       req.tools,
		Toolsets:    req.agent.Toolsets,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create agent %q: %w", req.agent.Role, err)
	}

	sessionID := uuid.NewString()
	if _, err := e.sessions.Create(ctx, &session.CreateRequest{
		AppName:   e.appName,
		UserID:    userID,
		SessionID: sessionID,
	}); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	r, err := runner.New(runner.Config{
		AppName:        e.appName,
		SessionService: e.sessions,
		Agent:          adkAgent,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create runner: %w", err)
	}

	e.trace.EnterChain()

	events := r.Run(ctx, userID, sessionID, genai.NewContentFromText(req.message, genai.RoleUser), agent.RunConfig{
		StreamingMode: agent.StreamingModeNone,
	})

	var answer string
	var runErr error
	for event, err := range events {
		if err != nil {
			runErr = err
			break
		}
		if event == nil || event.Author == "user" {
			continue
		}
		if event.ErrorMessage != "" {
			runErr = fmt.Errorf("agent error [%s]: %s", event.ErrorCode, event.ErrorMessage)
			break
		}
		if text, final := e.observe(event.Content); final {
			answer = text
		}
	}

	// a cancelled run reports the context error, whatever the runner wrapped it in
	if err := ctx.Err(); err != nil {
		runErr = err
	}
	if runErr != nil {
		e.log.Warn("Agent execution failed",
			logger.StringField("agent", req.agent.Role),
			logger.ErrorField(runErr))
		return "", fmt.Errorf("failed to execute agent %q: %w", req.agent.Role, runErr)
	}
	if answer == "" {
		return "", fmt.Errorf("agent %q: %w", req.agent.Role, ErrNoAnswer)
	}

	e.trace.FinalAnswer(answer)
	e.trace.FinishChain()
	return answer, nil
}

// observe traces tool traffic in one event. It reports the event's text and
// whether the event is a candidate final answer, i.e. text with no pending
// function calls.
func (e *executor) observe(content *genai.Content) (string, bool) {
	if content == nil {
		return "", false
	}

	var text []string
	calls := 0
	for _, part := range content.Parts {
		if part == nil {
			continue
		}
		switch {
		case part.FunctionCall != nil:
			calls++
			e.trace.Action(part.FunctionCall.Name, toJSON(part.FunctionCall.Args))
		case part.FunctionResponse != nil:
			e.trace.Observation(toJSON(part.FunctionResponse.Response))
			e.observer.ToolCalled(part.FunctionResponse.Name, responseError(part.FunctionResponse.Response))
		case part.Text != "" && !part.Thought:
			text = append(text, part.Text)
		}
	}

	joined := strings.TrimSpace(strings.Join(text, ""))
	return joined, calls == 0 && joined != ""
}

// responseError extracts the error a tool reported, either through the ADK
// ("error" key on failure) or through the tool's own result struct.
func responseError(resp map[string]any) error {
	if msg, ok := resp["error"].(string); ok && msg != "" {
		return errors.New(msg)
	}
	return nil
}

func toJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

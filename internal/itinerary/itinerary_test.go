package itinerary

import (
	"context"
	"iter"
	"strings"
	"sync"
	"testing"

	"github.com/lewisedginton/itinerary_planner/internal/crew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

var goa = TripRequest{Origin: "Mumbai", Destination: "Goa", Budget: "30000 INR", Days: "4"}

func TestRequestFromForm_KeepsLabelOrder(t *testing.T) {
	// values typed into the boxes as they appear on screen
	typed := map[string]string{
		"Trip From : ": "4",
		"Trip To :":    "Mumbai",
		"Budget :":     "30000 INR",
		"No. of Days:": "Goa",
	}
	byName := map[string]string{}
	for _, f := range FormFields {
		byName[f.Name] = typed[f.Label]
	}

	req := RequestFromForm(func(name string) string { return byName[name] })
	assert.Equal(t, goa, req)
}

func TestFormFieldsOrder(t *testing.T) {
	var names []string
	for _, f := range FormFields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"days", "origin", "budget", "destination"}, names)
}

func TestTeam(t *testing.T) {
	agents, tasks := Team(goa, Tools{})
	require.Len(t, agents, 2)
	require.Len(t, tasks, 2)

	researcher, planner := agents[0], agents[1]
	assert.Equal(t, ResearcherRole, researcher.Role)
	assert.Equal(t, PlannerRole, planner.Role)
	assert.True(t, researcher.AllowDelegation)
	assert.True(t, planner.AllowDelegation)

	assert.Contains(t, researcher.Goal, "Perform detailed research about Mumbai and Goa")
	assert.Contains(t, researcher.Goal, "- Avoid reusing the same input.")
	for _, line := range []string{"Travelling from: Mumbai", "Budget: 30000 INR", "Number of Days: 4", "Trip to: Goa"} {
		assert.Contains(t, planner.Goal, line)
	}

	assert.Same(t, researcher, tasks[0].Agent)
	assert.Equal(t, "Detailed research report", tasks[0].ExpectedOutput)
	assert.Same(t, planner, tasks[1].Agent)
	assert.Equal(t, []*crew.Task{tasks[0]}, tasks[1].Context)
	assert.Equal(t, "Detailed itinerary plan", tasks[1].ExpectedOutput)
}

type echoLLM struct {
	mu    sync.Mutex
	users []string
}

func (e *echoLLM) Name() string { return "echo" }

func (e *echoLLM) GenerateContent(_ context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		var b strings.Builder
		for _, c := range req.Contents {
			for _, p := range c.Parts {
				b.WriteString(p.Text)
			}
		}
		e.mu.Lock()
		e.users = append(e.users, b.String())
		n := len(e.users)
		e.mu.Unlock()

		text := "research notes"
		if n > 1 {
			text = "itinerary for 4 days"
		}
		yield(&model.LLMResponse{Content: genai.NewContentFromText(text, genai.RoleModel)}, nil)
	}
}

func TestBuildCrew_RunsResearchThenPlan(t *testing.T) {
	llm := &echoLLM{}
	c, err := BuildCrew(goa, llm, Tools{}, crew.Config{})
	require.NoError(t, err)

	res, err := c.Kickoff(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "itinerary for 4 days", res.Output)

	require.Len(t, llm.users, 2)
	assert.Contains(t, llm.users[0], "Current Task: Perform detailed research about Mumbai and Goa")
	assert.Contains(t, llm.users[1], "Current Task: Plan a detailed itinerary")
	assert.Contains(t, llm.users[1], "research notes")
}

func TestAbout(t *testing.T) {
	members := About()
	require.Len(t, members, 2)
	assert.Equal(t, PlannerRole, members[0].Role)
	assert.Equal(t, ResearcherRole, members[1].Role)
	assert.Equal(t, "Provide detailed researched content to itinerary planner.", members[1].Task)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "Mumbai → Goa, 4 days, budget 30000 INR", goa.Summary())
	assert.Equal(t, "", TripRequest{}.Summary())
}

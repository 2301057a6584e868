// Package itinerary defines the trip planning team: a research agent that
// studies the origin and destination, and a planner that turns the research
// into a day by day itinerary.
package itinerary

import (
	"fmt"
	"strings"

	"github.com/lewisedginton/itinerary_planner/internal/crew"
	"google.golang.org/adk/model"
	"google.golang.org/adk/tool"
)

// Agent roles. They are also the names the log stream colourises.
const (
	ResearcherRole = "Tour and travel agent"
	PlannerRole    = "Itinerary Planner"
)

const (
	researcherBackstory = "A knowledgeable Tour and travel agent with extensive information about every city of India, " +
		"its attractions, customs, food, locals and always updated about current events in the city."
	plannerBackstory = "Itinerary planner who is well-versed with places in India and has expertise in planning " +
		"an itinerary for any place within India."

	researchExpectedOutput = "Detailed research report"
	planDescription        = "Plan a detailed itinerary for the trip considering number of days, budget, and locations " +
		"perfect for customs, culture information, tourist attractions, activities, food."
	planExpectedOutput = "Detailed itinerary plan"
)

// TripRequest holds the four free-form trip parameters. Nothing is parsed
// or validated; values reach the prompts verbatim.
type TripRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Budget      string `json:"budget"`
	Days        string `json:"days"`
}

// Roles returns the agent roles in crew order.
func Roles() []string {
	return []string{ResearcherRole, PlannerRole}
}

func researchDescription(req TripRequest) string {
	return fmt.Sprintf("Perform detailed research about %s and %s to provide the Itinerary planner "+
		"deep analysis of accommodation, transport, culture, and other insights of the place.",
		req.Origin, req.Destination)
}

func researcherGoal(req TripRequest) string {
	return researchDescription(req) + `

Important:
- Once you know the selected city, provide keenly researched insights of the city.
- Research local events, activities, food, transport, and accommodation information.
- Keep the information detailed.
- Avoid reusing the same input.`
}

func plannerGoal(req TripRequest) string {
	return fmt.Sprintf(`Plan a detailed itinerary based on the factors like number of days, travelling from, travelling to, budget of trip.
Travelling from: %s
Budget: %s
Number of Days: %s
Trip to: %s

Important:
- Final output must contain all the detailed plan of the locations perfect for customs, culture information, tourist attractions, activities, food a traveller can follow.
- Avoid reusing the same input.`, req.Origin, req.Budget, req.Days, req.Destination)
}

// Tools are the tool bindings of the team.
type Tools struct {
	// Search tools are shared by both agents.
	Search []tool.Tool
	// MCP toolsets are attached to the researcher only.
	MCP []tool.Toolset
}

// Team builds the two agents and their tasks. Both agents may delegate to
// each other.
func Team(req TripRequest, tools Tools) ([]*crew.Agent, []*crew.Task) {
	researcher := &crew.Agent{
		Role:            ResearcherRole,
		Goal:            researcherGoal(req),
		Backstory:       researcherBackstory,
		Tools:           tools.Search,
		Toolsets:        tools.MCP,
		AllowDelegation: true,
	}
	planner := &crew.Agent{
		Role:            PlannerRole,
		Goal:            plannerGoal(req),
		Backstory:       plannerBackstory,
		Tools:           tools.Search,
		AllowDelegation: true,
	}

	research := &crew.Task{
		Description:    researchDescription(req),
		ExpectedOutput: researchExpectedOutput,
		Agent:          researcher,
	}
	plan := &crew.Task{
		Description:    planDescription,
		ExpectedOutput: planExpectedOutput,
		Agent:          planner,
		Context:        []*crew.Task{research},
	}

	return []*crew.Agent{researcher, planner}, []*crew.Task{research, plan}
}

// BuildCrew assembles the trip crew on top of base, which carries run
// settings such as the trace writer, observer and logger.
func BuildCrew(req TripRequest, llm model.LLM, tools Tools, base crew.Config) (*crew.Crew, error) {
	base.Agents, base.Tasks = Team(req, tools)
	base.LLM = llm
	base.Process = crew.Sequential
	return crew.New(base)
}

// Summary is a short label for logs and archive listings.
func (r TripRequest) Summary() string {
	parts := []string{}
	if r.Origin != "" || r.Destination != "" {
		parts = append(parts, r.Origin+" → "+r.Destination)
	}
	if r.Days != "" {
		parts = append(parts, r.Days+" days")
	}
	if r.Budget != "" {
		parts = append(parts, "budget "+r.Budget)
	}
	return strings.Join(parts, ", ")
}

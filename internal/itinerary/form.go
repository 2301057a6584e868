package itinerary

// FormField pairs an input's visible label with the request field it fills.
type FormField struct {
	Name  string
	Label string
}

// FormFields lists the form inputs in display order. The labels do not match
// the fields they fill: "Trip From" fills the number of days, "Trip To" the
// origin and "No. of Days" the destination. Existing users rely on this
// layout.
var FormFields = []FormField{
	{Name: "days", Label: "Trip From : "},
	{Name: "origin", Label: "Trip To :"},
	{Name: "budget", Label: "Budget :"},
	{Name: "destination", Label: "No. of Days:"},
}

// RequestFromForm builds a request from form values looked up by input name.
func RequestFromForm(get func(name string) string) TripRequest {
	return TripRequest{
		Origin:      get("origin"),
		Destination: get("destination"),
		Budget:      get("budget"),
		Days:        get("days"),
	}
}

// Member describes one agent on the "About the Team" panel.
type Member struct {
	Title     string
	Role      string
	Goal      string
	Backstory string
	Task      string
}

// About returns the team description shown on the page.
func About() []Member {
	return []Member{
		{
			Title:     "Agent 1",
			Role:      PlannerRole,
			Goal:      "Plan a detailed itinerary based on the factors like number of days, travelling from, travelling to, budget of trip.",
			Backstory: plannerBackstory,
			Task:      "Plan a personalised itinerary.",
		},
		{
			Title: "Agent 2",
			Role:  ResearcherRole,
			Goal: "Perform detailed research about {tripfrom} and {tripto} to provide the Itinerary planner " +
				"deep analysis of accommodation, transport, culture, and other insights of the place.",
			Backstory: researcherBackstory,
			Task:      "Provide detailed researched content to itinerary planner.",
		},
	}
}

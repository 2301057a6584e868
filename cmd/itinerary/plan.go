package main

import (
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/charmbracelet/glamour"
	"github.com/lewisedginton/itinerary_planner/internal/itinerary"
	"github.com/lewisedginton/itinerary_planner/internal/logstream"
	"github.com/lewisedginton/itinerary_planner/internal/server"
	"github.com/lewisedginton/itinerary_planner/internal/web"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var directivePattern = regexp.MustCompile(`:(red|green|blue|orange)\[([^\]\n]*)\]`)

const toastColor = "#1c83e1"

type planOptions struct {
	req   itinerary.TripRequest
	style string
	width int
}

func newPlanCmd(root *rootOptions) *cobra.Command {
	opts := &planOptions{}
	cmd := &cobra.Command{
		Use:     "plan",
		Short:   "Plan a trip in the terminal",
		Example: `  itinerary plan --from Mumbai --to Goa --budget "30000 INR" --days 4`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := root.load(os.Stderr)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			p, err := server.NewPlanner(cmd.Context(), cfg, log, server.PlannerOptions{Profile: termenv.Ascii})
			if err != nil {
				return err
			}

			out := termenv.NewOutput(cmd.OutOrStdout())
			sink, err := newTerminalSink(out, opts.style, opts.width)
			if err != nil {
				return err
			}
			adapter := logstream.New(sink, logstream.WithRoles(itinerary.Roles()...))

			record, err := p.Plan(cmd.Context(), opts.req, adapter)
			adapter.Flush()
			if err != nil {
				return err
			}
			return sink.result(record.ElapsedSeconds, record.Itinerary)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.req.Origin, "from", "", "Where the trip starts")
	f.StringVar(&opts.req.Destination, "to", "", "Where the trip goes")
	f.StringVar(&opts.req.Budget, "budget", "", "Trip budget, free text")
	f.StringVar(&opts.req.Days, "days", "", "Number of days, free text")
	f.StringVar(&opts.style, "style", "auto", "Markdown style: auto, dark, light or notty")
	f.IntVar(&opts.width, "width", 100, "Word wrap width for rendered markdown")
	return cmd
}

// terminalSink prints toasts as coloured lines and flushed markdown through
// glamour.
type terminalSink struct {
	out      *termenv.Output
	renderer *glamour.TermRenderer
}

func newTerminalSink(out *termenv.Output, style string, width int) (*terminalSink, error) {
	styleOpt := glamour.WithStandardStyle(style)
	if style == "" || style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width), glamour.WithEmoji())
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return &terminalSink{out: out, renderer: r}, nil
}

func (s *terminalSink) Toast(text string) {
	line := s.out.String(web.ExpandShortcodes(text)).Foreground(s.out.Color(toastColor)).Bold()
	_, _ = fmt.Fprintln(s.out, line)
}

func (s *terminalSink) Markdown(text string) {
	_, _ = io.WriteString(s.out, s.render(text))
}

func (s *terminalSink) render(text string) string {
	// glamour's emoji extension only knows the GitHub set
	rendered, err := s.renderer.Render(web.ExpandShortcodes(plainDirectives(text)))
	if err != nil {
		return text
	}
	return rendered
}

func (s *terminalSink) result(elapsed float64, itineraryText string) error {
	_, err := fmt.Fprintf(s.out, "\n%s\n%s%s",
		s.out.String(fmt.Sprintf("Total Time Elapsed: %.2f seconds", elapsed)).Bold(),
		s.render("## Results:"),
		s.render(itineraryText))
	return err
}

// plainDirectives drops the :color[...] wrappers, which glamour would print
// literally.
func plainDirectives(s string) string {
	return directivePattern.ReplaceAllString(s, "$2")
}

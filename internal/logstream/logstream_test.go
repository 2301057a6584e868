package logstream

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var itineraryRoles = []string{"Itinerary Planner", "Tour and travel agent"}

func TestWrite_StripsANSI(t *testing.T) {
	tests := []struct {
		name  string
		chunk string
		want  string
	}{
		{"sgr colour", "\x1b[1;32mhello\x1b[0m\n", "hello\n"},
		{"erase line", "\x1b[Kline\n", "line\n"},
		{"bare reset", "\x1b[mplain\n", "plain\n"},
		{"no escapes", "untouched\n", "untouched\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Recorder{}
			New(rec).WriteString(tt.chunk)

			writes := rec.MarkdownWrites()
			require.Len(t, writes, 1)
			assert.Equal(t, tt.want, writes[0])
			assert.NotContains(t, writes[0], "\x1b")
		})
	}
}

func TestWrite_BuffersUntilNewline(t *testing.T) {
	rec := &Recorder{}
	a := New(rec)

	a.WriteString("part one, ")
	a.WriteString("part two")
	assert.Empty(t, rec.MarkdownWrites())

	a.WriteString(" done\n")
	assert.Equal(t, []string{"part one, part two done\n"}, rec.MarkdownWrites())

	a.WriteString("next\n")
	assert.Equal(t, []string{"part one, part two done\n", "next\n"}, rec.MarkdownWrites())
}

func TestWrite_NewlineDecidedOnRawChunk(t *testing.T) {
	rec := &Recorder{}
	a := New(rec)

	// the newline sits inside an escape-free tail, so cleaning keeps it
	a.WriteString("\x1b[0m\n")
	assert.Equal(t, []string{"\n"}, rec.MarkdownWrites())
}

func TestFlush(t *testing.T) {
	rec := &Recorder{}
	a := New(rec)

	a.Flush()
	assert.Empty(t, rec.MarkdownWrites(), "empty buffer flushes nothing")

	a.WriteString("Final Answer: trailing")
	a.Flush()
	a.Flush()
	assert.Equal(t, []string{"Final Answer: trailing"}, rec.MarkdownWrites())
}

func TestWrite_TaskToasts(t *testing.T) {
	tests := []struct {
		name  string
		chunk string
		want  []string
	}{
		{"quoted", `{"task": "Research Goa", "context": "x"}` + "\n", []string{":robot_face: Research Goa"}},
		{"quoted wins over bare", `Task: bare value "task": "quoted value"` + "\n", []string{":robot_face: quoted value"}},
		{"bare trimmed", "Working on task:   Plan days  \nmore", []string{":robot_face: Plan days"}},
		{"case insensitive", "TASK: shout\n", []string{":robot_face: shout"}},
		{"empty bare value", "task:   \n", nil},
		{"empty quoted value", `"task": ""` + "\n", nil},
		{"no task", "nothing to see\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Recorder{}
			New(rec).WriteString(tt.chunk)
			assert.Equal(t, tt.want, rec.Toasts())
		})
	}
}

func TestWrite_ColourCycleWrapsAfterPalette(t *testing.T) {
	rec := &Recorder{}
	a := New(rec)
	assert.Equal(t, "red", a.Color())

	var got []string
	for i := 0; i < len(Palette)+1; i++ {
		a.WriteString("> " + DefaultChainMarker + "...\n")
		got = append(got, a.Color())
	}

	assert.Equal(t, []string{"green", "blue", "orange", "red", "green"}, got)

	writes := rec.MarkdownWrites()
	require.Len(t, writes, 5)
	assert.Equal(t, "> :green["+DefaultChainMarker+"]...\n", writes[0])
	assert.Equal(t, "> :red["+DefaultChainMarker+"]...\n", writes[3])
}

func TestWrite_MarkerAdvancesOncePerChunk(t *testing.T) {
	rec := &Recorder{}
	a := New(rec)

	a.WriteString(DefaultChainMarker + " " + DefaultChainMarker + "\n")

	assert.Equal(t, "green", a.Color())
	assert.Equal(t, ":green["+DefaultChainMarker+"] :green["+DefaultChainMarker+"]\n", rec.MarkdownWrites()[0])
}

func TestWrite_RolesUseCurrentColour(t *testing.T) {
	rec := &Recorder{}
	a := New(rec, WithRoles(itineraryRoles...))

	a.WriteString("Working Agent: Itinerary Planner\n")
	a.WriteString(DefaultChainMarker + "\n")
	a.WriteString("Tour and travel agent asked Itinerary Planner\n")

	writes := rec.MarkdownWrites()
	require.Len(t, writes, 3)
	assert.Equal(t, "Working Agent: :red[Itinerary Planner]\n", writes[0])
	assert.Equal(t, ":green[Tour and travel agent] asked :green[Itinerary Planner]\n", writes[2])
}

func TestWrite_RolesMatchVerbatim(t *testing.T) {
	rec := &Recorder{}
	a := New(rec, WithRoles(itineraryRoles...))

	a.WriteString("itinerary planner and Tour And Travel Agent\n")

	assert.Equal(t, []string{"itinerary planner and Tour And Travel Agent\n"}, rec.MarkdownWrites())
}

func TestWithChainMarker(t *testing.T) {
	rec := &Recorder{}
	a := New(rec, WithChainMarker("Entering new chain"), WithChainMarker(""))

	a.WriteString("> Entering new chain\n")

	assert.Equal(t, "green", a.Color())
	assert.Equal(t, []string{"> :green[Entering new chain]\n"}, rec.MarkdownWrites())
}

func TestAdapter_IsWriter(t *testing.T) {
	rec := &Recorder{}
	var w io.Writer = New(rec)

	n, err := fmt.Fprintf(w, "\x1b[95m%s\x1b[00m\n", "hello")
	require.NoError(t, err)
	assert.Equal(t, len("\x1b[95mhello\x1b[00m\n"), n)
	assert.Equal(t, []string{"hello\n"}, rec.MarkdownWrites())
}

func TestAdapter_ConcurrentWritesLoseNothing(t *testing.T) {
	rec := &Recorder{}
	a := New(rec)

	const writers, lines = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < lines; i++ {
				a.WriteString(fmt.Sprintf("w%d-%d\n", w, i))
			}
		}(w)
	}
	wg.Wait()
	a.Flush()

	writes := rec.MarkdownWrites()
	assert.Len(t, writes, writers*lines)
	assert.Equal(t, writers*lines, strings.Count(strings.Join(writes, ""), "\n"))
}

func TestSinkFuncsAndTee(t *testing.T) {
	var toasts, md []string
	rec := &Recorder{}
	sink := Tee{rec, SinkFuncs{
		OnToast:    func(s string) { toasts = append(toasts, s) },
		OnMarkdown: func(s string) { md = append(md, s) },
	}, SinkFuncs{}}

	New(sink).WriteString("task: tee\n")

	assert.Equal(t, []string{":robot_face: tee"}, toasts)
	assert.Equal(t, []string{"task: tee\n"}, md)
	assert.Equal(t, toasts, rec.Toasts())
}

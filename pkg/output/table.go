package output

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// SegmentSummary holds build-step information for table display.
type SegmentSummary struct {
	Step    int
	Kind    string // "copy" or "plain"
	Tag     string // cache tag, or "-" for untagged steps
	ImageID string
	Cached  bool
}

// RunSummary holds build-run information for table display.
type RunSummary struct {
	RunID    string
	Tag      string
	Started  string
	Duration string
	Status   string // "ok" or "failed"
	ImageID  string
}

// Segments renders a table of build segments.
func (p *Printer) Segments(segments []SegmentSummary) {
	if len(segments) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(p.tableStyle())

	t.AppendHeader(table.Row{"STEP", "KIND", "TAG", "IMAGE", "CACHED"})

	for _, s := range segments {
		tag := s.Tag
		if tag == "" {
			tag = "-"
		}
		cached := "no"
		if s.Cached {
			cached = "yes"
		}
		t.AppendRow(table.Row{
			s.Step,
			s.Kind,
			tag,
			shorten(s.ImageID),
			p.colorState(cached),
		})
	}

	t.Render()
}

// Runs renders a table of recorded build runs.
func (p *Printer) Runs(runs []RunSummary) {
	if len(runs) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(p.tableStyle())

	t.AppendHeader(table.Row{"RUN", "TAG", "STARTED", "DURATION", "STATUS", "IMAGE"})

	for _, r := range runs {
		t.AppendRow(table.Row{
			shorten(r.RunID),
			r.Tag,
			r.Started,
			r.Duration,
			p.colorState(r.Status),
			shorten(r.ImageID),
		})
	}

	t.Render()
}

// shorten truncates long identifiers for display.
func shorten(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// colorState applies color to a state string based on its value.
func (p *Printer) colorState(state string) string {
	if !p.isTTY {
		return state
	}

	var color lipgloss.Color
	switch state {
	case "yes", "ok":
		color = ColorGreen
	case "no":
		color = ColorMuted
	case "failed":
		color = ColorRed
	default:
		color = ColorGray
	}

	return lipgloss.NewStyle().Foreground(color).Render(state)
}

// tableStyle returns the table style matching the steel theme.
func (p *Printer) tableStyle() table.Style {
	style := table.StyleRounded

	if p.isTTY {
		style.Color.Header = text.Colors{text.FgHiBlue, text.Bold}
		style.Color.Border = text.Colors{text.FgHiBlack}
		style.Color.Separator = text.Colors{text.FgHiBlack}
	}

	return style
}

// Section prints a styled section header.
func (p *Printer) Section(title string) {
	if p.isTTY {
		style := lipgloss.NewStyle().
			Foreground(ColorSteel).
			Bold(true)
		fmt.Fprintf(p.out, "\n%s\n", style.Render(title))
	} else {
		fmt.Fprintf(p.out, "\n%s\n", title)
	}
}

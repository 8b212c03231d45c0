package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8A8A8"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(0, 1)
)

// summary is the end-of-run report printed to stderr.
type summary struct {
	Title    string
	Preset   string
	Rows     int
	Produced int
	Failed   int
	Elapsed  time.Duration
}

func (s summary) render() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(s.Title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", infoStyle.Render("preset:"), s.Preset)
	fmt.Fprintf(&b, "%s %d\n", infoStyle.Render("input rows:"), s.Rows)
	fmt.Fprintf(&b, "%s %s\n", infoStyle.Render("produced:"), successStyle.Render(fmt.Sprint(s.Produced)))
	failed := fmt.Sprint(s.Failed)
	if s.Failed > 0 {
		failed = errorStyle.Render(failed)
	}
	fmt.Fprintf(&b, "%s %s\n", infoStyle.Render("failed:"), failed)
	fmt.Fprintf(&b, "%s %s", infoStyle.Render("elapsed:"), s.Elapsed.Round(time.Millisecond))
	return boxStyle.Render(b.String())
}

func (s summary) print(w io.Writer) {
	fmt.Fprintln(w, s.render())
}

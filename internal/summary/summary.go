// Package summary prints the takes of a run as a plain-text table.
package summary

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/verte-zerg/prompter/internal/model"
)

const (
	terminalWidthBackup = 100
	excerptMinWidth     = 12
)

// Options controls rendering of the summary.
type Options struct {
	// Width caps each line; zero means no cap.
	Width int
	Color bool
}

// Print writes the summary to w, sizing and coloring it for the terminal when w is one.
func Print(w io.Writer, takes []model.Take) error {
	opts := Options{}
	if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		opts.Width = terminalWidth(file)
		opts.Color = os.Getenv("NO_COLOR") == ""
	}
	return Write(w, takes, opts)
}

// Write renders the takes table. Nothing is written when there are no takes.
func Write(w io.Writer, takes []model.Take, opts Options) error {
	lines := Render(takes, opts)
	if len(lines) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// Render returns the summary lines: a heading, the table, and a totals line.
func Render(takes []model.Take, opts Options) []string {
	if len(takes) == 0 {
		return nil
	}
	tbl := table{columns: takeColumns}
	recorded := 0
	for i, take := range takes {
		if take.Mode == model.ModeRecord {
			recorded++
		}
		tbl.add(
			fmt.Sprintf("%d", i+1),
			string(take.Mode),
			formatElapsed(take.Elapsed),
			clipCell(take),
			flagsCell(take),
			excerptCell(take.Excerpt),
		)
	}

	lines := tbl.render(opts.Width)
	heading := "Takes"
	if opts.Color {
		heading = lipgloss.NewStyle().Bold(true).Render(heading)
		lines[0] = lipgloss.NewStyle().Faint(true).Render(lines[0])
	}
	lines = append([]string{heading}, lines...)
	return append(lines, fmt.Sprintf("%d takes, %d recorded", len(takes), recorded))
}

func formatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func clipCell(take model.Take) string {
	switch {
	case take.ExportPath != "":
		return take.ExportPath
	case take.HasClip():
		return humanize.IBytes(uint64(take.ClipSize))
	case take.ClipErr != "":
		return "failed"
	default:
		return "-"
	}
}

func flagsCell(take model.Take) string {
	var flags []string
	if take.LimitReached {
		flags = append(flags, "limit")
	} else if take.NearLimit {
		flags = append(flags, "near")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}

func excerptCell(excerpt string) string {
	return strings.Join(strings.Fields(excerpt), " ")
}

func terminalWidth(file *os.File) int {
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

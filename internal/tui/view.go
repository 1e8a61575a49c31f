package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/prompter/internal/layout"
	"github.com/verte-zerg/prompter/internal/model"
	"github.com/verte-zerg/prompter/internal/scroll"
	"github.com/verte-zerg/prompter/internal/session"
)

const (
	defaultWidth   = 80
	defaultHeight  = 24
	frameRows      = 4 // header, two border rows, message line
	framePadding   = 4 // two border columns, one padding column per side
	panelWidth     = 28
	panelMinWidth  = 80
	colorBorder    = lipgloss.Color("#6E6E6E")
	colorRecording = lipgloss.Color("#C89A3A")
	colorWarning   = lipgloss.Color("#FF4D4F")
)

var (
	textStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	currentLineStyle = lipgloss.NewStyle().Foreground(colorRecording).Bold(true)
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	footerStyle      = lipgloss.NewStyle().Foreground(colorBorder)
	recStyle         = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	testStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFD7")).Bold(true)
	errorStyle       = lipgloss.NewStyle().Foreground(colorWarning)
	bannerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(colorWarning).Bold(true).Padding(0, 1)
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.borderColor()).
		Padding(0, 1).
		Width(m.innerWidth() + 2).
		Height(m.bodyRows())

	var body string
	if m.snap.Editing() {
		body = m.renderEditor()
	} else {
		body = m.renderPrompter()
	}
	parts := []string{
		m.renderHeader(),
		box.Render(body),
		m.renderMessage(),
		m.help.View(m.keys),
	}
	return strings.Join(parts, "\n")
}

func (m *Model) renderHeader() string {
	snap := m.snap
	var mode string
	switch {
	case snap.State == session.StateStarting:
		mode = dimStyle.Render("… starting camera")
	case snap.State == session.StateStopping:
		mode = dimStyle.Render("■ stopping")
	case snap.Editing():
		mode = dimStyle.Render("EDIT")
	case snap.Mode == model.ModeRecord:
		mode = recStyle.Render(fmt.Sprintf("● REC %s / %s", formatClock(snap.Elapsed), formatClock(snap.MaxSeconds)))
	default:
		mode = testStyle.Render("◌ TEST SCROLL")
	}

	segments := []string{mode, fmt.Sprintf("font %d", m.fontSize), fmt.Sprintf("speed %.1f", snap.Speed)}
	if snap.State == session.StateActive {
		switch {
		case !snap.Scrolling:
			segments = append(segments, "get ready")
		case snap.Halted:
			segments = append(segments, "end of script")
		}
	}
	if snap.Recording() && snap.BytesRecorded > 0 {
		segments = append(segments, humanBytes(snap.BytesRecorded))
	}
	if m.title != "" {
		segments = append(segments, m.title)
	}
	return strings.Join(segments, footerStyle.Render("  ·  "))
}

func (m *Model) renderMessage() string {
	switch {
	case m.errMsg != "":
		return errorStyle.Render(m.errMsg)
	case m.snap.LimitReached:
		return bannerStyle.Render(fmt.Sprintf("Maximum recording time of %d seconds reached", m.snap.MaxSeconds))
	case m.status != "":
		return footerStyle.Render(m.status)
	default:
		return ""
	}
}

func (m *Model) renderEditor() string {
	editor := m.editor.View()
	panel := m.renderTakesPanel()
	if panel == "" {
		return editor
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, editor, " ", panel)
}

func (m *Model) renderPrompter() string {
	cols := m.columns()
	lines := layout.Wrap(m.editor.Value(), cols)
	window := visibleLines(lines, scroll.RowAt(m.snap.Offset), m.bodyRows())
	indent := strings.Repeat(" ", (m.innerWidth()-cols)/2)
	out := make([]string, len(window))
	for i, line := range window {
		style := textStyle
		if i == 0 {
			style = currentLineStyle
		}
		out[i] = indent + style.Render(line)
	}
	return strings.Join(out, "\n")
}

func (m *Model) renderTakesPanel() string {
	width := m.takesPanelWidth()
	if width == 0 {
		return ""
	}
	rows := m.bodyRows()
	lines := []string{dimStyle.Render(fmt.Sprintf("Takes (%d)", len(m.takes)))}
	for i := len(m.takes) - 1; i >= 0 && len(lines) < rows; i-- {
		take := m.takes[i]
		lines = append(lines, fmt.Sprintf("#%d %s %s", i+1, formatClock(take.Elapsed), takeState(take)))
		for _, caption := range strings.Split(layout.Caption(take.Excerpt, width-2), "\n") {
			if caption == "" || len(lines) >= rows {
				continue
			}
			lines = append(lines, dimStyle.Render("  "+caption))
		}
	}
	if len(lines) > rows {
		lines = lines[:rows]
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

func (m *Model) borderColor() lipgloss.Color {
	switch {
	case m.snap.NearLimit && m.snap.Recording():
		if m.blink {
			return colorWarning
		}
		return colorBorder
	case m.snap.Recording():
		return colorRecording
	default:
		return colorBorder
	}
}

func (m *Model) size() (int, int) {
	width, height := m.width, m.height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	return width, height
}

func (m *Model) innerWidth() int {
	width, _ := m.size()
	if width-framePadding < 1 {
		return 1
	}
	return width - framePadding
}

func (m *Model) bodyRows() int {
	_, height := m.size()
	rows := height - frameRows - lipgloss.Height(m.help.View(m.keys))
	if rows < 1 {
		return 1
	}
	return rows
}

// columns is the text column budget for the current font size, never wider
// than the frame.
func (m *Model) columns() int {
	inner := m.innerWidth()
	cols := layout.Columns(inner, m.fontSize)
	if cols > inner {
		return inner
	}
	return cols
}

func (m *Model) takesPanelWidth() int {
	if len(m.takes) == 0 || m.innerWidth() < panelMinWidth {
		return 0
	}
	return panelWidth
}

func takeState(take model.Take) string {
	switch {
	case take.ExportPath != "":
		return "saved"
	case take.HasClip():
		return humanBytes(int64(take.ClipSize))
	case take.ClipErr != "":
		return "no video"
	default:
		return ""
	}
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func humanBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// visibleLines returns the rows of lines that fit a viewport scrolled down by
// row lines.
func visibleLines(lines []string, row, height int) []string {
	if height <= 0 || row >= len(lines) {
		return nil
	}
	if row < 0 {
		row = 0
	}
	end := row + height
	if end > len(lines) {
		end = len(lines)
	}
	return lines[row:end]
}

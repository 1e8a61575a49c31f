package summary

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

type align int

const (
	alignLeft align = iota
	alignRight
)

// column describes one table column. A flex column absorbs the width left by
// the others and is truncated with an ellipsis, never below minWidth.
type column struct {
	header   string
	align    align
	flex     bool
	minWidth int
}

// takeColumns is the layout of the takes table.
var takeColumns = []column{
	{header: "#", align: alignRight},
	{header: "Mode"},
	{header: "Length", align: alignRight},
	{header: "Clip"},
	{header: "Flags"},
	{header: "Excerpt", flex: true, minWidth: excerptMinWidth},
}

type table struct {
	columns []column
	rows    [][]string
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

// render lays the table out as header plus one line per row. With maxWidth
// above zero, flex columns are cut so lines fit in maxWidth cells.
func (t *table) render(maxWidth int) []string {
	if len(t.columns) == 0 {
		return nil
	}
	widths := t.naturalWidths()
	if maxWidth > 0 {
		t.fit(widths, maxWidth)
	}

	lines := make([]string, 0, len(t.rows)+1)
	header := make([]string, len(t.columns))
	for i, col := range t.columns {
		header[i] = col.header
	}
	lines = append(lines, t.line(header, widths))
	for _, row := range t.rows {
		lines = append(lines, t.line(row, widths))
	}
	return lines
}

func (t *table) naturalWidths() []int {
	widths := make([]int, len(t.columns))
	for i, col := range t.columns {
		widths[i] = runewidth.StringWidth(col.header)
		for _, row := range t.rows {
			if w := runewidth.StringWidth(cell(row, i)); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

// fit shrinks flex columns to the room left by the fixed ones.
func (t *table) fit(widths []int, maxWidth int) {
	used := len(t.columns) - 1
	flexCount := 0
	for i, col := range t.columns {
		if col.flex {
			flexCount++
			continue
		}
		used += widths[i]
	}
	if flexCount == 0 {
		return
	}
	budget := (maxWidth - used) / flexCount
	for i, col := range t.columns {
		if !col.flex {
			continue
		}
		limit := budget
		if limit < col.minWidth {
			limit = col.minWidth
		}
		if widths[i] <= limit {
			continue
		}
		widths[i] = limit
		for _, row := range t.rows {
			if i < len(row) {
				row[i] = runewidth.Truncate(row[i], limit, "…")
			}
		}
	}
}

func (t *table) line(row []string, widths []int) string {
	var b strings.Builder
	for i, col := range t.columns {
		if i > 0 {
			b.WriteByte(' ')
		}
		value := cell(row, i)
		pad := widths[i] - runewidth.StringWidth(value)
		if pad < 0 {
			pad = 0
		}
		if col.align == alignRight {
			b.WriteString(strings.Repeat(" ", pad))
			b.WriteString(value)
			continue
		}
		b.WriteString(value)
		b.WriteString(strings.Repeat(" ", pad))
	}
	return strings.TrimRight(b.String(), " ")
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// Package layout wraps script text into display lines.
package layout

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const (
	// CaptionLines is the maximum number of lines Caption returns.
	CaptionLines = 4
	// ReferenceFontSize is the font size at which one column holds one cell.
	ReferenceFontSize = 20
	// MinFontSize and MaxFontSize bound the font size control.
	MinFontSize = 10
	MaxFontSize = 100
)

// Wrap greedily packs the words of each paragraph into lines no wider than
// width cells. Blank lines are kept. Words wider than a line are split.
// A width of zero or less disables wrapping.
func Wrap(text string, width int) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	paragraphs := strings.Split(text, "\n")
	lines := make([]string, 0, len(paragraphs))
	for _, para := range paragraphs {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, packWords(words, width, true)...)
	}
	return lines
}

// Caption greedily packs whole words into at most CaptionLines lines of at
// most width cells. Lines past the limit are dropped.
func Caption(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	lines := packWords(words, width, false)
	if len(lines) > CaptionLines {
		lines = lines[:CaptionLines]
	}
	return strings.Join(lines, "\n")
}

// Columns converts a terminal width into a column budget for the font size.
// Larger fonts fit fewer characters on a line.
func Columns(width, fontSize int) int {
	if width <= 0 {
		return 0
	}
	fontSize = ClampFontSize(fontSize)
	cols := width * ReferenceFontSize / fontSize
	if cols < 1 {
		cols = 1
	}
	return cols
}

// ClampFontSize limits size to [MinFontSize, MaxFontSize].
func ClampFontSize(size int) int {
	if size < MinFontSize {
		return MinFontSize
	}
	if size > MaxFontSize {
		return MaxFontSize
	}
	return size
}

func packWords(words []string, width int, splitLong bool) []string {
	if width <= 0 {
		return []string{strings.Join(words, " ")}
	}
	var lines []string
	var line strings.Builder
	lineWidth := 0

	flush := func() {
		if line.Len() == 0 {
			return
		}
		lines = append(lines, line.String())
		line.Reset()
		lineWidth = 0
	}

	for _, word := range words {
		wordWidth := runewidth.StringWidth(word)
		if splitLong {
			for wordWidth > width {
				flush()
				head := runewidth.Truncate(word, width, "")
				if head == "" {
					head = string([]rune(word)[:1])
				}
				lines = append(lines, head)
				word = word[len(head):]
				wordWidth = runewidth.StringWidth(word)
			}
			if word == "" {
				continue
			}
		}
		if line.Len() > 0 && lineWidth+1+wordWidth > width {
			flush()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
			lineWidth++
		}
		line.WriteString(word)
		lineWidth += wordWidth
	}
	flush()
	return lines
}

package summary

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/prompter/internal/model"
)

func TestTableAlignsColumns(t *testing.T) {
	tbl := table{columns: []column{
		{header: "#", align: alignRight},
		{header: "Mode"},
		{header: "Length", align: alignRight},
	}}
	tbl.add("1", "record", "0:42")
	tbl.add("12", "rehearse", "1:00")

	lines := tbl.render(0)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != " # Mode     Length" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != " 1 record     0:42" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "12 rehearse   1:00" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestTableFlexColumnKeepsMinWidth(t *testing.T) {
	tbl := table{columns: []column{
		{header: "Mode"},
		{header: "Text", flex: true, minWidth: 5},
	}}
	tbl.add("rehearse", "a fairly long line of text")

	lines := tbl.render(10)
	if lines[1] != "rehearse a fa…" {
		t.Fatalf("unexpected fitted row: %q", lines[1])
	}
	if lines[0] != "Mode     Text" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
}

func TestRenderTakes(t *testing.T) {
	takes := []model.Take{
		{Mode: model.ModeRecord, Elapsed: 58, NearLimit: true, ClipSize: 2048, Excerpt: "Hello\nworld"},
		{Mode: model.ModeRehearse, Elapsed: 0},
		{Mode: model.ModeRecord, Elapsed: 61, LimitReached: true, NearLimit: true, ClipErr: "encode"},
		{Mode: model.ModeRecord, Elapsed: 5, ClipSize: 10, ExportPath: "/tmp/video.webm"},
	}
	lines := Render(takes, Options{})
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d: %q", len(lines), lines)
	}
	if lines[0] != "Takes" {
		t.Fatalf("unexpected heading: %q", lines[0])
	}
	checks := []struct {
		line int
		want []string
	}{
		{2, []string{"record", "0:58", "2.0 KiB", "near", "Hello world"}},
		{3, []string{"rehearse", "0:00", "-"}},
		{4, []string{"1:01", "failed", "limit"}},
		{5, []string{"/tmp/video.webm"}},
	}
	for _, c := range checks {
		for _, want := range c.want {
			if !strings.Contains(lines[c.line], want) {
				t.Fatalf("line %d %q missing %q", c.line, lines[c.line], want)
			}
		}
	}
	if lines[6] != "4 takes, 3 recorded" {
		t.Fatalf("unexpected totals: %q", lines[6])
	}
}

func TestRenderFitsWidth(t *testing.T) {
	takes := []model.Take{{Mode: model.ModeRecord, Elapsed: 3, Excerpt: strings.Repeat("word ", 40)}}
	lines := Render(takes, Options{Width: 60})
	for _, line := range lines {
		if w := runewidth.StringWidth(line); w > 60 {
			t.Fatalf("line wider than 60 (%d): %q", w, line)
		}
	}
	if !strings.HasSuffix(lines[2], "…") {
		t.Fatalf("expected truncated excerpt, got %q", lines[2])
	}
}

func TestWriteSkipsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil, Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestPrintNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	if err := Print(&buf, []model.Take{{Mode: model.ModeRecord, Elapsed: 1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected plain output, got %q", buf.String())
	}
}

package layout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaptionGreedyPacking(t *testing.T) {
	assert.Equal(t, "aaa bbb\nccc ddd\neee", Caption("aaa bbb ccc ddd eee", 7))
}

func TestCaptionDropsLinesPastFour(t *testing.T) {
	out := Caption("one two three four five six seven eight nine ten", 9)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, CaptionLines)
	assert.Equal(t, []string{"one two", "three", "four five", "six seven"}, lines)
}

func TestCaptionKeepsLongWordsWhole(t *testing.T) {
	assert.Equal(t, "a\nextraordinary\nb", Caption("a extraordinary b", 5))
}

func TestCaptionEmpty(t *testing.T) {
	assert.Equal(t, "", Caption("   \n ", 10))
}

func TestWrapPreservesParagraphs(t *testing.T) {
	lines := Wrap("hello world\n\nsecond paragraph here", 11)
	assert.Equal(t, []string{"hello world", "", "second", "paragraph", "here"}, lines)
}

func TestWrapSplitsLongWords(t *testing.T) {
	lines := Wrap("ab abcdefghij", 4)
	assert.Equal(t, []string{"ab", "abcd", "efgh", "ij"}, lines)
}

func TestWrapWideRunes(t *testing.T) {
	lines := Wrap("日本語 テキスト", 6)
	assert.Equal(t, []string{"日本語", "テキス", "ト"}, lines)
}

func TestWrapKeepsZeroWidthTokens(t *testing.T) {
	assert.Equal(t, []string{"a \u200b b"}, Wrap("a \u200b b", 10))
	assert.Equal(t, []string{"\u0301"}, Wrap("\u0301", 10))
	assert.Equal(t, []string{"\u200b abcd", "ef"}, Wrap("\u200b abcd ef", 6))
}

func TestWrapWithoutWidth(t *testing.T) {
	assert.Equal(t, []string{"a b c"}, Wrap("a   b c", 0))
}

func TestColumns(t *testing.T) {
	assert.Equal(t, 80, Columns(80, 20))
	assert.Equal(t, 40, Columns(80, 40))
	assert.Equal(t, 16, Columns(80, 100))
	assert.Equal(t, 160, Columns(80, 10))
	assert.Equal(t, 160, Columns(80, 2))
	assert.Equal(t, 0, Columns(0, 20))
	assert.Equal(t, 1, Columns(3, 100))
}

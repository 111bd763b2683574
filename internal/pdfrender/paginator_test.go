package pdfrender

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/quizflow/internal/models"
)

// monospace measures every rune as 10 points wide.
var monospace = MetricsFunc(func(s string) float64 {
	return float64(len([]rune(s))) * 10
})

// newTestPaginator gives a 100pt usable width (10 characters) and room for
// lines at y = 10, 20, ..., 90 before the bottom margin at y = 90.
func newTestPaginator(t *testing.T) *Paginator {
	t.Helper()
	p, err := NewPaginator(Size{Width: 120, Height: 100}, UniformMargins(10), 10, monospace)
	require.NoError(t, err)
	return p
}

func lineCount(pages []Page) int {
	n := 0
	for _, p := range pages {
		n += len(p.Lines)
	}
	return n
}

func TestNewPaginatorRequiresMetrics(t *testing.T) {
	_, err := NewPaginator(A4, UniformMargins(CM(2)), CM(0.6), nil)
	require.Error(t, err)
	assert.Equal(t, models.KindRenderingUnavailable, models.KindOf(err))

	_, err = NewPaginator(Size{Width: 10, Height: 10}, UniformMargins(10), 1, monospace)
	assert.Equal(t, models.KindRenderingUnavailable, models.KindOf(err))
}

func TestLayoutEmptyTextIsOneEmptyPage(t *testing.T) {
	pages := newTestPaginator(t).Layout("")
	require.Len(t, pages, 1)
	assert.Empty(t, pages[0].Lines)
}

func TestLayoutGreedyWrap(t *testing.T) {
	pages := newTestPaginator(t).Layout("aaa bbb ccc dd")
	require.Len(t, pages, 1)

	var texts []string
	for _, l := range pages[0].Lines {
		texts = append(texts, l.Text)
	}
	assert.Equal(t, []string{"aaa bbb", "ccc dd"}, texts)
	assert.Equal(t, Line{X: 10, Y: 10, Text: "aaa bbb"}, pages[0].Lines[0])
	assert.Equal(t, Line{X: 10, Y: 20, Text: "ccc dd"}, pages[0].Lines[1])
}

func TestLayoutOverlongWordKeepsOwnLine(t *testing.T) {
	long := strings.Repeat("x", 25)
	pages := newTestPaginator(t).Layout("a " + long + " b")
	require.Len(t, pages, 1)

	var texts []string
	for _, l := range pages[0].Lines {
		texts = append(texts, l.Text)
	}
	assert.Equal(t, []string{"a", long, "b"}, texts)
}

func TestLayoutBlankParagraphAdvancesCursor(t *testing.T) {
	pages := newTestPaginator(t).Layout("one\n\n\ntwo")
	require.Len(t, pages, 1)
	require.Len(t, pages[0].Lines, 2)
	assert.Equal(t, 10.0, pages[0].Lines[0].Y)
	assert.Equal(t, 40.0, pages[0].Lines[1].Y)
}

func TestLayoutPageBreaks(t *testing.T) {
	var paras []string
	for i := 0; i < 20; i++ {
		paras = append(paras, "line")
	}
	pages := newTestPaginator(t).Layout(strings.Join(paras, "\n"))

	// y = 10..90 fits nine lines per page.
	require.Len(t, pages, 3)
	assert.Len(t, pages[0].Lines, 9)
	assert.Len(t, pages[1].Lines, 9)
	assert.Len(t, pages[2].Lines, 2)
	assert.Equal(t, 10.0, pages[1].Lines[0].Y)
	assert.Equal(t, 20, lineCount(pages))
}

func TestLayoutClosesTrailingPageAfterBreakFromBlankLines(t *testing.T) {
	// Nine lines fill the first page; the trailing blank paragraphs add nothing
	// but the layout still ends with the page that was open.
	text := strings.Repeat("w\n", 9) + "\n\n"
	pages := newTestPaginator(t).Layout(text)
	require.Len(t, pages, 1)
	assert.Len(t, pages[0].Lines, 9)
}

func TestLayoutWrapIsIndependentOfSourceLineBreaks(t *testing.T) {
	p := newTestPaginator(t)
	words := strings.Fields("aa bb cc dd ee ff gg hh ii jj kk ll mm nn oo pp qq rr ss tt")
	oneParagraph := strings.Join(words, " ")

	// Re-split the same words at the greedy break points.
	var prewrapped []string
	for _, page := range p.Layout(oneParagraph) {
		for _, l := range page.Lines {
			prewrapped = append(prewrapped, l.Text)
		}
	}

	assert.Equal(t, lineCount(p.Layout(oneParagraph)), lineCount(p.Layout(strings.Join(prewrapped, "\n"))))
	assert.Greater(t, lineCount(p.Layout(oneParagraph)), 1)
}

func TestLayoutKeepsIndentation(t *testing.T) {
	pages := newTestPaginator(t).Layout("   A. yes")
	require.Len(t, pages[0].Lines, 1)
	assert.Equal(t, "   A. yes", pages[0].Lines[0].Text)
}

func TestLayoutDeterministic(t *testing.T) {
	p := newTestPaginator(t)
	text := "The quick brown fox jumps over the lazy dog\n\nagain and again"
	assert.Equal(t, p.Layout(text), p.Layout(text))
}

func TestCM(t *testing.T) {
	assert.InDelta(t, 56.69, CM(2), 0.01)
	assert.InDelta(t, 17.01, CM(0.6), 0.01)
}

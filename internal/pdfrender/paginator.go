// Package pdfrender lays quiz text out on fixed-size pages and writes the PDF.
//
// Coordinates are PDF points with the origin at the top-left corner of the
// page; y grows downward and is the baseline of a line.
package pdfrender

import (
	"strings"

	"github.com/Lllllllleong/quizflow/internal/models"
)

const pointsPerCM = 72 / 2.54

// A4 in points.
var A4 = Size{Width: 595.28, Height: 841.89}

type Size struct {
	Width, Height float64
}

type Margins struct {
	Top, Right, Bottom, Left float64
}

// UniformMargins returns margins of m on every side.
func UniformMargins(m float64) Margins {
	return Margins{Top: m, Right: m, Bottom: m, Left: m}
}

// CM converts centimetres to points.
func CM(cm float64) float64 { return cm * pointsPerCM }

// FontMetrics measures rendered text width in points for the active font.
type FontMetrics interface {
	StringWidth(s string) float64
}

// MetricsFunc adapts a function to FontMetrics.
type MetricsFunc func(s string) float64

func (f MetricsFunc) StringWidth(s string) float64 { return f(s) }

type Line struct {
	X, Y float64
	Text string
}

type Page struct {
	Lines []Line
}

type Paginator struct {
	size       Size
	margins    Margins
	lineHeight float64
	metrics    FontMetrics
}

// NewPaginator validates the page geometry. Missing metrics are reported as
// RenderingUnavailable before any layout happens.
func NewPaginator(size Size, margins Margins, lineHeight float64, metrics FontMetrics) (*Paginator, error) {
	if metrics == nil {
		return nil, models.NewError(models.KindRenderingUnavailable, "no font metrics available for layout")
	}
	if lineHeight <= 0 {
		return nil, models.NewError(models.KindRenderingUnavailable, "line height must be positive, got %v", lineHeight)
	}
	if size.Width-margins.Left-margins.Right <= 0 || size.Height-margins.Top-margins.Bottom <= 0 {
		return nil, models.NewError(models.KindRenderingUnavailable, "margins leave no printable area on a %vx%v page", size.Width, size.Height)
	}
	return &Paginator{size: size, margins: margins, lineHeight: lineHeight, metrics: metrics}, nil
}

func (p *Paginator) UsableWidth() float64 {
	return p.size.Width - p.margins.Left - p.margins.Right
}

// Layout splits text into paragraphs on "\n", greedily word-wraps each one and
// breaks pages when the cursor passes the bottom margin. A blank paragraph
// only advances the cursor. The last page is always emitted, so the result
// has at least one page.
func (p *Paginator) Layout(text string) []Page {
	var pages []Page
	current := Page{}
	y := p.margins.Top
	bottom := p.size.Height - p.margins.Bottom

	for _, para := range strings.Split(text, "\n") {
		if strings.TrimSpace(para) == "" {
			y += p.lineHeight
			continue
		}
		for _, line := range p.wrap(para) {
			if y > bottom {
				pages = append(pages, current)
				current = Page{}
				y = p.margins.Top
			}
			current.Lines = append(current.Lines, Line{X: p.margins.Left, Y: y, Text: line})
			y += p.lineHeight
		}
	}
	return append(pages, current)
}

// wrap keeps the paragraph's leading indentation on its first line. A single
// word wider than the usable width still gets a line of its own.
func (p *Paginator) wrap(para string) []string {
	words := strings.Fields(para)
	if len(words) == 0 {
		return nil
	}
	indent := para[:len(para)-len(strings.TrimLeft(para, " "))]
	limit := p.UsableWidth()

	var lines []string
	current := indent + words[0]
	for _, w := range words[1:] {
		candidate := current + " " + w
		if p.metrics.StringWidth(candidate) <= limit {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = w
	}
	return append(lines, current)
}

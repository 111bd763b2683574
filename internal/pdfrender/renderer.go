package pdfrender

import (
	"bytes"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/Lllllllleong/quizflow/internal/models"
)

// Config describes the printed document. Zero values fall back to
// DefaultConfig.
type Config struct {
	Size       Size
	Margins    Margins
	LineHeight float64
	FontFamily string
	FontSize   float64
	Title      string
}

func DefaultConfig() Config {
	return Config{
		Size:       A4,
		Margins:    UniformMargins(CM(2)),
		LineHeight: CM(0.6),
		FontFamily: "Times",
		FontSize:   11,
	}
}

// fixedDate pins PDF metadata so identical text renders to identical bytes.
var fixedDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Renderer writes printable text into PDF documents using a core font.
type Renderer struct {
	cfg Config
}

func NewRenderer(cfg Config) *Renderer {
	def := DefaultConfig()
	if cfg.Size.Width <= 0 || cfg.Size.Height <= 0 {
		cfg.Size = def.Size
	}
	if cfg.Margins == (Margins{}) {
		cfg.Margins = def.Margins
	}
	if cfg.LineHeight <= 0 {
		cfg.LineHeight = def.LineHeight
	}
	if cfg.FontFamily == "" {
		cfg.FontFamily = def.FontFamily
	}
	if cfg.FontSize <= 0 {
		cfg.FontSize = def.FontSize
	}
	return &Renderer{cfg: cfg}
}

// fpdfMetrics measures strings with the document's current font after the
// same cp1252 translation used when drawing.
type fpdfMetrics struct {
	pdf       *fpdf.Fpdf
	translate func(string) string
}

func (m fpdfMetrics) StringWidth(s string) float64 {
	return m.pdf.GetStringWidth(m.translate(s))
}

// Render lays text out and returns the PDF bytes along with the page count.
// Failures are classified as RenderingUnavailable.
func (r *Renderer) Render(text string) ([]byte, int, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: r.cfg.Size.Width, Ht: r.cfg.Size.Height},
	})
	pdf.SetMargins(r.cfg.Margins.Left, r.cfg.Margins.Top, r.cfg.Margins.Right)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(fixedDate)
	pdf.SetModificationDate(fixedDate)
	pdf.SetCatalogSort(true)
	pdf.SetCreator("quizflow", false)
	if r.cfg.Title != "" {
		pdf.SetTitle(r.cfg.Title, true)
	}
	pdf.SetFont(r.cfg.FontFamily, "", r.cfg.FontSize)
	if pdf.Err() {
		return nil, 0, models.WrapError(models.KindRenderingUnavailable, pdf.Error(), "font %s is not available", r.cfg.FontFamily)
	}

	translate := pdf.UnicodeTranslatorFromDescriptor("")
	paginator, err := NewPaginator(r.cfg.Size, r.cfg.Margins, r.cfg.LineHeight, fpdfMetrics{pdf: pdf, translate: translate})
	if err != nil {
		return nil, 0, err
	}

	pages := paginator.Layout(text)
	for _, page := range pages {
		pdf.AddPage()
		pdf.SetFont(r.cfg.FontFamily, "", r.cfg.FontSize)
		for _, line := range page.Lines {
			pdf.Text(line.X, line.Y, translate(line.Text))
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, 0, models.WrapError(models.KindRenderingUnavailable, err, "failed to write PDF")
	}
	return buf.Bytes(), len(pages), nil
}

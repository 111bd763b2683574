package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFText extracts the plain text of every page of the PDF at path, joins the
// pages with newlines and sanitizes the result. Pages that fail to decode are
// logged and skipped; an error is returned when the file cannot be opened or
// the reader panics on malformed content.
func PDFText(path string) (string, error) {
	var text string
	err := recoverPanic(func() error {
		f, r, err := pdf.Open(path)
		if err != nil {
			return fmt.Errorf("pdf reader: %w", err)
		}
		defer f.Close()

		pages := make([]string, 0, r.NumPage())
		for i := 1; i <= r.NumPage(); i++ {
			p := r.Page(i)
			if p.V.IsNull() {
				continue
			}
			pageText, err := p.GetPlainText(nil)
			if err != nil {
				slog.Warn("Skipping unreadable PDF page.", "page", i, "error", err)
				continue
			}
			pages = append(pages, pageText)
		}
		text = strings.TrimSpace(Sanitize(strings.Join(pages, "\n")))
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// recoverPanic runs fn and reports a panic inside it as an error.
func recoverPanic(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panicked: %v", r)
		}
	}()
	return fn()
}

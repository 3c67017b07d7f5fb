package extract

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor linearizes a PDF into text lines, one per rendered row, in
// page order. It knows nothing about invoices.
type PDFExtractor struct {
	Log *slog.Logger
}

func NewPDFExtractor(log *slog.Logger) *PDFExtractor {
	if log == nil {
		log = slog.Default()
	}
	return &PDFExtractor{Log: log}
}

func (x *PDFExtractor) Extract(ctx context.Context, content []byte) (TextExtractionResult, error) {
	start := time.Now()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return TextExtractionResult{}, &UnreadableDocumentError{Cause: err}
	}

	var lines []string
	pages := reader.NumPage()
	for pageNum := 1; pageNum <= pages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return TextExtractionResult{}, &UnreadableDocumentError{Cause: err}
		}
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return TextExtractionResult{}, &UnreadableDocumentError{Cause: err}
		}
		for _, row := range rows {
			var sb strings.Builder
			for _, word := range row.Content {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(word.S)
			}
			line := strings.TrimSpace(sb.String())
			if line != "" {
				lines = append(lines, line)
			}
		}
	}

	res := TextExtractionResult{
		Lines:    lines,
		Pages:    pages,
		Method:   "pdf-text",
		Duration: time.Since(start),
	}
	x.Log.Debug("extract.pdf", "pages", pages, "lines", len(lines), "duration", res.Duration)
	return res, nil
}

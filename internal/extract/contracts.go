package extract

import (
	"context"
	"fmt"
	"time"
)

// TextExtractor is Stage 1: document bytes -> ordered text lines.
// Line order is preserved exactly as encountered; the vendor parsers rely on
// positional adjacency.
type TextExtractor interface {
	Extract(ctx context.Context, content []byte) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Lines    []string
	Pages    int
	Method   string // "pdf-text"
	Duration time.Duration
}

// UnreadableDocumentError means the underlying format could not be parsed at
// all. Fatal for that document; no partial result.
type UnreadableDocumentError struct {
	Cause error
}

func (e *UnreadableDocumentError) Error() string {
	return fmt.Sprintf("unreadable document: %v", e.Cause)
}

func (e *UnreadableDocumentError) Unwrap() error { return e.Cause }

// Package ingest feeds documents from the local filesystem into the
// processing pipeline, one at a time or as a directory batch.
package ingest

import (
	"github.com/google/uuid"
)

// Outcome classifies one ingested file.
type Outcome string

const (
	OutcomeProcessed Outcome = "PROCESSED"
	OutcomeReview    Outcome = "REVIEW"
	OutcomeDuplicate Outcome = "DUPLICATE"
	OutcomeFailed    Outcome = "FAILED"
)

// FileResult is the per-file ingest outcome.
type FileResult struct {
	Path       string    `json:"path"`
	DocumentID uuid.UUID `json:"document_id,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	Err        string    `json:"err,omitempty"`
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned    uint32 `json:"scanned"`
	Matched    uint32 `json:"matched"`
	Processed  uint32 `json:"processed"`
	Review     uint32 `json:"review"`
	Duplicated uint32 `json:"duplicated"`
	Failed     uint32 `json:"failed"`
}

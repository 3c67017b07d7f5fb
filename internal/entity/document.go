package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vinodex/invoice-reconciler/constants"
)

// RawDocument is the opaque input to the pipeline. Discarded after text
// extraction.
type RawDocument struct {
	ID          uuid.UUID
	Filename    string
	ContentType string
	Content     []byte
}

// DocumentMetadata holds the document-level fields pulled by the field
// extractors. Every field is optional; callers decide per field whether
// absence is fatal.
type DocumentMetadata struct {
	Folio         string           `json:"folio,omitempty"`
	FolioFiscal   string           `json:"folio_fiscal,omitempty"`
	IssuerRFC     string           `json:"issuer_rfc,omitempty"`
	IssueDate     *time.Time       `json:"issue_date,omitempty"`
	DeclaredTotal *decimal.Decimal `json:"declared_total,omitempty"`
	SpecialTax    bool             `json:"special_tax,omitempty"`
}

// ProcessedLine is one persisted line of a processed document. EntryID is nil
// when resolution failed and the line was routed to the unresolved ledger.
type ProcessedLine struct {
	ID             int64               `json:"id"`
	EntryID        *int64              `json:"entry_id,omitempty"`
	Description    string              `json:"description"`
	Quantity       *decimal.Decimal    `json:"quantity,omitempty"`
	UnitPrice      *decimal.Decimal    `json:"unit_price,omitempty"`
	LineTotal      *decimal.Decimal    `json:"line_total,omitempty"`
	RequiresReview bool                `json:"requires_review"`
	Findings       []ValidationFinding `json:"findings,omitempty"`
}

// ProcessedDocument is the output record of one pipeline run.
type ProcessedDocument struct {
	ID             uuid.UUID        `json:"id"`
	ProviderID     string           `json:"provider_id"`
	Filename       string           `json:"filename"`
	ContentHash    string           `json:"content_hash"`
	Metadata       DocumentMetadata `json:"metadata"`
	Lines          []ProcessedLine  `json:"lines"`
	RequiresReview bool             `json:"requires_review"`
	ReviewReasons  []string         `json:"review_reasons,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Status derives the canonical document status from the review flag. Failed
// documents never become a ProcessedDocument; they exist only as a
// FailureRecord.
func (d *ProcessedDocument) Status() constants.DocumentStatus {
	if d.RequiresReview {
		return constants.DocumentStatusReview
	}
	return constants.DocumentStatusProcessed
}

// DocumentDisposition is the reconciler's verdict for one document. Reasons
// keep the order in which they were detected.
type DocumentDisposition struct {
	RequiresReview bool     `json:"requires_review"`
	Reasons        []string `json:"reasons,omitempty"`
}

// FailureRecord is the minimal record persisted when a document aborts,
// routed to the human-facing error queue. Never carries partial financials.
type FailureRecord struct {
	ID         int64     `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	Filename   string    `json:"filename"`
	Stage      string    `json:"stage"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

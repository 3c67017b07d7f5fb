package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnresolvedItemRecord is one ledger row for a line item the resolver could
// not uniquely match. Mutated exactly once, when a human resolves it; a
// resolved record is terminal (reopening means delete and recreate).
type UnresolvedItemRecord struct {
	ID               int64            `json:"id"`
	Description      string           `json:"description"`
	Quantity         *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice        *decimal.Decimal `json:"unit_price,omitempty"`
	SourceDocumentID uuid.UUID        `json:"source_document_id"`
	RawSnapshot      string           `json:"raw_snapshot,omitempty"`
	Resolved         bool             `json:"resolved"`
	ResolvedEntryID  *int64           `json:"resolved_entry_id,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	ResolvedAt       *time.Time       `json:"resolved_at,omitempty"`
}

package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DetectedLineItem is one candidate row detected by a vendor parser.
// Quantity and UnitPrice are independently optional: a parser may detect one
// without the other, and partial items are emitted rather than dropped.
// Treated as an immutable snapshot after creation; corrections produce a new
// value so the original detection stays auditable.
type DetectedLineItem struct {
	Description string           `json:"description"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	LineTotal   *decimal.Decimal `json:"line_total,omitempty"`
	RawSnapshot string           `json:"raw_snapshot,omitempty"`
}

// ResolutionStatus tags the outcome of catalog resolution.
type ResolutionStatus string

const (
	ResolutionResolved  ResolutionStatus = "RESOLVED"
	ResolutionNotFound  ResolutionStatus = "NOT_FOUND"
	ResolutionAmbiguous ResolutionStatus = "AMBIGUOUS"
)

// ResolutionOutcome is produced exactly once per DetectedLineItem.
// Entry is non-nil only when Status is ResolutionResolved; Candidates is set
// only when Status is ResolutionAmbiguous.
type ResolutionOutcome struct {
	Status     ResolutionStatus
	Entry      *CatalogEntry
	Candidates int
}

func (o ResolutionOutcome) String() string {
	switch o.Status {
	case ResolutionResolved:
		return fmt.Sprintf("resolved(%d)", o.Entry.ID)
	case ResolutionAmbiguous:
		return fmt.Sprintf("ambiguous(%d candidates)", o.Candidates)
	default:
		return "not found"
	}
}

// FindingKind classifies a validation finding.
type FindingKind string

const (
	FindingDescriptionEmpty     FindingKind = "DESCRIPTION_EMPTY"
	FindingDescriptionShort     FindingKind = "DESCRIPTION_SHORT"
	FindingDescriptionNonAlpha  FindingKind = "DESCRIPTION_NON_ALPHA"
	FindingNotFound             FindingKind = "RESOLUTION_NOT_FOUND"
	FindingAmbiguous            FindingKind = "RESOLUTION_AMBIGUOUS"
	FindingArithmeticMismatch   FindingKind = "ARITHMETIC_MISMATCH"
	FindingMissingQuantity      FindingKind = "MISSING_QUANTITY"
	FindingMissingUnitPrice     FindingKind = "MISSING_UNIT_PRICE"
	FindingMissingLineTotal     FindingKind = "MISSING_LINE_TOTAL"
	FindingPriceAboveBand       FindingKind = "PRICE_ABOVE_BAND"
	FindingPriceBelowBand       FindingKind = "PRICE_BELOW_BAND"
	FindingDescriptionTruncated FindingKind = "DESCRIPTION_TRUNCATED"
	FindingMissingCriticalToken FindingKind = "MISSING_CRITICAL_TOKEN"
	FindingCapacityMismatch     FindingKind = "CAPACITY_MISMATCH"
	FindingNoLineItems          FindingKind = "NO_LINE_ITEMS"
	FindingTotalMismatch        FindingKind = "DOCUMENT_TOTAL_MISMATCH"
	FindingMissingDocumentTotal FindingKind = "MISSING_DOCUMENT_TOTAL"
	FindingSpecialTaxCategory   FindingKind = "SPECIAL_TAX_CATEGORY"
)

// FindingSeverity is advisory only; findings never block persistence.
type FindingSeverity string

const (
	SeverityInfo    FindingSeverity = "INFO"
	SeverityWarning FindingSeverity = "WARNING"
)

// ValidationFinding is recomputed on every validation pass and never cached,
// so thresholds can change without stale verdicts surviving.
type ValidationFinding struct {
	Kind     FindingKind     `json:"kind"`
	Severity FindingSeverity `json:"severity"`
	Detail   string          `json:"detail"`
}

func (f ValidationFinding) String() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

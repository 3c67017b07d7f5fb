package fields

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vinodex/invoice-reconciler/internal/utils"
)

const (
	folioWindow  = 3 // anchor line + two following
	fiscalWindow = 4
	rfcWindow    = 3
	dateWindow   = 3
	totalWindow  = 4
	taxWindow    = 3
)

var (
	reFolioValue = regexp.MustCompile(`\b[A-Z]{0,3}-?\d{3,10}\b`)
	reUUID       = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`)
	reRFC        = regexp.MustCompile(`\b[A-ZÑ&]{3,4}\d{6}[A-Z0-9]{3}\b`)
	reDateValue  = regexp.MustCompile(`\b(?:\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}-\d{2}-\d{2}|\d{1,2}-[A-Za-z]{3}-\d{4})\b`)
)

// Folio extracts the internal invoice number. Anchored on a "folio" label
// that is not the fiscal folio.
func Folio(lines []string) (string, error) {
	anchors := anchorIndexes(lines, func(n string) bool {
		return strings.Contains(n, "folio") && !strings.Contains(n, "fiscal")
	})
	for _, i := range anchors {
		// the label itself carries no digits, so a plain value regex is safe
		if v, ok := firstInWindow(window(lines, i, folioWindow), reFolioValue.FindString); ok {
			return v, nil
		}
	}
	return "", &NotFoundError{Field: "folio"}
}

// FolioFiscal extracts the fiscal folio (a UUID) near a "FOLIO FISCAL" label.
func FolioFiscal(lines []string) (string, error) {
	anchors := anchorIndexes(lines, func(n string) bool {
		return containsAll(n, "folio", "fiscal")
	})
	for _, i := range anchors {
		if v, ok := firstInWindow(window(lines, i, fiscalWindow), reUUID.FindString); ok {
			return strings.ToLower(v), nil
		}
	}
	return "", &NotFoundError{Field: "folio_fiscal"}
}

// IssuerRFC extracts the issuing party's tax id near an "RFC" label. The
// first RFC in document order is the issuer; receiver blocks come later.
func IssuerRFC(lines []string) (string, error) {
	anchors := anchorIndexes(lines, func(n string) bool {
		return strings.Contains(n, "rfc")
	})
	for _, i := range anchors {
		if v, ok := firstInWindow(window(lines, i, rfcWindow), reRFC.FindString); ok {
			return v, nil
		}
	}
	return "", &NotFoundError{Field: "rfc"}
}

// IssueDate extracts the document date near a "fecha" label.
func IssueDate(lines []string) (time.Time, error) {
	anchors := anchorIndexes(lines, func(n string) bool {
		return strings.Contains(n, "fecha")
	})
	for _, i := range anchors {
		raw, ok := firstInWindow(window(lines, i, dateWindow), reDateValue.FindString)
		if !ok {
			continue
		}
		if t, err := utils.ParseDate(raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &NotFoundError{Field: "issue_date"}
}

// Total extracts the declared document total. Some layouts repeat the total
// in multiple visual positions, so this returns the maximum money value found
// across all "Total"-labeled anchors, excluding "Subtotal" anchors. That is a
// heuristic that has held empirically, not a guarantee; a legitimate document
// with a distinct larger figure near a Total-like anchor would fool it.
func Total(lines []string) (decimal.Decimal, error) {
	anchors := anchorIndexes(lines, func(n string) bool {
		return strings.Contains(n, "total") && !strings.Contains(n, "subtotal") && !strings.Contains(n, "sub total")
	})

	var best decimal.Decimal
	found := false
	for _, i := range anchors {
		for _, line := range window(lines, i, totalWindow) {
			for _, tok := range utils.MoneyRe.FindAllString(line, -1) {
				v, err := utils.ParseMoney(tok)
				if err != nil {
					continue
				}
				if !found || v.GreaterThan(best) {
					best = v
					found = true
				}
			}
		}
	}
	if !found {
		return decimal.Zero, &NotFoundError{Field: "total"}
	}
	return best, nil
}

// HasSpecialTax reports whether the document carries a non-zero IEPS (excise)
// amount, the signal for the restricted product category that forces a full
// manual audit of every line.
func HasSpecialTax(lines []string) bool {
	anchors := anchorIndexes(lines, func(n string) bool {
		return strings.Contains(n, "ieps")
	})
	for _, i := range anchors {
		for _, line := range window(lines, i, taxWindow) {
			for _, tok := range utils.MoneyRe.FindAllString(line, -1) {
				v, err := utils.ParseMoney(tok)
				if err != nil {
					continue
				}
				if v.IsPositive() {
					return true
				}
			}
		}
	}
	return false
}

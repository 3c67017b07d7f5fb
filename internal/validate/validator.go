// Package validate evaluates resolved line items against numeric and
// structural consistency rules. Findings are advisory: the validator never
// raises, it only returns findings for the caller to aggregate.
package validate

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/vinodex/invoice-reconciler/internal/entity"
	"github.com/vinodex/invoice-reconciler/internal/normalize"
)

// PriceBand is the acceptable deviation of a detected unit price from the
// catalog reference price, in percent. Bands are asymmetric: what a deviation
// most plausibly indicates differs by direction (a missing discount vs. a
// different product variant), so each provider configures both sides.
// Hitting the band edge exactly counts as a deviation.
type PriceBand struct {
	UpperPct decimal.Decimal `json:"upper_pct"`
	LowerPct decimal.Decimal `json:"lower_pct"`
}

// Config holds thresholds for the validator. Price bands are keyed by
// provider identity, never global constants.
type Config struct {
	ArithmeticTolerancePct decimal.Decimal
	MinDescriptionLen      int
	MinAlphaChars          int
	PriceBands             map[string]PriceBand
	// TruncationLengths maps provider id to the column width at which that
	// layout truncates descriptions; a description at exactly that width has
	// probably lost its tail.
	TruncationLengths map[string]int
}

// DefaultConfig mirrors the values the back office has run with.
func DefaultConfig() Config {
	return Config{
		ArithmeticTolerancePct: decimal.NewFromInt(2),
		MinDescriptionLen:      5,
		MinAlphaChars:          3,
		PriceBands:             map[string]PriceBand{},
		TruncationLengths:      map[string]int{},
	}
}

type Validator struct {
	cfg Config
	log *slog.Logger
}

func New(cfg Config, log *slog.Logger) *Validator {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MinDescriptionLen <= 0 {
		cfg.MinDescriptionLen = 5
	}
	if cfg.MinAlphaChars <= 0 {
		cfg.MinAlphaChars = 3
	}
	if cfg.ArithmeticTolerancePct.IsZero() {
		cfg.ArithmeticTolerancePct = decimal.NewFromInt(2)
	}
	return &Validator{cfg: cfg, log: log}
}

var hundred = decimal.NewFromInt(100)

// variant qualifiers that change which product a description refers to; when
// the resolved catalog name carries one and the detected text does not, the
// match deserves a second look.
var criticalTokens = map[string]struct{}{
	"reserva": {}, "crianza": {}, "roble": {}, "joven": {}, "reposado": {},
	"anejo": {}, "blanco": {}, "tinto": {}, "rosado": {}, "magnum": {}, "brut": {},
}

var reCapacity = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(ml|lt|l|litros|litro)\b`)

// Validate runs every check and returns all findings in one pass; checks are
// never short-circuited.
func (v *Validator) Validate(item entity.DetectedLineItem, outcome entity.ResolutionOutcome, providerID string) []entity.ValidationFinding {
	var findings []entity.ValidationFinding
	findings = append(findings, v.checkDescription(item)...)
	findings = append(findings, v.checkResolution(outcome)...)
	findings = append(findings, v.checkArithmetic(item)...)
	findings = append(findings, v.checkPriceBand(item, outcome, providerID)...)
	findings = append(findings, v.checkStructure(item, outcome, providerID)...)
	return findings
}

// checkDescription guards against stray numbers or codes misdetected as
// descriptions.
func (v *Validator) checkDescription(item entity.DetectedLineItem) []entity.ValidationFinding {
	desc := strings.TrimSpace(item.Description)
	if desc == "" {
		return []entity.ValidationFinding{{
			Kind:     entity.FindingDescriptionEmpty,
			Severity: entity.SeverityWarning,
			Detail:   "line item has no description",
		}}
	}
	var findings []entity.ValidationFinding
	if len([]rune(desc)) < v.cfg.MinDescriptionLen {
		findings = append(findings, entity.ValidationFinding{
			Kind:     entity.FindingDescriptionShort,
			Severity: entity.SeverityWarning,
			Detail:   fmt.Sprintf("description %q is shorter than %d characters", desc, v.cfg.MinDescriptionLen),
		})
	}
	alpha := 0
	for _, r := range desc {
		if unicode.IsLetter(r) {
			alpha++
		}
	}
	if alpha < v.cfg.MinAlphaChars {
		findings = append(findings, entity.ValidationFinding{
			Kind:     entity.FindingDescriptionNonAlpha,
			Severity: entity.SeverityWarning,
			Detail:   fmt.Sprintf("description %q has fewer than %d alphabetic characters", desc, v.cfg.MinAlphaChars),
		})
	}
	return findings
}

// checkResolution surfaces resolution failures; this is the primary signal
// that routes an item to the unresolved ledger.
func (v *Validator) checkResolution(outcome entity.ResolutionOutcome) []entity.ValidationFinding {
	switch outcome.Status {
	case entity.ResolutionNotFound:
		return []entity.ValidationFinding{{
			Kind:     entity.FindingNotFound,
			Severity: entity.SeverityWarning,
			Detail:   "no catalog entry matches the detected description",
		}}
	case entity.ResolutionAmbiguous:
		return []entity.ValidationFinding{{
			Kind:     entity.FindingAmbiguous,
			Severity: entity.SeverityWarning,
			Detail:   fmt.Sprintf("%d catalog entries match the detected description", outcome.Candidates),
		}}
	}
	return nil
}

// checkArithmetic verifies quantity x unit price against the stated row
// amount within the relative tolerance. Partial data is never silently
// accepted: each missing or zero operand becomes its own finding.
func (v *Validator) checkArithmetic(item entity.DetectedLineItem) []entity.ValidationFinding {
	missing := func(d *decimal.Decimal) bool { return d == nil || d.IsZero() }

	if missing(item.Quantity) || missing(item.UnitPrice) || missing(item.LineTotal) {
		var findings []entity.ValidationFinding
		add := func(kind entity.FindingKind, field string) {
			findings = append(findings, entity.ValidationFinding{
				Kind:     kind,
				Severity: entity.SeverityWarning,
				Detail:   fmt.Sprintf("%s is missing or zero", field),
			})
		}
		if missing(item.Quantity) {
			add(entity.FindingMissingQuantity, "quantity")
		}
		if missing(item.UnitPrice) {
			add(entity.FindingMissingUnitPrice, "unit price")
		}
		if missing(item.LineTotal) {
			add(entity.FindingMissingLineTotal, "line total")
		}
		return findings
	}

	expected := item.Quantity.Mul(*item.UnitPrice)
	deviationPct := expected.Sub(*item.LineTotal).Abs().Div(*item.LineTotal).Mul(hundred)
	if deviationPct.GreaterThan(v.cfg.ArithmeticTolerancePct) {
		return []entity.ValidationFinding{{
			Kind:     entity.FindingArithmeticMismatch,
			Severity: entity.SeverityWarning,
			Detail: fmt.Sprintf("quantity x unit price = %s differs from stated %s by %s%%",
				expected.StringFixed(2), item.LineTotal.StringFixed(2), deviationPct.Round(2)),
		}}
	}
	return nil
}

// checkPriceBand compares the detected unit price against the catalog
// reference price using the provider's band.
func (v *Validator) checkPriceBand(item entity.DetectedLineItem, outcome entity.ResolutionOutcome, providerID string) []entity.ValidationFinding {
	if outcome.Status != entity.ResolutionResolved || item.UnitPrice == nil || item.UnitPrice.IsZero() {
		return nil
	}
	band, ok := v.cfg.PriceBands[providerID]
	if !ok {
		v.log.Debug("validate: no price band configured", "provider", providerID)
		return nil
	}
	ref := outcome.Entry.ReferencePrice
	if ref.IsZero() {
		return nil
	}

	upperLimit := ref.Mul(decimal.NewFromInt(1).Add(band.UpperPct.Div(hundred)))
	lowerLimit := ref.Mul(decimal.NewFromInt(1).Sub(band.LowerPct.Div(hundred)))
	deviationPct := item.UnitPrice.Sub(ref).Div(ref).Mul(hundred)

	if item.UnitPrice.GreaterThanOrEqual(upperLimit) {
		return []entity.ValidationFinding{{
			Kind:     entity.FindingPriceAboveBand,
			Severity: entity.SeverityWarning,
			Detail: fmt.Sprintf("unit price %s is %s%% above reference %s (band +%s%%)",
				item.UnitPrice.StringFixed(2), deviationPct.Round(2), ref.StringFixed(2), band.UpperPct),
		}}
	}
	if item.UnitPrice.LessThanOrEqual(lowerLimit) {
		return []entity.ValidationFinding{{
			Kind:     entity.FindingPriceBelowBand,
			Severity: entity.SeverityWarning,
			Detail: fmt.Sprintf("unit price %s is %s%% below reference %s (band -%s%%)",
				item.UnitPrice.StringFixed(2), deviationPct.Abs().Round(2), ref.StringFixed(2), band.LowerPct),
		}}
	}
	return nil
}

// checkStructure runs the layout-dependent heuristics: truncation, missing
// variant qualifiers, and capacity cross-check against the resolved entry.
func (v *Validator) checkStructure(item entity.DetectedLineItem, outcome entity.ResolutionOutcome, providerID string) []entity.ValidationFinding {
	var findings []entity.ValidationFinding

	if limit, ok := v.cfg.TruncationLengths[providerID]; ok && limit > 0 && len(item.Description) >= limit {
		findings = append(findings, entity.ValidationFinding{
			Kind:     entity.FindingDescriptionTruncated,
			Severity: entity.SeverityInfo,
			Detail:   fmt.Sprintf("description reaches the %d-character layout limit and may be truncated", limit),
		})
	}

	if outcome.Status != entity.ResolutionResolved {
		return findings
	}
	detected := normalize.Normalize(item.Description)
	canonical := normalize.Normalize(outcome.Entry.CanonicalName)

	for _, tok := range strings.Fields(canonical) {
		if _, critical := criticalTokens[tok]; !critical {
			continue
		}
		if !strings.Contains(detected, tok) {
			findings = append(findings, entity.ValidationFinding{
				Kind:     entity.FindingMissingCriticalToken,
				Severity: entity.SeverityWarning,
				Detail:   fmt.Sprintf("catalog name carries %q but the detected text does not", tok),
			})
		}
	}

	if dCap, dOK := capacityML(detected); dOK {
		if cCap, cOK := capacityML(canonical); cOK && !dCap.Equal(cCap) {
			findings = append(findings, entity.ValidationFinding{
				Kind:     entity.FindingCapacityMismatch,
				Severity: entity.SeverityWarning,
				Detail: fmt.Sprintf("detected capacity %sml differs from catalog capacity %sml",
					dCap, cCap),
			})
		}
	}
	return findings
}

// capacityML pulls a capacity token from normalized text and converts it to
// milliliters.
func capacityML(norm string) (decimal.Decimal, bool) {
	m := reCapacity.FindStringSubmatch(norm)
	if m == nil {
		return decimal.Zero, false
	}
	val, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero, false
	}
	if m[2] != "ml" {
		val = val.Mul(decimal.NewFromInt(1000))
	}
	return val, true
}

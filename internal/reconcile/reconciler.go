// Package reconcile aggregates per-line findings into a single document
// disposition and checks the line-item sum against the declared total.
package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vinodex/invoice-reconciler/internal/entity"
)

// LineResult pairs one detected item with its resolution and findings.
// RequiresReview starts from the line's own findings and may be forced on by
// document-level escalation; line state never forces other lines' state.
type LineResult struct {
	Item           entity.DetectedLineItem
	Outcome        entity.ResolutionOutcome
	Findings       []entity.ValidationFinding
	RequiresReview bool
}

// Input is everything the reconciler needs for one document.
type Input struct {
	DeclaredTotal *decimal.Decimal
	SpecialTax    bool
	Lines         []LineResult
}

var hundred = decimal.NewFromInt(100)

// escalating findings mark the whole document for review.
var escalating = map[entity.FindingKind]struct{}{
	entity.FindingNotFound:       {},
	entity.FindingAmbiguous:      {},
	entity.FindingPriceAboveBand: {},
	entity.FindingPriceBelowBand: {},
}

// Reconcile sums quantity x unit price over the lines that carry both values,
// compares against the declared total within tolerancePct, and folds all
// per-line and per-document findings into one disposition. Lines are mutated
// only to set RequiresReview.
func Reconcile(in Input, tolerancePct decimal.Decimal) entity.DocumentDisposition {
	disp := entity.DocumentDisposition{}
	flag := func(reason string) {
		disp.RequiresReview = true
		disp.Reasons = append(disp.Reasons, reason)
	}

	if len(in.Lines) == 0 {
		flag("no line items were detected")
	}

	computed := decimal.Zero
	summed := 0
	for i := range in.Lines {
		line := &in.Lines[i]
		if line.Item.Quantity != nil && line.Item.UnitPrice != nil {
			computed = computed.Add(line.Item.Quantity.Mul(*line.Item.UnitPrice))
			summed++
		}
		for _, f := range line.Findings {
			line.RequiresReview = true
			if _, ok := escalating[f.Kind]; ok {
				flag(fmt.Sprintf("line %d (%s): %s", i+1, shorten(line.Item.Description), f.Detail))
			}
		}
	}

	switch {
	case in.DeclaredTotal == nil || in.DeclaredTotal.IsZero():
		flag("document total could not be extracted")
	case summed > 0:
		gapPct := computed.Sub(*in.DeclaredTotal).Abs().Div(*in.DeclaredTotal).Mul(hundred)
		if gapPct.GreaterThan(tolerancePct) {
			flag(fmt.Sprintf("line items sum to %s but the document declares %s (%s%% gap, tolerance %s%%)",
				computed.StringFixed(2), in.DeclaredTotal.StringFixed(2), gapPct.Round(2), tolerancePct))
		}
	}

	// provider-specific override: the special excise bracket signals a
	// restricted product category whose regulatory handling requires a full
	// manual audit, so every line is retroactively marked regardless of its
	// own findings. Deliberately one-directional: document state forces line
	// state, never the reverse.
	if in.SpecialTax {
		flag("special tax category present; every line requires manual audit")
		for i := range in.Lines {
			in.Lines[i].RequiresReview = true
		}
	}

	return disp
}

func shorten(s string) string {
	const max = 40
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

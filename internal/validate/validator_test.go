package validate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vinodex/invoice-reconciler/internal/entity"
	"github.com/vinodex/invoice-reconciler/internal/utils"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func resolved(ref string, name string) entity.ResolutionOutcome {
	return entity.ResolutionOutcome{
		Status: entity.ResolutionResolved,
		Entry:  &entity.CatalogEntry{ID: 1, CanonicalName: name, ReferencePrice: dec(ref)},
	}
}

func kinds(findings []entity.ValidationFinding) []entity.FindingKind {
	out := make([]entity.FindingKind, len(findings))
	for i, f := range findings {
		out[i] = f.Kind
	}
	return out
}

func fullItem(desc, qty, price, total string) entity.DetectedLineItem {
	return entity.DetectedLineItem{
		Description: desc,
		Quantity:    utils.DecPtr(dec(qty)),
		UnitPrice:   utils.DecPtr(dec(price)),
		LineTotal:   utils.DecPtr(dec(total)),
	}
}

func TestArithmeticConsistency(t *testing.T) {
	item := fullItem("VINO TINTO RESERVA", "10", "5.00", "50.50")

	// relative error 1% < 2% tolerance: no finding
	v := New(Config{ArithmeticTolerancePct: dec("2")}, nil)
	assert.NotContains(t, kinds(v.Validate(item, resolved("5.00", "Vino Tinto Reserva"), "p")), entity.FindingArithmeticMismatch)

	// 1% > 0.5% tolerance: finding
	v = New(Config{ArithmeticTolerancePct: dec("0.5")}, nil)
	assert.Contains(t, kinds(v.Validate(item, resolved("5.00", "Vino Tinto Reserva"), "p")), entity.FindingArithmeticMismatch)
}

func TestArithmeticMissingFields(t *testing.T) {
	v := New(DefaultConfig(), nil)

	item := entity.DetectedLineItem{
		Description: "MEZCAL ARTESANAL",
		Quantity:    utils.DecPtr(dec("6")),
	}
	got := kinds(v.Validate(item, entity.ResolutionOutcome{Status: entity.ResolutionNotFound}, "p"))
	assert.Contains(t, got, entity.FindingMissingUnitPrice)
	assert.Contains(t, got, entity.FindingMissingLineTotal)
	assert.NotContains(t, got, entity.FindingMissingQuantity)

	// zero counts as missing
	item.Quantity = utils.DecPtr(decimal.Zero)
	got = kinds(v.Validate(item, entity.ResolutionOutcome{Status: entity.ResolutionNotFound}, "p"))
	assert.Contains(t, got, entity.FindingMissingQuantity)
}

func TestPriceGuardianAsymmetry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PriceBands["eurovinos"] = PriceBand{UpperPct: dec("3"), LowerPct: dec("5")}
	v := New(cfg, nil)
	out := resolved("244.00", "Cava Brut Nature 750ml")

	tests := []struct {
		price string
		want  []entity.FindingKind
	}{
		{price: "236.72", want: nil},                                                // -3%, within the 5% lower band
		{price: "229.36", want: []entity.FindingKind{entity.FindingPriceBelowBand}}, // -6%
		{price: "251.32", want: []entity.FindingKind{entity.FindingPriceAboveBand}}, // +3%, hits the 3% upper band
	}
	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			item := fullItem("CAVA BRUT NATURE 750ML", "1", tt.price, tt.price)
			got := kinds(v.Validate(item, out, "eurovinos"))
			for _, k := range tt.want {
				assert.Contains(t, got, k)
			}
			if tt.want == nil {
				assert.NotContains(t, got, entity.FindingPriceAboveBand)
				assert.NotContains(t, got, entity.FindingPriceBelowBand)
			}
		})
	}
}

func TestPriceGuardianSkipsUnconfiguredProvider(t *testing.T) {
	v := New(DefaultConfig(), nil)
	item := fullItem("VINO", "1", "999.00", "999.00")
	got := kinds(v.Validate(item, resolved("100.00", "Vino Blanco"), "unknown-provider"))
	assert.NotContains(t, got, entity.FindingPriceAboveBand)
}

func TestDescriptionSanity(t *testing.T) {
	v := New(DefaultConfig(), nil)
	outcome := entity.ResolutionOutcome{Status: entity.ResolutionNotFound}

	got := kinds(v.Validate(entity.DetectedLineItem{}, outcome, "p"))
	assert.Contains(t, got, entity.FindingDescriptionEmpty)

	got = kinds(v.Validate(entity.DetectedLineItem{Description: "X2"}, outcome, "p"))
	assert.Contains(t, got, entity.FindingDescriptionShort)
	assert.Contains(t, got, entity.FindingDescriptionNonAlpha)

	got = kinds(v.Validate(entity.DetectedLineItem{Description: "12345 678"}, outcome, "p"))
	assert.Contains(t, got, entity.FindingDescriptionNonAlpha)
	assert.NotContains(t, got, entity.FindingDescriptionShort)
}

func TestResolutionFindings(t *testing.T) {
	v := New(DefaultConfig(), nil)
	item := fullItem("RIOJA CRIANZA 750ML", "2", "150.00", "300.00")

	got := kinds(v.Validate(item, entity.ResolutionOutcome{Status: entity.ResolutionNotFound}, "p"))
	assert.Contains(t, got, entity.FindingNotFound)

	got = kinds(v.Validate(item, entity.ResolutionOutcome{Status: entity.ResolutionAmbiguous, Candidates: 3}, "p"))
	assert.Contains(t, got, entity.FindingAmbiguous)

	got = kinds(v.Validate(item, resolved("150.00", "Rioja Crianza 750ml"), "p"))
	assert.NotContains(t, got, entity.FindingNotFound)
	assert.NotContains(t, got, entity.FindingAmbiguous)
}

func TestStructuralChecks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TruncationLengths["lacastellana"] = 20
	v := New(cfg, nil)

	// truncation at the layout column width
	item := fullItem("VINO TINTO GRAN RESE", "1", "100.00", "100.00")
	got := kinds(v.Validate(item, resolved("100.00", "Vino Tinto Gran Reserva"), "lacastellana"))
	assert.Contains(t, got, entity.FindingDescriptionTruncated)

	// missing variant qualifier: catalog says reserva, detected text does not
	item = fullItem("VINO TINTO 750ML", "1", "100.00", "100.00")
	got = kinds(v.Validate(item, resolved("100.00", "Vino Tinto Reserva 750ml"), "p"))
	assert.Contains(t, got, entity.FindingMissingCriticalToken)

	// capacity mismatch: detected 375ml vs catalog 750ml
	item = fullItem("VINO TINTO RESERVA 375ML", "1", "100.00", "100.00")
	got = kinds(v.Validate(item, resolved("100.00", "Vino Tinto Reserva 750ml"), "p"))
	assert.Contains(t, got, entity.FindingCapacityMismatch)

	// litre units are converted before comparison
	item = fullItem("CAVA MAGNUM 1.5L", "1", "100.00", "100.00")
	got = kinds(v.Validate(item, resolved("100.00", "Cava Magnum 1500ml"), "p"))
	assert.NotContains(t, got, entity.FindingCapacityMismatch)
}

package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"
)

// ToleranceBand mirrors validate.PriceBand at the configuration boundary.
type ToleranceBand struct {
	UpperPct decimal.Decimal `json:"upper_pct"`
	LowerPct decimal.Decimal `json:"lower_pct"`
}

// Tolerances is the externally configurable tolerance set. Price bands are
// keyed by provider identity; they are configuration, not constants scattered
// through validation code.
type Tolerances struct {
	ArithmeticTolerancePct    decimal.Decimal          `json:"arithmetic_tolerance_pct"`
	DocumentTotalTolerancePct decimal.Decimal          `json:"document_total_tolerance_pct"`
	PriceGuardianBands        map[string]ToleranceBand `json:"price_guardian_bands"`
	TruncationLengths         map[string]int           `json:"truncation_lengths"`
}

// DefaultTolerances carries the values the back office has run with,
// including the tighter asymmetric band for eurovinos, whose parser emits
// tax-inclusive prices.
func DefaultTolerances() Tolerances {
	return Tolerances{
		ArithmeticTolerancePct:    decimal.NewFromInt(2),
		DocumentTotalTolerancePct: decimal.NewFromInt(1),
		PriceGuardianBands: map[string]ToleranceBand{
			"lacastellana": {UpperPct: decimal.NewFromInt(10), LowerPct: decimal.NewFromInt(10)},
			"vinosdelsur":  {UpperPct: decimal.NewFromInt(8), LowerPct: decimal.NewFromInt(12)},
			"eurovinos":    {UpperPct: decimal.NewFromInt(3), LowerPct: decimal.NewFromInt(5)},
		},
		TruncationLengths: map[string]int{
			"lacastellana": 40,
		},
	}
}

// BuildTolerancesSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map, used to validate the tolerance file before trusting it.
func BuildTolerancesSchema() map[string]any {
	pct := map[string]any{"type": []any{"number", "string"}}
	band := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"upper_pct": pct,
			"lower_pct": pct,
		},
		"required": []any{"upper_pct", "lower_pct"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"arithmetic_tolerance_pct":     pct,
			"document_total_tolerance_pct": pct,
			"price_guardian_bands": map[string]any{
				"type":                 "object",
				"additionalProperties": band,
			},
			"truncation_lengths": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "integer", "minimum": 0},
			},
		},
	}
}

// LoadTolerances reads and validates the tolerance file at path. An empty
// path returns the defaults. Unset fields fall back to their defaults so a
// partial file only overrides what it names.
func LoadTolerances(path string) (Tolerances, error) {
	tol := DefaultTolerances()
	if path == "" {
		return tol, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return tol, fmt.Errorf("read tolerances: %w", err)
	}
	if err := ValidateJSONAgainstSchema(BuildTolerancesSchema(), data); err != nil {
		return tol, fmt.Errorf("tolerances %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &tol); err != nil {
		return tol, fmt.Errorf("parse tolerances: %w", err)
	}
	if tol.ArithmeticTolerancePct.IsZero() {
		tol.ArithmeticTolerancePct = DefaultTolerances().ArithmeticTolerancePct
	}
	if tol.DocumentTotalTolerancePct.IsZero() {
		tol.DocumentTotalTolerancePct = DefaultTolerances().DocumentTotalTolerancePct
	}
	return tol, nil
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

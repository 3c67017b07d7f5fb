package parsers

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vinodex/invoice-reconciler/internal/entity"
	"github.com/vinodex/invoice-reconciler/internal/normalize"
	"github.com/vinodex/invoice-reconciler/internal/utils"
)

// Eurovinos reads the Eurovinos layout. The renderer detaches prices and row
// amounts from their descriptions: descriptions appear in the body while all
// monetary tokens land in a trailing region. Rows are reconstructed by
// greedily pairing quantities with (unit price, amount) combinations that
// satisfy quantity x price ~ amount within a small tolerance, advancing two
// independent cursors over the token stream.
//
// Eurovinos prices arrive with taxes and discounts already baked in, which is
// why this provider gets its own asymmetric price-guardian band in the
// tolerance configuration.
type Eurovinos struct {
	Log *slog.Logger
}

func NewEurovinos(log *slog.Logger) *Eurovinos {
	if log == nil {
		log = slog.Default()
	}
	return &Eurovinos{Log: log}
}

func (p *Eurovinos) Vendor() string { return "eurovinos" }

// body row: quantity followed by a description of some substance
var reEuroRow = regexp.MustCompile(`^(\d{1,4})\s+([A-Za-zÁÉÍÓÚÑáéíóúñ].{5,})$`)

// pairTolerance for quantity x price ~ amount during reconstruction.
var euroPairTolerance = decimal.NewFromFloat(0.015)

// totals-like anchor, word-bounded so "IMPORTACIONES" does not trip it
var reEuroMoneyAnchor = regexp.MustCompile(`\b(?:subtotal|importe)\b`)

func (p *Eurovinos) Parse(lines []string) (entity.DocumentMetadata, []entity.DetectedLineItem, error) {
	// the monetary region starts at the first totals-like anchor; without one,
	// fall back to the trailing third of the document
	moneyStart := len(lines) * 2 / 3
	for i, line := range lines {
		if reEuroMoneyAnchor.MatchString(normalize.Normalize(line)) {
			moneyStart = i
			break
		}
	}

	var items []entity.DetectedLineItem
	for _, line := range lines[:moneyStart] {
		m := reEuroRow.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		qty, err := decimal.NewFromString(m[1])
		if err != nil || qty.IsZero() {
			continue
		}
		items = append(items, entity.DetectedLineItem{
			Description: strings.TrimSpace(m[2]),
			Quantity:    utils.DecPtr(qty),
			RawSnapshot: strings.TrimSpace(line),
		})
	}

	var tokens []decimal.Decimal
	for _, line := range lines[moneyStart:] {
		for _, tok := range utils.MoneyRe.FindAllString(line, -1) {
			if v, err := utils.ParseMoney(tok); err == nil {
				tokens = append(tokens, v)
			}
		}
	}

	// greedy pairing; pi walks candidate unit prices, ai candidate amounts
	pi, ai := 0, 0
	for idx := range items {
		qty := *items[idx].Quantity
		matched := false
		for i := pi; i < len(tokens) && !matched; i++ {
			price := tokens[i]
			if price.IsZero() {
				continue
			}
			startJ := ai
			if i+1 > startJ {
				startJ = i + 1
			}
			for j := startJ; j < len(tokens); j++ {
				amount := tokens[j]
				if amount.IsZero() {
					continue
				}
				diff := qty.Mul(price).Sub(amount).Abs().Div(amount)
				if diff.LessThanOrEqual(euroPairTolerance) {
					items[idx].UnitPrice = utils.DecPtr(price)
					items[idx].LineTotal = utils.DecPtr(amount)
					pi, ai = i+1, j+1
					matched = true
					break
				}
			}
		}
		if !matched {
			// keep the partial item; the validator flags the missing price
			p.Log.Warn("eurovinos: no price/amount pair for row",
				"description", items[idx].Description, "quantity", qty)
		}
	}

	return entity.DocumentMetadata{}, items, nil
}

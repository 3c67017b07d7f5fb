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

// LaCastellana reads the La Castellana layout: the renderer emits each row as
// a fixed triplet of adjacent lines (quantity, unit token, description), with
// the unit price and row amount within the next few lines.
type LaCastellana struct {
	Log *slog.Logger
}

func NewLaCastellana(log *slog.Logger) *LaCastellana {
	if log == nil {
		log = slog.Default()
	}
	return &LaCastellana{Log: log}
}

func (p *LaCastellana) Vendor() string { return "lacastellana" }

var reCastellanaQty = regexp.MustCompile(`^\d{1,4}(?:\.\d{1,3})?$`)

var castellanaUnits = map[string]struct{}{
	"bot": {}, "botella": {}, "cja": {}, "caja": {}, "pza": {}, "pieza": {}, "pzas": {},
}

// priceWindow is how many lines after the description may carry the unit
// price and row amount before the next triplet begins.
const castellanaPriceWindow = 3

func (p *LaCastellana) Parse(lines []string) (entity.DocumentMetadata, []entity.DetectedLineItem, error) {
	var items []entity.DetectedLineItem
	for i := 0; i+2 < len(lines); i++ {
		qtyLine := strings.TrimSpace(lines[i])
		if !reCastellanaQty.MatchString(qtyLine) {
			continue
		}
		if _, ok := castellanaUnits[normalize.Normalize(lines[i+1])]; !ok {
			continue
		}
		desc := strings.TrimSpace(lines[i+2])

		qty, err := decimal.NewFromString(qtyLine)
		if err != nil {
			continue
		}

		item := entity.DetectedLineItem{
			Description: desc,
			Quantity:    utils.DecPtr(qty),
			RawSnapshot: strings.Join(lines[i:i+3], " | "),
		}

		// unit price first, row amount second; either may be missing and the
		// item is still emitted for the validator to flag
		var monies []decimal.Decimal
		for j := i + 3; j < len(lines) && j <= i+2+castellanaPriceWindow; j++ {
			if reCastellanaQty.MatchString(strings.TrimSpace(lines[j])) {
				break // next triplet started
			}
			for _, tok := range utils.MoneyRe.FindAllString(lines[j], -1) {
				if v, err := utils.ParseMoney(tok); err == nil {
					monies = append(monies, v)
				}
			}
		}
		if len(monies) > 0 {
			item.UnitPrice = utils.DecPtr(monies[0])
		}
		if len(monies) > 1 {
			item.LineTotal = utils.DecPtr(monies[1])
		}
		if item.UnitPrice == nil {
			p.Log.Warn("lacastellana: row without unit price", "description", desc)
		}

		items = append(items, item)
		i += 2
	}

	return entity.DocumentMetadata{}, items, nil
}

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

// VinosDelSur reads the Vinos del Sur layout: one line per row inside a block
// bounded by the "CONCEPTOS" header and the "IMPORTE CON LETRA" footer.
type VinosDelSur struct {
	Log *slog.Logger
}

func NewVinosDelSur(log *slog.Logger) *VinosDelSur {
	if log == nil {
		log = slog.Default()
	}
	return &VinosDelSur{Log: log}
}

func (p *VinosDelSur) Vendor() string { return "vinosdelsur" }

// full row: qty, optional unit token, description, unit price, row amount
var reSurRow = regexp.MustCompile(`^(\d{1,4}(?:\.\d{1,3})?)\s+(?:(?i:PZA|PZAS|BOT|BOTELLA|CJA|CAJA)\s+)?(.+?)\s+(\$?\d[\d,]*\.\d{2})\s+(\$?\d[\d,]*\.\d{2})\s*$`)

// partial row: qty and description with at most one readable money column
var reSurPartialRow = regexp.MustCompile(`^(\d{1,4}(?:\.\d{1,3})?)\s+(?:(?i:PZA|PZAS|BOT|BOTELLA|CJA|CAJA)\s+)?(\D.*?)(?:\s+(\$?\d[\d,]*\.\d{2}))?\s*$`)

func (p *VinosDelSur) Parse(lines []string) (entity.DocumentMetadata, []entity.DetectedLineItem, error) {
	start := -1
	end := len(lines)
	for i, line := range lines {
		n := normalize.Normalize(line)
		if start < 0 && strings.Contains(n, "conceptos") {
			start = i
			continue
		}
		if start >= 0 && strings.Contains(n, "importe con letra") {
			end = i
			break
		}
	}
	if start < 0 {
		// without the section header there is no way to segment anything
		return entity.DocumentMetadata{}, nil, &AnchorMissingError{Vendor: p.Vendor(), Anchor: "CONCEPTOS"}
	}
	if end == len(lines) {
		p.Log.Warn("vinosdelsur: footer anchor missing, scanning to end of document")
	}

	var items []entity.DetectedLineItem
	for _, line := range lines[start+1 : end] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := reSurRow.FindStringSubmatch(line); m != nil {
			qty, err := decimal.NewFromString(m[1])
			if err != nil {
				continue
			}
			item := entity.DetectedLineItem{
				Description: strings.TrimSpace(m[2]),
				Quantity:    utils.DecPtr(qty),
				RawSnapshot: line,
			}
			if v, err := utils.ParseMoney(m[3]); err == nil {
				item.UnitPrice = utils.DecPtr(v)
			}
			if v, err := utils.ParseMoney(m[4]); err == nil {
				item.LineTotal = utils.DecPtr(v)
			}
			items = append(items, item)
			continue
		}
		if m := reSurPartialRow.FindStringSubmatch(line); m != nil {
			// keep the row even without money columns; dropping it silently
			// would leave stock unaccounted for
			qty, err := decimal.NewFromString(m[1])
			if err != nil {
				continue
			}
			item := entity.DetectedLineItem{
				Description: strings.TrimSpace(m[2]),
				Quantity:    utils.DecPtr(qty),
				RawSnapshot: line,
			}
			if m[3] != "" {
				if v, err := utils.ParseMoney(m[3]); err == nil {
					item.UnitPrice = utils.DecPtr(v)
				}
			}
			p.Log.Warn("vinosdelsur: row with incomplete money columns", "line", line)
			items = append(items, item)
		}
	}

	return entity.DocumentMetadata{}, items, nil
}

package parsers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinodex/invoice-reconciler/internal/entity"
)

type stubParser struct{ vendor string }

func (s *stubParser) Vendor() string { return s.vendor }
func (s *stubParser) Parse([]string) (entity.DocumentMetadata, []entity.DetectedLineItem, error) {
	return entity.DocumentMetadata{}, nil, nil
}

func TestRegistrySelect(t *testing.T) {
	r := NewRegistry()
	r.Register("first", []string{"AAA010101XX1", "PRIMERA BODEGA"}, &stubParser{vendor: "first"})
	r.Register("second", []string{"PRIMERA"}, &stubParser{vendor: "second"})

	// registration order wins even when a later vendor's token also matches
	p, err := r.Select([]string{"Factura de PRIMERA BODEGA SA"})
	require.NoError(t, err)
	assert.Equal(t, "first", p.Vendor())

	// token matching is diacritic and case insensitive
	p, err = r.Select([]string{"factura de primera bodéga"})
	require.NoError(t, err)
	assert.Equal(t, "first", p.Vendor())
}

func TestRegistrySelectUnknownVendor(t *testing.T) {
	r := NewRegistry()
	r.Register("lacastellana", []string{"LA CASTELLANA"}, &stubParser{vendor: "lacastellana"})
	r.Register("eurovinos", []string{"EUROVINOS"}, &stubParser{vendor: "eurovinos"})

	_, err := r.Select([]string{"Bodega desconocida SA de CV"})
	var uv *UnknownVendorError
	require.True(t, errors.As(err, &uv))
	assert.Equal(t, []string{"lacastellana", "eurovinos"}, uv.Known)
	assert.Contains(t, uv.Error(), "lacastellana")
}

func TestLaCastellanaTriplets(t *testing.T) {
	lines := []string{
		"LA CASTELLANA SA DE CV",
		"Folio: 4410",
		"12",
		"BOT",
		"VINO TINTO GRAN RESERVA 750ML",
		"$145.00",
		"$1,740.00",
		"6",
		"CJA",
		"MEZCAL ARTESANAL JOVEN",
		"$380.50",
		"$2,283.00",
		"Total $4,023.00",
	}
	p := NewLaCastellana(nil)
	md, items, err := p.Parse(lines)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "VINO TINTO GRAN RESERVA 750ML", items[0].Description)
	assert.Equal(t, "12", items[0].Quantity.String())
	assert.Equal(t, "145", items[0].UnitPrice.String())
	assert.Equal(t, "1740", items[0].LineTotal.String())

	assert.Equal(t, "MEZCAL ARTESANAL JOVEN", items[1].Description)
	assert.Equal(t, "380.5", items[1].UnitPrice.String())

	// document-level fields are the pipeline's pass, not the layout's
	assert.Zero(t, md)
}

func TestLaCastellanaPartialItem(t *testing.T) {
	// price lines missing: the row is still emitted, not dropped
	lines := []string{
		"3",
		"BOT",
		"RIOJA CRIANZA",
		"24",
		"PZA",
		"ALBARIÑO RIAS BAIXAS",
		"$210.00",
		"$5,040.00",
	}
	p := NewLaCastellana(nil)
	_, items, err := p.Parse(lines)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Nil(t, items[0].UnitPrice)
	assert.Nil(t, items[0].LineTotal)
	require.NotNil(t, items[1].UnitPrice)
	assert.Equal(t, "210", items[1].UnitPrice.String())
}

func TestVinosDelSurBlock(t *testing.T) {
	lines := []string{
		"VINOS DEL SUR SA DE CV",
		"CONCEPTOS",
		"12 BOT VINO BLANCO VERDEJO 750ML 98.00 1,176.00",
		"4 CJA TEMPRANILLO ROBLE 1,020.00 4,080.00",
		"2 GINEBRA PREMIUM 750", // unreadable money columns -> partial item
		"IMPORTE CON LETRA: CINCO MIL DOSCIENTOS CINCUENTA Y SEIS PESOS",
		"Total 5,256.00",
	}
	p := NewVinosDelSur(nil)
	_, items, err := p.Parse(lines)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "VINO BLANCO VERDEJO 750ML", items[0].Description)
	assert.Equal(t, "98", items[0].UnitPrice.String())
	assert.Equal(t, "1176", items[0].LineTotal.String())

	assert.Equal(t, "TEMPRANILLO ROBLE", items[1].Description)
	assert.Equal(t, "1020", items[1].UnitPrice.String())

	assert.Equal(t, "GINEBRA PREMIUM 750", items[2].Description)
	assert.Nil(t, items[2].UnitPrice)
	assert.Nil(t, items[2].LineTotal)
}

func TestVinosDelSurMissingHeaderAnchor(t *testing.T) {
	p := NewVinosDelSur(nil)
	_, _, err := p.Parse([]string{"VINOS DEL SUR", "sin seccion de articulos"})
	var am *AnchorMissingError
	require.True(t, errors.As(err, &am))
	assert.Equal(t, "CONCEPTOS", am.Anchor)
}

func TestVinosDelSurMissingFooterFallsBack(t *testing.T) {
	p := NewVinosDelSur(nil)
	_, items, err := p.Parse([]string{
		"CONCEPTOS",
		"6 BOT MALBEC MENDOZA 750ML 150.00 900.00",
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "MALBEC MENDOZA 750ML", items[0].Description)
}

func TestEurovinosTokenPairing(t *testing.T) {
	lines := []string{
		"EUROVINOS IMPORTACIONES",
		"10 CAVA BRUT NATURE 750ML",
		"5 PROSECCO EXTRA DRY 750ML",
		"SUBTOTAL",
		"$120.00",   // unit price row 1
		"$1,200.00", // amount row 1
		"$200.00",   // unit price row 2
		"$1,000.00", // amount row 2
	}
	p := NewEurovinos(nil)
	_, items, err := p.Parse(lines)
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NotNil(t, items[0].UnitPrice)
	assert.Equal(t, "120", items[0].UnitPrice.String())
	assert.Equal(t, "1200", items[0].LineTotal.String())

	require.NotNil(t, items[1].UnitPrice)
	assert.Equal(t, "200", items[1].UnitPrice.String())
	assert.Equal(t, "1000", items[1].LineTotal.String())
}

func TestEurovinosUnpairedRowStaysPartial(t *testing.T) {
	lines := []string{
		"7 VERMUT ROJO 1L",
		"SUBTOTAL",
		"$999.99", // no pair satisfies 7 x price ~ amount
	}
	p := NewEurovinos(nil)
	_, items, err := p.Parse(lines)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].UnitPrice)
	assert.Equal(t, "7", items[0].Quantity.String())
}

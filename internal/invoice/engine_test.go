package invoice

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_ExtractPO_NotFound(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name string
		text string
	}{
		{"empty text", ""},
		{"whitespace only", "   \n\t "},
		{"prose without references", "Factura de servicios varios\nGracias por su compra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.ExtractPO(tt.text)

			assert.False(t, result.Found)
			assert.Empty(t, result.PONumber)
			assert.Empty(t, result.Candidates)
		})
	}
}

func TestEngine_ExtractPO_PrimaryTier(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"po prefix", "Nro PO0345 del mes", "P0345"},
		{"p with space", "Referencia P 0345", "P0345"},
		{"oc prefix", "Entrega OC1234 parcial", "P1234"},
		{"hash po", "Ref interna #PO01234", "P01234"},
		{"hash p", "segun #P03351", "P03351"},
		{"lowercase", "orden po0345", "P0345"},
		{"after label punctuation", "OC: P01234", "P01234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.ExtractPO(tt.text)

			require.True(t, result.Found)
			assert.Equal(t, tt.want, result.PONumber)
			assert.Equal(t, TierPrimary, result.Tier)
			for _, c := range result.Candidates {
				assert.Equal(t, TierPrimary, c.Tier, "tier 1 hit must not run later tiers")
			}
		})
	}
}

func TestEngine_ExtractPO_SecondaryTier(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"purchase order label", "Purchase Order: 4500123", "P4500123"},
		{"corresponde label", "CORRESPONDE A OC-5567", "P5567"},
		{"orden de compra prose", "según orden de compra numero 778899", "P778899"},
		{"p.o. label", "P.O. 12345", "P12345"},
		{"alphanumeric token kept", "REFERENCIA: AB12345", "AB12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.ExtractPO(tt.text)

			require.True(t, result.Found, "candidates: %+v", result.Candidates)
			assert.Equal(t, tt.want, result.PONumber)
			assert.Equal(t, TierSecondary, result.Tier)
		})
	}
}

func TestEngine_ExtractPO_TertiaryTier(t *testing.T) {
	engine := NewEngine(WithMatchers(DefaultMatchers()[2]))

	tests := []struct {
		name      string
		text      string
		wantFound bool
		want      string
	}{
		{"standalone token", "Observaciones: ver documento P01234", true, "P01234"},
		{"in parentheses", "Observaciones (P01234)", true, "P01234"},
		{"postal code", "Av. Corrientes 1234 CP1043 CABA", false, ""},
		{"embedded in remito number", "Remito AP12345 entregado", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.ExtractPO(tt.text)

			assert.Equal(t, tt.wantFound, result.Found, "candidates: %+v", result.Candidates)
			if !tt.wantFound {
				assert.Empty(t, result.Candidates)
				return
			}
			assert.Equal(t, tt.want, result.PONumber)
			assert.Equal(t, TierTertiary, result.Tier)
		})
	}
}

func TestEngine_ExtractPO_EmbeddedPNumbersNotFound(t *testing.T) {
	engine := NewEngine()

	for _, text := range []string{"Av. Corrientes 1234 CP1043 CABA", "Remito AP12345 entregado"} {
		result := engine.ExtractPO(text)
		assert.False(t, result.Found, "text %q candidates: %+v", text, result.Candidates)
	}
}

func TestEngine_ExtractPO_TertiarySkipsCatalogLines(t *testing.T) {
	engine := NewEngine(WithMatchers(DefaultMatchers()[2]))

	result := engine.ExtractPO("CODIGO PRODUCTO P05555 Tornillos")
	assert.False(t, result.Found)
	require.Len(t, result.Candidates, 1)
	assert.True(t, result.Candidates[0].Rejected)
	assert.Equal(t, "catalog context", result.Candidates[0].Reason)
}

func TestInCatalogContext_WindowKeepsWholeRunes(t *testing.T) {
	// "Í" is two bytes, so a plain byte window starting 20 bytes before the
	// digits begins on its continuation byte and loses the keyword.
	text := "ÍTEM" + strings.Repeat(" ", 15) + "P05555"
	start := strings.Index(text, "05555")
	require.Equal(t, catalogContextWindow+1, start)

	assert.True(t, inCatalogContext(text, start, start+5))

	candidates := DefaultMatchers()[2].Match(text)
	require.Len(t, candidates, 1)
	assert.True(t, candidates[0].Rejected)
}

func TestEngine_ExtractPO_RejectedCandidatesAreReported(t *testing.T) {
	engine := NewEngine()

	result := engine.ExtractPO("REF 12")
	assert.False(t, result.Found)
	require.Len(t, result.Candidates, 1)
	assert.True(t, result.Candidates[0].Rejected)
	assert.Equal(t, ErrDisallowedNumber.Error(), result.Candidates[0].Reason)
}

func TestEngine_ExtractPO_SpecialPhrase(t *testing.T) {
	engine := NewEngine()

	result := engine.ExtractPO("Adjunto segun pedido de compra ref #P09999 y remito P12345")
	require.True(t, result.Found)
	assert.True(t, result.Special)
	assert.Equal(t, "P09999", result.PONumber)
	assert.Equal(t, TierSpecial, result.Tier)
	assert.Len(t, result.Candidates, 1)
}

func TestEngine_ExtractPO_SpecialPhraseNeedsFourDigits(t *testing.T) {
	engine := NewEngine()

	result := engine.ExtractPO("pedido de compra #P123")
	assert.False(t, result.Special)
	assert.False(t, result.Found)
}

func TestEngine_WithMatchers(t *testing.T) {
	engine := NewEngine(WithMatchers(DefaultMatchers()[2]))

	result := engine.ExtractPO("PO0345 P0777")
	require.True(t, result.Found)
	assert.Equal(t, "P0777", result.PONumber)
	assert.Equal(t, TierTertiary, result.Tier)
}

func TestEngine_Extract(t *testing.T) {
	fixed := time.Date(2026, 5, 4, 15, 30, 0, 0, time.UTC)
	engine := NewEngine(WithClock(func() time.Time { return fixed }))

	text := "FACTURA A\nOC: P01234\nCUIT: 30-12345678-9\nTOTAL $ 12.100,00"
	data := engine.Extract(text)

	assert.Equal(t, "P01234", data.PONumber)
	assert.Equal(t, "30-12345678-9", data.CUIT)
	assert.Equal(t, "FACTURA_A", data.DocumentType)
	assert.InDelta(t, 12100.0, data.TotalAmount, 0.001)
	assert.InDelta(t, 2100.0, data.IVAAmount, 0.01)
	assert.InDelta(t, 10000.0, data.BaseAmount, 0.01)
	assert.True(t, data.IVAEstimated)
	assert.True(t, data.DateDefaulted)
	assert.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), data.InvoiceDate)
}

func TestEngine_Extract_ExplicitTax(t *testing.T) {
	engine := NewEngine()

	text := "Fecha: 05/03/2024\nSubtotal $ 10.000,00\nIVA 21% $ 2.100,00\nTOTAL $ 12.100,00"
	data := engine.Extract(text)

	assert.False(t, data.IVAEstimated)
	assert.InDelta(t, 2100.0, data.IVAAmount, 0.001)
	assert.InDelta(t, 10000.0, data.BaseAmount, 0.001)
	assert.False(t, data.DateDefaulted)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), data.InvoiceDate)
}

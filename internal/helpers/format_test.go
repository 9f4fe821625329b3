package helpers

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeColumnName(t *testing.T) {
	tests := map[string]string{
		"Motorista":       "motorista",
		"  Período  ":     "periodo",
		"Preço Unitário":  "preco_unitario",
		"KM (total)":      "km_total",
		"Ação/Status":     "acao_status",
		"__x__":           "x",
		"":                "unnamed",
		"!!!":             "unnamed",
		"Data de Emissão": "data_de_emissao",
		"Nº Paradas":      "n_paradas",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeColumnName(in), in)
	}
}

func TestNormalizeColumnNamesDedupes(t *testing.T) {
	got := NormalizeColumnNames([]string{"Valor", "valor", "VALOR ", "", ""})
	assert.Equal(t, []string{"valor", "valor_2", "valor_3", "unnamed", "unnamed_2"}, got)
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "R$ 1.234,56", FormatCurrency(1234.56))
	assert.Equal(t, "R$ 0,00", FormatCurrency(0))
	assert.Equal(t, "R$ 0,00", FormatCurrency(math.NaN()))
	assert.Equal(t, "R$ 1.000.000,00", FormatCurrency(1e6))
}

func TestFormatPercentage(t *testing.T) {
	assert.Equal(t, "12,50%", FormatPercentage(12.5, 2))
	assert.Equal(t, "-3,1%", FormatPercentage(-3.14, 1))
	assert.Equal(t, "0,00%", FormatPercentage(math.NaN(), 2))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "1,234.56", FormatNumber(1234.561, 2))
	assert.Equal(t, "12", FormatNumber(12, 0))
	assert.Equal(t, "-", FormatNumber(math.NaN(), 2))
}

func TestFormatCompact(t *testing.T) {
	assert.Equal(t, "1.50K", FormatCompact(1500))
	assert.Equal(t, "2.00M", FormatCompact(2e6))
	assert.Equal(t, "-1.20K", FormatCompact(-1200))
	assert.Equal(t, "999.00", FormatCompact(999))
}

func TestFormatHours(t *testing.T) {
	assert.Equal(t, "8:30", FormatHours(8.5))
	assert.Equal(t, "0:00", FormatHours(0))
	assert.Equal(t, "10:05", FormatHours(10.0833))
	assert.Equal(t, "9:00", FormatHours(8.9999))
	assert.Equal(t, "-1:15", FormatHours(-1.25))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "05/03/2024", FormatDate(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "", FormatDate(time.Time{}))
}

func TestPercentageChangeAndTrend(t *testing.T) {
	change, ok := PercentageChange(150, 100)
	assert.True(t, ok)
	assert.InDelta(t, 50.0, change, 1e-9)
	assert.Equal(t, TrendUp, TrendIndicator(change, ok))

	change, ok = PercentageChange(50, 100)
	assert.True(t, ok)
	assert.Equal(t, TrendDown, TrendIndicator(change, ok))

	_, ok = PercentageChange(10, 0)
	assert.False(t, ok)
	assert.Equal(t, TrendFlat, TrendIndicator(0, ok))
	assert.Equal(t, "▲", TrendUp.Arrow())
}

package testkit

import (
	"math"
	"math/rand"
	"time"

	"kpidash/adapters/excel"
	"kpidash/internal/helpers"
)

// SalesGeneratorConfig configures the sales data generator
type SalesGeneratorConfig struct {
	Days          int       `json:"days"`
	OrdersPerDay  int       `json:"orders_per_day"`
	StartDate     time.Time `json:"start_date"`
	Categories    []string  `json:"categories"`
	Segments      []string  `json:"segments"`
	BaseValue     float64   `json:"base_value"`
	DailyGrowth   float64   `json:"daily_growth"` // relative growth of BaseValue per day
	Seed          int64     `json:"seed"`
	BrazilianText bool      `json:"brazilian_text"` // write values as "R$ 1.234,56" strings
}

// DefaultSalesConfig returns sensible defaults for sales data generation
func DefaultSalesConfig() SalesGeneratorConfig {
	return SalesGeneratorConfig{
		Days:         60,
		OrdersPerDay: 4,
		StartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Categories:   []string{"Eletrônicos", "Mercado", "Vestuário"},
		Segments:     []string{"Varejo", "Atacado"},
		BaseValue:    100,
		DailyGrowth:  0.01,
		Seed:         42,
	}
}

// SalesGenerator generates a daily sales sheet with a steady upward trend
type SalesGenerator struct {
	config SalesGeneratorConfig
	rng    *rand.Rand
}

// NewSalesGenerator creates a new sales generator
func NewSalesGenerator(config SalesGeneratorConfig) *SalesGenerator {
	return &SalesGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// SalesHeaders are the columns of the generated sheet
var SalesHeaders = []string{"Data", "Categoria", "Segmento", "Valor Total", "Quantidade"}

// Sheet generates the rows. Dates are written as dd/mm/yyyy text.
func (g *SalesGenerator) Sheet(name string) excel.SheetData {
	rows := make([][]interface{}, 0, g.config.Days*g.config.OrdersPerDay)
	for d := 0; d < g.config.Days; d++ {
		day := g.config.StartDate.AddDate(0, 0, d)
		trend := g.config.BaseValue * (1 + g.config.DailyGrowth*float64(d))
		for o := 0; o < g.config.OrdersPerDay; o++ {
			value := math.Round(trend*(0.8+0.4*g.rng.Float64())*100) / 100
			var cell interface{} = value
			if g.config.BrazilianText {
				cell = helpers.FormatCurrency(value)
			}
			rows = append(rows, []interface{}{
				day.Format("02/01/2006"),
				g.config.Categories[g.rng.Intn(len(g.config.Categories))],
				g.config.Segments[g.rng.Intn(len(g.config.Segments))],
				cell,
				1 + g.rng.Intn(5),
			})
		}
	}
	return excel.SheetData{Name: name, Headers: SalesHeaders, Rows: rows}
}

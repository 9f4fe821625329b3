package loader

import (
	"time"

	"kpidash/adapters/datareadiness/coercer"
	"kpidash/internal/validation"
)

// Options configures how a workbook becomes a table
type Options struct {
	Path            string
	Sheet           string // empty selects the first usable sheet
	MaxFileSize     int64
	MaxStringLength int
	DropColumns     []string
	MinDate         time.Time
	MaxDate         time.Time

	DateKeywords     []string
	ValueKeywords    []string
	CategoryKeywords []string
	MaxCategories    int     // distinct values above which a text column is free text
	MaxUniqueRatio   float64 // distinct/non-null ratio at or above which a text column is free text
}

// Column name fragments that hint at a column's role
var (
	DefaultDateKeywords     = []string{"data", "date", "dt", "periodo", "mes", "ano"}
	DefaultValueKeywords    = []string{"valor", "value", "total", "montante", "receita", "despesa", "custo", "preco", "quantidade"}
	DefaultCategoryKeywords = []string{"categoria", "category", "tipo", "status", "segmento", "grupo", "classe", "classificacao"}
)

// DefaultOptions returns the ingestion defaults for path
func DefaultOptions(path string) Options {
	cc := coercer.DefaultConfig()
	return Options{
		Path:             path,
		MaxFileSize:      validation.DefaultMaxFileSize,
		MaxStringLength:  validation.DefaultMaxStringLength,
		DropColumns:      []string{"rota"},
		MinDate:          cc.MinDate,
		MaxDate:          cc.MaxDate,
		DateKeywords:     DefaultDateKeywords,
		ValueKeywords:    DefaultValueKeywords,
		CategoryKeywords: DefaultCategoryKeywords,
		MaxCategories:    50,
		MaxUniqueRatio:   0.3,
	}
}

func (o Options) coercerConfig() coercer.Config {
	cc := coercer.DefaultConfig()
	if !o.MinDate.IsZero() {
		cc.MinDate = o.MinDate
	}
	if !o.MaxDate.IsZero() {
		cc.MaxDate = o.MaxDate
	}
	return cc
}

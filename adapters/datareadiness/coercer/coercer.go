package coercer

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/xuri/excelize/v2"
)

// Coercer turns raw spreadsheet strings into numbers and dates
type Coercer struct {
	config Config
}

// Config defines the accepted date window and the sampling thresholds used
// when deciding a column's type
type Config struct {
	MinDate           time.Time `json:"min_date"`
	MaxDate           time.Time `json:"max_date"`
	DateThreshold     float64   `json:"date_threshold"`    // share of samples that must parse as dates
	NumericThreshold  float64   `json:"numeric_threshold"` // share of samples that must parse as numbers
	DateSampleSize    int       `json:"date_sample_size"`
	NumericSampleSize int       `json:"numeric_sample_size"`
}

// DefaultConfig returns the ingestion defaults
func DefaultConfig() Config {
	return Config{
		MinDate:           time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxDate:           time.Date(2100, 12, 31, 23, 59, 59, 0, time.UTC),
		DateThreshold:     0.5,
		NumericThreshold:  0.7,
		DateSampleSize:    10,
		NumericSampleSize: 20,
	}
}

// New creates a coercer with the given config
func New(config Config) *Coercer {
	return &Coercer{config: config}
}

// Config returns the coercer's configuration
func (c *Coercer) Config() Config {
	return c.config
}

// DateFormats are tried in order; day-first wins over month-first
var DateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"02-01-2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02/01/2006 15:04:05",
}

var currencySymbols = []string{"R$", "US$", "$", "€", "£", "¥", "BRL", "USD", "EUR", "GBP", "JPY"}

// ParseNumber parses a human formatted number. Handles parentheses for
// negatives, currency symbols, percent signs and European decimals.
func (c *Coercer) ParseNumber(raw string) (float64, bool) {
	return ParseNumber(raw)
}

// ParseNumber is the package level form of Coercer.ParseNumber
func ParseNumber(raw string) (float64, bool) {
	cleanVal := strings.TrimSpace(raw)
	if cleanVal == "" {
		return 0, false
	}

	// (123) -> -123
	isNegative := false
	if strings.HasPrefix(cleanVal, "(") && strings.HasSuffix(cleanVal, ")") {
		cleanVal = strings.TrimSuffix(strings.TrimPrefix(cleanVal, "("), ")")
		isNegative = true
	}

	for _, symbol := range currencySymbols {
		cleanVal = strings.ReplaceAll(cleanVal, symbol, "")
	}
	cleanVal = strings.ReplaceAll(cleanVal, "%", "")
	cleanVal = strings.ReplaceAll(cleanVal, " ", " ")
	cleanVal = strings.TrimSpace(cleanVal)

	hasComma := strings.Contains(cleanVal, ",")
	hasPeriod := strings.Contains(cleanVal, ".")
	hasSpace := strings.Contains(cleanVal, " ")

	switch {
	case hasComma && (hasPeriod || hasSpace):
		// 1.234,56 or 1 234,56 when the comma comes last, 1,234.56 otherwise
		commaIdx := strings.LastIndex(cleanVal, ",")
		if commaIdx > strings.LastIndex(cleanVal, ".") && allDigits(cleanVal[commaIdx+1:]) {
			cleanVal = strings.ReplaceAll(cleanVal, ".", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
			cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
		} else {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
		}
	case hasComma && strings.Count(cleanVal, ",") > 1:
		cleanVal = strings.ReplaceAll(cleanVal, ",", "")
	case hasComma:
		cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
	default:
		cleanVal = strings.ReplaceAll(cleanVal, " ", "")
	}

	if isNegative {
		if strings.HasPrefix(cleanVal, "-") {
			return 0, false
		}
		cleanVal = "-" + cleanVal
	}

	val, err := strconv.ParseFloat(cleanVal, 64)
	if err != nil || math.IsInf(val, 0) || math.IsNaN(val) {
		return 0, false
	}
	return val, true
}

// IsPlainNumber reports whether raw is a machine formatted number, the way
// spreadsheet engines store numeric cells
func IsPlainNumber(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" {
		return false
	}
	val, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsInf(val, 0) && !math.IsNaN(val)
}

// ParseDate parses raw against DateFormats. When allowSerial is set, plain
// numbers are read as Excel serial dates. Dates outside the configured window
// are rejected.
func (c *Coercer) ParseDate(raw string, allowSerial bool) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	t, ok := parseDateLayouts(s)
	if !ok && allowSerial {
		t, ok = parseExcelSerial(s)
	}
	if !ok {
		return time.Time{}, false
	}
	if t.Before(c.config.MinDate) || t.After(c.config.MaxDate) {
		return time.Time{}, false
	}
	return t, true
}

func parseDateLayouts(s string) (time.Time, bool) {
	for _, layout := range DateFormats {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseExcelSerial(s string) (time.Time, bool) {
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial < 1 || serial > 2958465 {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC().Round(time.Second), true
}

// DateRatio is the share of the first DateSampleSize non-empty samples that
// parse as dates
func (c *Coercer) DateRatio(values []string, allowSerial bool) float64 {
	return sampleRatio(values, c.config.DateSampleSize, func(s string) bool {
		_, ok := c.ParseDate(s, allowSerial)
		return ok
	})
}

// NumericRatio is the share of the first NumericSampleSize non-empty samples
// that parse as numbers
func (c *Coercer) NumericRatio(values []string) float64 {
	return sampleRatio(values, c.config.NumericSampleSize, func(s string) bool {
		_, ok := ParseNumber(s)
		return ok
	})
}

// LooksLikeDates applies DateThreshold to DateRatio
func (c *Coercer) LooksLikeDates(values []string, allowSerial bool) bool {
	return c.DateRatio(values, allowSerial) >= c.config.DateThreshold
}

// LooksNumeric applies NumericThreshold to NumericRatio
func (c *Coercer) LooksNumeric(values []string) bool {
	return c.NumericRatio(values) >= c.config.NumericThreshold
}

// AllPlainNumbers reports whether every non-empty value is a plain number.
// A column with no values at all is not numeric.
func AllPlainNumbers(values []string) bool {
	seen := false
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if !IsPlainNumber(v) {
			return false
		}
		seen = true
	}
	return seen
}

func sampleRatio(values []string, limit int, accept func(string) bool) float64 {
	total, hits := 0, 0
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		total++
		if accept(v) {
			hits++
		}
		if limit > 0 && total >= limit {
			break
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

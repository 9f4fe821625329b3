// Package helpers holds the small formatting and naming functions shared by
// the loader, the dashboard and the CLI.
package helpers

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonIdentifier = regexp.MustCompile(`[^a-z0-9_]`)
	underscores   = regexp.MustCompile(`_+`)

	brPrinter = message.NewPrinter(language.BrazilianPortuguese)
	enPrinter = message.NewPrinter(language.English)
)

// StripAccents removes combining marks: "Período" -> "Periodo"
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeColumnName lowercases, strips accents and replaces anything outside
// [a-z0-9_] with underscores. Empty results become "unnamed".
func NormalizeColumnName(name string) string {
	col := StripAccents(strings.ToLower(strings.TrimSpace(name)))
	col = nonIdentifier.ReplaceAllString(col, "_")
	col = underscores.ReplaceAllString(col, "_")
	col = strings.Trim(col, "_")
	if col == "" {
		return "unnamed"
	}
	return col
}

// NormalizeColumnNames normalizes every name and suffixes repeats with _2, _3...
func NormalizeColumnNames(names []string) []string {
	out := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	for i, name := range names {
		base := NormalizeColumnName(name)
		candidate := base
		for n := 2; taken[candidate]; n++ {
			candidate = base + "_" + strconv.Itoa(n)
		}
		taken[candidate] = true
		out[i] = candidate
	}
	return out
}

// FormatCurrency renders Brazilian money: R$ 1.234,56
func FormatCurrency(value float64) string {
	if math.IsNaN(value) {
		value = 0
	}
	return brPrinter.Sprintf("R$ %.2f", value)
}

// FormatPercentage renders a percent with a decimal comma: 12,50%
func FormatPercentage(value float64, decimals int) string {
	if math.IsNaN(value) {
		value = 0
	}
	return strings.Replace(strconv.FormatFloat(value, 'f', decimals, 64), ".", ",", 1) + "%"
}

// FormatNumber renders a number with thousands separators: 1,234.56
func FormatNumber(value float64, decimals int) string {
	if math.IsNaN(value) {
		return "-"
	}
	return enPrinter.Sprintf("%.*f", decimals, value)
}

// FormatCompact shortens large numbers: 1500 -> 1.50K, 2000000 -> 2.00M
func FormatCompact(value float64) string {
	abs := math.Abs(value)
	switch {
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", value/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fK", value/1e3)
	}
	return fmt.Sprintf("%.2f", value)
}

// FormatHours renders decimal hours as H:MM, 8.5 -> 8:30
func FormatHours(hours float64) string {
	if math.IsNaN(hours) {
		return "-"
	}
	sign := ""
	if hours < 0 {
		sign = "-"
		hours = -hours
	}
	total := int(math.Round(hours * 60))
	return fmt.Sprintf("%s%d:%02d", sign, total/60, total%60)
}

// FormatDate renders a day as dd/mm/yyyy
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

// PercentageChange returns (current-previous)/previous*100. It is undefined
// when previous is zero.
func PercentageChange(current, previous float64) (float64, bool) {
	if previous == 0 || math.IsNaN(previous) || math.IsNaN(current) {
		return 0, false
	}
	return (current - previous) / previous * 100, true
}

// Trend is the direction of a change
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// TrendIndicator classifies a change. An undefined change is flat.
func TrendIndicator(change float64, defined bool) Trend {
	switch {
	case !defined || change == 0:
		return TrendFlat
	case change > 0:
		return TrendUp
	}
	return TrendDown
}

// Arrow is the glyph shown next to a KPI delta
func (t Trend) Arrow() string {
	switch t {
	case TrendUp:
		return "▲"
	case TrendDown:
		return "▼"
	}
	return "▶"
}

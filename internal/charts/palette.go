// Package charts renders dashboard charts as SVG with go-chart and builds
// the data behind the HTML heatmap.
package charts

import (
	"fmt"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Palette holds the dashboard colors as hex strings
type Palette struct {
	Primary string `json:"primary"`
	Success string `json:"success"`
	Warning string `json:"warning"`
	Danger  string `json:"danger"`
	Info    string `json:"info"`
}

// DefaultPalette is the dashboard color scheme
var DefaultPalette = Palette{
	Primary: "#1f77b4",
	Success: "#2ca02c",
	Warning: "#ff7f0e",
	Danger:  "#d62728",
	Info:    "#17a2b8",
}

// Series returns the colors used for successive series
func (p Palette) Series() []drawing.Color {
	return []drawing.Color{
		Color(p.Primary), Color(p.Success), Color(p.Warning),
		Color(p.Danger), Color(p.Info),
		Color("#9467bd"), Color("#8c564b"), Color("#e377c2"),
	}
}

// Color parses "#rrggbb" (leading # optional)
func Color(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

// CSS renders a color as an rgb() value
func CSS(c drawing.Color) string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// Blend mixes from toward to by f in [0, 1]
func Blend(from, to drawing.Color, f float64) drawing.Color {
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	mix := func(a, b uint8) uint8 { return uint8(float64(a) + (float64(b)-float64(a))*f + 0.5) }
	return drawing.Color{R: mix(from.R, to.R), G: mix(from.G, to.G), B: mix(from.B, to.B), A: 255}
}

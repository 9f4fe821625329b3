package charts

import (
	"io"
	"math"
	"sort"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"kpidash/domain/core"
)

// ErrNotEnoughData is returned when a chart has nothing meaningful to draw
var ErrNotEnoughData = core.ErrNotEnoughData

// Default canvas size
const (
	DefaultWidth  = 900
	DefaultHeight = 400
)

// Options are shared by every chart
type Options struct {
	Title   string
	XLabel  string
	YLabel  string
	Width   int
	Height  int
	Palette Palette
}

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}

func (o Options) palette() Palette {
	if o.Palette.Primary == "" {
		return DefaultPalette
	}
	return o.Palette
}

// Point is one dated observation
type Point struct {
	X time.Time
	Y float64
}

// Series is a named time series
type Series struct {
	Name   string
	Points []Point
}

// Bar is a labelled value
type Bar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Pair is one group of a comparison chart
type Pair struct {
	Label string  `json:"label"`
	A     float64 `json:"a"`
	B     float64 `json:"b"`
}

var background = chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}}

// Line draws one line per series over a time axis
func Line(w io.Writer, opts Options, series ...Series) error {
	return timeChart(w, opts, false, series)
}

// Area draws a single series filled down to zero
func Area(w io.Writer, opts Options, s Series) error {
	return timeChart(w, opts, true, []Series{s})
}

func timeChart(w io.Writer, opts Options, fill bool, series []Series) error {
	colors := opts.palette().Series()
	var out []chart.Series
	var xs []time.Time
	var ys []float64
	for i, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		ts := chart.TimeSeries{Name: s.Name}
		for _, p := range s.Points {
			ts.XValues = append(ts.XValues, p.X)
			ts.YValues = append(ts.YValues, p.Y)
		}
		color := colors[i%len(colors)]
		ts.Style = chart.Style{StrokeColor: color, StrokeWidth: 2, DotColor: color, DotWidth: 3}
		if fill {
			ts.Style.FillColor = drawing.Color{R: color.R, G: color.G, B: color.B, A: 77}
			ts.Style.DotWidth = 0
		}
		xs = append(xs, ts.XValues...)
		ys = append(ys, ts.YValues...)
		out = append(out, ts)
	}
	if len(out) == 0 || !spansTime(xs) {
		return ErrNotEnoughData
	}

	width, height := opts.size()
	c := chart.Chart{
		Title:      opts.Title,
		Width:      width,
		Height:     height,
		Background: background,
		XAxis: chart.XAxis{
			Name:           opts.XLabel,
			ValueFormatter: chart.TimeValueFormatterWithFormat("02/01/06"),
		},
		YAxis: chart.YAxis{
			Name:  opts.YLabel,
			Range: valueRange(ys),
		},
		Series: out,
	}
	if len(out) > 1 {
		c.Elements = []chart.Renderable{chart.Legend(&c)}
	}
	return c.Render(chart.SVG, w)
}

// Bars draws vertical bars in the given order
func Bars(w io.Writer, opts Options, bars []Bar) error {
	if len(bars) == 0 {
		return ErrNotEnoughData
	}
	color := Color(opts.palette().Primary)
	values := make([]chart.Value, len(bars))
	ys := make([]float64, len(bars))
	for i, b := range bars {
		values[i] = chart.Value{Label: b.Label, Value: b.Value, Style: chart.Style{FillColor: color, StrokeColor: drawing.ColorWhite, StrokeWidth: 1}}
		ys[i] = b.Value
	}
	return renderBars(w, opts, values, ys)
}

// Ranking draws the top n bars by value, largest first, shaded from the
// primary color toward white
func Ranking(w io.Writer, opts Options, bars []Bar, n int) error {
	ranked := TopBars(bars, n)
	if len(ranked) == 0 {
		return ErrNotEnoughData
	}
	primary := Color(opts.palette().Primary)
	values := make([]chart.Value, len(ranked))
	ys := make([]float64, len(ranked))
	for i, b := range ranked {
		shade := Blend(primary, drawing.ColorWhite, 0.6*float64(i)/float64(len(ranked)))
		values[i] = chart.Value{Label: b.Label, Value: b.Value, Style: chart.Style{FillColor: shade, StrokeColor: drawing.ColorWhite, StrokeWidth: 1}}
		ys[i] = b.Value
	}
	return renderBars(w, opts, values, ys)
}

// Comparison draws two bars per group side by side: A in the primary color,
// B in the success color. The group label sits under the A bar.
func Comparison(w io.Writer, opts Options, pairs []Pair) error {
	if len(pairs) == 0 {
		return ErrNotEnoughData
	}
	p := opts.palette()
	a, b := Color(p.Primary), Color(p.Success)
	var values []chart.Value
	var ys []float64
	for _, pair := range pairs {
		values = append(values,
			chart.Value{Label: pair.Label, Value: pair.A, Style: chart.Style{FillColor: a, StrokeColor: a}},
			chart.Value{Label: " ", Value: pair.B, Style: chart.Style{FillColor: b, StrokeColor: b}},
		)
		ys = append(ys, pair.A, pair.B)
	}
	return renderBars(w, opts, values, ys)
}

func renderBars(w io.Writer, opts Options, values []chart.Value, ys []float64) error {
	width, height := opts.size()
	barWidth := (width - 80) / (len(values) * 2)
	if barWidth > 60 {
		barWidth = 60
	}
	if barWidth < 4 {
		barWidth = 4
	}
	bc := chart.BarChart{
		Title:      opts.Title,
		Width:      width,
		Height:     height,
		Background: background,
		BarWidth:   barWidth,
		BarSpacing: barWidth / 2,
		XAxis:      chart.Style{TextRotationDegrees: rotation(values)},
		YAxis: chart.YAxis{
			Name:  opts.YLabel,
			Range: valueRange(ys),
		},
		Bars: values,
	}
	return bc.Render(chart.SVG, w)
}

// Pie draws the positive slices. Nothing positive is not enough data.
func Pie(w io.Writer, opts Options, bars []Bar) error {
	colors := opts.palette().Series()
	var values []chart.Value
	for i, b := range bars {
		if b.Value <= 0 || math.IsNaN(b.Value) {
			continue
		}
		c := colors[i%len(colors)]
		values = append(values, chart.Value{Label: b.Label, Value: b.Value, Style: chart.Style{FillColor: c, StrokeColor: drawing.ColorWhite}})
	}
	if len(values) == 0 {
		return ErrNotEnoughData
	}
	width, height := opts.size()
	pc := chart.PieChart{
		Title:      opts.Title,
		Width:      width,
		Height:     height,
		Background: background,
		Values:     values,
	}
	return pc.Render(chart.SVG, w)
}

// TopBars sorts by value descending (ties by label) and keeps n, all when
// n <= 0. The input is not modified.
func TopBars(bars []Bar, n int) []Bar {
	out := append([]Bar(nil), bars...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Label < out[j].Label
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func spansTime(xs []time.Time) bool {
	for _, x := range xs[1:] {
		if !x.Equal(xs[0]) {
			return true
		}
	}
	return false
}

// valueRange always includes zero and never has a zero delta
func valueRange(ys []float64) *chart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, y := range ys {
		if math.IsNaN(y) {
			continue
		}
		lo = math.Min(lo, y)
		hi = math.Max(hi, y)
	}
	if hi == lo {
		hi = lo + 1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi * 1.05}
}

func rotation(values []chart.Value) float64 {
	if len(values) > 8 {
		return 45
	}
	return 0
}

// Package render rasterizes a composed dashboard layer to PNG.
package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"brent-dashboard-api/internal/dashboard"
)

// ErrEmptyChart is returned when the layer has no plottable price.
var ErrEmptyChart = errors.New("render: no price data to plot")

var (
	priceColor       = drawing.ColorFromHex("007bff")
	changePointColor = drawing.ColorFromHex("ff0000")
	eventFillColor   = drawing.ColorFromHex("facc15")
	eventStrokeColor = drawing.ColorFromHex("b45309")
)

type Options struct {
	Width  int
	Height int
	Title  string
}

// DefaultOptions matches the dashboard's chart section.
func DefaultOptions() Options {
	return Options{Width: 1200, Height: 400, Title: "Historical Brent Oil Prices"}
}

// PNG draws the price line, the change-point line and the event markers.
// Dates that do not parse are left out of the image only.
func PNG(layer dashboard.RenderLayer, opts Options, w io.Writer) error {
	times, prices := priceSeries(layer)
	if len(times) == 0 {
		return ErrEmptyChart
	}

	lo, hi := bounds(prices)
	var markerTimes []time.Time
	var markerPrices []float64
	for _, m := range layer.EventMarkers {
		t, err := m.Date.Time()
		if err != nil {
			continue
		}
		markerTimes = append(markerTimes, t)
		markerPrices = append(markerPrices, m.Price)
		lo = math.Min(lo, m.Price)
		hi = math.Max(hi, m.Price)
	}

	// go-chart rejects a zero-width range.
	if len(times) == 1 {
		times = append(times, times[0].Add(24*time.Hour))
		prices = append(prices, prices[0])
	}
	pad := math.Max(1, (hi-lo)*0.05)

	series := []chart.Series{
		chart.TimeSeries{
			Name:    layer.SeriesName,
			XValues: times,
			YValues: prices,
			Style: chart.Style{
				StrokeColor: priceColor,
				StrokeWidth: 2,
			},
		},
	}

	if cp := layer.ChangePoint; cp != nil {
		if t, err := cp.Date.Time(); err == nil {
			series = append(series, chart.TimeSeries{
				Name:    cp.Label,
				XValues: []time.Time{t, t},
				YValues: []float64{lo - pad, hi + pad},
				Style: chart.Style{
					StrokeColor:     changePointColor,
					StrokeWidth:     1.5,
					StrokeDashArray: []float64{5, 5},
				},
			})
		}
	}

	legendSeries := append([]chart.Series(nil), series...)

	// Markers are dots only. The darker, wider layer underneath shows as an
	// outline around the fill.
	if len(markerTimes) > 0 {
		series = append(series,
			markerSeries("Events", markerTimes, markerPrices, eventStrokeColor, 8),
			markerSeries("", markerTimes, markerPrices, eventFillColor, 5),
		)
	}

	ch := chart.Chart{
		Title:      opts.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 20, Right: 30, Bottom: 10}},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:  layer.SeriesName,
			Range: &chart.ContinuousRange{Min: lo - pad, Max: hi + pad},
		},
		Series: series,
	}
	legend := ch
	legend.Series = legendSeries
	ch.Elements = []chart.Renderable{chart.Legend(&legend)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func markerSeries(name string, xs []time.Time, ys []float64, color drawing.Color, width float64) chart.TimeSeries {
	return chart.TimeSeries{
		Name:    name,
		XValues: xs,
		YValues: ys,
		Style: chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    width,
			DotColor:    color,
		},
	}
}

func priceSeries(layer dashboard.RenderLayer) ([]time.Time, []float64) {
	times := make([]time.Time, 0, len(layer.PriceLine))
	prices := make([]float64, 0, len(layer.PriceLine))
	for _, p := range layer.PriceLine {
		t, err := p.Date.Time()
		if err != nil {
			continue
		}
		times = append(times, t)
		prices = append(prices, p.Price)
	}
	return times, prices
}

func bounds(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

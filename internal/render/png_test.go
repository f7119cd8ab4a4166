package render

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"

	"brent-dashboard-api/internal/dashboard"
	"brent-dashboard-api/internal/models"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func testLayer() dashboard.RenderLayer {
	m := dashboard.NewModel(
		[]models.PricePoint{
			{Date: "2020-01-01", Price: 60.0},
			{Date: "2020-01-02", Price: 61.5},
			{Date: "2020-01-03", Price: 59.2},
		},
		[]models.MarketEvent{
			{Date: "2020-01-02", Type: "OPEC", Description: "Output cut announced"},
			{Date: "2020-01-05", Type: "Conflict", Description: "Weekend event"},
		},
		&models.ChangePointAnalysis{
			ChangePointDate: "2020-01-02",
			Before:          &models.PeriodStats{MeanPrice: 60, Volatility: 1},
			After:           &models.PeriodStats{MeanPrice: 60.3, Volatility: 1.2},
		},
	)
	return dashboard.Compose(m)
}

func TestPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := PNG(testLayer(), Options{Width: 600, Height: 300, Title: "test"}, &buf); err != nil {
		t.Fatalf("PNG() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), pngSignature) {
		t.Error("output is not a PNG")
	}
}

func TestPNG_EmptyLayer(t *testing.T) {
	var buf bytes.Buffer
	err := PNG(dashboard.Compose(nil), DefaultOptions(), &buf)
	if !errors.Is(err, ErrEmptyChart) {
		t.Errorf("err = %v, want ErrEmptyChart", err)
	}
	if buf.Len() != 0 {
		t.Error("nothing should be written for an empty layer")
	}
}

func TestPNG_SinglePoint(t *testing.T) {
	layer := dashboard.Compose(dashboard.NewModel(
		[]models.PricePoint{{Date: "2020-01-01", Price: 60.0}},
		nil,
		nil,
	))

	var buf bytes.Buffer
	if err := PNG(layer, DefaultOptions(), &buf); err != nil {
		t.Fatalf("PNG() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), pngSignature) {
		t.Error("output is not a PNG")
	}
}

func TestPNG_SkipsUnparsableDates(t *testing.T) {
	layer := testLayer()
	layer.PriceLine = append(layer.PriceLine, dashboard.LinePoint{Date: "not-a-date", Price: 1000})
	layer.EventMarkers = append(layer.EventMarkers, dashboard.ReferenceDot{Date: "??", Type: "Bad"})

	var buf bytes.Buffer
	if err := PNG(layer, DefaultOptions(), &buf); err != nil {
		t.Fatalf("PNG() error = %v", err)
	}

	times, prices := priceSeries(layer)
	if len(times) != 3 || len(prices) != 3 {
		t.Errorf("priceSeries kept %d points, want 3", len(times))
	}
}

func TestPNG_OnlyUnparsableDates(t *testing.T) {
	layer := dashboard.RenderLayer{
		SeriesName: dashboard.PriceSeriesName,
		PriceLine:  []dashboard.LinePoint{{Date: "bad", Price: 1}},
	}

	if err := PNG(layer, DefaultOptions(), &bytes.Buffer{}); !errors.Is(err, ErrEmptyChart) {
		t.Errorf("err = %v, want ErrEmptyChart", err)
	}
}

func TestBounds(t *testing.T) {
	lo, hi := bounds([]float64{3, -1, 7.5, 2})
	if lo != -1 || hi != 7.5 {
		t.Errorf("bounds = %v, %v; want -1, 7.5", lo, hi)
	}
}

func decodePNG(t *testing.T, layer dashboard.RenderLayer) image.Image {
	t.Helper()

	var buf bytes.Buffer
	if err := PNG(layer, DefaultOptions(), &buf); err != nil {
		t.Fatalf("PNG() error = %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decoding PNG: %v", err)
	}
	return img
}

func nearColor(r, g, b uint32, want [3]uint32) bool {
	diff := func(a, b uint32) uint32 {
		if a > b {
			return a - b
		}
		return b - a
	}
	return diff(r>>8, want[0]) < 24 && diff(g>>8, want[1]) < 24 && diff(b>>8, want[2]) < 24
}

func TestPNG_EventMarkersAreNotJoined(t *testing.T) {
	base := dashboard.RenderLayer{
		SeriesName: dashboard.PriceSeriesName,
		PriceLine: []dashboard.LinePoint{
			{Date: "2020-01-01", Price: 50},
			{Date: "2020-04-01", Price: 150},
		},
	}
	withMarkers := base
	withMarkers.EventMarkers = []dashboard.ReferenceDot{
		{Date: "2020-01-15", Price: 100, HasPrice: true, Type: "OPEC"},
		{Date: "2020-03-15", Price: 100, HasPrice: true, Type: "Conflict"},
	}

	plain := decodePNG(t, base)
	marked := decodePNG(t, withMarkers)
	if plain.Bounds() != marked.Bounds() {
		t.Fatalf("bounds differ: %v vs %v", plain.Bounds(), marked.Bounds())
	}

	fill := [3]uint32{0xfa, 0xcc, 0x15}
	changed, filled := 0, 0
	b := marked.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r1, g1, b1, _ := plain.At(x, y).RGBA()
			r2, g2, b2, _ := marked.At(x, y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 {
				changed++
			}
			if nearColor(r2, g2, b2, fill) {
				filled++
			}
		}
	}

	// Two dots of radius 8 cover a few hundred pixels. A line between
	// them would add several hundred more.
	if changed > 800 {
		t.Errorf("markers changed %d pixels, want only the two dots", changed)
	}
	if filled < 50 {
		t.Errorf("found %d marker fill pixels, want the dots drawn", filled)
	}
}

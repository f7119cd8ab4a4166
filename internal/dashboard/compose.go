package dashboard

import "brent-dashboard-api/internal/models"

const (
	PriceSeriesName  = "Price"
	ChangePointLabel = "Change Point"

	// MissingPriceSentinel positions an event marker whose date has no price.
	MissingPriceSentinel = 0.0
)

// JoinKind names the entity whose date is absent from the price series.
type JoinKind string

const (
	JoinEvent       JoinKind = "event"
	JoinChangePoint JoinKind = "change_point"
)

// MissingJoin records a date referenced by an event or the change point
// that has no price. It degrades the chart and is never returned as an error.
type MissingJoin struct {
	Kind      JoinKind       `json:"kind"`
	Date      models.DateKey `json:"date"`
	EventType string         `json:"event_type,omitempty"`
}

// LinePoint is one vertex of the price line.
type LinePoint struct {
	Date  models.DateKey `json:"date"`
	Price float64        `json:"price"`
}

// ReferenceLine is the vertical change-point marker.
type ReferenceLine struct {
	Date  models.DateKey `json:"date"`
	Label string         `json:"label"`
}

// ReferenceDot is an event marker placed on the price axis.
type ReferenceDot struct {
	Date        models.DateKey `json:"date"`
	Price       float64        `json:"price"`
	HasPrice    bool           `json:"has_price"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
}

// RenderLayer is everything a client needs to draw the chart.
type RenderLayer struct {
	SeriesName   string         `json:"series_name"`
	PriceLine    []LinePoint    `json:"price_line"`
	ChangePoint  *ReferenceLine `json:"change_point,omitempty"`
	EventMarkers []ReferenceDot `json:"event_markers"`
	MissingJoins []MissingJoin  `json:"missing_joins,omitempty"`
}

// Compose builds the render layer for m. It never fails: missing prices
// put markers at MissingPriceSentinel and a nil model yields an empty layer.
// Prices are emitted in model order and are not re-sorted.
func Compose(m *Model) RenderLayer {
	layer := RenderLayer{
		SeriesName:   PriceSeriesName,
		PriceLine:    []LinePoint{},
		EventMarkers: []ReferenceDot{},
	}
	if m == nil {
		return layer
	}

	layer.PriceLine = make([]LinePoint, 0, len(m.prices))
	for _, p := range m.prices {
		layer.PriceLine = append(layer.PriceLine, LinePoint{Date: p.Date, Price: p.Price})
	}

	if m.analysis != nil && m.analysis.ChangePointDate != "" {
		layer.ChangePoint = &ReferenceLine{Date: m.analysis.ChangePointDate, Label: ChangePointLabel}
	}

	layer.EventMarkers = make([]ReferenceDot, 0, len(m.events))
	for _, ev := range m.events {
		price, ok := m.priceByDate.At(ev.Date)
		if !ok {
			price = MissingPriceSentinel
		}
		layer.EventMarkers = append(layer.EventMarkers, ReferenceDot{
			Date:        ev.Date,
			Price:       price,
			HasPrice:    ok,
			Type:        ev.Type,
			Description: ev.Description,
		})
	}

	layer.MissingJoins = m.MissingJoins()
	return layer
}

// Dates returns the date of every vertex of the price line.
func (l RenderLayer) Dates() []models.DateKey {
	dates := make([]models.DateKey, len(l.PriceLine))
	for i, p := range l.PriceLine {
		dates[i] = p.Date
	}
	return dates
}

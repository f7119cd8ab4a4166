// Package dashboard correlates the price series, market events and
// change-point analysis into the model the chart and tooltips are built from.
package dashboard

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"brent-dashboard-api/internal/models"
)

// Model is the immutable dashboard aggregate. The lookups are derived
// once in NewModel and never rebuilt.
type Model struct {
	prices   []models.PricePoint
	events   []models.MarketEvent
	analysis *models.ChangePointAnalysis
	loadedAt time.Time

	eventsByDate EventsByDate
	priceByDate  PriceByDate
}

// NewModel copies its inputs and derives the event and price lookups.
// analysis may be nil.
func NewModel(prices []models.PricePoint, events []models.MarketEvent, analysis *models.ChangePointAnalysis) *Model {
	m := &Model{
		prices:   append([]models.PricePoint(nil), prices...),
		events:   append([]models.MarketEvent(nil), events...),
		loadedAt: time.Now(),
	}
	if analysis != nil {
		a := copyAnalysis(*analysis)
		m.analysis = &a
	}
	m.eventsByDate = BuildEventsByDate(m.events)
	m.priceByDate = BuildPriceByDate(m.prices)
	return m
}

// Prices returns a copy of the price series in load order.
func (m *Model) Prices() []models.PricePoint {
	return append([]models.PricePoint(nil), m.prices...)
}

// Events returns a copy of the events in load order.
func (m *Model) Events() []models.MarketEvent {
	return append([]models.MarketEvent(nil), m.events...)
}

// Analysis returns the change-point analysis, if any.
func (m *Model) Analysis() (models.ChangePointAnalysis, bool) {
	if m.analysis == nil {
		return models.ChangePointAnalysis{}, false
	}
	return copyAnalysis(*m.analysis), true
}

func copyAnalysis(a models.ChangePointAnalysis) models.ChangePointAnalysis {
	if a.Before != nil {
		before := *a.Before
		a.Before = &before
	}
	if a.After != nil {
		after := *a.After
		a.After = &after
	}
	return a
}

func (m *Model) LoadedAt() time.Time {
	return m.loadedAt
}

// EventsByDate returns the memoized event lookup. Callers must not mutate it.
func (m *Model) EventsByDate() EventsByDate {
	return m.eventsByDate
}

// PriceByDate returns the memoized price lookup. Callers must not mutate it.
func (m *Model) PriceByDate() PriceByDate {
	return m.priceByDate
}

// Summary returns the change-point cards, or nil without an analysis.
func (m *Model) Summary() *models.Summary {
	if m.analysis == nil {
		return nil
	}
	var before, after models.PeriodStats
	if m.analysis.Before != nil {
		before = *m.analysis.Before
	}
	if m.analysis.After != nil {
		after = *m.analysis.After
	}
	return &models.Summary{
		ChangePointDate:  m.analysis.ChangePointDate,
		MeanPriceBefore:  FormatFixed2(before.MeanPrice),
		MeanPriceAfter:   FormatFixed2(after.MeanPrice),
		VolatilityChange: FormatFixed2(after.Volatility - before.Volatility),
	}
}

// EventCards lists the events in load order as "<date> – <type>" cards.
func (m *Model) EventCards() []models.EventCard {
	cards := make([]models.EventCard, 0, len(m.events))
	for _, ev := range m.events {
		cards = append(cards, models.EventCard{
			Title:       fmt.Sprintf("%s – %s", ev.Date, ev.Type),
			Description: ev.Description,
		})
	}
	return cards
}

// MissingJoins reports every event or change point whose date has no price.
func (m *Model) MissingJoins() []MissingJoin {
	var missing []MissingJoin
	if m.analysis != nil {
		if _, ok := m.priceByDate[m.analysis.ChangePointDate]; !ok {
			missing = append(missing, MissingJoin{Kind: JoinChangePoint, Date: m.analysis.ChangePointDate})
		}
	}
	for _, ev := range m.events {
		if _, ok := m.priceByDate[ev.Date]; !ok {
			missing = append(missing, MissingJoin{Kind: JoinEvent, Date: ev.Date, EventType: ev.Type})
		}
	}
	return missing
}

// Tooltip resolves the tooltip for date using the model's own price.
// A date without a price resolves at the sentinel 0.
func (m *Model) Tooltip(date models.DateKey) TooltipContent {
	price, _ := m.priceByDate.At(date)
	return Resolve(date, price, m.eventsByDate)
}

// FormatFixed2 formats v with exactly two decimals. The exact binary value
// of v is rounded, ties away from zero, so 1.005 formats as "1.00".
// Non-finite values format as "NaN", "Infinity" and "-Infinity".
func FormatFixed2(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return decimal.NewFromFloatWithExponent(v, -2).StringFixed(2)
}

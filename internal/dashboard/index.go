package dashboard

import "brent-dashboard-api/internal/models"

// EventsByDate maps a date to the events on that date, in load order.
type EventsByDate map[models.DateKey][]models.MarketEvent

// PriceByDate maps a date to its price.
type PriceByDate map[models.DateKey]float64

// BuildEventsByDate groups events by date. Dates without events are absent.
func BuildEventsByDate(events []models.MarketEvent) EventsByDate {
	idx := make(EventsByDate)
	for _, ev := range events {
		idx[ev.Date] = append(idx[ev.Date], ev)
	}
	return idx
}

// BuildPriceByDate indexes prices by date. On duplicate dates the last
// occurrence wins.
func BuildPriceByDate(prices []models.PricePoint) PriceByDate {
	idx := make(PriceByDate, len(prices))
	for _, p := range prices {
		idx[p.Date] = p.Price
	}
	return idx
}

// On returns the events on date, or nil.
func (idx EventsByDate) On(date models.DateKey) []models.MarketEvent {
	return idx[date]
}

// At returns the price on date.
func (idx PriceByDate) At(date models.DateKey) (float64, bool) {
	p, ok := idx[date]
	return p, ok
}

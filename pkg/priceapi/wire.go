package priceapi

import "brent-dashboard-api/internal/models"

// Wire shapes of the upstream payloads. Pointer fields tell a missing or
// null value apart from a zero, so required catches both.

type wirePricePoint struct {
	Date  models.DateKey `json:"Date" validate:"required,datekey"`
	Price *float64       `json:"Price" validate:"required"`
}

type wireMarketEvent struct {
	Date        models.DateKey `json:"date" validate:"required,datekey"`
	Type        *string        `json:"type" validate:"required"`
	Description *string        `json:"description" validate:"required"`
}

type wireDataPayload struct {
	Prices []wirePricePoint  `json:"prices" validate:"required,dive"`
	Events []wireMarketEvent `json:"events" validate:"required,dive"`
}

type wirePeriodStats struct {
	MeanPrice  *float64 `json:"mean_price" validate:"required"`
	Volatility *float64 `json:"volatility" validate:"required"`
}

type wireAnalysis struct {
	ChangePointDate models.DateKey   `json:"change_point_date" validate:"required,datekey"`
	Before          *wirePeriodStats `json:"before" validate:"required"`
	After           *wirePeriodStats `json:"after" validate:"required"`
}

// toModel is only called on a payload that passed validation.
func (w wireDataPayload) toModel() *models.DataPayload {
	out := &models.DataPayload{
		Prices: make([]models.PricePoint, 0, len(w.Prices)),
		Events: make([]models.MarketEvent, 0, len(w.Events)),
	}
	for _, p := range w.Prices {
		out.Prices = append(out.Prices, models.PricePoint{Date: p.Date, Price: *p.Price})
	}
	for _, ev := range w.Events {
		out.Events = append(out.Events, models.MarketEvent{
			Date:        ev.Date,
			Type:        *ev.Type,
			Description: *ev.Description,
		})
	}
	return out
}

func (w wirePeriodStats) toModel() *models.PeriodStats {
	return &models.PeriodStats{MeanPrice: *w.MeanPrice, Volatility: *w.Volatility}
}

func (w wireAnalysis) toModel() *models.ChangePointAnalysis {
	return &models.ChangePointAnalysis{
		ChangePointDate: w.ChangePointDate,
		Before:          w.Before.toModel(),
		After:           w.After.toModel(),
	}
}

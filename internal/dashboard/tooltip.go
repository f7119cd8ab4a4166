package dashboard

import "brent-dashboard-api/internal/models"

// TooltipContent is the payload shown when hovering a date.
type TooltipContent struct {
	Date          models.DateKey       `json:"date"`
	Price         string               `json:"price"`
	MatchedEvents []models.MarketEvent `json:"matched_events"`
}

// Resolve builds the tooltip for a hovered date. It is a single map lookup;
// an unknown date yields an empty, non-nil MatchedEvents.
func Resolve(hovered models.DateKey, price float64, idx EventsByDate) TooltipContent {
	matched := idx[hovered]
	out := make([]models.MarketEvent, len(matched))
	copy(out, matched)
	return TooltipContent{
		Date:          hovered,
		Price:         FormatFixed2(price),
		MatchedEvents: out,
	}
}

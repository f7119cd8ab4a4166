package models

import "time"

// DateKeyLayout is the canonical layout of a DateKey.
const DateKeyLayout = "2006-01-02"

// DateKey identifies a calendar day and joins prices, events and analysis.
type DateKey string

// Time parses the key using DateKeyLayout.
func (d DateKey) Time() (time.Time, error) {
	return time.Parse(DateKeyLayout, string(d))
}

// PricePoint is one daily observation of the price series
type PricePoint struct {
	Date  DateKey `json:"Date" firestore:"date"`
	Price float64 `json:"Price" firestore:"price"`
}

// MarketEvent is a discrete event anchored to a date
type MarketEvent struct {
	Date        DateKey `json:"date" firestore:"date"`
	Type        string  `json:"type" firestore:"type"`
	Description string  `json:"description" firestore:"description"`
}

// PeriodStats summarizes the series on one side of the change point
type PeriodStats struct {
	MeanPrice  float64 `json:"mean_price" firestore:"mean_price"`
	Volatility float64 `json:"volatility" firestore:"volatility"`
}

// ChangePointAnalysis is the result of the remote change-point detection
type ChangePointAnalysis struct {
	ChangePointDate DateKey      `json:"change_point_date" firestore:"change_point_date"`
	Before          *PeriodStats `json:"before" firestore:"before"`
	After           *PeriodStats `json:"after" firestore:"after"`
}

// DataPayload is the body of GET /api/data
type DataPayload struct {
	Prices []PricePoint  `json:"prices" firestore:"prices"`
	Events []MarketEvent `json:"events" firestore:"events"`
}

// Summary is the change-point card block shown above the chart
type Summary struct {
	ChangePointDate  DateKey `json:"change_point_date"`
	MeanPriceBefore  string  `json:"mean_price_before"`
	MeanPriceAfter   string  `json:"mean_price_after"`
	VolatilityChange string  `json:"volatility_change"`
}

// EventCard is one entry of the key market events list
type EventCard struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// DashboardResponse describes the current session
type DashboardResponse struct {
	SessionID string      `json:"session_id"`
	State     string      `json:"state"`
	Screen    string      `json:"screen"`
	Error     string      `json:"error,omitempty"`
	Summary   *Summary    `json:"summary,omitempty"`
	Events    []EventCard `json:"events,omitempty"`
	LoadedAt  *time.Time  `json:"loaded_at,omitempty"`
}

// ErrorResponse represents API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

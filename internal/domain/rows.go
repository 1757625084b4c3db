package domain

import "time"

// PriceRow is one settlement row delivered by the price source.
type PriceRow struct {
	Date       time.Time `json:"date"`
	Name       string    `json:"name"`
	Month      string    `json:"month"` // delivery month code (F..Z)
	Year       int       `json:"year"`  // four-digit delivery year
	Settle     float64   `json:"settle"`
	DaysListed int       `json:"days_listed"`
}

// ContractRow is one settlement row of a single contract.
type ContractRow struct {
	Date       time.Time `json:"date"`
	Settle     float64   `json:"settle"`
	DaysListed int       `json:"days_listed"`
}

// FrontMonthRow is one row of the reference front-month series.
// Change is nil for the first row.
type FrontMonthRow struct {
	Date   time.Time `json:"date"`
	Settle float64   `json:"settle"`
	Change *float64  `json:"change"`
}

// SpreadRow is one date of an aggregated spread series.
// Change is nil for the earliest row of a series.
type SpreadRow struct {
	Date        time.Time `json:"date"`
	AggregateID string    `json:"aggregate_id"`
	PlotID      string    `json:"plot_id"`
	Settle      float64   `json:"settle"`
	Change      *float64  `json:"change"`
	DaysListed  int       `json:"days_listed"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockRecord is one equity in a market snapshot. Records are immutable per
// snapshot: a refresh builds new records rather than mutating these in place.
type StockRecord struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"company_name"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry,omitempty"`

	// Quote fields
	Open             decimal.Decimal `json:"open"`
	High             decimal.Decimal `json:"high"`
	Low              decimal.Decimal `json:"low"`
	Close            decimal.Decimal `json:"close"`
	Volume           int64           `json:"volume"`
	Turnover         decimal.Decimal `json:"turnover"`
	Trades           int64           `json:"trades"`
	VWAP             decimal.Decimal `json:"vwap"`
	PercentDelivered float64         `json:"percent_delivered"`

	// Fundamental fields
	MarketCap     decimal.Decimal `json:"market_cap"`
	PERatio       float64         `json:"pe_ratio"`
	ROE           float64         `json:"roe"`
	DebtToEquity  float64         `json:"debt_to_equity"`
	EPS           decimal.Decimal `json:"eps"`
	DividendYield float64         `json:"dividend_yield"`

	// Technical indicators
	RSI  float64 `json:"rsi"`
	MACD float64 `json:"macd"`

	LastUpdated time.Time `json:"last_updated"`
}

// Volatility returns the intraday range ratio (high-low)/low.
// Records with a zero low have no meaningful range and report 0.
func (r StockRecord) Volatility() float64 {
	low := r.Low.InexactFloat64()
	if low == 0 {
		return 0
	}
	return (r.High.InexactFloat64() - low) / low
}

package services

import (
	"context"

	"stock-scout/models"
)

// LLMService defines the interface for language model operations.
// Implementations return raw model text with no guaranteed JSON validity;
// callers must parse defensively.
type LLMService interface {
	InvokeWithPrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	InvokeStructured(ctx context.Context, systemPrompt, userPrompt string, result interface{}) error
}

// MarketDataService defines the interface for the quote source
type MarketDataService interface {
	GetQuote(ctx context.Context, symbol string) (*models.StockRecord, error)
}

// FundamentalsService defines the interface for per-symbol extended metrics
type FundamentalsService interface {
	GetFundamentals(ctx context.Context, symbol string) (*Fundamentals, error)
}

// Fundamentals holds extended metrics merged into a StockRecord at snapshot
// build time.
type Fundamentals struct {
	Symbol        string  `json:"symbol"`
	CompanyName   string  `json:"company_name"`
	Sector        string  `json:"sector"`
	Industry      string  `json:"industry"`
	MarketCap     string  `json:"market_cap"`
	PERatio       float64 `json:"pe_ratio"`
	ROE           float64 `json:"roe"`
	DebtToEquity  float64 `json:"debt_to_equity"`
	EPS           string  `json:"eps"`
	DividendYield float64 `json:"dividend_yield"`
	RSI           float64 `json:"rsi"`
	MACD          float64 `json:"macd"`
}

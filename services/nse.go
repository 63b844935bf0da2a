package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"stock-scout/models"
	"stock-scout/observability"

	"github.com/shopspring/decimal"
)

// NSEService fetches end-of-day quote data for NSE-listed equities
type NSEService struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewNSEService creates a new NSEService instance
func NewNSEService(baseURL, apiKey string) *NSEService {
	return &NSEService{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
}

// quoteResponse is the quote payload returned by the data source.
// Numeric values arrive as strings and must be parsed defensively.
type quoteResponse struct {
	Symbol            string  `json:"symbol"`
	CompanyName       string  `json:"companyName"`
	Open              string  `json:"open"`
	DayHigh           string  `json:"dayHigh"`
	DayLow            string  `json:"dayLow"`
	LastPrice         string  `json:"lastPrice"`
	TotalTradedVolume int64   `json:"totalTradedVolume"`
	TotalTradedValue  string  `json:"totalTradedValue"`
	TotalTrades       int64   `json:"totalTrades"`
	VWAP              string  `json:"vwap"`
	DeliveryToTraded  float64 `json:"deliveryToTradedQuantity"`
}

// GetQuote returns the latest quote for a symbol.
// A symbol the source cannot serve is an error; the snapshot builder treats
// it as a gap, not a build failure.
func (s *NSEService) GetQuote(ctx context.Context, symbol string) (*models.StockRecord, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerMarketData, "quote")
	timer := metrics.NewTimer()

	record, err := WithCircuitBreaker(ctx, BreakerMarketData, func() (*models.StockRecord, error) {
		var rec *models.StockRecord

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			params := url.Values{}
			params.Set("symbol", symbol)

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/quote-equity?"+params.Encode(), nil)
			if err != nil {
				return fmt.Errorf("failed to build quote request: %w", err)
			}
			if s.apiKey != "" {
				req.Header.Set("X-Api-Key", s.apiKey)
			}

			resp, err := s.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("failed to fetch quote: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("quote request for %s returned status %d", symbol, resp.StatusCode)
			}

			var quote quoteResponse
			if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
				return fmt.Errorf("failed to decode quote: %w", err)
			}

			if quote.Symbol == "" {
				return fmt.Errorf("no quote data for %s", symbol)
			}

			open, _ := decimal.NewFromString(quote.Open)
			high, _ := decimal.NewFromString(quote.DayHigh)
			low, _ := decimal.NewFromString(quote.DayLow)
			last, _ := decimal.NewFromString(quote.LastPrice)
			turnover, _ := decimal.NewFromString(quote.TotalTradedValue)
			vwap, _ := decimal.NewFromString(quote.VWAP)

			rec = &models.StockRecord{
				Symbol:           quote.Symbol,
				CompanyName:      quote.CompanyName,
				Open:             open,
				High:             high,
				Low:              low,
				Close:            last,
				Volume:           quote.TotalTradedVolume,
				Turnover:         turnover,
				Trades:           quote.TotalTrades,
				VWAP:             vwap,
				PercentDelivered: quote.DeliveryToTraded,
				LastUpdated:      time.Now(),
			}
			return nil
		})

		return rec, err
	})

	timer.ObserveExternalAPI(BreakerMarketData, "quote")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerMarketData, "quote", categorizeAPIError(err))
		return nil, err
	}
	return record, nil
}

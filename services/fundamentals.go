package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"stock-scout/observability"
)

// FundamentalsClient fetches extended per-symbol metrics (fundamentals and
// technical indicators) used to enrich snapshot records
type FundamentalsClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewFundamentalsClient creates a new FundamentalsClient instance
func NewFundamentalsClient(baseURL, apiKey string) *FundamentalsClient {
	return &FundamentalsClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
}

// GetFundamentals returns extended metrics for a symbol
func (c *FundamentalsClient) GetFundamentals(ctx context.Context, symbol string) (*Fundamentals, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerFundamentals, "fundamentals")
	timer := metrics.NewTimer()

	result, err := WithCircuitBreaker(ctx, BreakerFundamentals, func() (*Fundamentals, error) {
		var f *Fundamentals

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			params := url.Values{}
			params.Set("symbol", symbol)

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/equity-meta-info?"+params.Encode(), nil)
			if err != nil {
				return fmt.Errorf("failed to build fundamentals request: %w", err)
			}
			if c.apiKey != "" {
				req.Header.Set("X-Api-Key", c.apiKey)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("failed to fetch fundamentals: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("fundamentals request for %s returned status %d", symbol, resp.StatusCode)
			}

			var decoded Fundamentals
			if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
				return fmt.Errorf("failed to decode fundamentals: %w", err)
			}

			if decoded.Symbol == "" {
				return fmt.Errorf("no fundamentals data for %s", symbol)
			}

			f = &decoded
			return nil
		})

		return f, err
	})

	timer.ObserveExternalAPI(BreakerFundamentals, "fundamentals")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerFundamentals, "fundamentals", categorizeAPIError(err))
		return nil, err
	}
	return result, nil
}

package models

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestVolatility(t *testing.T) {
	tests := []struct {
		name string
		high float64
		low  float64
		want float64
	}{
		{"ten percent range", 110, 100, 0.10},
		{"flat day", 100, 100, 0},
		{"zero low", 50, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := StockRecord{
				High: decimal.NewFromFloat(tt.high),
				Low:  decimal.NewFromFloat(tt.low),
			}
			if got := r.Volatility(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Volatility() = %f, want %f", got, tt.want)
			}
		})
	}
}

package models

// Intent is the coarse analytical goal extracted from free text.
// IntentNone means the query carries no ranking preference.
type Intent string

const (
	IntentNone          Intent = ""
	IntentHighPrice     Intent = "high_price"
	IntentLowPrice      Intent = "low_price"
	IntentHighVolume    Intent = "high_volume"
	IntentLowVolume     Intent = "low_volume"
	IntentHighDelivery  Intent = "high_delivery"
	IntentHighTurnover  Intent = "high_turnover"
	IntentHighTrades    Intent = "high_trades"
	IntentVolatility    Intent = "volatility"
	IntentLowVolatility Intent = "low_volatility"
	IntentRelatedStocks Intent = "related_stocks"
)

// validIntents enumerates every legal non-empty intent value.
var validIntents = map[Intent]bool{
	IntentHighPrice:     true,
	IntentLowPrice:      true,
	IntentHighVolume:    true,
	IntentLowVolume:     true,
	IntentHighDelivery:  true,
	IntentHighTurnover:  true,
	IntentHighTrades:    true,
	IntentVolatility:    true,
	IntentLowVolatility: true,
	IntentRelatedStocks: true,
}

// IsValid reports whether the intent is a known non-empty value.
func (i Intent) IsValid() bool {
	return validIntents[i]
}

// Operator is a filter comparison operator.
type Operator string

const (
	OpGreaterThan  Operator = ">"
	OpLessThan     Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "="
	OpContains     Operator = "contains"
)

// IsValid reports whether the operator is one of the supported comparisons.
func (o Operator) IsValid() bool {
	switch o {
	case OpGreaterThan, OpLessThan, OpGreaterEqual, OpLessEqual, OpEqual, OpContains:
		return true
	}
	return false
}

// Filter is a single field constraint. Numeric operators compare Value as a
// float; OpContains matches Text case-insensitively against string fields.
type Filter struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    float64  `json:"value,omitempty"`
	Text     string   `json:"text,omitempty"`
}

// QuerySpecification is the structured form of a natural-language screen.
// A nil Limit means unbounded; the execution engine applies its safety cap
// regardless.
type QuerySpecification struct {
	Intent   Intent   `json:"intent"`
	Keywords []string `json:"keywords"`
	Filters  []Filter `json:"filters"`
	Limit    *int     `json:"limit"`
}

// DefaultQuerySpecification is the "show everything" fallback used whenever
// interpretation fails. Availability wins over precision.
func DefaultQuerySpecification() QuerySpecification {
	return QuerySpecification{
		Intent:   IntentNone,
		Keywords: []string{},
		Filters:  []Filter{},
		Limit:    nil,
	}
}

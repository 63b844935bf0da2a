package screener

import (
	"strings"

	"stock-scout/models"
)

// RecordKind identifies which slice of a StockRecord backs a field.
// Callers of Resolve never need to care; the kind exists so the single
// resolver table stays the source of truth for all record shapes.
type RecordKind string

const (
	KindQuote        RecordKind = "quote"
	KindFundamentals RecordKind = "fundamentals"
	KindTechnicals   RecordKind = "technicals"
)

// Accessor reads one logical field from a StockRecord. Numeric is set for
// comparable fields, Text for substring-matchable fields; exactly one is
// non-nil per accessor.
type Accessor struct {
	Kind    RecordKind
	Numeric func(r *models.StockRecord) float64
	Text    func(r *models.StockRecord) string
}

// fieldTable maps every logical filter field name to its accessor.
// Filters naming anything else are dropped silently, so adding a row here is
// the only change needed to expose a new data attribute.
var fieldTable = map[string]Accessor{
	"open":              {Kind: KindQuote, Numeric: func(r *models.StockRecord) float64 { return r.Open.InexactFloat64() }},
	"high":              {Kind: KindQuote, Numeric: func(r *models.StockRecord) float64 { return r.High.InexactFloat64() }},
	"low":               {Kind: KindQuote, Numeric: func(r *models.StockRecord) float64 { return r.Low.InexactFloat64() }},
	"close":             {Kind: KindQuote, Numeric: func(r *models.StockRecord) float64 { return r.Close.InexactFloat64() }},
	"price":             {Kind: KindQuote, Numeric: func(r *models.StockRecord) float64 { return r.Close.InexactFloat64() }},
	"volume":            {Kind: KindQuote, Numeric: func(r *models.StockRecord) float64 { return float64(r.Volume) }},
	"turnover":          {Kind: KindQuote, Numeric: func(r *models.StockRecord) float64 { return r.Turnover.InexactFloat64() }},
	"trades":            {Kind: KindQuote, Numeric: func(r *models.StockRecord) float64 { return float64(r.Trades) }},
	"vwap":              {Kind: KindQuote, Numeric: func(r *models.StockRecord) float64 { return r.VWAP.InexactFloat64() }},
	"percent_delivered": {Kind: KindQuote, Numeric: func(r *models.StockRecord) float64 { return r.PercentDelivered }},
	"market_cap":        {Kind: KindFundamentals, Numeric: func(r *models.StockRecord) float64 { return r.MarketCap.InexactFloat64() }},
	"pe_ratio":          {Kind: KindFundamentals, Numeric: func(r *models.StockRecord) float64 { return r.PERatio }},
	"roe":               {Kind: KindFundamentals, Numeric: func(r *models.StockRecord) float64 { return r.ROE }},
	"debt_to_equity":    {Kind: KindFundamentals, Numeric: func(r *models.StockRecord) float64 { return r.DebtToEquity }},
	"eps":               {Kind: KindFundamentals, Numeric: func(r *models.StockRecord) float64 { return r.EPS.InexactFloat64() }},
	"dividend_yield":    {Kind: KindFundamentals, Numeric: func(r *models.StockRecord) float64 { return r.DividendYield }},
	"rsi":               {Kind: KindTechnicals, Numeric: func(r *models.StockRecord) float64 { return r.RSI }},
	"macd":              {Kind: KindTechnicals, Numeric: func(r *models.StockRecord) float64 { return r.MACD }},
	"symbol":            {Kind: KindQuote, Text: func(r *models.StockRecord) string { return r.Symbol }},
	"company_name":      {Kind: KindQuote, Text: func(r *models.StockRecord) string { return r.CompanyName }},
	"sector":            {Kind: KindQuote, Text: func(r *models.StockRecord) string { return r.Sector }},
	"industry":          {Kind: KindQuote, Text: func(r *models.StockRecord) string { return r.Industry }},
}

// Resolve maps a logical field name to its accessor. The second return is
// false for unknown fields; callers skip the corresponding filter rather
// than failing the query.
func Resolve(field string) (Accessor, bool) {
	acc, ok := fieldTable[strings.ToLower(strings.TrimSpace(field))]
	return acc, ok
}

// KnownFields returns every resolvable field name (prompt construction needs
// the full list).
func KnownFields() []string {
	fields := make([]string, 0, len(fieldTable))
	for name := range fieldTable {
		fields = append(fields, name)
	}
	return fields
}

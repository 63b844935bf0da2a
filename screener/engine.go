package screener

import (
	"errors"
	"math"
	"sort"
	"strings"

	"stock-scout/models"
	"stock-scout/observability"
)

// SafetyCap is the system-wide hard ceiling on returned records. It applies
// regardless of any requested limit and is not configurable per request.
const SafetyCap = 50

// ErrNoSnapshot is returned when execution is attempted without a snapshot.
// It signals retryable unavailability, not a user error.
var ErrNoSnapshot = errors.New("no market snapshot available")

// Universe is the read view the engine needs from a snapshot: records in a
// stable, deterministic order plus symbol lookup.
type Universe interface {
	Records() []models.StockRecord
	Lookup(symbol string) (models.StockRecord, bool)
}

// Execute applies a query specification against the given snapshot and
// returns a ranked, size-bounded result. An empty result is a valid answer,
// never an error.
func Execute(spec models.QuerySpecification, snapshot Universe) ([]models.StockRecord, error) {
	if snapshot == nil {
		return nil, ErrNoSnapshot
	}

	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()

	var result []models.StockRecord
	if spec.Intent == models.IntentRelatedStocks {
		result = relatedStocks(spec, snapshot)
	} else {
		result = screen(spec, snapshot)
	}

	result = truncate(result, spec.Limit)
	timer.ObserveScreen(string(spec.Intent), len(result))
	return result, nil
}

// screen runs the keyword-filter-rank path for every intent except peers
func screen(spec models.QuerySpecification, snapshot Universe) []models.StockRecord {
	records := snapshot.Records()
	out := make([]models.StockRecord, 0, len(records))

	for i := range records {
		r := &records[i]
		if !matchKeywords(r, spec.Keywords) {
			continue
		}
		if !matchFilters(r, spec.Filters) {
			continue
		}
		out = append(out, *r)
	}

	rank(out, spec.Intent)
	return out
}

// matchKeywords applies OR semantics across keywords against company name
// and sector. No keywords means match everything.
func matchKeywords(r *models.StockRecord, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	name := strings.ToLower(r.CompanyName)
	sector := strings.ToLower(r.Sector)
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(name, kw) || strings.Contains(sector, kw) {
			return true
		}
	}
	return false
}

// matchFilters applies AND semantics across filters. A filter whose field
// does not resolve is skipped, not failed.
func matchFilters(r *models.StockRecord, filters []models.Filter) bool {
	for _, f := range filters {
		acc, ok := Resolve(f.Field)
		if !ok {
			continue
		}
		if !applyFilter(r, acc, f) {
			return false
		}
	}
	return true
}

func applyFilter(r *models.StockRecord, acc Accessor, f models.Filter) bool {
	if f.Operator == models.OpContains {
		if acc.Text == nil {
			return true // contains on a numeric field is meaningless; skip
		}
		return strings.Contains(strings.ToLower(acc.Text(r)), strings.ToLower(f.Text))
	}

	if acc.Numeric == nil {
		return true
	}
	v := acc.Numeric(r)
	switch f.Operator {
	case models.OpGreaterThan:
		return v > f.Value
	case models.OpLessThan:
		return v < f.Value
	case models.OpGreaterEqual:
		return v >= f.Value
	case models.OpLessEqual:
		return v <= f.Value
	case models.OpEqual:
		return v == f.Value
	default:
		return true
	}
}

// rank orders records per intent. All sorts are stable so records with equal
// keys keep snapshot order, which keeps repeated executions identical.
// Intent none leaves snapshot order untouched.
func rank(records []models.StockRecord, intent models.Intent) {
	var key func(r *models.StockRecord) float64
	descending := true

	switch intent {
	case models.IntentHighPrice:
		key = func(r *models.StockRecord) float64 { return r.Close.InexactFloat64() }
	case models.IntentLowPrice:
		key = func(r *models.StockRecord) float64 { return r.Close.InexactFloat64() }
		descending = false
	case models.IntentHighVolume:
		key = func(r *models.StockRecord) float64 { return float64(r.Volume) }
	case models.IntentLowVolume:
		key = func(r *models.StockRecord) float64 { return float64(r.Volume) }
		descending = false
	case models.IntentHighDelivery:
		key = func(r *models.StockRecord) float64 { return r.PercentDelivered }
	case models.IntentHighTurnover:
		key = func(r *models.StockRecord) float64 { return r.Turnover.InexactFloat64() }
	case models.IntentHighTrades:
		key = func(r *models.StockRecord) float64 { return float64(r.Trades) }
	case models.IntentVolatility:
		key = func(r *models.StockRecord) float64 { return r.Volatility() }
	case models.IntentLowVolatility:
		key = func(r *models.StockRecord) float64 { return r.Volatility() }
		descending = false
	default:
		return
	}

	sort.SliceStable(records, func(i, j int) bool {
		ki, kj := key(&records[i]), key(&records[j])
		if descending {
			return ki > kj
		}
		return ki < kj
	})
}

// relatedStocks resolves the keyword to an anchor record and ranks the rest
// of the universe by similarity: same sector first, then nearest market cap.
// The anchor itself is excluded from the result.
func relatedStocks(spec models.QuerySpecification, snapshot Universe) []models.StockRecord {
	anchor, ok := resolveAnchor(spec.Keywords, snapshot)
	if !ok {
		return []models.StockRecord{}
	}

	records := snapshot.Records()
	peers := make([]models.StockRecord, 0, len(records))
	for i := range records {
		if records[i].Symbol == anchor.Symbol {
			continue
		}
		peers = append(peers, records[i])
	}

	anchorCap := anchor.MarketCap.InexactFloat64()
	sort.SliceStable(peers, func(i, j int) bool {
		si := sameSector(&peers[i], &anchor)
		sj := sameSector(&peers[j], &anchor)
		if si != sj {
			return si
		}
		di := math.Abs(peers[i].MarketCap.InexactFloat64() - anchorCap)
		dj := math.Abs(peers[j].MarketCap.InexactFloat64() - anchorCap)
		return di < dj
	})

	return peers
}

func sameSector(a, b *models.StockRecord) bool {
	return a.Sector != "" && strings.EqualFold(a.Sector, b.Sector)
}

// resolveAnchor finds the peer anchor: exact symbol match first, then fuzzy
// company-name containment.
func resolveAnchor(keywords []string, snapshot Universe) (models.StockRecord, bool) {
	for _, kw := range keywords {
		if r, ok := snapshot.Lookup(strings.ToUpper(strings.TrimSpace(kw))); ok {
			return r, true
		}
	}

	records := snapshot.Records()
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		for i := range records {
			if strings.Contains(strings.ToLower(records[i].CompanyName), kw) {
				return records[i], true
			}
		}
	}

	return models.StockRecord{}, false
}

// truncate bounds the result by min(requested limit, SafetyCap)
func truncate(records []models.StockRecord, limit *int) []models.StockRecord {
	effective := SafetyCap
	if limit != nil && *limit > 0 && *limit < effective {
		effective = *limit
	}
	if len(records) > effective {
		return records[:effective]
	}
	return records
}

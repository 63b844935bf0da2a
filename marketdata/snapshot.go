package marketdata

import (
	"time"

	"stock-scout/models"

	"github.com/google/uuid"
)

// Snapshot is an immutable, timestamped full copy of the tracked stock
// universe. Once built it is never mutated; a refresh builds a replacement.
type Snapshot struct {
	ID         uuid.UUID
	CapturedAt time.Time

	records  []models.StockRecord
	bySymbol map[string]int
}

// NewSnapshot builds a snapshot from the given records, preserving their
// order as the snapshot order.
func NewSnapshot(records []models.StockRecord) *Snapshot {
	bySymbol := make(map[string]int, len(records))
	for i, r := range records {
		bySymbol[r.Symbol] = i
	}
	return &Snapshot{
		ID:         uuid.New(),
		CapturedAt: time.Now(),
		records:    records,
		bySymbol:   bySymbol,
	}
}

// Records returns the snapshot's records in snapshot order. Callers must not
// modify the returned slice's elements; copy-on-read is the engine's job.
func (s *Snapshot) Records() []models.StockRecord {
	out := make([]models.StockRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Lookup returns the record for a symbol, if present.
func (s *Snapshot) Lookup(symbol string) (models.StockRecord, bool) {
	idx, ok := s.bySymbol[symbol]
	if !ok {
		return models.StockRecord{}, false
	}
	return s.records[idx], true
}

// Size returns the number of records in the snapshot.
func (s *Snapshot) Size() int {
	return len(s.records)
}

// Age returns how long ago the snapshot was captured.
func (s *Snapshot) Age() time.Duration {
	return time.Since(s.CapturedAt)
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"stock-scout/config"
	"stock-scout/interpreter"
	"stock-scout/marketdata"
	"stock-scout/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// scriptedLLM pops one response per invocation so interpretation and
// summarization can be scripted independently.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
}

func (m *scriptedLLM) InvokeWithPrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", fmt.Errorf("no scripted response left")
	}
	out := m.responses[0]
	m.responses = m.responses[1:]
	return out, nil
}

func (m *scriptedLLM) InvokeStructured(ctx context.Context, systemPrompt, userPrompt string, result interface{}) error {
	return fmt.Errorf("not scripted")
}

// memoryHistory collects appended entries
type memoryHistory struct {
	mu      sync.Mutex
	entries []models.ChatEntry
	err     error
}

func (m *memoryHistory) AppendChatEntry(ctx context.Context, entry *models.ChatEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, *entry)
	return nil
}

// staticQuotes returns fixed quotes per symbol
type staticQuotes struct {
	volumes map[string]int64
	err     error
}

func (s *staticQuotes) GetQuote(ctx context.Context, symbol string) (*models.StockRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.StockRecord{
		Symbol:      symbol,
		CompanyName: symbol + " Ltd",
		Close:       decimal.NewFromInt(100),
		Volume:      s.volumes[symbol],
	}, nil
}

func testOrchestrator(llm *scriptedLLM, quotes *staticQuotes, history HistoryStore) *Orchestrator {
	cfg := config.NewTestConfig()
	cfg.Cache.Symbols = []string{"RELIANCE", "TCS", "INFY"}
	cache := marketdata.NewCache(cfg, quotes, nil, nil)
	interp := interpreter.New(llm, time.Second)
	return NewOrchestrator(interp, cache, llm, time.Second, history)
}

func defaultQuotes() *staticQuotes {
	return &staticQuotes{volumes: map[string]int64{"RELIANCE": 5000, "TCS": 1000, "INFY": 3000}}
}

func TestRespondSmallTalk(t *testing.T) {
	history := &memoryHistory{}
	o := testOrchestrator(&scriptedLLM{}, defaultQuotes(), history)

	reply, err := o.Respond(context.Background(), "u1", uuid.New(), "hello", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Response == "" {
		t.Error("expected a canned reply")
	}
	if len(reply.Data) != 0 {
		t.Error("small talk must not carry screening data")
	}
	if len(history.entries) != 2 {
		t.Errorf("expected user and assistant entries persisted, got %d", len(history.entries))
	}
}

func TestRespondQueryRanksAndSummarizes(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"intent":"high_volume","keywords":[],"filters":[],"limit":null}`,
		"RELIANCE leads on volume today.",
	}}
	o := testOrchestrator(llm, defaultQuotes(), nil)

	reply, err := o.Respond(context.Background(), "u1", uuid.New(), "high volume stocks", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"RELIANCE", "INFY", "TCS"}
	if len(reply.Data) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(reply.Data))
	}
	for i, sym := range want {
		if reply.Data[i].Symbol != sym {
			t.Errorf("position %d: expected %s, got %s", i, sym, reply.Data[i].Symbol)
		}
	}
	if reply.Response != "RELIANCE leads on volume today." {
		t.Errorf("unexpected summary: %q", reply.Response)
	}
	if reply.Spec == nil || reply.Spec.Intent != models.IntentHighVolume {
		t.Error("reply must carry the executed specification")
	}
}

func TestRespondInterpreterFailureStillScreens(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("model down")}
	o := testOrchestrator(llm, defaultQuotes(), nil)

	reply, err := o.Respond(context.Background(), "u1", uuid.New(), "volatile stocks", nil)
	if err != nil {
		t.Fatalf("interpretation failure must degrade, not fail: %v", err)
	}
	if len(reply.Data) != 3 {
		t.Errorf("default specification must return the full universe, got %d", len(reply.Data))
	}
	if reply.Response != "Found 3 stocks matching your criteria." {
		t.Errorf("expected templated summary, got %q", reply.Response)
	}
}

func TestRespondSnapshotUnavailable(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"intent":"high_volume","keywords":[],"filters":[],"limit":null}`,
	}}
	o := testOrchestrator(llm, &staticQuotes{err: errors.New("exchange unreachable")}, nil)

	_, err := o.Respond(context.Background(), "u1", uuid.New(), "high volume stocks", nil)
	if !errors.Is(err, marketdata.ErrSnapshotUnavailable) {
		t.Errorf("expected snapshot unavailability, got %v", err)
	}
}

func TestRespondPersistFailureNonFatal(t *testing.T) {
	history := &memoryHistory{err: errors.New("db down")}
	o := testOrchestrator(&scriptedLLM{}, defaultQuotes(), history)

	reply, err := o.Respond(context.Background(), "u1", uuid.New(), "hello", nil)
	if err != nil {
		t.Fatalf("persistence failure must not fail the exchange: %v", err)
	}
	if reply.Response == "" {
		t.Error("expected a reply despite persistence failure")
	}
}

func TestScreenDirect(t *testing.T) {
	o := testOrchestrator(&scriptedLLM{}, defaultQuotes(), nil)

	spec := models.QuerySpecification{
		Filters: []models.Filter{
			{Field: "volume", Operator: models.OpGreaterEqual, Value: 3000},
		},
	}
	reply, err := o.Screen(context.Background(), spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.Data) != 2 {
		t.Errorf("expected 2 matches, got %d", len(reply.Data))
	}
}

package chat

import (
	"context"
	"time"

	"stock-scout/interpreter"
	"stock-scout/marketdata"
	"stock-scout/models"
	"stock-scout/observability"
	"stock-scout/screener"
	"stock-scout/services"

	"github.com/google/uuid"
)

// HistoryStore persists conversation turns. Persistence is best-effort; a
// nil store disables it.
type HistoryStore interface {
	AppendChatEntry(ctx context.Context, entry *models.ChatEntry) error
}

// Reply is the orchestrator's answer to one message: response text plus the
// structured results when the message was an analytical query.
type Reply struct {
	Response string                     `json:"response"`
	Data     []models.StockRecord       `json:"data,omitempty"`
	Spec     *models.QuerySpecification `json:"-"`
}

// Orchestrator sequences small-talk short-circuit, interpretation, screen
// execution and summarization for each chat message.
type Orchestrator struct {
	interp     *interpreter.Interpreter
	cache      *marketdata.Cache
	summarizer *Summarizer
	history    HistoryStore
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(interp *interpreter.Interpreter, cache *marketdata.Cache, llm services.LLMService, timeout time.Duration, history HistoryStore) *Orchestrator {
	return &Orchestrator{
		interp:     interp,
		cache:      cache,
		summarizer: NewSummarizer(llm, timeout),
		history:    history,
	}
}

// Respond processes one user message. The structured result never depends on
// the summarizer: a failed summary degrades to a templated sentence.
func (o *Orchestrator) Respond(ctx context.Context, userID string, conversationID uuid.UUID, message string, history []models.ChatMessage) (*Reply, error) {
	result := o.interp.Interpret(ctx, message, history)
	if result.Reply != "" {
		reply := &Reply{Response: result.Reply}
		o.persist(ctx, userID, conversationID, message, reply)
		return reply, nil
	}

	reply, err := o.Screen(ctx, *result.Spec)
	if err != nil {
		return nil, err
	}
	reply.Spec = result.Spec

	o.persist(ctx, userID, conversationID, message, reply)
	return reply, nil
}

// Screen executes a specification against the current snapshot and attaches
// a summary.
func (o *Orchestrator) Screen(ctx context.Context, spec models.QuerySpecification) (*Reply, error) {
	snapshot, err := o.cache.Current(ctx)
	if err != nil {
		return nil, err
	}

	records, err := screener.Execute(spec, snapshot)
	if err != nil {
		return nil, err
	}

	return &Reply{
		Response: o.summarizer.Summarize(ctx, spec, records),
		Data:     records,
	}, nil
}

// persist appends both turns of the exchange. Failures are logged, never
// surfaced; chat must work without a database.
func (o *Orchestrator) persist(ctx context.Context, userID string, conversationID uuid.UUID, message string, reply *Reply) {
	if o.history == nil {
		return
	}

	for _, entry := range []*models.ChatEntry{
		models.NewChatEntry(userID, conversationID, "user", message),
		models.NewChatEntry(userID, conversationID, "assistant", reply.Response),
	} {
		if err := o.history.AppendChatEntry(ctx, entry); err != nil {
			observability.WithConversation(conversationID.String()).Warn(
				"failed to persist chat entry", "error", err)
			return
		}
	}
}

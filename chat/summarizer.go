package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stock-scout/models"
	"stock-scout/observability"
	"stock-scout/services"
)

const summarySystemPrompt = `You are a concise market assistant. Given screening results, write one or two
sentences describing the list for the user. Mention at most the top three
symbols and the metric that ranked them. Plain text only, no markdown.`

// summaryTopN bounds how many records are shown to the model.
const summaryTopN = 5

// Summarizer turns a result list into a short natural-language description,
// degrading to a deterministic template whenever the model is unavailable.
type Summarizer struct {
	llm     services.LLMService
	timeout time.Duration
}

// NewSummarizer creates a Summarizer.
func NewSummarizer(llm services.LLMService, timeout time.Duration) *Summarizer {
	return &Summarizer{llm: llm, timeout: timeout}
}

// Summarize describes the results. It never fails: any model error or
// timeout falls back to the templated summary.
func (s *Summarizer) Summarize(ctx context.Context, spec models.QuerySpecification, records []models.StockRecord) string {
	if s.llm == nil || len(records) == 0 {
		return templatedSummary(len(records))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.llm.InvokeWithPrompt(callCtx, summarySystemPrompt, buildSummaryPrompt(spec, records))
	if err != nil || strings.TrimSpace(text) == "" {
		observability.Debug("summarizer degraded to template", "error", err)
		return templatedSummary(len(records))
	}

	return strings.TrimSpace(text)
}

func buildSummaryPrompt(spec models.QuerySpecification, records []models.StockRecord) string {
	var b strings.Builder
	if spec.Intent != models.IntentNone {
		fmt.Fprintf(&b, "Ranking: %s\n", spec.Intent)
	}
	fmt.Fprintf(&b, "Matches: %d\nTop results:\n", len(records))

	top := records
	if len(top) > summaryTopN {
		top = top[:summaryTopN]
	}
	for _, r := range top {
		fmt.Fprintf(&b, "- %s (%s): close=%s volume=%d\n", r.Symbol, r.CompanyName, r.Close.String(), r.Volume)
	}
	return b.String()
}

// templatedSummary is the deterministic fallback sentence.
func templatedSummary(n int) string {
	if n == 0 {
		return "No stocks matched your criteria."
	}
	return fmt.Sprintf("Found %d stocks matching your criteria.", n)
}

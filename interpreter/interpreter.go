package interpreter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"stock-scout/models"
	"stock-scout/observability"
	"stock-scout/screener"
	"stock-scout/services"
)

const systemPrompt = `You convert a user's stock market question into a JSON screening specification.

Respond with ONLY a JSON object in exactly this shape:
{
  "intent": <one of "high_price","low_price","high_volume","low_volume","high_delivery","high_turnover","high_trades","volatility","low_volatility","related_stocks" or null>,
  "keywords": [<lowercase tokens for company/sector matching>],
  "filters": [{"field": <field name>, "operator": <one of ">","<",">=","<=","=","contains">, "value": <number>}],
  "limit": <positive integer or null>
}

Rules:
- Valid filter fields: open, high, low, close, price, volume, turnover, trades, vwap, percent_delivered, market_cap, pe_ratio, roe, debt_to_equity, eps, dividend_yield, rsi, macd.
- NEVER emit generic market words as keywords: "nse", "bse", "stock", "stocks", "share", "shares", "market", "nifty", "sensex", "equity", "equities", "india", "indian", "company", "companies".
- Use "related_stocks" only when the user names a specific company or symbol to find peers of; put that name in keywords.
- "stocks below 500" means a filter {"field":"close","operator":"<","value":500}.
- An explicit count ("show me 5 ...") sets limit; otherwise limit is null.
- When in doubt, return {"intent":null,"keywords":[],"filters":[],"limit":null}.`

// excludedKeywords is the generic index/market vocabulary that must never
// survive keyword extraction, whatever the model returns.
var excludedKeywords = map[string]bool{
	"nse":       true,
	"bse":       true,
	"stock":     true,
	"stocks":    true,
	"share":     true,
	"shares":    true,
	"market":    true,
	"markets":   true,
	"nifty":     true,
	"sensex":    true,
	"equity":    true,
	"equities":  true,
	"india":     true,
	"indian":    true,
	"company":   true,
	"companies": true,
}

// Result is the outcome of interpreting one message: either a canned
// conversational reply or a screening specification, never both.
type Result struct {
	Reply string
	Spec  *models.QuerySpecification
}

// Interpreter turns natural-language questions into query specifications
type Interpreter struct {
	llm     services.LLMService
	timeout time.Duration
}

// New creates an Interpreter backed by the given language model
func New(llm services.LLMService, timeout time.Duration) *Interpreter {
	return &Interpreter{llm: llm, timeout: timeout}
}

// Interpret processes one message. Small talk is answered without any
// external call; everything else goes through the model with a strict parse,
// downgrading to the default "show everything" specification on any failure.
func (i *Interpreter) Interpret(ctx context.Context, text string, history []models.ChatMessage) *Result {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()

	if reply, ok := SmallTalk(text); ok {
		timer.ObserveInterpretation("fast")
		return &Result{Reply: reply}
	}

	spec, err := i.extract(ctx, text, history)
	if err != nil {
		observability.Warn("interpretation downgraded to default spec",
			"error", err)
		metrics.RecordInterpretFallback(fallbackReason(err))
		timer.ObserveInterpretation("fallback")
		d := models.DefaultQuerySpecification()
		return &Result{Spec: &d}
	}

	timer.ObserveInterpretation("model")
	return &Result{Spec: spec}
}

// rawSpec is the wire shape expected back from the model. Everything is
// revalidated before it becomes a QuerySpecification.
type rawSpec struct {
	Intent   *string  `json:"intent"`
	Keywords []string `json:"keywords"`
	Filters  []struct {
		Field    string      `json:"field"`
		Operator string      `json:"operator"`
		Value    json.Number `json:"value"`
	} `json:"filters"`
	Limit *int `json:"limit"`
}

func (i *Interpreter) extract(ctx context.Context, text string, history []models.ChatMessage) (*models.QuerySpecification, error) {
	if i.llm == nil {
		return nil, fmt.Errorf("no language model configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	userPrompt := buildUserPrompt(text, history)

	response, err := i.llm.InvokeWithPrompt(callCtx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	raw, err := parseModelJSON(response)
	if err != nil {
		return nil, fmt.Errorf("model output rejected: %w", err)
	}

	return sanitize(raw), nil
}

// buildUserPrompt embeds recent conversation turns so follow-up questions
// ("what about low volume ones?") keep their referent.
func buildUserPrompt(text string, history []models.ChatMessage) string {
	if len(history) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString("Recent conversation:\n")
	start := 0
	if len(history) > 6 {
		start = len(history) - 6
	}
	for _, msg := range history[start:] {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	b.WriteString("\nCurrent question: ")
	b.WriteString(text)
	return b.String()
}

// parseModelJSON strictly parses model output into rawSpec. Models wrap JSON
// in code fences or prose often enough that the first balanced object is
// extracted before unmarshalling.
func parseModelJSON(response string) (*rawSpec, error) {
	payload := extractJSONObject(response)
	if payload == "" {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	var raw rawSpec
	dec := json.NewDecoder(strings.NewReader(payload))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return &raw, nil
}

// extractJSONObject returns the first balanced {...} block in s, or "".
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for idx := start; idx < len(s); idx++ {
		c := s[idx]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : idx+1]
			}
		}
	}
	return ""
}

// sanitize enforces the schema rules on the parsed output. Unknown intents
// and non-positive limits become null, generic market words are stripped
// from keywords, and unresolvable filter fields are dropped. related_stocks
// without an anchor keyword degrades to no intent.
func sanitize(raw *rawSpec) *models.QuerySpecification {
	spec := models.DefaultQuerySpecification()

	if raw.Intent != nil {
		intent := models.Intent(strings.ToLower(strings.TrimSpace(*raw.Intent)))
		if intent.IsValid() {
			spec.Intent = intent
		}
	}

	for _, kw := range raw.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || excludedKeywords[kw] {
			continue
		}
		spec.Keywords = append(spec.Keywords, kw)
	}

	for _, f := range raw.Filters {
		op := models.Operator(strings.TrimSpace(f.Operator))
		if !op.IsValid() {
			continue
		}
		if _, ok := screener.Resolve(f.Field); !ok {
			continue
		}
		filter := models.Filter{
			Field:    strings.ToLower(strings.TrimSpace(f.Field)),
			Operator: op,
		}
		if op == models.OpContains {
			filter.Text = f.Value.String()
		} else {
			v, err := f.Value.Float64()
			if err != nil {
				continue
			}
			filter.Value = v
		}
		spec.Filters = append(spec.Filters, filter)
	}

	if raw.Limit != nil && *raw.Limit > 0 {
		spec.Limit = raw.Limit
	}

	// A peer lookup needs an anchor; without one there is nothing to relate.
	if spec.Intent == models.IntentRelatedStocks && len(spec.Keywords) == 0 {
		spec.Intent = models.IntentNone
	}

	return &spec
}

func fallbackReason(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "deadline"), strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "JSON"), strings.Contains(msg, "rejected"):
		return "parse_error"
	default:
		return "llm_error"
	}
}

package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a single model call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// AgentMeta holds operational metadata for one agent execution. The
// pipeline returns one entry per model call so callers can record
// metrics even when the run itself failed.
type AgentMeta struct {
	AgentName string
	Usage     TokenUsage
	Latency   time.Duration
}

// SumUsage aggregates token counts across a run. The Model field is
// taken from the last entry that set one.
func SumUsage(metas []AgentMeta) TokenUsage {
	var total TokenUsage
	for _, m := range metas {
		total.PromptTokens += m.Usage.PromptTokens
		total.CompletionTokens += m.Usage.CompletionTokens
		total.TotalTokens += m.Usage.TotalTokens
		if m.Usage.Model != "" {
			total.Model = m.Usage.Model
		}
	}
	return total
}

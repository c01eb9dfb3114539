package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a completion request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// CallMeta describes one orchestrated model call: which operation ran,
// what it cost and whether it produced a parsed result or a fallback.
type CallMeta struct {
	Operation string
	Usage     TokenUsage
	Latency   time.Duration
	Fallback  bool
}

package model

import "time"

// Request types recorded with every LLM call.
const (
	RequestInitialResponse = "initial_response"
	RequestEvaluation      = "evaluation"
	RequestFinalResponse   = "final_response"
	RequestWebSearch       = "web_search"
)

// TokenUsage is the token consumption of one LLM call, or an aggregate of many.
type TokenUsage struct {
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	TotalTokens  int       `json:"total_tokens"`
	Timestamp    time.Time `json:"timestamp"`
	ModelName    string    `json:"model_name"`
	RequestType  string    `json:"request_type"`
}

// Accumulate adds the counters of other into u.
func (u *TokenUsage) Accumulate(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

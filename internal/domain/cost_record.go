package domain

import "time"

// CostRecord is one immutable, billable call charged to the Cost Ledger.
type CostRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Phase        string    `json:"phase"`
	TaskID       string    `json:"taskId,omitempty"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"inputTokens"`
	OutputTokens int       `json:"outputTokens"`
	CostUsd      float64   `json:"costUsd"`
	LatencyMs    int64     `json:"latencyMs"`
}

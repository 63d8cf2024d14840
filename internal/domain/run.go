package domain

import "time"

// Run is an append-only record of one external call that produced an
// artifact of record: one per BUILD worker execution and one per SHIP_CHECK
// review. SCAN, PLAN and EVAL adapter calls are recorded in their own
// Scan/Plan/Evaluation records and the cost ledger, not as Runs.
type Run struct {
	ID        string    `json:"id"`
	CycleID   string    `json:"cycleId"`
	TaskID    string    `json:"taskId,omitempty"`
	Phase     string    `json:"phase"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Tokens    int       `json:"tokens"`
	CostUsd   float64   `json:"costUsd"`
	LatencyMs int64     `json:"latencyMs"`
	CreatedAt time.Time `json:"createdAt"`
}

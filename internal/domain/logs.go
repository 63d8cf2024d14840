package domain

import "time"

// DecisionLogEntry is an append-only audit record of one Budget Guard
// verdict or Tier Resolver classification (spec §3 / SPEC_FULL §3).
type DecisionLogEntry struct {
	ID        string    `json:"id"`
	CycleID   string    `json:"cycleId"`
	Phase     string    `json:"phase"`
	Summary   string    `json:"summary"`
	Rationale string    `json:"rationale"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExperimentLogEntry is an append-only audit record of one SHIP_CHECK
// verdict: what was tried and what the checker found.
type ExperimentLogEntry struct {
	ID          string    `json:"id"`
	CycleID     string    `json:"cycleId"`
	TaskID      string    `json:"taskId,omitempty"`
	Description string    `json:"description"`
	Outcome     string    `json:"outcome"`
	CreatedAt   time.Time `json:"createdAt"`
}

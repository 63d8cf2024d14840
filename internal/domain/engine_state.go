package domain

import "time"

// LoopState is the engine's current position in the ten-state loop machine.
// Defined here (rather than imported from package statemachine) so domain
// stays leaf-level; statemachine depends on domain, not the reverse.
type LoopState string

const (
	LoopIdle              LoopState = "idle"
	LoopScanning          LoopState = "scanning"
	LoopPlanning          LoopState = "planning"
	LoopBuilding          LoopState = "building"
	LoopShipChecking      LoopState = "ship_checking"
	LoopEvaluating        LoopState = "evaluating"
	LoopPaused            LoopState = "paused"
	LoopError             LoopState = "error"
	LoopAwaitingApproval  LoopState = "awaiting_approval"
	LoopBudgetExceeded    LoopState = "budget_exceeded"
)

// transient is the set of loop states that must not survive a process
// restart; spec §4.8.1 says EngineState.start() resets these to idle.
var transient = map[LoopState]bool{
	LoopScanning:         true,
	LoopPlanning:         true,
	LoopBuilding:         true,
	LoopShipChecking:     true,
	LoopEvaluating:       true,
	LoopError:            true,
	LoopAwaitingApproval: true,
	LoopBudgetExceeded:   true,
}

// IsTransient reports whether s is a mid-cycle state that cannot be resumed
// across a process restart.
func (s LoopState) IsTransient() bool {
	return transient[s]
}

// EngineState is the process-wide snapshot of the orchestrator's position.
type EngineState struct {
	LoopState             LoopState  `json:"loopState"`
	Mode                  string     `json:"mode"`
	CurrentCycleID        string     `json:"currentCycleId,omitempty"`
	CurrentPhase          string     `json:"currentPhase,omitempty"`
	CurrentTaskID         string     `json:"currentTaskId,omitempty"`
	LastCycleCompletedAt  *time.Time `json:"lastCycleCompletedAt,omitempty"`
	NextCycleScheduledAt  *time.Time `json:"nextCycleScheduledAt,omitempty"`
	TotalCyclesCompleted  int        `json:"totalCyclesCompleted"`
	Error                 string     `json:"error,omitempty"`
}

// ResetIfTransient forces the loop state to idle if a prior process crashed
// mid-cycle, per spec §4.8.1 start(): "if its state is neither idle nor
// paused ... force-transition to idle".
func (e *EngineState) ResetIfTransient() {
	if e.LoopState != LoopIdle && e.LoopState != LoopPaused {
		e.LoopState = LoopIdle
	}
}

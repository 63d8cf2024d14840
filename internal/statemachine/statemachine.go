// Package statemachine defines the ten engine loop states and the legal
// transitions among them (spec §4.9.1), plus the phase<->state bijection
// over the five active phases.
package statemachine

import "github.com/cortexloop/engine/internal/domain"

// Phase names, matching spec §4.6 exactly.
const (
	PhaseScan       = "scan"
	PhasePlan       = "plan"
	PhaseBuild      = "build"
	PhaseShipCheck  = "ship_check"
	PhaseEval       = "eval"
)

// transitions is the legal-transition table from spec §4.9.1.
var transitions = map[domain.LoopState]map[domain.LoopState]bool{
	domain.LoopIdle: {
		domain.LoopScanning: true,
		domain.LoopPaused:   true,
	},
	domain.LoopScanning: {
		domain.LoopPlanning:       true,
		domain.LoopError:         true,
		domain.LoopPaused:        true,
		domain.LoopBudgetExceeded: true,
	},
	domain.LoopPlanning: {
		domain.LoopBuilding:      true,
		domain.LoopError:         true,
		domain.LoopPaused:        true,
		domain.LoopBudgetExceeded: true,
	},
	domain.LoopBuilding: {
		domain.LoopShipChecking:     true,
		domain.LoopError:            true,
		domain.LoopPaused:           true,
		domain.LoopBudgetExceeded:   true,
		domain.LoopAwaitingApproval: true,
	},
	domain.LoopShipChecking: {
		domain.LoopEvaluating:    true,
		domain.LoopError:         true,
		domain.LoopPaused:        true,
		domain.LoopBudgetExceeded: true,
	},
	domain.LoopEvaluating: {
		domain.LoopIdle:   true,
		domain.LoopError:  true,
		domain.LoopPaused: true,
	},
	domain.LoopPaused: {
		domain.LoopIdle:         true,
		domain.LoopScanning:     true,
		domain.LoopPlanning:     true,
		domain.LoopBuilding:     true,
		domain.LoopShipChecking: true,
		domain.LoopEvaluating:   true,
	},
	domain.LoopError: {
		domain.LoopIdle:     true,
		domain.LoopScanning: true,
		domain.LoopPaused:   true,
	},
	domain.LoopAwaitingApproval: {
		domain.LoopBuilding: true,
		domain.LoopPaused:   true,
		domain.LoopError:    true,
	},
	domain.LoopBudgetExceeded: {
		domain.LoopIdle:   true,
		domain.LoopPaused: true,
	},
}

// phaseToState and stateToPhase implement the bijection over the five
// active phases (spec §8.1 property 7: phaseForState(stateForPhase(p)) = p).
var phaseToState = map[string]domain.LoopState{
	PhaseScan:      domain.LoopScanning,
	PhasePlan:      domain.LoopPlanning,
	PhaseBuild:     domain.LoopBuilding,
	PhaseShipCheck: domain.LoopShipChecking,
	PhaseEval:      domain.LoopEvaluating,
}

var stateToPhase = func() map[domain.LoopState]string {
	m := make(map[domain.LoopState]string, len(phaseToState))
	for p, s := range phaseToState {
		m[s] = p
	}
	return m
}()

// CanTransition reports whether a -> b is a legal transition.
func CanTransition(a, b domain.LoopState) bool {
	return transitions[a][b]
}

// StateForPhase returns the loop state associated with phase, or "" if
// phase is unknown.
func StateForPhase(phase string) domain.LoopState {
	return phaseToState[phase]
}

// PhaseForState returns the phase associated with state, or "" if state has
// no associated phase (e.g. idle, paused, error, awaiting_approval,
// budget_exceeded).
func PhaseForState(state domain.LoopState) string {
	return stateToPhase[state]
}

// Reachable reports whether target is reachable from current either directly
// or in two hops via idle (spec §4.8.3 step b / §9 "try via idle").
// It returns (viaIdle, ok): ok is true if target is reachable at all; viaIdle
// is true if the direct transition is illegal but current -> idle -> target
// both hold.
func Reachable(current, target domain.LoopState) (viaIdle bool, ok bool) {
	if CanTransition(current, target) {
		return false, true
	}
	if CanTransition(current, domain.LoopIdle) && CanTransition(domain.LoopIdle, target) {
		return true, true
	}
	return false, false
}

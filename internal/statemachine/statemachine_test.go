package statemachine

import (
	"testing"

	"github.com/cortexloop/engine/internal/domain"
)

var allStates = []domain.LoopState{
	domain.LoopIdle, domain.LoopScanning, domain.LoopPlanning, domain.LoopBuilding,
	domain.LoopShipChecking, domain.LoopEvaluating, domain.LoopPaused, domain.LoopError,
	domain.LoopAwaitingApproval, domain.LoopBudgetExceeded,
}

var legal = map[domain.LoopState]map[domain.LoopState]bool{
	domain.LoopIdle:             {domain.LoopScanning: true, domain.LoopPaused: true},
	domain.LoopScanning:         {domain.LoopPlanning: true, domain.LoopError: true, domain.LoopPaused: true, domain.LoopBudgetExceeded: true},
	domain.LoopPlanning:         {domain.LoopBuilding: true, domain.LoopError: true, domain.LoopPaused: true, domain.LoopBudgetExceeded: true},
	domain.LoopBuilding:         {domain.LoopShipChecking: true, domain.LoopError: true, domain.LoopPaused: true, domain.LoopBudgetExceeded: true, domain.LoopAwaitingApproval: true},
	domain.LoopShipChecking:     {domain.LoopEvaluating: true, domain.LoopError: true, domain.LoopPaused: true, domain.LoopBudgetExceeded: true},
	domain.LoopEvaluating:       {domain.LoopIdle: true, domain.LoopError: true, domain.LoopPaused: true},
	domain.LoopPaused:           {domain.LoopIdle: true, domain.LoopScanning: true, domain.LoopPlanning: true, domain.LoopBuilding: true, domain.LoopShipChecking: true, domain.LoopEvaluating: true},
	domain.LoopError:            {domain.LoopIdle: true, domain.LoopScanning: true, domain.LoopPaused: true},
	domain.LoopAwaitingApproval: {domain.LoopBuilding: true, domain.LoopPaused: true, domain.LoopError: true},
	domain.LoopBudgetExceeded:   {domain.LoopIdle: true, domain.LoopPaused: true},
}

// TestStateMachineClosure checks property 6: for every legal transition
// a->b, CanTransition(a,b)=true; for every other pair, CanTransition(a,b)=false.
func TestStateMachineClosure(t *testing.T) {
	for _, a := range allStates {
		for _, b := range allStates {
			want := legal[a][b]
			got := CanTransition(a, b)
			if got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", a, b, got, want)
			}
		}
	}
}

// TestPhaseStateBijection checks property 7: phaseForState(stateForPhase(p)) = p.
func TestPhaseStateBijection(t *testing.T) {
	phases := []string{PhaseScan, PhasePlan, PhaseBuild, PhaseShipCheck, PhaseEval}
	for _, p := range phases {
		s := StateForPhase(p)
		if s == "" {
			t.Fatalf("StateForPhase(%s) returned empty state", p)
		}
		if got := PhaseForState(s); got != p {
			t.Errorf("PhaseForState(StateForPhase(%s)) = %s, want %s", p, got, p)
		}
	}
}

func TestNonPhaseStatesHaveNoPhase(t *testing.T) {
	for _, s := range []domain.LoopState{domain.LoopIdle, domain.LoopPaused, domain.LoopError, domain.LoopAwaitingApproval, domain.LoopBudgetExceeded} {
		if got := PhaseForState(s); got != "" {
			t.Errorf("PhaseForState(%s) = %q, want empty", s, got)
		}
	}
}

func TestReachableViaIdle(t *testing.T) {
	// scanning is not directly reachable from budget_exceeded, but
	// budget_exceeded->idle->scanning is.
	viaIdle, ok := Reachable(domain.LoopBudgetExceeded, domain.LoopScanning)
	if !ok || !viaIdle {
		t.Fatalf("Reachable(budget_exceeded, scanning) = (%v, %v), want (true, true)", viaIdle, ok)
	}
}

func TestUnreachableTarget(t *testing.T) {
	// ship_checking is not reachable from awaiting_approval (direct or via idle).
	_, ok := Reachable(domain.LoopAwaitingApproval, domain.LoopShipChecking)
	if ok {
		t.Fatalf("Reachable(awaiting_approval, ship_checking) = ok, want unreachable")
	}
}

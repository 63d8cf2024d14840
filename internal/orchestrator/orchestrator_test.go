package orchestrator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cortexloop/engine/internal/budget"
	"github.com/cortexloop/engine/internal/config"
	"github.com/cortexloop/engine/internal/domain"
	"github.com/cortexloop/engine/internal/ledger"
	"github.com/cortexloop/engine/internal/router"
	"github.com/cortexloop/engine/internal/store"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *store.Store) {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	l := ledger.New()
	g := budget.New(l, domain.DefaultBudgetConfig())
	r := router.New(router.ModeSimulation)

	mgr := config.NewManager(filepath.Join(t.TempDir(), "config.json"))
	cfg := config.DefaultConfig()
	cfg.CycleCooldownMinutes = 60
	if err := mgr.Save(&cfg); err != nil {
		t.Fatalf("Save config: %v", err)
	}

	o := New(s, l, g, r, nil, mgr, t.TempDir())
	return o, s
}

// TestSimulationCycleCompletesAndIdlesAgain exercises Scenario A (spec
// §8.2): a full SCAN->PLAN->BUILD->SHIP_CHECK->EVAL pass in simulation
// mode, every adapter call resolving to the mock, ending back at idle with
// totalCyclesCompleted incremented.
func TestSimulationCycleCompletesAndIdlesAgain(t *testing.T) {
	o, s := newTestOrchestrator(t)
	ctx := context.Background()

	if err := s.SaveObjective(ctx, &domain.Objective{ID: "o1", Title: "Ship v1", Status: domain.ObjectiveActive}); err != nil {
		t.Fatalf("SaveObjective: %v", err)
	}

	if err := o.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer o.Stop(ctx)

	cycleID, err := o.Trigger(ctx, "")
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if cycleID == "" {
		t.Fatalf("expected non-empty cycle id")
	}

	snap := o.GetState()
	if snap.State != domain.LoopIdle {
		t.Fatalf("expected idle after cycle, got %s (err=%s)", snap.State, snap.Error)
	}
	if snap.TotalCyclesCompleted != 1 {
		t.Fatalf("expected 1 completed cycle, got %d", snap.TotalCyclesCompleted)
	}

	cycles, err := s.ListCycles(ctx)
	if err != nil || len(cycles) != 1 {
		t.Fatalf("ListCycles: %v %v", cycles, err)
	}
	if cycles[0].State != domain.CycleCompleted {
		t.Fatalf("expected cycle completed, got %s", cycles[0].State)
	}
}

// TestTriggerRejectedWhenNotIdleOrPaused checks the "Cannot trigger" guard
// cannot be bypassed once the loop state has left idle/paused.
func TestTriggerRejectedWhenNotIdleOrPaused(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	o.stateMu.Lock()
	o.state.LoopState = domain.LoopScanning
	o.stateMu.Unlock()

	_, err := o.Trigger(context.Background(), "")
	if err == nil {
		t.Fatalf("expected trigger to be rejected")
	}
}

func TestPauseIsIdempotentAndResumeReschedules(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()
	if err := o.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer o.Stop(ctx)

	if err := o.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := o.Pause(ctx); err != nil {
		t.Fatalf("second Pause: %v", err)
	}
	if o.GetState().State != domain.LoopPaused {
		t.Fatalf("expected paused")
	}

	if err := o.Resume(ctx); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if o.GetState().State != domain.LoopIdle {
		t.Fatalf("expected idle after resume")
	}
	if _, pending := o.scheduler.Pending(); !pending {
		t.Fatalf("expected next cycle to be rescheduled after resume")
	}
}

func TestRegisterPresetRunsBeforeCycle(t *testing.T) {
	o, s := newTestOrchestrator(t)
	ctx := context.Background()
	if err := o.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer o.Stop(ctx)

	o.RegisterPreset("seed", func(ctx context.Context) error {
		return s.SaveObjective(ctx, &domain.Objective{ID: "o1", Title: "Seeded", Status: domain.ObjectiveActive})
	})

	if _, err := o.Trigger(ctx, "seed"); err != nil {
		t.Fatalf("Trigger with preset: %v", err)
	}

	objs, err := s.ListObjectives(ctx)
	if err != nil || len(objs) != 1 {
		t.Fatalf("expected preset to seed an objective: %v %v", objs, err)
	}
}

func TestEventsBroadcastInProgramOrder(t *testing.T) {
	o, s := newTestOrchestrator(t)
	ctx := context.Background()
	if err := s.SaveObjective(ctx, &domain.Objective{ID: "o1", Title: "Ship v1", Status: domain.ObjectiveActive}); err != nil {
		t.Fatalf("SaveObjective: %v", err)
	}
	if err := o.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer o.Stop(ctx)

	var phaseEvents []string
	o.Subscribe(func(e Event) {
		if e.Type == "phase_complete" {
			phaseEvents = append(phaseEvents, e.Phase)
		}
	})

	if _, err := o.Trigger(ctx, ""); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	want := []string{"scan", "plan", "build", "ship_check", "eval"}
	if len(phaseEvents) != len(want) {
		t.Fatalf("phase events = %v, want %v", phaseEvents, want)
	}
	for i, p := range want {
		if phaseEvents[i] != p {
			t.Fatalf("phase event %d = %s, want %s", i, phaseEvents[i], p)
		}
	}
}

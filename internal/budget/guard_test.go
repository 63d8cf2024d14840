package budget

import (
	"testing"
	"time"

	"github.com/cortexloop/engine/internal/domain"
)

// fakeLedger lets tests fix exactly what each query returns, independent of
// package ledger's implementation.
type fakeLedger struct {
	costForTask      map[string]float64
	daily            float64
	weekly           float64
	providerDaily    map[string]float64
}

func (f *fakeLedger) CostForTask(id string) float64            { return f.costForTask[id] }
func (f *fakeLedger) DailyCost(time.Time) float64               { return f.daily }
func (f *fakeLedger) WeeklyCost(time.Time) float64              { return f.weekly }
func (f *fakeLedger) ProviderDailyCost(p string, t time.Time) float64 {
	return f.providerDaily[p]
}

func TestAtCapIsAdmitted(t *testing.T) {
	g := New(&fakeLedger{}, domain.BudgetConfig{
		PerCallUsd: 1.0, PerTaskUsd: 10, PerCycleUsd: 10, DailyUsd: 10, WeeklyUsd: 10,
	})
	v := g.Check(Request{EstimatedCostUsd: 1.0})
	if !v.Allowed {
		t.Fatalf("estimate exactly at per-call cap should be allowed, got %+v", v)
	}
}

// Scenario B: perCallUsd=0.01, estimated=0.05 -> blocked at per_call.
func TestScenarioB_BudgetDeniedPerCall(t *testing.T) {
	g := New(&fakeLedger{}, domain.BudgetConfig{
		PerCallUsd: 0.01, PerTaskUsd: 100, PerCycleUsd: 100, DailyUsd: 100, WeeklyUsd: 100,
	})
	v := g.Check(Request{EstimatedCostUsd: 0.05})
	if v.Allowed || v.Level != domain.LevelPerCall {
		t.Fatalf("want blocked at per_call, got %+v", v)
	}
}

// Scenario D: caps {0.5,5,20,10,50,{openai:5}}; ledger openai/t1=4.9 today;
// request {1.0, t1, cycleSpend 19.5, openai} -> blocked at per_call (first
// failing check wins, and 1.0 > 0.5 fails before anything else is checked).
func TestScenarioD_CapOrdering(t *testing.T) {
	fl := &fakeLedger{
		costForTask:   map[string]float64{"t1": 4.9},
		daily:         0,
		weekly:        0,
		providerDaily: map[string]float64{"openai": 4.9},
	}
	g := New(fl, domain.BudgetConfig{
		PerCallUsd: 0.5, PerTaskUsd: 5, PerCycleUsd: 20, DailyUsd: 10, WeeklyUsd: 50,
		PerProviderDailyUsd: map[string]float64{"openai": 5},
	})
	v := g.Check(Request{EstimatedCostUsd: 1.0, TaskID: "t1", CycleSpendUsd: 19.5, Provider: "openai"})
	if v.Allowed || v.Level != domain.LevelPerCall {
		t.Fatalf("want blocked at per_call (first failing check), got %+v", v)
	}
}

func TestOrderedAdmission_PerTaskBeforePerCycle(t *testing.T) {
	fl := &fakeLedger{costForTask: map[string]float64{"t1": 4.5}}
	g := New(fl, domain.BudgetConfig{
		PerCallUsd: 10, PerTaskUsd: 5, PerCycleUsd: 0.5, DailyUsd: 100, WeeklyUsd: 100,
	})
	// Both per_task (4.5+1>5) and per_cycle (0+1>0.5) would fail;
	// per_task is checked first.
	v := g.Check(Request{EstimatedCostUsd: 1.0, TaskID: "t1", CycleSpendUsd: 0})
	if v.Allowed || v.Level != domain.LevelPerTask {
		t.Fatalf("want blocked at per_task first, got %+v", v)
	}
}

func TestPerProviderDailySkippedWhenNoEntryOrZeroCap(t *testing.T) {
	fl := &fakeLedger{providerDaily: map[string]float64{"openai": 1000}}
	g := New(fl, domain.BudgetConfig{
		PerCallUsd: 10, PerTaskUsd: 10, PerCycleUsd: 10, DailyUsd: 10, WeeklyUsd: 10,
	})
	v := g.Check(Request{EstimatedCostUsd: 1, Provider: "openai"})
	if !v.Allowed {
		t.Fatalf("no perProviderDailyUsd entry should skip the check, got %+v", v)
	}

	g.UpdateBudgets(domain.BudgetConfig{
		PerCallUsd: 10, PerTaskUsd: 10, PerCycleUsd: 10, DailyUsd: 10, WeeklyUsd: 10,
		PerProviderDailyUsd: map[string]float64{"openai": 0},
	})
	v = g.Check(Request{EstimatedCostUsd: 1, Provider: "openai"})
	if !v.Allowed {
		t.Fatalf("zero-cap provider entry should skip the check, got %+v", v)
	}
}

func TestZeroCostCallAlwaysAllowedWithNoProviderEntry(t *testing.T) {
	g := New(&fakeLedger{}, domain.BudgetConfig{})
	v := g.Check(Request{EstimatedCostUsd: 0, Provider: "anything"})
	if !v.Allowed {
		t.Fatalf("zero-cost call with no provider entry should always be allowed, got %+v", v)
	}
}

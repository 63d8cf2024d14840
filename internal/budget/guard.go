// Package budget implements the Budget Guard (spec §4.2): pre-call
// admission control over the Cost Ledger and the current cycle's running
// spend, checked against six ordered caps.
package budget

import (
	"fmt"
	"sync"
	"time"

	"github.com/cortexloop/engine/internal/domain"
)

// Ledger is the subset of internal/ledger.Ledger the guard needs to read.
// Declared here so this package doesn't import ledger's concrete type,
// matching the teacher's preference for small consumer-defined interfaces.
type Ledger interface {
	CostForTask(taskID string) float64
	DailyCost(now time.Time) float64
	WeeklyCost(now time.Time) float64
	ProviderDailyCost(provider string, now time.Time) float64
}

// Request is one proposed call's admission request.
type Request struct {
	EstimatedCostUsd float64
	TaskID           string
	CycleSpendUsd    float64
	Provider         string
}

// Verdict is the Budget Guard's answer: Allowed, or Blocked with a level
// and reason.
type Verdict struct {
	Allowed bool
	Level   domain.BudgetLevel
	Reason  string
}

// Guard holds the hot-reloadable BudgetConfig by reference behind a mutex,
// per SPEC_FULL §9: "Favor explicit applyConfig(newCfg) ... so the
// Orchestrator remains the single point of truth."
type Guard struct {
	mu     sync.RWMutex
	cfg    domain.BudgetConfig
	ledger Ledger
	now    func() time.Time
}

// New constructs a Guard over ledger with the given initial caps.
func New(ledger Ledger, cfg domain.BudgetConfig) *Guard {
	cfg.Clamp()
	return &Guard{cfg: cfg, ledger: ledger, now: time.Now}
}

// UpdateBudgets hot-reloads the caps.
func (g *Guard) UpdateBudgets(cfg domain.BudgetConfig) {
	cfg.Clamp()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cfg = cfg
}

// Budgets returns the current caps.
func (g *Guard) Budgets() domain.BudgetConfig {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cfg
}

// Check runs the six ordered admission checks and returns the first
// failing one, or Allowed if none fail. Strict ">" comparisons mean an
// estimate exactly equal to a cap is admitted (spec §4.2 "at-cap
// admittance").
func (g *Guard) Check(req Request) Verdict {
	g.mu.RLock()
	cfg := g.cfg
	g.mu.RUnlock()

	now := g.now()

	// 1. per_call
	if req.EstimatedCostUsd > cfg.PerCallUsd {
		return blocked(domain.LevelPerCall, fmt.Sprintf(
			"estimated cost %.4f exceeds per-call cap %.4f", req.EstimatedCostUsd, cfg.PerCallUsd))
	}

	// 2. per_task (skip if no taskId)
	if req.TaskID != "" {
		spent := g.ledger.CostForTask(req.TaskID)
		if spent+req.EstimatedCostUsd > cfg.PerTaskUsd {
			return blocked(domain.LevelPerTask, fmt.Sprintf(
				"task %s spend %.4f + estimated %.4f exceeds per-task cap %.4f",
				req.TaskID, spent, req.EstimatedCostUsd, cfg.PerTaskUsd))
		}
	}

	// 3. per_cycle
	if req.CycleSpendUsd+req.EstimatedCostUsd > cfg.PerCycleUsd {
		return blocked(domain.LevelPerCycle, fmt.Sprintf(
			"cycle spend %.4f + estimated %.4f exceeds per-cycle cap %.4f",
			req.CycleSpendUsd, req.EstimatedCostUsd, cfg.PerCycleUsd))
	}

	// 4. daily
	daily := g.ledger.DailyCost(now)
	if daily+req.EstimatedCostUsd > cfg.DailyUsd {
		return blocked(domain.LevelDaily, fmt.Sprintf(
			"daily spend %.4f + estimated %.4f exceeds daily cap %.4f",
			daily, req.EstimatedCostUsd, cfg.DailyUsd))
	}

	// 5. weekly
	weekly := g.ledger.WeeklyCost(now)
	if weekly+req.EstimatedCostUsd > cfg.WeeklyUsd {
		return blocked(domain.LevelWeekly, fmt.Sprintf(
			"weekly spend %.4f + estimated %.4f exceeds weekly cap %.4f",
			weekly, req.EstimatedCostUsd, cfg.WeeklyUsd))
	}

	// 6. per_provider_daily (skip if provider has no entry, or cap is 0)
	if cap, ok := cfg.PerProviderDailyUsd[req.Provider]; ok && cap != 0 {
		spent := g.ledger.ProviderDailyCost(req.Provider, now)
		if spent+req.EstimatedCostUsd > cap {
			return blocked(domain.LevelPerProviderDaily, fmt.Sprintf(
				"provider %s daily spend %.4f + estimated %.4f exceeds cap %.4f",
				req.Provider, spent, req.EstimatedCostUsd, cap))
		}
	}

	return Verdict{Allowed: true}
}

func blocked(level domain.BudgetLevel, reason string) Verdict {
	return Verdict{Allowed: false, Level: level, Reason: reason}
}

// AsError converts a blocked Verdict into a *domain.BudgetBlocked, or nil
// if the verdict allowed the call.
func (v Verdict) AsError() error {
	if v.Allowed {
		return nil
	}
	return &domain.BudgetBlocked{Level: v.Level, Reason: v.Reason}
}

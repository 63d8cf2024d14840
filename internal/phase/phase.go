// Package phase implements the Phase Executor (spec §4.6): one file per
// phase, sharing the common pre-phase contract (estimate cost, resolve
// provider, check budget, load objectives) that every phase applies before
// doing its phase-specific work.
package phase

import (
	"context"
	"fmt"

	"github.com/cortexloop/engine/internal/budget"
	"github.com/cortexloop/engine/internal/domain"
	"github.com/cortexloop/engine/internal/ledger"
	"github.com/cortexloop/engine/internal/providers"
	"github.com/cortexloop/engine/internal/recall"
	"github.com/cortexloop/engine/internal/router"
	"github.com/cortexloop/engine/internal/store"
)

// estimatedCostUsd is the conservative per-phase cost estimate the Budget
// Guard checks against before any call is made (spec §4.6 step 1). These
// are deliberately coarse: real cost is recorded after the call returns.
const (
	estimateScan      = 0.02
	estimatePlan      = 0.03
	estimateBuildCall = 0.05
	estimateShipCheck = 0.02
	estimateEval      = 0.02
)

// Result is what every phase returns to the Orchestrator.
type Result struct {
	Success bool
	CostUsd float64
	Error   string

	TasksCreated   int
	TasksCompleted int
}

// Deps bundles everything a phase needs. Held by the Orchestrator and
// passed to each phase call; phases never construct their own deps.
type Deps struct {
	Router     *router.Router
	Guard      *budget.Guard
	Ledger     *ledger.Ledger
	Store      *store.Store
	Recall     *recall.Index // optional; nil disables SCAN enrichment
	WorkingDir string
}

// Context carries the state that's valid for one cycle only (spec §4.6:
// "lastScan, lastPlan, lastTasks ... reset at end of EVAL").
type Context struct {
	CycleID       string
	CycleSpendUsd float64
	LastScan      *domain.Scan
	LastPlan      *domain.Plan
	LastTasks     []domain.Task
}

// admitted is what a successful pre-phase admission check hands back.
type admitted struct {
	adapter  providers.TextGenerator
	provider string
}

// admitAdapter runs the common pre-phase contract's steps 1-3 for a
// text-generation role: resolve a provider, then check the Budget Guard.
func admitAdapter(deps *Deps, cyc *Context, role router.Role, estimatedCostUsd float64, taskID string) (admitted, error) {
	res, err := deps.Router.GetAdapter(role)
	if err != nil {
		return admitted{}, fmt.Errorf("phase: resolve adapter: %w", err)
	}

	verdict := deps.Guard.Check(budget.Request{
		EstimatedCostUsd: estimatedCostUsd,
		TaskID:           taskID,
		CycleSpendUsd:    cyc.CycleSpendUsd,
		Provider:         res.ProviderName,
	})
	if !verdict.Allowed {
		return admitted{}, verdict.AsError()
	}

	return admitted{adapter: res.Adapter, provider: res.ProviderName}, nil
}

// admitBuildWorker is admitAdapter's counterpart for the building role.
func admitBuildWorker(deps *Deps, cyc *Context, estimatedCostUsd float64, taskID string) (providers.BuildWorker, string, error) {
	res, err := deps.Router.GetBuildWorker()
	if err != nil {
		return nil, "", fmt.Errorf("phase: resolve build worker: %w", err)
	}

	verdict := deps.Guard.Check(budget.Request{
		EstimatedCostUsd: estimatedCostUsd,
		TaskID:           taskID,
		CycleSpendUsd:    cyc.CycleSpendUsd,
		Provider:         res.ProviderName,
	})
	if !verdict.Allowed {
		return nil, "", verdict.AsError()
	}

	return res.Worker, res.ProviderName, nil
}

// activeObjectives loads every objective currently in ObjectiveActive
// status, per the common pre-phase contract's step 4.
func activeObjectives(ctx context.Context, deps *Deps) ([]domain.Objective, error) {
	all, err := deps.Store.ListObjectives(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase: list objectives: %w", err)
	}
	active := make([]domain.Objective, 0, len(all))
	for _, o := range all {
		if o.IsActive() {
			active = append(active, o)
		}
	}
	return active, nil
}

func firstActiveObjectiveID(objectives []domain.Objective) string {
	if len(objectives) == 0 {
		return ""
	}
	return objectives[0].ID
}

func failed(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

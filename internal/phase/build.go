package phase

import (
	"context"
	"fmt"
	"time"

	"github.com/cortexloop/engine/internal/domain"
	"github.com/cortexloop/engine/internal/providers"
	"github.com/cortexloop/engine/internal/tier"
)

// Build runs the BUILD phase (spec §4.6 BUILD, role: building). For each
// proposed task in the cycle's plan it resolves an autonomy tier; T2 tasks
// are parked awaiting human approval rather than executed.
func Build(ctx context.Context, deps *Deps, cyc *Context) Result {
	if cyc.LastPlan == nil {
		return failed(&domain.PreconditionError{Reason: "BUILD requires a plan from this cycle"})
	}

	res := Result{Success: true}
	tasks := make([]domain.Task, 0, cyc.LastPlan.TotalProposedTasks())
	now := time.Now().UTC()

	for _, priority := range cyc.LastPlan.Strategy.Priorities {
		for _, proposed := range priority.ProposedTasks {
			task := newTaskFromProposal(priority.ObjectiveID, cyc.CycleID, proposed, now, deps.Guard.Budgets().PerTaskUsd)

			suggested := proposed.SuggestedTier
			task.AutonomyTier = tier.Resolve(tier.Input{
				Title:         task.Title,
				Description:   task.Description,
				SuggestedTier: &suggested,
			})

			if task.AutonomyTier == domain.TierT2 {
				task.State = domain.TaskAwaitingApproval
				if err := deps.Store.SaveTask(ctx, task); err != nil {
					return failed(fmt.Errorf("phase: persist task: %w", err))
				}
				tasks = append(tasks, *task)
				res.TasksCreated++
				continue
			}

			worker, provider, err := admitBuildWorker(deps, cyc, estimateBuildCall, task.ID)
			if err != nil {
				task.State = domain.TaskFailed
				task.Error = err.Error()
				if saveErr := deps.Store.SaveTask(ctx, task); saveErr != nil {
					return failed(fmt.Errorf("phase: persist task: %w", saveErr))
				}
				tasks = append(tasks, *task)
				res.TasksCreated++
				continue
			}

			task.State = domain.TaskBuilding
			execResult, err := worker.Execute(ctx, providers.BuildTask{
				ID:          task.ID,
				Title:       task.Title,
				Description: task.Description,
				Phase:       "build",
				Tier:        int(task.AutonomyTier),
			}, deps.WorkingDir)

			runRecord := &domain.Run{
				ID:        domain.NewID(),
				CycleID:   cyc.CycleID,
				TaskID:    task.ID,
				Phase:     "build",
				Provider:  provider,
				Success:   err == nil && execResult.Success,
				CreatedAt: time.Now().UTC(),
			}

			if err != nil {
				task.State = domain.TaskFailed
				task.Error = err.Error()
				runRecord.Error = err.Error()
			} else {
				task.AddCost(execResult.CostUsd)
				task.Artifacts = applyArtifacts(execResult.Artifacts)
				runRecord.CostUsd = execResult.CostUsd
				runRecord.LatencyMs = execResult.LatencyMs
				runRecord.Response = execResult.Output
				if execResult.Success {
					task.State = domain.TaskReviewing
				} else {
					task.State = domain.TaskFailed
					task.Error = execResult.Error
					runRecord.Error = execResult.Error
				}
				deps.Ledger.Record(domain.CostRecord{
					Timestamp: runRecord.CreatedAt,
					Phase:     "build",
					TaskID:    task.ID,
					Provider:  provider,
					CostUsd:   execResult.CostUsd,
					LatencyMs: execResult.LatencyMs,
				})
				res.CostUsd += execResult.CostUsd
			}

			if err := deps.Store.AppendRun(ctx, runRecord); err != nil {
				return failed(fmt.Errorf("phase: persist run: %w", err))
			}

			task.UpdatedAt = time.Now().UTC()
			if err := deps.Store.SaveTask(ctx, task); err != nil {
				return failed(fmt.Errorf("phase: persist task: %w", err))
			}
			tasks = append(tasks, *task)
			res.TasksCreated++
		}
	}

	cyc.LastTasks = tasks
	return res
}

func newTaskFromProposal(objectiveID, cycleID string, proposed domain.ProposedTask, now time.Time, budgetCapUsd float64) *domain.Task {
	return &domain.Task{
		ID:           domain.NewID(),
		ObjectiveID:  objectiveID,
		CycleID:      cycleID,
		Title:        proposed.Title,
		Description:  proposed.Description,
		State:        domain.TaskQueued,
		BudgetCapUsd: budgetCapUsd,
		Truth: domain.TruthLabel{
			Status:     domain.TruthHypothesis,
			Confidence: domain.ConfidenceMedium,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// applyArtifacts converts provider-reported artifacts into domain artifacts,
// dropping any whose type isn't one of the five restricted kinds (spec §4.6
// BUILD).
func applyArtifacts(in []providers.ExecuteArtifact) []domain.Artifact {
	out := make([]domain.Artifact, 0, len(in))
	for _, a := range in {
		t := domain.ArtifactType(a.Type)
		if !t.Valid() {
			continue
		}
		out = append(out, domain.Artifact{Type: t, Value: a.Value})
	}
	return out
}

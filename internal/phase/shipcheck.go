package phase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cortexloop/engine/internal/domain"
	"github.com/cortexloop/engine/internal/providers"
)

// ShipCheck runs the SHIP_CHECK phase (spec §4.6 SHIP_CHECK, role:
// reviewing): reviews every task this cycle left in state reviewing.
func ShipCheck(ctx context.Context, deps *Deps, cyc *Context) Result {
	res := Result{Success: true}

	for i := range cyc.LastTasks {
		task := &cyc.LastTasks[i]
		if task.State != domain.TaskReviewing {
			continue
		}

		worker, provider, err := admitBuildWorker(deps, cyc, estimateShipCheck, task.ID)
		if err != nil {
			task.State = domain.TaskFailed
			task.Error = err.Error()
			if saveErr := deps.Store.SaveTask(ctx, task); saveErr != nil {
				return failed(fmt.Errorf("phase: persist task: %w", saveErr))
			}
			continue
		}

		buildOutput := lastArtifactLog(task)
		checkResult, err := worker.Check(ctx, providers.BuildTask{
			ID:          task.ID,
			Title:       task.Title,
			Description: task.Description,
			Phase:       "ship_check",
			Tier:        int(task.AutonomyTier),
		}, buildOutput, deps.WorkingDir)

		experiment := &domain.ExperimentLogEntry{
			ID:          domain.NewID(),
			CycleID:     cyc.CycleID,
			TaskID:      task.ID,
			Description: task.Title,
			CreatedAt:   time.Now().UTC(),
		}

		if err != nil {
			task.State = domain.TaskFailed
			task.Error = err.Error()
			experiment.Outcome = "error: " + err.Error()
		} else {
			task.AddCost(checkResult.CostUsd)
			deps.Ledger.Record(domain.CostRecord{
				Timestamp: time.Now().UTC(),
				Phase:     "ship_check",
				TaskID:    task.ID,
				Provider:  provider,
				CostUsd:   checkResult.CostUsd,
				LatencyMs: checkResult.LatencyMs,
			})
			res.CostUsd += checkResult.CostUsd

			if checkResult.Approved {
				task.State = domain.TaskCompleted
				task.Truth = domain.TruthLabel{
					Status:     domain.TruthImplemented,
					Confidence: domain.ConfidenceMedium,
				}
				completedAt := time.Now().UTC()
				task.CompletedAt = &completedAt
				experiment.Outcome = "approved: " + checkResult.Summary
				res.TasksCompleted++
			} else {
				task.State = domain.TaskFailed
				task.Error = strings.Join(checkResult.Issues, "; ")
				experiment.Outcome = "rejected: " + strings.Join(checkResult.Issues, "; ")
			}
		}

		run := &domain.Run{
			ID: domain.NewID(), CycleID: cyc.CycleID, TaskID: task.ID, Phase: "ship_check", Provider: provider,
			Response: checkResult.Summary, Success: task.State == domain.TaskCompleted, Error: task.Error,
			CostUsd: checkResult.CostUsd, LatencyMs: checkResult.LatencyMs, CreatedAt: experiment.CreatedAt,
		}
		if err := deps.Store.AppendRun(ctx, run); err != nil {
			return failed(fmt.Errorf("phase: persist run: %w", err))
		}

		if err := deps.Store.AppendExperiment(ctx, experiment); err != nil {
			return failed(fmt.Errorf("phase: persist experiment: %w", err))
		}

		task.UpdatedAt = time.Now().UTC()
		if err := deps.Store.SaveTask(ctx, task); err != nil {
			return failed(fmt.Errorf("phase: persist task: %w", err))
		}
	}

	return res
}

// lastArtifactLog finds the most recently recorded log artifact, used as
// SHIP_CHECK's view of what BUILD produced.
func lastArtifactLog(task *domain.Task) string {
	for i := len(task.Artifacts) - 1; i >= 0; i-- {
		if task.Artifacts[i].Type == domain.ArtifactLog {
			return task.Artifacts[i].Value
		}
	}
	return ""
}

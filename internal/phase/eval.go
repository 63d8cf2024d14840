package phase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cortexloop/engine/internal/domain"
	"github.com/cortexloop/engine/internal/providers"
	"github.com/cortexloop/engine/internal/router"
)

// Eval runs the EVAL phase (spec §4.6 EVAL, role: planning): summarizes the
// cycle's outcome and resets the inter-phase state carried in Context.
func Eval(ctx context.Context, deps *Deps, cyc *Context, cycleStartedAt time.Time) Result {
	adm, err := admitAdapter(deps, cyc, router.RolePlanning, estimateEval, "")
	if err != nil {
		return failed(err)
	}

	observedCompleted, observedFailed, observedCost := observedOutcome(cyc.LastTasks)

	prompt := buildEvalPrompt(cyc.LastTasks, observedCompleted, observedFailed, observedCost)
	genResult, err := adm.adapter.Generate(ctx, providers.GenerateRequest{
		SystemPrompt: "You are the EVAL phase of an autonomous work cycle. Summarize outcomes and propose improvements.",
		UserPrompt:   prompt,
		JSONMode:     true,
	})
	if err != nil {
		return failed(&domain.AdapterError{Phase: "eval", Err: err})
	}

	evaluation := parseEvalResult(genResult.Text, cyc.CycleID, cycleStartedAt)

	// Observed counts are authoritative; the adapter's self-reported numbers
	// never override what the store actually recorded (spec §4.6 EVAL).
	evaluation.Metrics.TasksCompleted = observedCompleted
	evaluation.Metrics.TasksFailed = observedFailed
	evaluation.Metrics.TotalCostUsd = observedCost

	if err := deps.Store.AppendEvaluation(ctx, &evaluation); err != nil {
		return failed(fmt.Errorf("phase: persist evaluation: %w", err))
	}

	deps.Ledger.Record(domain.CostRecord{
		Timestamp:    evaluation.CreatedAt,
		Phase:        "eval",
		Provider:     adm.provider,
		Model:        adm.adapter.Model(),
		InputTokens:  genResult.InputTokens,
		OutputTokens: genResult.OutputTokens,
		CostUsd:      genResult.CostUsd,
		LatencyMs:    genResult.LatencyMs,
	})

	cyc.LastScan = nil
	cyc.LastPlan = nil
	cyc.LastTasks = nil

	return Result{Success: true, CostUsd: genResult.CostUsd}
}

func observedOutcome(tasks []domain.Task) (completed, failed int, costUsd float64) {
	for _, t := range tasks {
		costUsd += t.ActualCostUsd
		switch t.State {
		case domain.TaskCompleted:
			completed++
		case domain.TaskFailed:
			failed++
		}
	}
	return completed, failed, costUsd
}

func buildEvalPrompt(tasks []domain.Task, completed, failed int, costUsd float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cycle outcome: %d completed, %d failed, $%.4f spent.\n", completed, failed, costUsd)
	for _, t := range tasks {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", t.State, t.Title, t.Error)
	}
	b.WriteString("\nReturn JSON: {\"metrics\":{\"avgTaskLatencyMs\":0,\"objectiveProgress\":{}},\"insights\":[...],\"recommendations\":[{\"text\":...,\"priority\":...}]}")
	return b.String()
}

// parseEvalResult applies EVAL's parsing discipline (spec §4.6 EVAL,
// SPEC_FULL §4.6.1): a syntax or schema failure degrades to a best-effort
// zero-change record rather than failing the phase.
func parseEvalResult(raw string, cycleID string, cycleStartedAt time.Time) domain.Evaluation {
	now := time.Now().UTC()
	base := domain.Evaluation{
		ID:      domain.NewID(),
		CycleID: cycleID,
		Period:  domain.Period{Start: cycleStartedAt, End: now},
		Metrics: domain.Metrics{ObjectiveProgress: map[string]float64{}},
		CreatedAt: now,
	}

	doc, ok := validateJSON(evalSchema, raw)
	if !ok {
		base.Insights = []string{"eval response failed schema validation; no insights recorded this cycle"}
		return base
	}

	if metricsDoc, ok := doc["metrics"].(map[string]interface{}); ok {
		base.Metrics.AvgTaskLatencyMs = asFloat(metricsDoc["avgTaskLatencyMs"])
		if progressDoc, ok := metricsDoc["objectiveProgress"].(map[string]interface{}); ok {
			for k, v := range progressDoc {
				base.Metrics.ObjectiveProgress[k] = asFloat(v)
			}
		}
	}

	base.Insights = asStringSlice(doc["insights"])

	rawRecs, _ := doc["recommendations"].([]interface{})
	recs := make([]domain.Recommendation, 0, len(rawRecs))
	for _, rr := range rawRecs {
		rm, ok := rr.(map[string]interface{})
		if !ok {
			continue
		}
		priority := domain.RecommendationPriority(asString(rm["priority"]))
		if !priority.Valid() {
			priority = domain.RecPriorityMedium
		}
		recs = append(recs, domain.Recommendation{
			Text:     asString(rm["text"]),
			Priority: priority,
			Truth: domain.TruthLabel{
				Status:     domain.TruthHypothesis,
				Confidence: domain.ConfidenceMedium,
			},
		})
	}
	base.Recommendations = recs

	return base
}

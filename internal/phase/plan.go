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

// maxTasksPerPriority and maxTotalTasks are advisory bounds (spec §4.6
// PLAN): the adapter is instructed to respect them but a response that
// exceeds them is still accepted, merely truncated.
const (
	maxTasksPerPriority = 5
	maxTotalTasks       = 10
)

// Plan runs the PLAN phase (spec §4.6 PLAN, role: planning).
func Plan(ctx context.Context, deps *Deps, cyc *Context) Result {
	if cyc.LastScan == nil {
		return failed(&domain.PreconditionError{Reason: "PLAN requires a scan from this cycle"})
	}

	objectives, err := activeObjectives(ctx, deps)
	if err != nil {
		return failed(err)
	}
	defaultObjectiveID := firstActiveObjectiveID(objectives)

	adm, err := admitAdapter(deps, cyc, router.RolePlanning, estimatePlan, "")
	if err != nil {
		return failed(err)
	}

	prompt := buildPlanPrompt(cyc.LastScan)
	genResult, err := adm.adapter.Generate(ctx, providers.GenerateRequest{
		SystemPrompt: "You are the PLAN phase of an autonomous work cycle. Turn scan findings into a prioritized strategy.",
		UserPrompt:   prompt,
		JSONMode:     true,
	})
	if err != nil {
		return failed(&domain.AdapterError{Phase: "plan", Err: err})
	}

	strategy := parsePlanStrategy(genResult.Text, defaultObjectiveID)

	plan := &domain.Plan{
		ID:        domain.NewID(),
		CycleID:   cyc.CycleID,
		ScanID:    cyc.LastScan.ID,
		Strategy:  strategy,
		CreatedAt: time.Now().UTC(),
	}

	if err := deps.Store.AppendPlan(ctx, plan); err != nil {
		return failed(fmt.Errorf("phase: persist plan: %w", err))
	}

	deps.Ledger.Record(domain.CostRecord{
		Timestamp:    plan.CreatedAt,
		Phase:        "plan",
		Provider:     adm.provider,
		Model:        adm.adapter.Model(),
		InputTokens:  genResult.InputTokens,
		OutputTokens: genResult.OutputTokens,
		CostUsd:      genResult.CostUsd,
		LatencyMs:    genResult.LatencyMs,
	})

	cyc.LastPlan = plan
	return Result{Success: true, CostUsd: genResult.CostUsd}
}

func buildPlanPrompt(scan *domain.Scan) string {
	var b strings.Builder
	b.WriteString("Findings from this cycle's scan:\n")
	for _, f := range scan.Findings {
		fmt.Fprintf(&b, "- [%s/%s, relevance %.2f] %s: %s\n", f.TruthStatus, f.Confidence, f.Relevance, f.Title, f.Detail)
	}
	fmt.Fprintf(&b, "\nPropose at most %d tasks per priority, %d total, as JSON: "+
		"{\"strategy\":{\"summary\":...,\"priorities\":[{\"objectiveId\":...,\"rationale\":...,"+
		"\"proposedTasks\":[{\"title\":...,\"description\":...,\"estimatedComplexity\":...,\"suggestedTier\":0}]}]}}",
		maxTasksPerPriority, maxTotalTasks)
	return b.String()
}

// parsePlanStrategy applies PLAN's parsing discipline (spec §4.6 PLAN,
// SPEC_FULL §4.6.1): a syntax or schema failure degrades to a single
// trivial-complexity fallback priority rather than failing the phase.
func parsePlanStrategy(raw string, defaultObjectiveID string) domain.Strategy {
	doc, ok := validateJSON(planSchema, raw)
	if !ok {
		return fallbackStrategy(defaultObjectiveID)
	}

	strategyDoc, _ := doc["strategy"].(map[string]interface{})
	if strategyDoc == nil {
		return fallbackStrategy(defaultObjectiveID)
	}

	summary := asString(strategyDoc["summary"])
	rawPriorities, _ := strategyDoc["priorities"].([]interface{})

	priorities := make([]domain.Priority, 0, len(rawPriorities))
	totalTasks := 0
	for _, rp := range rawPriorities {
		pm, ok := rp.(map[string]interface{})
		if !ok {
			continue
		}
		objectiveID := asString(pm["objectiveId"])
		if objectiveID == "" {
			objectiveID = defaultObjectiveID
		}

		rawTasks, _ := pm["proposedTasks"].([]interface{})
		tasks := make([]domain.ProposedTask, 0, len(rawTasks))
		for _, rt := range rawTasks {
			if len(tasks) >= maxTasksPerPriority || totalTasks >= maxTotalTasks {
				break
			}
			tm, ok := rt.(map[string]interface{})
			if !ok {
				continue
			}
			complexity := domain.Complexity(asString(tm["estimatedComplexity"]))
			if !complexity.Valid() {
				complexity = domain.ComplexityMedium
			}
			tasks = append(tasks, domain.ProposedTask{
				Title:               asString(tm["title"]),
				Description:         asString(tm["description"]),
				EstimatedComplexity: complexity,
				SuggestedTier:       int(asFloat(tm["suggestedTier"])),
			})
			totalTasks++
		}

		priorities = append(priorities, domain.Priority{
			ObjectiveID:   objectiveID,
			Rationale:     asString(pm["rationale"]),
			ProposedTasks: tasks,
		})
		if totalTasks >= maxTotalTasks {
			break
		}
	}

	if len(priorities) == 0 {
		return fallbackStrategy(defaultObjectiveID)
	}

	return domain.Strategy{Summary: summary, Priorities: priorities}
}

// fallbackStrategy is PLAN's sentinel record: a single trivial-complexity,
// T0 task carrying the objective forward with no real proposal.
func fallbackStrategy(defaultObjectiveID string) domain.Strategy {
	return domain.Strategy{
		Summary: "plan response failed validation; falling back to a single trivial task",
		Priorities: []domain.Priority{
			{
				ObjectiveID: defaultObjectiveID,
				Rationale:   "parse fallback",
				ProposedTasks: []domain.ProposedTask{
					{
						Title:               "Investigate PLAN parse failure",
						Description:         "The planning adapter returned an unparseable response this cycle.",
						EstimatedComplexity: domain.ComplexityTrivial,
						SuggestedTier:       int(domain.TierT0),
					},
				},
			},
		},
	}
}

package phase

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cortexloop/engine/internal/budget"
	"github.com/cortexloop/engine/internal/domain"
	"github.com/cortexloop/engine/internal/ledger"
	"github.com/cortexloop/engine/internal/providers"
	"github.com/cortexloop/engine/internal/router"
	"github.com/cortexloop/engine/internal/store"
)

// fakeGen is a TextGenerator whose response is fixed by the test.
type fakeGen struct {
	provider string
	response string
	err      error
}

func (f *fakeGen) Provider() string { return f.provider }
func (f *fakeGen) Model() string    { return f.provider + "-model" }
func (f *fakeGen) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResult, error) {
	if f.err != nil {
		return providers.GenerateResult{}, f.err
	}
	return providers.GenerateResult{Text: f.response, CostUsd: 0.001, LatencyMs: 1}, nil
}

// fakeWorker is a BuildWorker whose outcomes are fixed by the test.
type fakeWorker struct {
	executeSuccess bool
	checkApproved  bool
}

func (f *fakeWorker) Provider() string { return "claude" }
func (f *fakeWorker) Execute(ctx context.Context, task providers.BuildTask, workingDir string) (providers.ExecuteResult, error) {
	return providers.ExecuteResult{
		Success:   f.executeSuccess,
		Artifacts: []providers.ExecuteArtifact{{Type: "log", Value: "build log for " + task.Title}},
		CostUsd:   0.002,
	}, nil
}
func (f *fakeWorker) Check(ctx context.Context, task providers.BuildTask, buildOutput string, workingDir string) (providers.CheckResult, error) {
	if !f.checkApproved {
		return providers.CheckResult{Approved: false, Issues: []string{"tests failed"}, CostUsd: 0.001}, nil
	}
	return providers.CheckResult{Approved: true, Summary: "looks good", CostUsd: 0.001}, nil
}

func newTestDeps(t *testing.T) *Deps {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	r := router.New(router.ModeLive)
	r.RegisterGenerator("gemini", &fakeGen{provider: "gemini", response: validScanJSON})
	r.RegisterGenerator("openai", &fakeGen{provider: "openai", response: validPlanJSON})
	r.RegisterBuildWorker("claude", &fakeWorker{executeSuccess: true, checkApproved: true})

	l := ledger.New()
	g := budget.New(l, domain.DefaultBudgetConfig())

	return &Deps{Router: r, Guard: g, Ledger: l, Store: s, WorkingDir: t.TempDir()}
}

const validScanJSON = `{"findings":[{"title":"t1","detail":"d1","relevance":0.8,"truthStatus":"hypothesis","confidence":"medium","sources":["src1"]}]}`

const validPlanJSON = `{"strategy":{"summary":"ship it","priorities":[{"objectiveId":"o1","rationale":"r","proposedTasks":[{"title":"Write docs","description":"d","estimatedComplexity":"small","suggestedTier":0}]}]}}`

const validEvalJSON = `{"metrics":{"avgTaskLatencyMs":12,"objectiveProgress":{"o1":0.5}},"insights":["worked well"],"recommendations":[{"text":"do more","priority":"high"}]}`

func seedActiveObjective(t *testing.T, deps *Deps) {
	t.Helper()
	obj := &domain.Objective{ID: "o1", Title: "Ship v1", Status: domain.ObjectiveActive}
	if err := deps.Store.SaveObjective(context.Background(), obj); err != nil {
		t.Fatalf("SaveObjective: %v", err)
	}
}

func TestScanFailsWithoutActiveObjectives(t *testing.T) {
	deps := newTestDeps(t)
	cyc := &Context{CycleID: "c1"}

	res := Scan(context.Background(), deps, cyc)
	if res.Success {
		t.Fatalf("expected failure with no active objectives")
	}
}

func TestScanHappyPath(t *testing.T) {
	deps := newTestDeps(t)
	seedActiveObjective(t, deps)
	cyc := &Context{CycleID: "c1"}

	res := Scan(context.Background(), deps, cyc)
	if !res.Success {
		t.Fatalf("Scan failed: %s", res.Error)
	}
	if cyc.LastScan == nil || len(cyc.LastScan.Findings) != 1 {
		t.Fatalf("expected 1 finding, got %+v", cyc.LastScan)
	}
	if cyc.LastScan.Findings[0].Relevance != 0.8 {
		t.Fatalf("relevance = %v", cyc.LastScan.Findings[0].Relevance)
	}
}

func TestScanParseFailureFallsBackToParseErrorFinding(t *testing.T) {
	deps := newTestDeps(t)
	seedActiveObjective(t, deps)
	deps.Router.RegisterGenerator("gemini", &fakeGen{provider: "gemini", response: "not json"})
	cyc := &Context{CycleID: "c1"}

	res := Scan(context.Background(), deps, cyc)
	if !res.Success {
		t.Fatalf("Scan should still succeed via fallback: %s", res.Error)
	}
	if len(cyc.LastScan.Findings) != 1 || cyc.LastScan.Findings[0].Title != "Parse Error" {
		t.Fatalf("expected sentinel parse-error finding, got %+v", cyc.LastScan.Findings)
	}
}

func TestPlanFailsWithoutScan(t *testing.T) {
	deps := newTestDeps(t)
	cyc := &Context{CycleID: "c1"}

	res := Plan(context.Background(), deps, cyc)
	if res.Success {
		t.Fatalf("expected failure with no scan")
	}
}

func TestPlanHappyPath(t *testing.T) {
	deps := newTestDeps(t)
	seedActiveObjective(t, deps)
	cyc := &Context{CycleID: "c1", LastScan: &domain.Scan{ID: "s1", CycleID: "c1"}}

	res := Plan(context.Background(), deps, cyc)
	if !res.Success {
		t.Fatalf("Plan failed: %s", res.Error)
	}
	if cyc.LastPlan == nil || cyc.LastPlan.TotalProposedTasks() != 1 {
		t.Fatalf("expected 1 proposed task, got %+v", cyc.LastPlan)
	}
}

func TestPlanParseFailureFallsBackToTrivialPriority(t *testing.T) {
	deps := newTestDeps(t)
	seedActiveObjective(t, deps)
	deps.Router.RegisterGenerator("openai", &fakeGen{provider: "openai", response: "garbage"})
	cyc := &Context{CycleID: "c1", LastScan: &domain.Scan{ID: "s1", CycleID: "c1"}}

	res := Plan(context.Background(), deps, cyc)
	if !res.Success {
		t.Fatalf("Plan should still succeed via fallback: %s", res.Error)
	}
	if len(cyc.LastPlan.Strategy.Priorities) != 1 {
		t.Fatalf("expected single fallback priority, got %+v", cyc.LastPlan.Strategy.Priorities)
	}
	task := cyc.LastPlan.Strategy.Priorities[0].ProposedTasks[0]
	if task.EstimatedComplexity != domain.ComplexityTrivial {
		t.Fatalf("expected trivial fallback task, got %+v", task)
	}
}

func TestBuildFailsWithoutPlan(t *testing.T) {
	deps := newTestDeps(t)
	cyc := &Context{CycleID: "c1"}

	res := Build(context.Background(), deps, cyc)
	if res.Success {
		t.Fatalf("expected failure with no plan")
	}
}

func TestBuildCreatesTaskAndRunsWorker(t *testing.T) {
	deps := newTestDeps(t)
	plan := &domain.Plan{
		ID:      "p1",
		CycleID: "c1",
		Strategy: domain.Strategy{
			Priorities: []domain.Priority{
				{
					ObjectiveID: "o1",
					ProposedTasks: []domain.ProposedTask{
						{Title: "Write docs", Description: "d", EstimatedComplexity: domain.ComplexitySmall},
					},
				},
			},
		},
	}
	cyc := &Context{CycleID: "c1", LastPlan: plan}

	res := Build(context.Background(), deps, cyc)
	if !res.Success || res.TasksCreated != 1 {
		t.Fatalf("Build result = %+v", res)
	}
	if len(cyc.LastTasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(cyc.LastTasks))
	}
	if cyc.LastTasks[0].State != domain.TaskReviewing {
		t.Fatalf("expected task in reviewing state, got %s", cyc.LastTasks[0].State)
	}
}

func TestBuildParksT2TasksAwaitingApproval(t *testing.T) {
	deps := newTestDeps(t)
	plan := &domain.Plan{
		ID:      "p1",
		CycleID: "c1",
		Strategy: domain.Strategy{
			Priorities: []domain.Priority{
				{
					ObjectiveID: "o1",
					ProposedTasks: []domain.ProposedTask{
						{Title: "Deploy to production", Description: "ship it", EstimatedComplexity: domain.ComplexityMedium},
					},
				},
			},
		},
	}
	cyc := &Context{CycleID: "c1", LastPlan: plan}

	res := Build(context.Background(), deps, cyc)
	if !res.Success || res.TasksCreated != 1 {
		t.Fatalf("Build result = %+v", res)
	}
	if cyc.LastTasks[0].State != domain.TaskAwaitingApproval {
		t.Fatalf("expected awaiting_approval, got %s", cyc.LastTasks[0].State)
	}
	if cyc.LastTasks[0].AutonomyTier != domain.TierT2 {
		t.Fatalf("expected T2, got %v", cyc.LastTasks[0].AutonomyTier)
	}
}

func TestShipCheckApprovesReviewingTask(t *testing.T) {
	deps := newTestDeps(t)
	cyc := &Context{
		CycleID: "c1",
		LastTasks: []domain.Task{
			{ID: "t1", Title: "Write docs", State: domain.TaskReviewing},
		},
	}

	res := ShipCheck(context.Background(), deps, cyc)
	if !res.Success || res.TasksCompleted != 1 {
		t.Fatalf("ShipCheck result = %+v", res)
	}
	if cyc.LastTasks[0].State != domain.TaskCompleted {
		t.Fatalf("expected completed, got %s", cyc.LastTasks[0].State)
	}
	if cyc.LastTasks[0].Truth.Status != domain.TruthImplemented {
		t.Fatalf("expected truth implemented, got %v", cyc.LastTasks[0].Truth)
	}
}

func TestShipCheckRejectsOnFailure(t *testing.T) {
	deps := newTestDeps(t)
	deps.Router.RegisterBuildWorker("claude", &fakeWorker{executeSuccess: true, checkApproved: false})
	cyc := &Context{
		CycleID: "c1",
		LastTasks: []domain.Task{
			{ID: "t1", Title: "Write docs", State: domain.TaskReviewing},
		},
	}

	res := ShipCheck(context.Background(), deps, cyc)
	if !res.Success {
		t.Fatalf("ShipCheck phase should still succeed: %s", res.Error)
	}
	if cyc.LastTasks[0].State != domain.TaskFailed {
		t.Fatalf("expected failed, got %s", cyc.LastTasks[0].State)
	}
}

func TestEvalResetsInterPhaseStateAndOverridesMetrics(t *testing.T) {
	deps := newTestDeps(t)
	deps.Router.RegisterGenerator("openai", &fakeGen{provider: "openai", response: validEvalJSON})
	cyc := &Context{
		CycleID:  "c1",
		LastScan: &domain.Scan{ID: "s1"},
		LastPlan: &domain.Plan{ID: "p1"},
		LastTasks: []domain.Task{
			{ID: "t1", State: domain.TaskCompleted, ActualCostUsd: 0.5},
			{ID: "t2", State: domain.TaskFailed, ActualCostUsd: 0.25},
		},
	}

	res := Eval(context.Background(), deps, cyc, time.Now().Add(-time.Hour))
	if !res.Success {
		t.Fatalf("Eval failed: %s", res.Error)
	}
	if cyc.LastScan != nil || cyc.LastPlan != nil || cyc.LastTasks != nil {
		t.Fatalf("expected inter-phase state reset, got scan=%v plan=%v tasks=%v", cyc.LastScan, cyc.LastPlan, cyc.LastTasks)
	}

	evals, err := deps.Store.ListEvaluations(context.Background())
	if err != nil || len(evals) != 1 {
		t.Fatalf("ListEvaluations: %v %v", evals, err)
	}
	if evals[0].Metrics.TasksCompleted != 1 || evals[0].Metrics.TasksFailed != 1 {
		t.Fatalf("expected observed counts to override adapter metrics, got %+v", evals[0].Metrics)
	}
	if evals[0].Metrics.TotalCostUsd != 0.75 {
		t.Fatalf("expected observed cost 0.75, got %v", evals[0].Metrics.TotalCostUsd)
	}
}

func TestBudgetBlockedDeniesScanWithoutCharge(t *testing.T) {
	deps := newTestDeps(t)
	seedActiveObjective(t, deps)
	deps.Guard.UpdateBudgets(domain.BudgetConfig{}) // all caps zero
	cyc := &Context{CycleID: "c1"}

	res := Scan(context.Background(), deps, cyc)
	if res.Success {
		t.Fatalf("expected Scan to be budget-blocked")
	}
	if deps.Ledger.Total() != 0 {
		t.Fatalf("expected zero ledger spend on blocked call, got %v", deps.Ledger.Total())
	}
}

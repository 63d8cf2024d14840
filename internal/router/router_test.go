package router

import (
	"context"
	"testing"

	"github.com/cortexloop/engine/internal/providers"
)

type fakeGen struct{ provider string }

func (f fakeGen) Provider() string { return f.provider }
func (f fakeGen) Model() string    { return f.provider + "-model" }
func (f fakeGen) Generate(_ context.Context, _ providers.GenerateRequest) (providers.GenerateResult, error) {
	return providers.GenerateResult{Text: "ok"}, nil
}

type fakeWorker struct{}

func (fakeWorker) Provider() string { return "claude" }
func (fakeWorker) Execute(_ context.Context, _ providers.BuildTask, _ string) (providers.ExecuteResult, error) {
	return providers.ExecuteResult{Success: true}, nil
}
func (fakeWorker) Check(_ context.Context, _ providers.BuildTask, _ string, _ string) (providers.CheckResult, error) {
	return providers.CheckResult{Approved: true}, nil
}

func TestSimulationModeAlwaysReturnsMock(t *testing.T) {
	r := New(ModeSimulation)
	r.RegisterGenerator("gemini", nil)
	res, err := r.GetAdapter(RoleResearch)
	if err != nil {
		t.Fatalf("GetAdapter: %v", err)
	}
	if !res.IsMock {
		t.Fatalf("expected mock in simulation mode")
	}
}

// TestScenarioE_FallbackRouting mirrors spec scenario E: selective mode with
// only openai enabled. research's primary (gemini) is disabled so it falls
// back to openai; building has no fallback so it lands on mock.
func TestScenarioE_FallbackRouting(t *testing.T) {
	r := New(ModeSelective)
	r.RegisterGenerator("gemini", fakeGen{"gemini"})
	r.RegisterGenerator("openai", fakeGen{"openai"})
	r.RegisterBuildWorker("claude", fakeWorker{})
	r.SetEnabled("openai", true)

	res, err := r.GetAdapter(RoleResearch)
	if err != nil {
		t.Fatalf("GetAdapter: %v", err)
	}
	if res.IsMock || res.ProviderName != "openai" {
		t.Fatalf("got %+v, want live openai fallback", res)
	}

	build, err := r.GetBuildWorker()
	if err != nil {
		t.Fatalf("GetBuildWorker: %v", err)
	}
	if !build.IsMock {
		t.Fatalf("expected mock build worker when claude disabled, got %+v", build)
	}
}

func TestLiveModePrefersPrimaryThenFallbackThenMock(t *testing.T) {
	r := New(ModeLive)
	res, err := r.GetAdapter(RolePlanning)
	if err != nil {
		t.Fatalf("GetAdapter: %v", err)
	}
	if !res.IsMock {
		t.Fatalf("expected mock when nothing registered, got %+v", res)
	}

	r.RegisterGenerator("gemini", fakeGen{"gemini"})
	res, err = r.GetAdapter(RolePlanning)
	if err != nil {
		t.Fatalf("GetAdapter: %v", err)
	}
	if res.IsMock || res.ProviderName != "gemini" {
		t.Fatalf("expected fallback gemini for planning, got %+v", res)
	}

	r.RegisterGenerator("openai", fakeGen{"openai"})
	res, err = r.GetAdapter(RolePlanning)
	if err != nil {
		t.Fatalf("GetAdapter: %v", err)
	}
	if res.IsMock || res.ProviderName != "openai" {
		t.Fatalf("expected primary openai for planning once registered, got %+v", res)
	}
}

func TestUpdateConfigSwapsModeWithoutClearingRegistrations(t *testing.T) {
	r := New(ModeSimulation)
	r.RegisterGenerator("claude", fakeGen{"claude"})
	if err := r.UpdateConfig(ModeLive); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	res, err := r.GetAdapter(RoleBuilding)
	if err != nil {
		t.Fatalf("GetAdapter: %v", err)
	}
	if res.IsMock || res.ProviderName != "claude" {
		t.Fatalf("expected live claude after mode swap, got %+v", res)
	}
}

func TestUpdateConfigRejectsInvalidMode(t *testing.T) {
	r := New(ModeLive)
	if err := r.UpdateConfig("bogus"); err == nil {
		t.Fatalf("expected error for invalid mode")
	}
}

package providers

import (
	"context"
	"fmt"
)

// MockGenerator is the simulation/offline fallback TextGenerator. It never
// makes a network call and always reports zero cost, per spec §6.2:
// "mocks report zero".
type MockGenerator struct {
	role string
}

// NewMockGenerator returns a mock adapter labeled for role (used only in
// logging/debug output; the router decides when to hand one out).
func NewMockGenerator(role string) *MockGenerator {
	return &MockGenerator{role: role}
}

func (m *MockGenerator) Provider() string { return "mock" }
func (m *MockGenerator) Model() string    { return "mock-" + m.role }

func (m *MockGenerator) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	text := fmt.Sprintf(`{"mock": true, "role": %q}`, m.role)
	if !req.JSONMode {
		text = fmt.Sprintf("[mock %s response]", m.role)
	}
	return GenerateResult{
		Text:         text,
		InputTokens:  0,
		OutputTokens: 0,
		LatencyMs:    1,
		CostUsd:      0,
	}, nil
}

// MockBuildWorker is the simulation/offline fallback BuildWorker.
type MockBuildWorker struct{}

func NewMockBuildWorker() *MockBuildWorker { return &MockBuildWorker{} }

func (m *MockBuildWorker) Provider() string { return "mock" }

func (m *MockBuildWorker) Execute(ctx context.Context, task BuildTask, workingDir string) (ExecuteResult, error) {
	return ExecuteResult{
		Output:  "[mock] simulated build for " + task.Title,
		Success: true,
		Artifacts: []ExecuteArtifact{
			{Type: "log", Value: "mock build log"},
		},
		LatencyMs: 1,
		CostUsd:   0,
	}, nil
}

func (m *MockBuildWorker) Check(ctx context.Context, task BuildTask, buildOutput string, workingDir string) (CheckResult, error) {
	return CheckResult{
		Approved:  true,
		Summary:   "[mock] simulated approval for " + task.Title,
		LatencyMs: 1,
		CostUsd:   0,
	}, nil
}

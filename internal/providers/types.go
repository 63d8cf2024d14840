// Package providers implements the two adapter contracts the core consumes
// (spec §6.2): a text-generation capability for the research/planning/
// reviewing roles, and a build-and-review capability for the building role.
package providers

import "context"

// GenerateRequest is one call to a text-generation adapter.
type GenerateRequest struct {
	SystemPrompt string
	UserPrompt   string
	JSONMode     bool
}

// GenerateResult is the normalized response from a text-generation adapter.
type GenerateResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	CostUsd      float64
}

// TextGenerator is the text-generation capability named in spec §6.2.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
	Provider() string
	Model() string
}

// BuildTask is the subset of a domain.Task the build worker needs in order
// to execute it, kept provider-agnostic so this package never imports
// internal/domain.
type BuildTask struct {
	ID          string
	Title       string
	Description string
	// Phase is the cycle phase driving this call ("build" or "ship_check"),
	// forwarded to the sandbox so a run can be attributed to the step that
	// issued it.
	Phase string
	// Tier mirrors domain.AutonomyTier (0=T0, 1=T1, 2=T2). A worker may use
	// it to scale sandbox resource limits: a T2 task already has a human
	// approval behind it, so it runs with more headroom than an
	// unsupervised T0 task.
	Tier int
}

// ExecuteArtifact mirrors domain.Artifact without importing internal/domain.
type ExecuteArtifact struct {
	Type  string
	Value string
}

// ExecuteResult is the outcome of a build worker's execute call.
type ExecuteResult struct {
	Output    string
	Success   bool
	Error     string
	Artifacts []ExecuteArtifact
	LatencyMs int64
	CostUsd   float64
}

// CheckResult is the outcome of a build worker's check (review) call.
type CheckResult struct {
	Approved  bool
	Issues    []string
	Summary   string
	LatencyMs int64
	CostUsd   float64
}

// BuildWorker is the build-and-review capability named in spec §6.2.
type BuildWorker interface {
	Execute(ctx context.Context, task BuildTask, workingDir string) (ExecuteResult, error)
	Check(ctx context.Context, task BuildTask, buildOutput string, workingDir string) (CheckResult, error)
	Provider() string
}

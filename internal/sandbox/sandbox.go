package sandbox

import (
	"context"
	"time"
)

// Result captures output of a command.
type Result struct {
	Stdout   string
	Stderr   string
	Code     int
	TimedOut bool
}

// RunSpec carries the work-cycle context behind a sandboxed command: which
// task it belongs to, which phase issued it, and at what autonomy tier. A
// Runner uses this to label/tag what it runs and to scale isolation for the
// task's tier, instead of treating every command as an anonymous shell
// invocation.
type RunSpec struct {
	TaskID string
	Phase  string // "build" or "ship_check"
	Tier   int    // mirrors domain.AutonomyTier; 0=T0 ... 2=T2
}

// Runner defines the interface for running commands in a sandboxed environment.
// Implementations should provide isolation from the host system to prevent
// malicious commands from affecting the host.
type Runner interface {
	// RunCmd runs a command in the given repo directory with a timeout.
	// - ctx: base context for cancellation
	// - repoDir: path to repository root on disk
	// - spec: the task/phase/tier this command is running on behalf of
	// - name: executable name, e.g. "go"
	// - args: arguments, e.g. []string{"test", "./..."}
	// - timeout: optional timeout (<=0 uses default)
	RunCmd(ctx context.Context, repoDir string, spec RunSpec, name string, args []string, timeout time.Duration) (Result, error)
}

// RunCmd is a convenience function that uses the default runner.
// It will attempt to use Docker if available, falling back to host execution.
// For explicit control, use NewRunner() to get a specific runner implementation.
func RunCmd(ctx context.Context, repoDir string, spec RunSpec, name string, args []string, timeout time.Duration) (Result, error) {
	runner := NewDefaultRunner()
	return runner.RunCmd(ctx, repoDir, spec, name, args, timeout)
}

package sandbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/cortexloop/engine/internal/providers"
)

// BuildWorker adapts a Runner (Docker- or host-backed, per Config.Mode) into
// the providers.BuildWorker contract the core's BUILD/SHIP_CHECK phases
// consume (spec §6.2, SPEC_FULL §4.6.2). execute runs the task instruction as
// a shell command; check re-runs the project's test/build command.
type BuildWorker struct {
	runner Runner
	config Config
}

// NewBuildWorker wraps runner (typically NewDefaultRunner()'s result) as a
// providers.BuildWorker.
func NewBuildWorker(runner Runner, config Config) *BuildWorker {
	return &BuildWorker{runner: runner, config: config}
}

func (w *BuildWorker) Provider() string { return "claude" }

// Execute runs task.Title, followed by task.Description when it is non-empty,
// as a shell command sequence inside workingDir. The instruction is interpreted as a POSIX shell script, run
// through "sh -c" inside the sandbox so multi-step instructions (cd, &&,
// pipes) behave as the adapter intends.
func (w *BuildWorker) Execute(ctx context.Context, task providers.BuildTask, workingDir string) (providers.ExecuteResult, error) {
	instruction := task.Title
	if task.Description != "" {
		instruction += "\n\n" + task.Description
	}

	before, err := listFiles(workingDir)
	if err != nil {
		before = nil
	}

	spec := RunSpec{TaskID: task.ID, Phase: task.Phase, Tier: task.Tier}
	result, err := w.runner.RunCmd(ctx, workingDir, spec, "sh", []string{"-c", instruction}, 0)
	if err != nil && result.Stdout == "" && result.Stderr == "" {
		return providers.ExecuteResult{}, fmt.Errorf("sandbox execute: %w", err)
	}

	artifacts := []providers.ExecuteArtifact{
		{Type: "log", Value: combinedLog(result.Stdout, result.Stderr)},
	}

	after, aerr := listFiles(workingDir)
	if aerr == nil {
		for _, path := range diffFiles(before, after) {
			artifacts = append(artifacts, providers.ExecuteArtifact{Type: "file", Value: path})
		}
	}

	success := result.Code == 0 && !result.TimedOut
	res := providers.ExecuteResult{
		Output:    result.Stdout,
		Success:   success,
		Artifacts: artifacts,
	}
	if !success {
		res.Error = strings.TrimSpace(result.Stderr)
		if res.Error == "" {
			res.Error = fmt.Sprintf("exit code %d", result.Code)
		}
		if result.TimedOut {
			res.Error = "command timed out"
		}
	}
	return res, nil
}

// Check re-runs the project's test command (detected from workingDir's
// manifest files) and approves iff it exits zero. When no test command is
// known for the detected project type, it approves without running anything.
func (w *BuildWorker) Check(ctx context.Context, task providers.BuildTask, buildOutput string, workingDir string) (providers.CheckResult, error) {
	projectType := DetectProjectTypeForCheck(workingDir)
	name, args := TestCommandFor(projectType)
	if name == "" {
		return providers.CheckResult{
			Approved: true,
			Summary:  "no test command for detected project type; approving on build success",
		}, nil
	}

	spec := RunSpec{TaskID: task.ID, Phase: task.Phase, Tier: task.Tier}
	result, err := w.runner.RunCmd(ctx, workingDir, spec, name, args, 0)
	if err != nil && result.Stdout == "" && result.Stderr == "" {
		return providers.CheckResult{}, fmt.Errorf("sandbox check: %w", err)
	}

	if result.Code != 0 || result.TimedOut {
		issue := strings.TrimSpace(result.Stderr)
		if issue == "" {
			issue = fmt.Sprintf("%s %s exited %d", name, strings.Join(args, " "), result.Code)
		}
		return providers.CheckResult{
			Approved: false,
			Issues:   []string{issue},
			Summary:  "test command failed",
		}, nil
	}

	return providers.CheckResult{
		Approved: true,
		Summary:  fmt.Sprintf("%s %s passed", name, strings.Join(args, " ")),
	}, nil
}

func combinedLog(stdout, stderr string) string {
	if stderr == "" {
		return stdout
	}
	if stdout == "" {
		return stderr
	}
	return stdout + "\n--- stderr ---\n" + stderr
}

// listFiles walks workingDir honoring its .gitignore, returning the set of
// tracked-worthy relative paths. Used to diff before/after an execute call:
// file artifacts list paths that exist after the call but not before; files
// modified in place or deleted are not reported.
func listFiles(workingDir string) (map[string]bool, error) {
	ignorer := loadIgnoreMatcher(workingDir)
	paths, err := walkDir(workingDir, ignorer)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(paths))
	for _, p := range paths {
		out[p] = true
	}
	return out, nil
}

func diffFiles(before, after map[string]bool) []string {
	var changed []string
	for p := range after {
		if !before[p] {
			changed = append(changed, p)
		}
	}
	return changed
}

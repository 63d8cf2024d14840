package sandbox

import (
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/cortexloop/engine/internal/workspace"
)

// loadIgnoreMatcher reads root/.gitignore if present and compiles it into a
// matcher; a missing or unreadable file yields a matcher with no patterns.
func loadIgnoreMatcher(root string) gitignore.IgnoreParser {
	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return gitignore.CompileIgnoreLines()
	}
	lines := splitLines(string(data))
	return gitignore.CompileIgnoreLines(lines...)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, c := range s {
		if c == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// walkDir returns every regular file under root (relative to root) not
// matched by ignorer. A nil ignorer matches nothing.
func walkDir(root string, ignorer gitignore.IgnoreParser) ([]string, error) {
	var out []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}
		if info.IsDir() {
			if rel == ".git" {
				return filepath.SkipDir
			}
			if ignorer != nil && ignorer.MatchesPath(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if ignorer != nil && ignorer.MatchesPath(rel) {
			return nil
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DetectProjectTypeForCheck exposes workspace's manifest/extension detector
// for the sandbox's check step.
func DetectProjectTypeForCheck(workingDir string) workspace.ProjectType {
	return workspace.DetectProjectType(workingDir)
}

// TestCommandFor exposes workspace's per-project test command table.
func TestCommandFor(projectType workspace.ProjectType) (string, []string) {
	return workspace.GetTestCommand(projectType)
}

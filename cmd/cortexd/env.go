package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/cortexloop/engine/internal/budget"
	"github.com/cortexloop/engine/internal/config"
	"github.com/cortexloop/engine/internal/domain"
	"github.com/cortexloop/engine/internal/ledger"
	"github.com/cortexloop/engine/internal/orchestrator"
	"github.com/cortexloop/engine/internal/providers"
	"github.com/cortexloop/engine/internal/recall"
	"github.com/cortexloop/engine/internal/router"
	"github.com/cortexloop/engine/internal/sandbox"
	"github.com/cortexloop/engine/internal/store"
)

// runtimeEnv bundles every wired component cmd/cortexd needs for the
// lifetime of the process. Grounded on the teacher's cmd/repl/env.go
// runtimeEnv bootstrap.
type runtimeEnv struct {
	WorkingDir   string
	Store        *store.Store
	Ledger       *ledger.Ledger
	Guard        *budget.Guard
	Router       *router.Router
	Recall       *recall.Index
	ConfigMgr    *config.Manager
	Orchestrator *orchestrator.Orchestrator
}

// prepareRuntimeEnv resolves the working directory, loads .env and the
// persisted config, wires every component, and returns a ready-to-Start
// environment. Mirrors the teacher's prepareRuntimeEnv: resolve repo root
// first, load configuration next, degrade gracefully (logged warning, not a
// hard failure) when an optional component (a provider API key, the recall
// index) can't be wired.
func prepareRuntimeEnv(ctx context.Context, repoFlag string) (*runtimeEnv, error) {
	workingDir := repoFlag
	if workingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("env: getwd: %w", err)
		}
		workingDir = wd
	}
	abs, err := filepath.Abs(workingDir)
	if err != nil {
		return nil, fmt.Errorf("env: resolve repo root: %w", err)
	}
	workingDir = abs

	stateDir := filepath.Join(workingDir, ".cortexd")
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("env: mkdir state dir: %w", err)
	}

	config.LoadEnv(filepath.Join(workingDir, ".env"))

	configMgr := config.NewManager(filepath.Join(stateDir, "config.json"))
	if !configMgr.Exists() {
		def := config.DefaultConfig()
		if err := configMgr.Save(&def); err != nil {
			log.Printf("env: failed to seed default config: %v", err)
		}
	}
	cfg, err := configMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("env: load config: %w", err)
	}

	st, err := store.Open(ctx, filepath.Join(stateDir, "state.db"))
	if err != nil {
		return nil, fmt.Errorf("env: open store: %w", err)
	}

	l := ledger.New()
	g := budget.New(l, cfg.Budget)
	if err := st.SaveBudgetState(ctx, &cfg.Budget); err != nil {
		log.Printf("env: failed to persist initial budget state: %v", err)
	}

	r := router.New(router.Mode(cfg.Mode))
	wireProviders(r)

	recallIdx, err := recall.Open(filepath.Join(stateDir, "recall.bleve"))
	if err != nil {
		log.Printf("env: recall index unavailable, SCAN will run without enrichment: %v", err)
		recallIdx = nil
	}

	orch := orchestrator.New(st, l, g, r, recallIdx, configMgr, workingDir)

	return &runtimeEnv{
		WorkingDir:   workingDir,
		Store:        st,
		Ledger:       l,
		Guard:        g,
		Router:       r,
		Recall:       recallIdx,
		ConfigMgr:    configMgr,
		Orchestrator: orch,
	}, nil
}

// wireProviders registers every adapter whose environment variables are
// present. A missing key is not an error: the router falls back to the
// mock for that role (spec §4.4).
func wireProviders(r *router.Router) {
	for _, name := range []string{"claude", "openai", "gemini"} {
		gen, err := providers.NewGeneratorFromEnv(name)
		if err != nil {
			log.Printf("env: provider %s not configured: %v", name, err)
			continue
		}
		r.RegisterGenerator(name, gen)
	}

	runner := sandbox.NewDefaultRunner()
	worker := sandbox.NewBuildWorker(runner, sandbox.DefaultConfig())
	r.RegisterBuildWorker("claude", worker)
}

func (e *runtimeEnv) Close() error {
	return e.Store.Close()
}

// seedDefaultObjectiveIfEmpty saves a single placeholder objective when none
// exist, so a fresh deployment's first trigger doesn't immediately fail
// SCAN's "no active objectives" precondition. run() calls it only when the
// -seed-objective flag is set.
func seedDefaultObjectiveIfEmpty(ctx context.Context, s *store.Store) error {
	objs, err := s.ListObjectives(ctx)
	if err != nil {
		return err
	}
	if len(objs) > 0 {
		return nil
	}
	return s.SaveObjective(ctx, &domain.Objective{
		ID:     domain.NewID(),
		Title:  "Keep the build green",
		Status: domain.ObjectiveActive,
		Weight: 1,
	})
}

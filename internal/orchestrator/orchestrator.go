// Package orchestrator implements the Orchestrator (spec §4.8): owns the
// EngineState and the current Cycle while running, drives the state
// machine through the five phases in fixed order, and schedules the next
// cycle after cooldown. Grounded on the teacher's internal/engine/agent.go
// step loop, generalized from "one agent run" to "one five-phase cycle",
// and internal/engine/multi_hook.go's fan-out pattern for event broadcast.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cortexloop/engine/internal/budget"
	"github.com/cortexloop/engine/internal/config"
	"github.com/cortexloop/engine/internal/domain"
	"github.com/cortexloop/engine/internal/ledger"
	"github.com/cortexloop/engine/internal/phase"
	"github.com/cortexloop/engine/internal/recall"
	"github.com/cortexloop/engine/internal/router"
	"github.com/cortexloop/engine/internal/scheduler"
	"github.com/cortexloop/engine/internal/statemachine"
	"github.com/cortexloop/engine/internal/store"
)

// PresetHandler seeds state (typically an objective) before a triggered
// cycle runs. Registered under a name via RegisterPreset.
type PresetHandler func(ctx context.Context) error

// Event is one broadcast notification (spec §4.8.4).
type Event struct {
	Type        string
	From        domain.LoopState
	To          domain.LoopState
	Phase       string
	CycleID     string
	CycleNumber int
	Success     bool
	CostUsd     float64
	Error       string
}

// Listener receives every Event the Orchestrator broadcasts, in program
// order (spec §5: "phase events and state-changed events are emitted in
// program order").
type Listener func(Event)

// listeners fans an Event out to every subscriber, mirroring the teacher's
// Hooks slice-of-receivers pattern.
type listeners []Listener

func (ls listeners) broadcast(e Event) {
	for _, l := range ls {
		l(e)
	}
}

// Snapshot is the read-only view returned by GetState (spec §4.8.2).
type Snapshot struct {
	State                domain.LoopState
	Mode                 string
	Phase                string
	CurrentCycleID       string
	CurrentTaskID        string
	TotalCyclesCompleted int
	LastCycleCompletedAt *time.Time
	NextCycleScheduledAt *time.Time
	Error                string
}

// Orchestrator drives the engine loop. The running cycle is serialized by
// cycleMu; engineState is serialized separately by stateMu so GetState
// never blocks on an in-flight cycle.
type Orchestrator struct {
	store     *store.Store
	ledger    *ledger.Ledger
	guard     *budget.Guard
	router    *router.Router
	recall    *recall.Index
	configMgr *config.Manager
	scheduler *scheduler.Scheduler

	workingDir string

	stateMu sync.RWMutex
	state   domain.EngineState
	cfg     config.Config
	running bool

	cycleMu sync.Mutex

	presetMu sync.Mutex
	presets  map[string]PresetHandler

	listenerMu sync.Mutex
	listeners  listeners
}

// New constructs an Orchestrator. Call Start before triggering any cycle.
func New(s *store.Store, l *ledger.Ledger, g *budget.Guard, r *router.Router, recallIdx *recall.Index, configMgr *config.Manager, workingDir string) *Orchestrator {
	return &Orchestrator{
		store:      s,
		ledger:     l,
		guard:      g,
		router:     r,
		recall:     recallIdx,
		configMgr:  configMgr,
		scheduler:  scheduler.New(),
		workingDir: workingDir,
		presets:    map[string]PresetHandler{},
	}
}

// Subscribe registers l to receive every future broadcast Event.
func (o *Orchestrator) Subscribe(l Listener) {
	o.listenerMu.Lock()
	defer o.listenerMu.Unlock()
	o.listeners = append(o.listeners, l)
}

func (o *Orchestrator) broadcast(e Event) {
	o.listenerMu.Lock()
	ls := make(listeners, len(o.listeners))
	copy(ls, o.listeners)
	o.listenerMu.Unlock()
	ls.broadcast(e)
}

// RegisterPreset stores handler under name for later use by Trigger.
func (o *Orchestrator) RegisterPreset(name string, handler PresetHandler) {
	o.presetMu.Lock()
	defer o.presetMu.Unlock()
	o.presets[name] = handler
}

// Start implements spec §4.8.1 start(): load state, load config, schedule
// the first cycle.
func (o *Orchestrator) Start(ctx context.Context) error {
	st, ok, err := o.store.LoadEngineState(ctx)
	if err != nil {
		return fmt.Errorf("orchestrator: load engine state: %w", err)
	}
	if !ok {
		st = &domain.EngineState{LoopState: domain.LoopIdle}
	}
	st.ResetIfTransient()

	cfg, err := o.configMgr.Load()
	if err != nil {
		return fmt.Errorf("orchestrator: load config: %w", err)
	}
	o.applyConfig(*cfg)

	o.stateMu.Lock()
	o.state = *st
	o.state.Mode = cfg.Mode
	o.running = true
	o.stateMu.Unlock()

	o.scheduleNext(ctx)
	return nil
}

// Stop implements spec §4.8.1 stop(): clear the running flag, cancel any
// timer, persist EngineState.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.stateMu.Lock()
	o.running = false
	st := o.state
	o.stateMu.Unlock()

	o.scheduler.Cancel()
	return o.store.SaveEngineState(ctx, &st)
}

// applyConfig hot-wires the router and guard to cfg without touching their
// registrations (spec §9: "applyConfig(newCfg) broadcasters").
func (o *Orchestrator) applyConfig(cfg config.Config) {
	o.stateMu.Lock()
	o.cfg = cfg
	o.stateMu.Unlock()

	if err := o.router.UpdateConfig(router.Mode(cfg.Mode)); err != nil {
		log.Printf("orchestrator: invalid router mode %q: %v", cfg.Mode, err)
	}
	for name, enabled := range cfg.EnabledProviders {
		o.router.SetEnabled(name, enabled)
	}
	o.guard.UpdateBudgets(cfg.Budget)
}

// ReloadConfig implements spec §4.8.2 reloadConfig(): reload from store,
// re-wire router/guard. Does not restart any in-flight or scheduled cycle.
func (o *Orchestrator) ReloadConfig(ctx context.Context) error {
	cfg, err := o.configMgr.Load()
	if err != nil {
		return fmt.Errorf("orchestrator: reload config: %w", err)
	}
	o.applyConfig(*cfg)

	o.stateMu.Lock()
	o.state.Mode = cfg.Mode
	o.stateMu.Unlock()
	return nil
}

// GetState implements spec §4.8.2 getState().
func (o *Orchestrator) GetState() Snapshot {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return Snapshot{
		State:                o.state.LoopState,
		Mode:                 o.state.Mode,
		Phase:                o.state.CurrentPhase,
		CurrentCycleID:       o.state.CurrentCycleID,
		CurrentTaskID:        o.state.CurrentTaskID,
		TotalCyclesCompleted: o.state.TotalCyclesCompleted,
		LastCycleCompletedAt: o.state.LastCycleCompletedAt,
		NextCycleScheduledAt: o.state.NextCycleScheduledAt,
		Error:                o.state.Error,
	}
}

// Pause implements spec §4.8.2 pause(): idempotent; from any non-paused
// state, cancel the timer and transition to paused.
func (o *Orchestrator) Pause(ctx context.Context) error {
	o.stateMu.Lock()
	if o.state.LoopState == domain.LoopPaused {
		o.stateMu.Unlock()
		return nil
	}
	from := o.state.LoopState
	o.state.LoopState = domain.LoopPaused
	o.stateMu.Unlock()

	o.scheduler.Cancel()
	o.broadcast(Event{Type: "state_changed", From: from, To: domain.LoopPaused})
	return nil
}

// Resume implements spec §4.8.2 resume(): no-op unless currently paused;
// transition to idle and reschedule.
func (o *Orchestrator) Resume(ctx context.Context) error {
	o.stateMu.Lock()
	if o.state.LoopState != domain.LoopPaused {
		o.stateMu.Unlock()
		return nil
	}
	o.state.LoopState = domain.LoopIdle
	o.stateMu.Unlock()

	o.broadcast(Event{Type: "state_changed", From: domain.LoopPaused, To: domain.LoopIdle})
	o.scheduleNext(ctx)
	return nil
}

// Trigger implements spec §4.8.2 trigger(preset?): fails unless idle or
// paused; cancels any pending timer; optionally runs preset; runs exactly
// one cycle synchronously with respect to the caller.
func (o *Orchestrator) Trigger(ctx context.Context, preset string) (string, error) {
	o.stateMu.RLock()
	current := o.state.LoopState
	o.stateMu.RUnlock()

	if current != domain.LoopIdle && current != domain.LoopPaused {
		return "", &domain.PreconditionError{Reason: fmt.Sprintf("Cannot trigger: engine is %s", current)}
	}

	o.scheduler.Cancel()

	if preset != "" {
		o.presetMu.Lock()
		handler, ok := o.presets[preset]
		o.presetMu.Unlock()
		if !ok {
			log.Printf("orchestrator: unknown preset %q; running cycle without it", preset)
		} else if err := handler(ctx); err != nil {
			return "", fmt.Errorf("orchestrator: preset %q: %w", preset, err)
		}
	}

	return o.runCycle(ctx)
}

// scheduleNext arms the scheduler for cfg.CycleCooldownMinutes from now.
func (o *Orchestrator) scheduleNext(ctx context.Context) {
	o.stateMu.RLock()
	cooldown := time.Duration(o.cfg.CycleCooldownMinutes) * time.Minute
	o.stateMu.RUnlock()
	if cooldown <= 0 {
		cooldown = 30 * time.Minute
	}

	next := o.scheduler.Schedule(cooldown, func() {
		o.stateMu.RLock()
		running := o.running
		current := o.state.LoopState
		o.stateMu.RUnlock()
		if !running || (current != domain.LoopIdle && current != domain.LoopPaused) {
			return
		}
		if _, err := o.runCycle(ctx); err != nil {
			log.Printf("orchestrator: scheduled cycle failed: %v", err)
		}
	})

	o.stateMu.Lock()
	o.state.NextCycleScheduledAt = &next
	o.stateMu.Unlock()
}

// runCycle implements spec §4.8.3 cycle execution. Serialized by cycleMu so
// a scheduled auto-run and a manual Trigger can never overlap.
func (o *Orchestrator) runCycle(ctx context.Context) (string, error) {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()

	existing, err := o.store.ListCycles(ctx)
	if err != nil {
		return "", fmt.Errorf("orchestrator: list cycles: %w", err)
	}

	o.stateMu.RLock()
	mode := o.cfg.Mode
	o.stateMu.RUnlock()

	cyc := domain.NewCycle(len(existing), mode, time.Now().UTC())
	if err := o.store.SaveCycle(ctx, cyc); err != nil {
		return "", fmt.Errorf("orchestrator: persist cycle: %w", err)
	}

	o.stateMu.Lock()
	o.state.CurrentCycleID = cyc.ID
	o.stateMu.Unlock()

	deps := &phase.Deps{
		Router:     o.router,
		Guard:      o.guard,
		Ledger:     o.ledger,
		Store:      o.store,
		Recall:     o.recall,
		WorkingDir: o.workingDir,
	}
	phaseCtx := &phase.Context{CycleID: cyc.ID}

	type step struct {
		name string
		run  func() phase.Result
	}
	steps := []step{
		{statemachine.PhaseScan, func() phase.Result { return phase.Scan(ctx, deps, phaseCtx) }},
		{statemachine.PhasePlan, func() phase.Result { return phase.Plan(ctx, deps, phaseCtx) }},
		{statemachine.PhaseBuild, func() phase.Result { return phase.Build(ctx, deps, phaseCtx) }},
		{statemachine.PhaseShipCheck, func() phase.Result { return phase.ShipCheck(ctx, deps, phaseCtx) }},
		{statemachine.PhaseEval, func() phase.Result { return phase.Eval(ctx, deps, phaseCtx, cyc.StartedAt) }},
	}

	failed := false
	for _, s := range steps {
		o.stateMu.RLock()
		running := o.running
		current := o.state.LoopState
		o.stateMu.RUnlock()
		if !running {
			break
		}

		target := statemachine.StateForPhase(s.name)
		if !o.transitionTo(current, target, s.name, cyc.ID) {
			log.Printf("orchestrator: %s unreachable from %s; skipping phase", target, current)
			continue
		}

		now := time.Now().UTC()
		cyc.StartPhase(s.name, now)
		o.stateMu.Lock()
		o.state.CurrentPhase = s.name
		o.stateMu.Unlock()

		result := s.run()

		completedAt := time.Now().UTC()
		cyc.CompletePhase(s.name, completedAt, result.CostUsd)
		phaseCtx.CycleSpendUsd += result.CostUsd
		cyc.TasksCreated += result.TasksCreated
		cyc.TasksCompleted += result.TasksCompleted

		o.broadcast(Event{
			Type:        "phase_complete",
			Phase:       s.name,
			CycleID:     cyc.ID,
			CycleNumber: cyc.Number,
			Success:     result.Success,
			CostUsd:     result.CostUsd,
			Error:       result.Error,
		})

		if !result.Success {
			failed = true
			o.transitionTo(target, domain.LoopError, "", cyc.ID)
			o.stateMu.Lock()
			o.state.Error = result.Error
			o.stateMu.Unlock()
			break
		}
	}

	o.finalizeCycle(ctx, cyc, failed)
	o.scheduleNext(ctx)
	return cyc.ID, nil
}

// transitionTo attempts current->target directly, or via idle if that's
// the only legal path (spec §9 "try via idle"). Returns false if target is
// unreachable either way, in which case no transition or broadcast occurs.
func (o *Orchestrator) transitionTo(current, target domain.LoopState, phaseName string, cycleID string) bool {
	viaIdle, ok := statemachine.Reachable(current, target)
	if !ok {
		return false
	}

	if viaIdle {
		o.setState(current, domain.LoopIdle)
		o.broadcast(Event{Type: "state_changed", From: current, To: domain.LoopIdle, CycleID: cycleID})
		o.setState(domain.LoopIdle, target)
		o.broadcast(Event{Type: "state_changed", From: domain.LoopIdle, To: target, Phase: phaseName, CycleID: cycleID})
		return true
	}

	o.setState(current, target)
	o.broadcast(Event{Type: "state_changed", From: current, To: target, Phase: phaseName, CycleID: cycleID})
	return true
}

func (o *Orchestrator) setState(from, to domain.LoopState) {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	if o.state.LoopState == from {
		o.state.LoopState = to
	}
}

// finalizeCycle implements spec §4.8.3 step 3: persist the cycle's final
// state, update totals, clear in-flight identifiers, return to idle.
// EngineState is saved synchronously (awaited), resolving the Open Question
// against fire-and-forget (see DESIGN.md).
func (o *Orchestrator) finalizeCycle(ctx context.Context, cyc *domain.Cycle, failed bool) {
	now := time.Now().UTC()
	cyc.CompletedAt = &now
	if failed {
		cyc.State = domain.CycleFailed
	} else {
		cyc.State = domain.CycleCompleted
	}
	if err := o.store.SaveCycle(ctx, cyc); err != nil {
		log.Printf("orchestrator: persist final cycle state: %v", err)
	}

	o.stateMu.Lock()
	current := o.state.LoopState
	if !failed {
		o.state.TotalCyclesCompleted++
		o.state.LastCycleCompletedAt = &now
		o.state.Error = ""
	}
	o.state.CurrentCycleID = ""
	o.state.CurrentPhase = ""
	o.state.CurrentTaskID = ""
	o.stateMu.Unlock()

	o.transitionTo(current, domain.LoopIdle, "", cyc.ID)

	o.stateMu.RLock()
	snapshot := o.state
	o.stateMu.RUnlock()
	if err := o.store.SaveEngineState(ctx, &snapshot); err != nil {
		log.Printf("orchestrator: persist engine state: %v", err)
	}
}

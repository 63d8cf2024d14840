package store

import (
	"context"

	"github.com/cortexloop/engine/internal/domain"
)

const (
	singletonConfig      = "config"
	singletonEngineState = "engine_state"
	singletonBudgetState = "budget_state"
)

// SaveConfig persists the engine's configuration singleton.
func (s *Store) SaveConfig(ctx context.Context, cfg interface{}) error {
	return s.saveSingleton(ctx, singletonConfig, cfg)
}

// LoadConfig loads the configuration singleton into out. Returns false if
// none has been saved yet.
func (s *Store) LoadConfig(ctx context.Context, out interface{}) (bool, error) {
	return s.loadSingleton(ctx, singletonConfig, out)
}

// SaveEngineState persists the current EngineState.
func (s *Store) SaveEngineState(ctx context.Context, st *domain.EngineState) error {
	return s.saveSingleton(ctx, singletonEngineState, st)
}

// LoadEngineState loads the persisted EngineState, if any.
func (s *Store) LoadEngineState(ctx context.Context) (*domain.EngineState, bool, error) {
	var st domain.EngineState
	ok, err := s.loadSingleton(ctx, singletonEngineState, &st)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &st, true, nil
}

// SaveBudgetState persists the current BudgetConfig (the durable budget
// state named in spec §6.4).
func (s *Store) SaveBudgetState(ctx context.Context, cfg *domain.BudgetConfig) error {
	return s.saveSingleton(ctx, singletonBudgetState, cfg)
}

// LoadBudgetState loads the persisted BudgetConfig, if any.
func (s *Store) LoadBudgetState(ctx context.Context) (*domain.BudgetConfig, bool, error) {
	var cfg domain.BudgetConfig
	ok, err := s.loadSingleton(ctx, singletonBudgetState, &cfg)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &cfg, true, nil
}

// SaveObjective upserts one objective.
func (s *Store) SaveObjective(ctx context.Context, o *domain.Objective) error {
	return s.saveKeyed(ctx, "objectives", o.ID, o)
}

// DeleteObjective removes an objective by id.
func (s *Store) DeleteObjective(ctx context.Context, id string) error {
	return s.deleteKeyed(ctx, "objectives", id)
}

// GetObjective loads a single objective by id.
func (s *Store) GetObjective(ctx context.Context, id string) (*domain.Objective, bool, error) {
	var o domain.Objective
	ok, err := s.getKeyed(ctx, "objectives", id, &o)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &o, true, nil
}

// ListObjectives returns every stored objective.
func (s *Store) ListObjectives(ctx context.Context) ([]domain.Objective, error) {
	raw, err := s.listRaw(ctx, "objectives")
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Objective](raw)
}

// SaveTask upserts one task.
func (s *Store) SaveTask(ctx context.Context, t *domain.Task) error {
	return s.saveKeyed(ctx, "tasks", t.ID, t)
}

// GetTask loads a single task by id.
func (s *Store) GetTask(ctx context.Context, id string) (*domain.Task, bool, error) {
	var t domain.Task
	ok, err := s.getKeyed(ctx, "tasks", id, &t)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &t, true, nil
}

// ListTasks returns every stored task.
func (s *Store) ListTasks(ctx context.Context) ([]domain.Task, error) {
	raw, err := s.listRaw(ctx, "tasks")
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Task](raw)
}

// SaveCycle upserts one cycle.
func (s *Store) SaveCycle(ctx context.Context, c *domain.Cycle) error {
	return s.saveKeyed(ctx, "cycles", c.ID, c)
}

// ListCycles returns every stored cycle.
func (s *Store) ListCycles(ctx context.Context) ([]domain.Cycle, error) {
	raw, err := s.listRaw(ctx, "cycles")
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Cycle](raw)
}

// AppendScan appends a Scan record to the append-only log.
func (s *Store) AppendScan(ctx context.Context, sc *domain.Scan) error {
	return s.appendLog(ctx, "scans", sc)
}

// ListScans returns every persisted Scan, oldest first.
func (s *Store) ListScans(ctx context.Context) ([]domain.Scan, error) {
	raw, err := s.listRaw(ctx, "scans")
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Scan](raw)
}

// AppendPlan appends a Plan record to the append-only log.
func (s *Store) AppendPlan(ctx context.Context, p *domain.Plan) error {
	return s.appendLog(ctx, "plans", p)
}

// ListPlans returns every persisted Plan, oldest first.
func (s *Store) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	raw, err := s.listRaw(ctx, "plans")
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Plan](raw)
}

// AppendRun appends a Run record to the append-only log.
func (s *Store) AppendRun(ctx context.Context, r *domain.Run) error {
	return s.appendLog(ctx, "runs", r)
}

// ListRuns returns every persisted Run, oldest first.
func (s *Store) ListRuns(ctx context.Context) ([]domain.Run, error) {
	raw, err := s.listRaw(ctx, "runs")
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Run](raw)
}

// AppendEvaluation appends an Evaluation record to the append-only log.
func (s *Store) AppendEvaluation(ctx context.Context, e *domain.Evaluation) error {
	return s.appendLog(ctx, "evaluations", e)
}

// ListEvaluations returns every persisted Evaluation, oldest first.
func (s *Store) ListEvaluations(ctx context.Context) ([]domain.Evaluation, error) {
	raw, err := s.listRaw(ctx, "evaluations")
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Evaluation](raw)
}

// AppendDecision appends a DecisionLogEntry to the append-only log.
func (s *Store) AppendDecision(ctx context.Context, d *domain.DecisionLogEntry) error {
	return s.appendLog(ctx, "decisions", d)
}

// ListDecisions returns every persisted decision, oldest first.
func (s *Store) ListDecisions(ctx context.Context) ([]domain.DecisionLogEntry, error) {
	raw, err := s.listRaw(ctx, "decisions")
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.DecisionLogEntry](raw)
}

// AppendExperiment appends an ExperimentLogEntry to the append-only log.
func (s *Store) AppendExperiment(ctx context.Context, e *domain.ExperimentLogEntry) error {
	return s.appendLog(ctx, "experiments", e)
}

// ListExperiments returns every persisted experiment, oldest first.
func (s *Store) ListExperiments(ctx context.Context) ([]domain.ExperimentLogEntry, error) {
	raw, err := s.listRaw(ctx, "experiments")
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.ExperimentLogEntry](raw)
}

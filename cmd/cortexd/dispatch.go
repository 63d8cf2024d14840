package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cortexloop/engine/internal/approval"
	"github.com/cortexloop/engine/internal/domain"
)

// dispatcher resolves each control-surface method name (spec §6.3) against
// the wired runtimeEnv. One dispatcher per process; every method call binds
// its own ctx from the caller.
type dispatcher struct {
	env *runtimeEnv
}

func newDispatcher(env *runtimeEnv) *dispatcher {
	return &dispatcher{env: env}
}

func (d *dispatcher) handle(ctx context.Context, c command) response {
	result, err := d.route(ctx, c.Method, c.Params)
	if err != nil {
		return errResponse(c.ID, err)
	}
	return okResponse(c.ID, result)
}

func (d *dispatcher) route(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	switch method {
	case "state":
		return d.env.Orchestrator.GetState(), nil

	case "pause":
		return nil, d.env.Orchestrator.Pause(ctx)

	case "resume":
		return nil, d.env.Orchestrator.Resume(ctx)

	case "trigger":
		var p struct {
			Preset string `json:"preset"`
		}
		_ = json.Unmarshal(params, &p)
		cycleID, err := d.env.Orchestrator.Trigger(ctx, p.Preset)
		if err != nil {
			return nil, err
		}
		return map[string]string{"cycleId": cycleID}, nil

	case "config.get":
		return d.env.ConfigMgr.Load()

	case "config.set":
		return nil, d.configSet(ctx, params)

	case "objectives.list":
		return d.env.Store.ListObjectives(ctx)

	case "objectives.create":
		return d.objectiveCreate(ctx, params)

	case "objectives.update":
		return d.objectiveUpdate(ctx, params)

	case "objectives.delete":
		var p struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(params, &p); err != nil || p.ID == "" {
			return nil, &domain.ValidationError{Field: "id", Reason: "required"}
		}
		return nil, d.env.Store.DeleteObjective(ctx, p.ID)

	case "tasks.list":
		return d.env.Store.ListTasks(ctx)

	case "tasks.detail":
		return d.taskDetail(ctx, params)

	case "scans.list":
		return d.env.Store.ListScans(ctx)

	case "plans.list":
		return d.env.Store.ListPlans(ctx)

	case "runs.list":
		return d.env.Store.ListRuns(ctx)

	case "evals.list":
		return d.env.Store.ListEvaluations(ctx)

	case "decisions.list":
		return d.env.Store.ListDecisions(ctx)

	case "experiments.list":
		return d.env.Store.ListExperiments(ctx)

	case "cost.summary":
		return d.costSummary(ctx)

	case "budget.status":
		return map[string]interface{}{
			"budget": d.env.Guard.Budgets(),
		}, nil

	case "approve":
		var p struct {
			TaskID string `json:"taskId"`
		}
		if err := json.Unmarshal(params, &p); err != nil || p.TaskID == "" {
			return nil, &domain.ValidationError{Field: "taskId", Reason: "required"}
		}
		q := approval.New(ctxTaskStore{ctx: ctx, st: d.env.Store})
		return nil, q.Approve(p.TaskID)

	case "reject":
		var p struct {
			TaskID string `json:"taskId"`
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(params, &p); err != nil || p.TaskID == "" {
			return nil, &domain.ValidationError{Field: "taskId", Reason: "required"}
		}
		q := approval.New(ctxTaskStore{ctx: ctx, st: d.env.Store})
		return nil, q.Reject(p.TaskID, p.Reason)

	default:
		return nil, fmt.Errorf("unknown method %q", method)
	}
}

func (d *dispatcher) objectiveCreate(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		Title              string   `json:"title"`
		Description        string   `json:"description"`
		Weight             float64  `json:"weight"`
		Tags               []string `json:"tags"`
		AcceptanceCriteria []string `json:"acceptanceCriteria"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &domain.ValidationError{Field: "body", Reason: err.Error()}
	}
	if p.Title == "" {
		return nil, &domain.ValidationError{Field: "title", Reason: "must be non-empty"}
	}

	now := time.Now().UTC()
	obj := &domain.Objective{
		ID:                 domain.NewID(),
		Title:              p.Title,
		Description:        p.Description,
		Weight:             p.Weight,
		Status:             domain.ObjectiveActive,
		Tags:               p.Tags,
		AcceptanceCriteria: p.AcceptanceCriteria,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	obj.Normalize()
	if err := d.env.Store.SaveObjective(ctx, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func (d *dispatcher) objectiveUpdate(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		ID                 string   `json:"id"`
		Title              *string  `json:"title"`
		Description        *string  `json:"description"`
		Weight             *float64 `json:"weight"`
		Status             *string  `json:"status"`
		Tags               []string `json:"tags"`
		AcceptanceCriteria []string `json:"acceptanceCriteria"`
	}
	if err := json.Unmarshal(params, &p); err != nil || p.ID == "" {
		return nil, &domain.ValidationError{Field: "id", Reason: "required"}
	}

	obj, ok, err := d.env.Store.GetObjective(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.PreconditionError{Reason: fmt.Sprintf("objective %s not found", p.ID)}
	}

	if p.Title != nil {
		obj.Title = *p.Title
	}
	if p.Description != nil {
		obj.Description = *p.Description
	}
	if p.Weight != nil {
		obj.Weight = *p.Weight
	}
	if p.Status != nil {
		status := domain.ObjectiveStatus(*p.Status)
		if !status.Valid() {
			return nil, &domain.ValidationError{Field: "status", Reason: "unknown status"}
		}
		obj.Status = status
	}
	if p.Tags != nil {
		obj.Tags = p.Tags
	}
	if p.AcceptanceCriteria != nil {
		obj.AcceptanceCriteria = p.AcceptanceCriteria
	}
	obj.UpdatedAt = time.Now().UTC()
	obj.Normalize() // clamps weight into [0,1] on every write (spec §6.3)

	if err := d.env.Store.SaveObjective(ctx, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func (d *dispatcher) taskDetail(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(params, &p); err != nil || p.ID == "" {
		return nil, &domain.ValidationError{Field: "id", Reason: "required"}
	}

	task, ok, err := d.env.Store.GetTask(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.PreconditionError{Reason: fmt.Sprintf("task %s not found", p.ID)}
	}

	allRuns, err := d.env.Store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	runs := make([]domain.Run, 0)
	for _, r := range allRuns {
		if r.TaskID == task.ID {
			runs = append(runs, r)
		}
	}

	return map[string]interface{}{
		"task": task,
		"runs": runs,
	}, nil
}

func (d *dispatcher) costSummary(ctx context.Context) (interface{}, error) {
	records := d.env.Ledger.GetRecords()

	byProvider := map[string]float64{}
	byPhase := map[string]float64{}
	for _, r := range records {
		byProvider[r.Provider] += r.CostUsd
		byPhase[r.Phase] += r.CostUsd
	}

	return map[string]interface{}{
		"total":      d.env.Ledger.Total(),
		"byProvider": byProvider,
		"byPhase":    byPhase,
		"runCount":   len(records),
	}, nil
}

func (d *dispatcher) configSet(ctx context.Context, params json.RawMessage) error {
	current, err := d.env.ConfigMgr.Load()
	if err != nil {
		return err
	}

	var patch struct {
		Mode                 *string          `json:"mode"`
		EnabledProviders     map[string]bool  `json:"enabledProviders"`
		Budget               *domain.BudgetConfig `json:"budget"`
		SandboxMode          *string          `json:"sandboxMode"`
		DockerImage          *string          `json:"dockerImage"`
		CycleCooldownMinutes *int             `json:"cycleCooldownMinutes"`
	}
	if err := json.Unmarshal(params, &patch); err != nil {
		return &domain.ConfigurationError{Field: "body", Reason: err.Error()}
	}

	if patch.Mode != nil {
		switch *patch.Mode {
		case "simulation", "selective", "live":
			current.Mode = *patch.Mode
		default:
			return &domain.ConfigurationError{Field: "mode", Reason: "must be one of simulation, selective, live"}
		}
	}
	if patch.EnabledProviders != nil {
		current.EnabledProviders = patch.EnabledProviders
	}
	if patch.Budget != nil {
		patch.Budget.Clamp()
		current.Budget = *patch.Budget
	}
	if patch.SandboxMode != nil {
		current.SandboxMode = *patch.SandboxMode
	}
	if patch.DockerImage != nil {
		current.DockerImage = *patch.DockerImage
	}
	if patch.CycleCooldownMinutes != nil && *patch.CycleCooldownMinutes > 0 {
		current.CycleCooldownMinutes = *patch.CycleCooldownMinutes
	}

	if err := d.env.ConfigMgr.Save(current); err != nil {
		return err
	}
	return d.env.Orchestrator.ReloadConfig(ctx)
}

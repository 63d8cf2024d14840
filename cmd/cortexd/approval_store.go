package main

import (
	"context"

	"github.com/cortexloop/engine/internal/domain"
	"github.com/cortexloop/engine/internal/store"
)

// ctxTaskStore adapts the context-taking store.Store onto the approval
// package's context-free TaskStore interface, binding a single ctx for the
// adapter's lifetime. The approval queue only ever needs request-scoped
// operations invoked from the stdio dispatcher, which already has a ctx in
// hand at each call site, so a fresh adapter is built per command rather
// than held long-lived.
type ctxTaskStore struct {
	ctx context.Context
	st  *store.Store
}

func (a ctxTaskStore) GetTask(id string) (*domain.Task, error) {
	t, ok, err := a.st.GetTask(a.ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return t, nil
}

func (a ctxTaskStore) SaveTask(t *domain.Task) error {
	return a.st.SaveTask(a.ctx, t)
}

func (a ctxTaskStore) ListTasks() ([]domain.Task, error) {
	return a.st.ListTasks(a.ctx)
}

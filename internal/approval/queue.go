// Package approval implements the Approval Queue (spec §4.5): a thin
// projection over the task collection, exposing tasks awaiting human
// decision and the two transitions out of that state.
package approval

import (
	"time"

	"github.com/cortexloop/engine/internal/domain"
)

// TaskStore is the subset of the store's task operations the queue needs.
// The Queue, writing through it, performs the approve/reject transitions for
// externally-blocked tasks (spec §4.5).
type TaskStore interface {
	GetTask(id string) (*domain.Task, error)
	SaveTask(t *domain.Task) error
	ListTasks() ([]domain.Task, error)
}

// Queue reads and mutates tasks through a TaskStore; it holds no state of
// its own.
type Queue struct {
	store TaskStore
	now   func() time.Time
}

// New constructs a Queue backed by store.
func New(store TaskStore) *Queue {
	return &Queue{store: store, now: time.Now}
}

// Pending returns every task currently in state awaiting_approval.
func (q *Queue) Pending() ([]domain.Task, error) {
	all, err := q.store.ListTasks()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Task, 0, len(all))
	for _, tk := range all {
		if tk.State == domain.TaskAwaitingApproval {
			out = append(out, tk)
		}
	}
	return out, nil
}

var errNotAwaitingApproval = &domain.PreconditionError{Reason: "not found or not awaiting approval"}

// Approve moves taskID from awaiting_approval to building. It is the only
// legal path into that transition for a task blocked on human review.
func (q *Queue) Approve(taskID string) error {
	tk, err := q.store.GetTask(taskID)
	if err != nil || tk == nil || tk.State != domain.TaskAwaitingApproval {
		return errNotAwaitingApproval
	}
	tk.State = domain.TaskBuilding
	tk.UpdatedAt = q.now()
	return q.store.SaveTask(tk)
}

// Reject moves taskID from awaiting_approval to failed, recording reason as
// the task's error.
func (q *Queue) Reject(taskID string, reason string) error {
	tk, err := q.store.GetTask(taskID)
	if err != nil || tk == nil || tk.State != domain.TaskAwaitingApproval {
		return errNotAwaitingApproval
	}
	tk.State = domain.TaskFailed
	tk.Error = reason
	tk.UpdatedAt = q.now()
	return q.store.SaveTask(tk)
}

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cortexloop/engine/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestObjectiveRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	obj := &domain.Objective{ID: "o1", Title: "Ship v1", Weight: 0.5, Status: domain.ObjectiveActive}
	if err := s.SaveObjective(ctx, obj); err != nil {
		t.Fatalf("SaveObjective: %v", err)
	}

	got, ok, err := s.GetObjective(ctx, "o1")
	if err != nil || !ok {
		t.Fatalf("GetObjective: ok=%v err=%v", ok, err)
	}
	if got.Title != "Ship v1" {
		t.Fatalf("title = %q", got.Title)
	}

	all, err := s.ListObjectives(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListObjectives: %v, %v", all, err)
	}

	if err := s.DeleteObjective(ctx, "o1"); err != nil {
		t.Fatalf("DeleteObjective: %v", err)
	}
	_, ok, _ = s.GetObjective(ctx, "o1")
	if ok {
		t.Fatalf("expected objective deleted")
	}
}

func TestEngineStateSingletonRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, ok, err := s.LoadEngineState(ctx)
	if err != nil || ok {
		t.Fatalf("expected no engine state yet: ok=%v err=%v", ok, err)
	}

	st := &domain.EngineState{LoopState: domain.LoopIdle, TotalCyclesCompleted: 3}
	if err := s.SaveEngineState(ctx, st); err != nil {
		t.Fatalf("SaveEngineState: %v", err)
	}

	got, ok, err := s.LoadEngineState(ctx)
	if err != nil || !ok {
		t.Fatalf("LoadEngineState: ok=%v err=%v", ok, err)
	}
	if got.TotalCyclesCompleted != 3 {
		t.Fatalf("totalCyclesCompleted = %d, want 3", got.TotalCyclesCompleted)
	}
}

func TestAppendOnlyLogsPreserveOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	now := time.Now()
	for i := 0; i < 3; i++ {
		if err := s.AppendScan(ctx, &domain.Scan{ID: string(rune('a' + i)), CreatedAt: now}); err != nil {
			t.Fatalf("AppendScan: %v", err)
		}
	}

	scans, err := s.ListScans(ctx)
	if err != nil {
		t.Fatalf("ListScans: %v", err)
	}
	if len(scans) != 3 {
		t.Fatalf("got %d scans, want 3", len(scans))
	}
	if scans[0].ID != "a" || scans[2].ID != "c" {
		t.Fatalf("order not preserved: %+v", scans)
	}
}

func TestTaskRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tk := &domain.Task{ID: "t1", State: domain.TaskBuilding, AutonomyTier: domain.TierT1}
	if err := s.SaveTask(ctx, tk); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}
	got, ok, err := s.GetTask(ctx, "t1")
	if err != nil || !ok {
		t.Fatalf("GetTask: ok=%v err=%v", ok, err)
	}
	if got.State != domain.TaskBuilding {
		t.Fatalf("state = %s", got.State)
	}
}

package recall

import (
	"path/filepath"
	"testing"

	"github.com/cortexloop/engine/internal/domain"
)

func TestIndexFindingAndRecall(t *testing.T) {
	dir := t.TempDir()
	idx, err := Open(filepath.Join(dir, "recall.bleve"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	f := domain.Finding{Title: "rate limiter gap", Detail: "no backoff on retry path"}
	if err := idx.IndexFinding("scan-1", 0, "obj-1", f); err != nil {
		t.Fatalf("IndexFinding: %v", err)
	}
	if err := idx.IndexInsight("eval-1", "obj-1", "retries should use exponential backoff"); err != nil {
		t.Fatalf("IndexInsight: %v", err)
	}

	entries := idx.Recall("retry backoff", 5)
	if len(entries) == 0 {
		t.Fatalf("expected at least one recalled entry")
	}
}

func TestRecallDegradesOnEmptyQuery(t *testing.T) {
	dir := t.TempDir()
	idx, err := Open(filepath.Join(dir, "recall.bleve"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	if entries := idx.Recall("", 5); entries != nil {
		t.Fatalf("expected nil entries for empty query, got %v", entries)
	}
}

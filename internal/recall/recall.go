// Package recall provides a bleve full-text index over prior Scan findings
// and Evaluation insights, consulted by SCAN to enrich the research adapter's
// context (SPEC_FULL §4.6.3). Grounded on the teacher's
// internal/indexer/bm25.go BM25Index; ranking uses bleve's default scoring.
package recall

import (
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/cortexloop/engine/internal/domain"
)

// Entry is one recallable record: either a prior Finding or an Evaluation
// insight, re-labeled verified since it's a confirmed prior record.
type Entry struct {
	ID          string
	ObjectiveID string
	Kind        string // "finding" or "insight"
	Text        string
	Tags        string
}

// Index wraps a bleve full-text index over recallable entries.
type Index struct {
	index bleve.Index
	path  string
}

// Open creates or opens the index at path. A corrupted index is deleted and
// recreated, matching the teacher's self-healing behavior.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildMapping())
		if err != nil {
			return nil, fmt.Errorf("recall: create index: %w", err)
		}
	} else if err != nil {
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return nil, fmt.Errorf("recall: remove corrupted index: %w", rmErr)
		}
		idx, err = bleve.New(path, buildMapping())
		if err != nil {
			return nil, fmt.Errorf("recall: recreate index: %w", err)
		}
	}
	return &Index{index: idx, path: path}, nil
}

func buildMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	kwField := bleve.NewTextFieldMapping()
	kwField.Analyzer = keyword.Name
	kwField.Store = true
	kwField.Index = true
	doc.AddFieldMappingsAt("objective_id", kwField)
	doc.AddFieldMappingsAt("kind", kwField)

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	textField.Store = true
	textField.Index = true
	doc.AddFieldMappingsAt("text", textField)
	doc.AddFieldMappingsAt("tags", textField)

	im.DefaultMapping = doc
	return im
}

// IndexFinding adds a Scan finding as a recallable entry.
func (x *Index) IndexFinding(scanID string, seq int, objectiveID string, f domain.Finding) error {
	id := fmt.Sprintf("%s:finding:%d", scanID, seq)
	return x.index.Index(id, map[string]interface{}{
		"objective_id": objectiveID,
		"kind":         "finding",
		"text":         f.Title + " " + f.Detail,
		"tags":         "",
	})
}

// IndexInsight adds an Evaluation insight as a recallable entry.
func (x *Index) IndexInsight(evalID string, objectiveID string, insight string) error {
	id := evalID + ":insight:" + insight
	return x.index.Index(id, map[string]interface{}{
		"objective_id": objectiveID,
		"kind":         "insight",
		"text":         insight,
		"tags":         "",
	})
}

// Recall runs a bleve match query for the given text and returns the top k
// matching entries. A query error or empty index returns an empty slice and
// no error — callers degrade to adapter-only context (SPEC_FULL §4.6.3).
func (x *Index) Recall(query string, k int) []Entry {
	if query == "" || k <= 0 {
		return nil
	}
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = k
	req.Fields = []string{"objective_id", "kind", "text", "tags"}

	result, err := x.index.Search(req)
	if err != nil {
		return nil
	}

	entries := make([]Entry, 0, len(result.Hits))
	for _, hit := range result.Hits {
		e := Entry{ID: hit.ID}
		if v, ok := hit.Fields["objective_id"].(string); ok {
			e.ObjectiveID = v
		}
		if v, ok := hit.Fields["kind"].(string); ok {
			e.Kind = v
		}
		if v, ok := hit.Fields["text"].(string); ok {
			e.Text = v
		}
		if v, ok := hit.Fields["tags"].(string); ok {
			e.Tags = v
		}
		entries = append(entries, e)
	}
	return entries
}

// Close releases the underlying index handle.
func (x *Index) Close() error {
	return x.index.Close()
}

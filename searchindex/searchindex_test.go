//go:build cgo

package searchindex

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "search.db")
	idx, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestUpsertAndSearchFindsMatch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	err := idx.Upsert(ctx, Entry{
		QuestionID:   "0478_s24_qp_12_q1",
		ExamCode:     "0478",
		Topic:        "algebra",
		RelativePath: "0478/algebra/0478_s24_qp_12_q1",
		RootText:     "Solve the quadratic equation for x.",
		ChildText:    "Factorize the expression.",
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := idx.Search(ctx, "quadratic", "", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].QuestionID != "0478_s24_qp_12_q1" {
		t.Fatalf("Search results = %+v", results)
	}
}

func TestSearchFiltersByExamCode(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	idx.Upsert(ctx, Entry{QuestionID: "a1", ExamCode: "0478", RelativePath: "p1", RootText: "vectors and matrices"})
	idx.Upsert(ctx, Entry{QuestionID: "b1", ExamCode: "9709", RelativePath: "p2", RootText: "vectors in three dimensions"})

	results, err := idx.Search(ctx, "vectors", "9709", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].QuestionID != "b1" {
		t.Fatalf("Search results = %+v, want only b1", results)
	}
}

func TestUpsertReplacesExistingEntry(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	idx.Upsert(ctx, Entry{QuestionID: "q1", ExamCode: "0478", RelativePath: "p", RootText: "original wording"})
	idx.Upsert(ctx, Entry{QuestionID: "q1", ExamCode: "0478", RelativePath: "p", RootText: "revised wording"})

	results, err := idx.Search(ctx, "revised", "", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly one indexed row after re-upsert, got %d", len(results))
	}
}

package catalog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/declanmoore/examcache/model"
)

func sampleQuestion(t *testing.T) model.Question {
	t.Helper()
	rect, err := model.NewPixelRectFullWidth(0, 100, 0)
	if err != nil {
		t.Fatal(err)
	}
	m, _ := model.NewMarks(6, model.MarkExplicit)
	leaf, err := model.NewPart("1", model.QuestionKind, rect, nil, model.WithLeafMarks(m))
	if err != nil {
		t.Fatal(err)
	}
	q, err := model.NewQuestion("0478_s24_qp_12_q1", "0478", 2024, 1, 2, leaf)
	if err != nil {
		t.Fatal(err)
	}
	return q
}

func TestRecordOfReflectsQuestionState(t *testing.T) {
	q := sampleQuestion(t)
	r := RecordOf(q, 1)
	if r.SchemaVersion != 9 {
		t.Errorf("SchemaVersion = %d, want 9", r.SchemaVersion)
	}
	if r.TotalMarks != 6 {
		t.Errorf("TotalMarks = %d, want 6", r.TotalMarks)
	}
	if r.RelativePath != "0478/unclassified/0478_s24_qp_12_q1" {
		t.Errorf("RelativePath = %s", r.RelativePath)
	}
	if !r.IsValid {
		t.Error("expected record valid")
	}
}

func TestAppendWritesOneJSONLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "questions.jsonl")
	q := sampleQuestion(t)

	if err := Append(path, RecordOf(q, 1), 5*time.Second); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := Append(path, RecordOf(q, 2), 5*time.Second); err != nil {
		t.Fatalf("Append: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("line %d not valid JSON: %v", lines, err)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("expected 2 lines, got %d", lines)
	}
}

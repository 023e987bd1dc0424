package regions

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/declanmoore/examcache/model"
)

func buildSampleQuestion(t *testing.T) model.Question {
	t.Helper()
	leafRect, err := model.NewPixelRectFullWidth(10, 100, 20)
	if err != nil {
		t.Fatal(err)
	}
	m, _ := model.NewMarks(4, model.MarkExplicit)
	leaf, err := model.NewPart("1(a)", model.Letter, leafRect, nil, model.WithLeafMarks(m))
	if err != nil {
		t.Fatal(err)
	}

	rootRect, err := model.NewPixelRect(0, 100, 0, 1654)
	if err != nil {
		t.Fatal(err)
	}
	root, err := model.NewPart("1", model.QuestionKind, rootRect, []model.Part{leaf})
	if err != nil {
		t.Fatal(err)
	}

	q, err := model.NewQuestion("0478_s24_qp_12_q1", "0478", 2024, 1, 2, root)
	if err != nil {
		t.Fatal(err)
	}
	return q
}

func TestBuildOmitsMarksOnInternalNodes(t *testing.T) {
	q := buildSampleQuestion(t)
	doc := Build(q, model.Size{Width: 1654, Height: 2339})

	rootRegion, ok := doc.Regions["1"]
	if !ok {
		t.Fatal("expected root region present")
	}
	if rootRegion.Marks != nil {
		t.Errorf("internal node should omit marks, got %v", *rootRegion.Marks)
	}

	leafRegion, ok := doc.Regions["1(a)"]
	if !ok {
		t.Fatal("expected leaf region present")
	}
	if leafRegion.Marks == nil || *leafRegion.Marks != 4 {
		t.Errorf("leaf marks = %v, want 4", leafRegion.Marks)
	}
}

func TestBuildSerializesInvalidPartsAsIsValidFalse(t *testing.T) {
	leafRect, err := model.NewPixelRectFullWidth(10, 100, 20)
	if err != nil {
		t.Fatal(err)
	}
	leaf, err := model.NewPart("1(a)", model.Letter, leafRect, nil,
		model.WithValidationIssues("No mark box detected (uses composite_height)"))
	if err != nil {
		t.Fatal(err)
	}
	rootRect, _ := model.NewPixelRect(0, 100, 0, 1654)
	root, err := model.NewPart("1", model.QuestionKind, rootRect, []model.Part{leaf})
	if err != nil {
		t.Fatal(err)
	}
	q, err := model.NewQuestion("0478_s24_qp_12_q1", "0478", 2024, 1, 2, root)
	if err != nil {
		t.Fatal(err)
	}

	doc := Build(q, model.Size{Width: 1654, Height: 2339})
	region := doc.Regions["1(a)"]
	if region.IsValid == nil || *region.IsValid {
		t.Errorf("invalid part should serialize is_valid=false, got %v", region.IsValid)
	}
	if len(region.ValidationIssues) != 1 {
		t.Errorf("ValidationIssues = %v", region.ValidationIssues)
	}

	valid := doc.Regions["1"]
	if valid.IsValid != nil {
		t.Error("valid part should omit is_valid entirely")
	}
}

func TestRoundTripReserializesByteEqual(t *testing.T) {
	q := buildSampleQuestion(t)
	doc := Build(q, model.Size{Width: 1654, Height: 2339})

	dir := t.TempDir()
	path := filepath.Join(dir, "regions.json")
	if err := Write(path, doc); err != nil {
		t.Fatalf("Write: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	reread, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	path2 := filepath.Join(dir, "regions2.json")
	if err := Write(path2, reread); err != nil {
		t.Fatalf("Write round trip: %v", err)
	}
	second, err := os.ReadFile(path2)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("serialize -> deserialize -> re-serialize is not byte-equal")
	}
	if reread.TotalMarks() != q.TotalMarks() {
		t.Errorf("round-tripped TotalMarks = %d, want %d", reread.TotalMarks(), q.TotalMarks())
	}
}

func TestParseRejectsSchemaVersionMismatch(t *testing.T) {
	_, err := Parse([]byte(`{"schema_version": 2, "question_id": "x", "regions": {}}`))
	if !errors.Is(err, ErrSchemaVersion) {
		t.Fatalf("Parse = %v, want ErrSchemaVersion", err)
	}
}

func TestBuildBoundsStayWithinComposite(t *testing.T) {
	q := buildSampleQuestion(t)
	size := model.Size{Width: 1654, Height: 2339}
	doc := Build(q, size)
	for label, region := range doc.Regions {
		b := region.Bounds
		if b.Top < 0 || b.Bottom > size.Height || b.Left < 0 || b.Right > size.Width {
			t.Errorf("region %s bounds %+v fall outside composite %dx%d", label, b, size.Width, size.Height)
		}
	}
}

func TestWriteProducesValidJSON(t *testing.T) {
	q := buildSampleQuestion(t)
	doc := Build(q, model.Size{Width: 1654, Height: 2339})

	dir := t.TempDir()
	path := filepath.Join(dir, "regions.json")
	if err := Write(path, doc); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var roundTrip Document
	if err := json.Unmarshal(data, &roundTrip); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if roundTrip.SchemaVersion != 3 {
		t.Errorf("SchemaVersion = %d, want 3", roundTrip.SchemaVersion)
	}
}

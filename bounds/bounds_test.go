package bounds

import (
	"testing"

	"github.com/declanmoore/examcache/model"
)

func leafPart(t *testing.T, label string, top, bottom, left int) model.Part {
	t.Helper()
	rect, err := model.NewPixelRectFullWidth(top, bottom, left)
	if err != nil {
		t.Fatalf("rect: %v", err)
	}
	m, _ := model.NewMarks(4, model.MarkExplicit)
	p, err := model.NewPart(label, model.Letter, rect, nil, model.WithLeafMarks(m), model.WithLabelRect(rect))
	if err != nil {
		t.Fatalf("part: %v", err)
	}
	return p
}

func TestFinalizeAppliesRightEdgeFromMark(t *testing.T) {
	leaf := leafPart(t, "1(a)", 0, 200, 10)
	root, err := model.NewPixelRectFullWidth(0, 200, 0)
	if err != nil {
		t.Fatal(err)
	}
	rootPart, err := model.NewPart("1", model.QuestionKind, root, []model.Part{leaf})
	if err != nil {
		t.Fatalf("root: %v", err)
	}

	marks := []MarkEdge{{Y: 100, Right: 1600}}
	result, err := Finalize(rootPart, marks, model.PixelRect{}, false, 0, false, 1654)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	child := result.Root.Children()[0]
	if got, want := child.ContentRect().Right, 1605; got != want {
		t.Errorf("child right = %d, want %d", got, want)
	}
}

func TestFinalizeNoMarksUsesCompositeWidth(t *testing.T) {
	leaf := leafPart(t, "1(a)", 0, 200, 10)
	root, _ := model.NewPixelRectFullWidth(0, 200, 0)
	rootPart, err := model.NewPart("1", model.QuestionKind, root, []model.Part{leaf})
	if err != nil {
		t.Fatalf("root: %v", err)
	}

	result, err := Finalize(rootPart, nil, model.PixelRect{}, false, 0, false, 1654)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got := result.Root.ContentRect().Right; got != 1654 {
		t.Errorf("root right = %d, want 1654 (full composite width)", got)
	}
}

func TestFinalizeComputesHorizontalOffset(t *testing.T) {
	leaf := leafPart(t, "1(a)", 0, 200, 10)
	root, _ := model.NewPixelRectFullWidth(0, 200, 0)
	rootPart, err := model.NewPart("1", model.QuestionKind, root, []model.Part{leaf})
	if err != nil {
		t.Fatalf("root: %v", err)
	}

	numeralBBox, _ := model.NewPixelRect(0, 20, 50, 70)
	result, err := Finalize(rootPart, nil, numeralBBox, true, 40, true, 1654)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if result.HorizontalOffset != 10 {
		t.Errorf("HorizontalOffset = %d, want 10", result.HorizontalOffset)
	}
}

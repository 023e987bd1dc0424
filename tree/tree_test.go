package tree

import (
	"testing"
	"time"

	"github.com/declanmoore/examcache/diagnostics"
	"github.com/declanmoore/examcache/model"
)

func rect(t *testing.T, top, bottom, left, right int) model.PixelRect {
	t.Helper()
	r, err := model.NewPixelRect(top, bottom, left, right)
	if err != nil {
		t.Fatalf("rect: %v", err)
	}
	return r
}

func TestBuildSinglePartQuestion(t *testing.T) {
	marks := []Mark{{Value: 6, Y: 50, BBox: rect(t, 45, 55, 1600, 1620)}}
	root, err := Build(1, nil, nil, marks, 200, 1654, nil, "p.pdf", "0478", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !root.IsLeaf() {
		t.Fatal("expected single-part question to be a leaf root")
	}
	if root.Marks().Value != 6 || root.Marks().Source != model.MarkExplicit {
		t.Errorf("Marks() = %+v, want explicit 6", root.Marks())
	}
}

func TestBuildLetterGapMarksEarlierInvalid(t *testing.T) {
	letters := []Label{
		{Label: "a", Y: 10, BBox: rect(t, 5, 15, 0, 20)},
		{Label: "c", Y: 100, BBox: rect(t, 95, 105, 0, 20)},
	}
	marks := []Mark{
		{Value: 2, Y: 90, BBox: rect(t, 85, 95, 1600, 1620)},
		{Value: 3, Y: 190, BBox: rect(t, 185, 195, 1600, 1620)},
	}
	collector := diagnostics.NewCollector()
	root, err := Build(1, letters, nil, marks, 200, 1654, collector, "p.pdf", "0478", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	children := root.Children()
	if len(children) != 2 {
		t.Fatalf("expected 2 letters, got %d", len(children))
	}
	if children[0].IsValid() {
		t.Error("expected (a) marked invalid due to letter gap")
	}
	if !children[1].IsValid() {
		t.Error("expected (c) to remain valid")
	}
	report := collector.Report(time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC))
	if report.SummaryByType["letter_gap"] != 1 {
		t.Errorf("expected 1 letter_gap diagnostic, got %d", report.SummaryByType["letter_gap"])
	}
}

func TestBuildRomanResetInvalidatesTail(t *testing.T) {
	letters := []Label{{Label: "a", Y: 10, BBox: rect(t, 5, 15, 0, 20)}}
	romans := []Label{
		{Label: "i", Y: 20, BBox: rect(t, 15, 25, 10, 30)},
		{Label: "ii", Y: 60, BBox: rect(t, 55, 65, 10, 30)},
		{Label: "i", Y: 100, BBox: rect(t, 95, 105, 10, 30)},
		{Label: "ii", Y: 140, BBox: rect(t, 135, 145, 10, 30)},
	}
	marks := []Mark{
		{Value: 1, Y: 55, BBox: rect(t, 50, 58, 1600, 1620)},
		{Value: 1, Y: 95, BBox: rect(t, 90, 98, 1600, 1620)},
		{Value: 1, Y: 135, BBox: rect(t, 130, 138, 1600, 1620)},
		{Value: 1, Y: 190, BBox: rect(t, 185, 193, 1600, 1620)},
	}
	collector := diagnostics.NewCollector()
	root, err := Build(1, letters, romans, marks, 200, 1654, collector, "p.pdf", "0478", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	letterA := root.Children()[0]
	grandchildren := letterA.Children()
	if len(grandchildren) != 4 {
		t.Fatalf("expected 4 romans assigned under (a), got %d", len(grandchildren))
	}
	if grandchildren[2].IsValid() || grandchildren[3].IsValid() {
		t.Error("expected romans after the reset to be marked invalid")
	}
	report := collector.Report(time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC))
	if report.SummaryByType["roman_reset"] != 1 {
		t.Errorf("expected 1 roman_reset diagnostic, got %d", report.SummaryByType["roman_reset"])
	}
}

func TestBuildOrphanedRomansEmitDiagnostic(t *testing.T) {
	// Romans detected with no letters at all: nothing can parent them.
	romans := []Label{
		{Label: "i", Y: 20, BBox: rect(t, 15, 25, 10, 30)},
		{Label: "ii", Y: 60, BBox: rect(t, 55, 65, 10, 30)},
	}
	marks := []Mark{{Value: 2, Y: 190, BBox: rect(t, 185, 195, 1600, 1620)}}
	collector := diagnostics.NewCollector()
	root, err := Build(1, nil, romans, marks, 200, 1654, collector, "p.pdf", "0478", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !root.IsLeaf() {
		t.Error("with no letters the root should fall back to a single leaf")
	}
	report := collector.Report(time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC))
	if report.SummaryByType["orphaned_romans"] != 1 {
		t.Errorf("expected 1 orphaned_romans diagnostic, got %d", report.SummaryByType["orphaned_romans"])
	}
}

func TestBuildRootInlineStillGetsContextFromGrandchild(t *testing.T) {
	// "8 (a)" on one line, "(i)" further down on its own line: the root
	// is inline with (a), but its stem band still exists — bounded by
	// (i), the first part that starts on a fresh line.
	letters := []Label{{Label: "a", Y: 2, BBox: rect(t, 0, 10, 20, 30)}}
	romans := []Label{{Label: "i", Y: 50, BBox: rect(t, 45, 55, 40, 60)}}
	marks := []Mark{{Value: 2, Y: 120, BBox: rect(t, 115, 125, 1600, 1620)}}

	root, err := Build(8, letters, romans, marks, 200, 1654, nil, "p.pdf", "0478", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !root.ChildIsInline() {
		t.Error("root should be flagged inline with its first letter")
	}
	ctx, ok := root.ContextRect()
	if !ok {
		t.Fatal("root inline with (a) must still carry a context rect bounded by (i)")
	}
	if ctx.Top != 0 || ctx.Bottom != 50 {
		t.Errorf("root context = [%d, %d), want [0, 50)", ctx.Top, ctx.Bottom)
	}

	letterA := root.Children()[0]
	if letterA.ChildIsInline() {
		t.Error("(a) is not inline with (i); flag should be unset")
	}
	if actx, ok := letterA.ContextRect(); !ok || actx.Bottom != 50 {
		t.Errorf("(a) context = %+v (present %v), want bottom 50", actx, ok)
	}
}

func TestBuildInlineLabel(t *testing.T) {
	letters := []Label{{Label: "a", Y: 2, BBox: rect(t, 0, 10, 20, 30)}}
	romans := []Label{{Label: "i", Y: 5, BBox: rect(t, 0, 10, 40, 50)}}
	marks := []Mark{{Value: 3, Y: 50, BBox: rect(t, 45, 55, 1600, 1620)}}

	root, err := Build(8, letters, romans, marks, 100, 1654, nil, "p.pdf", "0478", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	letterA := root.Children()[0]
	if !root.IsValid() {
		t.Error("root should remain structurally valid")
	}
	if _, ok := letterA.ContextRect(); ok {
		t.Error("inline letter should not carry a context rect")
	}
	leaves := root.Leaves()
	if len(leaves) != 1 {
		t.Fatalf("expected single leaf for inline chain, got %d", len(leaves))
	}
	if leaves[0].Marks().Value != 3 {
		t.Errorf("leaf marks = %d, want 3", leaves[0].Marks().Value)
	}
}

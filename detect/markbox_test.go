package detect

import (
	"testing"

	"github.com/declanmoore/examcache/model"
	"github.com/declanmoore/examcache/pdftext"
)

func TestScanMarkCandidates(t *testing.T) {
	lines := []pdftext.Line{
		lineFor("Some prose with a stray [1] reference", 10, 700),
		lineFor("legitimate mark at margin [4]", 400, 700),
	}
	got := ScanMarkCandidates(lines, 0)
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
}

func TestFilterOutliersRejectsStrayMark(t *testing.T) {
	// Legitimate mark at right edge 1600px equivalent; stray at 800px.
	// Expressed directly in the Px-threshold variant to match spec units.
	candidates := []MarkCandidate{
		{Value: 1, Page: 0, Y: 700, BBox: boxWithRight(800)},
		{Value: 4, Page: 0, Y: 690, BBox: boxWithRight(1600)},
	}
	accepted, rejected, _ := FilterOutliersPx(candidates)
	if len(accepted) != 1 || accepted[0].Value != 4 {
		t.Fatalf("accepted = %+v, want only value 4", accepted)
	}
	if len(rejected) != 1 || rejected[0].Candidate.Value != 1 {
		t.Fatalf("rejected = %+v, want value 1", rejected)
	}
}

func TestFilterOutliersMinorVarianceFlag(t *testing.T) {
	candidates := []MarkCandidate{
		{Value: 2, Page: 0, Y: 700, BBox: boxWithRight(1595)},
		{Value: 3, Page: 0, Y: 690, BBox: boxWithRight(1600)},
	}
	accepted, _, minor := FilterOutliersPx(candidates)
	if len(accepted) != 2 {
		t.Fatalf("expected both marks accepted, got %d", len(accepted))
	}
	if minor {
		t.Error("5px spread should not trigger minor-variance (threshold is 10px)")
	}

	candidates2 := []MarkCandidate{
		{Value: 2, Page: 0, Y: 700, BBox: boxWithRight(1585)},
		{Value: 3, Page: 0, Y: 690, BBox: boxWithRight(1600)},
	}
	_, _, minor2 := FilterOutliersPx(candidates2)
	if !minor2 {
		t.Error("15px spread should trigger minor-variance")
	}
}

func TestClusterByGapSeparatesPages(t *testing.T) {
	candidates := []MarkCandidate{
		{Value: 1, Page: 0, Y: 700, BBox: boxWithRight(1600)},
		{Value: 2, Page: 1, Y: 700, BBox: boxWithRight(1600)},
	}
	accepted, _, _ := FilterOutliersPx(candidates)
	if len(accepted) != 2 {
		t.Fatalf("expected both marks accepted independently per page, got %d", len(accepted))
	}
}

func boxWithRight(right float64) model.PDFClip {
	return model.PDFClip{X0: right - 20, X1: right, Y0: 0, Y1: 10}
}

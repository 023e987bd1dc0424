package diagnostics

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"
	"time"
)

func TestNilCollectorDiscardsEvents(t *testing.T) {
	var c *Collector
	c.Emit(Event{IssueType: IssueLetterGap, Message: "should be discarded"})
	report := c.Report(time.Unix(0, 0))
	if report.TotalIssues != 0 {
		t.Errorf("expected 0 issues from nil collector, got %d", report.TotalIssues)
	}
}

func TestCollectorAccumulatesAndSummarizes(t *testing.T) {
	c := NewCollector()
	c.NoteSource("0478_s24_qp_12.pdf")
	c.Emit(Event{IssueType: IssueLetterGap, Message: "missed (b)", QuestionNumber: 1})
	c.Emit(Event{IssueType: IssueLetterGap, Message: "missed (d)", QuestionNumber: 2})
	c.Emit(Event{IssueType: IssueRomanReset, Message: "missed parent letter", QuestionNumber: 3})

	report := c.Report(time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC))
	if report.TotalIssues != 3 {
		t.Fatalf("TotalIssues = %d, want 3", report.TotalIssues)
	}
	if report.SummaryByType["letter_gap"] != 2 {
		t.Errorf("letter_gap count = %d, want 2", report.SummaryByType["letter_gap"])
	}
	if report.SummaryByType["roman_reset"] != 1 {
		t.Errorf("roman_reset count = %d, want 1", report.SummaryByType["roman_reset"])
	}
	if len(report.SourcePDFs) != 1 || report.SourcePDFs[0] != "0478_s24_qp_12.pdf" {
		t.Errorf("SourcePDFs = %v", report.SourcePDFs)
	}
}

func TestAttachValidationOutcomeFillsMatchingEvents(t *testing.T) {
	c := NewCollector()
	c.Emit(Event{IssueType: IssueLetterGap, PDFName: "p.pdf", QuestionNumber: 2})
	c.Emit(Event{IssueType: IssueRomanGap, PDFName: "p.pdf", QuestionNumber: 3})

	c.AttachValidationOutcome("p.pdf", 2, map[string]string{
		"2(a)": "INVALID: Boundary unreliable - missed letter(s) (b)",
		"2(c)": "VALID",
	})

	report := c.Report(time.Unix(0, 0))
	if got := report.Issues[0].ValidationOutcome["2(a)"]; got != "INVALID: Boundary unreliable - missed letter(s) (b)" {
		t.Errorf("outcome for 2(a) = %q", got)
	}
	if report.Issues[1].ValidationOutcome != nil {
		t.Error("outcome should not leak onto a different question's event")
	}
}

func TestImageOverlayDrawsWithoutTouchingSource(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 50, 50))
	for i := range src.Pix {
		src.Pix[i] = 255
	}

	ov := NewImageOverlay(src)
	ov.DrawBox("1(a)", 10, 30, 10, 30, true)
	ov.DrawBox("stray", 35, 45, 35, 45, false)

	if src.GrayAt(10, 10).Y != 255 {
		t.Error("drawing on the overlay mutated the source composite")
	}
	if got := ov.img.RGBAAt(10, 10); got != (color.RGBA{R: 0, G: 160, B: 0, A: 255}) {
		t.Errorf("valid box edge = %v, want green", got)
	}
	if got := ov.img.RGBAAt(35, 35); got != (color.RGBA{R: 200, G: 0, B: 0, A: 255}) {
		t.Errorf("invalid box edge = %v, want red", got)
	}

	path := filepath.Join(t.TempDir(), "overlay.png")
	if err := ov.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestNoteSourceDeduplicates(t *testing.T) {
	c := NewCollector()
	c.NoteSource("a.pdf")
	c.NoteSource("a.pdf")
	c.NoteSource("b.pdf")
	report := c.Report(time.Now())
	if len(report.SourcePDFs) != 2 {
		t.Errorf("SourcePDFs = %v, want 2 unique entries", report.SourcePDFs)
	}
}

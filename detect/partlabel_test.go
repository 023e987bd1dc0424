package detect

import (
	"testing"

	"github.com/declanmoore/examcache/pdftext"
)

func TestDetectLettersBasic(t *testing.T) {
	lines := []pdftext.Line{
		lineFor("(a) Describe the algorithm.", 10, 700),
		lineFor("(b) Explain the result.", 10, 500),
	}
	got := DetectLetters(lines, 595, 0)
	if len(got) != 2 {
		t.Fatalf("got %d letters, want 2", len(got))
	}
	if got[0].Label != "a" || got[1].Label != "b" {
		t.Errorf("labels = %q, %q", got[0].Label, got[1].Label)
	}
}

func TestDetectLettersStopsAtSequenceBreak(t *testing.T) {
	lines := []pdftext.Line{
		lineFor("(a) First part", 10, 700),
		lineFor("(b) Second part", 10, 600),
		lineFor("(s) Stray match far ahead", 10, 500),
	}
	got := DetectLetters(lines, 595, 0)
	if len(got) != 2 {
		t.Fatalf("got %d letters, want 2 (stray (s) should be cut)", len(got))
	}
}

func TestDetectLettersAllowsSingleGap(t *testing.T) {
	lines := []pdftext.Line{
		lineFor("(a) First part", 10, 700),
		lineFor("(c) Third part, no (b)", 10, 500),
	}
	got := DetectLetters(lines, 595, 0)
	if len(got) != 2 {
		t.Fatalf("got %d letters, want 2 (gap of 1 allowed)", len(got))
	}
}

func TestDetectLettersRejectsRomanLookingLetters(t *testing.T) {
	lines := []pdftext.Line{
		lineFor("(i) This is a roman, not letter i", 10, 700),
	}
	got := DetectLetters(lines, 595, 0)
	if len(got) != 0 {
		t.Fatalf("expected 0 letters (i/v/x reserved for romans), got %d", len(got))
	}
}

func TestDetectRomansBasic(t *testing.T) {
	lines := []pdftext.Line{
		lineFor("(i) step one", 10, 700),
		lineFor("(ii) step two", 10, 600),
	}
	got := DetectRomans(lines, 595, 0)
	if len(got) != 2 {
		t.Fatalf("got %d romans, want 2", len(got))
	}
}

func TestDetectLettersRejectsOutsideLeftBand(t *testing.T) {
	lines := []pdftext.Line{
		lineFor("(a) indented far to the right", 400, 700),
	}
	got := DetectLetters(lines, 595, 0)
	if len(got) != 0 {
		t.Fatalf("expected 0 letters outside left band, got %d", len(got))
	}
}

func TestDetectLettersHandlesInlineNumeralPrefix(t *testing.T) {
	lines := []pdftext.Line{
		lineFor("12 (a) inline root and letter", 10, 700),
	}
	got := DetectLetters(lines, 595, 0)
	if len(got) != 1 || got[0].Label != "a" {
		t.Fatalf("got %+v, want single label a", got)
	}
}

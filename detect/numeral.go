// Package detect implements the three heuristic detectors the
// extraction pipeline runs over raw PDF text: question numerals,
// letter/roman part labels, and right-margin mark boxes. The regex
// heuristics here are adapted from the heading/numbering detection in
// this tree's chunker package, rebuilt around exam-paper layout rules
// instead of generic document structure.
package detect

import (
	"regexp"
	"sort"
	"strings"

	"github.com/declanmoore/examcache/model"
	"github.com/declanmoore/examcache/pdftext"
)

// Confidence is the coarse trust level a detector attaches to a
// candidate. It is surfaced in diagnostics only; nothing written to
// regions.json depends on it.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// NumeralCandidate is a raw numeral-line match before monotonic
// filtering, still in PDF-point coordinates — the Compositor has not
// run yet, so there is no composite-pixel space to report bbox in.
type NumeralCandidate struct {
	Number       int
	Page         int // 0-indexed
	Y            float64
	BBox         model.PDFClip
	IsPseudocode bool
	IsFallback   bool // matched via "Question N" fallback, y=0
	Confidence   Confidence
}

var (
	numeralStartPattern = regexp.MustCompile(`^([1-9]\d?)(\s|\(|$)`)
	questionNFallback    = regexp.MustCompile(`(?i)\bQuestion\s+(\d{1,2})\b`)
	hollowDotsPattern    = regexp.MustCompile(`^[.\s]+$`)
	assignmentGlyphs     = []string{"←", ":="}
	pseudocodeKeywords   = []string{
		"DECLARE", "INPUT", "OUTPUT", "FOR", "NEXT", "WHILE", "UNTIL",
		"CASE", "ELSE", "ENDIF", "ELSEIF", "THEN",
	}
)

const (
	leftBandFraction      = 0.12
	tightLeftBandFraction = 0.23
	headerFooterFraction  = 0.08
)

// DetectNumerals scans every page of a document for top-level question
// starts and returns them in monotonic, deduplicated
// question-number order.
func DetectNumerals(pages []pdftext.Page) []NumeralCandidate {
	var candidates []NumeralCandidate

	for _, page := range pages {
		topBand := page.Height * headerFooterFraction
		bottomBand := page.Height * (1 - headerFooterFraction)

		for _, line := range page.Lines {
			candidates = append(candidates, numeralCandidatesFromLine(page, line, topBand, bottomBand)...)
		}

		// Fallback: "Question N" tokens anywhere on the page, y=0.
		for _, line := range page.Lines {
			for _, m := range questionNFallback.FindAllStringSubmatch(line.Text, -1) {
				n := atoiSafe(m[1])
				if n <= 0 {
					continue
				}
				candidates = append(candidates, NumeralCandidate{
					Number:     n,
					Page:       page.Number - 1,
					Y:          0,
					IsFallback: true,
					Confidence: ConfidenceLow,
				})
			}
		}
	}

	return monotonicFilter(candidates)
}

func numeralCandidatesFromLine(page pdftext.Page, line pdftext.Line, topBand, bottomBand float64) []NumeralCandidate {
	var out []NumeralCandidate

	if hollowDotsPattern.MatchString(line.Text) {
		return nil
	}
	// Header/footer exclusion: PDF Y origin is bottom-left, so "top 8%"
	// of the page is the highest Y band and "bottom 8%" is the lowest.
	if line.Y >= bottomBand || line.Y <= topBand {
		return nil
	}
	if line.X0 > page.Width*leftBandFraction {
		return nil
	}

	m := numeralStartPattern.FindStringSubmatchIndex(line.Text)
	if m == nil {
		return nil
	}
	if line.X0 > page.Width*tightLeftBandFraction {
		return nil
	}

	numStr := line.Text[m[2]:m[3]]
	number := atoiSafe(numStr)
	if number <= 0 {
		return nil
	}

	// bbox covers only the numeral's digit characters, never the whole
	// line — "12 (a) text" must not yield a bbox spanning the line.
	digitsEnd := numeralDigitCharEnd(line, m[3])
	x0, y0, x1, y1 := pdftext.LineBBox(line, 0, digitsEnd)

	pseudocode := isPseudocodeLine(line.Text)
	confidence := ConfidenceHigh
	if pseudocode {
		confidence = ConfidenceMedium
	}
	out = append(out, NumeralCandidate{
		Number:       number,
		Page:         page.Number - 1,
		Y:            line.Y,
		BBox:         model.PDFClip{Page: page.Number - 1, X0: x0, Y0: y0, X1: x1, Y1: y1},
		IsPseudocode: pseudocode,
		Confidence:   confidence,
	})
	return out
}

// numeralDigitCharEnd maps a byte offset in the line's text to the
// character-index boundary covering just the leading digits.
func numeralDigitCharEnd(line pdftext.Line, byteEnd int) int {
	consumed := 0
	for i, c := range line.Chars {
		consumed += len(c.Text)
		if consumed >= byteEnd {
			return i + 1
		}
	}
	return len(line.Chars)
}

func isPseudocodeLine(text string) bool {
	upper := strings.ToUpper(text)
	for _, kw := range pseudocodeKeywords {
		if matchesWholeWord(upper, kw) {
			return true
		}
	}
	for _, g := range assignmentGlyphs {
		if strings.Contains(text, g) {
			return true
		}
	}
	trimmed := strings.TrimSpace(text)
	if trimmed != "" && trimmed == strings.ToUpper(trimmed) && trimmed == onlyLetters(trimmed) {
		return true
	}
	return false
}

func matchesWholeWord(haystack, word string) bool {
	idx := strings.Index(haystack, word)
	for idx != -1 {
		before := idx == 0 || !isWordChar(haystack[idx-1])
		after := idx+len(word) >= len(haystack) || !isWordChar(haystack[idx+len(word)])
		if before && after {
			return true
		}
		next := strings.Index(haystack[idx+1:], word)
		if next == -1 {
			break
		}
		idx = idx + 1 + next
	}
	return false
}

func isWordChar(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

func onlyLetters(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// monotonicFilter walks candidates sorted by (page, y) and greedily
// accepts the smallest still-expected number, preferring candidates
// with y>0 over the fallback and non-pseudocode over pseudocode.
// When no candidate matches the expected next number, it jumps to
// whatever comes next (non-contiguous skips allowed). Duplicates of an
// already-accepted number are rejected.
func monotonicFilter(candidates []NumeralCandidate) []NumeralCandidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Page != candidates[j].Page {
			return candidates[i].Page < candidates[j].Page
		}
		return candidates[i].Y > candidates[j].Y // PDF Y descends down the page
	})

	var accepted []NumeralCandidate
	seen := make(map[int]bool)
	expected := 1

	for {
		bestIdx := -1
		for i, c := range candidates {
			if seen[c.Number] {
				continue
			}
			if c.Number != expected {
				continue
			}
			if bestIdx == -1 {
				bestIdx = i
				continue
			}
			if candidatePreferred(c, candidates[bestIdx]) {
				bestIdx = i
			}
		}
		if bestIdx == -1 {
			// No candidate matches the expected number; jump to the
			// smallest unseen number greater than any already accepted.
			nextIdx := -1
			for i, c := range candidates {
				if seen[c.Number] {
					continue
				}
				if nextIdx == -1 || c.Number < candidates[nextIdx].Number {
					nextIdx = i
				}
			}
			if nextIdx == -1 {
				break
			}
			bestIdx = nextIdx
			for i, c := range candidates {
				if !seen[c.Number] && c.Number == candidates[nextIdx].Number && candidatePreferred(c, candidates[bestIdx]) {
					bestIdx = i
				}
			}
		}

		chosen := candidates[bestIdx]
		accepted = append(accepted, chosen)
		seen[chosen.Number] = true
		expected = chosen.Number + 1
	}

	sort.SliceStable(accepted, func(i, j int) bool { return accepted[i].Number < accepted[j].Number })
	return accepted
}

func candidatePreferred(a, b NumeralCandidate) bool {
	aReal := a.Y > 0
	bReal := b.Y > 0
	if aReal != bReal {
		return aReal
	}
	if a.IsPseudocode != b.IsPseudocode {
		return !a.IsPseudocode
	}
	return false
}

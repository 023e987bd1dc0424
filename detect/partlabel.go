package detect

import (
	"regexp"
	"strings"

	"github.com/declanmoore/examcache/model"
	"github.com/declanmoore/examcache/pdftext"
)

// LabelCandidate is a detected "(x)" letter or roman label, still in
// PDF-point coordinates within one composite segment's clip.
type LabelCandidate struct {
	Label string // "a".."z" or roman string, lowercase
	Y     float64
	BBox  model.PDFClip
}

var (
	romanLetters   = map[byte]bool{'i': true, 'v': true, 'x': true}
	labelToken     = regexp.MustCompile(`\(([a-z]+)\)`)
	leadingNumeral = regexp.MustCompile(`^\s*\d{1,2}\s*`)
)

const labelLeftBandFraction = 0.35

// DetectLetters scans a segment's lines for `(a)`, `(b)`, … letter
// labels meeting the line-start and left-band constraints,
// then applies the alphabetical sequence cutoff.
func DetectLetters(lines []pdftext.Line, clipWidth float64, page int) []LabelCandidate {
	raw := scanLabelTokens(lines, clipWidth, page, isLetterToken)
	return cutAtSequenceBreak(raw)
}

// DetectRomans scans a segment's lines for `(i)`, `(ii)`, … roman
// labels under the same line-start/left-band constraints.
func DetectRomans(lines []pdftext.Line, clipWidth float64, page int) []LabelCandidate {
	return scanLabelTokens(lines, clipWidth, page, isRomanToken)
}

func isLetterToken(tok string) bool {
	return len(tok) == 1 && tok[0] >= 'a' && tok[0] <= 'z' && !romanLetters[tok[0]]
}

func isRomanToken(tok string) bool {
	if tok == "" {
		return false
	}
	for i := 0; i < len(tok); i++ {
		if !romanLetters[tok[i]] {
			return false
		}
	}
	return true
}

func scanLabelTokens(lines []pdftext.Line, clipWidth float64, page int, accept func(string) bool) []LabelCandidate {
	var out []LabelCandidate

	for _, line := range lines {
		text := line.Text
		// Strip a leading 1-2 digit question-numeral prefix so inline
		// roots like "12 (a) …" don't block the match.
		prefixLen := len(leadingNumeral.FindString(text))
		rest := text[prefixLen:]

		matches := labelToken.FindAllStringSubmatchIndex(rest, -1)
		validPrefix := true
		for _, m := range matches {
			tok := rest[m[2]:m[3]]
			// Everything before this match, after stripping already-matched
			// "(letter)" tokens, must be empty — handles chained inline
			// labels like "(a) (i)".
			before := rest[:m[0]]
			before = labelToken.ReplaceAllString(before, "")
			if strings.TrimSpace(before) != "" {
				validPrefix = false
			}
			if !validPrefix || !accept(tok) {
				continue
			}

			byteStart := prefixLen + m[0]
			byteEnd := prefixLen + m[1]
			charStart := byteOffsetToCharIndex(line, byteStart)
			charEnd := byteOffsetToCharIndex(line, byteEnd)
			x0, y0, x1, y1 := pdftext.LineBBox(line, charStart, charEnd)

			if x0 > clipWidth*labelLeftBandFraction {
				continue
			}

			out = append(out, LabelCandidate{
				Label: tok,
				Y:     line.Y,
				BBox:  model.PDFClip{Page: page, X0: x0, Y0: y0, X1: x1, Y1: y1},
			})
		}
	}
	return out
}

func byteOffsetToCharIndex(line pdftext.Line, byteOffset int) int {
	consumed := 0
	for i, c := range line.Chars {
		if consumed >= byteOffset {
			return i
		}
		consumed += len(c.Text)
	}
	return len(line.Chars)
}

// cutAtSequenceBreak sorts letter candidates by Y and stops accepting
// further letters once the alphabet index skips more than one letter
// (such a jump is treated as stray text, not a real gap — a gap of a
// single letter is allowed and handled downstream by the tree builder).
func cutAtSequenceBreak(candidates []LabelCandidate) []LabelCandidate {
	sortByY(candidates)

	var out []LabelCandidate
	prevIdx := -1
	for _, c := range candidates {
		idx := int(c.Label[0] - 'a')
		if prevIdx != -1 && idx-prevIdx > 2 {
			break
		}
		out = append(out, c)
		prevIdx = idx
	}
	return out
}

func sortByY(candidates []LabelCandidate) {
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].Y > candidates[j-1].Y; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}
}

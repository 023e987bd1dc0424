// Package textclean normalizes raw PDF-extracted text into the
// root_text/child_text strings persisted for keyword search.
package textclean

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Clean normalizes s to NFC, collapses runs of whitespace (including
// the soft line breaks PDF text extraction leaves between wrapped
// lines) into single spaces, and trims the result.
func Clean(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	lastWasSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				b.WriteRune(' ')
			}
			lastWasSpace = true
			continue
		}
		b.WriteRune(r)
		lastWasSpace = false
	}
	return strings.TrimSpace(b.String())
}

// Sentences splits cleaned question text at '.', '?' and '!'
// boundaries. Exam text is full of terminators that end nothing:
// answer-line dot leaders ("..........") survive extraction as long
// runs, and instruction lines end in ellipses. A run of terminators is
// absorbed as a single boundary, the boundary must be followed by a
// space or end of text, and a fragment with no letter or digit in it
// (a bare leader run) is dropped rather than emitted.
func Sentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		end := i
		for end+1 < len(runes) && isTerminator(runes[end+1]) {
			end++
		}
		if end+1 < len(runes) && !unicode.IsSpace(runes[end+1]) {
			i = end
			continue
		}
		if s := strings.TrimSpace(string(runes[start : end+1])); hasWord(s) {
			out = append(out, s)
		}
		start = end + 1
		i = end
	}

	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); hasWord(s) {
			out = append(out, s)
		}
	}
	return out
}

func isTerminator(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}

// hasWord reports whether s contains at least one letter or digit.
func hasWord(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// Truncate returns the leading sentences of text whose combined length
// does not exceed maxLen, always including at least the first sentence.
func Truncate(text string, maxLen int) string {
	sentences := Sentences(text)
	if len(sentences) == 0 {
		if len(text) <= maxLen {
			return text
		}
		return text[:maxLen]
	}
	out := sentences[0]
	for _, s := range sentences[1:] {
		candidate := out + " " + s
		if len(candidate) > maxLen {
			break
		}
		out = candidate
	}
	return out
}

// Package tree assembles the hierarchical Part tree from detected
// letter/roman labels and mark boxes, enforcing the alphabetical and
// roman sequence invariants and emitting gap/reset diagnostics.
package tree

import (
	"fmt"
	"sort"

	"github.com/declanmoore/examcache/diagnostics"
	"github.com/declanmoore/examcache/model"
)

// Label is a detected letter or roman label, already translated into
// composite-pixel coordinates.
type Label struct {
	Label string // "a".."z", or roman string "i", "ii", ...
	Y     int
	BBox  model.PixelRect
}

// Mark is a detected mark box, already translated into composite-pixel
// coordinates.
type Mark struct {
	Value int
	Y     int
	BBox  model.PixelRect
}

const inlineToleranceYPx = 10

// Build constructs the immutable Part tree for one question from its
// detected letters, romans, and marks, within a composite of the given
// dimensions. Diagnostic events are sent to collector (nil-safe).
func Build(questionNumber int, letters, romans []Label, marks []Mark, compositeHeight, compositeWidth int, collector *diagnostics.Collector, pdfName, examCode string, textBetween func(y0, y1 int) string) (model.Part, error) {
	sortByY(letters)
	sortByY(romans)
	sortByYMarks(marks)

	letterBuilders := buildLetterSpans(letters, compositeHeight)
	orphaned := assignRomansToLetters(letterBuilders, romans)
	if len(orphaned) > 0 {
		first, last := orphaned[0], orphaned[len(orphaned)-1]
		collector.Emit(diagnostics.Event{
			IssueType:      diagnostics.IssueOrphanedRomans,
			PDFName:        pdfName,
			ExamCode:       examCode,
			QuestionNumber: questionNumber,
			Message:        fmt.Sprintf("%d roman label(s) fall outside every letter span — likely missed parent letter", len(orphaned)),
			YSpan:          [2]int{first.Y, last.Y},
			PrevLabel:      fmt.Sprintf("(%s)", first.Label),
			NextLabel:      fmt.Sprintf("(%s)", last.Label),
		})
	}

	validateLetterSequence(letterBuilders, collector, pdfName, examCode, questionNumber, textBetween)
	for i := range letterBuilders {
		validateRomanSequence(letterBuilders[i], collector, pdfName, examCode, questionNumber)
	}

	markInlineLetters(letterBuilders)
	rootInline, rootBottom := detectRootInline(letterBuilders, compositeHeight)

	finalizeLeafBottoms(letterBuilders, marks, compositeWidth, compositeHeight)
	assignMarksToLeaves(letterBuilders, marks)

	children := make([]model.Part, 0, len(letterBuilders))
	for _, lb := range letterBuilders {
		part, err := lb.toPart(questionNumber, compositeWidth)
		if err != nil {
			return model.Part{}, err
		}
		children = append(children, part)
	}

	rootLabel := fmt.Sprintf("%d", questionNumber)
	rootRect, err := model.NewPixelRect(0, rootBottom, 0, compositeWidth)
	if err != nil {
		return model.Part{}, fmt.Errorf("tree: building root rect: %w", err)
	}

	var opts []model.PartOption
	if len(children) > 0 {
		if rootInline {
			opts = append(opts, model.WithInlineFirstChild())
		}
		if ctx, ok := contextRectFor(rootRect, children, rootInline, compositeWidth); ok {
			opts = append(opts, model.WithContextRect(ctx))
		}
	} else {
		// No letters detected at all: the question itself is the sole
		// leaf, so it adopts the highest mark box in its own span
		// exactly as any other leaf would.
		if mk, ok := highestMarkIn(marks, 0, rootBottom); ok {
			opts = append(opts, model.WithLeafMarks(mk))
		}
	}

	root, err := model.NewPart(rootLabel, model.QuestionKind, rootRect, children, opts...)
	if err != nil {
		return model.Part{}, fmt.Errorf("tree: building root part for question %d: %w", questionNumber, err)
	}
	return root, nil
}

type letterBuilder struct {
	label        string
	y            int
	bbox         model.PixelRect
	bottom       int
	inline       bool
	invalid      bool
	reasons      []string
	romans       []romanBuilder
	assignedMark *model.Marks
}

type romanBuilder struct {
	label        string
	y            int
	bbox         model.PixelRect
	bottom       int
	invalid      bool
	reasons      []string
	assignedMark *model.Marks
}

func buildLetterSpans(letters []Label, compositeHeight int) []*letterBuilder {
	out := make([]*letterBuilder, 0, len(letters))
	for i, l := range letters {
		bottom := compositeHeight
		if i+1 < len(letters) {
			bottom = letters[i+1].Y
		}
		out = append(out, &letterBuilder{label: l.Label, y: l.Y, bbox: l.BBox, bottom: bottom})
	}
	return out
}

// assignRomansToLetters slots each roman into the letter whose Y-range
// contains it and returns the romans no letter span covers.
func assignRomansToLetters(letters []*letterBuilder, romans []Label) []Label {
	taken := make([]bool, len(romans))
	for _, lb := range letters {
		spanEnd := lb.bottom
		var assigned []Label
		for i, r := range romans {
			if !taken[i] && r.Y >= lb.y && r.Y < spanEnd {
				assigned = append(assigned, r)
				taken[i] = true
			}
		}
		for j, r := range assigned {
			rBottom := lb.bottom
			if j+1 < len(assigned) {
				rBottom = assigned[j+1].Y
			}
			lb.romans = append(lb.romans, romanBuilder{label: r.Label, y: r.Y, bbox: r.BBox, bottom: rBottom})
		}
	}

	var orphaned []Label
	for i, r := range romans {
		if !taken[i] {
			orphaned = append(orphaned, r)
		}
	}
	return orphaned
}

// validateLetterSequence marks the earlier letter of any non-adjacent
// pair invalid, emitting a letter_gap diagnostic: an unseen label
// sits somewhere in the earlier letter's span, so its bottom boundary
// cannot be trusted.
func validateLetterSequence(letters []*letterBuilder, collector *diagnostics.Collector, pdfName, examCode string, questionNumber int, textBetween func(int, int) string) {
	for i := 0; i+1 < len(letters); i++ {
		a, b := letters[i], letters[i+1]
		ai, bi := int(a.label[0]-'a'), int(b.label[0]-'a')
		if bi-ai != 1 {
			missed := missedLetters(ai, bi)
			a.invalid = true
			a.reasons = append(a.reasons, fmt.Sprintf("Boundary unreliable - missed letter(s) %s", formatMissed(missed)))

			content := ""
			if textBetween != nil {
				content = textBetween(a.y, b.y)
			}
			collector.Emit(diagnostics.Event{
				IssueType:         diagnostics.IssueLetterGap,
				PDFName:           pdfName,
				ExamCode:          examCode,
				QuestionNumber:    questionNumber,
				Message:           fmt.Sprintf("letter sequence gap between (%s) and (%s)", a.label, b.label),
				YSpan:             [2]int{a.y, b.y},
				PrevLabel:         fmt.Sprintf("(%s)", a.label),
				NextLabel:         fmt.Sprintf("(%s)", b.label),
				PDFContentBetween: content,
			})
		}
	}
}

func missedLetters(ai, bi int) []string {
	var out []string
	for i := ai + 1; i < bi; i++ {
		out = append(out, string(rune('a'+i)))
	}
	return out
}

func formatMissed(missed []string) string {
	s := ""
	for i, m := range missed {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("(%s)", m)
	}
	return s
}

func validateRomanSequence(lb *letterBuilder, collector *diagnostics.Collector, pdfName, examCode string, questionNumber int) {
	for i := 0; i+1 < len(lb.romans); i++ {
		cur := romanValue(lb.romans[i].label)
		next := romanValue(lb.romans[i+1].label)
		if next == cur+1 {
			continue
		}
		if next > cur+1 {
			collector.Emit(diagnostics.Event{
				IssueType:      diagnostics.IssueRomanGap,
				PDFName:        pdfName,
				ExamCode:       examCode,
				QuestionNumber: questionNumber,
				Message:        fmt.Sprintf("roman sequence gap between (%s) and (%s) under letter (%s)", lb.romans[i].label, lb.romans[i+1].label, lb.label),
				YSpan:          [2]int{lb.romans[i].y, lb.romans[i+1].y},
				PrevLabel:      fmt.Sprintf("(%s)", lb.romans[i].label),
				NextLabel:      fmt.Sprintf("(%s)", lb.romans[i+1].label),
			})
		} else {
			for j := i + 1; j < len(lb.romans); j++ {
				lb.romans[j].invalid = true
				lb.romans[j].reasons = append(lb.romans[j].reasons, "Boundary unreliable - likely missed parent letter")
			}
			collector.Emit(diagnostics.Event{
				IssueType:      diagnostics.IssueRomanReset,
				PDFName:        pdfName,
				ExamCode:       examCode,
				QuestionNumber: questionNumber,
				Message:        fmt.Sprintf("roman numeral reset at (%s) after (%s) — likely missed parent letter", lb.romans[i+1].label, lb.romans[i].label),
				YSpan:          [2]int{lb.romans[i].y, lb.romans[i+1].y},
				PrevLabel:      fmt.Sprintf("(%s)", lb.romans[i].label),
				NextLabel:      fmt.Sprintf("(%s)", lb.romans[i+1].label),
			})
			break
		}
	}
}

var romanValues = map[string]int{"i": 1, "ii": 2, "iii": 3, "iv": 4, "v": 5, "vi": 6, "vii": 7, "viii": 8, "ix": 9, "x": 10}

func romanValue(s string) int {
	if v, ok := romanValues[s]; ok {
		return v
	}
	return 0
}

// markInlineLetters flags letters whose first roman shares a line
// (within inlineToleranceYPx).
func markInlineLetters(letters []*letterBuilder) {
	for _, lb := range letters {
		if len(lb.romans) == 0 {
			continue
		}
		first := lb.romans[0]
		if abs(first.y-lb.y) < inlineToleranceYPx {
			lb.inline = true
			lb.bottom = first.bottom
		}
	}
}

// detectRootInline checks whether the first letter shares a line with
// the question root, extending the root's bottom to cover it.
func detectRootInline(letters []*letterBuilder, compositeHeight int) (bool, int) {
	if len(letters) == 0 {
		return false, compositeHeight
	}
	first := letters[0]
	if abs(first.y-0) < inlineToleranceYPx {
		bottom := compositeHeight
		if first.bottom > 0 {
			bottom = maxInt(compositeHeight, first.bottom)
		}
		return true, bottom
	}
	return false, compositeHeight
}

// finalizeLeafBottoms sets each leaf's bottom using the highest mark
// box falling in its span, clamping to the next sibling's top so
// trailing whitespace isn't captured.
func finalizeLeafBottoms(letters []*letterBuilder, marks []Mark, compositeWidth, compositeHeight int) {
	const padding = 5

	for _, lb := range letters {
		if len(lb.romans) == 0 {
			applyMarkBottom(&leafRef{y: lb.y, bottomPtr: &lb.bottom, invalidPtr: &lb.invalid, reasonsPtr: &lb.reasons}, marks, compositeHeight, padding)
			continue
		}
		for i := range lb.romans {
			r := &lb.romans[i]
			applyMarkBottom(&leafRef{y: r.y, bottomPtr: &r.bottom, invalidPtr: &r.invalid, reasonsPtr: &r.reasons}, marks, compositeHeight, padding)
		}
	}
}

type leafRef struct {
	y          int
	bottomPtr  *int
	invalidPtr *bool
	reasonsPtr *[]string
}

func applyMarkBottom(leaf *leafRef, marks []Mark, compositeHeight, padding int) {
	currentBottom := *leaf.bottomPtr
	var best *Mark
	for i := range marks {
		m := &marks[i]
		if m.Y >= leaf.y && m.Y < currentBottom {
			if best == nil || m.Y > best.Y {
				best = m
			}
		}
	}
	if best != nil {
		newBottom := best.BBox.Bottom + padding
		if newBottom < currentBottom {
			*leaf.bottomPtr = newBottom
		}
		return
	}
	if currentBottom >= compositeHeight {
		// last in its group with no mark evidence: clamp to avoid
		// trailing whitespace, but there is no mark to clamp to — mark
		// the leaf invalid instead of guessing a bottom.
		*leaf.invalidPtr = true
		*leaf.reasonsPtr = append(*leaf.reasonsPtr, "No mark box detected (uses composite_height)")
	}
}

// highestMarkIn returns the highest-Y mark box whose Y falls in [y0, y1).
func highestMarkIn(marks []Mark, y0, y1 int) (model.Marks, bool) {
	best := -1
	for i, m := range marks {
		if m.Y >= y0 && m.Y < y1 {
			if best == -1 || m.Y > marks[best].Y {
				best = i
			}
		}
	}
	if best == -1 {
		return model.Marks{}, false
	}
	mk, _ := model.NewMarks(marks[best].Value, model.MarkExplicit)
	return mk, true
}

// assignMarksToLeaves walks leaves in document order, each adopting
// the highest-Y mark box within its span, one mark consumed per leaf.
func assignMarksToLeaves(letters []*letterBuilder, marks []Mark) {
	consumed := make([]bool, len(marks))
	assign := func(y, bottom int) (model.Marks, bool) {
		best := -1
		for i, m := range marks {
			if consumed[i] {
				continue
			}
			if m.Y >= y && m.Y < bottom {
				if best == -1 || m.Y > marks[best].Y {
					best = i
				}
			}
		}
		if best == -1 {
			return model.Marks{}, false
		}
		consumed[best] = true
		mk, _ := model.NewMarks(marks[best].Value, model.MarkExplicit)
		return mk, true
	}

	for _, lb := range letters {
		if len(lb.romans) == 0 {
			if mk, ok := assign(lb.y, lb.bottom); ok {
				lb.assignedMark = &mk
			}
			continue
		}
		for i := range lb.romans {
			r := &lb.romans[i]
			if mk, ok := assign(r.y, r.bottom); ok {
				r.assignedMark = &mk
			}
		}
	}
}

func (lb *letterBuilder) toPart(questionNumber, compositeWidth int) (model.Part, error) {
	label := fmt.Sprintf("%d(%s)", questionNumber, lb.label)
	bottom := lb.bottom
	if bottom <= lb.y {
		bottom = lb.y + 1
	}
	rect, err := model.NewPixelRectFullWidth(lb.y, bottom, lb.bbox.Left)
	if err != nil {
		return model.Part{}, fmt.Errorf("tree: letter %s rect: %w", label, err)
	}

	var children []model.Part
	for _, r := range lb.romans {
		rp, err := r.toPart(label)
		if err != nil {
			return model.Part{}, err
		}
		children = append(children, rp)
	}

	var opts []model.PartOption
	opts = append(opts, model.WithLabelRect(lb.bbox))
	if len(lb.reasons) > 0 {
		opts = append(opts, model.WithValidationIssues(lb.reasons...))
	}
	if len(children) == 0 && lb.assignedMark != nil {
		opts = append(opts, model.WithLeafMarks(*lb.assignedMark))
	}
	if len(children) > 0 {
		if lb.inline {
			opts = append(opts, model.WithInlineFirstChild())
		}
		if ctx, ok := contextRectFor(rect, children, lb.inline, compositeWidth); ok {
			opts = append(opts, model.WithContextRect(ctx))
		}
	}

	return model.NewPart(label, model.Letter, rect, children, opts...)
}

func (rb *romanBuilder) toPart(parentLabel string) (model.Part, error) {
	label := fmt.Sprintf("%s(%s)", parentLabel, rb.label)
	bottom := rb.bottom
	if bottom <= rb.y {
		bottom = rb.y + 1
	}
	rect, err := model.NewPixelRectFullWidth(rb.y, bottom, rb.bbox.Left)
	if err != nil {
		return model.Part{}, fmt.Errorf("tree: roman %s rect: %w", label, err)
	}

	var opts []model.PartOption
	opts = append(opts, model.WithLabelRect(rb.bbox))
	if len(rb.reasons) > 0 {
		opts = append(opts, model.WithValidationIssues(rb.reasons...))
	}
	if rb.assignedMark != nil {
		opts = append(opts, model.WithLeafMarks(*rb.assignedMark))
	}

	return model.NewPart(label, model.Roman, rect, nil, opts...)
}

// contextRectFor computes an internal node's header strip: top of the
// node down to the first descendant that starts on its own line. An
// inline first child is looked through rather than ending the search —
// a question number sharing a line with "(a)" still needs its stem
// band, bounded by (a)'s first own-line sub-part.
func contextRectFor(nodeRect model.PixelRect, children []model.Part, nodeInline bool, compositeWidth int) (model.PixelRect, bool) {
	if len(children) == 0 {
		return model.PixelRect{}, false
	}
	first := model.FirstNonInlineDescendantTop(children, nodeInline)
	if first < 0 || first <= nodeRect.Top {
		return model.PixelRect{}, false
	}
	ctx, err := model.NewPixelRect(nodeRect.Top, first, nodeRect.Left, nodeRect.RightOrWidth(compositeWidth))
	if err != nil {
		return model.PixelRect{}, false
	}
	return ctx, true
}

func sortByY(labels []Label) {
	sort.SliceStable(labels, func(i, j int) bool { return labels[i].Y < labels[j].Y })
}

func sortByYMarks(marks []Mark) {
	sort.SliceStable(marks, func(i, j int) bool { return marks[i].Y < marks[j].Y })
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

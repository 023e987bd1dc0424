package model

import "fmt"

// PartKind is the closed set of part variants in the hierarchy.
type PartKind int

const (
	// QuestionKind is the depth-0 root of a part tree.
	QuestionKind PartKind = iota
	// Letter is a depth-1 part labeled (a), (b), ...
	Letter
	// Roman is a depth-2 part labeled (i), (ii), ...
	Roman
)

func (k PartKind) String() string {
	switch k {
	case QuestionKind:
		return "question"
	case Letter:
		return "letter"
	case Roman:
		return "roman"
	default:
		return "unknown"
	}
}

// Part is an immutable tree node. Once built, neither a Part nor its
// descendants are mutated — the Tree builder works against its own
// mutable builder types and only produces Parts at the end, and the
// Bounds calculator builds a new Part tree instead of changing the one
// it is given.
type Part struct {
	label            string
	kind             PartKind
	marks            Marks
	hasMarks         bool // only leaves carry an explicit Marks; internal nodes aggregate on read
	contentRect      PixelRect
	contextRect      PixelRect
	hasContextRect   bool
	labelRect        PixelRect
	hasLabelRect     bool
	inlineFirstChild bool // label shares a line with the first child, e.g. "8 (a)"
	children         []Part
	isValid          bool
	validationIssues []string
}

// PartOption configures an optional Part field at construction time.
type PartOption func(*Part)

// WithLeafMarks attaches an explicit, leaf-only Marks value.
func WithLeafMarks(m Marks) PartOption {
	return func(p *Part) {
		p.marks = m
		p.hasMarks = true
	}
}

// WithContextRect attaches a context (header) rectangle, valid only for
// internal Question/Letter parts with non-inline descendants.
func WithContextRect(r PixelRect) PartOption {
	return func(p *Part) {
		p.contextRect = r
		p.hasContextRect = true
	}
}

// WithLabelRect attaches the tight pixel box of the label glyphs.
func WithLabelRect(r PixelRect) PartOption {
	return func(p *Part) {
		p.labelRect = r
		p.hasLabelRect = true
	}
}

// WithInlineFirstChild records that this part's label shares a line
// with its first child's label ("8 (a)", "(a) (i)"). An inline node
// may still carry a context rect when a deeper descendant starts on
// its own line.
func WithInlineFirstChild() PartOption {
	return func(p *Part) {
		p.inlineFirstChild = true
	}
}

// WithValidationIssues marks the part invalid and records reasons.
func WithValidationIssues(issues ...string) PartOption {
	return func(p *Part) {
		if len(issues) == 0 {
			return
		}
		p.isValid = false
		p.validationIssues = append(p.validationIssues, issues...)
	}
}

// NewPart validates invariants and constructs an immutable Part.
//
// Invariants enforced:
//  1. content rect bottom > top and right > left.
//  2. children sorted by content top and pairwise non-overlapping.
//  3. if a context rect is present, its top equals the content top and
//     its bottom does not exceed the top of the first descendant that
//     starts on its own line (inline children are skipped over).
//  4. only leaf parts (no children) may carry explicit marks; aggregate
//     marks attach to internal nodes implicitly via TotalMarks.
func NewPart(label string, kind PartKind, content PixelRect, children []Part, opts ...PartOption) (Part, error) {
	p := Part{
		label:       label,
		kind:        kind,
		contentRect: content,
		children:    append([]Part(nil), children...),
		isValid:     true,
	}
	for _, opt := range opts {
		opt(&p)
	}

	if len(p.children) > 0 && p.hasMarks {
		return Part{}, fmt.Errorf("model: part %q has children but also explicit leaf marks", label)
	}

	for i := 1; i < len(p.children); i++ {
		prev, cur := p.children[i-1], p.children[i]
		if cur.contentRect.Top < prev.contentRect.Top {
			return Part{}, fmt.Errorf("model: part %q children not sorted by content top (%q before %q)", label, prev.label, cur.label)
		}
		if prev.contentRect.OverlapsVertically(cur.contentRect) {
			return Part{}, fmt.Errorf("model: part %q children %q and %q overlap vertically", label, prev.label, cur.label)
		}
	}

	if p.hasContextRect {
		if len(p.children) == 0 {
			return Part{}, fmt.Errorf("model: part %q has a context rect but no children", label)
		}
		if p.contextRect.Top != p.contentRect.Top {
			return Part{}, fmt.Errorf("model: part %q context rect top %d != content top %d", label, p.contextRect.Top, p.contentRect.Top)
		}
		limit := FirstNonInlineDescendantTop(p.children, p.inlineFirstChild)
		if limit < 0 {
			return Part{}, fmt.Errorf("model: part %q has a context rect but no descendant starts on its own line", label)
		}
		if p.contextRect.Bottom > limit {
			return Part{}, fmt.Errorf("model: part %q context rect bottom %d exceeds first non-inline descendant top %d", label, p.contextRect.Bottom, limit)
		}
	}

	return p, nil
}

// FirstNonInlineDescendantTop returns the content top of the first
// descendant that starts on its own line, descending through first
// children that share a line with their parent. parentInline reports
// whether the parent's label sits on the same line as children[0].
// Returns -1 when every such path dead-ends inline.
func FirstNonInlineDescendantTop(children []Part, parentInline bool) int {
	if len(children) == 0 {
		return -1
	}
	first := children[0]
	if !parentInline {
		return first.contentRect.Top
	}
	// The first child shares the parent's line: look through it for
	// the first of its own descendants on a fresh line.
	if top := FirstNonInlineDescendantTop(first.children, first.inlineFirstChild); top >= 0 {
		return top
	}
	// The whole first-child chain is inline; a later sibling always
	// starts on its own line.
	if len(children) > 1 {
		return children[1].contentRect.Top
	}
	return -1
}

func (p Part) Label() string     { return p.label }
func (p Part) Kind() PartKind    { return p.kind }
func (p Part) ContentRect() PixelRect { return p.contentRect }
func (p Part) Children() []Part  { return append([]Part(nil), p.children...) }
func (p Part) IsLeaf() bool      { return len(p.children) == 0 }
func (p Part) IsValid() bool     { return p.isValid }
func (p Part) ValidationIssues() []string {
	return append([]string(nil), p.validationIssues...)
}

// ContextRect returns the header rectangle and whether one is present.
func (p Part) ContextRect() (PixelRect, bool) { return p.contextRect, p.hasContextRect }

// LabelRect returns the tight label glyph box and whether one is present.
func (p Part) LabelRect() (PixelRect, bool) { return p.labelRect, p.hasLabelRect }

// ChildIsInline reports whether this part's label shares a line with
// its first child's label.
func (p Part) ChildIsInline() bool { return p.inlineFirstChild }

// Marks returns this part's marks. Leaves return their explicit value;
// internal nodes always recompute the aggregate from descendants
// — the aggregate is the sum over leaf descendants, materialized on
// every read rather than stored.
func (p Part) Marks() Marks {
	if p.IsLeaf() {
		if p.hasMarks {
			return p.marks
		}
		return InferredMarks()
	}
	return Marks{Value: p.TotalMarks(), Source: MarkAggregate}
}

// HasExplicitMarks reports whether this leaf carries an explicit "[N]"
// reading, as opposed to aggregation or inference.
func (p Part) HasExplicitMarks() bool { return p.hasMarks }

// TotalMarks recomputes the sum over all leaf descendants' mark values.
// Never stored; always derived.
func (p Part) TotalMarks() int {
	if p.IsLeaf() {
		if p.hasMarks {
			return p.marks.Value
		}
		return 0
	}
	total := 0
	for _, c := range p.children {
		total += c.TotalMarks()
	}
	return total
}

// Leaves returns all leaf descendants in document order.
func (p Part) Leaves() []Part {
	if p.IsLeaf() {
		return []Part{p}
	}
	var out []Part
	for _, c := range p.children {
		out = append(out, c.Leaves()...)
	}
	return out
}

// Walk visits p and every descendant, depth-first, document order.
func (p Part) Walk(visit func(Part)) {
	visit(p)
	for _, c := range p.children {
		c.Walk(visit)
	}
}

// Package bounds finalizes the left/right pixel edges of a Part tree
// produced by the tree builder, and computes the per-question
// horizontal_offset. Vertical bounds are already correct
// when this runs; this package only ever narrows or repositions the
// horizontal extent, rebuilding the immutable tree with the corrected
// rectangles.
package bounds

import (
	"fmt"

	"github.com/declanmoore/examcache/model"
)

const edgePaddingPx = 5

// MarkEdge is a normalized per-page right margin derived from the
// mark-box detector's output: each page's rightmost surviving mark
// defines that page's margin column.
type MarkEdge struct {
	Y     int // composite-pixel Y of the mark box
	Right int // that page's normalized right edge
}

// Result bundles the finalized tree with the computed offset.
type Result struct {
	Root             model.Part
	HorizontalOffset int
}

// Finalize rebuilds root with corrected left/right edges for every
// part, and computes horizontal_offset from the root's numeral bbox
// relative to referenceX. The offset is computed only when both
// hasNumeralBBox and hasReferenceX are true; otherwise it is 0.
func Finalize(root model.Part, markEdges []MarkEdge, numeralBBox model.PixelRect, hasNumeralBBox bool, referenceX int, hasReferenceX bool, compositeWidth int) (Result, error) {
	contentRight := computeContentRight(markEdges, compositeWidth)

	rebuilt, err := finalizePart(root, markEdges, contentRight, compositeWidth, numeralBBox, hasNumeralBBox, true)
	if err != nil {
		return Result{}, err
	}

	offset := 0
	if hasNumeralBBox && hasReferenceX {
		offset = numeralBBox.Left - referenceX
	}

	return Result{Root: rebuilt, HorizontalOffset: offset}, nil
}

// computeContentRight is max(normalized right edges) + 5px, or the
// full composite width when there are no marks at all for the question.
func computeContentRight(markEdges []MarkEdge, compositeWidth int) int {
	if len(markEdges) == 0 {
		return compositeWidth
	}
	maxRight := markEdges[0].Right
	for _, m := range markEdges {
		if m.Right > maxRight {
			maxRight = m.Right
		}
	}
	right := maxRight + edgePaddingPx
	if right > compositeWidth {
		right = compositeWidth
	}
	return right
}

func finalizePart(p model.Part, markEdges []MarkEdge, contentRight, compositeWidth int, numeralBBox model.PixelRect, hasNumeralBBox, isRoot bool) (model.Part, error) {
	left := finalizeLeft(p, numeralBBox, hasNumeralBBox, isRoot)
	right := finalizeRight(p, markEdges, contentRight)

	content := p.ContentRect()
	newContent, err := model.NewPixelRect(content.Top, content.Bottom, left, right)
	if err != nil {
		return model.Part{}, fmt.Errorf("bounds: part %q: %w", p.Label(), err)
	}

	var newChildren []model.Part
	for _, c := range p.Children() {
		nc, err := finalizePart(c, markEdges, contentRight, compositeWidth, numeralBBox, hasNumeralBBox, false)
		if err != nil {
			return model.Part{}, err
		}
		newChildren = append(newChildren, nc)
	}

	var opts []model.PartOption
	if lr, ok := p.LabelRect(); ok {
		opts = append(opts, model.WithLabelRect(lr))
	}
	if p.ChildIsInline() {
		opts = append(opts, model.WithInlineFirstChild())
	}
	if issues := p.ValidationIssues(); len(issues) > 0 {
		opts = append(opts, model.WithValidationIssues(issues...))
	}
	if p.IsLeaf() && p.HasExplicitMarks() {
		opts = append(opts, model.WithLeafMarks(p.Marks()))
	}
	if ctx, ok := p.ContextRect(); ok {
		newCtx, err := model.NewPixelRect(ctx.Top, ctx.Bottom, left, right)
		if err == nil {
			opts = append(opts, model.WithContextRect(newCtx))
		}
	}

	return model.NewPart(p.Label(), p.Kind(), newContent, newChildren, opts...)
}

// finalizeLeft: root uses numeral_bbox.left - 5; sub-parts use their
// label bbox left - 5 (already baked into the draft tree's left edge
// by the tree builder, so this simply re-applies the padding rule
// against the authoritative label/numeral bbox when available).
func finalizeLeft(p model.Part, numeralBBox model.PixelRect, hasNumeralBBox, isRoot bool) int {
	if isRoot {
		if hasNumeralBBox {
			return maxInt(0, numeralBBox.Left-edgePaddingPx)
		}
		return 0
	}
	if lr, ok := p.LabelRect(); ok {
		return maxInt(0, lr.Left-edgePaddingPx)
	}
	return p.ContentRect().Left
}

// finalizeRight: find a mark whose Y falls within the part's span; if
// found, right = min(content_right, mark.right + 5); otherwise
// content_right.
func finalizeRight(p model.Part, markEdges []MarkEdge, contentRight int) int {
	content := p.ContentRect()
	for _, m := range markEdges {
		if m.Y >= content.Top && m.Y < content.Bottom {
			right := m.Right + edgePaddingPx
			if right > contentRight {
				right = contentRight
			}
			return right
		}
	}
	return contentRight
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Package model holds the immutable value types extracted papers are
// assembled from: pixel rectangles, marks, and the Part/Question tree.
package model

import "fmt"

// PixelRect is an axis-aligned rectangle in raster pixels of a composite
// image. Top is inclusive, Bottom is exclusive — the same half-open
// convention Go's image.Rectangle uses.
type PixelRect struct {
	Top    int
	Bottom int
	Left   int
	Right  int
	// rightSet distinguishes "right edge is 0" (never valid, Right > Left
	// is enforced) from "right edge unspecified, defaults to full
	// composite width".
	rightSet bool
}

// NewPixelRect validates and constructs a PixelRect with an explicit
// right edge.
func NewPixelRect(top, bottom, left, right int) (PixelRect, error) {
	r := PixelRect{Top: top, Bottom: bottom, Left: left, Right: right, rightSet: true}
	if err := r.validate(); err != nil {
		return PixelRect{}, err
	}
	return r, nil
}

// NewPixelRectFullWidth constructs a PixelRect whose right edge is left
// unset, meaning "full composite width" to the caller that renders it.
func NewPixelRectFullWidth(top, bottom, left int) (PixelRect, error) {
	r := PixelRect{Top: top, Bottom: bottom, Left: left}
	if err := r.validate(); err != nil {
		return PixelRect{}, err
	}
	return r, nil
}

func (r PixelRect) validate() error {
	if r.Top < 0 {
		return fmt.Errorf("model: pixel rect top %d < 0", r.Top)
	}
	if r.Bottom <= r.Top {
		return fmt.Errorf("model: pixel rect bottom %d <= top %d", r.Bottom, r.Top)
	}
	if r.Left < 0 {
		return fmt.Errorf("model: pixel rect left %d < 0", r.Left)
	}
	if r.rightSet && r.Right <= r.Left {
		return fmt.Errorf("model: pixel rect right %d <= left %d", r.Right, r.Left)
	}
	return nil
}

// HasExplicitRight reports whether the right edge was set explicitly,
// as opposed to defaulting to the composite's full width.
func (r PixelRect) HasExplicitRight() bool {
	return r.rightSet
}

// RightOrWidth returns the right edge, substituting compositeWidth when
// the right edge was left unset.
func (r PixelRect) RightOrWidth(compositeWidth int) int {
	if r.rightSet {
		return r.Right
	}
	return compositeWidth
}

// Height returns Bottom - Top.
func (r PixelRect) Height() int { return r.Bottom - r.Top }

// Width returns RightOrWidth(compositeWidth) - Left.
func (r PixelRect) Width(compositeWidth int) int { return r.RightOrWidth(compositeWidth) - r.Left }

// OverlapsVertically reports whether r and other share any Y range.
func (r PixelRect) OverlapsVertically(other PixelRect) bool {
	return r.Top < other.Bottom && other.Top < r.Bottom
}

// WithinBounds reports whether r lies entirely within
// [0, width] x [0, height].
func (r PixelRect) WithinBounds(width, height int) bool {
	if r.Top < 0 || r.Bottom > height {
		return false
	}
	if r.Left < 0 || r.RightOrWidth(width) > width {
		return false
	}
	return true
}

// Size is a composite's pixel dimensions.
type Size struct {
	Width  int
	Height int
}

package model

import "fmt"

// MarkSource records where a Marks value's point count came from.
type MarkSource int

const (
	// MarkExplicit means the value was read from a "[N]" annotation.
	MarkExplicit MarkSource = iota
	// MarkAggregate means the value is the sum of leaf descendants,
	// recomputed on every read rather than stored.
	MarkAggregate
	// MarkInferred means no evidence was found; value is always 0 today.
	MarkInferred
)

func (s MarkSource) String() string {
	switch s {
	case MarkExplicit:
		return "explicit"
	case MarkAggregate:
		return "aggregate"
	case MarkInferred:
		return "inferred"
	default:
		return "unknown"
	}
}

// Marks is the mark-count value attached to a Part.
type Marks struct {
	Value  int
	Source MarkSource
}

// NewMarks validates and constructs a Marks value.
func NewMarks(value int, source MarkSource) (Marks, error) {
	if value < 0 {
		return Marks{}, fmt.Errorf("model: marks value %d < 0", value)
	}
	return Marks{Value: value, Source: source}, nil
}

// InferredMarks is the zero-evidence default: value 0, source inferred.
func InferredMarks() Marks { return Marks{Value: 0, Source: MarkInferred} }

// MarkBox is a single detected "[N]" annotation in composite pixels.
type MarkBox struct {
	Value int
	Rect  PixelRect
}

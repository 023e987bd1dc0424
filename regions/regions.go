// Package regions serializes a Question's Part tree into the
// regions.json document persisted alongside each question's composite
// image (schema version 3).
package regions

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/declanmoore/examcache/model"
	"github.com/declanmoore/examcache/writer"
)

const schemaVersion = 3

// ErrSchemaVersion is returned when a regions.json on disk carries a
// schema version this code does not write. No silent upgrade is
// attempted; the caller decides whether to re-extract.
var ErrSchemaVersion = errors.New("regions: unsupported schema version")

// Bounds mirrors one rectangle in the JSON document.
type Bounds struct {
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
	Right  int `json:"right"`
}

func boundsOf(r model.PixelRect, compositeWidth int) Bounds {
	return Bounds{Top: r.Top, Bottom: r.Bottom, Left: r.Left, Right: r.RightOrWidth(compositeWidth)}
}

// Region is one part's entry in the "regions" map.
type Region struct {
	Kind             string   `json:"kind"`
	Marks            *int     `json:"marks"`
	Bounds           Bounds   `json:"bounds"`
	LabelBBox        *Bounds  `json:"label_bbox,omitempty"`
	ContextBounds    *Bounds  `json:"context_bounds,omitempty"`
	ChildIsInline    bool     `json:"child_is_inline"`
	IsValid          *bool    `json:"is_valid,omitempty"`
	ValidationIssues []string `json:"validation_issues,omitempty"`
}

// Document is the full regions.json shape.
type Document struct {
	SchemaVersion    int               `json:"schema_version"`
	QuestionID       string            `json:"question_id"`
	CompositeSize    model.Size        `json:"composite_size"`
	HorizontalOffset int               `json:"horizontal_offset"`
	NumeralBBox      []int             `json:"numeral_bbox,omitempty"`
	MarkBBoxes       [][]int           `json:"mark_bboxes,omitempty"`
	Regions          map[string]Region `json:"regions"`
}

// Build assembles the regions.json document for q, walking its Part
// tree. Only leaves carry an explicit "marks" value; internal nodes are
// written with a null one, and TotalMarks sums the leaves.
func Build(q model.Question, compositeSize model.Size) Document {
	doc := Document{
		SchemaVersion:    schemaVersion,
		QuestionID:       q.ID,
		CompositeSize:    compositeSize,
		HorizontalOffset: q.HorizontalOffset,
		Regions:          map[string]Region{},
	}

	if q.HasNumeralBBox {
		doc.NumeralBBox = bboxSlice(q.NumeralBBox, compositeSize.Width)
	}
	for _, b := range q.MarkBBoxes {
		doc.MarkBBoxes = append(doc.MarkBBoxes, bboxSlice(b, compositeSize.Width))
	}

	q.Root.Walk(func(p model.Part) {
		doc.Regions[p.Label()] = regionOf(p, compositeSize.Width)
	})

	return doc
}

func bboxSlice(r model.PixelRect, compositeWidth int) []int {
	return []int{r.Left, r.Top, r.RightOrWidth(compositeWidth), r.Bottom}
}

func regionOf(p model.Part, compositeWidth int) Region {
	r := Region{
		Kind:          kindName(p.Kind()),
		Bounds:        boundsOf(p.ContentRect(), compositeWidth),
		ChildIsInline: p.ChildIsInline(),
	}

	if p.IsLeaf() {
		v := p.Marks().Value
		r.Marks = &v
	}

	if lr, ok := p.LabelRect(); ok {
		b := boundsOf(lr, compositeWidth)
		r.LabelBBox = &b
	}
	if ctx, ok := p.ContextRect(); ok {
		b := boundsOf(ctx, compositeWidth)
		r.ContextBounds = &b
	}
	if !p.IsValid() {
		valid := false
		r.IsValid = &valid
		r.ValidationIssues = p.ValidationIssues()
	}

	return r
}

func kindName(k model.PartKind) string {
	switch k {
	case model.QuestionKind:
		return "question"
	case model.Letter:
		return "letter"
	case model.Roman:
		return "roman"
	default:
		return "unknown"
	}
}

// Write marshals the document and atomically writes it to path.
func Write(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("regions: marshaling %s: %w", doc.QuestionID, err)
	}
	return writer.AtomicWriteFile(path, data)
}

// Parse decodes a regions.json document, rejecting any schema version
// other than the one this package writes.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("regions: parsing document: %w", err)
	}
	if doc.SchemaVersion != schemaVersion {
		return Document{}, fmt.Errorf("%w: got %d, want %d", ErrSchemaVersion, doc.SchemaVersion, schemaVersion)
	}
	return doc, nil
}

// Read loads and parses the regions.json at path.
func Read(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("regions: reading %s: %w", path, err)
	}
	return Parse(data)
}

// TotalMarks reconstructs the document's total mark value by summing
// the explicit marks its leaf regions carry. Internal regions omit the
// field, so the sum over present values is the sum over leaves.
func (d Document) TotalMarks() int {
	total := 0
	for _, r := range d.Regions {
		if r.Marks != nil {
			total += *r.Marks
		}
	}
	return total
}

// Package diagnostics collects structural-validation events raised
// during extraction and assembles the detection_diagnostics.json
// report. It is a per-extraction value passed in by the caller; when
// omitted, events are silently discarded — extraction carries no
// global mutable state.
package diagnostics

import (
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"github.com/declanmoore/examcache/writer"
)

// IssueType is the closed set of diagnostic event kinds the pipeline
// emits.
type IssueType string

const (
	IssueLetterGap      IssueType = "letter_gap"
	IssueRomanGap       IssueType = "roman_gap"
	IssueRomanReset     IssueType = "roman_reset"
	IssueOrphanedRomans IssueType = "orphaned_romans"
	IssueLayout         IssueType = "layout_issue"
	IssueInvalidQuestion IssueType = "invalid_question"
)

// Event is one diagnostic record, matching the issues[] entries of
// detection_diagnostics.json.
type Event struct {
	IssueType             IssueType         `json:"issue_type"`
	PDFName               string            `json:"pdf_name"`
	ExamCode              string            `json:"exam_code"`
	QuestionNumber        int               `json:"question_number"`
	Message               string            `json:"message"`
	YSpan                 [2]int            `json:"y_span,omitempty"`
	PrevLabel             string            `json:"prev_label,omitempty"`
	NextLabel             string            `json:"next_label,omitempty"`
	PDFContentBetween     string            `json:"pdf_content_between_labels,omitempty"`
	ValidationOutcome     map[string]string `json:"validation_outcome,omitempty"`
}

// Collector accumulates events during one or more PDF extractions and
// produces the final report. Safe for concurrent use across parallel
// PDF extractions.
type Collector struct {
	mu     sync.Mutex
	source []string
	events []Event
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Emit records an event. A nil Collector is a valid no-op receiver so
// callers can pass `var c *Collector` when diagnostics are disabled.
func (c *Collector) Emit(e Event) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// AttachValidationOutcome records the final per-part validity verdict
// ("VALID" or "INVALID: reason") on every event already emitted for the
// given PDF and question, filling the report's validation_outcome
// field once the tree and bounds stages have settled what the earlier
// detection events only suspected.
func (c *Collector) AttachValidationOutcome(pdfName string, questionNumber int, outcome map[string]string) {
	if c == nil || len(outcome) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.events {
		e := &c.events[i]
		if e.PDFName == pdfName && e.QuestionNumber == questionNumber {
			e.ValidationOutcome = outcome
		}
	}
}

// NoteSource records a source PDF path in the report's source_pdfs list.
func (c *Collector) NoteSource(path string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.source {
		if s == path {
			return
		}
	}
	c.source = append(c.source, path)
}

// Report is the detection_diagnostics.json document.
type Report struct {
	GeneratedAt   string           `json:"generated_at"`
	SourcePDFs    []string         `json:"source_pdfs"`
	TotalIssues   int              `json:"total_issues"`
	SummaryByType map[string]int   `json:"summary_by_type"`
	Issues        []Event          `json:"issues"`
}

// Report assembles the current events into a detection_diagnostics.json
// document. generatedAt is supplied by the caller (orchestrator layers
// stamp timestamps; this package never calls time.Now itself to stay
// deterministic for tests).
func (c *Collector) Report(generatedAt time.Time) Report {
	if c == nil {
		return Report{GeneratedAt: generatedAt.UTC().Format(time.RFC3339), SummaryByType: map[string]int{}}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	summary := make(map[string]int)
	for _, e := range c.events {
		summary[string(e.IssueType)]++
	}

	issues := make([]Event, len(c.events))
	copy(issues, c.events)

	return Report{
		GeneratedAt:   generatedAt.UTC().Format(time.RFC3339),
		SourcePDFs:    append([]string(nil), c.source...),
		TotalIssues:   len(issues),
		SummaryByType: summary,
		Issues:        issues,
	}
}

// MarshalJSON renders the report with stable key ordering via the
// struct's field order (encoding/json preserves declaration order).
func (r Report) MarshalJSON() ([]byte, error) {
	type alias Report
	return json.Marshal(alias(r))
}

// Overlay is the optional debug bounding-box visualization hook: given
// a composite-pixel rectangle and a label, implementations draw an
// outline for human review. The core never calls this unless
// Diagnostics.Overlay is enabled in configuration, and nothing the
// overlay draws affects regions.json or questions.jsonl content.
type Overlay interface {
	DrawBox(label string, top, bottom, left, right int, valid bool)
	Save(path string) error
}

// ImageOverlay draws box outlines onto a copy of a question's
// composite: accepted/valid boxes in green, rejected/invalid boxes in
// red, two pixels thick.
type ImageOverlay struct {
	img *image.RGBA
}

// NewImageOverlay copies src so the pipeline's own composite is never
// touched.
func NewImageOverlay(src image.Image) *ImageOverlay {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return &ImageOverlay{img: dst}
}

func (o *ImageOverlay) DrawBox(label string, top, bottom, left, right int, valid bool) {
	c := color.RGBA{R: 0, G: 160, B: 0, A: 255}
	if !valid {
		c = color.RGBA{R: 200, G: 0, B: 0, A: 255}
	}
	for t := 0; t < 2; t++ {
		o.hline(left, right, top+t, c)
		o.hline(left, right, bottom-1-t, c)
		o.vline(top, bottom, left+t, c)
		o.vline(top, bottom, right-1-t, c)
	}
}

func (o *ImageOverlay) hline(x0, x1, y int, c color.RGBA) {
	for x := x0; x < x1; x++ {
		if image.Pt(x, y).In(o.img.Bounds()) {
			o.img.SetRGBA(x, y, c)
		}
	}
}

func (o *ImageOverlay) vline(y0, y1, x int, c color.RGBA) {
	for y := y0; y < y1; y++ {
		if image.Pt(x, y).In(o.img.Bounds()) {
			o.img.SetRGBA(x, y, c)
		}
	}
}

// Save encodes the annotated copy as a PNG at path.
func (o *ImageOverlay) Save(path string) error {
	return writer.AtomicWritePNG(path, o.img)
}

// Package orchestrator drives the per-PDF extraction pipeline:
// numeral detection, mark-scheme binding, and the per-question
// composite/detect/tree/bounds/write chain. One bad question becomes
// a result carrying an error and the run continues; only whole-PDF
// failures stop a run.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/declanmoore/examcache/bounds"
	"github.com/declanmoore/examcache/catalog"
	"github.com/declanmoore/examcache/compositor"
	"github.com/declanmoore/examcache/detect"
	"github.com/declanmoore/examcache/diagnostics"
	"github.com/declanmoore/examcache/markscheme"
	"github.com/declanmoore/examcache/model"
	"github.com/declanmoore/examcache/pdfdoc"
	"github.com/declanmoore/examcache/pdftext"
	"github.com/declanmoore/examcache/raster"
	"github.com/declanmoore/examcache/regions"
	"github.com/declanmoore/examcache/searchindex"
	"github.com/declanmoore/examcache/textclean"
	"github.com/declanmoore/examcache/timing"
	"github.com/declanmoore/examcache/topic"
	"github.com/declanmoore/examcache/tree"
	"github.com/declanmoore/examcache/writer"
)

// ErrNoNumerals is returned when numeral detection finds no question
// starts at all in a question paper.
var ErrNoNumerals = errors.New("orchestrator: no question numerals detected")

// ErrUnrecognizedFilename is returned when exam_code/year/paper/variant
// cannot be parsed from the question paper's filename.
var ErrUnrecognizedFilename = errors.New("orchestrator: filename does not match exam paper naming convention")

// Deps bundles the pluggable collaborators and tunables one PDF
// extraction run needs. Fields with a documented zero value are
// optional.
type Deps struct {
	TextExtractor pdftext.Extractor
	Rasterizer    raster.Rasterizer
	Classifier    topic.Classifier // optional; nil leaves topic.Unknown
	SearchIndex   *searchindex.Index // optional
	Collector     *diagnostics.Collector // optional, nil-safe
	ImageQueue    *writer.ImageQueue // optional; nil writes composites synchronously

	// OverlayFactory, when non-nil, produces a debug overlay per
	// question onto which detection boxes are drawn and saved next to
	// the composite. Purely additive: regions.json and questions.jsonl
	// are unaffected.
	OverlayFactory func(composite image.Image) diagnostics.Overlay

	CacheRoot       string
	DPI             int
	LockTimeout     time.Duration
	NumeralBBoxMaxWidthPx int
	ExtractMarkScheme     bool
}

// QuestionResult is one question's outcome within a PDF run, so a
// caller can tally successes without panic-based control flow.
type QuestionResult struct {
	QuestionID string
	Question   model.Question
	Err        error
}

// PDFResult is the outcome of extracting one question-paper PDF.
type PDFResult struct {
	PDFPath   string
	ExamCode  string
	Questions []QuestionResult
	Err       error // set only for a whole-PDF failure (no numerals, unreadable document, bad filename)
}

// ExtractPDF runs the full extraction pipeline over one question
// paper.
func ExtractPDF(ctx context.Context, deps Deps, qpPath string) PDFResult {
	result := PDFResult{PDFPath: qpPath}
	deps.Collector.NoteSource(qpPath)

	stem := strings.TrimSuffix(filepath.Base(qpPath), filepath.Ext(qpPath))
	examCode, year, paper, variant, err := parseExamFilename(stem)
	if err != nil {
		result.Err = err
		return result
	}
	result.ExamCode = examCode

	info, err := pdfdoc.Inspect(qpPath)
	if err != nil {
		result.Err = fmt.Errorf("orchestrator: %s: %w", qpPath, err)
		return result
	}

	qpPages, err := deps.TextExtractor.ExtractPages(qpPath)
	if err != nil {
		result.Err = fmt.Errorf("orchestrator: extracting text from %s: %w", qpPath, err)
		return result
	}

	log := timing.NewLog()
	var numerals []detect.NumeralCandidate
	_ = log.Phase("numeral_detection", "", func() error {
		numerals = detect.DetectNumerals(qpPages)
		return nil
	})
	if len(numerals) == 0 {
		result.Err = fmt.Errorf("%w: %s", ErrNoNumerals, qpPath)
		return result
	}

	pageByNumber := make(map[int]pdftext.Page, len(qpPages))
	for _, p := range qpPages {
		pageByNumber[p.Number] = p
	}
	pageDims := func(page int) (float64, float64) {
		if page < len(info.PageDims) {
			return info.PageDims[page].WidthPt, info.PageDims[page].HeightPt
		}
		return 595, 842
	}

	msPath := markSchemePath(qpPath)
	msBinding, msPageDims := bindMarkScheme(deps, msPath, numerals)

	var referenceX int
	var hasReferenceX bool

	for i, num := range numerals {
		questionNumber := num.Number
		questionID := fmt.Sprintf("%s_q%d", stem, questionNumber)

		span := spanFor(num, numerals, i, info.PageCount)

		q, err := extractQuestion(ctx, deps, log, questionExtraction{
			qpPath:         qpPath,
			questionID:     questionID,
			questionNumber: questionNumber,
			examCode:       examCode,
			year:           year,
			paper:          paper,
			variant:        variant,
			span:           span,
			numeral:        num,
			pageByNumber:   pageByNumber,
			pageDims:       pageDims,
			msPath:         msPath,
			msPages:        msBinding[questionNumber],
			msPageDims:     msPageDims,
			referenceX:     referenceX,
			hasReferenceX:  hasReferenceX,
		})
		if err != nil {
			deps.Collector.Emit(diagnostics.Event{
				IssueType:      diagnostics.IssueInvalidQuestion,
				PDFName:        filepath.Base(qpPath),
				ExamCode:       examCode,
				QuestionNumber: questionNumber,
				Message:        err.Error(),
			})
			result.Questions = append(result.Questions, QuestionResult{QuestionID: questionID, Err: err})
			continue
		}

		if !hasReferenceX && q.HasNumeralBBox {
			referenceX = q.NumeralBBox.Left
			hasReferenceX = true
		}

		result.Questions = append(result.Questions, QuestionResult{QuestionID: questionID, Question: q})
	}

	metaDir := filepath.Join(deps.CacheRoot, examCode, "_metadata")
	if err := log.Save(filepath.Join(metaDir, "timing.json"), deps.LockTimeout); err != nil {
		// Timing is best-effort bookkeeping; a failure here doesn't
		// invalidate the extracted questions.
		deps.Collector.Emit(diagnostics.Event{
			IssueType: diagnostics.IssueLayout,
			PDFName:   filepath.Base(qpPath),
			ExamCode:  examCode,
			Message:   fmt.Sprintf("failed to save timing.json: %v", err),
		})
	}

	return result
}

// WriteDiagnosticsReport renders the collector's current state to
// detection_diagnostics.json under cacheRoot/examCode/_metadata. Call
// once after a batch of PDFs sharing examCode has finished, not per PDF.
func WriteDiagnosticsReport(collector *diagnostics.Collector, cacheRoot, examCode string) error {
	report := collector.Report(time.Now())
	data, err := jsonMarshalIndent(report)
	if err != nil {
		return fmt.Errorf("orchestrator: marshaling diagnostics report: %w", err)
	}
	path := filepath.Join(cacheRoot, examCode, "_metadata", "detection_diagnostics.json")
	return writer.AtomicWriteFile(path, data)
}

type questionExtraction struct {
	qpPath         string
	questionID     string
	questionNumber int
	examCode       string
	year, paper, variant int
	span           compositor.Span
	numeral        detect.NumeralCandidate
	pageByNumber   map[int]pdftext.Page
	pageDims       func(int) (float64, float64)
	msPath         string
	msPages        []int
	msPageDims     func(int) (float64, float64)
	referenceX     int
	hasReferenceX  bool
}

func extractQuestion(ctx context.Context, deps Deps, log *timing.Log, qx questionExtraction) (model.Question, error) {
	var composite compositor.Result
	err := log.Phase("compositing", qx.questionID, func() error {
		var cErr error
		composite, cErr = compositor.Composite(deps.Rasterizer, qx.qpPath, qx.span, deps.DPI, qx.pageDims)
		return cErr
	})
	if err != nil {
		return model.Question{}, fmt.Errorf("compositing: %w", err)
	}
	compositeSize := model.Size{Width: composite.Image.Bounds().Dx(), Height: composite.Image.Bounds().Dy()}

	var letters, romans []tree.Label
	var marksRaw []detect.MarkCandidate
	for _, seg := range composite.Segments {
		page, ok := qx.pageByNumber[seg.Page]
		if !ok {
			continue
		}
		clipLines := pdftext.LinesInClip(page.Lines, seg.Clip.Y0, seg.Clip.Y1)

		for _, l := range detect.DetectLetters(clipLines, seg.Clip.Width(), seg.Page) {
			letters = append(letters, translateLabel(l, seg))
		}
		for _, r := range detect.DetectRomans(clipLines, seg.Clip.Width(), seg.Page) {
			romans = append(romans, translateLabel(r, seg))
		}
		for _, m := range detect.ScanMarkCandidates(clipLines, seg.Page) {
			marksRaw = append(marksRaw, translateMarkCandidate(m, seg))
		}
	}

	letters = cutLetterSequence(letters)

	accepted, rejected, minorVariance := detect.FilterOutliersPx(marksRaw)
	if minorVariance {
		deps.Collector.Emit(diagnostics.Event{
			IssueType:      diagnostics.IssueLayout,
			PDFName:        filepath.Base(qx.qpPath),
			ExamCode:       qx.examCode,
			QuestionNumber: qx.questionNumber,
			Message:        "mark box right-edge variance exceeds the warn threshold",
		})
	}
	for _, rej := range rejected {
		deps.Collector.Emit(diagnostics.Event{
			IssueType:      diagnostics.IssueLayout,
			PDFName:        filepath.Base(qx.qpPath),
			ExamCode:       qx.examCode,
			QuestionNumber: qx.questionNumber,
			Message:        fmt.Sprintf("mark box [%d] rejected as a right-margin outlier (deviation %.0fpx)", rej.Candidate.Value, rej.DeviationPt),
		})
	}

	marks := make([]tree.Mark, 0, len(accepted))
	var markEdges []bounds.MarkEdge
	var markBoxes []model.PixelRect
	for _, m := range accepted {
		rect, err := model.NewPixelRect(int(m.BBox.Y0), int(m.BBox.Y1)+1, int(m.BBox.X0), int(m.BBox.X1)+1)
		if err != nil {
			continue
		}
		marks = append(marks, tree.Mark{Value: m.Value, Y: int(m.Y), BBox: rect})
		markEdges = append(markEdges, bounds.MarkEdge{Y: int(m.Y), Right: rect.Right})
		markBoxes = append(markBoxes, rect)
	}

	textBetween := func(y0, y1 int) string {
		var b strings.Builder
		for _, seg := range composite.Segments {
			page, ok := qx.pageByNumber[seg.Page]
			if !ok {
				continue
			}
			for _, l := range pdftext.LinesInClip(page.Lines, seg.Clip.Y0, seg.Clip.Y1) {
				cy := seg.PDFYToCompositeY(l.Y)
				if cy >= y0 && cy < y1 {
					b.WriteString(l.Text)
					b.WriteString(" ")
				}
			}
		}
		return textclean.Clean(b.String())
	}

	var root model.Part
	err = log.Phase("tree_building", qx.questionID, func() error {
		var tErr error
		root, tErr = tree.Build(qx.questionNumber, letters, romans, marks, compositeSize.Height, compositeSize.Width,
			deps.Collector, filepath.Base(qx.qpPath), qx.examCode, textBetween)
		return tErr
	})
	if err != nil {
		return model.Question{}, fmt.Errorf("tree building: %w", err)
	}

	if qx.numeral.Confidence != "" && qx.numeral.Confidence != detect.ConfidenceHigh {
		deps.Collector.Emit(diagnostics.Event{
			IssueType:      diagnostics.IssueLayout,
			PDFName:        filepath.Base(qx.qpPath),
			ExamCode:       qx.examCode,
			QuestionNumber: qx.questionNumber,
			Message:        fmt.Sprintf("question start detected with %s confidence", qx.numeral.Confidence),
		})
	}

	numeralBBox, hasNumeralBBox := translateNumeralBBox(qx, composite)
	if hasNumeralBBox && deps.NumeralBBoxMaxWidthPx > 0 {
		if numeralBBox.Width(compositeSize.Width) > deps.NumeralBBoxMaxWidthPx {
			deps.Collector.Emit(diagnostics.Event{
				IssueType:      diagnostics.IssueLayout,
				PDFName:        filepath.Base(qx.qpPath),
				ExamCode:       qx.examCode,
				QuestionNumber: qx.questionNumber,
				Message:        fmt.Sprintf("numeral bbox width %dpx exceeds sanity limit %dpx", numeralBBox.Width(compositeSize.Width), deps.NumeralBBoxMaxWidthPx),
			})
		}
	}

	var finalized bounds.Result
	err = log.Phase("bounds", qx.questionID, func() error {
		var bErr error
		finalized, bErr = bounds.Finalize(root, markEdges, numeralBBox, hasNumeralBBox, qx.referenceX, qx.hasReferenceX, compositeSize.Width)
		return bErr
	})
	if err != nil {
		return model.Question{}, fmt.Errorf("bounds: %w", err)
	}
	root = finalized.Root

	if len(root.Leaves()) == 0 {
		return model.Question{}, fmt.Errorf("no leaf parts detected for question %d", qx.questionNumber)
	}

	// Settle the per-part verdicts onto any detection events emitted
	// earlier for this question.
	outcome := make(map[string]string)
	root.Walk(func(p model.Part) {
		if p.IsValid() {
			outcome[p.Label()] = "VALID"
		} else {
			outcome[p.Label()] = "INVALID: " + strings.Join(p.ValidationIssues(), "; ")
		}
	})
	deps.Collector.AttachValidationOutcome(filepath.Base(qx.qpPath), qx.questionNumber, outcome)

	q, err := model.NewQuestion(qx.questionID, qx.examCode, qx.year, qx.paper, qx.variant, root)
	if err != nil {
		return model.Question{}, fmt.Errorf("assembling question: %w", err)
	}
	q.HorizontalOffset = finalized.HorizontalOffset
	q.NumeralBBox = numeralBBox
	q.HasNumeralBBox = hasNumeralBBox
	q.MarkBBoxes = markBoxes

	rootText, childText := extractText(root, textBetween)
	q.RootText = rootText
	q.ChildText = childText

	topicLabel := topic.Unknown
	if deps.Classifier != nil {
		topicLabel, q.ChildTopics, q.SubTopics = classifyTree(ctx, deps.Classifier, root, rootText, childText, qx.examCode)
	}
	q.Topic = topicLabel

	outDir := filepath.Join(deps.CacheRoot, qx.examCode, topicOrUnclassified(topicLabel), qx.questionID)
	compositePath := filepath.Join(outDir, "composite.png")
	regionsPath := filepath.Join(outDir, "regions.json")

	if err := log.Phase("writing", qx.questionID, func() error {
		if deps.ImageQueue != nil {
			deps.ImageQueue.Submit(compositePath, composite.Image)
		} else if err := writer.AtomicWritePNG(compositePath, composite.Image); err != nil {
			return err
		}

		doc := regions.Build(q, compositeSize)
		if err := regions.Write(regionsPath, doc); err != nil {
			return err
		}

		if deps.OverlayFactory != nil {
			ov := deps.OverlayFactory(composite.Image)
			if hasNumeralBBox {
				ov.DrawBox("numeral", numeralBBox.Top, numeralBBox.Bottom, numeralBBox.Left, numeralBBox.Right, true)
			}
			for _, b := range markBoxes {
				ov.DrawBox("mark", b.Top, b.Bottom, b.Left, b.Right, true)
			}
			for _, rej := range rejected {
				ov.DrawBox("mark-rejected",
					int(rej.Candidate.BBox.Y0), int(rej.Candidate.BBox.Y1)+1,
					int(rej.Candidate.BBox.X0), int(rej.Candidate.BBox.X1)+1, false)
			}
			root.Walk(func(p model.Part) {
				r := p.ContentRect()
				ov.DrawBox(p.Label(), r.Top, r.Bottom, r.Left, r.RightOrWidth(compositeSize.Width), p.IsValid())
			})
			if err := ov.Save(filepath.Join(outDir, "overlay.png")); err != nil {
				deps.Collector.Emit(diagnostics.Event{
					IssueType:      diagnostics.IssueLayout,
					PDFName:        filepath.Base(qx.qpPath),
					ExamCode:       qx.examCode,
					QuestionNumber: qx.questionNumber,
					Message:        fmt.Sprintf("failed to save debug overlay: %v", err),
				})
			}
		}

		if qx.msPath != "" && deps.ExtractMarkScheme && len(qx.msPages) > 0 {
			msOut, err := markscheme.Extract(deps.Rasterizer, qx.msPath, qx.questionID, qx.msPages, qx.msPageDims, deps.DPI, outDir)
			if err != nil {
				deps.Collector.Emit(diagnostics.Event{
					IssueType:      diagnostics.IssueLayout,
					PDFName:        filepath.Base(qx.qpPath),
					ExamCode:       qx.examCode,
					QuestionNumber: qx.questionNumber,
					Message:        fmt.Sprintf("mark scheme extraction failed: %v", err),
				})
			} else {
				q.MarkSchemePath = msOut
			}
		}

		metaDir := filepath.Join(deps.CacheRoot, qx.examCode, "_metadata")
		record := catalog.RecordOf(q, qx.questionNumber)
		if err := catalog.Append(filepath.Join(metaDir, "questions.jsonl"), record, deps.LockTimeout); err != nil {
			return err
		}

		if deps.SearchIndex != nil {
			entry := searchindex.Entry{
				QuestionID:   q.ID,
				ExamCode:     q.ExamCode,
				Topic:        q.Topic,
				RelativePath: q.RelativePath(),
				RootText:     q.RootText,
				ChildText:    strings.Join(childTextValues(q.ChildText), " "),
			}
			_ = deps.SearchIndex.Upsert(ctx, entry)
		}
		return nil
	}); err != nil {
		return model.Question{}, fmt.Errorf("writing: %w", err)
	}

	q.CompositePath = compositePath
	q.RegionsPath = regionsPath
	return q, nil
}

// cutLetterSequence re-applies the alphabetical cutoff across segment
// boundaries: per-segment detection cannot see a stray label whose
// sequence jump spans a page break.
func cutLetterSequence(letters []tree.Label) []tree.Label {
	sort.SliceStable(letters, func(i, j int) bool { return letters[i].Y < letters[j].Y })
	var out []tree.Label
	prev := -1
	for _, l := range letters {
		idx := int(l.Label[0] - 'a')
		if prev != -1 && idx-prev > 2 {
			break
		}
		out = append(out, l)
		prev = idx
	}
	return out
}

// classifyTree classifies the root and every part of the tree, runs
// topic propagation (children fill a still-unknown parent; flanking
// siblings fill a still-unknown middle), and returns the root topic
// plus the per-part topics that ended up classified.
func classifyTree(ctx context.Context, c topic.Classifier, root model.Part, rootText string, childText map[string]string, examCode string) (string, map[string]string, []string) {
	node := topicNodeFor(ctx, c, root, rootText, childText, examCode, true)
	topic.Propagate(node)

	childTopics := make(map[string]string)
	var collect func(n *topic.Node)
	collect = func(n *topic.Node) {
		if n.Label != node.Label && n.Topic != topic.Unknown {
			childTopics[n.Label] = n.Topic
		}
		for _, ch := range n.Children {
			collect(ch)
		}
	}
	collect(node)

	seen := make(map[string]bool)
	var subTopics []string
	for _, label := range sortedKeys(childTopics) {
		t := childTopics[label]
		if !seen[t] {
			seen[t] = true
			subTopics = append(subTopics, t)
		}
	}
	if len(childTopics) == 0 {
		childTopics = nil
	}
	return node.Topic, childTopics, subTopics
}

func topicNodeFor(ctx context.Context, c topic.Classifier, p model.Part, rootText string, childText map[string]string, examCode string, isRoot bool) *topic.Node {
	text := childText[p.Label()]
	if isRoot {
		text = rootText
	}
	n := &topic.Node{Label: p.Label()}
	if text != "" {
		if t, err := c.Classify(ctx, text, examCode); err == nil {
			n.Topic = t
		}
	}
	for _, ch := range p.Children() {
		n.Children = append(n.Children, topicNodeFor(ctx, c, ch, rootText, childText, examCode, false))
	}
	return n
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func childTextValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func topicOrUnclassified(t string) string {
	if t == "" {
		return "unclassified"
	}
	return t
}

// extractText pulls root_text and per-part child_text from the
// composite's clipped lines, normalizing and truncating each.
func extractText(root model.Part, textBetween func(y0, y1 int) string) (string, map[string]string) {
	childText := make(map[string]string)
	var rootText string
	root.Walk(func(p model.Part) {
		content := p.ContentRect()
		raw := textBetween(content.Top, content.Bottom)
		cleaned := textclean.Truncate(textclean.Clean(raw), 2000)
		if p.Kind() == model.QuestionKind {
			rootText = cleaned
			return
		}
		childText[p.Label()] = cleaned
	})
	return rootText, childText
}

func translateLabel(l detect.LabelCandidate, seg model.PageSegment) tree.Label {
	rect, err := model.NewPixelRect(
		seg.PDFYToCompositeY(l.BBox.Y1), seg.PDFYToCompositeY(l.BBox.Y0)+1,
		seg.PDFXToCompositeX(l.BBox.X0), seg.PDFXToCompositeX(l.BBox.X1)+1,
	)
	if err != nil {
		rect = model.PixelRect{}
	}
	return tree.Label{Label: l.Label, Y: seg.PDFYToCompositeY(l.Y), BBox: rect}
}

func translateMarkCandidate(m detect.MarkCandidate, seg model.PageSegment) detect.MarkCandidate {
	return detect.MarkCandidate{
		Value: m.Value,
		Page:  m.Page,
		Y:     float64(seg.PDFYToCompositeY(m.Y)),
		BBox: model.PDFClip{
			Page: m.Page,
			X0:   float64(seg.PDFXToCompositeX(m.BBox.X0)),
			Y0:   float64(seg.PDFYToCompositeY(m.BBox.Y1)),
			X1:   float64(seg.PDFXToCompositeX(m.BBox.X1)),
			Y1:   float64(seg.PDFYToCompositeY(m.BBox.Y0)),
		},
	}
}

// translateNumeralBBox converts the question's own numeral bbox (still
// in PDF points, detected before compositing ran) into composite-pixel
// space using the first segment's conversion, since a question's
// numeral always falls within its own span's first page. A fallback
// match ("Question N" with no located glyph box) carries no real bbox.
func translateNumeralBBox(qx questionExtraction, composite compositor.Result) (model.PixelRect, bool) {
	if qx.numeral.IsFallback || len(composite.Segments) == 0 {
		return model.PixelRect{}, false
	}
	firstSeg := composite.Segments[0]
	bbox := qx.numeral.BBox
	rect, err := model.NewPixelRect(
		firstSeg.PDFYToCompositeY(bbox.Y1), firstSeg.PDFYToCompositeY(bbox.Y0)+1,
		firstSeg.PDFXToCompositeX(bbox.X0), firstSeg.PDFXToCompositeX(bbox.X1)+1,
	)
	if err != nil {
		return model.PixelRect{}, false
	}
	return rect, true
}

// spanFor builds the vertical span for numerals[i], ending at the next
// numeral or, for the last numeral, the end of the document.
func spanFor(num detect.NumeralCandidate, numerals []detect.NumeralCandidate, i int, pageCount int) compositor.Span {
	startPage := num.Page + 1 // pdftext/raster pages are 1-indexed
	startY := num.Y
	if num.IsFallback {
		startY = 0
	}

	if i+1 < len(numerals) {
		next := numerals[i+1]
		return compositor.Span{StartPage: startPage, StartY: startY, EndPage: next.Page + 1, EndY: next.Y}
	}
	return compositor.Span{StartPage: startPage, StartY: startY, EndPage: pageCount, EndY: 0}
}

func bindMarkScheme(deps Deps, msPath string, numerals []detect.NumeralCandidate) (map[int][]int, func(int) (float64, float64)) {
	if msPath == "" {
		return nil, nil
	}
	if _, err := os.Stat(msPath); err != nil {
		return nil, nil
	}
	msInfo, err := pdfdoc.Inspect(msPath)
	if err != nil {
		return nil, nil
	}
	msPages, err := deps.TextExtractor.ExtractPages(msPath)
	if err != nil {
		return nil, nil
	}

	wanted := make(map[int]bool, len(numerals))
	for _, n := range numerals {
		wanted[n.Number] = true
	}

	pageDims := func(page int) (float64, float64) {
		if page < len(msInfo.PageDims) {
			return msInfo.PageDims[page].WidthPt, msInfo.PageDims[page].HeightPt
		}
		return 595, 842
	}
	return markscheme.Bind(msPages, wanted), pageDims
}

// markSchemePath applies the `…_qp_…` → `…_ms_…` filename transform
// in the same directory as the question paper.
func markSchemePath(qpPath string) string {
	base := filepath.Base(qpPath)
	if !strings.Contains(base, "_qp_") {
		return ""
	}
	return filepath.Join(filepath.Dir(qpPath), strings.Replace(base, "_qp_", "_ms_", 1))
}

var (
	examCodePattern = regexp.MustCompile(`^(\d{4})_`)
	sessionYearPattern = regexp.MustCompile(`(?i)[smw](\d{2})`)
	paperPattern       = regexp.MustCompile(`qp_(\d)`)
	variantPattern     = regexp.MustCompile(`qp_\d(\d)`)
)

// parseExamFilename extracts exam_code/year/paper/variant from a
// question-paper stem like "0478_s24_qp_12", grounded on the original
// implementation's _extract_year/_extract_paper/_extract_variant.
func parseExamFilename(stem string) (examCode string, year, paper, variant int, err error) {
	m := examCodePattern.FindStringSubmatch(stem)
	if m == nil {
		return "", 0, 0, 0, fmt.Errorf("%w: %s", ErrUnrecognizedFilename, stem)
	}
	examCode = m[1]

	year = 2024
	if ym := sessionYearPattern.FindStringSubmatch(stem); ym != nil {
		yy, _ := strconv.Atoi(ym[1])
		if yy < 50 {
			year = 2000 + yy
		} else {
			year = 1900 + yy
		}
	}

	paper = 1
	if pm := paperPattern.FindStringSubmatch(stem); pm != nil {
		paper, _ = strconv.Atoi(pm[1])
	}

	variant = 1
	if vm := variantPattern.FindStringSubmatch(stem); vm != nil {
		variant, _ = strconv.Atoi(vm[1])
	}

	return examCode, year, paper, variant, nil
}

func jsonMarshalIndent(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

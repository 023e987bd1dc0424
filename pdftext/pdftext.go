// Package pdftext extracts character- and line-granularity text with
// bounding boxes from PDF page clips, the shared input for the numeral,
// part-label, and mark-box detectors.
package pdftext

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Char is a single glyph with its PDF-space bounding box (points,
// origin bottom-left).
type Char struct {
	Text string
	X0   float64
	Y0   float64
	X1   float64
	Y1   float64
}

// Line is a visual text line assembled from consecutive Chars sharing
// a Y coordinate within tolerance, in content-stream (reading) order.
type Line struct {
	Text  string
	Y     float64 // representative baseline Y, PDF points
	X0    float64
	X1    float64
	Chars []Char
}

// Page holds every line extracted from one PDF page, plus the page's
// point-space dimensions.
type Page struct {
	Number int
	Width  float64
	Height float64
	Lines  []Line
}

// Extractor produces structured per-page text. Implementations may be
// swapped for tests or alternate PDF backends (spec-mandated contract
// boundary between the core and its PDF library).
type Extractor interface {
	ExtractPages(path string) ([]Page, error)
}

// LedongExtractor is backed by github.com/ledongthuc/pdf, the same
// library the copied text-extraction code in this tree was built
// against.
type LedongExtractor struct{}

func NewLedongExtractor() *LedongExtractor { return &LedongExtractor{} }

func (e *LedongExtractor) ExtractPages(path string) ([]Page, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdftext: opening %s: %w", path, err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages := make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		lines := extractLines(p)

		w, h := pageDimensions(p)
		pages = append(pages, Page{
			Number: i,
			Width:  w,
			Height: h,
			Lines:  lines,
		})
	}
	return pages, nil
}

// pageDimensions reads the page's MediaBox, falling back to A4-at-72dpi
// point dimensions when absent.
func pageDimensions(p pdf.Page) (float64, float64) {
	const defaultW, defaultH = 595.0, 842.0
	box := p.V.Key("MediaBox")
	if box.IsNull() || box.Len() != 4 {
		return defaultW, defaultH
	}
	x0 := box.Index(0).Float64()
	y0 := box.Index(1).Float64()
	x1 := box.Index(2).Float64()
	y1 := box.Index(3).Float64()
	w, h := x1-x0, y1-y0
	if w <= 0 || h <= 0 {
		return defaultW, defaultH
	}
	return w, h
}

// extractLines groups a page's Content().Text elements into visual
// lines by Y proximity, preserving content-stream order within a line
// (sorting by X would garble text under negative text matrices), then
// orders the lines top-to-bottom, carrying per-character boxes
// instead of collapsing each line to a plain string.
func extractLines(p pdf.Page) []Line {
	content := p.Content()
	if len(content.Text) == 0 {
		return nil
	}

	const lineTolerance = 3.0

	var lines []*Line
	var cur *Line

	for _, t := range content.Text {
		if cur == nil || math.Abs(t.Y-cur.Y) > lineTolerance {
			lines = append(lines, &Line{Y: t.Y, X0: t.X})
			cur = lines[len(lines)-1]
		}
		w := t.W
		if w <= 0 {
			w = float64(len(t.S)) * t.FontSize * 0.5
		}
		ch := Char{
			Text: t.S,
			X0:   t.X,
			Y0:   t.Y,
			X1:   t.X + w,
			Y1:   t.Y + t.FontSize,
		}
		cur.Chars = append(cur.Chars, ch)
		cur.Text += t.S
		if ch.X1 > cur.X1 {
			cur.X1 = ch.X1
		}
	}

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Y > lines[j].Y })

	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		l.Text = strings.TrimRight(l.Text, " \t")
		if strings.TrimSpace(l.Text) == "" {
			continue
		}
		out = append(out, *l)
	}
	return out
}

// LineBBox returns the tight bounding box (in PDF points) of a
// contiguous run of characters within a line, by index range [from,to).
func LineBBox(l Line, from, to int) (x0, y0, x1, y1 float64) {
	if from < 0 {
		from = 0
	}
	if to > len(l.Chars) {
		to = len(l.Chars)
	}
	if from >= to {
		return 0, 0, 0, 0
	}
	x0, y0, x1, y1 = l.Chars[from].X0, l.Chars[from].Y0, l.Chars[from].X1, l.Chars[from].Y1
	for _, c := range l.Chars[from+1 : to] {
		if c.X0 < x0 {
			x0 = c.X0
		}
		if c.Y0 < y0 {
			y0 = c.Y0
		}
		if c.X1 > x1 {
			x1 = c.X1
		}
		if c.Y1 > y1 {
			y1 = c.Y1
		}
	}
	return x0, y0, x1, y1
}

// LinesInClip filters a page's lines to those whose Y falls within
// [y0, y1) of a clip rectangle, used to scope detection to one
// composite segment at a time.
func LinesInClip(lines []Line, y0, y1 float64) []Line {
	var out []Line
	for _, l := range lines {
		if l.Y >= y0 && l.Y < y1 {
			out = append(out, l)
		}
	}
	return out
}

// Package markscheme binds mark-scheme PDF pages to question numbers
// and renders the bound pages into one stitched image per question.
package markscheme

import (
	"fmt"
	"image"
	"image/draw"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/declanmoore/examcache/pdftext"
	"github.com/declanmoore/examcache/raster"
	"github.com/declanmoore/examcache/writer"
)

var (
	questionWordPattern = regexp.MustCompile(`(?i)\bQuestion\s+(\d{1,2})\b`)
	partLeadPattern     = regexp.MustCompile(`^(\d{1,2})\(a\)`)
	tableHeaderPattern  = regexp.MustCompile(`(?i)^Question\s+Answer\s+Marks\s+(\d{1,2})\b`)
)

// Bind maps every page of a mark-scheme PDF to the question number(s)
// it answers for, restricted to wanted. Pages carrying no recognizable
// question marker inherit the previous page's mapping (continuation
// pages).
func Bind(pages []pdftext.Page, wanted map[int]bool) map[int][]int {
	result := make(map[int][]int)
	lastPage := -1
	sawAny := false

	for _, page := range pages {
		qnum, ok := pageQuestionNumber(page, wanted)
		if ok {
			result[qnum] = append(result[qnum], page.Number)
			lastPage = qnum
			sawAny = true
			continue
		}
		if sawAny && lastPage >= 0 {
			result[lastPage] = append(result[lastPage], page.Number)
		}
	}
	return result
}

// pageQuestionNumber scans a page's lines for the first of the three
// recognized markers and returns the question number if it is in the
// wanted set.
func pageQuestionNumber(page pdftext.Page, wanted map[int]bool) (int, bool) {
	for _, line := range page.Lines {
		if m := questionWordPattern.FindStringSubmatch(line.Text); m != nil {
			if n, ok := atoiWanted(m[1], wanted); ok {
				return n, true
			}
		}
		if m := partLeadPattern.FindStringSubmatch(line.Text); m != nil {
			if n, ok := atoiWanted(m[1], wanted); ok {
				return n, true
			}
		}
		if m := tableHeaderPattern.FindStringSubmatch(line.Text); m != nil {
			if n, ok := atoiWanted(m[1], wanted); ok {
				return n, true
			}
		}
	}
	return 0, false
}

func atoiWanted(s string, wanted map[int]bool) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	if wanted != nil && !wanted[n] {
		return 0, false
	}
	return n, true
}

// Extract renders the listed pages of the mark-scheme PDF to grayscale,
// trims each, stitches them vertically, and saves the result as
// {questionID}_ms.png in outputDir, returning the written path.
func Extract(r raster.Rasterizer, msPDFPath string, questionID string, pages []int, pageDims func(page int) (widthPt, heightPt float64), dpi int, outputDir string) (string, error) {
	if len(pages) == 0 {
		return "", fmt.Errorf("markscheme: no pages to extract for %s", questionID)
	}

	renders := make([]raster.Result, 0, len(pages))
	for _, p := range pages {
		widthPt, heightPt := pageDims(p)
		clip := raster.Clip{Page: p, X0: 0, Y0: 0, X1: widthPt, Y1: heightPt}
		rendered, err := r.RenderClip(msPDFPath, clip, dpi)
		if err != nil {
			return "", fmt.Errorf("markscheme: rendering page %d for %s: %w", p, questionID, err)
		}
		renders = append(renders, rendered)
	}

	stitched := stitchVertical(renders)

	path := filepath.Join(outputDir, questionID+"_ms.png")
	if err := writer.AtomicWritePNG(path, stitched); err != nil {
		return "", fmt.Errorf("markscheme: writing %s: %w", path, err)
	}
	return path, nil
}

// stitchVertical composites already-trimmed page renders top to
// bottom into one grayscale image at the width of the widest page.
func stitchVertical(renders []raster.Result) *image.Gray {
	width := 0
	height := 0
	for _, r := range renders {
		if r.Image.Bounds().Dx() > width {
			width = r.Image.Bounds().Dx()
		}
		height += r.Image.Bounds().Dy()
	}
	if width == 0 {
		width = 1
	}
	if height == 0 {
		height = 1
	}

	out := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), image.NewUniform(image.White), image.Point{}, draw.Src)

	yOffset := 0
	for _, r := range renders {
		b := r.Image.Bounds()
		dst := image.Rect(0, yOffset, b.Dx(), yOffset+b.Dy())
		draw.Draw(out, dst, r.Image, b.Min, draw.Src)
		yOffset += b.Dy()
	}
	return out
}

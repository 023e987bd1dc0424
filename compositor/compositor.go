// Package compositor stitches per-page rendered clips top-to-bottom
// into one grayscale composite image per question, tracking the
// per-segment offsets later components need for pixel<->PDF
// coordinate conversion.
package compositor

import (
	"image"
	"image/draw"

	"github.com/declanmoore/examcache/model"
	"github.com/declanmoore/examcache/raster"
)

// Span describes the vertical extent of one question, possibly
// crossing page boundaries.
type Span struct {
	StartPage int
	StartY    float64 // PDF points, bottom-left origin
	EndPage   int
	EndY      float64
}

// Result is the stitched composite plus the per-page segment metadata
// the rest of the pipeline needs for coordinate translation.
type Result struct {
	Image    *image.Gray
	Segments []model.PageSegment
}

// Composite renders every page clip implied by span and stitches them
// top-to-bottom into a single grayscale image at the width of the
// widest segment.
func Composite(r raster.Rasterizer, pdfPath string, span Span, dpi int, pageDims func(page int) (widthPt, heightPt float64)) (Result, error) {
	var renders []raster.Result
	var clips []model.PDFClip

	for page := span.StartPage; page <= span.EndPage; page++ {
		widthPt, heightPt := pageDims(page)

		// PDF space is bottom-left origin: a question's numeral sits at
		// the top of its own content, so the start page is clipped down
		// from StartY (excluding whatever came before it), and the end
		// page is clipped up from EndY (excluding whatever comes after).
		// StartY of 0 means "no located glyph" (a Question-N fallback
		// match), which covers the start page in full.
		top := heightPt
		if page == span.StartPage && span.StartY > 0 {
			top = span.StartY
		}
		bottom := 0.0
		if page == span.EndPage {
			bottom = span.EndY
		}
		if bottom >= top {
			continue
		}

		clip := raster.Clip{Page: page, X0: 0, Y0: bottom, X1: widthPt, Y1: top}
		rendered, err := r.RenderClip(pdfPath, clip, dpi)
		if err != nil {
			return Result{}, err
		}
		renders = append(renders, rendered)
		clips = append(clips, model.PDFClip{Page: page, X0: clip.X0, Y0: clip.Y0, X1: clip.X1, Y1: clip.Y1})
	}

	return stitch(renders, clips, dpi)
}

// stitch composites the rendered segments vertically, widest-segment
// width, white background, top-aligned blit per segment.
func stitch(renders []raster.Result, clips []model.PDFClip, dpi int) (Result, error) {
	width := 0
	totalHeight := 0
	for _, r := range renders {
		if r.Image.Bounds().Dx() > width {
			width = r.Image.Bounds().Dx()
		}
		totalHeight += r.Image.Bounds().Dy()
	}
	if width == 0 {
		width = 1
	}
	if totalHeight == 0 {
		totalHeight = 1
	}

	out := image.NewGray(image.Rect(0, 0, width, totalHeight))
	draw.Draw(out, out.Bounds(), image.NewUniform(image.White), image.Point{}, draw.Src)

	segments := make([]model.PageSegment, 0, len(renders))
	yOffset := 0
	for i, r := range renders {
		b := r.Image.Bounds()
		dst := image.Rect(0, yOffset, b.Dx(), yOffset+b.Dy())
		draw.Draw(out, dst, r.Image, b.Min, draw.Src)

		segments = append(segments, model.PageSegment{
			Page:    clips[i].Page,
			Clip:    clips[i],
			YOffset: yOffset,
			DPI:     dpi,
			TrimX:   r.TrimX,
			TrimY:   r.TrimY,
			Width:   b.Dx(),
			Height:  b.Dy(),
		})

		yOffset += b.Dy()
	}

	return Result{Image: out, Segments: segments}, nil
}

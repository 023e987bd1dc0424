// Package raster renders PDF page clips to grayscale rasters with
// whitespace trim, the Rasterizer contract from the component design.
package raster

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"github.com/unidoc/unipdf/v4/model"
	"github.com/unidoc/unipdf/v4/render"
	xdraw "golang.org/x/image/draw"
)

// Clip describes a sub-rectangle of one PDF page, in PDF points
// (bottom-left origin).
type Clip struct {
	Page int
	X0   float64
	Y0   float64
	X1   float64
	Y1   float64
}

// Result is a rendered, whitespace-trimmed grayscale raster plus the
// trim offset needed to translate PDF points to raster pixels.
type Result struct {
	Image *image.Gray
	TrimX int
	TrimY int
}

// Rasterizer renders a PDF page clip to a grayscale image at a given
// DPI. Expressed as a narrow interface so it can be swapped out in
// tests without a real PDF library.
type Rasterizer interface {
	RenderClip(path string, clip Clip, dpi int) (Result, error)
}

// UnidocRasterizer is backed by github.com/unidoc/unipdf/v4's render
// package, rendering at native (72 DPI) resolution and then resampling
// to the target DPI with golang.org/x/image/draw.
type UnidocRasterizer struct {
	device *render.ImageDevice
}

func NewUnidocRasterizer() *UnidocRasterizer {
	return &UnidocRasterizer{device: render.NewImageDevice()}
}

func (r *UnidocRasterizer) RenderClip(path string, clip Clip, dpi int) (Result, error) {
	pdfReader, f, err := openReader(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	page, err := pdfReader.GetPage(clip.Page)
	if err != nil {
		return Result{}, fmt.Errorf("raster: loading page %d: %w", clip.Page, err)
	}

	img, err := r.device.Render(page)
	if err != nil {
		return Result{}, fmt.Errorf("raster: rendering page %d: %w", clip.Page, err)
	}

	cropped := cropToClip(img, clip)
	scaled := scaleToDPI(cropped, dpi)
	gray := toGray(scaled)
	trimmed, trimX, trimY := trimWhitespace(gray)

	return Result{Image: trimmed, TrimX: trimX, TrimY: trimY}, nil
}

// cropToClip crops the rendered full-page image (at native 72 DPI, so
// 1px == 1pt) down to the clip rectangle, flipping Y since image space
// has a top-left origin and PDF space has bottom-left.
func cropToClip(img image.Image, clip Clip) image.Image {
	b := img.Bounds()
	pageHeight := float64(b.Dy())

	y0 := pageHeight - clip.Y1
	y1 := pageHeight - clip.Y0
	rect := image.Rect(int(clip.X0), int(y0), int(clip.X1), int(y1))
	rect = rect.Intersect(b)
	if rect.Empty() {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}

	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out
}

// scaleToDPI resamples a 72-DPI-rendered image to the target DPI.
func scaleToDPI(img image.Image, dpi int) image.Image {
	if dpi == 72 {
		return img
	}
	factor := float64(dpi) / 72.0
	b := img.Bounds()
	w := int(float64(b.Dx()) * factor)
	h := int(float64(b.Dy()) * factor)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)
	return gray
}

// trimWhitespace trims near-white margins from a grayscale raster. The
// ink threshold comes from the 98th percentile of pixel darkness —
// the page is overwhelmingly background, so the darkest 2% of pixels
// are the glyphs and rules — and the padding scales with the trimmed
// content so faint anti-aliased glyph edges aren't clipped.
func trimWhitespace(img *image.Gray) (*image.Gray, int, int) {
	b := img.Bounds()

	threshold := darknessPercentileThreshold(img)

	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X, b.Min.Y
	found := false

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.GrayAt(x, y).Y < threshold {
				found = true
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}

	if !found {
		return img, 0, 0
	}

	// Dynamic padding: 1% of the mean of the content's width and height,
	// floored at 4px, so high-DPI renders keep proportionally the same
	// margin.
	padding := (maxX - minX + maxY - minY) / 200
	if padding < 4 {
		padding = 4
	}

	minX = max(b.Min.X, minX-padding)
	minY = max(b.Min.Y, minY-padding)
	maxX = min(b.Max.X, maxX+padding+1)
	maxY = min(b.Max.Y, maxY+padding+1)

	trimmed := image.NewGray(image.Rect(0, 0, maxX-minX, maxY-minY))
	draw.Draw(trimmed, trimmed.Bounds(), img, image.Pt(minX, minY), draw.Src)
	return trimmed, minX - b.Min.X, minY - b.Min.Y
}

// darknessPercentileThreshold returns the gray value separating the
// darkest 2% of pixels from the rest, clamped into [64, 250]. Dense
// pages get a threshold that tracks their actual ink level; sparse or
// blank pages, where the darkest 2% already reach into the background
// band, fall back to the near-white ceiling (a truly blank page then
// simply has no pixel below it).
func darknessPercentileThreshold(img *image.Gray) uint8 {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 250
	}

	var hist [256]int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[img.GrayAt(x, y).Y]++
		}
	}

	cutoff := total / 50 // darkest 2%
	cum := 0
	for v := 0; v < 256; v++ {
		cum += hist[v]
		if cum > cutoff {
			if v < 64 {
				return 64
			}
			if v > 250 {
				return 250
			}
			return uint8(v)
		}
	}
	return 250
}

func openReader(path string) (*model.PdfReader, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("raster: opening %s: %w", path, err)
	}
	reader, err := model.NewPdfReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("raster: reading %s: %w", path, err)
	}
	return reader, f, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

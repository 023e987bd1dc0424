package compositor

import (
	"image"
	"testing"

	"github.com/declanmoore/examcache/raster"
)

// fakeRasterizer returns a fixed-size blank render per clip, recording
// the clips it was asked for.
type fakeRasterizer struct {
	w, h  int
	clips []raster.Clip
}

func (f *fakeRasterizer) RenderClip(path string, clip raster.Clip, dpi int) (raster.Result, error) {
	f.clips = append(f.clips, clip)
	return raster.Result{Image: image.NewGray(image.Rect(0, 0, f.w, f.h))}, nil
}

func a4Dims(page int) (float64, float64) { return 595, 842 }

func TestCompositeSinglePageSpan(t *testing.T) {
	r := &fakeRasterizer{w: 100, h: 50}
	span := Span{StartPage: 1, StartY: 700, EndPage: 1, EndY: 300}

	result, err := Composite(r, "qp.pdf", span, 200, a4Dims)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	if len(result.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(result.Segments))
	}
	clip := r.clips[0]
	if clip.Y1 != 700 || clip.Y0 != 300 {
		t.Errorf("clip = (y0 %v, y1 %v), want (300, 700)", clip.Y0, clip.Y1)
	}
	if result.Segments[0].YOffset != 0 {
		t.Errorf("first segment YOffset = %d, want 0", result.Segments[0].YOffset)
	}
}

func TestCompositeMultiPageSpanTracksOffsets(t *testing.T) {
	r := &fakeRasterizer{w: 100, h: 50}
	span := Span{StartPage: 1, StartY: 400, EndPage: 3, EndY: 600}

	result, err := Composite(r, "qp.pdf", span, 200, a4Dims)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	if len(result.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(result.Segments))
	}
	// Middle page covers its full height; last page is clipped up from
	// EndY.
	if c := r.clips[1]; c.Y0 != 0 || c.Y1 != 842 {
		t.Errorf("middle clip = (%v, %v), want full page (0, 842)", c.Y0, c.Y1)
	}
	if c := r.clips[2]; c.Y0 != 600 || c.Y1 != 842 {
		t.Errorf("last clip = (%v, %v), want (600, 842)", c.Y0, c.Y1)
	}
	for i, seg := range result.Segments {
		if seg.YOffset != i*50 {
			t.Errorf("segment %d YOffset = %d, want %d", i, seg.YOffset, i*50)
		}
	}
	if got := result.Image.Bounds().Dy(); got != 150 {
		t.Errorf("stitched height = %d, want 150", got)
	}
}

func TestCompositeFallbackStartCoversWholePage(t *testing.T) {
	r := &fakeRasterizer{w: 100, h: 50}
	span := Span{StartPage: 2, StartY: 0, EndPage: 2, EndY: 0}

	result, err := Composite(r, "qp.pdf", span, 200, a4Dims)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	if len(result.Segments) != 1 {
		t.Fatalf("expected 1 segment for a fallback span, got %d", len(result.Segments))
	}
	if c := r.clips[0]; c.Y0 != 0 || c.Y1 != 842 {
		t.Errorf("fallback clip = (%v, %v), want the full page (0, 842)", c.Y0, c.Y1)
	}
}

func TestCompositeUsesWidestSegmentWidth(t *testing.T) {
	r := &fakeRasterizer{w: 120, h: 40}
	span := Span{StartPage: 1, StartY: 500, EndPage: 2, EndY: 400}

	result, err := Composite(r, "qp.pdf", span, 200, a4Dims)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	if got := result.Image.Bounds().Dx(); got != 120 {
		t.Errorf("stitched width = %d, want 120", got)
	}
}

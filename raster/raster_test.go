package raster

import (
	"image"
	"image/color"
	"testing"
)

func whitePage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func TestTrimWhitespaceLeavesBlankPageUntouched(t *testing.T) {
	img := whitePage(100, 100)
	trimmed, tx, ty := trimWhitespace(img)
	if tx != 0 || ty != 0 {
		t.Errorf("trim offset = (%d, %d), want (0, 0)", tx, ty)
	}
	if trimmed.Bounds() != img.Bounds() {
		t.Errorf("blank page should not shrink, got %v", trimmed.Bounds())
	}
}

func TestTrimWhitespaceCropsToInkWithPadding(t *testing.T) {
	img := whitePage(200, 200)
	// A block of ink well inside the margins.
	for y := 50; y < 60; y++ {
		for x := 40; x < 80; x++ {
			img.SetGray(x, y, color.Gray{Y: 0})
		}
	}

	trimmed, tx, ty := trimWhitespace(img)
	if tx <= 0 || ty <= 0 {
		t.Fatalf("expected positive trim offsets, got (%d, %d)", tx, ty)
	}
	if tx > 40 || ty > 50 {
		t.Errorf("trim offsets (%d, %d) cut into the ink block", tx, ty)
	}
	b := trimmed.Bounds()
	if b.Dx() >= 200 || b.Dy() >= 200 {
		t.Errorf("expected a smaller raster after trim, got %v", b)
	}
	// The ink must survive the crop at its translated position.
	if trimmed.GrayAt(40-tx, 50-ty).Y != 0 {
		t.Error("ink block missing from trimmed raster at translated origin")
	}
}

func TestDarknessPercentileThresholdSeparatesInkFromBackground(t *testing.T) {
	img := whitePage(100, 100)
	for y := 0; y < 30; y++ {
		for x := 0; x < 10; x++ {
			img.SetGray(x, y, color.Gray{Y: 20})
		}
	}
	threshold := darknessPercentileThreshold(img)
	if threshold <= 20 {
		t.Errorf("threshold %d excludes the ink it should capture", threshold)
	}
	if threshold > 250 {
		t.Errorf("threshold %d would classify background as ink", threshold)
	}

	blank := darknessPercentileThreshold(whitePage(50, 50))
	if blank != 250 {
		t.Errorf("blank page threshold = %d, want the near-white ceiling 250", blank)
	}
}

func TestScaleToDPIKeepsAspect(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 72, 144))
	dst := scaleToDPI(src, 144)
	if got := dst.Bounds(); got.Dx() != 144 || got.Dy() != 288 {
		t.Errorf("scaled bounds = %v, want 144x288", got)
	}
	if same := scaleToDPI(src, 72); same != src {
		t.Error("72 DPI should be a no-op passthrough")
	}
}

// Package pdfdoc validates source PDFs before the pipeline touches
// them: page counts and page dimensions via pdfcpu, which is far
// cheaper than spinning up a full render pass just to probe
// structure.
package pdfdoc

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Info describes the input-validation facts the orchestrator needs
// before starting extraction.
type Info struct {
	Path      string
	PageCount int
	// PageDims holds the width/height in points of each page, 1-indexed
	// (PageDims[0] is unused).
	PageDims []PageDim
}

type PageDim struct {
	WidthPt  float64
	HeightPt float64
}

// ErrNoPages is returned when a PDF has zero pages.
var ErrNoPages = fmt.Errorf("pdfdoc: document has no pages")

// Inspect validates a source PDF exists, is readable, and has at
// least one page, returning per-page dimensions for downstream clip
// construction.
func Inspect(path string) (Info, error) {
	if _, err := os.Stat(path); err != nil {
		return Info{}, fmt.Errorf("pdfdoc: %s: %w", path, err)
	}

	count, err := api.PageCountFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("pdfdoc: reading page count for %s: %w", path, err)
	}
	if count == 0 {
		return Info{}, ErrNoPages
	}

	dims, err := api.PageDimsFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("pdfdoc: reading page dimensions for %s: %w", path, err)
	}

	pageDims := make([]PageDim, count+1)
	for i, d := range dims {
		if i+1 > count {
			break
		}
		pageDims[i+1] = PageDim{WidthPt: d.Width, HeightPt: d.Height}
	}

	return Info{Path: path, PageCount: count, PageDims: pageDims}, nil
}

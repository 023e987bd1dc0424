package detect

import (
	"regexp"
	"sort"

	"github.com/declanmoore/examcache/model"
	"github.com/declanmoore/examcache/pdftext"
)

// MarkCandidate is a detected "[N]" mark annotation, still in
// PDF-point coordinates within one composite segment's clip, before
// outlier rejection.
type MarkCandidate struct {
	Value int
	Page  int
	Y     float64
	BBox  model.PDFClip
}

var markToken = regexp.MustCompile(`\[(\d{1,2})\]`)

// ScanMarkCandidates scans every line for `[N]` tokens and records
// their tight bboxes, without yet rejecting outliers.
func ScanMarkCandidates(lines []pdftext.Line, page int) []MarkCandidate {
	var out []MarkCandidate
	for _, line := range lines {
		for _, m := range markToken.FindAllStringSubmatchIndex(line.Text, -1) {
			valStr := line.Text[m[2]:m[3]]
			val := atoiSafe(valStr)
			if val < 0 {
				continue
			}
			charStart := byteOffsetToCharIndex(line, m[0])
			charEnd := byteOffsetToCharIndex(line, m[1])
			x0, y0, x1, y1 := pdftext.LineBBox(line, charStart, charEnd)
			out = append(out, MarkCandidate{
				Value: val,
				Page:  page,
				Y:     line.Y,
				BBox:  model.PDFClip{Page: page, X0: x0, Y0: y0, X1: x1, Y1: y1},
			})
		}
	}
	return out
}

// RejectionReason explains why a mark candidate was discarded.
type RejectionReason struct {
	Candidate   MarkCandidate
	DeviationPt float64
}

// FilterOutliersPx implements the outlier rejection over candidates
// already translated into composite-pixel units, where Y ascends down
// the page: cluster by page using Y-gaps of 200px or more, keep marks
// within 100px of the rightmost mark's right edge per cluster, and
// flag a minor-variance condition when survivors still spread by more
// than 10px. Bracketed numbers inside prose routinely pass the token
// scan; this is the pass that kills them.
func FilterOutliersPx(candidates []MarkCandidate) (accepted []MarkCandidate, rejected []RejectionReason, minorVariance bool) {
	return filterOutliers(candidates, 100, 10, 200)
}

func filterOutliers(candidates []MarkCandidate, deviationThreshold, varianceThreshold, clusterGap float64) ([]MarkCandidate, []RejectionReason, bool) {
	if len(candidates) == 0 {
		return nil, nil, false
	}

	sorted := make([]MarkCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Page != sorted[j].Page {
			return sorted[i].Page < sorted[j].Page
		}
		return sorted[i].Y < sorted[j].Y
	})

	clusters := clusterByGap(sorted, clusterGap)

	var accepted []MarkCandidate
	var rejected []RejectionReason
	minorVariance := false

	for _, cluster := range clusters {
		rMax := cluster[0].BBox.X1
		for _, c := range cluster {
			if c.BBox.X1 > rMax {
				rMax = c.BBox.X1
			}
		}

		var survivors []MarkCandidate
		for _, c := range cluster {
			dev := rMax - c.BBox.X1
			if dev > deviationThreshold {
				rejected = append(rejected, RejectionReason{Candidate: c, DeviationPt: dev})
				continue
			}
			survivors = append(survivors, c)
		}

		if len(survivors) > 0 {
			minR, maxR := survivors[0].BBox.X1, survivors[0].BBox.X1
			for _, s := range survivors {
				if s.BBox.X1 < minR {
					minR = s.BBox.X1
				}
				if s.BBox.X1 > maxR {
					maxR = s.BBox.X1
				}
			}
			if maxR-minR > varianceThreshold {
				minorVariance = true
			}
		}

		accepted = append(accepted, survivors...)
	}

	return accepted, rejected, minorVariance
}

func clusterByGap(sorted []MarkCandidate, gap float64) [][]MarkCandidate {
	var clusters [][]MarkCandidate
	var cur []MarkCandidate
	for i, c := range sorted {
		if i == 0 {
			cur = append(cur, c)
			continue
		}
		prev := sorted[i-1]
		if c.Page != prev.Page || c.Y-prev.Y >= gap {
			clusters = append(clusters, cur)
			cur = nil
		}
		cur = append(cur, c)
	}
	if len(cur) > 0 {
		clusters = append(clusters, cur)
	}
	return clusters
}

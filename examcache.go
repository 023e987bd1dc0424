// Package examcache turns a folder of exam question-paper PDFs into a
// content-addressable cache of per-question composite images, region
// metadata, and catalog/search records.
//
// Pipeline is the facade most callers want: it owns the extractor,
// rasterizer, image write queue, and diagnostics collector described
// by a Config and exposes them as the single orchestrator.Deps value
// each per-PDF run needs.
package examcache

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"time"

	"github.com/declanmoore/examcache/diagnostics"
	"github.com/declanmoore/examcache/orchestrator"
	"github.com/declanmoore/examcache/pdfdoc"
	"github.com/declanmoore/examcache/pdftext"
	"github.com/declanmoore/examcache/raster"
	"github.com/declanmoore/examcache/searchindex"
	"github.com/declanmoore/examcache/topic"
	"github.com/declanmoore/examcache/writer"
)

// Pipeline is a ready-to-run extraction engine built from a Config.
// The zero value is not usable; build one with New.
type Pipeline struct {
	cfg       Config
	collector *diagnostics.Collector
	index     *searchindex.Index
	queue     *writer.ImageQueue
	extractor pdftext.Extractor
	raster    raster.Rasterizer
	classifier topic.Classifier
}

// New builds a Pipeline from cfg, opening the search index (if enabled)
// and starting the image write worker pool. Call Close when done.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:       cfg,
		extractor: pdftext.NewLedongExtractor(),
		raster:    raster.NewUnidocRasterizer(),
	}

	if cfg.Diagnostics.Enabled {
		p.collector = diagnostics.NewCollector()
	}

	if cfg.SearchIndex.Enabled {
		idx, err := searchindex.Open(cfg.SearchIndex.DBPath)
		if err != nil {
			return nil, fmt.Errorf("examcache: opening search index: %w", err)
		}
		p.index = idx
	}

	if cfg.Writer.ImageWriteWorkers > 0 {
		p.queue = writer.NewImageQueue(cfg.Writer.ImageWriteWorkers)
	}

	return p, nil
}

// SetClassifier installs an optional topic classifier. Uninstalled,
// questions are tagged
// topic.Unknown and land under the cache's "unclassified" bucket.
func (p *Pipeline) SetClassifier(c topic.Classifier) {
	p.classifier = c
}

// Close drains the image write queue and closes the search index,
// surfacing any errors encountered by background writes.
func (p *Pipeline) Close() error {
	var errs []error
	if p.queue != nil {
		for _, err := range p.queue.Close() {
			errs = append(errs, err)
		}
	}
	if p.index != nil {
		if err := p.index.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Collector exposes the diagnostics collector so a caller can write a
// report after a batch of PDFs sharing an exam code has finished.
func (p *Pipeline) Collector() *diagnostics.Collector {
	return p.collector
}

// ExtractPDF runs the full extraction pipeline over one question-paper
// PDF, translating Config into orchestrator.Deps. Queued composite
// writes are flushed before the result is returned, so the PDF's cache
// entries are complete on disk when this call ends.
func (p *Pipeline) ExtractPDF(ctx context.Context, qpPath string) orchestrator.PDFResult {
	deps := orchestrator.Deps{
		TextExtractor:         p.extractor,
		Rasterizer:            p.raster,
		Classifier:            p.classifier,
		SearchIndex:           p.index,
		Collector:             p.collector,
		ImageQueue:            p.queue,
		CacheRoot:             p.cfg.CacheRoot,
		DPI:                   p.cfg.DPI,
		LockTimeout:           lockTimeoutOrDefault(p.cfg.Writer.LockTimeout),
		NumeralBBoxMaxWidthPx: p.cfg.Detection.NumeralBBoxMaxWidthPx,
		ExtractMarkScheme:     true,
	}
	if p.cfg.Diagnostics.Overlay {
		deps.OverlayFactory = func(composite image.Image) diagnostics.Overlay {
			return diagnostics.NewImageOverlay(composite)
		}
	}
	result := orchestrator.ExtractPDF(ctx, deps, qpPath)
	if p.queue != nil {
		p.queue.Flush()
	}
	result.Err = translateErr(result.Err)
	return result
}

// Search runs a keyword query over the FTS side-index.
func (p *Pipeline) Search(ctx context.Context, query, examCode string, limit int) ([]searchindex.SearchResult, error) {
	if p.index == nil {
		return nil, ErrSearchIndexDisabled
	}
	return p.index.Search(ctx, query, examCode, limit)
}

// translateErr maps the whole-PDF failures raised inside the run onto
// this package's input-error sentinels, so callers match one taxonomy
// with errors.Is regardless of which stage failed.
func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrDocumentNotFound, err)
	case errors.Is(err, pdfdoc.ErrNoPages):
		return fmt.Errorf("%w: %w", ErrEmptyDocument, err)
	case errors.Is(err, orchestrator.ErrNoNumerals):
		return fmt.Errorf("%w: %w", ErrNoQuestionsDetected, err)
	case errors.Is(err, orchestrator.ErrUnrecognizedFilename):
		return fmt.Errorf("%w: %w", ErrUnsupportedExamCode, err)
	default:
		return err
	}
}

// WriteDiagnosticsReport renders all of the collector's current
// findings (from every PDF this Pipeline has extracted, whatever its
// exam code) to cacheRoot/examCode/_metadata/detection_diagnostics.json.
// It writes nothing when Config.Diagnostics.WriteReport is off.
func (p *Pipeline) WriteDiagnosticsReport(examCode string) error {
	if !p.cfg.Diagnostics.WriteReport {
		return nil
	}
	return orchestrator.WriteDiagnosticsReport(p.collector, p.cfg.CacheRoot, examCode)
}

// lockTimeoutOrDefault guards against a zero Config.Writer.LockTimeout
// reaching the writer package as an instantly-expiring deadline.
func lockTimeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}

package examcache

import "errors"

var (
	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("examcache: invalid configuration")

	// Input errors: the source PDF itself cannot be processed. These
	// stop extraction for the affected PDF only; per-question failures
	// never surface here — they are caught inside the run, logged, and
	// downgraded to invalid_question diagnostics.

	// ErrDocumentNotFound is returned when a source PDF path does not exist.
	ErrDocumentNotFound = errors.New("examcache: document not found")

	// ErrEmptyDocument is returned when a question paper or mark scheme
	// PDF has zero pages.
	ErrEmptyDocument = errors.New("examcache: document has no pages")

	// ErrNoQuestionsDetected is returned when numeral detection finds
	// no question starts at all in a question paper.
	ErrNoQuestionsDetected = errors.New("examcache: no questions detected")

	// ErrUnsupportedExamCode is returned when the exam code cannot be
	// parsed from the source filename or does not match the 4-digit form.
	ErrUnsupportedExamCode = errors.New("examcache: unsupported or missing exam code")

	// ErrSearchIndexDisabled is returned when a search operation is
	// requested but the search index is not enabled in configuration.
	ErrSearchIndexDisabled = errors.New("examcache: search index is disabled")
)

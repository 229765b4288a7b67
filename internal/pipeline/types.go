package pipeline

import "context"

// Document identifies one input unit: a source handle (local path, Drive file
// ID, or storage object name), a display name, and an optional size hint.
// Immutable once enumerated.
type Document struct {
	Handle string
	Name   string
	Size   int64
}

// Extraction is the payload of one successful OCR call: page markdown joined
// into a single document, plus any images the model returned keyed by name.
type Extraction struct {
	Markdown string
	Images   map[string][]byte
	Pages    int
}

// Extractor converts one document into markdown. Implementations must be safe
// for concurrent use by multiple workers.
type Extractor interface {
	Extract(ctx context.Context, doc Document) (*Extraction, error)
}

// Sink persists one extraction and returns a human-readable description of
// where the result went. Implementations must be safe for concurrent use.
type Sink interface {
	Store(ctx context.Context, doc Document, ext *Extraction) (string, error)
}

// SkipFunc decides whether a document can bypass OCR entirely (for example
// because it already carries a text layer). It must be cheap relative to an
// OCR call and must never invoke the extractor itself.
type SkipFunc func(ctx context.Context, doc Document) (skip bool, reason string, err error)

// Status tags the result of processing one document.
type Status int

const (
	StatusSucceeded Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of processing one document. Exactly one
// outcome is produced per submitted document; it is immutable once created.
type Outcome struct {
	Doc    Document
	Status Status

	// Populated on success.
	Chars  int
	Images int
	Pages  int
	Dest   string

	// Populated on skip.
	Reason string

	// Populated on failure.
	Err error
}

// Summary aggregates one pipeline run. EstimatedCost is Succeeded times the
// configured unit price; documents are priced per unit regardless of page
// count, reflecting the rough nature of the estimate.
type Summary struct {
	Succeeded     int
	Skipped       int
	Failed        int
	EstimatedCost float64
}

// Total is the number of outcomes captured. On a cancelled run this can be
// less than the number of submitted documents; the difference is the count of
// documents that were never dispatched.
func (s Summary) Total() int {
	return s.Succeeded + s.Skipped + s.Failed
}

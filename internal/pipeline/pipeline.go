// Package pipeline fans a list of documents out to bounded-parallel
// OCR+store operations and aggregates per-document outcomes into a run
// summary. Per-document failures never abort the run: OCR calls are billed
// and rate-limited per call, and one malformed document must not poison the
// batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pipeline executes one batch run. The zero value is not usable: Extractor
// and Sink must be set. All other fields are optional.
type Pipeline struct {
	Extractor Extractor
	Sink      Sink

	// Skip, when set, is consulted before each OCR call.
	Skip SkipFunc

	// Concurrency bounds the number of in-flight documents. Values below 1
	// are treated as 1 (fully sequential).
	Concurrency int

	// CallTimeout, when positive, bounds each individual Extract and Store
	// call. A timed-out call becomes a failed outcome, not a run failure.
	CallTimeout time.Duration

	// UnitPrice is the per-document price used for the cost estimate.
	UnitPrice float64

	// OnOutcome, when set, observes outcomes in completion order. Calls are
	// serialized; the callback must not block longer than needed.
	OnOutcome func(Outcome)
}

// Run processes docs and returns the finalized summary. It never returns an
// error: per-document failures are captured as outcomes, and configuration
// problems belong to the caller. Cancelling ctx stops dispatch of new
// documents; documents already in flight run to completion.
func (p *Pipeline) Run(ctx context.Context, docs []Document) Summary {
	var sum Summary
	if len(docs) == 0 {
		return sum
	}

	limit := p.Concurrency
	if limit < 1 {
		limit = 1
	}

	var mu sync.Mutex
	record := func(o Outcome) {
		mu.Lock()
		defer mu.Unlock()
		switch o.Status {
		case StatusSucceeded:
			sum.Succeeded++
		case StatusSkipped:
			sum.Skipped++
		case StatusFailed:
			sum.Failed++
		}
		if p.OnOutcome != nil {
			p.OnOutcome(o)
		}
	}

	eg := new(errgroup.Group)
	eg.SetLimit(limit)

	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		doc := doc
		eg.Go(func() error {
			// Re-check after waiting for a worker slot: a document that was
			// queued but not yet started counts as never dispatched.
			if ctx.Err() != nil {
				return nil
			}
			record(p.process(ctx, doc))
			return nil
		})
	}
	_ = eg.Wait()

	sum.EstimatedCost = float64(sum.Succeeded) * p.UnitPrice
	return sum
}

// process runs the pre-check/OCR/store triad for a single document and maps
// every error path to a value.
func (p *Pipeline) process(ctx context.Context, doc Document) Outcome {
	if p.Skip != nil {
		skip, reason, err := p.Skip(ctx, doc)
		if err != nil {
			return Outcome{Doc: doc, Status: StatusFailed, Err: fmt.Errorf("skip check: %w", err)}
		}
		if skip {
			return Outcome{Doc: doc, Status: StatusSkipped, Reason: reason}
		}
	}

	ext, err := p.extract(ctx, doc)
	if err != nil {
		return Outcome{Doc: doc, Status: StatusFailed, Err: err}
	}

	dest, err := p.store(ctx, doc, ext)
	if err != nil {
		return Outcome{Doc: doc, Status: StatusFailed, Err: err}
	}

	return Outcome{
		Doc:    doc,
		Status: StatusSucceeded,
		Chars:  len(ext.Markdown),
		Images: len(ext.Images),
		Pages:  ext.Pages,
		Dest:   dest,
	}
}

func (p *Pipeline) extract(ctx context.Context, doc Document) (*Extraction, error) {
	ctx, cancel := p.callContext(ctx)
	defer cancel()

	ext, err := p.Extractor.Extract(ctx, doc)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("ocr timed out after %s: %w", p.CallTimeout, err)
		}
		return nil, fmt.Errorf("ocr: %w", err)
	}
	if ext == nil {
		return nil, errors.New("ocr: extractor returned no result")
	}
	return ext, nil
}

func (p *Pipeline) store(ctx context.Context, doc Document, ext *Extraction) (string, error) {
	ctx, cancel := p.callContext(ctx)
	defer cancel()

	dest, err := p.Sink.Store(ctx, doc, ext)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("store timed out after %s: %w", p.CallTimeout, err)
		}
		return "", fmt.Errorf("store: %w", err)
	}
	return dest, nil
}

func (p *Pipeline) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.CallTimeout > 0 {
		return context.WithTimeout(ctx, p.CallTimeout)
	}
	return context.WithCancel(ctx)
}

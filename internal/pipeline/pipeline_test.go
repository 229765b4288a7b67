package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExtractor struct {
	calls atomic.Int64
	delay time.Duration
	fn    func(doc Document) (*Extraction, error)
}

func (s *stubExtractor) Extract(ctx context.Context, doc Document) (*Extraction, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.fn != nil {
		return s.fn(doc)
	}
	return &Extraction{Markdown: "# " + doc.Name, Pages: 1}, nil
}

type stubSink struct {
	calls atomic.Int64
	fn    func(doc Document) (string, error)
}

func (s *stubSink) Store(ctx context.Context, doc Document, ext *Extraction) (string, error) {
	s.calls.Add(1)
	if s.fn != nil {
		return s.fn(doc)
	}
	return "mem://" + doc.Name, nil
}

func makeDocs(n int) []Document {
	docs := make([]Document, n)
	for i := range docs {
		docs[i] = Document{Handle: fmt.Sprintf("/in/doc-%d.pdf", i), Name: fmt.Sprintf("doc-%d.pdf", i)}
	}
	return docs
}

func TestRunEmptyInput(t *testing.T) {
	ext := &stubExtractor{}
	sink := &stubSink{}
	p := &Pipeline{Extractor: ext, Sink: sink, Concurrency: 4, UnitPrice: 0.001}

	sum := p.Run(context.Background(), nil)

	assert.Equal(t, Summary{}, sum)
	assert.Zero(t, ext.calls.Load())
	assert.Zero(t, sink.calls.Load())
}

func TestRunEveryDocumentYieldsOneOutcome(t *testing.T) {
	docs := makeDocs(9)
	ext := &stubExtractor{fn: func(doc Document) (*Extraction, error) {
		if doc.Name == "doc-4.pdf" {
			return nil, errors.New("service unavailable")
		}
		return &Extraction{Markdown: "x"}, nil
	}}
	p := &Pipeline{
		Extractor:   ext,
		Sink:        &stubSink{},
		Concurrency: 3,
		Skip: func(ctx context.Context, doc Document) (bool, string, error) {
			return doc.Name == "doc-1.pdf" || doc.Name == "doc-7.pdf", "already searchable", nil
		},
	}

	var delivered atomic.Int64
	p.OnOutcome = func(Outcome) { delivered.Add(1) }

	sum := p.Run(context.Background(), docs)

	assert.Equal(t, len(docs), sum.Total())
	assert.Equal(t, 6, sum.Succeeded)
	assert.Equal(t, 2, sum.Skipped)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, int64(len(docs)), delivered.Load())
}

func TestRunSequentialMatchesParallel(t *testing.T) {
	docs := makeDocs(12)
	newPipeline := func(workers int, got map[string]Status) *Pipeline {
		return &Pipeline{
			Extractor: &stubExtractor{fn: func(doc Document) (*Extraction, error) {
				if doc.Name == "doc-3.pdf" || doc.Name == "doc-8.pdf" {
					return nil, errors.New("boom")
				}
				return &Extraction{Markdown: "x"}, nil
			}},
			Sink:        &stubSink{},
			Concurrency: workers,
			OnOutcome:   func(o Outcome) { got[o.Doc.Name] = o.Status },
		}
	}

	seq := map[string]Status{}
	par := map[string]Status{}
	sumSeq := newPipeline(1, seq).Run(context.Background(), docs)
	sumPar := newPipeline(8, par).Run(context.Background(), docs)

	assert.Equal(t, sumSeq, sumPar)
	assert.Equal(t, seq, par)
}

func TestSkipPredicateShortCircuitsOCR(t *testing.T) {
	ext := &stubExtractor{}
	sink := &stubSink{}
	p := &Pipeline{
		Extractor:   ext,
		Sink:        sink,
		Concurrency: 2,
		Skip: func(ctx context.Context, doc Document) (bool, string, error) {
			return true, "already searchable (812 chars)", nil
		},
	}

	var reasons []string
	p.OnOutcome = func(o Outcome) { reasons = append(reasons, o.Reason) }

	sum := p.Run(context.Background(), makeDocs(5))

	assert.Equal(t, 5, sum.Skipped)
	assert.Zero(t, ext.calls.Load())
	assert.Zero(t, sink.calls.Load())
	require.Len(t, reasons, 5)
	assert.Equal(t, "already searchable (812 chars)", reasons[0])
}

func TestSkipCheckErrorBecomesFailedOutcome(t *testing.T) {
	ext := &stubExtractor{}
	p := &Pipeline{
		Extractor:   ext,
		Sink:        &stubSink{},
		Concurrency: 1,
		Skip: func(ctx context.Context, doc Document) (bool, string, error) {
			return false, "", errors.New("corrupt xref table")
		},
	}

	sum := p.Run(context.Background(), makeDocs(1))

	assert.Equal(t, 1, sum.Failed)
	assert.Zero(t, ext.calls.Load())
}

func TestSingleFailureDoesNotAffectOthers(t *testing.T) {
	docs := makeDocs(5)
	p := &Pipeline{
		Extractor: &stubExtractor{fn: func(doc Document) (*Extraction, error) {
			if doc.Name == "doc-2.pdf" {
				return nil, errors.New("422 unprocessable document")
			}
			return &Extraction{Markdown: "ok"}, nil
		}},
		Sink:        &stubSink{},
		Concurrency: 5,
	}

	var failed []string
	p.OnOutcome = func(o Outcome) {
		if o.Status == StatusFailed {
			failed = append(failed, o.Doc.Name)
		}
	}

	sum := p.Run(context.Background(), docs)

	assert.Equal(t, 4, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	require.Len(t, failed, 1)
	assert.Equal(t, "doc-2.pdf", failed[0])
}

func TestSinkFailureBecomesFailedOutcome(t *testing.T) {
	p := &Pipeline{
		Extractor:   &stubExtractor{},
		Sink:        &stubSink{fn: func(Document) (string, error) { return "", errors.New("disk full") }},
		Concurrency: 1,
	}

	var got Outcome
	p.OnOutcome = func(o Outcome) { got = o }

	sum := p.Run(context.Background(), makeDocs(1))

	assert.Equal(t, 1, sum.Failed)
	require.Error(t, got.Err)
	assert.Contains(t, got.Err.Error(), "store")
}

func TestEstimatedCost(t *testing.T) {
	p := &Pipeline{
		Extractor:   &stubExtractor{},
		Sink:        &stubSink{},
		Concurrency: 4,
		UnitPrice:   0.001,
	}

	sum := p.Run(context.Background(), makeDocs(7))

	assert.Equal(t, 7, sum.Succeeded)
	assert.InDelta(t, 0.007, sum.EstimatedCost, 1e-9)
}

func TestCallTimeoutBecomesFailedOutcome(t *testing.T) {
	p := &Pipeline{
		Extractor:   &stubExtractor{delay: 500 * time.Millisecond},
		Sink:        &stubSink{},
		Concurrency: 1,
		CallTimeout: 20 * time.Millisecond,
	}

	var got Outcome
	p.OnOutcome = func(o Outcome) { got = o }

	sum := p.Run(context.Background(), makeDocs(1))

	assert.Equal(t, 1, sum.Failed)
	require.Error(t, got.Err)
	assert.Contains(t, got.Err.Error(), "timed out")
	assert.ErrorIs(t, got.Err, context.DeadlineExceeded)
}

func TestCancellationStopsDispatch(t *testing.T) {
	const total = 20
	const cancelAfter = 3

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ext := &stubExtractor{delay: 30 * time.Millisecond}
	p := &Pipeline{
		Extractor:   ext,
		Sink:        &stubSink{},
		Concurrency: 2,
	}

	var completed atomic.Int64
	p.OnOutcome = func(Outcome) {
		if completed.Add(1) == cancelAfter {
			cancel()
		}
	}

	sum := p.Run(ctx, makeDocs(total))

	assert.GreaterOrEqual(t, sum.Total(), cancelAfter)
	assert.Less(t, sum.Total(), total)
	// Every extract call is matched by an outcome: nothing was dispatched
	// after cancellation.
	assert.Equal(t, int64(sum.Total()), ext.calls.Load())
}

func TestFastResultsSurfaceBeforeSlowOnes(t *testing.T) {
	docs := makeDocs(4)
	p := &Pipeline{
		Extractor: &stubExtractor{fn: func(doc Document) (*Extraction, error) {
			if doc.Name == "doc-0.pdf" {
				time.Sleep(150 * time.Millisecond)
			}
			return &Extraction{Markdown: "x"}, nil
		}},
		Sink:        &stubSink{},
		Concurrency: 4,
	}

	var order []string
	p.OnOutcome = func(o Outcome) { order = append(order, o.Doc.Name) }

	p.Run(context.Background(), docs)

	require.Len(t, order, 4)
	assert.NotEqual(t, "doc-0.pdf", order[0], "slow document should not block fast ones")
	assert.Equal(t, "doc-0.pdf", order[len(order)-1])
}

func TestSuccessOutcomeCarriesExtractionDetails(t *testing.T) {
	p := &Pipeline{
		Extractor: &stubExtractor{fn: func(doc Document) (*Extraction, error) {
			return &Extraction{
				Markdown: "# Title\n\nbody",
				Images:   map[string][]byte{"img-0.jpeg": {0xff, 0xd8}},
				Pages:    2,
			}, nil
		}},
		Sink:        &stubSink{},
		Concurrency: 1,
	}

	var got Outcome
	p.OnOutcome = func(o Outcome) { got = o }

	p.Run(context.Background(), makeDocs(1))

	assert.Equal(t, StatusSucceeded, got.Status)
	assert.Equal(t, len("# Title\n\nbody"), got.Chars)
	assert.Equal(t, 1, got.Images)
	assert.Equal(t, 2, got.Pages)
	assert.Equal(t, "mem://doc-0.pdf", got.Dest)
}

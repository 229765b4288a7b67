package gcs

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/ocrmill/ocrmill/internal/ocr"
	"github.com/ocrmill/ocrmill/internal/pdfcheck"
	"github.com/ocrmill/ocrmill/internal/pipeline"
)

// Processor implements the pipeline capabilities over a source bucket. The
// skip predicate downloads each object once and hands the bytes to the
// subsequent extract call, so a document is fetched a single time regardless
// of how the pre-check resolves.
type Processor struct {
	store    *Store
	bucket   string
	engine   ocr.Engine
	minChars int

	mu       sync.Mutex
	inflight map[string][]byte
}

// NewProcessor creates a Processor. minChars of 0 or below disables nothing;
// it simply falls back to the pdfcheck default.
func NewProcessor(store *Store, bucket string, engine ocr.Engine, minChars int) *Processor {
	return &Processor{
		store:    store,
		bucket:   bucket,
		engine:   engine,
		minChars: minChars,
		inflight: make(map[string][]byte),
	}
}

// SkipSearchable is a pipeline.SkipFunc: it downloads the object, caches the
// bytes for Extract, and reports whether the PDF already has a text layer.
func (p *Processor) SkipSearchable(ctx context.Context, doc pipeline.Document) (bool, string, error) {
	data, err := p.store.Download(ctx, p.bucket, doc.Handle)
	if err != nil {
		return false, "", err
	}

	report, err := pdfcheck.InspectBytes(data, p.minChars)
	if err != nil {
		return false, "", err
	}
	if report.Searchable {
		return true, fmt.Sprintf("already searchable (%d chars)", report.Chars), nil
	}

	p.mu.Lock()
	p.inflight[doc.Handle] = data
	p.mu.Unlock()
	return false, "", nil
}

// Extract consumes the bytes cached by the skip check, or downloads them if
// the pipeline runs without a predicate.
func (p *Processor) Extract(ctx context.Context, doc pipeline.Document) (*pipeline.Extraction, error) {
	p.mu.Lock()
	data, ok := p.inflight[doc.Handle]
	delete(p.inflight, doc.Handle)
	p.mu.Unlock()

	if !ok {
		var err error
		data, err = p.store.Download(ctx, p.bucket, doc.Handle)
		if err != nil {
			return nil, err
		}
	}
	return p.engine.OCR(ctx, doc.Name, data)
}

// Sink persists extractions under Bucket/Prefix: <base>.md written
// atomically, images uploaded under <base>_images/.
type Sink struct {
	store        *Store
	Bucket       string
	Prefix       string
	InlineImages bool
}

// NewSink creates a Sink backed by store.
func NewSink(store *Store, bucket, prefix string) *Sink {
	return &Sink{store: store, Bucket: bucket, Prefix: prefix}
}

func (s *Sink) Store(ctx context.Context, doc pipeline.Document, ext *pipeline.Extraction) (string, error) {
	base := strings.TrimSuffix(doc.Name, path.Ext(doc.Name))
	markdown := ext.Markdown
	if s.InlineImages {
		markdown = ocr.InlineImages(markdown, ext.Images)
	}

	mdObject := path.Join(s.Prefix, base+".md")
	if err := s.store.SaveAtomically(ctx, s.Bucket, mdObject, []byte(markdown)); err != nil {
		return "", err
	}

	if !s.InlineImages {
		for name, data := range ext.Images {
			imgObject := path.Join(s.Prefix, base+"_images", path.Base(name))
			if err := s.store.Upload(ctx, s.Bucket, imgObject, data, imageContentType(name)); err != nil {
				return "", err
			}
		}
	}

	return fmt.Sprintf("gs://%s/%s", s.Bucket, mdObject), nil
}

func imageContentType(name string) string {
	switch {
	case strings.HasSuffix(name, ".png"):
		return "image/png"
	case strings.HasSuffix(name, ".gif"):
		return "image/gif"
	default:
		return "image/jpeg"
	}
}

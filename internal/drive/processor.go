package drive

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

// Processor implements the pipeline capabilities over Drive. The skip
// predicate downloads each file once and caches the bytes for the subsequent
// extract, so every document crosses the wire a single time.
type Processor struct {
	client   *Client
	engine   ocr.Engine
	minChars int

	mu       sync.Mutex
	inflight map[string][]byte
}

// NewProcessor creates a Processor.
func NewProcessor(client *Client, engine ocr.Engine, minChars int) *Processor {
	return &Processor{
		client:   client,
		engine:   engine,
		minChars: minChars,
		inflight: make(map[string][]byte),
	}
}

// SkipSearchable is a pipeline.SkipFunc over Drive file IDs.
func (p *Processor) SkipSearchable(ctx context.Context, doc pipeline.Document) (bool, string, error) {
	data, err := p.client.Download(ctx, doc.Handle)
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

// Extract consumes cached bytes from the skip check, or downloads the file
// if the pipeline runs without a predicate.
func (p *Processor) Extract(ctx context.Context, doc pipeline.Document) (*pipeline.Extraction, error) {
	p.mu.Lock()
	data, ok := p.inflight[doc.Handle]
	delete(p.inflight, doc.Handle)
	p.mu.Unlock()

	if !ok {
		var err error
		data, err = p.client.Download(ctx, doc.Handle)
		if err != nil {
			return nil, err
		}
	}
	return p.engine.OCR(ctx, doc.Name, data)
}

// Sink uploads each document's results into its own <base>_ocr subfolder of
// FolderID: <base>.md plus any extracted images.
type Sink struct {
	client       *Client
	FolderID     string
	InlineImages bool
}

// NewSink creates a Sink writing under folderID.
func NewSink(client *Client, folderID string) *Sink {
	return &Sink{client: client, FolderID: folderID}
}

func (s *Sink) Store(ctx context.Context, doc pipeline.Document, ext *pipeline.Extraction) (string, error) {
	base := strings.TrimSuffix(doc.Name, path.Ext(doc.Name))

	folderID, err := s.client.CreateFolder(ctx, base+"_ocr", s.FolderID)
	if err != nil {
		return "", err
	}

	markdown := ext.Markdown
	if s.InlineImages {
		markdown = ocr.InlineImages(markdown, ext.Images)
	}
	if _, err := s.client.Upload(ctx, base+".md", []byte(markdown), "text/markdown", folderID); err != nil {
		return "", err
	}

	if !s.InlineImages {
		for name, data := range ext.Images {
			if _, err := s.client.Upload(ctx, path.Base(name), data, imageContentType(name), folderID); err != nil {
				return "", err
			}
		}
	}

	return fmt.Sprintf("Drive folder %s_ocr", base), nil
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

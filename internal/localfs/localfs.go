// Package localfs enumerates PDF documents in a local directory and persists
// OCR results next to them, mirroring the Drive-backed source and sink.
package localfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ocrmill/ocrmill/internal/ocr"
	"github.com/ocrmill/ocrmill/internal/pdfcheck"
	"github.com/ocrmill/ocrmill/internal/pipeline"
)

// ListPDFs returns the PDFs directly under dir, sorted by name. The Handle
// of each document is its absolute path.
func ListPDFs(dir string) ([]pipeline.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("localfs: read directory %s: %w", dir, err)
	}

	var docs []pipeline.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		path, err := filepath.Abs(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("localfs: resolve %s: %w", entry.Name(), err)
		}
		var size int64
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		docs = append(docs, pipeline.Document{Handle: path, Name: entry.Name(), Size: size})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// Extractor reads document bytes from disk and delegates to an OCR engine.
type Extractor struct {
	Engine ocr.Engine
}

func (e *Extractor) Extract(ctx context.Context, doc pipeline.Document) (*pipeline.Extraction, error) {
	data, err := os.ReadFile(doc.Handle)
	if err != nil {
		return nil, fmt.Errorf("localfs: read %s: %w", doc.Name, err)
	}
	return e.Engine.OCR(ctx, doc.Name, data)
}

// SkipSearchable returns a skip predicate that bypasses OCR for PDFs already
// carrying at least minChars of extractable text.
func SkipSearchable(minChars int) pipeline.SkipFunc {
	return func(ctx context.Context, doc pipeline.Document) (bool, string, error) {
		report, err := pdfcheck.InspectFile(doc.Handle, minChars)
		if err != nil {
			return false, "", err
		}
		if !report.Searchable {
			return false, "", nil
		}
		return true, fmt.Sprintf("already searchable (%d chars)", report.Chars), nil
	}
}

// Sink writes <base>.md (and a <base>_images directory when the extraction
// carries images) into Dir, creating it on demand.
type Sink struct {
	Dir          string
	InlineImages bool
}

func (s *Sink) Store(ctx context.Context, doc pipeline.Document, ext *pipeline.Extraction) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("localfs: create output directory %s: %w", s.Dir, err)
	}

	base := strings.TrimSuffix(doc.Name, filepath.Ext(doc.Name))
	markdown := ext.Markdown
	if s.InlineImages {
		markdown = ocr.InlineImages(markdown, ext.Images)
	}

	mdPath := filepath.Join(s.Dir, base+".md")
	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("localfs: write %s: %w", mdPath, err)
	}

	if !s.InlineImages && len(ext.Images) > 0 {
		imgDir := filepath.Join(s.Dir, base+"_images")
		if err := os.MkdirAll(imgDir, 0o755); err != nil {
			return "", fmt.Errorf("localfs: create image directory %s: %w", imgDir, err)
		}
		for name, data := range ext.Images {
			imgPath := filepath.Join(imgDir, filepath.Base(name))
			if err := os.WriteFile(imgPath, data, 0o644); err != nil {
				return "", fmt.Errorf("localfs: write %s: %w", imgPath, err)
			}
		}
	}

	return mdPath, nil
}

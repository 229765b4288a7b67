// Package gcs provides the Cloud Storage source and sink: enumerating input
// PDFs, downloading objects, and persisting OCR results with idempotent
// writes and retried uploads.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/ocrmill/ocrmill/internal/pipeline"
)

// Store wraps a Cloud Storage client. The client is safe for concurrent use
// by multiple pipeline workers.
type Store struct {
	client *storage.Client
}

// NewStore creates a Store using application default credentials.
func NewStore(ctx context.Context) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs: create storage client: %w", err)
	}
	return &Store{client: client}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// ListPDFs enumerates .pdf objects under bucket/prefix, in the lexical order
// the iterator yields. The Handle of each document is the object name.
func (s *Store) ListPDFs(ctx context.Context, bucket, prefix string) ([]pipeline.Document, error) {
	it := s.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var docs []pipeline.Document
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs: list objects in gs://%s/%s: %w", bucket, prefix, err)
		}
		if !strings.HasSuffix(strings.ToLower(attrs.Name), ".pdf") {
			continue
		}
		docs = append(docs, pipeline.Document{
			Handle: attrs.Name,
			Name:   path.Base(attrs.Name),
			Size:   attrs.Size,
		})
	}
	return docs, nil
}

// Download reads one object fully into memory.
func (s *Store) Download(ctx context.Context, bucket, object string) ([]byte, error) {
	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs: open gs://%s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gcs: read gs://%s/%s: %w", bucket, object, err)
	}
	return data, nil
}

// SaveAtomically writes an object only if it doesn't already exist. An
// already-existing object is not a failure: re-runs are idempotent.
func (s *Store) SaveAtomically(ctx context.Context, bucket, object string, content []byte) error {
	w := s.client.Bucket(bucket).Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)

	if _, err := io.Copy(w, bytes.NewReader(content)); err != nil {
		_ = w.Close()
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == 412 {
			slog.Info("Object already exists, skipping write.", "gcsObject", object)
			return nil
		}
		return fmt.Errorf("gcs: write gs://%s/%s: %w", bucket, object, err)
	}
	if err := w.Close(); err != nil {
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == 412 {
			slog.Info("Object already exists, skipping write.", "gcsObject", object)
			return nil
		}
		return fmt.Errorf("gcs: finalize gs://%s/%s: %w", bucket, object, err)
	}
	return nil
}

// Upload writes an object, retrying transient failures with exponential
// backoff. Each attempt carries its own write timeout.
func (s *Store) Upload(ctx context.Context, bucket, object string, data []byte, contentType string) error {
	const maxRetries = 4
	backoff := 1 * time.Second
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := func() error {
			writeCtx, cancel := context.WithTimeout(ctx, 50*time.Second)
			defer cancel()

			w := s.client.Bucket(bucket).Object(object).NewWriter(writeCtx)
			if contentType != "" {
				w.ContentType = contentType
			}
			if _, err := w.Write(data); err != nil {
				_ = w.Close()
				return fmt.Errorf("write to GCS failed: %w", err)
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("finalize GCS write: %w", err)
			}
			return nil
		}()
		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn("Upload failed, will retry.",
			"gcsObject", object,
			"attempt", attempt+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("gcs: upload gs://%s/%s failed after all retries: %w", bucket, object, lastErr)
}

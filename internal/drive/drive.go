// Package drive enumerates PDFs in Google Drive, downloads their content,
// and uploads OCR results into per-document output folders.
package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"

	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/ocrmill/ocrmill/internal/pipeline"
)

const folderMimeType = "application/vnd.google-apps.folder"

// Client wraps the Drive service with the operations the pipeline needs.
// The underlying service is safe for concurrent use.
type Client struct {
	svc *driveapi.Service
}

// NewClient wraps an authenticated Drive service.
func NewClient(svc *driveapi.Service) *Client {
	return &Client{svc: svc}
}

// ListPDFs finds non-trashed PDFs, optionally restricted to one folder. A
// max of 0 or below returns everything. The Handle of each document is the
// Drive file ID.
func (c *Client) ListPDFs(ctx context.Context, folderID string, max int) ([]pipeline.Document, error) {
	query := "mimeType='application/pdf' and trashed=false"
	if folderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", folderID)
	}

	var docs []pipeline.Document
	pageToken := ""
	for {
		call := c.svc.Files.List().
			Context(ctx).
			Q(query).
			Fields("nextPageToken, files(id, name, size)").
			PageSize(1000)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("drive: list PDFs: %w", err)
		}
		for _, f := range res.Files {
			docs = append(docs, pipeline.Document{Handle: f.Id, Name: f.Name, Size: f.Size})
			if max > 0 && len(docs) == max {
				return docs, nil
			}
		}
		pageToken = res.NextPageToken
		if pageToken == "" {
			return docs, nil
		}
	}
}

// Download fetches a file's content fully into memory.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	res, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("drive: download file %s: %w", fileID, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("drive: read file %s: %w", fileID, err)
	}
	return data, nil
}

// CreateFolder creates a folder, optionally under a parent, and returns its ID.
func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	meta := &driveapi.File{Name: name, MimeType: folderMimeType}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	folder, err := c.svc.Files.Create(meta).Context(ctx).Fields("id").Do()
	if err != nil {
		return "", fmt.Errorf("drive: create folder %s: %w", name, err)
	}
	return folder.Id, nil
}

// Upload creates a file from in-memory content and returns its ID.
func (c *Client) Upload(ctx context.Context, name string, data []byte, mimeType, parentID string) (string, error) {
	meta := &driveapi.File{Name: name}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	f, err := c.svc.Files.Create(meta).
		Context(ctx).
		Media(bytes.NewReader(data), googleapi.ContentType(mimeType)).
		Fields("id").
		Do()
	if err != nil {
		return "", fmt.Errorf("drive: upload %s: %w", name, err)
	}
	return f.Id, nil
}

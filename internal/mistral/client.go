// Package mistral is a client for the hosted Mistral OCR endpoint
// (mistral-ocr-latest). Documents are submitted inline as base64 data URLs;
// the response carries per-page markdown plus any extracted images.
package mistral

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ocrmill/ocrmill/internal/pipeline"
)

const (
	// DefaultBaseURL is the production Mistral API endpoint.
	DefaultBaseURL = "https://api.mistral.ai"

	// DefaultModel is the OCR model used when none is configured.
	DefaultModel = "mistral-ocr-latest"

	// pageSeparator joins per-page markdown into one document, matching the
	// horizontal-rule convention downstream consumers use to count pages.
	pageSeparator = "\n\n---\n\n"
)

// ClientConfig holds configuration for the OCR client.
type ClientConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	IncludeImages bool
	HTTPClient    *http.Client
}

// Client calls the Mistral OCR API. It is stateless over a shared
// http.Client and safe for concurrent use by multiple pipeline workers.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	model         string
	apiKey        string
	includeImages bool
}

// NewClient creates a Client. The API key is mandatory; everything else
// falls back to defaults.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("mistral: API key must be provided")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		httpClient:    httpClient,
		baseURL:       baseURL,
		model:         model,
		apiKey:        cfg.APIKey,
		includeImages: cfg.IncludeImages,
	}, nil
}

// Name identifies the backend in provider selection and progress output.
func (c *Client) Name() string { return "mistral" }

type ocrRequest struct {
	Model              string         `json:"model"`
	Document           documentSource `json:"document"`
	IncludeImageBase64 bool           `json:"include_image_base64,omitempty"`
}

type documentSource struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type ocrResponse struct {
	Model     string    `json:"model"`
	Pages     []ocrPage `json:"pages"`
	UsageInfo usageInfo `json:"usage_info"`
}

type ocrPage struct {
	Index    int        `json:"index"`
	Markdown string     `json:"markdown"`
	Images   []ocrImage `json:"images"`
}

type ocrImage struct {
	ID          string `json:"id"`
	ImageBase64 string `json:"image_base64"`
}

type usageInfo struct {
	PagesProcessed int `json:"pages_processed"`
	DocSizeBytes   int `json:"doc_size_bytes"`
}

// OCR submits one document and returns the joined markdown plus extracted
// images keyed by the image ID the markdown references.
func (c *Client) OCR(ctx context.Context, name string, data []byte) (*pipeline.Extraction, error) {
	payload := ocrRequest{
		Model: c.model,
		Document: documentSource{
			Type:        "document_url",
			DocumentURL: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(data),
		},
		IncludeImageBase64: c.includeImages,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("mistral: marshal request for %s: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/ocr", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("mistral: build request for %s: %w", name, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mistral: call OCR for %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("mistral: OCR for %s returned %s: %s", name, resp.Status, strings.TrimSpace(string(snippet)))
	}

	var parsed ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("mistral: decode OCR response for %s: %w", name, err)
	}

	return buildExtraction(&parsed)
}

func buildExtraction(resp *ocrResponse) (*pipeline.Extraction, error) {
	var parts []string
	images := make(map[string][]byte)

	for _, page := range resp.Pages {
		if md := strings.TrimSpace(page.Markdown); md != "" {
			parts = append(parts, md)
		}
		for _, img := range page.Images {
			if img.ImageBase64 == "" {
				continue
			}
			raw, err := decodeImage(img.ImageBase64)
			if err != nil {
				return nil, fmt.Errorf("mistral: decode image %s: %w", img.ID, err)
			}
			images[img.ID] = raw
		}
	}

	pages := resp.UsageInfo.PagesProcessed
	if pages == 0 {
		pages = len(resp.Pages)
	}
	return &pipeline.Extraction{
		Markdown: strings.Join(parts, pageSeparator),
		Images:   images,
		Pages:    pages,
	}, nil
}

// decodeImage accepts either a bare base64 string or a full data URL.
func decodeImage(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		_, after, found := strings.Cut(s, ",")
		if !found {
			return nil, fmt.Errorf("malformed data URL")
		}
		s = after
	}
	return base64.StdEncoding.DecodeString(s)
}

// Package ocr defines the engine abstraction over hosted document OCR
// backends and selects a concrete backend from configuration.
package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ocrmill/ocrmill/internal/gemini"
	"github.com/ocrmill/ocrmill/internal/mistral"
	"github.com/ocrmill/ocrmill/internal/pipeline"
)

// Engine converts raw document bytes into markdown. Implementations must be
// safe for concurrent use by multiple pipeline workers; the name parameter
// is only used in error messages.
type Engine interface {
	Name() string
	OCR(ctx context.Context, name string, data []byte) (*pipeline.Extraction, error)
}

// Config selects and configures a backend.
type Config struct {
	Provider      string // "mistral" (default) or "gemini"
	MistralAPIKey string
	MistralModel  string
	GeminiProject string
	GeminiRegion  string
	IncludeImages bool
}

// NewEngine creates the configured backend.
func NewEngine(ctx context.Context, cfg Config) (Engine, error) {
	switch cfg.Provider {
	case "", "mistral":
		return mistral.NewClient(mistral.ClientConfig{
			APIKey:        cfg.MistralAPIKey,
			Model:         cfg.MistralModel,
			IncludeImages: cfg.IncludeImages,
		})
	case "gemini":
		return gemini.NewClient(ctx, cfg.GeminiProject, cfg.GeminiRegion)
	default:
		return nil, fmt.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}

// InlineImages rewrites bare image references produced by the OCR model
// (![id](id)) into self-contained data URLs so the markdown renders without
// sibling image files.
func InlineImages(markdown string, images map[string][]byte) string {
	for name, data := range images {
		ref := fmt.Sprintf("![%s](%s)", name, name)
		inline := fmt.Sprintf("![%s](data:%s;base64,%s)", name, mimeForName(name), base64.StdEncoding.EncodeToString(data))
		markdown = strings.ReplaceAll(markdown, ref, inline)
	}
	return markdown
}

func mimeForName(name string) string {
	switch {
	case strings.HasSuffix(name, ".png"):
		return "image/png"
	case strings.HasSuffix(name, ".gif"):
		return "image/gif"
	default:
		return "image/jpeg"
	}
}

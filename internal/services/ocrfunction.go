// Package services holds the deployable OCR worker that runs behind the
// Cloud Functions entrypoint: one invocation per finalized storage object.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/ocrmill/ocrmill/internal/config"
	"github.com/ocrmill/ocrmill/internal/gcs"
	"github.com/ocrmill/ocrmill/internal/ledger"
	"github.com/ocrmill/ocrmill/internal/ocr"
	"github.com/ocrmill/ocrmill/internal/pdfcheck"
	"github.com/ocrmill/ocrmill/internal/pipeline"
)

// OCRFunctionConfig holds all configuration for the event-driven worker.
type OCRFunctionConfig struct {
	OutputBucket     string
	MinChars         int
	Provider         string
	LedgerProject    string
	LedgerCollection string
	InlineImages     bool
}

// OCRFunction holds the dependencies of the worker.
type OCRFunction struct {
	store  *gcs.Store
	engine ocr.Engine
	ledger *ledger.Store // nil when the ledger is disabled
	config OCRFunctionConfig
}

// GCSEvent is the storage-notification payload delivered via CloudEvents.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

func loadConfig() (*OCRFunctionConfig, error) {
	outputBucket := config.Getenv("OCR_OUTPUT_BUCKET", "")
	if outputBucket == "" {
		return nil, fmt.Errorf("OCR_OUTPUT_BUCKET environment variable must be set")
	}
	minChars, err := strconv.Atoi(config.Getenv("OCR_MIN_CHARS", strconv.Itoa(pdfcheck.DefaultMinChars)))
	if err != nil {
		return nil, fmt.Errorf("invalid OCR_MIN_CHARS: %w", err)
	}
	return &OCRFunctionConfig{
		OutputBucket:     outputBucket,
		MinChars:         minChars,
		Provider:         config.Getenv("OCR_PROVIDER", "mistral"),
		LedgerProject:    config.Getenv("LEDGER_PROJECT", ""),
		LedgerCollection: config.Getenv("LEDGER_COLLECTION", "ocr_documents"),
		InlineImages:     config.Getenv("OCR_INLINE_IMAGES", "") == "true",
	}, nil
}

// NewOCRFunction creates the worker from the environment.
func NewOCRFunction(ctx context.Context) (*OCRFunction, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	engineCfg := ocr.Config{
		Provider:      cfg.Provider,
		GeminiProject: config.Getenv("PROJECT_ID", ""),
		GeminiRegion:  config.Getenv("VERTEX_AI_REGION", "us-central1"),
		IncludeImages: !cfg.InlineImages,
	}
	if cfg.Provider == "" || cfg.Provider == "mistral" {
		engineCfg.MistralAPIKey, err = config.MistralAPIKey()
		if err != nil {
			return nil, err
		}
		engineCfg.IncludeImages = true
	}
	engine, err := ocr.NewEngine(ctx, engineCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR engine: %w", err)
	}

	store, err := gcs.NewStore(ctx)
	if err != nil {
		return nil, err
	}

	var led *ledger.Store
	if cfg.LedgerProject != "" {
		led, err = ledger.New(ctx, cfg.LedgerProject, cfg.LedgerCollection)
		if err != nil {
			return nil, err
		}
	}

	f := &OCRFunction{store: store, engine: engine, ledger: led, config: *cfg}
	slog.Info("OCR worker initialized.", "provider", engine.Name(), "outputBucket", cfg.OutputBucket, "ledger", led != nil)
	return f, nil
}

// Process handles one finalized object: download, skip checks, OCR, store.
func (f *OCRFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)

	if !strings.HasSuffix(strings.ToLower(e.Name), ".pdf") {
		logCtx.Info("Ignoring non-PDF object.")
		return nil
	}
	logCtx.Info("Processing new PDF.")

	data, err := f.store.Download(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download source PDF.", "error", err)
		return err
	}

	fileHash := ledger.Hash(data)
	if f.ledger != nil {
		seen, err := f.ledger.Seen(ctx, fileHash)
		if err != nil {
			logCtx.Error("Ledger lookup failed.", "error", err)
			return err
		}
		if seen {
			logCtx.Info("Duplicate document detected. Skipping.", "fileHash", fileHash)
			return nil
		}
	}

	// A failed text-layer check is not fatal: treat the document as scanned
	// and let OCR decide.
	report, err := pdfcheck.InspectBytes(data, f.config.MinChars)
	if err != nil {
		logCtx.Warn("Text-layer check failed, proceeding with OCR.", "error", err)
	} else if report.Searchable {
		logCtx.Info("Document already searchable. Skipping OCR.", "chars", report.Chars)
		return nil
	}

	doc := pipeline.Document{Handle: e.Name, Name: path.Base(e.Name), Size: int64(len(data))}
	ext, err := f.engine.OCR(ctx, doc.Name, data)
	if err != nil {
		logCtx.Error("OCR call failed.", "error", err)
		return err
	}

	sink := gcs.NewSink(f.store, f.config.OutputBucket, path.Dir(e.Name))
	sink.InlineImages = f.config.InlineImages
	dest, err := sink.Store(ctx, doc, ext)
	if err != nil {
		logCtx.Error("Failed to store OCR result.", "error", err)
		return err
	}

	if f.ledger != nil {
		if err := f.ledger.Record(ctx, fileHash, doc.Name, dest); err != nil {
			// The result is stored; a ledger write failure only costs a
			// duplicate OCR on redelivery.
			logCtx.Warn("Failed to record ledger entry.", "error", err)
		}
	}

	logCtx.Info("OCR complete.", "destination", dest, "chars", len(ext.Markdown), "images", len(ext.Images), "pages", ext.Pages)
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/ocrmill/ocrmill/internal/services"
)

var (
	ocrInstance *services.OCRFunction
	once        sync.Once
	initErr     error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the CloudEvent function; the framework routes storage
	// finalize notifications here.
	functions.CloudEvent("OCRDocument", ocrDocument)
}

// main is required by the Go Functions Framework.
func main() {}

// ocrDocument is the Cloud Function entry point.
func ocrDocument(ctx context.Context, e cloudevents.Event) error {
	// One-time client initialization, reused across invocations.
	once.Do(func() {
		ocrInstance, initErr = services.NewOCRFunction(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	return ocrInstance.Process(ctx, gcsEvent)
}

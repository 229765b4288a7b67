// Package commands implements the ocrmill CLI.
package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ocrmill/ocrmill/internal/config"
	"github.com/ocrmill/ocrmill/internal/ocr"
)

var (
	providerFlag string
	timeoutFlag  time.Duration
	unitPrice    float64
)

var rootCmd = &cobra.Command{
	Use:   "ocrmill",
	Short: "Convert PDF documents to markdown with hosted OCR models",
	Long: `ocrmill converts PDF documents into markdown using a hosted OCR model,
reading inputs from a local directory, Google Drive, or Cloud Storage, and
writing results back to the chosen destination. PDFs that already carry a
text layer can be skipped to save OCR calls.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadEnvFiles()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "mistral", "OCR backend: mistral or gemini")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 2*time.Minute, "per-call timeout for OCR and store operations")
	rootCmd.PersistentFlags().Float64Var(&unitPrice, "unit-price", 0.001, "per-document price used for the cost estimate")
}

// Execute runs the root command. SIGINT/SIGTERM cancel the run: in-flight
// documents finish, nothing new is dispatched, and the partial summary is
// still printed.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// newEngine builds the configured OCR backend, failing fast on a missing
// credential before any document is touched.
func newEngine(ctx context.Context) (ocr.Engine, error) {
	cfg := ocr.Config{
		Provider:      providerFlag,
		IncludeImages: true,
		GeminiProject: config.Getenv("PROJECT_ID", ""),
		GeminiRegion:  config.Getenv("VERTEX_AI_REGION", "us-central1"),
	}
	if cfg.Provider == "" || cfg.Provider == "mistral" {
		key, err := config.MistralAPIKey()
		if err != nil {
			return nil, err
		}
		cfg.MistralAPIKey = key
	}
	return ocr.NewEngine(ctx, cfg)
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ocrmill/ocrmill/internal/gcs"
	"github.com/ocrmill/ocrmill/internal/pipeline"
)

var (
	gcsBucket       string
	gcsPrefix       string
	gcsOutputBucket string
	gcsOutputPrefix string
	gcsWorkers      int
	gcsMinChars     int
	gcsInlineImages bool
)

var gcsCmd = &cobra.Command{
	Use:   "gcs",
	Short: "OCR PDFs stored in a Cloud Storage bucket",
	Long: `Finds PDFs under a bucket prefix, OCRs the ones without an extractable
text layer, and writes markdown plus images back to the output bucket.
Markdown objects are written only if absent, so re-runs are idempotent.`,
	RunE: runGCS,
}

func init() {
	gcsCmd.Flags().StringVar(&gcsBucket, "bucket", "", "source bucket (required)")
	gcsCmd.Flags().StringVar(&gcsPrefix, "prefix", "", "source object prefix")
	gcsCmd.Flags().StringVar(&gcsOutputBucket, "output-bucket", "", "destination bucket (default: source bucket)")
	gcsCmd.Flags().StringVar(&gcsOutputPrefix, "output-prefix", "ocr_output", "destination object prefix")
	gcsCmd.Flags().IntVar(&gcsWorkers, "workers", 4, "number of parallel workers")
	gcsCmd.Flags().IntVar(&gcsMinChars, "min-chars", 0, "character threshold for the searchable check (default 50)")
	gcsCmd.Flags().BoolVar(&gcsInlineImages, "inline-images", false, "embed extracted images inline as base64")
	_ = gcsCmd.MarkFlagRequired("bucket")
	rootCmd.AddCommand(gcsCmd)
}

func runGCS(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	engine, err := newEngine(ctx)
	if err != nil {
		return err
	}

	store, err := gcs.NewStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("Listing gs://%s/%s...\n", gcsBucket, gcsPrefix)
	docs, err := store.ListPDFs(ctx, gcsBucket, gcsPrefix)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no PDF files found in gs://%s/%s", gcsBucket, gcsPrefix)
	}

	outputBucket := gcsOutputBucket
	if outputBucket == "" {
		outputBucket = gcsBucket
	}

	fmt.Printf("Found %d PDFs\n", len(docs))
	fmt.Printf("Output: gs://%s/%s\n", outputBucket, gcsOutputPrefix)
	fmt.Printf("\nProcessing with %d workers...\n\n", gcsWorkers)

	proc := gcs.NewProcessor(store, gcsBucket, engine, gcsMinChars)
	sink := gcs.NewSink(store, outputBucket, gcsOutputPrefix)
	sink.InlineImages = gcsInlineImages

	p := &pipeline.Pipeline{
		Extractor:   proc,
		Sink:        sink,
		Skip:        proc.SkipSearchable,
		Concurrency: gcsWorkers,
		CallTimeout: timeoutFlag,
		UnitPrice:   unitPrice,
		OnOutcome:   newProgress(len(docs)),
	}

	sum := p.Run(ctx, docs)
	printSummary(sum, len(docs))
	return nil
}

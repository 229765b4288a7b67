package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ocrmill/ocrmill/internal/localfs"
	"github.com/ocrmill/ocrmill/internal/pipeline"
)

var (
	batchWorkers        int
	batchSkipSearchable bool
	batchMinChars       int
	batchInlineImages   bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <input-dir> [output-dir]",
	Short: "OCR every PDF in a local directory",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 4, "number of parallel workers")
	batchCmd.Flags().BoolVar(&batchSkipSearchable, "skip-searchable", false, "skip PDFs that already have extractable text")
	batchCmd.Flags().IntVar(&batchMinChars, "min-chars", 0, "character threshold for the searchable check (default 50)")
	batchCmd.Flags().BoolVar(&batchInlineImages, "inline-images", false, "embed extracted images inline as base64")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	inputDir := args[0]
	outputDir := filepath.Join(inputDir, "ocr_output")
	if len(args) > 1 {
		outputDir = args[1]
	}

	docs, err := localfs.ListPDFs(inputDir)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no PDF files found in %s", inputDir)
	}

	engine, err := newEngine(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Processing %d PDFs from %s\n", len(docs), inputDir)
	fmt.Printf("Output directory: %s\n", outputDir)
	fmt.Printf("Workers: %d\n\n", batchWorkers)

	p := &pipeline.Pipeline{
		Extractor:   &localfs.Extractor{Engine: engine},
		Sink:        &localfs.Sink{Dir: outputDir, InlineImages: batchInlineImages},
		Concurrency: batchWorkers,
		CallTimeout: timeoutFlag,
		UnitPrice:   unitPrice,
		OnOutcome:   newProgress(len(docs)),
	}
	if batchSkipSearchable {
		p.Skip = localfs.SkipSearchable(batchMinChars)
	}

	sum := p.Run(cmd.Context(), docs)
	printSummary(sum, len(docs))
	return nil
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ocrmill/ocrmill/internal/drive"
	"github.com/ocrmill/ocrmill/internal/localfs"
	"github.com/ocrmill/ocrmill/internal/pipeline"
)

var (
	driveFolderID     string
	driveOutputFolder string
	driveLocalOnly    bool
	driveOutput       string
	driveMaxFiles     int
	driveWorkers      int
	driveMinChars     int
	driveInlineImages bool
	driveCredentials  string
	driveTokenPath    string
)

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "OCR PDFs stored in Google Drive",
	Long: `Finds PDFs in Google Drive (optionally inside one folder), OCRs the ones
without an extractable text layer, and uploads markdown plus images into a
per-document output folder — or saves them locally with --local-only.`,
	RunE: runDrive,
}

func init() {
	driveCmd.Flags().StringVar(&driveFolderID, "folder-id", "", "source folder ID (default: entire drive)")
	driveCmd.Flags().StringVar(&driveOutputFolder, "output-folder", "", "destination folder ID (default: a new OCR_Output folder)")
	driveCmd.Flags().BoolVar(&driveLocalOnly, "local-only", false, "save results to a local directory instead of uploading")
	driveCmd.Flags().StringVar(&driveOutput, "output", "./ocr_output", "local output directory (with --local-only)")
	driveCmd.Flags().IntVar(&driveMaxFiles, "max-files", 0, "limit the number of files to process (0 = all)")
	driveCmd.Flags().IntVar(&driveWorkers, "workers", 3, "number of parallel workers")
	driveCmd.Flags().IntVar(&driveMinChars, "min-chars", 0, "character threshold for the searchable check (default 50)")
	driveCmd.Flags().BoolVar(&driveInlineImages, "inline-images", false, "embed extracted images inline as base64")
	driveCmd.Flags().StringVar(&driveCredentials, "credentials", "", "OAuth client secrets file (default: credentials.json)")
	driveCmd.Flags().StringVar(&driveTokenPath, "token", "", "OAuth token cache file (default: ~/.ocrmill/token.json)")
	rootCmd.AddCommand(driveCmd)
}

func runDrive(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Credential checks before any network traffic.
	engine, err := newEngine(ctx)
	if err != nil {
		return err
	}

	fmt.Println("Connecting to Google Drive...")
	svc, err := drive.NewService(ctx, driveCredentials, driveTokenPath)
	if err != nil {
		return err
	}
	client := drive.NewClient(svc)

	fmt.Println("Finding PDFs...")
	docs, err := client.ListPDFs(ctx, driveFolderID, driveMaxFiles)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no PDF files found")
	}
	fmt.Printf("Found %d PDFs\n", len(docs))

	proc := drive.NewProcessor(client, engine, driveMinChars)

	var sink pipeline.Sink
	if driveLocalOnly {
		fmt.Printf("Output: %s\n", driveOutput)
		sink = &localfs.Sink{Dir: driveOutput, InlineImages: driveInlineImages}
	} else {
		outputID := driveOutputFolder
		if outputID == "" {
			outputID, err = client.CreateFolder(ctx, "OCR_Output", "")
			if err != nil {
				return err
			}
		}
		fmt.Printf("Output folder ID: %s\n", outputID)
		driveSink := drive.NewSink(client, outputID)
		driveSink.InlineImages = driveInlineImages
		sink = driveSink
	}

	fmt.Printf("\nProcessing %d PDFs with %d workers...\n\n", len(docs), driveWorkers)

	p := &pipeline.Pipeline{
		Extractor:   proc,
		Sink:        sink,
		Skip:        proc.SkipSearchable,
		Concurrency: driveWorkers,
		CallTimeout: timeoutFlag,
		UnitPrice:   unitPrice,
		OnOutcome:   newProgress(len(docs)),
	}

	sum := p.Run(ctx, docs)
	printSummary(sum, len(docs))
	return nil
}

package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ocrmill/ocrmill/internal/ocr"
)

var (
	ocrOutput       string
	ocrInlineImages bool
)

var ocrCmd = &cobra.Command{
	Use:   "ocr <pdf-file>",
	Short: "OCR a single PDF into markdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runOCR,
}

func init() {
	ocrCmd.Flags().StringVarP(&ocrOutput, "output", "o", "", "output markdown file (default: input name with .md extension)")
	ocrCmd.Flags().BoolVar(&ocrInlineImages, "inline-images", false, "embed extracted images inline as base64")
	rootCmd.AddCommand(ocrCmd)
}

func runOCR(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	engine, err := newEngine(cmd.Context())
	if err != nil {
		return err
	}

	output := ocrOutput
	if output == "" {
		output = strings.TrimSuffix(path, filepath.Ext(path)) + ".md"
	}

	fmt.Printf("Processing %s...\n", filepath.Base(path))
	fmt.Printf("Provider: %s (~$%.3f/document)\n", engine.Name(), unitPrice)

	ctx := cmd.Context()
	if timeoutFlag > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeoutFlag)
		defer cancel()
	}

	ext, err := engine.OCR(ctx, filepath.Base(path), data)
	if err != nil {
		return err
	}

	markdown := ext.Markdown
	if ocrInlineImages {
		markdown = ocr.InlineImages(markdown, ext.Images)
	}
	if err := os.WriteFile(output, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	fmt.Printf("✓ Extracted %d chars (~%d pages)\n", len(markdown), ext.Pages)
	fmt.Printf("✓ Saved to %s\n", output)
	if !ocrInlineImages && len(ext.Images) > 0 {
		fmt.Println("\nTip: use --inline-images to embed images in the markdown")
	}
	return nil
}

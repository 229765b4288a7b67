package commands

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ocrmill/ocrmill/internal/pdfcheck"
)

var checkMinChars int

var checkCmd = &cobra.Command{
	Use:   "check <pdf-or-dir>...",
	Short: "Report whether PDFs already have extractable text",
	Long: `Inspects the first pages of each PDF and reports whether it carries a
text layer. Searchable PDFs don't need OCR; image-only scans do.
Directories are walked recursively.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().IntVar(&checkMinChars, "min-chars", 0, "character threshold for the searchable check (default 50)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	paths, err := collectPDFs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no PDF files found")
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	searchable := 0
	for _, path := range paths {
		report, err := pdfcheck.InspectFile(path, checkMinChars)
		if err != nil {
			fmt.Printf("%-40s %s: %v\n", filepath.Base(path), red("✗ error"), err)
			continue
		}
		if report.Searchable {
			searchable++
		}
		fmt.Printf("%-40s %s (%d chars)\n", filepath.Base(path), report.Status(), report.Chars)
	}

	fmt.Printf("\n%d of %d PDFs searchable, %s need OCR\n",
		searchable, len(paths), green(fmt.Sprintf("%d", len(paths)-searchable)))
	return nil
}

// collectPDFs expands the arguments into a sorted list of PDF paths,
// walking directories recursively.
func collectPDFs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := filepath.Glob(arg)
		if err != nil || len(info) == 0 {
			info = []string{arg}
		}
		for _, p := range info {
			if err := appendPDFs(&paths, p); err != nil {
				return nil, err
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func appendPDFs(paths *[]string, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			*paths = append(*paths, path)
		}
		return nil
	})
}

package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/ocrmill/ocrmill/internal/pipeline"
)

// newProgress returns a pipeline.OnOutcome callback printing one line per
// document in completion order. The pipeline serializes calls, so the
// counter needs no locking.
func newProgress(total int) func(pipeline.Outcome) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	n := 0
	return func(o pipeline.Outcome) {
		n++
		switch o.Status {
		case pipeline.StatusSucceeded:
			detail := fmt.Sprintf("%d chars", o.Chars)
			if o.Pages > 0 {
				detail += fmt.Sprintf(", ~%d pages", o.Pages)
			}
			if o.Images > 0 {
				detail += fmt.Sprintf(", %d images", o.Images)
			}
			fmt.Printf("%s [%d/%d] %s: %s → %s\n", green("✓"), n, total, o.Doc.Name, detail, o.Dest)
		case pipeline.StatusSkipped:
			fmt.Printf("%s [%d/%d] %s: %s\n", yellow("⊘"), n, total, o.Doc.Name, o.Reason)
		case pipeline.StatusFailed:
			fmt.Printf("%s [%d/%d] %s: %v\n", red("✗"), n, total, o.Doc.Name, o.Err)
		}
	}
}

// printSummary prints the final counts and cost estimate. Per-document
// failures are reported here, never as a process failure.
func printSummary(sum pipeline.Summary, submitted int) {
	fmt.Printf("\n%s\n", strings.Repeat("=", 60))
	fmt.Printf("Results: %d processed, %d skipped, %d errors\n", sum.Succeeded, sum.Skipped, sum.Failed)
	if pending := submitted - sum.Total(); pending > 0 {
		fmt.Printf("Cancelled before dispatch: %d\n", pending)
	}
	if sum.Succeeded > 0 {
		fmt.Printf("Estimated cost: $%.3f\n", sum.EstimatedCost)
	}
}

package importer

import (
	"fmt"
	"strings"

	"github.com/prodcat/importer-be/internal/importer/domain"
)

const (
	// maxErrorSamples bounds how many example error lines are retained while
	// a job runs; the full list is never buffered.
	maxErrorSamples = 10

	failureErrorLines = 10
	partialErrorLines = 5
)

// summarize classifies the terminal status and builds the aggregated
// diagnostic message stored on the job.
func summarize(total, processed, created, updated, errorCount int, samples []string) (status, message string) {
	switch {
	case errorCount > 0 && processed == 0:
		return domain.JobStatusFailed, failureSummary(errorCount, samples)
	case errorCount > 0:
		return domain.JobStatusCompletedWithErrors, partialSummary(total, processed, created, updated, errorCount, samples)
	default:
		return domain.JobStatusCompleted, ""
	}
}

func failureSummary(errorCount int, samples []string) string {
	shown := samples
	if len(shown) > failureErrorLines {
		shown = shown[:failureErrorLines]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Import failed - no products were imported\n\nTotal errors: %d\n\nFirst %d errors:\n", errorCount, len(shown))
	writeErrorLines(&b, shown)
	writeTruncationSuffix(&b, errorCount, len(shown))
	return b.String()
}

func partialSummary(total, processed, created, updated, errorCount int, samples []string) string {
	shown := samples
	if len(shown) > partialErrorLines {
		shown = shown[:partialErrorLines]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Import completed with errors\n\nSuccessfully processed: %d/%d products\nCreated: %d\nUpdated: %d\nErrors: %d\n\nFirst %d errors:\n",
		processed, total, created, updated, errorCount, len(shown))
	writeErrorLines(&b, shown)
	writeTruncationSuffix(&b, errorCount, len(shown))
	return b.String()
}

func writeErrorLines(b *strings.Builder, lines []string) {
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(line)
	}
}

func writeTruncationSuffix(b *strings.Builder, errorCount, shown int) {
	if errorCount > shown {
		fmt.Fprintf(b, "\n\n... and %d more errors", errorCount-shown)
	}
}

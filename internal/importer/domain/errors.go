package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrJobNotFound is returned when a job id does not resolve to a known job.
	ErrJobNotFound = errors.New("import job not found")

	// ErrSourceUnavailable is returned when the staged upload is missing or unreadable.
	ErrSourceUnavailable = errors.New("upload source unavailable")

	// ErrInvalidTask is returned when a queue message cannot be handled and
	// must not be requeued.
	ErrInvalidTask = errors.New("invalid task payload")
)

// DecodeError reports upload content that is not valid UTF-8 text.
type DecodeError struct {
	Detail string
}

func (e *DecodeError) Error() string {
	return "csv decode error: " + e.Detail
}

// SchemaError reports required columns missing from the CSV header.
type SchemaError struct {
	Missing []string
	Found   []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s (found: %s)",
		strings.Join(e.Missing, ", "), strings.Join(e.Found, ", "))
}

// RowError is a validation or persistence failure scoped to one input row.
// Row numbers are 1-based as seen in the file, so the first data row is 2.
type RowError struct {
	Row    int
	SKU    string
	Reason string
}

func (e *RowError) Error() string {
	if e.SKU != "" {
		return fmt.Sprintf("Row %d (SKU: %s): %s", e.Row, e.SKU, e.Reason)
	}
	return fmt.Sprintf("Row %d: %s", e.Row, e.Reason)
}

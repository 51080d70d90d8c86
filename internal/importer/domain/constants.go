package domain

// Import job statuses. Transitions are forward-only:
// pending -> parsing -> importing -> {completed | completed_with_errors | failed}.
// Any state may jump straight to failed on a fatal condition.
const (
	JobStatusPending             = "pending"
	JobStatusParsing             = "parsing"
	JobStatusImporting           = "importing"
	JobStatusCompleted           = "completed"
	JobStatusCompletedWithErrors = "completed_with_errors"
	JobStatusFailed              = "failed"
)

// IsTerminal reports whether a job status admits no further transitions.
func IsTerminal(status string) bool {
	switch status {
	case JobStatusCompleted, JobStatusCompletedWithErrors, JobStatusFailed:
		return true
	}
	return false
}

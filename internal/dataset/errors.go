package dataset

import "fmt"

// FormatError reports an upload that cannot be used as a KPI dataset: not
// parseable as CSV, no date column, or a date cell that is not a calendar
// date. The message is shown to the user as-is.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid dataset: %s", e.Reason)
}

func formatErrorf(format string, args ...interface{}) error {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

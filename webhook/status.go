package webhook

import "fmt"

/* Status represents the state of a ledger record
 * Follows the lifecycle: Processing -> Completed/Failed/Retrying
 * Retrying goes back to Processing on the next delivery; Completed and
 * Failed are terminal
 */
type Status int

const (
	Processing Status = iota + 1
	Completed
	Failed
	Retrying
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case Processing:
		return "processing"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Retrying:
		return "retrying"
	default:
		return "unknown"
	}
}

// NewStatus creates a Status from a string
func NewStatus(str string) Status {
	switch str {
	case "processing":
		return Processing
	case "completed":
		return Completed
	case "failed":
		return Failed
	case "retrying":
		return Retrying
	default:
		return Processing
	}
}

// Validate checks if the status is valid
func (s Status) Validate() error {
	if s < Processing || s > Retrying {
		return fmt.Errorf("invalid status: %d", s)
	}
	return nil
}

// IsTerminal returns true if no further transition leaves this status
func (s Status) IsTerminal() bool {
	return s == Completed || s == Failed
}

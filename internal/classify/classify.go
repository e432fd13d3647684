// Package classify maps raw run status fields to display states.
package classify

import (
	"fmt"
	"time"

	"github.com/Cloudsky01/gh-ci-status/pkg/models"
)

// DisplayState is the closed set of states a run is shown as
type DisplayState int

const (
	Unknown DisplayState = iota
	Queued
	Running
	Success
	Failure
	Cancelled
	Skipped
)

// NotAvailable is shown in place of a duration when a timestamp is missing
const NotAvailable = "N/A"

func (s DisplayState) String() string {
	switch s {
	case Queued:
		return "QUEUED"
	case Running:
		return "RUNNING"
	case Success:
		return "SUCCESS"
	case Failure:
		return "FAILURE"
	case Cancelled:
		return "CANCELLED"
	case Skipped:
		return "SKIPPED"
	default:
		return "UNKNOWN"
	}
}

// Classify maps a (status, conclusion) pair to a DisplayState.
// The conclusion is only consulted once the status is completed.
func Classify(status models.RunStatus, conclusion models.RunConclusion) DisplayState {
	switch status {
	case models.StatusQueued:
		return Queued
	case models.StatusInProgress:
		return Running
	case models.StatusCompleted:
		switch conclusion {
		case models.ConclusionSuccess:
			return Success
		case models.ConclusionFailure:
			return Failure
		case models.ConclusionCancelled:
			return Cancelled
		case models.ConclusionSkipped:
			return Skipped
		}
	}
	return Unknown
}

// IsActive reports whether a run with this status may still change
func IsActive(status models.RunStatus) bool {
	return status == models.StatusQueued || status == models.StatusInProgress
}

// AnyActive reports whether at least one run in the snapshot is active
func AnyActive(runs []models.Run) bool {
	for _, r := range runs {
		if IsActive(r.Status) {
			return true
		}
	}
	return false
}

// CountActive returns the number of active runs in the snapshot
func CountActive(runs []models.Run) int {
	n := 0
	for _, r := range runs {
		if IsActive(r.Status) {
			n++
		}
	}
	return n
}

// CountFailed returns the number of runs that completed with a failure
func CountFailed(runs []models.Run) int {
	n := 0
	for _, r := range runs {
		if r.Failed() {
			n++
		}
	}
	return n
}

// FormatDuration renders the whole seconds between startedAt and updatedAt.
// Zero timestamps are treated as absent. Negative deltas are clamped to zero.
func FormatDuration(startedAt, updatedAt time.Time) string {
	if startedAt.IsZero() || updatedAt.IsZero() {
		return NotAvailable
	}
	secs := int64(updatedAt.Sub(startedAt) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%ds", secs)
}

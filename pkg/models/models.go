package models

import "time"

// RunStatus is the lifecycle status GitHub reports for a run or job
type RunStatus string

const (
	StatusQueued     RunStatus = "queued"
	StatusInProgress RunStatus = "in_progress"
	StatusCompleted  RunStatus = "completed"
)

// RunConclusion is the terminal outcome of a completed run or job
type RunConclusion string

const (
	ConclusionSuccess   RunConclusion = "success"
	ConclusionFailure   RunConclusion = "failure"
	ConclusionCancelled RunConclusion = "cancelled"
	ConclusionSkipped   RunConclusion = "skipped"
)

// Run represents one GitHub workflow run as returned by `gh run list --json`.
// A zero StartedAt or UpdatedAt means the timestamp is absent.
type Run struct {
	DatabaseID   int64         `json:"databaseId"`
	WorkflowName string        `json:"workflowName"`
	Event        string        `json:"event"`
	Status       RunStatus     `json:"status"`
	Conclusion   RunConclusion `json:"conclusion"`
	StartedAt    time.Time     `json:"startedAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Failed reports whether the run completed with a failure conclusion
func (r Run) Failed() bool {
	return r.Status == StatusCompleted && r.Conclusion == ConclusionFailure
}

// RunDetail contains the jobs for a workflow run
type RunDetail struct {
	Jobs []Job `json:"jobs"`
}

// Job represents a single job in a workflow run
type Job struct {
	DatabaseID int64         `json:"databaseId"`
	Name       string        `json:"name"`
	Status     RunStatus     `json:"status"`
	Conclusion RunConclusion `json:"conclusion"`
}

func (j Job) Failed() bool {
	return j.Conclusion == ConclusionFailure
}

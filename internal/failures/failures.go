// Package failures collects and prints the logs of failed jobs for failed runs.
package failures

import (
	"context"
	"fmt"

	"github.com/Cloudsky01/gh-ci-status/pkg/models"
)

// JobQuerier fetches failed jobs and their logs.
type JobQuerier interface {
	QueryFailedJobs(ctx context.Context, repo string, runID int64) ([]models.Job, error)
	QueryJobLog(ctx context.Context, repo string, jobID int64) (string, error)
}

// Sink receives the rendered blocks and warnings.
type Sink interface {
	LogBlock(workflow, job, event, text string)
	Warning(msg string)
}

// Report summarises one Emit pass.
type Report struct {
	FailedRuns int
	Blocks     int
	Warnings   []string
}

type Aggregator struct {
	jobs JobQuerier
	out  Sink
}

func New(jobs JobQuerier, out Sink) *Aggregator {
	return &Aggregator{jobs: jobs, out: out}
}

// Emit walks the failed runs in order, then their failed jobs in order, and
// prints each retrievable log. Missing jobs or logs become warnings and never
// stop the remaining runs or jobs from being processed.
func (a *Aggregator) Emit(ctx context.Context, repo string, runs []models.Run) (Report, error) {
	var rep Report

	for _, run := range runs {
		if !run.Failed() {
			continue
		}
		rep.FailedRuns++

		jobs, err := a.jobs.QueryFailedJobs(ctx, repo, run.DatabaseID)
		if err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			a.warn(&rep, fmt.Sprintf("Could not list jobs for %s (run %d): %v", run.WorkflowName, run.DatabaseID, err))
			continue
		}
		if len(jobs) == 0 {
			a.warn(&rep, fmt.Sprintf("No failed jobs found for %s (run %d)", run.WorkflowName, run.DatabaseID))
			continue
		}

		for _, job := range jobs {
			text, err := a.jobs.QueryJobLog(ctx, repo, job.DatabaseID)
			if err != nil {
				if ctx.Err() != nil {
					return rep, ctx.Err()
				}
				a.warn(&rep, fmt.Sprintf("Could not retrieve log for job %q (job %d) in %s: %v", job.Name, job.DatabaseID, run.WorkflowName, err))
				continue
			}
			a.out.LogBlock(run.WorkflowName, job.Name, run.Event, text)
			rep.Blocks++
		}
	}

	return rep, nil
}

func (a *Aggregator) warn(rep *Report, msg string) {
	rep.Warnings = append(rep.Warnings, msg)
	a.out.Warning(msg)
}

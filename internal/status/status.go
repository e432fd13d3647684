// Package status ties the poller, renderer and failure aggregator together into
// one check of a commit.
package status

import (
	"context"
	"fmt"

	"github.com/Cloudsky01/gh-ci-status/internal/classify"
	"github.com/Cloudsky01/gh-ci-status/internal/failures"
	"github.com/Cloudsky01/gh-ci-status/internal/poll"
	"github.com/Cloudsky01/gh-ci-status/internal/render"
)

// ExitFailedRuns is the process exit code when at least one run failed.
const ExitFailedRuns = 64

// Client is everything a check needs from the CI system.
type Client interface {
	poll.RunLister
	failures.JobQuerier
}

type Target struct {
	Repo   string
	Commit string
}

type Outcome struct {
	Total    int
	Failed   int
	TimedOut bool
}

func (o Outcome) ExitCode() int {
	if o.Failed > 0 {
		return ExitFailedRuns
	}
	return 0
}

type Checker struct {
	client     Client
	poller     *poll.Poller
	aggregator *failures.Aggregator
	out        *render.Renderer
	cfg        poll.Config
}

func NewChecker(client Client, sleep poll.Sleeper, cfg poll.Config, out *render.Renderer) *Checker {
	return &Checker{
		client:     client,
		poller:     poll.New(client, sleep, cfg),
		aggregator: failures.New(client, out),
		out:        out,
		cfg:        cfg,
	}
}

// Check reports on every run of the target commit, waiting for active runs and
// printing the logs of failed jobs. An error is returned only when the runs
// themselves cannot be listed.
func (c *Checker) Check(ctx context.Context, t Target) (Outcome, error) {
	c.out.Header(t.Repo, t.Commit)

	runs, err := c.poller.Initial(ctx, t.Repo, t.Commit)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to list workflow runs: %w", err)
	}
	if len(runs) == 0 {
		c.out.Info(fmt.Sprintf("No workflow runs found for commit %s", render.ShortSHA(t.Commit)))
		return Outcome{}, nil
	}

	c.out.Summary(runs)

	var outcome Outcome
	if active := classify.CountActive(runs); active > 0 {
		c.out.Blank()
		c.out.Info(fmt.Sprintf("Waiting for %d active run(s) to complete (checking every %v, timeout %v)...",
			active, c.cfg.Interval, c.cfg.Timeout))

		res, err := c.poller.Wait(ctx, t.Repo, t.Commit, runs)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed while waiting for workflow runs: %w", err)
		}
		if res.TimedOut {
			outcome.TimedOut = true
			c.out.Warning(fmt.Sprintf("Timeout reached after %v; %d run(s) still active, results may be incomplete",
				res.Elapsed, classify.CountActive(res.Runs)))
		}

		runs, err = c.client.QueryRuns(ctx, t.Repo, t.Commit, c.cfg.Limit)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to list workflow runs: %w", err)
		}

		c.out.Blank()
		c.out.Summary(runs)
	}

	outcome.Total = len(runs)
	outcome.Failed = classify.CountFailed(runs)

	if outcome.Failed > 0 {
		if _, err := c.aggregator.Emit(ctx, t.Repo, runs); err != nil {
			return outcome, err
		}
	}

	c.out.Outcome(outcome.Failed, outcome.Total)
	return outcome, nil
}

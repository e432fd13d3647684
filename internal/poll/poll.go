// Package poll waits for the workflow runs of a commit to leave the active states.
package poll

import (
	"context"
	"time"

	"github.com/Cloudsky01/gh-ci-status/internal/classify"
	"github.com/Cloudsky01/gh-ci-status/pkg/models"
)

// RunLister is the single query the poller needs.
type RunLister interface {
	QueryRuns(ctx context.Context, repo, commit string, limit int) ([]models.Run, error)
}

// Sleeper suspends the caller for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper sleeps on the wall clock.
type RealSleeper struct{}

func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Config struct {
	Limit       int
	Interval    time.Duration
	Timeout     time.Duration
	NoRunsDelay time.Duration
}

// State of the poll loop
type State int

const (
	Idle State = iota
	Polling
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	default:
		return "done"
	}
}

// Result is the outcome of Wait. Runs is the last snapshot fetched; when
// TimedOut is set it may still contain active runs.
type Result struct {
	Runs     []models.Run
	TimedOut bool
	Queries  int
	Elapsed  time.Duration
}

type Poller struct {
	runs  RunLister
	sleep Sleeper
	cfg   Config
	state State
}

func New(runs RunLister, sleep Sleeper, cfg Config) *Poller {
	if sleep == nil {
		sleep = RealSleeper{}
	}
	return &Poller{runs: runs, sleep: sleep, cfg: cfg}
}

func (p *Poller) State() State {
	return p.state
}

// Initial fetches the first snapshot. If it is empty the CI system may not have
// registered the runs yet, so it waits NoRunsDelay and asks exactly once more.
func (p *Poller) Initial(ctx context.Context, repo, commit string) ([]models.Run, error) {
	runs, err := p.runs.QueryRuns(ctx, repo, commit, p.cfg.Limit)
	if err != nil {
		return nil, err
	}
	if len(runs) > 0 {
		return runs, nil
	}

	if err := p.sleep.Sleep(ctx, p.cfg.NoRunsDelay); err != nil {
		return nil, err
	}
	return p.runs.QueryRuns(ctx, repo, commit, p.cfg.Limit)
}

// Wait polls until no run is active or the accumulated wait reaches Timeout.
// A snapshot without active runs returns immediately without querying.
func (p *Poller) Wait(ctx context.Context, repo, commit string, snapshot []models.Run) (Result, error) {
	p.state = Idle
	res := Result{Runs: snapshot}
	if !classify.AnyActive(snapshot) {
		p.state = Done
		return res, nil
	}

	p.state = Polling
	for {
		runs, err := p.runs.QueryRuns(ctx, repo, commit, p.cfg.Limit)
		if err != nil {
			return res, err
		}
		res.Queries++
		res.Runs = runs

		if !classify.AnyActive(runs) {
			p.state = Done
			return res, nil
		}
		if res.Elapsed >= p.cfg.Timeout {
			p.state = Done
			res.TimedOut = true
			return res, nil
		}

		if err := p.sleep.Sleep(ctx, p.cfg.Interval); err != nil {
			return res, err
		}
		res.Elapsed += p.cfg.Interval
	}
}

package status

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Cloudsky01/gh-ci-status/internal/poll"
	"github.com/Cloudsky01/gh-ci-status/internal/render"
	"github.com/Cloudsky01/gh-ci-status/pkg/models"
)

const testCommit = "0123456789abcdef0123456789abcdef01234567"

var testConfig = poll.Config{
	Limit:       20,
	Interval:    10 * time.Second,
	Timeout:     60 * time.Second,
	NoRunsDelay: 5 * time.Second,
}

type logicalClock struct {
	now time.Duration
}

func (c *logicalClock) Sleep(ctx context.Context, d time.Duration) error {
	c.now += d
	return nil
}

// fakeCI answers from functions of simulated time so scenarios read as timelines
type fakeCI struct {
	clock   *logicalClock
	runs    func(now time.Duration) []models.Run
	runsErr error
	jobs    map[int64][]models.Job
	logs    map[int64]string
	queries int
}

func (f *fakeCI) QueryRuns(ctx context.Context, repo, commit string, limit int) ([]models.Run, error) {
	f.queries++
	if f.runsErr != nil {
		return nil, f.runsErr
	}
	return f.runs(f.clock.now), nil
}

func (f *fakeCI) QueryFailedJobs(ctx context.Context, repo string, runID int64) ([]models.Job, error) {
	return f.jobs[runID], nil
}

func (f *fakeCI) QueryJobLog(ctx context.Context, repo string, jobID int64) (string, error) {
	text, ok := f.logs[jobID]
	if !ok {
		return "", errors.New("HTTP 404: Not Found")
	}
	return text, nil
}

func run(status models.RunStatus, conclusion models.RunConclusion) models.Run {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return models.Run{
		DatabaseID:   1,
		WorkflowName: "CI",
		Event:        "push",
		Status:       status,
		Conclusion:   conclusion,
		StartedAt:    start,
		UpdatedAt:    start.Add(30 * time.Second),
	}
}

func check(t *testing.T, ci *fakeCI) (Outcome, string) {
	t.Helper()
	var buf bytes.Buffer
	c := NewChecker(ci, ci.clock, testConfig, render.New(&buf, true))

	outcome, err := c.Check(context.Background(), Target{Repo: "octocat/hello", Commit: testCommit})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return outcome, buf.String()
}

func TestScenarioRunAppearsAfterRetry(t *testing.T) {
	clock := &logicalClock{}
	ci := &fakeCI{clock: clock, runs: func(now time.Duration) []models.Run {
		if now < testConfig.NoRunsDelay {
			return nil
		}
		return []models.Run{run(models.StatusCompleted, models.ConclusionSuccess)}
	}}

	outcome, out := check(t, ci)

	if strings.Count(out, "SUCCESS") != 1 {
		t.Errorf("expected one SUCCESS line, got %q", out)
	}
	if outcome.ExitCode() != 0 {
		t.Errorf("expected exit code 0, got %d", outcome.ExitCode())
	}
	if ci.queries != 2 {
		t.Errorf("expected 2 queries, got %d", ci.queries)
	}
}

func TestScenarioRunningThenFailure(t *testing.T) {
	clock := &logicalClock{}
	ci := &fakeCI{
		clock: clock,
		runs: func(now time.Duration) []models.Run {
			if now < testConfig.Interval {
				return []models.Run{run(models.StatusInProgress, "")}
			}
			return []models.Run{run(models.StatusCompleted, models.ConclusionFailure)}
		},
		jobs: map[int64][]models.Job{1: {{DatabaseID: 10, Name: "test", Conclusion: models.ConclusionFailure}}},
		logs: map[int64]string{10: "##[error]assertion failed\n"},
	}

	outcome, out := check(t, ci)

	running := strings.Index(out, "RUNNING")
	failure := strings.Index(out, "FAILURE")
	if running < 0 || failure < 0 || running > failure {
		t.Errorf("expected RUNNING before FAILURE, got %q", out)
	}
	if strings.Count(out, "Workflow: CI") != 1 {
		t.Errorf("expected exactly one log block, got %q", out)
	}
	if !strings.Contains(out, "##[error]assertion failed") {
		t.Errorf("expected log text, got %q", out)
	}
	if outcome.ExitCode() != ExitFailedRuns {
		t.Errorf("expected exit code %d, got %d", ExitFailedRuns, outcome.ExitCode())
	}
	if outcome.Failed != 1 || outcome.Total != 1 {
		t.Errorf("unexpected outcome %+v", outcome)
	}
}

func TestScenarioFailureWithoutFailedJobs(t *testing.T) {
	clock := &logicalClock{}
	ci := &fakeCI{clock: clock, runs: func(time.Duration) []models.Run {
		return []models.Run{run(models.StatusCompleted, models.ConclusionFailure)}
	}}

	outcome, out := check(t, ci)

	if !strings.Contains(out, "No failed jobs found") {
		t.Errorf("expected no-failed-jobs warning, got %q", out)
	}
	if strings.Contains(out, "Workflow: ") {
		t.Errorf("expected no log block, got %q", out)
	}
	if outcome.ExitCode() != ExitFailedRuns {
		t.Errorf("expected exit code %d, got %d", ExitFailedRuns, outcome.ExitCode())
	}
}

func TestScenarioTimeout(t *testing.T) {
	clock := &logicalClock{}
	ci := &fakeCI{clock: clock, runs: func(time.Duration) []models.Run {
		return []models.Run{run(models.StatusInProgress, "")}
	}}

	outcome, out := check(t, ci)

	if !strings.Contains(out, "Timeout reached") {
		t.Errorf("expected timeout warning, got %q", out)
	}
	if !outcome.TimedOut {
		t.Error("expected outcome to record the timeout")
	}
	if strings.Count(out, "RUNNING") != 2 {
		t.Errorf("expected the still-active snapshot to be shown twice, got %q", out)
	}
	if outcome.ExitCode() != 0 {
		t.Errorf("expected exit code 0, got %d", outcome.ExitCode())
	}
	if clock.now > testConfig.Timeout+testConfig.Interval {
		t.Errorf("expected wait bounded by timeout + interval, waited %v", clock.now)
	}
}

func TestNoRunsForCommit(t *testing.T) {
	clock := &logicalClock{}
	ci := &fakeCI{clock: clock, runs: func(time.Duration) []models.Run { return nil }}

	outcome, out := check(t, ci)

	if !strings.Contains(out, "No workflow runs found for commit 0123456") {
		t.Errorf("expected no-runs message, got %q", out)
	}
	if outcome.ExitCode() != 0 || outcome.Total != 0 {
		t.Errorf("unexpected outcome %+v", outcome)
	}
	if ci.queries != 2 {
		t.Errorf("expected exactly one retry, got %d queries", ci.queries)
	}
}

func TestMissingLogKeepsGoing(t *testing.T) {
	clock := &logicalClock{}
	second := run(models.StatusCompleted, models.ConclusionFailure)
	second.DatabaseID = 2
	second.WorkflowName = "E2E"

	ci := &fakeCI{
		clock: clock,
		runs: func(time.Duration) []models.Run {
			return []models.Run{run(models.StatusCompleted, models.ConclusionFailure), second}
		},
		jobs: map[int64][]models.Job{
			1: {{DatabaseID: 10, Name: "unit"}},
			2: {{DatabaseID: 20, Name: "browser"}},
		},
		logs: map[int64]string{20: "browser crashed\n"},
	}

	outcome, out := check(t, ci)

	if !strings.Contains(out, `Could not retrieve log for job "unit"`) {
		t.Errorf("expected warning for unit job, got %q", out)
	}
	if !strings.Contains(out, "browser crashed") {
		t.Errorf("expected log for browser job, got %q", out)
	}
	if outcome.Failed != 2 {
		t.Errorf("expected 2 failed runs, got %d", outcome.Failed)
	}
	if !strings.Contains(out, "2 of 2 workflow run(s) failed") {
		t.Errorf("expected failure banner, got %q", out)
	}
}

func TestQueryErrorIsFatal(t *testing.T) {
	clock := &logicalClock{}
	boom := errors.New("HTTP 401: Bad credentials")
	ci := &fakeCI{clock: clock, runsErr: boom}

	var buf bytes.Buffer
	c := NewChecker(ci, clock, testConfig, render.New(&buf, true))

	_, err := c.Check(context.Background(), Target{Repo: "octocat/hello", Commit: testCommit})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped query error, got %v", err)
	}
}

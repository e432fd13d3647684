package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Cloudsky01/gh-ci-status/internal/logger"
	"github.com/Cloudsky01/gh-ci-status/pkg/models"
)

const DefaultTimeout = 30 * time.Second

const runFields = "databaseId,workflowName,event,status,conclusion,startedAt,updatedAt"

var fullSHARegex = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// CLIClient queries GitHub Actions by shelling out to the gh CLI.
type CLIClient struct {
	timeout time.Duration
	run     Runner
	log     logger.Logger
}

func NewCLIClient(log logger.Logger) *CLIClient {
	return NewCLIClientWithTimeout(DefaultTimeout, log)
}

func NewCLIClientWithTimeout(timeout time.Duration, log logger.Logger) *CLIClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &CLIClient{
		timeout: timeout,
		run:     execRunner,
		log:     log,
	}
}

// QueryRuns lists runs for repo, newest first, optionally filtered to one commit.
// Records that fail to decode are skipped with a warning.
func (c *CLIClient) QueryRuns(ctx context.Context, repo, commit string, limit int) ([]models.Run, error) {
	args := []string{"run", "list", "--repo", repo, "--limit", strconv.Itoa(limit), "--json", runFields}
	if commit != "" {
		args = append(args, "--commit", commit)
	}

	output, err := c.gh(ctx, "gh run list", args...)
	if err != nil {
		return nil, err
	}

	var records []json.RawMessage
	if err := json.Unmarshal(output, &records); err != nil {
		return nil, &FormatError{Op: "gh run list", Err: err}
	}

	runs := make([]models.Run, 0, len(records))
	for i, raw := range records {
		var run models.Run
		if err := json.Unmarshal(raw, &run); err != nil {
			c.log.Warn("skipping malformed run record %d: %v", i, err)
			continue
		}
		runs = append(runs, run)
	}

	return runs, nil
}

// QueryFailedJobs returns the jobs of runID whose conclusion is failure.
func (c *CLIClient) QueryFailedJobs(ctx context.Context, repo string, runID int64) ([]models.Job, error) {
	args := []string{"run", "view", strconv.FormatInt(runID, 10), "--repo", repo, "--json", "jobs"}

	output, err := c.gh(ctx, "gh run view", args...)
	if err != nil {
		return nil, err
	}

	var detail models.RunDetail
	if err := json.Unmarshal(output, &detail); err != nil {
		return nil, &FormatError{Op: "gh run view", Err: err}
	}

	return failedOnly(detail.Jobs), nil
}

// QueryJobLog fetches the raw log of a job. Any error means the log is unavailable.
func (c *CLIClient) QueryJobLog(ctx context.Context, repo string, jobID int64) (string, error) {
	output, err := c.gh(ctx, "gh api job logs", "api", fmt.Sprintf("repos/%s/actions/jobs/%d/logs", repo, jobID))
	if err != nil {
		return "", err
	}
	return string(output), nil
}

// ResolveCommit expands an abbreviated SHA to the full 40 character form.
func (c *CLIClient) ResolveCommit(ctx context.Context, repo, ref string) (string, error) {
	ref = strings.ToLower(ref)
	if fullSHARegex.MatchString(ref) {
		return ref, nil
	}

	output, err := c.gh(ctx, "gh api commits", "api", fmt.Sprintf("repos/%s/commits/%s", repo, ref), "--jq", ".sha")
	if err != nil {
		return "", err
	}

	sha := strings.ToLower(strings.TrimSpace(string(output)))
	if !fullSHARegex.MatchString(sha) {
		return "", &FormatError{Op: "gh api commits", Err: fmt.Errorf("unexpected sha %q", sha)}
	}
	return sha, nil
}

func (c *CLIClient) gh(ctx context.Context, op string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.log.Debug("+ gh %s", strings.Join(args, " "))

	output, err := c.run(ctx, "gh", args...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &QueryError{Op: op, Err: fmt.Errorf("%w after %v", ErrTimeout, c.timeout)}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			if stderr == "" {
				return nil, &QueryError{Op: op, Err: err}
			}
			if strings.Contains(stderr, "HTTP 404") {
				return nil, &QueryError{Op: op, Err: fmt.Errorf("%w: %s", ErrNotFound, stderr)}
			}
			return nil, &QueryError{Op: op, Err: errors.New(stderr)}
		}
		return nil, &QueryError{Op: op, Err: err}
	}

	return output, nil
}

func failedOnly(jobs []models.Job) []models.Job {
	failed := make([]models.Job, 0, len(jobs))
	for _, job := range jobs {
		if job.Failed() {
			failed = append(failed, job)
		}
	}
	return failed
}

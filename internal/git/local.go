package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// Runner executes a command and returns its stdout
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Local answers questions about the git checkout in the working directory
type Local struct {
	run     Runner
	timeout time.Duration
}

func NewLocal() *Local {
	return &Local{run: execRunner, timeout: defaultTimeout}
}

func NewLocalWithRunner(run Runner) *Local {
	return &Local{run: run, timeout: defaultTimeout}
}

// RepositoryRoot returns the top-level directory of the working tree
func (l *Local) RepositoryRoot(ctx context.Context) (string, error) {
	return l.git(ctx, "rev-parse", "--show-toplevel")
}

// HeadCommit returns the full SHA of HEAD in lower case
func (l *Local) HeadCommit(ctx context.Context) (string, error) {
	out, err := l.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	if len(out) != 40 || ValidateCommit(out) != nil {
		return "", fmt.Errorf("unexpected output from git rev-parse HEAD: %q", out)
	}
	return strings.ToLower(out), nil
}

func (l *Local) git(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	out, err := l.run(ctx, "git", args...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if stderr := strings.TrimSpace(string(exitErr.Stderr)); stderr != "" {
				if strings.Contains(stderr, "not a git repository") {
					return "", ErrNotRepository
				}
				return "", fmt.Errorf("git %s failed: %s", strings.Join(args, " "), stderr)
			}
		}
		return "", fmt.Errorf("git %s failed: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Package target works out which repository and commit to report on.
package target

import (
	"context"
	"fmt"
	"strings"

	"github.com/cli/go-gh/v2/pkg/repository"

	"github.com/Cloudsky01/gh-ci-status/internal/git"
	"github.com/Cloudsky01/gh-ci-status/internal/logger"
	"github.com/Cloudsky01/gh-ci-status/internal/status"
)

// UsageError means the positional arguments cannot be turned into a target
type UsageError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UsageError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// Detector finds the target from the environment when no arguments are given
type Detector interface {
	Repository(ctx context.Context) (string, error)
	HeadCommit(ctx context.Context) (string, error)
}

// Resolve accepts either no arguments or "owner/repo commit"
func Resolve(ctx context.Context, args []string, d Detector) (status.Target, error) {
	switch len(args) {
	case 0:
		return detect(ctx, d)
	case 2:
		return explicit(args[0], args[1])
	case 1:
		return status.Target{}, &UsageError{
			Message: fmt.Sprintf("missing commit for repository %s", args[0]),
			Hint:    "Pass both arguments (gh ci-status owner/repo <commit>) or none to use the current checkout.",
		}
	default:
		return status.Target{}, &UsageError{
			Message: fmt.Sprintf("expected at most 2 arguments, got %d", len(args)),
		}
	}
}

func explicit(repo, commit string) (status.Target, error) {
	if err := git.ValidateRepositoryFormat(repo); err != nil {
		return status.Target{}, &UsageError{Message: "invalid repository argument", Err: err}
	}
	if err := git.ValidateCommit(commit); err != nil {
		return status.Target{}, &UsageError{Message: "invalid commit argument", Err: err}
	}
	return status.Target{Repo: repo, Commit: strings.ToLower(commit)}, nil
}

func detect(ctx context.Context, d Detector) (status.Target, error) {
	repo, err := d.Repository(ctx)
	if err != nil {
		return status.Target{}, &UsageError{
			Message: "could not determine the repository",
			Hint:    "Run inside a clone of a GitHub repository or pass owner/repo and a commit.",
			Err:     err,
		}
	}

	commit, err := d.HeadCommit(ctx)
	if err != nil {
		return status.Target{}, &UsageError{
			Message: "could not determine the current commit",
			Hint:    "Run inside a git checkout or pass owner/repo and a commit.",
			Err:     err,
		}
	}

	return status.Target{Repo: repo, Commit: strings.ToLower(commit)}, nil
}

// Ambient detects the target from GH_REPO, the git remotes and HEAD of the
// working directory.
type Ambient struct {
	local   *git.Local
	log     logger.Logger
	current func() (repository.Repository, error)
}

func NewAmbient(local *git.Local, log logger.Logger) *Ambient {
	if log == nil {
		log = logger.Nop{}
	}
	return &Ambient{local: local, log: log, current: repository.Current}
}

// Repository prefers go-gh's resolution and falls back to reading .git/config
func (a *Ambient) Repository(ctx context.Context) (string, error) {
	repo, err := a.current()
	if err == nil && repo.Owner != "" && repo.Name != "" {
		return repo.Owner + "/" + repo.Name, nil
	}
	if err != nil {
		a.log.Debug("repository lookup via gh failed: %v", err)
	}

	return git.DetectRepository()
}

func (a *Ambient) HeadCommit(ctx context.Context) (string, error) {
	return a.local.HeadCommit(ctx)
}

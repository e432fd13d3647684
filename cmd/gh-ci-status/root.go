package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	ghAPI "github.com/cli/go-gh/v2/pkg/api"
	"github.com/spf13/cobra"

	"github.com/Cloudsky01/gh-ci-status/internal/config"
	"github.com/Cloudsky01/gh-ci-status/internal/git"
	"github.com/Cloudsky01/gh-ci-status/internal/github"
	"github.com/Cloudsky01/gh-ci-status/internal/logger"
	"github.com/Cloudsky01/gh-ci-status/internal/paths"
	"github.com/Cloudsky01/gh-ci-status/internal/poll"
	"github.com/Cloudsky01/gh-ci-status/internal/render"
	"github.com/Cloudsky01/gh-ci-status/internal/spinner"
	"github.com/Cloudsky01/gh-ci-status/internal/status"
	"github.com/Cloudsky01/gh-ci-status/internal/target"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ciClient is what both backends provide
type ciClient interface {
	status.Client
	ResolveCommit(ctx context.Context, repo, ref string) (string, error)
}

// DependencyError means a required tool or credential is missing
type DependencyError struct {
	Message string
	Hint    string
}

func (e *DependencyError) Error() string {
	if e.Hint == "" {
		return e.Message
	}
	return e.Message + "\n\n" + e.Hint
}

// exitError carries a non-zero exit code. A nil err exits quietly.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// app holds the collaborators of a check so tests can replace them
type app struct {
	lookPath  func(file string) (string, error)
	ghAuth    func(ctx context.Context) error
	newClient func(cfg *config.Config, log logger.Logger) (ciClient, error)
	local     *git.Local
	detector  func(local *git.Local, log logger.Logger) target.Detector
	sleeper   func(out io.Writer) poll.Sleeper
}

func defaultApp() *app {
	return &app{
		lookPath:  exec.LookPath,
		ghAuth:    ghAuthStatus,
		newClient: newClient,
		local:     git.NewLocal(),
		detector: func(local *git.Local, log logger.Logger) target.Detector {
			return target.NewAmbient(local, log)
		},
		sleeper: func(out io.Writer) poll.Sleeper {
			return spinner.New(out, "Waiting for workflow runs")
		},
	}
}

func ghAuthStatus(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, "gh", "auth", "status").Run()
}

func newClient(cfg *config.Config, log logger.Logger) (ciClient, error) {
	if cfg.Backend == config.BackendAPI {
		client, err := github.NewRESTClientWithOptions(ghAPI.ClientOptions{Timeout: cfg.CommandTimeout}, log)
		if err != nil {
			return nil, &DependencyError{
				Message: "GitHub API client could not be created.",
				Hint:    fmt.Sprintf("Run: gh auth login, or set GH_TOKEN\n\nDetails: %v", err),
			}
		}
		return client, nil
	}
	return github.NewCLIClientWithTimeout(cfg.CommandTimeout, log), nil
}

type rootOptions struct {
	configFile string
}

func newRootCmd(a *app) *cobra.Command {
	opts := &rootOptions{}
	def := config.Default()

	cmd := &cobra.Command{
		Use:   "gh-ci-status [owner/repo commit]",
		Short: "Report GitHub Actions status for a commit",
		Long: `gh-ci-status lists the GitHub Actions workflow runs of a commit, waits for
queued and running workflows to finish, and prints the logs of every failed job.

Without arguments the repository and commit are taken from the current checkout.

Requirements:
  - GitHub CLI (gh) installed and authenticated (or GH_TOKEN for --backend api)

Exit codes:
  0   all runs succeeded, or no runs were found
  64  at least one run failed
  1   usage, dependency, configuration or query errors`,
		Example: `  gh-ci-status
  gh-ci-status cli/cli 6f1d2c3
  gh-ci-status --timeout 10m --interval 30s`,
		Args:          cobra.ArbitraryArgs,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd, args, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Path to a configuration file (disables config discovery)")
	flags.IntP("limit", "l", def.Limit, "Maximum number of workflow runs to fetch")
	flags.DurationP("interval", "i", def.Interval, "Delay between polls while runs are active")
	flags.DurationP("timeout", "t", def.Timeout, "Give up waiting for active runs after this long")
	flags.Duration("retry-delay", def.RetryDelay, "Delay before re-checking when no runs are found yet")
	flags.String("backend", def.Backend, `Query backend: "cli" (gh commands) or "api" (REST)`)
	flags.BoolP("debug", "d", false, "Print every gh command before running it")
	flags.Bool("no-color", false, "Disable colored output")

	cmd.SetVersionTemplate(fmt.Sprintf("gh-ci-status %s (commit %s, built %s)\n", version, commit, date))
	cmd.AddCommand(newConfigCmd(a, opts))

	return cmd
}

// loadConfig reads configuration from every source for cmd
func (a *app) loadConfig(cmd *cobra.Command, opts *rootOptions) (*loadedConfig, error) {
	p, err := a.configPaths(cmd.Context())
	if err != nil {
		return nil, err
	}

	cfg, sources, err := config.LoadWithSources(config.Options{File: opts.configFile, Paths: p, Flags: cmd.Flags()})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &loadedConfig{cfg: cfg, paths: p, sources: sources}, nil
}

type loadedConfig struct {
	cfg     *config.Config
	paths   *paths.Paths
	sources map[string]paths.ConfigSource
}

func (a *app) configPaths(ctx context.Context) (*paths.Paths, error) {
	var p *paths.Paths
	var err error
	if root, rootErr := a.local.RepositoryRoot(ctx); rootErr == nil {
		p, err = paths.NewWithProject(root)
	} else {
		p, err = paths.New()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize paths: %w", err)
	}
	return p, nil
}

func (a *app) checkGitHubCLI(ctx context.Context) error {
	if _, err := a.lookPath("gh"); err != nil {
		return &DependencyError{
			Message: "GitHub CLI (gh) is not installed.",
			Hint:    "Install it from: https://cli.github.com/\n\nOn macOS:  brew install gh\nOn Linux:  See https://github.com/cli/cli/blob/trunk/docs/install_linux.md",
		}
	}
	if err := a.ghAuth(ctx); err != nil {
		return &DependencyError{
			Message: "GitHub CLI is not authenticated.",
			Hint:    "Run: gh auth login",
		}
	}
	return nil
}

func (a *app) runCheck(cmd *cobra.Command, args []string, opts *rootOptions) error {
	ctx := cmd.Context()

	loaded, err := a.loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	cfg := loaded.cfg

	out := cmd.OutOrStdout()
	log := logger.NewConsole(out, cfg.Debug)

	t, err := target.Resolve(ctx, args, a.detector(a.local, log))
	if err != nil {
		var usageErr *target.UsageError
		if errors.As(err, &usageErr) {
			fmt.Fprintln(cmd.ErrOrStderr(), cmd.UsageString())
		}
		return err
	}

	if cfg.Backend == config.BackendCLI {
		if err := a.checkGitHubCLI(ctx); err != nil {
			return err
		}
	}

	client, err := a.newClient(cfg, log)
	if err != nil {
		return err
	}

	if len(t.Commit) < 40 {
		full, err := client.ResolveCommit(ctx, t.Repo, t.Commit)
		if err != nil {
			return fmt.Errorf("failed to resolve commit %s: %w", t.Commit, err)
		}
		log.Debug("resolved %s to %s", t.Commit, full)
		t.Commit = full
	}

	checker := status.NewChecker(client, a.sleeper(out), cfg.PollConfig(), render.New(out, cfg.NoColor))
	outcome, err := checker.Check(ctx, t)
	if err != nil {
		return err
	}

	if code := outcome.ExitCode(); code != 0 {
		return &exitError{code: code}
	}
	return nil
}

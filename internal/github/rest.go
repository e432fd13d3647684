package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	ghAPI "github.com/cli/go-gh/v2/pkg/api"

	"github.com/Cloudsky01/gh-ci-status/internal/logger"
	"github.com/Cloudsky01/gh-ci-status/pkg/models"
)

// maxPerPage is the largest page size the REST API accepts
const maxPerPage = 100

// RESTClient queries GitHub Actions through the REST API using gh's stored credentials.
type RESTClient struct {
	rest *ghAPI.RESTClient
	log  logger.Logger
}

type restRun struct {
	ID           int64                `json:"id"`
	Name         string               `json:"name"`
	Event        string               `json:"event"`
	Status       models.RunStatus     `json:"status"`
	Conclusion   models.RunConclusion `json:"conclusion"`
	RunStartedAt time.Time            `json:"run_started_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

type restRunsResponse struct {
	TotalCount int               `json:"total_count"`
	Runs       []json.RawMessage `json:"workflow_runs"`
}

type restJob struct {
	ID         int64                `json:"id"`
	Name       string               `json:"name"`
	Status     models.RunStatus     `json:"status"`
	Conclusion models.RunConclusion `json:"conclusion"`
}

type restJobsResponse struct {
	TotalCount int       `json:"total_count"`
	Jobs       []restJob `json:"jobs"`
}

func NewRESTClient(log logger.Logger) (*RESTClient, error) {
	return NewRESTClientWithOptions(ghAPI.ClientOptions{}, log)
}

func NewRESTClientWithOptions(opts ghAPI.ClientOptions, log logger.Logger) (*RESTClient, error) {
	rest, err := ghAPI.NewRESTClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client (is gh authenticated?): %w", err)
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &RESTClient{rest: rest, log: log}, nil
}

// QueryRuns pages through the runs of repo until limit records have been read.
func (c *RESTClient) QueryRuns(ctx context.Context, repo, commit string, limit int) ([]models.Run, error) {
	perPage := min(limit, maxPerPage)

	var runs []models.Run
	seen := 0
	for page := 1; ; page++ {
		v := url.Values{}
		if commit != "" {
			v.Set("head_sha", commit)
		}
		v.Set("per_page", strconv.Itoa(perPage))
		v.Set("page", strconv.Itoa(page))

		var resp restRunsResponse
		if err := c.get(ctx, "list runs", fmt.Sprintf("repos/%s/actions/runs?%s", repo, v.Encode()), &resp); err != nil {
			return nil, err
		}

		for _, raw := range resp.Runs {
			if seen == limit {
				break
			}
			seen++

			var r restRun
			if err := json.Unmarshal(raw, &r); err != nil {
				c.log.Warn("skipping malformed run record %d: %v", seen-1, err)
				continue
			}
			runs = append(runs, models.Run{
				DatabaseID:   r.ID,
				WorkflowName: r.Name,
				Event:        r.Event,
				Status:       r.Status,
				Conclusion:   r.Conclusion,
				StartedAt:    r.RunStartedAt,
				UpdatedAt:    r.UpdatedAt,
			})
		}

		if seen >= limit || seen >= resp.TotalCount || len(resp.Runs) < perPage {
			break
		}
	}

	if runs == nil {
		runs = []models.Run{}
	}
	return runs, nil
}

func (c *RESTClient) QueryFailedJobs(ctx context.Context, repo string, runID int64) ([]models.Job, error) {
	var all []models.Job
	for page := 1; ; page++ {
		path := fmt.Sprintf("repos/%s/actions/runs/%d/jobs?filter=latest&per_page=%d&page=%d", repo, runID, maxPerPage, page)

		var resp restJobsResponse
		if err := c.get(ctx, "list jobs", path, &resp); err != nil {
			return nil, err
		}

		for _, j := range resp.Jobs {
			all = append(all, models.Job{
				DatabaseID: j.ID,
				Name:       j.Name,
				Status:     j.Status,
				Conclusion: j.Conclusion,
			})
		}

		if len(all) >= resp.TotalCount || len(resp.Jobs) < maxPerPage {
			break
		}
	}
	return failedOnly(all), nil
}

// QueryJobLog downloads a job log. GitHub answers with a redirect to short-lived
// storage, which the underlying HTTP client follows without the auth header.
func (c *RESTClient) QueryJobLog(ctx context.Context, repo string, jobID int64) (string, error) {
	path := fmt.Sprintf("repos/%s/actions/jobs/%d/logs", repo, jobID)
	c.log.Debug("+ GET %s", path)

	resp, err := c.rest.RequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", queryError("download job log", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &QueryError{Op: "download job log", Err: err}
	}
	return string(body), nil
}

func (c *RESTClient) ResolveCommit(ctx context.Context, repo, ref string) (string, error) {
	ref = strings.ToLower(ref)
	if fullSHARegex.MatchString(ref) {
		return ref, nil
	}

	var commit struct {
		SHA string `json:"sha"`
	}
	if err := c.get(ctx, "get commit", fmt.Sprintf("repos/%s/commits/%s", repo, ref), &commit); err != nil {
		return "", err
	}

	sha := strings.ToLower(commit.SHA)
	if !fullSHARegex.MatchString(sha) {
		return "", &FormatError{Op: "get commit", Err: fmt.Errorf("unexpected sha %q", commit.SHA)}
	}
	return sha, nil
}

func (c *RESTClient) get(ctx context.Context, op, path string, result any) error {
	c.log.Debug("+ GET %s", path)

	err := c.rest.DoWithContext(ctx, http.MethodGet, path, nil, result)
	if err == nil {
		return nil
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &FormatError{Op: op, Err: err}
	}
	return queryError(op, err)
}

func queryError(op string, err error) error {
	var httpErr *ghAPI.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
		return &QueryError{Op: op, Err: fmt.Errorf("%w: %w", ErrNotFound, err)}
	}
	return &QueryError{Op: op, Err: err}
}

package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	gh "github.com/google/go-github/v63/github"

	"github.com/qreviewer/qrev/internal/model"
)

// Client fetches pull request diffs from the GitHub REST API.
type Client struct {
	gh    *gh.Client
	token string
}

// NewClient creates a new GitHub client. Requires GITHUB_TOKEN env var.
// GITHUB_API_URL overrides the API base for GitHub Enterprise.
func NewClient() (*Client, error) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN environment variable is not set")
	}
	return NewClientWith(token, os.Getenv("GITHUB_API_URL"), nil)
}

// NewClientWith creates a client with an explicit token, API base URL and
// HTTP client. Empty apiURL uses api.github.com; nil httpCli uses the
// default transport.
func NewClientWith(token, apiURL string, httpCli *http.Client) (*Client, error) {
	client := gh.NewClient(httpCli).WithAuthToken(token)
	if apiURL != "" {
		base, err := url.Parse(strings.TrimRight(apiURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
		}
		client.BaseURL = base
	}
	return &Client{gh: client, token: token}, nil
}

// FetchPRDiff fetches the changed files of a pull request, paginating
// through the file list, and returns a diff document. Files GitHub
// reports without a patch (binary or oversized) are kept with an empty
// patch so they still appear in file listings.
func (c *Client) FetchPRDiff(ctx context.Context, owner, repo string, prNumber int) (model.PRDiff, error) {
	doc := model.PRDiff{
		PR: model.PRInfo{
			URL:    fmt.Sprintf("https://github.com/%s/%s/pull/%d", owner, repo, prNumber),
			Number: prNumber,
			Repo:   owner + "/" + repo,
		},
	}

	opts := &gh.ListOptions{PerPage: 100}
	for {
		files, resp, err := c.gh.PullRequests.ListFiles(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return model.PRDiff{}, classifyAPIError(owner, repo, prNumber, err)
		}
		for _, f := range files {
			doc.Files = append(doc.Files, model.FilePatch{
				Path:      f.GetFilename(),
				Status:    f.GetStatus(),
				Patch:     f.GetPatch(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
				SHA:       f.GetSHA(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return doc, nil
}

func classifyAPIError(owner, repo string, prNumber int, err error) error {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("PR #%d not found in %s/%s", prNumber, owner, repo)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("authentication failed: %w", err)
		}
	}
	return fmt.Errorf("fetching PR files: %w", err)
}

var prURLRe = regexp.MustCompile(`^https?://[^/]+/([^/]+)/([^/]+)/pull/(\d+)`)

// ParsePRURL extracts owner, repo and PR number from a pull request URL
// such as https://github.com/owner/repo/pull/123.
func ParsePRURL(prURL string) (owner, repo string, number int, err error) {
	m := prURLRe.FindStringSubmatch(strings.TrimSpace(prURL))
	if len(m) != 4 {
		return "", "", 0, fmt.Errorf("cannot parse PR URL: %s", prURL)
	}
	number, err = strconv.Atoi(m[3])
	if err != nil {
		return "", "", 0, fmt.Errorf("cannot parse PR number from URL: %s", prURL)
	}
	return m[1], m[2], number, nil
}

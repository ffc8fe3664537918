// Package github provides the repository host adapter backed by the GitHub API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/danielolaszy/prlink/internal/config"
	"github.com/danielolaszy/prlink/internal/logging"
	"github.com/danielolaszy/prlink/pkg/models"
	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"
)

// Pull request states understood by ListPullRequests.
const (
	StateOpen     = "OPEN"
	StateMerged   = "MERGED"
	StateDeclined = "DECLINED"
)

// maxCommitPages bounds commit pagination. GitHub lists at most 250 commits
// per pull request.
const maxCommitPages = 3

// Client encapsulates the GitHub API client.
type Client struct {
	client *github.Client
	owner  string
	domain string
	prURL  *regexp.Regexp
}

// apiURLForDomain returns the REST API base URL for a GitHub domain.
func apiURLForDomain(domain string) string {
	if domain == "" || domain == "github.com" {
		return "https://api.github.com/"
	}
	return fmt.Sprintf("https://%s/api/v3/", domain)
}

// NewClient creates a new GitHub API client from configuration. It does not
// contact the API; use CheckAuth to verify the token.
func NewClient(cfg *config.Config) (*Client, error) {
	if err := config.ValidateGitHubConfig(cfg); err != nil {
		return nil, err
	}

	domain := cfg.GitHub.Domain
	if domain == "" {
		domain = "github.com"
	}
	apiURL := apiURLForDomain(domain)

	logging.Debug("github configuration",
		"domain", domain,
		"api_url", apiURL,
		"owner", cfg.GitHub.Owner,
		"token", logging.MaskSensitive(cfg.GitHub.Token))

	// Create the oauth2 client
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.GitHub.Token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	client := github.NewClient(tc)

	// If not using default GitHub.com, set custom API endpoint
	if domain != "github.com" {
		parsedURL, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github api url: %w", err)
		}
		client.BaseURL = parsedURL
		client.UploadURL = parsedURL
	}

	return newClient(client, cfg.GitHub.Owner, domain), nil
}

func newClient(client *github.Client, owner, domain string) *Client {
	pattern := fmt.Sprintf(`^https?://%s/([^/]+)/([^/]+)/pull/(\d+)`, regexp.QuoteMeta(domain))
	return &Client{
		client: client,
		owner:  owner,
		domain: domain,
		prURL:  regexp.MustCompile(pattern),
	}
}

// CheckAuth verifies the token by fetching the authenticated user.
func (c *Client) CheckAuth(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("github client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	user, resp, err := c.client.Users.Get(ctx, "")
	if err != nil {
		logging.Error("failed to test github token",
			"error", err,
			"status_code", statusCode(resp))
		return fmt.Errorf("error testing github token: %w", err)
	}

	logging.Info("github authentication successful",
		"username", user.GetLogin())
	return nil
}

// Ready reports whether the client is configured.
func (c *Client) Ready() bool {
	return c != nil && c.client != nil && c.owner != ""
}

// Owner returns the user or organization bare repository names resolve to.
func (c *Client) Owner() string {
	return c.owner
}

// resolve splits a repository reference into owner and name. A bare name is
// resolved against the configured owner.
func (c *Client) resolve(repository string) (string, string, error) {
	parts := strings.Split(repository, "/")
	switch {
	case len(parts) == 1 && parts[0] != "" && c.owner != "":
		return c.owner, parts[0], nil
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		return parts[0], parts[1], nil
	}
	return "", "", fmt.Errorf("invalid repository format: %s, expected format: owner/repo or repo", repository)
}

// ListPullRequests returns one page of pull requests in the given state, most
// recently updated first. MERGED and DECLINED are both closed on GitHub and are
// told apart by the merge timestamp, so their pages may be shorter than PerPage.
func (c *Client) ListPullRequests(ctx context.Context, repository string, opts models.ListOptions) (*models.PullRequestPage, error) {
	owner, repo, err := c.resolve(repository)
	if err != nil {
		return nil, err
	}
	if c.client == nil {
		return nil, fmt.Errorf("github client not initialized")
	}

	state := strings.ToUpper(opts.State)
	var ghState string
	switch state {
	case StateOpen:
		ghState = "open"
	case StateMerged, StateDeclined:
		ghState = "closed"
	default:
		return nil, fmt.Errorf("unsupported pull request state: %s", opts.State)
	}

	listOpts := &github.PullRequestListOptions{
		State:     ghState,
		Sort:      "updated",
		Direction: "desc",
		ListOptions: github.ListOptions{
			Page:    opts.Page,
			PerPage: opts.PerPage,
		},
	}

	prs, resp, err := c.client.PullRequests.List(ctx, owner, repo, listOpts)
	if err != nil {
		logging.Error("failed to list pull requests",
			"repository", owner+"/"+repo,
			"state", state,
			"error", err)
		return nil, fmt.Errorf("failed to list %s pull requests for %s/%s: %w", state, owner, repo, wrapStatus(resp, err))
	}

	page := &models.PullRequestPage{Next: resp != nil && resp.NextPage != 0}
	for _, pr := range prs {
		converted := c.convert(pr, owner, repo)
		if converted.State != state {
			continue
		}
		page.PullRequests = append(page.PullRequests, converted)
	}

	logging.Debug("listed pull requests",
		"repository", owner+"/"+repo,
		"state", state,
		"page", opts.Page,
		"count", len(page.PullRequests),
		"has_next", page.Next)
	return page, nil
}

// ListCommits returns the commits of a pull request.
func (c *Client) ListCommits(ctx context.Context, repository string, prID int) ([]models.Commit, error) {
	owner, repo, err := c.resolve(repository)
	if err != nil {
		return nil, err
	}
	if c.client == nil {
		return nil, fmt.Errorf("github client not initialized")
	}

	opts := &github.ListOptions{PerPage: 100}
	var commits []models.Commit
	for i := 0; i < maxCommitPages; i++ {
		page, resp, err := c.client.PullRequests.ListCommits(ctx, owner, repo, prID, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list commits of %s/%s#%d: %w", owner, repo, prID, wrapStatus(resp, err))
		}
		for _, commit := range page {
			commits = append(commits, models.Commit{
				Hash:    commit.GetSHA(),
				Message: commit.GetCommit().GetMessage(),
				Author:  commit.GetCommit().GetAuthor().GetName(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return commits, nil
}

// GetPullRequest returns the detailed record of one pull request. A missing
// pull request yields an error wrapping models.ErrNotFound.
func (c *Client) GetPullRequest(ctx context.Context, repository string, prID int) (*models.PullRequest, error) {
	owner, repo, err := c.resolve(repository)
	if err != nil {
		return nil, err
	}
	if c.client == nil {
		return nil, fmt.Errorf("github client not initialized")
	}

	pr, resp, err := c.client.PullRequests.Get(ctx, owner, repo, prID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pull request %s/%s#%d: %w", owner, repo, prID, wrapStatus(resp, err))
	}

	converted := c.convert(pr, owner, repo)
	return &converted, nil
}

// ParsePullRequestURL recognizes a pull request URL on the configured domain
// and returns its "owner/repo" and number.
func (c *Client) ParsePullRequestURL(link string) (string, int, bool) {
	if c.prURL == nil {
		return "", 0, false
	}
	match := c.prURL.FindStringSubmatch(link)
	if match == nil {
		return "", 0, false
	}
	number, err := strconv.Atoi(match[3])
	if err != nil {
		return "", 0, false
	}
	return match[1] + "/" + match[2], number, true
}

// convert maps a GitHub pull request to our internal model.
func (c *Client) convert(pr *github.PullRequest, owner, repo string) models.PullRequest {
	state := StateOpen
	if pr.GetState() == "closed" {
		if pr.GetMerged() || pr.MergedAt != nil {
			state = StateMerged
		} else {
			state = StateDeclined
		}
	}

	link := pr.GetHTMLURL()
	if link == "" {
		link = fmt.Sprintf("https://%s/%s/%s/pull/%d", c.domain, owner, repo, pr.GetNumber())
	}

	converted := models.PullRequest{
		ID:                pr.GetNumber(),
		Repository:        owner + "/" + repo,
		Title:             pr.GetTitle(),
		Description:       pr.GetBody(),
		State:             state,
		SourceBranch:      pr.GetHead().GetRef(),
		DestinationBranch: pr.GetBase().GetRef(),
		Author:            pr.GetUser().GetLogin(),
		URL:               link,
		CreatedAt:         pr.CreatedAt,
		UpdatedAt:         pr.UpdatedAt,
		CommitCount:       pr.GetCommits(),
		ChangedFiles:      pr.GetChangedFiles(),
		Additions:         pr.GetAdditions(),
		Deletions:         pr.GetDeletions(),
		CommentCount:      pr.GetComments(),
		ReviewComments:    pr.GetReviewComments(),
	}
	if state == StateMerged {
		converted.MergeCommit = pr.GetMergeCommitSHA()
	}
	return converted
}

// wrapStatus maps a 404 response onto models.ErrNotFound.
func wrapStatus(resp *github.Response, err error) error {
	var ghErr *github.ErrorResponse
	if statusCode(resp) == http.StatusNotFound || (errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound) {
		return fmt.Errorf("%w: %v", models.ErrNotFound, err)
	}
	return err
}

func statusCode(resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}

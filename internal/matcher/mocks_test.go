package matcher

import (
	"context"
	"regexp"
	"strconv"
	"sync/atomic"

	"github.com/danielolaszy/prlink/pkg/models"
)

// MockTracker implements Tracker for testing
type MockTracker struct {
	RemoteLinksFunc           func(context.Context, string) ([]models.RemoteLink, error)
	DevelopmentInfoFunc       func(context.Context, string) (*models.DevelopmentInfo, error)
	DevStatusPullRequestsFunc func(context.Context, string) ([]models.DevStatusPR, error)
}

func (m *MockTracker) RemoteLinks(ctx context.Context, ticketKey string) ([]models.RemoteLink, error) {
	if m.RemoteLinksFunc != nil {
		return m.RemoteLinksFunc(ctx, ticketKey)
	}
	return nil, nil
}

func (m *MockTracker) DevelopmentInfo(ctx context.Context, ticketKey string) (*models.DevelopmentInfo, error) {
	if m.DevelopmentInfoFunc != nil {
		return m.DevelopmentInfoFunc(ctx, ticketKey)
	}
	return nil, nil
}

func (m *MockTracker) DevStatusPullRequests(ctx context.Context, ticketKey string) ([]models.DevStatusPR, error) {
	if m.DevStatusPullRequestsFunc != nil {
		return m.DevStatusPullRequestsFunc(ctx, ticketKey)
	}
	return nil, nil
}

var mockPRURL = regexp.MustCompile(`^https://github\.com/([^/]+/[^/]+)/pull/(\d+)`)

// MockRepository implements Repository for testing. Call counters are safe
// for the concurrent calls the matcher makes.
type MockRepository struct {
	ListPullRequestsFunc func(context.Context, string, models.ListOptions) (*models.PullRequestPage, error)
	ListCommitsFunc      func(context.Context, string, int) ([]models.Commit, error)
	GetPullRequestFunc   func(context.Context, string, int) (*models.PullRequest, error)
	NotReady             bool

	listCalls   atomic.Int32
	commitCalls atomic.Int32
	getCalls    atomic.Int32
}

func (m *MockRepository) ListPullRequests(ctx context.Context, repo string, opts models.ListOptions) (*models.PullRequestPage, error) {
	m.listCalls.Add(1)
	if m.ListPullRequestsFunc != nil {
		return m.ListPullRequestsFunc(ctx, repo, opts)
	}
	return &models.PullRequestPage{}, nil
}

func (m *MockRepository) ListCommits(ctx context.Context, repo string, prID int) ([]models.Commit, error) {
	m.commitCalls.Add(1)
	if m.ListCommitsFunc != nil {
		return m.ListCommitsFunc(ctx, repo, prID)
	}
	return nil, nil
}

func (m *MockRepository) GetPullRequest(ctx context.Context, repo string, prID int) (*models.PullRequest, error) {
	m.getCalls.Add(1)
	if m.GetPullRequestFunc != nil {
		return m.GetPullRequestFunc(ctx, repo, prID)
	}
	return nil, models.ErrNotFound
}

func (m *MockRepository) ParsePullRequestURL(url string) (string, int, bool) {
	match := mockPRURL.FindStringSubmatch(url)
	if match == nil {
		return "", 0, false
	}
	id, err := strconv.Atoi(match[2])
	if err != nil {
		return "", 0, false
	}
	return match[1], id, true
}

func (m *MockRepository) Ready() bool {
	return !m.NotReady
}

// pagesByState serves a fixed list of pull requests per state on page 1.
func pagesByState(prs map[string][]models.PullRequest) func(context.Context, string, models.ListOptions) (*models.PullRequestPage, error) {
	return func(_ context.Context, _ string, opts models.ListOptions) (*models.PullRequestPage, error) {
		if opts.Page > 1 {
			return &models.PullRequestPage{}, nil
		}
		return &models.PullRequestPage{PullRequests: prs[opts.State]}, nil
	}
}

// commitsByID serves a fixed list of commits per pull request.
func commitsByID(commits map[int][]models.Commit) func(context.Context, string, int) ([]models.Commit, error) {
	return func(_ context.Context, _ string, prID int) ([]models.Commit, error) {
		return commits[prID], nil
	}
}

// Package matcher correlates tracker tickets with pull requests. It combines
// authoritative links reported by the tracker with heuristic evidence found in
// branch names, titles, descriptions and commit messages, and returns a ranked
// list of matches with the evidence behind each one.
package matcher

import (
	"context"
	"fmt"
	"time"

	"github.com/danielolaszy/prlink/internal/logging"
	"github.com/danielolaszy/prlink/pkg/models"
	"golang.org/x/sync/singleflight"
)

const (
	// targetedSearchPageSize is how many recent pull requests per state the
	// targeted search inspects.
	targetedSearchPageSize = 50
	// limitedFetchCap bounds the total number of pull requests scored when no
	// targeted search is possible.
	limitedFetchCap = 50
	// limitedFetchPageSize bounds each per-state page of the limited fetch.
	limitedFetchPageSize = 25
	// batchPageSize is the page size used to build the batch universe.
	batchPageSize = 50

	defaultMaxResults      = 100
	defaultBatchMaxResults = 200
)

// DefaultStates are the pull request states searched when a caller names none.
var DefaultStates = []string{"OPEN", "MERGED"}

// Tracker is the part of the issue tracker the matcher consumes.
type Tracker interface {
	// RemoteLinks returns the links attached to a ticket.
	RemoteLinks(ctx context.Context, ticketKey string) ([]models.RemoteLink, error)
	// DevelopmentInfo returns the development summary of a ticket, or nil
	// when the tracker reports none.
	DevelopmentInfo(ctx context.Context, ticketKey string) (*models.DevelopmentInfo, error)
	// DevStatusPullRequests returns the pull requests the tracker's native
	// integration links to a ticket.
	DevStatusPullRequests(ctx context.Context, ticketKey string) ([]models.DevStatusPR, error)
}

// Repository is the part of the repository host the matcher consumes.
type Repository interface {
	ListPullRequests(ctx context.Context, repo string, opts models.ListOptions) (*models.PullRequestPage, error)
	ListCommits(ctx context.Context, repo string, prID int) ([]models.Commit, error)
	// GetPullRequest returns the detailed record of one pull request. A missing
	// pull request yields an error wrapping models.ErrNotFound.
	GetPullRequest(ctx context.Context, repo string, prID int) (*models.PullRequest, error)
	// ParsePullRequestURL recognizes a pull request web URL of this host.
	ParsePullRequestURL(url string) (repo string, prID int, ok bool)
	// Ready reports whether the client is configured and authenticated.
	Ready() bool
}

// Options configures a Matcher.
type Options struct {
	// CacheTTL is how long answers are cached. Zero selects DefaultCacheTTL.
	CacheTTL time.Duration

	// DefaultStates replaces DefaultStates when set.
	DefaultStates []string
}

// FindOptions narrows a ticket lookup.
type FindOptions struct {
	States     []string
	MaxResults int
}

// BatchOptions narrows a batch lookup.
type BatchOptions struct {
	States     []string
	MaxResults int
}

// TicketResult is the answer to a ticket lookup.
type TicketResult struct {
	TicketKey    string           `json:"ticketKey" yaml:"ticketKey"`
	PullRequests []models.PRMatch `json:"pullRequests" yaml:"pullRequests"`
	FromCache    bool             `json:"-" yaml:"-"`
}

func (r *TicketResult) clone() *TicketResult {
	c := &TicketResult{TicketKey: r.TicketKey, FromCache: r.FromCache}
	c.PullRequests = make([]models.PRMatch, len(r.PullRequests))
	for i, match := range r.PullRequests {
		c.PullRequests[i] = match.Clone()
	}
	return c
}

func (r *TicketResult) limit(n int) *TicketResult {
	if n > 0 && len(r.PullRequests) > n {
		r.PullRequests = r.PullRequests[:n]
	}
	return r
}

// Matcher answers ticket-to-pull-request and pull-request-to-ticket queries.
// It owns its result cache; two Matchers never share cached answers.
type Matcher struct {
	tracker Tracker
	repo    Repository
	cache   *Cache
	flight  singleflight.Group
	states  []string
}

// New creates a Matcher. Either adapter may be nil, in which case the
// strategies that need it are skipped or fail.
func New(tracker Tracker, repo Repository, opts Options) *Matcher {
	states := opts.DefaultStates
	if len(states) == 0 {
		states = DefaultStates
	}
	return &Matcher{
		tracker: tracker,
		repo:    repo,
		cache:   NewCache(opts.CacheTTL),
		states:  append([]string(nil), states...),
	}
}

// Cache returns the matcher's result cache.
func (m *Matcher) Cache() *Cache {
	return m.cache
}

// ClearCache drops every cached answer.
func (m *Matcher) ClearCache() {
	m.cache.Clear()
	logging.Debug("matcher cache cleared")
}

func (m *Matcher) resolveStates(states []string) []string {
	if len(states) == 0 {
		return m.states
	}
	return states
}

// FindPRsForTicket returns the pull requests most plausibly implementing
// ticketKey, ranked by confidence. With repo empty the tracker's dev-status
// integration is consulted first and the cache key records "all-repos".
func (m *Matcher) FindPRsForTicket(ctx context.Context, ticketKey, repo string, opts FindOptions) (result *TicketResult, err error) {
	defer recoverInto(&err, "failed to find PRs for ticket %s", ticketKey)

	key := models.NormalizeTicketKey(ticketKey)
	if !models.ValidTicketKey(key) {
		return nil, newError(CodeInvalidTicketKey, StageValidate, nil, "invalid ticket key %q", ticketKey)
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	states := m.resolveStates(opts.States)
	cacheKey := ticketCacheKey(key, repo, states)
	if cached, ok := m.cache.Get(cacheKey); ok {
		logging.Debug("ticket lookup served from cache", "ticket", key, "cache_key", cacheKey)
		r := cached.(*TicketResult).clone()
		r.FromCache = true
		return r.limit(maxResults), nil
	}

	v, err, _ := m.flight.Do(cacheKey, func() (any, error) {
		r, err := m.lookupTicket(ctx, key, repo, states)
		if err != nil {
			return nil, err
		}
		m.cache.Set(cacheKey, r.clone())
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TicketResult).clone().limit(maxResults), nil
}

// lookupTicket runs the lookup strategies in order, stopping at the first
// that yields sufficient evidence.
func (m *Matcher) lookupTicket(ctx context.Context, key, repo string, states []string) (*TicketResult, error) {
	if repo == "" {
		matches, err := m.devStatusMatches(ctx, key)
		if err != nil {
			logging.Debug("dev-status probe unavailable", "ticket", key, "error", err)
		} else if len(matches) > 0 {
			logging.Info("using dev-status links", "ticket", key, "count", len(matches))
			return &TicketResult{TicketKey: key, PullRequests: m.enhance(ctx, matches, repo)}, nil
		}
	}

	official, devInfo := m.officialMatches(ctx, key)
	hasEvidence := len(official) > 0 || (devInfo != nil && devInfo.HasPRs)

	var candidates []models.PullRequest
	var fetchErr error
	if hasEvidence {
		candidates, fetchErr = m.targetedSearch(ctx, key, repo, states)
		if fetchErr != nil {
			logging.Warn("targeted search failed, falling back to limited fetch", "ticket", key, "error", fetchErr)
			candidates, fetchErr = m.limitedFetch(ctx, repo, states, limitedFetchCap)
		}
	} else {
		candidates, fetchErr = m.limitedFetch(ctx, repo, states, limitedFetchCap)
	}

	if fetchErr != nil {
		if len(official) > 0 {
			logging.Warn("pull request search failed, returning tracker links only",
				"ticket", key,
				"official_count", len(official),
				"error", fetchErr)
			return &TicketResult{TicketKey: key, PullRequests: m.enhance(ctx, Merge(official, nil), repo)}, nil
		}
		return nil, fetchErr
	}

	commits := m.loadCommits(ctx, repo, candidates)
	heuristic := scoreCandidates(candidates, commits, key)
	merged := Merge(official, heuristic)

	logging.Debug("ticket lookup complete",
		"ticket", key,
		"repository", repo,
		"candidates", len(candidates),
		"official", len(official),
		"matches", len(merged))

	return &TicketResult{TicketKey: key, PullRequests: m.enhance(ctx, merged, repo)}, nil
}

// devStatusMatches converts the tracker's dev-status pull requests into
// authoritative matches.
func (m *Matcher) devStatusMatches(ctx context.Context, key string) ([]models.PRMatch, error) {
	if m.tracker == nil {
		return nil, newError(CodeJiraDevStatusError, StageDevStatus, nil, "tracker not configured")
	}
	prs, err := m.tracker.DevStatusPullRequests(ctx, key)
	if err != nil {
		return nil, newError(CodeJiraDevStatusError, StageDevStatus, err, "failed to get dev-status for %s", key)
	}

	matches := make([]models.PRMatch, 0, len(prs))
	for _, pr := range prs {
		matches = append(matches, models.PRMatch{
			ID:                pr.ID,
			Repository:        pr.RepositoryName,
			RepositoryURL:     pr.RepositoryURL,
			Title:             pr.Name,
			Status:            pr.Status,
			URL:               pr.URL,
			Branch:            pr.SourceBranch,
			DestinationBranch: pr.DestinationBranch,
			Author:            pr.Author,
			CreatedAt:         pr.Created,
			UpdatedAt:         pr.LastUpdate,
			CommentCount:      pr.CommentCount,
			Reviewers:         append([]string(nil), pr.Reviewers...),
			Confidence:        ConfidenceOfficialLink,
			Sources:           []models.MatchSource{models.SourceJiraDevStatus},
		})
	}
	return matches, nil
}

// officialMatches collects pull requests linked from the ticket's remote links
// and the development summary. Either probe failing counts as no evidence.
func (m *Matcher) officialMatches(ctx context.Context, key string) ([]models.PRMatch, *models.DevelopmentInfo) {
	if m.tracker == nil {
		return nil, nil
	}

	official := m.remoteLinkMatches(ctx, key)

	devInfo, err := m.tracker.DevelopmentInfo(ctx, key)
	if err != nil {
		logging.Debug("development info unavailable", "ticket", key, "error", err)
		devInfo = nil
	}
	return official, devInfo
}

// remoteLinkMatches turns the ticket's remote links that point at pull
// requests into authoritative matches.
func (m *Matcher) remoteLinkMatches(ctx context.Context, key string) []models.PRMatch {
	if m.tracker == nil {
		return nil
	}

	var official []models.PRMatch
	links, err := m.tracker.RemoteLinks(ctx, key)
	if err != nil {
		logging.Debug("remote links unavailable", "ticket", key, "error", err)
	}
	for _, link := range links {
		if m.repo == nil {
			break
		}
		repo, id, ok := m.repo.ParsePullRequestURL(link.URL)
		if !ok {
			continue
		}
		title := link.Title
		if title == "" {
			title = fmt.Sprintf("PR #%d", id)
		}
		official = append(official, models.PRMatch{
			ID:         id,
			Repository: repo,
			Title:      title,
			Status:     "UNKNOWN",
			URL:        link.URL,
			Confidence: ConfidenceOfficialLink,
			Sources:    []models.MatchSource{models.SourceJiraLink},
		})
	}
	return official
}

// targetedSearch inspects the most recent pull requests of each state and
// keeps those mentioning the ticket in any accepted spelling. It fails only
// when every state fails.
func (m *Matcher) targetedSearch(ctx context.Context, key, repo string, states []string) ([]models.PullRequest, error) {
	if repo == "" {
		return nil, newError(CodeTargetedSearch, StageTargetedSearch, nil, "repository is required for targeted search")
	}
	if m.repo == nil {
		return nil, newError(CodeTargetedSearch, StageTargetedSearch, nil, "repository host not configured")
	}

	var found []models.PullRequest
	seen := make(map[int]bool)
	var lastErr error
	failures := 0
	for _, state := range states {
		page, err := m.repo.ListPullRequests(ctx, repo, models.ListOptions{State: state, Page: 1, PerPage: targetedSearchPageSize})
		if err != nil {
			logging.Debug("targeted search state failed", "state", state, "repository", repo, "error", err)
			lastErr = err
			failures++
			continue
		}
		for _, pr := range page.PullRequests {
			if seen[pr.ID] || !mentionsTicket(pr, key) {
				continue
			}
			seen[pr.ID] = true
			found = append(found, pr)
		}
	}

	if failures > 0 && failures == len(states) {
		return nil, newError(CodeTargetedSearch, StageTargetedSearch, lastErr, "targeted PR search failed for %s", repo)
	}
	return found, nil
}

// limitedFetch returns up to limit recent pull requests across states without
// filtering. It fails only when every state fails.
func (m *Matcher) limitedFetch(ctx context.Context, repo string, states []string, limit int) ([]models.PullRequest, error) {
	if repo == "" {
		return nil, newError(CodeLimitedFetch, StageLimitedFetch, nil, "repository is required")
	}
	if m.repo == nil {
		return nil, newError(CodeLimitedFetch, StageLimitedFetch, nil, "repository host not configured")
	}

	var fetched []models.PullRequest
	var lastErr error
	failures, attempts := 0, 0
	for _, state := range states {
		if len(fetched) >= limit {
			break
		}
		attempts++
		pageSize := min(limitedFetchPageSize, limit-len(fetched))
		page, err := m.repo.ListPullRequests(ctx, repo, models.ListOptions{State: state, Page: 1, PerPage: pageSize})
		if err != nil {
			logging.Debug("limited fetch state failed", "state", state, "repository", repo, "error", err)
			lastErr = err
			failures++
			continue
		}
		prs := page.PullRequests
		if len(prs) > pageSize {
			prs = prs[:pageSize]
		}
		fetched = append(fetched, prs...)
	}

	if failures > 0 && failures == attempts {
		return nil, newError(CodeLimitedFetch, StageLimitedFetch, lastErr, "limited PR fetch failed for %s", repo)
	}
	return fetched, nil
}

// scoreCandidates assesses each pull request against key and keeps those with
// any evidence, in the order given.
func scoreCandidates(candidates []models.PullRequest, commits map[int][]models.Commit, key string) []models.PRMatch {
	var matches []models.PRMatch
	for _, pr := range candidates {
		assessment := AssessPullRequest(pr, commits[pr.ID], key)
		if assessment.Confidence <= 0 {
			continue
		}
		matches = append(matches, matchFromPullRequest(pr, assessment))
	}
	return matches
}

func matchFromPullRequest(pr models.PullRequest, a Assessment) models.PRMatch {
	return models.PRMatch{
		ID:                pr.ID,
		Repository:        pr.Repository,
		Title:             pr.Title,
		Status:            pr.State,
		URL:               pr.URL,
		Branch:            pr.SourceBranch,
		DestinationBranch: pr.DestinationBranch,
		Author:            pr.Author,
		CreatedAt:         pr.CreatedAt,
		UpdatedAt:         pr.UpdatedAt,
		Commits:           pr.CommitCount,
		FilesChanged:      pr.ChangedFiles,
		Confidence:        a.Confidence,
		Sources:           a.Sources,
	}
}

// recoverInto turns a panic in a public operation into a typed error.
func recoverInto(err *error, format string, args ...any) {
	if r := recover(); r != nil {
		logging.Error("matcher panic recovered", "panic", r)
		*err = newError(CodeMatcherError, StageInternal, fmt.Errorf("%v", r), format, args...)
	}
}

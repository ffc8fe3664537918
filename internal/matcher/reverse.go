package matcher

import (
	"context"
	"errors"

	"github.com/danielolaszy/prlink/internal/logging"
	"github.com/danielolaszy/prlink/pkg/models"
)

// PRResult is the answer to a reverse lookup.
type PRResult struct {
	PRID      int                  `json:"prId" yaml:"prId"`
	RepoSlug  string               `json:"repoSlug" yaml:"repoSlug"`
	Tickets   []models.TicketMatch `json:"tickets" yaml:"tickets"`
	FromCache bool                 `json:"-" yaml:"-"`
}

func (r *PRResult) clone() *PRResult {
	c := &PRResult{PRID: r.PRID, RepoSlug: r.RepoSlug, FromCache: r.FromCache}
	c.Tickets = make([]models.TicketMatch, len(r.Tickets))
	for i, t := range r.Tickets {
		t.Sources = append([]models.MatchSource(nil), t.Sources...)
		c.Tickets[i] = t
	}
	return c
}

// FindTicketsForPR returns the tickets a pull request references. Title,
// description, branch and commit messages are each scanned once; a ticket seen
// on several surfaces keeps its best confidence and every source.
func (m *Matcher) FindTicketsForPR(ctx context.Context, prID int, repo string) (result *PRResult, err error) {
	defer recoverInto(&err, "failed to find tickets for PR %d", prID)

	if prID <= 0 || repo == "" {
		return nil, newError(CodeInvalidArgument, StageValidate, nil, "a pull request id and repository are required")
	}

	cacheKey := prCacheKey(prID, repo)
	if cached, ok := m.cache.Get(cacheKey); ok {
		logging.Debug("reverse lookup served from cache", "pr", prID, "repository", repo)
		r := cached.(*PRResult).clone()
		r.FromCache = true
		return r, nil
	}

	v, err, _ := m.flight.Do(cacheKey, func() (any, error) {
		r, err := m.lookupPR(ctx, prID, repo)
		if err != nil {
			return nil, err
		}
		m.cache.Set(cacheKey, r.clone())
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*PRResult).clone(), nil
}

func (m *Matcher) lookupPR(ctx context.Context, prID int, repo string) (*PRResult, error) {
	if m.repo == nil {
		return nil, newError(CodeMatcherError, StagePRDetail, nil, "repository host not configured")
	}

	pr, err := m.repo.GetPullRequest(ctx, repo, prID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, newError(CodePRNotFound, StagePRDetail, err, "pull request %d not found in repository %s", prID, repo)
		}
		return nil, newError(CodeMatcherError, StagePRDetail, err, "failed to fetch pull request %d in repository %s", prID, repo)
	}

	commits, err := m.repo.ListCommits(ctx, repo, prID)
	if err != nil {
		logging.Warn("commit listing failed, skipping commit evidence", "pr", prID, "repository", repo, "error", err)
		commits = nil
	}

	return &PRResult{
		PRID:     prID,
		RepoSlug: repo,
		Tickets:  ticketsForPullRequest(*pr, commits),
	}, nil
}

// ticketsForPullRequest extracts and reconciles every ticket reference of a
// pull request, in the order first seen.
func ticketsForPullRequest(pr models.PullRequest, commits []models.Commit) []models.TicketMatch {
	tickets := make(map[string]*models.TicketMatch)
	var order []string

	for _, key := range ExtractTicketsFromText(pr.Title) {
		mergeTicketMatch(tickets, &order, key, ConfidenceCommitTitle, models.SourcePRTitle)
	}
	for _, key := range ExtractTicketsFromText(pr.Description) {
		mergeTicketMatch(tickets, &order, key, ConfidenceCommitMessage, models.SourcePRDescription)
	}
	for _, key := range ExtractTicketsFromBranch(pr.SourceBranch) {
		mergeTicketMatch(tickets, &order, key, ConfidenceBranchPattern, models.SourceBranchName)
	}
	for _, commit := range commits {
		for _, key := range ExtractTicketsFromText(commit.Message) {
			mergeTicketMatch(tickets, &order, key, ConfidenceCommitMessage, models.SourceCommitMessage)
		}
	}

	out := make([]models.TicketMatch, 0, len(order))
	for _, key := range order {
		out = append(out, *tickets[key])
	}
	return out
}

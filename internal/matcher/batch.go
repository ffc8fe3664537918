package matcher

import (
	"context"
	"encoding/json"

	"github.com/danielolaszy/prlink/internal/logging"
	"github.com/danielolaszy/prlink/pkg/models"
)

// BatchResult is the answer to a batch lookup, keyed by canonical ticket key.
type BatchResult struct {
	Results   map[string]*TicketResult
	FromCache bool
}

// MarshalJSON encodes the result as the bare map of ticket key to result.
func (r BatchResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Results)
}

// MarshalYAML encodes the result as the bare map of ticket key to result.
func (r BatchResult) MarshalYAML() (any, error) {
	return r.Results, nil
}

func (r *BatchResult) clone() *BatchResult {
	c := &BatchResult{Results: make(map[string]*TicketResult, len(r.Results)), FromCache: r.FromCache}
	for key, result := range r.Results {
		c.Results[key] = result.clone()
	}
	return c
}

// BatchMatchTickets matches many tickets against one repository. The pull
// request universe is fetched once and every ticket is scored against it with
// the same rules as FindPRsForTicket.
func (m *Matcher) BatchMatchTickets(ctx context.Context, ticketKeys []string, repo string, opts BatchOptions) (result *BatchResult, err error) {
	defer recoverInto(&err, "failed to batch match tickets")

	if repo == "" {
		return nil, newError(CodeInvalidArgument, StageValidate, nil, "repository is required for batch matching")
	}
	keys, err := normalizeKeys(ticketKeys)
	if err != nil {
		return nil, err
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = defaultBatchMaxResults
	}
	states := m.resolveStates(opts.States)

	cacheKey := batchCacheKey(keys, repo, states, maxResults)
	if cached, ok := m.cache.Get(cacheKey); ok {
		logging.Debug("batch lookup served from cache", "tickets", len(keys), "repository", repo)
		r := cached.(*BatchResult).clone()
		r.FromCache = true
		return r, nil
	}

	v, err, _ := m.flight.Do(cacheKey, func() (any, error) {
		r, err := m.lookupBatch(ctx, keys, repo, states, maxResults)
		if err != nil {
			return nil, err
		}
		m.cache.Set(cacheKey, r.clone())
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*BatchResult).clone(), nil
}

func (m *Matcher) lookupBatch(ctx context.Context, keys []string, repo string, states []string, maxResults int) (*BatchResult, error) {
	universe, err := m.fetchUniverse(ctx, repo, states, maxResults)
	if err != nil {
		return nil, err
	}
	commits := m.loadCommits(ctx, repo, universe)

	result := &BatchResult{Results: make(map[string]*TicketResult, len(keys))}
	for _, key := range keys {
		merged := Merge(m.remoteLinkMatches(ctx, key), scoreCandidates(universe, commits, key))
		result.Results[key] = &TicketResult{TicketKey: key, PullRequests: m.enhance(ctx, merged, repo)}
	}

	logging.Info("batch match complete",
		"repository", repo,
		"tickets", len(keys),
		"universe", len(universe))
	return result, nil
}

// fetchUniverse walks the states page by page, asking every state for its
// next page before any state gets a further one. A state drops out when the
// host reports no further page; the walk stops once maxResults pull requests
// have been collected. Every request uses the same page size so page offsets
// stay aligned.
func (m *Matcher) fetchUniverse(ctx context.Context, repo string, states []string, maxResults int) ([]models.PullRequest, error) {
	if m.repo == nil {
		return nil, newError(CodeBatchFetch, StageBatchFetch, nil, "repository host not configured")
	}

	var universe []models.PullRequest
	active := states
	for page := 1; len(active) > 0 && len(universe) < maxResults; page++ {
		var next []string
		for _, state := range active {
			remaining := maxResults - len(universe)
			if remaining <= 0 {
				break
			}
			result, err := m.repo.ListPullRequests(ctx, repo, models.ListOptions{State: state, Page: page, PerPage: batchPageSize})
			if err != nil {
				return nil, newError(CodeBatchFetch, StageBatchFetch, err, "failed to fetch %s pull requests for %s", state, repo)
			}
			prs := result.PullRequests
			if len(prs) > remaining {
				prs = prs[:remaining]
			}
			universe = append(universe, prs...)
			if result.Next && len(result.PullRequests) > 0 {
				next = append(next, state)
			}
		}
		active = next
	}
	return universe, nil
}

// normalizeKeys canonicalizes and de-duplicates ticket keys, rejecting any
// that are malformed.
func normalizeKeys(ticketKeys []string) ([]string, error) {
	if len(ticketKeys) == 0 {
		return nil, newError(CodeInvalidArgument, StageValidate, nil, "at least one ticket key is required")
	}
	seen := make(map[string]bool, len(ticketKeys))
	keys := make([]string, 0, len(ticketKeys))
	for _, raw := range ticketKeys {
		key := models.NormalizeTicketKey(raw)
		if !models.ValidTicketKey(key) {
			return nil, newError(CodeInvalidTicketKey, StageValidate, nil, "invalid ticket key %q", raw)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys, nil
}

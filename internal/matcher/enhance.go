package matcher

import (
	"context"

	"github.com/danielolaszy/prlink/internal/logging"
	"github.com/danielolaszy/prlink/pkg/models"
	"golang.org/x/sync/errgroup"
)

// fanOutLimit bounds concurrent adapter calls within one request.
const fanOutLimit = 4

// forEach runs fn for i in [0, n) with bounded concurrency. fn writes its own
// result slot, so output order never depends on scheduling.
func forEach(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
}

// loadCommits fetches the commits of every candidate once. Pull requests whose
// commits cannot be fetched simply contribute no commit evidence.
func (m *Matcher) loadCommits(ctx context.Context, repo string, candidates []models.PullRequest) map[int][]models.Commit {
	commits := make(map[int][]models.Commit, len(candidates))
	if repo == "" || m.repo == nil || len(candidates) == 0 {
		return commits
	}

	results := make([][]models.Commit, len(candidates))
	forEach(ctx, len(candidates), func(ctx context.Context, i int) {
		list, err := m.repo.ListCommits(ctx, repoFor(candidates[i], repo), candidates[i].ID)
		if err != nil {
			logging.Debug("commit listing failed", "pr", candidates[i].ID, "error", err)
			return
		}
		results[i] = list
	})

	for i, pr := range candidates {
		commits[pr.ID] = results[i]
	}
	return commits
}

func repoFor(pr models.PullRequest, fallback string) string {
	if pr.Repository != "" {
		return pr.Repository
	}
	return fallback
}

// isAuthoritative reports whether a match came from the tracker and therefore
// carries only summary fields.
func isAuthoritative(match models.PRMatch) bool {
	return match.HasSource(models.SourceJiraLink) || match.HasSource(models.SourceJiraDevStatus)
}

// enhance fills tracker-originated matches with the repository host's detailed
// record. It is best-effort: a failed or skipped lookup leaves the match as is.
func (m *Matcher) enhance(ctx context.Context, matches []models.PRMatch, repo string) []models.PRMatch {
	if m.repo == nil || !m.repo.Ready() || len(matches) == 0 {
		return matches
	}

	out := make([]models.PRMatch, len(matches))
	copy(out, matches)
	forEach(ctx, len(out), func(ctx context.Context, i int) {
		match := out[i]
		if !isAuthoritative(match) || match.ID <= 0 {
			return
		}
		name := match.Repository
		if name == "" {
			name = repo
		}
		if name == "" || name == "unknown" {
			return
		}

		detail, err := m.repo.GetPullRequest(ctx, name, match.ID)
		if err != nil {
			logging.Debug("pull request enhancement failed", "pr", match.ID, "repository", name, "error", err)
			return
		}
		out[i] = applyDetail(match, detail)
	})
	return out
}

// applyDetail copies host-only fields from detail onto match. Identity,
// confidence and sources are never changed.
func applyDetail(match models.PRMatch, detail *models.PullRequest) models.PRMatch {
	match.Description = detail.Description
	match.State = detail.State
	if match.State == "" {
		match.State = match.Status
	}
	if detail.CreatedAt != nil {
		match.CreatedAt = detail.CreatedAt
	}
	if detail.UpdatedAt != nil {
		match.UpdatedAt = detail.UpdatedAt
	}
	if match.Branch == "" {
		match.Branch = detail.SourceBranch
	}
	if match.DestinationBranch == "" {
		match.DestinationBranch = detail.DestinationBranch
	}
	if match.Author == "" {
		match.Author = detail.Author
	}
	if match.Repository == "" {
		match.Repository = detail.Repository
	}
	match.MergeCommit = detail.MergeCommit
	match.CommentCount = detail.CommentCount
	match.TaskCount = detail.ReviewComments
	if detail.CommitCount > 0 {
		match.Commits = detail.CommitCount
	}
	match.FilesChanged = detail.ChangedFiles
	match.DiffStat = &models.DiffStat{
		TotalFiles:   detail.ChangedFiles,
		LinesAdded:   detail.Additions,
		LinesRemoved: detail.Deletions,
	}
	return match
}

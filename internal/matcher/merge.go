package matcher

import (
	"sort"
	"strings"

	"github.com/danielolaszy/prlink/pkg/models"
)

// Merge reconciles authoritative matches with heuristically derived ones into a
// single list without duplicate identities. When two records share an identity
// the one with strictly higher confidence replaces the other outright. The
// result is sorted by confidence, highest first; equal confidence keeps
// insertion order, authoritative records first.
func Merge(authoritative, heuristic []models.PRMatch) []models.PRMatch {
	merged := make([]models.PRMatch, 0, len(authoritative)+len(heuristic))
	byID := make(map[int][]int)

	insert := func(match models.PRMatch) {
		idx, ok := findIdentity(merged, byID[match.ID], match.Repository)
		if !ok {
			byID[match.ID] = append(byID[match.ID], len(merged))
			merged = append(merged, match)
			return
		}
		kept := merged[idx].Repository
		if match.Confidence > merged[idx].Confidence {
			merged[idx] = match
		}
		// A record without a repository binds to the first repository it
		// absorbs, so other repositories sharing the id stay separate.
		if merged[idx].Repository == "" {
			merged[idx].Repository = firstNonEmpty(kept, match.Repository)
		}
	}

	for _, match := range authoritative {
		insert(match)
	}
	for _, match := range heuristic {
		insert(match)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})
	return merged
}

// findIdentity returns the record among candidates that shares the identity
// of a match in repository.
func findIdentity(merged []models.PRMatch, candidates []int, repository string) (int, bool) {
	for _, idx := range candidates {
		if sameRepository(merged[idx].Repository, repository) {
			return idx, true
		}
	}
	return 0, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// sameRepository compares repositories when both sides know theirs. An unknown
// repository matches any.
func sameRepository(a, b string) bool {
	if a == "" || b == "" {
		return true
	}
	return strings.EqualFold(repoName(a), repoName(b))
}

// repoName reduces "owner/name" to "name".
func repoName(repository string) string {
	if i := strings.LastIndex(repository, "/"); i >= 0 {
		return repository[i+1:]
	}
	return repository
}

// mergeTicketMatch folds a new piece of evidence into a ticket map keeping the
// maximum confidence and the union of sources.
func mergeTicketMatch(tickets map[string]*models.TicketMatch, order *[]string, key string, score models.Confidence, source models.MatchSource) {
	existing, ok := tickets[key]
	if !ok {
		tickets[key] = &models.TicketMatch{
			TicketKey:  key,
			Confidence: score,
			Sources:    []models.MatchSource{source},
		}
		*order = append(*order, key)
		return
	}
	existing.Confidence = max(existing.Confidence, score)
	for _, s := range existing.Sources {
		if s == source {
			return
		}
	}
	existing.Sources = append(existing.Sources, source)
}

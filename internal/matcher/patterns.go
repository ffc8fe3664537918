package matcher

import (
	"regexp"
	"strings"

	"github.com/danielolaszy/prlink/pkg/models"
)

// structuredTicketPatterns are the surface forms whose position signals intent.
// Each captures the ticket key in group 1.
var structuredTicketPatterns = []*regexp.Regexp{
	regexp.MustCompile(`([A-Z]{2,}-\d+):\s*`),   // "ABC-123: Fix bug"
	regexp.MustCompile(`([A-Z]{2,}-\d+)\s*-\s*`), // "ABC-123 - Fix bug"
	regexp.MustCompile(`\[([A-Z]{2,}-\d+)\]`),    // "[ABC-123] Fix bug"
	regexp.MustCompile(`([A-Z]{2,}-\d+)\s*\|\s*`), // "ABC-123 | Fix bug"
}

// bareTicketPattern finds a ticket key anywhere in text. Extraction only.
var bareTicketPattern = regexp.MustCompile(`\b([A-Z]{2,}-\d+)\b`)

// exactBranchPatterns are the naming conventions that tie a branch to a ticket.
// They are matched against the uppercased branch name.
var exactBranchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^FEATURE/([A-Z]{2,}-\d+)`), // "feature/ABC-123-description"
	regexp.MustCompile(`^BUGFIX/([A-Z]{2,}-\d+)`),  // "bugfix/ABC-123-fix"
	regexp.MustCompile(`^HOTFIX/([A-Z]{2,}-\d+)`),  // "hotfix/ABC-123-urgent"
	regexp.MustCompile(`^([A-Z]{2,}-\d+)-`),        // "ABC-123-description"
	regexp.MustCompile(`/([A-Z]{2,}-\d+)-`),        // "any-prefix/ABC-123-description"
}

// ExtractTicketsFromText returns every ticket key referenced in text, in the
// order first seen. Keys are uppercase and unique.
func ExtractTicketsFromText(text string) []string {
	if text == "" {
		return nil
	}

	set := newKeySet()
	patterns := append(append([]*regexp.Regexp{}, structuredTicketPatterns...), bareTicketPattern)
	for _, pattern := range patterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			set.add(match[1])
		}
	}
	return set.keys
}

// ExtractTicketsFromBranch returns the ticket keys implied by a branch name's
// naming convention. Matching is case-insensitive.
func ExtractTicketsFromBranch(branch string) []string {
	if branch == "" {
		return nil
	}

	upper := strings.ToUpper(branch)
	set := newKeySet()
	for _, pattern := range exactBranchPatterns {
		for _, match := range pattern.FindAllStringSubmatch(upper, -1) {
			set.add(match[1])
		}
	}
	return set.keys
}

// ticketVariants returns the spellings of a key accepted by the targeted search:
// "ABC-123", "ABC_123" and "ABC123". All variants are uppercase.
func ticketVariants(ticketKey string) []string {
	key := models.NormalizeTicketKey(ticketKey)
	project, number, ok := strings.Cut(key, "-")
	if !ok {
		return []string{key}
	}
	return []string{
		key,
		project + "_" + number,
		project + number,
	}
}

// mentionsTicket reports whether any text surface of the pull request contains
// one of the ticket's accepted spellings.
func mentionsTicket(pr models.PullRequest, ticketKey string) bool {
	surfaces := []string{
		strings.ToUpper(pr.Title),
		strings.ToUpper(pr.Description),
		strings.ToUpper(pr.SourceBranch),
		strings.ToUpper(pr.DestinationBranch),
	}
	for _, variant := range ticketVariants(ticketKey) {
		for _, surface := range surfaces {
			if strings.Contains(surface, variant) {
				return true
			}
		}
	}
	return false
}

type keySet struct {
	seen map[string]bool
	keys []string
}

func newKeySet() *keySet {
	return &keySet{seen: make(map[string]bool)}
}

func (s *keySet) add(key string) {
	key = strings.ToUpper(key)
	if key == "" || s.seen[key] {
		return
	}
	s.seen[key] = true
	s.keys = append(s.keys, key)
}

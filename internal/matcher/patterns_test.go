package matcher

import (
	"testing"

	"github.com/danielolaszy/prlink/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestExtractTicketsFromText(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected []string
	}{
		{name: "Colon prefix", text: "ABC-123: Fix bug", expected: []string{"ABC-123"}},
		{name: "Bracketed", text: "[ABC-123] Fix bug", expected: []string{"ABC-123"}},
		{name: "Pipe separated", text: "ABC-123 | Fix bug", expected: []string{"ABC-123"}},
		{name: "Several keys in order", text: "Fixes XYZ-9 and ABC-123", expected: []string{"XYZ-9", "ABC-123"}},
		{name: "Duplicates collapse", text: "ABC-123: again ABC-123", expected: []string{"ABC-123"}},
		{name: "Single letter project is not a key", text: "A-1 is too short", expected: nil},
		{name: "Empty", text: "", expected: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExtractTicketsFromText(tc.text))
		})
	}
}

func TestExtractTicketsFromBranch(t *testing.T) {
	testCases := []struct {
		branch   string
		expected []string
	}{
		{branch: "feature/ABC-123-login", expected: []string{"ABC-123"}},
		{branch: "bugfix/abc-42-crash", expected: []string{"ABC-42"}},
		{branch: "hotfix/OPS-7", expected: []string{"OPS-7"}},
		{branch: "ABC-123-description", expected: []string{"ABC-123"}},
		{branch: "team/XYZ-9-cleanup", expected: []string{"XYZ-9"}},
		{branch: "main", expected: nil},
		{branch: "", expected: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.branch, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExtractTicketsFromBranch(tc.branch))
		})
	}
}

func TestTicketVariants(t *testing.T) {
	assert.Equal(t, []string{"ABC-123", "ABC_123", "ABC123"}, ticketVariants("abc-123"))
}

func TestMentionsTicket(t *testing.T) {
	testCases := []struct {
		name     string
		pr       models.PullRequest
		expected bool
	}{
		{name: "Title", pr: models.PullRequest{Title: "abc-123 login"}, expected: true},
		{name: "Underscore variant in branch", pr: models.PullRequest{SourceBranch: "feature/abc_123"}, expected: true},
		{name: "Compact variant in description", pr: models.PullRequest{Description: "see ABC123"}, expected: true},
		{name: "Destination branch", pr: models.PullRequest{DestinationBranch: "release/ABC-123"}, expected: true},
		{name: "No mention", pr: models.PullRequest{Title: "Unrelated", SourceBranch: "chore/deps"}, expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, mentionsTicket(tc.pr, "ABC-123"))
		})
	}
}

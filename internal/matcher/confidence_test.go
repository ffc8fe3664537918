package matcher

import (
	"testing"

	"github.com/danielolaszy/prlink/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestScoreText(t *testing.T) {
	testCases := []struct {
		text     string
		expected models.Confidence
	}{
		{text: "ABC-123: Fix bug", expected: ConfidenceCommitTitle},
		{text: "[ABC-123] Fix bug", expected: ConfidenceCommitTitle},
		{text: "ABC-123 - Fix bug", expected: ConfidenceCommitTitle},
		{text: "ABC-123 | Fix bug", expected: ConfidenceCommitTitle},
		{text: "  abc-123: lowercase with padding", expected: ConfidenceCommitTitle},
		{text: "Follow up (ABC-123: second pass)", expected: ConfidenceCommitMessage},
		{text: "Merge [ABC-123] into main", expected: ConfidenceCommitMessage},
		{text: "fixes abc-123", expected: ConfidencePartialMatch},
		{text: "XYZ-9: other ticket", expected: 0},
		{text: "", expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.expected, ScoreText(tc.text, "ABC-123"))
		})
	}
}

func TestScoreBranch(t *testing.T) {
	testCases := []struct {
		branch   string
		expected models.Confidence
	}{
		{branch: "feature/ABC-123-login", expected: ConfidenceExactBranch},
		{branch: "bugfix/abc-123-crash", expected: ConfidenceExactBranch},
		{branch: "hotfix/ABC-123", expected: ConfidenceExactBranch},
		{branch: "ABC-123-login", expected: ConfidenceExactBranch},
		{branch: "team/ABC-123-login", expected: ConfidenceExactBranch},
		{branch: "release-ABC-123", expected: ConfidenceBranchPattern},
		{branch: "main", expected: 0},
		{branch: "", expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.branch, func(t *testing.T) {
			assert.Equal(t, tc.expected, ScoreBranch(tc.branch, "ABC-123"))
		})
	}
}

func TestAssessPullRequest(t *testing.T) {
	testCases := []struct {
		name           string
		pr             models.PullRequest
		commits        []models.Commit
		wantConfidence models.Confidence
		wantSources    []models.MatchSource
	}{
		{
			name:           "Title only",
			pr:             models.PullRequest{Title: "ABC-123: fix login bug", SourceBranch: "misc"},
			wantConfidence: ConfidenceCommitTitle,
			wantSources:    []models.MatchSource{models.SourcePRTitle},
		},
		{
			name:           "Maximum not sum",
			pr:             models.PullRequest{Title: "ABC-123: fix login bug", SourceBranch: "feature/ABC-123-login"},
			wantConfidence: ConfidenceExactBranch,
			wantSources:    []models.MatchSource{models.SourceBranchName, models.SourcePRTitle},
		},
		{
			name:           "Description is capped",
			pr:             models.PullRequest{Title: "Login", Description: "ABC-123: details"},
			wantConfidence: ConfidenceCommitMessage,
			wantSources:    []models.MatchSource{models.SourcePRDescription},
		},
		{
			name: "Best commit wins",
			pr:   models.PullRequest{Title: "Login"},
			commits: []models.Commit{
				{Message: "mentions abc-123 somewhere"},
				{Message: "ABC-123: real change"},
			},
			wantConfidence: ConfidenceCommitTitle,
			wantSources:    []models.MatchSource{models.SourceCommitMessage},
		},
		{
			name:           "No evidence",
			pr:             models.PullRequest{Title: "Unrelated", SourceBranch: "chore/deps"},
			commits:        []models.Commit{{Message: "bump deps"}},
			wantConfidence: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := AssessPullRequest(tc.pr, tc.commits, "ABC-123")
			assert.Equal(t, tc.wantConfidence, a.Confidence)
			assert.Equal(t, tc.wantSources, a.Sources)
		})
	}
}

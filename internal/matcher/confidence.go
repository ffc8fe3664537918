package matcher

import (
	"strings"

	"github.com/danielolaszy/prlink/pkg/models"
)

// Confidence scores, highest first. Values are ordinal; ties are meaningful.
const (
	// ConfidenceOfficialLink is a link asserted by the tracker itself.
	ConfidenceOfficialLink models.Confidence = 95
	// ConfidenceExactBranch is a branch following a ticket naming convention.
	ConfidenceExactBranch models.Confidence = 90
	// ConfidenceCommitTitle is a structured ticket reference at the start of a title.
	ConfidenceCommitTitle models.Confidence = 85
	// ConfidenceCommitMessage is a structured ticket reference elsewhere in text.
	ConfidenceCommitMessage models.Confidence = 75
	// ConfidenceBranchPattern is a ticket key somewhere in a branch name.
	ConfidenceBranchPattern models.Confidence = 70
	// ConfidencePartialMatch is a bare ticket key with no structural signal.
	ConfidencePartialMatch models.Confidence = 50
	// ConfidenceUncertain is reserved for weak evidence classes. Nothing emits it yet.
	ConfidenceUncertain models.Confidence = 25
)

// scoreRule pairs a predicate over uppercased input with the score it earns.
type scoreRule struct {
	name  string
	score models.Confidence
	match func(upperInput, upperKey string) bool
}

// textRules are evaluated in order; the first matching rule decides the score.
var textRules = []scoreRule{
	{name: "structured-at-start", score: ConfidenceCommitTitle, match: structuredAtStart},
	{name: "structured", score: ConfidenceCommitMessage, match: structuredAnywhere},
	{name: "substring", score: ConfidencePartialMatch, match: strings.Contains},
}

// branchRules are evaluated in order; the first matching rule decides the score.
var branchRules = []scoreRule{
	{name: "exact-branch", score: ConfidenceExactBranch, match: exactBranch},
	{name: "branch-substring", score: ConfidenceBranchPattern, match: strings.Contains},
}

// ScoreText scores how strongly text (a title, description or commit message)
// refers to ticketKey. It returns 0 when the key is absent.
func ScoreText(text, ticketKey string) models.Confidence {
	return evaluate(textRules, strings.TrimSpace(text), ticketKey)
}

// ScoreBranch scores how strongly a branch name refers to ticketKey.
func ScoreBranch(branch, ticketKey string) models.Confidence {
	return evaluate(branchRules, strings.TrimSpace(branch), ticketKey)
}

func evaluate(rules []scoreRule, input, ticketKey string) models.Confidence {
	if input == "" || ticketKey == "" {
		return 0
	}
	upperInput := strings.ToUpper(input)
	upperKey := models.NormalizeTicketKey(ticketKey)
	for _, rule := range rules {
		if rule.match(upperInput, upperKey) {
			return rule.score
		}
	}
	return 0
}

func structuredAtStart(upperText, upperKey string) bool {
	return structuredMatch(upperText, upperKey, true)
}

func structuredAnywhere(upperText, upperKey string) bool {
	return structuredMatch(upperText, upperKey, false)
}

// structuredMatch looks for upperKey in one of the structured surface forms.
// With atStart set, only an occurrence beginning at offset 0 counts.
func structuredMatch(upperText, upperKey string, atStart bool) bool {
	for _, pattern := range structuredTicketPatterns {
		for _, loc := range pattern.FindAllStringSubmatchIndex(upperText, -1) {
			if upperText[loc[2]:loc[3]] != upperKey {
				continue
			}
			if !atStart || loc[0] == 0 {
				return true
			}
		}
	}
	return false
}

func exactBranch(upperBranch, upperKey string) bool {
	for _, pattern := range exactBranchPatterns {
		for _, match := range pattern.FindAllStringSubmatch(upperBranch, -1) {
			if match[1] == upperKey {
				return true
			}
		}
	}
	return false
}

// Assessment is the outcome of scoring one pull request against one ticket.
type Assessment struct {
	Confidence models.Confidence
	Sources    []models.MatchSource
}

// AssessPullRequest scores every evidence channel of a pull request against
// ticketKey. The result is the maximum channel score, never a sum. The
// description channel is capped at ConfidenceCommitMessage.
func AssessPullRequest(pr models.PullRequest, commits []models.Commit, ticketKey string) Assessment {
	var a Assessment
	consider := func(score models.Confidence, source models.MatchSource) {
		if score <= 0 {
			return
		}
		if score > a.Confidence {
			a.Confidence = score
		}
		a.Sources = append(a.Sources, source)
	}

	consider(ScoreBranch(pr.SourceBranch, ticketKey), models.SourceBranchName)
	consider(ScoreText(pr.Title, ticketKey), models.SourcePRTitle)
	consider(min(ScoreText(pr.Description, ticketKey), ConfidenceCommitMessage), models.SourcePRDescription)

	var commitScore models.Confidence
	for _, commit := range commits {
		commitScore = max(commitScore, ScoreText(commit.Message, ticketKey))
	}
	consider(commitScore, models.SourceCommitMessage)

	return a
}

// Package models defines data structures shared across the application.
package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// ErrNotFound is returned by adapters when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// ticketKeyPattern matches a canonical ticket key such as "ABC-123".
var ticketKeyPattern = regexp.MustCompile(`^[A-Z]{2,}-\d+$`)

// NormalizeTicketKey returns the canonical uppercase form of a ticket key.
func NormalizeTicketKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// ValidTicketKey reports whether key, once normalized, has the PROJECT-NUMBER form.
func ValidTicketKey(key string) bool {
	return ticketKeyPattern.MatchString(NormalizeTicketKey(key))
}

// MatchSource identifies the evidence channel that produced a match.
type MatchSource string

const (
	// SourceJiraLink is a pull request URL found in the ticket's remote links.
	SourceJiraLink MatchSource = "jira-link"
	// SourceJiraDevStatus is a pull request reported by the Jira dev-status integration.
	SourceJiraDevStatus MatchSource = "jira-dev-status"
	// SourceBranchName is a ticket key found in the pull request's source branch.
	SourceBranchName MatchSource = "branch-name"
	// SourcePRTitle is a ticket key found in the pull request title.
	SourcePRTitle MatchSource = "pr-title"
	// SourcePRDescription is a ticket key found in the pull request description.
	SourcePRDescription MatchSource = "pr-description"
	// SourceCommitMessage is a ticket key found in one of the pull request's commits.
	SourceCommitMessage MatchSource = "commit-message"
)

// Confidence is an ordinal 0-100 score. It is not a probability.
type Confidence int

// DiffStat summarizes the size of a pull request.
type DiffStat struct {
	TotalFiles   int `json:"totalFiles" yaml:"totalFiles"`
	LinesAdded   int `json:"linesAdded" yaml:"linesAdded"`
	LinesRemoved int `json:"linesRemoved" yaml:"linesRemoved"`
}

// PRMatch is a pull request assessed against a ticket.
type PRMatch struct {
	// ID is the pull request number, scoped to Repository
	ID int `json:"id" yaml:"id"`

	// Repository is the repository name the pull request belongs to, if known
	Repository string `json:"repository,omitempty" yaml:"repository,omitempty"`

	// RepositoryURL is the web URL of the repository, if known
	RepositoryURL string `json:"repositoryUrl,omitempty" yaml:"repositoryUrl,omitempty"`

	Title string `json:"title" yaml:"title"`

	// Status is the state as reported by the source that produced the match
	Status string `json:"status" yaml:"status"`

	// State is the state reported by the repository host after enhancement
	State string `json:"state,omitempty" yaml:"state,omitempty"`

	URL               string     `json:"url" yaml:"url"`
	Branch            string     `json:"branch,omitempty" yaml:"branch,omitempty"`
	DestinationBranch string     `json:"destinationBranch,omitempty" yaml:"destinationBranch,omitempty"`
	Author            string     `json:"author,omitempty" yaml:"author,omitempty"`
	Description       string     `json:"description,omitempty" yaml:"description,omitempty"`
	MergeCommit       string     `json:"mergeCommit,omitempty" yaml:"mergeCommit,omitempty"`
	CreatedAt         *time.Time `json:"createdDate,omitempty" yaml:"createdDate,omitempty"`
	UpdatedAt         *time.Time `json:"updatedDate,omitempty" yaml:"updatedDate,omitempty"`
	Commits           int        `json:"commits" yaml:"commits"`
	FilesChanged      int        `json:"filesChanged" yaml:"filesChanged"`
	CommentCount      int        `json:"commentCount,omitempty" yaml:"commentCount,omitempty"`
	TaskCount         int        `json:"taskCount,omitempty" yaml:"taskCount,omitempty"`
	DiffStat          *DiffStat  `json:"diffStat,omitempty" yaml:"diffStat,omitempty"`
	Reviewers         []string   `json:"reviewers,omitempty" yaml:"reviewers,omitempty"`

	// Confidence is the maximum score over all contributing sources
	Confidence Confidence `json:"confidence" yaml:"confidence"`

	// Sources lists every evidence channel that contributed to Confidence
	Sources []MatchSource `json:"matchSources" yaml:"matchSources"`
}

// Clone returns a deep copy of the match.
func (m PRMatch) Clone() PRMatch {
	c := m
	if m.CreatedAt != nil {
		t := *m.CreatedAt
		c.CreatedAt = &t
	}
	if m.UpdatedAt != nil {
		t := *m.UpdatedAt
		c.UpdatedAt = &t
	}
	if m.DiffStat != nil {
		d := *m.DiffStat
		c.DiffStat = &d
	}
	c.Reviewers = append([]string(nil), m.Reviewers...)
	c.Sources = append([]MatchSource(nil), m.Sources...)
	return c
}

// HasSource reports whether the match was produced by the given source.
func (m PRMatch) HasSource(source MatchSource) bool {
	for _, s := range m.Sources {
		if s == source {
			return true
		}
	}
	return false
}

// TicketMatch is a ticket referenced by a pull request.
type TicketMatch struct {
	TicketKey  string        `json:"ticketKey" yaml:"ticketKey"`
	Confidence Confidence    `json:"confidence" yaml:"confidence"`
	Sources    []MatchSource `json:"sources" yaml:"sources"`
}

// DevelopmentInfo summarizes what the tracker's development integration
// reports for a ticket. It only steers the search strategy.
type DevelopmentInfo struct {
	HasPRs      bool     `json:"hasPRs"`
	PRCount     int      `json:"prCount"`
	PRState     string   `json:"prState,omitempty"`
	LastUpdated string   `json:"lastUpdated,omitempty"`
	Sources     []string `json:"sources,omitempty"`
}

// PullRequest is a pull request record as returned by the repository host.
type PullRequest struct {
	// ID is the pull request number (e.g., 42)
	ID int

	// Repository is the repository name the pull request belongs to
	Repository string

	Title       string
	Description string

	// State is one of OPEN, MERGED or DECLINED
	State string

	SourceBranch      string
	DestinationBranch string
	Author            string
	URL               string
	CreatedAt         *time.Time
	UpdatedAt         *time.Time
	MergeCommit       string
	CommitCount       int
	ChangedFiles      int
	Additions         int
	Deletions         int
	CommentCount      int
	ReviewComments    int
}

// Commit is a single commit of a pull request.
type Commit struct {
	Hash    string
	Message string
	Author  string
}

// RemoteLink is a link attached to a ticket in the tracker.
type RemoteLink struct {
	URL   string
	Title string
}

// DevStatusPR is a pull request summary reported by the tracker's dev-status API.
type DevStatusPR struct {
	ID                int
	Name              string
	URL               string
	Status            string
	Author            string
	SourceBranch      string
	DestinationBranch string
	RepositoryName    string
	RepositoryURL     string
	Created           *time.Time
	LastUpdate        *time.Time
	CommentCount      int
	Reviewers         []string
}

// ListOptions selects one page of pull requests in a given state.
type ListOptions struct {
	State   string
	Page    int
	PerPage int
}

// PullRequestPage is one page of pull requests.
type PullRequestPage struct {
	PullRequests []PullRequest

	// Next reports whether another page is available
	Next bool
}

// Package jira provides the tracker adapter backed by the JIRA REST API.
package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"
	"github.com/danielolaszy/prlink/internal/config"
	"github.com/danielolaszy/prlink/internal/logging"
	"github.com/danielolaszy/prlink/pkg/models"
	"github.com/tidwall/gjson"
)

// Client handles interactions with the JIRA API
type Client struct {
	client               *jira.Client
	devStatusApplication string
	developmentField     string
}

// NewClient creates a new JIRA client from configuration. It fails when the
// JIRA settings are incomplete.
func NewClient(cfg *config.Config) (*Client, error) {
	if err := config.ValidateJiraConfig(cfg); err != nil {
		return nil, err
	}

	logging.Debug("jira configuration",
		"url", cfg.Jira.URL,
		"username", cfg.Jira.Username,
		"token", logging.MaskSensitive(cfg.Jira.Token))

	// Create JIRA authentication transport
	tp := jira.BasicAuthTransport{
		Username: cfg.Jira.Username,
		Password: cfg.Jira.Token,
	}
	return newClient(tp.Client(), cfg.Jira)
}

func newClient(httpClient *http.Client, cfg config.JiraConfig) (*Client, error) {
	client, err := jira.NewClient(httpClient, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	application := cfg.DevStatusApplication
	if application == "" {
		application = "GitHub"
	}
	field := cfg.DevelopmentField
	if field == "" {
		field = "customfield_10000"
	}

	return &Client{
		client:               client,
		devStatusApplication: application,
		developmentField:     field,
	}, nil
}

// RemoteLinks returns the remote links attached to a ticket.
func (c *Client) RemoteLinks(ctx context.Context, ticketKey string) ([]models.RemoteLink, error) {
	if c.client == nil {
		return nil, fmt.Errorf("JIRA client not initialized")
	}

	links, resp, err := c.client.Issue.GetRemoteLinksWithContext(ctx, ticketKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch remote links for %s: %w", ticketKey, wrapStatus(resp, err))
	}
	if links == nil {
		return nil, nil
	}

	result := make([]models.RemoteLink, 0, len(*links))
	for _, link := range *links {
		if link.Object == nil || link.Object.URL == "" {
			continue
		}
		result = append(result, models.RemoteLink{
			URL:   link.Object.URL,
			Title: link.Object.Title,
		})
	}

	logging.Debug("fetched remote links", "ticket", ticketKey, "count", len(result))
	return result, nil
}

// DevelopmentInfo returns the development summary stored in the ticket's
// development field, or nil when the ticket has none.
func (c *Client) DevelopmentInfo(ctx context.Context, ticketKey string) (*models.DevelopmentInfo, error) {
	raw, err := c.getIssue(ctx, ticketKey, c.developmentField)
	if err != nil {
		return nil, err
	}

	field := gjson.GetBytes(raw, "fields."+gjsonEscape(c.developmentField))
	if !field.Exists() || field.Type == gjson.Null {
		return nil, nil
	}

	var value string
	if field.Type == gjson.String {
		value = field.String()
	} else {
		value = field.Raw
	}
	return ParseDevelopmentField(value)
}

// DevStatusPullRequests returns the pull requests the dev-status integration
// links to a ticket. An instance without the dev-status API yields none.
func (c *Client) DevStatusPullRequests(ctx context.Context, ticketKey string) ([]models.DevStatusPR, error) {
	raw, err := c.getIssue(ctx, ticketKey, "summary")
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	issueID := gjson.GetBytes(raw, "id").String()
	if issueID == "" {
		return nil, fmt.Errorf("issue %s has no id", ticketKey)
	}

	query := url.Values{}
	query.Set("issueId", issueID)
	query.Set("applicationType", c.devStatusApplication)
	query.Set("dataType", "pullrequest")

	body, err := c.getJSON(ctx, "rest/dev-status/latest/issue/detail?"+query.Encode())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			logging.Debug("dev-status api not available", "ticket", ticketKey)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch dev-status for %s: %w", ticketKey, err)
	}

	prs := ParseDevStatus(body)
	logging.Debug("fetched dev-status pull requests", "ticket", ticketKey, "count", len(prs))
	return prs, nil
}

// ParseDevStatus extracts the pull requests from a dev-status detail payload.
func ParseDevStatus(body []byte) []models.DevStatusPR {
	var prs []models.DevStatusPR
	gjson.GetBytes(body, "detail").ForEach(func(_, detail gjson.Result) bool {
		detail.Get("pullRequests").ForEach(func(_, pr gjson.Result) bool {
			id, err := strconv.Atoi(strings.TrimPrefix(pr.Get("id").String(), "#"))
			if err != nil {
				return true
			}

			var reviewers []string
			pr.Get("reviewers").ForEach(func(_, reviewer gjson.Result) bool {
				if name := reviewer.Get("name").String(); name != "" {
					reviewers = append(reviewers, name)
				}
				return true
			})

			prs = append(prs, models.DevStatusPR{
				ID:                id,
				Name:              pr.Get("name").String(),
				URL:               pr.Get("url").String(),
				Status:            pr.Get("status").String(),
				Author:            pr.Get("author.name").String(),
				SourceBranch:      pr.Get("source.branch").String(),
				DestinationBranch: pr.Get("destination.branch").String(),
				RepositoryName:    pr.Get("repositoryName").String(),
				RepositoryURL:     pr.Get("repositoryUrl").String(),
				Created:           parseTime(pr.Get("created").String()),
				LastUpdate:        parseTime(pr.Get("lastUpdate").String()),
				CommentCount:      int(pr.Get("commentCount").Int()),
				Reviewers:         reviewers,
			})
			return true
		})
		return true
	})
	return prs
}

// getIssue fetches the raw JSON of an issue limited to the given fields.
func (c *Client) getIssue(ctx context.Context, ticketKey, fields string) ([]byte, error) {
	path := fmt.Sprintf("rest/api/2/issue/%s?fields=%s", url.PathEscape(ticketKey), url.QueryEscape(fields))
	body, err := c.getJSON(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch issue %s: %w", ticketKey, err)
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, path string) ([]byte, error) {
	if c.client == nil {
		return nil, fmt.Errorf("JIRA client not initialized")
	}

	req, err := c.client.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var body json.RawMessage
	resp, err := c.client.Do(req, &body)
	if err != nil {
		return nil, wrapStatus(resp, err)
	}
	return body, nil
}

// wrapStatus maps a 404 response onto models.ErrNotFound.
func wrapStatus(resp *jira.Response, err error) error {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", models.ErrNotFound, err)
	}
	if resp != nil {
		return fmt.Errorf("%v (status: %d)", err, resp.StatusCode)
	}
	return err
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05.000Z0700",
}

func parseTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

// gjsonEscape escapes characters that gjson treats as path syntax.
func gjsonEscape(path string) string {
	replacer := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return replacer.Replace(path)
}

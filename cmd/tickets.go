package cmd

import (
	"fmt"
	"strconv"

	"github.com/danielolaszy/prlink/internal/github"
	"github.com/danielolaszy/prlink/internal/logging"
	"github.com/danielolaszy/prlink/internal/matcher"
	"github.com/spf13/cobra"
)

// ticketsCmd finds the tickets a pull request references.
var ticketsCmd = &cobra.Command{
	Use:   "tickets PR",
	Short: "Find the tickets a pull request references",
	Long: `Find the JIRA tickets a pull request references in its title, description,
source branch and commit messages.

PR is a pull request number together with --repository, or a pull request URL.

Example:
  prlink tickets 42 -r owner/repo
  prlink tickets https://github.com/owner/repo/pull/42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repository, err := cmd.Flags().GetString("repository")
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		c, err := newClients(cfg)
		if err != nil {
			return err
		}
		if c.repo == nil {
			return fmt.Errorf("GitHub must be configured to look up pull requests")
		}

		repository, prID, err := resolvePullRequest(c.repo, args[0], repository)
		if err != nil {
			return err
		}

		m := matcher.New(c.tracker, c.repo, matcher.Options{CacheTTL: cfg.Matcher.CacheTTL})

		logging.Info("finding tickets for pull request",
			"pr", prID,
			"repository", repository)

		result, err := m.FindTicketsForPR(cmd.Context(), prID, repository)
		if err != nil {
			return render(cmd, matcher.NewResponse(nil, false, err))
		}
		return render(cmd, matcher.NewResponse(result, result.FromCache, nil))
	},
}

// resolvePullRequest accepts either a pull request URL or a number plus the
// --repository flag.
func resolvePullRequest(client *github.Client, arg, repository string) (string, int, error) {
	if repo, id, ok := client.ParsePullRequestURL(arg); ok {
		return repo, id, nil
	}

	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("invalid pull request: %s, expected a number or a pull request URL", arg)
	}
	if repository == "" {
		return "", 0, fmt.Errorf("repository flag is required with a pull request number")
	}
	return repository, id, nil
}

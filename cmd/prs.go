package cmd

import (
	"github.com/danielolaszy/prlink/internal/logging"
	"github.com/danielolaszy/prlink/internal/matcher"
	"github.com/spf13/cobra"
)

// prsCmd finds the pull requests that implement a ticket.
var prsCmd = &cobra.Command{
	Use:   "prs TICKET",
	Short: "Find the pull requests that implement a ticket",
	Long: `Find the pull requests that implement a JIRA ticket.

Without --repository the JIRA dev-status integration is asked first. With a
repository, links recorded on the ticket are combined with a search of recent
pull requests for the ticket key in branch names, titles, descriptions and
commit messages.

Example:
  prlink prs ABC-123 -r owner/repo
  prlink prs ABC-123 --state OPEN --max 5 -o table`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repository, err := cmd.Flags().GetString("repository")
		if err != nil {
			return err
		}
		states, err := stateFlag(cmd)
		if err != nil {
			return err
		}
		maxResults, err := cmd.Flags().GetInt("max")
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		m, err := newMatcher(cmd, cfg)
		if err != nil {
			return err
		}

		logging.Info("finding pull requests for ticket",
			"ticket", args[0],
			"repository", repository,
			"states", states)

		result, err := m.FindPRsForTicket(cmd.Context(), args[0], repository, matcher.FindOptions{
			States:     states,
			MaxResults: maxResults,
		})
		if err != nil {
			return render(cmd, matcher.NewResponse(nil, false, err))
		}
		return render(cmd, matcher.NewResponse(result, result.FromCache, nil))
	},
}

func init() {
	prsCmd.Flags().Int("max", 0, "Maximum number of pull requests to return (default 100)")
}

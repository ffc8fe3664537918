// Package cmd provides the command-line interface for prlink.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/danielolaszy/prlink/internal/config"
	"github.com/danielolaszy/prlink/internal/github"
	"github.com/danielolaszy/prlink/internal/jira"
	"github.com/danielolaszy/prlink/internal/logging"
	"github.com/danielolaszy/prlink/internal/matcher"
	"github.com/spf13/cobra"
)

// Version is the released version, set at build time.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "prlink",
	Short: "prlink correlates JIRA tickets with GitHub pull requests",
	Long: `prlink answers which pull requests implement a ticket and which tickets a
pull request references. It combines links recorded in JIRA with evidence found
in branch names, titles, descriptions and commit messages, and reports every
match with a confidence score and the sources behind it.

Configuration is read from the environment (GITHUB_TOKEN, GITHUB_OWNER,
JIRA_URL, JIRA_USERNAME, JIRA_TOKEN, ...) and an optional prlink.yaml.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add persistent flags that will be available to all commands
	rootCmd.PersistentFlags().StringP("repository", "r", "", "GitHub repository (e.g., 'owner/repo' or 'repo' under GITHUB_OWNER)")
	rootCmd.PersistentFlags().StringSliceP("state", "s", nil, "Pull request states to search: OPEN, MERGED, DECLINED (default from PRLINK_STATES)")
	rootCmd.PersistentFlags().StringP("output", "o", "json", "Output format: json, yaml or table")
	rootCmd.PersistentFlags().String("config", "", "Path to a prlink.yaml configuration file")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Clear cached answers before querying")

	rootCmd.AddCommand(prsCmd)
	rootCmd.AddCommand(ticketsCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads configuration honoring the --config flag and applies the
// configured log level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if os.Getenv("LOG_LEVEL") == "" && cfg.Log.Level != "" {
		logging.SetupLogger(os.Stderr, logging.LogLevel(strings.ToLower(cfg.Log.Level)))
	}
	return cfg, nil
}

// clients holds the adapters built from configuration. Either may be nil
// when its settings are incomplete.
type clients struct {
	tracker matcher.Tracker
	repo    *github.Client
}

// newClients builds the adapters. A missing integration only disables the
// strategies that need it; having neither is an error.
func newClients(cfg *config.Config) (*clients, error) {
	c := &clients{}

	jiraClient, err := jira.NewClient(cfg)
	if err != nil {
		logging.Warn("jira not configured, tracker links disabled", "error", err)
	} else {
		c.tracker = jiraClient
	}

	githubClient, err := github.NewClient(cfg)
	if err != nil {
		logging.Warn("github not configured, pull request search disabled", "error", err)
	} else {
		c.repo = githubClient
		logging.Debug("github client ready", "owner", githubClient.Owner())
	}

	if c.tracker == nil && c.repo == nil {
		return nil, fmt.Errorf("neither JIRA nor GitHub is configured")
	}
	return c, nil
}

// newMatcher builds the engine for a command invocation.
func newMatcher(cmd *cobra.Command, cfg *config.Config) (*matcher.Matcher, error) {
	c, err := newClients(cfg)
	if err != nil {
		return nil, err
	}
	return c.matcher(cmd, cfg)
}

// matcher builds the engine over already constructed adapters.
func (c *clients) matcher(cmd *cobra.Command, cfg *config.Config) (*matcher.Matcher, error) {
	var repo matcher.Repository
	if c.repo != nil {
		repo = c.repo
	}

	m := matcher.New(c.tracker, repo, matcher.Options{
		CacheTTL:      cfg.Matcher.CacheTTL,
		DefaultStates: cfg.Matcher.States,
	})

	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return nil, err
	}
	if noCache {
		m.ClearCache()
	}
	return m, nil
}

// stateFlag returns the --state values in canonical form.
func stateFlag(cmd *cobra.Command) ([]string, error) {
	states, err := cmd.Flags().GetStringSlice("state")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, state := range states {
		if state = strings.ToUpper(strings.TrimSpace(state)); state != "" {
			out = append(out, state)
		}
	}
	return out, nil
}

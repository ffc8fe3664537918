package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/danielolaszy/prlink/internal/logging"
	"github.com/danielolaszy/prlink/internal/matcher"
	"github.com/spf13/cobra"
)

// batchCmd matches many tickets against one repository.
var batchCmd = &cobra.Command{
	Use:   "batch [TICKET...]",
	Short: "Match many tickets against one repository",
	Long: `Match many tickets against one repository in a single pass over its recent
pull requests. Useful for release notes and audits.

Ticket keys are taken from the arguments and, with --file, from a file holding
one key per line ('-' reads standard input).

Example:
  prlink batch ABC-1 ABC-2 ABC-3 -r owner/repo
  prlink batch --file release.txt -r owner/repo -o table`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repository, err := cmd.Flags().GetString("repository")
		if err != nil {
			return err
		}
		if repository == "" {
			return fmt.Errorf("repository flag is required")
		}
		states, err := stateFlag(cmd)
		if err != nil {
			return err
		}
		maxResults, err := cmd.Flags().GetInt("max")
		if err != nil {
			return err
		}
		file, err := cmd.Flags().GetString("file")
		if err != nil {
			return err
		}

		keys := append([]string(nil), args...)
		if file != "" {
			fromFile, err := readTicketKeys(cmd, file)
			if err != nil {
				return err
			}
			keys = append(keys, fromFile...)
		}
		if len(keys) == 0 {
			return fmt.Errorf("at least one ticket key must be given as an argument or with --file")
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		m, err := newMatcher(cmd, cfg)
		if err != nil {
			return err
		}

		logging.Info("batch matching tickets",
			"tickets", len(keys),
			"repository", repository,
			"states", states)

		result, err := m.BatchMatchTickets(cmd.Context(), keys, repository, matcher.BatchOptions{
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
	batchCmd.Flags().Int("max", 0, "Maximum number of pull requests to scan (default 200)")
	batchCmd.Flags().StringP("file", "f", "", "File with one ticket key per line ('-' for stdin)")
}

// readTicketKeys reads ticket keys one per line, skipping blanks and
// '#' comments.
func readTicketKeys(cmd *cobra.Command, path string) ([]string, error) {
	var scanner *bufio.Scanner
	if path == "-" {
		scanner = bufio.NewScanner(cmd.InOrStdin())
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open ticket file: %w", err)
		}
		defer f.Close()
		scanner = bufio.NewScanner(f)
	}

	var keys []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ticket file: %w", err)
	}
	return keys, nil
}

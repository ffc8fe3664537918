package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/danielolaszy/prlink/internal/matcher"
	"github.com/danielolaszy/prlink/pkg/models"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --output.
const (
	outputJSON  = "json"
	outputYAML  = "yaml"
	outputTable = "table"
)

// render writes the envelope in the requested format and turns a failed
// envelope into a command error.
func render(cmd *cobra.Command, resp matcher.Response) error {
	format, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if err := writeResponse(cmd.OutOrStdout(), format, resp); err != nil {
		return err
	}
	if !resp.Success && resp.Error != nil {
		return fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message)
	}
	return nil
}

func writeResponse(w io.Writer, format string, resp matcher.Response) error {
	switch strings.ToLower(format) {
	case outputJSON, "":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(resp)
	case outputYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(resp); err != nil {
			return err
		}
		return encoder.Close()
	case outputTable:
		return writeTable(w, resp)
	default:
		return fmt.Errorf("unsupported output format: %s, expected json, yaml or table", format)
	}
}

func writeTable(w io.Writer, resp matcher.Response) error {
	if !resp.Success {
		if resp.Error != nil {
			_, err := fmt.Fprintf(w, "error: %s (%s)\n", resp.Error.Message, resp.Error.Code)
			return err
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	switch data := resp.Data.(type) {
	case *matcher.TicketResult:
		writePRRows(tw, data)
	case *matcher.PRResult:
		fmt.Fprintf(tw, "TICKET\tCONFIDENCE\tSOURCES\n")
		for _, ticket := range data.Tickets {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", ticket.TicketKey, ticket.Confidence, joinSources(ticket.Sources))
		}
	case *matcher.BatchResult:
		keys := make([]string, 0, len(data.Results))
		for key := range data.Results {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for i, key := range keys {
			if i > 0 {
				fmt.Fprintln(tw)
			}
			fmt.Fprintf(tw, "%s\n", key)
			writePRRows(tw, data.Results[key])
		}
	default:
		return fmt.Errorf("no table layout for %T", resp.Data)
	}
	if resp.FromCache {
		fmt.Fprintln(tw, "(from cache)")
	}
	return tw.Flush()
}

func writePRRows(w io.Writer, result *matcher.TicketResult) {
	if len(result.PullRequests) == 0 {
		fmt.Fprintf(w, "no pull requests found for %s\n", result.TicketKey)
		return
	}
	fmt.Fprintf(w, "PR\tCONFIDENCE\tSTATE\tUPDATED\tSOURCES\tTITLE\n")
	for _, pr := range result.PullRequests {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
			prRef(pr), pr.Confidence, prState(pr), updated(pr), joinSources(pr.Sources), pr.Title)
	}
}

func prRef(pr models.PRMatch) string {
	if pr.Repository != "" {
		return fmt.Sprintf("%s#%d", pr.Repository, pr.ID)
	}
	return fmt.Sprintf("#%d", pr.ID)
}

func prState(pr models.PRMatch) string {
	if pr.State != "" {
		return pr.State
	}
	return pr.Status
}

func updated(pr models.PRMatch) string {
	if pr.UpdatedAt == nil {
		return "-"
	}
	return humanize.Time(*pr.UpdatedAt)
}

func joinSources(sources []models.MatchSource) string {
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

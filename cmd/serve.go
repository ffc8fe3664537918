package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danielolaszy/prlink/internal/logging"
	"github.com/danielolaszy/prlink/internal/matcher"
	"github.com/danielolaszy/prlink/internal/mcpserver"
	"github.com/spf13/cobra"
)

// serveCmd runs the engine as a Model Context Protocol tool server on stdio.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the correlation tools over the Model Context Protocol",
	Long: `Serve find_prs_for_ticket, find_tickets_for_pr and batch_match_tickets as
Model Context Protocol tools on standard input and output.

Standard output carries the protocol, so logs are written to LOG_FILE or to
~/.prlink/logs. Answers are cached for PRLINK_CACHE_TTL across calls; with
--no-cache the cache is cleared before every call.

Example:
  prlink serve -r owner/repo`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repository, err := cmd.Flags().GetString("repository")
		if err != nil {
			return err
		}
		noCache, err := cmd.Flags().GetBool("no-cache")
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logFile, err := openServeLog(cfg.Log.File)
		if err != nil {
			return err
		}
		defer logFile.Close()
		logging.SetupLogger(logFile, logging.LogLevel(strings.ToLower(cfg.Log.Level)))

		c, err := newClients(cfg)
		if err != nil {
			return err
		}
		if c.repo != nil {
			if err := c.repo.CheckAuth(cmd.Context()); err != nil {
				logging.Warn("github token check failed, pull request search may fail", "error", err)
			}
		}
		m, err := c.matcher(cmd, cfg)
		if err != nil {
			return err
		}

		var svc mcpserver.Service = m
		if noCache {
			svc = uncachedService{m}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logging.Info("starting tool server",
			"version", Version,
			"default_repository", repository,
			"cache_ttl", m.Cache().TTL(),
			"no_cache", noCache)

		server := mcpserver.NewServer(mcpserver.NewHandler(svc, repository), Version)
		if err := mcpserver.Serve(ctx, server); err != nil && ctx.Err() == nil {
			logging.Error("tool server stopped", "error", err)
			return fmt.Errorf("tool server error: %w", err)
		}
		return nil
	},
}

// openServeLog opens the configured log file, or today's file under
// ~/.prlink/logs.
func openServeLog(path string) (io.WriteCloser, error) {
	if path == "" {
		f, err := logging.OpenLogFile("prlink")
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// uncachedService clears the matcher's cache before every call.
type uncachedService struct {
	m *matcher.Matcher
}

func (s uncachedService) FindPRsForTicket(ctx context.Context, key, repo string, opts matcher.FindOptions) (*matcher.TicketResult, error) {
	s.m.ClearCache()
	return s.m.FindPRsForTicket(ctx, key, repo, opts)
}

func (s uncachedService) FindTicketsForPR(ctx context.Context, prID int, repo string) (*matcher.PRResult, error) {
	s.m.ClearCache()
	return s.m.FindTicketsForPR(ctx, prID, repo)
}

func (s uncachedService) BatchMatchTickets(ctx context.Context, keys []string, repo string, opts matcher.BatchOptions) (*matcher.BatchResult, error) {
	s.m.ClearCache()
	return s.m.BatchMatchTickets(ctx, keys, repo, opts)
}

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/sitemirror/internal/config"
	"github.com/nao1215/sitemirror/internal/database"
	"github.com/nao1215/sitemirror/internal/urlkey"
	"github.com/spf13/cobra"
)

const historyTimeLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [base-url]",
		Short: "List recorded mirror runs",
		Long: `History lists the mirror runs stored in the history database.

Examples:
  # Runs of one site, newest first
  sitemirror history https://example.com/

  # Every run of every site
  sitemirror history

  # Every site that has been mirrored
  sitemirror history --sites`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("sites", "s", false, "List mirrored sites instead of runs")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to list (0 = all)")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the history database")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	sites, err := cmd.Flags().GetBool("sites")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	// Validate before opening the database.
	var baseURL string
	if len(args) == 1 {
		if sites {
			return errors.New("--sites does not take a base URL")
		}
		if baseURL, err = canonicalBaseURL(args[0]); err != nil {
			return err
		}
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	if sites {
		return listSites(cmd, db, out)
	}
	return listRuns(cmd, db, out, baseURL, limit)
}

// canonicalBaseURL returns raw in the form runs are stored under.
func canonicalBaseURL(raw string) (string, error) {
	norm, err := urlkey.NewNormalizer(raw)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", raw, err)
	}
	return norm.Base().String(), nil
}

func openHistory(cmd *cobra.Command) (*database.CrawlDB, error) {
	dir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func listSites(cmd *cobra.Command, db *database.CrawlDB, out io.Writer) error {
	sites, err := db.ListSites(cmd.Context())
	if err != nil {
		return err
	}
	if len(sites) == 0 {
		fmt.Fprintln(out, "No mirrored sites found in the database.")
		fmt.Fprintln(out, "\nUse 'sitemirror mirror <base-url>' to mirror a site.")
		return nil
	}

	fmt.Fprintf(out, "Mirrored sites (%d):\n\n", len(sites))
	fmt.Fprintf(out, "  %-40s  %5s  %-19s  %s\n", "Base URL", "Runs", "Last run", "Last ID")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 80))
	for _, s := range sites {
		fmt.Fprintf(out, "  %-40s  %5d  %-19s  %d\n", s.BaseURL, s.Runs, formatTime(s.LastRun), s.LastRunID)
	}
	fmt.Fprintln(out, "\nUse 'sitemirror history <base-url>' to see the runs of a site.")
	return nil
}

func listRuns(cmd *cobra.Command, db *database.CrawlDB, out io.Writer, baseURL string, limit int) error {
	runs, err := db.ListRuns(cmd.Context(), baseURL, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		if baseURL != "" {
			fmt.Fprintf(out, "No runs found for %s\n", baseURL)
		} else {
			fmt.Fprintln(out, "No runs found.")
		}
		return nil
	}

	if baseURL != "" {
		fmt.Fprintf(out, "Runs of %s (%d):\n\n", baseURL, len(runs))
	} else {
		fmt.Fprintf(out, "Runs (%d):\n\n", len(runs))
	}
	fmt.Fprintf(out, "  %-6s  %-19s  %-10s  %-13s  %-13s  %s\n", "ID", "Started", "Duration", "Pages ok/err", "Assets ok/err", "Base URL")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 100))
	for _, r := range runs {
		var elapsed time.Duration
		if !r.FinishedAt.IsZero() {
			elapsed = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)
		}
		status := ""
		if r.Interrupted {
			status = " (interrupted)"
		}
		fmt.Fprintf(out, "  %-6d  %-19s  %-10s  %-13s  %-13s  %s%s\n",
			r.ID,
			formatTime(r.StartedAt),
			elapsed,
			fmt.Sprintf("%d/%d", r.Counts.SuccessPages, r.Counts.FailedPages),
			fmt.Sprintf("%d/%d", r.Counts.SuccessAssets, r.Counts.FailedAssets),
			r.BaseURL,
			status,
		)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(historyTimeLayout)
}

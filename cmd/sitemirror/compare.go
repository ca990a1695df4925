package main

import (
	"errors"
	"fmt"

	"github.com/nao1215/sitemirror/internal/config"
	"github.com/nao1215/sitemirror/internal/database"
	"github.com/nao1215/sitemirror/internal/report"
	"github.com/spf13/cobra"
)

// errNotEnoughRuns is returned when a site has fewer than two stored runs.
var errNotEnoughRuns = errors.New("at least two runs are needed to compare")

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <base-url>",
		Short: "Compare the latest run of a site with an earlier one",
		Long: `Compare shows what changed between two mirror runs of the same site:

- URLs that failed now but were fine before
- URLs that recovered
- URLs that keep failing
- URLs that appeared, disappeared or changed content

By default the latest run is compared with the one before it.

Examples:
  # Latest two runs
  sitemirror compare https://example.com/

  # Latest run against run 3
  sitemirror compare --with-run-id 3 https://example.com/

  # Machine-readable output
  sitemirror compare --json https://example.com/`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().Int64P("with-run-id", "i", 0, "Compare the latest run with this run (see 'sitemirror history')")
	cmd.Flags().BoolP("json", "j", false, "Output the comparison as JSON")
	cmd.Flags().BoolP("markdown", "m", false, "Output the comparison as Markdown")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the history database")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	baseURL, err := canonicalBaseURL(args[0])
	if err != nil {
		return err
	}
	withRunID, err := cmd.Flags().GetInt64("with-run-id")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	cmp, err := compareRuns(cmd, db, baseURL, withRunID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		return cmp.WriteJSON(out)
	case markdownOutput:
		return cmp.WriteMarkdown(out)
	default:
		return cmp.WriteText(out)
	}
}

// compareRuns compares the latest run of baseURL with withRunID, or with
// the run before it when withRunID is 0.
func compareRuns(cmd *cobra.Command, db *database.CrawlDB, baseURL string, withRunID int64) (*report.Comparison, error) {
	ctx := cmd.Context()

	runs, err := db.ListRuns(ctx, baseURL, 2)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs found for %s", baseURL)
	}
	currentID := runs[0].ID

	previousID := withRunID
	if previousID == 0 {
		if len(runs) < 2 {
			return nil, fmt.Errorf("%w: %s has one run", errNotEnoughRuns, baseURL)
		}
		previousID = runs[1].ID
	} else {
		prev, err := db.GetRun(ctx, previousID)
		if err != nil {
			return nil, err
		}
		if prev.BaseURL != baseURL {
			return nil, fmt.Errorf("run %d belongs to %s, not %s", previousID, prev.BaseURL, baseURL)
		}
		if previousID == currentID {
			return nil, fmt.Errorf("run %d is the latest run; choose an earlier one", previousID)
		}
	}

	previous, err := db.LoadSummary(ctx, previousID)
	if err != nil {
		return nil, err
	}
	current, err := db.LoadSummary(ctx, currentID)
	if err != nil {
		return nil, err
	}
	return report.Compare(
		report.Run{ID: previousID, Summary: previous},
		report.Run{ID: currentID, Summary: current},
	), nil
}

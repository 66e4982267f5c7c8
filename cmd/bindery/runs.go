package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bindery/internal/history"
)

var (
	runsBookID string
	runsKind   string
	runsLimit  int
	runsFailed bool
)

// runsList is the output of bindery runs.
type runsList struct {
	Runs    []history.Entry  `json:"runs" yaml:"runs"`
	Summary *history.Summary `json:"summary" yaml:"summary"`
}

func (l runsList) Text() string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tRUN\tBOOK\tKIND\tSTAGE\tRESULT\tSECONDS")
	for _, e := range l.Runs {
		result := "ok"
		switch {
		case e.Skipped:
			result = "skipped"
		case !e.Success:
			result = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%.1f\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"), shortID(e.RunID), e.BookID, e.Kind, e.Stage, result, e.DurationSeconds)
	}
	tw.Flush()
	if l.Summary != nil {
		fmt.Fprintf(&b, "\n%d runs, %d stages (%d ok, %d failed, %d skipped)",
			l.Summary.Runs, l.Summary.Count, l.Summary.SuccessCount, l.Summary.ErrorCount, l.Summary.SkippedCount)
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded pipeline and workflow runs",
	Long: `List stage outcomes from the run history database, newest first.

Examples:
  bindery runs
  bindery runs --book my-book --limit 20
  bindery runs --kind workflow --failed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(h)
		if err != nil {
			return err
		}
		if !cfg.History.Enabled {
			return fmt.Errorf("run history is disabled (history.enabled: false)")
		}

		store, err := history.Open(cfg.HistoryPath(h.Path()))
		if err != nil {
			return err
		}
		defer closeQuietly("run history", store)

		f := history.Filter{BookID: runsBookID, Kind: runsKind}
		if runsFailed {
			failed := false
			f.Success = &failed
		}

		entries, err := store.List(ctx, f, runsLimit)
		if err != nil {
			return err
		}
		summary, err := store.GetSummary(ctx, f)
		if err != nil {
			return err
		}
		return printer.Print(runsList{Runs: entries, Summary: summary})
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsBookID, "book", "", "only show this book id")
	runsCmd.Flags().StringVar(&runsKind, "kind", "", "only show pipeline or workflow runs")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 50, "maximum rows (0 = all)")
	runsCmd.Flags().BoolVar(&runsFailed, "failed", false, "only show failed stages")
}

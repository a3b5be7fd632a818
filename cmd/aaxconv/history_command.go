package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"aaxconv/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past conversion runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("history is disabled (history.enabled = false)")
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if strings.TrimSpace(runID) != "" {
				return showRun(cmd, store, runID, out)
			}

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortID(run.ID),
					run.StartedAt.Local().Format(timeLayout),
					run.Container + "/" + run.Quality,
					strconv.Itoa(run.Total),
					strconv.Itoa(run.Completed),
					strconv.Itoa(run.Failed),
					runStatus(run),
					formatElapsed(run.Elapsed),
				})
			}
			fmt.Fprintln(out, renderTable(
				"",
				[]string{"Run", "Started", "Format", "Jobs", "Done", "Failed", "Status", "Elapsed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show the jobs of one run (ID or unique prefix)")
	return cmd
}

func showRun(cmd *cobra.Command, store *history.Store, id string, out io.Writer) error {
	run, err := store.FindRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	jobs, err := store.JobsForRun(cmd.Context(), run.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Run %s started %s (%s, %s, %d workers): %s\n",
		run.ID, run.StartedAt.Local().Format(timeLayout), run.Container, run.Quality, run.Workers, runStatus(run))
	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs recorded")
		return nil
	}
	rows := make([][]string, 0, len(jobs))
	for _, item := range jobs {
		detail := item.OutputPath
		if item.ErrorMessage != "" {
			detail = item.ErrorMessage
		}
		rows = append(rows, []string{
			firstNonEmpty(item.Title, item.SourcePath),
			item.ASIN,
			item.State,
			formatElapsed(item.Elapsed),
			detail,
		})
	}
	fmt.Fprintln(out, renderTable(
		"",
		[]string{"Book", "ASIN", "State", "Elapsed", "Output / Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}

func runStatus(run history.Run) string {
	switch {
	case !run.Finished():
		return "incomplete"
	case run.WasCancelled:
		return "cancelled"
	case run.Failed > 0:
		return "failed"
	default:
		return "ok"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatElapsed(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}

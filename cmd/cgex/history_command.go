package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kottz/cgex/internal/manifest"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs from the manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			path := cfg.ManifestPath()
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}
			store, err := manifest.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}
			fmt.Fprintln(out, renderHistory(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	return cmd
}

func renderHistory(runs []manifest.RunSummary) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		elapsed := "-"
		if r.FinishedAt != nil {
			elapsed = formatElapsed(r.FinishedAt.Sub(r.StartedAt))
		}
		rows = append(rows, []string{
			r.RunID,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Status,
			fmt.Sprintf("%d/%d", r.JobsSucceeded, r.JobsFound),
			strconv.Itoa(r.AssetsWritten),
			strconv.Itoa(r.AssetsSkipped),
			strconv.Itoa(r.UpscaleFallbacks),
			elapsed,
			r.OutputDir,
		})
	}
	return renderTable(tableSpec{
		headers: []string{"Run", "Started", "Status", "Movies", "Written", "Skipped", "Fallbacks", "Time", "Output"},
		rows:    rows,
		aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
	})
}

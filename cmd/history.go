package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"bidstorm/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:          "history",
	Short:        "List recorded runs, most recent first",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		path := cfg.History.Path
		if path == "" {
			if path, err = history.DefaultPath(); err != nil {
				return err
			}
		}

		store, err := history.Open(path)
		if err != nil {
			return fmt.Errorf("open history %s: %w", path, err)
		}
		defer store.Close()

		entries, err := store.Last(historyLimit)
		if err != nil {
			return err
		}
		renderHistory(os.Stdout, entries)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Runs to list")
}

func renderHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no recorded runs")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Started", "Duration", "Users", "Requests", "Fail", "Bids", "Verified")
	for _, e := range entries {
		verdict := "-"
		if e.Verified {
			verdict = "FAIL"
			if e.Pass {
				verdict = "PASS"
			}
		}
		table.Append(
			e.StartedAt.Format(time.DateTime),
			e.FinishedAt.Sub(e.StartedAt).Round(time.Second).String(),
			fmt.Sprintf("%d", e.MaxUsers),
			fmt.Sprintf("%d", e.Requests),
			fmt.Sprintf("%d", e.Fail),
			fmt.Sprintf("%d", e.Bids),
			verdict,
		)
	}
	table.Render()
}

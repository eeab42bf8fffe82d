package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"ipocheck/internal/check"
	"ipocheck/internal/report"
)

var (
	historyLimit int
	historyShow  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded check runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := report.OpenStore(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		if historyShow != "" {
			results, err := store.Results(ctx, historyShow)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				return fmt.Errorf("no run with id %s", historyShow)
			}
			rep := &check.Report{Results: results}
			for _, r := range results {
				rep.Summary.Add(r)
			}
			md := report.Markdown(rep)
			rendered, err := glamour.Render(md, "auto")
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), md)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), rendered)
			return nil
		}

		runs, err := store.ListRuns(ctx, historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded yet")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCOMPANY\tWHEN\tCHECKED\tALLOTTED\tSHARES\tERRORS")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
				r.ID[:8], r.Company, r.StartedAt.Format("2006-01-02 15:04"),
				r.Summary.Total, r.Summary.Allotted, r.Summary.TotalShares,
				r.Summary.Errors+r.Summary.CaptchaErrors)
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to list")
	historyCmd.Flags().StringVar(&historyShow, "show", "", "print the full results of one run by id")
}

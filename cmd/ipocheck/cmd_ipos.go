package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ipocheck/internal/ipo"
)

var iposStatus string

var iposCmd = &cobra.Command{
	Use:   "ipos",
	Short: "List open, upcoming, and closed IPOs",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := ipo.NewClient(cfg.IPO.BaseURL, cfg.IPO.Timeout(), logger.Named("ipo"))
		issues := client.List(context.Background())

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "COMPANY\tTYPE\tSTATUS\tUNITS\tPRICE\tOPENS\tCLOSES")
		for _, i := range issues {
			if iposStatus != "" && !strings.EqualFold(i.Status, iposStatus) {
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				i.Company, i.Type, i.Status, i.Units, i.Price, i.OpeningDate, i.ClosingDate)
		}
		return tw.Flush()
	},
}

func init() {
	iposCmd.Flags().StringVar(&iposStatus, "status", "", "filter by status (open, upcoming, closed)")
}

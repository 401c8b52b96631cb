package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"l3vpn-sweep/internal/store"
)

var runsDB string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List the sweeps stored in a results database",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(runsDB)
		if err != nil {
			return err
		}
		defer db.Close()
		runs, err := db.Runs(context.Background())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tTRIALS\tFAILED\tERROR")
		for _, r := range runs {
			dur := "running"
			if !r.FinishedAt.IsZero() {
				dur = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
				r.ID, r.StartedAt.Local().Format(time.DateTime), dur, r.Trials, r.Failed, r.Error)
		}
		return tw.Flush()
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsDB, "db", "", "SQLite results database")
	runsCmd.MarkFlagRequired("db")
}

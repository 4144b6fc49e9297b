package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/apexftc/go-auton/internal/log"
	"github.com/apexftc/go-auton/pkg/recorder"
)

var (
	runsRecord string
	runsID     string
	runsLimit  int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs, or show the transitions of one run",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().StringVar(&runsRecord, "record", "runs.db", "SQLite file written by `auton run --record`")
	runsCmd.Flags().StringVar(&runsID, "id", "", "Show the transitions of this run")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Number of runs to list")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	rec, err := recorder.Open(runsRecord, nil, log.Component("recorder"))
	if err != nil {
		return err
	}
	defer rec.Close()

	ctx := cmd.Context()
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer tw.Flush()

	if runsID != "" {
		trs, err := rec.Transitions(ctx, runsID)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "SEQ\tAT\tFROM\tTO")
		for _, t := range trs {
			fmt.Fprintf(tw, "%d\t%.2fs\t%s\t%s\n", t.Seq, t.At.Seconds(), t.From, t.To)
		}
		return nil
	}

	runs, err := rec.Runs(ctx, runsLimit)
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, "ID\tROUTINE\tSTARTED\tEND\tTRANSITIONS\tFRAMES")
	for _, r := range runs {
		end := "running"
		if r.EndReason != "" {
			end = r.EndReason
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			r.ID, r.Routine, r.StartedAt.Local().Format("2006-01-02 15:04:05"), end, r.Transitions, r.Frames)
	}
	return nil
}

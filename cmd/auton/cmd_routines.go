package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/apexftc/go-auton/pkg/mechanism"
	"github.com/apexftc/go-auton/pkg/routines"
	"github.com/apexftc/go-auton/pkg/timer"
)

var routinesValidate bool

var routinesCmd = &cobra.Command{
	Use:   "routines",
	Short: "List the registered routines",
	RunE:  runRoutines,
}

func init() {
	routinesCmd.Flags().BoolVar(&routinesValidate, "validate", false, "Validate every routine against the hardware map")
	rootCmd.AddCommand(routinesCmd)
}

func runRoutines(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if !routinesValidate {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSTEPS\tDESCRIPTION")
		for _, name := range routines.Names() {
			r, err := routines.Get(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\n", r.Name, len(r.Steps), r.Description)
		}
		return tw.Flush()
	}

	mechs, err := mechanism.Standard(hardware, timer.RealClock{}, nil)
	if err != nil {
		return err
	}
	failures := routines.ValidateAll(mechs)
	if len(failures) == 0 {
		fmt.Fprintf(out, "%d routines valid\n", len(routines.Names()))
		return nil
	}
	names := make([]string, 0, len(failures))
	for name := range failures {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "%s: %v\n", name, failures[name])
	}
	return fmt.Errorf("%d routine(s) invalid", len(failures))
}

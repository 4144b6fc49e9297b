package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/apexftc/go-auton/internal/config"
	"github.com/apexftc/go-auton/internal/log"
	"github.com/apexftc/go-auton/pkg/opmode"
	"github.com/apexftc/go-auton/pkg/path"
	"github.com/apexftc/go-auton/pkg/recorder"
	"github.com/apexftc/go-auton/pkg/routines"
)

var (
	runRoutine   string
	runSim       bool
	runSimSpeed  float64
	runDashboard string
	runRecord    string
	runWaitStart bool
	runLimit     time.Duration
	runPeriod    time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an autonomous routine",
	Long: `Run one autonomous routine until it reaches its terminal step, the
time limit passes or the process is interrupted.

Examples:
  # Bench run without hardware, dashboard on :8080
  auton run --routine blue-right --sim --dashboard :8080

  # Competition run, recorded, started by pressing Enter
  auton run --routine red-top-3 --record runs.db --wait-start --limit 30s
`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runRoutine, "routine", "r", "", "Routine name (see `auton routines`)")
	runCmd.Flags().BoolVar(&runSim, "sim", false, "Simulate the hub instead of opening the serial port")
	runCmd.Flags().Float64Var(&runSimSpeed, "sim-speed", path.DefaultSimSpeed, "Simulated follower speed in inches per second")
	runCmd.Flags().StringVar(&runDashboard, "dashboard", "", "Dashboard listen address (empty disables it)")
	runCmd.Flags().StringVar(&runRecord, "record", "", "SQLite file to record the run into")
	runCmd.Flags().BoolVar(&runWaitStart, "wait-start", false, "Stay in init until Enter is pressed")
	runCmd.Flags().DurationVar(&runLimit, "limit", 0, "Stop after this long since start (0 = no limit)")
	runCmd.Flags().DurationVar(&runPeriod, "period", config.LoopPeriod(), "Loop period")
	_ = runCmd.MarkFlagRequired("routine")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	routine, err := routines.Get(runRoutine)
	if err != nil {
		return err
	}

	r, err := buildRig(hardware, runSim, runSimSpeed)
	if err != nil {
		return err
	}
	defer r.Close()

	var current atomic.Pointer[opmode.Autonomous]
	st := newStation(r.hw.Clock, runDashboard, nil, func() any {
		if op := current.Load(); op != nil {
			return op.Status()
		}
		return nil
	})
	defer st.Close()

	in := st.in
	in.Observers = append(in.Observers, in.Metrics.Observer(routine.Name))

	ctx, stop := signalContext()
	defer stop()

	var run *recorder.Run
	if runRecord != "" {
		rec, err := recorder.Open(runRecord, r.hw.Clock, log.Component("recorder"))
		if err != nil {
			return err
		}
		defer rec.Close()
		run, err = rec.StartRun(ctx, routine.Name, "autonomous")
		if err != nil {
			return err
		}
		in.Observers = append(in.Observers, run)
		in.Telemetry.AddPublisher(run)
	}

	op := opmode.NewAutonomous(routine, r.hw, in)
	current.Store(op)

	runner := &opmode.Runner{
		Period:  runPeriod,
		Limit:   runLimit,
		Metrics: in.Metrics,
		Logger:  log.Component("runner"),
	}
	if runWaitStart {
		runner.StartSignal = waitForEnter(cmd)
	}

	logger.Info().Str("routine", routine.Name).Bool("sim", runSim).Msg("running")
	res, runErr := runner.Run(ctx, op)

	if run != nil {
		reason := recorder.EndStopped
		switch {
		case runErr != nil:
			reason = recorder.EndError
		case res.Reason == opmode.ReasonCompleted:
			reason = recorder.EndCompleted
		}
		if err := run.Finish(context.WithoutCancel(ctx), reason); err != nil {
			logger.Error().Err(err).Msg("finish recording")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "recorded run %s\n", run.ID)
	}

	status := op.Status()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s in %s after %.1fs (%d ticks, %d overruns)\n",
		routine.Name, res.Reason, status.State, status.OpModeElapsed, res.Ticks, res.Overruns)
	return runErr
}

// waitForEnter returns a channel closed when a line is read from stdin.
func waitForEnter(cmd *cobra.Command) <-chan struct{} {
	ch := make(chan struct{})
	fmt.Fprintln(cmd.OutOrStdout(), "initialized; press Enter to start")
	go func() {
		bufio.NewReader(os.Stdin).ReadString('\n')
		close(ch)
	}()
	return ch
}

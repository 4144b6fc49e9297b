package main

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/apexftc/go-auton/internal/config"
	"github.com/apexftc/go-auton/internal/httpc"
	"github.com/apexftc/go-auton/internal/log"
	"github.com/apexftc/go-auton/pkg/align"
	"github.com/apexftc/go-auton/pkg/field"
	"github.com/apexftc/go-auton/pkg/opmode"
	"github.com/apexftc/go-auton/pkg/vision"
)

var (
	alignAlliance  string
	alignLimelight string
	alignSerial    string
	alignSim       bool
	alignDistance  float64
	alignDashboard string
	alignPeriod    time.Duration
	alignTuning    string
)

var alignCmd = &cobra.Command{
	Use:   "align",
	Short: "Hold the robot at a fixed offset from the alliance goal tag",
	Long: `Drive toward the alliance goal tag and hold position in front of it
until interrupted. Gains can be changed live through the dashboard.

Examples:
  auton align --alliance red --dashboard :8080
  auton align --alliance blue --sim
  auton align --alliance blue --tuning align.yaml
`,
	RunE: runAlign,
}

func init() {
	alignCmd.Flags().StringVar(&alignAlliance, "alliance", "red", "Alliance whose goal tag to track (blue or red)")
	alignCmd.Flags().StringVar(&alignLimelight, "limelight", "", "Vision coprocessor URL (overrides the hardware map)")
	alignCmd.Flags().StringVar(&alignSerial, "serial", "", "Hub serial port (overrides the hardware map)")
	alignCmd.Flags().BoolVar(&alignSim, "sim", false, "Use a fixed simulated tag and drivetrain")
	alignCmd.Flags().Float64Var(&alignDistance, "distance", 0, "Target distance from the tag (0 keeps the default)")
	alignCmd.Flags().StringVar(&alignDashboard, "dashboard", "", "Dashboard listen address (empty disables it)")
	alignCmd.Flags().DurationVar(&alignPeriod, "period", config.LoopPeriod(), "Loop period")
	alignCmd.Flags().StringVar(&alignTuning, "tuning", "", "YAML file with controller gains, limits and deadband")
	rootCmd.AddCommand(alignCmd)
}

func runAlign(cmd *cobra.Command, args []string) error {
	alliance, err := field.ParseAlliance(alignAlliance)
	if err != nil {
		return err
	}
	cfg := align.DefaultConfig()
	if alignTuning != "" {
		if cfg, err = loadAlignConfig(alignTuning, cfg); err != nil {
			return err
		}
	}
	cfg.TargetID = goalTag(alliance)
	if alignDistance > 0 {
		cfg.TargetDistance = alignDistance
	}
	tune := align.NewTunable(align.DefaultConfig())
	if err := tune.Replace(cfg); err != nil {
		return err
	}

	hm := hardware
	if alignSerial != "" {
		hm.Serial.Port = alignSerial
	}
	if alignLimelight != "" {
		hm.Vision.URL = alignLimelight
	}

	r, err := buildRig(hm, alignSim, 0)
	if err != nil {
		return err
	}
	defer r.Close()

	if alignSim {
		r.hw.Vision = vision.NewStaticSource(vision.Detection{
			ID:   cfg.TargetID,
			Pose: &vision.RelativePose{X: 12, Z: cfg.TargetDistance + 40, Yaw: 8},
		})
	} else {
		r.hw.Vision = vision.NewLimelight(vision.LimelightConfig{
			URL:       hm.Vision.URL,
			UnitScale: hm.Vision.UnitScale,
			Timeout:   hm.Vision.Timeout,
		}, httpc.NewClient(hm.Vision.Timeout), log.Component("limelight"))
	}

	var current atomic.Pointer[opmode.Align]
	st := newStation(r.hw.Clock, alignDashboard, tune, func() any {
		if op := current.Load(); op != nil {
			last := op.Last()
			return map[string]any{
				"status": last.Status.String(),
				"errors": last.Errors,
				"axis":   last.Axis,
				"powers": last.Powers,
			}
		}
		return nil
	})
	defer st.Close()

	op := opmode.NewAlign(tune, r.hw, st.in)
	current.Store(op)

	ctx, stop := signalContext()
	defer stop()

	runner := &opmode.Runner{Period: alignPeriod, Metrics: st.in.Metrics, Logger: log.Component("runner")}
	logger.Info().Str("alliance", alliance.String()).Int("tag", cfg.TargetID).Bool("sim", alignSim).Msg("aligning")
	res, err := runner.Run(ctx, op)
	fmt.Fprintf(cmd.OutOrStdout(), "align: %s, last %s (%d ticks, %d errors)\n",
		res.Reason, op.Last().Status, res.Ticks, res.Errors)
	return err
}

func goalTag(a field.Alliance) int {
	if a == field.Blue {
		return vision.BlueGoalTag
	}
	return vision.RedGoalTag
}

// loadAlignConfig reads controller settings from YAML over base. Fields
// missing from the file keep their base values.
func loadAlignConfig(path string, base align.Config) (align.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read tuning: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("parse tuning %s: %w", path, err)
	}
	return cfg, nil
}

// Command auton runs the robot's autonomous routines and the tag
// alignment opmode, and inspects recorded runs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/apexftc/go-auton/internal/config"
	"github.com/apexftc/go-auton/internal/log"
)

var (
	logLevel     string
	hardwarePath string

	logger   zerolog.Logger
	hardware config.HardwareMap
)

var rootCmd = &cobra.Command{
	Use:           "auton",
	Short:         "Autonomous routines and vision alignment for the competition robot",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.Init(logLevel)
		logger = log.Component("auton")

		hardware = config.DefaultHardwareMap()
		if hardwarePath != "" {
			hm, err := config.LoadHardwareMap(hardwarePath)
			if err != nil {
				return err
			}
			hardware = hm
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.LogLevel(), "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&hardwarePath, "hardware", "", "YAML hardware map (defaults to the built-in wiring)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// signalContext ends on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Package cli defines Cobra command definitions for the semgcal CLI.
// This file contains the root command, which runs a calibration session.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/semg-lab/semgcal/internal/config"
)

// ErrTerminatedEarly is returned when a session ends without the
// thank-you confirmation.
var ErrTerminatedEarly = errors.New("session terminated early")

var (
	portFlag      string
	baudRateFlag  int
	outFlag       string
	configDirFlag string
	headlessFlag  bool
	debug         bool
	version       = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "semgcal [port] [baud-rate]",
	Short: "Guided sEMG calibration sessions",
	Long: `semgcal walks a subject through a timed calibration protocol: a
countdown, then alternating REST and FLEX screens. While the protocol runs,
8-channel readings from the serial device are labeled with the stimulus on
screen and exported to CSV when the subject finishes.

Without a port and baud rate the session runs in display-only mode.`,
	Version:       version,
	Args:          cobra.MaximumNArgs(2),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runCalibrate,
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, ErrTerminatedEarly) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "", "Project directory holding .semgcal/ (default: current directory)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log debug events")

	rootCmd.Flags().StringVar(&portFlag, "port", "", "Serial device path (overrides config and environment)")
	rootCmd.Flags().IntVar(&baudRateFlag, "baud-rate", 0, "Serial link rate (overrides config and environment)")
	rootCmd.Flags().StringVar(&outFlag, "out", "", "CSV export path")
	rootCmd.Flags().BoolVar(&headlessFlag, "headless", false, "Run without the interactive display")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(cleanCmd)
}

// projectDir returns the directory holding .semgcal/.
func projectDir() (string, error) {
	if configDirFlag != "" {
		return configDirFlag, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return dir, nil
}

// loadConfig reads the project config and applies .env, environment,
// positional and flag overrides, in that order of increasing precedence.
func loadConfig(dir string, args []string) (*config.Config, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(dir); err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.Device.Port = args[0]
	}
	if len(args) > 1 {
		baud, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("invalid baud rate %q: %w", args[1], err)
		}
		cfg.Device.BaudRate = baud
	}

	if portFlag != "" {
		cfg.Device.Port = portFlag
	}
	if baudRateFlag != 0 {
		cfg.Device.BaudRate = baudRateFlag
	}
	if outFlag != "" {
		cfg.Export.Path = outFlag
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

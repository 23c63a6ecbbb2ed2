package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	flagVerbose bool
	flagStdout  bool
	flagLogPath string
)

var rootCmd = &cobra.Command{
	Use:   "jsprogd",
	Short: "jsprogd turns joystick input into scripted keyboard and mouse activity",
	Long: `jsprogd watches for joystick hotplug, reads raw evdev input from each
device, dispatches control transitions to per-device scripted handlers, and
emits synthetic key/button/relative events through a virtual input device.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.Flags().BoolVarP(&flagVerbose, "debug", "d", false, "raise default log verbosity")
	rootCmd.Flags().BoolVarP(&flagStdout, "stdout", "s", false, "also log to standard output")
	rootCmd.Flags().StringVarP(&flagLogPath, "log", "l", "", "log file path")
}

// Execute runs the root command; unknown flags make cobra return a
// non-nil error, which exits 1, matching spec §6's CLI contract. -h is
// handled by cobra itself and exits 0 before RunE ever runs.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging() (*logrus.Logger, error) {
	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)
	if flagVerbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if flagLogPath != "" {
		f, err := os.OpenFile(flagLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", flagLogPath, err)
		}
		if flagStdout {
			log.SetOutput(io.MultiWriter(f, os.Stdout))
		} else {
			log.SetOutput(f)
		}
	} else if flagStdout {
		log.SetOutput(os.Stdout)
	}

	return log, nil
}

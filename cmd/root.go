// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/parhelion/pkg/relay"
)

var (
	// Host link flags (serial)
	portName string
	baudRate int

	// Host link flags (WebSocket serial bridge)
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Target link flags
	targetPort    string
	targetBaud    int
	targetTimeout time.Duration
	simulate      bool

	// Output
	logLevel string
	useTUI   bool
)

var rootCmd = &cobra.Command{
	Use:   "parhelion",
	Short: "Display coprocessor transfer tool",
	Long: `Parhelion - Moves files and firmware images between a host and a display
coprocessor over its debug serial link.

The host link carries Intel HEX records or YMODEM-1K blocks. Every value the
coprocessor has to act on is relayed to the target over a second link, either
a real serial port (--target-port) or the built-in simulator (--simulate).

Host link modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the PARHELION_PASSWORD
environment variable, or prompted interactively if not set.

Press ESC during a transfer to cancel it.`,
	Version:      "0.3.0",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return configureLogging()
	},
}

func init() {
	// Host link flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Host serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Host baud rate (serial only)")
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Target link flags
	rootCmd.PersistentFlags().StringVar(&targetPort, "target-port", "", "Target serial port device")
	rootCmd.PersistentFlags().IntVar(&targetBaud, "target-baud", 115200, "Target baud rate")
	rootCmd.PersistentFlags().DurationVar(&targetTimeout, "target-timeout", relay.DefaultTimeout, "Timeout for each reply from the target")
	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "Relay to the built-in target simulator")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warning", "Log level (trace, debug, info, warning, error)")
	rootCmd.PersistentFlags().BoolVar(&useTUI, "tui", false, "Show transfer progress in a terminal UI")
}

var logger = logrus.New()

func configureLogging() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

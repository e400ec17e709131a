// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/parhelion/pkg/relay"
)

var relayLogCmd = &cobra.Command{
	Use:   "relay_log",
	Short: "Decode relay frames seen on a serial line",
	Long: `Continuously decode and print relay unit frames read from --target-port.

Attach a second adapter to the target line (or loop it back) to watch the
units a transfer relays, one line per unit with its code and value.`,
	Args: cobra.NoArgs,
	RunE: runRelayLog,
}

func init() {
	rootCmd.AddCommand(relayLogCmd)
}

func runRelayLog(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenTargetConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Parhelion - Relay Log\n")
	fmt.Printf("%s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := relay.NewDecoder()
	buf := make([]byte, 128)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info("connection closed")
				return nil
			}
			return fmt.Errorf("reading target line: %w", err)
		}

		for _, b := range buf[:n] {
			unit, err := decoder.DecodeByte(b)
			if err != nil {
				fmt.Printf("[ERROR] %v\n", err)
				continue
			}
			if unit != nil {
				fmt.Print(relay.FormatUnit(unit))
			}
		}
	}
}

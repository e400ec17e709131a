// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/parhelion/pkg/channel"
)

var linkCheckCmd = &cobra.Command{
	Use:   "link_check",
	Short: "Check that the host link stays up",
	Long: `Open the host link and listen without starting a transfer, printing every
chunk received. Useful for checking a WebSocket bridge or a flaky adapter
before a long transfer.`,
	Args: cobra.NoArgs,
	RunE: runLinkCheck,
}

var linkCheckDuration time.Duration

func init() {
	linkCheckCmd.Flags().DurationVar(&linkCheckDuration, "duration", 30*time.Second, "How long to listen")
	rootCmd.AddCommand(linkCheckCmd)
}

func runLinkCheck(cmd *cobra.Command, args []string) error {
	host, connInfo, err := openHostChannel()
	if err != nil {
		return err
	}
	defer closeHost(host)

	fmt.Printf("Host Link Check\n")
	fmt.Printf("%s\n", connInfo)
	fmt.Printf("Duration: %s\n\n", linkCheckDuration)

	ctx, cancel := context.WithTimeout(cmd.Context(), linkCheckDuration)
	defer cancel()

	started := time.Now()
	received := 0
	for {
		b, err := host.ReadByteTimeout(ctx, time.Second)
		switch {
		case err == nil:
			received++
			fmt.Printf("[%s] 0x%02X\n", time.Now().Format("15:04:05.000"), b)
		case errors.Is(err, channel.ErrTimeout):
			fmt.Printf("[%s] Still connected... (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"), time.Until(started.Add(linkCheckDuration)).Seconds())
		case errors.Is(err, context.DeadlineExceeded):
			fmt.Printf("\nBytes received: %d\n", received)
			fmt.Printf("Result: PASSED (link stable)\n")
			return nil
		default:
			fmt.Printf("\nBytes received: %d after %s\n", received, time.Since(started).Truncate(time.Millisecond))
			fmt.Printf("Result: FAILED\n")
			return fmt.Errorf("host link: %w", err)
		}
	}
}

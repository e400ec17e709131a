// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/parhelion/pkg/target"
	"github.com/Thermoquad/parhelion/pkg/ymodem"
)

var receiveCmd = &cobra.Command{
	Use:   "receive [dir]",
	Short: "Receive a file batch from the host with YMODEM-1K and store it on the target",
	Long: `Wait for the host to send a YMODEM-1K batch, hold every file in memory and
write the batch to the target once the transfer completes. An aborted batch
writes nothing.

With --simulate the built-in target stores the files, and they are written
to dir when one is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReceive,
}

func init() {
	addBatchFlags(receiveCmd)
	rootCmd.AddCommand(receiveCmd)
}

func runReceive(cmd *cobra.Command, args []string) error {
	host, connInfo, err := openHostChannel()
	if err != nil {
		return err
	}
	defer closeHost(host)

	store := target.NewFileStore()
	link, closeLink, err := OpenTargetLink(store)
	if err != nil {
		return err
	}
	defer closeLink()

	r := newRelay(link)

	return runTransfer("YMODEM-1K receive", connInfo, func(ctx context.Context, fe *frontend) error {
		rcv := ymodem.NewReceiver(host, ymodemOptions(fe)...)
		err := newSession(r, fe).Receive(ctx, rcv)
		logger.Debugf("transfer statistics\n%s", rcv.Stats())
		if err != nil {
			return err
		}
		if simulate && len(args) > 0 {
			return writeDir(args[0], store.Files())
		}
		return nil
	})
}

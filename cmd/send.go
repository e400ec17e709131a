// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/parhelion/pkg/target"
	"github.com/Thermoquad/parhelion/pkg/ymodem"
)

var sendCmd = &cobra.Command{
	Use:   "send [dir]",
	Short: "Send a file batch from the target to the host with YMODEM-1K",
	Long: `Read every file the target offers into memory, then send the batch to the
host with YMODEM-1K. The host has to start a YMODEM receive.

With --simulate the files of dir are offered by the built-in target.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSend,
}

func init() {
	addBatchFlags(sendCmd)
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	var source *target.FileStore
	if simulate {
		if len(args) == 0 {
			return errors.New("--simulate needs a directory to send")
		}
		files, err := readDir(args[0])
		if err != nil {
			return err
		}
		source = target.NewFileSource(files...)
	}

	host, connInfo, err := openHostChannel()
	if err != nil {
		return err
	}
	defer closeHost(host)

	link, closeLink, err := OpenTargetLink(source)
	if err != nil {
		return err
	}
	defer closeLink()

	r := newRelay(link)

	return runTransfer("YMODEM-1K send", connInfo, func(ctx context.Context, fe *frontend) error {
		snd := ymodem.NewSender(host, ymodemOptions(fe)...)
		err := newSession(r, fe).Send(ctx, snd)
		logger.Debugf("transfer statistics\n%s", snd.Stats())
		return err
	})
}

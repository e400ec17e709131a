// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Thermoquad/parhelion/pkg/channel"
	"github.com/Thermoquad/parhelion/pkg/hexload"
	"github.com/Thermoquad/parhelion/pkg/ymodem"
)

// frontend carries the output and cancel hooks a transfer is wired to
type frontend struct {
	Diagnostics io.Writer
	Progress    ymodem.ProgressCallback
	Line        func(hexload.LineResult)
	Cancel      *channel.CancelFlag
}

type transferJob func(ctx context.Context, fe *frontend) error

// runTransfer runs job on the plain console or in the TUI. SIGINT and
// SIGTERM cancel the context; ESC sets the cancel flag.
func runTransfer(title, connInfo string, job transferJob) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flag := &channel.CancelFlag{}
	if useTUI {
		return runTransferTUI(ctx, title, connInfo, flag, job)
	}

	fmt.Printf("Parhelion - %s\n", title)
	fmt.Printf("%s\n", connInfo)
	fmt.Printf("Press ESC to cancel\n\n")

	restore := watchCancelKey(flag)
	defer restore()

	return job(ctx, &frontend{Diagnostics: os.Stdout, Cancel: flag})
}

// openHostChannel opens the host link and wraps it in a byte channel
func openHostChannel() (*channel.Channel, string, error) {
	conn, info, err := OpenHostConnection()
	if err != nil {
		return nil, "", err
	}
	return channel.New(conn), info, nil
}

func closeHost(ch *channel.Channel) {
	if err := ch.Close(); err != nil {
		logger.WithError(err).Debug("closing host link")
	}
}

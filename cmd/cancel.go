// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"os"

	"golang.org/x/term"

	"github.com/Thermoquad/parhelion/pkg/channel"
)

const (
	keyInterrupt = 0x03
	keyEscape    = 0x1B
)

// watchCancelKey puts stdin in raw mode and sets flag when ESC or Ctrl+C is
// pressed. The returned func restores the terminal. Without a terminal on
// stdin it does nothing.
func watchCancelKey(flag *channel.CancelFlag) func() {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return func() {}
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		logger.WithError(err).Warn("cancel key unavailable")
		return func() {}
	}

	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n == 1 && (buf[0] == keyEscape || buf[0] == keyInterrupt) {
				logger.Info("cancel requested")
				flag.Cancel()
				return
			}
		}
	}()

	return func() {
		if err := term.Restore(fd, state); err != nil {
			logger.WithError(err).Warn("restoring terminal")
		}
	}
}

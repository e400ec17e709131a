// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad
//
// Parhelion - Display coprocessor transfer tool
//
// Loads Intel HEX images and moves YMODEM-1K file batches between a host
// and a display coprocessor.

package main

import (
	"os"

	"github.com/Thermoquad/parhelion/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/parhelion/pkg/hexload"
	"github.com/Thermoquad/parhelion/pkg/target"
)

var (
	minAddress     uint32
	defaultAddress uint32
	hexByteTimeout time.Duration
	dumpPath       string
)

var hexloadCmd = &cobra.Command{
	Use:   "hexload",
	Short: "Receive Intel HEX records and load them into target memory",
	Long: `Wait for an Intel HEX stream on the host link and forward every data record
to the target as an acknowledged data package.

One glyph is printed per record: '.' ok, 'X' checksum error, '*' target
feedback error, '(R)' retransmitted line, 'R' data below the ROM guard
address. The load ends with a summary; in extended mode the summary compares
the CRC32 of all data bytes with the value announced by the sender.

With --simulate the target is the built-in memory simulator and --dump writes
the loaded image to a file.`,
	Args: cobra.NoArgs,
	RunE: runHexload,
}

func init() {
	hexloadCmd.Flags().Uint32Var(&minAddress, "min-address", hexload.DefaultMinLoadAddress, "Lowest loadable address (ROM guard)")
	hexloadCmd.Flags().Uint32Var(&defaultAddress, "default-address", hexload.DefaultLoadAddress, "Load address of data before any address record")
	hexloadCmd.Flags().DurationVar(&hexByteTimeout, "byte-timeout", hexload.DefaultByteTimeout, "Timeout for each byte inside a record")
	hexloadCmd.Flags().StringVar(&dumpPath, "dump", "", "Write the simulated memory image to this file (--simulate only)")
	rootCmd.AddCommand(hexloadCmd)
}

func runHexload(cmd *cobra.Command, args []string) error {
	if dumpPath != "" && !simulate {
		return fmt.Errorf("--dump requires --simulate")
	}

	host, connInfo, err := openHostChannel()
	if err != nil {
		return err
	}
	defer closeHost(host)

	mem := target.NewMemory()
	link, closeLink, err := OpenTargetLink(mem)
	if err != nil {
		return err
	}
	defer closeLink()

	r := newRelay(link)

	return runTransfer("Intel HEX load", connInfo, func(ctx context.Context, fe *frontend) error {
		loader := hexload.New(host, r,
			hexload.WithMinLoadAddress(minAddress),
			hexload.WithDefaultLoadAddress(defaultAddress),
			hexload.WithByteTimeout(hexByteTimeout),
			hexload.WithBaudRate(baudRate),
			hexload.WithDiagnostics(fe.Diagnostics),
			hexload.WithLogger(logger),
			hexload.WithCancel(fe.Cancel),
			hexload.WithLineCallback(fe.Line),
		)

		summary, err := loader.Load(ctx)
		if err != nil {
			return err
		}

		logger.WithFields(logrus.Fields{
			"records": summary.Records,
			"bytes":   summary.DataBytes,
			"errors":  summary.Errors,
			"crc32":   fmt.Sprintf("0x%08X", summary.CRC32),
		}).Info("hex load finished")

		if simulate && dumpPath != "" {
			if err := dumpImage(mem, dumpPath); err != nil {
				return err
			}
		}
		return summary.Err()
	})
}

func dumpImage(mem *target.Memory, path string) error {
	base, image := mem.Image()
	if err := os.WriteFile(path, image, 0o644); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"path": path,
		"base": fmt.Sprintf("0x%06X", base),
		"size": len(image),
	}).Info("memory image written")
	return nil
}

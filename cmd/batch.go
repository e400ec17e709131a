// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/parhelion/pkg/relay"
	"github.com/Thermoquad/parhelion/pkg/session"
	"github.com/Thermoquad/parhelion/pkg/target"
	"github.com/Thermoquad/parhelion/pkg/ymodem"
)

// Flags shared by send and receive
var (
	blockTimeout     time.Duration
	maxRetries       int
	maxErrors        int
	handshakeTimeout time.Duration
	batchCapacity    int
	maxFileSize      int
)

func addBatchFlags(c *cobra.Command) {
	c.Flags().DurationVar(&blockTimeout, "timeout", ymodem.DefaultTimeout, "Per-read timeout")
	c.Flags().IntVar(&maxRetries, "max-retries", ymodem.DefaultMaxRetries, "Retries per block before aborting")
	c.Flags().IntVar(&maxErrors, "max-errors", ymodem.DefaultMaxErrors, "Errors per batch before aborting")
	c.Flags().DurationVar(&handshakeTimeout, "handshake-timeout", 0, "Give up waiting for the other side after this long (0 waits until cancelled)")
	c.Flags().IntVar(&batchCapacity, "capacity", session.DefaultCapacity, "Maximum files per batch")
	c.Flags().IntVar(&maxFileSize, "max-file-size", session.DefaultMaxFileSize, "Largest file accepted, in bytes")
}

func ymodemOptions(fe *frontend) []ymodem.Option {
	return []ymodem.Option{
		ymodem.WithTimeout(blockTimeout),
		ymodem.WithMaxRetries(maxRetries),
		ymodem.WithMaxErrors(maxErrors),
		ymodem.WithHandshakeTimeout(handshakeTimeout),
		ymodem.WithBaudRate(baudRate),
		ymodem.WithDiagnostics(fe.Diagnostics),
		ymodem.WithLogger(logger),
		ymodem.WithCancel(fe.Cancel),
		ymodem.WithProgressCallback(fe.Progress),
	}
}

func newSession(r *relay.Relay, fe *frontend) *session.Session {
	return session.New(r,
		session.WithCapacity(batchCapacity),
		session.WithMaxFileSize(maxFileSize),
		session.WithDiagnostics(fe.Diagnostics),
		session.WithLogger(logger),
	)
}

// readDir loads the regular files of dir, sorted by name
func readDir(dir string) ([]target.File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var files []target.File
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		files = append(files, target.File{Name: e.Name(), Data: data})
	}
	return files, nil
}

// writeDir stores files in dir. Only the base name of each file is used.
func writeDir(dir string, files []target.File) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, f := range files {
		name := filepath.Base(filepath.Clean("/" + f.Name))
		if name == "/" || name == "." {
			logger.WithField("name", f.Name).Warn("skipping file with unusable name")
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), f.Data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		logger.WithField("path", filepath.Join(dir, name)).WithField("size", len(f.Data)).Info("file written")
	}
	return nil
}

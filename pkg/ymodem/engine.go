// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

// Package ymodem implements YMODEM-1K batch transfers over a byte channel.
//
// Blocks are framed as type, sequence, complement, a 128 or 1024 byte
// payload padded with 0x1A, and a big-endian CRC-16/XMODEM. Block 0 of every
// file is a header carrying the name and size; an empty header ends the
// batch. The engines run on the caller's goroutine and poll the cancel
// signal once per block attempt.
package ymodem

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/parhelion/pkg/channel"
)

// Port is the host side of the transfer link
type Port interface {
	ReadByteTimeout(ctx context.Context, timeout time.Duration) (byte, error)
	ReadFull(ctx context.Context, p []byte, timeout time.Duration) (int, error)
	Write(p []byte) (int, error)
	Purge()
}

// Sink receives the files of an incoming batch
type Sink interface {
	// AddFile starts a file of the declared size; an error aborts the batch
	AddFile(name string, size int) error
	// AddData appends to the file started last
	AddData(p []byte) error
}

// Source provides the files of an outgoing batch
type Source interface {
	Count() int
	Name(i int) string
	Data(i int) []byte
}

// engine holds what Sender and Receiver share
type engine struct {
	port  Port
	cfg   Config
	log   logrus.FieldLogger
	stats *Statistics
}

func newEngine(port Port, opts []Option) engine {
	if port == nil {
		panic("ymodem: port cannot be nil")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return engine{port: port, cfg: cfg, log: cfg.Logger, stats: NewStatistics()}
}

// Stats returns the statistics of the last transfer
func (e *engine) Stats() *Statistics {
	return e.stats
}

func (e *engine) printf(format string, args ...any) {
	fmt.Fprintf(e.cfg.Diagnostics, format, args...)
}

func (e *engine) wipeLine() {
	e.printf("\r                                \r")
}

func (e *engine) send(b byte) error {
	if _, err := e.port.Write([]byte{b}); err != nil {
		return fmt.Errorf("write %s: %w", typeName(b), err)
	}
	return nil
}

// readByte waits one timeout for a byte; ok is false on expiry
func (e *engine) readByte(ctx context.Context, timeout time.Duration) (byte, bool, error) {
	b, err := e.port.ReadByteTimeout(ctx, timeout)
	if errors.Is(err, channel.ErrTimeout) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return b, true, nil
}

// abort signals the peer with CAN CAN and prints the reason
func (e *engine) abort(err error, message string) error {
	if message != "" {
		e.printf("\r\n%s\r\n", message)
	}
	if _, werr := e.port.Write([]byte{CAN, CAN}); werr != nil {
		e.log.WithError(werr).Warn("sending abort")
	}
	e.log.WithError(err).Warn("transfer aborted")
	return err
}

func (e *engine) progress(p Progress) {
	if e.cfg.Progress != nil {
		e.cfg.Progress(p)
	}
}

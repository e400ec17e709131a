// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ymodem

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/parhelion/pkg/channel"
)

// Progress reports the position within the current file
type Progress struct {
	File      int // 1-based index within the batch
	Name      string
	Offset    int
	Size      int
	BlockSize int // payload size of the block just transferred
}

// Percentage returns the completed share of the file
func (p Progress) Percentage() float64 {
	if p.Size == 0 {
		return 100
	}
	return float64(p.Offset) * 100 / float64(p.Size)
}

// ProgressCallback receives progress after every data block
type ProgressCallback func(Progress)

// Config holds the engine configuration
type Config struct {
	// Timeout bounds every wait for a byte
	Timeout time.Duration

	// MaxRetries bounds block resends and consecutive timeouts
	MaxRetries int

	// MaxErrors bounds the cumulative receive errors
	MaxErrors int

	// HandshakeTimeout bounds the initial wait for the peer; zero waits
	// until cancelled
	HandshakeTimeout time.Duration

	// BaudRate is printed in the banner
	BaudRate int

	Diagnostics io.Writer
	Logger      logrus.FieldLogger
	Cancel      channel.CancelSignal
	Progress    ProgressCallback
}

func defaultConfig() Config {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return Config{
		Timeout:     DefaultTimeout,
		MaxRetries:  DefaultMaxRetries,
		MaxErrors:   DefaultMaxErrors,
		BaudRate:    DefaultBaudRate,
		Diagnostics: io.Discard,
		Logger:      l,
		Cancel:      channel.Never,
	}
}

// Option is a functional option for configuring a Sender or Receiver
type Option func(*Config)

// WithTimeout sets the per-byte timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithMaxRetries sets the retry budget
func WithMaxRetries(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxRetries = n
		}
	}
}

// WithMaxErrors sets the cumulative error budget of a receiver
func WithMaxErrors(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxErrors = n
		}
	}
}

// WithHandshakeTimeout bounds the wait for the peer to start
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.HandshakeTimeout = d
		}
	}
}

// WithBaudRate sets the rate reported in the banner
func WithBaudRate(baud int) Option {
	return func(c *Config) {
		c.BaudRate = baud
	}
}

// WithDiagnostics sets the writer for progress and status lines
func WithDiagnostics(w io.Writer) Option {
	return func(c *Config) {
		if w != nil {
			c.Diagnostics = w
		}
	}
}

// WithLogger sets the structured logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Config) {
		if log != nil {
			c.Logger = log
		}
	}
}

// WithCancel sets the local cancel signal, polled once per block attempt
func WithCancel(sig channel.CancelSignal) Option {
	return func(c *Config) {
		if sig != nil {
			c.Cancel = sig
		}
	}
}

// WithProgressCallback sets a callback tracking transfer progress.
//
// Example:
//
//	s := ymodem.NewSender(ch, ymodem.WithProgressCallback(func(p ymodem.Progress) {
//	    fmt.Printf("%s %.1f%%\n", p.Name, p.Percentage())
//	}))
func WithProgressCallback(cb ProgressCallback) Option {
	return func(c *Config) {
		c.Progress = cb
	}
}

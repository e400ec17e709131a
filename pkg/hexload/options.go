// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package hexload

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/parhelion/pkg/channel"
)

const (
	// DefaultMinLoadAddress is the lowest address outside the ROM area
	DefaultMinLoadAddress = 0x040000

	// DefaultLoadAddress is where data records without an address record load
	DefaultLoadAddress = 0x040000

	// DefaultByteTimeout bounds each byte read inside a record
	DefaultByteTimeout = 5 * time.Second

	// DefaultBaudRate is only reported in the banner
	DefaultBaudRate = 115200

	idlePoll = 100 * time.Millisecond
)

// Config holds the loader configuration
type Config struct {
	// MinLoadAddress is the ROM guard. Data below it is flagged.
	MinLoadAddress uint32

	// DefaultLoadAddress is the 64K page used before any address record,
	// and the base of segment addresses in that case
	DefaultLoadAddress uint32

	// ByteTimeout bounds each byte read once a record has started
	ByteTimeout time.Duration

	// BaudRate is printed in the banner
	BaudRate int

	// Diagnostics receives the glyph and summary text stream
	Diagnostics io.Writer

	// Logger receives structured per-record logs
	Logger logrus.FieldLogger

	// Cancel is polled while waiting for the next record
	Cancel channel.CancelSignal

	// OnLine is called with every parsed record (optional)
	OnLine func(LineResult)
}

func defaultConfig() Config {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return Config{
		MinLoadAddress:     DefaultMinLoadAddress,
		DefaultLoadAddress: DefaultLoadAddress,
		ByteTimeout:        DefaultByteTimeout,
		BaudRate:           DefaultBaudRate,
		Diagnostics:        io.Discard,
		Logger:             l,
		Cancel:             channel.Never,
	}
}

// Option is a functional option for configuring the Loader
type Option func(*Config)

// WithMinLoadAddress sets the ROM guard address (24-bit)
func WithMinLoadAddress(addr uint32) Option {
	return func(c *Config) {
		c.MinLoadAddress = addr & 0xFFFFFF
	}
}

// WithDefaultLoadAddress sets the page used before any address record.
// Only the upper byte of the 24-bit address is kept.
func WithDefaultLoadAddress(addr uint32) Option {
	return func(c *Config) {
		c.DefaultLoadAddress = addr & 0xFF0000
	}
}

// WithByteTimeout sets the per-byte timeout inside a record
func WithByteTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ByteTimeout = d
		}
	}
}

// WithBaudRate sets the rate reported in the banner
func WithBaudRate(baud int) Option {
	return func(c *Config) {
		c.BaudRate = baud
	}
}

// WithDiagnostics sets the writer for the glyph and summary stream
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

// WithCancel sets the local cancel signal
func WithCancel(sig channel.CancelSignal) Option {
	return func(c *Config) {
		if sig != nil {
			c.Cancel = sig
		}
	}
}

// WithLineCallback sets a callback receiving every record result.
//
// Example:
//
//	l := hexload.New(host, r, hexload.WithLineCallback(func(res hexload.LineResult) {
//	    fmt.Print(res.Glyph())
//	}))
func WithLineCallback(fn func(LineResult)) Option {
	return func(c *Config) {
		c.OnLine = fn
	}
}

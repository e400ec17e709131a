// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package session

import (
	"io"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultCapacity is the number of files a batch can hold
	DefaultCapacity = 128

	// DefaultMaxFileSize is the largest file buffer a session allocates
	DefaultMaxFileSize = 16 << 20

	// writeChunk is the largest data command sent to the target
	writeChunk = 1024

	maxNameLength = 100
)

// Config holds the session configuration
type Config struct {
	Capacity    int
	MaxFileSize int
	Diagnostics io.Writer
	Logger      logrus.FieldLogger
}

func defaultConfig() Config {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return Config{
		Capacity:    DefaultCapacity,
		MaxFileSize: DefaultMaxFileSize,
		Diagnostics: io.Discard,
		Logger:      l,
	}
}

// Option is a functional option for configuring a Session
type Option func(*Config)

// WithCapacity sets the maximum number of files
func WithCapacity(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Capacity = n
		}
	}
}

// WithMaxFileSize sets the allocation limit per file
func WithMaxFileSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxFileSize = n
		}
	}
}

// WithDiagnostics sets the writer for status lines
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

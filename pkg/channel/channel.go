// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

// Package channel provides blocking and timeout-bounded byte I/O over a
// host link such as a serial port or a WebSocket bridge.
//
// A single pump goroutine moves received bytes into a queue. Every read
// happens on the caller's goroutine and is bounded by a context and,
// optionally, a timeout. Expiry is reported as ErrTimeout ("no data") and the
// caller applies its own retry policy.
package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var (
	// ErrTimeout is returned when no byte arrived within the timeout
	ErrTimeout = errors.New("timeout waiting for data")
	// ErrClosed is returned once the underlying link has failed or been closed
	ErrClosed = errors.New("channel closed")
)

const pumpBufferSize = 256

// Channel is a byte channel over a host link
type Channel struct {
	w      io.Writer
	closer io.Closer

	chunks  chan []byte
	pending []byte
	done    chan struct{}
	once    sync.Once

	mu  sync.Mutex
	err error
}

// New starts a channel over rw. If rw is also an io.Closer, Close closes it.
func New(rw io.ReadWriter) *Channel {
	c := &Channel{
		w:      rw,
		chunks: make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	if closer, ok := rw.(io.Closer); ok {
		c.closer = closer
	}
	go c.pump(rw)
	return c
}

// NewSplit starts a channel reading from r and writing to w
func NewSplit(r io.Reader, w io.Writer) *Channel {
	return New(struct {
		io.Reader
		io.Writer
	}{r, w})
}

func (c *Channel) pump(r io.Reader) {
	defer close(c.chunks)
	buf := make([]byte, pumpBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case c.chunks <- chunk:
			case <-c.done:
				return
			}
		}
		if err != nil {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}
	}
}

func (c *Channel) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil || errors.Is(c.err, io.EOF) {
		return ErrClosed
	}
	return fmt.Errorf("%w: %v", ErrClosed, c.err)
}

func (c *Channel) next(ctx context.Context, expired <-chan time.Time) (byte, error) {
	if len(c.pending) > 0 {
		b := c.pending[0]
		c.pending = c.pending[1:]
		return b, nil
	}

	select {
	case chunk, ok := <-c.chunks:
		if !ok {
			return 0, c.closedErr()
		}
		c.pending = chunk[1:]
		return chunk[0], nil
	case <-expired:
		return 0, ErrTimeout
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// ReadByte blocks until a byte arrives, the context ends, or the link closes
func (c *Channel) ReadByte(ctx context.Context) (byte, error) {
	return c.next(ctx, nil)
}

// ReadByteTimeout waits at most timeout for a single byte
func (c *Channel) ReadByteTimeout(ctx context.Context, timeout time.Duration) (byte, error) {
	if len(c.pending) > 0 {
		return c.next(ctx, nil)
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	return c.next(ctx, timer.C)
}

// ReadFull fills p, allowing at most timeout between consecutive bytes.
// On a short read it returns the number of bytes stored and ErrTimeout.
func (c *Channel) ReadFull(ctx context.Context, p []byte, timeout time.Duration) (int, error) {
	for i := range p {
		b, err := c.ReadByteTimeout(ctx, timeout)
		if err != nil {
			return i, err
		}
		p[i] = b
	}
	return len(p), nil
}

// Purge drops any input already received
func (c *Channel) Purge() {
	c.pending = nil
	for {
		select {
		case _, ok := <-c.chunks:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// WriteByte sends a single byte
func (c *Channel) WriteByte(b byte) error {
	_, err := c.w.Write([]byte{b})
	return err
}

// Write sends p in full
func (c *Channel) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

// Close stops the pump and closes the underlying link if it is closable
func (c *Channel) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		if c.closer != nil {
			err = c.closer.Close()
		}
	})
	return err
}

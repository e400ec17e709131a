// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/parhelion/pkg/channel"
)

// DefaultTimeout bounds every single wait for a byte from the target
const DefaultTimeout = 2 * time.Second

// ErrTimeout is returned when the target does not answer in time
var ErrTimeout = fmt.Errorf("no answer from target: %w", channel.ErrTimeout)

// Relay forwards values to the secondary processor over a Link
type Relay struct {
	link    Link
	log     logrus.FieldLogger
	timeout time.Duration
}

// Option configures a Relay
type Option func(*Relay)

// WithLogger sets the logger used for unit tracing
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Relay) {
		if log != nil {
			r.log = log
		}
	}
}

// WithTimeout bounds each wait for an ack, status or data byte
func WithTimeout(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// New creates a relay over link
func New(link Link, opts ...Option) *Relay {
	if link == nil {
		panic("relay: link cannot be nil")
	}
	r := &Relay{link: link, log: discardLogger(), timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// read waits for one byte, at most r.timeout unless ctx ends first
func (r *Relay) read(ctx context.Context) (byte, error) {
	wctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	b, err := r.link.ReadByte(wctx)
	if err != nil && ctx.Err() == nil && errors.Is(wctx.Err(), context.DeadlineExceeded) {
		return 0, fmt.Errorf("%w after %v", ErrTimeout, r.timeout)
	}
	return b, err
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// SendByte relays a single byte, optionally waiting for a one-byte ack
func (r *Relay) SendByte(ctx context.Context, b byte, waitAck bool) error {
	if err := r.link.SendUnit(PacketKeycode, []byte{b, 0}); err != nil {
		return fmt.Errorf("relay byte 0x%02X: %w", b, err)
	}
	if !waitAck {
		return nil
	}
	ack, err := r.read(ctx)
	if err != nil {
		return fmt.Errorf("relay ack for 0x%02X: %w", b, err)
	}
	r.log.WithFields(logrus.Fields{"byte": b, "ack": ack}).Trace("relay byte acked")
	return nil
}

// SendUint32 relays v as four units, least-significant byte first
func (r *Relay) SendUint32(v uint32) error {
	for shift := 0; shift < 32; shift += 8 {
		if err := r.link.SendUnit(PacketKeycode, []byte{byte(v >> shift), 0}); err != nil {
			return fmt.Errorf("relay uint32: %w", err)
		}
	}
	return nil
}

// SendBytes relays p as len(p) single-byte units
func (r *Relay) SendBytes(p []byte) error {
	for i, b := range p {
		if err := r.link.SendUnit(PacketKeycode, []byte{b, 0}); err != nil {
			return fmt.Errorf("relay stream at %d/%d: %w", i, len(p), err)
		}
	}
	return nil
}

// ReadByte reads one byte from the secondary processor
func (r *Relay) ReadByte(ctx context.Context) (byte, error) {
	return r.read(ctx)
}

// ReceiveUint32 reads four bytes, least-significant first
func (r *Relay) ReceiveUint32(ctx context.Context) (uint32, error) {
	var v uint32
	for i := 0; i < 4; i++ {
		b, err := r.read(ctx)
		if err != nil {
			return 0, fmt.Errorf("receive uint32: %w", err)
		}
		v |= uint32(b) << (8 * i)
	}
	return v, nil
}

// ReceiveBytes fills p in the order the bytes arrive
func (r *Relay) ReceiveBytes(ctx context.Context, p []byte) error {
	for i := range p {
		b, err := r.read(ctx)
		if err != nil {
			return fmt.Errorf("receive stream at %d/%d: %w", i, len(p), err)
		}
		p[i] = b
	}
	return nil
}

// WaitFor discards bytes until want arrives
func (r *Relay) WaitFor(ctx context.Context, want byte) error {
	for {
		b, err := r.read(ctx)
		if err != nil {
			return err
		}
		if b == want {
			return nil
		}
	}
}

// ExpectStatus waits for the 'S' status marker and checks the status byte
func (r *Relay) ExpectStatus(ctx context.Context, want byte) error {
	if err := r.WaitFor(ctx, 'S'); err != nil {
		return err
	}
	got, err := r.read(ctx)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: status %q, expected %q", ErrUnexpectedReply, got, want)
	}
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package relay

import (
	"context"
	"errors"
	"io"

	"github.com/Thermoquad/parhelion/pkg/channel"
)

// ErrUnexpectedReply is returned when a status reply does not match
var ErrUnexpectedReply = errors.New("unexpected reply from target")

// Link is the abstract side-channel primitive: send one unit, read one byte
type Link interface {
	// SendUnit sends one unit of data to the secondary processor
	SendUnit(code byte, data []byte) error
	// ReadByte blocks until the secondary processor sends a byte
	ReadByte(ctx context.Context) (byte, error)
}

// SerialLink is a framed Link over a byte stream such as a serial port
type SerialLink struct {
	ch *channel.Channel
}

// NewSerialLink wraps rw. Outgoing units are framed, incoming bytes are raw.
func NewSerialLink(rw io.ReadWriter) *SerialLink {
	return &SerialLink{ch: channel.New(rw)}
}

// SendUnit encodes and writes a single unit frame
func (l *SerialLink) SendUnit(code byte, data []byte) error {
	frame, err := EncodeUnit(code, data)
	if err != nil {
		return err
	}
	_, err = l.ch.Write(frame)
	return err
}

// ReadByte reads one raw byte from the secondary processor
func (l *SerialLink) ReadByte(ctx context.Context) (byte, error) {
	return l.ch.ReadByte(ctx)
}

// Close closes the underlying stream
func (l *SerialLink) Close() error {
	return l.ch.Close()
}

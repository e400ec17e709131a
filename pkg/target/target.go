// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

// Package target simulates the secondary processor behind the relay.
//
// Memory receives hex-load data packages into a sparse 24-bit address space.
// FileStore serves and stores file batches. Both implement relay.Link and
// run synchronously: every reply is queued while the unit is handled, so a
// read with nothing queued is a protocol error rather than a wait.
package target

import (
	"context"
	"errors"
	"fmt"

	"github.com/Thermoquad/parhelion/pkg/relay"
)

var (
	// ErrNoResponse is returned when a byte is read that the target never sent
	ErrNoResponse = errors.New("target has no pending response")
	// ErrBadUnit is returned for units the target cannot interpret
	ErrBadUnit = errors.New("malformed relay unit")
)

// AckByte is the byte returned for acknowledged units
const AckByte = 0x06

// replyQueue holds bytes waiting to be read by the relay
type replyQueue struct {
	replies []byte
}

func (q *replyQueue) push(b ...byte) {
	q.replies = append(q.replies, b...)
}

func (q *replyQueue) pushUint32(v uint32) {
	q.push(byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// ReadByte pops the next queued reply
func (q *replyQueue) ReadByte(ctx context.Context) (byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(q.replies) == 0 {
		return 0, ErrNoResponse
	}
	b := q.replies[0]
	q.replies = q.replies[1:]
	return b, nil
}

// Pending returns the number of queued reply bytes
func (q *replyQueue) Pending() int {
	return len(q.replies)
}

func unitValue(code byte, data []byte) (byte, error) {
	if code != relay.PacketKeycode || len(data) == 0 {
		return 0, fmt.Errorf("%w: code 0x%02X len %d", ErrBadUnit, code, len(data))
	}
	return data[0], nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package relay

import "time"

// Unit is one decoded side-channel frame
type Unit struct {
	code      byte
	data      []byte
	crc       uint16
	timestamp time.Time
}

// NewUnit creates a unit with the given code and data
func NewUnit(code byte, data []byte) *Unit {
	return &Unit{code: code, data: data, timestamp: time.Now()}
}

// Code returns the unit code
func (u *Unit) Code() byte {
	return u.code
}

// Data returns the unit payload
func (u *Unit) Data() []byte {
	return u.data
}

// Value returns the relayed byte of a keycode unit
func (u *Unit) Value() (byte, bool) {
	if u.code != PacketKeycode || len(u.data) == 0 {
		return 0, false
	}
	return u.data[0], true
}

// CRC returns the frame CRC (zero for units built locally)
func (u *Unit) CRC() uint16 {
	return u.crc
}

// Timestamp returns the decode time
func (u *Unit) Timestamp() time.Time {
	return u.timestamp
}

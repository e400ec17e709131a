// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package relay

import (
	"fmt"
	"time"

	"github.com/Thermoquad/parhelion/pkg/checksum"
)

// Decoder reassembles side-channel frames one byte at a time
type Decoder struct {
	state       int
	buffer      []byte
	bufferIndex int
	escapeNext  bool
	length      int
	crc         uint16
}

// NewDecoder creates a new frame decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state:  stateIdle,
		buffer: make([]byte, MaxFrameSize),
	}
}

// Reset returns the decoder to idle
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.bufferIndex = 0
	d.escapeNext = false
	d.length = 0
	d.crc = 0
}

// DecodeByte feeds one byte to the decoder.
// It returns a unit when a frame completes, or an error for a bad frame.
func (d *Decoder) DecodeByte(b byte) (*Unit, error) {
	if b == StartByte && !d.escapeNext {
		d.Reset()
		d.state = stateLength
		return nil, nil
	}

	if b == EndByte && !d.escapeNext {
		if d.state != stateEnd {
			state := d.state
			d.Reset()
			if state == stateIdle {
				return nil, nil
			}
			return nil, fmt.Errorf("unexpected END byte in state %d", state)
		}
		return d.finish()
	}

	if b == EscByte && !d.escapeNext {
		d.escapeNext = true
		return nil, nil
	}
	if d.escapeNext {
		b ^= EscXor
		d.escapeNext = false
	}

	switch d.state {
	case stateIdle:
		return nil, nil

	case stateLength:
		if int(b) > MaxPayloadSize || b == 0 {
			d.Reset()
			return nil, fmt.Errorf("invalid length: %d (max %d)", b, MaxPayloadSize)
		}
		d.length = int(b)
		d.buffer[0] = b
		d.bufferIndex = 1
		d.state = statePayload
		return nil, nil

	case statePayload:
		if d.bufferIndex >= MaxFrameSize {
			d.Reset()
			return nil, fmt.Errorf("buffer overflow: frame exceeds max size")
		}
		d.buffer[d.bufferIndex] = b
		d.bufferIndex++
		if d.bufferIndex > d.length {
			d.state = stateCRC1
		}
		return nil, nil

	case stateCRC1:
		d.crc = uint16(b) << 8
		d.state = stateCRC2
		return nil, nil

	case stateCRC2:
		d.crc |= uint16(b)
		d.state = stateEnd
		return nil, nil

	default:
		d.Reset()
		return nil, fmt.Errorf("trailing byte 0x%02X after CRC", b)
	}
}

func (d *Decoder) finish() (*Unit, error) {
	defer d.Reset()

	calculated := checksum.CCITTChecksum(d.buffer[:d.bufferIndex])
	if calculated != d.crc {
		return nil, fmt.Errorf("CRC mismatch: expected 0x%04X, got 0x%04X", calculated, d.crc)
	}

	code, data, err := ParseUnitPayload(d.buffer[1:d.bufferIndex])
	if err != nil {
		return nil, err
	}
	return &Unit{code: code, data: data, crc: d.crc, timestamp: time.Now()}, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ymodem

import (
	"encoding/binary"
	"fmt"

	"github.com/Thermoquad/parhelion/pkg/checksum"
)

// Block is a received transfer block. Payload aliases the receiver's
// working buffer and is only valid until the next read.
type Block struct {
	Type    byte
	Seq     byte
	Length  int // bytes received, including the type byte
	Payload []byte

	TimedOut   bool
	CRCOK      bool
	SeqOK      bool
	EndOfBatch bool

	// Duplicate marks an intact repeat of the previous block
	Duplicate bool
}

// Data reports whether the block carries a payload
func (b *Block) Data() bool {
	return b.Type == SOH || b.Type == STX
}

// Err classifies a rejected data block
func (b *Block) Err() error {
	switch {
	case b.TimedOut:
		return fmt.Errorf("%w: %d of %d bytes", ErrTimeout, b.Length, len(b.Payload)+BlockOverhead)
	case !b.CRCOK:
		return ErrChecksumMismatch
	case !b.SeqOK:
		return ErrSequenceMismatch
	}
	return nil
}

// blockSize returns the payload size announced by a type byte
func blockSize(typ byte) int {
	switch typ {
	case SOH:
		return BlockSize128
	case STX:
		return BlockSize1K
	}
	return 0
}

// encoder frames blocks into a reused buffer
type encoder struct {
	buf [maxFrameSize]byte
}

// encode frames data as a block of the given type. Data shorter than the
// block is padded; the whole frame is rewritten on every call.
func (e *encoder) encode(typ, seq byte, data []byte, pad byte) []byte {
	size := blockSize(typ)
	frame := e.buf[:size+BlockOverhead]

	frame[0] = typ
	frame[seqIndex] = seq
	frame[seqCompIndex] = 255 - seq

	payload := frame[blockHeader : blockHeader+size]
	n := copy(payload, data)
	for i := n; i < size; i++ {
		payload[i] = pad
	}

	binary.BigEndian.PutUint16(frame[blockHeader+size:], checksum.XMODEMChecksum(payload))
	return frame
}

// EncodeBlock frames data as a standalone block
func EncodeBlock(typ, seq byte, data []byte) []byte {
	var e encoder
	frame := e.encode(typ, seq, data, Padding)
	return append([]byte(nil), frame...)
}

// verifyFrame checks a complete frame against the expected sequence number
func verifyFrame(frame []byte, expected byte) (crcOK, seqOK bool) {
	crcOK = checksum.XMODEMChecksum(frame[blockHeader:]) == 0
	seq := frame[seqIndex]
	seqOK = seq == expected && frame[seqCompIndex] == 255-seq
	return crcOK, seqOK
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ymodem

import "time"

// Control bytes
const (
	SOH        = 0x01 // 128-byte block
	STX        = 0x02 // 1024-byte block
	EOT        = 0x04
	ACK        = 0x06
	NAK        = 0x15
	CAN        = 0x18
	CRCRequest = 'C'
)

// Block layout
const (
	BlockSize128 = 128
	BlockSize1K  = 1024

	blockHeader   = 3 // type, seq, 255-seq
	blockTrailer  = 2 // CRC16, big-endian
	BlockOverhead = blockHeader + blockTrailer

	maxFrameSize = BlockSize1K + BlockOverhead

	seqIndex     = 1
	seqCompIndex = 2

	// Padding fills the unused tail of the last block
	Padding = 0x1A
)

// Header block fields
const (
	MaxNameLength   = 100
	sizeFieldLength = 16
	DefaultMode     = "0600"
)

// Defaults
const (
	DefaultTimeout    = 1200 * time.Millisecond
	DefaultMaxRetries = 3
	DefaultMaxErrors  = 32
	DefaultBaudRate   = 115200

	handshakePoll = 100 * time.Millisecond
)

// typeName names a block type byte for logs
func typeName(b byte) string {
	switch b {
	case SOH:
		return "SOH"
	case STX:
		return "STX"
	case EOT:
		return "EOT"
	case ACK:
		return "ACK"
	case NAK:
		return "NAK"
	case CAN:
		return "CAN"
	case CRCRequest:
		return "C"
	default:
		return "UNKNOWN"
	}
}

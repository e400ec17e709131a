// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

// Package relay forwards bytes, 32-bit values and byte streams to a
// secondary processor through an abstract "send one unit, read one byte"
// link.
//
// The relay has no internal timeout. Callers bound every wait through the
// context they pass in.
//
// A concrete framed link for serial side channels is provided by SerialLink.
// Units are carried as CBOR [code, data] pairs inside byte-stuffed frames
// protected by CRC-16/CCITT-FALSE.
package relay

// Side-channel framing bytes
const (
	StartByte = 0x7E
	EndByte   = 0x7F
	EscByte   = 0x7D
	EscXor    = 0x20
)

// Frame size limits
const (
	MaxFrameSize   = 72 // 1 length + 64 payload + 2 CRC, before stuffing
	MaxPayloadSize = 64
)

// Unit codes
const (
	// PacketKeycode carries a single relayed byte as {value, modifier}
	PacketKeycode = 0x01
)

// Decoder states (internal)
const (
	stateIdle = iota
	stateLength
	statePayload
	stateCRC1
	stateCRC2
	stateEnd
)

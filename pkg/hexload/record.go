// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package hexload

import (
	"encoding/binary"
	"fmt"
)

// RecordType is the Intel HEX record type field
type RecordType byte

// Record types
const (
	RecordData         RecordType = 0x00
	RecordEOF          RecordType = 0x01
	RecordExtSegment   RecordType = 0x02
	RecordExtLinear    RecordType = 0x04
	RecordExtendedMode RecordType = 0xFF
)

// Extended-mode control subtypes
const (
	subtypeEnableExtended = 0x00
)

func (t RecordType) String() string {
	switch t {
	case RecordData:
		return "DATA"
	case RecordEOF:
		return "EOF"
	case RecordExtSegment:
		return "EXT_SEGMENT"
	case RecordExtLinear:
		return "EXT_LINEAR"
	case RecordExtendedMode:
		return "EXTENDED_MODE"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", byte(t))
	}
}

// Record is one parsed hex record
type Record struct {
	Count    byte
	AddrHi   byte
	AddrLo   byte
	Type     RecordType
	Payload  []byte
	Checksum byte

	// Valid is true when every character was a hex digit and the
	// mod-256 sum over all fields including Checksum is zero
	Valid bool
}

// Address16 returns the 16-bit address field
func (r *Record) Address16() uint16 {
	return uint16(r.AddrHi)<<8 | uint16(r.AddrLo)
}

// segmentBase returns the 20-bit base of an extended segment record
func (r *Record) segmentBase() (uint32, bool) {
	if len(r.Payload) < 2 {
		return 0, false
	}
	return uint32(binary.BigEndian.Uint16(r.Payload)) << 4, true
}

// upperByte returns bits 16-23 of an extended linear record
func (r *Record) upperByte() (byte, bool) {
	if len(r.Payload) < 2 {
		return 0, false
	}
	return r.Payload[1], true
}

// extendedControl returns the subtype and announced CRC32 of a control record
func (r *Record) extendedControl() (byte, uint32, bool) {
	if len(r.Payload) < 2 {
		return 0, 0, false
	}
	subtype := r.Payload[1]
	if subtype != subtypeEnableExtended {
		return subtype, 0, true
	}
	if len(r.Payload) < 6 {
		return subtype, 0, false
	}
	return subtype, binary.BigEndian.Uint32(r.Payload[2:6]), true
}

// LineResult is the outcome of one record
type LineResult struct {
	Type    RecordType
	FrameID byte
	// Address is the effective 24-bit load address of a data record
	Address uint32
	Count   int

	ChecksumOK bool
	FeedbackOK bool
	Retransmit bool
	ROMArea    bool

	// LineCRC is the CRC16 echoed to the host in extended mode
	LineCRC  uint16
	Extended bool
}

// Glyph projects the result onto the diagnostics glyph.
// End-of-file and control records have no glyph.
func (r LineResult) Glyph() string {
	switch r.Type {
	case RecordData:
		if r.ROMArea {
			return "R"
		}
	case RecordExtSegment, RecordExtLinear:
	default:
		return ""
	}

	switch {
	case !r.ChecksumOK:
		return "X"
	case !r.FeedbackOK:
		return "*"
	case r.Retransmit:
		return "(R)"
	default:
		return "."
	}
}

// Failed reports whether the record counts as an error
func (r LineResult) Failed() bool {
	return !r.ChecksumOK || !r.FeedbackOK
}

// Summary describes a completed load
type Summary struct {
	Records         int
	DataRecords     int
	DataBytes       int
	Errors          int
	Retransmissions int

	Extended      bool
	CRC32         uint32
	ExpectedCRC32 uint32

	ROMArea bool
}

// Err returns the final verdict, nil when the load is OK
func (s *Summary) Err() error {
	if s.ROMArea {
		return ErrROMArea
	}
	if s.Extended {
		if s.CRC32 != s.ExpectedCRC32 {
			return &ChecksumError{Expected: s.ExpectedCRC32, Actual: s.CRC32}
		}
		return nil
	}
	if s.Errors > 0 {
		return &RecordErrors{Count: s.Errors}
	}
	return nil
}

// OK reports whether the load succeeded
func (s *Summary) OK() bool {
	return s.Err() == nil
}

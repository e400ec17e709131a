// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

// Package checksum provides restartable CRC16 and CRC32 accumulators.
//
// Accumulators are plain values: copying one takes a checkpoint of the span
// measured so far, and Calc never mutates state. A session can therefore keep
// a committed digest and a working copy side by side.
package checksum

import (
	"hash/crc32"

	"github.com/sigurn/crc16"
)

// CRC16 parameter presets
var (
	// XMODEM is the CRC-16/XMODEM frame check used by block transfers.
	// A block followed by its big-endian CRC reduces to zero.
	XMODEM = crc16.CRC16_XMODEM

	// HexLine is the per-record trailer used by extended hex loads.
	HexLine = crc16.Params{
		Poly:   0x8005,
		Init:   0x0000,
		RefIn:  false,
		RefOut: false,
		XorOut: 0x0000,
		Check:  0xFEE8,
		Name:   "CRC-16/BUYPASS",
	}

	// CCITTFalse is the frame check used on the relay side channel.
	CCITTFalse = crc16.CRC16_CCITT_FALSE
)

var (
	xmodemTable  = crc16.MakeTable(XMODEM)
	hexLineTable = crc16.MakeTable(HexLine)
	ccittTable   = crc16.MakeTable(CCITTFalse)
)

// CRC16 is a restartable CRC16 accumulator
type CRC16 struct {
	table *crc16.Table
	crc   uint16
}

// NewCRC16 creates an accumulator for arbitrary parameters
func NewCRC16(params crc16.Params) CRC16 {
	return newCRC16(crc16.MakeTable(params))
}

// NewXMODEM creates a CRC-16/XMODEM accumulator
func NewXMODEM() CRC16 { return newCRC16(xmodemTable) }

// NewHexLine creates the extended hex-record line accumulator
func NewHexLine() CRC16 { return newCRC16(hexLineTable) }

// NewCCITTFalse creates a CRC-16/CCITT-FALSE accumulator
func NewCCITTFalse() CRC16 { return newCRC16(ccittTable) }

func newCRC16(table *crc16.Table) CRC16 {
	return CRC16{table: table, crc: crc16.Init(table)}
}

// Restart discards everything folded in so far
func (c *CRC16) Restart() {
	c.crc = crc16.Init(c.table)
}

// Add folds data into the accumulator
func (c *CRC16) Add(data []byte) {
	c.crc = crc16.Update(c.crc, data, c.table)
}

// AddByte folds a single byte into the accumulator
func (c *CRC16) AddByte(b byte) {
	c.crc = crc16.Update(c.crc, []byte{b}, c.table)
}

// Calc returns the digest of the current span without changing state
func (c CRC16) Calc() uint16 {
	return crc16.Complete(c.crc, c.table)
}

// CRC32 is a restartable CRC-32 (IEEE) accumulator
type CRC32 struct {
	crc uint32
}

// Restart discards everything folded in so far
func (c *CRC32) Restart() {
	c.crc = 0
}

// Add folds data into the accumulator
func (c *CRC32) Add(data []byte) {
	c.crc = crc32.Update(c.crc, crc32.IEEETable, data)
}

// AddByte folds a single byte into the accumulator
func (c *CRC32) AddByte(b byte) {
	c.crc = crc32.Update(c.crc, crc32.IEEETable, []byte{b})
}

// Calc returns the digest of the current span without changing state
func (c CRC32) Calc() uint32 {
	return c.crc
}

// XMODEMChecksum computes CRC-16/XMODEM over data
func XMODEMChecksum(data []byte) uint16 {
	return crc16.Checksum(data, xmodemTable)
}

// CCITTChecksum computes CRC-16/CCITT-FALSE over data
func CCITTChecksum(data []byte) uint16 {
	return crc16.Checksum(data, ccittTable)
}

// Checksum32 computes the CRC-32 (IEEE) of data
func Checksum32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// Checksum16 computes a CRC16 with arbitrary parameters over data
func Checksum16(params crc16.Params, data []byte) uint16 {
	return crc16.Checksum(data, crc16.MakeTable(params))
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ymodem

import (
	"fmt"
	"time"
)

// Statistics tracks block counts and error rates of a transfer
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	Files          uint64
	HeaderBlocks   uint64
	Blocks128      uint64
	Blocks1K       uint64
	Bytes          uint64
	NAKs           uint64
	Timeouts       uint64
	CRCErrors      uint64
	SequenceErrors uint64
	Retries        uint64

	// Rates (calculated)
	ByteRate  float64 // bytes/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// DataBlocks returns the number of payload blocks
func (s *Statistics) DataBlocks() uint64 {
	return s.Blocks128 + s.Blocks1K
}

func (s *Statistics) errors() uint64 {
	return s.Timeouts + s.CRCErrors + s.SequenceErrors
}

// recordData counts a data block carrying n file bytes
func (s *Statistics) recordData(typ byte, n int) {
	switch typ {
	case SOH:
		s.Blocks128++
	case STX:
		s.Blocks1K++
	}
	s.Bytes += uint64(n)
	s.LastUpdateTime = time.Now()
}

// recordRejected counts a block the receiver refused
func (s *Statistics) recordRejected(blk *Block) {
	switch {
	case blk.TimedOut:
		s.Timeouts++
	case !blk.CRCOK:
		s.CRCErrors++
	case !blk.SeqOK:
		s.SequenceErrors++
	}
	s.LastUpdateTime = time.Now()
}

// CalculateRates calculates byte and error rates
func (s *Statistics) CalculateRates() {
	elapsed := s.LastUpdateTime.Sub(s.StartTime).Seconds()
	if elapsed > 0 {
		s.ByteRate = float64(s.Bytes) / elapsed
		s.ErrorRate = float64(s.errors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	elapsed := s.LastUpdateTime.Sub(s.StartTime)

	result := fmt.Sprintf("=== Transfer (%.1f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Files:           %8d\n", s.Files)
	result += fmt.Sprintf("Bytes:           %8d\n", s.Bytes)
	result += fmt.Sprintf("Blocks:          %8d (1K %d, 128 %d, header %d)\n",
		s.DataBlocks()+s.HeaderBlocks, s.Blocks1K, s.Blocks128, s.HeaderBlocks)

	if s.NAKs > 0 {
		result += fmt.Sprintf("NAKs:            %8d\n", s.NAKs)
	}
	if s.Retries > 0 {
		result += fmt.Sprintf("Retries:         %8d\n", s.Retries)
	}
	if s.Timeouts > 0 {
		result += fmt.Sprintf("Timeouts:        %8d\n", s.Timeouts)
	}
	if s.CRCErrors > 0 {
		result += fmt.Sprintf("CRC Errors:      %8d\n", s.CRCErrors)
	}
	if s.SequenceErrors > 0 {
		result += fmt.Sprintf("Sequence Errors: %8d\n", s.SequenceErrors)
	}

	result += fmt.Sprintf("Byte Rate:       %8.1f bytes/sec\n", s.ByteRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package hexload

import (
	"errors"
	"fmt"
)

var (
	// ErrChecksumMismatch reports record or whole-transfer checksum failures
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrROMArea reports data addressed below the minimum load address
	ErrROMArea = errors.New("hex data overlapping ROM area")
	// ErrLocalCancel is returned when the cancel signal fires between records
	ErrLocalCancel = errors.New("load cancelled")
)

// ChecksumError reports a whole-transfer CRC32 mismatch
type ChecksumError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("CRC32 mismatch: expected 0x%08X, got 0x%08X", e.Expected, e.Actual)
}

func (e *ChecksumError) Unwrap() error {
	return ErrChecksumMismatch
}

// RecordErrors reports per-record checksum failures in a plain load
type RecordErrors struct {
	Count int
}

func (e *RecordErrors) Error() string {
	return fmt.Sprintf("%d record error(s)", e.Count)
}

func (e *RecordErrors) Unwrap() error {
	return ErrChecksumMismatch
}

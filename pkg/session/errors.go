// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package session

import (
	"errors"
	"fmt"
)

var (
	ErrCapacity         = errors.New("file capacity exceeded")
	ErrAllocation       = errors.New("error allocating memory")
	ErrOverflow         = errors.New("data exceeds declared file size")
	ErrNoFile           = errors.New("no active file")
	ErrChecksumMismatch = errors.New("CRC32 error")
	ErrWrite            = errors.New("target refused write")
)

// ChecksumError reports a whole-file CRC32 mismatch
type ChecksumError struct {
	Name     string
	Expected uint32
	Actual   uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("CRC32 error - %s: expected 0x%08X, got 0x%08X", e.Name, e.Expected, e.Actual)
}

func (e *ChecksumError) Unwrap() error {
	return ErrChecksumMismatch
}

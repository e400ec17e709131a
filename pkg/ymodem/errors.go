// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ymodem

import (
	"errors"
	"fmt"
)

var (
	ErrChecksumMismatch = errors.New("block CRC mismatch")
	ErrSequenceMismatch = errors.New("block sequence mismatch")
	ErrMalformedHeader  = errors.New("malformed header block")
	ErrTimeout          = errors.New("timeout")
	ErrAllocation       = errors.New("error allocating memory")
	ErrRemoteCancel     = errors.New("remote abort")
	ErrLocalCancel      = errors.New("aborted")
	ErrMaxRetries       = errors.New("max retries")
	ErrMaxErrors        = errors.New("max errors")
)

// HeaderError describes why a header block was rejected
type HeaderError struct {
	Field  string
	Offset int
	Reason string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("header %s at offset %d: %s", e.Field, e.Offset, e.Reason)
}

func (e *HeaderError) Unwrap() error {
	return ErrMalformedHeader
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ymodem

import (
	"bytes"
	"strconv"
)

// Header is the decoded payload of block 0
type Header struct {
	Name string
	Size int
	Mode string
}

// EncodeHeader writes a header payload into dst, which must hold a 128-byte
// block. Names longer than MaxNameLength are truncated.
func EncodeHeader(dst []byte, name string, size int) {
	clear(dst)
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}
	pos := copy(dst, name)
	dst[pos] = 0
	pos++
	pos += copy(dst[pos:], strconv.Itoa(size))
	dst[pos] = ' '
	pos++
	pos += copy(dst[pos:], DefaultMode)
	dst[pos] = 0
}

// ParseHeader decodes a header payload with explicit field offsets
func ParseHeader(payload []byte) (Header, error) {
	var h Header

	limit := min(len(payload), MaxNameLength+1)
	end := bytes.IndexByte(payload[:limit], 0)
	switch {
	case end < 0:
		return h, &HeaderError{Field: "name", Offset: 0, Reason: "not terminated"}
	case end == 0:
		return h, &HeaderError{Field: "name", Offset: 0, Reason: "empty"}
	}
	h.Name = string(payload[:end])

	off := end + 1
	field := payload[off:min(len(payload), off+sizeFieldLength+1)]
	n := bytes.IndexAny(field, " \x00")
	if n < 0 {
		return h, &HeaderError{Field: "size", Offset: off, Reason: "not terminated"}
	}
	if n > 0 {
		size, err := strconv.ParseUint(string(field[:n]), 10, 31)
		if err != nil {
			return h, &HeaderError{Field: "size", Offset: off, Reason: err.Error()}
		}
		h.Size = int(size)
	}

	off += n
	if off < len(payload) && payload[off] == ' ' {
		off++
		rest := payload[off:]
		if m := bytes.IndexAny(rest, " \x00"); m >= 0 {
			rest = rest[:m]
		}
		h.Mode = string(rest)
	}
	return h, nil
}

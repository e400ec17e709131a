// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package relay

import (
	"fmt"

	"github.com/Thermoquad/parhelion/pkg/checksum"
)

// EncodeUnit creates a complete wire frame for one unit.
// The length byte, CBOR body and CRC are byte-stuffed between START and END.
func EncodeUnit(code byte, data []byte) ([]byte, error) {
	body, err := encodeUnitPayload(code, data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode unit: %w", err)
	}
	if len(body) > MaxPayloadSize {
		return nil, fmt.Errorf("unit payload too large: %d bytes (max %d)", len(body), MaxPayloadSize)
	}

	section := make([]byte, 0, len(body)+3)
	section = append(section, byte(len(body)))
	section = append(section, body...)
	crc := checksum.CCITTChecksum(section)
	section = append(section, byte(crc>>8), byte(crc))

	frame := make([]byte, 0, len(section)*2+2)
	frame = append(frame, StartByte)
	frame = append(frame, stuffBytes(section)...)
	frame = append(frame, EndByte)
	return frame, nil
}

// stuffBytes escapes framing bytes as ESC + (byte XOR EscXor)
func stuffBytes(data []byte) []byte {
	result := make([]byte, 0, len(data)*2)
	for _, b := range data {
		if b == StartByte || b == EndByte || b == EscByte {
			result = append(result, EscByte, b^EscXor)
		} else {
			result = append(result, b)
		}
	}
	return result
}

// UnstuffBytes removes byte stuffing; the inverse of the encoder's escaping
func UnstuffBytes(data []byte) ([]byte, error) {
	result := make([]byte, 0, len(data))
	escapeNext := false
	for _, b := range data {
		switch {
		case escapeNext:
			result = append(result, b^EscXor)
			escapeNext = false
		case b == EscByte:
			escapeNext = true
		default:
			result = append(result, b)
		}
	}
	if escapeNext {
		return nil, fmt.Errorf("incomplete escape sequence at end of data")
	}
	return result, nil
}

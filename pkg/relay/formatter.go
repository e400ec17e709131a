// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package relay

import (
	"fmt"
	"strings"
)

// FormatUnit formats a unit into a human-readable line
func FormatUnit(u *Unit) string {
	timestamp := u.timestamp.Format("15:04:05.000")
	result := fmt.Sprintf("[%s] %s (0x%02X) len=%d", timestamp, FormatCode(u.code), u.code, len(u.data))

	if v, ok := u.Value(); ok {
		return result + fmt.Sprintf(" value=0x%02X%s\n", v, printable(v))
	}
	return result + "\n" + formatHexDump(u.data)
}

// FormatCode returns the human-readable name of a unit code
func FormatCode(code byte) string {
	switch code {
	case PacketKeycode:
		return "KEYCODE"
	default:
		return "UNKNOWN"
	}
}

func printable(b byte) string {
	if b >= 0x20 && b < 0x7F {
		return fmt.Sprintf(" '%c'", b)
	}
	return ""
}

func formatHexDump(data []byte) string {
	if len(data) == 0 {
		return "  (no data)\n"
	}
	var sb strings.Builder
	sb.WriteString("  Data: ")
	for i, b := range data {
		if i > 0 && i%16 == 0 {
			sb.WriteString("\n        ")
		}
		fmt.Fprintf(&sb, "%02X ", b)
	}
	sb.WriteString("\n")
	return sb.String()
}

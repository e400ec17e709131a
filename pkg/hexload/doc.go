// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

// Package hexload receives Intel HEX records over the host link and loads
// the data into the secondary processor through the relay.
//
// Every data record is forwarded as a data package: a start marker, the
// 24-bit load address, the byte count and the payload. The target answers
// with a feedback byte that brings the package sum to zero.
//
// In extended mode each record is preceded by a frame id and followed by a
// CRC16 echoed back to the host. A repeated frame id marks a retransmission
// and rolls the whole-transfer CRC32 back to its last checkpoint.
//
// Basic usage:
//
//	l := hexload.New(ch, relay.New(link),
//	    hexload.WithDiagnostics(os.Stdout),
//	    hexload.WithMinLoadAddress(0x040000),
//	)
//	summary, err := l.Load(ctx)
//	if err != nil {
//	    return err
//	}
//	if !summary.OK() {
//	    return summary.Err()
//	}
package hexload

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package relay

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeAll(t *testing.T, d *Decoder, data []byte) []*Unit {
	t.Helper()
	var units []*Unit
	for _, b := range data {
		u, err := d.DecodeByte(b)
		require.NoError(t, err)
		if u != nil {
			units = append(units, u)
		}
	}
	return units
}

func TestEncodeUnit_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		code byte
		data []byte
	}{
		{"keycode", PacketKeycode, []byte{0x41, 0}},
		{"framing bytes escaped", PacketKeycode, []byte{StartByte, EndByte, EscByte}},
		{"empty data", 0x05, nil},
		{"larger body", 0x02, []byte(strings.Repeat("z", 40))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := EncodeUnit(tt.code, tt.data)
			require.NoError(t, err)
			require.Equal(t, byte(StartByte), frame[0])
			require.Equal(t, byte(EndByte), frame[len(frame)-1])

			units := decodeAll(t, NewDecoder(), frame)
			require.Len(t, units, 1)
			require.Equal(t, tt.code, units[0].Code())
			if len(tt.data) == 0 {
				require.Empty(t, units[0].Data())
			} else {
				require.Equal(t, tt.data, units[0].Data())
			}
		})
	}
}

func TestEncodeUnit_TooLarge(t *testing.T) {
	_, err := EncodeUnit(PacketKeycode, make([]byte, MaxPayloadSize))
	require.Error(t, err)
}

func TestDecoder_CRCMismatch(t *testing.T) {
	frame, err := EncodeUnit(PacketKeycode, []byte{0x10, 0})
	require.NoError(t, err)
	frame[3] ^= 0x01

	d := NewDecoder()
	var lastErr error
	for _, b := range frame {
		if _, err := d.DecodeByte(b); err != nil {
			lastErr = err
		}
	}
	require.Error(t, lastErr)
	require.Contains(t, lastErr.Error(), "CRC mismatch")
}

func TestDecoder_ResyncsOnStart(t *testing.T) {
	frame, err := EncodeUnit(PacketKeycode, []byte{0x33, 0})
	require.NoError(t, err)

	noisy := append([]byte{0x01, 0x02, StartByte, 0x05}, frame...)
	units := decodeAll(t, NewDecoder(), noisy)
	require.Len(t, units, 1)
	v, ok := units[0].Value()
	require.True(t, ok)
	require.Equal(t, byte(0x33), v)
}

func TestUnstuffBytes(t *testing.T) {
	raw := []byte{0x01, StartByte, EscByte, EndByte}
	back, err := UnstuffBytes(stuffBytes(raw))
	require.NoError(t, err)
	require.Equal(t, raw, back)

	_, err = UnstuffBytes([]byte{0x01, EscByte})
	require.Error(t, err)
}

func TestFormatUnit(t *testing.T) {
	out := FormatUnit(NewUnit(PacketKeycode, []byte{'C', 0}))
	require.Contains(t, out, "KEYCODE (0x01)")
	require.Contains(t, out, "value=0x43 'C'")

	out = FormatUnit(NewUnit(0x09, []byte{1, 2}))
	require.Contains(t, out, "UNKNOWN")
	require.Contains(t, out, "01 02")
}

func TestSerialLink_FramesOutRawIn(t *testing.T) {
	outR, outW := io.Pipe()
	inR, inW := io.Pipe()
	link := NewSerialLink(struct {
		io.Reader
		io.Writer
	}{inR, outW})
	defer link.Close()

	go func() {
		inW.Write([]byte{0x06})
	}()
	b, err := link.ReadByte(context.Background())
	require.NoError(t, err)
	require.Equal(t, byte(0x06), b)

	errCh := make(chan error, 1)
	go func() {
		errCh <- link.SendUnit(PacketKeycode, []byte{0x7E, 0})
		outW.Close()
	}()
	wire, err := io.ReadAll(outR)
	require.NoError(t, err)
	require.NoError(t, <-errCh)

	units := decodeAll(t, NewDecoder(), wire)
	require.Len(t, units, 1)
	require.Equal(t, []byte{0x7E, 0}, units[0].Data())
}

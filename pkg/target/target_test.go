// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package target

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/parhelion/pkg/checksum"
	"github.com/Thermoquad/parhelion/pkg/relay"
)

func TestMemory_DataPackage(t *testing.T) {
	m := NewMemory()
	r := relay.New(m)
	ctx := context.Background()

	for _, b := range []byte{PackageStart, 0x04, 0x10, 0x00, 3} {
		require.NoError(t, r.SendByte(ctx, b, true))
	}
	require.NoError(t, r.SendBytes([]byte{0xAA, 0xBB, 0xCC}))

	fb, err := r.ReadByte(ctx)
	require.NoError(t, err)

	var sum byte
	for _, b := range []byte{PackageStart, 0x04, 0x10, 0x00, 3, 0xAA, 0xBB, 0xCC} {
		sum += b
	}
	require.Equal(t, byte(0), sum+fb)
	require.Equal(t, []byte{0xAA, 0xBB, 0xCC}, m.Read(0x041000, 3))
	require.Equal(t, 1, m.Packages())
	require.Equal(t, 0, m.Pending())

	base, image := m.Image()
	require.Equal(t, uint32(0x041000), base)
	require.Equal(t, []byte{0xAA, 0xBB, 0xCC}, image)
}

func TestMemory_CorruptNext(t *testing.T) {
	m := NewMemory()
	r := relay.New(m)
	ctx := context.Background()
	m.CorruptNext()

	for _, b := range []byte{PackageStart, 0x05, 0x00, 0x00, 1} {
		require.NoError(t, r.SendByte(ctx, b, true))
	}
	require.NoError(t, r.SendBytes([]byte{0x10}))
	fb, err := r.ReadByte(ctx)
	require.NoError(t, err)
	require.NotEqual(t, byte(0), byte(1+0x05+1+0x10)+fb)
}

func TestMemory_Terminator(t *testing.T) {
	m := NewMemory()
	r := relay.New(m)
	require.NoError(t, r.SendByte(context.Background(), PackageEnd, true))
	require.True(t, m.Terminated())
	require.Equal(t, byte(0xFF), m.Read(0, 1)[0])
}

func TestMemory_NoResponse(t *testing.T) {
	m := NewMemory()
	_, err := m.ReadByte(context.Background())
	require.ErrorIs(t, err, ErrNoResponse)
	require.ErrorIs(t, m.SendUnit(0x02, []byte{1, 0}), ErrBadUnit)
}

func TestFileSource_StreamsOnOpen(t *testing.T) {
	s := NewFileSource(File{Name: "a.bin", Data: []byte("hello")})
	r := relay.New(s)
	ctx := context.Background()

	require.NoError(t, r.SendByte(ctx, CmdOpen, false))
	require.True(t, s.Opened())

	flag, err := r.ReceiveUint32(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(1), flag)

	n, err := r.ReceiveUint32(ctx)
	require.NoError(t, err)
	name := make([]byte, n)
	require.NoError(t, r.ReceiveBytes(ctx, name))
	require.Equal(t, "a.bin", string(name))

	size, err := r.ReceiveUint32(ctx)
	require.NoError(t, err)
	data := make([]byte, size)
	require.NoError(t, r.ReceiveBytes(ctx, data))
	require.Equal(t, "hello", string(data))

	crc, err := r.ReceiveUint32(ctx)
	require.NoError(t, err)
	require.Equal(t, checksum.Checksum32(data), crc)

	end, err := r.ReceiveUint32(ctx)
	require.NoError(t, err)
	require.Zero(t, end)
}

func TestFileStore_WriteProtocol(t *testing.T) {
	s := NewFileStore()
	r := relay.New(s)
	ctx := context.Background()
	data := []byte("0123456789")

	require.NoError(t, r.SendByte(ctx, CmdFile, false))
	require.NoError(t, r.SendUint32(uint32(len("f.txt"))))
	require.NoError(t, r.SendBytes([]byte("f.txt")))
	require.NoError(t, r.SendUint32(uint32(len(data))))
	require.NoError(t, r.ExpectStatus(ctx, '1'))

	require.NoError(t, r.SendByte(ctx, CmdData, false))
	require.NoError(t, r.SendUint32(4))
	require.NoError(t, r.SendBytes(data[:4]))
	require.NoError(t, r.ExpectStatus(ctx, '2'))

	require.NoError(t, r.SendByte(ctx, CmdData, false))
	require.NoError(t, r.SendUint32(6))
	require.NoError(t, r.SendBytes(data[4:]))
	require.NoError(t, r.ExpectStatus(ctx, '2'))

	require.NoError(t, r.SendByte(ctx, CmdVerify, false))
	require.NoError(t, r.SendUint32(checksum.Checksum32(data)))
	require.NoError(t, r.ExpectStatus(ctx, 'V'))

	require.NoError(t, r.SendByte(ctx, CmdCloseFile, false))
	require.NoError(t, r.ExpectStatus(ctx, '4'))

	require.NoError(t, r.SendByte(ctx, CmdDone, false))
	require.True(t, s.Closed())
	require.Equal(t, []File{{Name: "f.txt", Data: data}}, s.Files())
}

func TestFileStore_BadCRC(t *testing.T) {
	s := NewFileStore()
	r := relay.New(s)
	ctx := context.Background()

	require.NoError(t, r.SendByte(ctx, CmdFile, false))
	require.NoError(t, r.SendUint32(1))
	require.NoError(t, r.SendBytes([]byte("x")))
	require.NoError(t, r.SendUint32(0))
	require.NoError(t, r.ExpectStatus(ctx, '1'))

	require.NoError(t, r.SendByte(ctx, CmdVerify, false))
	require.NoError(t, r.SendUint32(0xDEADBEEF))
	require.ErrorIs(t, r.ExpectStatus(ctx, 'V'), relay.ErrUnexpectedReply)
}

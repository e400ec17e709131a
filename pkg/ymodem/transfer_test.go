// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ymodem

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/parhelion/pkg/channel"
	"github.com/Thermoquad/parhelion/pkg/checksum"
)

func TestTransfer_RoundTrip(t *testing.T) {
	files := []memFile{
		{name: "boot.bin", data: patterned(3000, 0x01)},
		{name: "empty.txt", data: nil},
		{name: "small.cfg", data: []byte("key=value\n")},
	}
	res := runTransfer(t, files)
	require.NoError(t, res.sendErr)
	require.NoError(t, res.recvErr)

	require.Len(t, res.sink.files, len(files))
	for i, f := range files {
		got := res.sink.files[i]
		require.Equal(t, f.name, got.name)
		require.Equal(t, len(f.data), got.size)
		require.Equal(t, checksum.Checksum32(f.data), checksum.Checksum32(got.data))
		require.Equal(t, len(f.data), len(got.data))
	}
	require.Equal(t, uint64(3), res.sender.Stats().Files)
}

func TestTransfer_ScenarioB(t *testing.T) {
	files := []memFile{
		{name: "a.bin", data: patterned(500, 0xA0)},
		{name: "b.bin", data: patterned(2000, 0xB0)},
	}
	res := runTransfer(t, files)
	require.NoError(t, res.sendErr)
	require.NoError(t, res.recvErr)

	require.Equal(t, []int{128, 128, 128, 128}, res.blocks[1])
	require.Equal(t, []int{1024, 128, 128, 128, 128, 128, 128, 128, 128}, res.blocks[2])

	stats := res.sender.Stats()
	require.Equal(t, uint64(1), stats.Blocks1K)
	require.Equal(t, uint64(12), stats.Blocks128)
	require.Equal(t, uint64(2), stats.HeaderBlocks)

	require.Equal(t, files[0].data, res.sink.files[0].data)
	require.Equal(t, files[1].data, res.sink.files[1].data)
}

func TestTransfer_ExactMultipleOf1K(t *testing.T) {
	res := runTransfer(t, []memFile{{name: "k.bin", data: patterned(2048, 0x42)}})
	require.NoError(t, res.sendErr)
	require.NoError(t, res.recvErr)

	require.Equal(t, []int{1024, 1024}, res.blocks[1])
	require.Zero(t, res.sender.Stats().Blocks128)
	require.Equal(t, patterned(2048, 0x42), res.sink.files[0].data)
}

func TestTransfer_RemainderClipped(t *testing.T) {
	data := patterned(130, 0x33)
	res := runTransfer(t, []memFile{{name: "c.bin", data: data}})
	require.NoError(t, res.recvErr)
	require.Equal(t, []int{128, 128}, res.blocks[1])
	require.Equal(t, data, res.sink.files[0].data, "padding must not reach the file")
}

func TestReceive_CorruptComplement(t *testing.T) {
	ctx := testContext(t)
	peer, port := linkPair(t)
	sink := &memSink{}
	rcv := NewReceiver(port)

	errCh := make(chan error, 1)
	go func() { errCh <- rcv.Receive(ctx, sink) }()

	expectByte(t, peer, CRCRequest)
	frame := headerBlock("x.bin", 10)
	frame[seqCompIndex] ^= 0x01
	write(t, peer, frame)
	expectByte(t, peer, NAK)
	require.Empty(t, sink.files)

	write(t, peer, []byte{CAN, CAN})
	require.ErrorIs(t, <-errCh, ErrRemoteCancel)
	expectByte(t, peer, CAN)
	expectByte(t, peer, CAN)
	require.Empty(t, sink.files)
	require.Equal(t, uint64(1), rcv.Stats().SequenceErrors)
}

func TestReceive_FlippedPayloadBit(t *testing.T) {
	ctx := testContext(t)
	peer, port := linkPair(t)
	sink := &memSink{}
	rcv := NewReceiver(port)
	data := patterned(100, 0x10)

	errCh := make(chan error, 1)
	go func() { errCh <- rcv.Receive(ctx, sink) }()

	expectByte(t, peer, CRCRequest)
	write(t, peer, headerBlock("d.bin", len(data)))
	expectByte(t, peer, ACK)
	expectByte(t, peer, CRCRequest)

	good := EncodeBlock(SOH, 1, data)
	bad := append([]byte(nil), good...)
	bad[blockHeader+7] ^= 0x04
	write(t, peer, bad)
	expectByte(t, peer, NAK)
	require.Empty(t, sink.files[0].data)

	write(t, peer, good)
	expectByte(t, peer, ACK)

	write(t, peer, []byte{EOT})
	expectByte(t, peer, ACK)
	expectByte(t, peer, CRCRequest)

	write(t, peer, EncodeBlock(SOH, 0, make([]byte, BlockSize128)))
	expectByte(t, peer, ACK)
	require.NoError(t, <-errCh)

	require.Len(t, sink.files, 1)
	require.Equal(t, data, sink.files[0].data)
	require.Equal(t, uint64(1), rcv.Stats().CRCErrors)
}

func TestReceive_DuplicateHeader(t *testing.T) {
	ctx := testContext(t)
	peer, port := linkPair(t)
	sink := &memSink{}
	rcv := NewReceiver(port)

	errCh := make(chan error, 1)
	go func() { errCh <- rcv.Receive(ctx, sink) }()

	expectByte(t, peer, CRCRequest)
	write(t, peer, headerBlock("dup.bin", 1))
	expectByte(t, peer, ACK)
	expectByte(t, peer, CRCRequest)

	write(t, peer, headerBlock("dup.bin", 1))
	expectByte(t, peer, ACK)
	expectByte(t, peer, CRCRequest)
	require.Len(t, sink.files, 1)

	write(t, peer, []byte{CAN, CAN})
	require.ErrorIs(t, <-errCh, ErrRemoteCancel)
}

func TestReceive_DuplicateAcrossSequenceWrap(t *testing.T) {
	ctx := testContext(t)
	peer, port := linkPair(t)
	sink := &memSink{}
	rcv := NewReceiver(port)
	data := patterned(256*BlockSize128, 0x5A)

	errCh := make(chan error, 1)
	go func() { errCh <- rcv.Receive(ctx, sink) }()

	expectByte(t, peer, CRCRequest)
	write(t, peer, headerBlock("wrap.bin", len(data)))
	expectByte(t, peer, ACK)
	expectByte(t, peer, CRCRequest)

	block := func(i int) []byte {
		return EncodeBlock(SOH, byte(i), data[(i-1)*BlockSize128:i*BlockSize128])
	}
	for i := 1; i <= 255; i++ {
		write(t, peer, block(i))
		expectByte(t, peer, ACK)
	}

	// the ACK of block 255 was lost; the repeat must not be rejected
	write(t, peer, block(255))
	expectByte(t, peer, ACK)

	write(t, peer, block(256))
	expectByte(t, peer, ACK)

	write(t, peer, []byte{EOT})
	expectByte(t, peer, ACK)
	expectByte(t, peer, CRCRequest)
	write(t, peer, EncodeBlock(SOH, 0, make([]byte, BlockSize128)))
	expectByte(t, peer, ACK)
	require.NoError(t, <-errCh)

	require.Len(t, sink.files, 1)
	require.Equal(t, data, sink.files[0].data)
	require.Equal(t, uint64(1), rcv.Stats().Retries)
	require.Zero(t, rcv.Stats().NAKs)
}

func TestReceive_RemoteCancelMidFile(t *testing.T) {
	ctx := testContext(t)
	peer, port := linkPair(t)
	sink := &memSink{}
	rcv := NewReceiver(port)

	errCh := make(chan error, 1)
	go func() { errCh <- rcv.Receive(ctx, sink) }()

	expectByte(t, peer, CRCRequest)
	write(t, peer, headerBlock("big.bin", 4096))
	expectByte(t, peer, ACK)
	expectByte(t, peer, CRCRequest)
	write(t, peer, EncodeBlock(STX, 1, patterned(1024, 0)))
	expectByte(t, peer, ACK)

	// a single CAN is line noise; two in a row abort
	write(t, peer, []byte{CAN})
	write(t, peer, []byte{CAN})
	err := <-errCh
	require.ErrorIs(t, err, ErrRemoteCancel)
	expectByte(t, peer, CAN)
	expectByte(t, peer, CAN)
}

func TestReceive_LocalCancel(t *testing.T) {
	peer, port := linkPair(t)
	var flag channel.CancelFlag
	flag.Cancel()

	err := NewReceiver(port, WithCancel(&flag)).Receive(testContext(t), &memSink{})
	require.ErrorIs(t, err, ErrLocalCancel)
	expectByte(t, peer, CRCRequest)
	expectByte(t, peer, CAN)
	expectByte(t, peer, CAN)
}

func TestReceive_AllocationFailure(t *testing.T) {
	ctx := testContext(t)
	peer, port := linkPair(t)
	sink := &memSink{failAdd: errors.New("no memory")}

	errCh := make(chan error, 1)
	go func() { errCh <- NewReceiver(port).Receive(ctx, sink) }()

	expectByte(t, peer, CRCRequest)
	write(t, peer, headerBlock("huge.bin", 1<<30))
	require.ErrorIs(t, <-errCh, ErrAllocation)
	expectByte(t, peer, CAN)
	expectByte(t, peer, CAN)
}

func TestReceive_MaxErrors(t *testing.T) {
	ctx := testContext(t)
	peer, port := linkPair(t)

	errCh := make(chan error, 1)
	go func() { errCh <- NewReceiver(port).Receive(ctx, &memSink{}) }()

	expectByte(t, peer, CRCRequest)
	noise := make([]byte, DefaultMaxErrors+1)
	for i := range noise {
		noise[i] = 0x55
	}
	write(t, peer, noise)
	require.ErrorIs(t, <-errCh, ErrMaxErrors)
}

func TestReceive_TimeoutMidFile(t *testing.T) {
	ctx := testContext(t)
	peer, port := linkPair(t)

	errCh := make(chan error, 1)
	go func() {
		errCh <- NewReceiver(port, WithTimeout(20*time.Millisecond)).Receive(ctx, &memSink{})
	}()

	expectByte(t, peer, CRCRequest)
	write(t, peer, headerBlock("slow.bin", 300))
	require.ErrorIs(t, <-errCh, ErrTimeout)
}

func TestReceive_HandshakeTimeout(t *testing.T) {
	_, port := linkPair(t)
	err := NewReceiver(port,
		WithTimeout(10*time.Millisecond),
		WithHandshakeTimeout(50*time.Millisecond),
	).Receive(testContext(t), &memSink{})
	require.ErrorIs(t, err, ErrTimeout)
}

func TestSend_ReceiverCancel(t *testing.T) {
	ctx := testContext(t)
	peer, port := linkPair(t)

	errCh := make(chan error, 1)
	go func() {
		errCh <- NewSender(port).Send(ctx, memSource{{name: "f", data: []byte{1}}})
	}()

	write(t, peer, []byte{CRCRequest})
	frame := make([]byte, BlockSize128+BlockOverhead)
	_, err := peer.ReadFull(ctx, frame, 2*time.Second)
	require.NoError(t, err)

	h, err := ParseHeader(frame[blockHeader : blockHeader+BlockSize128])
	require.NoError(t, err)
	require.Equal(t, "f", h.Name)
	require.Equal(t, 1, h.Size)

	write(t, peer, []byte{CAN})
	require.ErrorIs(t, <-errCh, ErrRemoteCancel)
}

func TestSend_MaxRetries(t *testing.T) {
	ctx := testContext(t)
	peer, port := linkPair(t)
	snd := NewSender(port, WithTimeout(50*time.Millisecond))

	errCh := make(chan error, 1)
	go func() { errCh <- snd.Send(ctx, memSource{{name: "f", data: []byte{1}}}) }()

	write(t, peer, []byte{CRCRequest})
	frame := make([]byte, BlockSize128+BlockOverhead)
	for i := 0; i < DefaultMaxRetries; i++ {
		_, err := peer.ReadFull(ctx, frame, 2*time.Second)
		require.NoError(t, err)
		write(t, peer, []byte{NAK})
	}
	require.ErrorIs(t, <-errCh, ErrMaxRetries)
	require.Equal(t, uint64(DefaultMaxRetries), snd.Stats().NAKs)
}

func TestSend_LocalCancelDuringHandshake(t *testing.T) {
	_, port := linkPair(t)
	var flag channel.CancelFlag
	flag.Cancel()
	err := NewSender(port, WithCancel(&flag)).Send(testContext(t), memSource{})
	require.ErrorIs(t, err, ErrLocalCancel)
}

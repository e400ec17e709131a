// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ymodem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/parhelion/pkg/channel"
)

type memFile struct {
	name string
	size int
	data []byte
}

// memSink collects received files
type memSink struct {
	files   []*memFile
	failAdd error
}

func (s *memSink) AddFile(name string, size int) error {
	if s.failAdd != nil {
		return s.failAdd
	}
	s.files = append(s.files, &memFile{name: name, size: size, data: make([]byte, 0, size)})
	return nil
}

func (s *memSink) AddData(p []byte) error {
	if len(s.files) == 0 {
		return errors.New("no open file")
	}
	f := s.files[len(s.files)-1]
	if len(f.data)+len(p) > f.size {
		return fmt.Errorf("overflow: %d+%d > %d", len(f.data), len(p), f.size)
	}
	f.data = append(f.data, p...)
	return nil
}

type memSource []memFile

func (s memSource) Count() int        { return len(s) }
func (s memSource) Name(i int) string { return s[i].name }
func (s memSource) Data(i int) []byte { return s[i].data }

// linkPair returns two channels joined back to back
func linkPair(t *testing.T) (*channel.Channel, *channel.Channel) {
	t.Helper()
	abR, abW := io.Pipe()
	baR, baW := io.Pipe()
	a := channel.NewSplit(baR, abW)
	b := channel.NewSplit(abR, baW)
	t.Cleanup(func() {
		abW.Close()
		baW.Close()
		a.Close()
		b.Close()
	})
	return a, b
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func expectByte(t *testing.T, ch *channel.Channel, want byte) {
	t.Helper()
	got, err := ch.ReadByteTimeout(context.Background(), 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, want, got, "expected %s, got 0x%02X", typeName(want), got)
}

func write(t *testing.T, ch *channel.Channel, p []byte) {
	t.Helper()
	_, err := ch.Write(p)
	require.NoError(t, err)
}

func headerBlock(name string, size int) []byte {
	payload := make([]byte, BlockSize128)
	EncodeHeader(payload, name, size)
	return EncodeBlock(SOH, 0, payload)
}

func patterned(n int, seed byte) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i) ^ seed
	}
	return p
}

type transferResult struct {
	sink    *memSink
	sendErr error
	recvErr error
	sender  *Sender
	blocks  map[int][]int
}

func runTransfer(t *testing.T, files []memFile, opts ...Option) transferResult {
	t.Helper()
	ctx := testContext(t)
	a, b := linkPair(t)

	res := transferResult{sink: &memSink{}, blocks: make(map[int][]int)}
	sendOpts := append([]Option{WithProgressCallback(func(p Progress) {
		res.blocks[p.File] = append(res.blocks[p.File], p.BlockSize)
	})}, opts...)
	res.sender = NewSender(a, sendOpts...)
	rcv := NewReceiver(b, opts...)

	errCh := make(chan error, 1)
	go func() { errCh <- res.sender.Send(ctx, memSource(files)) }()
	res.recvErr = rcv.Receive(ctx, res.sink)
	res.sendErr = <-errCh
	return res
}

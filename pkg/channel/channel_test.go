// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package channel

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newPipeChannel(t *testing.T) (*Channel, *io.PipeWriter) {
	t.Helper()
	r, w := io.Pipe()
	c := NewSplit(r, io.Discard)
	t.Cleanup(func() {
		w.Close()
		c.Close()
	})
	return c, w
}

func TestReadByte_InOrder(t *testing.T) {
	c, w := newPipeChannel(t)
	go w.Write([]byte{0x01, 0x02, 0x03})

	ctx := context.Background()
	for _, want := range []byte{0x01, 0x02, 0x03} {
		got, err := c.ReadByte(ctx)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestReadByteTimeout_Expires(t *testing.T) {
	c, _ := newPipeChannel(t)

	start := time.Now()
	_, err := c.ReadByteTimeout(context.Background(), 20*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestReadByte_ContextCancel(t *testing.T) {
	c, _ := newPipeChannel(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ReadByte(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestReadFull_ShortRead(t *testing.T) {
	c, w := newPipeChannel(t)
	go w.Write([]byte("abc"))

	buf := make([]byte, 5)
	n, err := c.ReadFull(context.Background(), buf, 30*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
	require.Equal(t, 3, n)
	require.Equal(t, []byte("abc"), buf[:n])
}

func TestReadByte_ClosedLink(t *testing.T) {
	c, w := newPipeChannel(t)
	w.Close()

	_, err := c.ReadByte(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestPurge_DropsPending(t *testing.T) {
	c, w := newPipeChannel(t)
	_, err := w.Write([]byte{0xAA, 0xBB})
	require.NoError(t, err)

	// consume one byte so the rest of the chunk is pending
	b, err := c.ReadByte(context.Background())
	require.NoError(t, err)
	require.Equal(t, byte(0xAA), b)

	c.Purge()
	_, err = c.ReadByteTimeout(context.Background(), 10*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestWrite(t *testing.T) {
	r, w := io.Pipe()
	c := NewSplit(eofReader{}, w)
	defer c.Close()

	errCh := make(chan error, 1)
	go func() {
		defer w.Close()
		if err := c.WriteByte('C'); err != nil {
			errCh <- err
			return
		}
		_, err := c.Write([]byte{0x06, 0x15})
		errCh <- err
	}()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	require.Equal(t, []byte{'C', 0x06, 0x15}, got)
}

type eofReader struct{}

func (eofReader) Read(p []byte) (int, error) { return 0, io.EOF }

func TestCancelFlag(t *testing.T) {
	var f CancelFlag
	require.False(t, f.Cancelled())
	f.Cancel()
	require.True(t, f.Cancelled())
	require.False(t, Never.Cancelled())
}

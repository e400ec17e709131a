// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package relay

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/parhelion/pkg/channel"
)

type recordingLink struct {
	sent    [][]byte
	replies []byte
}

func (l *recordingLink) SendUnit(code byte, data []byte) error {
	unit := append([]byte{code}, data...)
	l.sent = append(l.sent, unit)
	return nil
}

func (l *recordingLink) ReadByte(ctx context.Context) (byte, error) {
	if len(l.replies) == 0 {
		return 0, io.EOF
	}
	b := l.replies[0]
	l.replies = l.replies[1:]
	return b, nil
}

// silentLink accepts every unit and never answers
type silentLink struct{}

func (silentLink) SendUnit(code byte, data []byte) error { return nil }

func (silentLink) ReadByte(ctx context.Context) (byte, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func (l *recordingLink) values() []byte {
	out := make([]byte, 0, len(l.sent))
	for _, u := range l.sent {
		out = append(out, u[1])
	}
	return out
}

func TestSendByte_WithAndWithoutAck(t *testing.T) {
	link := &recordingLink{replies: []byte{0xAA}}
	r := New(link)
	ctx := context.Background()

	require.NoError(t, r.SendByte(ctx, 0x42, true))
	require.Empty(t, link.replies, "ack byte should be consumed")

	require.NoError(t, r.SendByte(ctx, 0x43, false))
	require.Equal(t, [][]byte{{PacketKeycode, 0x42, 0}, {PacketKeycode, 0x43, 0}}, link.sent)
}

func TestSendByte_AckFailure(t *testing.T) {
	r := New(&recordingLink{})
	err := r.SendByte(context.Background(), 0x01, true)
	require.ErrorIs(t, err, io.EOF)
}

func TestSendUint32_LeastSignificantFirst(t *testing.T) {
	link := &recordingLink{}
	require.NoError(t, New(link).SendUint32(0x11223344))
	require.Equal(t, []byte{0x44, 0x33, 0x22, 0x11}, link.values())
	require.Len(t, link.sent, 4)
}

func TestSendBytes_OneUnitPerByte(t *testing.T) {
	link := &recordingLink{}
	require.NoError(t, New(link).SendBytes([]byte("name.bin")))
	require.Equal(t, []byte("name.bin"), link.values())
}

func TestReceiveUint32_RoundTrip(t *testing.T) {
	send := &recordingLink{}
	require.NoError(t, New(send).SendUint32(0xCAFEBABE))

	recv := &recordingLink{replies: send.values()}
	v, err := New(recv).ReceiveUint32(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint32(0xCAFEBABE), v)
}

func TestReceiveBytes_Order(t *testing.T) {
	r := New(&recordingLink{replies: []byte{1, 2, 3, 4}})
	buf := make([]byte, 4)
	require.NoError(t, r.ReceiveBytes(context.Background(), buf))
	require.Equal(t, []byte{1, 2, 3, 4}, buf)

	err := r.ReceiveBytes(context.Background(), make([]byte, 1))
	require.ErrorIs(t, err, io.EOF)
}

func TestExpectStatus(t *testing.T) {
	tests := []struct {
		name    string
		replies []byte
		want    byte
		wantErr error
	}{
		{"match", []byte{'S', '1'}, '1', nil},
		{"skips noise", []byte{0x00, 'x', 'S', 'V'}, 'V', nil},
		{"mismatch", []byte{'S', 'X'}, 'V', ErrUnexpectedReply},
		{"link ends", []byte{'x'}, '1', io.EOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(&recordingLink{replies: tt.replies})
			err := r.ExpectStatus(context.Background(), tt.want)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestTimeout_BoundsEveryWait(t *testing.T) {
	r := New(silentLink{}, WithTimeout(20*time.Millisecond))
	ctx := context.Background()

	waits := map[string]func() error{
		"ack": func() error { return r.SendByte(ctx, 0x01, true) },
		"byte": func() error {
			_, err := r.ReadByte(ctx)
			return err
		},
		"uint32": func() error {
			_, err := r.ReceiveUint32(ctx)
			return err
		},
		"status": func() error { return r.ExpectStatus(ctx, '1') },
	}
	for name, wait := range waits {
		t.Run(name, func(t *testing.T) {
			start := time.Now()
			err := wait()
			require.ErrorIs(t, err, ErrTimeout)
			require.ErrorIs(t, err, channel.ErrTimeout)
			require.Less(t, time.Since(start), time.Second)
		})
	}
}

func TestTimeout_CallerCancelWins(t *testing.T) {
	r := New(silentLink{}, WithTimeout(time.Minute))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ReadByte(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, ErrTimeout)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package session

import (
	"context"

	"github.com/Thermoquad/parhelion/pkg/ymodem"
)

// Send reads the batch from the target and transmits it to the host.
// The session is torn down on return.
func (s *Session) Send(ctx context.Context, snd *ymodem.Sender) error {
	defer s.Teardown()

	if err := s.Open(ctx); err != nil {
		return err
	}
	if err := s.ReadFiles(ctx); err != nil {
		s.close(ctx, "\r\n")
		return err
	}
	if err := snd.Send(ctx, s); err != nil {
		s.close(ctx, "")
		return err
	}
	s.close(ctx, "\r\nDone\r\n")
	return nil
}

// Receive accepts a batch from the host and commits it to the target.
// An aborted batch commits nothing. The session is torn down on return.
func (s *Session) Receive(ctx context.Context, rcv *ymodem.Receiver) error {
	defer s.Teardown()

	if err := s.Open(ctx); err != nil {
		return err
	}
	if err := rcv.Receive(ctx, s); err != nil {
		s.close(ctx, "")
		return err
	}
	if err := s.WriteFiles(ctx); err != nil {
		s.close(ctx, "\r\n")
		return err
	}
	s.close(ctx, "\r\nDone\r\n")
	return nil
}

func (s *Session) close(ctx context.Context, message string) {
	if err := s.Close(ctx, message); err != nil {
		s.log.WithError(err).Warn("closing session")
	}
}

var (
	_ ymodem.Source = (*Session)(nil)
	_ ymodem.Sink   = (*Session)(nil)
)

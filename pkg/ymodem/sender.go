// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ymodem

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Sender transmits a YMODEM batch
type Sender struct {
	engine
	enc    encoder
	header [BlockSize128]byte
}

// NewSender creates a sender on port
func NewSender(port Port, opts ...Option) *Sender {
	return &Sender{engine: newEngine(port, opts)}
}

// Send transmits every file of src followed by an end-of-batch header
func (s *Sender) Send(ctx context.Context, src Source) error {
	s.stats.Reset()
	s.printf("Waiting for receiver - VDP:%d 8N1 (YMODEM-1K)", s.cfg.BaudRate)

	if err := s.handshake(ctx); err != nil {
		return err
	}
	s.printf("\r\nSending data\r\n\r\n")

	for i := 0; i < src.Count(); i++ {
		name := src.Name(i)
		s.wipeLine()
		s.printf("%d - %s\r\n", i+1, name)

		if i > 0 {
			if err := s.waitRequest(ctx); err != nil {
				return err
			}
		}
		if err := s.sendFile(ctx, i+1, name, src.Data(i)); err != nil {
			return err
		}
	}

	if err := s.waitRequest(ctx); err != nil {
		return err
	}
	clear(s.header[:])
	if err := s.sendBlock(ctx, SOH, 0, s.header[:]); err != nil {
		s.log.WithError(err).Warn("end-of-batch block not acknowledged")
	}
	s.wipeLine()
	s.log.WithField("files", src.Count()).Info("batch sent")
	return nil
}

// handshake waits for the first CRC request, polling the cancel signal
func (s *Sender) handshake(ctx context.Context) error {
	start := time.Now()
	for {
		if s.cfg.Cancel.Cancelled() {
			s.printf("\r\nAborted\r\n")
			return ErrLocalCancel
		}
		b, ok, err := s.readByte(ctx, handshakePoll)
		if err != nil {
			return fmt.Errorf("waiting for receiver: %w", err)
		}
		if ok && b == CRCRequest {
			return nil
		}
		if s.cfg.HandshakeTimeout > 0 && time.Since(start) > s.cfg.HandshakeTimeout {
			return s.abort(ErrTimeout, "Timeout")
		}
	}
}

// waitRequest waits up to MaxRetries timeouts for a CRC request
func (s *Sender) waitRequest(ctx context.Context) error {
	for retry := 0; retry < s.cfg.MaxRetries; retry++ {
		b, ok, err := s.readByte(ctx, s.cfg.Timeout)
		if err != nil {
			return s.abort(fmt.Errorf("waiting for request: %w", err), "")
		}
		if ok && b == CRCRequest {
			return nil
		}
		if ok && b == CAN {
			return s.abort(ErrRemoteCancel, "Receiver aborts")
		}
	}
	return s.abort(ErrMaxRetries, "Max retries")
}

func (s *Sender) sendFile(ctx context.Context, index int, name string, data []byte) error {
	EncodeHeader(s.header[:], name, len(data))
	if err := s.sendBlock(ctx, SOH, 0, s.header[:]); err != nil {
		return err
	}
	s.stats.HeaderBlocks++
	if err := s.waitRequest(ctx); err != nil {
		return err
	}

	offset := 0
	seq := byte(1)
	next := func(typ byte, n int) error {
		if err := s.sendBlock(ctx, typ, seq, data[offset:offset+n]); err != nil {
			return err
		}
		offset += n
		seq++
		s.stats.recordData(typ, n)
		s.printf("\r%d/%d", offset, len(data))
		s.progress(Progress{
			File:      index,
			Name:      name,
			Offset:    offset,
			Size:      len(data),
			BlockSize: blockSize(typ),
		})
		return nil
	}

	for len(data)-offset >= BlockSize1K {
		if err := next(STX, BlockSize1K); err != nil {
			return err
		}
	}
	// the remainder goes out only as 128-byte blocks
	for offset < len(data) {
		if err := next(SOH, min(BlockSize128, len(data)-offset)); err != nil {
			return err
		}
	}

	if err := s.sendEOT(ctx); err != nil {
		return err
	}
	s.stats.Files++
	s.log.WithFields(logrus.Fields{"name": name, "size": len(data)}).Debug("file sent")
	return nil
}

// sendBlock transmits one block until it is acknowledged
func (s *Sender) sendBlock(ctx context.Context, typ, seq byte, data []byte) error {
	for retry := 0; retry < s.cfg.MaxRetries; retry++ {
		if s.cfg.Cancel.Cancelled() {
			return s.abort(ErrLocalCancel, "Aborted")
		}
		if retry > 0 {
			s.stats.Retries++
		}

		// stale requests would be taken for a reply to this block
		s.port.Purge()
		frame := s.enc.encode(typ, seq, data, Padding)
		if _, err := s.port.Write(frame); err != nil {
			return fmt.Errorf("write block %d: %w", seq, err)
		}

		b, ok, err := s.readByte(ctx, s.cfg.Timeout)
		if err != nil {
			return s.abort(fmt.Errorf("waiting for ACK: %w", err), "")
		}
		switch {
		case !ok:
			s.stats.Timeouts++
		case b == ACK:
			return nil
		case b == CAN:
			return s.abort(ErrRemoteCancel, "Receiver aborts")
		case b == NAK:
			s.stats.NAKs++
		}
		s.log.WithFields(logrus.Fields{
			"type":  typeName(typ),
			"seq":   seq,
			"retry": retry + 1,
		}).Debug("block not acknowledged")
	}
	return s.abort(fmt.Errorf("%w: block %d", ErrMaxRetries, seq), "Max retries")
}

func (s *Sender) sendEOT(ctx context.Context) error {
	for retry := 0; retry < s.cfg.MaxRetries; retry++ {
		if err := s.send(EOT); err != nil {
			return err
		}
		b, ok, err := s.readByte(ctx, s.cfg.Timeout)
		if err != nil {
			return s.abort(fmt.Errorf("waiting for EOT ACK: %w", err), "")
		}
		if ok && b == ACK {
			return nil
		}
		if !ok {
			s.stats.Timeouts++
		}
	}
	return s.abort(ErrMaxRetries, "Max retries")
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ymodem

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/parhelion/pkg/channel"
)

// Receiver accepts a YMODEM batch
type Receiver struct {
	engine
	buf [maxFrameSize]byte
}

// NewReceiver creates a receiver on port
func NewReceiver(port Port, opts ...Option) *Receiver {
	return &Receiver{engine: newEngine(port, opts)}
}

// receiveState is the per-batch receive state
type receiveState struct {
	seq       byte
	receiving bool
	offset    int
	size      int
	name      string
	files     int

	errors    int
	timeouts  int
	cancels   int
	idleSince time.Time
}

// Receive runs the receive state machine until the batch ends or aborts.
// Files are delivered to sink as they arrive; on error the sink may hold
// a partial file that the caller must discard.
func (r *Receiver) Receive(ctx context.Context, sink Sink) error {
	r.stats.Reset()
	r.printf("Receiving data - VDP:%d 8N1 (YMODEM-1K)\r\n\r\n", r.cfg.BaudRate)

	st := &receiveState{idleSince: time.Now()}
	if err := r.send(CRCRequest); err != nil {
		return err
	}

	for {
		if r.cfg.Cancel.Cancelled() {
			return r.abort(ErrLocalCancel, "Aborted")
		}

		blk, err := r.readBlock(ctx, st)
		if err != nil {
			return r.abort(fmt.Errorf("receive: %w", err), "")
		}

		if blk.Length == 0 {
			if err := r.idle(st); err != nil {
				return err
			}
			continue
		}

		st.timeouts = 0
		if blk.Type != CAN {
			st.cancels = 0
		}

		done, err := r.handle(ctx, st, &blk, sink)
		if err != nil {
			return err
		}
		if done {
			r.log.WithField("files", st.files).Info("batch received")
			return nil
		}

		if st.errors > r.cfg.MaxErrors {
			return r.abort(ErrMaxErrors, "Max errors")
		}
	}
}

// idle handles a read that produced no byte at all
func (r *Receiver) idle(st *receiveState) error {
	if st.seq != 0 || st.receiving {
		st.timeouts++
		r.stats.Timeouts++
		if st.timeouts > r.cfg.MaxRetries {
			return r.abort(ErrTimeout, "Timeout")
		}
	} else if r.cfg.HandshakeTimeout > 0 && time.Since(st.idleSince) > r.cfg.HandshakeTimeout {
		return r.abort(ErrTimeout, "Timeout")
	}
	return r.send(CRCRequest)
}

func (r *Receiver) handle(ctx context.Context, st *receiveState, blk *Block, sink Sink) (bool, error) {
	switch blk.Type {
	case SOH, STX:
		if blk.EndOfBatch && !st.receiving {
			return true, r.send(ACK)
		}
		if blk.Duplicate {
			return false, r.duplicate(st, blk)
		}
		if err := blk.Err(); err != nil {
			st.errors++
			r.stats.NAKs++
			r.stats.recordRejected(blk)
			r.log.WithFields(logrus.Fields{
				"type": typeName(blk.Type),
				"seq":  blk.Seq,
			}).WithError(err).Debug("block rejected")
			return false, r.send(NAK)
		}
		if !st.receiving && blk.Seq == 0 {
			return false, r.header(st, blk, sink)
		}
		return false, r.data(st, blk, sink)

	case EOT:
		r.log.WithField("file", st.name).Debug("end of file")
		st.receiving = false
		st.seq = 0
		st.offset = 0
		st.idleSince = time.Now()
		if err := r.send(ACK); err != nil {
			return false, err
		}
		return false, r.send(CRCRequest)

	case CAN:
		st.cancels++
		if st.cancels > 1 {
			return false, r.abort(ErrRemoteCancel, "Remote abort")
		}

	default:
		st.errors++
		r.log.WithField("byte", fmt.Sprintf("0x%02X", blk.Type)).Debug("unexpected byte")
	}
	return false, nil
}

// duplicate re-acknowledges a block whose ACK the sender missed
func (r *Receiver) duplicate(st *receiveState, blk *Block) error {
	r.stats.Retries++
	r.log.WithField("seq", blk.Seq).Debug("duplicate block")
	if err := r.send(ACK); err != nil {
		return err
	}
	if blk.Seq == 0 && st.offset == 0 {
		return r.send(CRCRequest)
	}
	return nil
}

func (r *Receiver) header(st *receiveState, blk *Block, sink Sink) error {
	hdr, err := ParseHeader(blk.Payload)
	if err != nil {
		st.errors++
		r.stats.NAKs++
		r.log.WithError(err).Debug("header rejected")
		return r.send(NAK)
	}

	if err := sink.AddFile(hdr.Name, hdr.Size); err != nil {
		return r.abort(fmt.Errorf("%w: %s: %w", ErrAllocation, hdr.Name, err), "Error allocating memory")
	}
	if err := r.send(ACK); err != nil {
		return err
	}

	st.files++
	st.receiving = true
	st.offset = 0
	st.size = hdr.Size
	st.name = hdr.Name
	st.seq++
	r.stats.Files++
	r.stats.HeaderBlocks++

	r.wipeLine()
	r.printf("%d - %s\r\n", st.files, hdr.Name)
	r.log.WithFields(logrus.Fields{"name": hdr.Name, "size": hdr.Size}).Debug("file header")
	return r.send(CRCRequest)
}

func (r *Receiver) data(st *receiveState, blk *Block, sink Sink) error {
	n := min(len(blk.Payload), st.size-st.offset)
	if err := sink.AddData(blk.Payload[:n]); err != nil {
		return r.abort(fmt.Errorf("storing %s: %w", st.name, err), "")
	}
	if err := r.send(ACK); err != nil {
		return err
	}

	st.offset += n
	st.seq++
	r.stats.recordData(blk.Type, n)
	r.printf("\r%d/%d", st.offset, st.size)
	r.progress(Progress{
		File:      st.files,
		Name:      st.name,
		Offset:    st.offset,
		Size:      st.size,
		BlockSize: len(blk.Payload),
	})
	return nil
}

// readBlock reads one block. A read that yields no byte returns a Block
// with zero Length; a short read returns a timed-out Block.
func (r *Receiver) readBlock(ctx context.Context, st *receiveState) (Block, error) {
	var blk Block
	expected := st.seq

	typ, ok, err := r.readByte(ctx, r.cfg.Timeout)
	if err != nil || !ok {
		return blk, err
	}
	blk.Type = typ
	blk.Length = 1

	size := blockSize(typ)
	if size == 0 {
		return blk, nil
	}

	frame := r.buf[:size+BlockOverhead]
	frame[0] = typ
	n, err := r.port.ReadFull(ctx, frame[1:], r.cfg.Timeout)
	blk.Length += n
	blk.Payload = frame[blockHeader : blockHeader+size]

	if errors.Is(err, channel.ErrTimeout) {
		clear(frame[1+n:])
		blk.TimedOut = true
		// a lazy end-of-batch header may stop after its first payload byte
		blk.EndOfBatch = expected == 0 && blk.Length > blockHeader &&
			frame[seqIndex] == 0 && frame[seqCompIndex] == 0xFF && frame[blockHeader] == 0
		return blk, nil
	}
	if err != nil {
		return blk, err
	}

	blk.Seq = frame[seqIndex]
	blk.CRCOK, blk.SeqOK = verifyFrame(frame, expected)
	// once the sequence wraps, block 255 repeats while block 0 is expected
	blk.Duplicate = blk.CRCOK && !blk.SeqOK && (expected != 0 || st.receiving) &&
		blk.Seq == expected-1 && frame[seqCompIndex] == 255-blk.Seq
	blk.EndOfBatch = expected == 0 && blk.Seq == 0 && blk.CRCOK && blk.SeqOK && frame[blockHeader] == 0
	return blk, nil
}

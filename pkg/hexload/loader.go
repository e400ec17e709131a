// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package hexload

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/parhelion/pkg/channel"
	"github.com/Thermoquad/parhelion/pkg/checksum"
	"github.com/Thermoquad/parhelion/pkg/relay"
)

const (
	recordStart = ':'

	packageStart = 0x01
	packageEnd   = 0x00
)

// Host is the host side of the debug link
type Host interface {
	ReadByteTimeout(ctx context.Context, timeout time.Duration) (byte, error)
	Write(p []byte) (int, error)
}

// Loader receives Intel HEX records from the host and forwards the data
// to the secondary processor
type Loader struct {
	host  Host
	relay *relay.Relay
	cfg   Config
	log   logrus.FieldLogger
}

// New creates a loader
func New(host Host, r *relay.Relay, opts ...Option) *Loader {
	if host == nil {
		panic("hexload: host cannot be nil")
	}
	if r == nil {
		panic("hexload: relay cannot be nil")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Loader{host: host, relay: r, cfg: cfg, log: cfg.Logger}
}

// loadState is the per-load session state
type loadState struct {
	summary Summary

	upper        byte
	segment      uint32
	segmentMode  bool
	announceDef  bool
	defaultBased bool

	extended  bool
	prevFrame byte

	line      checksum.CRC16
	committed checksum.CRC32
	working   checksum.CRC32

	// inPackage is set while a data package is only partly relayed
	inPackage bool
	done      bool
}

func (l *Loader) newState() *loadState {
	return &loadState{
		upper:       byte(l.cfg.DefaultLoadAddress >> 16),
		announceDef: true,
		prevFrame:   0xFF,
		line:        checksum.NewHexLine(),
	}
}

// Load consumes records until an end-of-file record and prints the
// summary. The returned error is non-nil only when the load could not
// complete (timeout, cancel, link failure); the verdict of a completed
// load is Summary.Err.
func (l *Loader) Load(ctx context.Context) (*Summary, error) {
	st := l.newState()
	l.printf("Receiving Intel HEX records - VDP:%d 8N1\r\n\r\n", l.cfg.BaudRate)

	for !st.done {
		if err := l.step(ctx, st); err != nil {
			l.log.WithError(err).Warn("hex load aborted")
			l.terminate(ctx, st)
			l.printf("\r\n%v\r\nERROR\r\n", err)
			l.printf("VDP done\r\n")
			return &st.summary, err
		}
	}

	l.finish(st)
	return &st.summary, nil
}

// terminate sends the end-of-load marker after an abort between
// packages, so the target does not wait for more data
func (l *Loader) terminate(ctx context.Context, st *loadState) {
	if st.inPackage || st.done {
		return
	}
	if err := l.relay.SendByte(context.WithoutCancel(ctx), packageEnd, true); err != nil {
		l.log.WithError(err).Warn("target not terminated")
	}
}

func (l *Loader) printf(format string, args ...any) {
	fmt.Fprintf(l.cfg.Diagnostics, format, args...)
}

// waitStart hunts for the record start marker, polling the cancel signal
func (l *Loader) waitStart(ctx context.Context) error {
	for {
		if l.cfg.Cancel.Cancelled() {
			return ErrLocalCancel
		}
		b, err := l.host.ReadByteTimeout(ctx, idlePoll)
		if errors.Is(err, channel.ErrTimeout) {
			continue
		}
		if err != nil {
			return err
		}
		if b == recordStart {
			return nil
		}
	}
}

func (l *Loader) readRaw(ctx context.Context) (byte, error) {
	b, err := l.host.ReadByteTimeout(ctx, l.cfg.ByteTimeout)
	if err != nil {
		return 0, fmt.Errorf("reading record: %w", err)
	}
	return b, nil
}

// recordReader decodes hex digit pairs and tracks the record sum
type recordReader struct {
	l       *Loader
	ctx     context.Context
	line    *checksum.CRC16
	sum     byte
	invalid bool
}

func (r *recordReader) nibble() (byte, error) {
	c, err := r.l.readRaw(r.ctx)
	if err != nil {
		return 0, err
	}
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if r.line != nil {
		r.line.AddByte(c)
	}
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		r.invalid = true
		return 0, nil
	}
}

func (r *recordReader) byte() (byte, error) {
	hi, err := r.nibble()
	if err != nil {
		return 0, err
	}
	lo, err := r.nibble()
	if err != nil {
		return 0, err
	}
	v := hi<<4 | lo
	r.sum += v
	return v, nil
}

// readRecord parses the fields following the start marker
func (l *Loader) readRecord(ctx context.Context, st *loadState) (*Record, error) {
	rr := &recordReader{l: l, ctx: ctx, line: &st.line}
	var hdr [4]byte
	for i := range hdr {
		b, err := rr.byte()
		if err != nil {
			return nil, err
		}
		hdr[i] = b
	}

	rec := &Record{
		Count:   hdr[0],
		AddrHi:  hdr[1],
		AddrLo:  hdr[2],
		Type:    RecordType(hdr[3]),
		Payload: make([]byte, hdr[0]),
	}
	for i := range rec.Payload {
		b, err := rr.byte()
		if err != nil {
			return nil, err
		}
		rec.Payload[i] = b
	}

	cs, err := rr.byte()
	if err != nil {
		return nil, err
	}
	rec.Checksum = cs
	rec.Valid = rr.sum == 0 && !rr.invalid
	return rec, nil
}

// frame reads the extended-mode frame id and separator and moves the
// CRC32 checkpoint
func (l *Loader) frame(ctx context.Context, st *loadState, res *LineResult) error {
	rr := &recordReader{l: l, ctx: ctx}
	id, err := rr.byte()
	if err != nil {
		return err
	}
	if _, err := l.readRaw(ctx); err != nil {
		return err
	}

	res.FrameID = id
	if id != st.prevFrame {
		st.prevFrame = id
		st.committed = st.working
	} else {
		res.Retransmit = true
		st.working = st.committed
		st.summary.Retransmissions++
	}
	return nil
}

func (l *Loader) step(ctx context.Context, st *loadState) error {
	if err := l.waitStart(ctx); err != nil {
		return err
	}

	st.line.Restart()
	res := LineResult{ChecksumOK: true, FeedbackOK: true, Extended: st.extended}
	if st.extended {
		if err := l.frame(ctx, st, &res); err != nil {
			return err
		}
	}
	st.line.AddByte(recordStart)

	rec, err := l.readRecord(ctx, st)
	if err != nil {
		return err
	}
	res.Type = rec.Type
	res.Count = int(rec.Count)
	res.ChecksumOK = rec.Valid
	st.summary.Records++

	echo := st.extended
	switch rec.Type {
	case RecordData:
		err = l.data(ctx, st, rec, &res)
		if err == nil {
			l.printf("%s", res.Glyph())
		}
	case RecordEOF:
		st.done = true
		err = l.relay.SendByte(ctx, packageEnd, true)
	case RecordExtSegment:
		l.extSegment(st, rec, &res)
	case RecordExtLinear:
		l.extLinear(st, rec, &res)
	case RecordExtendedMode:
		if l.extendedMode(st, rec, &res) {
			echo = true
		}
	}
	if err != nil {
		return err
	}

	if res.Failed() && rec.Type != RecordEOF {
		st.summary.Errors++
	}

	if echo {
		res.LineCRC = st.line.Calc()
		var trailer [2]byte
		binary.LittleEndian.PutUint16(trailer[:], res.LineCRC)
		if _, err := l.host.Write(trailer[:]); err != nil {
			return fmt.Errorf("writing line CRC: %w", err)
		}
	}

	l.log.WithFields(logrus.Fields{
		"type":       rec.Type.String(),
		"count":      rec.Count,
		"address":    fmt.Sprintf("0x%06X", res.Address),
		"checksum":   res.ChecksumOK,
		"feedback":   res.FeedbackOK,
		"retransmit": res.Retransmit,
	}).Debug("hex record")

	if l.cfg.OnLine != nil {
		l.cfg.OnLine(res)
	}
	return nil
}

func (l *Loader) data(ctx context.Context, st *loadState, rec *Record, res *LineResult) error {
	var addr uint32
	if st.segmentMode {
		addr = (st.segment + uint32(rec.Address16())) & 0xFFFFFF
	} else {
		addr = uint32(st.upper)<<16 | uint32(rec.Address16())
	}
	u, h, lo := byte(addr>>16), byte(addr>>8), byte(addr)
	res.Address = addr

	if st.announceDef {
		l.printf("\r\nAddress 0x%02x0000 (default)\r\n", byte(l.cfg.DefaultLoadAddress>>16))
		st.announceDef = false
		st.defaultBased = true
	}

	st.inPackage = true
	for _, b := range []byte{packageStart, u, h, lo, rec.Count} {
		if err := l.relay.SendByte(ctx, b, true); err != nil {
			return err
		}
	}
	if err := l.relay.SendBytes(rec.Payload); err != nil {
		return err
	}
	feedback, err := l.relay.ReadByte(ctx)
	if err != nil {
		return fmt.Errorf("reading target feedback: %w", err)
	}
	st.inPackage = false

	sum := byte(1) + u + h + lo + rec.Count + feedback
	for _, b := range rec.Payload {
		sum += b
	}
	res.FeedbackOK = sum == 0

	st.working.Add(rec.Payload)
	st.summary.DataRecords++
	st.summary.DataBytes += len(rec.Payload)

	if addr < l.cfg.MinLoadAddress {
		res.ROMArea = true
		st.summary.ROMArea = true
	}
	return nil
}

func (l *Loader) extSegment(st *loadState, rec *Record, res *LineResult) {
	st.announceDef = false
	base, ok := rec.segmentBase()
	if !ok {
		res.ChecksumOK = false
		l.printf("%s", res.Glyph())
		return
	}
	st.segmentMode = true

	if st.defaultBased {
		l.printf("%s\r\nSegment address 0x%06X", res.Glyph(), base)
		base += l.cfg.DefaultLoadAddress
		l.printf(" - effective 0x%06X\r\n", base)
	} else {
		l.printf("%s\r\nAddress 0x%06X\r\n", res.Glyph(), base)
	}
	st.segment = base
	res.Address = base

	if base < l.cfg.MinLoadAddress {
		l.printf("ERROR: Address in ROM area\r\n")
		res.ROMArea = true
		st.summary.ROMArea = true
	}
}

func (l *Loader) extLinear(st *loadState, rec *Record, res *LineResult) {
	st.announceDef = false
	u, ok := rec.upperByte()
	if !ok {
		res.ChecksumOK = false
		l.printf("%s", res.Glyph())
		return
	}
	st.segmentMode = false
	st.upper = u
	res.Address = uint32(u) << 16

	if res.Address >= l.cfg.MinLoadAddress {
		l.printf("%s\r\nAddress 0x%02X0000\r\n", res.Glyph(), u)
	} else {
		l.printf("%s\r\nERROR: Address 0x%02X0000 in ROM area\r\n", res.Glyph(), u)
		res.ROMArea = true
		st.summary.ROMArea = true
	}
}

// extendedMode handles a control record and reports whether it switched
// the load into extended mode
func (l *Loader) extendedMode(st *loadState, rec *Record, res *LineResult) bool {
	subtype, target, ok := rec.extendedControl()
	if !ok || !rec.Valid {
		res.ChecksumOK = false
		return false
	}
	if subtype != subtypeEnableExtended {
		return false
	}
	st.extended = true
	st.summary.Extended = true
	st.summary.ExpectedCRC32 = target
	l.log.WithField("crc32", fmt.Sprintf("0x%08X", target)).Info("extended hex mode")
	return true
}

func (l *Loader) finish(st *loadState) {
	st.committed = st.working
	s := &st.summary
	s.CRC32 = st.committed.Calc()

	if s.Extended {
		var trailer [4]byte
		binary.LittleEndian.PutUint32(trailer[:], s.CRC32)
		if _, err := l.host.Write(trailer[:]); err != nil {
			l.log.WithError(err).Warn("writing final CRC32")
		}
		l.printf("\r\n\r\nCRC32 0x%08X\r\n", s.CRC32)
		if s.CRC32 == s.ExpectedCRC32 {
			l.printf("OK\r\n")
		} else {
			l.printf("ERROR 0x%08X expected\r\n", s.ExpectedCRC32)
		}
	} else {
		l.printf("\r\nOK\r\n")
		if s.Errors > 0 {
			l.printf("\r\n%d error(s)\r\n", s.Errors)
		}
	}
	if s.ROMArea {
		l.printf("\r\nHEX data overlapping ROM area, transfer unsuccessful\r\nERROR\r\n")
	}
	l.printf("VDP done\r\n")

	l.log.WithFields(logrus.Fields{
		"records": s.Records,
		"bytes":   s.DataBytes,
		"errors":  s.Errors,
		"ok":      s.OK(),
	}).Info("hex load finished")
}

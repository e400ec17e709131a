// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

// Package session holds a batch of in-memory files and stages them to and
// from the secondary processor through the relay.
//
// A Session is the Source of an outgoing YMODEM batch and the Sink of an
// incoming one. Every file owns its buffer, sized to the declared length,
// and never grows past it.
package session

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/parhelion/pkg/checksum"
	"github.com/Thermoquad/parhelion/pkg/relay"
)

// Target commands
const (
	cmdDone      = 0x00
	cmdFile      = 0x01
	cmdData      = 0x02
	cmdVerify    = 0x03
	cmdCloseFile = 0x04
	cmdOpen      = 'C'
)

// fileRecord is one file of the batch
type fileRecord struct {
	name string
	size int
	buf  []byte // len is the received count, cap the declared size
}

func (f *fileRecord) complete() bool {
	return len(f.buf) == f.size
}

// Session is a capacity-bounded file batch
type Session struct {
	relay *relay.Relay
	cfg   Config
	log   logrus.FieldLogger
	files []*fileRecord
}

// New creates an empty session
func New(r *relay.Relay, opts ...Option) *Session {
	if r == nil {
		panic("session: relay cannot be nil")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Session{relay: r, cfg: cfg, log: cfg.Logger}
}

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.cfg.Diagnostics, format, args...)
}

// AddFile allocates a new active file of the declared size
func (s *Session) AddFile(name string, size int) error {
	if len(s.files) >= s.cfg.Capacity {
		return fmt.Errorf("%w: %d files", ErrCapacity, s.cfg.Capacity)
	}
	if size < 0 || size > s.cfg.MaxFileSize {
		return fmt.Errorf("%w: %s needs %d bytes", ErrAllocation, name, size)
	}
	s.files = append(s.files, &fileRecord{name: name, size: size, buf: make([]byte, 0, size)})
	s.log.WithFields(logrus.Fields{"name": name, "size": size}).Debug("file added")
	return nil
}

func (s *Session) active() (*fileRecord, error) {
	if len(s.files) == 0 {
		return nil, ErrNoFile
	}
	return s.files[len(s.files)-1], nil
}

// AddData appends p to the active file
func (s *Session) AddData(p []byte) error {
	f, err := s.active()
	if err != nil {
		return err
	}
	if len(f.buf)+len(p) > f.size {
		return fmt.Errorf("%w: %s at %d+%d of %d", ErrOverflow, f.name, len(f.buf), len(p), f.size)
	}
	f.buf = append(f.buf, p...)
	return nil
}

// ReadData fills the next n bytes of the active file from the relay
func (s *Session) ReadData(ctx context.Context, n int) error {
	f, err := s.active()
	if err != nil {
		return err
	}
	used := len(f.buf)
	if n < 0 || used+n > f.size {
		return fmt.Errorf("%w: %s at %d+%d of %d", ErrOverflow, f.name, used, n, f.size)
	}
	f.buf = f.buf[:used+n]
	if err := s.relay.ReceiveBytes(ctx, f.buf[used:]); err != nil {
		f.buf = f.buf[:used]
		return err
	}
	return nil
}

// Count returns the number of files
func (s *Session) Count() int {
	return len(s.files)
}

// Name returns the name of file i, or "" when out of range
func (s *Session) Name(i int) string {
	if i < 0 || i >= len(s.files) {
		return ""
	}
	return s.files[i].name
}

// Size returns the declared size of file i, or 0 when out of range
func (s *Session) Size(i int) int {
	if i < 0 || i >= len(s.files) {
		return 0
	}
	return s.files[i].size
}

// Data returns the received bytes of file i, or nil when out of range
func (s *Session) Data(i int) []byte {
	if i < 0 || i >= len(s.files) {
		return nil
	}
	return s.files[i].buf
}

// ActiveSize returns the declared size of the active file
func (s *Session) ActiveSize() int {
	f, err := s.active()
	if err != nil {
		return 0
	}
	return f.size
}

// Open notifies the target that a session starts
func (s *Session) Open(ctx context.Context) error {
	return s.relay.SendByte(ctx, cmdOpen, false)
}

// Close prints message and notifies the target that the session ended
func (s *Session) Close(ctx context.Context, message string) error {
	s.printf("%s", message)
	return s.relay.SendByte(ctx, cmdDone, false)
}

// Teardown releases every file. It is safe to call more than once.
func (s *Session) Teardown() {
	for i := range s.files {
		s.files[i] = nil
	}
	s.files = s.files[:0]
}

// Debug lists every file with its CRC32 and size
func (s *Session) Debug() {
	s.printf("Current session data:\r\n")
	for _, f := range s.files {
		s.printf("%s (0x%08X) %d bytes\r\n", f.name, checksum.Checksum32(f.buf), f.size)
	}
}

// ReadFiles receives the batch the target streams after Open. Each file is
// announced by a non-zero flag and closed by its CRC32.
func (s *Session) ReadFiles(ctx context.Context) error {
	s.printf("Reading file(s)...")

	for {
		flag, err := s.relay.ReceiveUint32(ctx)
		if err != nil {
			return fmt.Errorf("reading file flag: %w", err)
		}
		if flag == 0 {
			break
		}

		nameLen, err := s.relay.ReceiveUint32(ctx)
		if err != nil {
			return fmt.Errorf("reading name length: %w", err)
		}
		if nameLen > maxNameLength {
			return fmt.Errorf("%w: name of %d bytes", ErrAllocation, nameLen)
		}
		name := make([]byte, nameLen)
		if err := s.relay.ReceiveBytes(ctx, name); err != nil {
			return fmt.Errorf("reading name: %w", err)
		}

		size, err := s.relay.ReceiveUint32(ctx)
		if err != nil {
			return fmt.Errorf("reading size of %s: %w", name, err)
		}
		if err := s.AddFile(string(name), int(size)); err != nil {
			s.printf("\r\nError allocating memory\r\n")
			return err
		}
		if err := s.ReadData(ctx, int(size)); err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}

		expected, err := s.relay.ReceiveUint32(ctx)
		if err != nil {
			return fmt.Errorf("reading CRC32 of %s: %w", name, err)
		}
		if actual := checksum.Checksum32(s.Data(s.Count() - 1)); actual != expected {
			s.printf("\r\nCRC32 error - %s\r\n", name)
			return &ChecksumError{Name: string(name), Expected: expected, Actual: actual}
		}
	}

	s.printf("\r\n")
	s.log.WithField("files", s.Count()).Info("files read from target")
	return nil
}

// WriteFiles commits every complete file to the target. An incomplete last
// file is dropped first.
func (s *Session) WriteFiles(ctx context.Context) error {
	if f, err := s.active(); err == nil && !f.complete() {
		s.log.WithField("name", f.name).Warn("dropping incomplete file")
		s.files[len(s.files)-1] = nil
		s.files = s.files[:len(s.files)-1]
	}

	count := len(s.files)
	if count == 0 {
		return nil
	}

	label := "Writing file"
	if count > 1 {
		label = fmt.Sprintf("Writing %d files", count)
	}
	s.printf("\r                                \r")
	s.printf("\n%s - ", label)

	total := 0
	for _, f := range s.files {
		total += f.size
	}
	progress := 0

	for _, f := range s.files {
		if err := s.writeHeader(ctx, f); err != nil {
			s.printf("\r\nError writing '%s'\r\n", f.name)
			return err
		}

		for off := 0; off < f.size; {
			n := min(writeChunk, f.size-off)
			if err := s.writeChunk(ctx, f.buf[off:off+n]); err != nil {
				s.printf("\r\nError writing data to '%s'\r\n", f.name)
				return err
			}
			off += n
			progress += n
			s.printf("\r%s - %3.0f%%", label, float64(progress)*100/float64(total))
		}

		crc := checksum.Checksum32(f.buf)
		if err := s.command(ctx, cmdVerify, 'V', func() error { return s.relay.SendUint32(crc) }); err != nil {
			s.printf("\r\nCRC32 error - %s\r\n", f.name)
			return err
		}
		if err := s.command(ctx, cmdCloseFile, '4', nil); err != nil {
			return err
		}
		s.log.WithFields(logrus.Fields{
			"name":  f.name,
			"size":  f.size,
			"crc32": fmt.Sprintf("0x%08X", crc),
		}).Debug("file written")
	}
	return nil
}

func (s *Session) writeHeader(ctx context.Context, f *fileRecord) error {
	return s.command(ctx, cmdFile, '1', func() error {
		if err := s.relay.SendUint32(uint32(len(f.name))); err != nil {
			return err
		}
		if err := s.relay.SendBytes([]byte(f.name)); err != nil {
			return err
		}
		return s.relay.SendUint32(uint32(f.size))
	})
}

func (s *Session) writeChunk(ctx context.Context, p []byte) error {
	return s.command(ctx, cmdData, '2', func() error {
		if err := s.relay.SendUint32(uint32(len(p))); err != nil {
			return err
		}
		return s.relay.SendBytes(p)
	})
}

// command sends a command byte and its arguments, then awaits the status
func (s *Session) command(ctx context.Context, cmd, status byte, args func() error) error {
	if err := s.relay.SendByte(ctx, cmd, false); err != nil {
		return err
	}
	if args != nil {
		if err := args(); err != nil {
			return err
		}
	}
	if err := s.relay.ExpectStatus(ctx, status); err != nil {
		return fmt.Errorf("%w: command %d: %w", ErrWrite, cmd, err)
	}
	return nil
}

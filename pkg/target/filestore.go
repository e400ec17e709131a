// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package target

import (
	"encoding/binary"

	"github.com/Thermoquad/parhelion/pkg/checksum"
)

// File-store commands
const (
	CmdDone      = 0x00
	CmdFile      = 0x01
	CmdData      = 0x02
	CmdVerify    = 0x03
	CmdCloseFile = 0x04
	CmdOpen      = 'C'
)

const (
	fsIdle = iota
	fsNameLen
	fsName
	fsSize
	fsDataLen
	fsData
	fsCRC
)

// File is a named blob held by the file store
type File struct {
	Name string
	Data []byte
}

// FileStore serves and stores file batches
type FileStore struct {
	replyQueue

	served     []File
	serving    bool
	corruptCRC bool

	files   []File
	current *File
	name    string

	state int
	need  int
	buf   []byte

	opened bool
	closed bool
}

// NewFileStore creates a store that only accepts files
func NewFileStore() *FileStore {
	return &FileStore{}
}

// NewFileSource creates a store that streams files when the session opens
func NewFileSource(files ...File) *FileStore {
	return &FileStore{served: files, serving: true}
}

// CorruptServedCRC makes the next served file announce a wrong CRC32
func (s *FileStore) CorruptServedCRC() {
	s.corruptCRC = true
}

// SendUnit handles one relayed unit
func (s *FileStore) SendUnit(code byte, data []byte) error {
	b, err := unitValue(code, data)
	if err != nil {
		return err
	}

	if s.state == fsIdle {
		s.command(b)
		return nil
	}

	s.buf = append(s.buf, b)
	if len(s.buf) < s.need {
		return nil
	}
	s.field()
	return nil
}

func (s *FileStore) expect(state, n int) {
	s.state = state
	s.need = n
	s.buf = s.buf[:0]
}

func (s *FileStore) command(b byte) {
	switch b {
	case CmdOpen:
		s.opened = true
		if s.serving {
			s.queueServed()
		}
	case CmdDone:
		s.closed = true
	case CmdFile:
		s.expect(fsNameLen, 4)
	case CmdData:
		s.expect(fsDataLen, 4)
	case CmdVerify:
		s.expect(fsCRC, 4)
	case CmdCloseFile:
		if s.current != nil {
			s.files = append(s.files, *s.current)
			s.current = nil
		}
		s.push('S', CmdCloseFile+'0')
	}
}

func (s *FileStore) field() {
	switch s.state {
	case fsNameLen:
		n := int(binary.LittleEndian.Uint32(s.buf))
		if n == 0 {
			s.name = ""
			s.expect(fsSize, 4)
			return
		}
		s.expect(fsName, n)

	case fsName:
		s.name = string(s.buf)
		s.expect(fsSize, 4)

	case fsSize:
		size := binary.LittleEndian.Uint32(s.buf)
		s.current = &File{Name: s.name, Data: make([]byte, 0, size)}
		s.expect(fsIdle, 0)
		s.push('S', CmdFile+'0')

	case fsDataLen:
		n := int(binary.LittleEndian.Uint32(s.buf))
		if n == 0 {
			s.expect(fsIdle, 0)
			s.push('S', CmdData+'0')
			return
		}
		s.expect(fsData, n)

	case fsData:
		if s.current != nil {
			s.current.Data = append(s.current.Data, s.buf...)
		}
		s.expect(fsIdle, 0)
		s.push('S', CmdData+'0')

	case fsCRC:
		want := binary.LittleEndian.Uint32(s.buf)
		s.expect(fsIdle, 0)
		if s.current != nil && checksum.Checksum32(s.current.Data) == want {
			s.push('S', 'V')
		} else {
			s.push('S', 'X')
		}
	}
}

func (s *FileStore) queueServed() {
	for _, f := range s.served {
		crc := checksum.Checksum32(f.Data)
		if s.corruptCRC {
			crc ^= 0xFFFFFFFF
			s.corruptCRC = false
		}
		s.pushUint32(1)
		s.pushUint32(uint32(len(f.Name)))
		s.push([]byte(f.Name)...)
		s.pushUint32(uint32(len(f.Data)))
		s.push(f.Data...)
		s.pushUint32(crc)
	}
	s.pushUint32(0)
}

// Files returns the files committed by the writer, in order
func (s *FileStore) Files() []File {
	return s.files
}

// Opened reports whether a session was opened
func (s *FileStore) Opened() bool {
	return s.opened
}

// Closed reports whether the session was closed
func (s *FileStore) Closed() bool {
	return s.closed
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package target

import "sort"

const (
	memIdle = iota
	memHeader
	memPayload
)

// Data-package markers
const (
	PackageEnd   = 0x00
	PackageStart = 0x01
)

// Memory receives hex-load data packages
type Memory struct {
	replyQueue

	mem       map[uint32]byte
	state     int
	header    []byte
	sum       byte
	addr      uint32
	remaining int
	corrupt   bool

	packages   int
	terminated bool
}

// NewMemory creates an empty memory target
func NewMemory() *Memory {
	return &Memory{
		mem:    make(map[uint32]byte),
		header: make([]byte, 0, 4),
	}
}

// SendUnit handles one relayed unit
func (m *Memory) SendUnit(code byte, data []byte) error {
	b, err := unitValue(code, data)
	if err != nil {
		return err
	}

	switch m.state {
	case memIdle:
		switch b {
		case PackageStart:
			m.state = memHeader
			m.header = m.header[:0]
			m.sum = PackageStart
			m.push(AckByte)
		case PackageEnd:
			m.terminated = true
			m.push(AckByte)
		}

	case memHeader:
		m.header = append(m.header, b)
		m.sum += b
		m.push(AckByte)
		if len(m.header) == 4 {
			m.addr = uint32(m.header[0])<<16 | uint32(m.header[1])<<8 | uint32(m.header[2])
			m.remaining = int(m.header[3])
			m.state = memPayload
			if m.remaining == 0 {
				m.feedback()
			}
		}

	case memPayload:
		m.mem[m.addr&0xFFFFFF] = b
		m.addr++
		m.sum += b
		m.remaining--
		if m.remaining == 0 {
			m.feedback()
		}
	}
	return nil
}

// feedback answers a package with the two's complement of its byte sum
func (m *Memory) feedback() {
	fb := -m.sum
	if m.corrupt {
		fb++
		m.corrupt = false
	}
	m.push(fb)
	m.packages++
	m.state = memIdle
}

// CorruptNext makes the next package answer with a wrong checksum
func (m *Memory) CorruptNext() {
	m.corrupt = true
}

// Packages returns the number of completed data packages
func (m *Memory) Packages() int {
	return m.packages
}

// Terminated reports whether the end-of-load marker arrived
func (m *Memory) Terminated() bool {
	return m.terminated
}

// Read returns n bytes starting at addr; unwritten bytes read as 0xFF
func (m *Memory) Read(addr uint32, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		v, ok := m.mem[(addr+uint32(i))&0xFFFFFF]
		if !ok {
			v = 0xFF
		}
		out[i] = v
	}
	return out
}

// Snapshot returns a copy of every written byte
func (m *Memory) Snapshot() map[uint32]byte {
	out := make(map[uint32]byte, len(m.mem))
	for k, v := range m.mem {
		out[k] = v
	}
	return out
}

// Image returns the written span as a contiguous image and its base address
func (m *Memory) Image() (uint32, []byte) {
	if len(m.mem) == 0 {
		return 0, nil
	}
	addrs := make([]uint32, 0, len(m.mem))
	for a := range m.mem {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	base := addrs[0]
	return base, m.Read(base, int(addrs[len(addrs)-1]-base)+1)
}

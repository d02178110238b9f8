package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned for accesses outside the modelled memory.
	ErrOutOfRange = errors.New("address out of range")

	// ErrGeometry is returned for cache geometries that can't be modelled.
	ErrGeometry = errors.New("invalid cache geometry")
)

// Memory is the backing store shared by every agent. Reads and writes made
// directly on it are what a non-coherent agent, such as a GPU doing DMA,
// sees and does.
type Memory struct {
	base uint64
	data []byte
}

// NewMemory returns size zeroed bytes starting at base.
func NewMemory(base uint64, size int) *Memory {
	return &Memory{
		base: base,
		data: make([]byte, size),
	}
}

// Base returns the first address.
func (m *Memory) Base() uint64 {
	return m.base
}

// Size returns the number of bytes.
func (m *Memory) Size() int {
	return len(m.data)
}

// Contains reports whether [addr, addr+n) is inside m.
func (m *Memory) Contains(addr uint64, n int) bool {
	if addr < m.base || n < 0 {
		return false
	}
	off := addr - m.base
	return off <= uint64(len(m.data)) && uint64(n) <= uint64(len(m.data))-off
}

// Read copies len(buf) bytes at addr into buf.
func (m *Memory) Read(addr uint64, buf []byte) error {
	if !m.Contains(addr, len(buf)) {
		return fmt.Errorf("%w: read 0x%x+%d", ErrOutOfRange, addr, len(buf))
	}
	copy(buf, m.data[addr-m.base:])
	return nil
}

// Write copies data to addr.
func (m *Memory) Write(addr uint64, data []byte) error {
	if !m.Contains(addr, len(data)) {
		return fmt.Errorf("%w: write 0x%x+%d", ErrOutOfRange, addr, len(data))
	}
	copy(m.data[addr-m.base:], data)
	return nil
}

package sim

import (
	"fmt"
	"math/bits"
)

// Geometry describes one cache level the way CCSIDR does.
type Geometry struct {
	LineSize int // bytes per line
	Ways     int
	Sets     int
}

// Validate reports whether g fits in CCSIDR and can be modelled: line size a
// power of two from 16 to 2048 bytes, 1 to 1024 ways, and a power-of-two set
// count up to 32768.
func (g Geometry) Validate() error {
	if g.LineSize < 16 || g.LineSize > 2048 || !isPow2(g.LineSize) {
		return fmt.Errorf("%w: line size %d", ErrGeometry, g.LineSize)
	}
	if g.Ways < 1 || g.Ways > 1024 {
		return fmt.Errorf("%w: %d ways", ErrGeometry, g.Ways)
	}
	if g.Sets < 1 || g.Sets > 32768 || !isPow2(g.Sets) {
		return fmt.Errorf("%w: %d sets", ErrGeometry, g.Sets)
	}
	return nil
}

// Size returns the capacity in bytes.
func (g Geometry) Size() int {
	return g.LineSize * g.Ways * g.Sets
}

// CCSIDR encodes g as the Cache Size ID Register reports it.
func (g Geometry) CCSIDR() uint32 {
	return uint32(g.Sets-1)<<13 | uint32(g.Ways-1)<<3 | uint32(g.lineShift()-4)
}

// ParseCCSIDR decodes a Cache Size ID Register value.
func ParseCCSIDR(v uint32) Geometry {
	return Geometry{
		LineSize: 16 << (v & 7),
		Ways:     int((v>>3)&0x3ff) + 1,
		Sets:     int((v>>13)&0x7fff) + 1,
	}
}

// SetWay builds the operand of a set/way maintenance instruction for the
// given zero-based cache level:
//
//	level<<1 | way<<(32-A) | set<<L
//
// where A is log2(ways) rounded up and L is log2(line size).
func (g Geometry) SetWay(level, set, way int) uint32 {
	op := uint32(level) << 1
	op |= uint32(way) << g.wayShift()
	op |= uint32(set) << g.lineShift()
	return op
}

// ParseSetWay splits a set/way operand back into its fields.
func (g Geometry) ParseSetWay(op uint32) (level, set, way int) {
	level = int(op>>1) & 7
	way = int(op >> g.wayShift())
	set = int(op>>g.lineShift()) & (g.Sets - 1)
	return level, set, way
}

func (g Geometry) lineShift() uint {
	return uint(bits.TrailingZeros(uint(g.LineSize)))
}

// wayShift matches CLZ(ways-1); it is 32 for a direct-mapped cache, which
// shifts the way out entirely.
func (g Geometry) wayShift() uint {
	return uint(bits.LeadingZeros32(uint32(g.Ways - 1)))
}

func isPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

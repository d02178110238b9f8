// Package sim models one core's caches in front of memory shared with a
// non-coherent agent. It applies the same maintenance operations as package
// armcache, with the same range conventions, so code relying on them can be
// exercised on any host.
package sim

import "github.com/pboyd/armcache"

// System is a core with split L1 data and instruction caches. The data
// cache is not coherent with the instruction cache or with other agents
// reading Memory directly.
type System struct {
	Memory *Memory
	Data   *Cache
	Inst   *Cache
}

// NewSystem builds a system over mem.
func NewSystem(mem *Memory, data, inst Geometry) (*System, error) {
	d, err := NewCache(0, data, mem)
	if err != nil {
		return nil, err
	}
	i, err := NewCache(0, inst, mem)
	if err != nil {
		return nil, err
	}
	return &System{Memory: mem, Data: d, Inst: i}, nil
}

// Load is a data read by the core.
func (s *System) Load(addr uint64, buf []byte) error {
	return s.Data.Load(addr, buf)
}

// Store is a data write by the core.
func (s *System) Store(addr uint64, data []byte) error {
	return s.Data.Store(addr, data)
}

// Fetch is an instruction fetch by the core.
func (s *System) Fetch(addr uint64, buf []byte) error {
	return s.Inst.Load(addr, buf)
}

// Observe is a read by the other agent.
func (s *System) Observe(addr uint64, buf []byte) error {
	return s.Memory.Read(addr, buf)
}

// Publish is a write by the other agent.
func (s *System) Publish(addr uint64, data []byte) error {
	return s.Memory.Write(addr, data)
}

// Clean writes every dirty data line back to memory.
func (s *System) Clean() {
	s.Data.Walk(armcache.OpClean)
}

// Invalidate discards every data line. Dirty data is lost.
func (s *System) Invalidate() {
	s.Data.Walk(armcache.OpInvalidate)
}

// CleanInvalidate writes back, then discards, every data line.
func (s *System) CleanInvalidate() {
	s.Data.Walk(armcache.OpCleanInvalidate)
}

// Maintain runs the whole data cache operation named by op.
func (s *System) Maintain(op armcache.Op) {
	s.Data.Walk(op)
}

// FlushDataCacheRange cleans and invalidates the data lines covering
// [from, to). An empty or inverted range does nothing.
func (s *System) FlushDataCacheRange(from, to uint64) {
	s.eachLine(s.Data, from, to, func(addr uint64) {
		s.Data.Line(armcache.OpCleanInvalidate, addr)
	})
}

// FlushInstructionCacheRange cleans the data lines covering [from, to), then
// invalidates the instruction lines covering it. An empty or inverted range
// does nothing.
func (s *System) FlushInstructionCacheRange(from, to uint64) {
	s.eachLine(s.Data, from, to, func(addr uint64) {
		s.Data.Line(armcache.OpClean, addr)
	})
	s.eachLine(s.Inst, from, to, func(addr uint64) {
		s.Inst.Line(armcache.OpInvalidate, addr)
	})
}

func (s *System) eachLine(c *Cache, from, to uint64, fn func(addr uint64)) {
	if from >= to {
		return
	}
	lineSize := uint64(c.Geometry().LineSize)
	for addr := from &^ (lineSize - 1); addr < to; addr += lineSize {
		fn(addr)
		if addr+lineSize < addr {
			break
		}
	}
}

package sim

import (
	"fmt"

	"github.com/pboyd/armcache"
)

type line struct {
	valid bool
	dirty bool
	tag   uint64
	used  uint64
	data  []byte
}

// LineState is a snapshot of one cache line.
type LineState struct {
	Set, Way int
	Addr     uint64 // first byte the line holds, when Valid
	Valid    bool
	Dirty    bool
}

// Cache models one level of a set-associative, write-back, write-allocate
// cache with LRU replacement in front of a Memory.
type Cache struct {
	level int
	geom  Geometry
	mem   *Memory
	sets  [][]line
	tick  uint64
}

// NewCache returns an empty cache for the zero-based level. The memory must
// start and end on a line boundary.
func NewCache(level int, g Geometry, mem *Memory) (*Cache, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if level < 0 || level > 6 {
		return nil, fmt.Errorf("%w: level %d", ErrGeometry, level)
	}
	if mem.Base()%uint64(g.LineSize) != 0 || mem.Size()%g.LineSize != 0 {
		return nil, fmt.Errorf("%w: memory 0x%x+%d is not line aligned", ErrGeometry, mem.Base(), mem.Size())
	}

	c := &Cache{
		level: level,
		geom:  g,
		mem:   mem,
		sets:  make([][]line, g.Sets),
	}
	for i := range c.sets {
		c.sets[i] = make([]line, g.Ways)
		for j := range c.sets[i] {
			c.sets[i][j].data = make([]byte, g.LineSize)
		}
	}
	return c, nil
}

// Geometry returns the cache's geometry.
func (c *Cache) Geometry() Geometry {
	return c.geom
}

// Level returns the zero-based cache level.
func (c *Cache) Level() int {
	return c.level
}

// Load reads through the cache, allocating lines on a miss.
func (c *Cache) Load(addr uint64, buf []byte) error {
	if !c.mem.Contains(addr, len(buf)) {
		return fmt.Errorf("%w: load 0x%x+%d", ErrOutOfRange, addr, len(buf))
	}
	return c.each(addr, len(buf), func(l *line, off, n, pos int) error {
		copy(buf[pos:pos+n], l.data[off:off+n])
		return nil
	})
}

// Store writes through the cache. The written lines are dirty until cleaned.
func (c *Cache) Store(addr uint64, data []byte) error {
	if !c.mem.Contains(addr, len(data)) {
		return fmt.Errorf("%w: store 0x%x+%d", ErrOutOfRange, addr, len(data))
	}
	return c.each(addr, len(data), func(l *line, off, n, pos int) error {
		copy(l.data[off:off+n], data[pos:pos+n])
		l.dirty = true
		return nil
	})
}

// each calls fn for every line covering [addr, addr+size), filling lines
// as needed. off is the offset inside the line, n the bytes covered and pos
// the offset from addr.
func (c *Cache) each(addr uint64, size int, fn func(l *line, off, n, pos int) error) error {
	lineSize := uint64(c.geom.LineSize)
	for pos := 0; pos < size; {
		cur := addr + uint64(pos)
		off := int(cur % lineSize)
		n := min(c.geom.LineSize-off, size-pos)

		l, err := c.fill(cur)
		if err != nil {
			return err
		}
		if err := fn(l, off, n, pos); err != nil {
			return err
		}
		pos += n
	}
	return nil
}

func (c *Cache) index(addr uint64) (set int, tag uint64) {
	lineNo := addr / uint64(c.geom.LineSize)
	return int(lineNo % uint64(c.geom.Sets)), lineNo / uint64(c.geom.Sets)
}

func (c *Cache) lineAddr(set int, tag uint64) uint64 {
	return (tag*uint64(c.geom.Sets) + uint64(set)) * uint64(c.geom.LineSize)
}

func (c *Cache) lookup(addr uint64) (*line, int) {
	set, tag := c.index(addr)
	for i := range c.sets[set] {
		l := &c.sets[set][i]
		if l.valid && l.tag == tag {
			return l, set
		}
	}
	return nil, set
}

func (c *Cache) fill(addr uint64) (*line, error) {
	c.tick++

	l, set := c.lookup(addr)
	if l != nil {
		l.used = c.tick
		return l, nil
	}

	// Pick an invalid way, or evict the least recently used.
	victim := &c.sets[set][0]
	for i := range c.sets[set] {
		cand := &c.sets[set][i]
		if !cand.valid {
			victim = cand
			break
		}
		if cand.used < victim.used {
			victim = cand
		}
	}
	if err := c.writeBack(victim, set); err != nil {
		return nil, err
	}

	_, tag := c.index(addr)
	if err := c.mem.Read(c.lineAddr(set, tag), victim.data); err != nil {
		return nil, err
	}
	victim.valid = true
	victim.dirty = false
	victim.tag = tag
	victim.used = c.tick
	return victim, nil
}

func (c *Cache) writeBack(l *line, set int) error {
	if !l.valid || !l.dirty {
		return nil
	}
	if err := c.mem.Write(c.lineAddr(set, l.tag), l.data); err != nil {
		return err
	}
	l.dirty = false
	return nil
}

func (c *Cache) apply(op armcache.Op, l *line, set int) {
	if op.Cleans() {
		// Lines only ever come from c.mem, so the write can't fail.
		_ = c.writeBack(l, set)
	}
	if op.Invalidates() {
		l.valid = false
		l.dirty = false
	}
}

// SetWay performs op on the line named by a set/way operand, like DC
// CSW/ISW/CISW. Operands for another level are ignored.
func (c *Cache) SetWay(op armcache.Op, operand uint32) {
	level, set, way := c.geom.ParseSetWay(operand)
	if level != c.level || way >= c.geom.Ways {
		return
	}
	c.apply(op, &c.sets[set][way], set)
}

// Walk performs op on every line by set and way, in the order the
// maintenance routines use: sets from the highest down, and within each set
// ways from the highest down.
func (c *Cache) Walk(op armcache.Op) {
	for set := c.geom.Sets - 1; set >= 0; set-- {
		for way := c.geom.Ways - 1; way >= 0; way-- {
			c.SetWay(op, c.geom.SetWay(c.level, set, way))
		}
	}
}

// Line performs op on the line holding addr, if it is cached, like DC
// CVAC/IVAC/CIVAC.
func (c *Cache) Line(op armcache.Op, addr uint64) {
	if l, set := c.lookup(addr); l != nil {
		c.apply(op, l, set)
	}
}

// Present reports whether addr is cached.
func (c *Cache) Present(addr uint64) bool {
	l, _ := c.lookup(addr)
	return l != nil
}

// Dirty reports whether addr is cached and not yet written back.
func (c *Cache) Dirty(addr uint64) bool {
	l, _ := c.lookup(addr)
	return l != nil && l.dirty
}

// Lines returns the state of every line, set by set.
func (c *Cache) Lines() []LineState {
	states := make([]LineState, 0, c.geom.Sets*c.geom.Ways)
	for set := range c.sets {
		for way := range c.sets[set] {
			l := &c.sets[set][way]
			st := LineState{Set: set, Way: way, Valid: l.valid, Dirty: l.dirty}
			if l.valid {
				st.Addr = c.lineAddr(set, l.tag)
			}
			states = append(states, st)
		}
	}
	return states
}

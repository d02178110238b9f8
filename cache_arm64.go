package armcache

// The arm64 routines finish with DSB/ISB themselves, so nothing is added
// after them.

// Clean writes every dirty line of the data cache back to memory.
func Clean() {
	cleanDataCache()
}

// Invalidate discards every line of the data cache. Dirty data is lost.
func Invalidate() {
	invalidateDataCache()
}

// CleanInvalidate writes back, then discards, every line of the data cache.
func CleanInvalidate() {
	cleanInvalidateDataCache()
}

// FlushDataCacheRange cleans and invalidates the data cache lines covering
// [from, to). Lines are whole, so bytes sharing a line with the range are
// flushed too. The range must be mapped. An empty or inverted range does
// nothing.
func FlushDataCacheRange(from, to uintptr) {
	if debug {
		checkRange(from, to)
	}
	flushDataCacheRange(from, to)
}

// FlushInstructionCacheRange makes code written to [from, to) through the
// data side visible to instruction fetch on every core. The range must be
// mapped. An empty or inverted range does nothing.
func FlushInstructionCacheRange(from, to uintptr) {
	if debug {
		checkRange(from, to)
	}
	flushInstructionCacheRange(from, to)
}

// CacheLineSizes returns the smallest instruction and data cache line sizes
// in bytes, as reported by CTR_EL0.
func CacheLineSizes() (icache, dcache int) {
	ctr := readCacheType()
	icache = 4 << (ctr & 0xf)
	dcache = 4 << ((ctr >> 16) & 0xf)
	return icache, dcache
}

// Implemented in cache_arm64.s.
func cleanDataCache()
func invalidateDataCache()
func cleanInvalidateDataCache()
func flushDataCacheRange(from, to uintptr)
func flushInstructionCacheRange(from, to uintptr)
func readCacheType() uint64

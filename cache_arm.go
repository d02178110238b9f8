package armcache

// On 32-bit ARM the set/way operations are not ordered against later memory
// accesses, so every whole-cache operation is followed by a DMB here rather
// than in each caller.

// Clean writes every dirty line of the data cache back to memory.
func Clean() {
	cleanDataCache()
	dmb()
}

// Invalidate discards every line of the data cache. Dirty data is lost.
func Invalidate() {
	invalidateDataCache()
	dmb()
}

// CleanInvalidate writes back, then discards, every line of the data cache.
func CleanInvalidate() {
	cleanInvalidateDataCache()
	dmb()
}

// Implemented in cache_arm.s.
func cleanDataCache()
func invalidateDataCache()
func cleanInvalidateDataCache()
func dmb()

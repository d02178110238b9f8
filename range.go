//go:build arm64

package armcache

import "fmt"

// checkRange panics on an inverted range. It is only called when built with
// the armcache_debug tag.
func checkRange(from, to uintptr) {
	if from > to {
		panic(fmt.Sprintf("armcache: inverted range 0x%x-0x%x", from, to))
	}
}

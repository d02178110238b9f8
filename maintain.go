//go:build arm || arm64

package armcache

// Maintain runs the whole data cache operation named by op. Unknown values
// do nothing.
func Maintain(op Op) {
	switch op {
	case OpClean:
		Clean()
	case OpInvalidate:
		Invalidate()
	case OpCleanInvalidate:
		CleanInvalidate()
	default:
		if debug {
			panic("armcache: unknown operation " + op.String())
		}
	}
}

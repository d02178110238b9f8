package armcache

import "fmt"

// Op is a kind of whole-cache maintenance operation.
type Op uint8

const (
	// OpClean writes dirty lines back to memory and keeps them cached.
	OpClean Op = iota

	// OpInvalidate discards every line without writing it back.
	OpInvalidate

	// OpCleanInvalidate writes dirty lines back, then discards them.
	OpCleanInvalidate
)

func (op Op) String() string {
	switch op {
	case OpClean:
		return "clean"
	case OpInvalidate:
		return "invalidate"
	case OpCleanInvalidate:
		return "clean+invalidate"
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// Cleans reports whether op writes dirty lines back.
func (op Op) Cleans() bool {
	return op == OpClean || op == OpCleanInvalidate
}

// Invalidates reports whether op discards lines.
func (op Op) Invalidates() bool {
	return op == OpInvalidate || op == OpCleanInvalidate
}

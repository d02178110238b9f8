// ARM data and instruction cache maintenance
//
// When the data cache is enabled, a write made by one core may sit in a dirty
// cache line where another core, or a non-coherent peripheral such as the
// VideoCore GPU, will never see it. This package exposes the maintenance
// operations needed to push those writes out (Clean), drop stale lines
// (Invalidate), or both (CleanInvalidate).
//
// On arm64 there are also range operations. FlushDataCacheRange cleans and
// invalidates only the lines covering a buffer, and
// FlushInstructionCacheRange makes freshly written code visible to
// instruction fetch.
//
// Every operation is synchronous, returns nothing and cannot fail. The caller
// is responsible for:
//   - Running at a privilege level that allows the instructions. The
//     whole-cache operations need EL1/PL1; the arm64 range operations also
//     work from Linux user space.
//   - Only calling Invalidate when no live dirty data exists. Anything not yet
//     written back is lost, including the caller's own stack.
//   - Passing ranges of mapped memory with from <= to. Empty and inverted
//     ranges do nothing; build with the armcache_debug tag to panic on
//     inverted ranges instead.
//   - Serialising whole-cache operations on a core and synchronising with
//     other cores. No locking is done here.
//
// Only arm and arm64 are supported. On other architectures the package
// contains the Op type and nothing else.
package armcache

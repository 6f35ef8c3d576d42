package arena

// mmapThreshold is the chunk size, in bytes, at or above which a chunk's backing
// buffer is requested directly from the OS via mmap rather than the Go
// allocator. Below this size the per-mapping overhead (a page table entry,
// a syscall round trip) outweighs the benefit of bypassing the GC heap.
const mmapThreshold = 64 * 1024

// allocChunkBuffer and freeChunkBuffer are implemented per-platform
// (backing_linux.go, backing_other.go): platforms with no direct mmap
// access always go through make([]byte, size).

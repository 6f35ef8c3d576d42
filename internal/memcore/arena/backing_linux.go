//go:build linux

package arena

import "golang.org/x/sys/unix"

// allocChunkBuffer requests a private anonymous mapping for large chunks,
// keeping them off the Go heap so the GC never has to scan the raw object
// bytes stored inside them. Small chunks go through make(), matching the
// arena's original behavior, since mmap's fixed per-call overhead isn't
// worth paying for a handful of kilobytes.
func allocChunkBuffer(size uintptr) ([]byte, bool) {
	if size < mmapThreshold {
		return make([]byte, size), false
	}

	buf, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return make([]byte, size), false
	}

	return buf, true
}

// freeChunkBuffer releases a buffer previously obtained from
// allocChunkBuffer. madvise(DONTNEED) is attempted first so the pages are
// returned to the OS immediately rather than waiting for munmap; a failure
// there is not fatal since munmap alone still reclaims the mapping.
func freeChunkBuffer(buf []byte, mmapped bool) {
	if !mmapped || len(buf) == 0 {
		return
	}

	_ = unix.Madvise(buf, unix.MADV_DONTNEED)
	_ = unix.Munmap(buf)
}

//go:build linux

package region

import "golang.org/x/sys/unix"

// platformThreadID identifies the calling OS thread via gettid(2). Go does
// not pin goroutines to OS threads by default, so this is only a stable
// identity for goroutines that have called runtime.LockOSThread — which is
// exactly the discipline a caller relying on a per-thread global region
// must already follow.
func platformThreadID() int {
	return unix.Gettid()
}

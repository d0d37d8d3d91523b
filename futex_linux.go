//go:build linux

package semaphores

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Named semaphores live in shared mappings, so the process-private futex
// flag must not be set.
const (
	_FUTEX_WAIT = 0
	_FUTEX_WAKE = 1
)

// futexWait sleeps while *addr == val. Spurious returns are reported as nil;
// callers re-check the word.
func futexWait(addr *uint32, val uint32) error {
	_, _, errno := unix.Syscall6(unix.SYS_FUTEX, uintptr(unsafe.Pointer(addr)), _FUTEX_WAIT, uintptr(val), 0, 0, 0)
	switch errno {
	case 0, unix.EAGAIN, unix.EINTR:
		return nil
	}
	return errno
}

// futexWake wakes at most n sleepers on addr.
func futexWake(addr *uint32, n int) error {
	_, _, errno := unix.Syscall6(unix.SYS_FUTEX, uintptr(unsafe.Pointer(addr)), _FUTEX_WAKE, uintptr(n), 0, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

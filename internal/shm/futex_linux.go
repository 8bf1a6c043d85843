//go:build linux

package shm

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const wakeAll = 1<<31 - 1

// Futex operation codes from <linux/futex.h>; x/sys/unix does not export them.
const (
	futexOpWait = 0
	futexOpWake = 1
)

// futexWait sleeps until the word changes from val or a wake arrives.
// FUTEX_PRIVATE_FLAG is deliberately absent: the word is shared across
// processes, so the kernel must key the wait queue by the backing page.
func futexWait(addr *uint32, val uint32) {
	_, _, _ = unix.Syscall6(unix.SYS_FUTEX, uintptr(unsafe.Pointer(addr)),
		uintptr(futexOpWait), uintptr(val), 0, 0, 0)
}

func futexWake(addr *uint32, n int) {
	_, _, _ = unix.Syscall6(unix.SYS_FUTEX, uintptr(unsafe.Pointer(addr)),
		uintptr(futexOpWake), uintptr(n), 0, 0, 0)
}

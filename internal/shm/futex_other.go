//go:build !linux

package shm

import (
	"sync/atomic"
	"time"
)

const wakeAll = 1<<31 - 1

// Platforms without a cross-process wait primitive fall back to polling the
// shared word. Wakes are implicit: a sleeper notices the store on its next
// poll. Latency is bounded by the sleep interval.
const pollInterval = 200 * time.Microsecond

func futexWait(addr *uint32, val uint32) {
	if atomic.LoadUint32(addr) != val {
		return
	}
	time.Sleep(pollInterval)
}

func futexWake(addr *uint32, n int) {}

package shm

import (
	"sync/atomic"
	"unsafe"
)

// sharedLock is the process-shared primitive living in the lock header.
// Implementations operate purely on words inside the mapping, so every
// process that maps the object shares the same lock state.
//
// Fairness is whatever the waiter mechanism provides: on Linux the futex
// wake order is unspecified and the rwlock is reader-preference, so writers
// can starve under a continuous read load. There is no recovery if a holder
// dies while the lock is taken; the lock stays held. Both are documented
// backend limitations.
type sharedLock interface {
	lockWrite() error
	unlockWrite()
	lockRead() error
	unlockRead()
}

func lockFor(kind LockKind, mem []byte) sharedLock {
	switch kind {
	case LockMutex:
		return &mutexLock{word: viewUint32(mem, lockOffset)}
	case LockRW:
		return &rwLock{state: viewInt32(mem, lockOffset)}
	}
	return nil
}

// mutexLock is a three-state futex mutex:
// 0 unlocked, 1 locked, 2 locked with waiters.
type mutexLock struct {
	word *uint32
}

func (m *mutexLock) lockWrite() error {
	if atomic.CompareAndSwapUint32(m.word, 0, 1) {
		return nil
	}
	for {
		v := atomic.LoadUint32(m.word)
		if v > 2 {
			return ErrLockPoisoned
		}
		if v == 2 || atomic.CompareAndSwapUint32(m.word, 1, 2) {
			futexWait(m.word, 2)
		}
		if atomic.CompareAndSwapUint32(m.word, 0, 2) {
			return nil
		}
	}
}

func (m *mutexLock) unlockWrite() {
	if atomic.SwapUint32(m.word, 0) == 2 {
		futexWake(m.word, 1)
	}
}

// There is no shared read path under a mutex; reads take the exclusive lock.
func (m *mutexLock) lockRead() error { return m.lockWrite() }
func (m *mutexLock) unlockRead()     { m.unlockWrite() }

// rwLock packs the whole lock into one signed word:
// 0 free, n>0 readers, -1 writer. Waiters sleep on the word itself and
// retry, so a stale observation only costs an extra loop iteration.
type rwLock struct {
	state *int32
}

const rwWriterHeld = -1

func (l *rwLock) lockRead() error {
	for {
		s := atomic.LoadInt32(l.state)
		if s < rwWriterHeld {
			return ErrLockPoisoned
		}
		if s >= 0 {
			if atomic.CompareAndSwapInt32(l.state, s, s+1) {
				return nil
			}
			continue
		}
		futexWait((*uint32)(unsafe.Pointer(l.state)), uint32(s))
	}
}

func (l *rwLock) unlockRead() {
	if atomic.AddInt32(l.state, -1) == 0 {
		futexWake((*uint32)(unsafe.Pointer(l.state)), wakeAll)
	}
}

func (l *rwLock) lockWrite() error {
	for {
		s := atomic.LoadInt32(l.state)
		if s < rwWriterHeld {
			return ErrLockPoisoned
		}
		if s == 0 {
			if atomic.CompareAndSwapInt32(l.state, 0, rwWriterHeld) {
				return nil
			}
			continue
		}
		futexWait((*uint32)(unsafe.Pointer(l.state)), uint32(s))
	}
}

func (l *rwLock) unlockWrite() {
	atomic.StoreInt32(l.state, 0)
	futexWake((*uint32)(unsafe.Pointer(l.state)), wakeAll)
}

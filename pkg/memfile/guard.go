/*
 * Copyright 2026 The memfile Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package memfile

import (
	"reflect"
	"sync/atomic"
	"unsafe"

	"github.com/memfile/memfile/internal/shm"
)

// Guards are the only synchronized path to the data section. A guard holds
// the in-region lock from acquisition until Release; the idiom is
//
//	g, err := memfile.WriteLock[State](mf)
//	if err != nil { ... }
//	defer g.Release()
//	g.Value().Counter++
//
// Acquisition blocks indefinitely; only a release by another holder
// unblocks it. Guards belong to one goroutine in one process and must never
// be handed across a process boundary. Release is idempotent, so a deferred
// Release after an explicit one is safe.
//
// Methods cannot introduce type parameters, hence the package-level
// generic constructors.

// WriteGuard is exclusive, typed access to the data section.
type WriteGuard[T any] struct {
	region   *shm.MappedRegion
	ptr      unsafe.Pointer
	n        int
	released atomic.Bool
}

// Value returns the data section viewed as *T.
func (g *WriteGuard[T]) Value() *T {
	if g.released.Load() {
		panic("memfile: use of write guard after Release")
	}
	return (*T)(g.ptr)
}

// Slice returns the data section viewed as []T. For guards acquired with
// WriteLock the slice has length 1; WriteLockSlice sizes it to
// size/sizeof(T), truncating any remainder, so a T wider than the section
// gives an empty slice.
func (g *WriteGuard[T]) Slice() []T {
	if g.released.Load() {
		panic("memfile: use of write guard after Release")
	}
	return unsafe.Slice((*T)(g.ptr), g.n)
}

// Release drops the lock. Exactly the first call releases; later calls are
// no-ops.
func (g *WriteGuard[T]) Release() {
	if g.released.CompareAndSwap(false, true) {
		g.region.UnlockWrite()
	}
}

// ReadGuard is shared, read-only typed access to the data section.
type ReadGuard[T any] struct {
	region   *shm.MappedRegion
	ptr      unsafe.Pointer
	n        int
	released atomic.Bool
}

// Value returns the data section viewed as *T. Mutating through it while
// other readers hold the lock is a data race; the type is read-only by
// contract, not by construction.
func (g *ReadGuard[T]) Value() *T {
	if g.released.Load() {
		panic("memfile: use of read guard after Release")
	}
	return (*T)(g.ptr)
}

// Slice returns the data section viewed as []T, sized like WriteGuard.Slice.
func (g *ReadGuard[T]) Slice() []T {
	if g.released.Load() {
		panic("memfile: use of read guard after Release")
	}
	return unsafe.Slice((*T)(g.ptr), g.n)
}

// Release drops the lock. Exactly the first call releases; later calls are
// no-ops.
func (g *ReadGuard[T]) Release() {
	if g.released.CompareAndSwap(false, true) {
		g.region.UnlockRead()
	}
}

// WriteLock blocks until exclusive access is granted, then returns a guard
// over the first sizeof(T) bytes of the data section. Available under
// LockMutex and LockRW.
func WriteLock[T any](m *MemFile) (*WriteGuard[T], error) {
	region, ptr, n, err := acquire[T](m, false, true)
	if err != nil {
		return nil, err
	}
	return &WriteGuard[T]{region: region, ptr: ptr, n: n}, nil
}

// WriteLockSlice is WriteLock viewing the data section as []T with
// len = size/sizeof(T), remainder truncated. It never fails on size: a T
// wider than the section gives a guard over an empty slice.
func WriteLockSlice[T any](m *MemFile) (*WriteGuard[T], error) {
	region, ptr, n, err := acquire[T](m, true, true)
	if err != nil {
		return nil, err
	}
	return &WriteGuard[T]{region: region, ptr: ptr, n: n}, nil
}

// ReadLock blocks until shared access is granted. Only LockRW has a shared
// path: under LockMutex all access is exclusive and ReadLock fails with
// ErrLockKind.
func ReadLock[T any](m *MemFile) (*ReadGuard[T], error) {
	region, ptr, n, err := acquire[T](m, false, false)
	if err != nil {
		return nil, err
	}
	return &ReadGuard[T]{region: region, ptr: ptr, n: n}, nil
}

// ReadLockSlice is ReadLock viewing the data section as []T, sized like
// WriteLockSlice.
func ReadLockSlice[T any](m *MemFile) (*ReadGuard[T], error) {
	region, ptr, n, err := acquire[T](m, true, false)
	if err != nil {
		return nil, err
	}
	return &ReadGuard[T]{region: region, ptr: ptr, n: n}, nil
}

func acquire[T any](m *MemFile, asSlice, write bool) (*shm.MappedRegion, unsafe.Pointer, int, error) {
	region, err := m.attached()
	if err != nil {
		return nil, nil, 0, err
	}
	switch m.kind {
	case LockMutex:
		if !write {
			return nil, nil, 0, ErrLockKind
		}
	case LockRW:
	default:
		return nil, nil, 0, ErrLockKind
	}

	t := reflect.TypeOf((*T)(nil)).Elem()
	if err := checkCastable(t); err != nil {
		return nil, nil, 0, err
	}
	sz := int(t.Size())
	if sz == 0 {
		return nil, nil, 0, ErrInvalidCast
	}
	n := 1
	if asSlice {
		// Truncating division; an element wider than the whole section
		// yields an empty slice, not an error.
		n = m.size / sz
	} else if sz > m.size {
		return nil, nil, 0, ErrCastSizeMismatch
	}

	if write {
		err = region.LockWrite()
	} else {
		err = region.LockRead()
	}
	if err != nil {
		return nil, nil, 0, err
	}
	lockAcquisitions.WithLabelValues(m.kind.String(), opLabel(write)).Inc()
	data := region.Data()
	return region, unsafe.Pointer(&data[0]), n, nil
}

func opLabel(write bool) string {
	if write {
		return "write"
	}
	return "read"
}

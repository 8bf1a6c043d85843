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
	"errors"

	"github.com/memfile/memfile/internal/shm"
)

// Every failure from Create/Open/lock acquisition wraps exactly one of the
// sentinels below, so callers can branch on the cause with errors.Is. The
// distinction that matters most in practice: ErrBackend is usually safe to
// retry, ErrPartialWrite means the link on disk may be corrupt and must not
// be retried blindly.
var (
	// ErrAlreadyExists: the link path (or a raw identifier) is occupied at
	// create time. The pre-existing file is left untouched.
	ErrAlreadyExists = errors.New("memfile: already exists")

	// ErrNotFound: no link file, or no shared object for an identifier.
	ErrNotFound = shm.ErrNotFound

	// ErrIO: a filesystem operation on the link file failed.
	ErrIO = errors.New("memfile: i/o failure")

	// ErrPartialWrite: the identifier was only partially persisted; the link
	// on disk is considered corrupt.
	ErrPartialWrite = errors.New("memfile: short write while persisting identifier")

	// ErrDecode: the link file exists but does not hold a valid identifier
	// (empty, truncated, or not UTF-8 text).
	ErrDecode = errors.New("memfile: link file holds no valid identifier")

	// ErrBackend: opaque platform failure from the shared memory backend.
	ErrBackend = shm.ErrBackend

	// ErrLockPoisoned: the in-region lock reports an unrecoverable state.
	ErrLockPoisoned = shm.ErrLockPoisoned

	// ErrCastSizeMismatch: the requested type is larger than the data
	// section. Only the single-value constructors report it; the slice
	// variants truncate instead.
	ErrCastSizeMismatch = errors.New("memfile: type does not fit the data section")

	// ErrInvalidCast: the requested type carries pointers or other state
	// that cannot live in shared memory.
	ErrInvalidCast = errors.New("memfile: type is not safe for shared memory")

	// ErrLockKind: the mapping's lock kind does not support the requested
	// access path (reads under Mutex, any locking under None).
	ErrLockKind = errors.New("memfile: operation not supported by this lock kind")

	// ErrClosed: the handle was already torn down.
	ErrClosed = errors.New("memfile: handle is closed")
)

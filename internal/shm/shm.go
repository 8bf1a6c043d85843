// Package shm is the platform backend for memfile: it reserves, maps and
// releases named shared memory objects, and owns the in-region lock header
// that makes the mapping's synchronization primitive visible to every
// attaching process.
package shm

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// LockKind selects the process-shared primitive embedded at the front of a
// mapping. It is chosen once at creation time; attachers discover it from the
// identifier, never choose it.
type LockKind uint32

const (
	// LockNone maps raw bytes with no header and no synchronization.
	LockNone LockKind = iota
	// LockMutex embeds a single exclusive lock. All access is exclusive.
	LockMutex
	// LockRW embeds a reader-writer lock: many readers or one writer.
	LockRW
)

func (k LockKind) String() string {
	switch k {
	case LockNone:
		return "none"
	case LockMutex:
		return "mutex"
	case LockRW:
		return "rwlock"
	}
	return "unknown"
}

var (
	// ErrNotFound reports that no shared object exists for an identifier.
	ErrNotFound = errors.New("shm: object not found")
	// ErrBackend is an opaque platform failure: collision after retries,
	// quota exhaustion, mapping failure, truncated object.
	ErrBackend = errors.New("shm: backend failure")
	// ErrLockPoisoned reports that the in-region lock words hold a state no
	// live locking protocol could have produced.
	ErrLockPoisoned = errors.New("shm: lock state poisoned")
)

// Options parameterize Create.
type Options struct {
	// Root overrides the directory backing the objects. Empty means the
	// platform default (/dev/shm on Linux, the temp dir elsewhere).
	Root string
	// Name forces an exact identifier (raw mode). Empty lets the backend
	// generate a collision-free one.
	Name string
	// Kind is the lock primitive to initialize in the header.
	Kind LockKind
	// Size is the caller-visible data section length, excluding the header.
	Size int
}

// ValidateSize rejects data sizes no mapping could back. Callers run it
// before spending any side effect, so a bad size fails before link files or
// identifiers exist.
func ValidateSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: data size %d is not mappable", ErrBackend, size)
	}
	return nil
}

const (
	identifierPrefix = "memfile_"
	mutexSuffix      = ".mx"
	rwSuffix         = ".rw"
)

// newIdentifier generates a fresh identifier candidate. The lock kind is
// encoded as a suffix so that Open can size the header before reading it.
func newIdentifier(kind LockKind) string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("shm: cannot read random bytes: " + err.Error())
	}
	return identifierPrefix + hex.EncodeToString(b[:]) + kindSuffix(kind)
}

func kindSuffix(kind LockKind) string {
	switch kind {
	case LockMutex:
		return mutexSuffix
	case LockRW:
		return rwSuffix
	}
	return ""
}

// KindOfIdentifier recovers the lock kind a conforming identifier encodes.
// Identifiers produced by other tools carry no suffix and report LockNone.
func KindOfIdentifier(name string) LockKind {
	switch {
	case strings.HasSuffix(name, mutexSuffix):
		return LockMutex
	case strings.HasSuffix(name, rwSuffix):
		return LockRW
	}
	return LockNone
}

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
	"context"
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/memfile/memfile/internal/shm"
)

// LockKind selects the process-shared lock embedded in a mapping.
type LockKind = shm.LockKind

const (
	// LockNone: raw bytes, no lock header, no guards.
	LockNone = shm.LockNone
	// LockMutex: one exclusive lock; all access goes through WriteLock.
	LockMutex = shm.LockMutex
	// LockRW: reader-writer lock; many ReadLock holders or one WriteLock.
	LockRW = shm.LockRW
)

// MemFile is one process's handle to a shared memory mapping. A handle is
// either the owner (its Create originated the object; teardown destroys it)
// or an attacher (teardown only detaches). Handles move through exactly one
// lifecycle: attached on construction, torn down once by Close or, as a
// best-effort fallback, by the garbage collector.
type MemFile struct {
	mu         sync.Mutex
	region     *shm.MappedRegion // nil once torn down
	owner      bool
	linkPath   string // empty in raw mode
	identifier string
	size       int
	kind       LockKind
}

// Create makes a new shared mapping of the given data size and records its
// OS identifier in a link file at linkPath. The link path is the only name
// callers ever need to share; the OS-level identifier is generated
// collision-free by the backend. Creation is all-or-nothing: any failure
// leaves neither a link file nor a shared object behind.
func Create(linkPath string, kind LockKind, size int) (*MemFile, error) {
	return CreateWithConfig(context.Background(), DefaultConfig(), linkPath, kind, size)
}

// CreateWithConfig is Create with an explicit Config. ctx is used for
// tracing only; creation itself is synchronous.
func CreateWithConfig(ctx context.Context, cfg *Config, linkPath string, kind LockKind, size int) (mf *MemFile, err error) {
	if err := VerifyConfig(cfg); err != nil {
		return nil, err
	}
	defer traceSpan(ctx, cfg, "memfile.Create", &mf, &err)()

	// Size rejection comes before any side effect; a bad size must not
	// even transiently create the link file.
	if err := shm.ValidateSize(size); err != nil {
		return nil, err
	}

	lf, err := createLink(linkPath)
	if err != nil {
		return nil, err
	}
	region, err := shm.Create(shm.Options{Root: cfg.ShmRoot, Kind: kind, Size: size})
	if err != nil {
		_ = lf.Close()
		_ = removeLink(linkPath)
		return nil, err
	}
	if region.Name() == "" {
		panic("memfile: shm backend reported success without an identifier")
	}

	err = persistIdentifier(lf, region.Name())
	if cerr := lf.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("%w: close link %q: %v", ErrIO, linkPath, cerr)
	}
	if err != nil {
		// Roll back fully: no orphaned object, no truncated link.
		if rerr := region.Close(true); rerr != nil {
			internalLogger.Warnf("rollback of %q: %v", region.Name(), rerr)
		}
		_ = removeLink(linkPath)
		return nil, err
	}

	registerOwner(region.Name())
	createsTotal.Inc()
	cfg.countCreate(ctx)
	return newAttached(region, true, linkPath), nil
}

// Open attaches to the mapping a link file points at. Size and lock kind
// are discovered from the backend, never supplied by the caller.
func Open(linkPath string) (*MemFile, error) {
	return OpenWithConfig(context.Background(), DefaultConfig(), linkPath)
}

// OpenWithConfig is Open with an explicit Config.
func OpenWithConfig(ctx context.Context, cfg *Config, linkPath string) (mf *MemFile, err error) {
	if err := VerifyConfig(cfg); err != nil {
		return nil, err
	}
	defer traceSpan(ctx, cfg, "memfile.Open", &mf, &err)()

	identifier, err := resolveIdentifier(linkPath)
	if err != nil {
		return nil, err
	}
	region, err := shm.Open(cfg.ShmRoot, identifier)
	if err != nil {
		return nil, err
	}
	opensTotal.Inc()
	cfg.countOpen(ctx)
	return newAttached(region, false, linkPath), nil
}

// CreateRaw makes a shared mapping under a caller-chosen OS identifier,
// with no link file, no lock header, and no collision protection beyond
// exclusive creation. Intended for interop with mappings consumed by tools
// that do not speak the link protocol.
//
// Identifiers ending in ".mx" or ".rw" are reserved for linked mappings:
// OpenRaw reads the lock kind from that suffix and would demand a lock
// header the raw mapping does not carry, refusing it with ErrBackend.
func CreateRaw(identifier string, size int) (*MemFile, error) {
	return CreateRawWithConfig(context.Background(), DefaultConfig(), identifier, size)
}

// CreateRawWithConfig is CreateRaw with an explicit Config.
func CreateRawWithConfig(ctx context.Context, cfg *Config, identifier string, size int) (mf *MemFile, err error) {
	if err := VerifyConfig(cfg); err != nil {
		return nil, err
	}
	defer traceSpan(ctx, cfg, "memfile.CreateRaw", &mf, &err)()

	if err := shm.ValidateSize(size); err != nil {
		return nil, err
	}
	if !registerOwner(identifier) {
		return nil, fmt.Errorf("%w: identifier %q already owned by this process", ErrAlreadyExists, identifier)
	}
	region, err := shm.Create(shm.Options{Root: cfg.ShmRoot, Name: identifier, Kind: LockNone, Size: size})
	if err != nil {
		unregisterOwner(identifier)
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: identifier %q", ErrAlreadyExists, identifier)
		}
		return nil, err
	}
	createsTotal.Inc()
	cfg.countCreate(ctx)
	return newAttached(region, true, ""), nil
}

// OpenRaw attaches to an existing mapping by exact OS identifier.
func OpenRaw(identifier string) (*MemFile, error) {
	return OpenRawWithConfig(context.Background(), DefaultConfig(), identifier)
}

// OpenRawWithConfig is OpenRaw with an explicit Config.
func OpenRawWithConfig(ctx context.Context, cfg *Config, identifier string) (mf *MemFile, err error) {
	if err := VerifyConfig(cfg); err != nil {
		return nil, err
	}
	defer traceSpan(ctx, cfg, "memfile.OpenRaw", &mf, &err)()

	region, err := shm.Open(cfg.ShmRoot, identifier)
	if err != nil {
		return nil, err
	}
	opensTotal.Inc()
	cfg.countOpen(ctx)
	return newAttached(region, false, ""), nil
}

func newAttached(region *shm.MappedRegion, owner bool, linkPath string) *MemFile {
	m := &MemFile{
		region:     region,
		owner:      owner,
		linkPath:   linkPath,
		identifier: region.Name(),
		size:       region.Size(),
		kind:       region.Kind(),
	}
	openHandles.Inc()
	// Best-effort teardown if the handle is dropped without Close. Errors
	// have nowhere to go at this point and are only logged.
	runtime.SetFinalizer(m, func(m *MemFile) {
		if err := m.Close(); err != nil && !errors.Is(err, ErrClosed) {
			internalLogger.Warnf("implicit teardown of %q: %v", m.identifier, err)
		}
	})
	return m
}

// Close tears the handle down: the owner removes the link file and destroys
// the shared object, an attacher only unmaps its attachment. Close is the
// explicit, fallible counterpart of the automatic finalizer teardown; it
// runs at most once, and later calls return ErrClosed.
func (m *MemFile) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.region == nil {
		return ErrClosed
	}
	runtime.SetFinalizer(m, nil)

	var errs []error
	if m.owner {
		if m.linkPath != "" {
			if err := removeLink(m.linkPath); err != nil {
				errs = append(errs, err)
			}
		}
		unregisterOwner(m.identifier)
	}
	if err := m.region.Close(m.owner); err != nil {
		errs = append(errs, err)
	}
	m.region = nil
	openHandles.Dec()
	return errors.Join(errs...)
}

// Size returns the data section length in bytes. The lock header, if any,
// is not included.
func (m *MemFile) Size() int { return m.size }

// Identifier returns the OS-opaque name of the shared object. On Linux this
// is a file name under /dev/shm; on Windows a Local\ section name.
func (m *MemFile) Identifier() string { return m.identifier }

// LinkPath returns the link file path and whether one exists (it does not
// in raw mode).
func (m *MemFile) LinkPath() (string, bool) { return m.linkPath, m.linkPath != "" }

// IsOwner reports whether this handle created the underlying object and is
// therefore responsible for destroying it.
func (m *MemFile) IsOwner() bool { return m.owner }

// Kind returns the lock kind fixed at creation time.
func (m *MemFile) Kind() LockKind { return m.kind }

// Bytes returns the raw, unsynchronized data section. For LockNone mappings
// this is the only view; for locked mappings it bypasses the lock and
// carries no ordering guarantee whatsoever.
func (m *MemFile) Bytes() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.region == nil {
		return nil, ErrClosed
	}
	return m.region.Data(), nil
}

// attached snapshots the live region, failing after teardown.
func (m *MemFile) attached() (*shm.MappedRegion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.region == nil {
		return nil, ErrClosed
	}
	return m.region, nil
}

// traceSpan opens a span when cfg carries a tracer and returns the closer.
func traceSpan(ctx context.Context, cfg *Config, name string, mf **MemFile, errp *error) func() {
	if cfg.Tracer == nil {
		return func() {}
	}
	_, span := cfg.Tracer.Start(ctx, name)
	return func() {
		if *errp != nil {
			span.RecordError(*errp)
		} else if *mf != nil {
			span.SetAttributes(
				attribute.String("memfile.identifier", (*mf).identifier),
				attribute.Int("memfile.size", (*mf).size),
				attribute.String("memfile.lock_kind", (*mf).kind.String()),
			)
		}
		span.End()
	}
}

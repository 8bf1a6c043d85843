//go:build unix

package shm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sys/unix"
)

type platformHandle struct{}

// Identifier probing: a generated name that collides with a live object is
// retried with a fresh name; an explicit (raw) name is authoritative and
// fails immediately.
const (
	createMaxRetries   = 16
	createRetryBackoff = time.Millisecond
)

// DefaultRoot returns the directory backing shared objects on this platform.
func DefaultRoot() string {
	if runtime.GOOS == "linux" {
		return "/dev/shm"
	}
	return os.TempDir()
}

// Create reserves header+data bytes of shared memory under a fresh or
// caller-forced identifier, maps them, and initializes the lock header.
func Create(opts Options) (*MappedRegion, error) {
	if err := ValidateSize(opts.Size); err != nil {
		return nil, err
	}
	root := opts.Root
	if root == "" {
		root = DefaultRoot()
	}
	total := HeaderSize(opts.Kind) + opts.Size
	if !canCreateOnShmRoot(uint64(total), root) {
		return nil, fmt.Errorf("%w: not enough free space on %s for %d bytes", ErrBackend, root, total)
	}

	var region *MappedRegion
	op := func() error {
		name := opts.Name
		if name == "" {
			name = newIdentifier(opts.Kind)
		}
		r, err := createExclusive(root, name, opts.Kind, total)
		if err != nil {
			if opts.Name == "" && errors.Is(err, fs.ErrExist) {
				return err // probe again with a fresh name
			}
			return backoff.Permanent(err)
		}
		region = r
		return nil
	}
	err := backoff.Retry(op, backoff.WithMaxRetries(
		backoff.NewConstantBackOff(createRetryBackoff), createMaxRetries))
	if err != nil {
		if errors.Is(err, fs.ErrExist) && opts.Name == "" {
			return nil, fmt.Errorf("%w: identifier collision persisted after %d probes: %w",
				ErrBackend, createMaxRetries, err)
		}
		return nil, err
	}
	return region, nil
}

func createExclusive(root, name string, kind LockKind, total int) (*MappedRegion, error) {
	path := filepath.Join(root, name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("shm: identifier %q in use: %w", name, err)
		}
		return nil, fmt.Errorf("%w: create %q: %w", ErrBackend, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			internalLogger.Warnf("close %q: %v", path, cerr)
		}
	}()

	if err := f.Truncate(int64(total)); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: truncate %q to %d bytes: %w", ErrBackend, path, total, err)
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: mmap %q: %w", ErrBackend, path, err)
	}
	if kind != LockNone {
		initHeader(mem, kind)
	}
	return &MappedRegion{
		mem:  mem,
		data: mem[HeaderSize(kind):],
		name: name,
		root: root,
		kind: kind,
		lk:   lockFor(kind, mem),
	}, nil
}

// Open attaches to an existing object by exact identifier. The lock kind
// comes from the identifier, the data size from the object size minus the
// header; both are cross-checked against the header the creator wrote.
func Open(root, name string) (*MappedRegion, error) {
	if root == "" {
		root = DefaultRoot()
	}
	path := filepath.Join(root, name)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: identifier %q", ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: open %q: %w", ErrBackend, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			internalLogger.Warnf("close %q: %v", path, cerr)
		}
	}()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat %q: %w", ErrBackend, path, err)
	}
	kind := KindOfIdentifier(name)
	total := int(st.Size())
	if total <= HeaderSize(kind) {
		return nil, fmt.Errorf("%w: object %q is truncated (%d bytes)", ErrBackend, name, total)
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %q: %w", ErrBackend, path, err)
	}
	if kind != LockNone {
		if err := attachHeader(mem, kind); err != nil {
			_ = unix.Munmap(mem)
			return nil, err
		}
	}
	return &MappedRegion{
		mem:  mem,
		data: mem[HeaderSize(kind):],
		name: name,
		root: root,
		kind: kind,
		lk:   lockFor(kind, mem),
	}, nil
}

// Exists reports whether an identifier currently resolves to a live object.
func Exists(root, name string) bool {
	if root == "" {
		root = DefaultRoot()
	}
	return pathExists(filepath.Join(root, name))
}

func osUnmap(r *MappedRegion) error {
	if err := unix.Munmap(r.mem); err != nil {
		return fmt.Errorf("%w: munmap %q: %w", ErrBackend, r.name, err)
	}
	return nil
}

func osDestroy(r *MappedRegion) error {
	err := os.Remove(filepath.Join(r.root, r.name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: unlink %q: %w", ErrBackend, r.name, err)
	}
	return nil
}

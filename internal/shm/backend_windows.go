//go:build windows

package shm

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
	"unsafe"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sys/windows"
)

// Windows identifiers are names in the session-local kernel namespace
// ("Local\<identifier>"). A section object lives until the last handle to it
// is closed, so the owner's destroy step is closing its own handle; there is
// no unlink equivalent.
//
// Sections are page-granular: a LockNone object opened by identifier reports
// a page-rounded size, because there is no header recording the exact length.

type platformHandle struct {
	section windows.Handle
}

const (
	createMaxRetries   = 16
	createRetryBackoff = time.Millisecond
)

// DefaultRoot is meaningless for kernel namespaces; it is accepted and
// ignored so callers can stay platform-agnostic.
func DefaultRoot() string { return "" }

func sectionName(name string) (*uint16, error) {
	return windows.UTF16PtrFromString(`Local\` + name)
}

// Create reserves header+data bytes in a named section and maps a view.
func Create(opts Options) (*MappedRegion, error) {
	if err := ValidateSize(opts.Size); err != nil {
		return nil, err
	}
	total := HeaderSize(opts.Kind) + opts.Size

	var region *MappedRegion
	op := func() error {
		name := opts.Name
		if name == "" {
			name = newIdentifier(opts.Kind)
		}
		r, err := createSection(name, opts.Kind, total)
		if err != nil {
			if opts.Name == "" && errors.Is(err, fs.ErrExist) {
				return err
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

func createSection(name string, kind LockKind, total int) (*MappedRegion, error) {
	namep, err := sectionName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: identifier %q: %w", ErrBackend, name, err)
	}
	h, err := windows.CreateFileMapping(windows.InvalidHandle, nil,
		windows.PAGE_READWRITE, uint32(uint64(total)>>32), uint32(total), namep)
	if err == windows.ERROR_ALREADY_EXISTS || (err == nil && windows.GetLastError() == windows.ERROR_ALREADY_EXISTS) {
		if h != 0 {
			_ = windows.CloseHandle(h)
		}
		return nil, fmt.Errorf("shm: identifier %q in use: %w", name, fs.ErrExist)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: create section %q: %w", ErrBackend, name, err)
	}
	mem, err := mapView(h, total)
	if err != nil {
		_ = windows.CloseHandle(h)
		return nil, fmt.Errorf("%w: map section %q: %w", ErrBackend, name, err)
	}
	if kind != LockNone {
		initHeader(mem, kind)
	}
	return &MappedRegion{
		platformHandle: platformHandle{section: h},
		mem:            mem,
		data:           mem[HeaderSize(kind):],
		name:           name,
		kind:           kind,
		lk:             lockFor(kind, mem),
	}, nil
}

// Open attaches to an existing section by exact identifier.
func Open(root, name string) (*MappedRegion, error) {
	namep, err := sectionName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: identifier %q: %w", ErrBackend, name, err)
	}
	h, err := windows.OpenFileMapping(windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, namep)
	if err != nil {
		return nil, fmt.Errorf("%w: identifier %q: %v", ErrNotFound, name, err)
	}
	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, 0)
	if err != nil {
		_ = windows.CloseHandle(h)
		return nil, fmt.Errorf("%w: map section %q: %w", ErrBackend, name, err)
	}
	var info windows.MemoryBasicInformation
	if err := windows.VirtualQuery(addr, &info, unsafe.Sizeof(info)); err != nil {
		_ = windows.UnmapViewOfFile(addr)
		_ = windows.CloseHandle(h)
		return nil, fmt.Errorf("%w: query section %q: %w", ErrBackend, name, err)
	}
	total := int(info.RegionSize)
	kind := KindOfIdentifier(name)
	if total <= HeaderSize(kind) {
		_ = windows.UnmapViewOfFile(addr)
		_ = windows.CloseHandle(h)
		return nil, fmt.Errorf("%w: object %q is truncated (%d bytes)", ErrBackend, name, total)
	}
	mem := unsafe.Slice((*byte)(unsafe.Pointer(addr)), total)
	if kind != LockNone {
		if err := attachHeader(mem, kind); err != nil {
			_ = windows.UnmapViewOfFile(addr)
			_ = windows.CloseHandle(h)
			return nil, err
		}
	}
	return &MappedRegion{
		platformHandle: platformHandle{section: h},
		mem:            mem,
		data:           mem[HeaderSize(kind):],
		name:           name,
		kind:           kind,
		lk:             lockFor(kind, mem),
	}, nil
}

func mapView(h windows.Handle, total int) ([]byte, error) {
	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, uintptr(total))
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), total), nil
}

// Exists reports whether an identifier currently resolves to a live section.
func Exists(root, name string) bool {
	namep, err := sectionName(name)
	if err != nil {
		return false
	}
	h, err := windows.OpenFileMapping(windows.FILE_MAP_READ, 0, namep)
	if err != nil {
		return false
	}
	_ = windows.CloseHandle(h)
	return true
}

func osUnmap(r *MappedRegion) error {
	addr := uintptr(unsafe.Pointer(&r.mem[0]))
	err := windows.UnmapViewOfFile(addr)
	if cerr := windows.CloseHandle(r.section); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: unmap %q: %w", ErrBackend, r.name, err)
	}
	return nil
}

// osDestroy is a no-op: the section disappears with its last handle.
func osDestroy(r *MappedRegion) error { return nil }

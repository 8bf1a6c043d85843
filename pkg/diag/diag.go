// Package diag wires shared-memory capacity checks into an HTTP health
// endpoint. Processes holding long-lived mappings mount the handler next to
// their other liveness checks.
package diag

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/heptiolabs/healthcheck"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/memfile/memfile/internal/shm"
)

// NewHandler returns a health handler with two liveness checks: the shared
// memory root is writable, and it has at least minFreeBytes left. An empty
// root selects the platform default.
func NewHandler(root string, minFreeBytes uint64) healthcheck.Handler {
	if root == "" {
		root = shm.DefaultRoot()
	}
	h := healthcheck.NewHandler()
	h.AddLivenessCheck("shm-root-writable", RootWritableCheck(root))
	h.AddLivenessCheck("shm-free-space", FreeSpaceCheck(root, minFreeBytes))
	return h
}

// RootWritableCheck verifies that new shared objects can be created under
// root.
func RootWritableCheck(root string) healthcheck.Check {
	return func() error {
		f, err := os.CreateTemp(root, ".memfile-diag-*")
		if err != nil {
			return fmt.Errorf("shm root %q not writable: %w", root, err)
		}
		name := f.Name()
		_ = f.Close()
		_ = os.Remove(filepath.Clean(name))
		return nil
	}
}

// FreeSpaceCheck verifies that root has at least min bytes free. Windows
// sections are not directory-backed; there the check always passes.
func FreeSpaceCheck(root string, min uint64) healthcheck.Check {
	return func() error {
		if root == "" {
			return nil
		}
		stat, err := disk.Usage(root)
		if err != nil {
			return fmt.Errorf("cannot stat shm root %q: %w", root, err)
		}
		if stat.Free < min {
			return fmt.Errorf("shm root %q has %d bytes free, want at least %d", root, stat.Free, min)
		}
		return nil
	}
}

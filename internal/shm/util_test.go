package shm

import (
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
)

func TestCanCreateOnShmRoot(t *testing.T) {
	switch runtime.GOOS {
	case "linux":
		// Only /dev/shm is probed; other roots always pass.
		assert.True(t, canCreateOnShmRoot(math.MaxUint64, t.TempDir()))
		stat, err := disk.Usage("/dev/shm")
		if err != nil {
			t.Skipf("cannot stat /dev/shm: %v", err)
		}
		assert.True(t, canCreateOnShmRoot(stat.Free, "/dev/shm"))
		assert.False(t, canCreateOnShmRoot(math.MaxUint64, "/dev/shm"))
	default:
		assert.True(t, canCreateOnShmRoot(math.MaxUint64, os.TempDir()))
	}
}

func TestPathExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "probe")
	assert.False(t, pathExists(path))
	assert.NoError(t, os.WriteFile(path, nil, 0o600))
	assert.True(t, pathExists(path))
}

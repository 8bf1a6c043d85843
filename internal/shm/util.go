package shm

import (
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/memfile/memfile/internal/logutil"
)

var internalLogger = logutil.New("shm")

// canCreateOnShmRoot reports whether /dev/shm has room for a new object of
// the given size. tmpfs rejects over-commit only at page-fault time, which
// would kill the process with SIGBUS; probing up front turns that into an
// error. Roots outside /dev/shm are ordinary filesystems and are not probed.
func canCreateOnShmRoot(need uint64, root string) bool {
	if runtime.GOOS != "linux" || !strings.HasPrefix(root, "/dev/shm") {
		return true
	}
	stat, err := disk.Usage(root)
	if err != nil {
		internalLogger.Warnf("cannot stat %s: %v", root, err)
		return true
	}
	return stat.Free >= need
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

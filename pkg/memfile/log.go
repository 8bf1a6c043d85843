package memfile

import "github.com/memfile/memfile/internal/logutil"

var internalLogger = logutil.New("memfile")

// SetLogLevel adjusts the verbosity of the module's internal logger. The
// MEMFILE_LOG_LEVEL environment variable sets the initial level.
func SetLogLevel(l logutil.Level) {
	logutil.SetLevel(l)
}

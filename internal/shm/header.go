package shm

import (
	"fmt"
	"sync/atomic"
)

// The lock header occupies the first cache line of a mapping created with a
// lock kind other than LockNone. It is written exactly once by the creator
// (init-on-create) and only ever read by attachers (attach-on-open); no
// normal Go construction path touches it, so an attacher can never
// re-initialize a live lock.
//
// Layout:
//
//	0  magic    uint32
//	4  version  uint32
//	8  kind     uint32
//	12 init     uint32  set to 1 after the words below are zeroed
//	16 lock words (kind-specific)
//	64 data section
const (
	headerSize = 64

	magicOffset   = 0
	versionOffset = 4
	kindOffset    = 8
	initOffset    = 12
	lockOffset    = 16

	headerMagic   uint32 = 0x4d454d46 // "MEMF"
	headerVersion uint32 = 1
)

// HeaderSize reports the header overhead in bytes for a lock kind.
func HeaderSize(kind LockKind) int {
	if kind == LockNone {
		return 0
	}
	return headerSize
}

func initHeader(mem []byte, kind LockKind) {
	*viewUint32(mem, magicOffset) = headerMagic
	*viewUint32(mem, versionOffset) = headerVersion
	*viewUint32(mem, kindOffset) = uint32(kind)
	*viewUint32(mem, lockOffset) = 0
	// Publish last: an attacher racing with creation sees init==0 and fails
	// cleanly instead of using half-written lock words.
	atomic.StoreUint32(viewUint32(mem, initOffset), 1)
}

func attachHeader(mem []byte, want LockKind) error {
	if got := *viewUint32(mem, magicOffset); got != headerMagic {
		return fmt.Errorf("%w: bad header magic %#x", ErrBackend, got)
	}
	if got := *viewUint32(mem, versionOffset); got != headerVersion {
		return fmt.Errorf("%w: unsupported header version %d", ErrBackend, got)
	}
	if got := LockKind(*viewUint32(mem, kindOffset)); got != want {
		return fmt.Errorf("%w: header lock kind %s does not match identifier kind %s", ErrBackend, got, want)
	}
	if atomic.LoadUint32(viewUint32(mem, initOffset)) != 1 {
		return fmt.Errorf("%w: header not initialized by creator", ErrBackend)
	}
	return nil
}

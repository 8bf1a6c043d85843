package shm

import (
	"unsafe"
)

// The lock words live inside the mapping, so they are never reached through a
// Go-allocated variable. These helpers alias naturally aligned offsets of the
// mapped bytes as atomic words. The header keeps every word 4-byte aligned
// and the mapping itself is page aligned.

func viewUint32(mem []byte, off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&mem[off]))
}

func viewInt32(mem []byte, off int) *int32 {
	return (*int32)(unsafe.Pointer(&mem[off]))
}

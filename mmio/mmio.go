// Package mmio provides 32-bit access to memory-mapped register blocks.
//
// Driver code is written against the Bus32 interface so the same register
// protocol drives real hardware, through a window mapped from /dev/mem, and
// the simulated controllers used in tests.
package mmio

import (
	"sync/atomic"
	"unsafe"
)

const (
	badOffset    = "mmio: offset out of range"
	badAlignment = "mmio: offset not 32-bit aligned"
	badSize      = "mmio: block size not a multiple of 4"
)

// Bus32 is a 32-bit register bus. Offsets are in bytes from the start of the
// block and must be word aligned. Each call is a single bus transaction;
// read-modify-write sequences are the caller's responsibility.
type Bus32 interface {
	Read32(off uint32) uint32
	Write32(off, v uint32)
}

// Mem is a Bus32 over a block of ordinary memory. The block may be an
// allocated buffer or a window mapped from /dev/mem; either way accesses are
// single aligned 32-bit loads and stores, never torn or elided.
type Mem struct {
	buf []byte
}

// NewMem returns a zeroed block of the given size in bytes.
func NewMem(size uint32) *Mem {
	if size%4 != 0 {
		panic(badSize)
	}
	return &Mem{buf: make([]byte, size)}
}

// MemOver wraps an existing block, typically a mapped register window.
// The block must be word aligned and a multiple of 4 bytes long.
func MemOver(buf []byte) *Mem {
	if len(buf)%4 != 0 {
		panic(badSize)
	}
	if uintptr(unsafe.Pointer(&buf[0]))%4 != 0 {
		panic(badAlignment)
	}
	return &Mem{buf: buf}
}

// Read32 performs a single aligned 32-bit load.
func (m *Mem) Read32(off uint32) uint32 {
	return atomic.LoadUint32(m.word(off))
}

// Write32 performs a single aligned 32-bit store.
func (m *Mem) Write32(off, v uint32) {
	atomic.StoreUint32(m.word(off), v)
}

// Bytes returns the underlying block.
func (m *Mem) Bytes() []byte { return m.buf }

// Size returns the block length in bytes.
func (m *Mem) Size() uint32 { return uint32(len(m.buf)) }

func (m *Mem) word(off uint32) *uint32 {
	if off%4 != 0 {
		panic(badAlignment)
	}
	if uint64(off)+4 > uint64(len(m.buf)) {
		panic(badOffset)
	}
	return (*uint32)(unsafe.Pointer(&m.buf[off]))
}

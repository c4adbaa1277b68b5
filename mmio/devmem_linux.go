//go:build linux

package mmio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MapDevMem maps size bytes of physical address space starting at base
// through /dev/mem and returns it as a register block. The returned closer
// unmaps the window. base need not be page aligned; the mapping is extended
// down to the containing page.
func MapDevMem(base uintptr, size int) (*Mem, func() error, error) {
	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("mmio: open /dev/mem: %w", err)
	}
	defer f.Close()

	page := uintptr(unix.Getpagesize())
	pgBase := base &^ (page - 1)
	head := int(base - pgBase)
	mapLen := (head + size + int(page) - 1) &^ (int(page) - 1)

	raw, err := unix.Mmap(int(f.Fd()), int64(pgBase), mapLen,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("mmio: mmap %#x+%#x: %w", pgBase, mapLen, err)
	}

	window := raw[head : head+(size+3)&^3]
	closer := func() error { return unix.Munmap(raw) }
	return MemOver(window), closer, nil
}

// Package regio provides access to the 32-bit memory-mapped registers of the
// DVB-S2 encoder IP core.
//
// A Backend moves single 32-bit words to and from absolute addresses. There
// are four of them: a mapping of /dev/mem, a mapping of the XDMA user window,
// the external peek/poke tools, and an in-process fake. A Bus wraps exactly
// one Backend and serializes every access made through it. Regions view a
// slice of the address space through a Bus, and Fields describe bit ranges
// within a register of a Region.
package regio

import (
	"errors"
	"fmt"
)

// A Backend performs raw 32-bit register accesses at absolute addresses.
//
// A Backend is not safe for concurrent use. Wrap it in a Bus.
type Backend interface {
	Accessor

	// Close releases the handle that the backend holds.
	Close() error
}

// An Accessor reads and writes 32-bit words at absolute addresses.
type Accessor interface {
	Read32(addr uint32) (uint32, error)
	Write32(addr uint32, data uint32) error
}

// ErrBadOutput is returned when an external tool prints something that is not
// a hexadecimal word.
var ErrBadOutput = errors.New("unexpected register tool output")

func mustBeAligned(addr uint32) {
	if addr%4 != 0 {
		panic(fmt.Errorf("address 0x%08X is not aligned to 4 bytes", addr))
	}
}

// validDevicePages are the 64 KiB pages (bits [23:16] of the address) that
// the encoder address map occupies.
var validDevicePages = [...]uint32{0xC0, 0xC1, 0xC2}

func mustBeDeviceAddress(addr uint32) {
	page := (addr >> 16) & 0xFF
	for _, p := range validDevicePages {
		if page == p {
			return
		}
	}

	panic(fmt.Errorf("invalid address 0x%X", addr))
}

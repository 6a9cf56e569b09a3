package regio

import "fmt"

// A Region is a window of the register address space starting at a base
// address. Offsets passed to a Region are relative to its base.
type Region struct {
	bus    *Bus
	acc    Accessor
	locked bool
	base   uint32
	length uint32
}

// NewRegion creates a region of length bytes at base, accessed through bus.
func NewRegion(bus *Bus, base, length uint32) *Region {
	return &Region{
		bus:    bus,
		acc:    bus,
		base:   base,
		length: length,
	}
}

// Base returns the absolute address of offset 0.
func (r *Region) Base() uint32 {
	return r.base
}

// Length returns the size of the region in bytes.
func (r *Region) Length() uint32 {
	return r.length
}

// Bus returns the bus that the region goes through.
func (r *Region) Bus() *Bus {
	return r.bus
}

// Window returns the sub-region [offset, offset+length) of r. The window
// shares r's bus.
func (r *Region) Window(offset, length uint32) *Region {
	if uint64(offset)+uint64(length) > uint64(r.length) {
		panic(fmt.Errorf(
			"window 0x%X+0x%X exceeds region 0x%08X of 0x%X bytes",
			offset, length, r.base, r.length))
	}

	w := *r
	w.base = r.base + offset
	w.length = length

	return &w
}

// Read32 reads the register at offset.
func (r *Region) Read32(offset uint32) (uint32, error) {
	return r.acc.Read32(r.addr(offset))
}

// Write32 writes the register at offset.
func (r *Region) Write32(offset uint32, data uint32) error {
	return r.acc.Write32(r.addr(offset), data)
}

// Exclusive runs fn with a view of r that holds the bus lock for the whole
// call. Nested calls on the view run fn directly.
func (r *Region) Exclusive(fn func(r *Region) error) error {
	if r.locked {
		return fn(r)
	}

	return r.bus.Exclusive(func(acc Accessor) error {
		view := *r
		view.acc = acc
		view.locked = true

		return fn(&view)
	})
}

func (r *Region) addr(offset uint32) uint32 {
	if offset >= r.length {
		panic(fmt.Errorf(
			"offset 0x%X outside region 0x%08X of 0x%X bytes",
			offset, r.base, r.length))
	}

	return r.base + offset
}

package regio

// A Field is a bit range within one 32-bit register of a region.
type Field struct {
	Offset uint32
	Shift  uint8
	Width  uint8
}

// Bit returns a one-bit field.
func Bit(offset uint32, shift uint8) Field {
	return Field{Offset: offset, Shift: shift, Width: 1}
}

// Mask returns the unshifted mask of the field.
func (f Field) Mask() uint32 {
	if f.Width >= 32 {
		return ^uint32(0)
	}

	return uint32(1)<<f.Width - 1
}

// Extract pulls the field value out of a register word.
func (f Field) Extract(word uint32) uint32 {
	return (word >> f.Shift) & f.Mask()
}

// Insert returns word with the field replaced by value. Bits of value beyond
// the field width are dropped.
func (f Field) Insert(word, value uint32) uint32 {
	mask := f.Mask()

	return word&^(mask<<f.Shift) | (value&mask)<<f.Shift
}

// Get reads the field from r.
func (f Field) Get(r *Region) (uint32, error) {
	word, err := r.Read32(f.Offset)
	if err != nil {
		return 0, err
	}

	return f.Extract(word), nil
}

// Set performs a read-modify-write of the field in r. The read and the write
// happen under one bus lock.
func (f Field) Set(r *Region, value uint32) error {
	return r.Exclusive(func(r *Region) error {
		word, err := r.Read32(f.Offset)
		if err != nil {
			return err
		}

		return r.Write32(f.Offset, f.Insert(word, value))
	})
}

// GetBool reads a field and reports whether it is non-zero.
func (f Field) GetBool(r *Region) (bool, error) {
	v, err := f.Get(r)

	return v != 0, err
}

// SetBool sets a field to 1 or 0.
func (f Field) SetBool(r *Region, on bool) error {
	var v uint32
	if on {
		v = 1
	}

	return f.Set(r, v)
}

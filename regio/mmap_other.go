//go:build !unix

package regio

import "errors"

// Default device files for the mapped backends.
const (
	DevMemPath = "/dev/mem"
	XDMAPath   = "/dev/xdma0_user"
)

var errNoMmap = errors.New("memory-mapped register access needs a unix host")

// MappedMemory is unavailable on this platform.
type MappedMemory struct{}

// NewDevMem always fails on this platform.
func NewDevMem(string) (*MappedMemory, error) { return nil, errNoMmap }

// NewXDMA always fails on this platform.
func NewXDMA(string) (*MappedMemory, error) { return nil, errNoMmap }

// Map always fails on this platform.
func (m *MappedMemory) Map(uint32, uint32) error { return errNoMmap }

// Read32 always fails on this platform.
func (m *MappedMemory) Read32(uint32) (uint32, error) { return 0, errNoMmap }

// Write32 always fails on this platform.
func (m *MappedMemory) Write32(uint32, uint32) error { return errNoMmap }

// Close does nothing on this platform.
func (m *MappedMemory) Close() error { return nil }

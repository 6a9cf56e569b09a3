//go:build unix

package regio

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Default device files for the mapped backends.
const (
	DevMemPath = "/dev/mem"
	XDMAPath   = "/dev/xdma0_user"
)

// A MappedMemory accesses registers through mmap()ed windows of a device
// file: /dev/mem on the Zynq board, or the XDMA user BAR on a PCIe host.
type MappedMemory struct {
	file        *os.File
	windows     []mappedWindow
	zeroOnMap   bool
	description string
}

type mappedWindow struct {
	base uint32
	mem  []byte
}

// NewDevMem opens a memory device (normally /dev/mem) for mapping.
func NewDevMem(path string) (*MappedMemory, error) {
	if path == "" {
		path = DevMemPath
	}

	return openMapped(path, false)
}

// NewXDMA opens the XDMA user window. Each window mapped on it gets a write
// of 0 at its offset 0 so that the core starts from a known state.
func NewXDMA(path string) (*MappedMemory, error) {
	if path == "" {
		path = XDMAPath
	}

	return openMapped(path, true)
}

func openMapped(path string, zeroOnMap bool) (*MappedMemory, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}

	return &MappedMemory{
		file:        f,
		zeroOnMap:   zeroOnMap,
		description: path,
	}, nil
}

// Map maps length bytes of the device starting at base. base must be
// page-aligned.
func (m *MappedMemory) Map(base, length uint32) error {
	mem, err := unix.Mmap(int(m.file.Fd()), int64(base), int(length),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmap %s at 0x%08X+0x%X: %w",
			m.description, base, length, err)
	}

	m.windows = append(m.windows, mappedWindow{base: base, mem: mem})

	if m.zeroOnMap {
		return m.Write32(base, 0)
	}

	return nil
}

// Read32 loads the word at addr with a single 32-bit access.
func (m *MappedMemory) Read32(addr uint32) (uint32, error) {
	return atomic.LoadUint32(m.word(addr)), nil
}

// Write32 stores the word at addr with a single 32-bit access.
func (m *MappedMemory) Write32(addr uint32, data uint32) error {
	atomic.StoreUint32(m.word(addr), data)

	return nil
}

// Close unmaps every window and closes the device file.
func (m *MappedMemory) Close() error {
	var firstErr error

	for _, w := range m.windows {
		if err := unix.Munmap(w.mem); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	m.windows = nil

	if err := m.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

func (m *MappedMemory) word(addr uint32) *uint32 {
	for _, w := range m.windows {
		if addr >= w.base && uint64(addr)+4 <= uint64(w.base)+uint64(len(w.mem)) {
			return (*uint32)(unsafe.Pointer(&w.mem[addr-w.base]))
		}
	}

	panic(fmt.Errorf("address 0x%08X is not mapped on %s", addr, m.description))
}

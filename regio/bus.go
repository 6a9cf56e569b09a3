package regio

import (
	"fmt"
	"sync"
)

// A Bus owns one Backend and serializes every access made through it.
//
// All the regions that share a backend share its Bus, so logically
// independent register blocks contend on the same lock. Hooks registered on
// the bus observe every completed access.
type Bus struct {
	*HookableBase

	mu      sync.Mutex
	backend Backend
	closed  bool
}

// NewBus wraps a backend. The bus takes ownership of the backend and closes
// it in Close.
func NewBus(backend Backend) *Bus {
	return &Bus{
		HookableBase: NewHookableBase(),
		backend:      backend,
	}
}

// Read32 reads the word at an absolute address.
func (b *Bus) Read32(addr uint32) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.read(addr)
}

// Write32 writes the word at an absolute address.
func (b *Bus) Write32(addr uint32, data uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.write(addr, data)
}

// Exclusive runs fn while holding the bus lock. The Accessor passed to fn
// must be used for every access in the sequence; calling the Bus methods
// from inside fn deadlocks.
func (b *Bus) Exclusive(fn func(acc Accessor) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return fn(lockedBus{b})
}

// Close releases the backend. Closing twice is a no-op.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true

	return b.backend.Close()
}

func (b *Bus) read(addr uint32) (uint32, error) {
	mustBeAligned(addr)
	b.mustBeOpen()

	data, err := b.backend.Read32(addr)
	if err != nil {
		return 0, fmt.Errorf("read 0x%08X: %w", addr, err)
	}

	b.InvokeHook(HookCtx{
		Domain: b,
		Pos:    HookPosRead,
		Item:   Access{Addr: addr, Data: data},
	})

	return data, nil
}

func (b *Bus) write(addr uint32, data uint32) error {
	mustBeAligned(addr)
	b.mustBeOpen()

	err := b.backend.Write32(addr, data)
	if err != nil {
		return fmt.Errorf("write 0x%08X <= 0x%08X: %w", addr, data, err)
	}

	b.InvokeHook(HookCtx{
		Domain: b,
		Pos:    HookPosWrite,
		Item:   Access{Addr: addr, Data: data},
	})

	return nil
}

func (b *Bus) mustBeOpen() {
	if b.closed {
		panic("register access on a closed bus")
	}
}

// lockedBus is handed to Exclusive callbacks. Its methods assume the bus
// lock is already held.
type lockedBus struct {
	bus *Bus
}

func (l lockedBus) Read32(addr uint32) (uint32, error) {
	return l.bus.read(addr)
}

func (l lockedBus) Write32(addr uint32, data uint32) error {
	return l.bus.write(addr, data)
}

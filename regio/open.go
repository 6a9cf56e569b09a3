package regio

import "fmt"

// Kind selects one of the backends.
type Kind string

// Backend kinds.
const (
	KindDevMem   Kind = "devmem"
	KindXDMA     Kind = "xdma"
	KindPeekPoke Kind = "peekpoke"
	KindFake     Kind = "fake"
)

// ParseKind converts a backend name into a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindDevMem, KindXDMA, KindPeekPoke, KindFake:
		return k, nil
	default:
		return "", fmt.Errorf("unknown register backend %q", s)
	}
}

// A Window is an absolute address range that a mapped backend must cover.
type Window struct {
	Base   uint32
	Length uint32
}

// Config describes the backend to open. It is resolved by the caller before
// any register block is built.
type Config struct {
	Kind Kind

	// Device overrides the device file of the mapped backends.
	Device string

	// Windows lists the ranges to map. Only the mapped backends use it.
	Windows []Window

	// PeekCommand and PokeCommand override the tools of the peek/poke
	// backend.
	PeekCommand string
	PokeCommand string
}

// Open creates the configured backend and wraps it in a Bus.
func Open(cfg Config) (*Bus, error) {
	switch cfg.Kind {
	case KindFake:
		return NewBus(NewFake()), nil
	case KindPeekPoke:
		return NewBus(NewPeekPoke(cfg.PeekCommand, cfg.PokeCommand)), nil
	case KindDevMem, KindXDMA:
		return openMappedBus(cfg)
	default:
		return nil, fmt.Errorf("unknown register backend %q", cfg.Kind)
	}
}

func openMappedBus(cfg Config) (*Bus, error) {
	var (
		m   *MappedMemory
		err error
	)

	if cfg.Kind == KindXDMA {
		m, err = NewXDMA(cfg.Device)
	} else {
		m, err = NewDevMem(cfg.Device)
	}

	if err != nil {
		return nil, err
	}

	for _, w := range cfg.Windows {
		if err := m.Map(w.Base, w.Length); err != nil {
			_ = m.Close()
			return nil, err
		}
	}

	return NewBus(m), nil
}

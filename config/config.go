// Package config resolves where the encoder lives and how to reach it. It
// reads DVB_* variables from the environment, optionally loaded from .env
// files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/sarchlab/dvbenc/axi"
	"github.com/sarchlab/dvbenc/encoder"
	"github.com/sarchlab/dvbenc/regio"
)

// Environment variables read by Load.
const (
	EnvBackend    = "DVB_BACKEND"
	EnvDevice     = "DVB_DEVICE"
	EnvBaseAddr   = "DVB_BASE_ADDR"
	EnvLength     = "DVB_LENGTH"
	EnvFIFOAddr   = "DVB_FIFO_ADDR"
	EnvFIFOLength = "DVB_FIFO_LENGTH"
	EnvPeek       = "DVB_PEEK"
	EnvPoke       = "DVB_POKE"
	EnvTraceDB    = "DVB_TRACE_DB"
)

// Config is the resolved placement of the encoder and its backend.
type Config struct {
	Backend regio.Kind
	Device  string

	BaseAddr uint32
	Length   uint32

	// FIFOAddr is the absolute address of the data FIFO. Zero means the
	// encoder is used without one.
	FIFOAddr   uint32
	FIFOLength uint32

	PeekCommand string
	PokeCommand string

	// TraceDB names the SQLite file that receives the register accesses.
	// Empty disables recording.
	TraceDB string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Backend:    defaultBackend(),
		BaseAddr:   encoder.DefaultBaseAddress,
		Length:     encoder.DefaultLength,
		FIFOLength: axi.StreamFIFOLength,
	}
}

// Boards run the peek/poke tools; everything else gets the fake.
func defaultBackend() regio.Kind {
	if runtime.GOARCH == "arm" {
		return regio.KindPeekPoke
	}

	return regio.KindFake
}

// Load reads envFiles into the environment and builds a Config from it.
// Variables that are already set win over the files. Without envFiles, a
// .env file in the working directory is used if there is one.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return Config{}, fmt.Errorf("loading %v: %w", envFiles, err)
	}

	return FromEnv()
}

// FromEnv builds a Config from the DVB_* variables, starting from Default.
func FromEnv() (Config, error) {
	c := Default()

	if v, ok := os.LookupEnv(EnvBackend); ok && v != "" {
		kind, err := regio.ParseKind(v)
		if err != nil {
			return Config{}, err
		}

		c.Backend = kind
	}

	c.Device = os.Getenv(EnvDevice)
	c.PeekCommand = os.Getenv(EnvPeek)
	c.PokeCommand = os.Getenv(EnvPoke)
	c.TraceDB = os.Getenv(EnvTraceDB)

	numbers := []struct {
		name string
		dst  *uint32
	}{
		{EnvBaseAddr, &c.BaseAddr},
		{EnvLength, &c.Length},
		{EnvFIFOAddr, &c.FIFOAddr},
		{EnvFIFOLength, &c.FIFOLength},
	}

	for _, n := range numbers {
		v, ok := os.LookupEnv(n.name)
		if !ok || v == "" {
			continue
		}

		parsed, err := ParseWord(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", n.name, err)
		}

		*n.dst = parsed
	}

	if c.HasFIFO() && c.FIFOLength < axi.StreamFIFOLength {
		return Config{}, fmt.Errorf(
			"%s: 0x%X is smaller than the 0x%X bytes of the FIFO registers",
			EnvFIFOLength, c.FIFOLength, axi.StreamFIFOLength)
	}

	return c, nil
}

// ParseWord parses a 32-bit value written in decimal, or in hex, octal or
// binary with the usual Go prefixes.
func ParseWord(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid 32-bit value %q", s)
	}

	return uint32(v), nil
}

// HasFIFO reports whether a data FIFO is configured.
func (c Config) HasFIFO() bool {
	return c.FIFOAddr != 0
}

// Regio returns the backend description, mapping the encoder window and,
// if configured, the FIFO window.
func (c Config) Regio() regio.Config {
	windows := []regio.Window{{Base: c.BaseAddr, Length: c.Length}}
	if c.HasFIFO() {
		windows = append(windows, regio.Window{Base: c.FIFOAddr, Length: c.FIFOLength})
	}

	return regio.Config{
		Kind:        c.Backend,
		Device:      c.Device,
		Windows:     windows,
		PeekCommand: c.PeekCommand,
		PokeCommand: c.PokeCommand,
	}
}

// Builder returns an encoder builder placed according to c.
func (c Config) Builder(bus *regio.Bus) encoder.Builder {
	b := encoder.MakeBuilder().
		WithBus(bus).
		WithBaseAddress(c.BaseAddr).
		WithLength(c.Length)

	if c.HasFIFO() {
		b = b.WithDataFIFO(c.FIFOAddr)
	}

	return b
}

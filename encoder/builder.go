package encoder

import (
	"io"
	"log"

	"github.com/sarchlab/dvbenc/axi"
	"github.com/sarchlab/dvbenc/regio"
)

// Default placement of the encoder core on the register bus.
const (
	DefaultBaseAddress = 0x43C00000
	DefaultLength      = 0x4000
)

// Builder can be used to build an Encoder.
type Builder struct {
	bus      *regio.Bus
	base     uint32
	length   uint32
	withFIFO bool
	fifoBase uint32
	logger   *log.Logger
}

// MakeBuilder creates a builder with the default placement.
func MakeBuilder() Builder {
	return Builder{
		base:   DefaultBaseAddress,
		length: DefaultLength,
	}
}

// WithBus sets the bus that carries every register access.
func (b Builder) WithBus(bus *regio.Bus) Builder {
	b.bus = bus
	return b
}

// WithBaseAddress sets the absolute address of the encoder registers.
func (b Builder) WithBaseAddress(addr uint32) Builder {
	b.base = addr
	return b
}

// WithLength sets the size of the encoder register window.
func (b Builder) WithLength(length uint32) Builder {
	b.length = length
	return b
}

// WithDataFIFO adds the AXI4-Stream FIFO that feeds the encoder, at the
// given absolute address.
func (b Builder) WithDataFIFO(addr uint32) Builder {
	b.withFIFO = true
	b.fifoBase = addr

	return b
}

// WithLogger sets the logger that receives progress messages.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.bus == nil {
		panic("encoder needs a register bus")
	}

	if b.length < stagesEnd {
		panic("encoder register window does not cover the debug blocks")
	}
}

// Build builds the encoder.
func (b Builder) Build() *Encoder {
	b.parametersMustBeValid()

	logger := b.logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	e := &Encoder{
		bus:    b.bus,
		region: regio.NewRegion(b.bus, b.base, b.length),
		logger: logger,
		byName: make(map[string]*axi.DebugBlock),
	}

	for i, name := range StageNames {
		block := axi.NewDebugBlock(name, e.region, firstStageOffset+uint32(i)*stageStride)
		e.stages = append(e.stages, block)
		e.byName[name] = block
	}

	if b.withFIFO {
		fifoRegion := regio.NewRegion(b.bus, b.fifoBase, axi.StreamFIFOLength)
		e.fifo = axi.NewStreamFIFO(fifoRegion, logger)
	}

	return e
}

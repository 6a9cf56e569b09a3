// Package encoder controls the DVB-S2 encoder core: its global settings,
// the bit mapper RAM and polyphase filter, the debug blocks between its
// pipeline stages, and the data FIFO that feeds it.
package encoder

import (
	"errors"
	"log"

	"github.com/sarchlab/dvbenc/axi"
	"github.com/sarchlab/dvbenc/dvbs2"
	"github.com/sarchlab/dvbenc/regio"
)

// ErrNoDataFIFO is returned by the data path operations of an encoder built
// without a data FIFO.
var ErrNoDataFIFO = errors.New("encoder has no data FIFO")

// Pipeline stages, in stream order. Each has a debug block on its output.
const (
	StageInputWidthConverter = "input_width_converter"
	StageBBScrambler         = "bb_scrambler"
	StageBCHEncoder          = "bch_encoder"
	StageLDPCEncoder         = "ldpc_encoder"
	StageBitInterleaver      = "bit_interleaver"
	StagePLFrame             = "plframe"
	StageOutput              = "output"
)

// StageNames lists the stages in stream order.
var StageNames = []string{
	StageInputWidthConverter,
	StageBBScrambler,
	StageBCHEncoder,
	StageLDPCEncoder,
	StageBitInterleaver,
	StagePLFrame,
	StageOutput,
}

const (
	firstStageOffset = 0xD00
	stageStride      = 0x100
	stagesEnd        = firstStageOffset + 7*stageStride
)

// Global register fields.
var (
	PLScramblerInitField = regio.Field{Offset: 0x0, Shift: 0, Width: 18}
	DummyFramesField     = regio.Bit(0x0, 18)

	LDPCFIFOEntriesField = regio.Field{Offset: 0x4, Shift: 0, Width: 14}
	LDPCFIFOEmptyField   = regio.Bit(0x4, 16)
	LDPCFIFOFullField    = regio.Bit(0x4, 17)

	FramesInTransitField = regio.Field{Offset: 0x8, Shift: 0, Width: 8}
)

// LDPCFIFOStatus is the state of the FIFO in front of the LDPC encoder.
type LDPCFIFOStatus struct {
	Entries uint32 `json:"entries"`
	Empty   bool   `json:"empty"`
	Full    bool   `json:"full"`
}

// An Encoder is the software handle of one encoder core.
type Encoder struct {
	bus    *regio.Bus
	region *regio.Region
	logger *log.Logger

	stages []*axi.DebugBlock
	byName map[string]*axi.DebugBlock

	fifo *axi.StreamFIFO
}

// Region returns the register window of the encoder.
func (e *Encoder) Region() *regio.Region {
	return e.region
}

// Bus returns the bus the encoder is attached to.
func (e *Encoder) Bus() *regio.Bus {
	return e.bus
}

// Stages returns the debug blocks in stream order.
func (e *Encoder) Stages() []*axi.DebugBlock {
	return e.stages
}

// Stage returns the debug block after the named stage.
func (e *Encoder) Stage(name string) (*axi.DebugBlock, bool) {
	block, ok := e.byName[name]
	return block, ok
}

// DataFIFO returns the data FIFO, or nil if the encoder has none.
func (e *Encoder) DataFIFO() *axi.StreamFIFO {
	return e.fifo
}

// Locate names the register block that holds addr: "encoder",
// "encoder.<stage>" for a debug block, "fifo" for the data FIFO, or "" for
// an address outside the encoder.
func (e *Encoder) Locate(addr uint32) string {
	if e.fifo != nil && contains(e.fifo.Region(), addr) {
		return "fifo"
	}

	if !contains(e.region, addr) {
		return ""
	}

	for _, s := range e.stages {
		if contains(s.Region(), addr) {
			return "encoder." + s.Name()
		}
	}

	return "encoder"
}

func contains(r *regio.Region, addr uint32) bool {
	return addr >= r.Base() && uint64(addr) < uint64(r.Base())+uint64(r.Length())
}

// Init loads the polyphase filter coefficients.
func (e *Encoder) Init() error {
	e.logger.Printf("initializing DVB encoder at 0x%08X", e.region.Base())

	return e.WritePolyphaseFilterCoefficients()
}

// PLScramblerInit returns the initial value of the physical layer scrambler
// shift register.
func (e *Encoder) PLScramblerInit() (uint32, error) {
	return PLScramblerInitField.Get(e.region)
}

// SetPLScramblerInit sets the initial value of the physical layer scrambler
// shift register. Only the low 18 bits are used.
func (e *Encoder) SetPLScramblerInit(v uint32) error {
	return PLScramblerInitField.Set(e.region, v)
}

// DummyFrames reports whether dummy frames are inserted when no data is
// available.
func (e *Encoder) DummyFrames() (bool, error) {
	return DummyFramesField.GetBool(e.region)
}

// SetDummyFrames enables or disables dummy frame insertion.
func (e *Encoder) SetDummyFrames(on bool) error {
	return DummyFramesField.SetBool(e.region, on)
}

// LDPCFIFOStatus reads the LDPC FIFO status register once.
func (e *Encoder) LDPCFIFOStatus() (LDPCFIFOStatus, error) {
	word, err := e.region.Read32(LDPCFIFOEntriesField.Offset)
	if err != nil {
		return LDPCFIFOStatus{}, err
	}

	return LDPCFIFOStatus{
		Entries: LDPCFIFOEntriesField.Extract(word),
		Empty:   LDPCFIFOEmptyField.Extract(word) != 0,
		Full:    LDPCFIFOFullField.Extract(word) != 0,
	}, nil
}

// FramesInTransit returns the number of frames inside the pipeline.
func (e *Encoder) FramesInTransit() (uint32, error) {
	return FramesInTransitField.Get(e.region)
}

// Configure loads the bit mapper RAM for cfg and returns the TID that
// selects cfg on the data stream.
func (e *Encoder) Configure(cfg dvbs2.Config) (uint8, error) {
	tid, err := dvbs2.TID(cfg)
	if err != nil {
		return 0, err
	}

	if err := e.UpdateBitMapperRAM(cfg); err != nil {
		return 0, err
	}

	return tid, nil
}

// Transmit configures the encoder for cfg and sends one frame of data
// through the data FIFO.
func (e *Encoder) Transmit(data []byte, cfg dvbs2.Config) error {
	if e.fifo == nil {
		return ErrNoDataFIFO
	}

	tid, err := e.Configure(cfg)
	if err != nil {
		return err
	}

	e.logger.Printf("transmitting %d bytes as %s (TID 0x%02X)", len(data), cfg, tid)

	return e.fifo.Send(data, uint32(tid))
}

// Receive reads entries words back from the data FIFO. With entries <= 0
// it reads whatever the FIFO holds.
func (e *Encoder) Receive(entries int) ([]byte, error) {
	if e.fifo == nil {
		return nil, ErrNoDataFIFO
	}

	return e.fifo.Receive(entries)
}

// Reset resets the data FIFO and forgets the debug block snapshots.
func (e *Encoder) Reset() error {
	for _, s := range e.stages {
		s.Clear()
	}

	if e.fifo == nil {
		return nil
	}

	if err := e.fifo.Reset(); err != nil {
		return err
	}

	return e.fifo.Init()
}

// Close releases the register bus. The encoder must not be used after
// Close.
func (e *Encoder) Close() error {
	return e.bus.Close()
}

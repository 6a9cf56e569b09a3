// Package axi drives the AXI register blocks that surround the encoder
// pipeline: the per-stage debug blocks and the AXI4-Stream data FIFO.
package axi

import (
	"sync"

	"github.com/sarchlab/dvbenc/regio"
)

// DebugBlockLength is the size of the register window of a debug block.
const DebugBlockLength = 0x18

// Debug block register offsets.
const (
	DebugControl         = 0x00
	DebugFrameCount      = 0x04
	DebugLastFrameLength = 0x08
	DebugFrameLengths    = 0x0C
	DebugWordCount       = 0x10
	DebugStrobes         = 0x14
)

// Debug block fields.
var (
	BlockData  = regio.Bit(DebugControl, 0)
	AllowWord  = regio.Bit(DebugControl, 1)
	AllowFrame = regio.Bit(DebugControl, 2)

	MaxFrameLengthField = regio.Field{Offset: DebugFrameLengths, Shift: 16, Width: 16}
	MinFrameLengthField = regio.Field{Offset: DebugFrameLengths, Shift: 0, Width: 16}

	STValid = regio.Bit(DebugStrobes, 0)
	STReady = regio.Bit(DebugStrobes, 1)
	MTValid = regio.Bit(DebugStrobes, 2)
	MTReady = regio.Bit(DebugStrobes, 3)
)

// Handshake is the valid/ready pair of one AXI4-Stream interface.
type Handshake struct {
	TValid bool `json:"tvalid"`
	TReady bool `json:"tready"`
}

// Strobes holds the sampled handshake signals on both sides of a stage.
type Strobes struct {
	Slave  Handshake `json:"slave"`
	Master Handshake `json:"master"`
}

// FrameLengths are the longest and shortest frames the stage has seen.
type FrameLengths struct {
	Max uint32 `json:"max"`
	Min uint32 `json:"min"`
}

// Snapshot is the software copy of the counters taken by the last Update.
// The frame lengths are nil until the first Update.
type Snapshot struct {
	WordCount      uint32  `json:"word_count"`
	MaxFrameLength *uint32 `json:"max_frame_length"`
	MinFrameLength *uint32 `json:"min_frame_length"`
}

// A DebugBlock monitors and gates the stream between two stages of the
// encoder.
type DebugBlock struct {
	name   string
	region *regio.Region

	mu       sync.Mutex
	snapshot Snapshot
}

// NewDebugBlock creates a debug block whose registers start at offset of
// parent.
func NewDebugBlock(name string, parent *regio.Region, offset uint32) *DebugBlock {
	return &DebugBlock{
		name:   name,
		region: parent.Window(offset, DebugBlockLength),
	}
}

// Name returns the name of the stage the block sits after.
func (d *DebugBlock) Name() string {
	return d.name
}

// Region returns the register window of the block.
func (d *DebugBlock) Region() *regio.Region {
	return d.region
}

// Update reads the word count and frame lengths into the snapshot.
func (d *DebugBlock) Update() error {
	words, err := d.WordCount()
	if err != nil {
		return err
	}

	lengths, err := d.FrameLengths()
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.snapshot = Snapshot{
		WordCount:      words,
		MaxFrameLength: &lengths.Max,
		MinFrameLength: &lengths.Min,
	}

	return nil
}

// Clear forgets the snapshot. It does not touch the hardware counters.
func (d *DebugBlock) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.snapshot = Snapshot{}
}

// Snapshot returns a copy of the values taken by the last Update.
func (d *DebugBlock) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.snapshot
	if s.MaxFrameLength != nil {
		longest := *s.MaxFrameLength
		s.MaxFrameLength = &longest
	}

	if s.MinFrameLength != nil {
		shortest := *s.MinFrameLength
		s.MinFrameLength = &shortest
	}

	return s
}

// BlockData reports whether the block holds the stream.
func (d *DebugBlock) BlockData() (bool, error) {
	return BlockData.GetBool(d.region)
}

// SetBlockData holds or releases the stream.
func (d *DebugBlock) SetBlockData(on bool) error {
	return BlockData.SetBool(d.region, on)
}

// AllowWord reports the allow_word control bit.
func (d *DebugBlock) AllowWord() (bool, error) {
	return AllowWord.GetBool(d.region)
}

// SetAllowWord lets a single word through a blocked stream.
func (d *DebugBlock) SetAllowWord(on bool) error {
	return AllowWord.SetBool(d.region, on)
}

// AllowFrame reports the allow_frame control bit.
func (d *DebugBlock) AllowFrame() (bool, error) {
	return AllowFrame.GetBool(d.region)
}

// SetAllowFrame lets a single frame through a blocked stream.
func (d *DebugBlock) SetAllowFrame(on bool) error {
	return AllowFrame.SetBool(d.region, on)
}

// FrameCount returns the number of frames seen.
func (d *DebugBlock) FrameCount() (uint32, error) {
	return d.region.Read32(DebugFrameCount)
}

// LastFrameLength returns the length of the most recent frame in words.
func (d *DebugBlock) LastFrameLength() (uint32, error) {
	return d.region.Read32(DebugLastFrameLength)
}

// FrameLengths reads the max and min frame lengths with a single access.
func (d *DebugBlock) FrameLengths() (FrameLengths, error) {
	word, err := d.region.Read32(DebugFrameLengths)
	if err != nil {
		return FrameLengths{}, err
	}

	return FrameLengths{
		Max: MaxFrameLengthField.Extract(word),
		Min: MinFrameLengthField.Extract(word),
	}, nil
}

// WordCount returns the number of words seen.
func (d *DebugBlock) WordCount() (uint32, error) {
	return d.region.Read32(DebugWordCount)
}

// Strobes samples the handshake signals.
func (d *DebugBlock) Strobes() (Strobes, error) {
	word, err := d.region.Read32(DebugStrobes)
	if err != nil {
		return Strobes{}, err
	}

	return Strobes{
		Slave: Handshake{
			TValid: STValid.Extract(word) != 0,
			TReady: STReady.Extract(word) != 0,
		},
		Master: Handshake{
			TValid: MTValid.Extract(word) != 0,
			TReady: MTReady.Extract(word) != 0,
		},
	}, nil
}

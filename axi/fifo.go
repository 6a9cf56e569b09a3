package axi

import (
	"encoding/binary"
	"io"
	"log"

	"github.com/sarchlab/dvbenc/regio"
)

// StreamFIFOLength is the size of the register window of the FIFO.
const StreamFIFOLength = 0x44

// AXI4-Stream FIFO register offsets.
const (
	ISR   = 0x00 // interrupt status, write 1 to clear
	IER   = 0x04 // interrupt enable
	TDFR  = 0x08 // transmit data FIFO reset
	TDFV  = 0x0C // transmit data FIFO vacancy
	TDFD  = 0x10 // transmit data FIFO data
	TLR   = 0x14 // transmit length
	RDFR  = 0x18 // receive data FIFO reset
	RDFO  = 0x1C // receive data FIFO occupancy
	RDFD  = 0x20 // receive data FIFO data
	RLR   = 0x24 // receive length
	SRR   = 0x28 // AXI4-Stream reset
	TDR   = 0x2C // transmit destination
	RDR   = 0x30 // receive destination
	TID   = 0x34
	TUSER = 0x38
	RID   = 0x3C
	RUSER = 0x40
)

// ResetKey is the value that triggers a reset when written to TDFR, RDFR or
// SRR.
const ResetKey = 0xA5

// Interrupt masks used by the transfer sequences.
const (
	txCompleteInterrupts = 0x0C000000
	cutThroughInterrupts = 0x04100000
	rxCutThroughStatus   = 0x00100000
	clearAllInterrupts   = 0xFFFFFFFF
)

var (
	rxPartial = regio.Bit(RLR, 31)
	rxLength  = regio.Field{Offset: RLR, Shift: 0, Width: 30}
)

// RxLength is the decoded receive length register.
type RxLength struct {
	Partial bool
	Length  uint32
}

// Frame is a packet taken from the receive side together with its sideband
// signals.
type Frame struct {
	Dest uint32
	ID   uint32
	User uint32
	Data []byte
}

// A StreamFIFO moves packets between software and an AXI4-Stream through
// the FIFO's data ports.
type StreamFIFO struct {
	region *regio.Region
	logger *log.Logger
}

// NewStreamFIFO creates a FIFO driver over region. A nil logger discards the
// progress messages.
func NewStreamFIFO(region *regio.Region, logger *log.Logger) *StreamFIFO {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &StreamFIFO{
		region: region,
		logger: logger,
	}
}

// Region returns the register window of the FIFO.
func (f *StreamFIFO) Region() *regio.Region {
	return f.region
}

// Reset resets the transmit FIFO, the stream and the receive FIFO.
func (f *StreamFIFO) Reset() error {
	f.logger.Printf("axi fifo 0x%08X: reset", f.region.Base())

	return f.region.Exclusive(func(r *regio.Region) error {
		for _, offset := range []uint32{TDFR, SRR, RDFR} {
			if err := r.Write32(offset, ResetKey); err != nil {
				return err
			}
		}

		return nil
	})
}

// Init clears every pending interrupt.
func (f *StreamFIFO) Init() error {
	if err := f.region.Write32(ISR, clearAllInterrupts); err != nil {
		return err
	}

	ier, err := f.region.Read32(IER)
	if err != nil {
		return err
	}

	vacancy, err := f.TxVacancy()
	if err != nil {
		return err
	}

	occupancy, err := f.RxOccupancy()
	if err != nil {
		return err
	}

	f.logger.Printf("axi fifo 0x%08X: IER=0x%08X tx vacancy=%d rx occupancy=%d",
		f.region.Base(), ier, vacancy, occupancy)

	return nil
}

// Send writes one packet with the given transmit ID, which is also placed on
// TUSER. The packet is written as big-endian words; a short last chunk is
// sent as the big-endian value of its bytes.
func (f *StreamFIFO) Send(data []byte, tid uint32) error {
	words := packWords(data)

	f.logger.Printf("axi fifo 0x%08X: sending %d bytes (%d beats), TID=%d",
		f.region.Base(), len(data), len(words), tid)

	return f.region.Exclusive(func(r *regio.Region) error {
		header := [][2]uint32{
			{IER, txCompleteInterrupts},
			{TDR, 0},
			{TID, tid},
			{TUSER, tid},
		}
		for _, w := range header {
			if err := r.Write32(w[0], w[1]); err != nil {
				return err
			}
		}

		for _, word := range words {
			if err := r.Write32(TDFD, word); err != nil {
				return err
			}
		}

		if err := r.Write32(TLR, uint32(len(data))); err != nil {
			return err
		}

		return r.Write32(ISR, clearAllInterrupts)
	})
}

// Receive reads entries words from the receive FIFO. With entries <= 0 it
// reads as many words as the FIFO holds. Each word's byte pairs are
// swapped: 0xAABBCCDD yields BB AA DD CC.
func (f *StreamFIFO) Receive(entries int) ([]byte, error) {
	if entries <= 0 {
		occupancy, err := f.RxOccupancy()
		if err != nil {
			return nil, err
		}

		entries = int(occupancy)
	}

	f.logger.Printf("axi fifo 0x%08X: reading %d entries", f.region.Base(), entries)

	result := make([]byte, 0, 4*entries)
	err := f.region.Exclusive(func(r *regio.Region) error {
		for i := 0; i < entries; i++ {
			word, err := r.Read32(RDFD)
			if err != nil {
				return err
			}

			result = appendSwizzled(result, word)
		}

		return nil
	})

	return result, err
}

// ReceiveFrame reads one packet in cut-through mode, including its
// destination, ID and user sideband.
func (f *StreamFIFO) ReceiveFrame() (Frame, error) {
	var frame Frame

	err := f.region.Exclusive(func(r *regio.Region) error {
		if err := r.Write32(IER, cutThroughInterrupts); err != nil {
			return err
		}

		if err := r.Write32(ISR, rxCutThroughStatus); err != nil {
			return err
		}

		length, err := readRxLength(r)
		if err != nil {
			return err
		}

		f.logger.Printf("axi fifo 0x%08X: partial=%t length=%d",
			r.Base(), length.Partial, length.Length)

		sideband := []*uint32{&frame.Dest, &frame.ID, &frame.User}
		for i, offset := range []uint32{RDR, RID, RUSER} {
			if *sideband[i], err = r.Read32(offset); err != nil {
				return err
			}
		}

		entries := (length.Length + 3) / 4
		data := make([]byte, 0, 4*entries)

		for i := uint32(0); i < entries; i++ {
			word, err := r.Read32(RDFD)
			if err != nil {
				return err
			}

			data = appendSwizzled(data, word)
		}

		frame.Data = data[:length.Length]

		return nil
	})

	return frame, err
}

// RxLength reads the receive length register.
func (f *StreamFIFO) RxLength() (RxLength, error) {
	return readRxLength(f.region)
}

// TxVacancy returns the free space of the transmit FIFO in words.
func (f *StreamFIFO) TxVacancy() (uint32, error) {
	return f.region.Read32(TDFV)
}

// RxOccupancy returns the number of words in the receive FIFO.
func (f *StreamFIFO) RxOccupancy() (uint32, error) {
	return f.region.Read32(RDFO)
}

func readRxLength(r *regio.Region) (RxLength, error) {
	word, err := r.Read32(RLR)
	if err != nil {
		return RxLength{}, err
	}

	return RxLength{
		Partial: rxPartial.Extract(word) != 0,
		Length:  rxLength.Extract(word),
	}, nil
}

func packWords(data []byte) []uint32 {
	words := make([]uint32, 0, (len(data)+3)/4)

	for i := 0; i < len(data); i += 4 {
		end := min(i+4, len(data))

		var word uint32
		for _, b := range data[i:end] {
			word = word<<8 | uint32(b)
		}

		words = append(words, word)
	}

	return words
}

func appendSwizzled(dst []byte, word uint32) []byte {
	var be [4]byte
	binary.BigEndian.PutUint32(be[:], word)

	return append(dst, be[1], be[0], be[3], be[2])
}

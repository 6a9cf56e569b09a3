package encoder

import (
	"fmt"
	"io"

	"github.com/sarchlab/dvbenc/dvbs2"
	"github.com/sarchlab/dvbenc/fixedpoint"
	"github.com/sarchlab/dvbenc/regio"
)

// BitMapperRAMOffset is the offset of the first bit mapper RAM word. Word i
// holds symbol i of the shared RAM, I in the high half and Q in the low half.
const BitMapperRAMOffset = 0x0C

// PolyphaseFilterOffset is the offset of the first polyphase filter
// coefficient.
const PolyphaseFilterOffset = 0x3D0

// polyphaseFilterCoefficients are the taps of the interpolating filter, one
// word per tap with the same 16-bit value in both halves.
var polyphaseFilterCoefficients = [...]uint32{
	0x003C003C, 0xFFF6FFF6, 0xFFC8FFC8, 0x00410041,
	0x000B000B, 0xFF75FF75, 0x00640064, 0x00E000E0,
	0xFECAFECA, 0xFECBFECB, 0x02B702B7, 0x017D017D,
	0xFA18FA18, 0xFE52FE52, 0x140B140B, 0x21B621B6,
	0x140B140B, 0xFE52FE52, 0xFA18FA18, 0x017D017D,
	0x02B702B7, 0xFECBFECB, 0xFECAFECA, 0x00E000E0,
	0x00640064, 0xFF75FF75, 0x000B000B, 0x00410041,
	0xFFC8FFC8, 0xFFF6FFF6, 0x003C003C, 0xFFE8FFE8,
}

func bitMapperAddr(symbol uint32) uint32 {
	return BitMapperRAMOffset + 4*symbol
}

// WritePolyphaseFilterCoefficients loads the fixed filter taps.
func (e *Encoder) WritePolyphaseFilterCoefficients() error {
	e.logger.Printf("updating polyphase filter coefficients")

	return e.region.Exclusive(func(r *regio.Region) error {
		for i, c := range polyphaseFilterCoefficients {
			if err := r.Write32(PolyphaseFilterOffset+4*uint32(i), c); err != nil {
				return err
			}
		}

		return nil
	})
}

// UpdateBitMapperRAM writes the constellation table of cfg into the
// constellation's slice of the bit mapper RAM.
func (e *Encoder) UpdateBitMapperRAM(cfg dvbs2.Config) error {
	base, err := cfg.Constellation.RAMBase()
	if err != nil {
		return err
	}

	table, err := dvbs2.ModulationTable(cfg)
	if err != nil {
		return err
	}

	if _, ok := dvbs2.RingRadii(cfg); !ok {
		e.logger.Printf("no ring ratio for %s, inner rings are loaded with radius 0", cfg)
	}

	e.logger.Printf("updating bit mapper RAM for %s", cfg.Constellation)

	return e.region.Exclusive(func(r *regio.Region) error {
		for i, p := range table {
			word := fixedpoint.Pack(p.I, p.Q)
			if err := r.Write32(bitMapperAddr(base+uint32(i)), word); err != nil {
				return err
			}
		}

		return nil
	})
}

// ReadBitMapperRAM reads back the points loaded for a constellation.
func (e *Encoder) ReadBitMapperRAM(c dvbs2.Constellation) ([]dvbs2.Point, error) {
	words, err := e.readBitMapperWords(c)
	if err != nil {
		return nil, err
	}

	points := make([]dvbs2.Point, len(words))
	for i, w := range words {
		points[i].I, points[i].Q = fixedpoint.Unpack(w)
	}

	return points, nil
}

func (e *Encoder) readBitMapperWords(c dvbs2.Constellation) ([]uint32, error) {
	base, err := c.RAMBase()
	if err != nil {
		return nil, err
	}

	words := make([]uint32, c.Symbols())
	err = e.region.Exclusive(func(r *regio.Region) error {
		for i := range words {
			w, err := r.Read32(bitMapperAddr(base + uint32(i)))
			if err != nil {
				return err
			}

			words[i] = w
		}

		return nil
	})

	return words, err
}

// WriteConstellationMap prints the bit mapper RAM content of a
// constellation, one symbol per line.
func (e *Encoder) WriteConstellationMap(w io.Writer, c dvbs2.Constellation) error {
	base, err := c.RAMBase()
	if err != nil {
		return err
	}

	words, err := e.readBitMapperWords(c)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Bit mapper RAM - %s\n", c); err != nil {
		return err
	}

	for i, word := range words {
		iv, qv := fixedpoint.Unpack(word)

		_, err := fmt.Fprintf(w, "%2d | 0x%03X | 0x%08X | % .4f, % .4f\n",
			i, bitMapperAddr(base+uint32(i)), word, iv, qv)
		if err != nil {
			return err
		}
	}

	return nil
}

// Package dvbs2 describes the DVB-S2 configurations that the encoder core
// supports: frame types, constellations and code rates, the transmit
// identifier (TID) that selects each configuration in hardware, and the
// constellation tables loaded into the bit mapper RAM.
package dvbs2

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned for a configuration the hardware has no entry
// for.
var ErrUnsupported = errors.New("unsupported configuration")

// FrameType is the FEC frame size class.
type FrameType int

// Frame types.
const (
	FECFrameShort FrameType = iota
	FECFrameNormal
)

// FrameTypes lists every frame type in TID order.
var FrameTypes = []FrameType{FECFrameShort, FECFrameNormal}

var frameTypeNames = map[FrameType][2]string{
	FECFrameShort:  {"FECFRAME_SHORT", "short"},
	FECFrameNormal: {"FECFRAME_NORMAL", "normal"},
}

func (f FrameType) String() string {
	if n, ok := frameTypeNames[f]; ok {
		return n[1]
	}

	return fmt.Sprintf("FrameType(%d)", int(f))
}

// Constellation is the modulation scheme.
type Constellation int

// Constellations.
const (
	ModQPSK Constellation = iota
	Mod8PSK
	Mod16APSK
	Mod32APSK
)

// Constellations lists every constellation in TID order.
var Constellations = []Constellation{ModQPSK, Mod8PSK, Mod16APSK, Mod32APSK}

var constellationNames = map[Constellation][2]string{
	ModQPSK:   {"MOD_QPSK", "QPSK"},
	Mod8PSK:   {"MOD_8PSK", "8PSK"},
	Mod16APSK: {"MOD_16APSK", "16APSK"},
	Mod32APSK: {"MOD_32APSK", "32APSK"},
}

func (c Constellation) String() string {
	if n, ok := constellationNames[c]; ok {
		return n[1]
	}

	return fmt.Sprintf("Constellation(%d)", int(c))
}

// Symbols returns the number of points of the constellation.
func (c Constellation) Symbols() int {
	switch c {
	case ModQPSK:
		return 4
	case Mod8PSK:
		return 8
	case Mod16APSK:
		return 16
	case Mod32APSK:
		return 32
	default:
		return 0
	}
}

// RAMBase returns the index of the first symbol of the constellation in the
// shared bit mapper RAM.
func (c Constellation) RAMBase() (uint32, error) {
	switch c {
	case ModQPSK:
		return 0, nil
	case Mod8PSK:
		return 4, nil
	case Mod16APSK:
		return 12, nil
	case Mod32APSK:
		return 28, nil
	default:
		return 0, fmt.Errorf("%w: constellation %s", ErrUnsupported, c)
	}
}

// CodeRate is the LDPC code rate.
type CodeRate int

// Code rates.
const (
	C1_4 CodeRate = iota
	C1_3
	C2_5
	C1_2
	C3_5
	C2_3
	C3_4
	C4_5
	C5_6
	C8_9
	C9_10
)

// CodeRates lists every code rate in TID order.
var CodeRates = []CodeRate{C1_4, C1_3, C2_5, C1_2, C3_5, C2_3, C3_4, C4_5, C5_6, C8_9, C9_10}

var codeRateNames = map[CodeRate][2]string{
	C1_4:  {"C1_4", "1/4"},
	C1_3:  {"C1_3", "1/3"},
	C2_5:  {"C2_5", "2/5"},
	C1_2:  {"C1_2", "1/2"},
	C3_5:  {"C3_5", "3/5"},
	C2_3:  {"C2_3", "2/3"},
	C3_4:  {"C3_4", "3/4"},
	C4_5:  {"C4_5", "4/5"},
	C5_6:  {"C5_6", "5/6"},
	C8_9:  {"C8_9", "8/9"},
	C9_10: {"C9_10", "9/10"},
}

func (r CodeRate) String() string {
	if n, ok := codeRateNames[r]; ok {
		return n[1]
	}

	return fmt.Sprintf("CodeRate(%d)", int(r))
}

// ParseFrameType accepts "FECFRAME_NORMAL", "normal" and the like.
func ParseFrameType(s string) (FrameType, error) {
	for f, names := range frameTypeNames {
		if matchName(s, names) {
			return f, nil
		}
	}

	return 0, fmt.Errorf("%w: frame type %q", ErrUnsupported, s)
}

// ParseConstellation accepts "MOD_16APSK", "16APSK" and the like.
func ParseConstellation(s string) (Constellation, error) {
	for c, names := range constellationNames {
		if matchName(s, names) {
			return c, nil
		}
	}

	return 0, fmt.Errorf("%w: constellation %q", ErrUnsupported, s)
}

// ParseCodeRate accepts "C2_3", "2/3" and the like.
func ParseCodeRate(s string) (CodeRate, error) {
	for r, names := range codeRateNames {
		if matchName(s, names) {
			return r, nil
		}
	}

	return 0, fmt.Errorf("%w: code rate %q", ErrUnsupported, s)
}

func matchName(s string, names [2]string) bool {
	return strings.EqualFold(s, names[0]) || strings.EqualFold(s, names[1])
}

// Config is one encoder configuration.
type Config struct {
	FrameType     FrameType
	Constellation Constellation
	CodeRate      CodeRate
}

func (c Config) String() string {
	return fmt.Sprintf("%s %s %s", c.FrameType, c.Constellation, c.CodeRate)
}

// Name returns the identifier used in test vector file names, e.g.
// FECFRAME_NORMAL_MOD_16APSK_C2_3.
func (c Config) Name() string {
	return frameTypeNames[c.FrameType][0] + "_" +
		constellationNames[c.Constellation][0] + "_" +
		codeRateNames[c.CodeRate][0]
}

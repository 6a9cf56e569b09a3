package dvbs2

import (
	"fmt"
	"regexp"
)

// MaxTID is the largest transmit identifier.
const MaxTID = 0x57

// tidTable maps every configuration to its TID. Values are contiguous:
// short frames first, then normal; within a frame type, constellations in
// order; within a constellation, code rates in order.
var tidTable = buildTIDTable()

func buildTIDTable() map[Config]uint8 {
	table := make(map[Config]uint8, len(FrameTypes)*len(Constellations)*len(CodeRates))

	tid := uint8(0)
	for _, f := range FrameTypes {
		for _, c := range Constellations {
			for _, r := range CodeRates {
				table[Config{FrameType: f, Constellation: c, CodeRate: r}] = tid
				tid++
			}
		}
	}

	return table
}

// TID returns the transmit identifier of a configuration.
func TID(cfg Config) (uint8, error) {
	tid, ok := tidTable[cfg]
	if !ok {
		return 0, fmt.Errorf("%w: no TID for %s", ErrUnsupported, cfg)
	}

	return tid, nil
}

// AllConfigs returns every configuration that has a TID, in TID order.
func AllConfigs() []Config {
	configs := make([]Config, 0, len(tidTable))
	for _, f := range FrameTypes {
		for _, c := range Constellations {
			for _, r := range CodeRates {
				configs = append(configs, Config{FrameType: f, Constellation: c, CodeRate: r})
			}
		}
	}

	return configs
}

var reConfigName = regexp.MustCompile(
	`(FECFRAME_(?:SHORT|NORMAL))_(MOD_.*?)_(C\d+_\d+)`)

// ParseConfigName extracts a configuration from a name such as
// "FECFRAME_SHORT_MOD_QPSK_C8_9_input.bin".
func ParseConfigName(name string) (Config, error) {
	m := reConfigName.FindStringSubmatch(name)
	if m == nil {
		return Config{}, fmt.Errorf("%w: no configuration in %q", ErrUnsupported, name)
	}

	f, err := ParseFrameType(m[1])
	if err != nil {
		return Config{}, err
	}

	c, err := ParseConstellation(m[2])
	if err != nil {
		return Config{}, err
	}

	r, err := ParseCodeRate(m[3])
	if err != nil {
		return Config{}, err
	}

	return Config{FrameType: f, Constellation: c, CodeRate: r}, nil
}

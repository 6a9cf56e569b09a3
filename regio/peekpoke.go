package regio

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// A PeekPoke accesses registers by running the board's peek and poke tools
// once per access.
type PeekPoke struct {
	peek string
	poke string
	run  func(name string, args ...string) ([]byte, error)
}

// NewPeekPoke creates a backend that runs the given peek and poke commands.
// Empty names default to "peek" and "poke" on the PATH.
func NewPeekPoke(peek, poke string) *PeekPoke {
	if peek == "" {
		peek = "peek"
	}

	if poke == "" {
		poke = "poke"
	}

	return &PeekPoke{
		peek: peek,
		poke: poke,
		run:  runCommand,
	}
}

func runCommand(name string, args ...string) ([]byte, error) {
	out, err := exec.Command(name, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to run '%s %s': %w",
			name, strings.Join(args, " "), err)
	}

	return out, nil
}

// Read32 runs `peek ADDR` and parses the hexadecimal word it prints.
func (p *PeekPoke) Read32(addr uint32) (uint32, error) {
	mustBeDeviceAddress(addr)

	out, err := p.run(p.peek, fmt.Sprintf("0x%08X", addr))
	if err != nil {
		return 0, err
	}

	return parseHexWord(out)
}

// Write32 runs `poke ADDR DATA`.
func (p *PeekPoke) Write32(addr uint32, data uint32) error {
	_, err := p.run(p.poke,
		fmt.Sprintf("0x%08X", addr),
		fmt.Sprintf("0x%08X", data))

	return err
}

// Close does nothing; every access spawns its own process.
func (p *PeekPoke) Close() error {
	return nil
}

func parseHexWord(out []byte) (uint32, error) {
	s := strings.TrimSpace(string(out))
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadOutput, out)
	}

	return uint32(v), nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/dvbenc/config"
)

var peekCmd = &cobra.Command{
	Use:   "peek ADDR",
	Short: "Read one 32-bit register at an absolute address.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseRegisterAddr(args[0])
		if err != nil {
			return err
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		data, err := s.bus.Read32(addr)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "0x%08X\n", data)

		return nil
	},
}

var pokeCmd = &cobra.Command{
	Use:   "poke ADDR DATA",
	Short: "Write one 32-bit register at an absolute address.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseRegisterAddr(args[0])
		if err != nil {
			return err
		}

		data, err := config.ParseWord(args[1])
		if err != nil {
			return err
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		return s.bus.Write32(addr, data)
	},
}

func parseRegisterAddr(s string) (uint32, error) {
	addr, err := config.ParseWord(s)
	if err != nil {
		return 0, err
	}

	if addr%4 != 0 {
		return 0, fmt.Errorf("address 0x%08X is not 4-byte aligned", addr)
	}

	return addr, nil
}

func init() {
	rootCmd.AddCommand(peekCmd)
	rootCmd.AddCommand(pokeCmd)
}

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/dvbenc/dvbs2"
	"github.com/sarchlab/dvbenc/fixedpoint"
)

func parseConfigArgs(args []string) (dvbs2.Config, error) {
	f, err := dvbs2.ParseFrameType(args[0])
	if err != nil {
		return dvbs2.Config{}, err
	}

	c, err := dvbs2.ParseConstellation(args[1])
	if err != nil {
		return dvbs2.Config{}, err
	}

	r, err := dvbs2.ParseCodeRate(args[2])
	if err != nil {
		return dvbs2.Config{}, err
	}

	return dvbs2.Config{FrameType: f, Constellation: c, CodeRate: r}, nil
}

var tableCmd = &cobra.Command{
	Use:   "table FRAME MOD RATE",
	Short: "Print the constellation that would be loaded for a configuration.",
	Long: "`table normal 16APSK 2/3` prints each symbol with the word written " +
		"to the bit mapper RAM. No register is accessed.",
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := parseConfigArgs(args)
		if err != nil {
			return err
		}

		points, err := dvbs2.ModulationTable(cfg)
		if err != nil {
			return err
		}

		if _, ok := dvbs2.RingRadii(cfg); !ok {
			cmd.PrintErrf("no ring ratio for %s, inner rings have radius 0\n", cfg)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "symbol\tcos\tsin\tword\t")

		for i, p := range points {
			fmt.Fprintf(w, "%d\t% .6f\t% .6f\t0x%08X\t\n",
				i, p.I, p.Q, fixedpoint.Pack(p.I, p.Q))
		}

		return w.Flush()
	},
}

var tidCmd = &cobra.Command{
	Use:   "tid [FRAME MOD RATE]",
	Short: "Print the TID of a configuration, or of all of them.",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 3 {
			return fmt.Errorf("accepts 0 or 3 arg(s), received %d", len(args))
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			for _, cfg := range dvbs2.AllConfigs() {
				tid, _ := dvbs2.TID(cfg)
				fmt.Fprintf(out, "0x%02X %s\n", tid, cfg.Name())
			}

			return nil
		}

		cfg, err := parseConfigArgs(args)
		if err != nil {
			return err
		}

		tid, err := dvbs2.TID(cfg)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "0x%02X\n", tid)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(tidCmd)
}

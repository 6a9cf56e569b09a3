package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/dvbenc/dvbs2"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the encoder status and the debug block counters.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		out := cmd.OutOrStdout()

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			status, err := s.encoder.Status()
			if err != nil {
				return err
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")

			return enc.Encode(status)
		}

		if err := s.encoder.WriteStatusTable(out); err != nil {
			return err
		}

		showMap, _ := cmd.Flags().GetBool("constellation-map")
		if !showMap {
			return nil
		}

		for _, c := range dvbs2.Constellations {
			fmt.Fprintln(out)

			if err := s.encoder.WriteConstellationMap(out, c); err != nil {
				return err
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("constellation-map", false, "Also dump the bit mapper RAM")
	statusCmd.Flags().Bool("json", false, "Print the status as JSON")
}

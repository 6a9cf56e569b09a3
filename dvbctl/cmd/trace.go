package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/dvbenc/datarecording"
	"github.com/sarchlab/dvbenc/tracing"
)

var traceCmd = &cobra.Command{
	Use:   "trace FILE",
	Short: "Print the register accesses recorded with --trace-db.",
	Long: "`trace run.sqlite3 --where \"Location = 'fifo'\" --limit 20` " +
		"prints the matching accesses, oldest first.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err != nil {
			return err
		}

		flags := cmd.Flags()
		params := datarecording.QueryParams{}
		params.Where, _ = flags.GetString("where")
		params.OrderBy, _ = flags.GetString("order-by")
		params.Limit, _ = flags.GetInt("limit")
		params.Offset, _ = flags.GetInt("offset")

		reader := datarecording.NewReader(args[0])
		defer reader.Close()

		entries, total, err := tracing.ReadAccesses(cmd.Context(), reader, params)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Time\tWhat\tLocation\tAddress\tData")

		for _, e := range entries {
			fmt.Fprintf(w, "%.6f\t%s\t%s\t0x%08X\t0x%08X\n",
				e.Time, e.What, e.Location, e.Address, e.Data)
		}

		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d accesses\n", len(entries), total)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(traceCmd)
	traceCmd.Flags().String("where", "", "SQL condition on Time, What, Location, Address or Data")
	traceCmd.Flags().String("order-by", "Time", "SQL ordering of the rows")
	traceCmd.Flags().Int("limit", 0, "Print at most this many accesses, 0 for all")
	traceCmd.Flags().Int("offset", 0, "Skip this many accesses, used with --limit")
}

// Package cmd implements the dvbctl commands.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var rootCmd = &cobra.Command{
	Use:   "dvbctl",
	Short: "dvbctl drives a DVB-S2 encoder core over its register bus.",
	Long: `dvbctl programs and inspects a DVB-S2 encoder core. The bus is
selected with DVB_* variables, read from the environment or from .env files,
and with the flags below.`,
	SilenceUsage: true,
}

// Execute runs the command selected on the command line and exits.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringSlice("env", nil, "Load DVB_* variables from these files instead of .env")
	flags.String("backend", "", "Register backend: devmem, xdma, peekpoke or fake")
	flags.String("device", "", "Device file of the devmem and xdma backends")
	flags.String("base-addr", "", "Absolute address of the encoder registers")
	flags.String("fifo-addr", "", "Absolute address of the data FIFO, 0 for none")
	flags.String("trace-db", "", "Record every register access into this SQLite file")
	flags.String("trace-csv", "", "Also write every register access to this CSV file")
	flags.BoolP("verbose", "v", false, "Log progress and every register access to stderr")
}

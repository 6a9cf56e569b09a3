package cmd

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/dvbenc/encoder"
)

var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Read data back from the receive side of the data FIFO.",
	Long: "Without flags, `receive` drains the words the FIFO holds. " +
		"--frame reads one packet in cut-through mode with its sideband, " +
		"--length only reports the receive length register.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		fifo := s.encoder.DataFIFO()
		if fifo == nil {
			return encoder.ErrNoDataFIFO
		}

		flags := cmd.Flags()
		out := cmd.OutOrStdout()

		if onlyLength, _ := flags.GetBool("length"); onlyLength {
			l, err := fifo.RxLength()
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "length=%d partial=%t\n", l.Length, l.Partial)

			return nil
		}

		var data []byte

		if asFrame, _ := flags.GetBool("frame"); asFrame {
			frame, err := fifo.ReceiveFrame()
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "dest=%d id=%d user=%d length=%d\n",
				frame.Dest, frame.ID, frame.User, len(frame.Data))

			data = frame.Data
		} else {
			entries, _ := flags.GetInt("entries")

			data, err = s.encoder.Receive(entries)
			if err != nil {
				return err
			}
		}

		if path, _ := flags.GetString("out"); path != "" {
			return os.WriteFile(path, data, 0o644)
		}

		if len(data) > 0 {
			fmt.Fprint(out, hex.Dump(data))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(receiveCmd)
	receiveCmd.Flags().Int("entries", 0, "Number of words to read, 0 for the occupancy")
	receiveCmd.Flags().Bool("frame", false, "Read one packet with its destination, ID and user fields")
	receiveCmd.Flags().Bool("length", false, "Only print the receive length register")
	receiveCmd.Flags().String("out", "", "Store the data in this file instead of dumping it")
}

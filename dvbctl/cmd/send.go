package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/dvbenc/dvbs2"
	"github.com/sarchlab/dvbenc/encoder"
	"github.com/sarchlab/dvbenc/monitoring"
	"github.com/sarchlab/dvbenc/tracing"
)

const (
	drainPolls    = 100
	drainInterval = 100 * time.Millisecond
)

// errDrainTimeout is returned when frames stay in the pipeline after all
// the polls.
var errDrainTimeout = errors.New("timed out waiting for frames to complete")

var sendCmd = &cobra.Command{
	Use:   "send FILE...",
	Short: "Encode input vectors through the data FIFO.",
	Long: "`send FECFRAME_NORMAL_MOD_16APSK_C2_3_input.bin` loads the bit " +
		"mapper RAM for the configuration named by the file, sends the " +
		"file through the data FIFO, waits for the encoder to drain and " +
		"stores what comes back next to the input as *_output.bin.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if s.encoder.DataFIFO() == nil {
			return encoder.ErrNoDataFIFO
		}

		out, _ := cmd.Flags().GetString("out")
		if out != "" && len(args) > 1 {
			return errors.New("--out needs a single input file")
		}

		if err := s.encoder.Init(); err != nil {
			return err
		}

		var bar *monitoring.ProgressBar

		withMonitor, _ := cmd.Flags().GetBool("monitor")
		if withMonitor {
			m, _ := startMonitor(s, 0)
			bar = m.CreateProgressBar("send", uint64(len(args)))
			defer m.CompleteProgressBar(bar)
		}

		for _, in := range args {
			if bar != nil {
				bar.IncrementInProgress(1)
			}

			dst := out
			if dst == "" {
				dst = outputPath(in)
			}

			if err := sendFile(cmd, s, in, dst); err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}

			if bar != nil {
				bar.MoveInProgressToFinished(1)
			}
		}

		return nil
	},
}

func outputPath(in string) string {
	if strings.Contains(in, "_input") {
		return strings.Replace(in, "_input", "_output", 1)
	}

	return in + ".out"
}

func sendFile(cmd *cobra.Command, s *session, in, out string) error {
	cfg, err := dvbs2.ParseConfigName(filepath.Base(in))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}

	if err := s.encoder.Transmit(data, cfg); err != nil {
		return err
	}

	s.logger.Printf("waiting for frame to complete")

	if err := waitForDrain(s.encoder, drainPolls, drainInterval); err != nil {
		return err
	}

	result, err := s.encoder.Receive(0)
	if err != nil {
		return err
	}

	if err := os.WriteFile(out, result, 0o644); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: sent %d bytes, received %d bytes into %s\n",
		cfg.Name(), len(data), len(result), out)

	return nil
}

// waitForDrain polls the frames in transit until the pipeline is empty.
func waitForDrain(e *encoder.Encoder, polls int, interval time.Duration) error {
	for i := 0; i < polls; i++ {
		n, err := e.FramesInTransit()
		if err != nil {
			return err
		}

		if n == 0 {
			return nil
		}

		time.Sleep(interval)
	}

	n, err := e.FramesInTransit()
	if err != nil {
		return err
	}

	if n != 0 {
		return fmt.Errorf("%w: %d frames in transit", errDrainTimeout, n)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().String("out", "", "Where to store the output of a single input file")
	sendCmd.Flags().Bool("monitor", false, "Serve the monitoring page while sending")
}

// startMonitor serves the encoder state, counting the register accesses
// per location. It returns the port the server listens on.
func startMonitor(s *session, port int) (*monitoring.Monitor, int) {
	counter := tracing.NewCountTracer()
	tracing.CollectTrace(s.bus, s.encoder.Locate, counter)

	m := monitoring.NewMonitor(s.encoder).WithPortNumber(port)
	m.RegisterAccessCounter(counter)

	return m, m.StartServer()
}

package cmd

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/dvbenc/config"
	"github.com/sarchlab/dvbenc/datarecording"
	"github.com/sarchlab/dvbenc/encoder"
	"github.com/sarchlab/dvbenc/regio"
	"github.com/sarchlab/dvbenc/tracing"
)

// A session is an open bus with the encoder built on it.
type session struct {
	bus      *regio.Bus
	encoder  *encoder.Encoder
	logger   *log.Logger
	recorder datarecording.DataRecorder
	csv      *tracing.CSVTracer
}

// resolveConfig loads the DVB_* configuration and applies the flags that
// were given on the command line.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()

	envFiles, err := flags.GetStringSlice("env")
	if err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(envFiles...)
	if err != nil {
		return config.Config{}, err
	}

	if flags.Changed("backend") {
		v, _ := flags.GetString("backend")

		cfg.Backend, err = regio.ParseKind(v)
		if err != nil {
			return config.Config{}, err
		}
	}

	if flags.Changed("device") {
		cfg.Device, _ = flags.GetString("device")
	}

	if flags.Changed("trace-db") {
		cfg.TraceDB, _ = flags.GetString("trace-db")
	}

	addresses := []struct {
		flag string
		dst  *uint32
	}{
		{"base-addr", &cfg.BaseAddr},
		{"fifo-addr", &cfg.FIFOAddr},
	}

	for _, a := range addresses {
		if !flags.Changed(a.flag) {
			continue
		}

		v, _ := flags.GetString(a.flag)

		*a.dst, err = config.ParseWord(v)
		if err != nil {
			return config.Config{}, err
		}
	}

	return cfg, nil
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")

	logger := log.New(io.Discard, "", 0)
	if verbose {
		logger = log.New(os.Stderr, "dvbctl: ", log.LstdFlags)
	}

	bus, err := regio.Open(cfg.Regio())
	if err != nil {
		return nil, err
	}

	s := &session{
		bus:     bus,
		logger:  logger,
		encoder: cfg.Builder(bus).WithLogger(logger).Build(),
	}

	if verbose {
		tracing.CollectTrace(bus, s.encoder.Locate, tracing.NewLogTracer(logger))
	}

	if cfg.TraceDB != "" {
		s.recorder = datarecording.New(cfg.TraceDB)
		tracer := tracing.NewDBTracer(s.recorder, time.Now)
		tracing.CollectTrace(bus, s.encoder.Locate, tracer)
	}

	csvPath, _ := cmd.Flags().GetString("trace-csv")
	if csvPath != "" {
		s.csv = tracing.NewCSVTracer(csvPath)
		s.csv.Init()
		tracing.CollectTrace(bus, s.encoder.Locate, s.csv)
	}

	return s, nil
}

// Close flushes the access traces and releases the bus. Everything is
// closed even if a step fails; the first error is returned.
func (s *session) Close() error {
	var closers []func() error

	if s.csv != nil {
		closers = append(closers, s.csv.Close)
	}

	if s.recorder != nil {
		closers = append(closers, s.recorder.Close)
	}

	closers = append(closers, s.encoder.Close)

	var firstErr error

	for _, c := range closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

package encoder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/sarchlab/dvbenc/axi"
)

// GeneralStatus holds the global settings and counters of the encoder.
type GeneralStatus struct {
	PLScramblerInit uint32         `json:"physical_layer_scrambler_shift_reg_init"`
	DummyFrames     bool           `json:"enable_dummy_frames"`
	FramesInTransit uint32         `json:"frames_in_transit"`
	LDPCFIFO        LDPCFIFOStatus `json:"ldpc_fifo"`
}

// StageStatus is the view of one debug block.
type StageStatus struct {
	Name            string        `json:"-"`
	Master          axi.Handshake `json:"axi_master"`
	Slave           axi.Handshake `json:"axi_slave"`
	Frames          uint32        `json:"frames"`
	Words           uint32        `json:"words"`
	LastFrameLength uint32        `json:"last_frame_length"`
	MaxFrameLength  *uint32       `json:"max_frame_length"`
	MinFrameLength  *uint32       `json:"min_frame_length"`
}

// Status is a full read of the encoder state. In JSON, the stages form an
// "axi_debug" object keyed by stage name, in stream order.
type Status struct {
	General GeneralStatus
	Stages  []StageStatus
}

// MarshalJSON implements json.Marshaler.
func (s Status) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	general, err := json.Marshal(s.General)
	if err != nil {
		return nil, err
	}

	buf.WriteString(`{"general":`)
	buf.Write(general)
	buf.WriteString(`,"axi_debug":{`)

	for i, stage := range s.Stages {
		if i > 0 {
			buf.WriteByte(',')
		}

		name, err := json.Marshal(stage.Name)
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(stage)
		if err != nil {
			return nil, err
		}

		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteString("}}")

	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler. Known stages come back in
// stream order, unknown ones after them sorted by name.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw struct {
		General GeneralStatus          `json:"general"`
		Stages  map[string]StageStatus `json:"axi_debug"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	names := make([]string, 0, len(raw.Stages))

	for _, name := range StageNames {
		if _, ok := raw.Stages[name]; ok {
			names = append(names, name)
		}
	}

	var others []string

	for name := range raw.Stages {
		if !slices.Contains(StageNames, name) {
			others = append(others, name)
		}
	}

	sort.Strings(others)
	names = append(names, others...)

	s.General = raw.General
	s.Stages = make([]StageStatus, 0, len(names))

	for _, name := range names {
		stage := raw.Stages[name]
		stage.Name = name
		s.Stages = append(s.Stages, stage)
	}

	return nil
}

// Status reads the global registers and every debug block. The debug block
// snapshots are refreshed on the way.
func (e *Encoder) Status() (Status, error) {
	general, err := e.generalStatus()
	if err != nil {
		return Status{}, err
	}

	s := Status{General: general}

	for _, block := range e.stages {
		stage, err := StageStatusOf(block)
		if err != nil {
			return Status{}, fmt.Errorf("%s: %w", block.Name(), err)
		}

		s.Stages = append(s.Stages, stage)
	}

	return s, nil
}

func (e *Encoder) generalStatus() (GeneralStatus, error) {
	var (
		g   GeneralStatus
		err error
	)

	if g.PLScramblerInit, err = e.PLScramblerInit(); err != nil {
		return g, err
	}

	if g.DummyFrames, err = e.DummyFrames(); err != nil {
		return g, err
	}

	if g.FramesInTransit, err = e.FramesInTransit(); err != nil {
		return g, err
	}

	if g.LDPCFIFO, err = e.LDPCFIFOStatus(); err != nil {
		return g, err
	}

	return g, nil
}

// StageStatusOf samples the strobes of a debug block, refreshes its
// snapshot, and reads its frame counters.
func StageStatusOf(block *axi.DebugBlock) (StageStatus, error) {
	strobes, err := block.Strobes()
	if err != nil {
		return StageStatus{}, err
	}

	if err := block.Update(); err != nil {
		return StageStatus{}, err
	}

	frames, err := block.FrameCount()
	if err != nil {
		return StageStatus{}, err
	}

	last, err := block.LastFrameLength()
	if err != nil {
		return StageStatus{}, err
	}

	snapshot := block.Snapshot()

	return StageStatus{
		Name:            block.Name(),
		Master:          strobes.Master,
		Slave:           strobes.Slave,
		Frames:          frames,
		Words:           snapshot.WordCount,
		LastFrameLength: last,
		MaxFrameLength:  snapshot.MaxFrameLength,
		MinFrameLength:  snapshot.MinFrameLength,
	}, nil
}

// WriteStatusTable reads the status and prints it as two aligned tables.
func (e *Encoder) WriteStatusTable(w io.Writer) error {
	s, err := e.Status()
	if err != nil {
		return err
	}

	return s.WriteTable(w)
}

const tableWidth = 2*50 + 14

// WriteTable prints the status as two aligned tables.
func (s Status) WriteTable(w io.Writer) error {
	header := fmt.Sprintf("%s Debug tables %s\n", strings.Repeat("=", 50), strings.Repeat("=", 50))
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)

	g := s.General
	fmt.Fprintf(tw, "General config\n")
	fmt.Fprintf(tw, "PL scramb SR init\t0x%05X\n", g.PLScramblerInit)
	fmt.Fprintf(tw, "Enable dummy frames\t%d\n", boolToInt(g.DummyFrames))
	fmt.Fprintf(tw, "-----\n")
	fmt.Fprintf(tw, "Status\n")
	fmt.Fprintf(tw, "Frames in transit\t%d\n", g.FramesInTransit)
	fmt.Fprintf(tw, "LDPC FIFO entries\t%d\n", g.LDPCFIFO.Entries)
	fmt.Fprintf(tw, "LDPC FIFO empty/full\t%d/%d\n",
		boolToInt(g.LDPCFIFO.Empty), boolToInt(g.LDPCFIFO.Full))

	if err := tw.Flush(); err != nil {
		return err
	}

	if _, err := io.WriteString(w, "-----\n"); err != nil {
		return err
	}

	tw = tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	fmt.Fprintf(tw, "Waypoint\tAXI slave\tAXI master\tFrames\tWords\t"+
		"Last frame length\tMax frame length\tMin frame length\n")

	for _, st := range s.Stages {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			st.Name,
			handshakeString(st.Slave),
			handshakeString(st.Master),
			st.Frames,
			st.Words,
			st.LastFrameLength,
			optionalString(st.MaxFrameLength),
			optionalString(st.MinFrameLength),
		)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := io.WriteString(w, strings.Repeat("=", tableWidth)+"\n")

	return err
}

func handshakeString(h axi.Handshake) string {
	return fmt.Sprintf("tvalid=%d, tready=%d", boolToInt(h.TValid), boolToInt(h.TReady))
}

func optionalString(v *uint32) string {
	if v == nil {
		return "-"
	}

	return strconv.FormatUint(uint64(*v), 10)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}

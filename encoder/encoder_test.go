package encoder

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dvbenc/axi"
	"github.com/sarchlab/dvbenc/dvbs2"
	"github.com/sarchlab/dvbenc/regio"
)

var _ = Describe("Encoder", func() {
	const (
		base     = uint32(DefaultBaseAddress)
		fifoBase = uint32(0x43C10000)
	)

	var (
		fake     *regio.Fake
		bus      *regio.Bus
		recorder *accessRecorder
		logBuf   *bytes.Buffer
		enc      *Encoder
	)

	normal16APSK23 := dvbs2.Config{
		FrameType:     dvbs2.FECFrameNormal,
		Constellation: dvbs2.Mod16APSK,
		CodeRate:      dvbs2.C2_3,
	}

	BeforeEach(func() {
		fake = regio.NewFake()
		bus = regio.NewBus(fake)
		recorder = &accessRecorder{}
		bus.AcceptHook(recorder)
		logBuf = &bytes.Buffer{}

		enc = MakeBuilder().
			WithBus(bus).
			WithDataFIFO(fifoBase).
			WithLogger(log.New(logBuf, "", 0)).
			Build()
	})

	It("should panic when built without a bus", func() {
		Expect(func() { MakeBuilder().Build() }).To(Panic())
	})

	It("should place the debug blocks after the stages", func() {
		Expect(enc.Stages()).To(HaveLen(7))

		offsets := map[string]uint32{
			StageInputWidthConverter: 0xD00,
			StageBBScrambler:         0xE00,
			StageBCHEncoder:          0xF00,
			StageLDPCEncoder:         0x1000,
			StageBitInterleaver:      0x1100,
			StagePLFrame:             0x1200,
			StageOutput:              0x1300,
		}

		for i, name := range StageNames {
			block, ok := enc.Stage(name)
			Expect(ok).To(BeTrue())
			Expect(block).To(BeIdenticalTo(enc.Stages()[i]))
			Expect(block.Region().Base()).To(Equal(base + offsets[name]))
		}

		_, ok := enc.Stage("modulator")
		Expect(ok).To(BeFalse())
	})

	It("should name the block behind an address", func() {
		Expect(enc.Locate(base + 0x4)).To(Equal("encoder"))
		Expect(enc.Locate(base + 0xF14)).To(Equal("encoder.bch_encoder"))
		Expect(enc.Locate(base + 0xF18)).To(Equal("encoder"))
		Expect(enc.Locate(fifoBase + axi.TDFD)).To(Equal("fifo"))
		Expect(enc.Locate(0x40000000)).To(BeEmpty())
	})

	It("should load the polyphase filter on init", func() {
		Expect(enc.Init()).To(Succeed())

		Expect(recorder.writes).To(HaveLen(32))
		Expect(recorder.writes[0]).To(Equal(regio.Access{Addr: base + 0x3D0, Data: 0x003C003C}))
		Expect(recorder.writes[15]).To(Equal(regio.Access{Addr: base + 0x40C, Data: 0x21B621B6}))
		Expect(recorder.writes[31]).To(Equal(regio.Access{Addr: base + 0x44C, Data: 0xFFE8FFE8}))
	})

	It("should load the 16APSK table into its RAM slice", func() {
		Expect(enc.UpdateBitMapperRAM(normal16APSK23)).To(Succeed())

		Expect(recorder.writes).To(HaveLen(16))
		for i, w := range recorder.writes {
			Expect(w.Addr).To(Equal(base + 0x0C + 4*(12+uint32(i))))
		}

		Expect(recorder.writes[0].Data).To(Equal(uint32(0x5A825A82)))
		Expect(recorder.writes[4].Data).To(Equal(uint32(0x7BA22121)))
		Expect(recorder.writes[12].Data).To(Equal(uint32(0x1CBB1CBB)))
		Expect(recorder.writes[13].Data).To(Equal(uint32(0x1CBBE345)))
	})

	It("should read back the points it loaded", func() {
		Expect(enc.UpdateBitMapperRAM(normal16APSK23)).To(Succeed())

		expected, err := dvbs2.ModulationTable(normal16APSK23)
		Expect(err).NotTo(HaveOccurred())

		points, err := enc.ReadBitMapperRAM(dvbs2.Mod16APSK)
		Expect(err).NotTo(HaveOccurred())
		Expect(points).To(HaveLen(16))

		for i := range points {
			Expect(points[i].I).To(BeNumerically("~", expected[i].I, 1.0/32767))
			Expect(points[i].Q).To(BeNumerically("~", expected[i].Q, 1.0/32767))
		}
	})

	It("should log when a ring ratio is missing", func() {
		cfg := dvbs2.Config{
			FrameType:     dvbs2.FECFrameShort,
			Constellation: dvbs2.Mod16APSK,
			CodeRate:      dvbs2.C9_10,
		}

		Expect(enc.UpdateBitMapperRAM(cfg)).To(Succeed())
		Expect(logBuf.String()).To(ContainSubstring("no ring ratio"))
		Expect(recorder.writesTo(base + 0x0C + 4*27)).To(Equal([]uint32{0}))
	})

	It("should print the constellation map", func() {
		Expect(enc.UpdateBitMapperRAM(dvbs2.Config{
			FrameType:     dvbs2.FECFrameShort,
			Constellation: dvbs2.ModQPSK,
			CodeRate:      dvbs2.C1_2,
		})).To(Succeed())

		var out bytes.Buffer
		Expect(enc.WriteConstellationMap(&out, dvbs2.ModQPSK)).To(Succeed())

		Expect(out.String()).To(ContainSubstring("Bit mapper RAM - QPSK"))
		Expect(out.String()).To(ContainSubstring("0x5A82A57E"))
	})

	It("should change the scrambler seed without touching dummy frames", func() {
		Expect(enc.SetDummyFrames(true)).To(Succeed())
		Expect(enc.SetPLScramblerInit(0x12345)).To(Succeed())

		word, _ := fake.Read32(base)
		Expect(word).To(Equal(uint32(0x40000 | 0x12345)))

		Expect(enc.PLScramblerInit()).To(Equal(uint32(0x12345)))
		Expect(enc.DummyFrames()).To(BeTrue())

		Expect(enc.SetPLScramblerInit(0xFFFFFFFF)).To(Succeed())
		word, _ = fake.Read32(base)
		Expect(word).To(Equal(uint32(0x7FFFF)))
	})

	It("should decode the LDPC FIFO status and frames in transit", func() {
		Expect(fake.Write32(base+0x4, 0x00020ABC)).To(Succeed())
		Expect(fake.Write32(base+0x8, 0xFFFFFF03)).To(Succeed())

		Expect(enc.LDPCFIFOStatus()).To(Equal(LDPCFIFOStatus{
			Entries: 0xABC,
			Empty:   false,
			Full:    true,
		}))
		Expect(enc.FramesInTransit()).To(Equal(uint32(3)))
	})

	It("should collect the status of every stage", func() {
		Expect(fake.Write32(base+0x0, 0x00040001)).To(Succeed())
		Expect(fake.Write32(base+0xF04, 9)).To(Succeed())
		Expect(fake.Write32(base+0xF08, 1008)).To(Succeed())
		Expect(fake.Write32(base+0xF0C, 0x03F003E8)).To(Succeed())
		Expect(fake.Write32(base+0xF10, 9072)).To(Succeed())
		Expect(fake.Write32(base+0xF14, 0x5)).To(Succeed())

		s, err := enc.Status()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.General.PLScramblerInit).To(Equal(uint32(1)))
		Expect(s.General.DummyFrames).To(BeTrue())
		Expect(s.Stages).To(HaveLen(7))

		bch := s.Stages[2]
		Expect(bch.Name).To(Equal(StageBCHEncoder))
		Expect(bch.Slave).To(Equal(axi.Handshake{TValid: true}))
		Expect(bch.Master).To(Equal(axi.Handshake{TValid: true}))
		Expect(bch.Frames).To(Equal(uint32(9)))
		Expect(bch.Words).To(Equal(uint32(9072)))
		Expect(bch.LastFrameLength).To(Equal(uint32(1008)))
		Expect(*bch.MaxFrameLength).To(Equal(uint32(0x3F0)))
		Expect(*bch.MinFrameLength).To(Equal(uint32(0x3E8)))

		block, _ := enc.Stage(StageBCHEncoder)
		Expect(block.Snapshot().WordCount).To(Equal(uint32(9072)))
		Expect(recorder.writes).To(BeEmpty())
	})

	It("should encode the stages as an object keyed by name", func() {
		Expect(fake.Write32(base+0xF04, 9)).To(Succeed())

		s, err := enc.Status()
		Expect(err).NotTo(HaveOccurred())

		data, err := json.Marshal(s)
		Expect(err).NotTo(HaveOccurred())

		var raw map[string]map[string]any
		Expect(json.Unmarshal(data, &raw)).To(Succeed())
		Expect(raw).To(HaveKey("general"))
		Expect(raw["axi_debug"]).To(HaveLen(7))
		Expect(raw["axi_debug"][StageBCHEncoder]).To(
			HaveKeyWithValue("frames", BeNumerically("==", 9)))
		Expect(raw["axi_debug"][StageBCHEncoder]).NotTo(HaveKey("name"))

		last := -1
		for _, name := range StageNames {
			at := strings.Index(string(data), `"`+name+`":`)
			Expect(at).To(BeNumerically(">", last), name)
			last = at
		}

		var decoded Status
		Expect(json.Unmarshal(data, &decoded)).To(Succeed())
		Expect(decoded).To(Equal(s))
	})

	It("should decode stages it does not know after the known ones", func() {
		data := []byte(`{"general":{},"axi_debug":{` +
			`"zeta":{"frames":1},"output":{"frames":2},"alpha":{"frames":3}}}`)

		var s Status
		Expect(json.Unmarshal(data, &s)).To(Succeed())

		names := make([]string, 0, len(s.Stages))
		for _, stage := range s.Stages {
			names = append(names, stage.Name)
		}

		Expect(names).To(Equal([]string{StageOutput, "alpha", "zeta"}))
		Expect(s.Stages[0].Frames).To(Equal(uint32(2)))
	})

	It("should print the status tables", func() {
		Expect(fake.Write32(base+0x0, 0x1F)).To(Succeed())

		var out bytes.Buffer
		Expect(enc.WriteStatusTable(&out)).To(Succeed())

		text := out.String()
		Expect(text).To(ContainSubstring("Debug tables"))
		Expect(text).To(ContainSubstring("0x0001F"))
		Expect(text).To(ContainSubstring("Waypoint"))
		for _, name := range StageNames {
			Expect(text).To(ContainSubstring(name))
		}
	})

	It("should print missing frame lengths as a dash", func() {
		s := Status{Stages: []StageStatus{{Name: StageOutput}}}

		var out bytes.Buffer
		Expect(s.WriteTable(&out)).To(Succeed())
		Expect(out.String()).To(MatchRegexp(`output .* - +-\n`))
	})

	It("should configure and send a frame", func() {
		payload := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01}

		Expect(enc.Transmit(payload, normal16APSK23)).To(Succeed())

		Expect(recorder.writesTo(fifoBase + axi.TID)).To(Equal([]uint32{0x47}))
		Expect(recorder.writesTo(fifoBase + axi.TUSER)).To(Equal([]uint32{0x47}))
		Expect(recorder.writesTo(fifoBase + axi.TDFD)).To(Equal([]uint32{0xDEADBEEF, 0x01}))
		Expect(recorder.writesTo(fifoBase + axi.TLR)).To(Equal([]uint32{5}))
		Expect(recorder.writesTo(base + 0x0C + 4*12)).To(Equal([]uint32{0x5A825A82}))
	})

	It("should reject unsupported configurations before writing", func() {
		_, err := enc.Configure(dvbs2.Config{Constellation: dvbs2.Constellation(9)})

		Expect(errors.Is(err, dvbs2.ErrUnsupported)).To(BeTrue())
		Expect(recorder.writes).To(BeEmpty())
	})

	It("should reset the FIFO and forget the snapshots", func() {
		block, _ := enc.Stage(StageOutput)
		Expect(block.Update()).To(Succeed())
		Expect(block.Snapshot().MaxFrameLength).NotTo(BeNil())

		Expect(enc.Reset()).To(Succeed())

		Expect(block.Snapshot().MaxFrameLength).To(BeNil())
		Expect(recorder.writesTo(fifoBase + axi.TDFR)).To(Equal([]uint32{axi.ResetKey}))
		Expect(recorder.writesTo(fifoBase + axi.SRR)).To(Equal([]uint32{axi.ResetKey}))
		Expect(recorder.writesTo(fifoBase + axi.RDFR)).To(Equal([]uint32{axi.ResetKey}))
	})

	It("should refuse the data path without a FIFO", func() {
		plain := MakeBuilder().WithBus(regio.NewBus(regio.NewFake())).Build()

		Expect(plain.DataFIFO()).To(BeNil())
		Expect(plain.Transmit(nil, normal16APSK23)).To(MatchError(ErrNoDataFIFO))

		_, err := plain.Receive(0)
		Expect(err).To(MatchError(ErrNoDataFIFO))
		Expect(plain.Reset()).To(Succeed())
	})

	It("should close the bus", func() {
		Expect(enc.Close()).To(Succeed())
		Expect(func() { _, _ = enc.FramesInTransit() }).To(Panic())
	})
})

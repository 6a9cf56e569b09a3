package monitoring

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dvbenc/encoder"
	"github.com/sarchlab/dvbenc/regio"
	"github.com/sarchlab/dvbenc/tracing"
)

type sampleStruct struct {
	Field1 int
	Field2 string
	Field3 *sampleStruct
	Field4 []sampleStruct
	field5 int
}

var _ = Describe("Monitor", func() {
	const base = encoder.DefaultBaseAddress

	var (
		fake    *regio.Fake
		bus     *regio.Bus
		counter *tracing.CountTracer
		m       *Monitor
		server  *httptest.Server
	)

	get := func(path string) (*http.Response, []byte) {
		rsp, err := http.Get(server.URL + path)
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		body, err := io.ReadAll(rsp.Body)
		Expect(err).NotTo(HaveOccurred())

		return rsp, body
	}

	BeforeEach(func() {
		fake = regio.NewFake()
		bus = regio.NewBus(fake)
		enc := encoder.MakeBuilder().WithBus(bus).Build()

		counter = tracing.NewCountTracer()
		tracing.CollectTrace(bus, enc.Locate, counter)

		m = NewMonitor(enc)
		m.RegisterAccessCounter(counter)
		server = httptest.NewServer(m.Router())
	})

	AfterEach(func() {
		server.Close()
	})

	It("should serve the encoder status", func() {
		Expect(fake.Write32(base+0x8, 2)).To(Succeed())
		Expect(fake.Write32(base+0x1310, 77)).To(Succeed())

		rsp, body := get("/read/status")
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))

		var status encoder.Status
		Expect(json.Unmarshal(body, &status)).To(Succeed())
		Expect(status.General.FramesInTransit).To(Equal(uint32(2)))
		Expect(status.Stages).To(HaveLen(7))
		Expect(status.Stages[6].Name).To(Equal(encoder.StageOutput))
		Expect(status.Stages[6].Words).To(Equal(uint32(77)))
	})

	It("should list the stages in stream order", func() {
		_, body := get("/api/stages")

		var names []string
		Expect(json.Unmarshal(body, &names)).To(Succeed())
		Expect(names).To(Equal(encoder.StageNames))
	})

	It("should serialize a single stage", func() {
		rsp, body := get("/api/stage/ldpc_encoder")

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring("ldpc_encoder"))
	})

	It("should answer 404 for unknown stages", func() {
		rsp, _ := get("/api/stage/modulator")
		Expect(rsp.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("should serve one field of a stage", func() {
		Expect(fake.Write32(base+0xD14, 0x2)).To(Succeed())

		_, body := get("/api/stage/input_width_converter/Slave.TReady")
		Expect(string(body)).To(Equal("true"))

		rsp, _ := get("/api/stage/input_width_converter/Nothing")
		Expect(rsp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("should report the access counts", func() {
		get("/api/stage/output")

		_, body := get("/api/accesses")

		var counts []tracing.AccessCount
		Expect(json.Unmarshal(body, &counts)).To(Succeed())
		Expect(counts).To(ContainElement(tracing.AccessCount{
			Location: "encoder.output",
			Reads:    5,
		}))
	})

	It("should report resource usage", func() {
		rsp, body := get("/api/resource")
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))

		var res resourceRsp
		Expect(json.Unmarshal(body, &res)).To(Succeed())
		Expect(res.MemorySize).To(BeNumerically(">", 0))
	})

	It("should serve the dashboard", func() {
		rsp, body := get("/")

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(HavePrefix("<!DOCTYPE html>"))
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("frames", 10)
		bar.IncrementInProgress(3)
		bar.MoveInProgressToFinished(2)

		_, body := get("/api/progress")

		var bars []map[string]any
		Expect(json.Unmarshal(body, &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0]["name"]).To(Equal("frames"))
		Expect(bars[0]["finished"]).To(BeNumerically("==", 2))
		Expect(bars[0]["in_progress"]).To(BeNumerically("==", 1))

		m.CompleteProgressBar(bar)
		_, body = get("/api/progress")
		Expect(string(body)).To(Equal("[]"))
	})

	It("should serve consistent progress while the bar moves", func() {
		bar := m.CreateProgressBar("frames", 500)

		done := make(chan struct{})
		go func() {
			defer close(done)

			for i := 0; i < 500; i++ {
				bar.IncrementInProgress(1)
				bar.MoveInProgressToFinished(1)
			}
		}()

		for i := 0; i < 20; i++ {
			_, body := get("/api/progress")

			var bars []map[string]any
			Expect(json.Unmarshal(body, &bars)).To(Succeed())
			Expect(bars).To(HaveLen(1))
			Expect(bars[0]["in_progress"]).To(BeNumerically("<=", 1))
		}

		<-done

		_, body := get("/api/progress")
		Expect(string(body)).To(ContainSubstring(`"finished":500`))
	})

	It("should refuse privileged ports", func() {
		Expect(m.WithPortNumber(80).portNumber).To(Equal(0))
		Expect(m.WithPortNumber(8080).portNumber).To(Equal(8080))
	})
})

var _ = Describe("walkFields", func() {
	It("should walk int fields", func() {
		s := &sampleStruct{
			Field1: 1,
		}

		elem, err := walkFields(s, "Field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk string fields", func() {
		s := &sampleStruct{
			Field2: "abc",
		}

		elem, err := walkFields(s, "Field2")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.String))
		Expect(elem.String()).To(Equal("abc"))
	})

	It("should walk recursively", func() {
		s := &sampleStruct{
			Field3: &sampleStruct{
				Field1: 1,
			},
		}

		elem, err := walkFields(s, "Field3.Field1")

		Expect(err).To(BeNil())
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk slice recursively", func() {
		s := &sampleStruct{
			Field4: []sampleStruct{{
				Field4: []sampleStruct{
					{Field1: 1},
				},
			}, {}},
		}

		elem, err := walkFields(s, "Field4.0.Field4.0.Field1")

		Expect(err).To(BeNil())
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should reject unexported, missing and out of range fields", func() {
		s := &sampleStruct{Field4: []sampleStruct{{}}}

		for _, path := range []string{"field5", "Field9", "Field4.3", "Field3.Field1"} {
			_, err := walkFields(s, path)
			Expect(err).To(HaveOccurred(), path)
		}
	})
})

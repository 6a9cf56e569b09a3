package tracing

import (
	"bytes"
	"context"
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dvbenc/datarecording"
	"github.com/sarchlab/dvbenc/regio"
)

type accessList struct {
	accesses []Access
}

func (l *accessList) TraceAccess(a Access) {
	l.accesses = append(l.accesses, a)
}

func locateByPage(addr uint32) string {
	if addr < 0x43C10000 {
		return "encoder"
	}

	return "fifo"
}

var _ = Describe("CollectTrace", func() {
	var bus *regio.Bus

	BeforeEach(func() {
		bus = regio.NewBus(regio.NewFake())
	})

	It("should pass reads and writes to the tracer", func() {
		list := &accessList{}
		CollectTrace(bus, locateByPage, list)

		Expect(bus.Write32(0x43C00004, 5)).To(Succeed())
		_, err := bus.Read32(0x43C10010)
		Expect(err).NotTo(HaveOccurred())

		Expect(list.accesses).To(Equal([]Access{
			{Kind: KindWrite, Location: "encoder", Addr: 0x43C00004, Data: 5},
			{Kind: KindRead, Location: "fifo", Addr: 0x43C10010, Data: 0},
		}))
	})

	It("should leave the location empty without a locator", func() {
		list := &accessList{}
		CollectTrace(bus, nil, list)

		Expect(bus.Write32(0x43C00000, 1)).To(Succeed())
		Expect(list.accesses[0].Location).To(BeEmpty())
	})

	It("should refuse the same tracer twice", func() {
		list := &accessList{}
		CollectTrace(bus, nil, list)

		Expect(func() { CollectTrace(bus, nil, list) }).To(Panic())
	})
})

var _ = Describe("LogTracer", func() {
	It("should print one line per access", func() {
		var buf bytes.Buffer
		t := NewLogTracer(log.New(&buf, "", 0))

		t.TraceAccess(Access{Kind: KindWrite, Location: "fifo", Addr: 0x43C10034, Data: 0x47})

		Expect(buf.String()).To(Equal("write, fifo, 0x43C10034, 0x00000047\n"))
	})
})

var _ = Describe("CountTracer", func() {
	It("should count reads and writes per location", func() {
		t := NewCountTracer()

		t.TraceAccess(Access{Kind: KindWrite, Location: "fifo"})
		t.TraceAccess(Access{Kind: KindWrite, Location: "fifo"})
		t.TraceAccess(Access{Kind: KindRead, Location: "encoder"})

		Expect(t.Counts()).To(Equal([]AccessCount{
			{Location: "encoder", Reads: 1},
			{Location: "fifo", Writes: 2},
		}))
	})
})

var _ = Describe("DBTracer", func() {
	It("should store accesses with times relative to its creation", func() {
		db, err := sql.Open("sqlite3", filepath.Join(GinkgoT().TempDir(), "trace.sqlite3"))
		Expect(err).NotTo(HaveOccurred())

		recorder := datarecording.NewWithDB(db)
		defer recorder.Close()

		clock := time.Unix(1000, 0)
		t := NewDBTracer(recorder, func() time.Time { return clock })

		clock = clock.Add(1500 * time.Millisecond)
		t.TraceAccess(Access{Kind: KindRead, Location: "encoder", Addr: 0x43C00008, Data: 3})
		recorder.Flush()

		var entry AccessEntry
		err = db.QueryRow(
			"SELECT ID, Location, What, Time, Address, Data FROM "+AccessTableName,
		).Scan(&entry.ID, &entry.Location, &entry.What, &entry.Time, &entry.Address, &entry.Data)
		Expect(err).NotTo(HaveOccurred())

		Expect(entry.ID).NotTo(BeEmpty())
		Expect(entry.Location).To(Equal("encoder"))
		Expect(entry.What).To(Equal(KindRead))
		Expect(entry.Time).To(BeNumerically("~", 1.5, 1e-9))
		Expect(entry.Address).To(Equal(uint32(0x43C00008)))
		Expect(entry.Data).To(Equal(uint32(3)))
	})

	It("should read the accesses back through a data reader", func() {
		db, err := sql.Open("sqlite3", filepath.Join(GinkgoT().TempDir(), "trace.sqlite3"))
		Expect(err).NotTo(HaveOccurred())

		recorder := datarecording.NewWithDB(db)
		defer recorder.Close()

		t := NewDBTracer(recorder, nil)
		for i, addr := range []uint32{0x43C00000, 0x43C10010, 0x43C10010} {
			t.TraceAccess(Access{Kind: KindWrite, Location: "fifo", Addr: addr, Data: uint32(i)})
		}
		recorder.Flush()

		entries, total, err := ReadAccesses(context.Background(),
			datarecording.NewReaderWithDB(db),
			datarecording.QueryParams{
				Where:   "Address = ?",
				Args:    []any{0x43C10010},
				OrderBy: "Data DESC",
				Limit:   1,
			})
		Expect(err).NotTo(HaveOccurred())

		Expect(total).To(Equal(2))
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Data).To(Equal(uint32(2)))
		Expect(entries[0].What).To(Equal(KindWrite))
	})
})

var _ = Describe("CSVTracer", func() {
	It("should write the buffered accesses on flush", func() {
		path := filepath.Join(GinkgoT().TempDir(), "trace")

		t := NewCSVTracer(path)
		t.Init()
		t.TraceAccess(Access{Kind: KindWrite, Location: "fifo", Addr: 0x43C10028, Data: 0xA5})
		t.Flush()
		Expect(t.Close()).To(Succeed())

		content, err := os.ReadFile(path + ".csv")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(Equal(
			"Kind, Location, Address, Data\n" +
				"write, fifo, 0x43C10028, 0x000000A5\n"))
	})

	It("should refuse an existing file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "trace")
		Expect(os.WriteFile(path+".csv", nil, 0o600)).To(Succeed())

		Expect(func() { NewCSVTracer(path).Init() }).To(Panic())
	})
})

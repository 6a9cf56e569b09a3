package tracing

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// CSVTracer stores the accesses in a CSV file.
type CSVTracer struct {
	lock sync.Mutex
	path string
	file *os.File

	accesses   []Access
	bufferSize int
}

// NewCSVTracer creates a tracer that writes to path + ".csv". An empty
// path picks a unique name.
func NewCSVTracer(path string) *CSVTracer {
	return &CSVTracer{
		path:       path,
		bufferSize: 1000,
	}
}

// Init creates the CSV file. The file must not exist yet.
func (t *CSVTracer) Init() {
	if t.path == "" {
		t.path = "dvbenc_trace_" + xid.New().String()
	}

	filename := t.path + ".csv"

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}

	t.file = file

	fmt.Fprintf(file, "Kind, Location, Address, Data\n")

	atexit.Register(func() { _ = t.Close() })
}

// TraceAccess buffers an access.
func (t *CSVTracer) TraceAccess(a Access) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.accesses = append(t.accesses, a)
	if len(t.accesses) >= t.bufferSize {
		t.flush()
	}
}

// Flush writes the buffered accesses to the file.
func (t *CSVTracer) Flush() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.flush()
}

func (t *CSVTracer) flush() {
	if t.file == nil {
		return
	}

	for _, a := range t.accesses {
		fmt.Fprintf(t.file, "%s, %s, 0x%08X, 0x%08X\n",
			a.Kind, a.Location, a.Addr, a.Data)
	}

	t.accesses = nil
}

// Close flushes and closes the file. Accesses traced after Close are
// dropped.
func (t *CSVTracer) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.flush()

	if t.file == nil {
		return nil
	}

	err := t.file.Close()
	t.file = nil

	return err
}

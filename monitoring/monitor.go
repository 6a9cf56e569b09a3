// Package monitoring serves the encoder state over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"reflect"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/dvbenc/axi"
	"github.com/sarchlab/dvbenc/encoder"
	"github.com/sarchlab/dvbenc/monitoring/web"
	"github.com/sarchlab/dvbenc/tracing"
)

// An Encoder is what the monitor reads. *encoder.Encoder implements it.
type Encoder interface {
	Status() (encoder.Status, error)
	Stages() []*axi.DebugBlock
	Stage(name string) (*axi.DebugBlock, bool)
}

// Monitor turns an encoder into a server that reports its state.
type Monitor struct {
	encoder    Encoder
	counter    *tracing.CountTracer
	portNumber int

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor(e Encoder) *Monitor {
	return &Monitor{encoder: e}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterAccessCounter makes the per-location access counts available.
func (m *Monitor) RegisterAccessCounter(t *tracing.CountTracer) {
	m.counter = t
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the handler that serves the API and the web page.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/read/status", m.readStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/stages", m.listStages).Methods(http.MethodGet)
	r.HandleFunc("/api/stage/{name}", m.stageDetails).Methods(http.MethodGet)
	r.HandleFunc("/api/stage/{name}/{field}", m.stageField).Methods(http.MethodGet)
	r.HandleFunc("/api/accesses", m.listAccesses).Methods(http.MethodGet)
	r.HandleFunc("/api/progress", m.listProgressBars).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server in the background and
// returns the port it listens on.
func (m *Monitor) StartServer() int {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	port := listener.Addr().(*net.TCPAddr).Port

	fmt.Fprintf(os.Stderr, "Monitoring encoder with http://localhost:%d\n", port)

	go func() {
		err := http.Serve(listener, m.Router())
		dieOnErr(err)
	}()

	return port
}

func (m *Monitor) readStatus(w http.ResponseWriter, _ *http.Request) {
	status, err := m.encoder.Status()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, status)
}

func (m *Monitor) listStages(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.encoder.Stages()))
	for _, s := range m.encoder.Stages() {
		names = append(names, s.Name())
	}

	writeJSON(w, names)
}

func (m *Monitor) stageDetails(w http.ResponseWriter, r *http.Request) {
	stage, ok := m.readStageOr404(w, mux.Vars(r)["name"])
	if !ok {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(stage)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) stageField(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	stage, ok := m.readStageOr404(w, vars["name"])
	if !ok {
		return
	}

	elem, err := walkFields(stage, vars["field"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, elem.Interface())
}

func (m *Monitor) readStageOr404(
	w http.ResponseWriter,
	name string,
) (encoder.StageStatus, bool) {
	block, found := m.encoder.Stage(name)
	if !found {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Stage not found"))
		dieOnErr(err)

		return encoder.StageStatus{}, false
	}

	stage, err := encoder.StageStatusOf(block)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return encoder.StageStatus{}, false
	}

	return stage, true
}

type fieldFormatError struct {
	field string
}

func (e fieldFormatError) Error() string {
	return fmt.Sprintf("cannot resolve field %q", e.field)
}

// walkFields follows a dot-separated path of exported field names and
// slice indices.
func walkFields(root any, fields string) (reflect.Value, error) {
	elem := reflect.ValueOf(root)

	fieldNames := strings.Split(fields, ".")

	for len(fieldNames) > 0 {
		switch elem.Kind() {
		case reflect.Ptr, reflect.Interface:
			if elem.IsNil() {
				return elem, fieldFormatError{fields}
			}

			elem = elem.Elem()
		case reflect.Struct:
			sf, ok := elem.Type().FieldByName(fieldNames[0])
			if !ok || !sf.IsExported() {
				return elem, fieldFormatError{fields}
			}

			elem = elem.FieldByIndex(sf.Index)
			fieldNames = fieldNames[1:]
		case reflect.Slice:
			index, err := strconv.Atoi(fieldNames[0])
			if err != nil || index < 0 || index >= elem.Len() {
				return elem, fieldFormatError{fields}
			}

			elem = elem.Index(index)
			fieldNames = fieldNames[1:]
		default:
			return elem, fieldFormatError{fields}
		}
	}

	if elem.Kind() == reflect.Ptr && !elem.IsNil() {
		elem = elem.Elem()
	}

	return elem, nil
}

func (m *Monitor) listAccesses(w http.ResponseWriter, _ *http.Request) {
	counts := []tracing.AccessCount{}
	if m.counter != nil {
		counts = m.counter.Counts()
	}

	writeJSON(w, counts)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	writeJSON(w, m.progressBars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}

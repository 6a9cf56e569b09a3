package tracing

import (
	"time"

	"github.com/rs/xid"
	"github.com/sarchlab/dvbenc/datarecording"
)

// AccessTableName is the table that DBTracer writes to.
const AccessTableName = "register_accesses"

// AccessEntry is one row of the access table.
type AccessEntry struct {
	ID       string  `json:"id"`
	Location string  `json:"location"`
	What     string  `json:"what"`
	Time     float64 `json:"time"`
	Address  uint32  `json:"address"`
	Data     uint32  `json:"data"`
}

// DBTracer stores every access in a data recorder.
type DBTracer struct {
	recorder datarecording.DataRecorder
	now      func() time.Time
	start    time.Time
}

// NewDBTracer creates the access table and returns a tracer that fills it.
// Times are recorded in seconds since the tracer was created. A nil now
// uses the wall clock.
func NewDBTracer(
	recorder datarecording.DataRecorder,
	now func() time.Time,
) *DBTracer {
	if now == nil {
		now = time.Now
	}

	recorder.CreateTable(AccessTableName, AccessEntry{})

	return &DBTracer{
		recorder: recorder,
		now:      now,
		start:    now(),
	}
}

// TraceAccess buffers an access for the recorder.
func (t *DBTracer) TraceAccess(a Access) {
	t.recorder.InsertData(AccessTableName, AccessEntry{
		ID:       xid.New().String(),
		Location: a.Location,
		What:     a.Kind,
		Time:     t.now().Sub(t.start).Seconds(),
		Address:  a.Addr,
		Data:     a.Data,
	})
}

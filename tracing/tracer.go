// Package tracing records the register accesses that cross a bus.
package tracing

// Access kinds.
const (
	KindRead  = "read"
	KindWrite = "write"
)

// An Access is one traced register access.
type Access struct {
	Kind     string
	Location string
	Addr     uint32
	Data     uint32
}

// A Tracer collects register accesses.
type Tracer interface {
	TraceAccess(a Access)
}

// A Locator names the register block that an address belongs to. It
// returns an empty string for addresses it does not know.
type Locator func(addr uint32) string

package tracing

import "log"

// LogTracer prints every access through a logger.
type LogTracer struct {
	logger *log.Logger
}

// NewLogTracer creates a tracer that writes one line per access.
func NewLogTracer(logger *log.Logger) *LogTracer {
	return &LogTracer{logger: logger}
}

// TraceAccess prints the access.
func (t *LogTracer) TraceAccess(a Access) {
	t.logger.Printf("%s, %s, 0x%08X, 0x%08X", a.Kind, a.Location, a.Addr, a.Data)
}

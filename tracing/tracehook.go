package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/dvbenc/regio"
)

// CollectTrace lets the tracer collect every access made through a domain.
// The locator may be nil.
func CollectTrace(domain regio.Hookable, locate Locator, tracer Tracer) {
	for _, hook := range domain.Hooks() {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"domain already has tracer %s", reflect.TypeOf(tracer)))
		}
	}

	h := traceHook{t: tracer, locate: locate}
	domain.AcceptHook(&h)
}

// A traceHook turns bus hook calls into traced accesses.
type traceHook struct {
	t      Tracer
	locate Locator
}

// Func calls the tracer when the hook is triggered
func (h *traceHook) Func(ctx regio.HookCtx) {
	a := Access{
		Addr: ctx.Item.Addr,
		Data: ctx.Item.Data,
	}

	switch ctx.Pos {
	case regio.HookPosRead:
		a.Kind = KindRead
	case regio.HookPosWrite:
		a.Kind = KindWrite
	default:
		return
	}

	if h.locate != nil {
		a.Location = h.locate(a.Addr)
	}

	h.t.TraceAccess(a)
}

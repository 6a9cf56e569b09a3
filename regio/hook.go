package regio

// HookPos names the point in an access at which a hook fires.
type HookPos struct {
	Name string
}

// HookPosRead fires after a register read completes.
var HookPosRead = &HookPos{Name: "Read"}

// HookPosWrite fires after a register write completes.
var HookPosWrite = &HookPos{Name: "Write"}

// An Access is one completed register access.
type Access struct {
	Addr uint32
	Data uint32
}

// HookCtx is what a hook receives when it fires.
type HookCtx struct {
	// Domain is the bus that carried the access.
	Domain Hookable

	// Pos tells whether the access was a read or a write.
	Pos *HookPos

	// Item is the Access itself.
	Item Access
}

// Hookable defines an object that accepts hooks.
type Hookable interface {
	// AcceptHook registers a hook. Hooks are registered before the domain is
	// used and are never removed.
	AcceptHook(hook Hook)

	// NumHooks returns the number of hooks registered.
	NumHooks() int

	// Hooks returns the registered hooks in registration order.
	Hooks() []Hook
}

// A Hook observes register accesses.
type Hook interface {
	Func(ctx HookCtx)
}

// A HookableBase keeps the hook list of a Hookable.
type HookableBase struct {
	hookList []Hook
}

// NewHookableBase creates a HookableBase object.
func NewHookableBase() *HookableBase {
	return &HookableBase{hookList: make([]Hook, 0)}
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hookList)
}

// Hooks returns the registered hooks in registration order.
func (h *HookableBase) Hooks() []Hook {
	return h.hookList
}

// AcceptHook registers a hook. Registering the same hook twice panics.
func (h *HookableBase) AcceptHook(hook Hook) {
	for _, registered := range h.hookList {
		if registered == hook {
			panic("duplicated hook")
		}
	}

	h.hookList = append(h.hookList, hook)
}

// InvokeHook calls every registered hook in registration order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}


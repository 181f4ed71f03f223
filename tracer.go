package candy

import "fmt"

// Tracer observes a fiber's execution (spec §4.F "tracing"): call
// boundaries, evaluated expressions, and fuzzable closures discovered
// along the way. The interpreter calls these at the Trace* instructions
// mir_to_lir.go already emits; a Tracer never influences control flow,
// only records it.
type Tracer interface {
	CallStarts(module Module, callee Value, arguments []Value)
	CallEnds(result Value)
	ExpressionEvaluated(origin HirID, value Value)
	FoundFuzzableClosure(origin HirID, closure *ClosureValue)
	ModuleStarts(module Module)
	ModuleEnds(module Module)
}

// NullTracer discards every event; the default when no one's debugging.
type NullTracer struct{}

func (NullTracer) CallStarts(Module, Value, []Value)       {}
func (NullTracer) CallEnds(Value)                           {}
func (NullTracer) ExpressionEvaluated(HirID, Value)          {}
func (NullTracer) FoundFuzzableClosure(HirID, *ClosureValue) {}
func (NullTracer) ModuleStarts(Module)                       {}
func (NullTracer) ModuleEnds(Module)                         {}

// callTraceEntry is one live call frame as seen by FullTracer, used to
// assemble a stack trace if the fiber eventually panics.
type callTraceEntry struct {
	Module    Module
	Callee    Value
	Arguments []Value
}

// FullTracer records everything: the stack of currently open calls, the latest
// value each expression evaluated to, and every fuzzable closure it
// has seen — enough to reconstruct a panic's stack trace the way the
// original VM's tracer module does (spec §4.F).
type FullTracer struct {
	stack             []callTraceEntry
	Evaluated         map[string]Value
	FuzzableClosures  []*ClosureValue
	moduleStack       []Module
}

func NewFullTracer() *FullTracer {
	return &FullTracer{Evaluated: map[string]Value{}}
}

func (t *FullTracer) CallStarts(module Module, callee Value, arguments []Value) {
	t.stack = append(t.stack, callTraceEntry{Module: module, Callee: callee, Arguments: arguments})
}

func (t *FullTracer) CallEnds(Value) {
	if len(t.stack) > 0 {
		t.stack = t.stack[:len(t.stack)-1]
	}
}

func (t *FullTracer) ExpressionEvaluated(origin HirID, value Value) {
	t.Evaluated[origin.String()] = value
}

func (t *FullTracer) FoundFuzzableClosure(origin HirID, closure *ClosureValue) {
	t.FuzzableClosures = append(t.FuzzableClosures, closure)
}

func (t *FullTracer) ModuleStarts(module Module) { t.moduleStack = append(t.moduleStack, module) }

func (t *FullTracer) ModuleEnds(module Module) {
	if len(t.moduleStack) > 0 {
		t.moduleStack = t.moduleStack[:len(t.moduleStack)-1]
	}
}

// FormatPanicStackTrace renders the currently open calls, innermost
// first, the way the VM reports an uncaught panic (spec §4.G
// "Panicking").
func (t *FullTracer) FormatPanicStackTrace(reason string) string {
	out := "panic: " + reason + "\n"
	for i := len(t.stack) - 1; i >= 0; i-- {
		entry := t.stack[i]
		out += fmt.Sprintf("  at %s (%s)\n", describeValue(entry.Callee), entry.Module)
	}
	return out
}

func describeValue(v Value) string {
	switch val := v.(type) {
	case *ClosureValue:
		return fmt.Sprintf("closure@%s", val.Origin)
	case BuiltinValue:
		return val.Function.String()
	case nil:
		return "unknown callee"
	default:
		return v.Type()
	}
}

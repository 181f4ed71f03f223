package candy

import "math/big"

// Instruction is one LIR bytecode op. Every variant knows its own name
// and can report the HirID it was lowered from for panic stack traces —
// the same shape as the teacher's `vm_instructions.go` Instruction
// interface (`Name()`/`SizeInBytes()`/`SourceLocation()`), generalized
// from a PEG matcher's flat choice/commit tape to a stack-machine tape.
type Instruction interface {
	Name() string
	// Origin is the HirID this instruction was lowered from, used to
	// build a panic's stack trace (spec §4.G).
	Origin() HirID
}

type instrBase struct{ origin HirID }

func (b instrBase) Origin() HirID { return b.origin }

// PushInt/PushText/PushSymbol/PushHirId push a freshly heap-allocated
// constant onto the data stack.
type PushInt struct {
	instrBase
	Value *big.Int
}

func (PushInt) Name() string { return "pushInt" }

type PushText struct {
	instrBase
	Value string
}

func (PushText) Name() string { return "pushText" }

type PushSymbol struct {
	instrBase
	Name string
}

func (PushSymbol) Name() string { return "pushSymbol" }

type PushHirId struct {
	instrBase
	ID HirID
}

func (PushHirId) Name() string { return "pushHirId" }

// PushFromStack duplicates the stack slot StackOffset-from-top (0 =
// current top) onto the top of the stack, incrementing the value's
// reference count. This is how LIR reuses a value bound earlier in the
// same frame without re-evaluating it.
type PushFromStack struct {
	instrBase
	StackOffset int
}

func (PushFromStack) Name() string { return "pushFromStack" }

// PushBuiltin pushes a reference to a builtin function.
type PushBuiltin struct {
	instrBase
	Function Builtin
}

func (PushBuiltin) Name() string { return "pushBuiltin" }

// PushStruct pops 2*NumFields values off the stack (alternating
// value, key from the top down) and pushes the assembled struct.
type PushStruct struct {
	instrBase
	NumFields int
}

func (PushStruct) Name() string { return "pushStruct" }

// PushClosure pushes a new closure object: it captures values from
// CaptureStackOffsets (relative to the current stack top at the point
// PushClosure runs) and points at the closure's own instruction range.
// Body assumes a fresh frame whose stack starts with the captures (in
// CaptureStackOffsets order), then the parameters, then the responsible
// HirId — the interpreter must seed a closure's call frame that way.
type PushClosure struct {
	instrBase
	CaptureStackOffsets  []int
	NumParameters        int
	Body                 []Instruction
	IsFuzzable           bool
}

func (PushClosure) Name() string { return "pushClosure" }

// PopMultipleBelowTop discards Count stack slots just below the current
// top, dropping each one's reference count, while keeping the top
// value itself — how LIR cleans up a frame's locals right before a
// tail call or return without disturbing the value being returned.
type PopMultipleBelowTop struct {
	instrBase
	Count int
}

func (PopMultipleBelowTop) Name() string { return "popMultipleBelowTop" }

// Call pops a responsible HirId, NumArguments arguments, and a
// closure/builtin off the stack (responsible on top, arguments below
// it, closure below them) and pushes a new call frame.
type Call struct {
	instrBase
	NumArguments int
}

func (Call) Name() string { return "call" }

// TailCall is a Call in tail position: instead of pushing a new frame
// on top of the current one, it replaces it, so deep recursion in tail
// position doesn't grow the call stack (spec §4.E "tail-call
// conversion").
type TailCall struct {
	instrBase
	NumArguments int
}

func (TailCall) Name() string { return "tailCall" }

// Return pops the current call frame, returning its top-of-stack value
// to the caller.
type Return struct{ instrBase }

func (Return) Name() string { return "return" }

// Panic aborts the current fiber (or unwinds to the nearest `try`
// scope): Reason and Responsible are stack offsets to the already
// pushed values.
type Panic struct {
	instrBase
	ReasonStackOffset      int
	ResponsibleStackOffset int
}

func (Panic) Name() string { return "panic" }

// ModuleStarts/ModuleEnds are no-ops to the interpreter that exist
// purely so the tracer can report which module a stretch of inlined
// instructions originated from.
type ModuleStarts struct {
	instrBase
	Module Module
}

func (ModuleStarts) Name() string { return "moduleStarts" }

type ModuleEnds struct{ instrBase }

func (ModuleEnds) Name() string { return "moduleEnds" }

type TraceCallStarts struct{ instrBase }

func (TraceCallStarts) Name() string { return "traceCallStarts" }

type TraceCallEnds struct{ instrBase }

func (TraceCallEnds) Name() string { return "traceCallEnds" }

// TraceExpressionEvaluated reports that the value StackOffset slots
// from the top is the result of evaluating Origin().
type TraceExpressionEvaluated struct {
	instrBase
	StackOffset int
}

func (TraceExpressionEvaluated) Name() string { return "traceExpressionEvaluated" }

type TraceFoundFuzzableClosure struct {
	instrBase
	StackOffset int
}

func (TraceFoundFuzzableClosure) Name() string { return "traceFoundFuzzableClosure" }

// Dup/Drop are explicit reference-count adjustments, lowered one for
// one from MirDup/MirDrop bindings; LIR just executes them against the
// value StackOffset slots from the top.
type Dup struct {
	instrBase
	StackOffset int
}

func (Dup) Name() string { return "dup" }

type Drop struct {
	instrBase
	StackOffset int
}

func (Drop) Name() string { return "drop" }

// Lir is one module's compiled bytecode: a flat top-level instruction
// sequence (its "module body", run once to produce the module's
// exported value) plus every closure's own instruction range reachable
// from a PushClosure.
type Lir struct {
	Module Module
	Body   []Instruction
}

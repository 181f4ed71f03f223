package candy

import "math/big"

// MirExpression is a MIR node: the same value-producing shapes HIR has,
// plus the handful MIR adds once `needs` is lowered into control flow
// and the tracer/refcounting machinery gets a place to attach markers
// (spec §4.C, §4.D): Panic, Multiple, Dup/Drop, and the Trace* markers.
type MirExpression interface {
	isMirExpression()
}

type MirInt struct{ Value *big.Int }
type MirText struct{ Value string }
type MirSymbol struct{ Name string }
type MirReference struct{ Target HirID }

type MirStructField struct{ Key, Value HirID }
type MirStruct struct{ Fields []MirStructField }

type MirLambda struct {
	Parameters           []HirID
	ResponsibleParameter HirID
	Body                 MirBody
	Fuzzable             bool
	Captures             []HirID
}

type MirBuiltin struct{ Function Builtin }

type MirCall struct {
	Function    HirID
	Arguments   []HirID
	Responsible HirID
	// IsTailCall is not set by any pass in this package: LowerMirToLir
	// decides tail position on its own (a call that produces its body's
	// return value becomes a TailCall), and PrintMir shows the flag only
	// when it is set.
	IsTailCall bool
}

type MirUseModule struct {
	CurrentModule Module
	RelativePath  HirID
}

// MirPanic is a deterministic abort: the VM unwinds to the nearest
// enclosing `try` scope (or terminates the fiber) blaming Responsible
// for Reason (spec §4.G, §5 "structured concurrency").
type MirPanic struct {
	Reason      HirID
	Responsible HirID
}

// MirMultiple wraps a transient nested body produced while the
// module-folding passes inline a `useModule` target's body into its
// call site, before the multiple-flattening pass splices it back into
// the parent body in place. Valid MIR never contains one (spec §4.D).
type MirMultiple struct{ Body MirBody }

// MirDup/MirDrop are explicit reference-count adjustments; no pass in
// this package inserts them. MIR->LIR turns each into an explicit heap
// instruction.
type MirDup struct{ Target HirID }
type MirDrop struct{ Target HirID }

type MirTraceCallStarts struct{ Call HirID }
type MirTraceCallEnds struct{ Call HirID }
type MirTraceExpressionEvaluated struct{ Target HirID }
type MirTraceFoundFuzzableClosure struct{ Closure HirID }

// MirModuleStarts/MirModuleEnds bracket an inlined `useModule` target's
// body so the tracer (and panic stack traces) can tell which module a
// given HirID's code originated from even after inlining.
type MirModuleStarts struct{ Module Module }
type MirModuleEnds struct{ Module Module }

func (MirInt) isMirExpression()                     {}
func (MirText) isMirExpression()                    {}
func (MirSymbol) isMirExpression()                  {}
func (MirReference) isMirExpression()                {}
func (MirStruct) isMirExpression()                  {}
func (MirLambda) isMirExpression()                  {}
func (MirBuiltin) isMirExpression()                 {}
func (MirCall) isMirExpression()                    {}
func (MirUseModule) isMirExpression()                {}
func (MirPanic) isMirExpression()                   {}
func (MirMultiple) isMirExpression()                {}
func (MirDup) isMirExpression()                     {}
func (MirDrop) isMirExpression()                    {}
func (MirTraceCallStarts) isMirExpression()          {}
func (MirTraceCallEnds) isMirExpression()            {}
func (MirTraceExpressionEvaluated) isMirExpression() {}
func (MirTraceFoundFuzzableClosure) isMirExpression(){}
func (MirModuleStarts) isMirExpression()             {}
func (MirModuleEnds) isMirExpression()               {}

type MirBinding struct {
	ID   HirID
	Expr MirExpression
}

type MirBody struct {
	Bindings []MirBinding
}

func (b *MirBody) Push(id HirID, expr MirExpression) HirID {
	b.Bindings = append(b.Bindings, MirBinding{ID: id, Expr: expr})
	return id
}

func (b MirBody) ReturnID() (HirID, bool) {
	if len(b.Bindings) == 0 {
		return HirID{}, false
	}
	return b.Bindings[len(b.Bindings)-1].ID, true
}

func (b *MirBody) RemoveWhere(pred func(MirBinding) bool) {
	out := b.Bindings[:0]
	for _, bind := range b.Bindings {
		if !pred(bind) {
			out = append(out, bind)
		}
	}
	b.Bindings = out
}

type Mir struct {
	Module Module
	Body   MirBody
}

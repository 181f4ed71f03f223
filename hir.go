package candy

import "math/big"

// Builtin enumerates the host functions the VM can dispatch directly
// (spec §3 "Builtin (enumerated host function)"). Candy's surface
// language has many more than this; this is the subset the compiler,
// VM, and fuzzer examples in spec §8 exercise plus the handful needed
// for structured concurrency.
type Builtin int

const (
	BuiltinEquals Builtin = iota
	BuiltinTypeOf
	BuiltinIfElse
	BuiltinIntAdd
	BuiltinIntSubtract
	BuiltinIntMultiply
	BuiltinIntDivideTruncating
	BuiltinIntModulo
	BuiltinIntCompareTo
	BuiltinTextConcatenate
	BuiltinStructGet
	BuiltinStructHasKey
	BuiltinListGet
	BuiltinListLength
	BuiltinListInsert
	BuiltinPrint
	BuiltinChannelCreate
	BuiltinChannelSend
	BuiltinChannelReceive
	BuiltinGetRandomBytes
	BuiltinStdin
	BuiltinParallel
	BuiltinTry
)

var builtinNames = map[Builtin]string{
	BuiltinEquals:              "equals",
	BuiltinTypeOf:              "typeOf",
	BuiltinIfElse:              "ifElse",
	BuiltinIntAdd:              "intAdd",
	BuiltinIntSubtract:         "intSubtract",
	BuiltinIntMultiply:         "intMultiply",
	BuiltinIntDivideTruncating: "intDivideTruncating",
	BuiltinIntModulo:           "intModulo",
	BuiltinIntCompareTo:        "intCompareTo",
	BuiltinTextConcatenate:     "concatenate",
	BuiltinStructGet:           "structGet",
	BuiltinStructHasKey:        "structHasKey",
	BuiltinListGet:             "listGet",
	BuiltinListLength:          "listLength",
	BuiltinListInsert:          "listInsert",
	BuiltinPrint:               "print",
	BuiltinChannelCreate:       "channelCreate",
	BuiltinChannelSend:         "channelSend",
	BuiltinChannelReceive:      "channelReceive",
	BuiltinGetRandomBytes:      "getRandomBytes",
	BuiltinStdin:               "stdin",
	BuiltinParallel:            "parallel",
	BuiltinTry:                 "try",
}

func (b Builtin) String() string {
	if n, ok := builtinNames[b]; ok {
		return n
	}
	return "<unknown builtin>"
}

// Expression is one HIR node. Bodies are already in the ordered,
// ANF-like shape the real `candy` frontend's `hir.rs` uses: every
// sub-expression is first bound to its own HirID by Body, and later
// expressions refer back to it with Reference — see DESIGN.md for why
// MIR's "flattening" (spec §4.C) is therefore mostly about responsible
// parameters and needs/useModule lowering rather than ANF conversion
// itself.
type Expression interface {
	isHirExpression()
}

type ExprInt struct{ Value *big.Int }
type ExprText struct{ Value string }
type ExprSymbol struct{ Name string }
type ExprReference struct{ Target HirID }

type StructField struct{ Key, Value HirID }
type ExprStruct struct{ Fields []StructField }

type ExprLambda struct {
	Parameters           []HirID
	ResponsibleParameter HirID
	Body                 Body
	Fuzzable             bool
	// Captures is every ID referenced in Body whose defining scope is
	// not this lambda or one of its nested lambdas (spec §4.B
	// "Captures").
	Captures []HirID
}

type ExprBuiltin struct{ Function Builtin }

type ExprCall struct {
	Function    HirID
	Arguments   []HirID
	Responsible HirID
}

type ExprUseModule struct {
	CurrentModule Module
	RelativePath  HirID
}

type ExprNeeds struct {
	Condition   HirID
	Reason      HirID // zero value means "no reason given"
	HasReason   bool
	Responsible HirID
}

type ExprError struct {
	Child  *HirID
	Errors []CompileError
}

func (ExprInt) isHirExpression()        {}
func (ExprText) isHirExpression()       {}
func (ExprSymbol) isHirExpression()     {}
func (ExprReference) isHirExpression()  {}
func (ExprStruct) isHirExpression()     {}
func (ExprLambda) isHirExpression()     {}
func (ExprBuiltin) isHirExpression()    {}
func (ExprCall) isHirExpression()       {}
func (ExprUseModule) isHirExpression()  {}
func (ExprNeeds) isHirExpression()      {}
func (ExprError) isHirExpression()      {}

// Binding is one `(Id, Expression)` pair of a Body.
type Binding struct {
	ID   HirID
	Expr Expression
}

// Body is an ordered sequence of bindings; the last binding's ID is the
// value the body evaluates to.
type Body struct {
	Bindings []Binding
}

func (b *Body) Push(id HirID, expr Expression) HirID {
	b.Bindings = append(b.Bindings, Binding{ID: id, Expr: expr})
	return id
}

func (b Body) ReturnID() (HirID, bool) {
	if len(b.Bindings) == 0 {
		return HirID{}, false
	}
	return b.Bindings[len(b.Bindings)-1].ID, true
}

func (b Body) Lookup(id HirID) (Expression, bool) {
	for _, bind := range b.Bindings {
		if bind.ID.String() == id.String() {
			return bind.Expr, true
		}
	}
	return nil, false
}

// Hir is a whole compiled module: its module and its top-level body
// (one binding per public/private assignment). Diagnostics are not
// stored here.
type Hir struct {
	Module Module
	Body   Body
}

package candy

import "math/big"

// Value is a Candy runtime value. Go's garbage collector already
// reclaims the backing memory; the reference counts Heap tracks
// alongside each Value exist to match Candy's own semantics (a channel
// a closure captures should be considered "dropped" exactly when the
// language says so, not whenever Go's GC happens to run), not to manage
// memory directly — generalizing the teacher's single `Value` interface
// with one small struct per node kind (`value.go`) from a parse tree's
// node set to the VM's runtime object set.
type Value interface {
	isValue()
	// Type is the symbol `typeOf` returns for this value (spec's
	// BuiltinTypeOf).
	Type() string
}

type IntValue struct{ Value *big.Int }
type TextValue struct{ Value string }

// SymbolValue is a bare tag like `True`/`Nothing` with no payload.
type SymbolValue struct{ Name string }

// TagValue is a symbol carrying a payload, e.g. `Ok value`. The
// compiler never produces one directly (there's no tag-with-value
// surface syntax in this subset); builtins construct one (stdin's
// `Some`/`None`) and so does the scheduler (a `try`'s `Ok`/`Error`).
type TagValue struct {
	Name  string
	Value Value
}

// StructValue is an ordered key/value mapping. List literals lower to
// one of these with integer-string keys ("0", "1", ...); ListGet/
// ListLength/ListInsert interpret it that way (see builtins.go).
type StructValue struct {
	Keys   []Value
	Values []Value
}

func (s *StructValue) Get(key Value) (Value, bool) {
	for i, k := range s.Keys {
		if valuesEqual(k, key) {
			return s.Values[i], true
		}
	}
	return nil, false
}

// ClosureValue is a compiled closure: its own instruction body plus the
// values it captured at creation time, addressed by position to match
// PushClosure's capture list.
type ClosureValue struct {
	Body          []Instruction
	Captures      []Value
	NumParameters int
	Origin        HirID
	Fuzzable      bool
}

// BuiltinValue is a reference to a host function.
type BuiltinValue struct{ Function Builtin }

// HirIdValue carries a HirID as a first-class value, the way the
// compiler pushes one to blame a panic on (spec §3 "Responsible").
type HirIdValue struct{ ID HirID }

// SendPortValue/ReceivePortValue are channel endpoints; a channel
// itself lives in the Scheduler's channel table (spec §4.H), not on the
// heap, mirroring how ports are thin handles in the original VM.
type SendPortValue struct{ Channel ChannelID }
type ReceivePortValue struct{ Channel ChannelID }

func (IntValue) isValue()          {}
func (TextValue) isValue()         {}
func (SymbolValue) isValue()       {}
func (TagValue) isValue()          {}
func (*StructValue) isValue()      {}
func (*ClosureValue) isValue()     {}
func (BuiltinValue) isValue()      {}
func (HirIdValue) isValue()        {}
func (SendPortValue) isValue()     {}
func (ReceivePortValue) isValue()  {}

func (IntValue) Type() string         { return "Int" }
func (TextValue) Type() string        { return "Text" }
func (s SymbolValue) Type() string    { return s.Name }
func (t TagValue) Type() string       { return t.Name }
func (*StructValue) Type() string     { return "Struct" }
func (*ClosureValue) Type() string    { return "Function" }
func (BuiltinValue) Type() string     { return "Builtin" }
func (HirIdValue) Type() string       { return "HirId" }
func (SendPortValue) Type() string    { return "SendPort" }
func (ReceivePortValue) Type() string { return "ReceivePort" }

func valuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case IntValue:
		bv, ok := b.(IntValue)
		return ok && av.Value.Cmp(bv.Value) == 0
	case TextValue:
		bv, ok := b.(TextValue)
		return ok && av.Value == bv.Value
	case SymbolValue:
		bv, ok := b.(SymbolValue)
		return ok && av.Name == bv.Name
	case TagValue:
		bv, ok := b.(TagValue)
		return ok && av.Name == bv.Name && valuesEqual(av.Value, bv.Value)
	case *StructValue:
		bv, ok := b.(*StructValue)
		if !ok || len(av.Keys) != len(bv.Keys) {
			return false
		}
		for i := range av.Keys {
			other, found := bv.Get(av.Keys[i])
			if !found || !valuesEqual(av.Values[i], other) {
				return false
			}
		}
		return true
	case SendPortValue:
		bv, ok := b.(SendPortValue)
		return ok && av.Channel == bv.Channel
	case ReceivePortValue:
		bv, ok := b.(ReceivePortValue)
		return ok && av.Channel == bv.Channel
	case BuiltinValue:
		bv, ok := b.(BuiltinValue)
		return ok && av.Function == bv.Function
	case HirIdValue:
		bv, ok := b.(HirIdValue)
		return ok && av.ID.String() == bv.ID.String()
	default:
		return a == b
	}
}

// NothingValue is the conventional Candy unit value.
func NothingValue() Value { return SymbolValue{Name: "Nothing"} }

func boolValue(b bool) Value {
	if b {
		return SymbolValue{Name: "True"}
	}
	return SymbolValue{Name: "False"}
}

package candy

import (
	"fmt"
	"math/big"
)

// builtinPanic is how a builtin signals that its arguments don't
// satisfy its contract (spec §4.F "builtins validate their own
// arguments"): the interpreter turns it into an ordinary fiber panic
// blamed on the call's Responsible HirID, same as a user-level `panic`.
type builtinPanic struct{ Reason string }

func (p builtinPanic) Error() string { return p.Reason }

func panicf(format string, args ...any) error {
	return builtinPanic{Reason: fmt.Sprintf(format, args...)}
}

// callPureBuiltin evaluates every Builtin that neither needs to invoke
// a closure itself (ifElse) nor talks to the scheduler's channel table
// (channelCreate/Send/Receive) — both of those are dispatched directly
// from fiber.go's Call handling instead, since they need machinery this
// function doesn't have.
func callPureBuiltin(b Builtin, args []Value, env Environment) (Value, error) {
	switch b {
	case BuiltinEquals:
		if len(args) != 2 {
			return nil, panicf("equals expects 2 arguments, got %d", len(args))
		}
		return boolValue(valuesEqual(args[0], args[1])), nil

	case BuiltinTypeOf:
		if len(args) != 1 {
			return nil, panicf("typeOf expects 1 argument, got %d", len(args))
		}
		return SymbolValue{Name: args[0].Type()}, nil

	case BuiltinIntAdd, BuiltinIntSubtract, BuiltinIntMultiply, BuiltinIntDivideTruncating, BuiltinIntModulo, BuiltinIntCompareTo:
		return callIntBuiltin(b, args)

	case BuiltinTextConcatenate:
		if len(args) != 2 {
			return nil, panicf("concatenate expects 2 arguments, got %d", len(args))
		}
		a, ok1 := args[0].(TextValue)
		c, ok2 := args[1].(TextValue)
		if !ok1 || !ok2 {
			return nil, panicf("concatenate expects two Texts")
		}
		return TextValue{Value: a.Value + c.Value}, nil

	case BuiltinStructGet:
		if len(args) != 2 {
			return nil, panicf("structGet expects 2 arguments, got %d", len(args))
		}
		s, ok := args[0].(*StructValue)
		if !ok {
			return nil, panicf("structGet expects a Struct, got %s", args[0].Type())
		}
		v, found := s.Get(args[1])
		if !found {
			return nil, panicf("struct does not contain key %v", args[1])
		}
		return v, nil

	case BuiltinStructHasKey:
		if len(args) != 2 {
			return nil, panicf("structHasKey expects 2 arguments, got %d", len(args))
		}
		s, ok := args[0].(*StructValue)
		if !ok {
			return nil, panicf("structHasKey expects a Struct, got %s", args[0].Type())
		}
		_, found := s.Get(args[1])
		return boolValue(found), nil

	case BuiltinListGet:
		return listGet(args)
	case BuiltinListLength:
		return listLength(args)
	case BuiltinListInsert:
		return listInsert(args)

	case BuiltinPrint:
		if len(args) != 1 {
			return nil, panicf("print expects 1 argument, got %d", len(args))
		}
		t, ok := args[0].(TextValue)
		if !ok {
			return nil, panicf("print expects a Text, got %s", args[0].Type())
		}
		env.Print(t.Value)
		return NothingValue(), nil

	case BuiltinGetRandomBytes:
		if len(args) != 1 {
			return nil, panicf("getRandomBytes expects 1 argument, got %d", len(args))
		}
		n, ok := args[0].(IntValue)
		if !ok || !n.Value.IsInt64() || n.Value.Sign() < 0 {
			return nil, panicf("getRandomBytes expects a non-negative Int")
		}
		bytes := env.GetRandomBytes(int(n.Value.Int64()))
		keys := make([]Value, len(bytes))
		values := make([]Value, len(bytes))
		for i, by := range bytes {
			keys[i] = TextValue{Value: itoaSmall(i)}
			values[i] = IntValue{Value: big.NewInt(int64(by))}
		}
		return &StructValue{Keys: keys, Values: values}, nil

	case BuiltinStdin:
		line, ok := env.ReadLine()
		if !ok {
			return TagValue{Name: "None", Value: NothingValue()}, nil
		}
		return TagValue{Name: "Some", Value: TextValue{Value: line}}, nil

	default:
		return nil, panicf("builtin %s cannot be evaluated directly", b)
	}
}

func callIntBuiltin(b Builtin, args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, panicf("%s expects 2 arguments, got %d", b, len(args))
	}
	a, ok1 := args[0].(IntValue)
	c, ok2 := args[1].(IntValue)
	if !ok1 || !ok2 {
		return nil, panicf("%s expects two Ints", b)
	}
	switch b {
	case BuiltinIntAdd:
		return IntValue{Value: new(big.Int).Add(a.Value, c.Value)}, nil
	case BuiltinIntSubtract:
		return IntValue{Value: new(big.Int).Sub(a.Value, c.Value)}, nil
	case BuiltinIntMultiply:
		return IntValue{Value: new(big.Int).Mul(a.Value, c.Value)}, nil
	case BuiltinIntDivideTruncating:
		if c.Value.Sign() == 0 {
			return nil, panicf("division by zero")
		}
		return IntValue{Value: new(big.Int).Quo(a.Value, c.Value)}, nil
	case BuiltinIntModulo:
		if c.Value.Sign() == 0 {
			return nil, panicf("modulo by zero")
		}
		return IntValue{Value: new(big.Int).Rem(a.Value, c.Value)}, nil
	case BuiltinIntCompareTo:
		switch a.Value.Cmp(c.Value) {
		case -1:
			return SymbolValue{Name: "Less"}, nil
		case 1:
			return SymbolValue{Name: "Greater"}, nil
		default:
			return SymbolValue{Name: "Equal"}, nil
		}
	}
	panic("unreachable")
}

// listGet/listLength/listInsert interpret a Struct with integer-string
// keys "0".."n-1" as a List, matching the encoding hir_lower.go's list
// literal lowering produces.
func listGet(args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, panicf("listGet expects 2 arguments, got %d", len(args))
	}
	s, ok := args[0].(*StructValue)
	if !ok {
		return nil, panicf("listGet expects a List, got %s", args[0].Type())
	}
	idx, ok := args[1].(IntValue)
	if !ok {
		return nil, panicf("listGet expects an Int index")
	}
	v, found := s.Get(TextValue{Value: idx.Value.String()})
	if !found {
		return nil, panicf("list index %s out of bounds", idx.Value.String())
	}
	return v, nil
}

func listLength(args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, panicf("listLength expects 1 argument, got %d", len(args))
	}
	s, ok := args[0].(*StructValue)
	if !ok {
		return nil, panicf("listLength expects a List, got %s", args[0].Type())
	}
	return IntValue{Value: big.NewInt(int64(len(s.Keys)))}, nil
}

func listInsert(args []Value) (Value, error) {
	if len(args) != 3 {
		return nil, panicf("listInsert expects 3 arguments, got %d", len(args))
	}
	s, ok := args[0].(*StructValue)
	if !ok {
		return nil, panicf("listInsert expects a List, got %s", args[0].Type())
	}
	idx, ok := args[1].(IntValue)
	if !ok || !idx.Value.IsInt64() {
		return nil, panicf("listInsert expects an Int index")
	}
	at := int(idx.Value.Int64())
	if at < 0 || at > len(s.Keys) {
		return nil, panicf("list index %d out of bounds", at)
	}
	n := len(s.Keys) + 1
	keys := make([]Value, n)
	values := make([]Value, n)
	for i := 0; i < at; i++ {
		keys[i] = TextValue{Value: fmt.Sprint(i)}
		values[i] = s.Values[i]
	}
	keys[at] = TextValue{Value: fmt.Sprint(at)}
	values[at] = args[2]
	for i := at; i < len(s.Keys); i++ {
		keys[i+1] = TextValue{Value: fmt.Sprint(i + 1)}
		values[i+1] = s.Values[i]
	}
	return &StructValue{Keys: keys, Values: values}, nil
}

package candy

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCallPure(t *testing.T, b Builtin, args []Value, env Environment) Value {
	t.Helper()
	v, err := callPureBuiltin(b, args, env)
	require.NoError(t, err)
	return v
}

func TestCallPureBuiltinEquals(t *testing.T) {
	env := &EmptyEnvironment{}
	v := mustCallPure(t, BuiltinEquals, []Value{IntValue{Value: big.NewInt(1)}, IntValue{Value: big.NewInt(1)}}, env)
	assert.Equal(t, SymbolValue{Name: "True"}, v)

	v = mustCallPure(t, BuiltinEquals, []Value{IntValue{Value: big.NewInt(1)}, IntValue{Value: big.NewInt(2)}}, env)
	assert.Equal(t, SymbolValue{Name: "False"}, v)
}

func TestCallPureBuiltinTypeOf(t *testing.T) {
	env := &EmptyEnvironment{}
	v := mustCallPure(t, BuiltinTypeOf, []Value{TextValue{Value: "hi"}}, env)
	assert.Equal(t, SymbolValue{Name: "Text"}, v)
}

func TestCallIntBuiltinsArithmetic(t *testing.T) {
	env := &EmptyEnvironment{}
	two := IntValue{Value: big.NewInt(2)}
	three := IntValue{Value: big.NewInt(3)}

	add := mustCallPure(t, BuiltinIntAdd, []Value{two, three}, env)
	assert.Equal(t, big.NewInt(5), add.(IntValue).Value)

	sub := mustCallPure(t, BuiltinIntSubtract, []Value{two, three}, env)
	assert.Equal(t, big.NewInt(-1), sub.(IntValue).Value)

	mul := mustCallPure(t, BuiltinIntMultiply, []Value{two, three}, env)
	assert.Equal(t, big.NewInt(6), mul.(IntValue).Value)

	div := mustCallPure(t, BuiltinIntDivideTruncating, []Value{IntValue{Value: big.NewInt(7)}, two}, env)
	assert.Equal(t, big.NewInt(3), div.(IntValue).Value)

	mod := mustCallPure(t, BuiltinIntModulo, []Value{IntValue{Value: big.NewInt(7)}, two}, env)
	assert.Equal(t, big.NewInt(1), mod.(IntValue).Value)

	cmp := mustCallPure(t, BuiltinIntCompareTo, []Value{two, three}, env)
	assert.Equal(t, SymbolValue{Name: "Less"}, cmp)
}

func TestCallIntBuiltinDivideByZeroPanics(t *testing.T) {
	_, err := callPureBuiltin(BuiltinIntDivideTruncating, []Value{IntValue{Value: big.NewInt(1)}, IntValue{Value: big.NewInt(0)}}, &EmptyEnvironment{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
}

func TestCallIntBuiltinModuloByZeroPanics(t *testing.T) {
	_, err := callPureBuiltin(BuiltinIntModulo, []Value{IntValue{Value: big.NewInt(1)}, IntValue{Value: big.NewInt(0)}}, &EmptyEnvironment{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "modulo by zero")
}

func TestTextConcatenate(t *testing.T) {
	env := &EmptyEnvironment{}
	v := mustCallPure(t, BuiltinTextConcatenate, []Value{TextValue{Value: "foo"}, TextValue{Value: "bar"}}, env)
	assert.Equal(t, TextValue{Value: "foobar"}, v)
}

func list(items ...Value) *StructValue {
	keys := make([]Value, len(items))
	for i := range items {
		keys[i] = TextValue{Value: big.NewInt(int64(i)).String()}
	}
	return &StructValue{Keys: keys, Values: items}
}

func TestListGetLengthInsert(t *testing.T) {
	env := &EmptyEnvironment{}
	l := list(IntValue{Value: big.NewInt(10)}, IntValue{Value: big.NewInt(20)})

	got := mustCallPure(t, BuiltinListGet, []Value{l, IntValue{Value: big.NewInt(1)}}, env)
	assert.Equal(t, big.NewInt(20), got.(IntValue).Value)

	length := mustCallPure(t, BuiltinListLength, []Value{l}, env)
	assert.Equal(t, big.NewInt(2), length.(IntValue).Value)

	inserted := mustCallPure(t, BuiltinListInsert, []Value{l, IntValue{Value: big.NewInt(1)}, IntValue{Value: big.NewInt(99)}}, env)
	s := inserted.(*StructValue)
	require.Len(t, s.Values, 3)
	assert.Equal(t, big.NewInt(10), s.Values[0].(IntValue).Value)
	assert.Equal(t, big.NewInt(99), s.Values[1].(IntValue).Value)
	assert.Equal(t, big.NewInt(20), s.Values[2].(IntValue).Value)
	assert.Equal(t, []Value{TextValue{Value: "0"}, TextValue{Value: "1"}, TextValue{Value: "2"}}, s.Keys)
}

func TestListGetOutOfBoundsPanics(t *testing.T) {
	l := list(IntValue{Value: big.NewInt(1)})
	_, err := callPureBuiltin(BuiltinListGet, []Value{l, IntValue{Value: big.NewInt(5)}}, &EmptyEnvironment{})
	require.Error(t, err)
}

func TestStructGetAndHasKey(t *testing.T) {
	env := &EmptyEnvironment{}
	s := &StructValue{Keys: []Value{SymbolValue{Name: "Name"}}, Values: []Value{TextValue{Value: "candy"}}}

	got := mustCallPure(t, BuiltinStructGet, []Value{s, SymbolValue{Name: "Name"}}, env)
	assert.Equal(t, TextValue{Value: "candy"}, got)

	has := mustCallPure(t, BuiltinStructHasKey, []Value{s, SymbolValue{Name: "Missing"}}, env)
	assert.Equal(t, SymbolValue{Name: "False"}, has)
}

func TestPrintWritesToEnvironment(t *testing.T) {
	env := &EmptyEnvironment{}
	_, err := callPureBuiltin(BuiltinPrint, []Value{TextValue{Value: "hello"}}, env)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, env.Printed)
}

func TestStdinReturnsNoneWhenExhausted(t *testing.T) {
	env := &EmptyEnvironment{}
	v := mustCallPure(t, BuiltinStdin, nil, env)
	assert.Equal(t, TagValue{Name: "None", Value: NothingValue()}, v)
}

func TestGetRandomBytesBuildsListOfInts(t *testing.T) {
	env := &EmptyEnvironment{}
	v := mustCallPure(t, BuiltinGetRandomBytes, []Value{IntValue{Value: big.NewInt(4)}}, env)
	s := v.(*StructValue)
	require.Len(t, s.Values, 4)
	for _, b := range s.Values {
		iv, ok := b.(IntValue)
		require.True(t, ok)
		assert.Equal(t, int64(0), iv.Value.Int64(), "EmptyEnvironment's random bytes are zeroed")
	}
}

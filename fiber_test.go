package candy

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zeroHirID() HirID { return NewHirID(NewCodeModule("pkg", "m")) }

func TestFiberArithmeticProgramReturnsResult(t *testing.T) {
	body := []Instruction{
		PushBuiltin{Function: BuiltinIntAdd},
		PushInt{Value: big.NewInt(2)},
		PushInt{Value: big.NewInt(3)},
		PushHirId{ID: zeroHirID()},
		Call{NumArguments: 2},
		Return{},
	}
	f := NewFiber(0, NewCodeModule("pkg", "m"), body, &EmptyEnvironment{}, nil)
	f.Run(100)

	require.Equal(t, FiberDone, f.Status)
	result, ok := f.Result.(IntValue)
	require.True(t, ok)
	assert.Equal(t, big.NewInt(5), result.Value)
}

func TestFiberClosureCallReturnsArgument(t *testing.T) {
	closureBody := []Instruction{
		// Stack on entry: [param, responsible]. Duplicate param (offset 1)
		// and return it.
		PushFromStack{StackOffset: 1},
		Return{},
	}
	topLevel := []Instruction{
		PushClosure{NumParameters: 1, Body: closureBody},
		PushInt{Value: big.NewInt(7)},
		PushHirId{ID: zeroHirID()},
		Call{NumArguments: 1},
		Return{},
	}
	f := NewFiber(0, NewCodeModule("pkg", "m"), topLevel, &EmptyEnvironment{}, nil)
	f.Run(100)

	require.Equal(t, FiberDone, f.Status)
	result, ok := f.Result.(IntValue)
	require.True(t, ok)
	assert.Equal(t, big.NewInt(7), result.Value)
}

func TestFiberCallWithWrongArityPanics(t *testing.T) {
	closureBody := []Instruction{Return{}}
	topLevel := []Instruction{
		PushClosure{NumParameters: 1, Body: closureBody},
		PushHirId{ID: zeroHirID()},
		Call{NumArguments: 0},
	}
	f := NewFiber(0, NewCodeModule("pkg", "m"), topLevel, &EmptyEnvironment{}, nil)
	f.Run(100)

	assert.Equal(t, FiberPanicked, f.Status)
}

func TestFiberDivisionByZeroPanicsWithResponsible(t *testing.T) {
	resp := NewHirID(NewCodeModule("pkg", "m"), "div")
	body := []Instruction{
		PushBuiltin{Function: BuiltinIntDivideTruncating},
		PushInt{Value: big.NewInt(1)},
		PushInt{Value: big.NewInt(0)},
		PushHirId{ID: resp},
		Call{NumArguments: 2},
	}
	f := NewFiber(0, NewCodeModule("pkg", "m"), body, &EmptyEnvironment{}, nil)
	f.Run(100)

	require.Equal(t, FiberPanicked, f.Status)
	assert.Equal(t, resp, f.PanicResponsible)
	reason, ok := f.PanicReason.(TextValue)
	require.True(t, ok)
	assert.Contains(t, reason.Value, "division by zero")
}

func TestEnterClosureTailCallDoesNotGrowFrameStack(t *testing.T) {
	closure := &ClosureValue{Body: nil, NumParameters: 1, Origin: zeroHirID()}
	f := NewFiber(0, NewCodeModule("pkg", "m"), nil, &EmptyEnvironment{}, nil)

	f.enterClosure(closure, []Value{IntValue{Value: big.NewInt(0)}}, zeroHirID(), false)
	require.Len(t, f.frames, 2)
	require.Len(t, f.stack, 2)

	for i := 0; i < 1000; i++ {
		f.enterClosure(closure, []Value{IntValue{Value: big.NewInt(int64(i))}}, zeroHirID(), true)
	}

	assert.Len(t, f.frames, 2, "tail calls must replace the top frame in place")
	assert.Len(t, f.stack, 2, "tail calls must not accumulate stale locals")
}

func TestFiberIfElseChoosesBranch(t *testing.T) {
	thenBody := []Instruction{PushInt{Value: big.NewInt(1)}, Return{}}
	elseBody := []Instruction{PushInt{Value: big.NewInt(2)}, Return{}}
	topLevel := []Instruction{
		PushBuiltin{Function: BuiltinIfElse},
		PushSymbol{Name: "False"},
		PushClosure{NumParameters: 0, Body: thenBody},
		PushClosure{NumParameters: 0, Body: elseBody},
		PushHirId{ID: zeroHirID()},
		Call{NumArguments: 3},
		Return{},
	}
	f := NewFiber(0, NewCodeModule("pkg", "m"), topLevel, &EmptyEnvironment{}, nil)
	f.Run(100)

	require.Equal(t, FiberDone, f.Status)
	result := f.Result.(IntValue)
	assert.Equal(t, big.NewInt(2), result.Value)
}

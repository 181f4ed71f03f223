package fuzzer

import (
	"testing"

	candy "github.com/candy-lang/candy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuzzerFindsAnAlwaysPanickingClosure(t *testing.T) {
	module := candy.NewCodeModule("pkg", "main")
	origin := candy.NewHirID(module, "boom")
	closure := &candy.ClosureValue{
		NumParameters: 1,
		Origin:        origin,
		Body: []candy.Instruction{
			candy.PushText{Value: "boom"},
			candy.PushHirId{ID: origin},
			candy.Panic{ReasonStackOffset: 1, ResponsibleStackOffset: 0},
		},
	}

	cfg := candy.NewConfig()
	cfg.SetInt("fuzzer.instruction_budget", 1000)
	f := NewFuzzer(cfg, 1)

	found := f.Run(module, origin, closure, []string{"Nothing"})

	require.NotNil(t, found)
	assert.Equal(t, "boom", found.Reason.(candy.TextValue).Value)
	assert.Equal(t, origin, found.Responsible)
}

func TestFuzzerExcludesPanicsResponsibleOutsideFunctionUnderTest(t *testing.T) {
	module := candy.NewCodeModule("pkg", "main")
	origin := candy.NewHirID(module, "bad")
	caller := candy.NewHirID(module, "main", "call")
	closure := &candy.ClosureValue{
		NumParameters: 1,
		Origin:        origin,
		Body: []candy.Instruction{
			candy.PushText{Value: "expected Int"},
			candy.PushHirId{ID: caller},
			candy.Panic{ReasonStackOffset: 1, ResponsibleStackOffset: 0},
		},
	}

	cfg := candy.NewConfig()
	cfg.SetInt("fuzzer.instruction_budget", 1000)
	f := NewFuzzer(cfg, 1)

	found := f.Run(module, origin, closure, []string{"Nothing"})

	assert.Nil(t, found, "a panic blaming a HIR-ID outside the fuzzed function is the caller's fault, not a failing case of this function")
}

func TestFuzzerTreatsSyntheticFuzzerResponsibleAsGenuine(t *testing.T) {
	module := candy.NewCodeModule("pkg", "main")
	origin := candy.NewHirID(module, "boom")
	closure := &candy.ClosureValue{
		NumParameters: 1,
		Origin:        origin,
		Body: []candy.Instruction{
			candy.PushText{Value: "boom"},
			candy.PushHirId{ID: candy.FuzzerHirID},
			candy.Panic{ReasonStackOffset: 1, ResponsibleStackOffset: 0},
		},
	}

	cfg := candy.NewConfig()
	cfg.SetInt("fuzzer.instruction_budget", 1000)
	f := NewFuzzer(cfg, 1)

	found := f.Run(module, origin, closure, []string{"Nothing"})

	require.NotNil(t, found)
	assert.Equal(t, candy.FuzzerHirID, found.Responsible)
}

func TestFuzzerExhaustsBudgetCleanlyWhenNothingPanics(t *testing.T) {
	module := candy.NewCodeModule("pkg", "main")
	origin := candy.NewHirID(module, "identity")
	closure := &candy.ClosureValue{
		NumParameters: 1,
		Origin:        origin,
		Body: []candy.Instruction{
			candy.PushFromStack{StackOffset: 1},
			candy.Return{},
		},
	}

	cfg := candy.NewConfig()
	cfg.SetInt("fuzzer.instruction_budget", 500)
	f := NewFuzzer(cfg, 1)

	found := f.Run(module, origin, closure, []string{"Nothing"})

	assert.Nil(t, found)
}

package fuzzer

import (
	"math/big"
	"math/rand"
	"testing"

	candy "github.com/candy-lang/candy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateValueAtDepthZeroIsAlwaysALeaf(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		v := generateValue(rng, []string{"True", "False"}, 0)
		switch v.(type) {
		case candy.IntValue, candy.TextValue, candy.SymbolValue:
		default:
			t.Fatalf("depth 0 produced a non-leaf value: %#v", v)
		}
	}
}

func TestGenerateLeafSymbolComesFromProvidedPool(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	symbols := []string{"Red", "Green", "Blue"}
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		if s, ok := generateLeaf(rng, symbols).(candy.SymbolValue); ok {
			require.Contains(t, symbols, s.Name)
			seen[s.Name] = true
		}
	}
	assert.NotEmpty(t, seen)
}

func TestGenerateLeafWithNoSymbolsFallsBackToNothing(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		if s, ok := generateLeaf(rng, nil).(candy.SymbolValue); ok {
			assert.Equal(t, "Nothing", s.Name)
		}
	}
}

func TestRandomTextStaysWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 50; i++ {
		s := randomText(rng)
		assert.Less(t, len(s), 12)
	}
}

func TestGenerateInputBuildsOneValuePerParameter(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	in := generateInput(rng, 3, []string{"Nothing"})
	assert.Len(t, in.Arguments, 3)
}

func TestMutateChangesAtMostOneArgument(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	original := Input{Arguments: []candy.Value{
		candy.IntValue{Value: big.NewInt(1)},
		candy.IntValue{Value: big.NewInt(1)},
		candy.IntValue{Value: big.NewInt(1)},
	}}
	mutated := mutate(rng, original, []string{"Nothing"})

	require.Len(t, mutated.Arguments, 3)
	changed := 0
	for i := range original.Arguments {
		if original.Arguments[i].Type() != mutated.Arguments[i].Type() {
			changed++
			continue
		}
		a, aok := original.Arguments[i].(candy.IntValue)
		b, bok := mutated.Arguments[i].(candy.IntValue)
		if aok && bok && a.Value.Cmp(b.Value) != 0 {
			changed++
		}
	}
	assert.LessOrEqual(t, changed, 1, "mutate should perturb at most one argument")
}

func TestMutateOfEmptyInputIsANoOp(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	mutated := mutate(rng, Input{}, []string{"Nothing"})
	assert.Empty(t, mutated.Arguments)
}

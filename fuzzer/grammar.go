// Package fuzzer discovers fuzzable closures (spec §4.J "fuzzable
// closures") and repeatedly calls them with generated or mutated
// arguments looking for a panic, grounded on
// `_examples/original_source/compiler/fuzzer/src/{lib,input_pool}.rs`.
package fuzzer

import (
	"math/big"
	"math/rand"

	candy "github.com/candy-lang/candy-go"
)

// Input is one candidate argument list for a fuzzable closure. The
// symbol pool used to generate and mutate it lives on the InputPool,
// not on the Input.
type Input struct {
	Arguments []candy.Value
}

// generateValue builds a random, reasonably shallow Candy value: Int,
// Text, Symbol (from the pool discovered in the program under test, or
// "Nothing" if none), or a small List (a Struct keyed "0", "1", ...) of
// such values; Structs with other keys are never generated. Mirrors
// `values.rs`'s `InputGeneration` grammar's shape without chasing its
// exact distribution, since this is a rewrite rather than a port.
func generateValue(rng *rand.Rand, symbols []string, depth int) candy.Value {
	if depth <= 0 {
		return generateLeaf(rng, symbols)
	}
	switch rng.Intn(6) {
	case 0, 1:
		return generateLeaf(rng, symbols)
	case 2:
		n := rng.Intn(4)
		keys := make([]candy.Value, n)
		values := make([]candy.Value, n)
		for i := 0; i < n; i++ {
			keys[i] = candy.TextValue{Value: big.NewInt(int64(i)).String()}
			values[i] = generateValue(rng, symbols, depth-1)
		}
		return &candy.StructValue{Keys: keys, Values: values}
	default:
		return generateLeaf(rng, symbols)
	}
}

func generateLeaf(rng *rand.Rand, symbols []string) candy.Value {
	switch rng.Intn(3) {
	case 0:
		return candy.IntValue{Value: big.NewInt(int64(rng.Intn(2001) - 1000))}
	case 1:
		return candy.TextValue{Value: randomText(rng)}
	default:
		if len(symbols) == 0 {
			return candy.SymbolValue{Name: "Nothing"}
		}
		return candy.SymbolValue{Name: symbols[rng.Intn(len(symbols))]}
	}
}

func randomText(rng *rand.Rand) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 "
	n := rng.Intn(12)
	out := make([]byte, n)
	for i := range out {
		out[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(out)
}

// generateInput builds a complete argument list for a closure expecting
// numArgs parameters.
func generateInput(rng *rand.Rand, numArgs int, symbols []string) Input {
	args := make([]candy.Value, numArgs)
	for i := range args {
		args[i] = generateValue(rng, symbols, 2)
	}
	return Input{Arguments: args}
}

// mutate perturbs one randomly chosen argument of in, the way
// `input.rs`'s `Input::mutate` nudges a previously tried input instead
// of generating a wholly new one (spec §4.J "mutation reuses prior
// inputs weighted by score").
func mutate(rng *rand.Rand, in Input, symbols []string) Input {
	if len(in.Arguments) == 0 {
		return in
	}
	out := Input{Arguments: append([]candy.Value{}, in.Arguments...)}
	i := rng.Intn(len(out.Arguments))
	out.Arguments[i] = generateValue(rng, symbols, 2)
	return out
}

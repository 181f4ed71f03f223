package fuzzer

import candy "github.com/candy-lang/candy-go"

// FuzzablesFinder is a Tracer whose only job is collecting every
// fuzzable closure reached while a module runs once from the top,
// mirroring the teacher analogue's `utils.rs` `FuzzablesFinder` (the
// Rust tracer that does nothing but record `TraceFoundFuzzableClosure`
// events).
type FuzzablesFinder struct {
	candy.NullTracer
	Fuzzables []Fuzzable
}

// Fuzzable is one closure candy.Tracer.FoundFuzzableClosure reported,
// paired with the module it came from so FuzzModule can name it in a
// report.
type Fuzzable struct {
	Module  candy.Module
	Closure *candy.ClosureValue
}

func NewFuzzablesFinder() *FuzzablesFinder { return &FuzzablesFinder{} }

func (f *FuzzablesFinder) FoundFuzzableClosure(origin candy.HirID, closure *candy.ClosureValue) {
	f.Fuzzables = append(f.Fuzzables, Fuzzable{Module: origin.Module, Closure: closure})
}

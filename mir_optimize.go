package candy

import "github.com/minio/highwayhash"

// maxOptimizerIterations bounds the fixed-point loops below. Every pass
// here is individually monotonic (strictly shrinks or simplifies the
// body), so in practice the loops converge in a handful of iterations;
// this is only a backstop against a pass that accidentally oscillates.
const maxOptimizerIterations = 200

// OptimizeMir runs the MIR optimizer to a fixed point (spec §4.D): a
// first loop resolves and inlines `useModule` targets and flattens the
// Multiple wrappers that creates, then a second loop runs the
// self-contained simplifications (reference folding doubles as
// "redundant return elimination" here, since a body's return is just
// whatever its last binding's ID resolves to) until nothing changes.
// Every pass runs through checkedPass, which re-validates MIR
// invariants after each rewrite when debug is set — mirroring the
// teacher's compile-then-backpatch-then-validate shape in
// `grammar_compiler.go`, generalized into "run pass, validate" repeated
// to a fixed point instead of run once.
func OptimizeMir(m *Mir, cfg *Config, resolver *ModuleResolver, diags *Diagnostics, debug bool) {
	checkedPass := func(name string, changed bool) {
		if !debug || !changed {
			return
		}
		for _, err := range ValidateMir(m, false) {
			err.Message = name + ": " + err.Message
			diags.Add(err)
		}
	}

	for i := 0; i < maxOptimizerIterations; i++ {
		changed := false

		if resolver != nil {
			c := resolver.Fold(&m.Body, Span{})
			checkedPass("module folding", c)
			changed = changed || c
		}
		c := flattenMultiple(&m.Body)
		checkedPass("flatten Multiple", c)
		changed = changed || c

		c = foldReferences(&m.Body)
		checkedPass("follow references", c)
		changed = changed || c

		if !changed {
			break
		}
	}

	// seenDigests catches a pass loop that keeps reporting changed=true
	// forever without net progress (e.g. two passes undoing each other):
	// each iteration's HighwayHash-256 digest of the body's canonical
	// printed form is checked against every digest seen earlier this
	// call, so a repeat means the body cycled back to a prior state.
	seenDigests := map[string]bool{}
	for i := 0; i < maxOptimizerIterations; i++ {
		changed := false

		c := foldReferences(&m.Body)
		checkedPass("follow references", c)
		changed = changed || c

		c = constantFold(&m.Body)
		checkedPass("constant folding", c)
		changed = changed || c

		c = treeShake(&m.Body)
		checkedPass("tree shaking", c)
		changed = changed || c

		c = inlineCallSites(&m.Body, cfg)
		checkedPass("inlining", c)
		changed = changed || c

		c = eliminateCommonSubtrees(&m.Body)
		checkedPass("common subtree elimination", c)
		changed = changed || c

		c = liftConstants(&m.Body)
		checkedPass("constant lifting", c)
		changed = changed || c

		if !changed {
			break
		}

		hasher, _ := highwayhash.New(cseKey)
		hasher.Write([]byte(PrintMir(m)))
		digest := string(hasher.Sum(nil))
		if seenDigests[digest] {
			break
		}
		seenDigests[digest] = true
	}

	if debug {
		for _, err := range ValidateMir(m, true) {
			diags.Add(err)
		}
	}
}

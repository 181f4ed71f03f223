package candy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario: a.candy is `useModule ".b"`, b.candy is `useModule ".a"`
// (spec §8 scenario 4). Compiling either one must report ModuleHasCycle
// and running it must panic with a reason starting "Module has cycle",
// never crash the Go process when the unresolved node reaches LIR.
func TestCompileModuleUseModuleCycleProducesDeterministicPanic(t *testing.T) {
	provider := NewMapModuleProvider()
	moduleA := NewCodeModule("pkg", "a")
	moduleB := NewCodeModule("pkg", "b")
	provider.Add(moduleA, `useModule ".b"`)
	provider.Add(moduleB, `useModule ".a"`)

	cfg := NewConfig()
	compiler := NewCompiler(provider, cfg)

	result, err := compiler.CompileModule(moduleA)
	require.NoError(t, err)

	var sawCycle bool
	for _, e := range result.Diags.Errors() {
		if e.Kind == ErrModuleHasCycle {
			sawCycle = true
			break
		}
	}
	assert.True(t, sawCycle, "compiling a useModule cycle must report ModuleHasCycle")

	sched := NewScheduler(cfg, &EmptyEnvironment{}, NullTracer{})
	fiberID := sched.SpawnModule(moduleA, result.Lir.Body)
	sched.RunN(100_000)

	fib := sched.Fiber(fiberID)
	require.Equal(t, FiberPanicked, fib.Status, "a useModule cycle must panic deterministically, not crash the compiler")
	reason, ok := fib.PanicReason.(TextValue)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(reason.Value, "Module has cycle"), "got reason %q", reason.Value)
}

package candy

import "fmt"

// ValidateMir checks the MIR invariants spec §4.D lists: every ID is
// defined exactly once, every reference resolves to something defined
// earlier in a dominating scope (no forward references, no references
// to a sibling lambda's locals), and every Call carries a Responsible
// argument. When finalPass is true it additionally rejects MirMultiple
// and MirUseModule nodes, which must not survive past module-folding.
//
// This mirrors the teacher's two-step "compile, then validate" shape
// (`grammar_compiler.go`'s post-compile backpatch/consistency checks),
// generalized into a pass the optimizer's checked-optimization wrapper
// runs after every rewrite.
func ValidateMir(m *Mir, finalPass bool) []CompileError {
	v := &mirValidator{module: m.Module, finalPass: finalPass, defined: map[string]bool{}}
	v.walkBody(m.Body)
	return v.errs
}

type mirValidator struct {
	module    Module
	finalPass bool
	defined   map[string]bool
	errs      []CompileError
}

func (v *mirValidator) fail(id HirID, kind CompileErrorKind, format string, args ...any) {
	v.errs = append(v.errs, CompileError{Module: v.module, Kind: kind, Message: fmt.Sprintf(format, args...)})
	_ = id
}

func (v *mirValidator) walkBody(b MirBody) {
	for _, bind := range b.Bindings {
		if v.defined[bind.ID.String()] {
			v.fail(bind.ID, ErrMirInvariantBroken, "%s is defined more than once", bind.ID)
		}
		v.checkRefs(bind)
		v.defined[bind.ID.String()] = true

		switch e := bind.Expr.(type) {
		case MirLambda:
			child := &mirValidator{module: v.module, finalPass: v.finalPass, defined: cloneDefined(v.defined)}
			for _, p := range e.Parameters {
				child.defined[p.String()] = true
			}
			child.defined[e.ResponsibleParameter.String()] = true
			child.walkBody(e.Body)
			v.errs = append(v.errs, child.errs...)

		case MirMultiple:
			if v.finalPass {
				v.fail(bind.ID, ErrMirInvariantBroken, "stale Multiple node at %s survived module folding", bind.ID)
			}
			child := &mirValidator{module: v.module, finalPass: v.finalPass, defined: cloneDefined(v.defined)}
			child.walkBody(e.Body)
			v.errs = append(v.errs, child.errs...)

		case MirUseModule:
			if v.finalPass {
				v.fail(bind.ID, ErrMirInvariantBroken, "unresolved useModule at %s survived module folding", bind.ID)
			}

		case MirCall:
			if e.Responsible.IsZero() {
				v.fail(bind.ID, ErrMirInvariantBroken, "call at %s has no responsible argument", bind.ID)
			}
		}
	}
}

func (v *mirValidator) checkRefs(bind MirBinding) {
	for _, ref := range mirReferences(bind.Expr) {
		if ref.IsSynthetic() {
			continue
		}
		if !v.defined[ref.String()] {
			v.fail(bind.ID, ErrMirInvariantBroken, "%s references %s before it is defined", bind.ID, ref)
		}
	}
}

func cloneDefined(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func mirReferences(expr MirExpression) []HirID {
	switch e := expr.(type) {
	case MirReference:
		return []HirID{e.Target}
	case MirStruct:
		out := make([]HirID, 0, len(e.Fields)*2)
		for _, f := range e.Fields {
			out = append(out, f.Key, f.Value)
		}
		return out
	case MirCall:
		out := append([]HirID{e.Function}, e.Arguments...)
		return append(out, e.Responsible)
	case MirUseModule:
		return []HirID{e.RelativePath}
	case MirPanic:
		return []HirID{e.Reason, e.Responsible}
	case MirDup:
		return []HirID{e.Target}
	case MirDrop:
		return []HirID{e.Target}
	case MirTraceCallStarts:
		return []HirID{e.Call}
	case MirTraceCallEnds:
		return []HirID{e.Call}
	case MirTraceExpressionEvaluated:
		return []HirID{e.Target}
	case MirTraceFoundFuzzableClosure:
		return []HirID{e.Closure}
	default:
		return nil
	}
}

package candy

import "fmt"

// ModuleResolver inlines `useModule` targets into MIR: it resolves the
// relative path (which must already have folded down to a literal Text
// constant earlier in the body), compiles the target module down to
// unoptimized MIR via the injected Compile callback, and splices the
// result in as a MirMultiple bracketed by ModuleStarts/ModuleEnds. A
// module currently being resolved higher up the call stack is rejected
// with ErrModuleHasCycle instead of recursing forever.
type ModuleResolver struct {
	Provider ModuleProvider
	Diags    *Diagnostics
	Compile  func(m Module) (*MirBody, error)

	stack map[string]bool
	cache map[string]*MirBody
}

func NewModuleResolver(provider ModuleProvider, diags *Diagnostics, compile func(Module) (*MirBody, error)) *ModuleResolver {
	return &ModuleResolver{
		Provider: provider, Diags: diags, Compile: compile,
		stack: map[string]bool{}, cache: map[string]*MirBody{},
	}
}

// Fold walks b looking for MirUseModule bindings to resolve, recursing
// into lambda bodies. It reports whether it changed anything, matching
// the shape every other optimizer pass in this file uses so the
// fixed-point driver can treat them uniformly.
func (r *ModuleResolver) Fold(b *MirBody, span Span) bool {
	changed := false
	for i := range b.Bindings {
		bind := &b.Bindings[i]
		if lam, ok := bind.Expr.(MirLambda); ok {
			if r.Fold(&lam.Body, span) {
				changed = true
			}
			bind.Expr = lam
		}

		use, ok := bind.Expr.(MirUseModule)
		if !ok {
			continue
		}
		path, ok := constantTextOf(*b, use.RelativePath)
		if !ok {
			continue // not yet folded to a literal; a later pass iteration will find it
		}
		target, err := r.Provider.Resolve(use.CurrentModule, path)
		if err != nil {
			r.Diags.Addf(use.CurrentModule, span, ErrModuleHasCycle, "%s", err.Error())
			r.replaceWithPanic(b, i, err.Error())
			changed = true
			continue
		}
		if r.stack[target.String()] {
			reason := fmt.Sprintf("Module has cycle: %s is used while it is still being resolved", target)
			r.Diags.Addf(use.CurrentModule, span, ErrModuleHasCycle, "%s", reason)
			r.replaceWithPanic(b, i, reason)
			changed = true
			continue
		}

		resolved, err := r.resolve(target)
		if err != nil {
			r.Diags.Addf(use.CurrentModule, span, ErrModuleHasCycle, "%s", err.Error())
			r.replaceWithPanic(b, i, err.Error())
			changed = true
			continue
		}

		bind.Expr = MirMultiple{Body: wrapModuleBody(bind.ID, target, *resolved)}
		changed = true
	}
	return changed
}

// replaceWithPanic turns the useModule binding at index i into a
// deterministic MirPanic carrying reason, the way hir_to_mir.go turns
// an HIR Error node into a MirPanic: a fresh MirText binding holds the
// message, and the original binding's ID becomes both the panic's
// blame target and the parent of the reason binding's ID.
func (r *ModuleResolver) replaceWithPanic(b *MirBody, i int, reason string) {
	id := b.Bindings[i].ID
	reasonID := id.Child("moduleResolutionFailed")
	b.Push(reasonID, MirText{Value: reason})
	b.Bindings[i].Expr = MirPanic{Reason: reasonID, Responsible: id}
}

func (r *ModuleResolver) resolve(target Module) (*MirBody, error) {
	if cached, ok := r.cache[target.String()]; ok {
		return cached, nil
	}
	r.stack[target.String()] = true
	defer delete(r.stack, target.String())

	body, err := r.Compile(target)
	if err != nil {
		return nil, err
	}
	r.Fold(body, Span{})
	r.cache[target.String()] = body
	return body, nil
}

func wrapModuleBody(callID HirID, target Module, resolved MirBody) MirBody {
	var nested MirBody
	nested.Push(callID.Child("moduleStart"), MirModuleStarts{Module: target})
	nested.Bindings = append(nested.Bindings, resolved.Bindings...)
	if retID, ok := resolved.ReturnID(); ok {
		nested.Push(callID, MirReference{Target: retID})
	}
	nested.Push(callID.Child("moduleEnd"), MirModuleEnds{Module: target})
	return nested
}

func constantTextOf(b MirBody, id HirID) (string, bool) {
	for _, bind := range b.Bindings {
		if bind.ID.String() != id.String() {
			continue
		}
		switch e := bind.Expr.(type) {
		case MirText:
			return e.Value, true
		case MirReference:
			return constantTextOf(b, e.Target)
		default:
			return "", false
		}
	}
	return "", false
}

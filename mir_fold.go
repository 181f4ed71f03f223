package candy

import "math/big"

// foldReferences replaces every reference-to-a-reference with a direct
// reference to the final target, and rewrites every operand that names
// a reference binding to name that final target instead (constants are
// not copied to their use sites), so later passes (CSE, tree
// shaking) see the real shape of an expression instead of a chain of
// aliases. Grounded on the teacher's `backpatchCallSites` step of
// `grammar_compiler.go`, which resolves label indirections the same way
// after a first compile pass.
func foldReferences(b *MirBody) bool {
	resolved := map[string]HirID{}
	changed := false

	resolve := func(id HirID) HirID {
		seen := map[string]bool{}
		for {
			key := id.String()
			if seen[key] {
				return id
			}
			seen[key] = true
			target, ok := resolved[key]
			if !ok {
				return id
			}
			id = target
		}
	}

	for i := range b.Bindings {
		bind := &b.Bindings[i]
		if ref, ok := bind.Expr.(MirReference); ok {
			resolved[bind.ID.String()] = ref.Target
		}
		rewriteReferences(bind, resolve, &changed)
		if lam, ok := bind.Expr.(MirLambda); ok {
			if foldReferences(&lam.Body) {
				changed = true
			}
			bind.Expr = lam
		}
		if mul, ok := bind.Expr.(MirMultiple); ok {
			if foldReferences(&mul.Body) {
				changed = true
			}
			bind.Expr = mul
		}
	}
	return changed
}

func rewriteReferences(bind *MirBinding, resolve func(HirID) HirID, changed *bool) {
	replace := func(id HirID) HirID {
		r := resolve(id)
		if r.String() != id.String() {
			*changed = true
		}
		return r
	}

	switch e := bind.Expr.(type) {
	case MirReference:
		e.Target = replace(e.Target)
		bind.Expr = e
	case MirStruct:
		for i, f := range e.Fields {
			e.Fields[i] = MirStructField{Key: replace(f.Key), Value: replace(f.Value)}
		}
		bind.Expr = e
	case MirCall:
		e.Function = replace(e.Function)
		for i, a := range e.Arguments {
			e.Arguments[i] = replace(a)
		}
		e.Responsible = replace(e.Responsible)
		bind.Expr = e
	case MirPanic:
		e.Reason = replace(e.Reason)
		e.Responsible = replace(e.Responsible)
		bind.Expr = e
	case MirUseModule:
		e.RelativePath = replace(e.RelativePath)
		bind.Expr = e
	case MirTraceCallStarts:
		e.Call = replace(e.Call)
		bind.Expr = e
	case MirTraceCallEnds:
		e.Call = replace(e.Call)
		bind.Expr = e
	case MirTraceExpressionEvaluated:
		e.Target = replace(e.Target)
		bind.Expr = e
	}
}

// flattenMultiple splices every MirMultiple's nested body directly into
// its parent body, in place of the Multiple binding itself (spec §4.D
// invariant "no stale Multiple survives the fixed point").
func flattenMultiple(b *MirBody) bool {
	changed := false
	out := make([]MirBinding, 0, len(b.Bindings))
	for _, bind := range b.Bindings {
		if lam, ok := bind.Expr.(MirLambda); ok {
			if flattenMultiple(&lam.Body) {
				changed = true
			}
			bind.Expr = lam
		}
		if mul, ok := bind.Expr.(MirMultiple); ok {
			flattenMultiple(&mul.Body)
			out = append(out, mul.Body.Bindings...)
			changed = true
			continue
		}
		out = append(out, bind)
	}
	b.Bindings = out
	return changed
}

// treeShake removes every binding whose ID is never referenced and
// which has no observable side effect (a pure value expression), unless
// it is the body's own return value. Calls, panics, and the trace/dup/
// drop markers are kept unconditionally since removing them would
// change observable behavior.
func treeShake(b *MirBody) bool {
	changed := false
	live := map[string]bool{}
	if id, ok := b.ReturnID(); ok {
		live[id.String()] = true
	}
	for _, bind := range b.Bindings {
		for _, ref := range mirReferences(bind.Expr) {
			live[ref.String()] = true
		}
	}

	out := make([]MirBinding, 0, len(b.Bindings))
	for _, bind := range b.Bindings {
		if lam, ok := bind.Expr.(MirLambda); ok {
			if treeShake(&lam.Body) {
				changed = true
			}
			bind.Expr = lam
		}
		if !live[bind.ID.String()] && isPureValue(bind.Expr) {
			changed = true
			continue
		}
		out = append(out, bind)
	}
	b.Bindings = out
	return changed
}

func isPureValue(expr MirExpression) bool {
	switch expr.(type) {
	case MirInt, MirText, MirSymbol, MirReference, MirStruct, MirLambda, MirBuiltin:
		return true
	default:
		return false
	}
}

// constantFold evaluates builtin calls whose arguments are all already
// known int/text constants, replacing the call binding's expression
// with the literal result (the call's trace markers stay in place). This only ever fires on the handful of
// builtins that are both pure and cheap to evaluate at compile time.
func constantFold(b *MirBody) bool {
	changed := false
	values := map[string]MirExpression{}
	for i := range b.Bindings {
		bind := &b.Bindings[i]
		switch e := bind.Expr.(type) {
		case MirInt, MirText, MirSymbol:
			values[bind.ID.String()] = e
		case MirBuiltin:
			values[bind.ID.String()] = e
		case MirCall:
			if folded, ok := tryFoldCall(e, values); ok {
				bind.Expr = folded
				values[bind.ID.String()] = folded
				changed = true
			}
		case MirLambda:
			if constantFold(&e.Body) {
				changed = true
			}
			bind.Expr = e
		}
	}
	return changed
}

func tryFoldCall(call MirCall, values map[string]MirExpression) (MirExpression, bool) {
	fn, ok := values[call.Function.String()].(MirBuiltin)
	if !ok {
		return nil, false
	}
	args := make([]MirExpression, len(call.Arguments))
	for i, a := range call.Arguments {
		v, ok := values[a.String()]
		if !ok {
			return nil, false
		}
		args[i] = v
	}

	asInt := func(v MirExpression) (*big.Int, bool) {
		i, ok := v.(MirInt)
		return i.Value, ok
	}

	switch fn.Function {
	case BuiltinIntAdd, BuiltinIntSubtract, BuiltinIntMultiply:
		if len(args) != 2 {
			return nil, false
		}
		a, ok1 := asInt(args[0])
		c, ok2 := asInt(args[1])
		if !ok1 || !ok2 {
			return nil, false
		}
		result := new(big.Int)
		switch fn.Function {
		case BuiltinIntAdd:
			result.Add(a, c)
		case BuiltinIntSubtract:
			result.Sub(a, c)
		case BuiltinIntMultiply:
			result.Mul(a, c)
		}
		return MirInt{Value: result}, true

	case BuiltinTextConcatenate:
		if len(args) != 2 {
			return nil, false
		}
		a, ok1 := args[0].(MirText)
		c, ok2 := args[1].(MirText)
		if !ok1 || !ok2 {
			return nil, false
		}
		return MirText{Value: a.Value + c.Value}, true

	case BuiltinEquals:
		if len(args) != 2 {
			return nil, false
		}
		a, ok1 := asInt(args[0])
		c, ok2 := asInt(args[1])
		if !ok1 || !ok2 {
			return nil, false
		}
		if a.Cmp(c) == 0 {
			return MirSymbol{Name: "True"}, true
		}
		return MirSymbol{Name: "False"}, true

	default:
		return nil, false
	}
}

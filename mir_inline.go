package candy

// inlineCallSites implements the two inlining triggers spec §4.D
// names: a lambda referenced at exactly one call site is always
// inlined (it can't grow code size, since the original definition is
// deleted), and a lambda at or under `tiny_threshold` bindings is
// inlined at every call site as long as doing so doesn't grow the
// body by more than `callsite_slack` extra bindings relative to just
// calling it — a simple proxy for "small enough that duplicating it
// is cheaper than the call overhead".
//
// Grounded on `grammar_compiler.go`'s single-pass inliner for
// zero-or-one-reference PEG rules, generalized from grammar rules to
// arbitrary closures.
func inlineCallSites(b *MirBody, cfg *Config) bool {
	changed := false
	counts := callSiteCounts(b)
	tinyThreshold := cfg.GetInt("compiler.inline.tiny_threshold")
	slack := cfg.GetInt("compiler.inline.callsite_slack")

	out := make([]MirBinding, 0, len(b.Bindings))
	lambdas := map[string]MirLambda{}
	for _, bind := range b.Bindings {
		if lam, ok := bind.Expr.(MirLambda); ok {
			lambdas[bind.ID.String()] = lam
		}
	}

	for _, bind := range b.Bindings {
		if lam, ok := bind.Expr.(MirLambda); ok {
			if inlineCallSites(&lam.Body, cfg) {
				changed = true
			}
			bind.Expr = lam
		}

		call, ok := bind.Expr.(MirCall)
		if !ok {
			out = append(out, bind)
			continue
		}
		lam, ok := lambdas[call.Function.String()]
		if !ok || len(lam.Parameters) != len(call.Arguments) {
			out = append(out, bind)
			continue
		}
		count := counts[call.Function.String()]
		tiny := bodySize(lam.Body) <= tinyThreshold && bodySize(lam.Body) <= slack+1
		if count != 1 && !tiny {
			out = append(out, bind)
			continue
		}

		inlined := inlineLambdaBody(bind.ID, lam, call.Arguments, call.Responsible)
		out = append(out, inlined.Bindings...)
		changed = true
	}
	b.Bindings = out
	return changed
}

func bodySize(b MirBody) int {
	n := 0
	for _, bind := range b.Bindings {
		n++
		if lam, ok := bind.Expr.(MirLambda); ok {
			n += bodySize(lam.Body)
		}
	}
	return n
}

func callSiteCounts(b MirBody) map[string]int {
	counts := map[string]int{}
	var walk func(MirBody)
	walk = func(body MirBody) {
		for _, bind := range body.Bindings {
			if call, ok := bind.Expr.(MirCall); ok {
				counts[call.Function.String()]++
			}
			if lam, ok := bind.Expr.(MirLambda); ok {
				walk(lam.Body)
			}
		}
	}
	walk(b)
	return counts
}

// inlineLambdaBody substitutes call into lam's body: each parameter is
// replaced by the corresponding argument id (via a Reference binding
// under a fresh, call-site-scoped HirID so repeated inlining of the
// same lambda at different call sites never collides), and the body's
// own return value is rebound to callID so existing references to the
// call site keep working unchanged.
func inlineLambdaBody(callID HirID, lam MirLambda, args []HirID, responsible HirID) MirBody {
	rename := map[string]HirID{}
	fresh := func(id HirID) HirID {
		renamed := callID.Child("inlined").Child(uniqueSuffix(id))
		rename[id.String()] = renamed
		return renamed
	}

	var out MirBody
	for i, p := range lam.Parameters {
		renamed := fresh(p)
		out.Push(renamed, MirReference{Target: args[i]})
	}
	rename[lam.ResponsibleParameter.String()] = responsible

	resolve := func(id HirID) HirID {
		if r, ok := rename[id.String()]; ok {
			return r
		}
		return id
	}

	for _, bind := range lam.Body.Bindings {
		renamedID := fresh(bind.ID)
		expr := bind.Expr
		renamedExpr := substituteIDs(expr, resolve)
		out.Push(renamedID, renamedExpr)
	}

	if retID, ok := lam.Body.ReturnID(); ok {
		out.Push(callID, MirReference{Target: resolve(retID)})
	}
	return out
}

func uniqueSuffix(id HirID) string {
	s := id.String()
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ':' || c == '.' || c == '<' || c == '>' {
			c = '_'
		}
		out = append(out, c)
	}
	return string(out)
}

func substituteIDs(expr MirExpression, resolve func(HirID) HirID) MirExpression {
	switch e := expr.(type) {
	case MirReference:
		e.Target = resolve(e.Target)
		return e
	case MirStruct:
		fields := make([]MirStructField, len(e.Fields))
		for i, f := range e.Fields {
			fields[i] = MirStructField{Key: resolve(f.Key), Value: resolve(f.Value)}
		}
		return MirStruct{Fields: fields}
	case MirCall:
		args := make([]HirID, len(e.Arguments))
		for i, a := range e.Arguments {
			args[i] = resolve(a)
		}
		return MirCall{Function: resolve(e.Function), Arguments: args, Responsible: resolve(e.Responsible)}
	case MirPanic:
		return MirPanic{Reason: resolve(e.Reason), Responsible: resolve(e.Responsible)}
	case MirUseModule:
		return MirUseModule{CurrentModule: e.CurrentModule, RelativePath: resolve(e.RelativePath)}
	case MirLambda:
		return MirLambda{
			Parameters:           e.Parameters,
			ResponsibleParameter: e.ResponsibleParameter,
			Body:                 e.Body,
			Fuzzable:             e.Fuzzable,
			Captures:             e.Captures,
		}
	case MirTraceCallStarts:
		return MirTraceCallStarts{Call: resolve(e.Call)}
	case MirTraceCallEnds:
		return MirTraceCallEnds{Call: resolve(e.Call)}
	case MirTraceExpressionEvaluated:
		return MirTraceExpressionEvaluated{Target: resolve(e.Target)}
	default:
		return expr
	}
}

// liftConstants hoists an Int/Text/Symbol binding that is structurally
// identical (same Go value) to one already defined in an ancestor scope
// up to that ancestor, turning the duplicate into a Reference. Run
// after inlining, since inlining is what creates most of the
// duplicate constants this pass cleans up.
func liftConstants(b *MirBody) bool {
	changed := false
	seen := map[string]HirID{}
	liftConstantsRec(b, seen, &changed)
	return changed
}

func liftConstantsRec(b *MirBody, seen map[string]HirID, changed *bool) {
	for i := range b.Bindings {
		bind := &b.Bindings[i]
		key, ok := constantKey(bind.Expr)
		if ok {
			if existing, found := seen[key]; found && existing.String() != bind.ID.String() {
				bind.Expr = MirReference{Target: existing}
				*changed = true
				continue
			}
			seen[key] = bind.ID
		}
		if lam, ok := bind.Expr.(MirLambda); ok {
			childSeen := make(map[string]HirID, len(seen))
			for k, v := range seen {
				childSeen[k] = v
			}
			liftConstantsRec(&lam.Body, childSeen, changed)
			bind.Expr = lam
		}
	}
}

func constantKey(expr MirExpression) (string, bool) {
	switch e := expr.(type) {
	case MirInt:
		return "int:" + e.Value.String(), true
	case MirText:
		return "text:" + e.Value, true
	case MirSymbol:
		return "symbol:" + e.Name, true
	case MirBuiltin:
		return "builtin:" + e.Function.String(), true
	default:
		return "", false
	}
}

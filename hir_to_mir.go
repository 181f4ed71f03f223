package candy

// LowerHirToMir transcribes a module's HIR into MIR (spec §4.C): most
// bindings carry over one-to-one, `needs` is expanded into an
// `ifElse`/`Panic` pair, and every call is bracketed with trace markers
// so the tracer can observe call boundaries without the interpreter
// loop needing to know the tracer exists. `useModule` passes through
// unresolved; resolving and inlining it is the module-folding
// optimizer's job (spec §4.D).
func LowerHirToMir(hir *Hir) *Mir {
	l := &mirLowerer{}
	body := l.lowerBody(hir.Body)
	return &Mir{Module: hir.Module, Body: body}
}

type mirLowerer struct{}

func (l *mirLowerer) lowerBody(in Body) MirBody {
	var out MirBody
	for _, bind := range in.Bindings {
		l.lowerBinding(bind, &out)
	}
	return out
}

func (l *mirLowerer) lowerBinding(bind Binding, out *MirBody) {
	switch e := bind.Expr.(type) {
	case ExprInt:
		out.Push(bind.ID, MirInt{Value: e.Value})

	case ExprText:
		out.Push(bind.ID, MirText{Value: e.Value})

	case ExprSymbol:
		out.Push(bind.ID, MirSymbol{Name: e.Name})

	case ExprReference:
		out.Push(bind.ID, MirReference{Target: e.Target})

	case ExprStruct:
		fields := make([]MirStructField, len(e.Fields))
		for i, f := range e.Fields {
			fields[i] = MirStructField{Key: f.Key, Value: f.Value}
		}
		out.Push(bind.ID, MirStruct{Fields: fields})

	case ExprLambda:
		nested := l.lowerBody(e.Body)
		out.Push(bind.ID, MirLambda{
			Parameters:           e.Parameters,
			ResponsibleParameter: e.ResponsibleParameter,
			Body:                 nested,
			Fuzzable:             e.Fuzzable,
			Captures:             e.Captures,
		})
		if e.Fuzzable {
			out.Push(bind.ID.Child("foundFuzzable"), MirTraceFoundFuzzableClosure{Closure: bind.ID})
		}

	case ExprBuiltin:
		out.Push(bind.ID, MirBuiltin{Function: e.Function})

	case ExprCall:
		out.Push(bind.ID.Child("traceStart"), MirTraceCallStarts{Call: bind.ID})
		out.Push(bind.ID, MirCall{Function: e.Function, Arguments: e.Arguments, Responsible: e.Responsible})
		out.Push(bind.ID.Child("traceEnd"), MirTraceCallEnds{Call: bind.ID})

	case ExprUseModule:
		out.Push(bind.ID, MirUseModule{CurrentModule: e.CurrentModule, RelativePath: e.RelativePath})

	case ExprNeeds:
		l.lowerNeeds(bind.ID, e, out)
		return

	case ExprError:
		out.Push(bind.ID, MirPanic{Reason: bind.ID.Child("errorReason"), Responsible: bind.ID})
		out.Push(bind.ID.Child("errorReason"), MirText{Value: "this code could not be compiled"})
		return

	default:
		out.Push(bind.ID, MirPanic{Reason: bind.ID, Responsible: bind.ID})
	}

	out.Push(bind.ID.Child("traced"), MirTraceExpressionEvaluated{Target: bind.ID})
}

// lowerNeeds expands `needs condition reason` into:
//
//	ifElse(condition, { -> Nothing }, { -> panic reason })
//
// so the rest of the pipeline only ever has to deal with ordinary
// builtin calls and panics, never a separate "needs" control-flow form.
func (l *mirLowerer) lowerNeeds(id HirID, e ExprNeeds, out *MirBody) {
	reasonID := e.Reason
	if !e.HasReason {
		reasonID = id.Child("defaultReason")
		out.Push(reasonID, MirText{Value: "a `needs` was not met"})
	}

	thenID := id.Child("then")
	var thenBody MirBody
	nothingID := thenID.Child("nothing")
	thenBody.Push(nothingID, MirSymbol{Name: "Nothing"})
	out.Push(thenID, MirLambda{ResponsibleParameter: thenID.Child("responsible"), Body: thenBody})

	elseID := id.Child("else")
	var elseBody MirBody
	panicID := elseID.Child("panic")
	elseBody.Push(panicID, MirPanic{Reason: reasonID, Responsible: e.Responsible})
	out.Push(elseID, MirLambda{ResponsibleParameter: elseID.Child("responsible"), Body: elseBody})

	ifElseID := id.Child("ifElse")
	out.Push(ifElseID, MirBuiltin{Function: BuiltinIfElse})

	out.Push(id.Child("traceStart"), MirTraceCallStarts{Call: id})
	out.Push(id, MirCall{
		Function:    ifElseID,
		Arguments:   []HirID{e.Condition, thenID, elseID},
		Responsible: e.Responsible,
	})
	out.Push(id.Child("traceEnd"), MirTraceCallEnds{Call: id})
}

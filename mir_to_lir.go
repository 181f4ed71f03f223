package candy

// LowerMirToLir flattens a module's final MIR into LIR (spec §4.E): a
// symbolic stack model tracks which HirID occupies each data-stack
// slot so every reference becomes a PushFromStack at the right offset,
// and a call in tail position (its result is literally its body's
// return value) becomes a TailCall instead of Call+Return.
//
// Grounded on the teacher's `grammar_compiler.go` `compiler` struct,
// which threads a similar positional model (choice/commit label stack)
// through a single recursive descent over the AST; here the tracked
// state is data-stack depth instead of backtrack points.
func LowerMirToLir(m *Mir) *Lir {
	ctx := &lirLoweringContext{module: m.Module}
	instrs := ctx.lowerBody(m.Body, true)
	return &Lir{Module: m.Module, Body: instrs}
}

// lirLoweringContext tracks, for the body currently being lowered,
// which HirID sits at each data-stack slot (index 0 = bottom).
type lirLoweringContext struct {
	module Module
	stack  []HirID
}

func (c *lirLoweringContext) push(id HirID) { c.stack = append(c.stack, id) }

func (c *lirLoweringContext) pop(n int) {
	c.stack = c.stack[:len(c.stack)-n]
}

func (c *lirLoweringContext) offsetOf(id HirID) int {
	key := id.String()
	for i := len(c.stack) - 1; i >= 0; i-- {
		if c.stack[i].String() == key {
			return len(c.stack) - 1 - i
		}
	}
	panic("candy: mir_to_lir: " + key + " is not on the symbolic stack")
}

// lowerBody lowers every binding of b in order. When asTailBody is true
// (this is a whole lambda/module body, not an inlined fragment), the
// binding that produces the body's return value is lowered with
// isTail=true so a trailing Call becomes a TailCall, and a plain value
// return gets an explicit trailing Return.
func (c *lirLoweringContext) lowerBody(b MirBody, asTailBody bool) []Instruction {
	var out []Instruction
	returnID, hasReturn := b.ReturnID()
	returnHandledByTailCall := false

	for _, bind := range b.Bindings {
		isTail := asTailBody && hasReturn && bind.ID.String() == returnID.String()
		if isTail {
			if _, isCall := bind.Expr.(MirCall); isCall {
				returnHandledByTailCall = true
			}
		}
		c.lowerExpr(bind.ID, bind.Expr, isTail, &out)
	}

	if asTailBody && hasReturn && !returnHandledByTailCall {
		if _, isPanic := lookupExpr(b, returnID).(MirPanic); !isPanic {
			out = append(out, PushFromStack{instrBase{returnID}, c.offsetOf(returnID)})
			out = append(out, Return{instrBase{returnID}})
		}
	}
	return out
}

func lookupExpr(b MirBody, id HirID) MirExpression {
	for _, bind := range b.Bindings {
		if bind.ID.String() == id.String() {
			return bind.Expr
		}
	}
	return nil
}

func (c *lirLoweringContext) lowerExpr(id HirID, expr MirExpression, isTail bool, out *[]Instruction) {
	switch e := expr.(type) {
	case MirInt:
		*out = append(*out, PushInt{instrBase{id}, e.Value})
		c.push(id)

	case MirText:
		*out = append(*out, PushText{instrBase{id}, e.Value})
		c.push(id)

	case MirSymbol:
		*out = append(*out, PushSymbol{instrBase{id}, e.Name})
		c.push(id)

	case MirReference:
		*out = append(*out, PushFromStack{instrBase{id}, c.offsetOf(e.Target)})
		c.push(id)

	case MirBuiltin:
		*out = append(*out, PushBuiltin{instrBase{id}, e.Function})
		c.push(id)

	case MirStruct:
		for i, f := range e.Fields {
			*out = append(*out, PushFromStack{instrBase{id}, c.offsetOf(f.Key)})
			c.push(id.Child("field" + itoaSmall(i) + "key"))
			*out = append(*out, PushFromStack{instrBase{id}, c.offsetOf(f.Value)})
			c.push(id.Child("field" + itoaSmall(i) + "value"))
		}
		*out = append(*out, PushStruct{instrBase{id}, len(e.Fields)})
		c.pop(2 * len(e.Fields))
		c.push(id)

	case MirLambda:
		captureOffsets := make([]int, len(e.Captures))
		for i, capturedID := range e.Captures {
			captureOffsets[i] = c.offsetOf(capturedID)
		}
		nested := &lirLoweringContext{module: c.module}
		for _, capturedID := range e.Captures {
			nested.push(capturedID)
		}
		for _, p := range e.Parameters {
			nested.push(p)
		}
		nested.push(e.ResponsibleParameter)
		body := nested.lowerBody(e.Body, true)
		*out = append(*out, PushClosure{
			instrBase:           instrBase{id},
			CaptureStackOffsets: captureOffsets,
			NumParameters:       len(e.Parameters),
			Body:                body,
			IsFuzzable:          e.Fuzzable,
		})
		c.push(id)

	case MirCall:
		*out = append(*out, PushFromStack{instrBase{id}, c.offsetOf(e.Function)})
		c.push(id.Child("callee"))
		for i, a := range e.Arguments {
			*out = append(*out, PushFromStack{instrBase{id}, c.offsetOf(a)})
			c.push(id.Child("arg" + itoaSmall(i)))
		}
		*out = append(*out, PushHirId{instrBase{id}, e.Responsible})
		c.push(id.Child("responsible"))
		if isTail {
			*out = append(*out, TailCall{instrBase{id}, len(e.Arguments)})
		} else {
			*out = append(*out, Call{instrBase{id}, len(e.Arguments)})
		}
		c.pop(2 + len(e.Arguments))
		c.push(id)

	case MirPanic:
		*out = append(*out, Panic{
			instrBase:              instrBase{id},
			ReasonStackOffset:      c.offsetOf(e.Reason),
			ResponsibleStackOffset: c.offsetOf(e.Responsible),
		})

	case MirDup:
		*out = append(*out, Dup{instrBase{id}, c.offsetOf(e.Target)})

	case MirDrop:
		*out = append(*out, Drop{instrBase{id}, c.offsetOf(e.Target)})

	case MirTraceCallStarts:
		*out = append(*out, TraceCallStarts{instrBase{id}})

	case MirTraceCallEnds:
		*out = append(*out, TraceCallEnds{instrBase{id}})

	case MirTraceExpressionEvaluated:
		*out = append(*out, TraceExpressionEvaluated{instrBase{id}, c.offsetOf(e.Target)})

	case MirTraceFoundFuzzableClosure:
		*out = append(*out, TraceFoundFuzzableClosure{instrBase{id}, c.offsetOf(e.Closure)})

	case MirModuleStarts:
		*out = append(*out, ModuleStarts{instrBase{id}, e.Module})

	case MirModuleEnds:
		*out = append(*out, ModuleEnds{instrBase{id}})

	default:
		panic("candy: mir_to_lir: unresolved MIR node reached LIR lowering")
	}
}

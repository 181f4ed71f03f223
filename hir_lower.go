package candy

import (
	"math/big"
	"sort"
)

// scope resolves identifiers to the HirID they were bound to, consulting
// enclosing scopes for names not bound locally.
type scope struct {
	parent *scope
	names  map[string]HirID
}

func newScope(parent *scope) *scope { return &scope{parent: parent, names: map[string]HirID{}} }

func (s *scope) lookup(name string) (HirID, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if id, ok := sc.names[name]; ok {
			return id, true
		}
	}
	return HirID{}, false
}

func (s *scope) define(name string, id HirID) { s.names[name] = id }

var builtinsByName = func() map[string]Builtin {
	m := make(map[string]Builtin, len(builtinNames))
	for b, n := range builtinNames {
		m[n] = b
	}
	return m
}()

type lowerCtx struct {
	scope       *scope
	responsible HirID
}

type hirLowerer struct {
	module Module
	diags  *Diagnostics
}

// LowerAstToHir lowers a module's top-level AST items into HIR (spec
// §4.B "HIR lowering"): resolves every identifier to the HirID it was
// bound by, rewrites `needs`/`useModule` calls into their own
// expression kinds, and pre-declares top-level names so mutually
// recursive top-level functions can reference each other.
func LowerAstToHir(module Module, items []AstNode, diags *Diagnostics) *Hir {
	l := &hirLowerer{module: module, diags: diags}
	top := newScope(nil)

	publicSeen := map[string]bool{}
	for _, item := range items {
		a, ok := item.(*AstAssignment)
		if !ok {
			continue
		}
		id := NewHirID(module, a.ID().Keys...)
		top.define(a.Name, id)
		if a.IsPublic {
			if publicSeen[a.Name] {
				diags.Addf(module, a.Span(), ErrPublicAssignmentWithSameName,
					"there is already a public assignment named %q", a.Name)
			}
			publicSeen[a.Name] = true
		}
	}

	body := &Body{}
	ctx := lowerCtx{scope: top, responsible: NewHirID(module)}
	l.lowerBodyItems(items, ctx, body, true)

	hir := &Hir{Module: module, Body: *body}
	computeCaptures(hir)
	return hir
}

func hid(module Module, n AstNode) HirID { return NewHirID(module, n.ID().Keys...) }

func (l *hirLowerer) lowerBodyItems(items []AstNode, ctx lowerCtx, body *Body, isTopLevel bool) HirID {
	var last HirID
	for _, item := range items {
		if a, ok := item.(*AstAssignment); ok {
			last = l.lowerAssignment(a, ctx, body, isTopLevel)
			continue
		}
		last = l.lowerExpr(item, ctx, body)
	}
	return last
}

func (l *hirLowerer) lowerAssignment(a *AstAssignment, ctx lowerCtx, body *Body, isTopLevel bool) HirID {
	id := hid(l.module, a)
	if a.IsPublic && !isTopLevel {
		l.diags.Addf(l.module, a.Span(), ErrPublicAssignmentInNotTopLevel,
			"public assignments (`:=`) are only allowed at the top level")
	}

	if len(a.Parameters) == 0 {
		resultID := l.lowerBodyItems(a.Body, ctx, body, false)
		ctx.scope.define(a.Name, resultID)
		return resultID
	}

	ctx.scope.define(a.Name, id)

	childScope := newScope(ctx.scope)
	paramIDs := make([]HirID, len(a.Parameters))
	for i, p := range a.Parameters {
		pid := id.Child(p.Name)
		paramIDs[i] = pid
		childScope.define(p.Name, pid)
	}
	respID := id.Child("responsible")
	nestedBody := &Body{}
	l.lowerBodyItems(a.Body, lowerCtx{scope: childScope, responsible: respID}, nestedBody, false)

	body.Push(id, ExprLambda{
		Parameters:           paramIDs,
		ResponsibleParameter: respID,
		Body:                 *nestedBody,
		Fuzzable:             isTopLevel,
	})
	return id
}

func (l *hirLowerer) lowerExpr(n AstNode, ctx lowerCtx, body *Body) HirID {
	id := hid(l.module, n)

	switch t := n.(type) {
	case *AstInt:
		v, ok := new(big.Int).SetString(t.Text, 10)
		if !ok {
			v = big.NewInt(0)
		}
		body.Push(id, ExprInt{Value: v})

	case *AstText:
		body.Push(id, ExprText{Value: t.Content})

	case *AstSymbol:
		body.Push(id, ExprSymbol{Name: t.Name})

	case *AstIdentifier:
		l.lowerIdentifier(t, ctx, id, body)

	case *AstList:
		fields := make([]StructField, len(t.Items))
		for i, item := range t.Items {
			keyID := id.Child("key" + itoaSmall(i))
			body.Push(keyID, ExprText{Value: itoaSmall(i)})
			fields[i] = StructField{Key: keyID, Value: l.lowerExpr(item, ctx, body)}
		}
		body.Push(id, ExprStruct{Fields: fields})

	case *AstStruct:
		fields := make([]StructField, 0, len(t.Fields))
		for i, f := range t.Fields {
			if f.Key == nil {
				continue
			}
			keyID := l.lowerExpr(f.Key, ctx, body)
			var valueID HirID
			if f.Value != nil {
				valueID = l.lowerExpr(f.Value, ctx, body)
			} else {
				valueID = id.Child("missingValue" + itoaSmall(i))
				body.Push(valueID, ExprError{})
			}
			fields = append(fields, StructField{Key: keyID, Value: valueID})
		}
		body.Push(id, ExprStruct{Fields: fields})

	case *AstLambda:
		childScope := newScope(ctx.scope)
		paramIDs := make([]HirID, len(t.Parameters))
		for i, p := range t.Parameters {
			pid := id.Child(p.Name)
			paramIDs[i] = pid
			childScope.define(p.Name, pid)
		}
		respID := id.Child("responsible")
		nestedBody := &Body{}
		l.lowerBodyItems(t.Body, lowerCtx{scope: childScope, responsible: respID}, nestedBody, false)
		body.Push(id, ExprLambda{
			Parameters:           paramIDs,
			ResponsibleParameter: respID,
			Body:                 *nestedBody,
			Fuzzable:             false,
		})

	case *AstCall:
		l.lowerCall(t, ctx, id, body)

	case *AstError:
		body.Push(id, ExprError{})

	default:
		body.Push(id, ExprError{})
	}

	return id
}

func (l *hirLowerer) lowerIdentifier(t *AstIdentifier, ctx lowerCtx, id HirID, body *Body) {
	if target, ok := ctx.scope.lookup(t.Name); ok {
		body.Push(id, ExprReference{Target: target})
		return
	}
	if b, ok := builtinsByName[t.Name]; ok {
		body.Push(id, ExprBuiltin{Function: b})
		return
	}
	l.diags.Addf(l.module, t.Span(), ErrUnknownReference, "unknown reference %q", t.Name)
	body.Push(id, ExprError{})
}

func (l *hirLowerer) lowerCall(t *AstCall, ctx lowerCtx, id HirID, body *Body) {
	receiverName, isBareIdentifier := "", false
	if ident, ok := t.Receiver.(*AstIdentifier); ok {
		if _, shadowed := ctx.scope.lookup(ident.Name); !shadowed {
			receiverName, isBareIdentifier = ident.Name, true
		}
	}

	if isBareIdentifier && receiverName == "needs" {
		if len(t.Arguments) != 1 && len(t.Arguments) != 2 {
			l.diags.Addf(l.module, t.Span(), ErrNeedsWithWrongNumberOfArguments,
				"needs takes 1 or 2 arguments, got %d", len(t.Arguments))
			body.Push(id, ExprError{})
			return
		}
		condID := l.lowerExpr(t.Arguments[0], ctx, body)
		var reasonID HirID
		hasReason := len(t.Arguments) == 2
		if hasReason {
			reasonID = l.lowerExpr(t.Arguments[1], ctx, body)
		}
		body.Push(id, ExprNeeds{Condition: condID, Reason: reasonID, HasReason: hasReason, Responsible: ctx.responsible})
		return
	}

	if isBareIdentifier && receiverName == "useModule" {
		if len(t.Arguments) != 1 {
			l.diags.Addf(l.module, t.Span(), ErrUnknownReference, "useModule takes exactly 1 argument")
			body.Push(id, ExprError{})
			return
		}
		relID := l.lowerExpr(t.Arguments[0], ctx, body)
		body.Push(id, ExprUseModule{CurrentModule: l.module, RelativePath: relID})
		return
	}

	functionID := l.lowerExpr(t.Receiver, ctx, body)
	argIDs := make([]HirID, len(t.Arguments))
	for i, a := range t.Arguments {
		argIDs[i] = l.lowerExpr(a, ctx, body)
	}
	body.Push(id, ExprCall{Function: functionID, Arguments: argIDs, Responsible: ctx.responsible})
}

// computeCaptures fills in every ExprLambda's Captures: every HirID
// referenced anywhere in its body (including nested lambdas) whose
// defining ID does not live under the lambda's own ID subtree (spec
// §4.B "Captures"). Because HirIDs are hierarchical key paths this can
// be computed structurally instead of threading scope information
// through a separate pass.
func computeCaptures(h *Hir) {
	var walk func(b *Body)
	walk = func(b *Body) {
		for i := range b.Bindings {
			lam, ok := b.Bindings[i].Expr.(ExprLambda)
			if !ok {
				continue
			}
			refs := map[string]HirID{}
			collectReferences(&lam.Body, refs)
			lamID := b.Bindings[i].ID
			var caps []HirID
			for _, r := range refs {
				if !lamID.IsAncestorOf(r) {
					caps = append(caps, r)
				}
			}
			sort.Slice(caps, func(x, y int) bool { return caps[x].String() < caps[y].String() })
			lam.Captures = caps
			b.Bindings[i].Expr = lam
			walk(&lam.Body)
		}
	}
	walk(&h.Body)
}

func collectReferences(b *Body, out map[string]HirID) {
	add := func(id HirID) { out[id.String()] = id }
	for _, bind := range b.Bindings {
		switch e := bind.Expr.(type) {
		case ExprReference:
			add(e.Target)
		case ExprCall:
			add(e.Function)
			for _, a := range e.Arguments {
				add(a)
			}
			add(e.Responsible)
		case ExprStruct:
			for _, f := range e.Fields {
				add(f.Key)
				add(f.Value)
			}
		case ExprNeeds:
			add(e.Condition)
			if e.HasReason {
				add(e.Reason)
			}
			add(e.Responsible)
		case ExprUseModule:
			add(e.RelativePath)
		case ExprLambda:
			collectReferences(&e.Body, out)
		}
	}
}

package candy

import "sort"

// AstNode is a node of the abstract syntax tree: the CST with
// structures lifted into named-shape records and every node given a
// stable AstID (module + dotted-key path) instead of a raw CstID
// (spec §3, §4.B).
type AstNode interface {
	ID() AstID
	Span() Span
}

type astBase struct {
	id   AstID
	span Span
}

func (b astBase) ID() AstID  { return b.id }
func (b astBase) Span() Span { return b.span }

type AstInt struct {
	astBase
	Text string
}

type AstText struct {
	astBase
	Content string
}

type AstSymbol struct {
	astBase
	Name string
}

// AstIdentifier is either a parameter declaration or a reference to a
// binding; HIR lowering tells the two apart by scope.
type AstIdentifier struct {
	astBase
	Name string
}

type AstList struct {
	astBase
	Items []AstNode
}

type AstStructField struct {
	Key   AstNode
	Value AstNode
}

type AstStruct struct {
	astBase
	Fields []AstStructField
}

type AstLambda struct {
	astBase
	Parameters []*AstIdentifier
	Body       []AstNode
}

type AstAssignment struct {
	astBase
	Name       string
	Parameters []*AstIdentifier
	IsPublic   bool
	Body       []AstNode
}

type AstCall struct {
	astBase
	Receiver  AstNode
	Arguments []AstNode
}

type AstError struct {
	astBase
	Message string
}

// astLowerer assigns AstIDs hierarchically (spec §4.B): a top-level
// assignment is keyed by its name (with a `$n` suffix for repeats), and
// every node below it is keyed by its role and position under its
// parent (`body`, `0`, `arg1`, `params`, ...); assignments nested inside
// a body are keyed by position, not by name. It also validates parameter
// lists are patterns made only of plain identifiers (no destructuring
// patterns are part of this language subset, so the only possible
// pattern errors are "a call where a parameter should be" and "anything
// else where a parameter should be").
type astLowerer struct {
	module Module
	diags  *Diagnostics
}

// LowerCstToAst lowers a module's top-level CST nodes into AST nodes,
// keyed under the module's root AstID.
func LowerCstToAst(module Module, items []CstNode, diags *Diagnostics) []AstNode {
	l := &astLowerer{module: module, diags: diags}
	root := NewAstID(module)
	out := make([]AstNode, 0, len(items))
	used := map[string]int{}
	for _, item := range items {
		id := root
		if a, ok := item.(*CstAssignment); ok {
			n := used[a.Name]
			used[a.Name] = n + 1
			key := a.Name
			if n > 0 {
				key = a.Name + "$" + itoaSmall(n)
			}
			id = root.Child(key)
		}
		out = append(out, l.lower(id, item))
	}
	return out
}

func itoaSmall(n int) string {
	digits := "0123456789"
	if n < 10 {
		return string(digits[n])
	}
	s := ""
	for n > 0 {
		s = string(digits[n%10]) + s
		n /= 10
	}
	return s
}

func (l *astLowerer) lower(id AstID, node CstNode) AstNode {
	switch n := node.(type) {
	case *CstError:
		return &AstError{astBase: astBase{id, n.Span()}, Message: n.Message}

	case *CstInt:
		return &AstInt{astBase: astBase{id, n.Span()}, Text: n.Text}

	case *CstText:
		return &AstText{astBase: astBase{id, n.Span()}, Content: n.Content}

	case *CstSymbol:
		return &AstSymbol{astBase: astBase{id, n.Span()}, Name: n.Name}

	case *CstIdentifier:
		return &AstIdentifier{astBase: astBase{id, n.Span()}, Name: n.Name}

	case *CstList:
		items := make([]AstNode, len(n.Items))
		for i, it := range n.Items {
			items[i] = l.lower(id.Child("item"+itoaSmall(i)), it)
		}
		return &AstList{astBase: astBase{id, n.Span()}, Items: items}

	case *CstStruct:
		fields := make([]AstStructField, len(n.Fields))
		for i, f := range n.Fields {
			var key, value AstNode
			if f.Key != nil {
				key = l.lower(id.Child("key"+itoaSmall(i)), f.Key)
			}
			if f.Value != nil {
				value = l.lower(id.Child("value"+itoaSmall(i)), f.Value)
			}
			fields[i] = AstStructField{Key: key, Value: value}
		}
		return &AstStruct{astBase: astBase{id, n.Span()}, Fields: fields}

	case *CstLambda:
		params := l.lowerParameters(id, n.Parameters)
		body := make([]AstNode, len(n.Body))
		bodyID := id.Child("body")
		for i, b := range n.Body {
			body[i] = l.lower(bodyID.Child(itoaSmall(i)), b)
		}
		return &AstLambda{astBase: astBase{id, n.Span()}, Parameters: params, Body: body}

	case *CstAssignment:
		params := l.lowerParameters(id, n.Parameters)
		body := make([]AstNode, len(n.Body))
		bodyID := id.Child("body")
		for i, b := range n.Body {
			body[i] = l.lower(bodyID.Child(itoaSmall(i)), b)
		}
		return &AstAssignment{
			astBase: astBase{id, n.Span()}, Name: n.Name,
			Parameters: params, IsPublic: n.IsPublic, Body: body,
		}

	case *CstCall:
		receiver := l.lower(id.Child("receiver"), n.Receiver)
		args := make([]AstNode, len(n.Arguments))
		for i, a := range n.Arguments {
			args[i] = l.lower(id.Child("arg"+itoaSmall(i)), a)
		}
		return &AstCall{astBase: astBase{id, n.Span()}, Receiver: receiver, Arguments: args}

	default:
		return &AstError{astBase: astBase{id, node.Span()}, Message: "unhandled CST node"}
	}
}

func (l *astLowerer) lowerParameters(id AstID, params []CstNode) []*AstIdentifier {
	out := make([]*AstIdentifier, 0, len(params))
	paramsID := id.Child("params")
	for i, p := range params {
		switch n := p.(type) {
		case *CstIdentifier:
			out = append(out, &AstIdentifier{astBase: astBase{paramsID.Child(itoaSmall(i)), n.Span()}, Name: n.Name})
		case *CstCall:
			l.diags.Addf(l.module, n.Span(), ErrCallInPattern, "a call cannot be used as a parameter pattern")
		default:
			l.diags.Addf(l.module, p.Span(), ErrPatternContainsInvalidExpr, "only plain identifiers are valid parameter patterns")
		}
	}
	return out
}

// Pattern is the minimal shape an or-pattern alternative can take in
// this language subset: a flat set of identifiers it binds. Real
// destructuring patterns (struct/tag shapes) would bind a richer tree;
// since this subset's only pattern position is a lambda/assignment
// parameter list, Pattern models one parameter list's bound names.
type Pattern struct {
	Span  Span
	Names []string
}

// checkOrPatternIdentifiers validates that every alternative of an
// or-pattern (spec §4.B) binds exactly the same set of identifiers.
// Mismatches are reported as OrPatternIsMissingIdentifiers, one
// diagnostic per alternative missing a name the others bind, reported
// at that alternative's span and listing the missing names. The places
// where the other alternatives bind those names are not listed.
func checkOrPatternIdentifiers(module Module, diags *Diagnostics, alternatives []Pattern) {
	if len(alternatives) < 2 {
		return
	}
	all := map[string]bool{}
	for _, alt := range alternatives {
		for _, n := range alt.Names {
			all[n] = true
		}
	}
	names := make([]string, 0, len(all))
	for n := range all {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, alt := range alternatives {
		bound := map[string]bool{}
		for _, n := range alt.Names {
			bound[n] = true
		}
		var missing []string
		for _, n := range names {
			if !bound[n] {
				missing = append(missing, n)
			}
		}
		if len(missing) == 0 {
			continue
		}
		diags.Addf(module, alt.Span, ErrOrPatternIsMissingIdentifiers,
			"this alternative of the or-pattern is missing identifiers %v bound by the others", missing)
	}
}

package candy

// CstNode is a node of the concrete syntax tree: the RCST with
// whitespace, comments, and punctuation tokens stripped out, and a
// stable per-module CstID assigned to every remaining node for
// bidirectional mapping with later IRs (spec §3, §4.B).
type CstNode interface {
	ID() CstID
	Span() Span
}

type cstBase struct {
	id   CstID
	span Span
}

func (b cstBase) ID() CstID  { return b.id }
func (b cstBase) Span() Span { return b.span }

type CstInt struct {
	cstBase
	Text string // raw decimal digits; parsed lazily into *big.Int by HIR
}

type CstText struct {
	cstBase
	Content string
}

type CstIdentifier struct {
	cstBase
	Name string
}

type CstSymbol struct {
	cstBase
	Name string
}

type CstList struct {
	cstBase
	Items []CstNode
}

type CstStructField struct {
	Key   CstNode
	Value CstNode
}

type CstStruct struct {
	cstBase
	Fields []CstStructField
}

type CstLambda struct {
	cstBase
	Parameters []CstNode
	Body       []CstNode
}

type CstAssignment struct {
	cstBase
	Name       string
	Parameters []CstNode
	IsPublic   bool
	Body       []CstNode
}

type CstCall struct {
	cstBase
	Receiver  CstNode
	Arguments []CstNode
}

// CstError stands in for an RcstError that survived into the CST: the
// diagnostic itself was already recorded in Diagnostics; this node just
// keeps the tree shape complete so later stages have something to
// attach an `Error` HIR expression to (spec §3 "Error").
type CstError struct {
	cstBase
	Message string
}

// cstLowerer strips whitespace/comments/punctuation from an RCST tree
// and assigns CstIDs in parse order, the way the teacher's `grammar_ast.go`
// turns a raw parse tree into named-shape AST records.
type cstLowerer struct {
	module Module
	diags  *Diagnostics
	nextID CstID
}

// LowerRcstToCst converts a parsed module's RCST document into its CST:
// a flat list of top-level CstNodes (assignments and bare expressions),
// with whitespace/comments/punctuation removed.
func LowerRcstToCst(module Module, doc *RcstDocument, diags *Diagnostics) []CstNode {
	l := &cstLowerer{module: module, diags: diags}
	var out []CstNode
	for _, item := range doc.Items {
		if n, ok := l.lower(item); ok {
			out = append(out, n)
		}
	}
	return out
}

func (l *cstLowerer) alloc(span Span) cstBase {
	id := l.nextID
	l.nextID++
	return cstBase{id: id, span: span}
}

func (l *cstLowerer) lower(node RcstNode) (CstNode, bool) {
	switch n := node.(type) {
	case *RcstWhitespace, *RcstNewline, *RcstComment, *RcstPunct:
		return nil, false

	case *RcstTrailingWhitespace:
		return l.lower(n.Child)

	case *RcstError:
		l.diags.Addf(l.module, n.Span(), n.Kind, "%s", n.UnparsableInput)
		return &CstError{cstBase: l.alloc(n.Span()), Message: string(n.Kind)}, true

	case *RcstInt:
		return &CstInt{cstBase: l.alloc(n.Span()), Text: n.Text}, true

	case *RcstText:
		if n.CloseQuote == "" {
			l.diags.Addf(l.module, n.Span(), ErrTextNotClosed, "text is not closed")
		}
		return &CstText{cstBase: l.alloc(n.Span()), Content: n.Content}, true

	case *RcstIdentifier:
		return &CstIdentifier{cstBase: l.alloc(n.Span()), Name: n.Text}, true

	case *RcstSymbol:
		return &CstSymbol{cstBase: l.alloc(n.Span()), Name: n.Text}, true

	case *RcstList:
		if n.CloseParen == nil {
			l.diags.Addf(l.module, n.Span(), ErrListNotClosed, "list is not closed")
		}
		items := make([]CstNode, 0, len(n.Items))
		for _, it := range n.Items {
			if it.Value == nil {
				continue
			}
			if v, ok := l.lower(it.Value); ok {
				items = append(items, v)
			} else {
				l.diags.Addf(l.module, it.Span(), ErrListItemMissesValue, "list item misses a value")
			}
		}
		return &CstList{cstBase: l.alloc(n.Span()), Items: items}, true

	case *RcstStruct:
		if n.CloseBracket == nil {
			l.diags.Addf(l.module, n.Span(), ErrStructNotClosed, "struct is not closed")
		}
		fields := make([]CstStructField, 0, len(n.Fields))
		for _, f := range n.Fields {
			var key, value CstNode
			if f.Key != nil {
				key, _ = l.lower(f.Key)
			}
			if f.Value != nil {
				value, _ = l.lower(f.Value)
			}
			if key == nil {
				l.diags.Addf(l.module, f.Span(), ErrStructFieldMissesKey, "struct field misses a key")
				continue
			}
			fields = append(fields, CstStructField{Key: key, Value: value})
		}
		return &CstStruct{cstBase: l.alloc(n.Span()), Fields: fields}, true

	case *RcstLambda:
		if n.CloseCurly == nil {
			l.diags.Addf(l.module, n.Span(), ErrCurlyBraceNotClosed, "curly brace is not closed")
		}
		params := make([]CstNode, 0, len(n.Parameters))
		for _, p := range n.Parameters {
			if v, ok := l.lower(p); ok {
				params = append(params, v)
			}
		}
		body := make([]CstNode, 0, len(n.Body))
		for _, b := range n.Body {
			if v, ok := l.lower(b); ok {
				body = append(body, v)
			}
		}
		return &CstLambda{cstBase: l.alloc(n.Span()), Parameters: params, Body: body}, true

	case *RcstAssignment:
		name := ""
		if id, ok := n.Name.(*RcstIdentifier); ok {
			name = id.Text
		}
		params := make([]CstNode, 0, len(n.Parameters))
		for _, p := range n.Parameters {
			if v, ok := l.lower(p); ok {
				params = append(params, v)
			}
		}
		body := make([]CstNode, 0, len(n.Body))
		for _, b := range n.Body {
			if v, ok := l.lower(b); ok {
				body = append(body, v)
			}
		}
		return &CstAssignment{
			cstBase: l.alloc(n.Span()), Name: name, Parameters: params,
			IsPublic: n.IsPublic, Body: body,
		}, true

	case *RcstCall:
		receiver, ok := l.lower(n.Receiver)
		if !ok {
			return nil, false
		}
		args := make([]CstNode, 0, len(n.Arguments))
		for _, a := range n.Arguments {
			if v, ok := l.lower(a); ok {
				args = append(args, v)
			}
		}
		return &CstCall{cstBase: l.alloc(n.Span()), Receiver: receiver, Arguments: args}, true

	default:
		return nil, false
	}
}

package candy

import "strings"

// RcstNode is one node of the *raw* concrete syntax tree: the loss-less
// parse tree that covers every byte of the input, including whitespace,
// comments, and unparseable stretches (spec §3, §4.A, §8 "Parser
// round-trip"). Every variant below can Render its own exact source
// text back out; concatenating Render() over a whole tree reproduces
// the original input byte for byte.
type RcstNode interface {
	Span() Span
	// Render writes this node's exact source text to w.
	Render(w *strings.Builder)
}

func RenderRcst(n RcstNode) string {
	var b strings.Builder
	n.Render(&b)
	return b.String()
}

type base struct{ span Span }

func (b base) Span() Span { return b.span }

// RcstWhitespace is a run of spaces (and, when malformed, other
// whitespace bytes folded into an Error node instead — see
// RcstError).
type RcstWhitespace struct {
	base
	Text string
}

func (n *RcstWhitespace) Render(w *strings.Builder) { w.WriteString(n.Text) }

// RcstNewline is a single `\n` or `\r\n`.
type RcstNewline struct {
	base
	Text string
}

func (n *RcstNewline) Render(w *strings.Builder) { w.WriteString(n.Text) }

// RcstComment is `#` followed by everything up to (not including) the
// terminating newline.
type RcstComment struct {
	base
	Text string
}

func (n *RcstComment) Render(w *strings.Builder) { w.WriteString(n.Text) }

// RcstIdentifier is a lowercase-leading alphanumeric name.
type RcstIdentifier struct {
	base
	Text string
}

func (n *RcstIdentifier) Render(w *strings.Builder) { w.WriteString(n.Text) }

// RcstSymbol is a capitalized alphanumeric name (e.g. `True`, `Nothing`).
type RcstSymbol struct {
	base
	Text string
}

func (n *RcstSymbol) Render(w *strings.Builder) { w.WriteString(n.Text) }

// RcstInt is an arbitrary-precision decimal literal, stored as its raw
// source text so Render is exact even for leading zeros.
type RcstInt struct {
	base
	Text string
}

func (n *RcstInt) Render(w *strings.Builder) { w.WriteString(n.Text) }

// RcstText is a double-quoted (possibly multiline) text literal.
// OpenQuote/CloseQuote are the `"` bytes (CloseQuote is empty if
// TextNotClosed was recorded instead); Content is the raw text between
// them.
type RcstText struct {
	base
	OpenQuote  string
	Content    string
	CloseQuote string // "" if unterminated
}

func (n *RcstText) Render(w *strings.Builder) {
	w.WriteString(n.OpenQuote)
	w.WriteString(n.Content)
	w.WriteString(n.CloseQuote)
}

// RcstPunct is a single fixed punctuation token: `=`, `,`, `:`, `(`,
// `)`, `[`, `]`, `{`, `}`, `->`, `:=`, `#`.
type RcstPunct struct {
	base
	Text string
}

func (n *RcstPunct) Render(w *strings.Builder) { w.WriteString(n.Text) }

// RcstTrailingWhitespace wraps any node together with the incidental
// whitespace/comment/newline nodes that immediately follow it, the way
// every RCST node can carry trailing noise without that noise being
// semantically part of the node.
type RcstTrailingWhitespace struct {
	base
	Child      RcstNode
	Whitespace []RcstNode
}

func (n *RcstTrailingWhitespace) Render(w *strings.Builder) {
	n.Child.Render(w)
	for _, ws := range n.Whitespace {
		ws.Render(w)
	}
}

// RcstListItem is one element of a list literal: a value followed by an
// optional trailing comma.
type RcstListItem struct {
	base
	Value RcstNode
	Comma RcstNode // nil if last item without trailing comma
}

func (n *RcstListItem) Render(w *strings.Builder) {
	n.Value.Render(w)
	if n.Comma != nil {
		n.Comma.Render(w)
	}
}

// RcstList is `(a, b,)`, or the special empty list `(,)`.
type RcstList struct {
	base
	OpenParen  RcstNode
	Items      []*RcstListItem
	CloseParen RcstNode // nil if ListNotClosed
}

func (n *RcstList) Render(w *strings.Builder) {
	n.OpenParen.Render(w)
	for _, it := range n.Items {
		it.Render(w)
	}
	if n.CloseParen != nil {
		n.CloseParen.Render(w)
	}
}

// RcstStructField is `key: value` followed by an optional comma.
type RcstStructField struct {
	base
	Key   RcstNode
	Colon RcstNode // nil if StructFieldMissesColon
	Value RcstNode // nil if StructFieldMissesValue
	Comma RcstNode
}

func (n *RcstStructField) Render(w *strings.Builder) {
	if n.Key != nil {
		n.Key.Render(w)
	}
	if n.Colon != nil {
		n.Colon.Render(w)
	}
	if n.Value != nil {
		n.Value.Render(w)
	}
	if n.Comma != nil {
		n.Comma.Render(w)
	}
}

// RcstStruct is `[k: v, ...]`.
type RcstStruct struct {
	base
	OpenBracket  RcstNode
	Fields       []*RcstStructField
	CloseBracket RcstNode // nil if StructNotClosed
}

func (n *RcstStruct) Render(w *strings.Builder) {
	n.OpenBracket.Render(w)
	for _, f := range n.Fields {
		f.Render(w)
	}
	if n.CloseBracket != nil {
		n.CloseBracket.Render(w)
	}
}

// RcstParenthesized is `(expr)`, a single parenthesized expression (not
// to be confused with RcstList, which always has comma-delimited
// items).
type RcstParenthesized struct {
	base
	OpenParen  RcstNode
	Inner      RcstNode
	CloseParen RcstNode
}

func (n *RcstParenthesized) Render(w *strings.Builder) {
	n.OpenParen.Render(w)
	if n.Inner != nil {
		n.Inner.Render(w)
	}
	if n.CloseParen != nil {
		n.CloseParen.Render(w)
	}
}

// RcstLambda is `{ params -> body }`.
type RcstLambda struct {
	base
	OpenCurly  RcstNode
	Parameters []RcstNode
	Arrow      RcstNode // nil for a zero-parameter lambda with no `->`
	Body       []RcstNode
	CloseCurly RcstNode // nil if CurlyBraceNotClosed
}

func (n *RcstLambda) Render(w *strings.Builder) {
	n.OpenCurly.Render(w)
	for _, p := range n.Parameters {
		p.Render(w)
	}
	if n.Arrow != nil {
		n.Arrow.Render(w)
	}
	for _, b := range n.Body {
		b.Render(w)
	}
	if n.CloseCurly != nil {
		n.CloseCurly.Render(w)
	}
}

// RcstAssignment is `name params = body` or `name params := body`
// (IsPublic).
type RcstAssignment struct {
	base
	Name       RcstNode
	Parameters []RcstNode
	Operator   RcstNode // `=` or `:=`
	IsPublic   bool
	Body       []RcstNode
}

func (n *RcstAssignment) Render(w *strings.Builder) {
	n.Name.Render(w)
	for _, p := range n.Parameters {
		p.Render(w)
	}
	n.Operator.Render(w)
	for _, b := range n.Body {
		b.Render(w)
	}
}

// RcstCall is a receiver followed by zero or more arguments, found
// either on the same line or on deeper-indented following lines.
type RcstCall struct {
	base
	Receiver  RcstNode
	Arguments []RcstNode
}

func (n *RcstCall) Render(w *strings.Builder) {
	n.Receiver.Render(w)
	for _, a := range n.Arguments {
		a.Render(w)
	}
}

// RcstError marks a stretch of input the parser couldn't make sense of.
// The tree always covers the whole input, so unparseable input becomes
// one of these rather than aborting the parse (spec §4.A).
type RcstError struct {
	base
	UnparsableInput string
	Kind            CompileErrorKind
}

func (n *RcstError) Render(w *strings.Builder) { w.WriteString(n.UnparsableInput) }

// RcstDocument is the root node: every top-level item plus any trailing
// whitespace at end of file.
type RcstDocument struct {
	base
	Items []RcstNode
}

func (n *RcstDocument) Render(w *strings.Builder) {
	for _, it := range n.Items {
		it.Render(w)
	}
}

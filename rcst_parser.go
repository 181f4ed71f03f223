package candy

import "strings"

// rcstParser is a recursive-descent, indentation-first parser: every
// production takes a `state` (current offset) and reports ok=false on
// non-match instead of raising an error, the same "(remaining, node)"
// shape the teacher's grammar parser uses in
// `_examples/clarete-langlang/go/grammar_parser.go` and `base_parser.go`.
// Two spaces make one indentation level (spec §4.A "Indentation rule").
type rcstParser struct {
	src    string
	module Module

	pos, line, col int
	diags          Diagnostics
}

func newRcstParser(module Module, src string) *rcstParser {
	return &rcstParser{src: src, module: module}
}

type parserMark struct{ pos, line, col int }

func (p *rcstParser) mark() parserMark { return parserMark{p.pos, p.line, p.col} }
func (p *rcstParser) reset(m parserMark) {
	p.pos, p.line, p.col = m.pos, m.line, m.col
}

func (p *rcstParser) position() Position {
	return Position{Line: p.line, Column: p.col, Offset: p.pos}
}

func (p *rcstParser) eof() bool { return p.pos >= len(p.src) }

func (p *rcstParser) peekByte() (byte, bool) {
	if p.eof() {
		return 0, false
	}
	return p.src[p.pos], true
}

func (p *rcstParser) peekAt(offset int) (byte, bool) {
	i := p.pos + offset
	if i < 0 || i >= len(p.src) {
		return 0, false
	}
	return p.src[i], true
}

// advance consumes n bytes and returns them, keeping line/column in
// sync.
func (p *rcstParser) advance(n int) string {
	text := p.src[p.pos : p.pos+n]
	for _, c := range text {
		if c == '\n' {
			p.line++
			p.col = 0
		} else {
			p.col++
		}
	}
	p.pos += n
	return text
}

func (p *rcstParser) literal(s string) bool {
	if strings.HasPrefix(p.src[p.pos:], s) {
		p.advance(len(s))
		return true
	}
	return false
}

func isAsciiDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isAsciiLower(c byte) bool  { return c >= 'a' && c <= 'z' }
func isAsciiUpper(c byte) bool  { return c >= 'A' && c <= 'Z' }
func isAsciiAlnum(c byte) bool  { return isAsciiDigit(c) || isAsciiLower(c) || isAsciiUpper(c) }

// ParseModule parses a whole Candy source file into an RCST document
// covering the full input (spec §4.A "the parser never fails
// globally").
func ParseModule(module Module, src string) (*RcstDocument, *Diagnostics) {
	p := newRcstParser(module, src)
	start := p.position()
	var items []RcstNode
	for !p.eof() {
		before := p.pos
		if node, ok := p.parseTopLevelItem(); ok {
			items = append(items, node)
		} else if ws, ok := p.parseAnyWhitespace(); ok {
			items = append(items, ws)
		} else {
			// Consume exactly one byte into an error node so the
			// parser always makes progress and the tree always
			// covers the whole input.
			s := p.position()
			text := p.advance(1)
			items = append(items, &RcstError{
				base:            base{NewSpan(s, p.position())},
				UnparsableInput: text,
				Kind:            ErrUnexpectedCharacters,
			})
		}
		if p.pos == before {
			// Safety net: never loop forever.
			s := p.position()
			text := p.advance(1)
			items = append(items, &RcstError{
				base:            base{NewSpan(s, p.position())},
				UnparsableInput: text,
				Kind:            ErrUnexpectedCharacters,
			})
		}
	}
	return &RcstDocument{base: base{NewSpan(start, p.position())}, Items: items}, &p.diags
}

func (p *rcstParser) parseTopLevelItem() (RcstNode, bool) {
	if ws, ok := p.parseAnyWhitespace(); ok {
		return ws, true
	}
	if a, ok := p.parseAssignment(0); ok {
		return p.wrapTrailing(a, 0), true
	}
	if c, ok := p.parseExpression(0); ok {
		return p.wrapTrailing(c, 0), true
	}
	return nil, false
}

// wrapTrailing attaches any immediately-following incidental
// whitespace/newlines/comments to node, so the node's semantic content
// and its trailing noise are cleanly separable later (CST stage).
func (p *rcstParser) wrapTrailing(node RcstNode, indentation int) RcstNode {
	before := p.mark()
	ws := p.whitespacesAndNewlines(indentation, true)
	if len(ws) == 0 {
		p.reset(before)
		return node
	}
	return &RcstTrailingWhitespace{
		base:       base{NewSpan(node.Span().Start, p.position())},
		Child:      node,
		Whitespace: ws,
	}
}

// ---- Whitespace & comments (spec §4.A "Whitespace handling") ----

func (p *rcstParser) parseAnyWhitespace() (RcstNode, bool) {
	if n, ok := p.parseNewline(); ok {
		return n, true
	}
	if n, ok := p.parseSingleLineWhitespace(); ok {
		return n, true
	}
	if n, ok := p.parseComment(); ok {
		return n, true
	}
	return nil, false
}

func (p *rcstParser) parseSingleLineWhitespace() (RcstNode, bool) {
	start := p.position()
	hasError := false
	n := 0
	for {
		c, ok := p.peekAt(n)
		if !ok {
			break
		}
		switch {
		case c == ' ':
		case c == '\t':
			hasError = true
		case c == '\n' || c == '\r':
			goto done
		default:
			goto done
		}
		n++
	}
done:
	if n == 0 {
		return nil, false
	}
	text := p.advance(n)
	sp := NewSpan(start, p.position())
	if hasError {
		return &RcstError{base: base{sp}, UnparsableInput: text, Kind: ErrWeirdWhitespace}, true
	}
	return &RcstWhitespace{base: base{sp}, Text: text}, true
}

func (p *rcstParser) parseNewline() (RcstNode, bool) {
	start := p.position()
	if p.literal("\r\n") {
		return &RcstNewline{base: base{NewSpan(start, p.position())}, Text: "\r\n"}, true
	}
	if p.literal("\n") {
		return &RcstNewline{base: base{NewSpan(start, p.position())}, Text: "\n"}, true
	}
	return nil, false
}

func (p *rcstParser) parseComment() (RcstNode, bool) {
	c, ok := p.peekByte()
	if !ok || c != '#' {
		return nil, false
	}
	start := p.position()
	n := 0
	for {
		c, ok := p.peekAt(n)
		if !ok || c == '\n' || c == '\r' {
			break
		}
		n++
	}
	text := p.advance(n)
	return &RcstComment{base: base{NewSpan(start, p.position())}, Text: text}, true
}

// leadingIndentation consumes exactly `indentation` levels (two spaces
// each) of leading whitespace. It fails (no progress) if it hits a
// newline or non-whitespace before the target depth.
func (p *rcstParser) leadingIndentation(indentation int) (RcstNode, bool) {
	start := p.position()
	target := indentation * 2
	hasWeird := false
	n := 0
	for n < target {
		c, ok := p.peekAt(n)
		if !ok {
			return nil, false
		}
		switch {
		case c == ' ':
		case c == '\n' || c == '\r':
			return nil, false
		case c == '\t':
			hasWeird = true
		default:
			return nil, false
		}
		n++
	}
	text := p.advance(n)
	sp := NewSpan(start, p.position())
	if hasWeird {
		return &RcstError{base: base{sp}, UnparsableInput: text, Kind: ErrWeirdWhitespaceInIndentation}, true
	}
	return &RcstWhitespace{base: base{sp}, Text: text}, true
}

// whitespacesAndNewlines greedily consumes single-line whitespace,
// newlines, and (if requested) comments, as long as each subsequent
// line is indented to at least `indentation` (spec §4.A). It is the Go
// analogue of the teacher's single-purpose whitespace combinators,
// generalized from PEG-grammar whitespace to Candy's block structure.
func (p *rcstParser) whitespacesAndNewlines(indentation int, alsoComments bool) []RcstNode {
	var parts []RcstNode
	if ws, ok := p.parseSingleLineWhitespace(); ok {
		parts = append(parts, ws)
	}

	var pending []RcstNode
	sufficientlyIndented := true
	for {
		progressMark := p.mark()

		if alsoComments && sufficientlyIndented {
			if c, ok := p.parseComment(); ok {
				pending = append(pending, c)
				parts = append(parts, pending...)
				pending = nil
			}
		}
		if nl, ok := p.parseNewline(); ok {
			pending = append(pending, nl)
			sufficientlyIndented = false
		}
		if ind, ok := p.leadingIndentation(indentation); ok {
			pending = append(pending, ind)
			parts = append(parts, pending...)
			pending = nil
			sufficientlyIndented = true
		} else if ws, ok := p.parseSingleLineWhitespace(); ok {
			pending = append(pending, ws)
		}

		if p.mark() == progressMark {
			break
		}
	}

	var filtered []RcstNode
	for _, n := range parts {
		if ws, ok := n.(*RcstWhitespace); ok && ws.Text == "" {
			continue
		}
		filtered = append(filtered, n)
	}
	return filtered
}

// ---- Literals ----

func (p *rcstParser) parseIdentifier() (RcstNode, bool) {
	c, ok := p.peekByte()
	if !ok || !isAsciiLower(c) {
		return nil, false
	}
	start := p.position()
	n := 1
	for {
		c, ok := p.peekAt(n)
		if !ok || !(isAsciiAlnum(c) || c == '_') {
			break
		}
		n++
	}
	text := p.advance(n)
	return &RcstIdentifier{base: base{NewSpan(start, p.position())}, Text: text}, true
}

func (p *rcstParser) parseSymbol() (RcstNode, bool) {
	c, ok := p.peekByte()
	if !ok || !isAsciiUpper(c) {
		return nil, false
	}
	start := p.position()
	n := 1
	for {
		c, ok := p.peekAt(n)
		if !ok || !(isAsciiAlnum(c) || c == '_') {
			break
		}
		n++
	}
	text := p.advance(n)
	return &RcstSymbol{base: base{NewSpan(start, p.position())}, Text: text}, true
}

func (p *rcstParser) parseInt() (RcstNode, bool) {
	c, ok := p.peekByte()
	if !ok || !isAsciiDigit(c) {
		return nil, false
	}
	start := p.position()
	n := 1
	for {
		c, ok := p.peekAt(n)
		if !ok || !isAsciiDigit(c) {
			break
		}
		n++
	}
	// Check for a trailing run of non-digit alphanumerics glued to the
	// number, e.g. `123abc` (spec error: IntContainsNonDigits).
	extra := 0
	for {
		c, ok := p.peekAt(n + extra)
		if !ok || !(isAsciiAlnum(c)) {
			break
		}
		extra++
	}
	text := p.advance(n + extra)
	sp := NewSpan(start, p.position())
	if extra > 0 {
		return &RcstError{base: base{sp}, UnparsableInput: text, Kind: ErrIntContainsNonDigits}, true
	}
	return &RcstInt{base: base{sp}, Text: text}, true
}

func (p *rcstParser) parseText() (RcstNode, bool) {
	c, ok := p.peekByte()
	if !ok || c != '"' {
		return nil, false
	}
	start := p.position()
	p.advance(1)
	contentStart := p.pos
	for {
		c, ok := p.peekByte()
		if !ok {
			// Unterminated text: spans to EOF.
			content := p.src[contentStart:p.pos]
			sp := NewSpan(start, p.position())
			p.diags.Addf(p.module, sp, ErrTextNotClosed, "text is not closed")
			return &RcstText{
				base:      base{sp},
				OpenQuote: `"`, Content: content, CloseQuote: "",
			}, true
		}
		if c == '"' {
			content := p.src[contentStart:p.pos]
			p.advance(1)
			return &RcstText{
				base:      base{NewSpan(start, p.position())},
				OpenQuote: `"`, Content: content, CloseQuote: `"`,
			}, true
		}
		if c == '\\' {
			if _, ok := p.peekAt(1); ok {
				p.advance(2)
				continue
			}
		}
		p.advance(1)
	}
}

func (p *rcstParser) parsePunct(lit string) (RcstNode, bool) {
	if !strings.HasPrefix(p.src[p.pos:], lit) {
		return nil, false
	}
	start := p.position()
	text := p.advance(len(lit))
	return &RcstPunct{base: base{NewSpan(start, p.position())}, Text: text}, true
}

// ---- Lists, structs, parens, lambdas ----

func (p *rcstParser) parseList(indentation int) (RcstNode, bool) {
	open, ok := p.parsePunct("(")
	if !ok {
		return nil, false
	}
	start := open.Span().Start
	var items []*RcstListItem
	for {
		before := p.mark()
		ws := p.whitespacesAndNewlines(indentation+1, true)
		value, ok := p.parseExpression(indentation + 1)
		if !ok {
			p.reset(before)
			break
		}
		value = p.prependTrailing(value, ws)
		valueWithTrailing := p.wrapTrailing(value, indentation+1)
		var comma RcstNode
		if c, ok := p.parsePunct(","); ok {
			comma = p.wrapTrailing(c, indentation+1)
		}
		items = append(items, &RcstListItem{
			base:  base{NewSpan(valueWithTrailing.Span().Start, p.position())},
			Value: valueWithTrailing, Comma: comma,
		})
		if comma == nil {
			break
		}
	}
	// `(,)` special empty-list form.
	if len(items) == 0 {
		if c, ok := p.parsePunct(","); ok {
			items = append(items, &RcstListItem{base: base{c.Span()}, Value: nil, Comma: c})
		}
	}
	ws := p.whitespacesAndNewlines(indentation, true)
	close, ok := p.parsePunct(")")
	if !ok {
		sp := NewSpan(start, p.position())
		p.diags.Addf(p.module, sp, ErrListNotClosed, "list is not closed")
		return &RcstList{
			base: base{sp}, OpenParen: open, Items: items, CloseParen: nil,
		}, true
	}
	_ = ws
	return &RcstList{base: base{NewSpan(start, p.position())}, OpenParen: open, Items: items, CloseParen: close}, true
}

func (p *rcstParser) prependTrailing(node RcstNode, ws []RcstNode) RcstNode {
	if len(ws) == 0 {
		return node
	}
	return &RcstTrailingWhitespace{base: base{node.Span()}, Child: node, Whitespace: ws}
}

func (p *rcstParser) parseStruct(indentation int) (RcstNode, bool) {
	open, ok := p.parsePunct("[")
	if !ok {
		return nil, false
	}
	start := open.Span().Start
	var fields []*RcstStructField
	for {
		before := p.mark()
		p.whitespacesAndNewlines(indentation+1, true)
		key, ok := p.parseExpression(indentation + 1)
		if !ok {
			p.reset(before)
			break
		}
		fstart := key.Span().Start
		p.whitespacesAndNewlines(indentation+1, true)
		colon, hasColon := p.parsePunct(":")
		var value RcstNode
		if hasColon {
			p.whitespacesAndNewlines(indentation+1, true)
			value, _ = p.parseExpression(indentation + 1)
		}
		p.whitespacesAndNewlines(indentation+1, true)
		comma, hasComma := p.parsePunct(",")
		field := &RcstStructField{base: base{NewSpan(fstart, p.position())}, Key: key, Colon: colon, Value: value, Comma: nil}
		if hasComma {
			field.Comma = comma
		}
		switch {
		case !hasColon:
			p.diags.Addf(p.module, field.Span(), ErrStructFieldMissesColon, "struct field misses a colon")
		case value == nil:
			p.diags.Addf(p.module, field.Span(), ErrStructFieldMissesValue, "struct field misses a value")
		}
		fields = append(fields, field)
		if !hasComma {
			break
		}
	}
	p.whitespacesAndNewlines(indentation, true)
	close, ok := p.parsePunct("]")
	if !ok {
		sp := NewSpan(start, p.position())
		p.diags.Addf(p.module, sp, ErrStructNotClosed, "struct is not closed")
		return &RcstStruct{base: base{sp}, OpenBracket: open, Fields: fields, CloseBracket: nil}, true
	}
	return &RcstStruct{base: base{NewSpan(start, p.position())}, OpenBracket: open, Fields: fields, CloseBracket: close}, true
}

func (p *rcstParser) parseParenthesizedOrList(indentation int) (RcstNode, bool) {
	return p.parseList(indentation)
}

func (p *rcstParser) parseLambda(indentation int) (RcstNode, bool) {
	open, ok := p.parsePunct("{")
	if !ok {
		return nil, false
	}
	start := open.Span().Start
	inner := indentation + 1
	p.whitespacesAndNewlines(inner, true)

	var params []RcstNode
	paramsStart := p.mark()
	for {
		before := p.mark()
		id, ok := p.parseIdentifier()
		if !ok {
			p.reset(before)
			break
		}
		params = append(params, id)
		p.whitespacesAndNewlines(inner, true)
	}
	var arrow RcstNode
	if a, ok := p.parsePunct("->"); ok {
		arrow = a
		p.whitespacesAndNewlines(inner, true)
	} else if len(params) > 0 {
		// No `->` after what looked like parameters: they were
		// actually the start of the body expression, not parameters.
		p.reset(paramsStart)
		params = nil
	}

	var body []RcstNode
	for {
		before := p.mark()
		ws := p.whitespacesAndNewlines(inner, true)
		expr, ok := p.parseExpression(inner)
		if !ok {
			p.reset(before)
			break
		}
		expr = p.prependTrailing(expr, ws)
		body = append(body, p.wrapTrailing(expr, inner))
	}
	p.whitespacesAndNewlines(indentation, true)
	close, ok := p.parsePunct("}")
	if !ok {
		sp := NewSpan(start, p.position())
		p.diags.Addf(p.module, sp, ErrCurlyBraceNotClosed, "curly brace is not closed")
		return &RcstLambda{
			base: base{sp}, OpenCurly: open,
			Parameters: params, Arrow: arrow, Body: body, CloseCurly: nil,
		}, true
	}
	return &RcstLambda{
		base: base{NewSpan(start, p.position())}, OpenCurly: open,
		Parameters: params, Arrow: arrow, Body: body, CloseCurly: close,
	}, true
}

// ---- Calls, assignments, expressions ----

// parseAtom parses a single non-call expression: a literal, a
// parenthesized list, a struct, or a lambda.
func (p *rcstParser) parseAtom(indentation int) (RcstNode, bool) {
	if n, ok := p.parseLambda(indentation); ok {
		return n, true
	}
	if n, ok := p.parseStruct(indentation); ok {
		return n, true
	}
	if n, ok := p.parseList(indentation); ok {
		return n, true
	}
	if n, ok := p.parseText(); ok {
		return n, true
	}
	if n, ok := p.parseInt(); ok {
		return n, true
	}
	if n, ok := p.parseSymbol(); ok {
		return n, true
	}
	if n, ok := p.parseIdentifier(); ok {
		return n, true
	}
	return nil, false
}

// parseExpression parses a call: a receiver atom, optionally followed
// by arguments on the same line or on deeper-indented following lines
// (spec §4.A "calls").
func (p *rcstParser) parseExpression(indentation int) (RcstNode, bool) {
	receiver, ok := p.parseAtom(indentation)
	if !ok {
		return nil, false
	}
	var args []RcstNode
	for {
		before := p.mark()
		var ws []RcstNode
		if c, ok := p.peekByte(); ok && c == ' ' {
			if n, ok := p.parseSingleLineWhitespace(); ok {
				ws = append(ws, n)
			}
		} else if c, ok := p.peekByte(); ok && (c == '\n' || c == '\r') {
			ws = p.whitespacesAndNewlines(indentation+1, true)
			if len(ws) == 0 {
				p.reset(before)
				break
			}
		} else {
			p.reset(before)
			break
		}
		arg, ok := p.parseAtom(indentation + 1)
		if !ok {
			p.reset(before)
			break
		}
		args = append(args, p.prependTrailing(arg, ws))
	}
	if len(args) == 0 {
		return receiver, true
	}
	return &RcstCall{base: base{NewSpan(receiver.Span().Start, p.position())}, Receiver: receiver, Arguments: args}, true
}

// parseAssignment parses `name params = body` or `name params := body`.
func (p *rcstParser) parseAssignment(indentation int) (RcstNode, bool) {
	before := p.mark()
	name, ok := p.parseIdentifier()
	if !ok {
		return nil, false
	}
	start := name.Span().Start
	var params []RcstNode
	for {
		wsMark := p.mark()
		ws, ok := p.parseSingleLineWhitespace()
		if !ok {
			break
		}
		id, ok := p.parseIdentifier()
		if !ok {
			p.reset(wsMark)
			break
		}
		params = append(params, p.prependTrailing(id, []RcstNode{ws}))
	}
	p.parseSingleLineWhitespace()
	var op RcstNode
	isPublic := false
	if o, ok := p.parsePunct(":="); ok {
		op, isPublic = o, true
	} else if o, ok := p.parsePunct("="); ok {
		op = o
	} else {
		p.reset(before)
		return nil, false
	}
	inner := indentation + 1
	var body []RcstNode
	for {
		itemMark := p.mark()
		ws := p.whitespacesAndNewlines(inner, true)
		if item, ok := p.parseAssignment(inner); ok {
			body = append(body, p.wrapTrailing(p.prependTrailing(item, ws), inner))
			continue
		}
		if item, ok := p.parseExpression(inner); ok {
			body = append(body, p.wrapTrailing(p.prependTrailing(item, ws), inner))
			continue
		}
		p.reset(itemMark)
		break
	}
	return &RcstAssignment{
		base: base{NewSpan(start, p.position())}, Name: name, Parameters: params,
		Operator: op, IsPublic: isPublic, Body: body,
	}, true
}

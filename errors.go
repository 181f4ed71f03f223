package candy

import "fmt"

// CompileErrorKind enumerates the deterministic, per-span diagnostics a
// module can accumulate (spec §7). Parser errors come from the RCST
// stage, AST/HIR errors from lowering, MIR errors from optimization.
type CompileErrorKind string

const (
	// Parser errors (spec §4.A).
	ErrCurlyBraceNotClosed               CompileErrorKind = "CurlyBraceNotClosed"
	ErrIdentifierContainsNonAlphanumeric CompileErrorKind = "IdentifierContainsNonAlphanumericAscii"
	ErrIntContainsNonDigits              CompileErrorKind = "IntContainsNonDigits"
	ErrListItemMissesValue               CompileErrorKind = "ListItemMissesValue"
	ErrListNotClosed                     CompileErrorKind = "ListNotClosed"
	ErrOpeningParenthesisWithoutExpr     CompileErrorKind = "OpeningParenthesisWithoutExpression"
	ErrParenthesisNotClosed              CompileErrorKind = "ParenthesisNotClosed"
	ErrStructFieldMissesKey              CompileErrorKind = "StructFieldMissesKey"
	ErrStructFieldMissesColon            CompileErrorKind = "StructFieldMissesColon"
	ErrStructFieldMissesValue            CompileErrorKind = "StructFieldMissesValue"
	ErrStructNotClosed                   CompileErrorKind = "StructNotClosed"
	ErrSymbolContainsNonAlphanumeric     CompileErrorKind = "SymbolContainsNonAlphanumericAscii"
	ErrTextNotClosed                     CompileErrorKind = "TextNotClosed"
	ErrTextNotSufficientlyIndented       CompileErrorKind = "TextNotSufficientlyIndented"
	ErrTooMuchWhitespace                 CompileErrorKind = "TooMuchWhitespace"
	ErrUnexpectedCharacters              CompileErrorKind = "UnexpectedCharacters"
	ErrWeirdWhitespace                   CompileErrorKind = "WeirdWhitespace"
	ErrWeirdWhitespaceInIndentation      CompileErrorKind = "WeirdWhitespaceInIndentation"

	// AST errors (spec §4.B).
	ErrCallInPattern                   CompileErrorKind = "CallInPattern"
	ErrExpectedParameter               CompileErrorKind = "ExpectedParameter"
	ErrOrPatternIsMissingIdentifiers   CompileErrorKind = "OrPatternIsMissingIdentifiers"
	ErrPatternContainsInvalidExpr      CompileErrorKind = "PatternContainsInvalidExpression"

	// HIR errors (spec §4.B).
	ErrUnknownReference                CompileErrorKind = "UnknownReference"
	ErrPublicAssignmentInNotTopLevel   CompileErrorKind = "PublicAssignmentInNotTopLevel"
	ErrPublicAssignmentWithSameName    CompileErrorKind = "PublicAssignmentWithSameName"
	ErrNeedsWithWrongNumberOfArguments CompileErrorKind = "NeedsWithWrongNumberOfArguments"

	// MIR errors (spec §4.D).
	ErrModuleHasCycle     CompileErrorKind = "ModuleHasCycle"
	ErrMirInvariantBroken CompileErrorKind = "MirInvariantBroken"
)

// CompileError is a single deterministic diagnostic attached to a span
// of a module's source. Mirrors the teacher's ParsingError (errors.go):
// a label/kind plus a human message plus a span, rendered the same way.
type CompileError struct {
	Module  Module
	Span    Span
	Kind    CompileErrorKind
	Message string
}

func (e CompileError) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg = e.Message
	}
	return fmt.Sprintf("%s @ %s:%s", msg, e.Module, e.Span)
}

// Diagnostics accumulates every CompileError discovered while lowering
// or optimizing one module. Errors never abort the pipeline early
// (spec §7 "Propagation policy") — they're collected and the pipeline
// still produces a best-effort result.
type Diagnostics struct {
	errs []CompileError
}

func (d *Diagnostics) Add(e CompileError) { d.errs = append(d.errs, e) }

func (d *Diagnostics) Addf(module Module, span Span, kind CompileErrorKind, format string, args ...any) {
	d.Add(CompileError{Module: module, Span: span, Kind: kind, Message: fmt.Sprintf(format, args...)})
}

func (d *Diagnostics) HasErrors() bool { return len(d.errs) > 0 }

func (d *Diagnostics) Errors() []CompileError { return d.errs }

func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}
	d.errs = append(d.errs, other.errs...)
}

// Panic is a runtime failure: a reason and the HIR ID blamed for it
// (spec §3 "Responsible"). It satisfies `error` so it composes with
// ordinary Go control flow, but the VM never uses it as a Go panic —
// it is carried explicitly as fiber/VM state (spec §4.G).
type Panic struct {
	Reason      string
	Responsible HirID
}

func (p Panic) Error() string {
	return fmt.Sprintf("%s (responsible: %s)", p.Reason, p.Responsible)
}

func NewPanic(responsible HirID, format string, args ...any) Panic {
	return Panic{Reason: fmt.Sprintf(format, args...), Responsible: responsible}
}

package candy

import (
	"fmt"
	"strings"

	"github.com/candy-lang/candy-go/internal/ascii"
)

// PrintHir renders a module's HIR as an indented, colorized listing,
// the way --debug dumps are meant to read (spec §4.F "debug dumps"):
// one binding per line, `id = expression`.
func PrintHir(h *Hir) string {
	var b strings.Builder
	printHirBody(&b, h.Body, 0)
	return b.String()
}

func printHirBody(b *strings.Builder, body Body, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, bind := range body.Bindings {
		fmt.Fprintf(b, "%s%s = %s\n", indent, ascii.Color(ascii.DefaultTheme.Accent, "%s", bind.ID), hirExprString(bind.Expr))
		if lam, ok := bind.Expr.(ExprLambda); ok {
			printHirBody(b, lam.Body, depth+1)
		}
	}
}

func hirExprString(e Expression) string {
	switch v := e.(type) {
	case ExprInt:
		return ascii.Color(ascii.DefaultTheme.Literal, "%s", v.Value.String())
	case ExprText:
		return ascii.Color(ascii.DefaultTheme.Literal, "%q", v.Value)
	case ExprSymbol:
		return ascii.Color(ascii.DefaultTheme.Literal, "%s", v.Name)
	case ExprReference:
		return fmt.Sprintf("ref(%s)", v.Target)
	case ExprStruct:
		parts := make([]string, len(v.Fields))
		for i, f := range v.Fields {
			parts[i] = fmt.Sprintf("%s: %s", f.Key, f.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case ExprLambda:
		return fmt.Sprintf("{ %v -> ... }", v.Parameters)
	case ExprBuiltin:
		return ascii.Color(ascii.DefaultTheme.Operator, "builtin.%s", v.Function)
	case ExprCall:
		return fmt.Sprintf("%s(%v)", v.Function, v.Arguments)
	case ExprUseModule:
		return fmt.Sprintf("useModule(%s)", v.RelativePath)
	case ExprNeeds:
		return fmt.Sprintf("needs(%s)", v.Condition)
	case ExprError:
		return ascii.Color(ascii.DefaultTheme.Error, "<error>")
	default:
		return fmt.Sprintf("%#v", e)
	}
}

// PrintMir renders a module's MIR the same way PrintHir does.
func PrintMir(m *Mir) string {
	var b strings.Builder
	printMirBody(&b, m.Body, 0)
	return b.String()
}

func printMirBody(b *strings.Builder, body MirBody, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, bind := range body.Bindings {
		fmt.Fprintf(b, "%s%s = %s\n", indent, ascii.Color(ascii.DefaultTheme.Accent, "%s", bind.ID), mirExprString(bind.Expr))
		if lam, ok := bind.Expr.(MirLambda); ok {
			printMirBody(b, lam.Body, depth+1)
		}
		if mul, ok := bind.Expr.(MirMultiple); ok {
			printMirBody(b, mul.Body, depth+1)
		}
	}
}

func mirExprString(e MirExpression) string {
	switch v := e.(type) {
	case MirInt:
		return ascii.Color(ascii.DefaultTheme.Literal, "%s", v.Value.String())
	case MirText:
		return ascii.Color(ascii.DefaultTheme.Literal, "%q", v.Value)
	case MirSymbol:
		return ascii.Color(ascii.DefaultTheme.Literal, "%s", v.Name)
	case MirReference:
		return fmt.Sprintf("ref(%s)", v.Target)
	case MirStruct:
		return fmt.Sprintf("{%d fields}", len(v.Fields))
	case MirLambda:
		return fmt.Sprintf("{ %v -> ... }", v.Parameters)
	case MirBuiltin:
		return ascii.Color(ascii.DefaultTheme.Operator, "builtin.%s", v.Function)
	case MirCall:
		tail := ""
		if v.IsTailCall {
			tail = ascii.Color(ascii.DefaultTheme.Warning, "%s", " tail")
		}
		return fmt.Sprintf("%s(%v)%s", v.Function, v.Arguments, tail)
	case MirUseModule:
		return fmt.Sprintf("useModule(%s)", v.RelativePath)
	case MirPanic:
		return ascii.Color(ascii.DefaultTheme.Error, "panic(%s)", v.Reason)
	case MirMultiple:
		return "{...}"
	case MirDup:
		return fmt.Sprintf("dup(%s)", v.Target)
	case MirDrop:
		return fmt.Sprintf("drop(%s)", v.Target)
	case MirTraceCallStarts, MirTraceCallEnds:
		return ascii.Color(ascii.DefaultTheme.Comment, "%s", "trace")
	case MirTraceExpressionEvaluated:
		return ascii.Color(ascii.DefaultTheme.Comment, "traceEvaluated(%s)", v.Target)
	case MirTraceFoundFuzzableClosure:
		return ascii.Color(ascii.DefaultTheme.Comment, "traceFuzzable(%s)", v.Closure)
	case MirModuleStarts:
		return fmt.Sprintf("moduleStarts(%s)", v.Module)
	case MirModuleEnds:
		return "moduleEnds"
	default:
		return fmt.Sprintf("%#v", e)
	}
}

// PrintLir renders a flat LIR instruction listing with one instruction
// per line, nested closures indented, the same convention the teacher's
// `ascii_renderer.go` uses for its railroad diagrams — here linear
// indentation rather than a 2D diagram, since bytecode is already
// sequential.
func PrintLir(l *Lir) string {
	var b strings.Builder
	fmt.Fprintf(&b, "module %s\n", l.Module)
	printLirInstrs(&b, l.Body, 1)
	return b.String()
}

func printLirInstrs(b *strings.Builder, instrs []Instruction, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, instr := range instrs {
		fmt.Fprintf(b, "%s%s\n", indent, lirInstrString(instr))
		if pc, ok := instr.(PushClosure); ok {
			printLirInstrs(b, pc.Body, depth+1)
		}
	}
}

func lirInstrString(instr Instruction) string {
	switch in := instr.(type) {
	case PushInt:
		return ascii.Color(ascii.DefaultTheme.Operator, "pushInt") + " " + in.Value.String()
	case PushText:
		return ascii.Color(ascii.DefaultTheme.Operator, "pushText") + fmt.Sprintf(" %q", in.Value)
	case PushSymbol:
		return ascii.Color(ascii.DefaultTheme.Operator, "pushSymbol") + " " + in.Name
	case PushHirId:
		return ascii.Color(ascii.DefaultTheme.Operator, "pushHirId") + " " + in.ID.String()
	case PushFromStack:
		return fmt.Sprintf("%s %d", ascii.Color(ascii.DefaultTheme.Operator, "pushFromStack"), in.StackOffset)
	case PushBuiltin:
		return ascii.Color(ascii.DefaultTheme.Operator, "pushBuiltin") + " " + in.Function.String()
	case PushStruct:
		return fmt.Sprintf("%s %d", ascii.Color(ascii.DefaultTheme.Operator, "pushStruct"), in.NumFields)
	case PushClosure:
		return fmt.Sprintf("%s params=%d captures=%v fuzzable=%v", ascii.Color(ascii.DefaultTheme.Operator, "pushClosure"), in.NumParameters, in.CaptureStackOffsets, in.IsFuzzable)
	case PopMultipleBelowTop:
		return fmt.Sprintf("%s %d", ascii.Color(ascii.DefaultTheme.Operator, "popMultipleBelowTop"), in.Count)
	case Call:
		return fmt.Sprintf("%s %d", ascii.Color(ascii.DefaultTheme.Operator, "call"), in.NumArguments)
	case TailCall:
		return fmt.Sprintf("%s %d", ascii.Color(ascii.DefaultTheme.Warning, "tailCall"), in.NumArguments)
	case Return:
		return ascii.Color(ascii.DefaultTheme.Operator, "return")
	case Panic:
		return ascii.Color(ascii.DefaultTheme.Error, "panic")
	case Dup:
		return fmt.Sprintf("dup %d", in.StackOffset)
	case Drop:
		return fmt.Sprintf("drop %d", in.StackOffset)
	case ModuleStarts:
		return ascii.Color(ascii.DefaultTheme.Comment, "moduleStarts %s", in.Module)
	case ModuleEnds:
		return ascii.Color(ascii.DefaultTheme.Comment, "moduleEnds")
	default:
		return instr.Name()
	}
}

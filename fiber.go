package candy

// FiberID identifies one fiber within a Scheduler.
type FiberID int

// FiberStatus is where a fiber currently stands (spec §4.F "fiber
// states"). Only Running fibers get instructions executed against
// them; every other status means the Scheduler owns what happens next.
type FiberStatus int

const (
	FiberRunning FiberStatus = iota
	FiberCreatingChannel
	FiberSending
	FiberReceiving
	FiberInParallelScope
	FiberInTry
	FiberDone
	FiberPanicked
	FiberCancelled
)

func (s FiberStatus) String() string {
	return [...]string{
		"running", "creatingChannel", "sending", "receiving",
		"inParallelScope", "inTry", "done", "panicked", "cancelled",
	}[s]
}

// callFrame is one entry of a fiber's call stack: an instruction tape,
// the program counter into it, and the data-stack index its locals
// start at (so returning/tail-calling can discard exactly this frame's
// locals without touching the caller's).
type callFrame struct {
	instrs    []Instruction
	pc        int
	stackBase int
}

// Fiber is one green thread of Candy execution: its own data/call
// stack and heap, interpreting a module's or closure's LIR (spec §4.G
// "the bytecode interpreter"). Generalized from the teacher's recursive
// descent `compiler`/matcher loop (grammar_compiler.go, vm.go) to an
// explicit stack machine, since LIR is already flat bytecode rather
// than a tree to walk.
type Fiber struct {
	ID     FiberID
	Status FiberStatus
	Heap   *Heap
	Env    Environment
	Tracer Tracer
	Module Module

	stack  []Value
	frames []callFrame

	Result Value

	PanicReason      Value
	PanicResponsible HirID

	// Populated while Status is CreatingChannel/Sending/Receiving; the
	// Scheduler reads these to know what the fiber is waiting for and
	// calls Resume once it has an answer.
	PendingCapacity int
	PendingChannel  ChannelID
	PendingPacket   Packet
	PendingChild    *ClosureValue

	// Blocked marks a fiber that has already queued itself onto a
	// channel's wait list (Sending/Receiving with no immediate match):
	// the Scheduler must not queue it a second time just because its
	// Status hasn't changed yet.
	Blocked bool

	instructionsRun int
}

// NewFiber starts a fiber executing body from the top, with an empty
// stack and call frame.
func NewFiber(id FiberID, module Module, body []Instruction, env Environment, tracer Tracer) *Fiber {
	if tracer == nil {
		tracer = NullTracer{}
	}
	return &Fiber{
		ID:     id,
		Status: FiberRunning,
		Heap:   NewHeap(),
		Env:    env,
		Tracer: tracer,
		Module: module,
		frames: []callFrame{{instrs: body}},
	}
}

func (f *Fiber) push(v Value) { f.stack = append(f.stack, v) }

func (f *Fiber) pop() Value {
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func (f *Fiber) peek(offsetFromTop int) Value {
	return f.stack[len(f.stack)-1-offsetFromTop]
}

func (f *Fiber) dropRange(from, to int) {
	for i := from; i < to; i++ {
		f.Heap.Drop(f.stack[i])
	}
}

func (f *Fiber) triggerPanic(reason string, responsible HirID) {
	f.Status = FiberPanicked
	f.PanicReason = TextValue{Value: reason}
	f.PanicResponsible = responsible
}

// InstructionsRun is the number of instructions this fiber has executed
// since creation, used by the Scheduler to enforce run_n budgets and by
// the fuzzer to enforce its per-input instruction budget (spec §4.J).
func (f *Fiber) InstructionsRun() int { return f.instructionsRun }

// Resume is how the Scheduler hands a paused fiber (CreatingChannel/
// Sending/Receiving) its answer and puts it back to Running: the value
// becomes the result of the Call that originally suspended it.
func (f *Fiber) Resume(result Value) {
	f.push(result)
	f.Status = FiberRunning
	f.Blocked = false
}

// Step executes a single instruction if the fiber is Running. Returns
// false once there's nothing left to do (Done, Panicked, Cancelled, or
// waiting on the Scheduler).
func (f *Fiber) Step() bool {
	if f.Status != FiberRunning {
		return false
	}
	if len(f.frames) == 0 {
		f.Status = FiberDone
		return false
	}
	frame := &f.frames[len(f.frames)-1]
	if frame.pc >= len(frame.instrs) {
		f.Status = FiberDone
		return false
	}
	instr := frame.instrs[frame.pc]
	frame.pc++
	f.instructionsRun++
	f.execute(instr)
	return f.Status == FiberRunning
}

// Run executes up to budget instructions, stopping early if the fiber
// leaves the Running state.
func (f *Fiber) Run(budget int) {
	for i := 0; i < budget; i++ {
		if !f.Step() {
			return
		}
	}
}

func (f *Fiber) execute(instr Instruction) {
	switch in := instr.(type) {
	case PushInt:
		f.push(IntValue{Value: in.Value})

	case PushText:
		f.push(TextValue{Value: in.Value})

	case PushSymbol:
		f.push(SymbolValue{Name: in.Name})

	case PushHirId:
		f.push(HirIdValue{ID: in.ID})

	case PushFromStack:
		v := f.peek(in.StackOffset)
		f.Heap.Dup(v)
		f.push(v)

	case PushBuiltin:
		f.push(BuiltinValue{Function: in.Function})

	case PushStruct:
		keys := make([]Value, in.NumFields)
		values := make([]Value, in.NumFields)
		for i := in.NumFields - 1; i >= 0; i-- {
			values[i] = f.pop()
			keys[i] = f.pop()
		}
		f.push(f.Heap.Track(&StructValue{Keys: keys, Values: values}))

	case PushClosure:
		captures := make([]Value, len(in.CaptureStackOffsets))
		for i, off := range in.CaptureStackOffsets {
			v := f.peek(off)
			f.Heap.Dup(v)
			captures[i] = v
		}
		closure := &ClosureValue{
			Body: in.Body, Captures: captures, NumParameters: in.NumParameters,
			Origin: in.Origin(), Fuzzable: in.IsFuzzable,
		}
		f.Heap.Track(closure)
		f.push(closure)
		if in.IsFuzzable {
			f.Tracer.FoundFuzzableClosure(in.Origin(), closure)
		}

	case PopMultipleBelowTop:
		top := f.pop()
		f.dropRange(len(f.stack)-in.Count, len(f.stack))
		f.stack = f.stack[:len(f.stack)-in.Count]
		f.push(top)

	case Call:
		f.executeCall(in.NumArguments, false)

	case TailCall:
		f.executeCall(in.NumArguments, true)

	case Return:
		frame := &f.frames[len(f.frames)-1]
		result := f.pop()
		f.dropRange(frame.stackBase, len(f.stack))
		f.stack = f.stack[:frame.stackBase]
		f.frames = f.frames[:len(f.frames)-1]
		if len(f.frames) == 0 {
			f.Result = result
			f.Status = FiberDone
		} else {
			f.push(result)
		}

	case Panic:
		reason := f.peek(in.ReasonStackOffset)
		responsibleVal := f.peek(in.ResponsibleStackOffset)
		var responsible HirID
		if hv, ok := responsibleVal.(HirIdValue); ok {
			responsible = hv.ID
		}
		f.Status = FiberPanicked
		f.PanicReason = reason
		f.PanicResponsible = responsible

	case Dup:
		f.Heap.Dup(f.peek(in.StackOffset))

	case Drop:
		f.Heap.Drop(f.peek(in.StackOffset))

	case TraceCallStarts:
		f.Tracer.CallStarts(f.Module, nil, nil)

	case TraceCallEnds:
		f.Tracer.CallEnds(nil)

	case TraceExpressionEvaluated:
		f.Tracer.ExpressionEvaluated(in.Origin(), f.peek(in.StackOffset))

	case TraceFoundFuzzableClosure:
		if c, ok := f.peek(in.StackOffset).(*ClosureValue); ok {
			f.Tracer.FoundFuzzableClosure(in.Origin(), c)
		}

	case ModuleStarts:
		f.Tracer.ModuleStarts(in.Module)

	case ModuleEnds:
		f.Tracer.ModuleEnds(f.Module)

	default:
		panic("candy: fiber: unknown instruction " + instr.Name())
	}
}

func (f *Fiber) executeCall(numArguments int, isTail bool) {
	responsibleVal := f.pop()
	var responsible HirID
	if hv, ok := responsibleVal.(HirIdValue); ok {
		responsible = hv.ID
	}
	args := make([]Value, numArguments)
	for i := numArguments - 1; i >= 0; i-- {
		args[i] = f.pop()
	}
	callee := f.pop()
	f.dispatch(callee, args, responsible, isTail)
}

// dispatch enters a closure (as a new frame, or in place of the current
// one for a tail call) or evaluates a builtin. BuiltinIfElse and the
// channel builtins get special handling here because they either need
// to invoke another callable value (ifElse) or hand control to the
// Scheduler (channel create/send/receive); everything else is a pure,
// synchronous computation builtins.go can answer immediately.
func (f *Fiber) dispatch(callee Value, args []Value, responsible HirID, isTail bool) {
	switch c := callee.(type) {
	case *ClosureValue:
		if len(args) != c.NumParameters {
			f.triggerPanic("expected a closure with a different number of parameters", responsible)
			return
		}
		f.enterClosure(c, args, responsible, isTail)

	case BuiltinValue:
		f.dispatchBuiltin(c.Function, args, responsible, isTail)

	default:
		f.triggerPanic("a value of type "+callee.Type()+" is not callable", responsible)
	}
}

func (f *Fiber) enterClosure(c *ClosureValue, args []Value, responsible HirID, isTail bool) {
	if isTail && len(f.frames) > 0 {
		frame := &f.frames[len(f.frames)-1]
		f.dropRange(frame.stackBase, len(f.stack))
		f.stack = f.stack[:frame.stackBase]
		base := frame.stackBase
		for _, cp := range c.Captures {
			f.Heap.Dup(cp)
			f.push(cp)
		}
		for _, a := range args {
			f.push(a)
		}
		f.push(HirIdValue{ID: responsible})
		f.frames[len(f.frames)-1] = callFrame{instrs: c.Body, stackBase: base}
		return
	}
	base := len(f.stack)
	for _, cp := range c.Captures {
		f.Heap.Dup(cp)
		f.push(cp)
	}
	for _, a := range args {
		f.push(a)
	}
	f.push(HirIdValue{ID: responsible})
	f.frames = append(f.frames, callFrame{instrs: c.Body, stackBase: base})
}

func (f *Fiber) dispatchBuiltin(b Builtin, args []Value, responsible HirID, isTail bool) {
	switch b {
	case BuiltinIfElse:
		if len(args) != 3 {
			f.triggerPanic("ifElse expects 3 arguments", responsible)
			return
		}
		cond, ok := args[0].(SymbolValue)
		if !ok || (cond.Name != "True" && cond.Name != "False") {
			f.triggerPanic("ifElse expects a Bool condition", responsible)
			return
		}
		chosen := args[1]
		if cond.Name == "False" {
			chosen = args[2]
		}
		f.dispatch(chosen, nil, responsible, isTail)

	case BuiltinChannelCreate:
		if len(args) != 1 {
			f.triggerPanic("channelCreate expects 1 argument", responsible)
			return
		}
		capacity, ok := args[0].(IntValue)
		if !ok || !capacity.Value.IsInt64() {
			f.triggerPanic("channelCreate expects an Int capacity", responsible)
			return
		}
		f.PendingCapacity = int(capacity.Value.Int64())
		f.Status = FiberCreatingChannel

	case BuiltinChannelSend:
		if len(args) != 2 {
			f.triggerPanic("channelSend expects 2 arguments", responsible)
			return
		}
		port, ok := args[0].(SendPortValue)
		if !ok {
			f.triggerPanic("channelSend expects a SendPort", responsible)
			return
		}
		packetHeap := NewHeap()
		f.PendingChannel = port.Channel
		f.PendingPacket = Packet{Value: packetHeap.CloneValue(args[1]), Heap: packetHeap}
		f.Heap.Drop(args[1])
		f.Status = FiberSending

	case BuiltinChannelReceive:
		if len(args) != 1 {
			f.triggerPanic("channelReceive expects 1 argument", responsible)
			return
		}
		port, ok := args[0].(ReceivePortValue)
		if !ok {
			f.triggerPanic("channelReceive expects a ReceivePort", responsible)
			return
		}
		f.PendingChannel = port.Channel
		f.Status = FiberReceiving

	case BuiltinParallel:
		if len(args) != 1 {
			f.triggerPanic("parallel expects 1 argument", responsible)
			return
		}
		body, ok := args[0].(*ClosureValue)
		if !ok || body.NumParameters != 0 {
			f.triggerPanic("parallel expects a zero-parameter closure", responsible)
			return
		}
		f.PendingChild = body
		f.Status = FiberInParallelScope

	case BuiltinTry:
		if len(args) != 1 {
			f.triggerPanic("try expects 1 argument", responsible)
			return
		}
		body, ok := args[0].(*ClosureValue)
		if !ok || body.NumParameters != 0 {
			f.triggerPanic("try expects a zero-parameter closure", responsible)
			return
		}
		f.PendingChild = body
		f.Status = FiberInTry

	default:
		result, err := callPureBuiltin(b, args, f.Env)
		if err != nil {
			f.triggerPanic(err.Error(), responsible)
			return
		}
		if isTail {
			frame := &f.frames[len(f.frames)-1]
			f.dropRange(frame.stackBase, len(f.stack))
			f.stack = f.stack[:frame.stackBase]
			if len(f.frames) == 1 {
				f.Result = result
				f.Status = FiberDone
				f.frames = f.frames[:0]
				return
			}
			f.frames = f.frames[:len(f.frames)-1]
			f.push(result)
		} else {
			f.push(result)
		}
	}
}

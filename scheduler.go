package candy

import "fmt"

// awaitEntry records which child fiber a `parallel`/`try` call is
// waiting on, and which of the two it is (they differ only in how a
// child's panic is reported back to the parent).
type awaitEntry struct {
	child FiberID
	kind  string // "parallel" or "try"
}

// Scheduler runs a pool of fibers to completion (spec §4.H "structured
// concurrency"): it owns the channel table fibers address only by
// ChannelID, and it drives the handshakes a Sending/Receiving/
// InParallelScope/InTry fiber can't complete on its own. Grounded on
// the teacher's own top-level driver loop (grammar_compiler.go's single
// matcher drives one parse to completion); here the loop instead
// round-robins many independent fibers each cooperative budget slice.
type Scheduler struct {
	Config *Config
	Env    Environment
	Tracer Tracer

	fibers        map[FiberID]*Fiber
	nextFiberID   FiberID
	channels      map[ChannelID]*Channel
	nextChannelID ChannelID
	awaiting      map[FiberID]awaitEntry
}

func NewScheduler(cfg *Config, env Environment, tracer Tracer) *Scheduler {
	if tracer == nil {
		tracer = NullTracer{}
	}
	return &Scheduler{
		Config:   cfg,
		Env:      env,
		Tracer:   tracer,
		fibers:   map[FiberID]*Fiber{},
		channels: map[ChannelID]*Channel{},
		awaiting: map[FiberID]awaitEntry{},
	}
}

// SpawnModule starts a fresh fiber executing a module's top-level LIR
// body and returns its ID.
func (s *Scheduler) SpawnModule(module Module, body []Instruction) FiberID {
	id := s.nextFiberID
	s.nextFiberID++
	s.fibers[id] = NewFiber(id, module, body, s.Env, s.Tracer)
	return id
}

// spawnClosure starts a fiber running closure(args) as its whole
// program, used for `parallel`/`try` bodies and by the fuzzer to run a
// discovered fuzzable closure directly (spec §4.J).
func (s *Scheduler) spawnClosure(module Module, closure *ClosureValue, args []Value) FiberID {
	id := s.nextFiberID
	s.nextFiberID++
	fib := &Fiber{ID: id, Status: FiberRunning, Heap: NewHeap(), Env: s.Env, Tracer: s.Tracer, Module: module}
	fib.enterClosure(closure, args, closure.Origin, false)
	s.fibers[id] = fib
	return id
}

// SpawnClosure is the exported form of spawnClosure, for the fuzzer and
// any future stdlib glue that needs to run a closure in isolation.
func (s *Scheduler) SpawnClosure(module Module, closure *ClosureValue, args []Value) FiberID {
	return s.spawnClosure(module, closure, args)
}

func (s *Scheduler) Fiber(id FiberID) *Fiber { return s.fibers[id] }

func (s *Scheduler) CreateChannel(capacity int) ChannelID {
	id := s.nextChannelID
	s.nextChannelID++
	s.channels[id] = NewChannel(id, capacity)
	return id
}

func (s *Scheduler) makeChannelPortsTuple(fib *Fiber, ch ChannelID) Value {
	tuple := &StructValue{
		Keys:   []Value{TextValue{Value: "0"}, TextValue{Value: "1"}},
		Values: []Value{SendPortValue{Channel: ch}, ReceivePortValue{Channel: ch}},
	}
	fib.Heap.NotifyPortCreated(ch)
	fib.Heap.NotifyPortCreated(ch)
	return fib.Heap.Track(tuple)
}

// RunN cooperatively steps every runnable fiber until either budget
// instructions have been executed in total or no fiber can make
// progress anymore (every remaining fiber is Done, Panicked,
// Cancelled, or durably blocked on a channel/await nobody will ever
// resolve).
func (s *Scheduler) RunN(budget int) {
	const slice = 64
	for budget > 0 {
		progressed := false
		for id, fib := range s.fibers {
			if fib.Status == FiberRunning {
				before := fib.InstructionsRun()
				run := slice
				if run > budget {
					run = budget
				}
				fib.Run(run)
				used := fib.InstructionsRun() - before
				budget -= used
				if used > 0 {
					progressed = true
				}
			}
			if s.serviceFiber(id, fib) {
				progressed = true
			}
			if budget <= 0 {
				break
			}
		}
		if !progressed {
			return
		}
	}
}

// serviceFiber advances a fiber that's waiting on the Scheduler rather
// than executing instructions. Returns true if it made progress.
func (s *Scheduler) serviceFiber(id FiberID, fib *Fiber) bool {
	switch fib.Status {
	case FiberCreatingChannel:
		if max := s.Config.GetInt("vm.channel.max_capacity"); fib.PendingCapacity < 0 || fib.PendingCapacity > max {
			fib.triggerPanic(fmt.Sprintf("channel capacity %d exceeds vm.channel.max_capacity (%d)", fib.PendingCapacity, max), HirID{})
			return true
		}
		ch := s.CreateChannel(fib.PendingCapacity)
		fib.Resume(s.makeChannelPortsTuple(fib, ch))
		return true

	case FiberSending:
		if fib.Blocked {
			return false
		}
		if max := s.Config.GetInt("vm.packet.max_size"); CountObjects(fib.PendingPacket.Value) > max {
			fib.triggerPanic(fmt.Sprintf("packet exceeds vm.packet.max_size (%d)", max), HirID{})
			return true
		}
		return s.serviceSend(id, fib)

	case FiberReceiving:
		if fib.Blocked {
			return false
		}
		return s.serviceReceive(id, fib)

	case FiberInParallelScope, FiberInTry:
		return s.serviceAwait(id, fib)

	default:
		return false
	}
}

func (s *Scheduler) serviceSend(id FiberID, fib *Fiber) bool {
	ch := s.channels[fib.PendingChannel]
	if ch == nil {
		fib.triggerPanic("the channel this port refers to no longer exists", HirID{})
		return true
	}
	if receiver, ok := ch.PopPendingReceive(); ok {
		recvFib := s.fibers[receiver]
		recvFib.Heap.Adopt(fib.PendingPacket.Heap)
		recvFib.Resume(fib.PendingPacket.Value)
		fib.Resume(NothingValue())
		return true
	}
	if !ch.IsFull() {
		ch.Enqueue(fib.PendingPacket)
		fib.Resume(NothingValue())
		return true
	}
	ch.QueueSend(id, fib.PendingPacket)
	fib.Blocked = true
	return false
}

func (s *Scheduler) serviceReceive(id FiberID, fib *Fiber) bool {
	ch := s.channels[fib.PendingChannel]
	if ch == nil {
		fib.triggerPanic("the channel this port refers to no longer exists", HirID{})
		return true
	}
	if pkt, ok := ch.Dequeue(); ok {
		fib.Heap.Adopt(pkt.Heap)
		fib.Resume(pkt.Value)
		if ps, ok2 := ch.PopPendingSend(); ok2 {
			ch.Enqueue(ps.Packet)
			if sender := s.fibers[ps.Fiber]; sender != nil {
				sender.Resume(NothingValue())
			}
		}
		return true
	}
	if ps, ok := ch.PopPendingSend(); ok {
		fib.Heap.Adopt(ps.Packet.Heap)
		fib.Resume(ps.Packet.Value)
		if sender := s.fibers[ps.Fiber]; sender != nil {
			sender.Resume(NothingValue())
		}
		return true
	}
	ch.QueueReceive(id)
	fib.Blocked = true
	return false
}

func (s *Scheduler) serviceAwait(id FiberID, fib *Fiber) bool {
	entry, ok := s.awaiting[id]
	if !ok {
		kind := "parallel"
		if fib.Status == FiberInTry {
			kind = "try"
		}
		child := s.spawnClosure(fib.Module, fib.PendingChild, nil)
		s.awaiting[id] = awaitEntry{child: child, kind: kind}
		return true
	}

	child := s.fibers[entry.child]
	switch child.Status {
	case FiberDone:
		fib.Heap.Adopt(child.Heap)
		delete(s.awaiting, id)
		delete(s.fibers, entry.child)
		if entry.kind == "try" {
			fib.Resume(TagValue{Name: "Ok", Value: child.Result})
		} else {
			fib.Resume(child.Result)
		}
		return true

	case FiberPanicked:
		delete(s.awaiting, id)
		delete(s.fibers, entry.child)
		if entry.kind == "try" {
			fib.Resume(TagValue{Name: "Error", Value: child.PanicReason})
		} else {
			fib.Status = FiberPanicked
			fib.PanicReason = child.PanicReason
			fib.PanicResponsible = child.PanicResponsible
		}
		return true

	case FiberCancelled:
		delete(s.awaiting, id)
		delete(s.fibers, entry.child)
		fib.Status = FiberCancelled
		return true

	default:
		return false
	}
}

// Cancel marks a fiber (and, if it's awaiting a parallel/try child,
// that child too) Cancelled, implementing structured concurrency's
// guarantee that cancelling a scope cancels everything nested in it
// (spec §4.H "cancellation").
func (s *Scheduler) Cancel(id FiberID) {
	fib := s.fibers[id]
	if fib == nil {
		return
	}
	fib.Status = FiberCancelled
	if entry, ok := s.awaiting[id]; ok {
		s.Cancel(entry.child)
		delete(s.awaiting, id)
	}
}

// AllSettled reports whether every fiber the Scheduler knows about has
// finished (Done, Panicked, or Cancelled).
func (s *Scheduler) AllSettled() bool {
	for _, fib := range s.fibers {
		switch fib.Status {
		case FiberDone, FiberPanicked, FiberCancelled:
		default:
			return false
		}
	}
	return true
}

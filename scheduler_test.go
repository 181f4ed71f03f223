package candy

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerChannelSendThenReceive(t *testing.T) {
	cfg := NewConfig()
	sched := NewScheduler(cfg, &EmptyEnvironment{}, nil)
	ch := sched.CreateChannel(0)

	packetHeap := NewHeap()
	sender := &Fiber{ID: 1, Status: FiberSending, Heap: NewHeap(), Env: sched.Env, Tracer: NullTracer{}}
	sender.PendingChannel = ch
	sender.PendingPacket = Packet{Value: packetHeap.CloneValue(IntValue{Value: big.NewInt(42)}), Heap: packetHeap}
	sched.fibers[1] = sender

	receiver := &Fiber{ID: 2, Status: FiberReceiving, Heap: NewHeap(), Env: sched.Env, Tracer: NullTracer{}}
	receiver.PendingChannel = ch
	sched.fibers[2] = receiver
	sched.nextFiberID = 3

	sched.RunN(1000)

	require.Equal(t, FiberDone, receiver.Status)
	require.Len(t, receiver.stack, 1)
	got, ok := receiver.stack[0].(IntValue)
	require.True(t, ok)
	assert.Equal(t, int64(42), got.Value.Int64())

	require.Equal(t, FiberDone, sender.Status)
	require.Len(t, sender.stack, 1)
	assert.Equal(t, NothingValue(), sender.stack[0])
}

func TestSchedulerChannelBuffersWithinCapacity(t *testing.T) {
	cfg := NewConfig()
	sched := NewScheduler(cfg, &EmptyEnvironment{}, nil)
	ch := sched.CreateChannel(1)

	packetHeap := NewHeap()
	sender := &Fiber{ID: 1, Status: FiberSending, Heap: NewHeap(), Env: sched.Env, Tracer: NullTracer{}}
	sender.PendingChannel = ch
	sender.PendingPacket = Packet{Value: packetHeap.CloneValue(TextValue{Value: "hi"}), Heap: packetHeap}
	sched.fibers[1] = sender
	sched.nextFiberID = 2

	sched.RunN(1000)

	require.Equal(t, FiberDone, sender.Status, "a sender should not block while the channel has spare capacity")
	c := sched.channels[ch]
	require.Len(t, c.Buffer, 1)
	assert.Equal(t, "hi", c.Buffer[0].Value.(TextValue).Value)
}

func TestSchedulerChannelCapacityOverLimitPanics(t *testing.T) {
	cfg := NewConfig()
	sched := NewScheduler(cfg, &EmptyEnvironment{}, nil)

	fib := &Fiber{ID: 1, Status: FiberCreatingChannel, Heap: NewHeap(), Env: sched.Env, Tracer: NullTracer{}}
	fib.PendingCapacity = cfg.GetInt("vm.channel.max_capacity") + 1
	sched.fibers[1] = fib
	sched.nextFiberID = 2

	sched.RunN(100)

	assert.Equal(t, FiberPanicked, fib.Status)
}

func TestSchedulerPacketOverMaxSizePanics(t *testing.T) {
	cfg := NewConfig()
	cfg.SetInt("vm.packet.max_size", 1)
	sched := NewScheduler(cfg, &EmptyEnvironment{}, nil)
	ch := sched.CreateChannel(1)

	packetHeap := NewHeap()
	oversized := &StructValue{Values: []Value{IntValue{Value: big.NewInt(1)}, IntValue{Value: big.NewInt(2)}}}
	fib := &Fiber{ID: 1, Status: FiberSending, Heap: NewHeap(), Env: sched.Env, Tracer: NullTracer{}}
	fib.PendingChannel = ch
	fib.PendingPacket = Packet{Value: packetHeap.CloneValue(oversized), Heap: packetHeap}
	sched.fibers[1] = fib
	sched.nextFiberID = 2

	sched.RunN(100)

	assert.Equal(t, FiberPanicked, fib.Status)
}

func TestSchedulerParallelResumesWithChildResult(t *testing.T) {
	cfg := NewConfig()
	sched := NewScheduler(cfg, &EmptyEnvironment{}, nil)

	childBody := []Instruction{PushInt{Value: big.NewInt(5)}, Return{}}
	closure := &ClosureValue{Body: childBody, NumParameters: 0}

	parent := &Fiber{ID: 1, Status: FiberInParallelScope, Heap: NewHeap(), Env: sched.Env, Tracer: NullTracer{}}
	parent.PendingChild = closure
	sched.fibers[1] = parent
	sched.nextFiberID = 2

	sched.RunN(1000)

	require.Equal(t, FiberDone, parent.Status)
	require.Len(t, parent.stack, 1)
	result, ok := parent.stack[0].(IntValue)
	require.True(t, ok)
	assert.Equal(t, int64(5), result.Value.Int64())
}

func TestSchedulerTryWrapsSuccessInOk(t *testing.T) {
	cfg := NewConfig()
	sched := NewScheduler(cfg, &EmptyEnvironment{}, nil)

	childBody := []Instruction{PushInt{Value: big.NewInt(1)}, Return{}}
	closure := &ClosureValue{Body: childBody, NumParameters: 0}

	parent := &Fiber{ID: 1, Status: FiberInTry, Heap: NewHeap(), Env: sched.Env, Tracer: NullTracer{}}
	parent.PendingChild = closure
	sched.fibers[1] = parent
	sched.nextFiberID = 2

	sched.RunN(1000)

	require.Equal(t, FiberDone, parent.Status)
	tag, ok := parent.stack[0].(TagValue)
	require.True(t, ok)
	assert.Equal(t, "Ok", tag.Name)
	assert.Equal(t, int64(1), tag.Value.(IntValue).Value.Int64())
}

func TestSchedulerTryCatchesChildPanic(t *testing.T) {
	cfg := NewConfig()
	sched := NewScheduler(cfg, &EmptyEnvironment{}, nil)

	childBody := []Instruction{
		PushText{Value: "boom"},
		PushHirId{ID: zeroHirID()},
		Panic{ReasonStackOffset: 1, ResponsibleStackOffset: 0},
	}
	closure := &ClosureValue{Body: childBody, NumParameters: 0}

	parent := &Fiber{ID: 1, Status: FiberInTry, Heap: NewHeap(), Env: sched.Env, Tracer: NullTracer{}}
	parent.PendingChild = closure
	sched.fibers[1] = parent
	sched.nextFiberID = 2

	sched.RunN(1000)

	require.Equal(t, FiberDone, parent.Status)
	tag, ok := parent.stack[0].(TagValue)
	require.True(t, ok)
	assert.Equal(t, "Error", tag.Name)
	assert.Equal(t, "boom", tag.Value.(TextValue).Value)
}

func TestSchedulerParallelPropagatesChildPanic(t *testing.T) {
	cfg := NewConfig()
	sched := NewScheduler(cfg, &EmptyEnvironment{}, nil)

	childBody := []Instruction{
		PushText{Value: "boom"},
		PushHirId{ID: zeroHirID()},
		Panic{ReasonStackOffset: 1, ResponsibleStackOffset: 0},
	}
	closure := &ClosureValue{Body: childBody, NumParameters: 0}

	parent := &Fiber{ID: 1, Status: FiberInParallelScope, Heap: NewHeap(), Env: sched.Env, Tracer: NullTracer{}}
	parent.PendingChild = closure
	sched.fibers[1] = parent
	sched.nextFiberID = 2

	sched.RunN(1000)

	assert.Equal(t, FiberPanicked, parent.Status)
	assert.Equal(t, "boom", parent.PanicReason.(TextValue).Value)
}

func TestSchedulerCancelPropagatesToAwaitedChild(t *testing.T) {
	cfg := NewConfig()
	sched := NewScheduler(cfg, &EmptyEnvironment{}, nil)

	parent := &Fiber{ID: 1, Status: FiberInParallelScope, Heap: NewHeap(), Env: sched.Env, Tracer: NullTracer{}}
	child := &Fiber{ID: 2, Status: FiberRunning, Heap: NewHeap(), Env: sched.Env, Tracer: NullTracer{}}
	sched.fibers[1] = parent
	sched.fibers[2] = child
	sched.awaiting[1] = awaitEntry{child: 2, kind: "parallel"}
	sched.nextFiberID = 3

	sched.Cancel(1)

	assert.Equal(t, FiberCancelled, parent.Status)
	assert.Equal(t, FiberCancelled, child.Status)
	_, stillAwaiting := sched.awaiting[1]
	assert.False(t, stillAwaiting)
}

func TestSchedulerAllSettled(t *testing.T) {
	cfg := NewConfig()
	sched := NewScheduler(cfg, &EmptyEnvironment{}, nil)
	sched.fibers[1] = &Fiber{ID: 1, Status: FiberDone}
	assert.True(t, sched.AllSettled())

	sched.fibers[2] = &Fiber{ID: 2, Status: FiberRunning}
	assert.False(t, sched.AllSettled())
}

func TestRunNStopsOnDeadlockWithoutSpinning(t *testing.T) {
	cfg := NewConfig()
	sched := NewScheduler(cfg, &EmptyEnvironment{}, nil)
	ch := sched.CreateChannel(0)

	receiver := &Fiber{ID: 1, Status: FiberReceiving, Heap: NewHeap(), Env: sched.Env, Tracer: NullTracer{}}
	receiver.PendingChannel = ch
	sched.fibers[1] = receiver
	sched.nextFiberID = 2

	sched.RunN(1_000_000)

	assert.Equal(t, FiberReceiving, receiver.Status)
	assert.True(t, receiver.Blocked)
}

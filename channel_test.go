package candy

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelEnqueueDequeueIsFIFO(t *testing.T) {
	ch := NewChannel(1, 2)
	assert.False(t, ch.IsFull())

	ch.Enqueue(Packet{Value: IntValue{Value: big.NewInt(1)}})
	ch.Enqueue(Packet{Value: IntValue{Value: big.NewInt(2)}})
	assert.True(t, ch.IsFull())

	first, ok := ch.Dequeue()
	require.True(t, ok)
	assert.Equal(t, big.NewInt(1), first.Value.(IntValue).Value)
	assert.False(t, ch.IsFull())

	second, ok := ch.Dequeue()
	require.True(t, ok)
	assert.Equal(t, big.NewInt(2), second.Value.(IntValue).Value)

	_, ok = ch.Dequeue()
	assert.False(t, ok)
}

func TestChannelPendingSendAndReceiveQueuesAreFIFO(t *testing.T) {
	ch := NewChannel(1, 0)

	ch.QueueSend(FiberID(1), Packet{Value: TextValue{Value: "a"}})
	ch.QueueSend(FiberID(2), Packet{Value: TextValue{Value: "b"}})

	ps, ok := ch.PopPendingSend()
	require.True(t, ok)
	assert.Equal(t, FiberID(1), ps.Fiber)

	ps, ok = ch.PopPendingSend()
	require.True(t, ok)
	assert.Equal(t, FiberID(2), ps.Fiber)

	_, ok = ch.PopPendingSend()
	assert.False(t, ok)

	ch.QueueReceive(FiberID(3))
	ch.QueueReceive(FiberID(4))
	recv, ok := ch.PopPendingReceive()
	require.True(t, ok)
	assert.Equal(t, FiberID(3), recv)
}

func TestCountObjectsCountsDistinctReachableObjectsOnce(t *testing.T) {
	leaf := IntValue{Value: big.NewInt(1)}
	shared := &StructValue{} // one object, no fields of its own
	root := &StructValue{Values: []Value{shared, shared}}

	// root (1) + shared, counted once despite two references, == 2.
	assert.Equal(t, 2, CountObjects(root))
	assert.Equal(t, 1, CountObjects(leaf))
}

func TestCountObjectsFollowsClosureCaptures(t *testing.T) {
	captured := &StructValue{}
	closure := &ClosureValue{Captures: []Value{captured, IntValue{Value: big.NewInt(1)}}}

	// closure (1) + captured struct (1) + the plain Int leaf (1) == 3.
	assert.Equal(t, 3, CountObjects(closure))
}

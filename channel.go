package candy

// ChannelID identifies a channel within a Scheduler's channel table.
type ChannelID int

// Packet is a value in transit through a channel, together with the
// private sub-heap of boxed objects it dragged along with it — sending
// a struct sends a deep, heap-isolated copy, not a shared reference
// (spec §5 "channels").
type Packet struct {
	Value Value
	Heap  *Heap
}

// PendingSend is a fiber blocked in `channelSend` because the channel's
// buffer was full when it tried to send.
type PendingSend struct {
	Fiber  FiberID
	Packet Packet
}

// Channel is a bounded FIFO channel (spec §5 "structured concurrency"):
// a capacity-bounded packet buffer plus the two wait lists fibers queue
// onto when they can't proceed immediately. The Scheduler owns moving
// fibers between Running and these wait lists; Channel itself is just
// the queueing data structure, the way the teacher keeps data
// structures free of control-flow concerns.
type Channel struct {
	ID       ChannelID
	Capacity int

	Buffer          []Packet
	PendingSends    []PendingSend
	PendingReceives []FiberID
}

func NewChannel(id ChannelID, capacity int) *Channel {
	return &Channel{ID: id, Capacity: capacity}
}

func (c *Channel) IsFull() bool { return len(c.Buffer) >= c.Capacity }

func (c *Channel) Enqueue(pkt Packet) { c.Buffer = append(c.Buffer, pkt) }

func (c *Channel) Dequeue() (Packet, bool) {
	if len(c.Buffer) == 0 {
		return Packet{}, false
	}
	pkt := c.Buffer[0]
	c.Buffer = c.Buffer[1:]
	return pkt, true
}

func (c *Channel) QueueSend(fiber FiberID, pkt Packet) {
	c.PendingSends = append(c.PendingSends, PendingSend{Fiber: fiber, Packet: pkt})
}

func (c *Channel) PopPendingSend() (PendingSend, bool) {
	if len(c.PendingSends) == 0 {
		return PendingSend{}, false
	}
	ps := c.PendingSends[0]
	c.PendingSends = c.PendingSends[1:]
	return ps, true
}

func (c *Channel) QueueReceive(fiber FiberID) {
	c.PendingReceives = append(c.PendingReceives, fiber)
}

func (c *Channel) PopPendingReceive() (FiberID, bool) {
	if len(c.PendingReceives) == 0 {
		return 0, false
	}
	f := c.PendingReceives[0]
	c.PendingReceives = c.PendingReceives[1:]
	return f, true
}

// CountObjects counts the values reachable from v: each distinct
// Struct or Closure once, plus one for every other value each time it
// is reached (those are not deduplicated). Used to enforce `vm.packet.max_size` (spec §5 "packet size limit")
// before a send is allowed to proceed.
func CountObjects(v Value) int {
	seen := map[Value]bool{}
	var count func(Value) int
	count = func(v Value) int {
		switch val := v.(type) {
		case *StructValue:
			if seen[v] {
				return 0
			}
			seen[v] = true
			n := 1
			for _, k := range val.Keys {
				n += count(k)
			}
			for _, vv := range val.Values {
				n += count(vv)
			}
			return n
		case *ClosureValue:
			if seen[v] {
				return 0
			}
			seen[v] = true
			n := 1
			for _, c2 := range val.Captures {
				n += count(c2)
			}
			return n
		default:
			return 1
		}
	}
	return count(v)
}

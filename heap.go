package candy

// Heap tracks reference counts for Candy's boxed values (structs and
// closures) and for channel endpoints, the way the original VM's
// `heap/mod.rs` does for its raw heap objects — generalized here from
// manual allocation bookkeeping to bookkeeping over ordinary
// Go-GC-backed values, since Go doesn't need (or allow) the teacher's
// manual alloc/dealloc dance. The counts still drive the same
// observable semantics: a value is "alive" exactly as long as the
// language says it is, independent of when Go's collector actually
// frees the backing memory.
type Heap struct {
	refcounts        map[Value]int
	channelRefcounts map[ChannelID]int
}

func NewHeap() *Heap {
	return &Heap{refcounts: map[Value]int{}, channelRefcounts: map[ChannelID]int{}}
}

func isRefcounted(v Value) bool {
	switch v.(type) {
	case *StructValue, *ClosureValue:
		return true
	default:
		return false
	}
}

// Track registers a freshly constructed boxed value with refcount 1.
// Every constructor of a *StructValue/*ClosureValue must call this
// before handing the value to anything else.
func (h *Heap) Track(v Value) Value {
	if isRefcounted(v) {
		h.refcounts[v] = 1
	}
	return v
}

// Dup increments v's reference count (or its channel's, for a port).
func (h *Heap) Dup(v Value) {
	switch p := v.(type) {
	case SendPortValue:
		h.DupChannel(p.Channel, 1)
	case ReceivePortValue:
		h.DupChannel(p.Channel, 1)
	default:
		if isRefcounted(v) {
			h.refcounts[v]++
		}
	}
}

// Drop decrements v's reference count, recursively dropping its
// children once it reaches zero (spec §4.F "reference counting").
func (h *Heap) Drop(v Value) {
	switch p := v.(type) {
	case SendPortValue:
		h.DropChannel(p.Channel)
		return
	case ReceivePortValue:
		h.DropChannel(p.Channel)
		return
	}
	if !isRefcounted(v) {
		return
	}
	h.refcounts[v]--
	if h.refcounts[v] > 0 {
		return
	}
	delete(h.refcounts, v)
	switch val := v.(type) {
	case *StructValue:
		for _, k := range val.Keys {
			h.Drop(k)
		}
		for _, vv := range val.Values {
			h.Drop(vv)
		}
	case *ClosureValue:
		for _, c := range val.Captures {
			h.Drop(c)
		}
	}
}

func (h *Heap) NotifyPortCreated(ch ChannelID) { h.channelRefcounts[ch]++ }

func (h *Heap) DupChannel(ch ChannelID, amount int) { h.channelRefcounts[ch] += amount }

// DropChannel decrements ch's refcount and reports whether it reached
// zero, so the caller (the Scheduler, which owns the channel table
// itself) knows to actually remove the channel.
func (h *Heap) DropChannel(ch ChannelID) bool {
	h.channelRefcounts[ch]--
	if h.channelRefcounts[ch] <= 0 {
		delete(h.channelRefcounts, ch)
		return true
	}
	return false
}

func (h *Heap) KnownChannels() []ChannelID {
	out := make([]ChannelID, 0, len(h.channelRefcounts))
	for ch := range h.channelRefcounts {
		out = append(out, ch)
	}
	return out
}

// Adopt merges other's refcounts into h, consuming other. Used when a
// parallel scope's child fiber heap merges back into the enclosing
// fiber's heap once the scope completes (spec §5 "parallel").
func (h *Heap) Adopt(other *Heap) {
	for v, c := range other.refcounts {
		h.refcounts[v] += c
	}
	for ch, c := range other.channelRefcounts {
		h.channelRefcounts[ch] += c
	}
	other.refcounts = map[Value]int{}
	other.channelRefcounts = map[ChannelID]int{}
}

// CloneValue deep-clones a boxed value graph into this heap with fresh
// refcounts, used when a value crosses into a structurally independent
// world (e.g. a channel send, which must not let the sender and
// receiver alias the same mutable-looking struct).
func (h *Heap) CloneValue(v Value) Value {
	return h.cloneRec(v, map[Value]Value{})
}

// CloneWithMapping is CloneValue but also returns the source-to-clone
// object mapping it built along the way, so a caller that needs to
// translate other addresses against the same clone (e.g. a tracer
// describing a packet send) doesn't have to walk the graph a second
// time.
func (h *Heap) CloneWithMapping(v Value) (Value, map[Value]Value) {
	mapping := map[Value]Value{}
	return h.cloneRec(v, mapping), mapping
}

// CloneObjectTo clones a single object into h, reusing a mapping a
// caller already built (typically via CloneWithMapping on some larger
// root). Used for packet sends that only need one additional object's
// closure, not a whole second heap's worth of remapping.
func (h *Heap) CloneObjectTo(v Value, mapping map[Value]Value) Value {
	return h.cloneRec(v, mapping)
}

func (h *Heap) cloneRec(v Value, mapping map[Value]Value) Value {
	switch val := v.(type) {
	case *StructValue:
		if existing, ok := mapping[v]; ok {
			h.Dup(existing)
			return existing
		}
		clone := &StructValue{Keys: make([]Value, len(val.Keys)), Values: make([]Value, len(val.Values))}
		mapping[v] = clone
		h.refcounts[clone] = 1
		for i := range val.Keys {
			clone.Keys[i] = h.cloneRec(val.Keys[i], mapping)
		}
		for i := range val.Values {
			clone.Values[i] = h.cloneRec(val.Values[i], mapping)
		}
		return clone

	case *ClosureValue:
		if existing, ok := mapping[v]; ok {
			h.Dup(existing)
			return existing
		}
		clone := &ClosureValue{
			Body: val.Body, NumParameters: val.NumParameters,
			Origin: val.Origin, Fuzzable: val.Fuzzable,
			Captures: make([]Value, len(val.Captures)),
		}
		mapping[v] = clone
		h.refcounts[clone] = 1
		for i := range val.Captures {
			clone.Captures[i] = h.cloneRec(val.Captures[i], mapping)
		}
		return clone

	case SendPortValue:
		h.NotifyPortCreated(val.Channel)
		return val

	case ReceivePortValue:
		h.NotifyPortCreated(val.Channel)
		return val

	default:
		return v
	}
}

// ResetReferenceCounts and DropAllUnreferenced implement a mark-and-
// sweep over the heap: zero every count, have the caller re-Dup
// everything still reachable from a root set, then sweep what's left
// at zero. Only the heap tests call them; the Tracer and the fiber do
// not.
func (h *Heap) ResetReferenceCounts() {
	for v := range h.refcounts {
		h.refcounts[v] = 0
	}
	for ch := range h.channelRefcounts {
		h.channelRefcounts[ch] = 0
	}
}

func (h *Heap) DropAllUnreferenced() {
	for v, c := range h.refcounts {
		if c <= 0 {
			delete(h.refcounts, v)
		}
	}
	for ch, c := range h.channelRefcounts {
		if c <= 0 {
			delete(h.channelRefcounts, ch)
		}
	}
}

// Package transport implements the failure-aware, drop-aware in-process
// message transport between peers: per-peer inboxes, unicast and
// broadcast primitives, and the bounded per-tick message-event buffer.
package transport

import (
	"github.com/Georspai/bully-election-mpi-sim/internal/message"
	"github.com/Georspai/bully-election-mpi-sim/internal/randseed"
)

// MaxEventsPerTick bounds the message-event buffer per peer per tick
// (SPEC_FULL.md section 3); excess events are silently discarded — the
// BufferOverflow error kind, non-fatal by design.
const MaxEventsPerTick = 32

// Direction names which side of a send/recv pair an Event records.
type Direction string

const (
	DirSend Direction = "send"
	DirRecv Direction = "recv"
)

// Event is one recorded send or receive, bounded at MaxEventsPerTick per
// peer per tick.
type Event struct {
	Tick    int
	Type    message.Type
	SrcUID  int
	DstUID  int
	Dropped bool
	Dir     Direction
}

// eventBuffer is a fixed-capacity, silently-overflowing event log for one
// peer's current tick.
type eventBuffer struct {
	events   [MaxEventsPerTick]Event
	count    int
	overflow int
}

func (b *eventBuffer) add(e Event) {
	if b.count >= MaxEventsPerTick {
		b.overflow++
		return
	}
	b.events[b.count] = e
	b.count++
}

func (b *eventBuffer) reset() {
	b.count = 0
	b.overflow = 0
}

func (b *eventBuffer) snapshot() []Event {
	out := make([]Event, b.count)
	copy(out, b.events[:b.count])
	return out
}

// Network owns every peer's inbox and the shared drop probability. Peers
// interact with it only through the Endpoint handed to them at
// construction.
type Network struct {
	pDrop   float64
	inboxes map[int]chan message.Message
}

// NewNetwork allocates inboxes for every UID in uids. maxInboxDepth sizes
// each inbox generously (peerCount * maxRecvPerTick) so Phase SEND never
// blocks on a slow drainer, per SPEC_FULL.md section 5's non-blocking-send
// guarantee.
func NewNetwork(uids []int, pDrop float64, maxInboxDepth int) *Network {
	n := &Network{pDrop: pDrop, inboxes: make(map[int]chan message.Message, len(uids))}
	for _, uid := range uids {
		n.inboxes[uid] = make(chan message.Message, maxInboxDepth)
	}
	return n
}

// Endpoint is the per-peer handle to the shared Network: it knows its own
// UID, draws drop decisions from the peer's private RNG stream, and
// accumulates this tick's event buffer.
type Endpoint struct {
	uid     int
	net     *Network
	stream  *randseed.Stream
	buf     eventBuffer
	peerSet []int // all UIDs except uid, for broadcast fan-out
}

// NewEndpoint builds the endpoint for uid within net, given the full peer
// UID list (used for broadcast fan-out).
func NewEndpoint(uid int, net *Network, stream *randseed.Stream, allUIDs []int) *Endpoint {
	peers := make([]int, 0, len(allUIDs)-1)
	for _, u := range allUIDs {
		if u != uid {
			peers = append(peers, u)
		}
	}
	return &Endpoint{uid: uid, net: net, stream: stream, peerSet: peers}
}

// ResetTick clears the event buffer at the start of a new tick's
// harvesting window (called by the scheduler immediately after the
// previous tick's harvest, before Phase SEND begins).
func (e *Endpoint) ResetTick() {
	e.buf.reset()
}

// Events returns this tick's accumulated message events.
func (e *Endpoint) Events() []Event {
	return e.buf.snapshot()
}

// Send unicasts msg to dstUID. dropped = Bernoulli(p_drop) || !canCommunicate;
// the send event is always recorded, and the message is only enqueued into
// the destination's inbox when not dropped.
func (e *Endpoint) Send(tick int, msg message.Message, dstUID int, canCommunicate bool) {
	dropped := e.stream.Bernoulli(e.net.pDrop) || !canCommunicate
	e.buf.add(Event{Tick: tick, Type: msg.Type, SrcUID: e.uid, DstUID: dstUID, Dropped: dropped, Dir: DirSend})
	if dropped {
		return
	}
	inbox, ok := e.net.inboxes[dstUID]
	if !ok {
		return
	}
	inbox <- msg
}

// Broadcast unicasts msg to every peer other than this endpoint's own UID
// (broadcast is modeled as N-1 unicasts, per SPEC_FULL.md section 9's
// implementation-freedom note), each with an independent drop decision.
func (e *Endpoint) Broadcast(tick int, msg message.Message, canCommunicate bool) {
	for _, dst := range e.peerSet {
		m := msg
		m.DstUID = message.Broadcast
		e.Send(tick, m, dst, canCommunicate)
	}
}

// Drain pops up to maxRecv inbound messages, recording a recv event for
// every one popped. Messages are only returned for handling when
// canCommunicate is true; otherwise they are recorded and discarded,
// matching the spec's "logged but not handled" gating.
func (e *Endpoint) Drain(tick int, maxRecv int, canCommunicate bool) []message.Message {
	inbox := e.net.inboxes[e.uid]
	var toHandle []message.Message
	for i := 0; i < maxRecv; i++ {
		select {
		case msg := <-inbox:
			e.buf.add(Event{Tick: tick, Type: msg.Type, SrcUID: msg.SrcUID, DstUID: e.uid, Dropped: !canCommunicate, Dir: DirRecv})
			if canCommunicate {
				toHandle = append(toHandle, msg)
			}
		default:
			return toHandle
		}
	}
	return toHandle
}

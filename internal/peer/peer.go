// Package peer implements the Bully protocol state machine: heartbeat
// emission, election initiation, OK/COORDINATOR handling, and the three
// Phase END timeout checks.
package peer

import (
	"fmt"

	"github.com/Georspai/bully-election-mpi-sim/internal/failure"
	"github.com/Georspai/bully-election-mpi-sim/internal/message"
	"github.com/Georspai/bully-election-mpi-sim/internal/randseed"
	"github.com/Georspai/bully-election-mpi-sim/internal/transport"
)

// State names the peer-level state the protocol table in SPEC_FULL.md
// section 4.4 describes; it is derived, not stored, and exists only for
// diagnostics and tests.
type State string

const (
	Follower State = "FOLLOWER"
	Electing State = "ELECTING"
	Waiting  State = "WAITING"
	Leader   State = "LEADER"
)

// Params are the per-peer protocol timing and transport parameters,
// identical across peers in the current configuration surface.
type Params struct {
	HBPeriodTicks        int
	HBTimeoutTicks       int
	ElectionTimeoutTicks int
	MaxRecvPerTick       int
	PSend                float64
}

// Report is the per-tick snapshot the scheduler harvests.
type Report struct {
	Tick           int
	UID            int
	Online         bool
	LeaderUID      int
	ElectionActive bool
	LastHBTick     int
}

// Peer is one participant in the election. Its mutable fields are
// touched only by its own tick-phase methods, called in turn by the
// scheduler's per-phase sweep; the scheduler reads a snapshot only
// during harvest, once every peer has crossed Phase END.
type Peer struct {
	uid        int
	numPeers   int
	params     Params
	endpoint   *transport.Endpoint
	stream     *randseed.Stream
	failureModel failure.Model

	leaderUID             int
	lastHBTick            int
	canCommunicate        bool
	electionActive        bool
	electionStarted       bool
	electionStartTick     int
	waitingForCoordinator bool
	okReceivedTick        int

	diagnostics []string
}

// New constructs a peer initialized per SPEC_FULL.md section 3: every
// peer starts FOLLOWER believing leaderUID = numPeers (the highest UID),
// so no spurious first-tick election occurs.
func New(uid, numPeers int, params Params, endpoint *transport.Endpoint, stream *randseed.Stream, model failure.Model) *Peer {
	return &Peer{
		uid:          uid,
		numPeers:     numPeers,
		params:       params,
		endpoint:     endpoint,
		stream:       stream,
		failureModel: model,
		leaderUID:    numPeers,
		lastHBTick:   -1,
		okReceivedTick: -1,
	}
}

// AdvanceFailure advances this peer's failure model by one tick, using
// the peer's current leader belief (Network's probability depends on
// it), and freezes CanCommunicate for the remainder of the tick. Called
// by the scheduler before Phase SEND.
func (p *Peer) AdvanceFailure(tick int) {
	p.failureModel.SetIsLeader(p.leaderUID == p.uid)
	p.failureModel.Advance(tick)
	p.canCommunicate = p.failureModel.CanCommunicate()
}

// State derives the peer-level state named in SPEC_FULL.md section 4.4,
// for diagnostics and tests.
func (p *Peer) State() State {
	switch {
	case p.leaderUID == p.uid:
		return Leader
	case p.waitingForCoordinator:
		return Waiting
	case p.electionActive:
		return Electing
	default:
		return Follower
	}
}

func (p *Peer) transition(tick int, from, to State, reason string) {
	p.diagnostics = append(p.diagnostics, fmt.Sprintf("peer %d: %s -> %s (%s)", p.uid, from, to, reason))
}

// TickSend runs Phase SEND: heartbeat emission, election initiation, and
// probabilistic background traffic.
func (p *Peer) TickSend(tick int) {
	if p.leaderUID == p.uid && p.params.HBPeriodTicks > 0 && tick%p.params.HBPeriodTicks == 0 {
		p.endpoint.Broadcast(tick, message.Message{Type: message.Heartbeat, Tick: tick, SrcUID: p.uid, LeaderUID: p.leaderUID}, p.canCommunicate)
	}

	if p.electionActive && !p.electionStarted {
		before := p.State()
		p.electionStarted = true
		p.electionStartTick = tick
		for higher := p.uid + 1; higher <= p.numPeers; higher++ {
			p.endpoint.Send(tick, message.Message{Type: message.Election, Tick: tick, SrcUID: p.uid, LeaderUID: p.leaderUID}, higher, p.canCommunicate)
		}
		p.transition(tick, before, p.State(), "election initiated")
	}

	if p.numPeers > 1 && p.stream.Bernoulli(p.params.PSend) {
		target := p.randomOtherPeer()
		p.endpoint.Send(tick, message.Message{Type: message.Ping, Tick: tick, SrcUID: p.uid, LeaderUID: p.leaderUID, Aux: p.stream.IntN(1 << 30)}, target, p.canCommunicate)
	}
}

func (p *Peer) randomOtherPeer() int {
	// numPeers-1 candidates excluding self; map a uniform draw over
	// [0, numPeers-1) to a UID in [1, numPeers] skipping p.uid.
	pick := p.stream.IntN(p.numPeers - 1)
	candidate := pick + 1
	if candidate >= p.uid {
		candidate++
	}
	return candidate
}

// TickRecv runs Phase RECV: drain up to MaxRecvPerTick inbound messages
// and apply the protocol handler table.
func (p *Peer) TickRecv(tick int) {
	inbound := p.endpoint.Drain(tick, p.params.MaxRecvPerTick, p.canCommunicate)
	for _, msg := range inbound {
		p.handle(tick, msg)
	}
}

func (p *Peer) handle(tick int, msg message.Message) {
	before := p.State()
	switch msg.Type {
	case message.Heartbeat:
		if msg.SrcUID >= p.uid {
			p.leaderUID = msg.SrcUID
			p.lastHBTick = tick
			p.electionActive = false
			p.waitingForCoordinator = false
			p.transition(tick, before, p.State(), "heartbeat accepted")
		}

	case message.Election:
		p.endpoint.Send(tick, message.Message{Type: message.OK, Tick: tick, SrcUID: p.uid, DstUID: msg.SrcUID, LeaderUID: p.leaderUID}, msg.SrcUID, p.canCommunicate)
		if msg.SrcUID < p.uid && !p.electionActive {
			p.electionActive = true
			p.electionStarted = false
			p.transition(tick, before, p.State(), "election from lower uid")
		}

	case message.OK:
		if msg.SrcUID > p.uid {
			p.electionActive = false
			p.electionStarted = false
			p.waitingForCoordinator = true
			p.okReceivedTick = tick
			p.transition(tick, before, p.State(), "ok received")
		}

	case message.Coordinator:
		if msg.SrcUID >= p.uid {
			p.leaderUID = msg.SrcUID
			p.lastHBTick = tick
			p.electionActive = false
			p.electionStarted = false
			p.waitingForCoordinator = false
			p.transition(tick, before, p.State(), "coordinator accepted")
		} else if !p.electionActive && !p.waitingForCoordinator {
			p.electionActive = true
			p.electionStarted = false
			p.transition(tick, before, p.State(), "coordinator rejected")
		}

	case message.Ping:
		p.endpoint.Send(tick, message.Message{Type: message.Ack, Tick: tick, SrcUID: p.uid, DstUID: msg.SrcUID, LeaderUID: p.leaderUID, Aux: msg.Aux}, msg.SrcUID, p.canCommunicate)

	case message.Ack:
		// No-op: traffic realism and event counting only.

	default:
		// UnknownMessageType: ignored, not surfaced (SPEC_FULL.md section 7).
	}
}

// TickEnd runs Phase END: the three timeout checks, evaluated in order,
// first-to-fire wins.
func (p *Peer) TickEnd(tick int) {
	before := p.State()

	if p.leaderUID != -1 && p.uid != p.leaderUID && !p.electionActive && !p.waitingForCoordinator &&
		p.lastHBTick >= 0 && (tick-p.lastHBTick) >= p.params.HBTimeoutTicks {
		p.electionActive = true
		p.electionStarted = false
		p.transition(tick, before, p.State(), "heartbeat timeout")
		return
	}

	if p.waitingForCoordinator && (tick-p.okReceivedTick) > p.params.ElectionTimeoutTicks {
		p.waitingForCoordinator = false
		p.okReceivedTick = -1
		p.electionActive = true
		p.electionStarted = false
		p.transition(tick, before, p.State(), "coordinator wait timeout")
		return
	}

	if p.electionActive && p.electionStarted && (tick-p.electionStartTick) > p.params.ElectionTimeoutTicks {
		p.leaderUID = p.uid
		p.electionActive = false
		p.electionStarted = false
		p.endpoint.Broadcast(tick, message.Message{Type: message.Coordinator, Tick: tick, SrcUID: p.uid, LeaderUID: p.uid}, p.canCommunicate)
		p.transition(tick, before, p.State(), "victory")
	}
}

// Report snapshots this peer's state for the given tick. Called by the
// scheduler during harvest, after Phase END has run.
func (p *Peer) Report(tick int) Report {
	return Report{
		Tick:           tick,
		UID:            p.uid,
		Online:         p.canCommunicate,
		LeaderUID:      p.leaderUID,
		ElectionActive: p.electionActive,
		LastHBTick:     p.lastHBTick,
	}
}

// Events returns this tick's recorded message events.
func (p *Peer) Events() []transport.Event {
	return p.endpoint.Events()
}

// ResetTick clears per-tick buffers ahead of the next tick.
func (p *Peer) ResetTick() {
	p.endpoint.ResetTick()
	p.diagnostics = nil
}

// Diagnostics returns the diagnostic lines accumulated this tick.
func (p *Peer) Diagnostics() []string {
	return p.diagnostics
}

// UID returns this peer's identifier.
func (p *Peer) UID() int { return p.uid }

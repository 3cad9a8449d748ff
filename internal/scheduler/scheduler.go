// Package scheduler drives every peer through the four-phase tick model
// under barrier synchronization, then harvests state reports, message
// events, and diagnostic lines into the three output sinks.
package scheduler

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Georspai/bully-election-mpi-sim/internal/config"
	"github.com/Georspai/bully-election-mpi-sim/internal/failure"
	"github.com/Georspai/bully-election-mpi-sim/internal/peer"
	"github.com/Georspai/bully-election-mpi-sim/internal/randseed"
	"github.com/Georspai/bully-election-mpi-sim/internal/sinks"
	"github.com/Georspai/bully-election-mpi-sim/internal/transport"
)

// Sinks bundles the three output streams a Scheduler writes into.
type Sinks struct {
	State   *sinks.Writer
	Message *sinks.Writer
	Debug   *sinks.Writer
}

// Scheduler owns every peer and the network connecting them, and drives
// the tick loop described in SPEC_FULL.md section 4.5.
type Scheduler struct {
	cfg   config.Config
	log   zerolog.Logger
	sinks Sinks
	runID string

	uids  []int
	peers map[int]*peer.Peer
}

// New builds a Scheduler for cfg: one peer per UID in [1, NumPeers],
// wired to a shared in-process Network and independent per-peer RNG
// streams and failure models.
func New(cfg config.Config, log zerolog.Logger, out Sinks) *Scheduler {
	if cfg.Node.ElectionTimeoutTicks < 3 {
		// InvariantWarning: reported, not fatal (SPEC_FULL.md section 7).
		log.Warn().Int("election_timeout_ticks", cfg.Node.ElectionTimeoutTicks).
			Msg("election_timeout_ticks below 3 violates the three-tick round trip requirement")
	}

	numPeers := cfg.NumPeers
	uids := make([]int, numPeers)
	for i := 0; i < numPeers; i++ {
		uids[i] = i + 1
	}

	maxInboxDepth := numPeers * cfg.Node.MaxRecvPerTick
	if maxInboxDepth < 64 {
		maxInboxDepth = 64
	}
	network := transport.NewNetwork(uids, cfg.Node.PDrop, maxInboxDepth)

	params := peer.Params{
		HBPeriodTicks:        cfg.Node.HBPeriodTicks,
		HBTimeoutTicks:       cfg.Node.HBTimeoutTicks,
		ElectionTimeoutTicks: cfg.Node.ElectionTimeoutTicks,
		MaxRecvPerTick:       cfg.Node.MaxRecvPerTick,
		PSend:                cfg.Node.PSend,
	}

	peers := make(map[int]*peer.Peer, numPeers)
	for _, uid := range uids {
		stream := randseed.NewStream(cfg.Simulation.Seed, uid)
		endpoint := transport.NewEndpoint(uid, network, stream, uids)
		model := buildFailureModel(cfg.Failure, stream, log)
		peers[uid] = peer.New(uid, numPeers, params, endpoint, stream, model)
	}

	return &Scheduler{
		cfg:   cfg,
		log:   log,
		sinks: out,
		runID: uuid.New().String(),
		uids:  uids,
		peers: peers,
	}
}

func buildFailureModel(cfg config.FailureConfig, stream *randseed.Stream, log zerolog.Logger) failure.Model {
	switch cfg.Type {
	case "", "none":
		return failure.NewNone()
	case "network":
		return failure.NewNetwork(failure.NetworkConfig{
			PFail:                cfg.PFail,
			LeaderFailMultiplier: cfg.LeaderFailMultiplier,
			OfflineDurations:     cfg.OfflineDurations,
			OfflineWeights:       cfg.OfflineWeights,
		}, stream)
	case "crash":
		return failure.NewCrash(failure.CrashConfig{
			PCrash:        cfg.PCrash,
			RecoveryTicks: cfg.RecoveryTicks,
		}, stream)
	default:
		log.Warn().Str("type", cfg.Type).Msg("unknown failure type, defaulting to none")
		return failure.NewNone()
	}
}

// Run advances the simulation for cfg.Simulation.NumTicks ticks, or until
// ctx is cancelled. Cancellation is only observed at tick boundaries,
// never inside a phase.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().
		Str("run_id", s.runID).
		Int("num_peers", len(s.uids)).
		Int("num_ticks", s.cfg.Simulation.NumTicks).
		Uint64("seed", s.cfg.Simulation.Seed).
		Msg("starting simulation")

	s.sinks.State.Write(sinks.StateMetadata{
		Metadata: true,
		NumNodes: len(s.uids),
		NumTicks: s.cfg.Simulation.NumTicks,
		Seed:     s.cfg.Simulation.Seed,
	})

	for tick := 0; tick < s.cfg.Simulation.NumTicks; tick++ {
		select {
		case <-ctx.Done():
			s.log.Warn().Int("tick", tick).Msg("simulation cancelled")
			return ctx.Err()
		default:
		}

		s.runTick(tick)
		s.harvest(tick)
		s.resetTick()
	}

	s.log.Info().Str("run_id", s.runID).Msg("simulation complete")
	return nil
}

// runTick sweeps every peer through one phase at a time, in ascending
// UID order, before moving to the next phase. Every peer's Phase SEND
// completes before any peer's Phase RECV begins, and so on, which is the
// global-barrier-synchronous scheduling model of SPEC_FULL.md section 5 —
// realized as a single-goroutine "message-loop tasks" sweep rather than a
// goroutine-per-peer fan-out, because only a fixed sweep order keeps
// cross-peer message arrival deterministic across runs (see DESIGN.md).
func (s *Scheduler) runTick(tick int) {
	for _, uid := range s.uids {
		p := s.peers[uid]
		p.AdvanceFailure(tick)
		p.TickSend(tick)
	}
	for _, uid := range s.uids {
		s.peers[uid].TickRecv(tick)
	}
	for _, uid := range s.uids {
		s.peers[uid].TickEnd(tick)
	}
}

// harvest collects one state report, the bounded message-event buffer,
// and the diagnostic lines from every peer, and emits them to the three
// sinks. It runs only after every peer has crossed the Phase END barrier,
// observing a quiescent snapshot per SPEC_FULL.md section 4.5.
func (s *Scheduler) harvest(tick int) {
	nodes := make([]sinks.StateLineNode, 0, len(s.uids))
	for _, uid := range s.uids {
		p := s.peers[uid]
		rep := p.Report(tick)
		nodes = append(nodes, sinks.StateLineNode{
			UID:      rep.UID,
			Online:   rep.Online,
			Leader:   rep.LeaderUID,
			Election: rep.ElectionActive,
			LastHB:   rep.LastHBTick,
		})

		for _, ev := range p.Events() {
			s.sinks.Message.Write(sinks.MessageLine{
				Tick:    ev.Tick,
				Type:    ev.Type.String(),
				Src:     ev.SrcUID,
				Dst:     ev.DstUID,
				Dropped: ev.Dropped,
				Dir:     string(ev.Dir),
			})
		}

		for _, d := range p.Diagnostics() {
			s.sinks.Debug.Write(sinks.DebugLine{Tick: tick, UID: uid, Msg: d})
		}
	}
	s.sinks.State.Write(sinks.StateLine{Tick: tick, Nodes: nodes})
}

func (s *Scheduler) resetTick() {
	for _, p := range s.peers {
		p.ResetTick()
	}
}

// RunID returns the UUID correlating this scheduler's three output
// streams (SPEC_FULL.md section 6B).
func (s *Scheduler) RunID() string { return s.runID }

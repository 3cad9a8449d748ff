// Package failure implements the pluggable failure models that gate a
// peer's ability to communicate: None, Network, and Crash.
package failure

import "github.com/Georspai/bully-election-mpi-sim/internal/randseed"

// Model is the capability set every failure variant implements. The leader
// status must be set via SetIsLeader before Advance is called each tick,
// because Network's failure probability depends on it.
type Model interface {
	// Advance moves the model forward by one tick, sampling a new failure
	// or counting down a recovery if one is already in progress.
	Advance(tick int)
	// CanCommunicate reports whether transport should be gated open for
	// the tick just advanced.
	CanCommunicate() bool
	// TicksUntilRecovery reports the residual offline/crash countdown, or
	// 0 if the peer currently communicates.
	TicksUntilRecovery() int
	// TypeName names the variant, for diagnostics.
	TypeName() string
	// SetIsLeader informs the model whether its peer currently believes
	// itself to be the leader (only Network uses this).
	SetIsLeader(isLeader bool)
}

// NoneFailure never gates communication.
type NoneFailure struct{}

func NewNone() *NoneFailure { return &NoneFailure{} }

func (*NoneFailure) Advance(int)            {}
func (*NoneFailure) CanCommunicate() bool   { return true }
func (*NoneFailure) TicksUntilRecovery() int { return 0 }
func (*NoneFailure) TypeName() string       { return "none" }
func (*NoneFailure) SetIsLeader(bool)       {}

// NetworkConfig parameterizes NetworkFailure.
type NetworkConfig struct {
	PFail                float64
	LeaderFailMultiplier float64
	OfflineDurations     []int
	OfflineWeights       []float64
}

// NetworkFailure models transient network partitions: a Bernoulli trial
// each tick decides whether the peer goes offline, and a weighted
// categorical decides how long the resulting outage lasts.
type NetworkFailure struct {
	cfg      NetworkConfig
	stream   *randseed.Stream
	offline  int
	isLeader bool
}

func NewNetwork(cfg NetworkConfig, stream *randseed.Stream) *NetworkFailure {
	return &NetworkFailure{cfg: cfg, stream: stream}
}

func (f *NetworkFailure) Advance(int) {
	if f.offline > 0 {
		f.offline--
		return
	}
	p := f.cfg.PFail
	if f.isLeader {
		p *= f.cfg.LeaderFailMultiplier
	}
	if f.stream.Bernoulli(p) {
		idx := f.stream.WeightedChoice(f.cfg.OfflineWeights)
		f.offline = f.cfg.OfflineDurations[idx]
	}
}

func (f *NetworkFailure) CanCommunicate() bool    { return f.offline == 0 }
func (f *NetworkFailure) TicksUntilRecovery() int { return f.offline }
func (f *NetworkFailure) TypeName() string        { return "network" }
func (f *NetworkFailure) SetIsLeader(isLeader bool) { f.isLeader = isLeader }

// CrashConfig parameterizes CrashFailure.
type CrashConfig struct {
	PCrash        float64
	RecoveryTicks int
}

// CrashFailure models a hard crash-and-restart: transport gating is
// identical to NetworkFailure, but the model additionally exposes
// IsCrashed so a caller may choose to skip internal peer logic (unused by
// the default configuration, but part of the contract per SPEC_FULL.md
// section 4.2).
type CrashFailure struct {
	cfg     CrashConfig
	stream  *randseed.Stream
	crashed int
}

func NewCrash(cfg CrashConfig, stream *randseed.Stream) *CrashFailure {
	return &CrashFailure{cfg: cfg, stream: stream}
}

func (f *CrashFailure) Advance(int) {
	if f.crashed > 0 {
		f.crashed--
		return
	}
	if f.stream.Bernoulli(f.cfg.PCrash) {
		f.crashed = f.cfg.RecoveryTicks
	}
}

func (f *CrashFailure) CanCommunicate() bool    { return f.crashed == 0 }
func (f *CrashFailure) TicksUntilRecovery() int { return f.crashed }
func (f *CrashFailure) TypeName() string        { return "crash" }
func (f *CrashFailure) SetIsLeader(bool)        {}
func (f *CrashFailure) IsCrashed() bool         { return f.crashed > 0 }

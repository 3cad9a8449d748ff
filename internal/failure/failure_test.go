package failure

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Georspai/bully-election-mpi-sim/internal/randseed"
)

func TestNoneAlwaysCommunicates(t *testing.T) {
	f := NewNone()
	for tick := 0; tick < 5; tick++ {
		f.Advance(tick)
		require.True(t, f.CanCommunicate())
	}
	require.Equal(t, "none", f.TypeName())
}

func TestNetworkRecoversAfterOfflineDuration(t *testing.T) {
	stream := randseed.NewStream(1, 1)
	cfg := NetworkConfig{
		PFail:                1, // force failure on the first tick
		LeaderFailMultiplier: 1,
		OfflineDurations:     []int{3},
		OfflineWeights:       []float64{1},
	}
	f := NewNetwork(cfg, stream)
	f.Advance(0)
	require.False(t, f.CanCommunicate())
	require.Equal(t, 3, f.TicksUntilRecovery())

	f.Advance(1)
	f.Advance(2)
	f.Advance(3)
	require.True(t, f.CanCommunicate())
}

func TestNetworkNeverFailsWhenPZero(t *testing.T) {
	stream := randseed.NewStream(1, 1)
	cfg := NetworkConfig{PFail: 0, LeaderFailMultiplier: 2, OfflineDurations: []int{1}, OfflineWeights: []float64{1}}
	f := NewNetwork(cfg, stream)
	for tick := 0; tick < 50; tick++ {
		f.Advance(tick)
		require.True(t, f.CanCommunicate())
	}
}

func TestCrashRecovers(t *testing.T) {
	stream := randseed.NewStream(2, 2)
	f := NewCrash(CrashConfig{PCrash: 1, RecoveryTicks: 2}, stream)
	f.Advance(0)
	require.False(t, f.CanCommunicate())
	require.True(t, f.IsCrashed())
	f.Advance(1)
	f.Advance(2)
	require.True(t, f.CanCommunicate())
	require.False(t, f.IsCrashed())
}

package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Georspai/bully-election-mpi-sim/internal/config"
	"github.com/Georspai/bully-election-mpi-sim/internal/sinks"
)

func newBufWriter(t *testing.T, name string, buf *bytes.Buffer, log zerolog.Logger) *sinks.Writer {
	t.Helper()
	return sinks.NewWriter(name, buf, nil, log)
}

func newInMemorySinks(t *testing.T) (Sinks, *bytes.Buffer, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stateBuf, msgBuf, debugBuf bytes.Buffer
	log := zerolog.Nop()
	return Sinks{
		State:   newBufWriter(t, "state", &stateBuf, log),
		Message: newBufWriter(t, "messages", &msgBuf, log),
		Debug:   newBufWriter(t, "debug", &debugBuf, log),
	}, &stateBuf, &msgBuf, &debugBuf
}

func scenarioAConfig() config.Config {
	cfg := config.Default()
	cfg.NumPeers = 5
	cfg.Simulation.Seed = 1
	cfg.Simulation.NumTicks = 10
	cfg.Node.HBPeriodTicks = 1
	cfg.Node.HBTimeoutTicks = 3
	cfg.Node.ElectionTimeoutTicks = 3
	cfg.Node.PSend = 0
	cfg.Node.PDrop = 0
	cfg.Failure.Type = "none"
	return cfg
}

func TestScenarioANoFailuresLeaderIsAlwaysFive(t *testing.T) {
	out, stateBuf, msgBuf, _ := newInMemorySinks(t)
	cfg := scenarioAConfig()
	s := New(cfg, zerolog.Nop(), out)
	require.NoError(t, s.Run(context.Background()))
	require.NoError(t, out.State.Close())
	require.NoError(t, out.Message.Close())
	require.NoError(t, out.Debug.Close())

	lines := strings.Split(strings.TrimSpace(stateBuf.String()), "\n")
	require.Len(t, lines, cfg.Simulation.NumTicks+1) // metadata + one per tick

	for _, line := range lines[1:] {
		var sl struct {
			Tick  int `json:"tick"`
			Nodes []struct {
				Leader   int  `json:"leader"`
				Election bool `json:"election"`
			} `json:"nodes"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &sl))
		for _, n := range sl.Nodes {
			require.Equal(t, 5, n.Leader, "tick %d", sl.Tick)
			require.False(t, n.Election, "tick %d", sl.Tick)
		}
	}

	for _, line := range strings.Split(strings.TrimSpace(msgBuf.String()), "\n") {
		if line == "" {
			continue
		}
		var ml struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &ml))
		require.Contains(t, []string{"HEARTBEAT"}, ml.Type)
	}
}

func TestDeterminismIdenticalSeedsProduceIdenticalOutput(t *testing.T) {
	cfg := config.Default()
	cfg.NumPeers = 6
	cfg.Simulation.Seed = 42
	cfg.Simulation.NumTicks = 30
	cfg.Failure.Type = "network"

	run := func() string {
		out, stateBuf, _, _ := newInMemorySinks(t)
		s := New(cfg, zerolog.Nop(), out)
		require.NoError(t, s.Run(context.Background()))
		require.NoError(t, out.State.Close())
		require.NoError(t, out.Message.Close())
		require.NoError(t, out.Debug.Close())
		return stateBuf.String()
	}

	a := run()
	b := run()
	require.Equal(t, a, b)
}

func TestRunRespectsContextCancellation(t *testing.T) {
	out, stateBuf, _, _ := newInMemorySinks(t)
	cfg := scenarioAConfig()
	cfg.Simulation.NumTicks = 1000
	s := New(cfg, zerolog.Nop(), out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Run(ctx)
	require.Error(t, err)
	require.NoError(t, out.State.Close())
	require.NoError(t, out.Message.Close())
	require.NoError(t, out.Debug.Close())
	// Only the metadata line should have been written before cancellation.
	require.Len(t, strings.Split(strings.TrimSpace(stateBuf.String()), "\n"), 1)
}

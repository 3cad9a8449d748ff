package sinks

import (
	"bufio"
	"bytes"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func discardLogger() zerolog.Logger {
	return zerolog.Nop()
}

// syncBuffer guards a bytes.Buffer so a test can poll it from the main
// goroutine while the writer's background flusher writes concurrently.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWriteFlushesOnClose(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter("state", &buf, nil, discardLogger())
	w.Write(StateMetadata{Metadata: true, NumNodes: 5, NumTicks: 10, Seed: 1})
	w.Write(StateLine{Tick: 0, Nodes: []StateLineNode{{UID: 1, Online: true, Leader: 5, LastHB: -1}}})
	require.NoError(t, w.Close())

	lines := splitLines(t, buf.String())
	require.Len(t, lines, 2)

	var meta StateMetadata
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &meta))
	require.True(t, meta.Metadata)
	require.Equal(t, 5, meta.NumNodes)
}

func TestWriteFlushesOnBatchSize(t *testing.T) {
	buf := &syncBuffer{}
	w := NewWriter("messages", buf, nil, discardLogger())
	for i := 0; i < flushBatchSize+1; i++ {
		w.Write(MessageLine{Tick: i, Type: "PING", Src: 1, Dst: 2, Dir: "send"})
	}
	require.Eventually(t, func() bool {
		return len(splitLines(t, buf.String())) >= flushBatchSize
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, w.Close())
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.jsonl")
	w, err := Open("debug", path, discardLogger())
	require.NoError(t, err)
	w.Write(DebugLine{Tick: 0, UID: 1, Msg: "hello"})
	require.NoError(t, w.Close())
}

func TestOpenFailsOnBadPath(t *testing.T) {
	_, err := Open("debug", filepath.Join(t.TempDir(), "nope", "debug.jsonl"), discardLogger())
	require.ErrorIs(t, err, ErrSinkOpen)
}

func splitLines(t *testing.T, s string) []string {
	t.Helper()
	scanner := bufio.NewScanner(bytes.NewBufferString(s))
	var lines []string
	for scanner.Scan() {
		if scanner.Text() != "" {
			lines = append(lines, scanner.Text())
		}
	}
	return lines
}

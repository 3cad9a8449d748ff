// Package sinks implements the three append-only NDJSON output streams
// (state, message, debug) as batched, ticker-flushed writers, adapted
// from the teacher's StartDiskWriter/flushBatch pattern generalized from
// one stream to three independently typed ones.
package sinks

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/xerrors"
)

// ErrSinkOpen is the SinkOpenError kind: an output stream could not be
// opened. It is always fatal (SPEC_FULL.md section 7).
var ErrSinkOpen = xerrors.New("sinks: failed to open output stream")

const (
	flushBatchSize = 500
	flushInterval  = 200 * time.Millisecond
)

// Writer batches arbitrary JSON-able lines and flushes them to an
// underlying io.Writer on a size threshold or a timer, whichever comes
// first, with a final flush on Close.
type Writer struct {
	log    zerolog.Logger
	name   string
	out    *bufio.Writer
	closer io.Closer

	mu      sync.Mutex
	batch   [][]byte
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWriter wraps w (already-opened) in a batching NDJSON writer. closer
// may be nil if w does not need explicit closing (e.g. a bytes.Buffer in
// tests).
func NewWriter(name string, w io.Writer, closer io.Closer, log zerolog.Logger) *Writer {
	wr := &Writer{
		log:    log,
		name:   name,
		out:    bufio.NewWriter(w),
		closer: closer,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go wr.run()
	return wr
}

// Write marshals v to JSON and enqueues it as one NDJSON line. Marshal
// failures are logged and the line is dropped; they indicate a
// programming error (an unmarshalable type reaching a sink), not a
// runtime condition the spec names.
func (w *Writer) Write(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.log.Error().Err(err).Str("sink", w.name).Msg("failed to marshal line")
		return
	}
	w.mu.Lock()
	w.batch = append(w.batch, data)
	full := len(w.batch) >= flushBatchSize
	w.mu.Unlock()
	if full {
		w.flush()
	}
}

func (w *Writer) run() {
	defer close(w.doneCh)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.flush()
		case <-w.stopCh:
			w.flush()
			return
		}
	}
}

func (w *Writer) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	batch := w.batch
	w.batch = nil

	if len(batch) == 0 {
		return
	}
	for _, line := range batch {
		if _, err := w.out.Write(line); err != nil {
			w.log.Error().Err(err).Str("sink", w.name).Msg("write failed")
			continue
		}
		w.out.WriteByte('\n')
	}
	if err := w.out.Flush(); err != nil {
		w.log.Error().Err(err).Str("sink", w.name).Msg("flush failed")
	}
}

// Close stops the background flusher, performs a final flush, and closes
// the underlying writer if one was supplied.
func (w *Writer) Close() error {
	close(w.stopCh)
	<-w.doneCh
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// Open creates (or truncates) path and wraps it in a batching NDJSON
// Writer. A failure to open is the fatal SinkOpenError kind.
func Open(name, path string, log zerolog.Logger) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, xerrors.Errorf("%w: %s: %v", ErrSinkOpen, path, err)
	}
	return NewWriter(name, f, f, log), nil
}

// StateLine is one line of the state NDJSON stream.
type StateLine struct {
	Tick  int              `json:"tick"`
	Nodes []StateLineNode `json:"nodes"`
}

// StateLineNode is one peer's entry within a StateLine.
type StateLineNode struct {
	UID       int  `json:"uid"`
	Online    bool `json:"online"`
	Leader    int  `json:"leader"`
	Election  bool `json:"election"`
	LastHB    int  `json:"last_hb"`
}

// StateMetadata is the first line of the state stream.
type StateMetadata struct {
	Metadata bool   `json:"metadata"`
	NumNodes int    `json:"num_nodes"`
	NumTicks int     `json:"num_ticks"`
	Seed     uint64 `json:"seed"`
}

// MessageLine is one line of the message NDJSON stream.
type MessageLine struct {
	Tick    int    `json:"tick"`
	Type    string `json:"type"`
	Src     int    `json:"src"`
	Dst     int    `json:"dst"`
	Dropped bool   `json:"dropped"`
	Dir     string `json:"dir"`
}

// DebugLine is one line of the debug NDJSON stream.
type DebugLine struct {
	Tick int    `json:"tick"`
	UID  int    `json:"uid"`
	Msg  string `json:"msg"`
}

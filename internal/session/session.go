// Package session bridges the relay's raw byte stream to the markup parser.
//
// The bridge owns the connection's parser instance, repairs UTF-8 sequences
// split across chunk boundaries, and accumulates parsed tags for polling
// consumers. Consumers inspect with Accumulated (non-destructive) and
// consume with Drain, which takes and clears atomically; polling never
// implicitly destroys data.
package session

import (
	"context"
	"io"
	"sync"
	"unicode/utf8"

	"pkt.systems/pslog"

	"github.com/embermud/ember/internal/markup"
)

// DefaultAccumulatorCap bounds how many parsed tags are retained between
// polls. Overflow evicts oldest-first so a slow consumer costs memory, not
// correctness.
const DefaultAccumulatorCap = 10000

// ChunkSource delivers raw byte chunks from the transport. The channel
// closes when the transport ends; the bridge does not reconnect.
type ChunkSource interface {
	Chunks() <-chan []byte
}

// Session consumes one ChunkSource for the lifetime of one connection.
type Session struct {
	source ChunkSource
	log    pslog.Logger

	mu      sync.Mutex
	parser  *markup.Parser
	pending []byte // trailing bytes of a UTF-8 rune split at a chunk boundary
	acc     []*markup.Tag
	accCap  int
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New builds a session around source. A nil logger discards output.
func New(source ChunkSource, logger pslog.Logger) *Session {
	if logger == nil {
		logger = pslog.NewWithOptions(io.Discard, pslog.Options{})
	}
	return &Session{
		source: source,
		log:    logger,
		parser: markup.NewParser(logger),
		accCap: DefaultAccumulatorCap,
	}
}

// SetAccumulatorCap overrides the tag accumulator bound. Values below 1 keep
// the default. Must be called before Start.
func (s *Session) SetAccumulatorCap(cap int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cap >= 1 {
		s.accCap = cap
	}
}

// Start launches the ingestion loop. Calling Start while already running is
// a no-op; the loop is started at most once per run.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.ingest(runCtx, s.done)
}

// Stop cancels the ingestion loop and waits for it to observe the
// cancellation. Safe to call repeatedly or when never started.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// Running reports whether the ingestion loop is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Accumulated returns a copy of the tags parsed since the last clear.
func (s *Session) Accumulated() []*markup.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.acc) == 0 {
		return nil
	}
	out := make([]*markup.Tag, len(s.acc))
	copy(out, s.acc)
	return out
}

// ClearAccumulated drops all accumulated tags. This is the only way tags
// leave the accumulator besides cap eviction and Drain.
func (s *Session) ClearAccumulated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acc = nil
}

// Drain takes every accumulated tag and empties the accumulator in one
// step. Tags parsed between a separate read and clear would be destroyed
// unread; the single-lock swap means anything not returned here is still
// there for the next call.
func (s *Session) Drain() []*markup.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	tags := s.acc
	s.acc = nil
	return tags
}

// ingest is the single goroutine that owns all stream-state mutation.
// Cancellation is observed between chunks; a chunk being parsed completes
// atomically before the loop exits.
func (s *Session) ingest(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(done)
	}()

	chunks := s.source.Chunks()
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-chunks:
			if !ok {
				s.log.Info("transport stream ended")
				return
			}
			s.consume(chunk)
		}
	}
}

// consume repairs chunk boundaries and feeds decoded text to the parser.
func (s *Session) consume(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := chunk
	if len(s.pending) > 0 {
		buf = append(s.pending, chunk...)
		s.pending = nil
	}

	text, rest := splitIncompleteRune(buf)
	if len(rest) > 0 {
		if plausibleRuneStart(rest) {
			s.pending = append([]byte(nil), rest...)
		} else {
			s.log.Warn("discarding invalid utf-8", "bytes", len(rest))
		}
	}
	if len(text) == 0 {
		return
	}

	tags := s.parser.Parse(string(text))
	if len(tags) == 0 {
		return
	}
	s.acc = append(s.acc, tags...)
	if excess := len(s.acc) - s.accCap; excess > 0 {
		s.acc = append([]*markup.Tag(nil), s.acc[excess:]...)
	}
}

// splitIncompleteRune splits buf into its longest prefix that ends on a
// valid rune boundary and whatever trails it. Invalid bytes in the interior
// are left to the decoder's replacement behavior; only the tail matters for
// boundary repair.
func splitIncompleteRune(buf []byte) (text, rest []byte) {
	if utf8.Valid(buf) {
		return buf, nil
	}
	// A rune is at most UTFMax bytes, so only the last few bytes can be
	// an incomplete trailing sequence.
	for back := 1; back <= utf8.UTFMax && back <= len(buf); back++ {
		cut := len(buf) - back
		if utf8.Valid(buf[cut:]) {
			break
		}
		if utf8.RuneStart(buf[cut]) {
			if utf8.Valid(buf[:cut]) {
				return buf[:cut], buf[cut:]
			}
			break
		}
	}
	// Genuinely malformed beyond a split rune; hand the caller the whole
	// tail so it can log and discard.
	return nil, buf
}

// plausibleRuneStart reports whether rest looks like the beginning of one
// multi-byte rune still waiting for its continuation bytes.
func plausibleRuneStart(rest []byte) bool {
	if len(rest) == 0 || len(rest) >= utf8.UTFMax {
		return false
	}
	if !utf8.RuneStart(rest[0]) || rest[0] < 0x80 {
		return false
	}
	for _, b := range rest[1:] {
		if utf8.RuneStart(b) {
			return false
		}
	}
	return true
}

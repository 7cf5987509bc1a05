package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/embermud/ember/internal/markup"
)

// fakeSource is a scripted ChunkSource.
type fakeSource struct {
	ch chan []byte
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan []byte, 64)}
}

func (f *fakeSource) Chunks() <-chan []byte { return f.ch }

func (f *fakeSource) send(b []byte) { f.ch <- b }

func (f *fakeSource) close() { close(f.ch) }

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSession_ParsesAcrossChunks(t *testing.T) {
	src := newFakeSource()
	s := New(src, nil)
	s.Start(context.Background())
	defer s.Stop()

	src.send([]byte("<room name="))
	src.send([]byte(`"Square">hello</room>`))

	waitFor(t, func() bool { return len(s.Accumulated()) == 1 }, "one tag")
	tags := s.Accumulated()
	if tags[0].Name != "room" || tags[0].Attr("name") != "Square" {
		t.Fatalf("tag = %+v, want room name=Square", tags[0])
	}
}

func TestSession_UTF8SplitAcrossChunks(t *testing.T) {
	// "é" is C3 A9; split between the two bytes.
	payload := []byte("<a>caf\xc3\xa9</a>")
	cut := 6 // inside the é

	src := newFakeSource()
	s := New(src, nil)
	s.Start(context.Background())
	defer s.Stop()

	src.send(payload[:cut])
	src.send(payload[cut:])

	waitFor(t, func() bool { return len(s.Accumulated()) == 1 }, "one tag")
	got := s.Accumulated()[0].FlattenText()
	if got != "café" {
		t.Fatalf("text = %q, want café", got)
	}
}

func TestSession_FourByteRuneSplit(t *testing.T) {
	payload := []byte("<a>\xf0\x9f\x98\x80</a>") // 😀
	src := newFakeSource()
	s := New(src, nil)
	s.Start(context.Background())
	defer s.Stop()

	// Deliver the rune one byte at a time.
	for _, b := range payload {
		src.send([]byte{b})
	}

	waitFor(t, func() bool { return len(s.Accumulated()) == 1 }, "one tag")
	if got := s.Accumulated()[0].FlattenText(); got != "😀" {
		t.Fatalf("text = %q, want 😀", got)
	}
}

func TestSession_InvalidUTF8Discarded(t *testing.T) {
	src := newFakeSource()
	s := New(src, nil)
	s.Start(context.Background())
	defer s.Stop()

	// A complete-but-invalid sequence must be dropped, not buffered, and
	// ingestion must continue.
	src.send([]byte("\xf0\x80\x80\x80"))
	src.send([]byte("<ok/>"))

	waitFor(t, func() bool { return len(s.Accumulated()) == 1 }, "recovery tag")
	if s.Accumulated()[0].Name != "ok" {
		t.Fatalf("tag = %+v, want ok", s.Accumulated()[0])
	}
}

func TestSession_DrainKeepsTagsParsedAfterInspection(t *testing.T) {
	src := newFakeSource()
	s := New(src, nil)
	s.Start(context.Background())
	defer s.Stop()

	src.send([]byte("<a>one</a>"))
	waitFor(t, func() bool { return len(s.Accumulated()) == 1 }, "first tag")

	// A consumer has looked at the accumulator but not consumed it yet when
	// more output arrives.
	seen := s.Accumulated()
	src.send([]byte("<b>two</b>"))
	waitFor(t, func() bool { return len(s.Accumulated()) == 2 }, "second tag")

	if len(seen) != 1 {
		t.Fatalf("inspection saw %d tags, want 1", len(seen))
	}
	taken := s.Drain()
	if len(taken) != 2 {
		t.Fatalf("drain returned %d tags, want both; the late tag was lost", len(taken))
	}
	if taken[0].Name != "a" || taken[1].Name != "b" {
		t.Fatalf("drained tags = %q, %q, want a then b", taken[0].Name, taken[1].Name)
	}
	if left := s.Accumulated(); left != nil {
		t.Fatalf("accumulator holds %d tags after drain, want none", len(left))
	}
}

func TestSession_DrainEmptyReturnsNil(t *testing.T) {
	s := New(newFakeSource(), nil)
	if got := s.Drain(); got != nil {
		t.Fatalf("Drain on empty accumulator = %v, want nil", got)
	}
}

func TestSession_ReadIsNonDestructive(t *testing.T) {
	src := newFakeSource()
	s := New(src, nil)
	s.Start(context.Background())
	defer s.Stop()

	src.send([]byte("<a/><b/>"))
	waitFor(t, func() bool { return len(s.Accumulated()) == 2 }, "two tags")

	first := s.Accumulated()
	second := s.Accumulated()
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("reads = %d, %d; want 2, 2", len(first), len(second))
	}

	s.ClearAccumulated()
	if got := s.Accumulated(); got != nil {
		t.Fatalf("after clear = %v, want nil", got)
	}
}

func TestSession_AccumulatorEviction(t *testing.T) {
	src := newFakeSource()
	s := New(src, nil)
	s.SetAccumulatorCap(5)
	s.Start(context.Background())
	defer s.Stop()

	for i := 0; i < 8; i++ {
		src.send([]byte(fmt.Sprintf(`<t n="%d"/>`, i)))
	}

	waitFor(t, func() bool {
		tags := s.Accumulated()
		return len(tags) == 5 && tags[4].Attr("n") == "7"
	}, "evicted accumulator")

	tags := s.Accumulated()
	if tags[0].Attr("n") != "3" {
		t.Fatalf("oldest retained = %q, want 3", tags[0].Attr("n"))
	}
}

func TestSession_StartIsIdempotent(t *testing.T) {
	src := newFakeSource()
	s := New(src, nil)

	ctx := context.Background()
	s.Start(ctx)
	s.Start(ctx)
	s.Start(ctx)

	if !s.Running() {
		t.Fatal("Running() = false after Start")
	}
	s.Stop()
	s.Stop() // must also be idempotent
	if s.Running() {
		t.Fatal("Running() = true after Stop")
	}
}

func TestSession_StreamEndStopsLoop(t *testing.T) {
	src := newFakeSource()
	s := New(src, nil)
	s.Start(context.Background())

	src.send([]byte("<a/>"))
	src.close()

	waitFor(t, func() bool { return !s.Running() }, "loop exit on EOF")
	// Accumulator stays readable after the stream ends.
	if len(s.Accumulated()) != 1 {
		t.Fatalf("accumulated = %d, want 1", len(s.Accumulated()))
	}
}

func TestSession_ChannelStateSurvivesBetweenChunks(t *testing.T) {
	src := newFakeSource()
	s := New(src, nil)
	s.Start(context.Background())
	defer s.Stop()

	src.send([]byte(`<pushStream id="deaths"/>`))
	src.send([]byte(`<a>gone</a>`))
	src.send([]byte(`<popStream/>`))

	waitFor(t, func() bool { return len(s.Accumulated()) >= 3 }, "three tags")
	var inner *markup.Tag
	for _, tag := range s.Accumulated() {
		if tag.Name == "a" {
			inner = tag
		}
	}
	if inner == nil || inner.Channel != "deaths" {
		t.Fatalf("inner = %+v, want channel deaths", inner)
	}
}

func TestSplitIncompleteRune(t *testing.T) {
	tests := []struct {
		name     string
		buf      []byte
		wantText string
		wantRest int
	}{
		{"all valid", []byte("hello"), "hello", 0},
		{"split two-byte", []byte("ab\xc3"), "ab", 1},
		{"split three-byte", []byte("ab\xe2\x80"), "ab", 2},
		{"split four-byte", []byte("ab\xf0\x9f\x98"), "ab", 3},
		{"lone partial", []byte("\xc3"), "", 1},
		{"interior garbage", []byte("a\xffb"), "", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, rest := splitIncompleteRune(tt.buf)
			if string(text) != tt.wantText {
				t.Fatalf("text = %q, want %q", text, tt.wantText)
			}
			if len(rest) != tt.wantRest {
				t.Fatalf("rest = %d bytes, want %d", len(rest), tt.wantRest)
			}
		})
	}
}

// Package stream keeps the client's scrollback: one bounded buffer per
// logical output channel, with unread counters and a chronological merged
// view across any subset of channels.
package stream

import (
	"container/heap"
	"sort"
	"sync"
)

// DefaultChannelCap is the per-channel entry bound.
const DefaultChannelCap = 10000

// channelBuffer holds one channel's entries in append (= chronological)
// order. Eviction removes strictly from the front. The unread counter is
// independent of eviction: an evicted-but-never-read message stays counted.
type channelBuffer struct {
	entries []Message
	unread  int
}

// Buffer is the multi-channel message store. Safe for concurrent use.
type Buffer struct {
	mu       sync.Mutex
	cap      int
	seq      uint64
	channels map[string]*channelBuffer
}

// NewBuffer returns a buffer with the given per-channel cap; values below 1
// use DefaultChannelCap.
func NewBuffer(cap int) *Buffer {
	if cap < 1 {
		cap = DefaultChannelCap
	}
	return &Buffer{
		cap:      cap,
		channels: make(map[string]*channelBuffer),
	}
}

// Append stores msg on its channel, evicting the oldest entries when the
// cap would be exceeded. The channel's unread counter always increments,
// whether or not any view is watching.
func (b *Buffer) Append(msg Message) {
	if msg.Channel == "" {
		msg.Channel = MainChannel
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	msg.seq = b.seq

	cb := b.channels[msg.Channel]
	if cb == nil {
		cb = &channelBuffer{}
		b.channels[msg.Channel] = cb
	}
	cb.entries = append(cb.entries, msg)
	if excess := len(cb.entries) - b.cap; excess > 0 {
		cb.entries = append([]Message(nil), cb.entries[excess:]...)
	}
	cb.unread++
}

// Len returns the entry count for a channel.
func (b *Buffer) Len(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb := b.channels[channel]; cb != nil {
		return len(cb.entries)
	}
	return 0
}

// Unread returns the channel's unread counter.
func (b *Buffer) Unread(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb := b.channels[channel]; cb != nil {
		return cb.unread
	}
	return 0
}

// ClearUnread zeroes the unread counters for exactly the named channels.
func (b *Buffer) ClearUnread(channels ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, name := range channels {
		if cb := b.channels[name]; cb != nil {
			cb.unread = 0
		}
	}
}

// Channels lists the channel ids seen so far, sorted.
func (b *Buffer) Channels() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.channels))
	for name := range b.channels {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Merged returns the named channels' entries merged oldest-first. Each
// channel's list is already chronological, so this is a k-way heap merge;
// equal timestamps tie-break on insertion sequence.
func (b *Buffer) Merged(channels ...string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	var h mergeHeap
	total := 0
	seen := make(map[string]bool, len(channels))
	for _, name := range channels {
		if seen[name] {
			continue
		}
		seen[name] = true
		cb := b.channels[name]
		if cb == nil || len(cb.entries) == 0 {
			continue
		}
		h = append(h, mergeCursor{entries: cb.entries})
		total += len(cb.entries)
	}
	if total == 0 {
		return nil
	}

	heap.Init(&h)
	out := make([]Message, 0, total)
	for h.Len() > 0 {
		cur := &h[0]
		out = append(out, cur.entries[cur.pos])
		cur.pos++
		if cur.pos == len(cur.entries) {
			heap.Pop(&h)
		} else {
			heap.Fix(&h, 0)
		}
	}
	return out
}

// mergeCursor walks one channel's entry list during a merge.
type mergeCursor struct {
	entries []Message
	pos     int
}

func (c mergeCursor) head() Message { return c.entries[c.pos] }

type mergeHeap []mergeCursor

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	a, b := h[i].head(), h[j].head()
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.seq < b.seq
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) { *h = append(*h, x.(mergeCursor)) }

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

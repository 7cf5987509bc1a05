package stream

import (
	"time"

	"github.com/google/uuid"

	"github.com/embermud/ember/internal/markup"
)

// MainChannel is where output without a routing channel lands.
const MainChannel = "main"

// Message is one rendered line (or block) of game output. Immutable after
// creation; the styled text is opaque to this package.
type Message struct {
	ID        string
	Timestamp time.Time
	Text      string
	Channel   string
	Source    []*markup.Tag

	// seq is the buffer-assigned insertion sequence, used as the stable
	// tie-break for equal timestamps in merged views.
	seq uint64
}

// NewMessage builds a message stamped now.
func NewMessage(channel, text string, source []*markup.Tag) Message {
	if channel == "" {
		channel = MainChannel
	}
	return Message{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Text:      text,
		Channel:   channel,
		Source:    source,
	}
}

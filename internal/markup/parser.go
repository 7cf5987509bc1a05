package markup

import (
	"io"
	"strings"

	"pkt.systems/pslog"
)

// maxTagLength bounds how much unterminated tag text may be carried across
// chunk boundaries before it is demoted to literal text. A stray "<" in game
// output must not buffer the rest of the session.
const maxTagLength = 4096

// Parser consumes arbitrary chunks of the relay's markup stream and emits
// the top-level tags that completed during each call. Open tags, buffered
// character data, the current routing channel, and any unterminated tag text
// all persist across calls, so a tag opened in one chunk may close fifty
// chunks later.
//
// A Parser maps 1:1 to one connection and is not safe for concurrent use.
type Parser struct {
	stack   []*Tag
	channel string
	pending strings.Builder
	carry   string

	log pslog.Logger
}

// NewParser returns a parser that logs data-level faults to logger.
func NewParser(logger pslog.Logger) *Parser {
	if logger == nil {
		logger = pslog.NewWithOptions(io.Discard, pslog.Options{})
	}
	return &Parser{log: logger}
}

// Channel returns the routing channel currently in effect, or "".
func (p *Parser) Channel() string {
	return p.channel
}

// Depth returns how many tags are currently open.
func (p *Parser) Depth() int {
	return len(p.stack)
}

// Reset discards all stream state. Only for explicit teardown (reconnect);
// resetting mid-stream would misattribute subsequent output.
func (p *Parser) Reset() {
	p.stack = nil
	p.channel = ""
	p.pending.Reset()
	p.carry = ""
}

// Parse consumes one chunk and returns the top-level tags that became fully
// closed during this call. The chunk need not be well-formed on its own.
// Parse never fails: malformed spans are logged and skipped. Parse("") is
// legal and returns nil without side effects.
func (p *Parser) Parse(chunk string) []*Tag {
	if chunk == "" {
		return nil
	}

	input := p.carry + chunk
	p.carry = ""

	tokens, carry, bad := tokenize(input)
	for _, span := range bad {
		p.log.Warn("skipping malformed markup", "token", truncateToken(span))
	}

	var results []*Tag
	for _, tok := range tokens {
		switch tok.kind {
		case tokenText:
			p.pending.WriteString(tok.text)
		case tokenStart:
			p.handleStart(tok, &results)
		case tokenEnd:
			p.handleEnd(tok.name, &results)
		}
	}

	if len(carry) > maxTagLength {
		// Too long to be a real tag; treat the whole span as text.
		p.log.Warn("oversized tag span demoted to text", "len", len(carry))
		p.pending.WriteString(carry)
	} else {
		p.carry = carry
	}
	return results
}

// handleStart flushes pending text, pushes the new tag, then applies any
// routing directive. Directives take effect after the push so the directive
// tag itself is attributed to the prior channel.
func (p *Parser) handleStart(tok token, results *[]*Tag) {
	p.flushPending(results)

	tag := NewTag(tok.name, tok.attrs)
	tag.Channel = p.channel

	if tok.selfClosing {
		tag.State = TagClosed
		p.deliver(tag, results)
	} else {
		p.stack = append(p.stack, tag)
	}

	switch directiveFor(tok.name) {
	case DirectivePush:
		p.channel = tag.Attr(channelAttr)
	case DirectivePop:
		p.channel = ""
	}
}

// handleEnd closes the innermost open tag. An end tag with no matching open
// is malformed and skipped, with one exception: the push directive's end tag
// acts as a channel pop even when its start was self-closing, because the
// relay closes streams that way.
func (p *Parser) handleEnd(name string, results *[]*Tag) {
	idx := p.findOpen(name)
	if idx < 0 {
		if directiveFor(name) == DirectivePush {
			// Flush first: buffered text still belongs to the
			// channel being popped.
			p.flushPending(results)
			p.channel = ""
			return
		}
		p.log.Warn("end tag without matching open", "name", name)
		return
	}

	// Close everything above the matched tag too; the relay occasionally
	// drops inner end tags.
	for len(p.stack) > idx {
		p.closeTop(results)
	}
}

// closeTop flushes pending text into the top-of-stack tag, pops it, marks it
// closed, and delivers it to its parent or to the result list.
func (p *Parser) closeTop(results *[]*Tag) {
	p.flushPending(results)

	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	top.State = TagClosed
	p.deliver(top, results)

	if directiveFor(top.Name) == DirectivePush {
		p.channel = ""
	}
}

// deliver routes a closed tag to the current top-of-stack as a child, or to
// the result list when it is top-level.
func (p *Parser) deliver(tag *Tag, results *[]*Tag) {
	if top := p.top(); top != nil {
		top.addChild(tag)
		return
	}
	*results = append(*results, tag)
}

// flushPending attaches accumulated character data to the current top of
// stack as a synthetic text child. With an empty stack, non-whitespace text
// becomes a top-level text run; pure whitespace between elements is layout
// noise and is dropped. Entities decode here, on the whole run, so a
// reference split across chunk boundaries decodes the same as one that
// arrived intact.
func (p *Parser) flushPending(results *[]*Tag) {
	if p.pending.Len() == 0 {
		return
	}
	text := decodeEntities(p.pending.String())
	p.pending.Reset()

	if top := p.top(); top != nil {
		top.addChild(NewText(text, p.channel))
		return
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	*results = append(*results, NewText(text, p.channel))
}

func (p *Parser) top() *Tag {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

// findOpen returns the stack index of the innermost open tag with the given
// name, or -1.
func (p *Parser) findOpen(name string) int {
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i].Name == name {
			return i
		}
	}
	return -1
}

func truncateToken(s string) string {
	const max = 64
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

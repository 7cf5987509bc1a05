// Package render is the consumer between the parsed tag stream and the UI:
// it turns completed tags into styled scrollback messages and extracts the
// status updates that drive the header widgets.
package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/embermud/ember/internal/markup"
	"github.com/embermud/ember/internal/stream"
)

// Renderer converts tags using one theme. Not safe for concurrent use; the
// UI owns it.
type Renderer struct {
	styles Styles
}

// NewRenderer builds a renderer for the named theme.
func NewRenderer(themeName string) *Renderer {
	return &Renderer{styles: GetTheme(themeName).Styles()}
}

// SetTheme swaps the active theme.
func (r *Renderer) SetTheme(themeName string) {
	r.styles = GetTheme(themeName).Styles()
}

// Convert walks completed top-level tags and produces scrollback messages
// and widget updates. Routing directives and status-only tags render no
// message; everything else becomes one message on the tag's channel.
func (r *Renderer) Convert(tags []*markup.Tag) ([]stream.Message, []StatusUpdate) {
	var msgs []stream.Message
	var updates []StatusUpdate

	for _, tag := range tags {
		if isDirectiveTag(tag.Name) {
			continue
		}
		if isStatusTag(tag.Name) {
			updates = append(updates, extractStatus(tag)...)
			continue
		}
		text := r.renderTag(tag)
		if strings.TrimSpace(text) == "" {
			continue
		}
		msgs = append(msgs, stream.NewMessage(tag.Channel, text, []*markup.Tag{tag}))
	}
	return msgs, updates
}

// isDirectiveTag matches the routing vocabulary, which carries no content of
// its own.
func isDirectiveTag(name string) bool {
	return name == "pushStream" || name == "popStream"
}

// renderTag flattens a tag subtree into styled text.
func (r *Renderer) renderTag(tag *markup.Tag) string {
	return r.renderStyled(tag, r.styleFor(tag))
}

func (r *Renderer) renderStyled(tag *markup.Tag, style lipgloss.Style) string {
	if tag.IsText() {
		return style.Render(tag.Text)
	}

	var b strings.Builder
	if tag.Text != "" {
		b.WriteString(style.Render(tag.Text))
	}
	for _, child := range tag.Children {
		childStyle := style
		if !child.IsText() {
			childStyle = r.styleForNested(child, style)
		}
		b.WriteString(r.renderStyled(child, childStyle))
	}
	return b.String()
}

// styleFor picks a style for a top-level tag.
func (r *Renderer) styleFor(tag *markup.Tag) lipgloss.Style {
	switch tag.Name {
	case "preset", "style":
		return r.styles.PresetStyle(tag.Attr("id"))
	case "b", "monsterbold":
		return r.styles.Bold
	case "output":
		if strings.Contains(tag.Attr("class"), "mono") {
			return r.styles.FaintText
		}
		return r.styles.Text
	case markup.TextName:
		// Bare text on a routed channel keeps the channel's voice.
		if tag.Channel != "" {
			return r.styles.PresetStyle(channelPreset(tag.Channel))
		}
		return r.styles.Text
	default:
		return r.styles.Text
	}
}

// styleForNested styles a child element, inheriting the parent style when
// the child has no styling of its own.
func (r *Renderer) styleForNested(tag *markup.Tag, parent lipgloss.Style) lipgloss.Style {
	switch tag.Name {
	case "preset", "style":
		return r.styles.PresetStyle(tag.Attr("id"))
	case "b", "monsterbold":
		return r.styles.Bold
	default:
		return parent
	}
}

// channelPreset maps routing channels to preset voices where the protocol
// uses matching names.
func channelPreset(channel string) string {
	switch channel {
	case "thoughts":
		return "thought"
	case "death":
		return "death"
	case "speech", "talk":
		return "speech"
	case "whispers":
		return "whisper"
	default:
		return ""
	}
}

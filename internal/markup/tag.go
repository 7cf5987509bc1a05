package markup

// TextName is the reserved synthetic name for raw text runs that arrive
// outside any element.
const TextName = "#text"

// TagState tracks whether an element's closing marker has arrived yet.
type TagState int

const (
	// TagOpen means the start tag was seen but the end tag has not arrived.
	// Only the parser's in-progress stack holds open tags; everything
	// returned to callers is closed.
	TagOpen TagState = iota
	// TagClosed means the element is fully materialized, children included.
	TagClosed
)

// Tag is one parsed markup element. Tags are built by the parser and treated
// as immutable once returned.
type Tag struct {
	Name     string
	Text     string
	Attrs    map[string]string
	Children []*Tag
	State    TagState

	// Channel is the routing channel that was active when this tag was
	// parsed. It comes from parser state, not from the tag's own markup.
	// Empty means no channel.
	Channel string
}

// NewTag returns an open tag with the given name and attributes.
func NewTag(name string, attrs map[string]string) *Tag {
	return &Tag{Name: name, Attrs: attrs, State: TagOpen}
}

// NewText returns a closed synthetic text-run tag.
func NewText(text, channel string) *Tag {
	return &Tag{Name: TextName, Text: text, State: TagClosed, Channel: channel}
}

// IsText reports whether the tag is a synthetic text run.
func (t *Tag) IsText() bool {
	return t.Name == TextName
}

// Attr returns the named attribute value, or "" when absent.
func (t *Tag) Attr(name string) string {
	if t.Attrs == nil {
		return ""
	}
	return t.Attrs[name]
}

// FlattenText concatenates the tag's own text and all descendant text in
// document order.
func (t *Tag) FlattenText() string {
	if len(t.Children) == 0 {
		return t.Text
	}
	out := t.Text
	for _, child := range t.Children {
		out += child.FlattenText()
	}
	return out
}

// addChild appends a closed child in document order.
func (t *Tag) addChild(child *Tag) {
	t.Children = append(t.Children, child)
}

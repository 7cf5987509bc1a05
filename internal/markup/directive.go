package markup

// Directive classifies the tag names that carry routing instructions. All
// other names pass through as plain structural elements.
type Directive int

const (
	DirectiveNone Directive = iota
	// DirectivePush selects a routing channel. The channel id comes from
	// the tag's designated attribute.
	DirectivePush
	// DirectivePop clears the routing channel.
	DirectivePop
)

const (
	pushTagName = "pushStream"
	popTagName  = "popStream"

	// channelAttr names the attribute on a push directive whose value
	// becomes the new routing channel.
	channelAttr = "id"
)

// directives is the closed vocabulary of routing tag names. Resolved once
// per start-tag event; everything absent is DirectiveNone.
var directives = map[string]Directive{
	pushTagName: DirectivePush,
	popTagName:  DirectivePop,
}

// directiveFor returns the routing role of a tag name.
func directiveFor(name string) Directive {
	return directives[name]
}

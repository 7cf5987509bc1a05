package markup

import "strings"

// tokenKind discriminates tokenizer output.
type tokenKind int

const (
	tokenText tokenKind = iota
	tokenStart
	tokenEnd
)

// token is one tokenizer event. Text tokens carry raw character data; the
// parser decodes entities only when a full text run is flushed, so an entity
// reference split across chunks decodes once it is whole. Start tokens carry
// the attribute map and a self-closing flag.
type token struct {
	kind        tokenKind
	name        string
	attrs       map[string]string
	selfClosing bool
	text        string
}

// tokenize scans input into tokens. An unterminated trailing tag is returned
// as carry so the caller can prepend it to the next chunk. Unparseable tag
// spans are reported in bad and skipped; scanning always continues.
func tokenize(input string) (tokens []token, carry string, bad []string) {
	pos := 0
	for pos < len(input) {
		lt := strings.IndexByte(input[pos:], '<')
		if lt < 0 {
			tokens = appendText(tokens, input[pos:])
			break
		}
		lt += pos
		if lt > pos {
			tokens = appendText(tokens, input[pos:lt])
		}

		rest := input[lt:]
		if len(rest) == 1 {
			// Bare trailing "<": could be the start of a tag split
			// at the chunk boundary.
			carry = rest
			break
		}
		next := rest[1]
		if next != '/' && next != '!' && next != '?' && !isNameStart(next) {
			// "<" that cannot open a tag is literal text.
			tokens = appendText(tokens, "<")
			pos = lt + 1
			continue
		}

		gt := findTagEnd(rest)
		if gt < 0 {
			carry = rest
			break
		}
		body := rest[1:gt]
		pos = lt + gt + 1

		switch {
		case next == '!' || next == '?':
			// Comments and processing instructions are dropped.
		case next == '/':
			name := strings.TrimSpace(body[1:])
			if !isValidName(name) {
				bad = append(bad, "</"+body[1:]+">")
				continue
			}
			tokens = append(tokens, token{kind: tokenEnd, name: name})
		default:
			tok, ok := parseStartTag(body)
			if !ok {
				bad = append(bad, "<"+body+">")
				continue
			}
			tokens = append(tokens, tok)
		}
	}
	return tokens, carry, bad
}

func appendText(tokens []token, raw string) []token {
	if raw == "" {
		return tokens
	}
	return append(tokens, token{kind: tokenText, text: raw})
}

// parseStartTag parses the inside of <...>, attributes included.
func parseStartTag(body string) (token, bool) {
	selfClosing := false
	if strings.HasSuffix(body, "/") {
		selfClosing = true
		body = body[:len(body)-1]
	}

	i := 0
	for i < len(body) && !isSpace(body[i]) {
		i++
	}
	name := body[:i]
	if !isValidName(name) {
		return token{}, false
	}

	tok := token{kind: tokenStart, name: name, selfClosing: selfClosing}
	rest := body[i:]
	for {
		rest = strings.TrimLeft(rest, " \t\r\n")
		if rest == "" {
			break
		}
		key, value, remainder, ok := parseAttr(rest)
		if !ok {
			return token{}, false
		}
		if tok.attrs == nil {
			tok.attrs = make(map[string]string)
		}
		// Duplicate keys are last-write-wins.
		tok.attrs[key] = value
		rest = remainder
	}
	return tok, true
}

// parseAttr consumes one attribute from the front of s. Values may be
// double-quoted, single-quoted, unquoted, or absent (bare flag).
func parseAttr(s string) (key, value, rest string, ok bool) {
	i := 0
	for i < len(s) && s[i] != '=' && !isSpace(s[i]) {
		i++
	}
	key = s[:i]
	if !isValidName(key) {
		return "", "", "", false
	}
	s = strings.TrimLeft(s[i:], " \t\r\n")
	if s == "" || s[0] != '=' {
		return key, "", s, true
	}
	s = strings.TrimLeft(s[1:], " \t\r\n")
	if s == "" {
		return key, "", "", true
	}
	if s[0] == '"' || s[0] == '\'' {
		quote := s[0]
		end := strings.IndexByte(s[1:], quote)
		if end < 0 {
			return "", "", "", false
		}
		return key, decodeEntities(s[1 : end+1]), s[end+2:], true
	}
	end := 0
	for end < len(s) && !isSpace(s[end]) {
		end++
	}
	return key, decodeEntities(s[:end]), s[end:], true
}

// findTagEnd locates the closing '>' of a tag, honoring quoted attribute
// values that may themselves contain '>'.
func findTagEnd(s string) int {
	var quote byte
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return i
		}
	}
	return -1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameByte(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9') || c == '-' || c == '.' || c == ':'
}

func isValidName(name string) bool {
	if name == "" || !isNameStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isNameByte(name[i]) {
			return false
		}
	}
	return true
}

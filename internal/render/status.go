package render

import (
	"strconv"
	"strings"
	"time"

	"github.com/embermud/ember/internal/markup"
)

// StatusKind identifies which widget a StatusUpdate feeds.
type StatusKind int

const (
	StatusVital StatusKind = iota
	StatusRoundtime
	StatusCastTime
	StatusPrompt
	StatusLeftHand
	StatusRightHand
	StatusSpell
	StatusRoomName
	StatusCompass
)

// StatusUpdate is one extracted widget change. Interpretation of the fields
// depends on Kind: vitals use Key/Percent, roundtimes use Until, the rest
// use Value.
type StatusUpdate struct {
	Kind    StatusKind
	Key     string
	Value   string
	Percent int
	Until   time.Time
}

// statusTags names the elements that feed widgets instead of scrollback.
var statusTags = map[string]bool{
	"progressBar":  true,
	"dialogData":   true,
	"roundTime":    true,
	"castTime":     true,
	"prompt":       true,
	"left":         true,
	"right":        true,
	"spell":        true,
	"compass":      true,
	"streamWindow": true,
}

// isStatusTag reports whether a tag is status-only (renders no message).
func isStatusTag(name string) bool {
	return statusTags[name]
}

// extractStatus converts a status tag (and its subtree) into updates.
func extractStatus(tag *markup.Tag) []StatusUpdate {
	switch tag.Name {
	case "dialogData":
		// Container of progressBars and other status children.
		var out []StatusUpdate
		for _, child := range tag.Children {
			out = append(out, extractStatus(child)...)
		}
		return out
	case "progressBar":
		id := tag.Attr("id")
		if id == "" {
			return nil
		}
		return []StatusUpdate{{
			Kind:    StatusVital,
			Key:     id,
			Value:   tag.Attr("text"),
			Percent: parsePercent(tag.Attr("value")),
		}}
	case "roundTime":
		return []StatusUpdate{{Kind: StatusRoundtime, Until: parseUnix(tag.Attr("value"))}}
	case "castTime":
		return []StatusUpdate{{Kind: StatusCastTime, Until: parseUnix(tag.Attr("value"))}}
	case "prompt":
		return []StatusUpdate{{Kind: StatusPrompt, Value: strings.TrimSpace(tag.FlattenText())}}
	case "left":
		return []StatusUpdate{{Kind: StatusLeftHand, Value: strings.TrimSpace(tag.FlattenText())}}
	case "right":
		return []StatusUpdate{{Kind: StatusRightHand, Value: strings.TrimSpace(tag.FlattenText())}}
	case "spell":
		return []StatusUpdate{{Kind: StatusSpell, Value: strings.TrimSpace(tag.FlattenText())}}
	case "streamWindow":
		if tag.Attr("id") != "room" {
			return nil
		}
		name := strings.TrimPrefix(strings.TrimSpace(tag.Attr("subtitle")), "- ")
		return []StatusUpdate{{Kind: StatusRoomName, Value: name}}
	case "compass":
		var dirs []string
		for _, child := range tag.Children {
			if child.Name == "dir" && child.Attr("value") != "" {
				dirs = append(dirs, child.Attr("value"))
			}
		}
		return []StatusUpdate{{Kind: StatusCompass, Value: strings.Join(dirs, " ")}}
	}
	return nil
}

// parsePercent reads values like "80" or "80/100".
func parsePercent(raw string) int {
	raw = strings.TrimSpace(raw)
	if slash := strings.IndexByte(raw, '/'); slash >= 0 {
		raw = raw[:slash]
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// parseUnix reads an epoch-seconds attribute.
func parseUnix(raw string) time.Time {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}
	}
	return time.Unix(n, 0)
}

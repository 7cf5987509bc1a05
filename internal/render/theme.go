package render

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the palette for rendered game output.
type Theme struct {
	Name string

	// Base text colors
	Text  string
	Muted string
	Faint string

	// Widget colors
	Accent  string
	Success string
	Warning string
	Danger  string

	// PresetColors maps the protocol's preset/style ids (speech, whisper,
	// roomName, ...) to colors.
	PresetColors map[string]string
}

// Styles returns the pre-built lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		MutedText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		FaintText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint)),
		AccentText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)),
		SuccessText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Success)).Bold(true),
		WarningText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		DangerText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Danger)).Bold(true),

		Bold: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)).Bold(true),

		presetColors: t.PresetColors,
		text:         t.Text,
	}
}

// Styles contains pre-built lipgloss styles for a theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	Bold        lipgloss.Style

	presetColors map[string]string
	text         string
}

// PresetStyle returns the style for a protocol preset id, falling back to
// plain text for unknown presets.
func (s Styles) PresetStyle(preset string) lipgloss.Style {
	color := s.presetColors[preset]
	if color == "" {
		color = s.text
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
	if preset == "monsterbold" || preset == "roomName" {
		style = style.Bold(true)
	}
	return style
}

// Theme definitions

var themes = map[string]Theme{
	"Dracula": draculaTheme(),
	"Slate":   slateTheme(),
}

var themeOrder = []string{"Dracula", "Slate"}

// GetTheme returns a theme by name.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return draculaTheme()
}

// NextTheme returns the next theme name in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

func draculaTheme() Theme {
	return Theme{
		Name:    "Dracula",
		Text:    "#F8F8F2",
		Muted:   "#6272A4",
		Faint:   "#44475A",
		Accent:  "#BD93F9",
		Success: "#50FA7B",
		Warning: "#F1FA8C",
		Danger:  "#FF5555",
		PresetColors: map[string]string{
			"speech":      "#8BE9FD",
			"whisper":     "#FF79C6",
			"thought":     "#BD93F9",
			"death":       "#FF5555",
			"roomName":    "#F1FA8C",
			"roomDesc":    "#F8F8F2",
			"monsterbold": "#FFB86C",
			"echo":        "#6272A4",
			"prompt":      "#44475A",
		},
	}
}

func slateTheme() Theme {
	return Theme{
		Name:    "Slate",
		Text:    "#D8DEE9",
		Muted:   "#616E88",
		Faint:   "#4C566A",
		Accent:  "#81A1C1",
		Success: "#A3BE8C",
		Warning: "#EBCB8B",
		Danger:  "#BF616A",
		PresetColors: map[string]string{
			"speech":      "#88C0D0",
			"whisper":     "#B48EAD",
			"thought":     "#81A1C1",
			"death":       "#BF616A",
			"roomName":    "#EBCB8B",
			"roomDesc":    "#D8DEE9",
			"monsterbold": "#D08770",
			"echo":        "#616E88",
			"prompt":      "#4C566A",
		},
	}
}

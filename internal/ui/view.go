package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/embermud/ember/internal/state"
)

// vitalOrder fixes the gauge layout; unknown vitals append after these.
var vitalOrder = []string{"health", "mana", "stamina", "spirit"}

// View renders header, tab line, scrollback, and the command input.
func (m Model) View() string {
	if !m.ready {
		return "starting..."
	}
	return strings.Join([]string{
		m.renderHeader(),
		m.renderTabs(),
		m.viewport.View(),
		m.input.View(),
	}, "\n")
}

func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	snap := m.opts.Status.Snapshot()

	left := styles.DangerText.Render("● offline")
	if snap.Connected {
		left = styles.SuccessText.Render("● connected")
	}
	if snap.RoomName != "" {
		left += "  " + styles.AccentText.Render(snap.RoomName)
	}
	if snap.Exits != "" {
		left += "  " + styles.MutedText.Render("["+snap.Exits+"]")
	}

	right := m.renderRoundtime(snap)
	line1 := padBetween(left, right, m.width)

	var parts []string
	for _, key := range vitalOrder {
		if pct, ok := snap.Vitals[key]; ok {
			parts = append(parts, m.renderGauge(key, pct))
		}
	}
	if snap.LeftHand != "" || snap.RightHand != "" {
		parts = append(parts, styles.MutedText.Render(
			fmt.Sprintf("L: %s  R: %s", orEmpty(snap.LeftHand), orEmpty(snap.RightHand))))
	}
	if snap.Spell != "" {
		parts = append(parts, styles.AccentText.Render("✦ "+snap.Spell))
	}
	if snap.LastError != "" {
		parts = append(parts, styles.DangerText.Render("! "+snap.LastError))
	}
	line2 := strings.Join(parts, "  ")

	return line1 + "\n" + truncateLine(line2, m.width)
}

func (m Model) renderRoundtime(snap state.Status) string {
	now := time.Now()
	styles := m.theme.Styles()
	if snap.InRoundtime(now) {
		secs := int(snap.RoundtimeLeft(now).Seconds()) + 1
		return styles.DangerText.Render(fmt.Sprintf("RT %ds", secs))
	}
	if !snap.CastTime.IsZero() && snap.CastTime.After(now) {
		secs := int(snap.CastTime.Sub(now).Seconds()) + 1
		return styles.WarningText.Render(fmt.Sprintf("CT %ds", secs))
	}
	return styles.MutedText.Render(snap.Prompt)
}

// renderGauge draws one labeled vital bar, colored by how low it is.
func (m Model) renderGauge(name string, pct int) string {
	styles := m.theme.Styles()
	style := styles.SuccessText
	switch {
	case pct <= 25:
		style = styles.DangerText
	case pct <= 60:
		style = styles.WarningText
	}

	const cells = 10
	filled := pct * cells / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", cells-filled)
	return styles.MutedText.Render(name+" ") + style.Render(bar) + style.Render(fmt.Sprintf(" %3d%%", pct))
}

// renderTabs draws the view cycle with unread badges.
func (m Model) renderTabs() string {
	styles := m.theme.Styles()
	var parts []string
	for i, view := range m.views {
		label := view
		if i != m.viewIdx && i > 0 {
			if unread := m.opts.Buffer.Unread(view); unread > 0 {
				label = fmt.Sprintf("%s(%d)", view, unread)
			}
		}
		if i == m.viewIdx {
			parts = append(parts, styles.AccentText.Render("["+label+"]"))
		} else {
			parts = append(parts, styles.MutedText.Render(" "+label+" "))
		}
	}
	return truncateLine(strings.Join(parts, ""), m.width)
}

// padBetween spreads left and right across width, dropping right when the
// line is too narrow.
func padBetween(left, right string, width int) string {
	lw := lipgloss.Width(left)
	rw := lipgloss.Width(right)
	gap := width - lw - rw
	if gap < 1 {
		return truncateLine(left, width)
	}
	return left + strings.Repeat(" ", gap) + right
}

// truncateLine trims a rendered line to the display width.
func truncateLine(line string, width int) string {
	if width <= 0 || lipgloss.Width(line) <= width {
		return line
	}
	return runewidth.Truncate(line, width, "…")
}

func orEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

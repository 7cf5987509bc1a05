// Package ui provides Ember's terminal interface.
//
// The interface is a single bubbletea program: a scrollback viewport over
// the merged channel view, a header with connection state, room info, and
// vitals gauges, a tab line for cycling channels (with unread badges), and
// a command input wired to the relay.
//
// The UI is a pull consumer: a 100ms tick takes everything from the session
// bridge in one step (Drain), converts tags through the renderer,
// and distributes messages and status updates. No game data flows through
// bubbletea messages; the tick is the only coupling to the ingestion side.
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run blocks until the user quits or the context is cancelled.
func Run(opts Options) error {
	if opts.Session == nil || opts.Buffer == nil || opts.Status == nil {
		return fmt.Errorf("ui requires session, buffer, and status store")
	}

	progOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		progOpts = append(progOpts, tea.WithContext(opts.Context))
	}
	if _, err := tea.NewProgram(NewModel(opts), progOpts...).Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

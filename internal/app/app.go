// Package app wires Ember's components into a running client.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pkt.systems/pslog"

	"github.com/embermud/ember/internal/config"
	"github.com/embermud/ember/internal/prefs"
	"github.com/embermud/ember/internal/relay"
	"github.com/embermud/ember/internal/session"
	"github.com/embermud/ember/internal/state"
	"github.com/embermud/ember/internal/stream"
	"github.com/embermud/ember/internal/transcript"
	"github.com/embermud/ember/internal/ui"
)

// Options configure the Ember application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/ember/prefs.toml
	RelayAddr  string // overrides the configured relay address when set
}

// Run connects to the relay and drives the TUI until the context is
// cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	logger := pslog.Ctx(ctx)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.RelayAddr != "" {
		cfg.RelayAddr = opts.RelayAddr
	}

	userPrefs := prefs.Load(opts.PrefsPath)

	conn, err := relay.Dial(ctx, cfg.RelayAddr, logger)
	if err != nil {
		return fmt.Errorf("connect to relay at %s: %w", cfg.RelayAddr, err)
	}
	defer conn.Close()

	sess := session.New(conn, logger)
	sess.SetAccumulatorCap(cfg.AccumulatorCap)
	sess.Start(ctx)
	defer sess.Stop()

	store := &state.Store{}
	store.SetConnected(true)

	buf := stream.NewBuffer(cfg.ChannelCap)

	var writer *transcript.Writer
	if cfg.TranscriptDir != "" {
		backfillScrollback(buf, cfg.TranscriptDir, logger)
		writer, err = transcript.NewWriter(cfg.TranscriptDir, time.Now())
		if err != nil {
			// The session is more important than its record.
			logger.Warn("transcript disabled", "err", err)
			writer = nil
		} else {
			defer writer.Close()
		}
	}

	uiOpts := ui.Options{
		Context:    ctx,
		Session:    sess,
		Conn:       conn,
		Buffer:     buf,
		Status:     store,
		Transcript: writer,
		Prefs:      userPrefs,
		PrefsPath:  opts.PrefsPath,
	}
	return ui.Run(uiOpts)
}

// backfillLines bounds how much of the previous session is replayed into
// scrollback at startup.
const backfillLines = 100

// backfillScrollback seeds the main channel with the tail of the most recent
// transcript so a restart does not open onto an empty screen.
func backfillScrollback(buf *stream.Buffer, dir string, logger pslog.Logger) {
	if logger == nil {
		logger = pslog.NewWithOptions(io.Discard, pslog.Options{})
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	// Transcript names sort chronologically, so the last .log entry is the
	// newest session.
	var newest string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasSuffix(name, ".log") && name > newest {
			newest = name
		}
	}
	if newest == "" {
		return
	}

	lines, err := transcript.Tail(filepath.Join(dir, newest), backfillLines)
	if err != nil {
		logger.Warn("scrollback backfill failed", "file", newest, "err", err)
		return
	}
	for _, line := range lines {
		buf.Append(stream.NewMessage(stream.MainChannel, line, nil))
	}
	buf.ClearUnread(stream.MainChannel)
}

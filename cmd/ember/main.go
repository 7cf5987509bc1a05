package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"pkt.systems/pslog"

	"github.com/embermud/ember/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	relayAddr := flag.String("addr", "", "relay address, host:port (overrides config)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The terminal belongs to the TUI, so diagnostics go to a file.
	logFile, err := openLogFile()
	if err != nil {
		logFile = nil
	}
	var logWriter io.Writer = io.Discard
	if logFile != nil {
		defer logFile.Close()
		logWriter = logFile
	}
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(logWriter),
		pslog.WithEnvOptions(pslog.Options{}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)

	opts := app.Options{
		ConfigPath: *configPath,
		RelayAddr:  *relayAddr,
	}
	if err := app.Run(ctx, opts); err != nil {
		logger.With("err", err).Error("ember exited with error")
		fmt.Fprintf(os.Stderr, "ember: %v\n", err)
		return 1
	}
	return 0
}

func openLogFile() (*os.File, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(home, ".local", "state", "ember")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "ember.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// Package config handles loading Ember's TOML configuration.
//
// The Load function resolves ~/.config/ember/config.toml unless a path is
// given, and falls back to defaults for a missing file or missing fields. A
// malformed file is an error; a missing one is not.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything Ember needs to run against a local relay.
type Config struct {
	RelayAddr      string // host:port of the relay process
	TranscriptDir  string // where session transcripts land
	ChannelCap     int    // max retained messages per output channel
	AccumulatorCap int    // max parsed tags buffered between UI polls
}

const (
	defaultConfigPath    = "~/.config/ember/config.toml"
	defaultRelayAddr     = "127.0.0.1:8000"
	defaultTranscriptDir = "~/.local/share/ember/transcripts"

	defaultChannelCap     = 10000
	defaultAccumulatorCap = 10000
)

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RelayAddr:      defaultRelayAddr,
		TranscriptDir:  mustExpand(defaultTranscriptDir),
		ChannelCap:     defaultChannelCap,
		AccumulatorCap: defaultAccumulatorCap,
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		RelayAddr     string `toml:"relay_addr"`
		TranscriptDir string `toml:"transcript_dir"`
		Buffers       struct {
			ChannelCap     int `toml:"channel_cap"`
			AccumulatorCap int `toml:"accumulator_cap"`
		} `toml:"buffers"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if addr := strings.TrimSpace(raw.RelayAddr); addr != "" {
		cfg.RelayAddr = addr
	}
	if dir := strings.TrimSpace(raw.TranscriptDir); dir != "" {
		cfg.TranscriptDir = mustExpand(dir)
	}
	if raw.Buffers.ChannelCap > 0 {
		cfg.ChannelCap = raw.Buffers.ChannelCap
	}
	if raw.Buffers.AccumulatorCap > 0 {
		cfg.AccumulatorCap = raw.Buffers.AccumulatorCap
	}

	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

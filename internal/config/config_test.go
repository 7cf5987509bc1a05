package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.RelayAddr != defaultRelayAddr {
		t.Fatalf("RelayAddr = %q, want %q", cfg.RelayAddr, defaultRelayAddr)
	}
	wantDir, err := expandPath(defaultTranscriptDir)
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	if cfg.TranscriptDir != wantDir {
		t.Fatalf("TranscriptDir = %q, want %q", cfg.TranscriptDir, wantDir)
	}
	if cfg.ChannelCap != defaultChannelCap || cfg.AccumulatorCap != defaultAccumulatorCap {
		t.Fatalf("caps = %d/%d, want defaults", cfg.ChannelCap, cfg.AccumulatorCap)
	}
}

func TestLoad_ReadsFields(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(home, "config.toml")
	content := `
relay_addr = "127.0.0.1:8765"
transcript_dir = "~/transcripts"

[buffers]
channel_cap = 500
accumulator_cap = 250
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.RelayAddr != "127.0.0.1:8765" {
		t.Fatalf("RelayAddr = %q", cfg.RelayAddr)
	}
	if cfg.TranscriptDir != filepath.Join(home, "transcripts") {
		t.Fatalf("TranscriptDir = %q, want expanded home path", cfg.TranscriptDir)
	}
	if cfg.ChannelCap != 500 || cfg.AccumulatorCap != 250 {
		t.Fatalf("caps = %d/%d, want 500/250", cfg.ChannelCap, cfg.AccumulatorCap)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(home, "config.toml")
	if err := os.WriteFile(path, []byte(`relay_addr = "  "`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.RelayAddr != defaultRelayAddr {
		t.Fatalf("RelayAddr = %q, want default for blank value", cfg.RelayAddr)
	}
}

func TestLoad_MalformedFileErrors(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(home, "config.toml")
	if err := os.WriteFile(path, []byte("this is not toml ==="), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load should fail on malformed TOML")
	}
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vsariola/tahti"
	"github.com/vsariola/tahti/config"
)

func userConfig(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	if content == "" {
		return
	}
	os.MkdirAll(filepath.Join(dir, "tahti"), 0o755)
	if err := os.WriteFile(filepath.Join(dir, "tahti", "config.yml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	userConfig(t, "")
	c := config.Load()
	if c.YmlError != nil {
		t.Fatalf("YmlError without a user config: %v", c.YmlError)
	}
	if c.Song.BPM != 120 || c.Song.LoopEnd != 16 || c.ACEStep.PollInterval != 2*time.Second {
		t.Errorf("unexpected defaults %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
	s := c.NewSong()
	if s.Key != tahti.DefaultKey || s.LoopLength() != tahti.DefaultLoopBars {
		t.Errorf("song from defaults %+v", s)
	}
}

func TestLoadUserConfigAndEnv(t *testing.T) {
	userConfig(t, "song:\n  bpm: 90\n  key: F# minor\nacestep:\n  url: http://gpu:8000\n")
	t.Setenv("ACESTEP_API_URL", "http://other:8000")
	t.Setenv("TAHTI_METRONOME", "false")
	c := config.Load()
	if c.YmlError != nil {
		t.Fatalf("YmlError: %v", c.YmlError)
	}
	if c.Song.BPM != 90 || c.ACEStep.URL != "http://other:8000" || c.Audio.Metronome {
		t.Errorf("overrides not applied: %+v", c)
	}
	if c.ACEStep.AudioFormat != "flac" {
		t.Errorf("user config dropped a default: %+v", c.ACEStep)
	}
	s := c.NewSong()
	if s.BPM != 90 || s.Key != (tahti.KeySignature{Root: "F#", Mode: tahti.Minor}) {
		t.Errorf("song %+v", s)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	userConfig(t, "song:\n  tempo: 90\n")
	c := config.Load()
	if c.YmlError == nil {
		t.Fatalf("unknown field accepted")
	}
	if c.Song.BPM != 120 {
		t.Errorf("broken user config partially applied: %v", c.Song.BPM)
	}
}

// Package config loads the settings of the tahti binaries: the embedded
// defaults, then $UserConfigDir/tahti/config.yml, then the environment.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vsariola/tahti"
)

type (
	Config struct {
		Song    SongConfig
		Audio   AudioConfig
		ACEStep ACEStepConfig `yaml:"acestep"`
		Library LibraryConfig

		// YmlError is the error reading the user config file, if it exists
		// but could not be parsed.
		YmlError error `yaml:"-"`
	}

	// SongConfig are the initial properties of a new song.
	SongConfig struct {
		BPM       float64 `yaml:"bpm"`
		Key       string
		LoopStart int
		LoopEnd   int
	}

	AudioConfig struct {
		Metronome    bool
		BufferLength int
	}

	ACEStepConfig struct {
		URL            string `yaml:"url"`
		APIKey         string `yaml:"apikey"`
		OutputDir      string
		PollInterval   time.Duration
		InferenceSteps int
		AudioFormat    string
	}

	LibraryConfig struct {
		Dir string
	}
)

//go:embed defaults.yml
var defaultConfigYaml []byte

func loadDefaults() Config {
	var c Config
	if err := yaml.UnmarshalStrict(defaultConfigYaml, &c); err != nil {
		panic(fmt.Errorf("failed to unmarshal default config: %w", err))
	}
	return c
}

// ReadCustomConfigYml modifies the target argument, i.e. needs a pointer.
func ReadCustomConfigYml(filename string, target any) (exists bool, err error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return false, err
	}
	path := filepath.Join(configDir, "tahti", filename)
	bytes, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return true, yaml.UnmarshalStrict(bytes, target)
}

// Load returns the configuration. Errors in the user config file are kept in
// YmlError and the defaults used instead.
func Load() Config {
	c := loadDefaults()
	custom := c
	exists, err := ReadCustomConfigYml("config.yml", &custom)
	if exists {
		if err != nil {
			c.YmlError = err
		} else {
			c = custom
		}
	}
	c.applyEnv(os.Getenv)
	return c
}

func (c *Config) applyEnv(getenv func(string) string) {
	str := func(key string, target *string) {
		if v := getenv(key); v != "" {
			*target = v
		}
	}
	str("ACESTEP_API_URL", &c.ACEStep.URL)
	str("ACESTEP_API_KEY", &c.ACEStep.APIKey)
	str("ACESTEP_OUTPUT_DIR", &c.ACEStep.OutputDir)
	str("TAHTI_LIBRARY_DIR", &c.Library.Dir)
	str("TAHTI_KEY", &c.Song.Key)
	if v, err := strconv.ParseFloat(getenv("TAHTI_BPM"), 64); err == nil {
		c.Song.BPM = v
	}
	if v, err := time.ParseDuration(getenv("ACESTEP_POLL_INTERVAL")); err == nil {
		c.ACEStep.PollInterval = v
	}
	if v, err := strconv.ParseBool(getenv("TAHTI_METRONOME")); err == nil {
		c.Audio.Metronome = v
	}
}

// Validate checks the song settings.
func (c *Config) Validate() error {
	return errors.Join(
		tahti.ValidateTempo(c.Song.BPM),
		tahti.ValidateLoop(c.Song.LoopStart, c.Song.LoopEnd),
	)
}

// NewSong returns an empty song with the configured tempo, key and loop.
func (c *Config) NewSong() tahti.Song {
	s := tahti.NewSong()
	if tahti.ValidateTempo(c.Song.BPM) == nil {
		s.BPM = c.Song.BPM
	}
	if k, err := tahti.ParseKey(c.Song.Key); err == nil {
		s.Key = k
	}
	if tahti.ValidateLoop(c.Song.LoopStart, c.Song.LoopEnd) == nil {
		s.LoopStart, s.LoopEnd = c.Song.LoopStart, c.Song.LoopEnd
	}
	return s
}

// LibraryDir returns the library directory, by default under the user
// config directory.
func (c *Config) LibraryDir() (string, error) {
	if c.Library.Dir != "" {
		return c.Library.Dir, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "tahti", "library"), nil
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Sim     SimConfig     `toml:"sim"`
	Data    DataConfig    `toml:"data"`
	Scripts ScriptsConfig `toml:"scripts"`
	Archive ArchiveConfig `toml:"archive"`
	Logging LoggingConfig `toml:"logging"`
}

type SimConfig struct {
	TickRate  time.Duration `toml:"tick_rate"`
	Seed      uint32        `toml:"seed"`
	RunFrames int           `toml:"run_frames"` // 0 = run until signal
	SavePath  string        `toml:"save_path"`
	LoadPath  string        `toml:"load_path"` // resume from this save if set
}

type DataConfig struct {
	Templates string `toml:"templates"`
	Scenario  string `toml:"scenario"`
}

type ScriptsConfig struct {
	Dir string `toml:"dir"`
}

type ArchiveConfig struct {
	DSN  string `toml:"dsn"`  // empty disables the archive
	Slot string `toml:"slot"` // slot name for uploaded saves
}

type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // console or json
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Sim: SimConfig{
			TickRate: 33 * time.Millisecond, // 30 logic frames per second
			Seed:     1,
			SavePath: "save/autosave.sav",
		},
		Data: DataConfig{
			Templates: "data/templates.yaml",
			Scenario:  "data/scenario.yaml",
		},
		Scripts: ScriptsConfig{
			Dir: "scripts",
		},
		Archive: ArchiveConfig{
			Slot: "autosave",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

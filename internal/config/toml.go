// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Prompter PrompterConfig `toml:"prompter"`
}

// PrompterConfig maps teleprompter and capture settings.
type PrompterConfig struct {
	FontSize     *int     `toml:"font-size"`
	Speed        *float64 `toml:"speed"`
	LeadIn       *string  `toml:"lead-in"`
	MaxSeconds   *int     `toml:"max-seconds"`
	NearLimit    *int     `toml:"near-limit"`
	EnforceLimit *bool    `toml:"enforce-limit"`
	OutputDir    *string  `toml:"output-dir"`
	ExportFormat *string  `toml:"export-format"`
	Device       *string  `toml:"device"`
	AudioDevice  *string  `toml:"audio-device"`
	Audio        *bool    `toml:"audio"`
	Width        *int     `toml:"width"`
	Height       *int     `toml:"height"`
	FrameRate    *int     `toml:"framerate"`
	LogFile      *string  `toml:"log-file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

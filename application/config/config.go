// Package config loads the configuration of the domesim developer tool.
//
// Values come from an optional YAML file overlaid by command-line flags; a
// flag only overrides the file when it was set explicitly.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Simulator configures a simulated DOME run.
type Simulator struct {
	// Plugin is the name of a bundled example plugin.
	Plugin string `koanf:"plugin" validate:"required"`
	// Frames is the number of game loop iterations to run.
	Frames int `koanf:"frames" validate:"gte=0,lte=1000000"`
	// DeltaTime is passed to the draw hooks of every frame, in seconds.
	DeltaTime float64 `koanf:"dt" validate:"gt=0,lte=1"`
	// Script is an optional Lua scenario run after the frames.
	Script string `koanf:"script"`
	// MixSamples is the number of stereo samples mixed after each frame.
	MixSamples int `koanf:"mix_samples" validate:"gte=0,lte=1048576"`

	Log Log `koanf:"log"`
}

// Log configures the tool's own logging.
type Log struct {
	Format string `koanf:"format" validate:"oneof=text json"`
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
}

// Default returns the configuration used when nothing is set.
func Default() Simulator {
	return Simulator{
		Frames:    60,
		DeltaTime: 1.0 / 60,
		Log:       Log{Format: "text", Level: "info"},
	}
}

var validate = validator.New()

// Load reads path, when not empty, and then the flags in fs that were
// changed. Flag names map to keys with "." nesting, e.g. "log.format".
func Load(path string, fs *pflag.FlagSet) (Simulator, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Simulator{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}
	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return Simulator{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Simulator{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Simulator{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

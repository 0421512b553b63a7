package engine

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds the engine's tuning knobs. Values merge in layers:
// defaults, then an optional YAML config file, then command-line
// flags.
type Config struct {
	// HotThreshold is the call count at which a function is promoted
	// to a compiled tier.
	HotThreshold uint64 `koanf:"hot_threshold"`
	// HotFrac is the share of total execution time a function must
	// reach for the time-based hot-spot poll.
	HotFrac float64 `koanf:"hot_frac"`
	// HotCallMin is the minimum call count for the time-based poll.
	HotCallMin uint64 `koanf:"hot_call_min"`
	// MaxStackDepth bounds script recursion.
	MaxStackDepth int `koanf:"max_stack_depth"`
	// MaxMatchDepth bounds pattern-match recursion.
	MaxMatchDepth int `koanf:"max_match_depth"`
	// JITEnabled turns the compiled tiers on or off.
	JITEnabled bool `koanf:"jit"`
	// NativeEnabled allows native code emission on supported
	// architectures; off leaves hot functions on the Baseline tier.
	NativeEnabled bool `koanf:"native"`
	// StrictMatch rejects extra object fields in patterns without a
	// rest element.
	StrictMatch bool `koanf:"strict_match"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		HotThreshold:  1000,
		HotFrac:       0.05,
		HotCallMin:    1000,
		MaxStackDepth: 1024,
		MaxMatchDepth: 64,
		JITEnabled:    true,
		NativeEnabled: true,
		StrictMatch:   false,
	}
}

// LoadConfig merges the defaults with an optional YAML file and an
// optional flag set. Flag names mirror the koanf keys with dashes
// (hot-threshold, strict-match, ...).
func LoadConfig(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := DefaultConfig()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("loading config %s: %w", path, err)
		}
	}
	if flags != nil {
		// Flag names use dashes; config keys use underscores.
		provider := posflag.ProviderWithValue(flags, ".", k,
			func(key, value string) (string, any) {
				return strings.ReplaceAll(key, "-", "_"), value
			})
		if err := k.Load(provider, nil); err != nil {
			return cfg, fmt.Errorf("loading flags: %w", err)
		}
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

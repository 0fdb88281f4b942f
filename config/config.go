// Package config loads the per-resource-class freshness configuration
// consumed by the engine and the upstream fetcher. Classes are enumerated
// once at startup; the engine never reloads at runtime.
//
// YAML shape (JSON is equivalent):
//
//	defaults:
//	  soft_ttl: 5m
//	  hard_ttl: 30m
//	  fetch_timeout: 10s
//	  max_retries: 3
//	classes:
//	  profile:
//	    soft_ttl: 1m
//	    hard_ttl: 5m
//	  asset:
//	    soft_ttl: 15m
//	    hard_ttl: 24h
//
// Fields omitted on a class inherit from defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	qingque "github.com/naoTimesdev/qingque-api"
)

// Format of a configuration document.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// Config is the loaded, validated class table.
type Config struct {
	Defaults qingque.ClassConfig
	Classes  map[string]qingque.ClassConfig
}

type classSpec struct {
	SoftTTL      time.Duration `koanf:"soft_ttl"`
	HardTTL      time.Duration `koanf:"hard_ttl"`
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
	MaxRetries   int           `koanf:"max_retries"`
}

type fileSpec struct {
	Defaults classSpec            `koanf:"defaults"`
	Classes  map[string]classSpec `koanf:"classes"`
}

// Load reads a class table from path, detecting the format from the file
// extension (.yaml/.yml or .json).
func Load(path string) (Config, error) {
	var format Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = YAML
	case ".json":
		format = JSON
	default:
		return Config{}, fmt.Errorf("config: unsupported extension on %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	return FromBytes(data, format)
}

// FromBytes parses a class table from raw bytes in the given format.
func FromBytes(data []byte, format Format) (Config, error) {
	var parser koanf.Parser
	switch format {
	case YAML:
		parser = kyaml.Parser()
	case JSON:
		parser = kjson.Parser()
	default:
		return Config{}, fmt.Errorf("config: unsupported format %q", format)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}

	var spec fileSpec
	if err := k.Unmarshal("", &spec); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	defaults := merge(spec.Defaults, qingque.DefaultClassConfig)
	if err := validate("defaults", defaults); err != nil {
		return Config{}, err
	}

	out := Config{Defaults: defaults, Classes: make(map[string]qingque.ClassConfig, len(spec.Classes))}
	for name, cs := range spec.Classes {
		cfg := merge(cs, defaults)
		if err := validate(name, cfg); err != nil {
			return Config{}, err
		}
		out.Classes[name] = cfg
	}
	return out, nil
}

// Default returns the class table the service ships with, mirroring the
// production TTLs: showcase profiles and chronicle pages turn over quickly,
// static game assets barely at all.
func Default() Config {
	return Config{
		Defaults: qingque.DefaultClassConfig,
		Classes: map[string]qingque.ClassConfig{
			"profile":   {SoftTTL: 5 * time.Minute, HardTTL: 30 * time.Minute, FetchTimeout: 10 * time.Second, MaxRetries: 3},
			"chronicle": {SoftTTL: 5 * time.Minute, HardTTL: 30 * time.Minute, FetchTimeout: 10 * time.Second, MaxRetries: 3},
			"asset":     {SoftTTL: 15 * time.Minute, HardTTL: 24 * time.Hour, FetchTimeout: 30 * time.Second, MaxRetries: 2},
		},
	}
}

// Retries flattens the table into the per-class retry map consumed by
// upstream.Config.
func (c Config) Retries() map[string]int {
	out := make(map[string]int, len(c.Classes))
	for name, cfg := range c.Classes {
		out[name] = cfg.MaxRetries
	}
	return out
}

func merge(cs classSpec, def qingque.ClassConfig) qingque.ClassConfig {
	cfg := qingque.ClassConfig{
		SoftTTL:      cs.SoftTTL,
		HardTTL:      cs.HardTTL,
		FetchTimeout: cs.FetchTimeout,
		MaxRetries:   cs.MaxRetries,
	}
	if cfg.SoftTTL == 0 {
		cfg.SoftTTL = def.SoftTTL
	}
	if cfg.HardTTL == 0 {
		cfg.HardTTL = def.HardTTL
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	return cfg
}

func validate(name string, cfg qingque.ClassConfig) error {
	if cfg.SoftTTL <= 0 || cfg.HardTTL < cfg.SoftTTL {
		return fmt.Errorf("config: class %q: need 0 < soft_ttl <= hard_ttl (soft=%v hard=%v)",
			name, cfg.SoftTTL, cfg.HardTTL)
	}
	if cfg.FetchTimeout <= 0 {
		return fmt.Errorf("config: class %q: fetch_timeout must be positive", name)
	}
	return nil
}

// Package config loads, merges, and persists fukura's TOML configuration
// (spec.md §6.7): a per-repository file at <repo>/.fukura/config and a
// global fallback at $HOME/.fukura/config.toml. Uses dario.cat/mergo for
// layered merging instead of hand-rolled merge functions, with atomic
// writes shared via internal/atomicfile.
package config

import (
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"

	"github.com/fukura-dev/fukura/internal/atomicfile"
	. "github.com/fukura-dev/fukura/internal/logging"
	"github.com/fukura-dev/fukura/internal/paths"
)

// RecordingConfig bounds the manual "recording" lookback window (spec.md
// §6.7); consumed by internal/timeparse callers resolving "--since".
type RecordingConfig struct {
	MaxLookbackHours   uint32 `toml:"max_lookback_hours"`
	MinLookbackMinutes uint32 `toml:"min_lookback_minutes"`
}

// DefaultRecordingConfig matches spec.md §6.7's stated defaults.
func DefaultRecordingConfig() RecordingConfig {
	return RecordingConfig{MaxLookbackHours: 3, MinLookbackMinutes: 1}
}

// Config is the per-repository (or global) TOML document of spec.md §6.7.
type Config struct {
	Version            uint32            `toml:"version"`
	Profile            string            `toml:"profile,omitempty"`
	DefaultRemote      string            `toml:"default_remote,omitempty"`
	AutoSync           *bool             `toml:"auto_sync,omitempty"`
	DaemonEnabled      *bool             `toml:"daemon_enabled,omitempty"`
	RedactionOverrides map[string]string `toml:"redaction_overrides,omitempty"`
	Recording          RecordingConfig   `toml:"recording"`
}

// CurrentVersion is written into newly created config files.
const CurrentVersion uint32 = 1

// Default returns a fresh Config with spec-mandated defaults.
func Default() *Config {
	return &Config{
		Version:   CurrentVersion,
		Recording: DefaultRecordingConfig(),
	}
}

// BoolPtr is a small helper for setting optional bool fields (AutoSync,
// DaemonEnabled) from CLI flags.
func BoolPtr(b bool) *bool { return &b }

func localConfigPath(repoRoot string) string {
	return paths.RepoDir(repoRoot) + "/config"
}

// Load reads the local config for a repository (if present), the global
// config (if present), and merges them: local values win, global supplies
// defaults for default_remote and auto_sync when local leaves them unset
// (spec.md §6.7).
func Load(repoRoot string) (*Config, error) {
	local, err := loadTOML(localConfigPath(repoRoot))
	if err != nil {
		return nil, err
	}
	if local == nil {
		local = Default()
	}

	globalPath, err := paths.GlobalConfigPath()
	if err != nil {
		return nil, err
	}
	global, err := loadTOML(globalPath)
	if err != nil {
		return nil, err
	}

	if global != nil {
		if local.DefaultRemote == "" {
			local.DefaultRemote = global.DefaultRemote
		}
		if local.AutoSync == nil {
			local.AutoSync = global.AutoSync
		}
		if err := mergo.Merge(&local.RedactionOverrides, global.RedactionOverrides); err != nil {
			L_warn("config: failed to merge global redaction overrides", "error", err)
		}
	}

	return local, nil
}

// loadTOML reads and parses a single TOML file, returning (nil, nil) if it
// doesn't exist.
func loadTOML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	cfg := Default()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, &ErrInvalidConfig{Path: path, Cause: err}
	}
	return cfg, nil
}

// Save atomically writes cfg as the repository's local config file.
func Save(repoRoot string, cfg *Config) error {
	return writeTOML(localConfigPath(repoRoot), cfg)
}

// SaveGlobal atomically writes cfg as $HOME/.fukura/config.toml.
func SaveGlobal(cfg *Config) error {
	path, err := paths.GlobalConfigPath()
	if err != nil {
		return err
	}
	if err := paths.EnsureParentDir(path); err != nil {
		return err
	}
	return writeTOML(path, cfg)
}

func writeTOML(path string, cfg *Config) error {
	var buf strings.Builder
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(cfg); err != nil {
		return &ErrInvalidConfig{Path: path, Cause: err}
	}
	return atomicfile.Write(path, []byte(buf.String()), 0600)
}

// AutoSyncEnabled reports whether auto_sync is set and true.
func (c *Config) AutoSyncEnabled() bool { return c.AutoSync != nil && *c.AutoSync }

// DaemonEnabledOrDefault reports daemon_enabled, defaulting to true when
// unset.
func (c *Config) DaemonEnabledOrDefault() bool {
	if c.DaemonEnabled == nil {
		return true
	}
	return *c.DaemonEnabled
}

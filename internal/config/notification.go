package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/fukura-dev/fukura/internal/atomicfile"
	"github.com/fukura-dev/fukura/internal/paths"
)

// NotificationConfig is <repo>/.fukura/notification.toml (spec.md §6.1).
type NotificationConfig struct {
	Enabled             bool `toml:"enabled"`
	ShowOnError         bool `toml:"show_on_error"`
	ShowOnSolutionFound bool `toml:"show_on_solution_found"`
}

// DefaultNotificationConfig enables everything by default; the daemon's
// notification dispatcher is opt-out, not opt-in.
func DefaultNotificationConfig() *NotificationConfig {
	return &NotificationConfig{Enabled: true, ShowOnError: true, ShowOnSolutionFound: true}
}

func notificationConfigPath(repoRoot string) string {
	return paths.RepoDir(repoRoot) + "/notification.toml"
}

// LoadNotificationConfig reads notification.toml, falling back to defaults
// if it's absent.
func LoadNotificationConfig(repoRoot string) (*NotificationConfig, error) {
	path := notificationConfigPath(repoRoot)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultNotificationConfig(), nil
		}
		return nil, err
	}
	cfg := DefaultNotificationConfig()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, &ErrInvalidConfig{Path: path, Cause: err}
	}
	return cfg, nil
}

// SaveNotificationConfig atomically writes notification.toml.
func SaveNotificationConfig(repoRoot string, cfg *NotificationConfig) error {
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return &ErrInvalidConfig{Path: notificationConfigPath(repoRoot), Cause: err}
	}
	return atomicfile.Write(notificationConfigPath(repoRoot), []byte(buf.String()), 0600)
}

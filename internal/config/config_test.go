package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fukura-dev/fukura/internal/paths"
)

func initRepoDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(paths.RepoDir(root), 0750))
	return root
}

func TestLoadReturnsDefaultsWhenNoFileExists(t *testing.T) {
	root := initRepoDir(t)
	cfg, err := Load(root)
	require.NoError(t, err)
	require.Equal(t, CurrentVersion, cfg.Version)
	require.Equal(t, uint32(3), cfg.Recording.MaxLookbackHours)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	root := initRepoDir(t)
	cfg := Default()
	cfg.Profile = "work"
	cfg.DefaultRemote = "https://hub.example.com"
	cfg.AutoSync = BoolPtr(true)
	cfg.RedactionOverrides = map[string]string{"email": ""}

	require.NoError(t, Save(root, cfg))

	loaded, err := Load(root)
	require.NoError(t, err)
	require.Equal(t, "work", loaded.Profile)
	require.Equal(t, "https://hub.example.com", loaded.DefaultRemote)
	require.True(t, loaded.AutoSyncEnabled())
	require.Equal(t, "", loaded.RedactionOverrides["email"])
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	root := initRepoDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(paths.RepoDir(root), "config"), []byte("not = [valid toml"), 0644))

	_, err := Load(root)
	require.Error(t, err)
	var ic *ErrInvalidConfig
	require.ErrorAs(t, err, &ic)
}

func TestDaemonEnabledOrDefaultDefaultsTrue(t *testing.T) {
	cfg := Default()
	require.True(t, cfg.DaemonEnabledOrDefault())
	cfg.DaemonEnabled = BoolPtr(false)
	require.False(t, cfg.DaemonEnabledOrDefault())
}

func TestNotificationConfigDefaultsWhenAbsent(t *testing.T) {
	root := initRepoDir(t)
	cfg, err := LoadNotificationConfig(root)
	require.NoError(t, err)
	require.True(t, cfg.Enabled)
}

func TestNotificationConfigSaveThenLoad(t *testing.T) {
	root := initRepoDir(t)
	cfg := &NotificationConfig{Enabled: false, ShowOnError: true, ShowOnSolutionFound: false}
	require.NoError(t, SaveNotificationConfig(root, cfg))

	loaded, err := LoadNotificationConfig(root)
	require.NoError(t, err)
	require.False(t, loaded.Enabled)
	require.True(t, loaded.ShowOnError)
}

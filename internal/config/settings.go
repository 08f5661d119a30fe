package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/scour-dl/scour/internal/engine/types"
)

// Settings holds the persisted user configuration. The file format is a
// compatibility contract: keys and their accepted values must not change.
type Settings struct {
	// MaxDownloads is the worker pool size, 1-10.
	MaxDownloads int `json:"max_downloads"`
	// FolderStructure is "default" or "post_number" (the on-disk alias
	// of the per-post layout).
	FolderStructure string `json:"folder_structure"`
}

// DefaultSettings returns a new Settings instance with the defaults.
func DefaultSettings() *Settings {
	return &Settings{
		MaxDownloads:    types.DefaultConcurrency,
		FolderStructure: string(types.LayoutDefault),
	}
}

// GetConfigDir returns the directory holding settings and history.
func GetConfigDir() string {
	return filepath.Join("resources", "config")
}

// GetLogsDir returns the directory for debug logs.
func GetLogsDir() string {
	return filepath.Join("resources", "logs")
}

// GetSettingsPath returns the path to the settings JSON file.
func GetSettingsPath() string {
	return filepath.Join(GetConfigDir(), "settings.json")
}

// GetHistoryPath returns the path to the session history database.
func GetHistoryPath() string {
	return filepath.Join(GetConfigDir(), "history.db")
}

// Layout returns the configured folder layout.
func (s *Settings) Layout() types.LayoutMode {
	layout, _ := types.ParseLayout(s.FolderStructure)
	return layout
}

// sanitize forces out-of-range values back to defaults.
func (s *Settings) sanitize() bool {
	changed := false
	if s.MaxDownloads < types.MinConcurrencyOpt || s.MaxDownloads > types.MaxConcurrencyOpt {
		s.MaxDownloads = types.DefaultConcurrency
		changed = true
	}
	if _, ok := types.ParseLayout(s.FolderStructure); !ok {
		s.FolderStructure = string(types.LayoutDefault)
		changed = true
	}
	if s.FolderStructure == "" {
		s.FolderStructure = string(types.LayoutDefault)
		changed = true
	}
	return changed
}

// LoadSettings loads settings from disk. A missing file yields defaults;
// malformed or out-of-range content is replaced with defaults on disk.
func LoadSettings() (*Settings, error) {
	data, err := os.ReadFile(GetSettingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings() // start from defaults so missing keys keep theirs
	if err := json.Unmarshal(data, settings); err != nil {
		settings = DefaultSettings()
		_ = SaveSettings(settings)
		return settings, nil
	}
	if settings.sanitize() {
		_ = SaveSettings(settings)
	}
	return settings, nil
}

// SaveSettings saves settings to disk atomically, creating the config
// directory on first write.
func SaveSettings(s *Settings) error {
	path := GetSettingsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tempPath, path)
}

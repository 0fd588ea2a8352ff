package configs

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// HomeEnv overrides every diario location when set.
const HomeEnv = "DIARIO_HOME"

type Settings struct {
	ConfigPath    string
	DataPath      string
	JournalDBPath string
	StateDBPath   string
	AuditLogPath  string
}

// ConfigFile is the path of config.toml.
func (s *Settings) ConfigFile() string {
	return filepath.Join(s.ConfigPath, "config.toml")
}

// EnsureDirs creates the config and data directories, readable by the owner
// only.
func (s *Settings) EnsureDirs() error {
	for _, dir := range []string{s.ConfigPath, s.DataPath} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

var DiarioSettings *Settings

func init() {
	settings, err := ResolveSettings(os.Getenv(HomeEnv))
	if err != nil {
		log.Fatalf("error resolving diario directories: %s", err)
	}
	DiarioSettings = settings
}

// ResolveSettings computes the locations. A non-empty home puts everything in
// that directory.
func ResolveSettings(home string) (*Settings, error) {
	if home != "" {
		return settingsFor(home, home), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error getting home directory: %w", err)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("error getting config directory: %w", err)
	}

	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return settingsFor(filepath.Join(configDir, "diario"), filepath.Join(dataDir, "diario")), nil
}

func settingsFor(configPath, dataPath string) *Settings {
	return &Settings{
		ConfigPath:    configPath,
		DataPath:      dataPath,
		JournalDBPath: filepath.Join(dataPath, "journal.db"),
		StateDBPath:   filepath.Join(dataPath, "state.db"),
		AuditLogPath:  filepath.Join(dataPath, "audit.jsonl"),
	}
}

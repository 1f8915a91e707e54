/*
Package config manages the TOML config for typeahead services.
*/
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/charmbracelet/log"
)

// FileName is the config file name inside the config dir.
const FileName = "typeahead.toml"

// Config holds the entire config structure
type Config struct {
	Source  SourceConfig  `toml:"source"`
	Control ControlConfig `toml:"control"`
	Backend BackendConfig `toml:"backend"`
}

// SourceConfig describes where suggestions come from and how they are shaped.
type SourceConfig struct {
	RemoteURL   string `toml:"remote_url"`
	Wildcard    string `toml:"wildcard"`
	PrefetchURL string `toml:"prefetch_url"`
	MinLength   int    `toml:"min_length"`
	Limit       int    `toml:"limit"`
	ResultsPath string `toml:"results_path"`
	NameKey     string `toml:"name_key"`
	IDKey       string `toml:"id_key"`
	MapIDs      bool   `toml:"map_ids"`
	TimeoutMs   int    `toml:"timeout_ms"`
}

// ControlConfig holds suggestion list options.
type ControlConfig struct {
	Fuzzy bool `toml:"fuzzy"`
}

// BackendConfig holds the search backend options.
type BackendConfig struct {
	Addr         string `toml:"addr"`
	EntitiesFile string `toml:"entities_file"`
	MaxResults   int    `toml:"max_results"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			RemoteURL:   "http://127.0.0.1:5000/search/_typeahead/%QUERY",
			Wildcard:    suggest.DefaultWildcard,
			PrefetchURL: "",
			MinLength:   suggest.DefaultMinLength,
			Limit:       suggest.DefaultLimit,
			ResultsPath: suggest.DefaultResultsPath,
			NameKey:     suggest.DefaultNameKey,
			IDKey:       suggest.DefaultIDKey,
			MapIDs:      true,
			TimeoutMs:   int(suggest.DefaultTimeout / time.Millisecond),
		},
		Control: ControlConfig{
			Fuzzy: false,
		},
		Backend: BackendConfig{
			Addr:         ":5000",
			EntitiesFile: "entities.yaml",
			MaxResults:   0,
		},
	}
}

// SuggestSource converts the [source] section into the adapter's config.
func (c *Config) SuggestSource() suggest.SourceConfig {
	mapFn := suggest.DefaultMap
	if !c.Source.MapIDs {
		mapFn = suggest.MapValueOnly
	}
	return suggest.SourceConfig{
		RemoteURL:   c.Source.RemoteURL,
		Wildcard:    c.Source.Wildcard,
		PrefetchURL: c.Source.PrefetchURL,
		MinLength:   c.Source.MinLength,
		Limit:       c.Source.Limit,
		ResultsPath: c.Source.ResultsPath,
		NameKey:     c.Source.NameKey,
		IDKey:       c.Source.IDKey,
		Map:         mapFn,
		Timeout:     time.Duration(c.Source.TimeoutMs) * time.Millisecond,
	}
}

// GetConfigDir returns the config directory with fallback priority:
// 1. $XDG_CONFIG_HOME/typeahead or ~/.config/typeahead
// 2. ~/Library/Application Support/typeahead (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	if resolver, err := utils.NewPathResolver(); err == nil {
		if result := utils.CheckDirStatus(resolver.ConfigDir()); result.Writable {
			return resolver.ConfigDir(), nil
		}
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "typeahead")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for typeahead.toml.
// When no config dir is writable the resolver falls back to ~/.typeahead or the temp dir.
func GetDefaultConfigPath() (string, error) {
	resolver, err := utils.NewPathResolver()
	if err != nil {
		configDir, err := GetConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(configDir, FileName), nil
	}
	return resolver.GetConfigPath(FileName)
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/typeahead/typeahead.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}

	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file. Keys missing from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse keeps every well-typed key it can find and defaults the rest.
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	table, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	src := table.Section("source")
	src.String("remote_url", &config.Source.RemoteURL)
	src.String("wildcard", &config.Source.Wildcard)
	src.String("prefetch_url", &config.Source.PrefetchURL)
	src.Int("min_length", &config.Source.MinLength)
	src.Int("limit", &config.Source.Limit)
	src.String("results_path", &config.Source.ResultsPath)
	src.String("name_key", &config.Source.NameKey)
	src.String("id_key", &config.Source.IDKey)
	src.Bool("map_ids", &config.Source.MapIDs)
	src.Int("timeout_ms", &config.Source.TimeoutMs)

	table.Section("control").Bool("fuzzy", &config.Control.Fuzzy)

	be := table.Section("backend")
	be.String("addr", &config.Backend.Addr)
	be.String("entities_file", &config.Backend.EntitiesFile)
	be.Int("max_results", &config.Backend.MaxResults)
	return config, nil
}

// RebuildConfigFile force creates a new typeahead.toml at the default path
func RebuildConfigFile() (string, error) {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return "", err
	}
	if err := utils.EnsureDir(filepath.Dir(defaultPath)); err != nil {
		return "", err
	}
	return defaultPath, SaveConfig(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		return "built-in defaults"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

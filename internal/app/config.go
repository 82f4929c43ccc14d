package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/salesdash/internal/kv"
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	DataDir string `json:"data_dir"`
	Backend string `json:"backend,omitempty"`
	Locale  string `json:"locale,omitempty"`

	// Resolved paths (computed, not serialized)
	EffectiveCwd string `json:"-"` // Absolute working directory (from -C flag or os.Getwd)
	DataDirAbs   string `json:"-"` // Absolute path to the data directory

	// Sources tracks which config files were loaded (for diagnostics)
	Sources ConfigSources `json:"-"`
}

// ConfigSources tracks which config files were loaded.
type ConfigSources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project or explicit config if loaded, empty otherwise
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DataDir: ".salesdash",
		Backend: kv.BackendDir,
		Locale:  "en-US",
	}
}

// ConfigFileName is the default project config file name.
const ConfigFileName = ".salesdash.json"

// backends accepted in config files. The memory backend is for tests only.
var backends = []string{kv.BackendDir, kv.BackendSQLite}

// globalConfigPath returns $XDG_CONFIG_HOME/salesdash/config.json, or
// ~/.config/salesdash/config.json, or "" when neither can be determined.
func globalConfigPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "salesdash", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "salesdash", "config.json")
	}

	return ""
}

// LoadConfigInput holds the inputs for LoadConfig.
type LoadConfigInput struct {
	WorkDirOverride string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string            // -c/--config flag value
	DataDirOverride string            // --data-dir flag value; empty means no override
	BackendOverride string            // --backend flag value; empty means no override
	Env             map[string]string // environment variables
}

// LoadConfig loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config (~/.config/salesdash/config.json or $XDG_CONFIG_HOME/salesdash/config.json)
// 3. Project config file at default location (.salesdash.json, if exists)
// 4. Explicit config file via ConfigPath (replaces 3)
// 5. CLI overrides.
func LoadConfig(input LoadConfigInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := DefaultConfig()

	globalCfg, globalPath, err := loadOptionalConfig(globalConfigPath(input.Env))
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = globalPath
	cfg = mergeConfig(cfg, globalCfg)

	projectCfg, projectPath, err := loadProjectConfig(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = mergeConfig(cfg, projectCfg)

	cfg = mergeConfig(cfg, Config{DataDir: input.DataDirOverride, Backend: input.BackendOverride})

	err = validateConfig(cfg)
	if err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir

	if filepath.IsAbs(cfg.DataDir) {
		cfg.DataDirAbs = cfg.DataDir
	} else {
		cfg.DataDirAbs = filepath.Join(workDir, cfg.DataDir)
	}

	return cfg, nil
}

func loadOptionalConfig(path string) (Config, string, error) {
	if path == "" {
		return Config{}, "", nil
	}

	cfg, loaded, err := loadConfigFile(path, false)
	if err != nil || !loaded {
		return Config{}, "", err
	}

	return cfg, path, nil
}

// loadProjectConfig loads .salesdash.json from workDir, or the explicit
// config file which must exist.
func loadProjectConfig(workDir, configPath string) (Config, string, error) {
	if configPath == "" {
		return loadOptionalConfig(filepath.Join(workDir, ConfigFileName))
	}

	cfgFile := configPath
	if !filepath.IsAbs(cfgFile) {
		cfgFile = filepath.Join(workDir, cfgFile)
	}

	_, statErr := os.Stat(cfgFile)
	if statErr != nil {
		return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
	}

	cfg, _, err := loadConfigFile(cfgFile, true)
	if err != nil {
		return Config{}, "", err
	}

	return cfg, cfgFile, nil
}

// loadConfigFile loads a config file. If mustExist is false, missing files
// return a zero config and loaded=false.
func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
	}

	cfg, err := parseConfig(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

func parseConfig(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	// A present but empty data_dir is an error, not "use the default".
	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	if val, exists := raw["data_dir"]; exists {
		if str, ok := val.(string); ok && str == "" {
			return Config{}, ErrDataDirEmpty
		}
	}

	return cfg, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.DataDir != "" {
		base.DataDir = overlay.DataDir
	}

	if overlay.Backend != "" {
		base.Backend = overlay.Backend
	}

	if overlay.Locale != "" {
		base.Locale = overlay.Locale
	}

	return base
}

func validateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrDataDirEmpty
	}

	if !slices.Contains(backends, cfg.Backend) {
		return fmt.Errorf("%w: %q (want dir or sqlite)", ErrBackendInvalid, cfg.Backend)
	}

	return nil
}

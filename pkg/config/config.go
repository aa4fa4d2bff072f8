// Package config loads the iambrowser configuration: defaults, the TOML
// config file, IAMBROWSER_* environment variables and flags, in that order.
// The legacy plain-text ignore file is merged in for compatibility.
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Config describes all configuration options
type Config struct {
	IgnoreProfiles []string `usage:"AWS profiles to hide from the tree"`
	Log            struct {
		Level string `default:"info"`
		File  string `usage:"Log destination; defaults to iambrowser.log in the config directory when dev mode is active"`
	}
	Console struct {
		Address string `default:"127.0.0.1:8632" usage:"Address the debug console listens on"`
	}
	Dev bool `usage:"Enable dev mode (debug logging, console streaming, live config reload)"`
}

var logLevels = map[string]zerolog.Level{
	"trace":   zerolog.TraceLevel,
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
}

// Dir returns the iambrowser configuration directory.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", eris.Wrap(err, "failed to determine the user config directory")
	}

	return filepath.Join(base, "iambrowser"), nil
}

// Loader initializes an empty config object and returns a new Loader for it.
func Loader(configDir string) (*Config, *aconfig.Loader) {
	cfg := Config{}
	return &cfg, aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:          "IAMBROWSER",
		FlagPrefix:         "cfg",
		AllowUnknownFlags:  true,
		SkipFiles:          configDir == "",
		Files:              []string{filepath.Join(configDir, "config.toml")},
		FailOnFileNotFound: false,
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})
}

// Load builds the effective configuration, including the legacy ignore file.
func Load(configDir string, args []string) (*Config, error) {
	cfg, loader := Loader(configDir)
	if err := loader.Flags().Parse(args); err != nil {
		return nil, eris.Wrap(err, "failed to parse flags")
	}

	if err := loader.Load(); err != nil {
		return nil, eris.Wrap(err, "failed to load configuration")
	}

	if configDir != "" {
		legacy, err := ReadLegacyIgnore(configDir)
		if err != nil {
			return nil, err
		}

		cfg.IgnoreProfiles = mergeProfiles(cfg.IgnoreProfiles, legacy)
	}

	return cfg, nil
}

// Validate verifies that all config fields have valid values
func (cfg *Config) Validate() error {
	if _, ok := logLevels[cfg.Log.Level]; !ok {
		return eris.Errorf("invalid log level %q", cfg.Log.Level)
	}

	return nil
}

// LogLevel maps the configured level name to a zerolog level. Dev mode never
// filters below debug.
func (cfg *Config) LogLevel() zerolog.Level {
	level, ok := logLevels[cfg.Log.Level]
	if !ok {
		level = zerolog.InfoLevel
	}

	if cfg.Dev && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}

	return level
}

// IsIgnored reports whether the given profile is on the ignore list.
func (cfg *Config) IsIgnored(profile string) bool {
	for _, item := range cfg.IgnoreProfiles {
		if item == profile {
			return true
		}
	}

	return false
}

// ReadLegacyIgnore reads the pre-TOML ignore file, one profile name per
// line. A missing file is not an error.
func ReadLegacyIgnore(configDir string) ([]string, error) {
	path := filepath.Join(configDir, "ignore")
	handle, err := os.Open(path)
	if err != nil {
		if eris.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "failed to open %s", path)
	}
	defer handle.Close()

	profiles := make([]string, 0)
	scanner := bufio.NewScanner(handle)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			profiles = append(profiles, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "failed to read %s", path)
	}

	return profiles, nil
}

func mergeProfiles(configured, legacy []string) []string {
	seen := make(map[string]bool, len(configured))
	result := append([]string{}, configured...)
	for _, item := range configured {
		seen[item] = true
	}

	for _, item := range legacy {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}

	return result
}

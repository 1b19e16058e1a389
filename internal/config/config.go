// Package config resolves gatestub settings from defaults, pyproject.toml,
// gatestub.toml and GATESTUB_* environment variables.
package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/dshills/gatestub/internal/indexer"
	"github.com/dshills/gatestub/internal/scanner"
)

const (
	// EnvPrefix prefixes every environment override (GATESTUB_WORKERS, ...)
	EnvPrefix = "GATESTUB"

	// DefaultCommitMessage is used for auto-commits when none is configured
	DefaultCommitMessage = "Update dynamic gateway stubs"

	// DefaultHistoryPath is where run history is kept
	DefaultHistoryPath = "~/.gatestub/history.db"

	pyprojectFile = "pyproject.toml"
	pyprojectKey  = "tool.gatestub"
)

// FileNames are the config files looked up in the scan root, in order
var FileNames = []string{"gatestub.toml", ".gatestub.toml"}

// Config is the resolved configuration of one scan root
type Config struct {
	Ignore          []string      `mapstructure:"ignore" toml:"ignore"`
	Include         []string      `mapstructure:"include" toml:"include,omitempty"`
	Indicators      []string      `mapstructure:"dynamic_import_indicators" toml:"dynamic_import_indicators"`
	ModuleListName  string        `mapstructure:"ast_module_list_name" toml:"ast_module_list_name"`
	AllListName     string        `mapstructure:"ast_all_list_name" toml:"ast_all_list_name"`
	GatewayFilename string        `mapstructure:"gateway_filename" toml:"gateway_filename"`
	Workers         int           `mapstructure:"workers" toml:"workers,omitempty"`
	Submodules      []string      `mapstructure:"submodules" toml:"submodules,omitempty"`
	AutoCommit      bool          `mapstructure:"auto_commit" toml:"auto_commit"`
	CommitMessage   string        `mapstructure:"commit_message" toml:"commit_message"`
	History         HistoryConfig `mapstructure:"history" toml:"history"`

	// Sources lists the files that contributed settings, lowest precedence first
	Sources []string `mapstructure:"-" toml:"-"`
}

// HistoryConfig controls the run history database
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	DBPath  string `mapstructure:"db_path" toml:"db_path"`
}

// Default returns the built-in configuration
func Default() *Config {
	idx := indexer.DefaultConfig()
	return &Config{
		Ignore:          idx.Ignore,
		Include:         []string{},
		Indicators:      idx.Indicators,
		ModuleListName:  idx.ModuleListName,
		AllListName:     idx.AllListName,
		GatewayFilename: idx.GatewayFilename,
		Workers:         runtime.NumCPU(),
		Submodules:      []string{},
		CommitMessage:   DefaultCommitMessage,
		History: HistoryConfig{
			Enabled: true,
			DBPath:  DefaultHistoryPath,
		},
	}
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("ignore", def.Ignore)
	v.SetDefault("include", def.Include)
	v.SetDefault("dynamic_import_indicators", def.Indicators)
	v.SetDefault("ast_module_list_name", def.ModuleListName)
	v.SetDefault("ast_all_list_name", def.AllListName)
	v.SetDefault("gateway_filename", def.GatewayFilename)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("submodules", def.Submodules)
	v.SetDefault("auto_commit", def.AutoCommit)
	v.SetDefault("commit_message", def.CommitMessage)
	v.SetDefault("history.enabled", def.History.Enabled)
	v.SetDefault("history.db_path", def.History.DBPath)
}

// Load resolves the configuration for root. explicitPath, when set, replaces
// the lookup of gatestub.toml in root and must exist.
//
// Precedence (lowest to highest): defaults < [tool.gatestub] in pyproject.toml
// < gatestub.toml < GATESTUB_* environment variables.
func Load(root, explicitPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	var sources []string

	pyproject := filepath.Join(root, pyprojectFile)
	merged, err := mergePyproject(v, pyproject)
	if err != nil {
		return nil, err
	}
	if merged {
		sources = append(sources, pyproject)
	}

	configFile := explicitPath
	if configFile == "" {
		configFile = findConfigFile(root)
	} else if _, err := os.Stat(configFile); err != nil {
		return nil, errors.Wrapf(err, "config file %s", configFile)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("toml")
		if err := v.MergeInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
		sources = append(sources, configFile)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	cfg.Sources = sources

	return &cfg, nil
}

// mergePyproject merges the [tool.gatestub] table of path, if any
func mergePyproject(v *viper.Viper, path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, errors.Wrapf(err, "failed to stat %s", path)
	}

	pv := viper.New()
	pv.SetConfigFile(path)
	pv.SetConfigType("toml")
	if err := pv.ReadInConfig(); err != nil {
		return false, errors.Wrapf(err, "failed to read %s", path)
	}

	table := pv.Sub(pyprojectKey)
	if table == nil {
		return false, nil
	}
	if err := v.MergeConfigMap(table.AllSettings()); err != nil {
		return false, errors.Wrapf(err, "failed to merge [%s] of %s", pyprojectKey, path)
	}
	return true, nil
}

func findConfigFile(root string) string {
	for _, name := range FileNames {
		path := filepath.Join(root, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// LoadDotEnv loads dir/.env into the process environment. Variables already
// set are left alone and a missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.Wrapf(err, "failed to load %s", path)
	}
	return nil
}

// Validate reports the first setting the pipeline cannot run with
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.ModuleListName) == "":
		return errors.New("ast_module_list_name cannot be empty")
	case strings.TrimSpace(c.AllListName) == "":
		return errors.New("ast_all_list_name cannot be empty")
	case strings.TrimSpace(c.GatewayFilename) == "":
		return errors.New("gateway_filename cannot be empty")
	case strings.ContainsAny(c.GatewayFilename, `/\`):
		return errors.Newf("gateway_filename %q must be a file name, not a path", c.GatewayFilename)
	case c.Workers <= 0:
		return errors.Newf("workers must be positive, got %d", c.Workers)
	case c.AutoCommit && strings.TrimSpace(c.CommitMessage) == "":
		return errors.New("commit_message cannot be empty when auto_commit is enabled")
	case c.History.Enabled && strings.TrimSpace(c.History.DBPath) == "":
		return errors.New("history.db_path cannot be empty when history is enabled")
	}

	if _, err := scanner.CompilePatterns(c.Ignore); err != nil {
		return errors.Wrap(err, "invalid ignore patterns")
	}
	if _, err := scanner.CompilePatterns(c.Include); err != nil {
		return errors.Wrap(err, "invalid include patterns")
	}
	return nil
}

// IndexerConfig returns the settings the pipeline consumes
func (c *Config) IndexerConfig() indexer.Config {
	return indexer.Config{
		Ignore:          c.Ignore,
		Include:         c.Include,
		Indicators:      c.Indicators,
		ModuleListName:  c.ModuleListName,
		AllListName:     c.AllListName,
		GatewayFilename: c.GatewayFilename,
		Submodules:      c.Submodules,
		Workers:         c.Workers,
	}
}

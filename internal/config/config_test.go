package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Ignore, cfg.Ignore)
	assert.Equal(t, []string{"import_module(", "globals()"}, cfg.Indicators)
	assert.Equal(t, "modules_to_export", cfg.ModuleListName)
	assert.Equal(t, "__all__", cfg.AllListName)
	assert.Equal(t, "__init__.py", cfg.GatewayFilename)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.False(t, cfg.AutoCommit)
	assert.Equal(t, DefaultCommitMessage, cfg.CommitMessage)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, DefaultHistoryPath, cfg.History.DBPath)
	assert.Empty(t, cfg.Sources)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Pyproject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pyproject.toml"), `
[project]
name = "demo"

[tool.gatestub]
workers = 3
ast_module_list_name = "EXPORTS"
include = ["src/**"]

[tool.gatestub.history]
enabled = false
`)

	cfg, err := Load(root, "")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "EXPORTS", cfg.ModuleListName)
	assert.Equal(t, []string{"src/**"}, cfg.Include)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, DefaultHistoryPath, cfg.History.DBPath)
	assert.Equal(t, []string{filepath.Join(root, "pyproject.toml")}, cfg.Sources)
}

func TestLoad_PyprojectWithoutTable(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pyproject.toml"), "[project]\nname = \"demo\"\n")

	cfg, err := Load(root, "")
	require.NoError(t, err)
	assert.Empty(t, cfg.Sources)
	assert.Equal(t, "modules_to_export", cfg.ModuleListName)
}

func TestLoad_ConfigFileOverridesPyproject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pyproject.toml"), "[tool.gatestub]\nworkers = 3\nast_all_list_name = \"EXPORTED\"\n")
	writeFile(t, filepath.Join(root, "gatestub.toml"), "workers = 5\n")

	cfg, err := Load(root, "")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Workers)
	assert.Equal(t, "EXPORTED", cfg.AllListName)
	assert.Len(t, cfg.Sources, 2)
}

func TestLoad_HiddenConfigFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gatestub.toml"), "gateway_filename = \"gateway.py\"\n")

	cfg, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, "gateway.py", cfg.GatewayFilename)
}

func TestLoad_ExplicitPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "gatestub.toml"), "workers = 5\n")
	explicit := filepath.Join(t.TempDir(), "custom.toml")
	writeFile(t, explicit, "workers = 9\n\n[history]\ndb_path = \"/tmp/h.db\"\n")

	cfg, err := Load(root, explicit)
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Workers)
	assert.Equal(t, "/tmp/h.db", cfg.History.DBPath)
	assert.Equal(t, []string{explicit}, cfg.Sources)
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	_, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestLoad_InvalidFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "gatestub.toml"), "workers = [\n")

	_, err := Load(root, "")
	assert.Error(t, err)
}

func TestLoad_Environment(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "gatestub.toml"), "workers = 5\n")

	t.Setenv("GATESTUB_WORKERS", "7")
	t.Setenv("GATESTUB_HISTORY_ENABLED", "false")
	t.Setenv("GATESTUB_IGNORE", ".git,build")

	cfg, err := Load(root, "")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Workers)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, []string{".git", "build"}, cfg.Ignore)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "GATESTUB_TEST_DOTENV=loaded\n")
	t.Cleanup(func() { _ = os.Unsetenv("GATESTUB_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(dir))
	assert.Equal(t, "loaded", os.Getenv("GATESTUB_TEST_DOTENV"))

	// Missing file is fine
	assert.NoError(t, LoadDotEnv(t.TempDir()))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty module list name", func(c *Config) { c.ModuleListName = " " }, true},
		{"empty all list name", func(c *Config) { c.AllListName = "" }, true},
		{"empty gateway filename", func(c *Config) { c.GatewayFilename = "" }, true},
		{"gateway filename with separator", func(c *Config) { c.GatewayFilename = "pkg/__init__.py" }, true},
		{"zero workers", func(c *Config) { c.Workers = 0 }, true},
		{"negative workers", func(c *Config) { c.Workers = -2 }, true},
		{"auto commit without message", func(c *Config) { c.AutoCommit = true; c.CommitMessage = "" }, true},
		{"history without path", func(c *Config) { c.History.DBPath = "" }, true},
		{"disabled history without path", func(c *Config) { c.History.Enabled = false; c.History.DBPath = "" }, false},
		{"bad ignore pattern", func(c *Config) { c.Ignore = []string{"[abc"} }, true},
		{"bad include pattern", func(c *Config) { c.Include = []string{"[unclosed"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIndexerConfig(t *testing.T) {
	cfg := Default()
	cfg.Workers = 4
	cfg.Submodules = []string{"vendor/lib"}
	cfg.Include = []string{"src/**"}

	idx := cfg.IndexerConfig()
	assert.Equal(t, 4, idx.Workers)
	assert.Equal(t, []string{"vendor/lib"}, idx.Submodules)
	assert.Equal(t, []string{"src/**"}, idx.Include)
	assert.Equal(t, cfg.Indicators, idx.Indicators)
	assert.Equal(t, cfg.ModuleListName, idx.ModuleListName)
	assert.Equal(t, cfg.AllListName, idx.AllListName)
	assert.Equal(t, cfg.GatewayFilename, idx.GatewayFilename)
}

func TestWriteStarter(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "gatestub.toml")

	require.NoError(t, WriteStarter(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# gatestub configuration")
	assert.Contains(t, string(data), "[history]")
	assert.NotContains(t, string(data), "workers")

	cfg, err := Load(root, "")
	require.NoError(t, err)
	def := Default()
	assert.Equal(t, def.Ignore, cfg.Ignore)
	assert.Equal(t, def.Indicators, cfg.Indicators)
	assert.Equal(t, def.Workers, cfg.Workers)
	assert.Equal(t, def.History, cfg.History)
	assert.Equal(t, []string{path}, cfg.Sources)

	err = WriteStarter(path, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigExists))

	assert.NoError(t, WriteStarter(path, true))
}

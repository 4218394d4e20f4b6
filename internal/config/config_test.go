package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winter/internal/diag"
	"winter/internal/lint"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[lint]
fail_on = "warning"
format = "sarif"
categories = ["correctness", "security"]
exclude = ["generated/**"]
jobs = 4
max_diagnostics = 100

[rules]
disable = ["component-id-prefix"]
paths = ["rules", "/etc/winter/extra.yaml"]

[rules.severity]
file-hardcoded-path = "error"

[store]
path = "kb/wix.db"

[cache]
enabled = true

[watch]
debounce_ms = 350
`)
	nested := filepath.Join(root, "src", "installer")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg, ok, err := Discover(nested)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, lint.FailOnWarning, cfg.FailOn())
	assert.Equal(t, "sarif", cfg.Lint.Format)
	assert.Equal(t, []string{"correctness", "security"}, cfg.Lint.Categories)
	assert.Equal(t, 4, cfg.Lint.Jobs)
	assert.Equal(t, 100, cfg.Lint.MaxDiagnostics)
	assert.Equal(t, []string{"component-id-prefix"}, cfg.Rules.Disable)
	assert.Equal(t, []string{filepath.Join(root, "rules"), "/etc/winter/extra.yaml"}, cfg.RulePaths())
	assert.Equal(t, filepath.Join(root, "kb", "wix.db"), cfg.StorePath())
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 350*time.Millisecond, cfg.Debounce())

	sev, err := cfg.SeverityOverrides()
	require.NoError(t, err)
	assert.Equal(t, map[string]diag.Severity{"file-hardcoded-path": diag.SevError}, sev)
}

func TestDiscoverWithoutFile(t *testing.T) {
	dir := t.TempDir()
	cfg, ok, err := Discover(dir)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, dir, cfg.Root)
	assert.Equal(t, lint.FailOnError, cfg.FailOn())
	assert.Empty(t, cfg.StorePath())
	assert.Zero(t, cfg.Debounce())
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":     "[lint]\nfail_on = \"error\"\ncolour = true\n",
		"bad threshold":   "[lint]\nfail_on = \"sometimes\"\n",
		"bad format":      "[lint]\nformat = \"xml\"\n",
		"negative jobs":   "[lint]\njobs = -1\n",
		"bad severity":    "[rules.severity]\nx = \"fatal\"\n",
		"negative window": "[watch]\ndebounce_ms = -5\n",
		"not toml":        "[lint\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, t.TempDir(), body))
			assert.Error(t, err)
		})
	}
}

func TestCacheDirImpliesEnabled(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(writeConfig(t, dir, "[cache]\ndir = \".cache\"\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, filepath.Join(dir, ".cache"), cfg.CacheDir())

	cfg, err = Load(writeConfig(t, dir, "[cache]\ndir = \".cache\"\nenabled = false\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Cache.Enabled)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "glint.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
format: html
safe_mode: false
match_timeout: 250ms
grammar_dirs: [/etc/glint, ./grammars]
html:
  inline: true
  class_prefix: hl-
`)
	cfg, err := Load(New(), path)
	require.NoError(t, err)
	require.Equal(t, "html", cfg.Format)
	require.False(t, cfg.SafeMode)
	require.Equal(t, 250*time.Millisecond, cfg.MatchTimeout)
	require.Equal(t, []string{"/etc/glint", "./grammars"}, cfg.GrammarDirs)
	require.True(t, cfg.HTML.Inline)
	require.Equal(t, "hl-", cfg.HTML.ClassPrefix)
	require.Equal(t, 4, cfg.Verbosity, "unset keys keep their default")

	opts := cfg.TokenizerOptions()
	require.False(t, opts.SafeMode)
	require.Equal(t, 250*time.Millisecond, opts.MatchTimeout)
	require.Equal(t, "hl-", cfg.FormatOptions().HTML.ClassPrefix)
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "format: html\n")
	t.Setenv("GLINT_FORMAT", "ansi")
	t.Setenv("GLINT_HTML_LINE_NUMBERS", "true")

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	require.Equal(t, "ansi", cfg.Format)
	require.True(t, cfg.HTML.LineNumbers)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("GLINT_MAX_DEPTH", "5")
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("max-depth", 0, "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"--max-depth=7"}))

	v := New()
	require.NoError(t, BindFlags(v, flags, "max-depth", "log-level"))
	t.Chdir(t.TempDir())
	cfg, err := Load(v, "")
	require.NoError(t, err)
	require.Equal(t, 7, cfg.MaxDepth)
	require.Equal(t, "warn", cfg.LogLevel, "an unset flag does not hide the default")

	require.Error(t, BindFlags(v, flags, "missing"))
}

// Package config loads the command line tool's settings from glint.yaml,
// GLINT_ environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/spicery/glint/pkg/format"
	"github.com/spicery/glint/pkg/tokenizer"
)

type Config struct {
	Verbosity    int           `mapstructure:"verbosity"`
	SafeMode     bool          `mapstructure:"safe_mode"`
	MaxDepth     int           `mapstructure:"max_depth"`
	MatchTimeout time.Duration `mapstructure:"match_timeout"`
	Format       string        `mapstructure:"format"`
	Language     string        `mapstructure:"language"`
	LogLevel     string        `mapstructure:"log_level"`
	// GrammarDirs are searched for <language>.yaml before the built-in
	// grammars.
	GrammarDirs []string `mapstructure:"grammar_dirs"`
	// Embedded highlights script and style elements of html and php
	// documents with the persistent script scanners.
	Embedded bool `mapstructure:"embedded"`
	Jobs     int  `mapstructure:"jobs"`

	HTML HTML `mapstructure:"html"`
	ANSI ANSI `mapstructure:"ansi"`
}

type HTML struct {
	ClassPrefix string `mapstructure:"class_prefix"`
	Inline      bool   `mapstructure:"inline"`
	LineNumbers bool   `mapstructure:"line_numbers"`
}

type ANSI struct {
	ForceColor bool `mapstructure:"force_color"`
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() Config {
	return Config{
		Verbosity: 4,
		SafeMode:  true,
		MaxDepth:  tokenizer.DefaultMaxDepth,
		Format:    "tagged",
		LogLevel:  "warn",
		Jobs:      4,
		HTML:      HTML{ClassPrefix: format.DefaultClassPrefix},
	}
}

// New returns a viper instance with the defaults, search paths and
// environment binding in place.
func New() *viper.Viper {
	v := viper.New()
	d := Defaults()
	v.SetDefault("verbosity", d.Verbosity)
	v.SetDefault("safe_mode", d.SafeMode)
	v.SetDefault("max_depth", d.MaxDepth)
	v.SetDefault("match_timeout", d.MatchTimeout)
	v.SetDefault("format", d.Format)
	v.SetDefault("language", d.Language)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("grammar_dirs", d.GrammarDirs)
	v.SetDefault("embedded", d.Embedded)
	v.SetDefault("jobs", d.Jobs)
	v.SetDefault("html.class_prefix", d.HTML.ClassPrefix)
	v.SetDefault("html.inline", d.HTML.Inline)
	v.SetDefault("html.line_numbers", d.HTML.LineNumbers)
	v.SetDefault("ansi.force_color", d.ANSI.ForceColor)

	v.SetConfigName("glint")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "glint"))
	}
	v.SetEnvPrefix("GLINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags lets the named flags override the keys of the same name, with
// dashes read as underscores.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, names ...string) error {
	for _, name := range names {
		f := flags.Lookup(name)
		if f == nil {
			return fmt.Errorf("no flag named '%s'", name)
		}
		if err := v.BindPFlag(strings.ReplaceAll(name, "-", "_"), f); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the config file, if any, and decodes the settings. A file
// given explicitly must exist; a missing glint.yaml on the search path is
// not an error.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// TokenizerOptions converts the settings for a tokenizer run.
func (c Config) TokenizerOptions() tokenizer.Options {
	opts := tokenizer.DefaultOptions()
	opts.Verbosity = c.Verbosity
	opts.SafeMode = c.SafeMode
	opts.MaxDepth = c.MaxDepth
	opts.MatchTimeout = c.MatchTimeout
	return opts
}

// FormatOptions converts the settings for the formatters.
func (c Config) FormatOptions() format.Options {
	return format.Options{
		HTML: format.HTMLOptions{
			ClassPrefix: c.HTML.ClassPrefix,
			Inline:      c.HTML.Inline,
			LineNumbers: c.HTML.LineNumbers,
		},
		ANSI: format.ANSIOptions{ForceColor: c.ANSI.ForceColor},
	}
}

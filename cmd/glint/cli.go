package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spicery/glint/pkg/config"
	"github.com/spicery/glint/pkg/grammar"
)

const version = "0.1.0"

// app holds what every command needs once flags and config are read.
type app struct {
	v        *viper.Viper
	cfg      config.Config
	registry *grammar.Registry
	log      zerolog.Logger
}

// NewCLI builds the glint command tree.
func NewCLI() *cobra.Command {
	a := &app{v: config.New()}
	var configFile string

	rootCmd := &cobra.Command{
		Use:     "glint",
		Short:   "Grammar-driven syntax highlighter",
		Version: version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
			return a.setup(configFile)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (default ./glint.yaml or ~/.config/glint/glint.yaml)")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.Int("verbosity", 0, "Drop rules above this verbosity (0-4)")
	flags.Bool("safe-mode", true, "Cap the depth of nested states")
	flags.Int("max-depth", 0, "Depth ceiling in safe mode")
	flags.Duration("match-timeout", 0, "Time limit for one regex probe")
	flags.StringSlice("grammar-dirs", nil, "Directories of YAML grammars to load")
	cobra.CheckErr(config.BindFlags(a.v, flags,
		"log-level", "verbosity", "safe-mode", "max-depth", "match-timeout", "grammar-dirs"))

	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(
		a.newHighlightCmd(),
		a.newTokensCmd(),
		a.newLanguagesCmd(),
		a.newDumpGrammarCmd(),
	)
	return rootCmd
}

// setup loads the config, installs the logger and builds the registry.
func (a *app) setup(configFile string) error {
	cfg, err := config.Load(a.v, configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level '%s': %w", cfg.LogLevel, err)
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	a.log = log.Logger

	a.registry = grammar.DefaultRegistry()
	for _, dir := range cfg.GrammarDirs {
		if err := a.loadGrammarDir(dir); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) loadGrammarDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return err
	}
	for _, file := range files {
		name, err := a.registerGrammarFile(file)
		if err != nil {
			return err
		}
		a.log.Debug().Str("grammar", name).Str("file", file).Msg("loaded grammar")
	}
	return nil
}

// registerGrammarFile adds a YAML grammar to the registry, replacing a
// built-in grammar of the same name, and returns its language name.
func (a *app) registerGrammarFile(file string) (string, error) {
	f, err := grammar.LoadFile(file)
	if err != nil {
		return "", err
	}
	def, err := f.Build()
	if err != nil {
		return "", fmt.Errorf("failed to build grammar '%s': %w", file, err)
	}
	if err := a.registry.Register(def); err != nil {
		return "", fmt.Errorf("failed to register grammar '%s': %w", file, err)
	}
	return def.Name(), nil
}

// grammarFor picks the grammar for an input: the language asked for, else
// the one registered for the file extension, else the default.
func (a *app) grammarFor(lang, filename string) (*grammar.Grammar, error) {
	if lang == "" {
		lang = a.cfg.Language
	}
	if lang != "" {
		return a.registry.Lookup(lang)
	}
	if ext := strings.TrimPrefix(filepath.Ext(filename), "."); ext != "" {
		if g, err := a.registry.Lookup(ext); err == nil {
			return g, nil
		}
	}
	return a.registry.Default()
}

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spicery/glint/pkg/config"
	"github.com/spicery/glint/pkg/embedded"
	"github.com/spicery/glint/pkg/format"
	"github.com/spicery/glint/pkg/grammar"
	"github.com/spicery/glint/pkg/tokenizer"
	"golang.org/x/sync/errgroup"
)

type highlightFlags struct {
	lang        string
	grammarFile string
	output      string
	exit0       bool
}

func (a *app) newHighlightCmd() *cobra.Command {
	var hf highlightFlags
	cmd := &cobra.Command{
		Use:   "highlight [files...]",
		Short: "Highlight source files, or stdin",
		Example: `  glint highlight main.js                # language from the extension
  glint highlight --lang php --format html index.php
  cat notes.ini | glint highlight --lang plain
  glint highlight --grammar mylang.yaml --output out.txt src.my`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.highlight(cmd, args, hf)
		},
	}
	cmd.Flags().StringVarP(&hf.lang, "lang", "l", "", "Language name or code (default from the file extension)")
	cmd.Flags().StringVar(&hf.grammarFile, "grammar", "", "YAML grammar file to use")
	cmd.Flags().StringVarP(&hf.output, "output", "o", "", "Output file (defaults to stdout)")
	cmd.Flags().BoolVar(&hf.exit0, "exit0", false, "Exit with code 0 even on tokenization errors")
	cmd.Flags().StringP("format", "f", "", "Output format: html, ansi or tagged")
	cmd.Flags().Bool("embedded", false, "Scan script and style elements of html and php with persistent scanners")
	cmd.Flags().IntP("jobs", "j", 0, "Files processed at once")
	cobra.CheckErr(config.BindFlags(a.v, cmd.Flags(), "format", "embedded", "jobs"))
	return cmd
}

func (a *app) highlight(cmd *cobra.Command, args []string, hf highlightFlags) error {
	formatter, err := format.New(a.cfg.Format, a.cfg.FormatOptions())
	if err != nil {
		return err
	}
	if hf.grammarFile != "" {
		if hf.lang, err = a.registerGrammarFile(hf.grammarFile); err != nil {
			return err
		}
	}
	inputs, err := readInputs(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	results := make([]string, len(inputs))
	failed := make([]error, len(inputs))
	var g errgroup.Group
	g.SetLimit(max(a.cfg.Jobs, 1))
	for i, in := range inputs {
		g.Go(func() error {
			results[i], failed[i] = a.render(in, hf.lang)
			return nil
		})
	}
	_ = g.Wait()

	err = writeOutput(hf.output, cmd.OutOrStdout(), func(out io.Writer) error {
		for i, in := range inputs {
			if failed[i] != nil {
				continue
			}
			if err := formatter.Format(out, results[i]); err != nil {
				return fmt.Errorf("failed to write '%s': %w", in.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := errors.Join(failed...); err != nil {
		if hf.exit0 {
			a.log.Debug().Err(err).Msg("ignoring tokenization errors")
			return nil
		}
		return err
	}
	return nil
}

// render tokenizes one input and returns the tagged text.
func (a *app) render(in input, lang string) (string, error) {
	g, err := a.grammarFor(lang, in.name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", in.name, err)
	}
	opts := a.cfg.TokenizerOptions()
	opts.Logger = a.log.With().Str("file", in.name).Logger()

	if a.cfg.Embedded && (g.Name() == "html" || g.Name() == "php") {
		out, err := a.renderEmbedded(in.src, opts)
		if err != nil {
			return "", fmt.Errorf("%s: %w", in.name, err)
		}
		return out, nil
	}

	res, err := tokenizer.Tokenize(in.src, g, opts)
	if err != nil {
		return "", fmt.Errorf("%s: %w", in.name, err)
	}
	a.logIssues(in.name, res.Issues)
	return res.Output, nil
}

// renderEmbedded highlights a web document with the bridge: html for the
// markup, php for server blocks and the script scanners for script and
// style elements.
func (a *app) renderEmbedded(src string, opts tokenizer.Options) (string, error) {
	host, err := a.registry.Lookup("html")
	if err != nil {
		return "", err
	}
	php, err := a.registry.Lookup("php")
	if err != nil {
		return "", err
	}
	// server blocks are cut out of the document already
	php = php.Clone()
	php.Child = nil

	renderWith := func(g *grammar.Grammar) embedded.Renderer {
		return func(text string) (string, error) {
			res, err := tokenizer.Tokenize(text, g, opts)
			if err != nil {
				return "", err
			}
			a.logIssues(g.Name(), res.Issues)
			return res.Output, nil
		}
	}
	b := embedded.WebBridge(renderWith(host), renderWith(php), embedded.BridgeOptions{
		Logger: opts.Logger,
	})
	return b.Render(src)
}

func (a *app) logIssues(name string, issues []tokenizer.Issue) {
	for _, issue := range issues {
		a.log.Warn().
			Str("file", name).
			Str("grammar", issue.Grammar).
			Str("rule", issue.Rule).
			Int("pos", issue.Pos).
			Stringer("issue", issue.Kind).
			Msg(issue.Description)
	}
}

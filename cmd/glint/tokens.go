package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spicery/glint/pkg/tokenizer"
)

func (a *app) newTokensCmd() *cobra.Command {
	var lang, output string
	var tree bool
	cmd := &cobra.Command{
		Use:   "tokens [file]",
		Short: "Print one JSON token object per line",
		Long: `Tokenize a file, or stdin, and print one JSON token object per line.
With --tree, print the state tree of a stateful grammar instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := readInputs(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			in := inputs[0]
			g, err := a.grammarFor(lang, in.name)
			if err != nil {
				return err
			}
			opts := a.cfg.TokenizerOptions()
			opts.Logger = a.log

			return writeOutput(output, cmd.OutOrStdout(), func(out io.Writer) error {
				if tree {
					root, issues, err := tokenizer.ParseTree(in.src, g, opts)
					if err != nil {
						return err
					}
					a.logIssues(in.name, issues)
					return writeJSON(out, root)
				}

				res, err := tokenizer.Tokenize(in.src, g, opts)
				if err != nil {
					return fmt.Errorf("tokenization error: %w", err)
				}
				a.logIssues(in.name, res.Issues)
				for _, token := range res.Tokens() {
					token.Unescape()
					if err := writeJSON(out, token); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Language name or code (default from the file extension)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (defaults to stdout)")
	cmd.Flags().BoolVar(&tree, "tree", false, "Print the state tree of a stateful grammar")
	return cmd
}

// writeJSON writes v as one line of JSON, leaving <, > and & readable.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("JSON encoding error: %w", err)
	}
	return nil
}

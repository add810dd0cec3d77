package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spicery/glint/pkg/grammar"
)

func (a *app) newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "languages",
		Aliases: []string{"ls"},
		Short:   "List the registered grammars",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var data [][]string
			for _, name := range a.registry.Names() {
				def, _ := a.registry.Definition(name)
				data = append(data, languageRow(def))
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"NAME", "TITLE", "CODES", "KIND", "EXTENDS", "CHILD"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			table.AppendBulk(data)
			table.Render()
			return nil
		},
	}
}

func languageRow(def *grammar.Definition) []string {
	g := def.Grammar
	kind := "flat"
	if g.Stateful() {
		kind = "stateful"
	}
	if len(g.BoundaryRules) > 0 {
		kind += fmt.Sprintf(", %d boundary", len(g.BoundaryRules))
	}
	return []string{def.Name(), g.Info.Title, strings.Join(g.Info.Codes, ","), kind, def.Extends, def.Child}
}

func (a *app) newDumpGrammarCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "dump-grammar <language>",
		Short: "Print a grammar as YAML",
		Long: `Print a registered grammar in the YAML form read by --grammar and
grammar_dirs. Editing the output is the easiest way to start a new grammar.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, ok := a.registry.Definition(args[0])
			if !ok {
				return fmt.Errorf("%w '%s'", grammar.ErrUnknownGrammar, args[0])
			}
			yamlBytes, err := grammar.FromDefinition(def).Marshal()
			if err != nil {
				return fmt.Errorf("failed to marshal grammar to YAML: %w", err)
			}

			return writeOutput(output, cmd.OutOrStdout(), func(out io.Writer) error {
				_, err := out.Write(yamlBytes)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (defaults to stdout)")
	return cmd
}

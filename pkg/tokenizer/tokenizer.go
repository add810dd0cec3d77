// Package tokenizer runs grammars over source text and produces a tagged
// string: every token wrapped as <TYPE>...</TYPE>, with &, < and > in the
// source escaped as entities.
//
// A grammar is applied in two passes. Delimited rules (comments, strings,
// states) go first; each token they find is tagged and replaced by an alias
// from a shared Extractions table. Simple rules (keywords, numbers) then
// run over whatever text is left. Once the grammar is done its child
// grammar runs over the same text, seeing only what its parent left
// outside its boundary windows. The aliases are resolved at the very end.
package tokenizer

import (
	"errors"
	"fmt"

	"github.com/spicery/glint/pkg/grammar"
	"github.com/spicery/glint/pkg/strsearch"
)

// Result is the outcome of a run.
type Result struct {
	// Output is the tagged string.
	Output string
	// Issues are the problems the run worked around.
	Issues []Issue
	// Trees holds one state tree per window parsed by a stateful grammar,
	// in chain order.
	Trees []*Node
}

// Tokens splits the output into tokens.
func (r *Result) Tokens() []*Token {
	return ParseTagged(r.Output)
}

// Tokenize runs g and its chain of child grammars over src.
//
// A pattern that fails in the regex engine aborts only the grammar it
// belongs to: that grammar's aliases are rolled back, its input passes to
// the next grammar untouched and the failure is recorded as an issue. A
// grammar that stops making progress is a fatal ErrNoProgress.
func Tokenize(src string, g *grammar.Grammar, opts Options) (*Result, error) {
	if g == nil {
		return nil, errors.New("no grammar")
	}
	text := src
	if !opts.PreEscaped {
		text = EscapeString(normalizeNewlines(src))
	}

	res := &Result{}
	ext := NewExtractions()
	for _, gr := range g.Chain() {
		mark := ext.Mark()
		st := newStage(gr, text, ext, opts)
		out, err := st.run()
		if err != nil {
			pe, ok := strsearch.IsPatternError(err)
			if !ok {
				return nil, fmt.Errorf("grammar '%s': %w", gr.Name(), err)
			}
			ext.Rollback(mark)
			st.report(IssuePatternFailure, nil, -1, pe.Error())
			res.Issues = append(res.Issues, st.issues...)
			continue
		}
		res.Issues = append(res.Issues, st.issues...)
		text = out
		res.Trees = append(res.Trees, st.trees...)
	}

	out, unresolved := ext.Resolve(text)
	if unresolved > 0 {
		res.Issues = append(res.Issues, Issue{
			Kind:        IssueUnresolvedAlias,
			Grammar:     g.Name(),
			Pos:         -1,
			Description: fmt.Sprintf("%d aliases had no extraction, output may be corrupt", unresolved),
		})
		opts.Logger.Warn().Str("grammar", g.Name()).Int("count", unresolved).Msg("unresolved aliases")
	}
	res.Output = out
	return res, nil
}

// ParseTree runs the stateful discipline of g over all of src and returns
// the state tree. Boundary rules and the child grammar are not consulted.
func ParseTree(src string, g *grammar.Grammar, opts Options) (*Node, []Issue, error) {
	if !g.Stateful() {
		return nil, nil, fmt.Errorf("grammar '%s' has no state transitions", g.Name())
	}
	text := src
	if !opts.PreEscaped {
		text = EscapeString(normalizeNewlines(src))
	}
	st := newStage(g, text, NewExtractions(), opts)
	root, err := st.parseStates(0, len(text))
	if err != nil {
		return nil, st.issues, fmt.Errorf("grammar '%s': %w", g.Name(), err)
	}
	return root, st.issues, nil
}

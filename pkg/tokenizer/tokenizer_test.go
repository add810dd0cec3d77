package tokenizer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spicery/glint/pkg/grammar"
	"github.com/stretchr/testify/require"
)

func TestTokenizeNeedsGrammar(t *testing.T) {
	_, err := Tokenize("x", nil, DefaultOptions())
	require.Error(t, err)
}

func TestPatternFailureFallsThrough(t *testing.T) {
	g := &grammar.Grammar{
		Info:        grammar.Info{Language: "broken"},
		SimpleRules: []*grammar.Rule{grammar.Simple(0, "BAD", grammar.Regex, "(unclosed")},
		Child:       wordGrammar(),
	}
	res, err := Tokenize("a b", g, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, "<WORD>a</WORD> <WORD>b</WORD>", res.Output)

	failures := issuesOf(res, IssuePatternFailure)
	require.Len(t, failures, 1)
	require.Equal(t, "broken", failures[0].Grammar)
	require.Contains(t, failures[0].Description, "compile")
}

func TestPatternFailureRollsBackParent(t *testing.T) {
	// the string is aliased before the bad rule fails; its alias must not
	// leak into the output
	g := &grammar.Grammar{
		Info:           grammar.Info{Language: "broken"},
		DelimitedRules: []*grammar.Rule{grammar.Delimiter(0, "STRING", 0, `"`, `"`, nil)},
		SimpleRules:    []*grammar.Rule{grammar.Simple(0, "BAD", grammar.Regex, "[")},
	}
	res, err := Tokenize(`x "y"`, g, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, `x "y"`, res.Output)
	require.Empty(t, issuesOf(res, IssueUnresolvedAlias))
}

func TestUnresolvedAlias(t *testing.T) {
	opts := DefaultOptions()
	opts.PreEscaped = true
	res, err := Tokenize("a <&R_99> b", wordGrammar(), opts)
	require.NoError(t, err)
	require.Equal(t, "<WORD>a</WORD>  <WORD>b</WORD>", res.Output)
	require.Len(t, issuesOf(res, IssueUnresolvedAlias), 1)
}

func TestJSONGrammar(t *testing.T) {
	g, err := grammar.DefaultRegistry().Lookup("json")
	require.NoError(t, err)

	res := tokenize(t, g, `{"a": 1}`)
	require.Equal(t, `{<TYPE>"a"</TYPE>: <NUMERIC>1</NUMERIC>}`, res.Output)
	require.Len(t, res.Trees, 1)
}

func TestBuiltinGrammars(t *testing.T) {
	tests := []struct {
		language string
		input    string
		contains []string
	}{
		{
			language: "php",
			input:    "<?php echo \"hi\"; // note ?>\n<script>var x = 1;</script>\n",
			contains: []string{"<KEYWORD>echo</KEYWORD>", "<KEYWORD>var</KEYWORD>"},
		},
		{
			language: "javascript",
			input:    "function f(a) { return a / 2; } // done\nvar r = /x+/g;",
			contains: []string{"<USER_FUNCTION>f</USER_FUNCTION>", "<COMMENT>// done</COMMENT>"},
		},
		{
			language: "css",
			input:    "a { color: red; } /* x */",
			contains: []string{"<COMMENT>/* x */</COMMENT>"},
		},
		{
			language: "html",
			input:    "<p class=\"x\">hi &amp; bye</p>",
			contains: []string{"<HTMLTAG>p</HTMLTAG>"},
		},
		{
			language: "plain",
			input:    "[section]\nkey = value\n# comment\n",
			contains: []string{"<COMMENT># comment</COMMENT>"},
		},
		{
			language: "generic",
			input:    "int x = 0x1F; /* c */ if (x) return \"s\";",
			contains: []string{"<TYPE>int</TYPE>", "<NUMERIC>0x1F</NUMERIC>", "<KEYWORD>if</KEYWORD>"},
		},
	}

	registry := grammar.DefaultRegistry()
	for _, tt := range tests {
		t.Run(tt.language, func(t *testing.T) {
			g, err := registry.Lookup(tt.language)
			require.NoError(t, err)

			res := tokenize(t, g, tt.input)
			require.NotContains(t, res.Output, "<&")
			require.Equal(t, tt.input, Strip(res.Output))
			for _, want := range tt.contains {
				require.Contains(t, res.Output, want)
			}
		})
	}
}

func TestEveryBuiltinKeepsTheSource(t *testing.T) {
	input := "<?php $a = \"x\"; ?>\n<style>b { c: 1px }</style>\n// comment\n{\"k\": [1, \"v\"]}\n"
	registry := grammar.DefaultRegistry()
	for _, name := range registry.Names() {
		t.Run(name, func(t *testing.T) {
			g, err := registry.Lookup(name)
			require.NoError(t, err)
			res := tokenize(t, g, input)
			if got := Strip(res.Output); got != input {
				t.Errorf("Stripped output differs from input:\n%s", got)
			}
			if strings.Contains(res.Output, "<&") {
				t.Errorf("Internal markers left in output: %s", res.Output)
			}
		})
	}
}

func TestJSONSerialization(t *testing.T) {
	res := tokenize(t, stringGrammar(grammar.KeywordList("if")), `if "a" then`)

	tokens := res.Tokens()
	require.Len(t, tokens, 4)
	for i, token := range tokens {
		jsonBytes, err := json.Marshal(token)
		if err != nil {
			t.Errorf("Failed to serialize token %d to JSON: %v", i, err)
			continue
		}

		var back Token
		if err := json.Unmarshal(jsonBytes, &back); err != nil {
			t.Errorf("Failed to deserialize token %d from JSON: %v", i, err)
			continue
		}
		if back.Text != token.Text {
			t.Errorf("Token %d text mismatch after JSON round-trip: expected '%s', got '%s'", i, token.Text, back.Text)
		}
		if back.KindName() != token.KindName() {
			t.Errorf("Token %d kind mismatch after JSON round-trip: expected '%s', got '%s'", i, token.KindName(), back.KindName())
		}
	}
}

func TestGrammarFromFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "cfg.yaml")
	content := `language: cfg
delimited:
  - name: COMMENT
    open: "#"
    close: "\n"
simple:
  - name: KEYWORD
    pattern: '\b(?:on|off)\b'
    flags: [REGEX]
`
	require.NoError(t, writeFile(filename, content))

	f, err := grammar.LoadFile(filename)
	require.NoError(t, err)
	def, err := f.Build()
	require.NoError(t, err)

	res := tokenize(t, def.Grammar, "mode = on # off\n")
	require.Equal(t, "mode = <KEYWORD>on</KEYWORD> <COMMENT># off\n</COMMENT>", res.Output)
}

// Helper function for writing test files
func writeFile(filename, content string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString(content)
	return err
}

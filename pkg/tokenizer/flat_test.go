package tokenizer

import (
	"strings"
	"testing"

	"github.com/spicery/glint/pkg/grammar"
	"github.com/spicery/glint/pkg/strsearch"
	"github.com/stretchr/testify/require"
)

func tokenize(t *testing.T, g *grammar.Grammar, src string) *Result {
	t.Helper()
	res, err := Tokenize(src, g, DefaultOptions())
	require.NoError(t, err)
	return res
}

func issuesOf(res *Result, kind IssueKind) []Issue {
	var out []Issue
	for _, i := range res.Issues {
		if i.Kind == kind {
			out = append(out, i)
		}
	}
	return out
}

func stringGrammar(simple ...*grammar.Rule) *grammar.Grammar {
	return &grammar.Grammar{
		Info:           grammar.Info{Language: "test"},
		EscapeChars:    []rune{'\\'},
		DelimitedRules: []*grammar.Rule{grammar.Delimiter(0, "STRING", 0, `"`, `"`, nil)},
		SimpleRules:    simple,
	}
}

func TestFlatDelimiters(t *testing.T) {
	tests := []struct {
		name     string
		grammar  *grammar.Grammar
		input    string
		expected string
	}{
		{
			name:     "escaped close",
			grammar:  stringGrammar(),
			input:    `"a\"b"`,
			expected: `<STRING>"a\"b"</STRING>`,
		},
		{
			name:     "escaped escape",
			grammar:  stringGrammar(),
			input:    `"a\\"b"`,
			expected: `<STRING>"a\\"</STRING>b<STRING>"</STRING>`,
		},
		{
			name:     "escaped open",
			grammar:  stringGrammar(),
			input:    `\"a"`,
			expected: `\"a<STRING>"</STRING>`,
		},
		{
			name:     "unterminated runs to the end",
			grammar:  stringGrammar(),
			input:    `x "abc`,
			expected: `x <STRING>"abc</STRING>`,
		},
		{
			name:     "keywords skip strings",
			grammar:  stringGrammar(grammar.KeywordList("if")),
			input:    `if "if" iffy`,
			expected: `<KEYWORD>if</KEYWORD> <STRING>"if"</STRING> iffy`,
		},
		{
			name: "exclude",
			grammar: &grammar.Grammar{
				DelimitedRules: []*grammar.Rule{grammar.Delimiter(0, "BODY", grammar.Exclude, "[", "]", nil)},
			},
			input:    "a[b]c",
			expected: "a[<BODY>b</BODY>]c",
		},
		{
			name: "dynamic bracket",
			grammar: &grammar.Grammar{
				DelimitedRules: []*grammar.Rule{grammar.Delimiter(0, "STRING", grammar.DynamicDelims, "q", "", nil)},
			},
			input:    "q{ab}c",
			expected: "<STRING>q{ab}</STRING>c",
		},
		{
			name: "dynamic word",
			grammar: &grammar.Grammar{
				DelimitedRules: []*grammar.Rule{grammar.Delimiter(0, "HEREDOC", grammar.DynamicDelims, "@@", "", nil)},
			},
			input:    "@@END x END y",
			expected: "<HEREDOC>@@END x END</HEREDOC> y",
		},
		{
			name: "earliest declared wins a tie",
			grammar: &grammar.Grammar{
				DelimitedRules: []*grammar.Rule{
					grammar.Delimiter(0, "DOCCOMMENT", grammar.Regex|grammar.Complete, `///.*`, "", nil),
					grammar.Delimiter(0, "COMMENT", grammar.Regex|grammar.Complete, `//.*`, "", nil),
				},
			},
			input:    "/// x",
			expected: "<DOCCOMMENT>/// x</DOCCOMMENT>",
		},
		{
			name: "tie goes the other way when declared the other way",
			grammar: &grammar.Grammar{
				DelimitedRules: []*grammar.Rule{
					grammar.Delimiter(0, "COMMENT", grammar.Regex|grammar.Complete, `//.*`, "", nil),
					grammar.Delimiter(0, "DOCCOMMENT", grammar.Regex|grammar.Complete, `///.*`, "", nil),
				},
			},
			input:    "/// x",
			expected: "<COMMENT>/// x</COMMENT>",
		},
		{
			name: "leading whitespace stays outside",
			grammar: &grammar.Grammar{
				DelimitedRules: []*grammar.Rule{grammar.Delimiter(0, "TAG", grammar.Regex|grammar.Complete, `\s+foo`, "", nil)},
			},
			input:    "x  foo",
			expected: "x  <TAG>foo</TAG>",
		},
		{
			name: "inner rules",
			grammar: &grammar.Grammar{
				EscapeChars: []rune{'\\'},
				DelimitedRules: []*grammar.Rule{
					grammar.Delimiter(0, "STRING", 0, `"`, `"`, nil).WithInner(grammar.Simple(0, "ESC", grammar.Regex, `\\.`)),
				},
			},
			input:    `"a\tb"`,
			expected: `<STRING>"a</STRING><ESC>\t</ESC><STRING>b"</STRING>`,
		},
		{
			name: "comment callback",
			grammar: &grammar.Grammar{
				DelimitedRules: []*grammar.Rule{grammar.CommentRule("/*", "*/")},
			},
			input:    "/* TODO x */",
			expected: "<COMMENT>/* <COMMENT_NOTE>TODO</COMMENT_NOTE> x */</COMMENT>",
		},
		{
			name:     "input is escaped",
			grammar:  stringGrammar(),
			input:    `a<b "<&>"`,
			expected: `a&lt;b <STRING>"&lt;&amp;&gt;"</STRING>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tokenize(t, tt.grammar, tt.input)
			if res.Output != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, res.Output)
			}
			if got := Strip(res.Output); got != tt.input {
				t.Errorf("Stripped output %q is not the input", got)
			}
		})
	}
}

func TestSimpleRules(t *testing.T) {
	tests := []struct {
		name     string
		grammar  *grammar.Grammar
		input    string
		expected string
	}{
		{
			name: "capture group",
			grammar: &grammar.Grammar{
				SimpleRules: []*grammar.Rule{grammar.Simple(0, "FUNCTION", grammar.Regex, `(\w+)\(`).WithGroup(1, false)},
			},
			input:    "foo(x)",
			expected: "<FUNCTION>foo</FUNCTION>(x)",
		},
		{
			name: "case insensitive literal",
			grammar: &grammar.Grammar{
				CaseInsensitive: true,
				SimpleRules:     []*grammar.Rule{grammar.Simple(0, "KEYWORD", 0, "select")},
			},
			input:    "SELECT x",
			expected: "<KEYWORD>SELECT</KEYWORD> x",
		},
		{
			name: "earlier rule wins",
			grammar: &grammar.Grammar{
				SimpleRules: []*grammar.Rule{
					grammar.Simple(0, "TYPE", grammar.Regex, `\bint\b`),
					grammar.Simple(0, "WORD", grammar.Regex, `\w+`),
				},
			},
			input:    "int x",
			expected: "<TYPE>int</TYPE> <WORD>x</WORD>",
		},
		{
			name: "list values",
			grammar: &grammar.Grammar{
				SimpleRules: []*grammar.Rule{grammar.KeywordList("if", "else")},
			},
			input:    "if a else b",
			expected: "<KEYWORD>if</KEYWORD> a <KEYWORD>else</KEYWORD> b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tokenize(t, tt.grammar, tt.input)
			if res.Output != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, res.Output)
			}
		})
	}
}

func TestCallbacksNeedVerbosity(t *testing.T) {
	g := &grammar.Grammar{DelimitedRules: []*grammar.Rule{grammar.CommentRule("/*", "*/")}}
	opts := DefaultOptions()
	opts.Verbosity = 2
	res, err := Tokenize("/* TODO */", g, opts)
	require.NoError(t, err)
	require.Equal(t, "<COMMENT>/* TODO */</COMMENT>", res.Output)
}

func TestVerbosityDropsRules(t *testing.T) {
	g := &grammar.Grammar{SimpleRules: []*grammar.Rule{
		grammar.Simple(1, "KEYWORD", 0, "if"),
		grammar.Simple(4, "OPERATOR", 0, "+"),
	}}
	opts := DefaultOptions()
	opts.Verbosity = 1
	res, err := Tokenize("if a+b", g, opts)
	require.NoError(t, err)
	require.Equal(t, "<KEYWORD>if</KEYWORD> a+b", res.Output)
}

func TestMissingGroupReportedOnce(t *testing.T) {
	g := &grammar.Grammar{
		Info:        grammar.Info{Language: "groups"},
		SimpleRules: []*grammar.Rule{grammar.Simple(0, "NAME", grammar.Regex, `(a)|(b)`).WithGroup(2, false)},
	}
	res := tokenize(t, g, "a b a")
	require.Equal(t, "a <NAME>b</NAME> a", res.Output)

	missing := issuesOf(res, IssueMissingGroup)
	require.Len(t, missing, 1)
	require.Equal(t, "NAME", missing[0].Rule)
	require.Equal(t, "groups", missing[0].Grammar)
}

func TestZeroLengthRulesArePruned(t *testing.T) {
	g := &grammar.Grammar{
		DelimitedRules: []*grammar.Rule{grammar.Delimiter(0, "EMPTY", grammar.Regex|grammar.Complete, `(?=a)`, "", nil)},
		SimpleRules:    []*grammar.Rule{grammar.Simple(0, "NOTHING", grammar.Regex, `x*`)},
	}
	input := strings.Repeat("ab", 5000)

	res := tokenize(t, g, input)
	require.Equal(t, input, res.Output)

	pruned := issuesOf(res, IssueZeroLengthRule)
	require.Len(t, pruned, 2)
	require.Equal(t, "EMPTY", pruned[0].Rule)
	require.Equal(t, "NOTHING", pruned[1].Rule)
}

func wordGrammar() *grammar.Grammar {
	return &grammar.Grammar{
		Info:        grammar.Info{Language: "words"},
		SimpleRules: []*grammar.Rule{grammar.Simple(0, "WORD", grammar.Regex, `\w+`)},
	}
}

func TestBoundaryWindows(t *testing.T) {
	embedded := func(strict bool) *grammar.Grammar {
		return &grammar.Grammar{
			Info:                grammar.Info{Language: "embedded"},
			BoundaryRules:       []*grammar.Rule{grammar.Boundary(0, "&lt;?x", "?&gt;")},
			IgnoreOutsideStrict: strict,
			SimpleRules:         []*grammar.Rule{grammar.KeywordList("if")},
			Child:               wordGrammar(),
		}
	}

	tests := []struct {
		name     string
		grammar  *grammar.Grammar
		input    string
		expected string
	}{
		{
			name:     "child sees outside the window",
			grammar:  embedded(true),
			input:    "a <?x if?> b",
			expected: "<WORD>a</WORD> &lt;?x <KEYWORD>if</KEYWORD>?&gt; <WORD>b</WORD>",
		},
		{
			name:     "two windows",
			grammar:  embedded(true),
			input:    "<?x if?>a<?x if?>",
			expected: "&lt;?x <KEYWORD>if</KEYWORD>?&gt;<WORD>a</WORD>&lt;?x <KEYWORD>if</KEYWORD>?&gt;",
		},
		{
			name:     "strict without windows parses nothing",
			grammar:  embedded(true),
			input:    "a if b",
			expected: "<WORD>a</WORD> <WORD>if</WORD> <WORD>b</WORD>",
		},
		{
			name:     "lenient without windows parses everything",
			grammar:  embedded(false),
			input:    "a if b",
			expected: "a <KEYWORD>if</KEYWORD> b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tokenize(t, tt.grammar, tt.input)
			if res.Output != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, res.Output)
			}
		})
	}
}

func TestStopAtEnd(t *testing.T) {
	g := &grammar.Grammar{
		BoundaryRules:       []*grammar.Rule{grammar.Boundary(0, "&lt;?", "?&gt;")},
		IgnoreOutsideStrict: true,
		DelimitedRules: []*grammar.Rule{
			grammar.Delimiter(0, "COMMENT", grammar.StopAtEnd, "/*", "*/", nil),
		},
	}
	res := tokenize(t, g, "<? /* c ?> d")
	require.Equal(t, "&lt;? <COMMENT>/* c </COMMENT>?&gt; d", res.Output)

	// without the flag the comment runs on past the window
	g.DelimitedRules[0].Flags = 0
	res = tokenize(t, g, "<? /* c ?> d")
	require.Equal(t, "&lt;? <COMMENT>/* c ?&gt; d</COMMENT>", res.Output)
}

func newMatcher(src string) *strsearch.Matcher {
	return strsearch.New(src, strsearch.Options{})
}

func TestWindows(t *testing.T) {
	src := "&lt;?x a ?&gt; b &lt;?x c ?&gt;"
	w, err := findWindows(newMatcher(src), []*grammar.Rule{grammar.Boundary(0, "&lt;?x", "?&gt;")})
	require.NoError(t, err)
	require.Equal(t, []int{0, 17}, w.starts)
	require.Equal(t, []int{14, len(src)}, w.ends)
	require.Equal(t, 9, w.stopAt(14))

	excluded, err := findWindows(newMatcher(src), []*grammar.Rule{grammar.Boundary(grammar.Exclude, "&lt;?x", "?&gt;")})
	require.NoError(t, err)
	require.Equal(t, []int{6, 23}, excluded.starts)
	require.Equal(t, []int{9, 26}, excluded.ends)
	require.Equal(t, 9, excluded.stopAt(9))
}

func TestSplitWindows(t *testing.T) {
	got, err := splitWindows("a"+startMarker+"b"+endMarker+"c"+startMarker+"d", func(s string) (string, error) {
		return "[" + s + "]", nil
	})
	require.NoError(t, err)
	require.Equal(t, "a[b]c[d]", got)
}

func TestFlatStepNeedsProgress(t *testing.T) {
	tests := []struct {
		name  string
		next  flatStep
		stuck bool
	}{
		{"moved forward", flatStep{pos: 5, live: 2, win: 0}, false},
		{"dropped a rule", flatStep{pos: 4, live: 1, win: 0}, false},
		{"changed window", flatStep{pos: 4, live: 2, win: 4}, false},
		{"same step", flatStep{pos: 4, live: 2, win: 0}, true},
		{"moved backwards", flatStep{pos: 3, live: 1, win: 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			last := flatStep{pos: 4, live: 2, win: 0}
			err := last.advance(tt.next)
			if !tt.stuck {
				require.NoError(t, err)
				require.Equal(t, tt.next, last)
				return
			}
			require.ErrorIs(t, err, ErrNoProgress)
			require.Equal(t, flatStep{pos: 4, live: 2, win: 0}, last)
		})
	}
}

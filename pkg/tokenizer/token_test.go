package tokenizer

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestEscapeString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain", "plain"},
		{"a < b", "a &lt; b"},
		{"a && b > c", "a &amp;&amp; b &gt; c"},
		{"&lt;", "&amp;lt;"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := EscapeString(tt.input)
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
			if back := UnescapeString(got); back != tt.input {
				t.Errorf("Unescape did not round trip: %q", back)
			}
		})
	}
}

func TestTokenEscapeIsIdempotent(t *testing.T) {
	tok := NewToken("STRING", `"<a & b>"`, Span{})
	tok.Escape()
	once := tok.Text
	tok.Escape()
	if tok.Text != once {
		t.Errorf("Second Escape changed the text: %q became %q", once, tok.Text)
	}
	if !tok.Escaped {
		t.Error("Expected token to be marked escaped")
	}
	tok.Unescape()
	tok.Unescape()
	if tok.Text != `"<a & b>"` {
		t.Errorf("Unexpected unescaped text %q", tok.Text)
	}
}

func TestNewTokenKind(t *testing.T) {
	if tok := NewToken("", "x", Span{}); tok.Kind != nil || tok.KindName() != "" {
		t.Errorf("Expected untagged token, got kind %v", tok.Kind)
	}
	if tok := NewToken("KEYWORD", "if", Span{}); tok.KindName() != "KEYWORD" {
		t.Errorf("Expected KEYWORD, got %q", tok.KindName())
	}
}

func TestSpanJSON(t *testing.T) {
	span := Span{Start: Position{Line: 1, Col: 2}, End: Position{Line: 3, Col: 4}}
	data, err := json.Marshal(span)
	require.NoError(t, err)
	require.Equal(t, "[1,2,3,4]", string(data))

	var back Span
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, span, back)
}

func TestTagBlock(t *testing.T) {
	tests := []struct {
		name          string
		tag, text     string
		separateLines bool
		expected      string
	}{
		{"simple", "KEYWORD", "if", false, "<KEYWORD>if</KEYWORD>"},
		{"empty tag", "", "if", false, "if"},
		{"empty text", "KEYWORD", "", false, ""},
		{"multi line", "COMMENT", "/* a\nb */", false, "<COMMENT>/* a\nb */</COMMENT>"},
		{"separate lines", "COMMENT", "/* a\nb */", true, "<COMMENT>/* a</COMMENT>\n<COMMENT>b */</COMMENT>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TagBlock(tt.tag, tt.text, tt.separateLines); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestParseTagged(t *testing.T) {
	got := ParseTagged("<KEYWORD>if</KEYWORD> x &lt; 1\n<STRING>\"a<ESC>\\n</ESC>\"</STRING>")

	type flat struct {
		Kind string
		Text string
		Span Span
	}
	var tokens []flat
	for _, tok := range got {
		if !tok.Escaped {
			t.Errorf("Expected token %q to be marked escaped", tok.Text)
		}
		tokens = append(tokens, flat{tok.KindName(), tok.Text, tok.Span})
	}

	pos := func(line, col int) Position { return Position{Line: line, Col: col} }
	expected := []flat{
		{"KEYWORD", "if", Span{pos(1, 1), pos(1, 3)}},
		{"", " x &lt; 1\n", Span{pos(1, 3), pos(2, 1)}},
		{"STRING", `"a`, Span{pos(2, 1), pos(2, 3)}},
		{"ESC", `\n`, Span{pos(2, 3), pos(2, 5)}},
		{"STRING", `"`, Span{pos(2, 5), pos(2, 6)}},
	}
	if diff := cmp.Diff(expected, tokens); diff != "" {
		t.Errorf("ParseTagged mismatch (-want +got):\n%s", diff)
	}
}

func TestStrip(t *testing.T) {
	tests := []struct {
		tagged   string
		expected string
	}{
		{"<KEYWORD>if</KEYWORD> a &lt; b", "if a < b"},
		{"<STRING>\"x<ESC>\\t</ESC>\"</STRING>", "\"x\\t\""},
		{"no tags &amp; entities", "no tags & entities"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := Strip(tt.tagged); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestNormalizeNewlines(t *testing.T) {
	if got := normalizeNewlines("a\r\nb\rc\n"); got != "a\nb\nc\n" {
		t.Errorf("Unexpected result %q", got)
	}
}

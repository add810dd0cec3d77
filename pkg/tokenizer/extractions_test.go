package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractionsResolve(t *testing.T) {
	ext := NewExtractions()
	inner := ext.AddTagged("ESC", `\n`, false)
	outer := ext.AddTagged("STRING", `"a`+inner+`"`, false)
	kw := ext.AddTagged("KEYWORD", "return", false)

	text := kw + " " + outer + ";"
	got, unresolved := ext.Resolve(text)
	require.Zero(t, unresolved)
	require.Equal(t, `<KEYWORD>return</KEYWORD> <STRING>"a<ESC>\n</ESC>"</STRING>;`, got)
	require.Zero(t, ext.Len(), "resolved entries are removed")

	again, unresolved := ext.Resolve(got)
	require.Zero(t, unresolved)
	require.Equal(t, got, again, "resolving text without aliases changes nothing")
}

func TestExtractionsMissingAlias(t *testing.T) {
	ext := NewExtractions()
	a := ext.Add("x")
	got, unresolved := ext.Resolve(a + Alias(42) + "y")
	require.Equal(t, 1, unresolved)
	require.Equal(t, "xy", got)
}

func TestExtractionsAliasesAreUnique(t *testing.T) {
	ext := NewExtractions()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		a := ext.Add("t")
		if seen[a] {
			t.Fatalf("Alias %s handed out twice", a)
		}
		seen[a] = true
	}
}

func TestExtractionsRollback(t *testing.T) {
	ext := NewExtractions()
	kept := ext.Add("kept")
	mark := ext.Mark()
	ext.Add("dropped")
	ext.Add("dropped too")
	ext.Rollback(mark)

	require.Equal(t, 1, ext.Len())
	require.Equal(t, mark, ext.Mark())

	next := ext.Add("after")
	got, unresolved := ext.Resolve(kept + " " + next)
	require.Zero(t, unresolved)
	require.Equal(t, "kept after", got)
}

func TestAliasSpans(t *testing.T) {
	text := "a" + Alias(1) + "<&R_x>" + Alias(23)
	spans := aliasSpans(text)
	require.Equal(t, []span{{1, 7}, {13, 20}}, spans)

	_, crossing := crossesAlias(spans, 0, 3)
	require.True(t, crossing)
	_, crossing = crossesAlias(spans, 0, 7)
	require.False(t, crossing, "a match containing a whole alias does not cross it")
}

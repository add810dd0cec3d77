package scanner

import (
	"testing"

	"github.com/spicery/glint/pkg/strsearch"
	"github.com/stretchr/testify/require"
)

var (
	word   = strsearch.Regex(`\w+`)
	space  = strsearch.Regex(`\s+`)
	number = strsearch.Regex(`\d+`)
)

func TestScanIsAnchored(t *testing.T) {
	s := New("foo 42", strsearch.Options{})

	if _, ok := s.Scan(number); ok {
		t.Fatal("Scan matched a pattern that does not start at the pointer")
	}
	if s.Pos() != 0 {
		t.Fatalf("Failed Scan moved the pointer to %d", s.Pos())
	}

	got, ok := s.Scan(word)
	if !ok || got != "foo" {
		t.Fatalf("Expected foo, got %q (ok=%v)", got, ok)
	}
	if s.Pos() != 3 || s.Match() != "foo" || s.MatchPos() != 0 {
		t.Errorf("Unexpected state pos=%d match=%q matchPos=%d", s.Pos(), s.Match(), s.MatchPos())
	}
}

func TestScanUntil(t *testing.T) {
	s := New("abc // comment", strsearch.Options{})
	skipped, ok := s.ScanUntil(strsearch.Literal("//"))
	if !ok {
		t.Fatal("Expected ScanUntil to find //")
	}
	if skipped != "abc " {
		t.Errorf("Expected skipped text %q, got %q", "abc ", skipped)
	}
	if s.Pos() != 4 {
		t.Errorf("Expected pointer at the match start 4, got %d", s.Pos())
	}
	if s.Match() != "abc " || s.MatchPos() != 0 {
		t.Errorf("Expected the skipped span recorded, got %q at %d", s.Match(), s.MatchPos())
	}
}

func TestCheckDoesNotConsume(t *testing.T) {
	s := New("42 x", strsearch.Options{})
	got, ok := s.Check(number)
	if !ok || got != "42" {
		t.Fatalf("Expected 42, got %q", got)
	}
	if s.Pos() != 0 {
		t.Errorf("Check moved the pointer to %d", s.Pos())
	}
	if s.Match() != "42" {
		t.Errorf("Check was not recorded, match=%q", s.Match())
	}
}

func TestSkipIsNotRecorded(t *testing.T) {
	s := New("foo   bar", strsearch.Options{})
	s.Scan(word)
	if !s.Skip(space) {
		t.Fatal("Expected Skip to consume whitespace")
	}
	if s.Pos() != 6 {
		t.Errorf("Expected pointer at 6, got %d", s.Pos())
	}
	if s.Match() != "foo" {
		t.Errorf("Skip replaced the recorded match with %q", s.Match())
	}
}

func TestUnscan(t *testing.T) {
	s := New("foo bar", strsearch.Options{})
	s.Scan(word)
	s.Skip(space)
	s.Scan(word)
	require.Equal(t, "bar", s.Match())

	s.Unscan()
	require.Equal(t, 4, s.Pos(), "pointer goes back to where the second scan began")
	require.Equal(t, "foo", s.Match(), "match state of the previous operation is restored")

	// scanning again after a backwards move still finds the same text
	got, ok := s.Scan(word)
	require.True(t, ok)
	require.Equal(t, "bar", got)
}

func TestUnscanEmptyHistoryPanics(t *testing.T) {
	s := New("x", strsearch.Options{})
	require.Panics(t, func() { s.Unscan() })

	s.Scan(word)
	s.Unscan()
	require.Panics(t, func() { s.Unscan() }, "history is cleared after the only entry is reverted")
}

func TestBoundaryPredicates(t *testing.T) {
	s := New("ab\ncd", strsearch.Options{})
	tests := []struct {
		pos           int
		bol, eol, eos bool
	}{
		{0, true, false, false},
		{2, false, true, false},
		{3, true, false, false},
		{5, false, true, true},
	}
	for _, tt := range tests {
		s.SetPos(tt.pos)
		if s.Bol() != tt.bol || s.Eol() != tt.eol || s.Eos() != tt.eos {
			t.Errorf("pos %d: got bol=%v eol=%v eos=%v, want %v %v %v",
				tt.pos, s.Bol(), s.Eol(), s.Eos(), tt.bol, tt.eol, tt.eos)
		}
	}
}

func TestSetStringNormalizesNewlines(t *testing.T) {
	s := New("a\r\nb\rc", strsearch.Options{})
	if s.String() != "a\nb\nc" {
		t.Errorf("Expected normalized newlines, got %q", s.String())
	}
	s.Scan(word)
	s.SetString("zz")
	if s.Pos() != 0 || s.Match() != "" {
		t.Errorf("SetString did not reset: pos=%d match=%q", s.Pos(), s.Match())
	}
}

func TestPeekAndConsumeAreRuneBased(t *testing.T) {
	s := New("héllo", strsearch.Options{})
	if got := s.Peek(2); got != "hé" {
		t.Errorf("Expected hé, got %q", got)
	}
	if got := s.Consume(2); got != "hé" {
		t.Errorf("Expected hé, got %q", got)
	}
	if s.Rest() != "llo" {
		t.Errorf("Expected rest llo, got %q", s.Rest())
	}
	s.Terminate()
	if !s.Eos() || s.Peek(3) != "" {
		t.Error("Expected end of string after Terminate")
	}
}

func TestMarks(t *testing.T) {
	s := New("one two", strsearch.Options{})
	s.Mark()
	s.Scan(word)
	s.Skip(space)
	if got := s.PopMark(); got != "one " {
		t.Errorf("Expected %q since mark, got %q", "one ", got)
	}
	if got := s.PopMark(); got != "" {
		t.Errorf("Expected empty text with no mark, got %q", got)
	}
}

func TestNextOfPrefersEarliestOnTie(t *testing.T) {
	s := New("x /// doc", strsearch.Options{})
	i, m := s.NextOf([]strsearch.Pattern{strsearch.Literal("///"), strsearch.Literal("//")})
	if i != 0 || m.Start != 2 {
		t.Errorf("Expected the first pattern at 2, got %d at %d", i, m.Start)
	}
	i, _ = s.NextOf([]strsearch.Pattern{strsearch.Literal("//"), strsearch.Literal("///")})
	if i != 0 {
		t.Errorf("Expected declaration order to break the tie, got %d", i)
	}
	if i, _ := s.NextOf([]strsearch.Pattern{strsearch.Literal("#")}); i != -1 {
		t.Errorf("Expected -1 for no match, got %d", i)
	}
}

func TestNamedPatterns(t *testing.T) {
	s := New("a1 b2 c", strsearch.Options{})
	s.AddPattern("digit", number)
	s.AddPattern("gone", strsearch.Literal("#"))
	s.AddPattern("letter", strsearch.Regex(`[a-z]`))

	name, m, ok := s.NextMatch()
	require.True(t, ok)
	require.Equal(t, "letter", name)
	require.Equal(t, 0, m.Start)
	require.NotContains(t, s.Patterns(), "gone", "patterns without a match are pruned")

	s.SetPos(1)
	name, m, ok = s.NextMatch()
	require.True(t, ok)
	require.Equal(t, "digit", name)
	require.Equal(t, 1, m.Start)

	s.RemovePattern("digit")
	s.SetPos(6)
	name, _, ok = s.NextMatch()
	require.True(t, ok)
	require.Equal(t, "letter", name)

	s.Terminate()
	_, _, ok = s.NextMatch()
	require.False(t, ok)
}

func TestEngineErrorIsSticky(t *testing.T) {
	s := New("abc", strsearch.Options{})
	if _, ok := s.Scan(strsearch.Regex(`[`)); ok {
		t.Fatal("Expected a broken pattern not to match")
	}
	if _, ok := strsearch.IsPatternError(s.Err()); !ok {
		t.Errorf("Expected a PatternError from Err, got %v", s.Err())
	}
	s.Reset()
	if s.Err() != nil {
		t.Errorf("Expected Reset to clear the error, got %v", s.Err())
	}
}

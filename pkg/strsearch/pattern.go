package strsearch

import (
	"fmt"

	"github.com/dlclark/regexp2"
)

// Kind says how a Pattern's source is interpreted.
type Kind uint8

const (
	LiteralKind Kind = iota // Plain substring
	RegexKind               // regexp2 (Perl/.NET) syntax
)

// Pattern is a literal string or a regular expression to search for.
type Pattern struct {
	Source string
	Kind   Kind
}

// Literal returns a pattern matching s exactly.
func Literal(s string) Pattern {
	return Pattern{Source: s, Kind: LiteralKind}
}

// Regex returns a pattern compiled with regexp2.
func Regex(s string) Pattern {
	return Pattern{Source: s, Kind: RegexKind}
}

// IsRegex reports whether the pattern is a regular expression.
func (p Pattern) IsRegex() bool {
	return p.Kind == RegexKind
}

func (p Pattern) String() string {
	if p.IsRegex() {
		return fmt.Sprintf("/%s/", p.Source)
	}
	return fmt.Sprintf("%q", p.Source)
}

// Escape quotes every regex metacharacter in s.
func Escape(s string) string {
	return regexp2.Escape(s)
}

// Group is one capture group of a match. Start and End are byte offsets
// into the searched string; both are -1 when the group did not take part.
type Group struct {
	Start int
	End   int
	Text  string
}

// Matched reports whether the group participated in the match.
func (g Group) Matched() bool {
	return g.Start >= 0
}

// Match describes one occurrence of a pattern. Groups[0] is the whole match
// for regex patterns; literal matches carry a single group.
type Match struct {
	Start  int
	End    int
	Text   string
	Groups []Group
}

// Len returns the match length in bytes.
func (m Match) Len() int {
	return m.End - m.Start
}

// GroupText returns the text of group i, or "" when the group is absent.
func (m Match) GroupText(i int) string {
	if i < 0 || i >= len(m.Groups) {
		return ""
	}
	return m.Groups[i].Text
}

// GroupTexts returns the text of every group, "" for groups that did not
// participate.
func (m Match) GroupTexts() []string {
	texts := make([]string, len(m.Groups))
	for i, g := range m.Groups {
		texts[i] = g.Text
	}
	return texts
}

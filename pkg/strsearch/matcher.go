// Package strsearch finds literal and regular-expression patterns in a fixed
// string and memoizes the result of each search, so that a scanner probing
// the same handful of patterns over and over pays for each occurrence once.
package strsearch

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Options configures a Matcher.
type Options struct {
	// CaseInsensitive folds literal searches and compiles regexes with
	// regexp2.IgnoreCase.
	CaseInsensitive bool
	// MatchTimeout bounds one regex probe. Zero means DefaultMatchTimeout.
	MatchTimeout time.Duration
}

type entry struct {
	match Match
	found bool
	err   error
}

// Matcher searches one immutable string.
//
// For each distinct pattern the Matcher remembers the last result. A query
// whose from offset is at or before the remembered match start is answered
// from memory, and a pattern that was not found is never searched again.
// This is only sound if the from offsets given to one Matcher never
// decrease: a caller that needs to search behind a previous query must call
// Reset first.
type Matcher struct {
	src    string
	folded string
	opts   Options
	memo   map[Pattern]*entry

	// Built on the first regex query.
	runes      []rune
	runeOfByte []int
	byteOfRune []int
}

// New returns a Matcher over src. In case-insensitive mode the haystack is
// folded here, once.
func New(src string, opts Options) *Matcher {
	m := &Matcher{
		src:  src,
		opts: opts,
		memo: make(map[Pattern]*entry),
	}
	if opts.CaseInsensitive {
		m.folded = fold(src)
	}
	return m
}

// Source returns the string being searched.
func (m *Matcher) Source() string {
	return m.src
}

// Options returns the options the Matcher was built with.
func (m *Matcher) Options() Options {
	return m.opts
}

// Reset forgets every memoized result.
func (m *Matcher) Reset() {
	clear(m.memo)
}

// Find returns the first occurrence of p starting at or after byte offset
// from. The boolean is false when there is none. A non-nil error is a
// *PatternError; it is remembered and returned again for the same pattern.
func (m *Matcher) Find(p Pattern, from int) (Match, bool, error) {
	if from < 0 {
		from = 0
	}
	if e, ok := m.memo[p]; ok {
		if e.err != nil {
			return Match{}, false, e.err
		}
		if !e.found {
			return Match{}, false, nil
		}
		if e.match.Start >= from {
			return e.match, true, nil
		}
	}

	match, found, err := m.search(p, from)
	m.memo[p] = &entry{match: match, found: found, err: err}
	return match, found, err
}

// Search is Find without the memo: it always runs the engine and leaves the
// remembered result alone, so it may look behind earlier queries.
func (m *Matcher) Search(p Pattern, from int) (Match, bool, error) {
	if from < 0 {
		from = 0
	}
	return m.search(p, from)
}

// Index is Find without the match details; it returns -1 when p does not
// occur at or after from.
func (m *Matcher) Index(p Pattern, from int) (int, error) {
	match, ok, err := m.Find(p, from)
	if err != nil || !ok {
		return -1, err
	}
	return match.Start, nil
}

// FindAll returns every non-overlapping occurrence of p. It does not read
// or write the memo.
func (m *Matcher) FindAll(p Pattern) ([]Match, error) {
	var matches []Match
	from := 0
	for from <= len(m.src) {
		match, ok, err := m.search(p, from)
		if err != nil {
			return matches, err
		}
		if !ok {
			break
		}
		matches = append(matches, match)
		if match.End > match.Start {
			from = match.End
		} else {
			from = match.End + nextRuneLen(m.src, match.End)
		}
	}
	return matches, nil
}

// search runs the pattern engine without consulting the memo.
func (m *Matcher) search(p Pattern, from int) (Match, bool, error) {
	if from > len(m.src) {
		return Match{}, false, nil
	}
	if p.IsRegex() {
		return m.searchRegex(p, from)
	}
	match, ok := m.searchLiteral(p, from)
	return match, ok, nil
}

func (m *Matcher) searchLiteral(p Pattern, from int) (Match, bool) {
	hay, needle := m.src, p.Source
	if m.opts.CaseInsensitive {
		hay, needle = m.folded, fold(needle)
	}
	i := strings.Index(hay[from:], needle)
	if i < 0 {
		return Match{}, false
	}
	start := from + i
	end := start + len(needle)
	text := m.src[start:end]
	return Match{
		Start:  start,
		End:    end,
		Text:   text,
		Groups: []Group{{Start: start, End: end, Text: text}},
	}, true
}

func (m *Matcher) searchRegex(p Pattern, from int) (Match, bool, error) {
	re, err := Compile(p.Source, m.opts)
	if err != nil {
		return Match{}, false, err
	}
	m.buildRuneTables()

	rm, err := re.FindRunesMatchStartingAt(m.runes, m.runeOfByte[from])
	if err != nil {
		return Match{}, false, &PatternError{Pattern: p, Code: classify(err), Err: err}
	}
	if rm == nil {
		return Match{}, false, nil
	}
	return m.convert(rm), true, nil
}

func (m *Matcher) convert(rm *regexp2.Match) Match {
	start := m.byteOfRune[rm.Index]
	end := m.byteOfRune[rm.Index+rm.Length]
	groups := rm.Groups()
	match := Match{
		Start:  start,
		End:    end,
		Text:   m.src[start:end],
		Groups: make([]Group, len(groups)),
	}
	for i, g := range groups {
		if len(g.Captures) == 0 {
			match.Groups[i] = Group{Start: -1, End: -1}
			continue
		}
		gs := m.byteOfRune[g.Index]
		ge := m.byteOfRune[g.Index+g.Length]
		match.Groups[i] = Group{Start: gs, End: ge, Text: m.src[gs:ge]}
	}
	return match
}

// buildRuneTables maps between byte offsets, which the API speaks, and rune
// offsets, which regexp2 speaks. A byte offset inside a multi-byte rune maps
// to the following rune.
func (m *Matcher) buildRuneTables() {
	if m.runeOfByte != nil {
		return
	}
	m.runes = make([]rune, 0, len(m.src))
	m.runeOfByte = make([]int, len(m.src)+1)
	m.byteOfRune = make([]int, 0, len(m.src)+1)
	for b := 0; b < len(m.src); {
		r, size := utf8.DecodeRuneInString(m.src[b:])
		n := len(m.runes)
		m.runes = append(m.runes, r)
		m.byteOfRune = append(m.byteOfRune, b)
		m.runeOfByte[b] = n
		for k := 1; k < size; k++ {
			m.runeOfByte[b+k] = n + 1
		}
		b += size
	}
	m.runeOfByte[len(m.src)] = len(m.runes)
	m.byteOfRune = append(m.byteOfRune, len(m.src))
}

// fold lowercases s rune by rune, keeping every rune at its original byte
// width so offsets into the folded string are offsets into s.
func fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		l := unicode.ToLower(r)
		if r == utf8.RuneError || utf8.RuneLen(l) != size {
			b.WriteString(s[i : i+size])
		} else {
			b.WriteRune(l)
		}
		i += size
	}
	return b.String()
}

func nextRuneLen(s string, i int) int {
	if i >= len(s) {
		return 1
	}
	_, n := utf8.DecodeRuneInString(s[i:])
	return n
}

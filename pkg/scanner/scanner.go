// Package scanner provides a string scanner with a position pointer,
// pattern matching anchored at or searching from that pointer, and a short
// match history so the last recorded operation can be undone.
package scanner

import (
	"strings"
	"unicode/utf8"

	"github.com/spicery/glint/pkg/strsearch"
)

// record is one entry of the match history.
type record struct {
	scanPos  int // position before the operation
	matchPos int // where the recorded match starts
	match    strsearch.Match
}

// Scanner walks a string from left to right.
type Scanner struct {
	src     string
	pos     int
	opts    strsearch.Options
	matcher *strsearch.Matcher

	// history[0] is the most recent recorded operation.
	history [2]*record

	markStack []int
	patterns  []namedPattern
	err       error
}

type namedPattern struct {
	name    string
	pattern strsearch.Pattern
	next    int // cached start of the next match, -1 unknown
	match   strsearch.Match
}

// New creates a scanner over src.
func New(src string, opts strsearch.Options) *Scanner {
	s := &Scanner{opts: opts}
	s.SetString(src)
	return s
}

// SetString replaces the source, normalizing line endings to \n, and resets
// the scanner. The underlying matcher is rebuilt for the new string.
func (s *Scanner) SetString(src string) {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	src = strings.ReplaceAll(src, "\r", "\n")
	s.src = src
	s.Reset()
}

// String returns the source being scanned.
func (s *Scanner) String() string {
	return s.src
}

// Reset moves to the start of the string, clears the match history, marks,
// named-pattern cache and sticky error, and rebuilds the matcher.
func (s *Scanner) Reset() {
	s.pos = 0
	s.history = [2]*record{}
	s.markStack = s.markStack[:0]
	s.err = nil
	s.matcher = strsearch.New(s.src, s.opts)
	for i := range s.patterns {
		s.patterns[i].next = -1
	}
}

// Err returns the first pattern engine error met since the last Reset.
// Operations that hit an engine error behave as if nothing matched.
func (s *Scanner) Err() error {
	return s.err
}

// Pos returns the current byte offset.
func (s *Scanner) Pos() int {
	return s.pos
}

// SetPos moves the pointer, clamped to the string. Moving backwards drops
// memoized search results, which are only valid for forward scanning.
func (s *Scanner) SetPos(pos int) {
	pos = max(0, min(pos, len(s.src)))
	if pos < s.pos {
		s.matcher.Reset()
		for i := range s.patterns {
			s.patterns[i].next = -1
		}
	}
	s.pos = pos
}

// Bol reports whether the pointer is at the beginning of a line.
func (s *Scanner) Bol() bool {
	return s.pos == 0 || s.src[s.pos-1] == '\n'
}

// Eol reports whether the pointer is at the end of a line.
func (s *Scanner) Eol() bool {
	return s.Eos() || s.src[s.pos] == '\n'
}

// Eos reports whether the pointer is at the end of the string.
func (s *Scanner) Eos() bool {
	return s.pos >= len(s.src)
}

// Rest returns the unscanned remainder of the string.
func (s *Scanner) Rest() string {
	return s.src[s.pos:]
}

// Terminate moves the pointer to the end of the string.
func (s *Scanner) Terminate() {
	s.pos = len(s.src)
}

// Peek returns the next n runes without consuming them.
func (s *Scanner) Peek(n int) string {
	end := s.pos
	for i := 0; i < n && end < len(s.src); i++ {
		_, size := utf8.DecodeRuneInString(s.src[end:])
		end += size
	}
	return s.src[s.pos:end]
}

// Consume returns the next n runes and advances past them. Nothing is
// recorded in the match history.
func (s *Scanner) Consume(n int) string {
	text := s.Peek(n)
	s.pos += len(text)
	return text
}

// Get is an alias of Consume.
func (s *Scanner) Get(n int) string {
	return s.Consume(n)
}

// Mark pushes the current position.
func (s *Scanner) Mark() {
	s.markStack = append(s.markStack, s.pos)
}

// PopMark removes the most recent mark and returns the text scanned since.
func (s *Scanner) PopMark() string {
	if len(s.markStack) == 0 {
		return ""
	}
	start := s.markStack[len(s.markStack)-1]
	s.markStack = s.markStack[:len(s.markStack)-1]
	if start > s.pos {
		return ""
	}
	return s.src[start:s.pos]
}

// find consults the matcher, turning engine failures into a sticky error.
func (s *Scanner) find(p strsearch.Pattern, from int) (strsearch.Match, bool) {
	m, ok, err := s.matcher.Find(p, from)
	if err != nil {
		if s.err == nil {
			s.err = err
		}
		return strsearch.Match{}, false
	}
	return m, ok
}

// check is the shared implementation of Scan, ScanUntil and Check.
//
//	instant: the match must start at the pointer
//	consume: advance the pointer
//	upTo:    the recorded match is the text skipped before the match, and the
//	         pointer stops at the match start
//	rec:     push the result onto the match history
func (s *Scanner) check(p strsearch.Pattern, instant, consume, upTo, rec bool) (string, bool) {
	m, ok := s.find(p, s.pos)
	if !ok || (instant && m.Start != s.pos) {
		return "", false
	}

	before := s.pos
	matchPos := m.Start
	text := m.Text
	if upTo {
		text = s.src[s.pos:m.Start]
		m = strsearch.Match{
			Start:  s.pos,
			End:    m.Start,
			Text:   text,
			Groups: []strsearch.Group{{Start: s.pos, End: m.Start, Text: text}},
		}
		matchPos = before
	}
	if rec {
		s.history[1] = s.history[0]
		s.history[0] = &record{scanPos: before, matchPos: matchPos, match: m}
	}
	if consume {
		s.pos = m.End
	}
	return text, true
}

// Scan matches p at the pointer. On success the match is consumed, recorded
// and returned.
func (s *Scanner) Scan(p strsearch.Pattern) (string, bool) {
	return s.check(p, true, true, false, true)
}

// ScanUntil advances to the start of the next match of p, records the
// skipped text as the match and returns it. The match itself is not
// consumed.
func (s *Scanner) ScanUntil(p strsearch.Pattern) (string, bool) {
	return s.check(p, false, true, true, true)
}

// Check looks for p at the pointer without consuming it. The result is
// still recorded.
func (s *Scanner) Check(p strsearch.Pattern) (string, bool) {
	return s.check(p, true, false, false, true)
}

// Skip consumes a match of p at the pointer without recording it.
func (s *Scanner) Skip(p strsearch.Pattern) bool {
	_, ok := s.check(p, true, true, false, false)
	return ok
}

// Unscan reverts the most recent recorded operation, restoring the pointer
// and the match state of the operation before it. It panics when there is
// nothing to revert.
func (s *Scanner) Unscan() {
	if s.history[0] == nil {
		panic("scanner: Unscan with empty match history")
	}
	s.SetPos(s.history[0].scanPos)
	s.history[0] = s.history[1]
	s.history[1] = nil
}

// Match returns the text of the last recorded match, or "".
func (s *Scanner) Match() string {
	if s.history[0] == nil {
		return ""
	}
	return s.history[0].match.Text
}

// MatchGroups returns the capture groups of the last recorded match.
func (s *Scanner) MatchGroups() []string {
	if s.history[0] == nil {
		return nil
	}
	return s.history[0].match.GroupTexts()
}

// MatchPos returns where the last recorded match starts, or -1.
func (s *Scanner) MatchPos() int {
	if s.history[0] == nil {
		return -1
	}
	return s.history[0].matchPos
}

// Index returns the start of the next match of p at or after the pointer,
// or -1.
func (s *Scanner) Index(p strsearch.Pattern) int {
	m, ok := s.find(p, s.pos)
	if !ok {
		return -1
	}
	return m.Start
}

// NextOf finds the nearest match among patterns. Ties go to the earliest
// pattern in the slice. It returns the index of the winning pattern, or -1.
func (s *Scanner) NextOf(patterns []strsearch.Pattern) (int, strsearch.Match) {
	best := -1
	var bestMatch strsearch.Match
	for i, p := range patterns {
		m, ok := s.find(p, s.pos)
		if !ok {
			continue
		}
		if best == -1 || m.Start < bestMatch.Start {
			best, bestMatch = i, m
			if m.Start == s.pos {
				break
			}
		}
	}
	return best, bestMatch
}

// AddPattern registers a named pattern for NextMatch. Re-adding a name
// replaces its pattern.
func (s *Scanner) AddPattern(name string, p strsearch.Pattern) {
	for i := range s.patterns {
		if s.patterns[i].name == name {
			s.patterns[i] = namedPattern{name: name, pattern: p, next: -1}
			return
		}
	}
	s.patterns = append(s.patterns, namedPattern{name: name, pattern: p, next: -1})
}

// RemovePattern drops a named pattern.
func (s *Scanner) RemovePattern(name string) {
	for i := range s.patterns {
		if s.patterns[i].name == name {
			s.patterns = append(s.patterns[:i], s.patterns[i+1:]...)
			return
		}
	}
}

// Patterns returns the names of the registered patterns in order.
func (s *Scanner) Patterns() []string {
	names := make([]string, len(s.patterns))
	for i, p := range s.patterns {
		names[i] = p.name
	}
	return names
}

// NextMatch returns the nearest match among the registered patterns, ties
// going to the one registered first. Patterns that no longer match anywhere
// after the pointer are removed from the set.
func (s *Scanner) NextMatch() (string, strsearch.Match, bool) {
	best := -1
	kept := s.patterns[:0]
	for _, np := range s.patterns {
		if np.next < s.pos {
			m, ok := s.find(np.pattern, s.pos)
			if !ok {
				continue
			}
			np.next, np.match = m.Start, m
		}
		kept = append(kept, np)
		if best == -1 || np.next < kept[best].next {
			best = len(kept) - 1
		}
	}
	s.patterns = kept
	if best == -1 {
		return "", strsearch.Match{}, false
	}
	return kept[best].name, kept[best].match, true
}

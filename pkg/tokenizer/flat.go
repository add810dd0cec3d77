package tokenizer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spicery/glint/pkg/grammar"
	"github.com/spicery/glint/pkg/strsearch"
)

// runFlat is the delimiter-matching discipline. It walks the input once,
// repeatedly taking the nearest open delimiter, and writes the input to
// s.out with every delimited token aliased and every window between start
// and end markers.
func (s *stage) runFlat() error {
	src := s.src
	pos, winStart := 0, 0
	if s.win != nil {
		pos = s.win.starts[0]
		winStart = pos
	}
	s.out.WriteString(src[:pos])
	s.out.WriteString(startMarker)
	open := true

	last := flatStep{pos: -1, live: -1, win: -1}
	for pos < len(src) {
		if err := last.advance(flatStep{pos: pos, live: s.liveCount(s.delimited), win: winStart}); err != nil {
			return err
		}

		r, m, err := s.nearestOpen(s.delimited, pos, len(src))
		if err != nil {
			return err
		}

		if s.win != nil {
			e := s.win.nextEnd(max(pos, winStart+1))
			if e >= 0 && (r == nil || e <= m.Start) {
				s.out.WriteString(src[pos:e])
				s.out.WriteString(endMarker)
				if pos, open = s.reopen(e); !open {
					break
				}
				winStart = pos
				continue
			}
		}

		if r == nil {
			s.out.WriteString(src[pos:])
			pos = len(src)
			break
		}

		next, err := s.applyDelimiter(r, m, pos, winStart)
		if err != nil {
			return err
		}
		if next == pos {
			s.discard(r, pos)
			continue
		}
		pos = next

		if r.Flags.Has(grammar.EndIsEnd) && s.win != nil && open {
			s.out.WriteString(endMarker)
			if pos, open = s.reopen(pos); !open {
				break
			}
			winStart = pos
		}
	}

	if open {
		s.out.WriteString(endMarker)
	}
	return nil
}

// flatStep is where one iteration of runFlat starts: the position, the
// number of delimiter rules still alive and the current window.
type flatStep struct {
	pos, live, win int
}

// advance replaces the last step with next. Each iteration must move
// forward, drop a rule or change window; otherwise the run would repeat
// itself forever.
func (last *flatStep) advance(next flatStep) error {
	if next.pos < last.pos || next == *last {
		return fmt.Errorf("%w: stuck at %d", ErrNoProgress, next.pos)
	}
	*last = next
	return nil
}

// reopen copies the text up to the next window start and opens the window.
// With no window left it copies the rest of the input and reports false.
func (s *stage) reopen(pos int) (int, bool) {
	st := s.win.nextStart(pos)
	if st < 0 {
		s.out.WriteString(s.src[pos:])
		return len(s.src), false
	}
	s.out.WriteString(s.src[pos:st])
	s.out.WriteString(startMarker)
	return st, true
}

func (s *stage) liveCount(rules []*grammar.Rule) int {
	n := 0
	for _, r := range rules {
		if !s.dead[r] {
			n++
		}
	}
	return n
}

// applyDelimiter writes the token that rule r opens with match m and
// returns the position after it. Returning pos means nothing was consumed.
func (s *stage) applyDelimiter(r *grammar.Rule, m strsearch.Match, pos, winStart int) (int, error) {
	src := s.src

	// leading whitespace a rule had to match for its lookbehind is not
	// part of the token
	delim := strings.TrimLeftFunc(m.Text, unicode.IsSpace)
	at := m.End - len(delim)
	s.out.WriteString(src[pos:at])

	complete := r.Flags.Has(grammar.Complete)
	dynamic := r.Flags.Has(grammar.DynamicDelims)
	if complete && !dynamic {
		var groups []string
		if r.Flags.Has(grammar.Matches) {
			groups = m.GroupTexts()
		}
		if err := s.emitToken(r, at, m.End, groups); err != nil {
			return 0, err
		}
		return m.End, nil
	}

	closeP := r.ClosePattern()
	if dynamic {
		dyn := dynamicDelimAt(src, at+len(delim))
		delim += dyn
		closeP = dynamicClose(r, dyn)
	}

	if s.isEscaped(at) {
		n := runeLenAt(src, at)
		s.out.WriteString(src[at : at+n])
		return at + n, nil
	}

	openLen := len(delim)
	if r.Flags.Has(grammar.Exclude) {
		if openLen > 0 {
			s.out.WriteString(s.ext.Add(src[at : at+openLen]))
		}
		at += openLen
		openLen = 0
	}
	return s.closeDelimited(r, closeP, at, openLen, winStart)
}

// closeDelimited finds where a token opened at openAt ends, writes it and
// returns the position after it.
func (s *stage) closeDelimited(r *grammar.Rule, closeP strsearch.Pattern, openAt, openLen, winStart int) (int, error) {
	m, found, err := s.findClose(closeP, openAt+openLen)
	if err != nil {
		return 0, err
	}
	end, closeLen := len(s.src), 0
	if found {
		end, closeLen = m.Start, m.Len()
	}

	stopping := false
	if r.Flags.Has(grammar.StopAtEnd) && s.win != nil {
		if e := s.win.nextEnd(max(openAt, winStart+1)); e >= 0 && e <= end {
			end = max(s.win.stopAt(e), openAt+openLen)
			end = min(end, len(s.src))
			stopping = true
		}
	}

	exclude := r.Flags.Has(grammar.Exclude)
	if !stopping && !exclude {
		end += closeLen
	}
	if err := s.emitToken(r, openAt, end, nil); err != nil {
		return 0, err
	}
	if exclude && !stopping && closeLen > 0 {
		s.out.WriteString(s.ext.Add(s.src[end : end+closeLen]))
		end += closeLen
	}
	return end, nil
}

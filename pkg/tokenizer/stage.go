package tokenizer

import (
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/spicery/glint/pkg/grammar"
	"github.com/spicery/glint/pkg/strsearch"
)

// stage runs one grammar of a chain over one string. It owns everything a
// run mutates: working copies of the rule lists, the set of rules dropped
// so far and two matchers, one for open and one for close delimiters.
type stage struct {
	g    *grammar.Grammar
	src  string
	opts Options
	ext  *Extractions
	log  zerolog.Logger

	delimited []*grammar.Rule
	simple    []*grammar.Rule
	dead      map[*grammar.Rule]bool
	reported  map[*grammar.Rule]bool

	opens   *finder
	closes  *finder
	aliases []span

	// nil when the grammar applies to the whole input
	win *windows

	transitions map[string][]*grammar.Rule
	depthHit    bool

	out    strings.Builder
	issues []Issue
	trees  []*Node
}

type span struct {
	start, end int
}

func newStage(g *grammar.Grammar, src string, ext *Extractions, opts Options) *stage {
	mopts := matchOptions(g, opts)
	s := &stage{
		g:           g,
		src:         src,
		opts:        opts,
		ext:         ext,
		log:         opts.Logger.With().Str("grammar", g.Name()).Logger(),
		delimited:   workingCopy(g.DelimitedRules, opts.Verbosity),
		simple:      workingCopy(g.SimpleRules, opts.Verbosity),
		dead:        make(map[*grammar.Rule]bool),
		reported:    make(map[*grammar.Rule]bool),
		opens:       newFinder(strsearch.New(src, mopts)),
		closes:      newFinder(strsearch.New(src, mopts)),
		aliases:     aliasSpans(src),
		transitions: make(map[string][]*grammar.Rule),
	}
	return s
}

func matchOptions(g *grammar.Grammar, opts Options) strsearch.Options {
	return strsearch.Options{CaseInsensitive: g.CaseInsensitive, MatchTimeout: opts.MatchTimeout}
}

// workingCopy clones the rules a run may use. Rules above the run's
// verbosity are left out.
func workingCopy(rules []*grammar.Rule, verbosity int) []*grammar.Rule {
	var out []*grammar.Rule
	for _, r := range rules {
		if r.Verbosity > verbosity {
			continue
		}
		c := r.Clone()
		c.Inner = workingCopy(r.Inner, verbosity)
		out = append(out, c)
	}
	return out
}

// run parses the stage's input and returns it with every token it found
// replaced by an alias.
func (s *stage) run() (string, error) {
	if len(s.g.BoundaryRules) > 0 {
		win, err := findWindows(s.opens.m, s.g.BoundaryRules)
		if err != nil {
			return "", err
		}
		if win.empty() {
			if s.g.IgnoreOutsideStrict {
				return s.src, nil
			}
		} else {
			s.win = win
		}
	}

	var err error
	if s.g.Stateful() {
		err = s.runStateful()
	} else {
		err = s.runFlat()
	}
	if err != nil {
		return "", err
	}
	return splitWindows(s.out.String(), s.parseWindow)
}

// parseWindow runs the simple rules over the text of one window, which
// already has its delimited tokens aliased, and hides the result from the
// child grammar.
func (s *stage) parseWindow(text string) (string, error) {
	text, err := s.applyRules(s.simple, text)
	if err != nil || text == "" {
		return text, err
	}
	return s.ext.Add(text), nil
}

func (s *stage) report(kind IssueKind, r *grammar.Rule, pos int, desc string) {
	name := ""
	if r != nil {
		name = r.Name
	}
	s.issues = append(s.issues, Issue{Kind: kind, Grammar: s.g.Name(), Rule: name, Pos: pos, Description: desc})

	ev := s.log.Warn()
	if kind == IssueDepthLimit {
		ev = s.log.Debug()
	}
	ev.Str("rule", name).Int("pos", pos).Stringer("issue", kind).Msg(desc)
}

// discard drops a rule that matched without consuming any input.
func (s *stage) discard(r *grammar.Rule, pos int) {
	s.dead[r] = true
	s.report(IssueZeroLengthRule, r, pos, "rule matched the empty string and was dropped")
}

// finder keeps the offsets one pattern is queried with non-decreasing, as
// the Matcher requires. A query behind the last one for the same pattern
// goes to the engine directly.
type finder struct {
	m    *strsearch.Matcher
	last map[strsearch.Pattern]int
}

func newFinder(m *strsearch.Matcher) *finder {
	return &finder{m: m, last: make(map[strsearch.Pattern]int)}
}

func (f *finder) find(p strsearch.Pattern, from int) (strsearch.Match, bool, error) {
	if last, ok := f.last[p]; ok && from < last {
		return f.m.Search(p, from)
	}
	f.last[p] = from
	return f.m.Find(p, from)
}

// findOutside is find for matches that do not cut through an alias.
func (s *stage) findOutside(f *finder, p strsearch.Pattern, from int) (strsearch.Match, bool, error) {
	for {
		m, ok, err := f.find(p, from)
		if err != nil || !ok {
			return m, false, err
		}
		a, crossing := crossesAlias(s.aliases, m.Start, m.End)
		if !crossing {
			return m, true, nil
		}
		if m.Start > a.start {
			from = a.end
		} else {
			from = m.Start + runeLenAt(s.src, m.Start)
		}
	}
}

// findClose finds a close delimiter that is not escaped.
func (s *stage) findClose(p strsearch.Pattern, from int) (strsearch.Match, bool, error) {
	for {
		m, ok, err := s.findOutside(s.closes, p, from)
		if err != nil || !ok {
			return m, false, err
		}
		if !s.isEscaped(m.Start) {
			return m, true, nil
		}
		from = m.Start + runeLenAt(s.src, m.Start)
	}
}

// nearestOpen returns the live rule whose open pattern matches first at or
// after from, the earliest declared rule winning a tie. A rule that cannot
// match anywhere after from is dropped for good. Matches that do not end
// by limit are ignored but keep their rule alive.
func (s *stage) nearestOpen(rules []*grammar.Rule, from, limit int) (*grammar.Rule, strsearch.Match, error) {
	var (
		best      *grammar.Rule
		bestMatch strsearch.Match
	)
	for _, r := range rules {
		if s.dead[r] {
			continue
		}
		m, ok, err := s.findOutside(s.opens, r.OpenPattern(), from)
		if err != nil {
			return nil, strsearch.Match{}, err
		}
		if !ok {
			s.dead[r] = true
			continue
		}
		if m.Start >= limit || m.End > limit {
			continue
		}
		if best == nil || m.Start < bestMatch.Start {
			best, bestMatch = r, m
			if m.Start == from {
				break
			}
		}
	}
	return best, bestMatch, nil
}

// isEscaped reports whether the character at i follows an odd number of
// escape characters.
func (s *stage) isEscaped(i int) bool {
	if len(s.g.EscapeChars) == 0 {
		return false
	}
	n := 0
	for j := i; j > 0; {
		r, size := utf8.DecodeLastRuneInString(s.src[:j])
		if !slices.Contains(s.g.EscapeChars, r) {
			break
		}
		n++
		j -= size
	}
	return n%2 == 1
}

// render prepares the text of a token: inner rules run first, then the
// callback and the tag are applied to every part of the text that is not
// already an alias. The result is not aliased.
func (s *stage) render(r *grammar.Rule, tag, text string, groups []string) (string, error) {
	if len(r.Inner) > 0 {
		var err error
		if text, err = s.applyRules(r.Inner, text); err != nil {
			return "", err
		}
	}
	callback := r.Callback != nil && s.opts.runCallbacks()
	if tag == "" && !callback {
		return text, nil
	}

	var b strings.Builder
	for _, seg := range splitAliases(text) {
		if seg.alias {
			b.WriteString(seg.text)
			continue
		}
		part := seg.text
		if callback {
			part = r.Callback(part, groups)
		}
		b.WriteString(TagBlock(tag, part, s.opts.SeparateLines))
	}
	return b.String(), nil
}

// emitToken writes the token src[start:end] of rule r as an alias.
func (s *stage) emitToken(r *grammar.Rule, start, end int, groups []string) error {
	if end <= start {
		return nil
	}
	rendered, err := s.render(r, r.Name, s.src[start:end], groups)
	if err != nil {
		return err
	}
	s.out.WriteString(s.ext.Add(rendered))
	return nil
}

type segment struct {
	text  string
	alias bool
}

// splitAliases cuts text into alias markers and the text between them.
func splitAliases(text string) []segment {
	var segs []segment
	for len(text) > 0 {
		a, ok := nextAlias(text, 0)
		if !ok {
			segs = append(segs, segment{text: text})
			break
		}
		if a.start > 0 {
			segs = append(segs, segment{text: text[:a.start]})
		}
		segs = append(segs, segment{text: text[a.start:a.end], alias: true})
		text = text[a.end:]
	}
	return segs
}

// nextAlias finds the first alias marker at or after from.
func nextAlias(text string, from int) (span, bool) {
	for from < len(text) {
		i := strings.Index(text[from:], aliasPrefix)
		if i < 0 {
			return span{}, false
		}
		start := from + i
		j := start + len(aliasPrefix)
		for j < len(text) && text[j] >= '0' && text[j] <= '9' {
			j++
		}
		if j > start+len(aliasPrefix) && j < len(text) && text[j] == '>' {
			return span{start: start, end: j + 1}, true
		}
		from = start + 1
	}
	return span{}, false
}

func aliasSpans(text string) []span {
	var spans []span
	for from := 0; ; {
		a, ok := nextAlias(text, from)
		if !ok {
			return spans
		}
		spans = append(spans, a)
		from = a.end
	}
}

// crossesAlias reports the first alias that [start, end) cuts through,
// that is overlaps without containing it whole.
func crossesAlias(aliases []span, start, end int) (span, bool) {
	k := sort.Search(len(aliases), func(i int) bool { return aliases[i].end > start })
	for ; k < len(aliases) && aliases[k].start <= end; k++ {
		a := aliases[k]
		if (start > a.start && start < a.end) || (end > a.start && end < a.end) {
			return a, true
		}
	}
	return span{}, false
}

// dynamicDelimAt reads the text that decides a dynamic close delimiter: an
// entity, a word, or else a single character.
func dynamicDelimAt(src string, i int) string {
	if i >= len(src) {
		return ""
	}
	switch c := src[i]; {
	case c == '&':
		if j := strings.IndexByte(src[i:], ';'); j > 1 && isEntityName(src[i+1:i+j]) {
			return src[i : i+j+1]
		}
		return "&"
	case isWordByte(c):
		j := i
		for j < len(src) && isWordByte(src[j]) {
			j++
		}
		return src[i:j]
	default:
		return src[i : i+runeLenAt(src, i)]
	}
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isEntityName(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isWordByte(s[i]) && s[i] != '#' {
			return false
		}
	}
	return true
}

var closingBrackets = map[string]string{
	"(":    ")",
	"{":    "}",
	"[":    "]",
	"&lt;": "&gt;",
}

// dynamicClose builds the close pattern for a dynamic rule once the text
// after its open delimiter is known. Brackets close with their partner,
// anything else with itself. A regex rule that is not Complete appends its
// own close pattern.
func dynamicClose(r *grammar.Rule, dyn string) strsearch.Pattern {
	e := dyn
	if c, ok := closingBrackets[dyn]; ok {
		e = c
	}
	if !r.IsRegex() {
		return strsearch.Literal(e)
	}
	e = strsearch.Escape(e)
	if r.Flags.Has(grammar.Complete) {
		return strsearch.Regex(e)
	}
	return strsearch.Regex("(" + e + ")" + r.Close)
}

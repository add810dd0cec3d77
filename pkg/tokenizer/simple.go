package tokenizer

import (
	"fmt"
	"strings"

	"github.com/spicery/glint/pkg/grammar"
	"github.com/spicery/glint/pkg/strsearch"
)

// applyRules runs simple rules over text one after the other. Each match
// is tagged and replaced by an alias, so a later rule cannot match inside
// it; a rule with several values runs once per value.
func (s *stage) applyRules(rules []*grammar.Rule, text string) (string, error) {
	for _, r := range rules {
		if s.dead[r] {
			continue
		}
		for _, needle := range r.Needles() {
			var err error
			text, err = s.applyNeedle(r, needle, text)
			if err != nil {
				return "", err
			}
			if s.dead[r] {
				break
			}
		}
	}
	return text, nil
}

// applyNeedle replaces every match of one pattern of rule r. Matches that
// cut through an alias are left alone; matches containing whole aliases
// are tagged around them.
func (s *stage) applyNeedle(r *grammar.Rule, needle strsearch.Pattern, text string) (string, error) {
	if text == "" {
		return text, nil
	}
	matches, err := strsearch.New(text, matchOptions(s.g, s.opts)).FindAll(needle)
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		if m.Len() == 0 {
			s.discard(r, m.Start)
			return text, nil
		}
	}
	if len(matches) == 0 {
		return text, nil
	}

	aliases := aliasSpans(text)
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		if _, crossing := crossesAlias(aliases, m.Start, m.End); crossing {
			continue
		}
		from, to := m.Start, m.End
		if r.Group > 0 {
			if r.Group >= len(m.Groups) || !m.Groups[r.Group].Matched() {
				s.missingGroup(r, m.Start)
				continue
			}
			g := m.Groups[r.Group]
			if g.Start == g.End {
				continue
			}
			if _, crossing := crossesAlias(aliases, g.Start, g.End); crossing {
				continue
			}
			from, to = g.Start, g.End
		}

		rendered, err := s.render(r, r.Name, text[from:to], nil)
		if err != nil {
			return "", err
		}
		b.WriteString(text[last:m.Start])
		pre, post := text[m.Start:from], text[to:m.End]
		if r.ConsumeOtherGroups {
			b.WriteString(s.ext.Add(pre + rendered + post))
		} else {
			b.WriteString(pre)
			b.WriteString(s.ext.Add(rendered))
			b.WriteString(post)
		}
		last = m.End
	}
	b.WriteString(text[last:])
	return b.String(), nil
}

// missingGroup reports once per rule.
func (s *stage) missingGroup(r *grammar.Rule, pos int) {
	if s.reported[r] {
		return
	}
	s.reported[r] = true
	s.report(IssueMissingGroup, r, pos, fmt.Sprintf("capture group %d did not take part in the match", r.Group))
}

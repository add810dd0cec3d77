package tokenizer

import (
	"fmt"

	"github.com/spicery/glint/pkg/grammar"
	"github.com/spicery/glint/pkg/strsearch"
)

// frame is one open state on the stack.
type frame struct {
	node  *Node
	close strsearch.Pattern
	start int
	// finish is known up front for Complete rules; -1 means the state
	// stretches until its close delimiter, wherever child states push it.
	finish int
}

func (f *frame) rule() *grammar.Rule {
	return f.node.rule
}

// visit identifies a loop iteration; seeing one twice means no progress.
type visit struct {
	pos, depth int
	state      string
	start      int
	epoch      int
}

type visits map[visit]bool

// enter records v, failing if the automaton has been there before.
func (seen visits) enter(v visit) error {
	if seen[v] {
		return fmt.Errorf("%w: state '%s' at %d", ErrNoProgress, v.state, v.pos)
	}
	seen[v] = true
	return nil
}

// runStateful is the transition automaton. Each window is parsed into a
// tree of states, which is collapsed back into text between the window
// markers.
func (s *stage) runStateful() error {
	src := s.src
	pos := 0
	for {
		lo, hi := 0, len(src)
		if s.win != nil {
			if lo = s.win.nextStart(pos); lo < 0 {
				break
			}
			if hi = s.win.nextEnd(lo + 1); hi < 0 {
				hi = len(src)
			}
		}

		root, err := s.parseStates(lo, hi)
		if err != nil {
			return err
		}
		s.trees = append(s.trees, root)
		text, err := s.collapse(root)
		if err != nil {
			return err
		}
		s.out.WriteString(src[pos:lo])
		s.out.WriteString(startMarker)
		s.out.WriteString(text)
		s.out.WriteString(endMarker)
		pos = hi

		if s.win == nil || pos >= len(src) {
			break
		}
	}
	s.out.WriteString(src[pos:])
	return nil
}

// parseStates builds the state tree of src[lo:hi].
func (s *stage) parseStates(lo, hi int) (*Node, error) {
	root := &Node{State: grammar.RootState, Start: lo, End: hi}
	stack := []*frame{{node: root, start: lo, finish: -1}}
	pos, epoch := lo, 0
	seen := make(visits)

	for {
		top := stack[len(stack)-1]
		depth := len(stack) - 1
		if err := seen.enter(visit{pos: pos, depth: depth, state: top.node.State, start: top.start, epoch: epoch}); err != nil {
			return nil, err
		}

		r, m, err := s.nearestOpen(s.transitionsFor(top.node.State), pos, hi)
		if err != nil {
			return nil, err
		}

		if depth == 0 {
			if r == nil {
				root.addText(s.src, pos, hi)
				return root, nil
			}
			stack, pos = s.pushState(stack, r, m, pos)
			continue
		}

		pop, err := s.shouldPop(top, depth, r, m, pos, hi)
		if err != nil {
			return nil, err
		}
		if pop {
			var discarded bool
			stack, pos, discarded, err = s.popState(stack, pos, hi)
			if err != nil {
				return nil, err
			}
			if discarded {
				epoch++
			}
			continue
		}
		stack, pos = s.pushState(stack, r, m, pos)
	}
}

// shouldPop decides whether the top state closes before the next child
// state r, matched at m, could open.
func (s *stage) shouldPop(top *frame, depth int, r *grammar.Rule, m strsearch.Match, pos, hi int) (bool, error) {
	if s.opts.SafeMode && depth >= s.opts.maxDepth() {
		if !s.depthHit {
			s.depthHit = true
			s.report(IssueDepthLimit, top.rule(), pos, fmt.Sprintf("state nesting reached %d, closing states early", depth))
		}
		return true, nil
	}
	if r == nil {
		return true, nil
	}

	next := m.Start
	finish, stretchy := top.finish, top.finish < 0
	if stretchy {
		var err error
		if finish, err = s.stateEnd(top, pos, hi, false); err != nil {
			return false, err
		}
		return finish < next, nil
	}
	// a Complete child that starts inside this state but ends after it
	// would overlap it like malformed markup
	overlapping := r.Flags.Has(grammar.Complete) && !r.Flags.Has(grammar.DynamicDelims) &&
		next < finish && m.End > finish
	return overlapping || finish <= next, nil
}

// pushState opens a state for rule r, whose open delimiter matched at m.
// The text before the match goes to the current state.
func (s *stage) pushState(stack []*frame, r *grammar.Rule, m strsearch.Match, pos int) ([]*frame, int) {
	top := stack[len(stack)-1]
	start, delim := m.Start, m.Text
	top.node.addText(s.src, pos, start)

	// the same state already open at this offset would loop forever, so
	// the character becomes text instead
	for i := len(stack) - 1; i > 0 && stack[i].start == start; i-- {
		if stack[i].node.State == r.Name {
			n := runeLenAt(s.src, start)
			top.node.addText(s.src, start, start+n)
			return stack, start + n
		}
	}

	f := &frame{
		node:   &Node{State: r.Name, Start: start, rule: r},
		close:  r.ClosePattern(),
		start:  start,
		finish: -1,
	}
	complete := r.Flags.Has(grammar.Complete)
	dynamic := r.Flags.Has(grammar.DynamicDelims)
	if complete && !dynamic {
		f.finish = m.End
	}
	if r.Flags.Has(grammar.Matches) {
		f.node.groups = m.GroupTexts()
	}
	if dynamic {
		dyn := dynamicDelimAt(s.src, m.End)
		delim += dyn
		f.close = dynamicClose(r, dyn)
	}
	stack = append(stack, f)

	if (r.Flags.Has(grammar.Consume) && !complete) || dynamic {
		end := min(start+len(delim), len(s.src))
		f.node.addText(s.src, start, end)
		return stack, end
	}
	return stack, start
}

// popState closes the top state at its finish. A state that ends where it
// started consumed nothing: its rule is dropped and the state vanishes.
func (s *stage) popState(stack []*frame, pos, hi int) ([]*frame, int, bool, error) {
	f := stack[len(stack)-1]
	stack = stack[:len(stack)-1]

	finish := f.finish
	if finish < 0 {
		var err error
		if finish, err = s.stateEnd(f, pos, hi, true); err != nil {
			return nil, 0, false, err
		}
	}
	finish = min(max(finish, pos), hi)

	if finish == f.start {
		s.discard(f.rule(), f.start)
		return stack, pos, true, nil
	}

	f.node.addText(s.src, pos, finish)
	f.node.End = finish
	parent := stack[len(stack)-1].node
	parent.Children = append(parent.Children, f.node)
	return stack, finish, false, nil
}

// stateEnd finds where the state f closes. It never closes on its own
// start, so an open delimiter that doubles as the close (a quote) is not
// taken for both. With includeClose the close delimiter is part of the
// state. A state with no close runs to the end of the window.
func (s *stage) stateEnd(f *frame, pos, hi int, includeClose bool) (int, error) {
	from := max(pos-1, f.start) + 1
	m, found, err := s.findClose(f.close, from)
	if err != nil {
		return 0, err
	}
	if found && m.Start >= hi {
		found = false
	}

	if f.rule().Flags.Has(grammar.StopAtEnd) && s.win != nil {
		if stop := s.win.stopAt(hi); !found || stop < m.Start {
			return stop, nil
		}
	}
	switch {
	case !found:
		return hi, nil
	case includeClose:
		return m.End, nil
	default:
		return m.Start, nil
	}
}

// transitionsFor returns the rules a state may open, in declaration order.
// The set is computed once per state.
func (s *stage) transitionsFor(state string) []*grammar.Rule {
	if rules, ok := s.transitions[state]; ok {
		return rules
	}
	t := s.g.TransitionsFor(state)
	var rules []*grammar.Rule
	for _, r := range s.delimited {
		if t.Allows(state, r.Name) {
			rules = append(rules, r)
		}
	}
	s.transitions[state] = rules
	return rules
}

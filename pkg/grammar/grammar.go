// Package grammar holds the declarative rule model consumed by the tokenizer:
// rules and their flags, grammars, grammar files, named callbacks, rule
// presets, the built-in grammars and the registry that resolves them.
package grammar

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

// RootState names the implicit state at the bottom of the stateful
// tokenizer's stack.
const RootState = "GLOBAL"

// Info describes a grammar.
type Info struct {
	Language string   `yaml:"language"`
	Title    string   `yaml:"title,omitempty"`
	Codes    []string `yaml:"codes,omitempty"`
	Author   string   `yaml:"author,omitempty"`
	Version  string   `yaml:"version,omitempty"`
}

// Transition lists the rule names a state may start.
type Transition struct {
	All        bool // "*": every delimited rule
	AllButSelf bool // "!": every delimited rule except the state's own
	States     []string
}

// AllStates is the "*" transition.
func AllStates() Transition { return Transition{All: true} }

// AllButSelf is the "!" transition.
func AllButSelf() Transition { return Transition{AllButSelf: true} }

// States is an explicit transition list.
func States(names ...string) Transition { return Transition{States: names} }

// Allows reports whether a state named from may start rule name.
func (t Transition) Allows(from, name string) bool {
	switch {
	case t.All:
		return true
	case t.AllButSelf:
		return name != from
	default:
		return slices.Contains(t.States, name)
	}
}

// UnmarshalYAML accepts "*", "!" or a sequence of state names.
func (t *Transition) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		switch value.Value {
		case "*":
			*t = AllStates()
		case "!":
			*t = AllButSelf()
		default:
			return fmt.Errorf("line %d: transition must be \"*\", \"!\" or a list, got %q", value.Line, value.Value)
		}
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := value.Decode(&names); err != nil {
			return err
		}
		if len(names) == 0 {
			names = nil
		}
		*t = Transition{States: names}
		return nil
	default:
		return fmt.Errorf("line %d: transition must be \"*\", \"!\" or a list", value.Line)
	}
}

// MarshalYAML writes the sentinel forms back out.
func (t Transition) MarshalYAML() (interface{}, error) {
	switch {
	case t.All:
		return "*", nil
	case t.AllButSelf:
		return "!", nil
	default:
		if t.States == nil {
			return []string{}, nil
		}
		return t.States, nil
	}
}

// Grammar is an immutable rule set for one language. Runs must not modify
// the rule slices; they take working copies.
type Grammar struct {
	Info        Info
	EscapeChars []rune

	// DelimitedRules are matched first, earliest declared wins a tie.
	DelimitedRules []*Rule
	// SimpleRules run over whatever the delimited rules left untagged.
	SimpleRules []*Rule
	// BoundaryRules restrict the grammar to windows of the input. Text
	// outside every window is left for the child grammar.
	BoundaryRules []*Rule
	// IgnoreOutsideStrict: with boundary rules but no window found, parse
	// nothing rather than everything.
	IgnoreOutsideStrict bool
	CaseInsensitive     bool

	// Transitions switches the grammar to the stateful discipline.
	Transitions map[string]Transition
	// StateTags maps a state to its display tag. A present empty value
	// means the state is structural and gets no tag; an absent state is
	// tagged with its own name.
	StateTags map[string]string

	Child *Grammar
}

// Name returns the language name.
func (g *Grammar) Name() string {
	return g.Info.Language
}

// Stateful reports whether the grammar uses the transition automaton.
func (g *Grammar) Stateful() bool {
	return g.Transitions != nil
}

// TransitionsFor returns the transition set of a state. The root state
// falls back to "every rule" when undeclared; other undeclared states may
// start nothing.
func (g *Grammar) TransitionsFor(state string) Transition {
	if t, ok := g.Transitions[state]; ok {
		return t
	}
	if state == RootState {
		return AllStates()
	}
	return Transition{}
}

// TagFor returns the display tag of a state and whether it is tagged.
func (g *Grammar) TagFor(state string) (string, bool) {
	if tag, ok := g.StateTags[state]; ok {
		return tag, tag != ""
	}
	return state, true
}

// Chain returns the grammar followed by its children.
func (g *Grammar) Chain() []*Grammar {
	var chain []*Grammar
	for c := g; c != nil; c = c.Child {
		chain = append(chain, c)
	}
	return chain
}

// Clone copies the grammar deeply, except for Child which is shared.
func (g *Grammar) Clone() *Grammar {
	c := *g
	c.Info.Codes = slices.Clone(g.Info.Codes)
	c.EscapeChars = slices.Clone(g.EscapeChars)
	c.DelimitedRules = cloneRules(g.DelimitedRules)
	c.SimpleRules = cloneRules(g.SimpleRules)
	c.BoundaryRules = cloneRules(g.BoundaryRules)
	if g.Transitions != nil {
		c.Transitions = make(map[string]Transition, len(g.Transitions))
		for k, v := range g.Transitions {
			v.States = slices.Clone(v.States)
			c.Transitions[k] = v
		}
	}
	c.StateTags = maps.Clone(g.StateTags)
	return &c
}

func cloneRules(rules []*Rule) []*Rule {
	if rules == nil {
		return nil
	}
	out := make([]*Rule, len(rules))
	for i, r := range rules {
		out[i] = r.Clone()
	}
	return out
}

// Validate checks every rule and the transition table.
func (g *Grammar) Validate() error {
	var errs []error
	check := func(rules []*Rule, kinds ...Kind) {
		for _, r := range rules {
			if !slices.Contains(kinds, r.Kind) {
				errs = append(errs, fmt.Errorf("%s does not belong in this rule list", r.label()))
				continue
			}
			if err := r.Validate(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	check(g.DelimitedRules, DelimiterKind)
	check(g.SimpleRules, SimpleKind, ListKind)
	check(g.BoundaryRules, BoundaryKind)

	if g.Transitions != nil {
		known := map[string]bool{RootState: true}
		for _, r := range g.DelimitedRules {
			known[r.Name] = true
		}
		states := slices.Collect(maps.Keys(g.Transitions))
		sort.Strings(states)
		for _, state := range states {
			if !known[state] {
				errs = append(errs, fmt.Errorf("transitions for unknown state '%s'", state))
			}
			for _, to := range g.Transitions[state].States {
				if !known[to] {
					errs = append(errs, fmt.Errorf("state '%s' transitions to unknown state '%s'", state, to))
				}
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("grammar '%s': %w", g.Name(), err)
	}
	return nil
}

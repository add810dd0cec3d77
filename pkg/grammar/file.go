package grammar

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File represents the structure of a YAML grammar file
type File struct {
	Language string   `yaml:"language"`
	Title    string   `yaml:"title,omitempty"`
	Codes    []string `yaml:"codes,omitempty,flow"`
	Author   string   `yaml:"author,omitempty"`
	Version  string   `yaml:"version,omitempty"`

	Extends string `yaml:"extends,omitempty"`
	Child   string `yaml:"child,omitempty"`

	EscapeChars         *string `yaml:"escape_chars,omitempty"` // defaults to a backslash
	CaseInsensitive     bool    `yaml:"case_insensitive,omitempty"`
	IgnoreOutsideStrict *bool   `yaml:"ignore_outside_strict,omitempty"` // defaults to true

	Delimited []RuleSpec `yaml:"delimited,omitempty"`
	Simple    []RuleSpec `yaml:"simple,omitempty"`
	Boundary  []RuleSpec `yaml:"boundary,omitempty"`

	Transitions map[string]Transition `yaml:"transitions,omitempty"`
	StateTags   map[string]string     `yaml:"state_tags,omitempty"`
}

// RuleSpec represents one rule in a grammar file. Simple rules use Pattern,
// or List with an optional Template and Placeholder; delimiter and boundary
// rules use Open and Close.
type RuleSpec struct {
	Name        string   `yaml:"name,omitempty"`
	Pattern     string   `yaml:"pattern,omitempty"`
	List        []string `yaml:"list,omitempty"`
	Template    string   `yaml:"template,omitempty"`
	Placeholder string   `yaml:"placeholder,omitempty"`
	Open        string   `yaml:"open,omitempty"`
	Close       string   `yaml:"close,omitempty"`
	Flags       []string `yaml:"flags,omitempty,flow"`
	Verbosity   int      `yaml:"verbosity,omitempty"`

	Group              int  `yaml:"group,omitempty"`
	ConsumeOtherGroups bool `yaml:"consume_other_groups,omitempty"`

	Callback string     `yaml:"callback,omitempty"`
	Inner    []RuleSpec `yaml:"inner,omitempty"`
}

// LoadFile loads and parses a YAML grammar file
func LoadFile(filename string) (*File, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read grammar file '%s': %w", filename, err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML in grammar file '%s': %w", filename, err)
	}
	return f, nil
}

// Parse decodes a grammar file from YAML.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Language == "" {
		return nil, errors.New("grammar file has no language")
	}
	return &f, nil
}

// Marshal encodes a grammar file as YAML.
func (f *File) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

// Build turns the file into a Definition ready for a Registry.
func (f *File) Build() (*Definition, error) {
	g := &Grammar{
		Info: Info{
			Language: f.Language,
			Title:    f.Title,
			Codes:    f.Codes,
			Author:   f.Author,
			Version:  f.Version,
		},
		CaseInsensitive:     f.CaseInsensitive,
		IgnoreOutsideStrict: true,
		Transitions:         f.Transitions,
		StateTags:           f.StateTags,
	}
	switch {
	case f.EscapeChars != nil:
		g.EscapeChars = []rune(*f.EscapeChars)
	case f.Extends == "":
		g.EscapeChars = backslash
	}
	if f.IgnoreOutsideStrict != nil {
		g.IgnoreOutsideStrict = *f.IgnoreOutsideStrict
	}

	var err error
	if g.DelimitedRules, err = buildRules(f.Delimited, DelimiterKind); err != nil {
		return nil, err
	}
	if g.SimpleRules, err = buildRules(f.Simple, SimpleKind); err != nil {
		return nil, err
	}
	if g.BoundaryRules, err = buildRules(f.Boundary, BoundaryKind); err != nil {
		return nil, err
	}
	return &Definition{Grammar: g, Extends: f.Extends, Child: f.Child}, nil
}

func buildRules(specs []RuleSpec, kind Kind) ([]*Rule, error) {
	var rules []*Rule
	for i, spec := range specs {
		r, err := spec.build(kind)
		if err != nil {
			return nil, fmt.Errorf("%s rule %d: %w", kind, i+1, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func (s RuleSpec) build(kind Kind) (*Rule, error) {
	flags, err := ParseFlags(s.Flags)
	if err != nil {
		return nil, err
	}

	var r *Rule
	switch kind {
	case SimpleKind:
		if len(s.List) > 0 {
			r = SimpleList(s.Verbosity, s.Name, flags, s.List, s.Template, s.Placeholder)
		} else {
			pattern := s.Pattern
			if pattern == "" {
				pattern = s.Open
			}
			r = Simple(s.Verbosity, s.Name, flags, pattern)
		}
		r.WithGroup(s.Group, s.ConsumeOtherGroups)
	case DelimiterKind:
		r = Delimiter(s.Verbosity, s.Name, flags, s.Open, s.Close, nil)
	case BoundaryKind:
		r = Boundary(flags, s.Open, s.Close)
	}

	if s.Callback != "" {
		cb, err := LookupCallback(s.Callback)
		if err != nil {
			return nil, err
		}
		r.Callback = cb
		r.CallbackName = s.Callback
	}
	for _, in := range s.Inner {
		inner, err := in.build(SimpleKind)
		if err != nil {
			return nil, fmt.Errorf("inner rule '%s': %w", in.Name, err)
		}
		r.Inner = append(r.Inner, inner)
	}
	return r, nil
}

// FromDefinition converts a definition back into its file form. Callbacks
// that are not named cannot be written and are left out.
func FromDefinition(def *Definition) *File {
	f := FromGrammar(def.Grammar)
	f.Extends = def.Extends
	if def.Child != "" {
		f.Child = def.Child
	}
	return f
}

// FromGrammar converts a grammar into its file form, naming its child.
func FromGrammar(g *Grammar) *File {
	escapes := string(g.EscapeChars)
	strict := g.IgnoreOutsideStrict
	f := &File{
		Language:        g.Info.Language,
		Title:           g.Info.Title,
		Codes:           g.Info.Codes,
		Author:          g.Info.Author,
		Version:         g.Info.Version,
		EscapeChars:     &escapes,
		CaseInsensitive: g.CaseInsensitive,
		Delimited:       specsOf(g.DelimitedRules),
		Simple:          specsOf(g.SimpleRules),
		Boundary:        specsOf(g.BoundaryRules),
		Transitions:     g.Transitions,
		StateTags:       g.StateTags,
	}
	if len(g.BoundaryRules) > 0 {
		f.IgnoreOutsideStrict = &strict
	}
	if g.Child != nil {
		f.Child = g.Child.Name()
	}
	return f
}

func specsOf(rules []*Rule) []RuleSpec {
	var specs []RuleSpec
	for _, r := range rules {
		specs = append(specs, specOf(r))
	}
	return specs
}

func specOf(r *Rule) RuleSpec {
	s := RuleSpec{
		Name:               r.Name,
		Verbosity:          r.Verbosity,
		Group:              r.Group,
		ConsumeOtherGroups: r.ConsumeOtherGroups,
		Callback:           r.CallbackName,
		Inner:              specsOf(r.Inner),
	}
	flags := r.Flags
	switch r.Kind {
	case SimpleKind:
		s.Pattern = r.Open
	case ListKind:
		flags &^= List
		s.List = r.Values
		s.Template = r.Template
		s.Placeholder = r.Placeholder
	default:
		s.Open = r.Open
		if r.HasClose() {
			s.Close = r.Close
		}
	}
	s.Flags = flags.Names()
	return s
}

package grammar

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spicery/glint/pkg/strsearch"
)

// Kind is the variant of a Rule.
type Kind int

const (
	SimpleKind    Kind = iota // word or regex rule applied after delimiters
	ListKind                  // many values sharing one template
	DelimiterKind             // open/close pair, or a single Complete pattern
	BoundaryKind              // window in which the grammar applies at all
)

func (k Kind) String() string {
	switch k {
	case SimpleKind:
		return "simple"
	case ListKind:
		return "list"
	case DelimiterKind:
		return "delimiter"
	case BoundaryKind:
		return "boundary"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Callback transforms the text of a matched token before it is wrapped in
// its tag. groups holds the capture groups of a Complete regex match when
// the rule has the Matches flag, nil otherwise. The text is already escaped
// and the result must stay escaped; a callback may add <TYPE></TYPE> tags.
type Callback func(text string, groups []string) string

// Rule is one grammar rule. Which fields matter depends on Kind:
//
//	Simple:    Name, Open (the pattern), Group, ConsumeOtherGroups
//	List:      Name, Values, Template, Placeholder
//	Delimiter: Name, Open, Close, Callback, Inner
//	Boundary:  Open, Close
type Rule struct {
	Kind      Kind
	Name      string
	Flags     Flags
	Verbosity int

	Open  string
	Close string

	Values      []string
	Template    string
	Placeholder string

	// Group selects the capture group of a simple regex that gets the tag.
	// The rest of the match is left untouched unless ConsumeOtherGroups is
	// set, in which case it is hidden from later rules as well.
	Group              int
	ConsumeOtherGroups bool

	Callback     Callback
	CallbackName string

	// Inner rules run over the body of a delimited token before it is
	// wrapped, e.g. escape sequences inside strings.
	Inner []*Rule
}

// Simple creates a word or regex rule.
func Simple(verbosity int, name string, flags Flags, pattern string) *Rule {
	return &Rule{Kind: SimpleKind, Name: name, Flags: flags, Verbosity: verbosity, Open: pattern}
}

// SimpleList creates a rule matching any of values. When template is not
// empty each value is substituted for placeholder in it, so a keyword list
// can share one word-boundary regex.
func SimpleList(verbosity int, name string, flags Flags, values []string, template, placeholder string) *Rule {
	return &Rule{
		Kind:        ListKind,
		Name:        name,
		Flags:       flags | List,
		Verbosity:   verbosity,
		Values:      slices.Clone(values),
		Template:    template,
		Placeholder: placeholder,
	}
}

// Delimiter creates an open/close rule. With Complete, close is ignored.
func Delimiter(verbosity int, name string, flags Flags, open, close string, cb Callback) *Rule {
	return &Rule{
		Kind:      DelimiterKind,
		Name:      name,
		Flags:     flags,
		Verbosity: verbosity,
		Open:      open,
		Close:     close,
		Callback:  cb,
	}
}

// Boundary creates a rule delimiting where a grammar applies.
func Boundary(flags Flags, open, close string) *Rule {
	return &Rule{Kind: BoundaryKind, Flags: flags, Open: open, Close: close}
}

// WithGroup tags only capture group n of a simple regex rule.
func (r *Rule) WithGroup(n int, consumeOthers bool) *Rule {
	r.Group = n
	r.ConsumeOtherGroups = consumeOthers
	return r
}

// WithCallback attaches one of the named callbacks. It panics on an unknown
// name, which is a programming error in a built-in grammar.
func (r *Rule) WithCallback(name string) *Rule {
	cb, err := LookupCallback(name)
	if err != nil {
		panic(err)
	}
	r.Callback = cb
	r.CallbackName = name
	return r
}

// WithInner adds rules applied to a delimited token's body.
func (r *Rule) WithInner(rules ...*Rule) *Rule {
	r.Inner = append(r.Inner, rules...)
	return r
}

// IsRegex reports whether the rule's patterns are regular expressions.
func (r *Rule) IsRegex() bool {
	return r.Flags.Has(Regex)
}

func (r *Rule) pattern(s string) strsearch.Pattern {
	if r.IsRegex() {
		return strsearch.Regex(s)
	}
	return strsearch.Literal(s)
}

// OpenPattern returns the open delimiter (or the simple rule's pattern).
func (r *Rule) OpenPattern() strsearch.Pattern {
	return r.pattern(r.Open)
}

// ClosePattern returns the close delimiter.
func (r *Rule) ClosePattern() strsearch.Pattern {
	return r.pattern(r.Close)
}

// HasClose reports whether the close pattern takes part in matching.
func (r *Rule) HasClose() bool {
	return !r.Flags.Has(Complete) || r.Flags.Has(DynamicDelims)
}

// Needles returns the patterns a simple or list rule searches for, in order.
func (r *Rule) Needles() []strsearch.Pattern {
	if r.Kind != ListKind {
		return []strsearch.Pattern{r.OpenPattern()}
	}
	needles := make([]strsearch.Pattern, 0, len(r.Values))
	for _, v := range r.Values {
		if r.Template != "" {
			v = strings.ReplaceAll(r.Template, r.Placeholder, v)
		}
		needles = append(needles, r.pattern(v))
	}
	return needles
}

// Clone returns a copy that shares nothing mutable with r.
func (r *Rule) Clone() *Rule {
	c := *r
	c.Values = slices.Clone(r.Values)
	if r.Inner != nil {
		c.Inner = make([]*Rule, len(r.Inner))
		for i, in := range r.Inner {
			c.Inner[i] = in.Clone()
		}
	}
	return &c
}

func (r *Rule) label() string {
	if r.Name != "" {
		return fmt.Sprintf("%s rule '%s'", r.Kind, r.Name)
	}
	return fmt.Sprintf("%s rule %s", r.Kind, r.OpenPattern())
}

// Validate checks the rule for authoring mistakes, including regexes that
// do not compile.
func (r *Rule) Validate() error {
	if r.Kind != BoundaryKind && r.Name == "" {
		return fmt.Errorf("%s has no name", r.label())
	}
	if r.Group < 0 {
		return fmt.Errorf("%s has negative group %d", r.label(), r.Group)
	}

	switch r.Kind {
	case SimpleKind:
		if r.Open == "" {
			return fmt.Errorf("%s has an empty pattern", r.label())
		}
	case ListKind:
		if len(r.Values) == 0 {
			return fmt.Errorf("%s has no values", r.label())
		}
		if r.Template != "" && (r.Placeholder == "" || !strings.Contains(r.Template, r.Placeholder)) {
			return fmt.Errorf("%s template %q does not contain its placeholder %q", r.label(), r.Template, r.Placeholder)
		}
	case DelimiterKind:
		if r.Open == "" {
			return fmt.Errorf("%s has an empty open delimiter", r.label())
		}
		if !r.Flags.Has(Complete) && !r.Flags.Has(DynamicDelims) && r.Close == "" {
			return fmt.Errorf("%s needs a close delimiter or the COMPLETE flag", r.label())
		}
	case BoundaryKind:
		if r.Open == "" || r.Close == "" {
			return fmt.Errorf("%s needs both open and close", r.label())
		}
	default:
		return fmt.Errorf("%s has an unknown kind", r.label())
	}

	if r.IsRegex() {
		for _, p := range r.compiledPatterns() {
			if _, err := strsearch.Compile(p, strsearch.Options{}); err != nil {
				return fmt.Errorf("%s: %w", r.label(), err)
			}
		}
	}

	for _, in := range r.Inner {
		if in.Kind != SimpleKind && in.Kind != ListKind {
			return fmt.Errorf("%s: inner %s is not a simple rule", r.label(), in.label())
		}
		if err := in.Validate(); err != nil {
			return fmt.Errorf("%s: %w", r.label(), err)
		}
	}
	return nil
}

// compiledPatterns lists the regex sources that must compile on their own.
// A dynamic close is only a suffix and is checked once the delimiter is
// known.
func (r *Rule) compiledPatterns() []string {
	switch r.Kind {
	case ListKind:
		var srcs []string
		for _, n := range r.Needles() {
			srcs = append(srcs, n.Source)
		}
		return srcs
	case DelimiterKind:
		if r.HasClose() && !r.Flags.Has(DynamicDelims) {
			return []string{r.Open, r.Close}
		}
		return []string{r.Open}
	case BoundaryKind:
		return []string{r.Open, r.Close}
	default:
		return []string{r.Open}
	}
}

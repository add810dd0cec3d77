package grammar

import (
	"fmt"
	"strings"
)

// Flags modulate how a rule matches. They are orthogonal bits.
type Flags uint16

const (
	// Exclude emits the delimiters untagged; only the body is tagged.
	Exclude Flags = 1 << iota
	// Complete means the open pattern is the whole token; Close is ignored.
	Complete
	// Regex means Open and Close are regular expressions, not literals.
	Regex
	// DynamicDelims derives the close delimiter from the text that follows
	// the open delimiter (bracket balancing, heredoc identifiers).
	DynamicDelims
	// StopAtEnd lets the end of the enclosing boundary window truncate the
	// token when it comes before the close delimiter.
	StopAtEnd
	// EndIsEnd closes the enclosing boundary window after the token.
	EndIsEnd
	// List marks a rule carrying many values that share one template.
	List
	// Matches passes capture groups of a Complete regex to the callback.
	Matches
	// Consume swallows the open delimiter when a state is pushed, so that
	// child states do not see it.
	Consume
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{Exclude, "EXCLUDE"},
	{Complete, "COMPLETE"},
	{Regex, "REGEX"},
	{DynamicDelims, "DYNAMIC_DELIMS"},
	{StopAtEnd, "STOP_AT_END"},
	{EndIsEnd, "END_IS_END"},
	{List, "LIST"},
	{Matches, "MATCHES"},
	{Consume, "CONSUME"},
}

// Has reports whether every bit of x is set.
func (f Flags) Has(x Flags) bool {
	return f&x == x
}

// Names returns the names of the set flags in bit order.
func (f Flags) Names() []string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return names
}

func (f Flags) String() string {
	if f == 0 {
		return "0"
	}
	return strings.Join(f.Names(), "|")
}

// ParseFlags turns flag names (as written in grammar files) into Flags.
// Names are case-insensitive.
func ParseFlags(names []string) (Flags, error) {
	var f Flags
	for _, name := range names {
		found := false
		for _, fn := range flagNames {
			if strings.EqualFold(fn.name, strings.TrimSpace(name)) {
				f |= fn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown rule flag '%s'", name)
		}
	}
	return f, nil
}

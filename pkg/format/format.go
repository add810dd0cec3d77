// Package format renders the tagged output of the tokenizer, where every
// token is wrapped as <KIND>text</KIND> and &, < and > in the text are
// entities.
package format

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Formatter writes a tagged string in some output format.
type Formatter interface {
	Format(w io.Writer, tagged string) error
}

// Options selects and configures a formatter.
type Options struct {
	HTML HTMLOptions
	ANSI ANSIOptions
}

var formatters = map[string]func(Options) Formatter{
	"html":   func(o Options) Formatter { return NewHTML(o.HTML) },
	"ansi":   func(o Options) Formatter { return NewANSI(o.ANSI) },
	"tagged": func(Options) Formatter { return Tagged{} },
}

// New returns the formatter registered under name.
func New(name string, opts Options) (Formatter, error) {
	f, ok := formatters[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown format '%s' (want one of %s)", name, strings.Join(Names(), ", "))
	}
	return f(opts), nil
}

// Names lists the registered formats.
func Names() []string {
	names := make([]string, 0, len(formatters))
	for name := range formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tagged writes the tagged string unchanged.
type Tagged struct{}

func (Tagged) Format(w io.Writer, tagged string) error {
	_, err := io.WriteString(w, tagged)
	return err
}

package grammar

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/spicery/glint/pkg/strsearch"
)

// ErrUnknownCallback is returned when a grammar names a callback that does
// not exist.
var ErrUnknownCallback = errors.New("unknown callback")

var (
	genericEscape = strsearch.MustCompile(`\\(?:u[a-f0-9]{4,8}|\d{1,3}|&[a-z]+;|[\w\\])`, strsearch.Options{CaseInsensitive: true})
	cEscape       = strsearch.MustCompile(`\\[0abctfnrv\\"']`, strsearch.Options{})
	docTag        = strsearch.MustCompile(`(?m)(^(?>[/*#\s]*))([@\\])([^\s]*)`, strsearch.Options{})
	htmlInDoc     = strsearch.MustCompile(`(&lt;/?)(\S*?)(&gt;)`, strsearch.Options{})
	interpVar     = strsearch.MustCompile(`(?<![{\\])\$[a-z_][a-z0-9_]*(?!\})`, strsearch.Options{CaseInsensitive: true})
	interpBlock   = strsearch.MustCompile(`\{\$[a-z_].*?\}`, strsearch.Options{CaseInsensitive: true})
	heredocWord   = strsearch.MustCompile(`(&.+?;)|([A-Za-z0-9_]+)`, strsearch.Options{})
)

var commentNotes = []string{"NOTE", "FIXME", "XXX", "TODO", "BUG"}

var callbacks = map[string]Callback{
	"comment":       commentCallback,
	"doc-comment":   docCommentCallback,
	"string":        genericStringCallback,
	"c-string":      cStringCallback,
	"sql-string":    sqlStringCallback,
	"heredoc":       heredocCallback,
	"interpolated":  interpolatedStringCallback,
	"single-quoted": singleQuotedCallback,
}

// LookupCallback returns a callback by name.
func LookupCallback(name string) (Callback, error) {
	cb, ok := callbacks[name]
	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrUnknownCallback, name)
	}
	return cb, nil
}

// CallbackNames lists the available callbacks.
func CallbackNames() []string {
	return slices.Sorted(maps.Keys(callbacks))
}

func wrap(re *regexp2.Regexp, tag, s string) string {
	out, err := re.ReplaceFunc(s, func(m regexp2.Match) string {
		return "<" + tag + ">" + m.String() + "</" + tag + ">"
	}, -1, -1)
	if err != nil {
		return s
	}
	return out
}

// commentCallback highlights NOTE, FIXME, XXX, TODO and BUG.
func commentCallback(s string, _ []string) string {
	for _, note := range commentNotes {
		s = strings.ReplaceAll(s, note, "<COMMENT_NOTE>"+note+"</COMMENT_NOTE>")
	}
	return s
}

// docCommentCallback highlights @tags, embedded HTML tags and comment notes.
func docCommentCallback(s string, groups []string) string {
	if strings.ContainsAny(s, `@\`) {
		out, err := docTag.ReplaceFunc(s, func(m regexp2.Match) string {
			g := m.Groups()
			return g[1].String() + "<DOCTAG>" + g[2].String() + g[3].String() + "</DOCTAG>"
		}, -1, -1)
		if err == nil {
			s = out
		}
	}
	if strings.Contains(s, "&lt;") && strings.Contains(s, "&gt;") {
		s = wrap(htmlInDoc, "HTMLTAG", s)
	}
	return commentCallback(s, groups)
}

// genericStringCallback treats any backslash sequence as an escape.
func genericStringCallback(s string, _ []string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return wrap(genericEscape, "ESC", s)
}

// cStringCallback highlights the escapes C defines.
func cStringCallback(s string, _ []string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return wrap(cEscape, "ESC", s)
}

// sqlStringCallback highlights doubled quotes, then backslash escapes.
func sqlStringCallback(s string, groups []string) string {
	if len(s) < 4 {
		return s
	}
	body := strings.ReplaceAll(s[1:len(s)-1], "''", "<ESC>''</ESC>")
	return genericStringCallback(s[:1]+body+s[len(s)-1:], groups)
}

// heredocCallback marks the heredoc identifier, taken from the first line,
// wherever it occurs, then highlights escapes.
func heredocCallback(s string, groups []string) string {
	first, _, _ := strings.Cut(s, "\n")
	var words []string
	m, err := heredocWord.FindStringMatch(first)
	for err == nil && m != nil {
		if g := m.GroupByNumber(2); g != nil && len(g.Captures) > 0 && !slices.Contains(words, g.String()) {
			words = append(words, g.String())
		}
		m, err = heredocWord.FindNextMatch(m)
	}
	for _, w := range words {
		s = strings.ReplaceAll(s, w, "<CONSTANT>"+w+"</CONSTANT>")
	}
	return genericStringCallback(s, groups)
}

// interpolatedStringCallback highlights $variables and {$expressions} in a
// double quoted string, then escapes.
func interpolatedStringCallback(s string, groups []string) string {
	if strings.Contains(s, "{$") {
		s = wrap(interpBlock, "VARIABLE", s)
	}
	if strings.Contains(s, "$") {
		s = wrap(interpVar, "VARIABLE", s)
	}
	return genericStringCallback(s, groups)
}

// singleQuotedCallback highlights the only two escapes a single quoted
// string knows.
func singleQuotedCallback(s string, _ []string) string {
	s = strings.ReplaceAll(s, `\\`, `<ESC>\\</ESC>`)
	return strings.ReplaceAll(s, `\'`, `<ESC>\'</ESC>`)
}

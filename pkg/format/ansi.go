package format

import (
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spicery/glint/pkg/tokenizer"
)

// Theme maps a token kind to its colour. Kinds without an entry are
// printed plain.
type Theme map[string]*color.Color

// DefaultTheme returns the colours used by the command line tool.
func DefaultTheme() Theme {
	comment := color.New(color.FgHiBlack)
	str := color.New(color.FgGreen)
	fn := color.New(color.FgYellow)
	return Theme{
		"KEYWORD":       color.New(color.FgBlue, color.Bold),
		"TYPE":          color.New(color.FgCyan),
		"STRING":        str,
		"HEREDOC":       str,
		"ESC":           color.New(color.FgHiGreen, color.Bold),
		"REGEX":         color.New(color.FgHiGreen),
		"COMMENT":       comment,
		"DOCCOMMENT":    comment,
		"DOCTAG":        color.New(color.FgHiBlack, color.Bold),
		"COMMENT_NOTE":  color.New(color.FgRed, color.Bold),
		"NUMERIC":       color.New(color.FgMagenta),
		"CONSTANT":      color.New(color.FgHiMagenta),
		"FUNCTION":      fn,
		"USER_FUNCTION": fn,
		"OPERATOR":      color.New(color.FgRed),
		"VARIABLE":      color.New(color.FgHiCyan),
		"VALUE":         color.New(color.FgHiYellow),
		"HTMLTAG":       color.New(color.FgBlue),
		"OO":            color.New(color.FgHiBlue),
		"OBJ":           color.New(color.FgHiBlue),
	}
}

// ANSIOptions configures the terminal formatter.
type ANSIOptions struct {
	Theme Theme
	// ForceColor colours the output even when stdout is not a terminal.
	ForceColor bool
}

// ANSI renders tokens with terminal colour escapes.
type ANSI struct {
	opts ANSIOptions
}

func NewANSI(opts ANSIOptions) *ANSI {
	if opts.Theme == nil {
		opts.Theme = DefaultTheme()
	}
	if opts.ForceColor {
		// colours are shared, so enable copies
		theme := make(Theme, len(opts.Theme))
		for kind, c := range opts.Theme {
			forced := *c
			forced.EnableColor()
			theme[kind] = &forced
		}
		opts.Theme = theme
	}
	return &ANSI{opts: opts}
}

func (a *ANSI) Format(w io.Writer, tagged string) error {
	var b strings.Builder
	for _, tok := range tokenizer.ParseTagged(tagged) {
		tok.Unescape()
		c, ok := a.opts.Theme[tok.KindName()]
		if !ok {
			b.WriteString(tok.Text)
			continue
		}
		// colour each line on its own so pagers keep the colour
		for i, line := range strings.Split(tok.Text, "\n") {
			if i > 0 {
				b.WriteString("\n")
			}
			if line != "" {
				b.WriteString(c.Sprint(line))
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

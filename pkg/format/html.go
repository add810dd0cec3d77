package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/spicery/glint/pkg/tokenizer"
)

// DefaultClassPrefix is prepended to the lower-cased token kind to build a
// CSS class name.
const DefaultClassPrefix = "gl-"

// HTMLOptions configures the HTML formatter.
type HTMLOptions struct {
	ClassPrefix string
	// Inline leaves out the enclosing <pre><code> element.
	Inline bool
	// LineNumbers wraps every line in a span carrying its number.
	LineNumbers bool
}

// HTML renders tokens as spans with one CSS class per kind.
type HTML struct {
	opts HTMLOptions
}

func NewHTML(opts HTMLOptions) *HTML {
	if opts.ClassPrefix == "" {
		opts.ClassPrefix = DefaultClassPrefix
	}
	return &HTML{opts: opts}
}

// Class returns the CSS class used for kind.
func (h *HTML) Class(kind string) string {
	return h.opts.ClassPrefix + strings.ReplaceAll(strings.ToLower(kind), "_", "-")
}

func (h *HTML) Format(w io.Writer, tagged string) error {
	var b strings.Builder
	if !h.opts.Inline {
		b.WriteString(`<pre class="` + strings.TrimSuffix(h.opts.ClassPrefix, "-") + `"><code>`)
	}
	line := 1
	if h.opts.LineNumbers {
		b.WriteString(h.lineStart(line))
	}
	for _, tok := range tokenizer.ParseTagged(tagged) {
		kind := tok.KindName()
		lines := strings.Split(tok.Text, "\n")
		for i, text := range lines {
			if i > 0 {
				line++
				if h.opts.LineNumbers {
					b.WriteString("</span>\n" + h.lineStart(line))
				} else {
					b.WriteString("\n")
				}
			}
			if text == "" {
				continue
			}
			if kind == "" {
				b.WriteString(text)
				continue
			}
			fmt.Fprintf(&b, `<span class="%s">%s</span>`, h.Class(kind), text)
		}
	}
	if h.opts.LineNumbers {
		b.WriteString("</span>")
	}
	if !h.opts.Inline {
		b.WriteString("</code></pre>\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (h *HTML) lineStart(n int) string {
	return fmt.Sprintf(`<span class="%sline" data-line="%d">`, h.opts.ClassPrefix, n)
}

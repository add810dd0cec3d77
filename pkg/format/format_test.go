package format

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

const sample = "<KEYWORD>if</KEYWORD> a &lt; <STRING>\"x<ESC>\\n</ESC>\"</STRING>\n<COMMENT>// b\n</COMMENT>"

func format(t *testing.T, f Formatter, tagged string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, tagged))
	return buf.String()
}

func TestNew(t *testing.T) {
	for _, name := range []string{"html", "ANSI", "tagged"} {
		t.Run(name, func(t *testing.T) {
			f, err := New(name, Options{})
			require.NoError(t, err)
			require.NotNil(t, f)
		})
	}

	_, err := New("pdf", Options{})
	require.ErrorContains(t, err, "pdf")
	require.Equal(t, []string{"ansi", "html", "tagged"}, Names())
}

func TestTagged(t *testing.T) {
	require.Equal(t, sample, format(t, Tagged{}, sample))
}

func TestHTML(t *testing.T) {
	tests := []struct {
		name     string
		opts     HTMLOptions
		tagged   string
		expected string
	}{
		{
			name:     "inline",
			opts:     HTMLOptions{Inline: true},
			tagged:   "<KEYWORD>if</KEYWORD> a &lt; b",
			expected: `<span class="gl-keyword">if</span> a &lt; b`,
		},
		{
			name:     "nested tags use the innermost kind",
			opts:     HTMLOptions{Inline: true, ClassPrefix: "x-"},
			tagged:   `<STRING>"a<ESC>\n</ESC>"</STRING>`,
			expected: `<span class="x-string">"a</span><span class="x-esc">\n</span><span class="x-string">"</span>`,
		},
		{
			name:     "multi-line tokens are split",
			opts:     HTMLOptions{Inline: true},
			tagged:   "<USER_FUNCTION>a\nb</USER_FUNCTION>",
			expected: "<span class=\"gl-user-function\">a</span>\n<span class=\"gl-user-function\">b</span>",
		},
		{
			name:     "wrapped",
			tagged:   "x",
			expected: "<pre class=\"gl\"><code>x</code></pre>\n",
		},
		{
			name:   "line numbers",
			opts:   HTMLOptions{Inline: true, LineNumbers: true},
			tagged: "a\n<COMMENT>b</COMMENT>",
			expected: `<span class="gl-line" data-line="1">a</span>` + "\n" +
				`<span class="gl-line" data-line="2"><span class="gl-comment">b</span></span>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := format(t, NewHTML(tt.opts), tt.tagged); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestANSI(t *testing.T) {
	green := color.New(color.FgGreen)
	green.DisableColor()
	f := NewANSI(ANSIOptions{Theme: Theme{"STRING": green}, ForceColor: true})
	got := format(t, f, "a &lt; <STRING>\"x\ny\"</STRING><KEYWORD>if</KEYWORD>")

	want := color.New(color.FgGreen)
	want.EnableColor()
	require.True(t, strings.HasPrefix(got, "a < "), "entities are decoded")
	require.Contains(t, got, want.Sprint(`"x`)+"\n"+want.Sprint(`y"`))
	require.True(t, strings.HasSuffix(got, "if"), "kinds outside the theme are plain")

	// the caller's colour is left alone
	require.Equal(t, "x", green.Sprint("x"))
}

func TestANSIWithoutColour(t *testing.T) {
	plain := color.New(color.FgRed)
	plain.DisableColor()
	f := NewANSI(ANSIOptions{Theme: Theme{"KEYWORD": plain}})
	require.Equal(t, "if a < \"x\\n\"\n// b\n", format(t, f, sample))
}

package embedded

import (
	"strings"

	"github.com/spicery/glint/pkg/strsearch"
)

var cssTags = map[string]string{
	"COMMENT":                "COMMENT",
	"SSTRING":                "STRING",
	"DSTRING":                "STRING",
	"NUMERIC":                "NUMERIC",
	"ATTR_SELECTOR":          "OPERATOR",
	"ROUND_BRACKET_SELECTOR": "OPERATOR",
	"OPERATOR":               "OPERATOR",
	"PUNCT":                  "OPERATOR",
}

// CSS configures a scanner for style sheets.
func CSS() Config {
	return Config{
		Language: "css",
		Patterns: cssPatterns,
		Recovery: map[string]string{
			"COMMENT":                    `(?s).*?(?:\*/|$)`,
			"SSTRING":                    `(?s)(?:[^\\']+|\\.)*(?:'|$)`,
			"SSTRING_ESC":                `(?s).(?:[^\\']+|\\.)*(?:'|$)`,
			"DSTRING":                    `(?s)(?:[^\\"]+|\\.)*(?:"|$)`,
			"DSTRING_ESC":                `(?s).(?:[^\\"]+|\\.)*(?:"|$)`,
			"ATTR_SELECTOR":              `(?s)(?:[^\]\\]+|\\.)*(?:\]|$)`,
			"ATTR_SELECTOR_ESC":          `(?s).(?:[^\]\\]+|\\.)*(?:\]|$)`,
			"ROUND_BRACKET_SELECTOR":     `(?s)(?:[^)\\]+|\\.)*(?:\)|$)`,
			"ROUND_BRACKET_SELECTOR_ESC": `(?s).(?:[^)\\]+|\\.)*(?:\)|$)`,
		},
		Terminator:    `(?i)<\s*/\s*style`,
		NewClassifier: func() Classifier { return &cssClassifier{} },
	}
}

func cssPatterns(Options) []NamedPattern {
	return []NamedPattern{
		{"COMMENT", strsearch.Regex(`(?s)/\*(?>[^*]+|\*(?!/))*(?:\*/|$)`)},
		{"DSTRING", strsearch.Regex(`(?s)"(?>[^"\\]+|\\.)*(?:"|$)`)},
		{"SSTRING", strsearch.Regex(`(?s)'(?>[^'\\]+|\\.)*(?:'|$)`)},
		{"HASH", strsearch.Regex(`#[\w\-]+`)},
		{"NUMERIC", strsearch.Regex(`-?(?>\d+)(?:\.(?>\d+))?(?:em|px|ex|ch|mm|cm|in|pt|%)?`)},
		{"SELECTOR", strsearch.Regex(`(?<=[.:])[\w\-]+`)},
		{"IDENT", strsearch.Regex(`!?[\-\w@]+`)},
		{"ATTR_SELECTOR", strsearch.Regex(`(?s)\[(?>[^\]\\]+|\\.)*(?:\]|$)`)},
		{"ROUND_BRACKET_SELECTOR", strsearch.Regex(`(?s)\((?>[^)\\]+|\\.)*(?:\)|$)`)},
		{"BRACE", strsearch.Regex(`[{}]`)},
		{"PUNCT", strsearch.Regex(`[:;]`)},
		{"OPERATOR", strsearch.Regex(`[.>*+~,]+`)},
	}
}

// cssClassifier tracks whether it is inside a declaration block and, if so,
// whether a property name or a value comes next.
type cssClassifier struct {
	block bool
	value bool
}

func (c *cssClassifier) Reset() {
	*c = cssClassifier{}
}

func (c *cssClassifier) Classify(sc *ScriptScanner, rule string) (string, string) {
	text := sc.Match()
	switch rule {
	case "BRACE":
		c.block = text == "{"
		c.value = false
		return rule, ""
	case "PUNCT":
		if c.block {
			c.value = text == ":"
		}
	case "HASH":
		switch {
		case !c.block:
			return rule, "VARIABLE"
		case isHexColour(text):
			return rule, "NUMERIC"
		default:
			return rule, "VALUE"
		}
	case "SELECTOR", "IDENT":
		return rule, c.word(rule, text)
	}
	return rule, cssTags[rule]
}

func (c *cssClassifier) word(rule, text string) string {
	switch {
	case strings.HasPrefix(text, "!"):
		return "KEYWORD"
	case !c.block && rule == "SELECTOR":
		return "VARIABLE"
	case !c.block:
		return "KEYWORD"
	case !c.value:
		return "TYPE"
	}
	switch strings.ToLower(text) {
	case "url", "rgb", "rgba", "hsl", "hsla", "calc", "var":
		return "FUNCTION"
	}
	return "VALUE"
}

// isHexColour reports whether text is #rgb or #rrggbb.
func isHexColour(text string) bool {
	digits := strings.TrimPrefix(text, "#")
	if len(digits) != 3 && len(digits) != 6 {
		return false
	}
	return strings.Trim(digits, "0123456789abcdefABCDEF") == ""
}

package embedded

import (
	"strings"

	"github.com/spicery/glint/pkg/strsearch"
)

var (
	jsKeywords = []string{
		"break", "case", "catch", "comment", "continue", "do", "default", "delete", "else",
		"export", "for", "function", "if", "import", "in", "instanceof", "label", "new", "null",
		"return", "switch", "throw", "try", "typeof", "var", "void", "while", "with", "true",
		"false", "this",
	}
	jsFunctions = []string{
		"$", "alert", "confirm", "clearTimeout", "clearInterval", "encodeURI",
		"encodeURIComponent", "eval", "isFinite", "isNaN", "parseInt", "parseFloat", "prompt",
		"setTimeout", "setInterval", "decodeURI", "decodeURIComponent", "jQuery",
	}
	jsTypes = []string{
		"Array", "Boolean", "Date", "Error", "EvalError", "Infinity", "Image", "Math", "NaN",
		"Number", "Object", "Option", "RangeError", "ReferenceError", "RegExp", "String",
		"SyntaxError", "TypeError", "URIError", "document", "undefined", "window",
	}
	jsIdents = identMap(map[string][]string{
		"KEYWORD":  jsKeywords,
		"FUNCTION": jsFunctions,
		"TYPE":     jsTypes,
	})

	jsRegexLiteral = strsearch.Regex(`(?s)/` + jsRegexBody)
	jsSlash        = strsearch.Regex(`/`)

	jsTags = map[string]string{
		"COMMENT":    "COMMENT",
		"COMMENT_SL": "COMMENT",
		"SSTRING":    "STRING",
		"DSTRING":    "STRING",
		"NUMERIC":    "NUMERIC",
		"HEX":        "NUMERIC",
		"REGEX":      "REGEX",
		"OPERATOR":   "OPERATOR",
	}
)

// jsRegexBody is a regex literal after its opening slash.
const jsRegexBody = `(?:[^\[\\/]+|\\.|\[(?:[^\]\\]+|\\.)*(?:\]|$))*(?:/[iogmx]*|$)`

// jsClassRest is the rest of a character class.
const jsClassRest = `(?:[^\]\\]+|\\.)*(?:\]` + jsRegexBody + `|$)`

func identMap(lists map[string][]string) map[string]string {
	m := make(map[string]string)
	for kind, words := range lists {
		for _, w := range words {
			m[w] = kind
		}
	}
	return m
}

// ECMAScript configures a scanner for JavaScript.
func ECMAScript() Config {
	return Config{
		Language: "ecmascript",
		Patterns: ecmaPatterns,
		Recovery: map[string]string{
			"COMMENT_SL":      `.*`,
			"COMMENT":         `(?s).*?(?:\*/|$)`,
			"SSTRING":         `(?m)(?:[^\\'\n]+|\\.)*(?:'|$)`,
			"SSTRING_ESC":     `(?m).?(?:[^\\'\n]+|\\.)*(?:'|$)`,
			"DSTRING":         `(?m)(?:[^\\"\n]+|\\.)*(?:"|$)`,
			"DSTRING_ESC":     `(?m).?(?:[^\\"\n]+|\\.)*(?:"|$)`,
			"REGEX":           `(?s)` + jsRegexBody,
			"REGEX_ESC":       `(?s).` + jsRegexBody,
			"REGEX_CLASS":     `(?s)` + jsClassRest,
			"REGEX_CLASS_ESC": `(?s).` + jsClassRest,
		},
		Continue:      ecmaContinue,
		Terminator:    `(?i)</script`,
		NewClassifier: func() Classifier { return &ecmaClassifier{} },
	}
}

// ecmaContinue also tracks whether a regex literal was cut inside a
// character class, where a slash does not end it.
func ecmaContinue(rule, from, prefix string) string {
	if rule != "REGEX" {
		return ContinueEscaped(rule, from, prefix)
	}
	if prefix == "" && from != "" {
		return from
	}
	class := strings.HasPrefix(from, "REGEX_CLASS")
	// skip the opening slash, or the character a resumed escape consumed
	i := 0
	if from == "" || strings.HasSuffix(from, EscSuffix) {
		i = 1
	}
	esc := false
	for ; i < len(prefix); i++ {
		switch c := prefix[i]; {
		case esc:
			esc = false
		case c == '\\':
			esc = true
		case c == '[':
			class = true
		case c == ']':
			class = false
		}
	}
	key := rule
	if class {
		key += "_CLASS"
	}
	if esc {
		key += EscSuffix
	}
	return key
}

func ecmaPatterns(opts Options) []NamedPattern {
	// a < that opens a server block or a closing tag is not an operator
	var notAfterLT string
	if opts.Server {
		notAfterLT += `?%`
	}
	if opts.HTML {
		notAfterLT += `/`
	}
	operator := `[=!+*%\-&^|~:?;,.><]+`
	if notAfterLT != "" {
		operator = `(?:[=!+*%\-&^|~:?;,.>]|<(?![` + notAfterLT + `]))+`
	}
	return []NamedPattern{
		{"IDENT", strsearch.Regex(`[a-zA-Z_$][_$\w]*`)},
		{"OPERATOR", strsearch.Regex(operator)},
		{"OPENER", strsearch.Regex(`[\[{(]+`)},
		{"CLOSER", strsearch.Regex(`[\]})]+`)},
		{"HEX", strsearch.Regex(`0[Xx][a-fA-F0-9]+`)},
		{"NUMERIC", strsearch.Regex(`(?i)(?:\d+(?:\.\d+)?|\.?\d+)(?:e[+-]?\d+)?`)},
		{"SSTRING", strsearch.Regex(`(?m)'(?>[^\\'\n]+|\\.)*(?:$|')`)},
		{"DSTRING", strsearch.Regex(`(?m)"(?>[^\\"\n]+|\\.)*(?:$|")`)},
		{"COMMENT", strsearch.Regex(`(?s)/\*(?>[^*]+|\*(?!/))*(?:\*/|$)`)},
		{"COMMENT_SL", strsearch.Regex(`//.*`)},
		{"SLASH", jsSlash},
	}
}

// ecmaClassifier decides whether a slash starts a regex literal from the
// last significant token.
type ecmaClassifier struct {
	last string
}

func (c *ecmaClassifier) Reset() {
	c.last = ""
}

// operand reports whether the next token stands where an operand belongs.
func (c *ecmaClassifier) operand() bool {
	return c.last == "" || c.last == "OPERATOR" || c.last == "OPENER"
}

func (c *ecmaClassifier) Classify(sc *ScriptScanner, rule string) (string, string) {
	if rule == "SLASH" {
		rule = "OPERATOR"
		if c.operand() {
			sc.Unscan()
			if _, ok := sc.Scan(jsRegexLiteral); ok {
				rule = "REGEX"
			} else {
				sc.Scan(jsSlash)
			}
		}
	}
	if rule != "COMMENT" && rule != "COMMENT_SL" {
		c.last = rule
	}
	if rule == "IDENT" {
		return rule, jsIdents[sc.Match()]
	}
	return rule, jsTags[rule]
}

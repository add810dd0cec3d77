package grammar

import (
	"github.com/spicery/glint/pkg/strsearch"
)

// Templates used by the list presets. The placeholder is replaced by each
// value of the list.
const (
	KeywordTemplate  = `(?<![a-zA-Z0-9_$])(?:%KEYWORD)(?![a-zA-Z0-9_])`
	TypeTemplate     = `(?<![a-zA-Z0-9_$])(?:%TYPE)(?![a-zA-Z0-9_])`
	FunctionTemplate = `(?<![a-zA-Z0-9_$])(?:%FUNCTION)(?![a-zA-Z0-9_])`
	OperatorTemplate = `(?:%OPERATOR)+`
)

// CNumeric matches C-like numeric literals: hex, octal, decimal and
// fractional, with the usual case-insensitive suffixes.
const CNumeric = `(?<![A-Za-z0-9_<$])(?:0[xX][0-9A-Fa-f]+[uUlL]*|(?>[0-9]+)(?:[uUlLdDmM]+|(?:\.(?>[0-9]+))?(?:[eE][+\-]?[0-9]+)?[FfdD]?)?|\.(?>[0-9]+)(?:[eE][+\-]?[0-9]+)?[FflLdD]?)`

// DefaultOperators is the operator list most C-like grammars share. The
// input is already escaped, hence the entities.
var DefaultOperators = []string{`\+`, `\*`, `-`, `/`, `=`, `&gt;`, `&lt;`, `!`, `%`, `&amp;`, `\|`, `~`, `\^`, `\[`, `\]`}

// CommentRule matches a block comment.
func CommentRule(open, close string) *Rule {
	return Delimiter(0, "COMMENT", 0, open, close, nil).WithCallback("comment")
}

// LineComment matches a comment running to the end of the line.
func LineComment(delim string) *Rule {
	return Delimiter(0, "COMMENT", Regex|Complete, `(?:`+strsearch.Escape(delim)+`).*`, "", nil).
		WithCallback("comment")
}

// DocComment matches a documentation block comment such as /** ... */.
func DocComment(open, close string) *Rule {
	return Delimiter(0, "DOCCOMMENT", Regex|Complete,
		`(?s)`+strsearch.Escape(open)+`.*?`+strsearch.Escape(close), "", nil).
		WithCallback("doc-comment")
}

// DocLineComment matches a single line documentation comment such as ///,
// but not a longer run of the last delimiter character.
func DocLineComment(delim string) *Rule {
	last := strsearch.Escape(delim[len(delim)-1:])
	return Delimiter(0, "DOCCOMMENT", Regex|Complete,
		`(?:`+strsearch.Escape(delim)+`)(?!`+last+`).*`, "", nil).
		WithCallback("doc-comment")
}

// StringRule matches a string escaped with the grammar's escape characters.
func StringRule(open, close string) *Rule {
	return Delimiter(0, "STRING", 0, open, close, nil).WithCallback("string")
}

// SQLString matches a string escaped by doubling its delimiter.
func SQLString(delim string) *Rule {
	d := strsearch.Escape(delim)
	return Delimiter(0, "STRING", Regex|Complete,
		`(?s)`+d+`(?:[^`+d+`]|`+d+d+`)*`+d, "", nil).
		WithCallback("sql-string")
}

// RegexLiteral matches a /regex/ literal. It is only recognised after one of
// the characters that cannot precede a division, ignoring whitespace.
func RegexLiteral(modifiers string) *Rule {
	mods := ""
	if modifiers != "" {
		mods = `[` + modifiers + `]*`
	}
	return Delimiter(0, "REGEX", Regex|Complete,
		`(?<=(?:[(\[,=:;?!|~]|&amp;|^)\s*)/(?![/*])(?:\\.|[^\\/\n])+/`+mods, "", nil).
		WithCallback("string")
}

// Shebang matches a #! line.
func Shebang() *Rule {
	return Delimiter(0, "SHEBANG", 0, "#!", "\n", nil)
}

// ConstantRule matches words in upper case, at least two characters long.
func ConstantRule() *Rule {
	return Simple(3, "CONSTANT", Regex, `(?<![A-Za-z0-9_&<])[A-Z_][A-Z0-9_](?>[A-Z0-9_]*)(?![a-z])`)
}

// NumericRule matches numbers with the given pattern.
func NumericRule(pattern string) *Rule {
	return Simple(1, "NUMERIC", Regex, pattern)
}

// KeywordList matches whole words from a list of regex alternatives.
func KeywordList(words ...string) *Rule {
	return SimpleList(1, "KEYWORD", Regex, words, KeywordTemplate, "%KEYWORD")
}

// TypeList matches type names.
func TypeList(words ...string) *Rule {
	return SimpleList(2, "TYPE", Regex, words, TypeTemplate, "%TYPE")
}

// FunctionList matches names of well-known functions.
func FunctionList(words ...string) *Rule {
	return SimpleList(2, "FUNCTION", Regex, words, FunctionTemplate, "%FUNCTION")
}

// OperatorList matches runs of operators.
func OperatorList(ops ...string) *Rule {
	return SimpleList(4, "OPERATOR", Regex, ops, OperatorTemplate, "%OPERATOR")
}

// MemberRules returns the OBJ and OO rules for one member access separator,
// e.g. "." or "-&gt;".
func MemberRules(sep string) []*Rule {
	return []*Rule{
		Simple(4, "OBJ", Regex, `(?>[a-zA-Z0-9_$]+)(?=(?:`+sep+`))`),
		Simple(4, "OO", Regex, `(?<=(?:`+sep+`))(?:[a-zA-Z0-9_$]+)`),
	}
}

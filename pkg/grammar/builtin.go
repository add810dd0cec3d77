package grammar

import "slices"

var backslash = []rune{'\\'}

// DefaultRegistry returns a registry holding the built-in grammars.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, def := range Builtin() {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

// Builtin returns fresh definitions of the built-in grammars.
func Builtin() []*Definition {
	return []*Definition{
		{Grammar: plainGrammar()},
		{Grammar: cLikeGrammar()},
		{Grammar: javascriptGrammar()},
		{Grammar: embedded("js-embedded", "Embedded JavaScript",
			Boundary(Regex|Exclude, `(?si)(?:&lt;script.*?&gt;)`, `(?si)(?:&lt;/?script&gt;)`)),
			Extends: "javascript", Child: "css-embedded"},
		{Grammar: cssGrammar()},
		{Grammar: embedded("css-embedded", "Embedded CSS",
			Boundary(Regex|Exclude, `(?si)(&lt;style.*?&gt;)`, `(?si)(&lt;/style&gt;)`)),
			Extends: "css", Child: "html"},
		{Grammar: htmlGrammar(), Child: "html-text"},
		{Grammar: htmlTextGrammar()},
		{Grammar: phpGrammar(), Child: "js-embedded"},
		{Grammar: jsonGrammar()},
	}
}

func embedded(language, title string, boundary *Rule) *Grammar {
	return &Grammar{
		Info:                Info{Language: language, Title: title},
		BoundaryRules:       []*Rule{boundary},
		IgnoreOutsideStrict: true,
	}
}

func plainGrammar() *Grammar {
	return &Grammar{
		Info:        Info{Language: "plain", Title: "Plain text", Codes: []string{"text", "txt", "ini", "conf"}},
		EscapeChars: backslash,
		SimpleRules: []*Rule{
			Simple(0, "COMMENT", Regex, `(?m)^[ \t]*[#;].*$`),
			Simple(3, "VALUE", Regex, `(?m)(^[A-Za-z0-9_ \t]+?=)(.*)`).WithGroup(2, false),
			Simple(2, "VARIABLE", Regex, `(?m)^[A-Za-z0-9_ \t]+?(?==)`),
			Simple(2, "KEYWORD", Regex, `(?im)^([ \t]*)(\[)(.+?)(\])`),
			Simple(4, "OPERATOR", Regex, `(?<!=)=(?!=)`),
		},
	}
}

func cLikeGrammar() *Grammar {
	g := &Grammar{
		Info:        Info{Language: "generic", Title: "Generic C-like", Codes: []string{"c-like", "clike"}},
		EscapeChars: backslash,
		DelimitedRules: []*Rule{
			LineComment("//"),
			LineComment("#"),
			LineComment("--"),
			CommentRule("/*", "*/"),
			CommentRule("(*", "*)"),
			StringRule(`"`, `"`),
			StringRule("'", "'"),
		},
	}
	g.SimpleRules = append(g.SimpleRules,
		NumericRule(CNumeric),
		TypeList(`[aA]rray`, `[bB]yte`, `[bB]ool(?:ean)?`, `[cC]har(?:acter)?`, `[dD]ouble`, `[eE]num`,
			`[fF]loat`, `[iI]nt(?:eger)?\d*`, `[lL](?:ist|ong)`, `[sS](?:hort|tring)`,
			`[uU](?:nion|int(?:eger)?\d*|long|short)`, `[vV]oid`, `(?i:true|false|nil|null)`),
		KeywordList(`assert`, `abstract`, `begin`, `break`, `case`, `catch`, `class`, `continue`, `const`,
			`def`, `default`, `do`, `each`, `else(?:if)?`, `end`, `extends?`, `final(?:ly)?`,
			`for(?:each)?`, `function`, `global`, `goto`, `if`, `import`, `inherits?`, `lambda`, `let`,
			`local`, `loop`, `namespace`, `new`, `package`, `private`, `protected`, `public`, `return`,
			`require`, `static`, `switch`, `signed`, `then`, `this`, `throw`, `try`, `type`, `us(?:e|ing)`,
			`unsigned`, `with`, `when`, `while`, `var`),
		OperatorList(append(slices.Clone(DefaultOperators),
			`\band\b`, `\bin\b`, `\bis\b`, `\bgte?\b`, `\blte?\b`, `\bnot\b`, `\bor\b`, `\bxor\b`)...),
		ConstantRule(),
	)
	return g
}

func javascriptGrammar() *Grammar {
	g := &Grammar{
		Info:        Info{Language: "javascript", Title: "JavaScript", Codes: []string{"js"}},
		EscapeChars: backslash,
		DelimitedRules: []*Rule{
			DocComment("/**", "*/"),
			DocComment("/*!", "*/"),
			Delimiter(0, "DOCCOMMENT", StopAtEnd|Regex, `///(?!/)`, `(?m)$`, nil).WithCallback("doc-comment"),
			Delimiter(0, "DOCCOMMENT", StopAtEnd|Regex, `//!(?!!)`, `(?m)$`, nil).WithCallback("doc-comment"),
			CommentRule("/*", "*/"),
			Delimiter(0, "COMMENT", StopAtEnd|Regex, `//`, `(?m)$`, nil).WithCallback("comment"),
			StringRule(`"`, `"`),
			StringRule("'", "'"),
			RegexLiteral("igm"),
		},
	}
	wordOp := func(w string) string { return `(?<![a-zA-Z0-9_])` + w + `(?![a-zA-Z0-9_])` }
	g.SimpleRules = append(g.SimpleRules,
		Simple(4, "USER_FUNCTION", Regex, `(\bfunction\s+)(\w+)`).WithGroup(2, false),
		NumericRule(CNumeric),
		TypeList(`Array`, `Boolean`, `Date`, `Error|EvalError`, `Infinity|Image`, `Math`, `NaN|Number`,
			`Object|Option`, `R(?:ange|eference)Error|RegExp`, `String|SyntaxError`, `TypeError`,
			`URIError`, `false`, `this|true`, `undefined`),
		KeywordList(`break`, `c(?:ase|atch|omment|ontinue)`, `d(?:efault|elete|o)`, `e(?:lse|xport)`,
			`f(?:or|unction)`, `i(?:f|mport|n)`, `label`, `return`, `switch`, `throw|try`, `var|void`,
			`w(?:hile|ith)`),
		FunctionList(`\$`, `alert`, `confirm`, `encodeURI(?:Component)?|eval`, `is(?:Finite|NaN)`,
			`parse(?:Int|Float)|prompt`, `decodeURI(?:Component)?`, `jQuery`),
		OperatorList(append(slices.Clone(DefaultOperators), `\?`, `:`,
			wordOp(`delete`), wordOp(`get`), wordOp(`in(?:stanceof)?`), wordOp(`let`), wordOp(`new`),
			wordOp(`set`), wordOp(`typeof`), wordOp(`void`), wordOp(`yield`))...),
		ConstantRule(),
		Simple(4, "OBJ", Regex, `(?>[$\w]+)(?=\.)`),
		Simple(4, "OO", Regex, `(?<=\.)[$\w]+`),
	)
	return g
}

// cssGrammar is stateful: declarations only make sense inside blocks.
func cssGrammar() *Grammar {
	return &Grammar{
		Info:        Info{Language: "css", Title: "CSS"},
		EscapeChars: backslash,
		DelimitedRules: []*Rule{
			Delimiter(0, "BLOCK", StopAtEnd, "{", "}", nil),
			Delimiter(0, "TYPE", Regex|Complete|StopAtEnd, `(?i)[a-z\-@]+\s*(?=:)`, "", nil),
			Delimiter(0, "VALUE", Regex|StopAtEnd, `(?<=:)`, `(?<!:)(?=[;}])`, nil),
			Delimiter(0, "TAG", Regex|Complete|StopAtEnd, `(?i)(?<=\s|^)[@\-]?[a-z0-9_\-]+`, "", nil),
			Delimiter(1, "VARIABLE", Regex|Complete|StopAtEnd, `(?i)(?<=[:.#])[\-a-z0-9_]+`, "", nil),
			Delimiter(0, "COMMENT", Regex|Complete, `(?s)/\*.*?\*/`, "", nil).WithCallback("comment"),
			Delimiter(2, "STRING", Regex|Complete|StopAtEnd, `(?m)(['"]).*?(?:$|(?<!\\)(?:\\\\)*\1)`, "", nil),
			Delimiter(1, "NUMERIC", Regex|Complete|StopAtEnd,
				`#[a-fA-F0-9]{3,6}|(?<!\w)\d+(?:\.\d+)?(?:em|px|ex|ch|mm|cm|in|pt|%)?`, "", nil),
			Delimiter(1, "IMPORTANT", Complete|StopAtEnd, "!important", "", nil),
		},
		Transitions: map[string]Transition{
			RootState:  States("TAG", "COMMENT", "STRING", "BLOCK", "VARIABLE"),
			"COMMENT":  States(),
			"STRING":   States(),
			"BLOCK":    States("COMMENT", "STRING", "VALUE", "TYPE"),
			"VALUE":    States("NUMERIC", "IMPORTANT", "STRING", "COMMENT"),
			"TYPE":     States(),
			"NUMERIC":  States(),
			"TAG":      States(),
			"VARIABLE": States(),
		},
		StateTags: map[string]string{
			"IMPORTANT": "KEYWORD",
			"TAG":       "KEYWORD",
			"BLOCK":     "",
		},
	}
}

func htmlGrammar() *Grammar {
	return &Grammar{
		Info:                Info{Language: "html", Title: "HTML", Codes: []string{"htm", "xml", "xhtml"}},
		EscapeChars:         backslash,
		BoundaryRules:       []*Rule{Boundary(0, "&lt;", "&gt;")},
		IgnoreOutsideStrict: true,
		DelimitedRules: []*Rule{
			Delimiter(0, "COMMENT", EndIsEnd, "&lt;!--", "--&gt;", nil),
			Delimiter(0, "COMMENT", EndIsEnd|Regex, `&lt;!(?!(?i:DOCTYPE))`, `&gt;`, nil),
			Delimiter(0, "STRING", Regex|Complete, `(?s)(?:'')|(?:'.*?(?:'|(?=&[lg]t;)))`, "", nil),
			Delimiter(0, "STRING", Regex|Complete, `(?s)(?:"")|(?:".*?(?:"|(?=&gt;)))`, "", nil),
		},
		SimpleRules: []*Rule{
			Simple(2, "TYPE", Regex, `(?i)(?<=\s)[a-z\-:]+(?==)`),
			Simple(1, "HTMLTAG", Regex, `(?i)(?<=&lt;)/?[a-z0-9_\-:]+`),
			Simple(1, "CONSTANT", Regex, `(?i)(?<=&lt;)[!?][a-z0-9_\-:]+`),
			Simple(2, "VALUE", Regex, `(?<==)\s*(?!["'\s<])(?:(?!&gt;)[^\s<])+`),
		},
	}
}

// htmlTextGrammar highlights character references between tags.
func htmlTextGrammar() *Grammar {
	return &Grammar{
		Info: Info{Language: "html-text", Title: "HTML text"},
		SimpleRules: []*Rule{
			Simple(4, "ESC", Regex, `(?i)&amp;(?:[a-z]+|#[0-9]+);`),
		},
	}
}

func phpGrammar() *Grammar {
	g := &Grammar{
		Info:        Info{Language: "php", Title: "PHP", Codes: []string{"php3", "php4", "php5", "phtml"}},
		EscapeChars: backslash,
		BoundaryRules: []*Rule{
			Boundary(Regex, `&lt;\?(?:[=%]|php)?`, `(?:\?&gt;|$)`),
		},
		IgnoreOutsideStrict: false,
		DelimitedRules: []*Rule{
			Delimiter(0, "DOCCOMMENT", 0, "/**", "*/", nil).WithCallback("doc-comment"),
			CommentRule("/*", "*/"),
			Delimiter(0, "DOCCOMMENT", Regex|StopAtEnd, `///(?!/)`, `(?m)$`, nil).WithCallback("doc-comment"),
			Delimiter(0, "COMMENT", Regex|StopAtEnd, `//`, `(?m)$`, nil).WithCallback("comment"),
			Delimiter(0, "COMMENT", Regex|StopAtEnd, `#`, `(?m)$`, nil).WithCallback("comment"),
			Delimiter(0, "STRING", 0, "'", "'", nil).WithCallback("single-quoted"),
			Delimiter(0, "STRING", 0, `"`, `"`, nil).WithCallback("interpolated"),
			Delimiter(0, "STRING", 0, "`", "`", nil).WithCallback("interpolated"),
			Delimiter(0, "HEREDOC", Regex|DynamicDelims|Complete, `(?:&lt;){3}\s*["']?\s*`, "", nil).
				WithCallback("heredoc"),
		},
	}
	g.SimpleRules = append(g.SimpleRules,
		Simple(3, "VARIABLE", Regex, `(?i)\$\$?[a-z_][a-z0-9_]*`),
		Simple(4, "USER_FUNCTION", Regex,
			`(?m)((?:^(?>\s*)(?:(?:abstract(?>\s+))?class|(?:(?:public|private|protected)(?>\s+))?function)|\sextends)(?>\s+))(\w+)`).
			WithGroup(2, false),
		ConstantRule(),
		NumericRule(CNumeric),
		TypeList(`false`, `null`, `true`, `NULL`),
		KeywordList(`&lt;\?(?:php)?|\?&gt;`, `abstract|and|as`, `break`,
			`case|catch|cfunction|class|clone|const|continue`, `declare|default|do`,
			`echo|else(?:if)?|end(?:declare|for(?:each)?|if|switch|while)|extends`, `final|for(?:each)?|function`,
			`global|goto`, `if|implements|instanceof|interface`, `namespace|new`, `old_function|or`,
			`parent|private|protected|public`, `return`, `static|switch`, `throw|try`, `use`, `var`,
			`while`, `xor`, `\$this`),
		SimpleList(2, "FUNCTION", Regex, []string{`include(?:_once)?`, `require(?:_once)?`,
			`array(?:_(?:combine|diff|fill|filter|flip|keys|map|merge|pop|push|reverse|search|shift|slice|splice|sum|unique|values|walk))?`,
			`preg_(?:filter|grep|last_error|match(?:_all)?|quote|replace(?:_callback)?|split)`,
			`__(?:construct|destruct|call|callStatic|get|set|isset|unset|sleep|wakeup|toString|invoke|set_state|clone)`,
			`define`, `header`, `implode|isset|is_(?:array|bool|callable|float|int|null|numeric|object|string)`,
			`join`, `explode`, `str(?:_(?:pad|repeat|replace|split))`, `str(?:len|pos|rpos|str|tolower|toupper|tr)`,
			`substr(?:_count|_replace)?`, `trim`, `unset`}, `\b%FUNCTION\b`, "%FUNCTION"),
	)
	g.SimpleRules = append(g.SimpleRules, MemberRules("::")...)
	g.SimpleRules = append(g.SimpleRules, MemberRules("-&gt;")...)
	g.SimpleRules = append(g.SimpleRules, OperatorList(DefaultOperators...))
	return g
}

// jsonGrammar is stateful so that object keys and values are told apart.
func jsonGrammar() *Grammar {
	const str = `"(?:(?>[^"\\]+)|\\(?:["\\bfnrt/]|u[a-fA-F0-9]{4})|\\)*"`
	return &Grammar{
		Info:        Info{Language: "json", Title: "JSON"},
		EscapeChars: backslash,
		DelimitedRules: []*Rule{
			Delimiter(0, "OBJECT", Consume, "{", "}", nil),
			Delimiter(0, "MEMBER", Regex, `[^\s}]`, `,|(?=})`, nil),
			Delimiter(0, "KEY", Regex|Complete, str, "", nil).WithCallback("string"),
			Delimiter(0, "STRING", Regex|Complete, str, "", nil).WithCallback("string"),
			Delimiter(0, "MEMBER_VALUE", Regex, `:`, `(?=[,}])`, nil),
			Delimiter(0, "ARRAY", Consume, "[", "]", nil),
		},
		Transitions: map[string]Transition{
			RootState:      States("OBJECT", "ARRAY"),
			"OBJECT":       States("MEMBER"),
			"MEMBER":       States("KEY", "MEMBER_VALUE"),
			"MEMBER_VALUE": States("STRING", "OBJECT", "ARRAY"),
			"ARRAY":        States("STRING", "OBJECT", "ARRAY"),
		},
		StateTags: map[string]string{
			"OBJECT":       "",
			"MEMBER":       "",
			"ARRAY":        "",
			"MEMBER_VALUE": "",
			"KEY":          "TYPE",
		},
		SimpleRules: []*Rule{
			NumericRule(`(?<![\w&])-?(?:0|[1-9]\d*)(?:\.\d+)?(?:[eE][+-]?\d+)?`),
			Simple(3, "VALUE", Regex, `true|false|null`),
		},
	}
}

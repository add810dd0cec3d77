// Package embedded scans languages nested in a host document, such as
// JavaScript and CSS inside HTML, when a server language like PHP may cut
// into them anywhere, even in the middle of a token.
//
// A ScriptScanner is persistent: the same scanner serves every region of
// its language in one document. When a server block interrupts a token
// the scanner records what it has, remembers the rule it was in and exits
// dirty; the next Run picks the token up again with that rule's recovery
// pattern.
package embedded

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spicery/glint/pkg/scanner"
	"github.com/spicery/glint/pkg/strsearch"
	"github.com/spicery/glint/pkg/tokenizer"
)

// Status says why Run returned.
type Status int

const (
	// EOS: the scanner reached the end of the document.
	EOS Status = iota
	// Interrupted: a server block starts at Pos. The exit is dirty if the
	// block cut a token short.
	Interrupted
	// Terminated: the region's own terminator, e.g. </script>, is at Pos.
	Terminated
)

func (s Status) String() string {
	switch s {
	case EOS:
		return "eos"
	case Interrupted:
		return "interrupted"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// DefaultServerTag opens a server block.
const DefaultServerTag = `<\?`

const (
	stopServer = "STOP_SERVER"
	stopScript = "STOP_SCRIPT"
)

// EscSuffix marks the recovery pattern of a token cut right after an
// escape character. Such a pattern must consume the escaped character
// first.
const EscSuffix = "_ESC"

// Options says what a scanner is embedded in.
type Options struct {
	// Server: break at ServerTag, which is a regex.
	Server    bool
	ServerTag string
	// HTML: break at the language's terminator.
	HTML   bool
	Match  strsearch.Options
	Logger zerolog.Logger
}

// NamedPattern is one token rule of a script language.
type NamedPattern struct {
	Name    string
	Pattern strsearch.Pattern
}

// Classifier gives a scanned token its display tag. It may keep state
// across tokens, and across runs of a persistent scanner.
type Classifier interface {
	// Classify is called with the scanner positioned after a match of
	// rule. It may rescan; it returns the rule that finally matched and
	// its tag, "" for none.
	Classify(sc *ScriptScanner, rule string) (string, string)
	Reset()
}

// Config describes a script language.
type Config struct {
	Language string
	// Patterns lists the token rules, ties going to the earliest.
	Patterns func(opts Options) []NamedPattern
	// Recovery maps a rule, or a key returned by Continue, to a regex
	// matching the rest of its token once the start has been consumed.
	Recovery map[string]string
	// Continue picks the Recovery key for a token of rule cut short after
	// prefix. from is the key the token was last resumed with, "" if it
	// started in this run. Nil means ContinueEscaped.
	Continue func(rule, from, prefix string) string
	// Terminator is a regex for the end of the region, e.g. </script>.
	Terminator    string
	NewClassifier func() Classifier
}

// ScriptScanner is a persistent scanner for one embedded language.
type ScriptScanner struct {
	*scanner.Scanner

	cfg        Config
	opts       Options
	log        zerolog.Logger
	classifier Classifier
	serverTag  strsearch.Pattern
	terminator strsearch.Pattern
	patterns   map[string]strsearch.Pattern
	recovery   map[string]strsearch.Pattern

	clean    bool
	exitRule string
	exitKey  string
	resumed  string
	tokens   []*tokenizer.Token
}

// New returns a scanner for cfg with an empty document.
func New(cfg Config, opts Options) *ScriptScanner {
	if opts.ServerTag == "" {
		opts.ServerTag = DefaultServerTag
	}
	s := &ScriptScanner{
		Scanner:    scanner.New("", opts.Match),
		cfg:        cfg,
		opts:       opts,
		log:        opts.Logger.With().Str("language", cfg.Language).Logger(),
		classifier: cfg.NewClassifier(),
		serverTag:  strsearch.Regex(opts.ServerTag),
		terminator: strsearch.Regex(cfg.Terminator),
		recovery:   make(map[string]strsearch.Pattern, len(cfg.Recovery)),
	}
	for rule, src := range cfg.Recovery {
		s.recovery[rule] = strsearch.Regex(src)
	}
	s.Reset()
	return s
}

// Language returns the configured language name.
func (s *ScriptScanner) Language() string {
	return s.cfg.Language
}

// SetString starts a new document.
func (s *ScriptScanner) SetString(src string) {
	s.Scanner.SetString(src)
	s.Reset()
}

// Reset forgets the position, match history, tokens, exit state and the
// classifier's state.
func (s *ScriptScanner) Reset() {
	s.Scanner.Reset()
	s.clean = true
	s.exitRule = ""
	s.exitKey = ""
	s.resumed = ""
	s.tokens = nil
	s.classifier.Reset()
	s.register()
}

// register rebuilds the pattern set, which NextMatch prunes as it goes.
func (s *ScriptScanner) register() {
	for _, name := range s.Patterns() {
		s.RemovePattern(name)
	}
	s.patterns = make(map[string]strsearch.Pattern)
	add := func(name string, p strsearch.Pattern) {
		s.patterns[name] = p
		s.AddPattern(name, p)
	}
	if s.opts.Server {
		add(stopServer, s.serverTag)
	}
	if s.opts.HTML {
		add(stopScript, s.terminator)
	}
	for _, np := range s.cfg.Patterns(s.opts) {
		add(np.Name, np.Pattern)
	}
}

// Dirty reports whether the last Run stopped inside a token.
func (s *ScriptScanner) Dirty() bool {
	return !s.clean
}

// ExitRule returns the rule interrupted by the last dirty exit.
func (s *ScriptScanner) ExitRule() string {
	return s.exitRule
}

// Tokens returns the tokens recorded by the last Run.
func (s *ScriptScanner) Tokens() []*tokenizer.Token {
	return s.tokens
}

// Run scans from the current position until the end of the document, a
// server block or the region's terminator. Tokens recorded by an earlier
// Run are dropped first.
func (s *ScriptScanner) Run() Status {
	s.tokens = nil
	for !s.Eos() {
		if !s.clean {
			rule, kind := s.classifier.Classify(s, s.Resume())
			if s.serverBreak(rule, kind) {
				return Interrupted
			}
			if s.scriptBreak(kind) {
				return Terminated
			}
			s.record(s.Match(), kind)
			continue
		}

		start := s.Pos()
		rule, m, ok := s.NextMatch()
		if !ok {
			s.record(s.Rest(), "")
			s.Terminate()
			break
		}
		if m.Start > start {
			s.record(s.String()[start:m.Start], "")
			s.SetPos(m.Start)
		}
		switch rule {
		case stopServer:
			s.log.Debug().Int("pos", s.Pos()).Msg("server block")
			return Interrupted
		case stopScript:
			return Terminated
		}

		s.resumed = ""
		if _, ok := s.Scan(s.patterns[rule]); !ok || s.Pos() == m.Start {
			s.record(s.Consume(1), "")
			continue
		}
		rule, kind := s.classifier.Classify(s, rule)
		if s.serverBreak(rule, kind) {
			return Interrupted
		}
		if s.scriptBreak(kind) {
			return Terminated
		}
		s.record(s.Match(), kind)
	}
	return EOS
}

// Resume consumes the rest of the token a dirty exit left open and returns
// its rule. The recovery pattern is in Match afterwards. Resuming a clean
// exit, or a rule without a recovery pattern that matches, is a bug in the
// language configuration and panics.
func (s *ScriptScanner) Resume() string {
	if s.clean {
		panic("embedded: Resume after a clean exit")
	}
	s.clean = true
	p, ok := s.recovery[s.exitKey]
	if !ok {
		panic(fmt.Sprintf("embedded: %s was interrupted in %s, which has no recovery pattern", s.cfg.Language, s.exitKey))
	}
	if _, ok := s.Scan(p); !ok {
		panic(fmt.Sprintf("embedded: recovery pattern for %s did not match", s.exitKey))
	}
	s.resumed = s.exitKey
	s.log.Debug().Str("rule", s.exitRule).Str("recovery", s.exitKey).Int("pos", s.MatchPos()).Msg("resumed")
	return s.exitRule
}

// dirtyExit marks the scanner as stopped inside a token of rule after
// prefix. A key from Continue with no recovery pattern falls back to the
// rule's own.
func (s *ScriptScanner) dirtyExit(rule, prefix string) {
	next := ContinueEscaped
	if s.cfg.Continue != nil {
		next = s.cfg.Continue
	}
	key := next(rule, s.resumed, prefix)
	if _, ok := s.recovery[key]; !ok {
		key = rule
	}
	if _, ok := s.recovery[key]; !ok {
		panic(fmt.Sprintf("embedded: %s has no recovery pattern for %s", s.cfg.Language, rule))
	}
	s.exitRule = rule
	s.exitKey = key
	s.clean = false
}

// ContinueEscaped returns rule+EscSuffix when prefix ends inside an escape
// sequence, that is after an odd run of backslashes, and rule otherwise.
func ContinueEscaped(rule, from, prefix string) string {
	if prefix == "" && from != "" {
		return from
	}
	n := len(prefix) - len(strings.TrimRight(prefix, `\`))
	// the first character of a token resumed after an escape is the
	// escaped one
	if n == len(prefix) && strings.HasSuffix(from, EscSuffix) {
		n--
	}
	if n%2 == 1 {
		return rule + EscSuffix
	}
	return rule
}

// serverBreak checks the last match for the start of a server block. If
// there is one, the text before it is recorded, the pointer moves to the
// block and the exit is dirty.
func (s *ScriptScanner) serverBreak(rule, kind string) bool {
	if !s.opts.Server {
		return false
	}
	at, ok := s.findInMatch(s.serverTag)
	if !ok {
		return false
	}
	prefix := s.Match()[:at]
	s.record(prefix, kind)
	s.SetPos(s.MatchPos() + at)
	s.dirtyExit(rule, prefix)
	return true
}

// scriptBreak checks the last match for the region's terminator. If there
// is one, the text before it is recorded and the pointer moves to it.
func (s *ScriptScanner) scriptBreak(kind string) bool {
	if !s.opts.HTML {
		return false
	}
	at, ok := s.findInMatch(s.terminator)
	if !ok {
		return false
	}
	s.record(s.Match()[:at], kind)
	s.SetPos(s.MatchPos() + at)
	s.clean = true
	return true
}

func (s *ScriptScanner) findInMatch(p strsearch.Pattern) (int, bool) {
	text := s.Match()
	if text == "" {
		return 0, false
	}
	m, ok, err := strsearch.New(text, s.opts.Match).Find(p, 0)
	if err != nil {
		s.log.Warn().Err(err).Msg("pattern failed")
		return 0, false
	}
	return m.Start, ok
}

func (s *ScriptScanner) record(text, kind string) {
	if text == "" {
		return
	}
	s.tokens = append(s.tokens, tokenizer.NewToken(kind, text, tokenizer.Span{}))
}

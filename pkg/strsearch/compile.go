package strsearch

import (
	"time"

	"github.com/dlclark/regexp2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMatchTimeout bounds a single regex probe.
const DefaultMatchTimeout = 2 * time.Second

const compiledCacheSize = 1024

type compileKey struct {
	source  string
	options regexp2.RegexOptions
	timeout time.Duration
}

// compiled is shared by every Matcher; regexp2.Regexp is safe for
// concurrent use once built.
var compiled *lru.Cache[compileKey, *regexp2.Regexp]

func init() {
	var err error
	compiled, err = lru.New[compileKey, *regexp2.Regexp](compiledCacheSize)
	if err != nil {
		panic(err)
	}
}

// Compile returns the regexp2 program for source, reusing a cached one when
// the same source, options and timeout were compiled before.
func Compile(source string, opts Options) (*regexp2.Regexp, error) {
	var flags regexp2.RegexOptions
	if opts.CaseInsensitive {
		flags |= regexp2.IgnoreCase
	}
	timeout := opts.MatchTimeout
	if timeout <= 0 {
		timeout = DefaultMatchTimeout
	}
	key := compileKey{source: source, options: flags, timeout: timeout}
	if re, ok := compiled.Get(key); ok {
		return re, nil
	}

	re, err := regexp2.Compile(source, flags)
	if err != nil {
		return nil, &PatternError{Pattern: Regex(source), Code: CodeCompile, Err: err}
	}
	re.MatchTimeout = timeout
	compiled.Add(key, re)
	return re, nil
}

// MustCompile is like Compile but panics on error. It is meant for patterns
// that are part of the program.
func MustCompile(source string, opts Options) *regexp2.Regexp {
	re, err := Compile(source, opts)
	if err != nil {
		panic(err)
	}
	return re
}

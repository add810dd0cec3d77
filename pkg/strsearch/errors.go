package strsearch

import (
	"errors"
	"fmt"
	"strings"
)

// Code is the diagnostic attached to a pattern engine failure.
type Code int

const (
	// CodeCompile means the pattern source is not a valid expression.
	CodeCompile Code = iota + 1
	// CodeTimeout means a single probe ran past the configured match timeout,
	// usually catastrophic backtracking on hostile input.
	CodeTimeout
	// CodeEngine covers any other failure reported by regexp2.
	CodeEngine
)

func (c Code) String() string {
	switch c {
	case CodeCompile:
		return "compile"
	case CodeTimeout:
		return "timeout"
	case CodeEngine:
		return "engine"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// PatternError reports a failure of the underlying pattern engine.
type PatternError struct {
	Pattern Pattern
	Code    Code
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("pattern %s: %s error: %v", e.Pattern, e.Code, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// IsPatternError reports whether err carries a PatternError and returns it.
func IsPatternError(err error) (*PatternError, bool) {
	var pe *PatternError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// classify maps a regexp2 runtime error to a diagnostic code. regexp2 does
// not export a timeout error type, only the message.
func classify(err error) Code {
	if strings.Contains(err.Error(), "match timeout") {
		return CodeTimeout
	}
	return CodeEngine
}

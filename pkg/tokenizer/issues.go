package tokenizer

import (
	"errors"
	"fmt"
)

// ErrNoProgress is returned when a run stops making progress through its
// input. It always points at a broken grammar.
var ErrNoProgress = errors.New("tokenizer made no progress")

// IssueKind classifies a recoverable problem found during a run.
type IssueKind int

const (
	// IssuePatternFailure: a pattern failed in the regex engine; the
	// grammar's stage was rolled back and its input passed on untouched.
	IssuePatternFailure IssueKind = iota
	// IssueZeroLengthRule: a rule matched without consuming anything and
	// was dropped for the rest of the run.
	IssueZeroLengthRule
	// IssueUnresolvedAlias: an alias had no extraction left at the end.
	IssueUnresolvedAlias
	// IssueMissingGroup: a simple rule asked for a capture group that did
	// not take part in the match.
	IssueMissingGroup
	// IssueDepthLimit: safe mode closed a state early.
	IssueDepthLimit
)

func (k IssueKind) String() string {
	switch k {
	case IssuePatternFailure:
		return "pattern failure"
	case IssueZeroLengthRule:
		return "zero-length rule"
	case IssueUnresolvedAlias:
		return "unresolved alias"
	case IssueMissingGroup:
		return "missing group"
	case IssueDepthLimit:
		return "depth limit"
	default:
		return fmt.Sprintf("issue(%d)", int(k))
	}
}

// Issue is a problem the run worked around. Pos is a byte offset into the
// text the grammar was parsing, -1 when it does not apply.
type Issue struct {
	Kind        IssueKind
	Grammar     string
	Rule        string
	Pos         int
	Description string
}

func (i Issue) String() string {
	s := fmt.Sprintf("%s: %s", i.Grammar, i.Kind)
	if i.Rule != "" {
		s += fmt.Sprintf(" in rule '%s'", i.Rule)
	}
	if i.Pos >= 0 {
		s += fmt.Sprintf(" at %d", i.Pos)
	}
	if i.Description != "" {
		s += ": " + i.Description
	}
	return s
}

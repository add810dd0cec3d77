package tokenizer

import (
	"time"

	"github.com/rs/zerolog"
)

// DefaultMaxDepth is the safe-mode ceiling on nested states.
const DefaultMaxDepth = 20

// Options configures one run.
type Options struct {
	// Verbosity drops rules whose own verbosity is higher. Callbacks run
	// from verbosity 3.
	Verbosity int
	// SafeMode caps the depth of the state stack at MaxDepth.
	SafeMode bool
	MaxDepth int
	// PreEscaped means the input already has &, < and > as entities.
	PreEscaped bool
	// SeparateLines closes and reopens tags around every newline.
	SeparateLines bool
	// MatchTimeout bounds one regex probe; zero uses the engine default.
	MatchTimeout time.Duration
	Logger       zerolog.Logger
}

// DefaultOptions returns the settings used by the command line tool.
func DefaultOptions() Options {
	return Options{
		Verbosity: 4,
		SafeMode:  true,
		MaxDepth:  DefaultMaxDepth,
		Logger:    zerolog.Nop(),
	}
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

func (o Options) runCallbacks() bool {
	return o.Verbosity >= 3
}

package grammar

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnknownGrammar is returned when a name or code is not registered.
	ErrUnknownGrammar = errors.New("unknown grammar")
	// ErrGrammarCycle is returned when extends or child references loop.
	ErrGrammarCycle = errors.New("grammar reference cycle")
)

// DefaultGrammar is used when no language is given.
const DefaultGrammar = "plain"

// Definition is a registered grammar before its references are resolved.
//
// Extends names a grammar whose rules come first; the definition's own
// delimited and simple rules are appended to them, its boundary rules,
// escape characters, transitions and state tags replace the base's when
// present. Child names the grammar that parses whatever this one leaves
// outside its boundary windows.
type Definition struct {
	Grammar *Grammar
	Extends string
	Child   string
}

// Name returns the language name of the definition.
func (d *Definition) Name() string {
	return d.Grammar.Info.Language
}

// Registry maps language names and codes to grammars. It is safe for
// concurrent use; resolved grammars are cached and shared read-only.
type Registry struct {
	mu       sync.RWMutex
	defs     map[string]*Definition
	codes    map[string]string
	resolved map[string]*Grammar
	fallback string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:     make(map[string]*Definition),
		codes:    make(map[string]string),
		resolved: make(map[string]*Grammar),
		fallback: DefaultGrammar,
	}
}

// Register adds or replaces a definition. References are not checked until
// the grammar is looked up.
func (r *Registry) Register(def *Definition) error {
	if def == nil || def.Grammar == nil {
		return errors.New("cannot register an empty definition")
	}
	name := strings.ToLower(def.Name())
	if name == "" {
		return errors.New("cannot register a grammar without a language name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.defs[name]; ok {
		for _, code := range old.Grammar.Info.Codes {
			delete(r.codes, strings.ToLower(code))
		}
	}
	r.defs[name] = def
	for _, code := range def.Grammar.Info.Codes {
		r.codes[strings.ToLower(code)] = name
	}
	// anything may extend the replaced grammar
	clear(r.resolved)
	return nil
}

// SetDefault changes the grammar returned by Default.
func (r *Registry) SetDefault(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = strings.ToLower(name)
}

// Default returns the default grammar.
func (r *Registry) Default() (*Grammar, error) {
	r.mu.RLock()
	name := r.fallback
	r.mu.RUnlock()
	return r.Lookup(name)
}

// Names returns the registered language names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition returns the unresolved definition registered for a name or
// code.
func (r *Registry) Definition(nameOrCode string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.canonical(nameOrCode)
	if !ok {
		return nil, false
	}
	return r.defs[name], true
}

func (r *Registry) canonical(nameOrCode string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(nameOrCode))
	if _, ok := r.defs[key]; ok {
		return key, true
	}
	name, ok := r.codes[key]
	return name, ok
}

// Lookup resolves a language name or code to a grammar, following extends
// and child references.
func (r *Registry) Lookup(nameOrCode string) (*Grammar, error) {
	r.mu.RLock()
	name, ok := r.canonical(nameOrCode)
	g := r.resolved[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrUnknownGrammar, nameOrCode)
	}
	if g != nil {
		return g, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolve(name, nil)
}

// resolve must be called with the write lock held. path holds the names
// being resolved further up the call chain.
func (r *Registry) resolve(name string, path []string) (*Grammar, error) {
	if g, ok := r.resolved[name]; ok {
		return g, nil
	}
	if slices.Contains(path, name) {
		return nil, fmt.Errorf("%w: %s", ErrGrammarCycle, strings.Join(append(slices.Clone(path), name), " -> "))
	}
	def, ok := r.defs[name]
	if !ok {
		if len(path) == 0 {
			return nil, fmt.Errorf("%w '%s'", ErrUnknownGrammar, name)
		}
		return nil, fmt.Errorf("%w '%s' referenced by '%s'", ErrUnknownGrammar, name, path[len(path)-1])
	}
	path = append(path, name)

	g := def.Grammar.Clone()
	if def.Extends != "" {
		base, err := r.resolve(strings.ToLower(def.Extends), path)
		if err != nil {
			return nil, err
		}
		g = inherit(base, g)
	}
	if def.Child != "" {
		child, err := r.resolve(strings.ToLower(def.Child), path)
		if err != nil {
			return nil, err
		}
		g.Child = child
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	r.resolved[name] = g
	return g, nil
}

// inherit builds a grammar from base with the definition's own parts
// layered on top.
func inherit(base, own *Grammar) *Grammar {
	g := base.Clone()
	g.Info = own.Info
	g.DelimitedRules = append(g.DelimitedRules, own.DelimitedRules...)
	g.SimpleRules = append(g.SimpleRules, own.SimpleRules...)
	if len(own.BoundaryRules) > 0 {
		g.BoundaryRules = own.BoundaryRules
		g.IgnoreOutsideStrict = own.IgnoreOutsideStrict
	}
	if own.EscapeChars != nil {
		g.EscapeChars = own.EscapeChars
	}
	if own.Transitions != nil {
		g.Transitions = own.Transitions
	}
	if own.StateTags != nil {
		g.StateTags = own.StateTags
	}
	g.CaseInsensitive = base.CaseInsensitive || own.CaseInsensitive
	if own.Child != nil {
		g.Child = own.Child
	}
	return g
}

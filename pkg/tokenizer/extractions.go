package tokenizer

import (
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/spicery/glint/pkg/strsearch"
)

// Sentinels that live only inside a run. Input is escaped before parsing,
// so a raw '<' can only come from the engine itself.
const (
	aliasPrefix = "<&R_"
	startMarker = "<&START>"
	endMarker   = "<&END>"
)

var aliasRegex = strsearch.MustCompile(`<&R_([0-9]+)>`, strsearch.Options{})

// Alias renders the placeholder for extraction id.
func Alias(id uint64) string {
	return aliasPrefix + strconv.FormatUint(id, 10) + ">"
}

// Extractions holds substrings that have already been tagged. Each one is
// replaced in the working text by an alias, so later passes cannot match
// inside it. Ids increase monotonically and are shared by every grammar in
// a chain.
type Extractions struct {
	entries map[uint64]string
	next    uint64
}

// NewExtractions returns an empty table.
func NewExtractions() *Extractions {
	return &Extractions{entries: make(map[uint64]string)}
}

// Add stores text and returns its alias.
func (e *Extractions) Add(text string) string {
	id := e.next
	e.next++
	e.entries[id] = text
	return Alias(id)
}

// AddTagged wraps text in tag and stores it.
func (e *Extractions) AddTagged(tag, text string, separateLines bool) string {
	return e.Add(TagBlock(tag, text, separateLines))
}

// Mark returns a point Rollback can return to.
func (e *Extractions) Mark() uint64 {
	return e.next
}

// Rollback forgets every entry added since mark.
func (e *Extractions) Rollback(mark uint64) {
	for id := mark; id < e.next; id++ {
		delete(e.entries, id)
	}
	e.next = mark
}

// Len returns the number of entries not yet resolved.
func (e *Extractions) Len() int {
	return len(e.entries)
}

// Resolve substitutes aliases in s until none is left. Entries are removed
// as they are used, so each one is resolved exactly once. Aliases with no
// entry are dropped from the output and counted.
func (e *Extractions) Resolve(s string) (string, int) {
	unresolved := 0
	for strings.Contains(s, aliasPrefix) {
		replaced, err := aliasRegex.ReplaceFunc(s, func(m regexp2.Match) string {
			id, err := strconv.ParseUint(m.GroupByNumber(1).String(), 10, 64)
			if err != nil {
				unresolved++
				return ""
			}
			text, ok := e.entries[id]
			if !ok {
				unresolved++
				return ""
			}
			delete(e.entries, id)
			return text
		}, -1, -1)
		if err != nil || replaced == s {
			break
		}
		s = replaced
	}
	return s, unresolved
}

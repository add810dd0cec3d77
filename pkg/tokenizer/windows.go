package tokenizer

import (
	"slices"
	"sort"
	"strings"

	"github.com/spicery/glint/pkg/grammar"
	"github.com/spicery/glint/pkg/strsearch"
)

// windows are the regions of the input a grammar with boundary rules
// applies to. A window opens at a start offset and runs to the first end
// offset after it.
type windows struct {
	starts []int
	ends   []int
	// byte length of the close match at each end offset, and whether the
	// close was excluded from the window
	endLen      map[int]int
	endExcluded map[int]bool
}

// findWindows collects start and end offsets for every boundary rule. An
// EXCLUDE rule keeps both delimiters outside the window. A start that lands
// on an end offset is a zero-length window and is dropped together with
// that end.
func findWindows(m *strsearch.Matcher, rules []*grammar.Rule) (*windows, error) {
	w := &windows{endLen: make(map[int]int), endExcluded: make(map[int]bool)}
	for _, r := range rules {
		excluded := r.Flags.Has(grammar.Exclude)

		opens, err := m.FindAll(r.OpenPattern())
		if err != nil {
			return nil, err
		}
		starts := make(map[int]bool, len(opens))
		for _, o := range opens {
			at := o.Start
			if excluded {
				at = o.End
			}
			starts[at] = true
		}

		closes, err := m.FindAll(r.ClosePattern())
		if err != nil {
			return nil, err
		}
		for _, c := range closes {
			at := c.End
			if excluded {
				at = c.Start
			}
			if starts[at] {
				delete(starts, at)
				continue
			}
			w.ends = append(w.ends, at)
			w.endLen[at] = c.Len()
			w.endExcluded[at] = excluded
		}
		for at := range starts {
			w.starts = append(w.starts, at)
		}
	}
	sort.Ints(w.starts)
	sort.Ints(w.ends)
	w.starts = slices.Compact(w.starts)
	w.ends = slices.Compact(w.ends)
	return w, nil
}

// empty reports whether no window can be formed.
func (w *windows) empty() bool {
	return len(w.starts) == 0 || len(w.ends) == 0
}

// nextStart returns the first start at or after i, or -1.
func (w *windows) nextStart(i int) int {
	return nextOffset(w.starts, i)
}

// nextEnd returns the first end at or after i, or -1.
func (w *windows) nextEnd(i int) int {
	return nextOffset(w.ends, i)
}

// stopAt is where a STOP_AT_END token cut short by the end at offset end
// must finish: before the close delimiter unless it was excluded anyway.
func (w *windows) stopAt(end int) int {
	if w.endExcluded[end] {
		return end
	}
	return end - w.endLen[end]
}

func nextOffset(offsets []int, i int) int {
	k := sort.SearchInts(offsets, i)
	if k == len(offsets) {
		return -1
	}
	return offsets[k]
}

// splitWindows calls parse on the text between every start/end marker pair
// of a delimiter pass's output and joins the results with the text outside
// the windows, dropping the markers.
func splitWindows(s string, parse func(string) (string, error)) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	for {
		p := strings.Index(s, startMarker)
		if p < 0 {
			break
		}
		b.WriteString(s[:p])
		s = s[p+len(startMarker):]
		e := strings.Index(s, endMarker)
		if e < 0 {
			e = len(s)
		}
		parsed, err := parse(s[:e])
		if err != nil {
			return "", err
		}
		b.WriteString(parsed)
		if e < len(s) {
			e += len(endMarker)
		}
		s = s[e:]
	}
	b.WriteString(s)
	return b.String(), nil
}

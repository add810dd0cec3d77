package tokenizer

import (
	"strings"

	"github.com/spicery/glint/pkg/grammar"
)

// Node is one state in the tree built by the stateful tokenizer. The root
// is the GLOBAL state of a window. Leaves have no state and carry the
// escaped text between state boundaries; Start and End are byte offsets
// into the escaped input.
type Node struct {
	State    string  `json:"state,omitempty"`
	Start    int     `json:"start"`
	End      int     `json:"end"`
	Text     string  `json:"text,omitempty"`
	Children []*Node `json:"children,omitempty"`

	rule   *grammar.Rule
	groups []string
}

// IsLeaf reports whether the node is text rather than a state.
func (n *Node) IsLeaf() bool {
	return n.State == ""
}

// addText appends src[from:to] to the node, merging it into a trailing
// text leaf.
func (n *Node) addText(src string, from, to int) {
	if to <= from {
		return
	}
	if k := len(n.Children); k > 0 {
		if last := n.Children[k-1]; last.IsLeaf() && last.End == from {
			last.Text += src[from:to]
			last.End = to
			return
		}
	}
	n.Children = append(n.Children, &Node{Start: from, End: to, Text: src[from:to]})
}

// Depth returns how many states are nested in n, n included.
func (n *Node) Depth() int {
	if n.IsLeaf() {
		return 0
	}
	deepest := 0
	for _, c := range n.Children {
		deepest = max(deepest, c.Depth())
	}
	return deepest + 1
}

// Source returns the concatenated text of every leaf under n.
func (n *Node) Source() string {
	if n.IsLeaf() {
		return n.Text
	}
	var b strings.Builder
	for _, c := range n.Children {
		b.WriteString(c.Source())
	}
	return b.String()
}

// Walk calls fn for n and everything under it, depth first. depth is 0 for
// n itself.
func (n *Node) Walk(fn func(node *Node, depth int)) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// collapse renders a window's tree back into text. A tagged state wraps
// its text in its tag; the outermost tagged state is aliased so the simple
// rules leave it alone. Text outside every tagged state stays visible.
func (s *stage) collapse(root *Node) (string, error) {
	var b strings.Builder
	for _, c := range root.Children {
		out, err := s.renderNode(c, false)
		if err != nil {
			return "", err
		}
		b.WriteString(out)
	}
	return b.String(), nil
}

func (s *stage) renderNode(n *Node, insideTag bool) (string, error) {
	if n.IsLeaf() {
		return n.Text, nil
	}
	tag, tagged := s.g.TagFor(n.State)

	var b strings.Builder
	for _, c := range n.Children {
		out, err := s.renderNode(c, insideTag || tagged)
		if err != nil {
			return "", err
		}
		b.WriteString(out)
	}
	content := b.String()

	if !tagged {
		tag = ""
		if n.rule.Callback == nil || !s.opts.runCallbacks() {
			return content, nil
		}
	}
	rendered, err := s.render(n.rule, tag, content, n.groups)
	if err != nil || insideTag {
		return rendered, err
	}
	return s.ext.Add(rendered), nil
}

package flatten

import "strings"

// noParent marks the root of a Tree.
const noParent = -1

// treeNode is one configuration statement in an indented block. Nodes live
// in the Tree arena and refer to each other by index.
type treeNode struct {
	text     string
	parent   int
	children []int
}

// Tree is the block structure of an indented ISAM configuration dump such
// as "info configure ethernet line". The first accepted line is the root.
type Tree struct {
	nodes []treeNode
	stats Stats
}

// ParseTree builds a Tree from raw. Lines starting with "echo" or "#" are
// banner noise and blank lines carry no structure; both are ignored. An
// "exit" line that is indented less than the previous line closes one block.
// Any other "exit" is ignored, and closing above the root stays at the root.
func ParseTree(raw string) *Tree {
	t := &Tree{}

	var (
		lastIndent int
		parent     = noParent
		prev       = noParent
	)
	for _, line := range splitLines(raw) {
		t.stats.Read++
		if strings.HasPrefix(line, "echo") || strings.HasPrefix(line, "#") {
			t.stats.Skipped++
			continue
		}
		text := stripComment(line)
		if text == "" {
			if strings.TrimSpace(line) != "" {
				t.stats.Skipped++
			}
			continue
		}
		indent := indentWidth(line)

		switch {
		case len(t.nodes) == 0:
			parent = t.add(text, noParent)
			prev = parent

		case hasToken(text, "exit"):
			if indent >= lastIndent {
				t.stats.Skipped++
				continue
			}
			if p := t.nodes[parent].parent; p != noParent {
				parent = p
			}

		case indent > lastIndent:
			parent = prev
			prev = t.add(text, parent)

		default:
			prev = t.add(text, parent)
		}
		lastIndent = indent
	}
	return t
}

func (t *Tree) add(text string, parent int) int {
	idx := len(t.nodes)
	t.nodes = append(t.nodes, treeNode{text: text, parent: parent})
	if parent != noParent {
		t.nodes[parent].children = append(t.nodes[parent].children, idx)
	}
	return idx
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Text returns the statement text of node i.
func (t *Tree) Text(i int) string {
	return t.nodes[i].text
}

// Children returns the child indexes of node i in encounter order.
func (t *Tree) Children(i int) []int {
	return t.nodes[i].children
}

// Leaves returns the indexes of all leaf nodes, left to right.
func (t *Tree) Leaves() []int {
	if len(t.nodes) == 0 {
		return nil
	}
	var leaves []int
	var walk func(i int)
	walk = func(i int) {
		n := &t.nodes[i]
		if len(n.children) == 0 {
			leaves = append(leaves, i)
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(0)
	return leaves
}

// Path returns the statement texts from the root down to node i.
func (t *Tree) Path(i int) []string {
	var path []string
	for ; i != noParent; i = t.nodes[i].parent {
		path = append(path, t.nodes[i].text)
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// Depth returns the number of nodes on the root path of node i; the root
// has depth 1.
func (t *Tree) Depth(i int) int {
	d := 0
	for ; i != noParent; i = t.nodes[i].parent {
		d++
	}
	return d
}

// Flatten returns one space-joined root-to-leaf path per leaf. The returned
// slice is never nil.
func (t *Tree) Flatten() []string {
	out := []string{}
	for _, leaf := range t.Leaves() {
		out = append(out, strings.Join(t.Path(leaf), " "))
	}
	return out
}

// Stats reports line accounting for the parse; Emitted equals the number of
// leaves.
func (t *Tree) Stats() Stats {
	st := t.stats
	st.Emitted = len(t.Leaves())
	return st
}

// FlattenTree parses raw and flattens it in one step.
func FlattenTree(raw string) []string {
	return ParseTree(raw).Flatten()
}

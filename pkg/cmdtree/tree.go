// Package cmdtree defines the command tree of the interactive shell.
//
// The tree drives tab completion, ? help and unknown command suggestions.
// When adding a new command, add it here and it automatically appears in
// all three.
package cmdtree

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Env supplies the dynamic values offered by completion.
type Env interface {
	// Scopes returns the configuration scope names known to the shell.
	Scopes() []string
}

// Node defines a completion tree node with description, children, and optional dynamic values.
type Node struct {
	Desc      string
	Children  map[string]*Node
	DynamicFn func(env Env) []string
}

// Candidate holds a command name and its description for display.
type Candidate struct {
	Name string
	Desc string
}

func scopes(env Env) []string {
	return env.Scopes()
}

// ShellTree is the command tree of the shell.
var ShellTree = map[string]*Node{
	"load":    {Desc: "Load raw device output for a scope from a file", DynamicFn: scopes},
	"flatten": {Desc: "Print the flattened candidate lines of a scope", DynamicFn: scopes},
	"facts":   {Desc: "Parse a scope into structured facts", DynamicFn: scopes},
	"show": {Desc: "Show information", Children: map[string]*Node{
		"scopes":    {Desc: "Scopes with loaded output"},
		"resources": {Desc: "Registered fact resources"},
		"lines":     {Desc: "Committed lines of a scope", DynamicFn: scopes},
		"history":   {Desc: "Commit history of a scope", DynamicFn: scopes},
		"compare":   {Desc: "Diff against a previous commit [n]", DynamicFn: scopes},
		"log":       {Desc: "Recent log events [n]"},
		"policy":    {Desc: "Context policy of the line flattener"},
	}},
	"set": {Desc: "Set a shell option", Children: map[string]*Node{
		"policy": {Desc: "Context policy of the line flattener", Children: map[string]*Node{
			"reset":   {Desc: "Clear the vlan context after every line"},
			"persist": {Desc: "Keep the context and emit headers on change"},
		}},
	}},
	"commit":   {Desc: "Commit the candidate of a scope", DynamicFn: scopes},
	"rollback": {Desc: "Restore a previous commit of a scope [n]", DynamicFn: scopes},
	"save":     {Desc: "Write the candidate output of a scope to disk", DynamicFn: scopes},
	"help":     {Desc: "Show available commands"},
	"exit":     {Desc: "Exit the shell"},
	"quit":     {Desc: "Exit the shell"},
}

// --- Helper functions ---

// KeysFromTree returns a sorted list of keys from a Node map.
func KeysFromTree(tree map[string]*Node) []string {
	keys := KeysOf(tree)
	sort.Strings(keys)
	return keys
}

// HelpCandidates returns Candidates from a tree's children for help display.
func HelpCandidates(tree map[string]*Node) []Candidate {
	candidates := make([]Candidate, 0, len(tree))
	for name, node := range tree {
		candidates = append(candidates, Candidate{Name: name, Desc: node.Desc})
	}
	return candidates
}

// CompleteFromTree walks the tree to find completion candidates for the given words and partial.
func CompleteFromTree(tree map[string]*Node, words []string, partial string, env Env) []string {
	cands := CompleteFromTreeWithDesc(tree, words, partial, env)
	names := make([]string, 0, len(cands))
	for _, c := range cands {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

// CompleteFromTreeWithDesc walks the tree returning name+description pairs.
// A node without children takes one dynamic value; words past it complete
// to nothing.
func CompleteFromTreeWithDesc(tree map[string]*Node, words []string, partial string, env Env) []Candidate {
	current := tree
	var currentNode *Node
	dynamicConsumed := false
	for i, w := range words {
		dynamicConsumed = false
		node, ok := current[w]
		if !ok {
			// Word not in static children: if parent has DynamicFn,
			// treat it as a dynamic value and stay at the same level.
			if currentNode != nil && currentNode.DynamicFn != nil {
				dynamicConsumed = true
				continue
			}
			return nil
		}
		currentNode = node
		if node.Children == nil {
			if i < len(words)-1 {
				return nil
			}
			return dynamicCandidates(node, partial, env)
		}
		current = node.Children
	}

	var candidates []Candidate
	for name, node := range current {
		if strings.HasPrefix(name, partial) {
			candidates = append(candidates, Candidate{Name: name, Desc: node.Desc})
		}
	}
	if !dynamicConsumed && currentNode != nil {
		candidates = append(candidates, dynamicCandidates(currentNode, partial, env)...)
	}
	return candidates
}

func dynamicCandidates(node *Node, partial string, env Env) []Candidate {
	if node.DynamicFn == nil || env == nil {
		return nil
	}
	var candidates []Candidate
	for _, name := range node.DynamicFn(env) {
		if strings.HasPrefix(name, partial) {
			candidates = append(candidates, Candidate{Name: name, Desc: "(scope)"})
		}
	}
	return candidates
}

// Complete splits a partially typed line into words and the partial last
// word, and returns the completion candidates for it.
func Complete(tree map[string]*Node, line string, env Env) (cands []Candidate, partial string) {
	words := strings.Fields(line)
	if len(words) > 0 && !strings.HasSuffix(line, " ") {
		partial = words[len(words)-1]
		words = words[:len(words)-1]
	}
	return CompleteFromTreeWithDesc(tree, words, partial, env), partial
}

// Suggest returns the top-level command closest to word by edit distance,
// or "" if none is close enough to be a plausible typo.
func Suggest(tree map[string]*Node, word string) string {
	return Nearest(word, KeysFromTree(tree))
}

// Nearest returns the candidate closest to word by edit distance, or "" if
// none is within a third of the word length (at least 2 edits).
func Nearest(word string, candidates []string) string {
	best, bestDist := "", -1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(word, c)
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	limit := max(len(word)/3, 2)
	if bestDist < 0 || bestDist > limit {
		return ""
	}
	return best
}

// WriteHelp prints aligned completion candidates to w.
// The entire output is built as a single string and written in one call
// so that readline's wrapWriter triggers only one Refresh cycle.
func WriteHelp(w io.Writer, candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })
	maxWidth := 20
	for _, c := range candidates {
		if len(c.Name)+2 > maxWidth {
			maxWidth = len(c.Name) + 2
		}
	}
	var sb strings.Builder
	sb.WriteString("Possible completions:\n")
	for _, c := range candidates {
		if c.Desc != "" {
			fmt.Fprintf(&sb, "  %-*s %s\n", maxWidth, c.Name, c.Desc)
		} else {
			fmt.Fprintf(&sb, "  %s\n", c.Name)
		}
	}
	io.WriteString(w, sb.String())
}

// WriteTreeHelp writes self-generating help for the subtree at path.
func WriteTreeHelp(w io.Writer, tree map[string]*Node, path ...string) {
	current := tree
	for _, p := range path {
		node, ok := current[p]
		if !ok || node.Children == nil {
			return
		}
		current = node.Children
	}
	WriteHelp(w, HelpCandidates(current))
}

// CommonPrefix returns the longest shared prefix among the given strings.
func CommonPrefix(items []string) string {
	if len(items) == 0 {
		return ""
	}
	prefix := items[0]
	for _, s := range items[1:] {
		for !strings.HasPrefix(s, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	return prefix
}

// KeysOf returns an unsorted list of keys from a Node map.
func KeysOf(m map[string]*Node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// FilterPrefix returns only items that start with the given prefix.
func FilterPrefix(items []string, prefix string) []string {
	if prefix == "" {
		return items
	}
	var result []string
	for _, item := range items {
		if strings.HasPrefix(item, prefix) {
			result = append(result, item)
		}
	}
	return result
}

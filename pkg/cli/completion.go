package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/therealmichaelberna/nokia.isam/pkg/cmdtree"
)

// completer implements readline.AutoCompleter over the shell command tree.
type completer struct {
	sh *Shell
}

// Do implements readline.AutoCompleter.
func (c *completer) Do(line []rune, pos int) ([][]rune, int) {
	return c.sh.complete(c.sh.rl.Stdout(), string(line[:pos]))
}

// complete returns the readline completion for text. With several
// candidates their help is written to w and the shared prefix is offered.
func (s *Shell) complete(w io.Writer, text string) ([][]rune, int) {
	cands, partial := cmdtree.Complete(cmdtree.ShellTree, text, s)
	if len(cands) == 0 {
		return nil, 0
	}
	if len(cands) == 1 {
		suffix := cands[0].Name[len(partial):]
		return [][]rune{[]rune(suffix + " ")}, len(partial)
	}

	cmdtree.WriteHelp(w, cands)
	names := make([]string, len(cands))
	for i, c := range cands {
		names[i] = c.Name
	}
	sort.Strings(names)
	suffix := cmdtree.CommonPrefix(names)[len(partial):]
	if suffix == "" {
		return nil, 0
	}
	return [][]rune{[]rune(suffix)}, len(partial)
}

// helpListener prints the candidates for the text before the cursor when
// '?' is typed, and removes the '?' from the line.
func (s *Shell) helpListener(line []rune, pos int, key rune) ([]rune, int, bool) {
	if key != '?' || pos < 1 {
		return line, pos, false
	}
	// Strip the '?' that readline already inserted.
	cleanLine := make([]rune, 0, len(line)-1)
	cleanLine = append(cleanLine, line[:pos-1]...)
	cleanLine = append(cleanLine, line[pos:]...)
	s.writeContextHelp(s.rl.Stdout(), string(cleanLine[:pos-1]))
	return cleanLine, pos - 1, true
}

func (s *Shell) writeContextHelp(w io.Writer, text string) {
	cands, _ := cmdtree.Complete(cmdtree.ShellTree, text, s)
	if len(cands) == 0 {
		fmt.Fprintln(w, "  (no help available)")
		return
	}
	cmdtree.WriteHelp(w, cands)
}

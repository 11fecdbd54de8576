// Package cli implements the interactive shell for exploring ISAM captures.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"gopkg.in/yaml.v3"

	"github.com/therealmichaelberna/nokia.isam/pkg/cmdtree"
	"github.com/therealmichaelberna/nokia.isam/pkg/configstore"
	"github.com/therealmichaelberna/nokia.isam/pkg/facts"
	"github.com/therealmichaelberna/nokia.isam/pkg/flatten"
	"github.com/therealmichaelberna/nokia.isam/pkg/logging"
)

const defaultLogLines = 20

// Shell is the interactive command-line interface.
type Shell struct {
	rl       *readline.Instance
	store    *configstore.Store
	gatherer *facts.Gatherer
	events   *logging.EventBuffer
	out      io.Writer
	hostname string
	username string
}

// New creates a new Shell. events may be nil, in which case "show log"
// reports that no log buffer is attached.
func New(store *configstore.Store, g *facts.Gatherer, events *logging.EventBuffer) *Shell {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "isam"
	}
	username := os.Getenv("USER")
	if username == "" {
		username = "root"
	}

	return &Shell{
		store:    store,
		gatherer: g,
		events:   events,
		out:      os.Stdout,
		hostname: hostname,
		username: username,
	}
}

// Scopes returns the registered resources and every scope held by the
// store, sorted.
func (s *Shell) Scopes() []string {
	seen := make(map[string]bool)
	var names []string
	for _, n := range append(facts.Names(), s.store.Scopes()...) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Run starts the interactive loop. It returns when the user exits, stdin
// is closed or ctx is cancelled between commands.
func (s *Shell) Run(ctx context.Context) error {
	var err error
	s.rl, err = readline.NewEx(&readline.Config{
		Prompt:          s.prompt(),
		HistoryFile:     filepath.Join(os.TempDir(), "isamctl_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    &completer{sh: s},
		Listener:        readline.FuncListener(s.helpListener),
	})
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer s.rl.Close()
	s.out = s.rl.Stdout()

	fmt.Fprintln(s.out, "isam configuration shell")
	fmt.Fprintln(s.out, "Type '?' for help")
	fmt.Fprintln(s.out)

	for ctx.Err() == nil {
		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				break
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := s.dispatch(ctx, line); err != nil {
			if err == errExit {
				return nil
			}
			fmt.Fprintf(s.rl.Stderr(), "error: %v\n", err)
		}
	}
	return nil
}

var errExit = errors.New("exit")

func (s *Shell) prompt() string {
	return fmt.Sprintf("%s@%s> ", s.username, s.hostname)
}

func (s *Shell) dispatch(ctx context.Context, line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	switch parts[0] {
	case "load":
		return s.handleLoad(parts[1:])

	case "flatten":
		return s.handleFlatten(parts[1:])

	case "facts":
		return s.handleFacts(ctx, parts[1:])

	case "show":
		return s.handleShow(parts[1:])

	case "set":
		return s.handleSet(parts[1:])

	case "commit":
		return s.handleCommit(parts[1:])

	case "rollback":
		return s.handleRollback(parts[1:])

	case "save":
		if len(parts) < 2 {
			return fmt.Errorf("usage: save <scope>")
		}
		if err := s.store.Save(parts[1]); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "saved %s to %s\n", parts[1], s.store.Path(parts[1]))
		return nil

	case "quit", "exit":
		return errExit

	case "?", "help":
		cmdtree.WriteHelp(s.out, cmdtree.HelpCandidates(cmdtree.ShellTree))
		return nil

	default:
		if sug := cmdtree.Suggest(cmdtree.ShellTree, parts[0]); sug != "" {
			return fmt.Errorf("unknown command: %s (did you mean %q?)", parts[0], sug)
		}
		return fmt.Errorf("unknown command: %s", parts[0])
	}
}

func (s *Shell) handleLoad(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: load <scope> <file>")
	}
	scope, path := args[0], args[1]
	if _, err := facts.Lookup(scope); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", scope, err)
	}
	if err := s.store.Put(scope, string(data)); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "loaded %d bytes into %s candidate (uncommitted)\n", len(data), scope)
	return nil
}

func (s *Shell) handleFlatten(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: flatten <scope>")
	}
	raw, err := s.store.Raw(args[0])
	if err != nil {
		return err
	}
	lines, st, err := s.gatherer.Flatten(args[0], raw)
	if err != nil {
		return err
	}
	for _, l := range lines {
		fmt.Fprintln(s.out, l)
	}
	fmt.Fprintf(s.out, "# read %d, emitted %d, skipped %d, dropped %d\n",
		st.Read, st.Emitted, st.Skipped, st.Dropped)
	return nil
}

func (s *Shell) handleFacts(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: facts <scope>")
	}
	res, err := s.gatherer.GatherOne(ctx, args[0])
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(res.Facts)
	if err != nil {
		return fmt.Errorf("encode facts: %w", err)
	}
	_, err = s.out.Write(out)
	return err
}

func (s *Shell) handleShow(args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(s.out, "show: specify what to show")
		cmdtree.WriteTreeHelp(s.out, cmdtree.ShellTree, "show")
		return nil
	}

	switch args[0] {
	case "scopes":
		s.showScopes()
		return nil

	case "resources":
		for _, r := range facts.Resources() {
			fmt.Fprintf(s.out, "%-16s %-5s %s\n", r.Name, r.Strategy, r.Command)
		}
		return nil

	case "lines":
		if len(args) < 2 {
			return fmt.Errorf("usage: show lines <scope>")
		}
		active, err := s.store.Active(args[1])
		if err != nil {
			return err
		}
		for _, l := range active.Lines {
			fmt.Fprintln(s.out, l)
		}
		return nil

	case "history":
		if len(args) < 2 {
			return fmt.Errorf("usage: show history <scope>")
		}
		return s.showHistory(args[1])

	case "compare":
		if len(args) < 2 {
			return fmt.Errorf("usage: show compare <scope> [n]")
		}
		n, err := optionalInt(args[2:], 0)
		if err != nil {
			return err
		}
		diff, err := s.store.Compare(args[1], n)
		if err != nil {
			return err
		}
		fmt.Fprint(s.out, diff)
		return nil

	case "log":
		n, err := optionalInt(args[1:], defaultLogLines)
		if err != nil {
			return err
		}
		if s.events == nil {
			fmt.Fprintln(s.out, "no log buffer attached")
			return nil
		}
		for _, rec := range s.events.Latest(n) {
			fmt.Fprintln(s.out, rec.String())
		}
		return nil

	case "policy":
		fmt.Fprintf(s.out, "context policy: %s\n", s.gatherer.Policy())
		return nil

	default:
		return fmt.Errorf("unknown show target: %s", args[0])
	}
}

func (s *Shell) showScopes() {
	scopes := s.store.Scopes()
	if len(scopes) == 0 {
		fmt.Fprintln(s.out, "no scopes loaded")
		return
	}
	for _, scope := range scopes {
		lines := "-"
		if active, err := s.store.Active(scope); err == nil {
			lines = strconv.Itoa(len(active.Lines))
		}
		hist, _ := s.store.History(scope)
		state := "committed"
		if s.store.IsDirty(scope) {
			state = "modified"
		}
		fmt.Fprintf(s.out, "%-16s %-10s lines=%s history=%d\n", scope, state, lines, len(hist))
	}
}

func (s *Shell) showHistory(scope string) error {
	hist, err := s.store.History(scope)
	if err != nil {
		return err
	}
	if len(hist) == 0 {
		fmt.Fprintln(s.out, "no history")
		return nil
	}
	for i, e := range hist {
		fmt.Fprintf(s.out, "%3d  %s  %4d lines  %s\n",
			i+1, e.Timestamp.Format("2006-01-02 15:04:05"), len(e.Lines), e.Comment)
	}
	return nil
}

func (s *Shell) handleSet(args []string) error {
	if len(args) < 2 || args[0] != "policy" {
		return fmt.Errorf("usage: set policy reset|persist")
	}
	p, err := flatten.ParsePolicy(args[1])
	if err != nil {
		return err
	}
	s.gatherer.SetPolicy(p)
	fmt.Fprintf(s.out, "context policy: %s\n", p)
	return nil
}

func (s *Shell) handleCommit(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: commit <scope> [comment]")
	}
	entry, err := s.store.Commit(args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "commit complete: %d lines (%d skipped)\n", len(entry.Lines), entry.Stats.Skipped)
	return nil
}

func (s *Shell) handleRollback(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: rollback <scope> [n]")
	}
	n, err := optionalInt(args[1:], 1)
	if err != nil {
		return err
	}
	if err := s.store.Rollback(args[0], n); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s rolled back to commit %d\n", args[0], n)
	return nil
}

// optionalInt parses args[0] as an integer, or returns def when args is
// empty.
func optionalInt(args []string, def int) (int, error) {
	if len(args) == 0 {
		return def, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid number %q", args[0])
	}
	return n, nil
}

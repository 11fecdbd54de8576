// Package configstore keeps captured ISAM configuration per scope together
// with a bounded history of flattened snapshots.
//
// Each scope (for example "bridges") holds a candidate raw capture. Commit
// flattens the candidate into the active snapshot and pushes the previous
// active snapshot onto the scope history, from which it can be compared or
// rolled back.
package configstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/therealmichaelberna/nokia.isam/pkg/flatten"
)

// ErrNoSuchScope is returned for scopes that have neither been loaded nor
// put.
var ErrNoSuchScope = errors.New("no such scope")

// FileExt is the extension of capture files in the store directory.
const FileExt = ".txt"

// FlattenFunc turns the raw capture of scope into canonical lines.
type FlattenFunc func(scope, raw string) ([]string, flatten.Stats, error)

// Options configures a Store.
type Options struct {
	Dir     string // capture directory, <dir>/<scope>.txt
	History int    // snapshots kept per scope (default 10)
	Flatten FlattenFunc
}

type scopeState struct {
	candidate string
	onDisk    string // capture file content last loaded or saved
	active    *HistoryEntry
	history   *History
	dirty     bool
}

// Store manages candidate captures and committed snapshots per scope.
type Store struct {
	mu      sync.RWMutex
	dir     string
	maxHist int
	flatten FlattenFunc
	scopes  map[string]*scopeState

	// rejected holds capture file contents whose commit failed, by scope.
	// Reload skips them until the file changes.
	rejected map[string]string
}

// New creates a new store.
func New(opts Options) *Store {
	maxHist := opts.History
	if maxHist <= 0 {
		maxHist = 10
	}
	return &Store{
		dir:     opts.Dir,
		maxHist: maxHist,
		flatten:  opts.Flatten,
		scopes:   make(map[string]*scopeState),
		rejected: make(map[string]string),
	}
}

func checkScope(scope string) error {
	if scope == "" || scope == "." || scope == ".." || strings.ContainsAny(scope, `/\`) {
		return fmt.Errorf("invalid scope name %q", scope)
	}
	return nil
}

// Path returns the capture file path of scope.
func (s *Store) Path(scope string) string {
	return filepath.Join(s.dir, scope+FileExt)
}

func (s *Store) state(scope string) *scopeState {
	st, ok := s.scopes[scope]
	if !ok {
		st = &scopeState{history: NewHistory(s.maxHist)}
		s.scopes[scope] = st
	}
	return st
}

// Load reads every capture file in the store directory and commits it.
// Files that cannot be read or committed, for example captures of unknown
// resources, are logged and skipped. A missing directory is not an error.
func (s *Store) Load() error {
	entries, err := s.captureFiles()
	if err != nil {
		return err
	}
	for _, name := range entries {
		scope := strings.TrimSuffix(name, FileExt)
		if err := s.LoadFile(scope, filepath.Join(s.dir, name)); err != nil {
			slog.Warn("skipping capture", "file", name, "err", err)
		}
	}
	return nil
}

// captureFiles lists the capture file names in the store directory.
func (s *Store) captureFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read capture dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != FileExt {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// LoadFile reads path as the candidate of scope and commits it.
func (s *Store) LoadFile(scope, path string) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read capture: %w", err)
	}
	return s.commitFile(scope, string(data), "load "+filepath.Base(path))
}

// commitFile puts raw as the candidate of scope and commits it. When the
// commit fails the scope is restored: a scope created here is removed, an
// existing one gets its previous candidate back.
func (s *Store) commitFile(scope, raw, comment string) error {
	s.mu.RLock()
	prev, existed := s.scopes[scope]
	var candidate string
	var dirty bool
	if existed {
		candidate, dirty = prev.candidate, prev.dirty
	}
	s.mu.RUnlock()

	if err := s.Put(scope, raw); err != nil {
		return err
	}
	if _, err := s.Commit(scope, comment); err != nil {
		s.mu.Lock()
		if existed {
			prev.candidate, prev.dirty = candidate, dirty
		} else {
			delete(s.scopes, scope)
		}
		s.rejected[scope] = raw
		s.mu.Unlock()
		return fmt.Errorf("commit %s: %w", scope, err)
	}
	s.mu.Lock()
	s.scopes[scope].onDisk = raw
	delete(s.rejected, scope)
	s.mu.Unlock()
	return nil
}

// Reload re-reads the capture directory and commits every scope whose
// capture file changed since it was last loaded or saved. Files that fail
// to commit are logged and skipped until they change again. It returns the
// committed scopes, sorted.
func (s *Store) Reload() ([]string, error) {
	names, err := s.captureFiles()
	if err != nil {
		return nil, err
	}
	var changed []string
	for _, name := range names {
		scope := strings.TrimSuffix(name, FileExt)
		if checkScope(scope) != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			slog.Warn("skipping capture", "file", name, "err", err)
			continue
		}
		raw := string(data)

		s.mu.RLock()
		st, ok := s.scopes[scope]
		same := ok && st.onDisk == raw && st.active != nil
		rejected, wasRejected := s.rejected[scope]
		s.mu.RUnlock()
		if same || (wasRejected && rejected == raw) {
			continue
		}
		if err := s.commitFile(scope, raw, "reload "+name); err != nil {
			slog.Warn("skipping capture", "file", name, "err", err)
			continue
		}
		changed = append(changed, scope)
	}
	return changed, nil
}

// Put replaces the candidate capture of scope.
func (s *Store) Put(scope, raw string) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(scope)
	st.candidate = raw
	st.dirty = true
	return nil
}

// Raw returns the candidate capture of scope.
func (s *Store) Raw(scope string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.scopes[scope]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoSuchScope, scope)
	}
	return st.candidate, nil
}

// IsDirty returns true if the candidate of scope has not been committed.
func (s *Store) IsDirty(scope string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.scopes[scope]
	return ok && st.dirty
}

// Commit flattens the candidate of scope and makes it the active snapshot.
// The previous active snapshot moves to the history.
func (s *Store) Commit(scope, comment string) (*HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.scopes[scope]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchScope, scope)
	}
	if s.flatten == nil {
		return nil, fmt.Errorf("no flattener configured")
	}

	lines, stats, err := s.flatten(scope, st.candidate)
	if err != nil {
		return nil, err
	}

	if st.active != nil {
		st.history.Push(st.active)
	}
	st.active = &HistoryEntry{
		Lines:     lines,
		Stats:     stats,
		Timestamp: time.Now(),
		Comment:   comment,
	}
	st.dirty = false
	return st.active, nil
}

// Active returns the active snapshot of scope.
func (s *Store) Active(scope string) (*HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.scopes[scope]
	if !ok || st.active == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchScope, scope)
	}
	return st.active, nil
}

// Rollback makes the nth previous snapshot (n >= 1) of scope active again.
// The current active snapshot is pushed onto the history.
func (s *Store) Rollback(scope string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.scopes[scope]
	if !ok || st.active == nil {
		return fmt.Errorf("%w: %s", ErrNoSuchScope, scope)
	}
	if n < 1 {
		return fmt.Errorf("rollback %d: must be at least 1", n)
	}
	entry, err := st.history.Get(n - 1)
	if err != nil {
		return err
	}
	st.history.Push(st.active)
	st.active = &HistoryEntry{
		Lines:     entry.Lines,
		Stats:     entry.Stats,
		Timestamp: time.Now(),
		Comment:   fmt.Sprintf("rollback %d", n),
	}
	return nil
}

// History returns the snapshots of scope, most recent first. The active
// snapshot is not included.
func (s *Store) History(scope string) ([]*HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.scopes[scope]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchScope, scope)
	}
	return st.history.List(), nil
}

// Compare returns a unified diff for scope. n=0 compares the active
// snapshot with the flattened, uncommitted candidate; n>0 compares the nth
// previous snapshot with the active one.
func (s *Store) Compare(scope string, n int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.scopes[scope]
	if !ok || st.active == nil {
		return "", fmt.Errorf("%w: %s", ErrNoSuchScope, scope)
	}

	var (
		from, to         []string
		fromName, toName string
	)
	switch {
	case n == 0:
		if s.flatten == nil {
			return "", fmt.Errorf("no flattener configured")
		}
		lines, _, err := s.flatten(scope, st.candidate)
		if err != nil {
			return "", err
		}
		from, fromName = st.active.Lines, scope+"@active"
		to, toName = lines, scope+"@candidate"
	case n > 0:
		entry, err := st.history.Get(n - 1)
		if err != nil {
			return "", err
		}
		from, fromName = entry.Lines, fmt.Sprintf("%s@rollback-%d", scope, n)
		to, toName = st.active.Lines, scope+"@active"
	default:
		return "", fmt.Errorf("compare %d: must not be negative", n)
	}

	ud := difflib.UnifiedDiff{
		A:        withNewlines(from),
		B:        withNewlines(to),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", scope, err)
	}
	if text == "" {
		return "[no changes]\n", nil
	}
	return text, nil
}

func withNewlines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l + "\n"
	}
	return out
}

// Save persists the candidate of scope to its capture file.
func (s *Store) Save(scope string) error {
	s.mu.RLock()
	st, ok := s.scopes[scope]
	var raw string
	if ok {
		raw = st.candidate
	}
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchScope, scope)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create capture dir: %w", err)
	}
	if err := os.WriteFile(s.Path(scope), []byte(raw), 0644); err != nil {
		return err
	}
	s.mu.Lock()
	if st, ok := s.scopes[scope]; ok {
		st.onDisk = raw
	}
	s.mu.Unlock()
	return nil
}

// Scopes returns the known scope names, sorted.
func (s *Store) Scopes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.scopes))
	for name := range s.scopes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fetch returns the raw capture of scope, reading the capture file when the
// scope is not held in memory.
func (s *Store) Fetch(ctx context.Context, scope string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := checkScope(scope); err != nil {
		return "", err
	}
	if raw, err := s.Raw(scope); err == nil {
		return raw, nil
	}
	data, err := os.ReadFile(s.Path(scope))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNoSuchScope, scope)
		}
		return "", fmt.Errorf("read capture: %w", err)
	}
	return string(data), nil
}

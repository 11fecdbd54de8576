package configstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/therealmichaelberna/nokia.isam/pkg/flatten"
)

func lineFlatten(_ string, raw string) ([]string, flatten.Stats, error) {
	lines, st := flatten.NewLineFlattener(flatten.PolicyReset).Flatten(raw)
	return lines, st, nil
}

// newTestStore creates a Store backed by a temp directory for testing.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(Options{Dir: t.TempDir(), History: 3, Flatten: lineFlatten})
}

func TestPutAndCommit(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put("bridges", "configure bridge port 1 no mac-learn-off max-unicast-mac 2"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !s.IsDirty("bridges") {
		t.Error("should be dirty after put")
	}

	entry, err := s.Commit("bridges", "first")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	want := []string{
		"configure bridge port 1 no mac-learn-off",
		"configure bridge port 1 max-unicast-mac 2",
	}
	if !reflect.DeepEqual(entry.Lines, want) {
		t.Errorf("expected %q, got %q", want, entry.Lines)
	}
	if entry.Stats.Emitted != 2 || entry.Comment != "first" {
		t.Errorf("unexpected entry %+v", entry)
	}
	if s.IsDirty("bridges") {
		t.Error("should not be dirty after commit")
	}

	active, err := s.Active("bridges")
	if err != nil || active != entry {
		t.Errorf("Active: expected committed entry, got %v %v", active, err)
	}
}

func TestCommitUnknownScope(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Commit("bridges", ""); !errors.Is(err, ErrNoSuchScope) {
		t.Errorf("expected ErrNoSuchScope, got %v", err)
	}
	if _, err := s.Active("bridges"); !errors.Is(err, ErrNoSuchScope) {
		t.Errorf("expected ErrNoSuchScope, got %v", err)
	}
}

func TestCommitWithoutFlattener(t *testing.T) {
	s := New(Options{Dir: t.TempDir()})
	s.Put("bridges", "x")
	if _, err := s.Commit("bridges", ""); err == nil {
		t.Error("expected error without flattener")
	}
}

func TestInvalidScopeNames(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"", "..", "a/b", `a\b`} {
		if err := s.Put(name, "x"); err == nil {
			t.Errorf("Put(%q): expected error", name)
		}
	}
}

func TestHistoryRing(t *testing.T) {
	s := newTestStore(t)
	for i := 1; i <= 5; i++ {
		s.Put("bridges", "configure bridge port "+string(rune('0'+i))+" pvid 1")
		if _, err := s.Commit("bridges", ""); err != nil {
			t.Fatal(err)
		}
	}
	hist, err := s.History("bridges")
	if err != nil {
		t.Fatal(err)
	}
	// 5 commits: 1 active + 4 previous, capped at 3
	if len(hist) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(hist))
	}
	if hist[0].Lines[0] != "configure bridge port 4 pvid 1" {
		t.Errorf("most recent history entry should be commit 4, got %q", hist[0].Lines)
	}
	if hist[2].Lines[0] != "configure bridge port 2 pvid 1" {
		t.Errorf("oldest history entry should be commit 2, got %q", hist[2].Lines)
	}
}

func TestRollback(t *testing.T) {
	s := newTestStore(t)
	s.Put("bridges", "configure bridge port 1 pvid 10")
	s.Commit("bridges", "v1")
	s.Put("bridges", "configure bridge port 1 pvid 20")
	s.Commit("bridges", "v2")

	if err := s.Rollback("bridges", 1); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	active, _ := s.Active("bridges")
	if active.Lines[0] != "configure bridge port 1 pvid 10" {
		t.Errorf("expected v1 lines after rollback, got %q", active.Lines)
	}
	if active.Comment != "rollback 1" {
		t.Errorf("unexpected comment %q", active.Comment)
	}
	// v2 is now the most recent history entry
	hist, _ := s.History("bridges")
	if hist[0].Comment != "v2" {
		t.Errorf("expected v2 on top of history, got %q", hist[0].Comment)
	}

	if err := s.Rollback("bridges", 0); err == nil {
		t.Error("expected error for rollback 0")
	}
	if err := s.Rollback("bridges", 9); err == nil {
		t.Error("expected error for rollback past history")
	}
}

func TestCompare(t *testing.T) {
	s := newTestStore(t)
	s.Put("bridges", "configure bridge port 1 pvid 10\nconfigure bridge port 2 no pvid")
	s.Commit("bridges", "")

	out, err := s.Compare("bridges", 0)
	if err != nil {
		t.Fatal(err)
	}
	if out != "[no changes]\n" {
		t.Errorf("expected no changes, got %q", out)
	}

	s.Put("bridges", "configure bridge port 1 pvid 11\nconfigure bridge port 2 no pvid")
	out, err = s.Compare("bridges", 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"--- bridges@active",
		"+++ bridges@candidate",
		"-configure bridge port 1 pvid 10",
		"+configure bridge port 1 pvid 11",
		" configure bridge port 2 no pvid",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in diff:\n%s", want, out)
		}
	}

	s.Commit("bridges", "")
	out, err = s.Compare("bridges", 1)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "--- bridges@rollback-1") || !strings.Contains(out, "+configure bridge port 1 pvid 11") {
		t.Errorf("unexpected rollback diff:\n%s", out)
	}

	if _, err := s.Compare("bridges", 5); err == nil {
		t.Error("expected error for compare past history")
	}
	if _, err := s.Compare("bridges", -1); err == nil {
		t.Error("expected error for negative compare")
	}
}

func TestLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	raw := "configure bridge port 1/1/1/1 pvid 5\n"
	if err := os.WriteFile(filepath.Join(dir, "bridges.txt"), []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0644)

	s := New(Options{Dir: dir, Flatten: lineFlatten})
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.Scopes(); !reflect.DeepEqual(got, []string{"bridges"}) {
		t.Fatalf("expected [bridges], got %v", got)
	}
	active, err := s.Active("bridges")
	if err != nil {
		t.Fatal(err)
	}
	if active.Comment != "load bridges.txt" || active.Lines[0] != "configure bridge port 1/1/1/1 pvid 5" {
		t.Errorf("unexpected active %+v", active)
	}

	s.Put("ethernet_line", "line 1/1/8/1\n  admin-up\n")
	if err := s.Save("ethernet_line"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(s.Path("ethernet_line"))
	if err != nil || string(data) != "line 1/1/8/1\n  admin-up\n" {
		t.Errorf("unexpected saved capture %q %v", data, err)
	}
	if err := s.Save("absent"); !errors.Is(err, ErrNoSuchScope) {
		t.Errorf("expected ErrNoSuchScope, got %v", err)
	}
}

func TestLoadNonexistentDir(t *testing.T) {
	s := New(Options{Dir: filepath.Join(t.TempDir(), "missing"), Flatten: lineFlatten})
	if err := s.Load(); err != nil {
		t.Errorf("expected nil for missing dir, got %v", err)
	}
	if len(s.Scopes()) != 0 {
		t.Error("expected no scopes")
	}
}

func TestFetch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Put("bridges", "in memory")
	if raw, err := s.Fetch(ctx, "bridges"); err != nil || raw != "in memory" {
		t.Errorf("expected in-memory capture, got %q %v", raw, err)
	}

	os.WriteFile(s.Path("ethernet_line"), []byte("on disk"), 0644)
	if raw, err := s.Fetch(ctx, "ethernet_line"); err != nil || raw != "on disk" {
		t.Errorf("expected on-disk capture, got %q %v", raw, err)
	}

	if _, err := s.Fetch(ctx, "absent"); !errors.Is(err, ErrNoSuchScope) {
		t.Errorf("expected ErrNoSuchScope, got %v", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := s.Fetch(cctx, "bridges"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridges.txt")
	if err := os.WriteFile(path, []byte("configure bridge port 1 pvid 5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s := New(Options{Dir: dir, Flatten: lineFlatten})
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	changed, err := s.Reload()
	if err != nil || len(changed) != 0 {
		t.Fatalf("expected no changes, got %v %v", changed, err)
	}

	if err := os.WriteFile(path, []byte("configure bridge port 1 pvid 7\n"), 0644); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, "ethernet_line.txt"), []byte("line 1/1/8/1\n  admin-up\n"), 0644)

	changed, err = s.Reload()
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !reflect.DeepEqual(changed, []string{"bridges", "ethernet_line"}) {
		t.Errorf("expected [bridges ethernet_line], got %v", changed)
	}
	active, _ := s.Active("bridges")
	if active.Comment != "reload bridges.txt" || active.Lines[0] != "configure bridge port 1 pvid 7" {
		t.Errorf("unexpected active %+v", active)
	}
	hist, _ := s.History("bridges")
	if len(hist) != 1 {
		t.Errorf("expected previous snapshot in history, got %d", len(hist))
	}
}

func TestReloadSkipsSaved(t *testing.T) {
	s := newTestStore(t)
	s.Put("bridges", "configure bridge port 1 pvid 5\n")
	if _, err := s.Commit("bridges", ""); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("bridges"); err != nil {
		t.Fatal(err)
	}
	changed, err := s.Reload()
	if err != nil || len(changed) != 0 {
		t.Errorf("saved capture should not be reloaded, got %v %v", changed, err)
	}
}

func TestReloaderRun(t *testing.T) {
	dir := t.TempDir()
	s := New(Options{Dir: dir, Flatten: lineFlatten})
	os.WriteFile(filepath.Join(dir, "bridges.txt"), []byte("configure bridge port 1 pvid 5\n"), 0644)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewReloader(s, 10*time.Millisecond).Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(s.Scopes()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	if got := s.Scopes(); !reflect.DeepEqual(got, []string{"bridges"}) {
		t.Errorf("expected reloader to pick up bridges, got %v", got)
	}
}

// knownFlatten flattens like lineFlatten but rejects scopes other than
// bridges and ethernet_line, as the facts registry does.
func knownFlatten(scope, raw string) ([]string, flatten.Stats, error) {
	if scope != "bridges" && scope != "ethernet_line" {
		return nil, flatten.Stats{}, errors.New("unknown resource " + scope)
	}
	return lineFlatten(scope, raw)
}

func TestLoadSkipsUnknownScope(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "README.txt"), []byte("notes\n"), 0644)
	os.WriteFile(filepath.Join(dir, "bridges.txt"), []byte("configure bridge port 1 pvid 5\n"), 0644)

	s := New(Options{Dir: dir, Flatten: knownFlatten})
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.Scopes(); !reflect.DeepEqual(got, []string{"bridges"}) {
		t.Fatalf("expected [bridges], got %v", got)
	}
	if _, err := s.Active("bridges"); err != nil {
		t.Errorf("expected bridges to be committed, got %v", err)
	}
	if _, err := s.Raw("README"); !errors.Is(err, ErrNoSuchScope) {
		t.Errorf("expected rejected scope to be removed, got %v", err)
	}
}

func TestReloadSkipsUnknownScope(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridges.txt")
	os.WriteFile(filepath.Join(dir, "README.txt"), []byte("notes\n"), 0644)
	os.WriteFile(path, []byte("configure bridge port 1 pvid 5\n"), 0644)

	s := New(Options{Dir: dir, Flatten: knownFlatten})
	s.Load()

	if err := os.WriteFile(path, []byte("configure bridge port 1 pvid 7\n"), 0644); err != nil {
		t.Fatal(err)
	}
	changed, err := s.Reload()
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !reflect.DeepEqual(changed, []string{"bridges"}) {
		t.Errorf("expected [bridges], got %v", changed)
	}
	active, _ := s.Active("bridges")
	if active == nil || active.Lines[0] != "configure bridge port 1 pvid 7" {
		t.Errorf("unexpected active %+v", active)
	}
	if got := s.Scopes(); !reflect.DeepEqual(got, []string{"bridges"}) {
		t.Errorf("expected [bridges], got %v", got)
	}
}

func TestFailedCommitKeepsExistingScope(t *testing.T) {
	dir := t.TempDir()
	fail := false
	s := New(Options{Dir: dir, Flatten: func(scope, raw string) ([]string, flatten.Stats, error) {
		if fail {
			return nil, flatten.Stats{}, errors.New("flatten failed")
		}
		return lineFlatten(scope, raw)
	}})
	s.Put("bridges", "configure bridge port 1 pvid 5\n")
	if _, err := s.Commit("bridges", ""); err != nil {
		t.Fatal(err)
	}
	s.Put("bridges", "pending\n")

	path := filepath.Join(dir, "bridges.txt")
	os.WriteFile(path, []byte("configure bridge port 1 pvid 9\n"), 0644)
	fail = true
	if err := s.LoadFile("bridges", path); err == nil {
		t.Fatal("expected commit error")
	}
	if raw, _ := s.Raw("bridges"); raw != "pending\n" {
		t.Errorf("expected previous candidate restored, got %q", raw)
	}
	if !s.IsDirty("bridges") {
		t.Error("expected restored candidate to stay dirty")
	}
	if active, _ := s.Active("bridges"); active.Lines[0] != "configure bridge port 1 pvid 5" {
		t.Errorf("active snapshot changed: %+v", active)
	}

	// An unchanged rejected file is not retried.
	if changed, _ := s.Reload(); len(changed) != 0 {
		t.Errorf("expected no reload of rejected capture, got %v", changed)
	}
	fail = false
	os.WriteFile(path, []byte("configure bridge port 1 pvid 10\n"), 0644)
	if changed, _ := s.Reload(); !reflect.DeepEqual(changed, []string{"bridges"}) {
		t.Errorf("expected changed capture to reload, got %v", changed)
	}
}

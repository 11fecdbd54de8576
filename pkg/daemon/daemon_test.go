package daemon

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/therealmichaelberna/nokia.isam/pkg/config"
	"github.com/therealmichaelberna/nokia.isam/pkg/flatten"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Source.Dir = t.TempDir()
	cfg.API.Addr = ""
	cfg.GRPC.Addr = ""
	return cfg
}

func strPtr(s string) *string { return &s }

func TestRunLoadsCaptures(t *testing.T) {
	cfg := testConfig(t)
	capture := "configure bridge port 1/1/5/1/1/1/2 pvid 20\n"
	if err := os.WriteFile(filepath.Join(cfg.Source.Dir, "bridges.txt"), []byte(capture), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := New(Options{Config: cfg, LogWriter: io.Discard})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	scopes := d.Store().Scopes()
	if len(scopes) != 1 || scopes[0] != "bridges" {
		t.Fatalf("expected [bridges], got %v", scopes)
	}
	active, err := d.Store().Active("bridges")
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if len(active.Lines) != 1 || active.Lines[0] != strings.TrimSpace(capture) {
		t.Errorf("expected committed pvid line, got %q", active.Lines)
	}
	if d.Events().Len() == 0 {
		t.Error("expected startup events in the log buffer")
	}
}

func TestNewOverrides(t *testing.T) {
	cfg := testConfig(t)
	cfg.Flatten.Policy = "persist"

	d, err := New(Options{
		Config:    cfg,
		LogLevel:  strPtr("debug"),
		APIAddr:   strPtr("127.0.0.1:0"),
		LogWriter: io.Discard,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.Config().Log.Level != "debug" {
		t.Errorf("expected log level debug, got %q", d.Config().Log.Level)
	}
	if d.Config().API.Addr != "127.0.0.1:0" {
		t.Errorf("expected api addr override, got %q", d.Config().API.Addr)
	}
	if d.gatherer.Policy() != flatten.PolicyPersist {
		t.Errorf("expected persist policy, got %s", d.gatherer.Policy())
	}
}

func TestNewInvalid(t *testing.T) {
	cfg := testConfig(t)
	if _, err := New(Options{Config: cfg, LogLevel: strPtr("loud"), LogWriter: io.Discard}); err == nil {
		t.Error("expected error for bad log level")
	}

	path := filepath.Join(t.TempDir(), "isamd.yaml")
	if err := os.WriteFile(path, []byte("flatten:\n  policy: sticky\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(Options{ConfigFile: path, LogWriter: io.Discard}); err == nil {
		t.Error("expected error for bad policy")
	}
}

func TestRunServesUntilCancelled(t *testing.T) {
	cfg := testConfig(t)
	cfg.API.Addr = "127.0.0.1:0"
	cfg.GRPC.Addr = "localhost:0"
	d, err := New(Options{Config: cfg, LogWriter: io.Discard})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	cfg := testConfig(t)
	cfg.API.Addr = ln.Addr().String()
	d, err := New(Options{Config: cfg, LogWriter: io.Discard})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()
	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "HTTP API") {
			t.Errorf("expected HTTP API listen error, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not fail on a busy address")
	}
}

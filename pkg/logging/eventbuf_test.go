package logging

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestEventBufferWrap(t *testing.T) {
	eb := NewEventBuffer(3)
	for i := 0; i < 5; i++ {
		eb.Add(EventRecord{Message: fmt.Sprintf("m%d", i)})
	}
	if eb.Len() != 3 || eb.Seq() != 5 {
		t.Fatalf("expected len 3 seq 5, got %d %d", eb.Len(), eb.Seq())
	}
	got := eb.Latest(10)
	want := []string{"m4", "m3", "m2"}
	for i, rec := range got {
		if rec.Message != want[i] {
			t.Errorf("entry %d: expected %s, got %s", i, want[i], rec.Message)
		}
	}
	if eb.Latest(0) != nil {
		t.Error("expected nil for n=0")
	}
}

func TestEventBufferLatestFiltered(t *testing.T) {
	eb := NewEventBuffer(10)
	eb.Add(EventRecord{Level: slog.LevelDebug, Message: "parsed line"})
	eb.Add(EventRecord{Level: slog.LevelWarn, Message: "odd token dropped", Attrs: "scope=bridges"})
	eb.Add(EventRecord{Level: slog.LevelError, Message: "fetch failed", Attrs: "scope=ethernet_line"})

	tests := []struct {
		name   string
		filter EventFilter
		want   int
	}{
		{"empty", EventFilter{}, 3},
		{"min warn", EventFilter{Level: "warn"}, 2},
		{"contains attr", EventFilter{Contains: "BRIDGES"}, 1},
		{"both", EventFilter{Level: "error", Contains: "bridges"}, 0},
		{"bad level ignored", EventFilter{Level: "loud"}, 3},
	}
	for _, tt := range tests {
		if got := eb.LatestFiltered(10, tt.filter); len(got) != tt.want {
			t.Errorf("%s: expected %d records, got %d", tt.name, tt.want, len(got))
		}
	}
	if !(EventFilter{}).IsEmpty() || (EventFilter{Level: "info"}).IsEmpty() {
		t.Error("IsEmpty mismatch")
	}
}

func TestEventBufferSubscribe(t *testing.T) {
	eb := NewEventBuffer(4)
	sub := eb.Subscribe(1)
	defer sub.Close()

	eb.Add(EventRecord{Message: "first"})
	eb.Add(EventRecord{Message: "second"}) // dropped, subscriber full

	select {
	case rec := <-sub.C:
		if rec.Message != "first" {
			t.Errorf("expected first, got %s", rec.Message)
		}
	case <-time.After(time.Second):
		t.Fatal("no record delivered")
	}
	select {
	case rec := <-sub.C:
		t.Errorf("unexpected record %q", rec.Message)
	default:
	}
}

func TestBufferHandlerRecordsAttrs(t *testing.T) {
	var out bytes.Buffer
	eb := NewEventBuffer(8)
	base := slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(NewBufferHandler(base, eb)).With("component", "facts").WithGroup("scope")

	logger.Info("gathered", "name", "bridges")
	logger.Debug("hidden")

	recs := eb.Latest(10)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Attrs != "component=facts scope.name=bridges" {
		t.Errorf("unexpected attrs %q", recs[0].Attrs)
	}
	if !strings.Contains(out.String(), "msg=gathered") {
		t.Errorf("base handler did not receive record: %q", out.String())
	}
	if s := recs[0].String(); !strings.Contains(s, "[INFO] gathered component=facts") {
		t.Errorf("unexpected rendering %q", s)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
	if _, err := Setup(Options{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"
)

func TestSeverity(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  int
	}{
		{slog.LevelError, SyslogError},
		{slog.LevelError + 4, SyslogError},
		{slog.LevelWarn, SyslogWarning},
		{slog.LevelInfo, SyslogInfo},
		{slog.LevelDebug, SyslogDebug},
	}
	for _, tt := range tests {
		if got := Severity(tt.level); got != tt.want {
			t.Errorf("Severity(%s) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

// listenSyslog returns a UDP listener standing in for a syslog server.
func listenSyslog(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readDatagram(t *testing.T, conn *net.UDPConn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 2048)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read syslog datagram: %v", err)
	}
	return string(buf[:n])
}

func TestSyslogClientSend(t *testing.T) {
	srv := listenSyslog(t)
	c, err := NewSyslogClient(srv.LocalAddr().String(), "")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Send(SyslogWarning, "odd trailing tokens dropped"); err != nil {
		t.Fatal(err)
	}
	msg := readDatagram(t, srv)
	// local0 (16) * 8 + warning (4)
	if !strings.HasPrefix(msg, "<132>") {
		t.Errorf("expected <132> priority, got %q", msg)
	}
	if !strings.HasSuffix(msg, "isamd: odd trailing tokens dropped") {
		t.Errorf("expected tagged message, got %q", msg)
	}
}

func TestSyslogClientFilter(t *testing.T) {
	c := &SyslogClient{MinLevel: slog.LevelWarn}
	if c.ShouldSend(slog.LevelInfo) {
		t.Error("info should be filtered at warn")
	}
	if !c.ShouldSend(slog.LevelError) {
		t.Error("error should pass at warn")
	}
}

func TestSetupForwardsToSyslog(t *testing.T) {
	srv := listenSyslog(t)
	var stderr bytes.Buffer
	out, err := Setup(Options{Level: "info", Writer: &stderr, Syslog: srv.LocalAddr().String()})
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	out.Logger.Info("quiet")
	out.Logger.Error("gather failed", "resource", "bridges")

	msg := readDatagram(t, srv)
	// local0 (16) * 8 + error (3)
	if !strings.HasPrefix(msg, "<131>") {
		t.Errorf("expected <131> priority, got %q", msg)
	}
	if !strings.HasSuffix(msg, "gather failed resource=bridges") {
		t.Errorf("expected message with attrs, got %q", msg)
	}
	if out.Events.Len() != 2 {
		t.Errorf("expected both records buffered, got %d", out.Events.Len())
	}
}

func TestSetupBadSyslogLevel(t *testing.T) {
	if _, err := Setup(Options{Syslog: "127.0.0.1:514", SyslogLevel: "chatty"}); err == nil {
		t.Error("expected error for bad syslog level")
	}
}

func TestHandlerIgnoresSyslogSendFailure(t *testing.T) {
	srv := listenSyslog(t)
	c, err := NewSyslogClient(srv.LocalAddr().String(), "")
	if err != nil {
		t.Fatal(err)
	}
	c.Close()

	buf := NewEventBuffer(4)
	h := NewBufferHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), buf).WithSyslog(c)
	r := slog.NewRecord(time.Now(), slog.LevelError, "gather failed", 0)
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("expected syslog failure to be ignored, got %v", err)
	}
	if got := buf.Len(); got != 1 {
		t.Errorf("expected record buffered, got %d", got)
	}
}

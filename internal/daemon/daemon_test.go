package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	r := newTestRepo(t)
	d, err := New(Options{
		Repo:            r,
		SessionTimeout:  time.Minute,
		MaxSessions:     10,
		MetricsRegistry: prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { d.Stop() })
	return d
}

func TestNewDaemonBindsSocketAndOpensPatternStore(t *testing.T) {
	d := newTestDaemon(t)
	if d.ipc == nil {
		t.Fatal("expected ipc server to be bound")
	}
	if d.patterns == nil {
		t.Fatal("expected pattern store to be open")
	}
}

func TestHandleCommandTracksSessionAndCorrelator(t *testing.T) {
	d := newTestDaemon(t)

	d.handleCommand(CommandMessage{SessionID: "s1", Command: "go build", ExitCode: 1, WorkingDir: "/work", Stderr: "boom"})

	session, ok := d.sessions.get("s1")
	if !ok {
		t.Fatal("expected session to be created")
	}
	if session.state() != StateErrorPending {
		t.Fatalf("expected error_pending, got %v", session.state())
	}

	d.handleCommand(CommandMessage{SessionID: "s1", Command: "go build -x", ExitCode: 0, WorkingDir: "/work"})

	if session.state() != StateIdle {
		t.Fatalf("expected idle after resolution, got %v", session.state())
	}
}

func TestRunSessionGCEvictsExpiredSessions(t *testing.T) {
	d := newTestDaemon(t)
	d.sessions = newSessionTable(time.Millisecond, 10)

	d.handleCommand(CommandMessage{SessionID: "s1", Command: "ls", ExitCode: 0, WorkingDir: "/work"})
	time.Sleep(5 * time.Millisecond)

	d.runSessionGC()

	if d.sessions.count() != 0 {
		t.Fatalf("expected session to be evicted, got count=%d", d.sessions.count())
	}
}

func TestRunAutoNoteSweepCapturesUnresolvedSession(t *testing.T) {
	d := newTestDaemon(t)

	now := time.Now().Add(-2 * DefaultSessionTimeout)
	session, _ := d.sessions.getOrCreate("s1", "/work", nil, now)
	session.appendCommand(CommandEntry{Command: "go build", ExitCode: intPtr(1), Timestamp: now})
	session.LastErrorCommand = "go build"

	d.runAutoNoteSweep()

	if _, ok := d.sessions.get("s1"); ok {
		t.Fatal("expected session to be removed after auto-capture")
	}

	hits, err := d.repo.Search("go build", 10, "relevance")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected auto-captured note to be searchable")
	}
}

func TestDaemonRunStopsOnContextCancel(t *testing.T) {
	d := newTestDaemon(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

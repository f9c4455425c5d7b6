// Package daemon's top-level type wires the session tracker, pattern
// store, correlator, notification dispatcher, IPC server, and scheduled
// maintenance tickers into one cooperative process (spec.md §4.7/§5).
// Shared state behind locks, background work driven by a scheduler
// rather than hand-rolled goroutine loops with time.Sleep.
package daemon

import (
	"context"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	. "github.com/fukura-dev/fukura/internal/logging"
	"github.com/fukura-dev/fukura/internal/repo"
)

// Ticker intervals (spec.md §4.7/§5): session GC runs most often since
// eviction is cheap and bounds memory; pattern summary and auto-note are
// coarser since they touch disk.
const (
	sessionGCSchedule      = "@every 1m"
	patternSummarySchedule = "@every 10s"
	autoNoteSchedule       = "@every 30s"
)

// autoNoteInactivityThreshold is the auto-note timer's own inactivity
// bound (spec.md §4.7.4: "any session inactive >= 300s with at least one
// failing command"), distinct from the larger session-GC timeout.
const autoNoteInactivityThreshold = 300 * time.Second

// Daemon is the single-process capture daemon. Exactly one instance runs
// per repository (spec.md §4.7: "at most one daemon per repository root").
type Daemon struct {
	repo       *repo.Repository
	sessions   *sessionTable
	patterns   *PatternStore
	dispatcher *Dispatcher
	correlator *Correlator
	ipc        *IPCServer
	metrics    *Metrics
	cron       *cron.Cron

	cancel context.CancelFunc
}

// Options configures a Daemon at construction time.
type Options struct {
	Repo            *repo.Repository
	Notifier        Notifier
	SessionTimeout  time.Duration
	MaxSessions     int
	MetricsRegistry prometheus.Registerer
}

// New builds a Daemon for one repository. It opens (or creates) the
// repository's pattern database and binds the IPC socket, but does not
// start the event loop — call Run for that.
func New(opts Options) (*Daemon, error) {
	patternsPath := filepath.Join(opts.Repo.Root(), ".fukura", "patterns.db")
	patterns, err := OpenPatternStore(patternsPath)
	if err != nil {
		return nil, err
	}

	reg := opts.MetricsRegistry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	dispatcher := NewDispatcher(opts.Notifier, nil)
	metrics := NewMetrics(reg)
	correlator := NewCorrelator(opts.Repo, dispatcher, patterns)
	correlator.SetMetrics(metrics)

	d := &Daemon{
		repo:       opts.Repo,
		sessions:   newSessionTable(opts.SessionTimeout, opts.MaxSessions),
		patterns:   patterns,
		dispatcher: dispatcher,
		correlator: correlator,
		metrics:    metrics,
		cron:       cron.New(),
	}

	socketPath := filepath.Join(opts.Repo.Root(), ".fukura", "daemon.sock")
	ipc, err := NewIPCServer(socketPath, d.handleCommand)
	if err != nil {
		patterns.Close()
		return nil, err
	}
	d.ipc = ipc

	return d, nil
}

// Run starts the IPC acceptor and scheduled maintenance tickers, blocking
// until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.ipc.Serve(runCtx)

	if _, err := d.cron.AddFunc(sessionGCSchedule, d.runSessionGC); err != nil {
		return err
	}
	if _, err := d.cron.AddFunc(patternSummarySchedule, d.logPatternSummary); err != nil {
		return err
	}
	if _, err := d.cron.AddFunc(autoNoteSchedule, d.runAutoNoteSweep); err != nil {
		return err
	}
	d.cron.Start()

	L_info("daemon: started", "repo", d.repo.Root())
	<-runCtx.Done()
	return d.Stop()
}

// Dispatcher exposes the notification dispatcher so an HTTP adapter can
// offer a websocket tail of daemon activity (internal/httpapi).
func (d *Daemon) Dispatcher() *Dispatcher { return d.dispatcher }

// Stop flushes daemon state and releases resources. It intentionally does
// not notify IPC peers (spec.md §4.7: "daemon shutdown is silent to
// clients; a dropped connection is the only signal").
func (d *Daemon) Stop() error {
	if d.cancel != nil {
		d.cancel()
	}
	stopCtx := d.cron.Stop()
	<-stopCtx.Done()

	d.ipc.Close()
	err := d.patterns.Close()
	L_info("daemon: stopped")
	return err
}

// handleCommand is the IPC handler: it updates the relevant session and
// feeds the outcome to the correlator.
func (d *Daemon) handleCommand(msg CommandMessage) {
	now := time.Now()
	session, _ := d.sessions.getOrCreate(msg.SessionID, msg.WorkingDir, nil, now)

	exitCode := msg.ExitCode
	entry := CommandEntry{
		Command:    msg.Command,
		ExitCode:   &exitCode,
		Timestamp:  now,
		WorkingDir: msg.WorkingDir,
	}
	session.appendCommand(entry)

	if msg.ExitCode != 0 {
		d.metrics.ErrorsCaptured.Inc()
	}
	d.correlator.Observe(session, entry, msg.Stderr, now)
}

func (d *Daemon) runSessionGC() {
	evicted := d.sessions.evictExpired(time.Now())
	d.metrics.ActiveSessions.Set(float64(d.sessions.count()))
	if len(evicted) > 0 {
		d.metrics.SessionsEvicted.Add(float64(len(evicted)))
	}
}

func (d *Daemon) logPatternSummary() {
	patterns, err := d.patterns.All()
	if err != nil {
		L_warn("daemon: failed to summarize patterns", "error", err)
		return
	}
	L_trace("daemon: pattern summary", "count", len(patterns))
}

// runAutoNoteSweep materializes evicted, still-unresolved sessions into
// notes so their command history isn't lost (spec.md §4.7.4: "a session
// that times out with a pending error is captured as-is").
func (d *Daemon) runAutoNoteSweep() {
	for _, s := range d.sessions.snapshot() {
		if s.LastErrorCommand == "" || len(s.Commands) == 0 {
			continue
		}
		if time.Since(s.LastActivity) < autoNoteInactivityThreshold {
			continue
		}

		n := synthesizeResolutionNote(s.LastErrorCommand, s.lastN(10), time.Now())
		n.Title = "Unresolved: " + n.Title[len("Auto-captured: "):]
		if _, err := d.repo.StoreNote(n); err != nil {
			L_warn("daemon: failed to auto-capture unresolved session", "error", err, "session", s.ID)
			continue
		}
		d.metrics.NotesStored.Inc()
		d.sessions.remove(s.ID)
	}
}

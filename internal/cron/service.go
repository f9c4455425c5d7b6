package cron

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	. "github.com/fukura-dev/fukura/internal/logging"
	"github.com/fukura-dev/fukura/internal/repo"
	fsync "github.com/fukura-dev/fukura/internal/sync"
)

// BackupTickInterval is how often we poll even if no file changes or timers fire.
const BackupTickInterval = 5 * time.Minute

// FileChangeDebounce is how long to wait after a jobs.json change before
// reloading, letting multiple rapid writes settle (same pattern as
// internal/config/watch.go's reloadDebounce).
const FileChangeDebounce = 150 * time.Millisecond

// Service runs scheduled sync jobs against one repository.
type Service struct {
	store   *Store
	history *HistoryManager
	repo    *repo.Repository
	token   string // bearer token forwarded to per-job sync clients

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	timer            *time.Timer
	backupTicker     *time.Ticker
	watcher          *fsnotify.Watcher
	ignoreWatchUntil time.Time
	rescheduleCh     chan struct{}

	jobTimeout time.Duration
}

// NewService builds a Service for one repository, persisting jobs under
// <repoRoot>/.fukura/cron. token is forwarded as bearer auth to every
// job's sync client; pass "" to fall back to FUKURA_TOKEN/FUKURA_API_TOKEN.
func NewService(r *repo.Repository, token string) *Service {
	store := NewStoreForRepo(filepath.Dir(r.Root()))
	return &Service{
		store:      store,
		history:    NewHistoryManager(store.runsDir),
		repo:       r,
		token:      token,
		jobTimeout: 2 * time.Minute,
	}
}

// SetJobTimeout bounds a single job execution (0 disables the timeout).
func (s *Service) SetJobTimeout(d time.Duration) { s.jobTimeout = d }

// Store exposes the job store for CLI job management commands.
func (s *Service) Store() *Store { return s.store }

// History exposes run history for CLI inspection commands.
func (s *Service) History() *HistoryManager { return s.history }

// AddJob persists a new job and wakes the scheduler to recompute its wait.
func (s *Service) AddJob(job *SyncJob) error {
	if err := s.store.AddJob(job); err != nil {
		return err
	}
	s.triggerReschedule()
	return nil
}

// RemoveJob deletes a job by ID.
func (s *Service) RemoveJob(id string) error {
	return s.store.DeleteJob(id)
}

func (s *Service) triggerReschedule() {
	s.mu.Lock()
	ch := s.rescheduleCh
	s.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Start begins the scheduler loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("cron service already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.rescheduleCh = make(chan struct{}, 1)
	s.mu.Unlock()

	if err := s.store.Load(); err != nil {
		return fmt.Errorf("failed to load sync jobs: %w", err)
	}
	s.clearOrphanedRunningState()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		L_warn("cron: failed to create file watcher, external changes won't be detected", "error", err)
	} else {
		s.watcher = watcher
		jobsDir := filepath.Dir(s.store.Path())
		if err := watcher.Add(jobsDir); err != nil {
			L_warn("cron: failed to watch jobs directory", "dir", jobsDir, "error", err)
		}
	}

	s.backupTicker = time.NewTicker(BackupTickInterval)
	s.initializeNextRuns()

	L_info("cron: service started", "jobs", s.store.EnabledCount())
	go s.runLoop(ctx)
	return nil
}

// Stop gracefully stops the scheduler and waits for the run loop to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.backupTicker != nil {
		s.backupTicker.Stop()
		s.backupTicker = nil
	}
	L_info("cron: service stopped")
}

// IsRunning reports whether the scheduler loop is active.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// clearOrphanedRunningState clears "running" flags left by a crashed
// previous process; at startup nothing can actually be running.
func (s *Service) clearOrphanedRunningState() {
	cleared := 0
	for _, job := range s.store.GetAllJobs() {
		if job.IsRunning() {
			job.ClearRunning()
			job.SetNextRun(nil)
			if err := s.store.UpdateJob(job); err != nil {
				L_error("cron: failed to clear orphaned state", "job", job.Name, "error", err)
			}
			cleared++
		}
	}
	if cleared > 0 {
		L_info("cron: cleared orphaned running state", "count", cleared)
	}
}

func (s *Service) initializeNextRuns() {
	now := time.Now()
	s.ignoreWatchUntil = now.Add(500 * time.Millisecond)

	for _, job := range s.store.GetEnabledJobs() {
		if job.IsRunning() {
			continue
		}
		next, err := NextRunTime(job, now)
		if err != nil {
			L_error("cron: failed to calculate next run", "job", job.Name, "error", err)
			continue
		}
		job.SetNextRun(next)
		if err := s.store.UpdateJob(job); err != nil {
			L_error("cron: failed to update job", "job", job.Name, "error", err)
		}
	}
	s.ignoreWatchUntil = time.Now().Add(200 * time.Millisecond)
}

// runLoop is the scheduler's cooperative event loop: one select over a
// wake timer, the file watcher's debounced reload, a backup poll tick,
// and shutdown signals.
func (s *Service) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	var watcherEvents <-chan fsnotify.Event
	var watcherErrors <-chan error
	if s.watcher != nil {
		watcherEvents = s.watcher.Events
		watcherErrors = s.watcher.Errors
	}

	jobsFile := filepath.Base(s.store.Path())

	var fileDebounce *time.Timer
	var fileDebounceC <-chan time.Time

	for {
		sleepDuration := s.computeNextWake()
		if s.timer == nil {
			s.timer = time.NewTimer(sleepDuration)
		} else {
			s.timer.Reset(sleepDuration)
		}

		select {
		case <-ctx.Done():
			s.timer.Stop()
			return
		case <-s.stopCh:
			s.timer.Stop()
			return

		case <-s.rescheduleCh:
			s.timer.Stop()

		case event := <-watcherEvents:
			if filepath.Base(event.Name) == jobsFile && (event.Op&fsnotify.Write != 0 || event.Op&fsnotify.Create != 0) {
				if time.Now().Before(s.ignoreWatchUntil) {
					continue
				}
				if fileDebounce == nil {
					fileDebounce = time.NewTimer(FileChangeDebounce)
					fileDebounceC = fileDebounce.C
				} else {
					fileDebounce.Reset(FileChangeDebounce)
				}
			}

		case <-fileDebounceC:
			s.timer.Stop()
			fileDebounce = nil
			fileDebounceC = nil
			if err := s.store.Load(); err != nil {
				L_error("cron: failed to reload jobs after file change", "error", err)
			} else {
				s.initializeNextRuns()
			}

		case err := <-watcherErrors:
			L_warn("cron: file watcher error", "error", err)

		case <-s.backupTicker.C:
			s.timer.Stop()
			s.runDueJobs(ctx)

		case <-s.timer.C:
			s.runDueJobs(ctx)
		}
	}
}

func (s *Service) computeNextWake() time.Duration {
	now := time.Now()
	minWait := time.Hour

	for _, job := range s.store.GetEnabledJobs() {
		if job.State.NextRunAtMs == nil {
			continue
		}
		wait := time.UnixMilli(*job.State.NextRunAtMs).Sub(now)
		if wait < 0 {
			return 0
		}
		if wait < minWait {
			minWait = wait
		}
	}
	if minWait > 100*time.Millisecond {
		return minWait
	}
	return 100 * time.Millisecond
}

func (s *Service) runDueJobs(ctx context.Context) {
	dueJobs := s.store.GetDueJobs(time.Now())
	for _, job := range dueJobs {
		if job.IsRunning() {
			continue
		}
		job.SetNextRun(nil)
		job.SetRunning()
		if err := s.store.UpdateJob(job); err != nil {
			L_error("cron: failed to mark job starting", "job", job.Name, "error", err)
			continue
		}
		L_info("cron: starting job", "job", job.Name, "id", job.ID, "action", job.Action.Kind)
		go s.executeJob(ctx, job)
	}
}

// RunNow executes job id immediately, outside its schedule.
func (s *Service) RunNow(ctx context.Context, id string) error {
	job := s.store.GetJob(id)
	if job == nil {
		return fmt.Errorf("job %s not found", id)
	}
	if job.IsRunning() {
		return fmt.Errorf("job %s already running", id)
	}
	job.SetRunning()
	if err := s.store.UpdateJob(job); err != nil {
		return err
	}
	s.executeJob(ctx, job)
	return nil
}

// executeJob performs one push or pull and records the outcome.
func (s *Service) executeJob(ctx context.Context, job *SyncJob) {
	startTime := time.Now()

	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	status, summary, errStr := s.runAction(ctx, job)

	duration := time.Since(startTime)
	job.SetLastRun(startTime, duration, status, errStr)

	next, err := NextRunTime(job, time.Now())
	if err != nil {
		L_error("cron: failed to reschedule job", "job", job.Name, "error", err)
	} else {
		job.SetNextRun(next)
	}
	if job.IsOneShot() && job.State.LastRunAtMs != nil {
		job.Enabled = false
	}

	if err := s.store.UpdateJob(job); err != nil {
		L_error("cron: failed to persist job result", "job", job.Name, "error", err)
	}

	entry := CreateRunEntry(startTime, duration, status, summary, errStr)
	if err := s.history.LogRun(job.ID, entry); err != nil {
		L_warn("cron: failed to log run history", "job", job.Name, "error", err)
	}

	L_info("cron: job finished", "job", job.Name, "status", status, "duration", duration)
}

func (s *Service) runAction(ctx context.Context, job *SyncJob) (status, summary, errStr string) {
	if job.Action.Remote == "" {
		return StatusError, "", "action has no remote configured"
	}
	client := fsync.NewClient(job.Action.Remote, s.token)

	switch job.Action.Kind {
	case ActionKindPush:
		latest, err := s.repo.Latest()
		if err != nil {
			return StatusError, "", fmt.Sprintf("resolve latest note: %v", err)
		}
		rec, err := s.repo.LoadNote(latest)
		if err != nil {
			return StatusError, "", fmt.Sprintf("load latest note: %v", err)
		}
		if _, err := client.Push(ctx, rec); err != nil {
			return StatusError, "", err.Error()
		}
		return StatusOK, fmt.Sprintf("pushed %s to %s", rec.ObjectID, job.Action.Remote), ""

	case ActionKindPull:
		if job.Action.ObjectID == "" {
			return StatusError, "", "pull action requires an object id"
		}
		rec, err := client.Pull(ctx, job.Action.ObjectID)
		if err != nil {
			return StatusError, "", err.Error()
		}
		if _, err := s.repo.StoreNote(rec.Note); err != nil {
			return StatusError, "", fmt.Sprintf("store pulled note: %v", err)
		}
		return StatusOK, fmt.Sprintf("pulled %s from %s", job.Action.ObjectID, job.Action.Remote), ""

	default:
		return StatusError, "", fmt.Sprintf("unknown action kind %q", job.Action.Kind)
	}
}

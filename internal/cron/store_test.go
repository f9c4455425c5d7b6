package cron

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStore(filepath.Join(dir, "jobs.json"), filepath.Join(dir, "runs"))
}

func TestStoreAddLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	job := &SyncJob{
		Name:     "push-hub",
		Enabled:  true,
		Schedule: Schedule{Kind: ScheduleKindEvery, EveryMs: 60000},
		Action:   Action{Kind: ActionKindPush, Remote: "https://hub.example"},
	}
	if err := store.AddJob(job); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected AddJob to assign an ID")
	}

	reloaded := NewStore(store.Path(), store.runsDir)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := reloaded.GetJob(job.ID)
	if got == nil {
		t.Fatal("expected job to survive reload")
	}
	if got.Name != "push-hub" || got.Action.Remote != "https://hub.example" {
		t.Fatalf("unexpected reloaded job: %+v", got)
	}
}

func TestStoreLoadMissingFileStartsEmpty(t *testing.T) {
	store := newTestStore(t)
	if err := store.Load(); err != nil {
		t.Fatalf("Load on missing file should not error: %v", err)
	}
	if store.Count() != 0 {
		t.Fatalf("expected 0 jobs, got %d", store.Count())
	}
}

func TestStoreDuplicateIDRejected(t *testing.T) {
	store := newTestStore(t)
	job := &SyncJob{ID: "fixed-id", Name: "a"}
	if err := store.AddJob(job); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	dup := &SyncJob{ID: "fixed-id", Name: "b"}
	if err := store.AddJob(dup); err == nil {
		t.Fatal("expected error adding duplicate job ID")
	}
}

func TestStoreGetDueJobsOnlyReturnsEnabledAndDue(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()
	past := now.Add(-time.Minute).UnixMilli()
	future := now.Add(time.Minute).UnixMilli()

	due := &SyncJob{Enabled: true, State: JobState{NextRunAtMs: &past}}
	notYet := &SyncJob{Enabled: true, State: JobState{NextRunAtMs: &future}}
	disabled := &SyncJob{Enabled: false, State: JobState{NextRunAtMs: &past}}

	for _, j := range []*SyncJob{due, notYet, disabled} {
		if err := store.AddJob(j); err != nil {
			t.Fatalf("AddJob: %v", err)
		}
	}

	dueJobs := store.GetDueJobs(now)
	if len(dueJobs) != 1 || dueJobs[0].ID != due.ID {
		t.Fatalf("expected only the due job, got %+v", dueJobs)
	}
}

func TestStoreDeleteAndDisableJob(t *testing.T) {
	store := newTestStore(t)
	job := &SyncJob{Name: "one-off", Enabled: true}
	if err := store.AddJob(job); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if err := store.DisableJob(job.ID); err != nil {
		t.Fatalf("DisableJob: %v", err)
	}
	if store.GetJob(job.ID).Enabled {
		t.Fatal("expected job to be disabled")
	}
	if err := store.DeleteJob(job.ID); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	if store.GetJob(job.ID) != nil {
		t.Fatal("expected job to be gone after delete")
	}
}

func TestDefaultPathsAreRepoRooted(t *testing.T) {
	jobs := DefaultJobsPath("/repo")
	runs := DefaultRunsDir("/repo")
	if jobs != filepath.Join("/repo", ".fukura", "cron", "jobs.json") {
		t.Fatalf("unexpected jobs path: %s", jobs)
	}
	if runs != filepath.Join("/repo", ".fukura", "cron", "runs") {
		t.Fatalf("unexpected runs dir: %s", runs)
	}
}

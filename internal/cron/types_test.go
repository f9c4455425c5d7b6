package cron

import (
	"testing"
	"time"
)

func TestSyncJobIsOneShot(t *testing.T) {
	at := &SyncJob{Schedule: Schedule{Kind: ScheduleKindAt}}
	every := &SyncJob{Schedule: Schedule{Kind: ScheduleKindEvery}}
	if !at.IsOneShot() {
		t.Fatal("expected at-schedule job to be one-shot")
	}
	if every.IsOneShot() {
		t.Fatal("expected every-schedule job not to be one-shot")
	}
}

func TestSyncJobRunningLifecycle(t *testing.T) {
	job := &SyncJob{}
	if job.IsRunning() {
		t.Fatal("new job should not be running")
	}
	job.SetRunning()
	if !job.IsRunning() {
		t.Fatal("expected job to be running after SetRunning")
	}
	job.ClearRunning()
	if job.IsRunning() {
		t.Fatal("expected job not running after ClearRunning")
	}
}

func TestSyncJobSetNextRunNil(t *testing.T) {
	job := &SyncJob{}
	now := time.Now()
	job.SetNextRun(&now)
	if job.State.NextRunAtMs == nil {
		t.Fatal("expected NextRunAtMs to be set")
	}
	job.SetNextRun(nil)
	if job.State.NextRunAtMs != nil {
		t.Fatal("expected NextRunAtMs to be cleared")
	}
}

func TestSyncJobSetLastRun(t *testing.T) {
	job := &SyncJob{}
	job.SetRunning()
	start := time.Now()
	job.SetLastRun(start, 2*time.Second, StatusOK, "")
	if job.State.RunningAtMs != nil {
		t.Fatal("expected running flag cleared after SetLastRun")
	}
	if job.State.LastStatus != StatusOK {
		t.Fatalf("expected status %q, got %q", StatusOK, job.State.LastStatus)
	}
	if job.State.LastDurationMs != 2000 {
		t.Fatalf("expected duration 2000ms, got %d", job.State.LastDurationMs)
	}
}

func TestSyncJobClone(t *testing.T) {
	job := &SyncJob{ID: "abc", Name: "push-hub", Action: Action{Kind: ActionKindPush, Remote: "https://hub.example"}}
	clone := job.Clone()
	if clone == job {
		t.Fatal("expected a distinct pointer")
	}
	if clone.ID != job.ID || clone.Action.Remote != job.Action.Remote {
		t.Fatalf("clone diverged: %+v vs %+v", clone, job)
	}
	clone.Name = "changed"
	if job.Name == "changed" {
		t.Fatal("mutating clone should not affect original")
	}
}

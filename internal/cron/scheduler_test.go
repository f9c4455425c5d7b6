package cron

import (
	"testing"
	"time"
)

func TestNextRunTimeEvery(t *testing.T) {
	job := &SyncJob{
		Enabled:  true,
		Schedule: Schedule{Kind: ScheduleKindEvery, EveryMs: int64(time.Minute / time.Millisecond)},
	}
	now := time.Now()
	next, err := NextRunTime(job, now)
	if err != nil {
		t.Fatalf("NextRunTime: %v", err)
	}
	if next == nil || next.Before(now) {
		t.Fatalf("expected a future next run, got %v", next)
	}
}

func TestNextRunTimeAtAlreadyRun(t *testing.T) {
	lastRun := time.Now().Add(-time.Hour).UnixMilli()
	job := &SyncJob{
		Enabled:  true,
		Schedule: Schedule{Kind: ScheduleKindAt, AtMs: time.Now().Add(-2 * time.Hour).UnixMilli()},
		State:    JobState{LastRunAtMs: &lastRun},
	}
	next, err := NextRunTime(job, time.Now())
	if err != nil {
		t.Fatalf("NextRunTime: %v", err)
	}
	if next != nil {
		t.Fatalf("expected nil (already executed), got %v", next)
	}
}

func TestNextRunTimeDisabledReturnsNil(t *testing.T) {
	job := &SyncJob{Enabled: false, Schedule: Schedule{Kind: ScheduleKindEvery, EveryMs: 1000}}
	next, err := NextRunTime(job, time.Now())
	if err != nil {
		t.Fatalf("NextRunTime: %v", err)
	}
	if next != nil {
		t.Fatalf("expected nil for disabled job, got %v", next)
	}
}

func TestNextRunTimeCron(t *testing.T) {
	job := &SyncJob{Enabled: true, Schedule: Schedule{Kind: ScheduleKindCron, Expr: "*/5 * * * *"}}
	next, err := NextRunTime(job, time.Now())
	if err != nil {
		t.Fatalf("NextRunTime: %v", err)
	}
	if next == nil {
		t.Fatal("expected a next run time")
	}
}

func TestParseDurationDaysAndWeeks(t *testing.T) {
	d, err := ParseDuration("2d")
	if err != nil || d != 48*time.Hour {
		t.Fatalf("got %v, %v", d, err)
	}
	w, err := ParseDuration("1w")
	if err != nil || w != 7*24*time.Hour {
		t.Fatalf("got %v, %v", w, err)
	}
}

func TestParseAtRelative(t *testing.T) {
	now := time.Now()
	at, err := ParseAt("+5m", now)
	if err != nil {
		t.Fatalf("ParseAt: %v", err)
	}
	if at.Sub(now) != 5*time.Minute {
		t.Fatalf("unexpected offset: %v", at.Sub(now))
	}
}

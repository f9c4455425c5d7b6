// Package cron schedules recurring and one-shot sync jobs: periodic
// push/pull against a remote hub (spec.md §6.6), driven by an
// at/every/cron scheduling vocabulary and an on-disk job store, with the
// job payload being a sync action rather than an arbitrary task.
package cron

import (
	"encoding/json"
	"time"
)

// SyncJob is a scheduled push or pull against a remote hub.
type SyncJob struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Enabled     bool     `json:"enabled"`
	CreatedAtMs int64    `json:"createdAtMs"`
	UpdatedAtMs int64    `json:"updatedAtMs"`
	Schedule    Schedule `json:"schedule"`
	Action      Action   `json:"action"`
	State       JobState `json:"state"`
}

// Schedule defines when a job should run.
type Schedule struct {
	Kind    string `json:"kind"`              // "at", "every", "cron"
	AtMs    int64  `json:"atMs,omitempty"`    // for "at": unix ms timestamp
	EveryMs int64  `json:"everyMs,omitempty"` // for "every": interval in ms
	Expr    string `json:"expr,omitempty"`    // for "cron": 5-field cron expression
	Tz      string `json:"tz,omitempty"`      // for "cron": IANA timezone
}

// Action defines what a sync job does when it runs.
type Action struct {
	Kind     string `json:"kind"` // "push" or "pull"
	Remote   string `json:"remote"`
	ObjectID string `json:"objectId,omitempty"` // required for "pull"
}

// Action kind constants.
const (
	ActionKindPush = "push"
	ActionKindPull = "pull"
)

// JobState tracks the runtime state of a job.
type JobState struct {
	NextRunAtMs    *int64 `json:"nextRunAtMs,omitempty"`
	RunningAtMs    *int64 `json:"runningAtMs,omitempty"`
	LastRunAtMs    *int64 `json:"lastRunAtMs,omitempty"`
	LastStatus     string `json:"lastStatus,omitempty"` // "ok", "error"
	LastError      string `json:"lastError,omitempty"`
	LastDurationMs int64  `json:"lastDurationMs,omitempty"`
}

// StoreFile is the root structure of the jobs.json file.
type StoreFile struct {
	Version int        `json:"version"`
	Jobs    []*SyncJob `json:"jobs"`
}

// RunLogEntry represents a single run in the history log.
type RunLogEntry struct {
	Ts         int64  `json:"ts"` // Unix timestamp (ms) when run started
	Status     string `json:"status"`
	DurationMs int64  `json:"durationMs,omitempty"`
	Summary    string `json:"summary,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Schedule kind constants.
const (
	ScheduleKindAt    = "at"
	ScheduleKindEvery = "every"
	ScheduleKindCron  = "cron"
)

// Job status constants.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// IsOneShot returns true if this is a one-shot job (at schedule).
func (j *SyncJob) IsOneShot() bool {
	return j.Schedule.Kind == ScheduleKindAt
}

// SetNextRun updates the next run time.
func (j *SyncJob) SetNextRun(t *time.Time) {
	if t == nil {
		j.State.NextRunAtMs = nil
	} else {
		ms := t.UnixMilli()
		j.State.NextRunAtMs = &ms
	}
}

// SetLastRun updates the last run state.
func (j *SyncJob) SetLastRun(startTime time.Time, duration time.Duration, status, errStr string) {
	ms := startTime.UnixMilli()
	j.State.LastRunAtMs = &ms
	j.State.LastDurationMs = duration.Milliseconds()
	j.State.LastStatus = status
	j.State.LastError = errStr
	j.State.RunningAtMs = nil
	j.UpdatedAtMs = time.Now().UnixMilli()
}

// SetRunning marks the job as currently running.
func (j *SyncJob) SetRunning() {
	now := time.Now().UnixMilli()
	j.State.RunningAtMs = &now
}

// ClearRunning clears the running state.
func (j *SyncJob) ClearRunning() {
	j.State.RunningAtMs = nil
}

// IsRunning returns true if the job is currently running.
func (j *SyncJob) IsRunning() bool {
	return j.State.RunningAtMs != nil
}

// Clone creates a deep copy of the job.
func (j *SyncJob) Clone() *SyncJob {
	data, _ := json.Marshal(j)
	var clone SyncJob
	json.Unmarshal(data, &clone)
	return &clone
}

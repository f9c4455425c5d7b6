package cron

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fukura-dev/fukura/internal/note"
	"github.com/fukura-dev/fukura/internal/repo"
)

func newTestRepoForService(t *testing.T) *repo.Repository {
	t.Helper()
	r, err := repo.Init(t.TempDir(), false, nil)
	if err != nil {
		t.Fatalf("repo.Init: %v", err)
	}
	return r
}

func TestRunActionPush(t *testing.T) {
	r := newTestRepoForService(t)
	rec, err := r.StoreNote(note.Note{
		Title:   "fixed the build",
		Body:    "## Solution\n\nran go mod tidy",
		Tags:    []string{"build"},
		Privacy: note.PrivacyPrivate,
		Author:  note.Author{Name: "tester"},
	})
	if err != nil {
		t.Fatalf("StoreNote: %v", err)
	}

	var received repo.NoteRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/v1/notes" || req.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
		}
		if err := json.NewDecoder(req.Body).Decode(&received); err != nil {
			t.Fatalf("decode push body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(received)
	}))
	defer srv.Close()

	svc := NewService(r, "test-token")
	job := &SyncJob{ID: "push-job", Name: "push", Action: Action{Kind: ActionKindPush, Remote: srv.URL}}

	status, summary, errStr := svc.runAction(context.Background(), job)
	if status != StatusOK {
		t.Fatalf("expected ok status, got %q (err=%q)", status, errStr)
	}
	if summary == "" {
		t.Fatal("expected a non-empty summary")
	}
	if received.ObjectID != rec.ObjectID {
		t.Fatalf("expected remote to receive object %s, got %s", rec.ObjectID, received.ObjectID)
	}
}

func TestRunActionPull(t *testing.T) {
	r := newTestRepoForService(t)

	pulled := repo.NoteRecord{
		ObjectID: "deadbeef",
		Note: note.Note{
			Title:   "remote note",
			Body:    "body",
			Privacy: note.PrivacyPrivate,
			Author:  note.Author{Name: "remote"},
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/v1/notes/deadbeef" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(pulled)
	}))
	defer srv.Close()

	svc := NewService(r, "")
	job := &SyncJob{ID: "pull-job", Name: "pull", Action: Action{Kind: ActionKindPull, Remote: srv.URL, ObjectID: "deadbeef"}}

	status, _, errStr := svc.runAction(context.Background(), job)
	if status != StatusOK {
		t.Fatalf("expected ok status, got %q (err=%q)", status, errStr)
	}
}

func TestRunActionPullMissingObjectID(t *testing.T) {
	r := newTestRepoForService(t)
	svc := NewService(r, "")
	job := &SyncJob{ID: "pull-job", Action: Action{Kind: ActionKindPull, Remote: "https://hub.example"}}

	status, _, errStr := svc.runAction(context.Background(), job)
	if status != StatusError {
		t.Fatalf("expected error status, got %q", status)
	}
	if errStr == "" {
		t.Fatal("expected a non-empty error message")
	}
}

func TestRunActionUnknownRemote(t *testing.T) {
	r := newTestRepoForService(t)
	svc := NewService(r, "")
	job := &SyncJob{Action: Action{Kind: "sideload", Remote: "https://hub.example"}}

	status, _, errStr := svc.runAction(context.Background(), job)
	if status != StatusError {
		t.Fatalf("expected error status, got %q", status)
	}
	if errStr == "" {
		t.Fatal("expected an error describing the unknown action kind")
	}
}

func TestExecuteJobRecordsStateAndHistory(t *testing.T) {
	r := newTestRepoForService(t)
	if _, err := r.StoreNote(note.Note{Title: "n", Body: "b", Privacy: note.PrivacyPrivate, Author: note.Author{Name: "t"}}); err != nil {
		t.Fatalf("StoreNote: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var rec repo.NoteRecord
		json.NewDecoder(req.Body).Decode(&rec)
		json.NewEncoder(w).Encode(rec)
	}))
	defer srv.Close()

	svc := NewService(r, "")
	job := &SyncJob{ID: "job-exec", Name: "push", Enabled: true, Schedule: Schedule{Kind: ScheduleKindEvery, EveryMs: 60000}, Action: Action{Kind: ActionKindPush, Remote: srv.URL}}
	if err := svc.store.AddJob(job); err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	svc.executeJob(context.Background(), job)

	if job.State.LastStatus != StatusOK {
		t.Fatalf("expected last status ok, got %q (err=%q)", job.State.LastStatus, job.State.LastError)
	}
	if job.State.NextRunAtMs == nil {
		t.Fatal("expected an every-schedule job to be rescheduled")
	}

	runs, err := svc.history.GetRecentRuns(job.ID)
	if err != nil {
		t.Fatalf("GetRecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run logged, got %d", len(runs))
	}
}

func TestExecuteJobDisablesOneShotAfterRun(t *testing.T) {
	r := newTestRepoForService(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	svc := NewService(r, "")
	job := &SyncJob{
		ID:       "one-shot",
		Enabled:  true,
		Schedule: Schedule{Kind: ScheduleKindAt, AtMs: time.Now().Add(-time.Minute).UnixMilli()},
		Action:   Action{Kind: ActionKindPull, Remote: srv.URL, ObjectID: "abc"},
	}
	if err := svc.store.AddJob(job); err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	svc.executeJob(context.Background(), job)

	if job.Enabled {
		t.Fatal("expected one-shot job to be disabled after running")
	}
	if job.State.LastStatus != StatusError {
		t.Fatalf("expected error status from failing remote, got %q", job.State.LastStatus)
	}
}

func TestServiceStartStop(t *testing.T) {
	r := newTestRepoForService(t)
	svc := NewService(r, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !svc.IsRunning() {
		t.Fatal("expected service to report running")
	}
	svc.Stop()
	if svc.IsRunning() {
		t.Fatal("expected service to report stopped")
	}
}

func TestServiceStartTwiceErrors(t *testing.T) {
	r := newTestRepoForService(t)
	svc := NewService(r, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()

	if err := svc.Start(ctx); err == nil {
		t.Fatal("expected second Start call to error")
	}
}

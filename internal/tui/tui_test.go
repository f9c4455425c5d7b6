package tui

import (
	"strings"
	"testing"

	"github.com/fukura-dev/fukura/internal/note"
	"github.com/fukura-dev/fukura/internal/repo"
)

func newTestRepo(t *testing.T) *repo.Repository {
	t.Helper()
	r, err := repo.Init(t.TempDir(), false, nil)
	if err != nil {
		t.Fatalf("repo.Init: %v", err)
	}
	return r
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected unchanged, got %q", got)
	}
	got := truncate("this is a long title", 10)
	if len([]rune(got)) != 10 {
		t.Fatalf("expected truncated length 10, got %d (%q)", len([]rune(got)), got)
	}
}

func TestNewModelLoadsNotes(t *testing.T) {
	r := newTestRepo(t)
	if _, err := r.StoreNote(note.Note{Title: "fixed deploy", Body: "body", Privacy: note.PrivacyPrivate, Author: note.Author{Name: "a"}}); err != nil {
		t.Fatalf("StoreNote: %v", err)
	}

	m := New(r)
	if len(m.notes) != 1 {
		t.Fatalf("expected 1 note loaded, got %d", len(m.notes))
	}
	if !strings.Contains(m.statusMsg, "1 note") {
		t.Fatalf("unexpected status message: %s", m.statusMsg)
	}
}

func TestRunSearchFiltersByQuery(t *testing.T) {
	r := newTestRepo(t)
	if _, err := r.StoreNote(note.Note{Title: "fixed deploy pipeline", Body: "body", Privacy: note.PrivacyPrivate, Author: note.Author{Name: "a"}}); err != nil {
		t.Fatalf("StoreNote: %v", err)
	}
	if _, err := r.StoreNote(note.Note{Title: "unrelated note", Body: "other body", Privacy: note.PrivacyPrivate, Author: note.Author{Name: "a"}}); err != nil {
		t.Fatalf("StoreNote: %v", err)
	}

	m := New(r)
	m.runSearch("deploy")
	if len(m.notes) != 1 {
		t.Fatalf("expected 1 match for 'deploy', got %d", len(m.notes))
	}
}

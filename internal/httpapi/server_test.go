package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

func TestHandlePushStoresNote(t *testing.T) {
	r := newTestRepo(t)
	srv := NewServer(r, Options{})

	body, _ := json.Marshal(repo.NoteRecord{Note: note.Note{
		Title: "pushed note", Body: "body text", Privacy: note.PrivacyPrivate, Author: note.Author{Name: "remote"},
	}})
	req := httptest.NewRequest(http.MethodPost, "/v1/notes", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.routes().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var rec repo.NoteRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rec.ObjectID == "" {
		t.Fatal("expected an assigned object id")
	}
}

func TestHandlePullReturnsStoredNote(t *testing.T) {
	r := newTestRepo(t)
	rec, err := r.StoreNote(note.Note{Title: "public note", Body: "body", Privacy: note.PrivacyPublic, Author: note.Author{Name: "a"}})
	if err != nil {
		t.Fatalf("StoreNote: %v", err)
	}

	srv := NewServer(r, Options{})
	req := httptest.NewRequest(http.MethodGet, "/v1/notes/"+rec.ObjectID, nil)
	w := httptest.NewRecorder()

	srv.routes().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandlePullRejectsPrivateNotes(t *testing.T) {
	r := newTestRepo(t)
	rec, err := r.StoreNote(note.Note{Title: "secret", Body: "body", Privacy: note.PrivacyPrivate, Author: note.Author{Name: "a"}})
	if err != nil {
		t.Fatalf("StoreNote: %v", err)
	}

	srv := NewServer(r, Options{})
	req := httptest.NewRequest(http.MethodGet, "/v1/notes/"+rec.ObjectID, nil)
	w := httptest.NewRecorder()

	srv.routes().ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for private note, got %d", w.Code)
	}
}

func TestAuthorizeRejectsMissingOrWrongToken(t *testing.T) {
	r := newTestRepo(t)
	srv := NewServer(r, Options{Token: "secret-token"})

	body, _ := json.Marshal(repo.NoteRecord{Note: note.Note{Title: "t", Body: "b", Privacy: note.PrivacyPrivate, Author: note.Author{Name: "a"}}})

	req := httptest.NewRequest(http.MethodPost, "/v1/notes", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.routes().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with no token, got %d", w.Code)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/v1/notes", bytes.NewReader(body))
	req2.Header.Set("Authorization", "Bearer wrong")
	w2 := httptest.NewRecorder()
	srv.routes().ServeHTTP(w2, req2)
	if w2.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w2.Code)
	}

	req3 := httptest.NewRequest(http.MethodPost, "/v1/notes", bytes.NewReader(body))
	req3.Header.Set("Authorization", "Bearer secret-token")
	w3 := httptest.NewRecorder()
	srv.routes().ServeHTTP(w3, req3)
	if w3.Code != http.StatusOK {
		t.Fatalf("expected 200 with correct token, got %d", w3.Code)
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	r := newTestRepo(t)
	srv := NewServer(r, Options{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.routes().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestHandleTailWithoutDispatcherReturns503(t *testing.T) {
	r := newTestRepo(t)
	srv := NewServer(r, Options{})

	req := httptest.NewRequest(http.MethodGet, "/v1/tail", nil)
	w := httptest.NewRecorder()
	srv.routes().ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a dispatcher, got %d", w.Code)
	}
}

func TestStartStop(t *testing.T) {
	r := newTestRepo(t)
	srv := NewServer(r, Options{Listen: "127.0.0.1:0"})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

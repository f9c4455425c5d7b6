// Package sync implements the HTTP push/pull client of spec.md §6.6: an
// adapter over the repository facade, not part of the content-addressed
// core. Plain net/http is used deliberately here — the surface is two
// JSON endpoints with bearer auth and no retry/backoff semantics spec.md
// calls for, so a third-party HTTP client would only add unused feature
// surface.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fukura-dev/fukura/internal/repo"
)

// DefaultTimeout bounds a single push/pull round trip.
const DefaultTimeout = 30 * time.Second

// RemoteFailure is returned when the remote responds with a non-2xx
// status (spec.md §6.6: "Non-2xx responses surface status code and body
// as errors").
type RemoteFailure struct {
	Status int
	Body   string
}

func (e *RemoteFailure) Error() string {
	return fmt.Sprintf("remote returned %d: %s", e.Status, e.Body)
}

// Client pushes and pulls NoteRecords to/from a remote hub.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a Client for baseURL. If token is empty, it is read
// from FUKURA_TOKEN then FUKURA_API_TOKEN (spec.md §6.6).
func NewClient(baseURL, token string) *Client {
	if token == "" {
		token = tokenFromEnv()
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
}

func tokenFromEnv() string {
	if t := os.Getenv("FUKURA_TOKEN"); t != "" {
		return t
	}
	return os.Getenv("FUKURA_API_TOKEN")
}

// Push sends one note record to <remote>/v1/notes, returning the remote's
// (possibly re-assigned) copy.
func (c *Client) Push(ctx context.Context, rec repo.NoteRecord) (repo.NoteRecord, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return repo.NoteRecord{}, fmt.Errorf("marshal note record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/notes", bytes.NewReader(body))
	if err != nil {
		return repo.NoteRecord{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	return c.doExpectingNote(req)
}

// Pull fetches one note record by object id from <remote>/v1/notes/<id>.
func (c *Client) Pull(ctx context.Context, objectID string) (repo.NoteRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/notes/"+objectID, nil)
	if err != nil {
		return repo.NoteRecord{}, err
	}
	c.authorize(req)

	return c.doExpectingNote(req)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) doExpectingNote(req *http.Request) (repo.NoteRecord, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return repo.NoteRecord{}, fmt.Errorf("sync request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return repo.NoteRecord{}, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return repo.NoteRecord{}, &RemoteFailure{Status: resp.StatusCode, Body: string(data)}
	}

	var rec repo.NoteRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return repo.NoteRecord{}, fmt.Errorf("decode note record: %w", err)
	}
	return rec, nil
}

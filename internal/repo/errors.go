package repo

import "fmt"

// ErrAlreadyInitialized is returned by Init when the dot directory already
// exists and force is false (spec.md §7) — callers should Open instead.
type ErrAlreadyInitialized struct{ Path string }

func (e *ErrAlreadyInitialized) Error() string {
	return fmt.Sprintf("%s is already a fukura repository (use force to reinitialize)", e.Path)
}

// ErrAmbiguousID is returned by ResolveObjectID when a short prefix matches
// more than one object.
type ErrAmbiguousID struct {
	Prefix   string
	Examples []string
}

func (e *ErrAmbiguousID) Error() string {
	return fmt.Sprintf("object id prefix %q is ambiguous, matches: %v", e.Prefix, e.Examples)
}

// ErrInvalidObjectType mirrors objstore.ErrInvalidType at the facade layer,
// for callers that only import internal/repo.
type ErrInvalidObjectType struct{ Expected, Found string }

func (e *ErrInvalidObjectType) Error() string {
	return fmt.Sprintf("invalid object type: expected %q, found %q", e.Expected, e.Found)
}

// ErrEmptyNote is returned by StoreNote/StoreNotesBatch when title or the
// trimmed body is empty (spec.md §3 invariants, §7).
type ErrEmptyNote struct{ Reason string }

func (e *ErrEmptyNote) Error() string { return fmt.Sprintf("empty note: %s", e.Reason) }

// ErrPositionOutOfRange is returned by ResolveObjectID for an out-of-bounds
// "@N" positional reference.
type ErrPositionOutOfRange struct {
	N     int
	Count int
}

func (e *ErrPositionOutOfRange) Error() string {
	return fmt.Sprintf("position @%d out of range: only %d results available", e.N, e.Count)
}

// ErrNoLatest is returned when "@latest" is requested but no note has ever
// been stored in this repository.
var ErrNoLatest = fmt.Errorf("no note has been stored yet; %q ref is unset", "latest")

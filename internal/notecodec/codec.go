// Package notecodec serializes and deserializes the Note envelope to the
// canonical bytes spec.md §4.4 and §8 (property 3) require: a
// deterministic, length-prefixed binary encoding with fields in declared
// order and map keys sorted. The original Rust implementation used
// ciborium (CBOR) for exactly this purpose
// (original_source/src/models.rs, Note::canonical_bytes); this package
// uses the Go-ecosystem equivalent, github.com/fxamacker/cbor/v2, also
// carried by the retrieval pack (see SPEC_FULL.md's DOMAIN STACK table).
//
// Determinism does not depend on cbor's own canonical-map ordering mode:
// Note's Meta field is already an order-preserving slice
// (note.NormalizeMeta sorts it before encoding), so a plain struct/slice
// encoding is deterministic on its own.
package notecodec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/fukura-dev/fukura/internal/note"
)

// ErrUnsupportedSchema is returned by Decode when the envelope's schema
// or version doesn't match what this codec understands.
type ErrUnsupportedSchema struct {
	Schema  string
	Version uint32
}

func (e *ErrUnsupportedSchema) Error() string {
	return fmt.Sprintf("unsupported note envelope: schema=%q version=%d", e.Schema, e.Version)
}

var encMode = func() cbor.EncMode {
	opts := cbor.CanonicalEncOptions() // deterministic: definite-length, sorted map keys
	mode, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("notecodec: invalid encoding options: %v", err))
	}
	return mode
}()

// Encode produces the canonical bytes for n: wrap it in the fuku.note
// envelope, then encode deterministically.
func Encode(n note.Note) ([]byte, error) {
	env := note.Wrap(n)
	b, err := encMode.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode note envelope: %w", err)
	}
	return b, nil
}

// Decode parses canonical bytes into a Note, rejecting any envelope whose
// schema isn't "fuku.note" or whose version isn't 1 (spec.md §4.4).
func Decode(data []byte) (note.Note, error) {
	var env note.Envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return note.Note{}, fmt.Errorf("decode note envelope: %w", err)
	}
	if env.Schema != note.SchemaName || env.Version != note.CurrentVersion {
		return note.Note{}, &ErrUnsupportedSchema{Schema: env.Schema, Version: env.Version}
	}
	return env.Note, nil
}

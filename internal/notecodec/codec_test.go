package notecodec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fukura-dev/fukura/internal/note"
)

func sampleNote() note.Note {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return note.Note{
		Title:     "Proxy install fails",
		Body:      "Update the proxy credentials and retry the setup script.",
		Tags:      note.NormalizeTags([]string{"Proxy", "install"}),
		Links:     []string{"https://example.com/runbook"},
		Meta:      note.NormalizeMeta(map[string]string{"host": "build-1", "attempt": "2"}),
		Solutions: nil,
		Privacy:   note.PrivacyPrivate,
		CreatedAt: now,
		UpdatedAt: now,
		Author:    note.Author{Name: "dev"},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	n := sampleNote()
	b, err := Encode(n)
	require.NoError(t, err)

	decoded, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, n.Title, decoded.Title)
	require.Equal(t, n.Tags, decoded.Tags)
	require.Equal(t, n.Meta, decoded.Meta)
	require.True(t, n.CreatedAt.Equal(decoded.CreatedAt))
}

func TestEncodeIsDeterministic(t *testing.T) {
	n := sampleNote()
	b1, err := Encode(n)
	require.NoError(t, err)
	b2, err := Encode(n)
	require.NoError(t, err)
	require.Equal(t, b1, b2)
}

func TestDecodeRejectsWrongSchema(t *testing.T) {
	n := sampleNote()
	env := note.Wrap(n)
	env.Schema = "other.schema"
	b, err := encMode.Marshal(env)
	require.NoError(t, err)

	_, err = Decode(b)
	require.Error(t, err)
	var schemaErr *ErrUnsupportedSchema
	require.ErrorAs(t, err, &schemaErr)
}

func TestDecodeRejectsWrongVersion(t *testing.T) {
	n := sampleNote()
	env := note.Wrap(n)
	env.Version = 2
	b, err := encMode.Marshal(env)
	require.NoError(t, err)

	_, err = Decode(b)
	require.Error(t, err)
}

func TestMetaOrderingIsLexicographic(t *testing.T) {
	meta := note.NormalizeMeta(map[string]string{"z": "1", "a": "2", "m": "3"})
	require.Equal(t, []note.MetaEntry{{Key: "a", Value: "2"}, {Key: "m", Value: "3"}, {Key: "z", Value: "1"}}, meta)
}

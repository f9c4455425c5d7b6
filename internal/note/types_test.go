package note

import (
	"reflect"
	"testing"
)

func TestNormalizeTagsDedupsLowercasesAndSorts(t *testing.T) {
	got := NormalizeTags([]string{"Deploy", "  deploy ", "Go Lang", "", "   ", "zeta"})
	want := []string{"deploy", "go-lang", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNormalizeMetaSortsByKeyAndDedupsLastWins(t *testing.T) {
	got := NormalizeMeta(map[string]string{"b": "2", "a": "1"})
	want := []MetaEntry{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestMetaMapRoundTrips(t *testing.T) {
	n := Note{Meta: []MetaEntry{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}}
	m := n.MetaMap()
	if m["a"] != "1" || m["b"] != "2" || len(m) != 2 {
		t.Fatalf("unexpected map: %v", m)
	}
}

func TestWrapSetsSchemaAndVersion(t *testing.T) {
	env := Wrap(Note{Title: "t"})
	if env.Schema != SchemaName || env.Version != CurrentVersion {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

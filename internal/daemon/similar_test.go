package daemon

import (
	"testing"

	"github.com/fukura-dev/fukura/internal/note"
)

func TestSearchTermsDropsNounsAndFlags(t *testing.T) {
	terms := searchTerms("cargo build --release --verbose extra-arg")
	want := []string{"cargo", "build", "extra-arg"}
	if len(terms) != len(want) {
		t.Fatalf("got %v, want %v", terms, want)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Fatalf("got %v, want %v", terms, want)
		}
	}
}

func TestSearchTermsEmptyForPureShellBuiltin(t *testing.T) {
	if terms := searchTerms("cd ls"); len(terms) != 0 {
		t.Fatalf("expected no terms, got %v", terms)
	}
}

func TestLooksLikeSolutionDetectsHeading(t *testing.T) {
	if !looksLikeSolution("intro\n## Solution\nrun this", nil) {
		t.Fatal("expected heading to be detected")
	}
}

func TestLooksLikeSolutionDetectsTag(t *testing.T) {
	if !looksLikeSolution("plain body", []string{"solved"}) {
		t.Fatal("expected tag to be detected")
	}
}

func TestLooksLikeSolutionFalseForPlainNote(t *testing.T) {
	if looksLikeSolution("just an observation", []string{"notes"}) {
		t.Fatal("expected no solution detected")
	}
}

func TestFindSimilarSolutionReturnsMatchingNote(t *testing.T) {
	r := newTestRepo(t)

	_, err := r.StoreNote(note.Note{
		Title: "Fixing cargo build linker error",
		Body:  "## Solution\n\nSet RUSTFLAGS appropriately.",
		Tags:  []string{"rust"},
	})
	if err != nil {
		t.Fatalf("StoreNote: %v", err)
	}

	hit, ok, err := FindSimilarSolution(r, "cargo build --release")
	if err != nil {
		t.Fatalf("FindSimilarSolution: %v", err)
	}
	if !ok {
		t.Fatal("expected a similar solution to be found")
	}
	if hit.Title == "" {
		t.Fatal("expected non-empty hit title")
	}
}

func TestFindSimilarSolutionNoneForUnrelatedCommand(t *testing.T) {
	r := newTestRepo(t)

	_, ok, err := FindSimilarSolution(r, "cd")
	if err != nil {
		t.Fatalf("FindSimilarSolution: %v", err)
	}
	if ok {
		t.Fatal("expected no match for a pure shell builtin")
	}
}

// Similar-solution lookup: spec.md §4.7.6. When a new error is captured,
// search existing notes for a prior resolution of the same shape before
// falling back to synthesizing a fresh note.
package daemon

import (
	"strings"

	"github.com/fukura-dev/fukura/internal/repo"
)

// commonShellNouns are stripped from a failing command before it is
// reduced to a search query (spec.md §4.7.6).
var commonShellNouns = map[string]bool{
	"cd": true, "ls": true, "cat": true, "echo": true,
	"mkdir": true, "rm": true, "cp": true, "mv": true,
}

// solutionMarkers identify a note body as containing a documented fix
// rather than just a bare error report (spec.md §4.7.6).
var solutionMarkers = []string{"## solution", "## fix", "**solution**:", "**fix**:"}

// searchTerms reduces a failing command to up to three meaningful words:
// shell nouns and flags (tokens starting with "-") are dropped.
func searchTerms(command string) []string {
	var terms []string
	for _, tok := range strings.Fields(command) {
		if strings.HasPrefix(tok, "-") {
			continue
		}
		if commonShellNouns[strings.ToLower(tok)] {
			continue
		}
		terms = append(terms, tok)
		if len(terms) == 3 {
			break
		}
	}
	return terms
}

// looksLikeSolution reports whether a note body documents a fix, via
// heading/inline markers or a "solved"/"solution" tag.
func looksLikeSolution(body string, tags []string) bool {
	lower := strings.ToLower(body)
	for _, marker := range solutionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	for _, t := range tags {
		lt := strings.ToLower(t)
		if lt == "solved" || lt == "solution" {
			return true
		}
	}
	return false
}

// FindSimilarSolution searches the repository for a previously-documented
// fix to a command resembling the failing one, returning the first hit
// whose body looks like a solution, if any.
func FindSimilarSolution(r *repo.Repository, failingCommand string) (repo.SearchHit, bool, error) {
	terms := searchTerms(failingCommand)
	if len(terms) == 0 {
		return repo.SearchHit{}, false, nil
	}

	hits, err := r.Search(strings.Join(terms, " "), 10, "relevance")
	if err != nil {
		return repo.SearchHit{}, false, err
	}

	for _, h := range hits {
		rec, err := r.LoadNote(h.ObjectID)
		if err != nil {
			continue
		}
		if looksLikeSolution(rec.Note.Body, rec.Note.Tags) {
			return h, true, nil
		}
	}
	return repo.SearchHit{}, false, nil
}

// Error/success correlator: spec.md §4.7.3. A per-session two-state
// machine (Idle, ErrorPending) driving automatic resolution-note
// synthesis when a failing command is followed by a successful one.
// Recast as explicit named states rather than ad-hoc boolean flags,
// the same way a job's running/enabled lifecycle is modeled with named
// states instead of flags.
package daemon

import (
	"fmt"
	"strings"
	"time"

	. "github.com/fukura-dev/fukura/internal/logging"
	"github.com/fukura-dev/fukura/internal/note"
	"github.com/fukura-dev/fukura/internal/repo"
)

// CorrelatorState is a session's error-tracking state (spec.md §4.7.3).
type CorrelatorState string

const (
	StateIdle         CorrelatorState = "idle"
	StateErrorPending CorrelatorState = "error_pending"
)

// Correlator drives the Idle/ErrorPending transition table and
// resolution-note synthesis. It holds no state of its own beyond what is
// already on Session; the daemon event loop owns the session table.
type Correlator struct {
	repo       *repo.Repository
	dispatcher *Dispatcher
	patterns   *PatternStore
	metrics    *Metrics
}

// NewCorrelator wires a Correlator to the repository facade, notification
// dispatcher, and pattern store it uses to record/synthesize notes.
func NewCorrelator(r *repo.Repository, dispatcher *Dispatcher, patterns *PatternStore) *Correlator {
	return &Correlator{repo: r, dispatcher: dispatcher, patterns: patterns}
}

// SetMetrics attaches a Metrics collector, used by Daemon.New after
// constructing both. Optional: a nil metrics field is simply skipped.
func (c *Correlator) SetMetrics(m *Metrics) { c.metrics = m }

func (s *Session) state() CorrelatorState {
	if s.ResolutionInProgress || s.LastErrorCommand != "" {
		return StateErrorPending
	}
	return StateIdle
}

// Observe applies one command outcome to the session's correlator state
// per spec.md §4.7.3's transition table, returning any similar-solution
// hit found for a newly-pending error (for callers that want to surface it
// immediately rather than waiting for auto-note synthesis).
func (c *Correlator) Observe(s *Session, cmd CommandEntry, stderr string, now time.Time) {
	exitCode := 0
	if cmd.ExitCode != nil {
		exitCode = *cmd.ExitCode
	}

	switch s.state() {
	case StateIdle:
		if exitCode == 0 {
			return
		}
		c.enterErrorPending(s, cmd, stderr, now)

	case StateErrorPending:
		if exitCode != 0 {
			c.additionalError(s, cmd, stderr, now)
			return
		}
		c.resolve(s, now)
	}
}

// enterErrorPending handles both the Idle->ErrorPending transition and,
// via additionalError's delegation, the ErrorPending->ErrorPending
// transition for a newly-seen fingerprint: append ErrorEntry, persist an
// error note immediately, and notify (spec.md §4.7.3's transition
// table). Similar-solution snippets (§4.7.6) accompany the notification
// when a prior fix is found.
func (c *Correlator) enterErrorPending(s *Session, cmd CommandEntry, stderr string, now time.Time) {
	normalized := NormalizeErrorMessage(firstLine(stderr, cmd.Command))
	s.appendError(ErrorEntry{
		Message:    cmd.Command,
		Normalized: normalized,
		Source:     "exit_code",
		Timestamp:  now,
		Stderr:     stderr,
	})
	s.LastErrorCommand = cmd.Command

	if c.patterns != nil {
		if _, err := c.patterns.RecordOccurrence(normalized, now); err != nil {
			L_warn("correlator: failed to record pattern", "error", err)
		}
	}

	var noteID string
	var snippets []string
	if c.repo != nil {
		n := synthesizeErrorNote(cmd, stderr, now)
		rec, err := c.repo.StoreNote(n)
		if err != nil {
			L_warn("correlator: failed to store error note", "error", err)
		} else {
			noteID = rec.ObjectID
			if c.metrics != nil {
				c.metrics.NotesStored.Inc()
			}

			hit, ok, err := FindSimilarSolution(c.repo, cmd.Command)
			if err != nil {
				L_warn("correlator: similar-solution search failed", "error", err)
			} else if ok {
				snippets = append(snippets, hit.Summary)
			}
			if c.metrics != nil {
				c.metrics.SearchQueries.Inc()
			}
		}
	}

	if c.dispatcher != nil {
		c.dispatcher.Dispatch(Notification{
			Kind:      NotificationError,
			Title:     "Command failed",
			Body:      cmd.Command,
			SessionID: s.ID,
			NoteID:    noteID,
			Snippets:  snippets,
			Timestamp: now,
		})
	}
}

// additionalError records a further failing command within the same
// ErrorPending run. A repeat of an already-seen fingerprint just appends
// the entry (spec.md §4.7.3: "repeated identical failures do not
// re-notify"); a distinct new fingerprint goes through enterErrorPending
// so it gets its own error note and notification.
func (c *Correlator) additionalError(s *Session, cmd CommandEntry, stderr string, now time.Time) {
	normalized := NormalizeErrorMessage(firstLine(stderr, cmd.Command))
	fp := Fingerprint(normalized)

	for _, e := range s.Errors {
		if Fingerprint(e.Normalized) == fp {
			s.appendError(ErrorEntry{Message: cmd.Command, Normalized: normalized, Source: "exit_code", Timestamp: now, Stderr: stderr})
			return
		}
	}

	c.enterErrorPending(s, cmd, stderr, now)
}

// synthesizeErrorNote builds the error note persisted immediately on
// Idle->ErrorPending (and on each new fingerprint within an ErrorPending
// run), so a failure surfaces a note even if it is never resolved
// (spec.md §4.7.3/§4.7.4 together guarantee this).
func synthesizeErrorNote(cmd CommandEntry, stderr string, now time.Time) note.Note {
	var body strings.Builder
	fmt.Fprintf(&body, "## Error\n\n```\n%s\n```\n", cmd.Command)
	if stderr != "" {
		fmt.Fprintf(&body, "\n```\n%s\n```\n", stderr)
	}

	tags := coarseTags(cmd.Command)
	tags = append(tags, "auto-captured", "error")

	return note.Note{
		Title:     "Auto-captured error: " + truncateTitle(cmd.Command),
		Body:      body.String(),
		Tags:      note.NormalizeTags(tags),
		Author:    note.Author{Name: "fukura-daemon"},
		Privacy:   note.PrivacyPrivate,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// resolve synthesizes a resolution note from the session's last failing
// run and clears the ErrorPending flags (spec.md §4.7.3/§4.7.4).
func (c *Correlator) resolve(s *Session, now time.Time) {
	failing := s.LastErrorCommand
	s.LastErrorCommand = ""
	s.ResolutionInProgress = false
	if failing == "" || c.repo == nil {
		return
	}

	commands := s.lastN(10)
	n := synthesizeResolutionNote(failing, commands, now)

	rec, err := c.repo.StoreNote(n)
	if err != nil {
		L_warn("correlator: failed to store resolution note", "error", err)
		return
	}
	if c.metrics != nil {
		c.metrics.NotesStored.Inc()
		c.metrics.ResolutionsSynthesized.Inc()
	}

	if c.dispatcher != nil {
		c.dispatcher.Dispatch(Notification{
			Kind:      NotificationSolution,
			Title:     "Resolved: " + failing,
			Body:      n.Title,
			SessionID: s.ID,
			NoteID:    rec.ObjectID,
			Timestamp: now,
		})
	}
}

// synthesizeResolutionNote builds a note from the commands that led to a
// resolution: the failing command becomes the "Error" section, everything
// after it up to the successful one becomes "Solution steps" (spec.md
// §4.7.4).
func synthesizeResolutionNote(failingCommand string, commands []CommandEntry, now time.Time) note.Note {
	var steps []string
	seenFailure := false
	for _, c := range commands {
		if c.Command == failingCommand && !seenFailure {
			seenFailure = true
			continue
		}
		if seenFailure {
			steps = append(steps, c.Command)
		}
	}

	var body strings.Builder
	fmt.Fprintf(&body, "## Error\n\n```\n%s\n```\n\n## Solution\n\n", failingCommand)
	if len(steps) == 0 {
		body.WriteString("Resolved without an intermediate command captured.\n")
	} else {
		for _, step := range steps {
			fmt.Fprintf(&body, "- `%s`\n", step)
		}
	}

	tags := coarseTags(failingCommand)
	tags = append(tags, "auto-solved", "resolution")

	return note.Note{
		Title:     "Auto-captured: " + truncateTitle(failingCommand),
		Body:      body.String(),
		Tags:      note.NormalizeTags(tags),
		Author:    note.Author{Name: "fukura-daemon"},
		Privacy:   note.PrivacyPrivate,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func truncateTitle(s string) string {
	const max = 72
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func firstLine(stderr, fallback string) string {
	if stderr == "" {
		return fallback
	}
	if idx := strings.IndexByte(stderr, '\n'); idx >= 0 {
		return stderr[:idx]
	}
	return stderr
}

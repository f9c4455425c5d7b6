// Package daemon implements the capture daemon of spec.md §4.7: a session
// tracker, IPC server, error/success correlator, pattern store, and
// notification dispatcher multiplexed on one cooperative event loop.
// Session/session-table shape follows the "shared state behind one
// lock, tasks as goroutines over channels" idiom used elsewhere in this
// repository's scheduler.
package daemon

import (
	"strings"
	"time"
)

// CommandEntry is one shell command observed within a session (spec.md §3).
type CommandEntry struct {
	Command     string
	ExitCode    *int
	Timestamp   time.Time
	WorkingDir  string
}

// ErrorEntry is one captured error/stderr observation (spec.md §3).
type ErrorEntry struct {
	Message    string
	Normalized string
	Source     string
	Timestamp  time.Time
	Stderr     string
}

// Session is the daemon-side per-shell-session record (spec.md §3).
type Session struct {
	ID                   string
	StartTime            time.Time
	LastActivity         time.Time
	Commands             []CommandEntry
	Errors               []ErrorEntry
	WorkingDirectory     string
	GitBranch            string
	GitStatus            string
	EnvSnapshot          map[string]string
	LastErrorCommand     string
	ResolutionInProgress bool
}

// maxCommandHistory bounds the "commands" sequence per session (spec.md
// §3 calls it "bounded"); resolution-note synthesis only ever needs the
// last 10 (spec.md §4.7.3), so keep a modest multiple for auto-note bodies.
const maxCommandHistory = 200

func newSession(id, workingDir string, env map[string]string, now time.Time) *Session {
	return &Session{
		ID:               id,
		StartTime:        now,
		LastActivity:     now,
		WorkingDirectory: workingDir,
		EnvSnapshot:      env,
	}
}

// appendCommand records a command entry, bounding history length and
// bumping LastActivity (spec.md §3 invariant: monotonically non-decreasing).
func (s *Session) appendCommand(entry CommandEntry) {
	s.Commands = append(s.Commands, entry)
	if len(s.Commands) > maxCommandHistory {
		s.Commands = s.Commands[len(s.Commands)-maxCommandHistory:]
	}
	if entry.Timestamp.After(s.LastActivity) {
		s.LastActivity = entry.Timestamp
	}
}

func (s *Session) appendError(entry ErrorEntry) {
	s.Errors = append(s.Errors, entry)
}

// hasFailingCommand reports whether any recorded command exited non-zero.
func (s *Session) hasFailingCommand() bool {
	for _, c := range s.Commands {
		if c.ExitCode != nil && *c.ExitCode != 0 {
			return true
		}
	}
	return false
}

// lastN returns up to n most recent commands, oldest first.
func (s *Session) lastN(n int) []CommandEntry {
	if n >= len(s.Commands) {
		return s.Commands
	}
	return s.Commands[len(s.Commands)-n:]
}

// coarseTags derives tool tags from substring heuristics on a command
// string (spec.md §4.7.3: "cargo|rust"→rust, "npm|node"→nodejs, etc.).
func coarseTags(command string) []string {
	lower := strings.ToLower(command)
	var tags []string
	add := func(tag string) {
		for _, t := range tags {
			if t == tag {
				return
			}
		}
		tags = append(tags, tag)
	}
	switch {
	case strings.Contains(lower, "cargo") || strings.Contains(lower, "rust"):
		add("rust")
	}
	switch {
	case strings.Contains(lower, "npm") || strings.Contains(lower, "node"):
		add("nodejs")
	}
	if strings.Contains(lower, "docker") {
		add("docker")
	}
	if strings.Contains(lower, "git") {
		add("git")
	}
	switch {
	case strings.Contains(lower, "python") || strings.Contains(lower, "pip"):
		add("python")
	}
	return tags
}

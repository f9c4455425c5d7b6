// Package browseropen opens a file or URL in the OS default handler — not
// browser automation, just the small "xdg-open"/"open"/"start" shim
// spec.md §1 lists as an external collaborator ("browser-opening
// helper"), trimmed to the handful of commands that matter on the
// platforms Go itself targets.
package browseropen

import (
	"fmt"
	"os/exec"
	"runtime"

	. "github.com/fukura-dev/fukura/internal/logging"
)

// ErrNoHandler is returned when no strategy could launch target.
type ErrNoHandler struct{ Target string }

func (e *ErrNoHandler) Error() string {
	return fmt.Sprintf("could not open browser, please open manually: %s", e.Target)
}

// strategy returns the command+args to try for one candidate opener.
type strategy struct {
	name string
	args func(target string) (string, []string)
}

func strategiesForOS() []strategy {
	switch runtime.GOOS {
	case "windows":
		return []strategy{
			{"start", func(t string) (string, []string) { return "cmd", []string{"/c", "start", "", t} }},
		}
	case "darwin":
		return []strategy{
			{"open", func(t string) (string, []string) { return "open", []string{t} }},
		}
	default:
		return []strategy{
			{"wslview", func(t string) (string, []string) { return "wslview", []string{t} }},
			{"xdg-open", func(t string) (string, []string) { return "xdg-open", []string{t} }},
		}
	}
}

// Open launches target (a file path or URL) in the platform's default
// handler, trying each strategy in order until one succeeds.
func Open(target string) error {
	for _, s := range strategiesForOS() {
		bin, args := s.args(target)
		if _, err := exec.LookPath(bin); err != nil {
			continue
		}
		cmd := exec.Command(bin, args...)
		if err := cmd.Start(); err != nil {
			L_debug("browseropen: strategy failed to start", "strategy", s.name, "error", err)
			continue
		}
		// Detach: don't wait for the browser process to exit.
		go func() { _ = cmd.Wait() }()
		L_debug("browseropen: opened via strategy", "strategy", s.name, "target", target)
		return nil
	}
	return &ErrNoHandler{Target: target}
}

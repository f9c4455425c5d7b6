// Notification dispatcher: spec.md §4.7.7/§2's "Notification Dispatcher"
// component formats and submits summaries; actual OS-native delivery is
// an external collaborator (spec.md §1) supplied by the CLI/TUI adapter
// via the Notifier interface. The websocket live-tail stream is a
// SPEC_FULL.md supplement giving the TUI a push channel.
package daemon

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fukura-dev/fukura/internal/config"
	. "github.com/fukura-dev/fukura/internal/logging"
)

// NotificationKind distinguishes the two triggers spec.md §4.7.7/notification.toml
// gate independently: show_on_error and show_on_solution_found.
type NotificationKind string

const (
	NotificationError    NotificationKind = "error"
	NotificationSolution NotificationKind = "solution"
)

// Notification is one formatted summary handed to the external notifier
// and/or broadcast to live TUI tails.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	SessionID string           `json:"session_id"`
	NoteID    string           `json:"note_id,omitempty"`
	Snippets  []string         `json:"snippets,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Notifier submits a formatted notification to an OS-native or other
// external delivery mechanism. The daemon core never sends notifications
// itself (spec.md §1, "OS-native notification dispatch" is out of core
// scope) — it only formats and calls this interface.
type Notifier interface {
	Notify(Notification) error
}

// NoopNotifier discards notifications; used when no adapter is wired.
type NoopNotifier struct{}

func (NoopNotifier) Notify(Notification) error { return nil }

// Dispatcher gates notifications on notification.toml, hands them to a
// Notifier, and fans them out to any connected websocket tail clients.
type Dispatcher struct {
	notifier Notifier
	hub      *tailHub
	mu       sync.RWMutex
	cfg      *config.NotificationConfig
}

// NewDispatcher builds a Dispatcher. notifier may be nil (defaults to
// NoopNotifier).
func NewDispatcher(notifier Notifier, cfg *config.NotificationConfig) *Dispatcher {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	if cfg == nil {
		cfg = config.DefaultNotificationConfig()
	}
	return &Dispatcher{notifier: notifier, hub: newTailHub(), cfg: cfg}
}

// SetConfig swaps the notification gating config, used by the config
// hot-reload watcher.
func (d *Dispatcher) SetConfig(cfg *config.NotificationConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg = cfg
}

func (d *Dispatcher) gate(kind NotificationKind) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.cfg.Enabled {
		return false
	}
	switch kind {
	case NotificationError:
		return d.cfg.ShowOnError
	case NotificationSolution:
		return d.cfg.ShowOnSolutionFound
	default:
		return true
	}
}

// Dispatch formats n and submits it, if notification.toml gating allows,
// then always broadcasts it to live tail subscribers so the TUI can show
// activity even with OS notifications disabled.
func (d *Dispatcher) Dispatch(n Notification) {
	d.hub.broadcast(n)

	if !d.gate(n.Kind) {
		return
	}
	if err := d.notifier.Notify(n); err != nil {
		L_warn("daemon: notifier failed", "error", err, "kind", n.Kind)
	}
}

// ServeTail upgrades an HTTP connection to a websocket tail of every
// dispatched notification, used by internal/httpapi.
func (d *Dispatcher) ServeTail(conn *websocket.Conn) {
	d.hub.register(conn)
}

// tailHub fans out notifications to connected websocket clients.
type tailHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newTailHub() *tailHub {
	return &tailHub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *tailHub) register(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *tailHub) broadcast(n Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		L_warn("daemon: failed to marshal notification for tail", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

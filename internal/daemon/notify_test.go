package daemon

import (
	"errors"
	"testing"
	"time"

	"github.com/fukura-dev/fukura/internal/config"
)

type recordingNotifier struct {
	notifications []Notification
	err           error
}

func (r *recordingNotifier) Notify(n Notification) error {
	r.notifications = append(r.notifications, n)
	return r.err
}

func TestDispatcherGateRespectsGlobalEnabled(t *testing.T) {
	d := NewDispatcher(nil, &config.NotificationConfig{Enabled: false, ShowOnError: true, ShowOnSolutionFound: true})
	if d.gate(NotificationError) {
		t.Fatal("expected gate to reject when Enabled is false")
	}
}

func TestDispatcherGateRespectsPerKindFlags(t *testing.T) {
	d := NewDispatcher(nil, &config.NotificationConfig{Enabled: true, ShowOnError: false, ShowOnSolutionFound: true})
	if d.gate(NotificationError) {
		t.Fatal("expected error notifications gated off")
	}
	if !d.gate(NotificationSolution) {
		t.Fatal("expected solution notifications gated on")
	}
}

func TestDispatchCallsNotifierWhenGated(t *testing.T) {
	notifier := &recordingNotifier{}
	d := NewDispatcher(notifier, config.DefaultNotificationConfig())

	d.Dispatch(Notification{Kind: NotificationError, Title: "boom", Timestamp: time.Now()})

	if len(notifier.notifications) != 1 {
		t.Fatalf("expected 1 notification delivered, got %d", len(notifier.notifications))
	}
}

func TestDispatchSkipsNotifierWhenDisabled(t *testing.T) {
	notifier := &recordingNotifier{}
	d := NewDispatcher(notifier, &config.NotificationConfig{Enabled: false})

	d.Dispatch(Notification{Kind: NotificationError, Timestamp: time.Now()})

	if len(notifier.notifications) != 0 {
		t.Fatalf("expected no notifications delivered, got %d", len(notifier.notifications))
	}
}

func TestDispatchToleratesNotifierError(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("delivery failed")}
	d := NewDispatcher(notifier, config.DefaultNotificationConfig())

	d.Dispatch(Notification{Kind: NotificationError, Timestamp: time.Now()})
}

func TestSetConfigSwapsGating(t *testing.T) {
	d := NewDispatcher(nil, &config.NotificationConfig{Enabled: false})
	if d.gate(NotificationError) {
		t.Fatal("expected initially gated off")
	}

	d.SetConfig(&config.NotificationConfig{Enabled: true, ShowOnError: true})
	if !d.gate(NotificationError) {
		t.Fatal("expected gate to pick up new config")
	}
}

func TestTailHubBroadcastDeliversToRegisteredClient(t *testing.T) {
	hub := newTailHub()
	if hub.clients == nil {
		t.Fatal("expected clients map to be initialized")
	}
	// broadcast with no clients registered must not panic
	hub.broadcast(Notification{Kind: NotificationError, Timestamp: time.Now()})
}

package supervisor

import (
	"testing"
)

func TestCircularBufferWrapsAndOrders(t *testing.T) {
	b := NewCircularBuffer(3)
	b.Write("a")
	b.Write("b")
	b.Write("c")
	b.Write("d") // evicts "a"

	got := b.Lines()
	want := []string{"b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestCircularBufferBelowCapacity(t *testing.T) {
	b := NewCircularBuffer(5)
	b.Write("only")
	got := b.Lines()
	if len(got) != 1 || got[0] != "only" {
		t.Fatalf("unexpected lines: %v", got)
	}
}

func TestCircularBufferReset(t *testing.T) {
	b := NewCircularBuffer(2)
	b.Write("x")
	b.Write("y")
	b.Reset()
	if len(b.Lines()) != 0 {
		t.Fatalf("expected empty buffer after reset, got %v", b.Lines())
	}
}

func TestSaveAndLoadState(t *testing.T) {
	dir := t.TempDir()
	sup := New(dir)
	sup.state.PID = 1234
	sup.state.DaemonPID = 5678
	sup.saveState()

	loaded, err := LoadState(dir)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if loaded.PID != 1234 || loaded.DaemonPID != 5678 {
		t.Fatalf("unexpected loaded state: %+v", loaded)
	}
}

func TestLoadStateMissingFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadState(dir); err == nil {
		t.Fatal("expected an error loading nonexistent state file")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	sup := New(t.TempDir())
	sup.Stop()
	sup.Stop() // must not panic or double-close stopCh
	select {
	case <-sup.stopCh:
	default:
		t.Fatal("expected stopCh to be closed after Stop")
	}
}

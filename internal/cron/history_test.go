package cron

import (
	"strings"
	"testing"
	"time"
)

func TestHistoryLogAndGetRuns(t *testing.T) {
	h := NewHistoryManager(t.TempDir())
	start := time.Now()
	entry := CreateRunEntry(start, time.Second, StatusOK, "pushed note abc123", "")
	if err := h.LogRun("job-1", entry); err != nil {
		t.Fatalf("LogRun: %v", err)
	}
	entry2 := CreateRunEntry(start.Add(time.Minute), 2*time.Second, StatusError, "", "remote unreachable")
	if err := h.LogRun("job-1", entry2); err != nil {
		t.Fatalf("LogRun: %v", err)
	}

	runs, err := h.GetRuns("job-1", 10)
	if err != nil {
		t.Fatalf("GetRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Status != StatusError {
		t.Fatalf("expected most recent run first, got %+v", runs[0])
	}
}

func TestHistoryGetRunsMissingFile(t *testing.T) {
	h := NewHistoryManager(t.TempDir())
	runs, err := h.GetRuns("nonexistent", 10)
	if err != nil {
		t.Fatalf("expected no error for missing history, got %v", err)
	}
	if runs != nil {
		t.Fatalf("expected nil runs, got %v", runs)
	}
}

func TestHistoryRecentRunsLimit(t *testing.T) {
	h := NewHistoryManager(t.TempDir())
	for i := 0; i < 15; i++ {
		entry := CreateRunEntry(time.Now(), time.Millisecond, StatusOK, "run", "")
		if err := h.LogRun("job-2", entry); err != nil {
			t.Fatalf("LogRun: %v", err)
		}
	}
	runs, err := h.GetRecentRuns("job-2")
	if err != nil {
		t.Fatalf("GetRecentRuns: %v", err)
	}
	if len(runs) != 10 {
		t.Fatalf("expected 10 recent runs, got %d", len(runs))
	}
}

func TestTruncateSummaryLeavesShortTextAlone(t *testing.T) {
	short := "pushed note"
	if TruncateSummary(short) != short {
		t.Fatalf("expected short summary unchanged")
	}
}

func TestTruncateSummaryTruncatesLongText(t *testing.T) {
	long := strings.Repeat("a", MaxSummaryChars+100)
	got := TruncateSummary(long)
	if len(got) != MaxSummaryChars {
		t.Fatalf("expected truncated length %d, got %d", MaxSummaryChars, len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncation ellipsis, got suffix %q", got[len(got)-3:])
	}
}

func TestHistoryDeleteHistory(t *testing.T) {
	h := NewHistoryManager(t.TempDir())
	entry := CreateRunEntry(time.Now(), time.Millisecond, StatusOK, "run", "")
	if err := h.LogRun("job-3", entry); err != nil {
		t.Fatalf("LogRun: %v", err)
	}
	if err := h.DeleteHistory("job-3"); err != nil {
		t.Fatalf("DeleteHistory: %v", err)
	}
	runs, err := h.GetRuns("job-3", 10)
	if err != nil {
		t.Fatalf("GetRuns after delete: %v", err)
	}
	if runs != nil {
		t.Fatalf("expected no runs after delete, got %v", runs)
	}
}

package status

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestManager_ReportDeliversToSubscribers(t *testing.T) {
	m, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer m.Close()

	var got []Message
	m.Subscribe(func(msg Message) {
		got = append(got, msg)
	})

	m.Report(SeverityWarning, "compliance limit reached")

	if len(got) != 1 {
		t.Fatalf("expected 1 delivered message, got %d", len(got))
	}
	if got[0].Severity != SeverityWarning {
		t.Errorf("Severity = %q, want %q", got[0].Severity, SeverityWarning)
	}
	if got[0].Text != "compliance limit reached" {
		t.Errorf("Text = %q", got[0].Text)
	}
}

func TestManager_Last(t *testing.T) {
	m, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer m.Close()

	if _, ok := m.Last(); ok {
		t.Error("expected no last message before any report")
	}

	m.Info("profile %q loaded", "sample-7")
	m.Error("serial read failed")

	last, ok := m.Last()
	if !ok {
		t.Fatal("expected a last message")
	}
	if last.Severity != SeverityError {
		t.Errorf("last Severity = %q, want %q", last.Severity, SeverityError)
	}
}

func TestManager_SessionLogFile(t *testing.T) {
	dir := t.TempDir()

	m, err := New(Options{SessionLogDir: dir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	m.Report(SeverityInfo, "spectrometer connected")
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 session log, got %d", len(entries))
	}

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "[INFO] spectrometer connected") {
		t.Errorf("session log missing entry, got: %s", data)
	}
}

func TestManager_PrunesOldLogs(t *testing.T) {
	dir := t.TempDir()

	oldLog := filepath.Join(dir, sessionFilePrefix+"2020-01-01_00-00-00.log")
	if err := os.WriteFile(oldLog, []byte("stale\n"), 0640); err != nil {
		t.Fatalf("writing old log: %v", err)
	}
	oldTime := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(oldLog, oldTime, oldTime); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	keepLog := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(keepLog, []byte("keep\n"), 0640); err != nil {
		t.Fatalf("writing unrelated file: %v", err)
	}
	if err := os.Chtimes(keepLog, oldTime, oldTime); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	m, err := New(Options{SessionLogDir: dir, RetentionDays: 14})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer m.Close()

	if _, err := os.Stat(oldLog); !os.IsNotExist(err) {
		t.Error("expected expired session log to be pruned")
	}
	if _, err := os.Stat(keepLog); err != nil {
		t.Error("expected unrelated file to survive pruning")
	}
}

func TestManager_ConcurrentReports(t *testing.T) {
	m, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer m.Close()

	var mu sync.Mutex
	count := 0
	m.Subscribe(func(Message) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Report(SeverityInfo, "tick")
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if count != 50 {
		t.Errorf("delivered %d messages, want 50", count)
	}
}

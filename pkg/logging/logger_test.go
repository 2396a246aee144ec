package logging

import (
	"os"
	"strings"
	"sync"
	"testing"
)

// setupTestDir points the package at a temp log directory and resets the
// session state, restoring everything on cleanup.
func setupTestDir(t *testing.T) {
	t.Helper()

	tempDir := t.TempDir()

	origLogDir := logDir
	origInitErr := initErr
	origSessionID := sessionID

	logDir = tempDir
	initErr = nil
	initOnce = sync.Once{}
	sessionID = ""
	sessionIDOnce = sync.Once{}

	// The init func must see the already-existing temp dir, not recreate
	// the home-based one.
	initOnce.Do(func() {})

	t.Cleanup(func() {
		logDir = origLogDir
		initErr = origInitErr
		// sync.Once values cannot be copied for save/restore; a fresh
		// zero Once is equivalent because every test re-runs this setup.
		initOnce = sync.Once{}
		sessionID = origSessionID
		sessionIDOnce = sync.Once{}
	})
}

func TestLoggerWritesLeveledEntries(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("watcher")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer logger.Close()

	logger.Infof("starting batch of %d regions", 3)
	logger.Warnf("replaced existing artifact")
	logger.Errorf("download failed: %s", "timeout")

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(logger.LogPath())
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	content := string(data)

	for _, want := range []string{
		"[watcher] [INFO] starting batch of 3 regions",
		"[watcher] [WARN] replaced existing artifact",
		"[watcher] [ERROR] download failed: timeout",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("log file missing %q\ngot:\n%s", want, content)
		}
	}
}

func TestLoggersShareSessionFile(t *testing.T) {
	setupTestDir(t)

	first, err := NewLogger("portal")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer first.Close()

	second, err := NewLogger("batch")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer second.Close()

	if first.SessionID() != second.SessionID() {
		t.Errorf("session IDs differ: %s vs %s", first.SessionID(), second.SessionID())
	}
	if first.LogPath() != second.LogPath() {
		t.Errorf("log paths differ: %s vs %s", first.LogPath(), second.LogPath())
	}
}

func TestNewDiscardNeverFails(t *testing.T) {
	logger := NewDiscard("test")
	logger.Infof("dropped")
	logger.Errorf("also dropped")
	if logger.LogPath() != "" {
		t.Errorf("discard logger should have no log path, got %s", logger.LogPath())
	}
}

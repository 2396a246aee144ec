// Package watcher converts an asynchronous, browser-initiated file download
// into a deterministically named artifact on disk.
//
// Browser downloads give no completion callback through the automation
// surface, so the watcher snapshots the download directory before the export
// is triggered, then polls for new files until one qualifies as a finished
// spreadsheet. Qualification is purely name-based: content length cannot be
// trusted mid-transfer.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/entrhq/repscollect/pkg/logging"
)

var (
	// ErrDownloadTimeout indicates no qualifying file appeared before the
	// watch timeout. A silently failed export is indistinguishable from a
	// slow one; both surface as this error.
	ErrDownloadTimeout = errors.New("download did not complete within timeout")

	// ErrRename indicates the qualifying file could not be moved to its
	// final name.
	ErrRename = errors.New("failed to rename downloaded file")
)

// Accepted spreadsheet extensions, compared case-insensitively.
var acceptedExtensions = map[string]bool{
	".xls":  true,
	".xlsx": true,
}

// In-progress download suffixes used by the common browser engines.
var partialSuffixes = []string{".crdownload", ".part", ".tmp", ".download"}

// CaptureOptions configures a single watch cycle.
type CaptureOptions struct {
	// Timeout bounds the whole wait. Zero means DefaultTimeout.
	Timeout time.Duration

	// PollInterval is the delay between directory scans. Zero means
	// DefaultPollInterval.
	PollInterval time.Duration
}

const (
	// DefaultTimeout is the default bound on one watch cycle.
	DefaultTimeout = 30 * time.Second

	// DefaultPollInterval is the default delay between directory scans.
	DefaultPollInterval = 1 * time.Second
)

// Capture is the successful result of one watch cycle.
type Capture struct {
	// SourceName is the filename the download arrived under.
	SourceName string

	// Path is the final artifact path after renaming.
	Path string

	// Replaced reports whether a pre-existing artifact with the same name
	// was deleted before the rename.
	Replaced bool
}

// Watcher observes one download directory. It owns no goroutines; every
// operation runs on the caller's thread and returns within its timeout.
type Watcher struct {
	dir    string
	logger *logging.Logger
}

// New creates a watcher for the given directory, creating it (and any
// missing parents) if absent. Setup is idempotent.
func New(dir string, logger *logging.Logger) (*Watcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("download directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve download directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0750); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}
	return &Watcher{dir: abs, logger: logger}, nil
}

// Dir returns the absolute path of the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Snapshot returns the set of filenames currently in the directory.
func (w *Watcher) Snapshot() (map[string]bool, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list download directory: %w", err)
	}
	names := make(map[string]bool, len(entries))
	for _, entry := range entries {
		names[entry.Name()] = true
	}
	return names, nil
}

// CaptureAndRename waits for a new qualifying file to appear and renames it
// to <baseName><original extension> inside the watched directory.
//
// The caller supplies the baseline snapshot, taken with Snapshot immediately
// before triggering the export, so a download already in flight when polling
// begins is still attributed correctly. Polling stops at the first
// qualifying file; the full timeout is only consumed on failure.
//
// If several new qualifying files appear in the same poll tick, the
// lexicographically smallest name wins. Any other new files are left
// untouched: the watcher mutates at most the single chosen file and,
// conditionally, a pre-existing file with the target name.
func (w *Watcher) CaptureAndRename(ctx context.Context, baseName string, before map[string]bool, opts CaptureOptions) (*Capture, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	deadline := time.Now().Add(opts.Timeout)
	for {
		current, err := w.Snapshot()
		if err != nil {
			return nil, err
		}

		if name := pickQualifying(current, before); name != "" {
			return w.rename(name, baseName)
		}

		if !time.Now().Add(opts.PollInterval).Before(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.PollInterval):
		}
	}

	w.logger.Errorf("No download detected for %q after %s", baseName, opts.Timeout)
	return nil, fmt.Errorf("%w: no new file for %q", ErrDownloadTimeout, baseName)
}

// rename moves the captured file onto its final name, deleting a
// pre-existing target first so the directory never holds stale and fresh
// copies side by side.
func (w *Watcher) rename(sourceName, baseName string) (*Capture, error) {
	sourcePath := filepath.Join(w.dir, sourceName)
	targetName := baseName + strings.ToLower(filepath.Ext(sourceName))
	targetPath := filepath.Join(w.dir, targetName)

	replaced := false
	if _, err := os.Stat(targetPath); err == nil {
		if err := os.Remove(targetPath); err != nil {
			return nil, fmt.Errorf("%w: removing existing %q: %v", ErrRename, targetName, err)
		}
		w.logger.Warnf("Replaced existing artifact: %s", targetName)
		replaced = true
	}

	if err := os.Rename(sourcePath, targetPath); err != nil {
		return nil, fmt.Errorf("%w: %q -> %q: %v", ErrRename, sourceName, targetName, err)
	}

	w.logger.Infof("Renamed download: %s -> %s", sourceName, targetName)
	return &Capture{
		SourceName: sourceName,
		Path:       targetPath,
		Replaced:   replaced,
	}, nil
}

// pickQualifying returns the winning new qualifying filename, or "" when
// none exists yet.
func pickQualifying(current, before map[string]bool) string {
	var candidates []string
	for name := range current {
		if before[name] {
			continue
		}
		if Qualifies(name) {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	// Deterministic tie-break when a poll tick surfaces several new files.
	sort.Strings(candidates)
	return candidates[0]
}

// Qualifies reports whether a filename looks like a finished spreadsheet
// download: accepted extension, no temporary-file marker prefix, no
// in-progress suffix.
func Qualifies(name string) bool {
	if strings.HasPrefix(name, "~") {
		return false
	}
	lower := strings.ToLower(name)
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return false
		}
	}
	return acceptedExtensions[filepath.Ext(lower)]
}

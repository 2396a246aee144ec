package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/repscollect/pkg/logging"
	"github.com/entrhq/repscollect/pkg/portal"
	"github.com/entrhq/repscollect/pkg/watcher"
)

// fakeNavigator scripts the browser-side collaborator.
type fakeNavigator struct {
	openErr     error
	catalog     []portal.Region
	catalogErr  error
	exportErrs  map[string]error // keyed by region code
	exportCalls []string
}

func (f *fakeNavigator) OpenEntryPoint() error {
	return f.openErr
}

func (f *fakeNavigator) ListRegions() ([]portal.Region, error) {
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return f.catalog, nil
}

func (f *fakeNavigator) SelectRegionAndExport(region portal.Region) error {
	f.exportCalls = append(f.exportCalls, region.Code)
	return f.exportErrs[region.Code]
}

// fakeCapturer scripts the filesystem-side collaborator.
type fakeCapturer struct {
	captureErrs map[string]error // keyed by expected base name
	captures    []string
}

func (f *fakeCapturer) Snapshot() (map[string]bool, error) {
	return map[string]bool{}, nil
}

func (f *fakeCapturer) CaptureAndRename(_ context.Context, baseName string, _ map[string]bool, _ watcher.CaptureOptions) (*watcher.Capture, error) {
	f.captures = append(f.captures, baseName)
	if err := f.captureErrs[baseName]; err != nil {
		return nil, err
	}
	return &watcher.Capture{Path: "/downloads/" + baseName + ".xls"}, nil
}

// releaseCounter tracks session-release invocations.
type releaseCounter struct {
	calls int
}

func (r *releaseCounter) release() error {
	r.calls++
	return nil
}

func testCatalog() []portal.Region {
	return []portal.Region{
		{Code: "91", Name: "Amazonas"},
		{Code: "05", Name: "Antioquia"},
		{Code: "76", Name: "Valle del Cauca"},
	}
}

func newTestOrchestrator(nav Navigator, capturer Capturer, release *releaseCounter, strategy Strategy) *Orchestrator {
	return New(nav, capturer, release.release, Options{
		Strategy:     strategy,
		WatchTimeout: time.Second,
		PollInterval: 10 * time.Millisecond,
	}, logging.NewDiscard("batch"))
}

func TestRunAllSuccess(t *testing.T) {
	nav := &fakeNavigator{catalog: testCatalog()}
	capturer := &fakeCapturer{}
	release := &releaseCounter{}

	o := newTestOrchestrator(nav, capturer, release, NewSerialStrategy(0))
	summary, err := o.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Successful)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 3, summary.Attempted())
	assert.Equal(t, []string{"91", "05", "76"}, nav.exportCalls)
	assert.Equal(t, []string{"Amazonas", "Antioquia", "Valle del Cauca"}, capturer.captures)
	assert.Equal(t, 1, release.calls)
}

func TestRunAllIsolatesRegionFailures(t *testing.T) {
	exportErr := errors.New("grid never populated")
	nav := &fakeNavigator{
		catalog:    testCatalog(),
		exportErrs: map[string]error{"05": exportErr},
	}
	capturer := &fakeCapturer{}
	release := &releaseCounter{}

	var sleeps []time.Duration
	strategy := NewSerialStrategy(3 * time.Second)
	strategy.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	o := newTestOrchestrator(nav, capturer, release, strategy)
	summary, err := o.RunAll(context.Background())
	require.NoError(t, err)

	// All three regions attempted despite the middle failure.
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, summary.Attempted(), summary.Successful+summary.Failed)
	assert.Len(t, nav.exportCalls, 3)

	failed := summary.Outcomes[1]
	assert.False(t, failed.Succeeded)
	assert.ErrorIs(t, failed.Err, exportErr)

	// Pacing between attempts but not after the last.
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, sleeps)
	assert.Equal(t, 1, release.calls)
}

func TestRunAllCountsDownloadTimeouts(t *testing.T) {
	nav := &fakeNavigator{catalog: testCatalog()}
	capturer := &fakeCapturer{
		captureErrs: map[string]error{"Amazonas": watcher.ErrDownloadTimeout},
	}
	release := &releaseCounter{}

	o := newTestOrchestrator(nav, capturer, release, NewSerialStrategy(0))
	summary, err := o.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	assert.ErrorIs(t, summary.Outcomes[0].Err, watcher.ErrDownloadTimeout)
}

func TestRunAbortsWhenNavigationFails(t *testing.T) {
	nav := &fakeNavigator{openErr: portal.ErrNavigation}
	capturer := &fakeCapturer{}
	release := &releaseCounter{}

	o := newTestOrchestrator(nav, capturer, release, NewSerialStrategy(0))
	_, err := o.RunAll(context.Background())
	assert.ErrorIs(t, err, portal.ErrNavigation)

	assert.Empty(t, nav.exportCalls)
	assert.Equal(t, 1, release.calls)
}

func TestRunAbortsOnEmptyCatalog(t *testing.T) {
	nav := &fakeNavigator{catalogErr: portal.ErrCatalogEmpty}
	capturer := &fakeCapturer{}
	release := &releaseCounter{}

	o := newTestOrchestrator(nav, capturer, release, NewSerialStrategy(0))
	_, err := o.RunAll(context.Background())
	assert.ErrorIs(t, err, portal.ErrCatalogEmpty)
	assert.Equal(t, 1, release.calls)
}

func TestRunNamedFiltersCatalog(t *testing.T) {
	nav := &fakeNavigator{catalog: testCatalog()}
	capturer := &fakeCapturer{}
	release := &releaseCounter{}

	o := newTestOrchestrator(nav, capturer, release, NewSerialStrategy(0))
	summary, err := o.RunNamed(context.Background(), []string{"antioquia", "AMAZONAS"})
	require.NoError(t, err)

	// Catalog order wins over request order.
	assert.Equal(t, []string{"91", "05"}, nav.exportCalls)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, release.calls)
}

func TestRunNamedNoMatchesAbortsBeforeAnyAttempt(t *testing.T) {
	nav := &fakeNavigator{catalog: testCatalog()}
	capturer := &fakeCapturer{}
	release := &releaseCounter{}

	o := newTestOrchestrator(nav, capturer, release, NewSerialStrategy(0))
	_, err := o.RunNamed(context.Background(), []string{"Narnia"})
	assert.ErrorIs(t, err, ErrNoRegionsMatched)

	assert.Empty(t, nav.exportCalls)
	assert.Empty(t, capturer.captures)
	assert.Equal(t, 1, release.calls)
}

func TestRunNamedEmptyListFailsWithoutSession(t *testing.T) {
	release := &releaseCounter{}
	o := newTestOrchestrator(&fakeNavigator{}, &fakeCapturer{}, release, NewSerialStrategy(0))

	_, err := o.RunNamed(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoRegionsMatched)
	// No run started, so the session release never ran.
	assert.Equal(t, 0, release.calls)
}

func TestFilterRegions(t *testing.T) {
	catalog := testCatalog()

	tests := []struct {
		name     string
		patterns []string
		want     []string
		wantErr  bool
	}{
		{
			name:     "exact case-insensitive",
			patterns: []string{"valle del cauca"},
			want:     []string{"76"},
		},
		{
			name:     "glob pattern",
			patterns: []string{"a*"},
			want:     []string{"91", "05"},
		},
		{
			name:     "duplicate patterns match once",
			patterns: []string{"Antioquia", "antio*"},
			want:     []string{"05"},
		},
		{
			name:     "no matches",
			patterns: []string{"Narnia"},
			wantErr:  true,
		},
		{
			name:     "only blank patterns",
			patterns: []string{"  ", ""},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, err := filterRegions(catalog, tt.patterns)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrNoRegionsMatched)
				return
			}
			require.NoError(t, err)
			codes := make([]string, 0, len(matched))
			for _, region := range matched {
				codes = append(codes, region.Code)
			}
			assert.Equal(t, tt.want, codes)
		})
	}
}

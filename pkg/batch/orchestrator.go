package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/repscollect/pkg/logging"
	"github.com/entrhq/repscollect/pkg/portal"
	"github.com/entrhq/repscollect/pkg/watcher"
)

// Options configures an orchestrator.
type Options struct {
	// Pacing is the delay between consecutive region attempts.
	Pacing time.Duration

	// WatchTimeout bounds the wait for each download.
	WatchTimeout time.Duration

	// PollInterval is the download-directory scan interval.
	PollInterval time.Duration

	// Strategy overrides the execution strategy. Nil means serial with
	// the configured pacing.
	Strategy Strategy
}

// Orchestrator runs batches of region downloads over one browser session.
type Orchestrator struct {
	nav      Navigator
	capturer Capturer
	release  func() error
	strategy Strategy
	opts     Options
	logger   *logging.Logger
}

// New creates an orchestrator. release frees the browser session; it is
// invoked exactly once per run, on every exit path including aborts.
func New(nav Navigator, capturer Capturer, release func() error, opts Options, logger *logging.Logger) *Orchestrator {
	strategy := opts.Strategy
	if strategy == nil {
		strategy = NewSerialStrategy(opts.Pacing)
	}
	return &Orchestrator{
		nav:      nav,
		capturer: capturer,
		release:  release,
		strategy: strategy,
		opts:     opts,
		logger:   logger,
	}
}

// RunAll downloads every region in the catalog.
func (o *Orchestrator) RunAll(ctx context.Context) (*Summary, error) {
	return o.run(ctx, nil)
}

// RunNamed downloads only the catalog regions whose names match the given
// patterns. If nothing matches, the run aborts after catalog retrieval with
// ErrNoRegionsMatched and zero regions attempted.
func (o *Orchestrator) RunNamed(ctx context.Context, names []string) (*Summary, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no names given", ErrNoRegionsMatched)
	}
	return o.run(ctx, names)
}

// run performs one batch. A nil filter means the full catalog.
func (o *Orchestrator) run(ctx context.Context, filter []string) (summary *Summary, err error) {
	defer func() {
		if releaseErr := o.release(); releaseErr != nil {
			o.logger.Errorf("Failed to release browser session: %v", releaseErr)
		}
	}()

	if err := o.nav.OpenEntryPoint(); err != nil {
		o.logger.Errorf("Could not reach services page: %v", err)
		return nil, err
	}

	catalog, err := o.nav.ListRegions()
	if err != nil {
		o.logger.Errorf("Could not load region catalog: %v", err)
		return nil, err
	}

	regions := catalog
	if filter != nil {
		regions, err = filterRegions(catalog, filter)
		if err != nil {
			o.logger.Errorf("Aborting: %v", err)
			return nil, err
		}
	}

	o.logger.Infof("Starting batch of %d regions", len(regions))

	total := len(regions)
	index := 0
	outcomes := o.strategy.Run(ctx, regions, func(region portal.Region) Outcome {
		index++
		o.logger.Infof("Progress: %d/%d - %s", index, total, region.Name)
		return o.attempt(ctx, region)
	})

	summary = summarize(outcomes)
	o.logger.Infof("Batch complete. Successful: %d, Failed: %d", summary.Successful, summary.Failed)
	return summary, nil
}

// attempt processes a single region. Any stage failure is contained here:
// the outcome records it and the batch moves on.
func (o *Orchestrator) attempt(ctx context.Context, region portal.Region) Outcome {
	before, err := o.capturer.Snapshot()
	if err != nil {
		o.logger.Errorf("Snapshot failed for %s: %v", region.Name, err)
		return Outcome{Region: region, Err: err}
	}

	if err := o.nav.SelectRegionAndExport(region); err != nil {
		o.logger.Errorf("Export failed for %s: %v", region.Name, err)
		return Outcome{Region: region, Err: err}
	}

	capture, err := o.capturer.CaptureAndRename(ctx, region.Name, before, watcher.CaptureOptions{
		Timeout:      o.opts.WatchTimeout,
		PollInterval: o.opts.PollInterval,
	})
	if err != nil {
		o.logger.Errorf("Capture failed for %s: %v", region.Name, err)
		return Outcome{Region: region, Err: err}
	}

	o.logger.Infof("Completed %s -> %s", region.Name, capture.Path)
	return Outcome{
		Region:       region,
		Succeeded:    true,
		ArtifactPath: capture.Path,
	}
}

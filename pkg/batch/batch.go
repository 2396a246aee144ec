// Package batch sequences per-region download attempts: navigate once,
// then for each region trigger an export, capture the resulting file, and
// record the outcome. Failures are isolated per region; only an empty
// catalog or a failed initial navigation aborts a run.
package batch

import (
	"context"
	"errors"

	"github.com/entrhq/repscollect/pkg/portal"
	"github.com/entrhq/repscollect/pkg/watcher"
)

// ErrNoRegionsMatched indicates a filtered run matched nothing in the
// catalog; the run aborts before any region is attempted.
var ErrNoRegionsMatched = errors.New("no catalog regions matched the requested names")

// Navigator is the browser-side collaborator: it walks to the services
// page, reads the region catalog, and triggers per-region exports.
type Navigator interface {
	OpenEntryPoint() error
	ListRegions() ([]portal.Region, error)
	SelectRegionAndExport(region portal.Region) error
}

// Capturer is the filesystem-side collaborator: it snapshots the download
// directory and resolves a triggered export to a named artifact.
type Capturer interface {
	Snapshot() (map[string]bool, error)
	CaptureAndRename(ctx context.Context, baseName string, before map[string]bool, opts watcher.CaptureOptions) (*watcher.Capture, error)
}

// Outcome records the result of one region's attempt. Never mutated after
// creation.
type Outcome struct {
	Region       portal.Region
	Succeeded    bool
	ArtifactPath string
	Err          error
}

// Summary aggregates a whole run.
type Summary struct {
	Outcomes   []Outcome
	Successful int
	Failed     int
}

// Attempted returns how many regions the run attempted.
func (s *Summary) Attempted() int {
	return len(s.Outcomes)
}

func summarize(outcomes []Outcome) *Summary {
	summary := &Summary{Outcomes: outcomes}
	for _, outcome := range outcomes {
		if outcome.Succeeded {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}
	return summary
}

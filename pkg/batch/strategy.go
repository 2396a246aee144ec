package batch

import (
	"context"
	"time"

	"github.com/entrhq/repscollect/pkg/portal"
)

// Strategy decides how the per-region attempts of a run are executed. The
// orchestrator is composed with a strategy instead of being subclassed per
// execution mode; only the serial strategy ships, since the portal misbehaves
// under concurrent sessions.
type Strategy interface {
	Run(ctx context.Context, regions []portal.Region, attempt func(portal.Region) Outcome) []Outcome
}

// SerialStrategy attempts regions one at a time, sleeping a fixed pacing
// interval between attempts. The pause is a deliberate rate-limit toward
// the remote server and is skipped after the final region.
type SerialStrategy struct {
	pacing time.Duration
	sleep  func(time.Duration)
}

// NewSerialStrategy creates a serial strategy with the given pacing.
func NewSerialStrategy(pacing time.Duration) *SerialStrategy {
	return &SerialStrategy{pacing: pacing, sleep: time.Sleep}
}

// Run executes every attempt in order, regardless of individual failures.
// Cancellation stops the run between attempts; regions not reached are not
// counted as attempted.
func (s *SerialStrategy) Run(ctx context.Context, regions []portal.Region, attempt func(portal.Region) Outcome) []Outcome {
	outcomes := make([]Outcome, 0, len(regions))
	for i, region := range regions {
		if ctx.Err() != nil {
			break
		}
		outcomes = append(outcomes, attempt(region))
		if i < len(regions)-1 && s.pacing > 0 {
			s.sleep(s.pacing)
		}
	}
	return outcomes
}

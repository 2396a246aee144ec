package batch

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/entrhq/repscollect/pkg/portal"
)

// filterRegions returns the catalog regions whose names match any of the
// requested patterns, preserving catalog order. Matching is
// case-insensitive and each pattern may be an exact name or a glob
// ("valle*"). A pattern that fails to compile is treated as a literal name.
func filterRegions(catalog []portal.Region, patterns []string) ([]portal.Region, error) {
	matchers := make([]func(string) bool, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		if g, err := glob.Compile(pattern); err == nil {
			matchers = append(matchers, g.Match)
		} else {
			literal := pattern
			matchers = append(matchers, func(name string) bool { return name == literal })
		}
	}
	if len(matchers) == 0 {
		return nil, fmt.Errorf("%w: no usable names given", ErrNoRegionsMatched)
	}

	var matched []portal.Region
	for _, region := range catalog {
		name := strings.ToLower(region.Name)
		for _, match := range matchers {
			if match(name) {
				matched = append(matched, region)
				break
			}
		}
	}
	if len(matched) == 0 {
		return nil, ErrNoRegionsMatched
	}
	return matched, nil
}

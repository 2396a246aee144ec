package portal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrCatalogEmpty indicates the region dropdown yielded no usable entries.
var ErrCatalogEmpty = errors.New("no regions found in catalog")

// Region is one administrative subdivision offered by the portal's filter
// dropdown. The catalog is materialized once per run from the live page and
// never mutated afterwards.
type Region struct {
	// Code is the server-side filter value. Non-empty, unique per catalog.
	Code string

	// Name labels the region and becomes the artifact's base filename.
	Name string
}

// ListRegions reads the department dropdown from the live page and returns
// the ordered catalog.
func (n *Navigator) ListRegions() ([]Region, error) {
	html, err := n.session.InnerHTML(selectorRegionDropdown)
	if err != nil {
		return nil, fmt.Errorf("reading region dropdown: %w", err)
	}

	regions, err := parseRegionOptions(html)
	if err != nil {
		return nil, err
	}

	n.logger.Infof("Found %d regions", len(regions))
	return regions, nil
}

// parseRegionOptions extracts (code, name) pairs from the dropdown's inner
// markup, preserving document order. Placeholder options with blank values
// are skipped.
func parseRegionOptions(html string) ([]Region, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<select>" + html + "</select>"))
	if err != nil {
		return nil, fmt.Errorf("parsing region dropdown markup: %w", err)
	}

	var regions []Region
	doc.Find("option").Each(func(_ int, option *goquery.Selection) {
		value := strings.TrimSpace(option.AttrOr("value", ""))
		if value == "" {
			return
		}
		regions = append(regions, Region{
			Code: value,
			Name: strings.TrimSpace(option.Text()),
		})
	})

	if len(regions) == 0 {
		return nil, ErrCatalogEmpty
	}
	return regions, nil
}

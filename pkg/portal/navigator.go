// Package portal drives the provider registry site from its entry page to
// the searchable services grid, and triggers per-region exports.
//
// The portal is a legacy ASP.NET application: every interactive control has
// a stable generated ID, the registry opens in a new tab behind a login
// gate, and the grid needs a settle delay after postbacks before its export
// control produces the full dataset. All waits are bounded; a step that
// times out reports failure instead of hanging.
package portal

import (
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/repscollect/pkg/browser"
	"github.com/entrhq/repscollect/pkg/logging"
)

var (
	// ErrNavigation indicates the entry-point flow could not reach the
	// services page.
	ErrNavigation = errors.New("failed to navigate to services page")

	// ErrExportTrigger indicates the select/search/export sequence for a
	// region timed out.
	ErrExportTrigger = errors.New("failed to trigger export")
)

// Generated control IDs of the registry application.
const (
	selectorModalDismiss   = `button[data-bs-dismiss="modal"]`
	selectorLoginButton    = `input[value="Ingresar"]`
	selectorRegistryLink   = `a:has-text("Registro Actual")`
	selectorServicesButton = `#_ctl0_ContentPlaceHolder1_btn_servicios_reps`
	selectorRegionDropdown = `#_ctl0_ContentPlaceHolder1_ddsede_departamento`
	selectorSearchButton   = `#_ctl0_ibBuscarHdr`
	selectorResultsGrid    = `#_ctl0_ContentPlaceHolder1_dgServiciosSedes`
	selectorExportButton   = `#_ctl0_ContentPlaceHolder1_ibExcel`
)

// Settle delays matching the portal's postback behavior. Exporting before
// the grid finishes rendering yields a truncated spreadsheet.
const (
	pageSettleDelay      = 2 * time.Second
	selectionSettleDelay = 1 * time.Second
	gridSettleDelay      = 2 * time.Second
)

// gridTimeout is longer than the per-step timeout: the search postback is
// the slowest operation the portal performs.
const gridTimeout = 15 * time.Second

// Navigator performs the fixed click/select/wait sequence against one
// browser session.
type Navigator struct {
	session *browser.Session
	baseURL string
	timeout time.Duration
	logger  *logging.Logger
}

// NewNavigator creates a navigator over an already-launched session.
// timeout bounds each individual UI wait.
func NewNavigator(session *browser.Session, baseURL string, timeout time.Duration, logger *logging.Logger) *Navigator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Navigator{
		session: session,
		baseURL: baseURL,
		timeout: timeout,
		logger:  logger,
	}
}

// OpenEntryPoint walks from the portal entry page to the services search
// page: dismiss the interstitial modal if present, pass the login gate,
// follow the registry link into its new tab, and open the services section.
func (n *Navigator) OpenEntryPoint() error {
	n.logger.Infof("Navigating to portal entry point")
	if err := n.session.Navigate(n.baseURL, browser.NavigateOptions{
		WaitUntil: "load",
		Timeout:   n.timeout,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	time.Sleep(pageSettleDelay)

	// The interstitial announcement modal only appears sometimes.
	if err := n.session.Click(browser.ClickOptions{
		Selector: selectorModalDismiss,
		Timeout:  5 * time.Second,
	}); err != nil {
		n.logger.Debugf("No interstitial modal to dismiss")
	} else {
		n.logger.Infof("Dismissed interstitial modal")
		time.Sleep(selectionSettleDelay)
	}

	steps := []struct {
		name     string
		selector string
	}{
		{"login gate", selectorLoginButton},
		{"registry link", selectorRegistryLink},
	}
	for _, step := range steps {
		if err := n.session.Click(browser.ClickOptions{
			Selector: step.selector,
			Timeout:  n.timeout,
		}); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrNavigation, step.name, err)
		}
		n.logger.Infof("Clicked %s", step.name)
	}

	// The registry link opens the application in a new tab.
	if err := n.session.SwitchToLatestPage(); err != nil {
		return fmt.Errorf("%w: %v", ErrNavigation, err)
	}

	if err := n.session.Click(browser.ClickOptions{
		Selector: selectorServicesButton,
		Timeout:  n.timeout,
	}); err != nil {
		return fmt.Errorf("%w: services section: %v", ErrNavigation, err)
	}
	n.logger.Infof("Opened services section")

	if err := n.session.WaitFor(browser.WaitOptions{
		Selector: selectorRegionDropdown,
		State:    "attached",
		Timeout:  n.timeout,
	}); err != nil {
		return fmt.Errorf("%w: region dropdown never appeared: %v", ErrNavigation, err)
	}

	return nil
}

// SelectRegionAndExport filters the services grid to one region and triggers
// the spreadsheet export. The download itself is observed by the caller
// through the filesystem watcher; this method only causes the side effect.
func (n *Navigator) SelectRegionAndExport(region Region) error {
	n.logger.Infof("Selecting region %s (code %s)", region.Name, region.Code)
	if err := n.session.SelectValue(selectorRegionDropdown, region.Code, n.timeout); err != nil {
		return fmt.Errorf("%w: selecting %s: %v", ErrExportTrigger, region.Name, err)
	}
	time.Sleep(selectionSettleDelay)

	if err := n.session.Click(browser.ClickOptions{
		Selector: selectorSearchButton,
		Timeout:  n.timeout,
	}); err != nil {
		return fmt.Errorf("%w: search for %s: %v", ErrExportTrigger, region.Name, err)
	}
	n.logger.Infof("Search triggered for %s", region.Name)

	if err := n.session.WaitFor(browser.WaitOptions{
		Selector: selectorResultsGrid,
		State:    "attached",
		Timeout:  gridTimeout,
	}); err != nil {
		return fmt.Errorf("%w: results grid for %s: %v", ErrExportTrigger, region.Name, err)
	}
	time.Sleep(gridSettleDelay)

	if err := n.session.Click(browser.ClickOptions{
		Selector: selectorExportButton,
		Timeout:  n.timeout,
	}); err != nil {
		return fmt.Errorf("%w: export for %s: %v", ErrExportTrigger, region.Name, err)
	}
	n.logger.Infof("Export triggered for %s", region.Name)

	return nil
}

// Package main provides the repscollect command, which automates per-region
// exports from the national health-provider registry portal. It drives a
// browser through the portal's navigation flow, captures each exported
// spreadsheet from the download directory, and files it away under the
// region's name.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/entrhq/repscollect/pkg/batch"
	"github.com/entrhq/repscollect/pkg/browser"
	"github.com/entrhq/repscollect/pkg/config"
	"github.com/entrhq/repscollect/pkg/logging"
	"github.com/entrhq/repscollect/pkg/portal"
	"github.com/entrhq/repscollect/pkg/watcher"
)

const version = "0.1.0"

// Config holds the command-line configuration.
type Config struct {
	ConfigPath  string
	DownloadDir string
	BaseURL     string
	Headless    bool
	All         bool
	Regions     string
	Yes         bool
	ShowVersion bool
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Printf("repscollect v%s\n", version)
		return
	}

	settings, err := buildSettings(cfg)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, cfg, settings); err != nil {
		log.Fatalf("Run error: %v", err)
	}
}

// parseFlags parses command line flags.
func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.ConfigPath, "config", "", "Path to YAML settings file (optional)")
	flag.StringVar(&cfg.DownloadDir, "dir", "", "Directory receiving the exported files")
	flag.StringVar(&cfg.BaseURL, "url", "", "Portal entry point URL (default: official registry)")
	flag.BoolVar(&cfg.Headless, "headless", false, "Run the browser without a window")
	flag.BoolVar(&cfg.All, "all", false, "Download every region without showing the menu")
	flag.StringVar(&cfg.Regions, "regions", "", "Comma-separated region names to download without showing the menu")
	flag.BoolVar(&cfg.Yes, "yes", false, "Skip confirmation prompts")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "repscollect - health-provider registry export collector\n\n")
		fmt.Fprintf(os.Stderr, "Usage: repscollect [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  repscollect -dir ./downloads                      # Interactive menu\n")
		fmt.Fprintf(os.Stderr, "  repscollect -dir ./downloads -all -yes            # Every region, no prompts\n")
		fmt.Fprintf(os.Stderr, "  repscollect -dir ./downloads -regions \"Antioquia, Valle del Cauca\"\n")
	}

	flag.Parse()
	return cfg
}

// buildSettings loads the settings file and applies flag overrides.
func buildSettings(cfg *Config) (*config.Settings, error) {
	settings, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}

	if cfg.DownloadDir != "" {
		settings.DownloadDir = cfg.DownloadDir
	}
	if cfg.BaseURL != "" {
		settings.BaseURL = cfg.BaseURL
	}
	if cfg.Headless {
		settings.Headless = true
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// run dispatches between the non-interactive flags and the menu.
func run(ctx context.Context, cfg *Config, settings *config.Settings) error {
	if cfg.All && cfg.Regions != "" {
		return fmt.Errorf("-all and -regions are mutually exclusive")
	}

	switch {
	case cfg.All:
		if !cfg.Yes && !confirmAllRegions(settings.DownloadDir) {
			fmt.Println("Operation cancelled.")
			return nil
		}
		return runBatch(ctx, settings, nil)
	case cfg.Regions != "":
		names := splitNames(cfg.Regions)
		if len(names) == 0 {
			return fmt.Errorf("no region names given")
		}
		if !cfg.Yes && !confirmNamedRegions(names, settings.DownloadDir) {
			fmt.Println("Operation cancelled.")
			return nil
		}
		return runBatch(ctx, settings, names)
	default:
		return runMenu(ctx, settings)
	}
}

// runBatch wires the components together and executes one batch. A nil
// names slice means the full catalog.
func runBatch(ctx context.Context, settings *config.Settings, names []string) error {
	logger, err := logging.NewLogger("main")
	if err != nil {
		fmt.Fprintf(os.Stderr, "File logging unavailable: %v\n", err)
	}
	defer logger.Close()
	logger.Infof("repscollect v%s starting, run %s", version, logger.SessionID())

	watchLogger, _ := logging.NewLogger("watcher")
	defer watchLogger.Close()
	w, err := watcher.New(settings.DownloadDir, watchLogger)
	if err != nil {
		return err
	}

	browserLogger, _ := logging.NewLogger("browser")
	defer browserLogger.Close()
	session, err := browser.Launch(browser.Options{
		Headless:     settings.Headless,
		DownloadsDir: w.Dir(),
		Timeout:      settings.NavigationTimeout,
	}, browserLogger)
	if err != nil {
		return err
	}
	// The orchestrator releases the session; this covers paths before the
	// run starts. Close is idempotent.
	defer session.Close()

	portalLogger, _ := logging.NewLogger("portal")
	defer portalLogger.Close()
	nav := portal.NewNavigator(session, settings.BaseURL, settings.NavigationTimeout, portalLogger)

	batchLogger, _ := logging.NewLogger("batch")
	defer batchLogger.Close()
	orchestrator := batch.New(nav, w, session.Close, batch.Options{
		Pacing:       settings.Pacing,
		WatchTimeout: settings.WatchTimeout,
		PollInterval: settings.PollInterval,
	}, batchLogger)

	var summary *batch.Summary
	if names == nil {
		summary, err = orchestrator.RunAll(ctx)
	} else {
		summary, err = orchestrator.RunNamed(ctx, names)
	}
	if err != nil {
		return err
	}

	printSummary(summary, w.Dir())
	return nil
}

// splitNames turns a comma-separated list into trimmed, non-empty names.
func splitNames(input string) []string {
	var names []string
	for _, part := range strings.Split(input, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

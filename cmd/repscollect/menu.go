package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/repscollect/pkg/batch"
	"github.com/entrhq/repscollect/pkg/config"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	optionStyle  = lipgloss.NewStyle().PaddingLeft(2)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// affirmatives accepted by confirmation prompts, compared lowercased.
var affirmatives = map[string]bool{
	"s":   true,
	"si":  true,
	"sí":  true,
	"y":   true,
	"yes": true,
}

var stdin = bufio.NewReader(os.Stdin)

// runMenu shows the interactive entry menu and dispatches the selection.
func runMenu(ctx context.Context, settings *config.Settings) error {
	fmt.Println(titleStyle.Render("=== Registry export collector ==="))
	fmt.Println(optionStyle.Render("1. Download all regions"))
	fmt.Println(optionStyle.Render("2. Download specific regions"))
	fmt.Println(optionStyle.Render("3. Exit"))

	choice := prompt("\nSelect an option (1-3): ")
	switch choice {
	case "1":
		if !confirmAllRegions(settings.DownloadDir) {
			fmt.Println("Operation cancelled.")
			return nil
		}
		return runBatch(ctx, settings, nil)

	case "2":
		fmt.Println("\nEnter region names separated by commas:")
		fmt.Println("Example: Antioquia, Cundinamarca, Valle del Cauca")
		names := splitNames(prompt("Regions: "))
		if len(names) == 0 {
			fmt.Println("No regions entered.")
			return nil
		}
		if !confirmNamedRegions(names, settings.DownloadDir) {
			fmt.Println("Operation cancelled.")
			return nil
		}
		return runBatch(ctx, settings, names)

	case "3":
		fmt.Println("Exiting...")
		return nil

	default:
		fmt.Println("Invalid option.")
		return nil
	}
}

// prompt reads one trimmed line of input.
func prompt(label string) string {
	fmt.Print(label)
	line, err := stdin.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

// confirm asks a yes/no question and reports whether the answer was
// affirmative.
func confirm(question string) bool {
	answer := strings.ToLower(prompt(question + " (s/n): "))
	return affirmatives[answer]
}

func confirmAllRegions(downloadDir string) bool {
	fmt.Println("\nStarting download of all regions...")
	fmt.Printf("Files will be saved to: %s\n", downloadDir)
	return confirm("Continue?")
}

func confirmNamedRegions(names []string, downloadDir string) bool {
	fmt.Printf("\nDownloading regions: %s\n", strings.Join(names, ", "))
	fmt.Printf("Files will be saved to: %s\n", downloadDir)
	return confirm("Continue?")
}

// printSummary renders the final per-run counters.
func printSummary(summary *batch.Summary, downloadDir string) {
	fmt.Println()
	fmt.Println(titleStyle.Render("Run complete"))
	fmt.Println(successStyle.Render(fmt.Sprintf("  Successful: %d", summary.Successful)))
	fmt.Println(failureStyle.Render(fmt.Sprintf("  Failed:     %d", summary.Failed)))
	fmt.Printf("  Artifacts in %s\n", downloadDir)

	for _, outcome := range summary.Outcomes {
		if !outcome.Succeeded {
			fmt.Println(failureStyle.Render(fmt.Sprintf("  - %s: %v", outcome.Region.Name, outcome.Err)))
		}
	}
}

package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "detect":
		return runDetect(args[1:])
	case "sweep":
		return runSweep(args[1:])
	case "progress":
		return runProgress(args[1:])
	case "recommendations":
		return runRecommendations(args[1:])
	case "validate":
		return runValidate(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "curator CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  curator <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health           Verify database and search index connectivity")
	fmt.Fprintln(os.Stderr, "  detect           Run one duplicate detection batch")
	fmt.Fprintln(os.Stderr, "  sweep            Run detection batches until the catalog sweep completes")
	fmt.Fprintln(os.Stderr, "  progress         Show or reset the persisted scan progress")
	fmt.Fprintln(os.Stderr, "  recommendations  List merge recommendations")
	fmt.Fprintln(os.Stderr, "  validate         Validate detection tuning config JSON files")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"curator <command> -h\" for command-specific flags.")
}

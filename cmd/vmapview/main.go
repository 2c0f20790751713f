package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshuapare/vmapkit/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	opts := defaultOptions()
	debugMode := false

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--debug", "-d":
			debugMode = true
		case "--help", "-h":
			printHelp()
			os.Exit(0)
		case "--version", "-v":
			fmt.Printf("vmapview %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built: %s\n", date)
			os.Exit(0)
		case "--pages", "--workers", "--seed":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "Error: %s requires a value\n", arg)
				printUsage()
				os.Exit(1)
			}
			i++
			n, err := strconv.ParseUint(args[i], 0, 64)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: invalid %s value %q\n", arg, args[i])
				os.Exit(1)
			}
			switch arg {
			case "--pages":
				opts.Pages = n
			case "--workers":
				opts.Workers = int(n)
			case "--seed":
				opts.Seed = int64(n)
			}
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown argument %q\n", arg)
			printUsage()
			os.Exit(1)
		}
	}

	// Initialize logger (must be before any logging calls)
	logOpts := logger.Options{Enabled: debugMode, Level: slog.LevelDebug}
	if home, err := os.UserHomeDir(); err == nil {
		logOpts.LogDir = filepath.Join(home, ".vmapview", "logs")
	}
	if err := logger.Init(logOpts); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to init logging: %v\n", err)
	}

	logger.Info("starting vmapview", "pages", opts.Pages, "workers", opts.Workers, "seed", opts.Seed)

	m, err := NewModel(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}

	logger.Info("vmapview exited normally")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: vmapview [options]\n")
	fmt.Fprintf(os.Stderr, "Try 'vmapview --help' for more information.\n")
}

func printHelp() {
	fmt.Println("vmapview - Interactive occupancy map of a vmap allocator")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  vmapview [options]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Drives a randomized workload against a simulated address window and")
	fmt.Println("  draws which parts of it are free, held by regions or held by blocks.")
	fmt.Println()
	fmt.Println("  Keys:")
	fmt.Println("    s / space   Run one step")
	fmt.Println("    r           Start/stop continuous stepping")
	fmt.Println("    p           Purge all lazily freed space")
	fmt.Println("    f           Retire fragmented blocks")
	fmt.Println("    x           Free every live allocation")
	fmt.Println("    i           Show statistics")
	fmt.Println("    c           Copy statistics as JSON")
	fmt.Println("    ?           Show help")
	fmt.Println("    q           Quit")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  --pages N      Window size in pages (default 16384)")
	fmt.Println("  --workers N    Number of workers (default 4)")
	fmt.Println("  --seed N       Workload seed (default 1)")
	fmt.Println("  -d, --debug    Enable debug logging to ~/.vmapview/logs/")
	fmt.Println("  -h, --help     Show this help message")
	fmt.Println("  -v, --version  Show version information")
	fmt.Println()
	fmt.Println("For scripted runs, use 'vmapctl simulate' instead.")
}

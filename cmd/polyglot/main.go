// Package main is the entry point for the Polyglot translation workbench.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dshills/polyglot/internal/app"
	"github.com/dshills/polyglot/internal/shell"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	term, err := shell.NewTerminal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create terminal: %v\n", err)
		return 1
	}
	if err := application.SetBackend(term); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to set backend: %v\n", err)
		return 1
	}

	// Signals request the same orderly shutdown as the quit command.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		application.Quit()
	}()

	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() app.Options {
	var opts app.Options
	var pluginDirs string
	var showVersion bool

	flag.StringVar(&opts.ConfigDir, "config-dir", "", "Configuration directory")
	flag.StringVar(&opts.ConfigDir, "c", "", "Configuration directory (shorthand)")
	flag.StringVar(&opts.WorkspacePath, "workspace", "", "Workspace directory")
	flag.StringVar(&opts.WorkspacePath, "w", "", "Workspace directory (shorthand)")
	flag.StringVar(&opts.ThemeName, "theme", "", "Color theme name")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&pluginDirs, "plugin-dirs", "", "Comma-separated plugin directories")
	flag.BoolVar(&opts.NoPlugins, "no-plugins", false, "Disable the plugin system")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Polyglot - translation editor workbench\n\n")
		fmt.Fprintf(os.Stderr, "Usage: polyglot [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  polyglot                    Open the current directory\n")
		fmt.Fprintf(os.Stderr, "  polyglot de.po fr.po        Open catalogs as tabs\n")
		fmt.Fprintf(os.Stderr, "  polyglot -w ./locales       Open a workspace\n")
		fmt.Fprintf(os.Stderr, "  polyglot -theme polyglot-light\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("Polyglot %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if opts.LogLevel != "" {
		switch opts.LogLevel {
		case "debug", "info", "warn", "error":
		default:
			fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.LogLevel)
			os.Exit(1)
		}
	}

	if pluginDirs != "" {
		for _, dir := range strings.Split(pluginDirs, ",") {
			if dir = strings.TrimSpace(dir); dir != "" {
				opts.PluginPaths = append(opts.PluginPaths, dir)
			}
		}
	}

	opts.Files = flag.Args()

	// Default the workspace to the first opened file's directory.
	if opts.WorkspacePath == "" && len(opts.Files) > 0 {
		if absPath, err := filepath.Abs(opts.Files[0]); err == nil {
			opts.WorkspacePath = filepath.Dir(absPath)
		}
	}

	return opts
}

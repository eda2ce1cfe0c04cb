package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/flowfilter/internal/config"
	"github.com/standardbeagle/flowfilter/internal/version"
)

var (
	Version      = version.Version
	cleanupFuncs []func()
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		root = cwd
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path %q: %w", root, err)
	}

	cfg, err := config.Load(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", absRoot, err)
	}
	cfg.Project.Root = absRoot

	// Apply CLI flag overrides
	if c.IsSet("algo") {
		cfg.Match.Algorithm = c.String("algo")
	}
	if c.IsSet("scope") {
		cfg.Match.Scope = c.String("scope")
	}
	if c.IsSet("case") {
		cfg.Match.CaseMatching = c.String("case")
	}
	if c.IsSet("icon") {
		cfg.Display.Icon = c.String("icon")
	}
	if c.IsSet("number") {
		cfg.Display.Number = c.Int("number")
	}
	if c.IsSet("winwidth") {
		cfg.Display.Winwidth = c.Int("winwidth")
	}
	if c.IsSet("threads") {
		cfg.Pipeline.Threads = c.Int("threads")
	}
	if c.IsSet("debounce-ms") {
		cfg.Pipeline.DebounceMs = c.Int("debounce-ms")
	}
	if ignoreFlags := c.StringSlice("ignore"); len(ignoreFlags) > 0 {
		cfg.Walk.Ignore = append(cfg.Walk.Ignore, ignoreFlags...)
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	app := &cli.App{
		Name:                   "flowfilter",
		Usage:                  "Interactive fuzzy filtering over files, buffers and grep output",
		Version:                Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory (overrides config)",
			},
			&cli.StringFlag{
				Name:  "algo",
				Usage: "Fuzzy algorithm: fzy, skim, substring",
			},
			&cli.StringFlag{
				Name:  "scope",
				Usage: "Match scope: full, filename, tagname, grepline",
			},
			&cli.StringFlag{
				Name:  "case",
				Usage: "Case matching: respect, ignore, smart",
			},
			&cli.StringFlag{
				Name:  "icon",
				Usage: "Icon kind: none, file, grep, projtags, unknown",
			},
			&cli.IntFlag{
				Name:    "number",
				Aliases: []string{"n"},
				Usage:   "Size of the best-K result set",
			},
			&cli.IntFlag{
				Name:  "winwidth",
				Usage: "Target display width in columns",
			},
			&cli.IntFlag{
				Name:  "threads",
				Usage: "Matcher worker count (0 = auto)",
			},
			&cli.IntFlag{
				Name:  "debounce-ms",
				Usage: "Progress frame debounce window",
			},
			&cli.StringSliceFlag{
				Name:  "ignore",
				Usage: "Extra ignore globs for the walker (e.g. --ignore '**/generated/**')",
			},
		},
		Commands: []*cli.Command{
			filesCommand(),
			blinesCommand(),
			grepCommand(),
			stdinCommand(),
			cacheCommand(),
		},
	}

	setupSignalHandling()

	err := app.Run(os.Args)
	runCleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupSignalHandling runs registered cleanups before exiting on SIGINT or
// SIGTERM.
func setupSignalHandling() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		runCleanup()
		os.Exit(130)
	}()
}

func runCleanup() {
	for _, cleanup := range cleanupFuncs {
		cleanup()
	}
	cleanupFuncs = nil
}

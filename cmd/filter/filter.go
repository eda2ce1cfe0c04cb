package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/flowfilter/internal/bonus"
	"github.com/standardbeagle/flowfilter/internal/cache"
	"github.com/standardbeagle/flowfilter/internal/config"
	fferrors "github.com/standardbeagle/flowfilter/internal/errors"
	"github.com/standardbeagle/flowfilter/internal/item"
	"github.com/standardbeagle/flowfilter/internal/matcher"
	"github.com/standardbeagle/flowfilter/internal/modifier"
	"github.com/standardbeagle/flowfilter/internal/pipeline"
	"github.com/standardbeagle/flowfilter/internal/progress"
	"github.com/standardbeagle/flowfilter/internal/query"
	"github.com/standardbeagle/flowfilter/internal/source"
)

func filesCommand() *cli.Command {
	return &cli.Command{
		Name:      "files",
		Usage:     "Filter paths from a recursive directory walk",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Skip the producer output cache",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}

			walk := source.NewWalk([]string{cfg.Project.Root}, source.WalkConfigFrom(cfg.Walk))

			var src source.Source = walk
			if !c.Bool("no-cache") {
				if cached, err := cachedWalkSource(cfg, walk); err == nil {
					src = cached
				}
			}
			return runFilter(c, cfg, src)
		},
	}
}

func blinesCommand() *cli.Command {
	return &cli.Command{
		Name:      "blines",
		Usage:     "Filter the lines of a buffer file, keeping line numbers",
		ArgsUsage: "<file> [query]",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return errors.New("usage: flowfilter blines <file> [query]")
			}
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}

			src := source.NewFile(c.Args().First(), source.NumberedLine)
			return runFilterWithQuery(c, cfg, src, c.Args().Get(1))
		},
	}
}

func grepCommand() *cli.Command {
	return &cli.Command{
		Name:      "grep",
		Usage:     "Filter ripgrep output, scoring only the matched content",
		ArgsUsage: "<pattern> [query]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Skip the producer output cache",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return errors.New("usage: flowfilter grep <pattern> [query]")
			}
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			if cfg.Match.Scope == "full" {
				cfg.Match.Scope = "grepline"
			}

			argv := []string{"rg", "--line-number", "--column", "--no-heading", "--color=never", c.Args().First()}
			exec := source.NewExec(argv, cfg.Project.Root, source.GrepLine)

			var src source.Source = exec
			if !c.Bool("no-cache") {
				if cached, err := cachedExecSource(cfg, exec); err == nil {
					src = cached
				}
			}
			return runFilterWithQuery(c, cfg, src, c.Args().Get(1))
		},
	}
}

func stdinCommand() *cli.Command {
	return &cli.Command{
		Name:      "stdin",
		Usage:     "Filter lines read from standard input",
		ArgsUsage: "[query]",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}

			return runFilter(c, cfg, source.NewStdin(nil, nil))
		},
	}
}

// cachedExecSource wires the content-addressed cache around an exec
// producer: a usable digest serves the run from its payload file, and a
// live run above the threshold is recorded for next time.
func cachedExecSource(cfg *config.Config, exec *source.Exec) (source.Source, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	if d, ok := store.FindUsableDigest(exec.Command(), exec.Cwd()); ok {
		return source.NewForerunnerExec(exec, d.CacheFile), nil
	}

	return &cacheTee{
		inner:     exec,
		store:     store,
		command:   exec.Command(),
		cwd:       exec.Cwd(),
		threshold: cfg.Cache.ExecThreshold,
	}, nil
}

// cachedWalkSource does the same for the directory walker. There is no
// literal subprocess command, so the cache key is a pseudo-command derived
// from the walk options; a replayed run rebuilds path items from the
// payload lines.
func cachedWalkSource(cfg *config.Config, walk *source.Walk) (source.Source, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	command := walkCacheKey(cfg.Walk)
	if d, ok := store.FindUsableDigest(command, cfg.Project.Root); ok {
		return source.NewFile(d.CacheFile, source.PathLine), nil
	}

	return &cacheTee{
		inner:     walk,
		store:     store,
		command:   command,
		cwd:       cfg.Project.Root,
		threshold: cfg.Cache.WalkThreshold,
	}, nil
}

// walkCacheKey renders the walk options as a deterministic pseudo-command
// so a changed option never serves a stale payload.
func walkCacheKey(w config.Walk) string {
	return fmt.Sprintf("walk hidden=%t symlinks=%t parents=%t git=%t,%t,%t depth=%d ignore=%s",
		w.Hidden, w.FollowSymlinks, w.Parents,
		w.GitIgnore, w.GitGlobal, w.GitExclude,
		w.MaxDepth, strings.Join(w.Ignore, ","))
}

func openStore(cfg *config.Config) (*cache.Store, error) {
	store, err := cache.NewStore(cache.StoreConfig{
		CacheDir:  cfg.Cache.Dir,
		DataDir:   cfg.Cache.DataDir,
		MaxAge:    time.Duration(cfg.Cache.MaxAgeDays) * 24 * time.Hour,
		AutoFlush: true,
	})
	if err != nil {
		return nil, err
	}
	cleanupFuncs = append(cleanupFuncs, func() { _ = store.Close() })
	return store, nil
}

// cacheTee produces from the wrapped source while copying every raw line
// into a pending cache payload, committing it when the run finishes large
// enough to be worth keeping.
type cacheTee struct {
	inner     source.Source
	store     *cache.Store
	command   string
	cwd       string
	threshold uint64
}

func (ct *cacheTee) Name() string { return ct.inner.Name() }

func (ct *cacheTee) Produce(ctx context.Context, emit source.EmitFunc) error {
	w, err := ct.store.NewWriter(ct.command, ct.cwd)
	if err != nil {
		// Caching is best-effort; run uncached.
		return ct.inner.Produce(ctx, emit)
	}

	// The walker calls emit concurrently, so writes are serialized here.
	var mu sync.Mutex
	err = ct.inner.Produce(ctx, func(it item.Item) bool {
		mu.Lock()
		_ = w.WriteLine(it.RawText())
		mu.Unlock()
		return emit(it)
	})
	if err != nil || ctx.Err() != nil {
		w.Discard()
		return err
	}

	_, _, commitErr := w.Commit(ct.threshold)
	if commitErr != nil {
		w.Discard()
	}
	return err
}

// runFilter runs a pipeline with the query taken from the first positional
// argument.
func runFilter(c *cli.Context, cfg *config.Config, src source.Source) error {
	return runFilterWithQuery(c, cfg, src, c.Args().First())
}

func runFilterWithQuery(c *cli.Context, cfg *config.Config, src source.Source, rawQuery string) error {
	m, err := buildMatcher(cfg, rawQuery)
	if err != nil {
		return err
	}

	sctx := pipeline.SearchContext{
		Icon:       iconKind(cfg.Display.Icon),
		Winwidth:   cfg.Display.Winwidth,
		Number:     cfg.Display.Number,
		Progressor: progress.NewStdio(nil),
		Debounce:   time.Duration(cfg.Pipeline.DebounceMs) * time.Millisecond,
		Workers:    cfg.Pipeline.Threads,
		ChanSize:   cfg.Pipeline.ChannelSize,
		Query:      rawQuery,
	}

	ctl, err := pipeline.Run(c.Context, sctx, m, src)
	if err != nil {
		return err
	}
	cleanupFuncs = append(cleanupFuncs, ctl.Kill)

	if err := ctl.Wait(); err != nil {
		var perr *fferrors.ProducerError
		if errors.As(err, &perr) {
			return cli.Exit(fmt.Sprintf("producer failed: %v", perr), 1)
		}
		return err
	}
	return nil
}

func buildMatcher(cfg *config.Config, rawQuery string) (*matcher.Matcher, error) {
	q := query.Parse(rawQuery)

	bonuses := configuredBonuses(cfg)
	return matcher.New(q, cfg.Match.Algorithm,
		matcher.WithScope(matchScope(cfg.Match.Scope)),
		matcher.WithCaseMatching(caseMatching(cfg.Match.CaseMatching)),
		matcher.WithBonuses(bonuses...),
	)
}

// configuredBonuses maps the config's bonus section onto scorers.
func configuredBonuses(cfg *config.Config) []bonus.Bonus {
	var bonuses []bonus.Bonus
	if cfg.Bonuses.FileName {
		bonuses = append(bonuses, bonus.NewFileName())
	}
	for _, ext := range cfg.Bonuses.Language {
		bonuses = append(bonuses, bonus.NewLanguage(ext))
	}
	if len(cfg.Bonuses.RecentFiles) > 0 {
		bonuses = append(bonuses, bonus.NewRecentFiles(cfg.Bonuses.RecentFiles))
	}
	return bonuses
}

func matchScope(name string) item.MatchScope {
	switch name {
	case "filename":
		return item.FileName
	case "tagname":
		return item.TagName
	case "grepline":
		return item.GrepLine
	default:
		return item.Full
	}
}

func caseMatching(name string) modifier.CaseMatching {
	switch name {
	case "respect":
		return modifier.Respect
	case "ignore":
		return modifier.Ignore
	default:
		return modifier.Smart
	}
}

func iconKind(name string) item.IconKind {
	switch name {
	case "file":
		return item.IconFile
	case "grep":
		return item.IconGrep
	case "projtags":
		return item.IconProjTags
	case "unknown":
		return item.IconUnknown
	default:
		return item.NoIcon
	}
}

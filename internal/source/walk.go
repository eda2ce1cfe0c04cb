package source

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/flowfilter/internal/config"
	"github.com/standardbeagle/flowfilter/internal/errors"
	"github.com/standardbeagle/flowfilter/internal/item"
)

// WalkConfig configures the directory walker.
type WalkConfig struct {
	Hidden         bool // include dotfiles and dot-directories
	FollowSymlinks bool
	Parents        bool     // load .gitignore files from ancestors of the root
	Ignore         []string // doublestar globs matched against relative paths
	GitIgnore      bool     // honor the root's .gitignore
	GitGlobal      bool     // honor the user's global excludes file
	GitExclude     bool     // honor .git/info/exclude
	MaxDepth       int      // 0 = unlimited
}

// WalkConfigFrom maps the loaded configuration onto a WalkConfig.
func WalkConfigFrom(cfg config.Walk) WalkConfig {
	return WalkConfig{
		Hidden:         cfg.Hidden,
		FollowSymlinks: cfg.FollowSymlinks,
		Parents:        cfg.Parents,
		Ignore:         cfg.Ignore,
		GitIgnore:      cfg.GitIgnore,
		GitGlobal:      cfg.GitGlobal,
		GitExclude:     cfg.GitExclude,
		MaxDepth:       cfg.MaxDepth,
	}
}

// Walk is the parallel recursive directory walker. It emits path items with
// root-relative paths; the .git directory is skipped unconditionally. Emit
// is called concurrently from walker goroutines.
type Walk struct {
	roots []string
	cfg   WalkConfig
}

// NewWalk creates a walker over the given roots.
func NewWalk(roots []string, cfg WalkConfig) *Walk {
	return &Walk{roots: roots, cfg: cfg}
}

func (w *Walk) Name() string { return "walk" }

func (w *Walk) Produce(ctx context.Context, emit EmitFunc) error {
	for _, root := range w.roots {
		if err := w.walkRoot(ctx, root, emit); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walk) walkRoot(ctx context.Context, root string, emit EmitFunc) error {
	info, err := os.Stat(root)
	if err != nil {
		return errors.NewProducerError("walk", "stat", err)
	}
	if !info.IsDir() {
		return errors.NewProducerError("walk", "stat",
			&os.PathError{Op: "walk", Path: root, Err: os.ErrInvalid})
	}

	gitignore := w.loadGitignore(root)

	// Resolved symlink targets already descended into, to break cycles.
	var visitedLinks sync.Map

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(2, runtime.NumCPU()))

	var walkDir func(dir, rel string, depth int) error
	walkDir = func(dir, rel string, depth int) error {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			// Unreadable directories are skipped, not fatal.
			return nil
		}

		for _, entry := range entries {
			name := entry.Name()
			entryRel := name
			if rel != "" {
				entryRel = rel + "/" + name
			}

			if entry.IsDir() || (entry.Type()&os.ModeSymlink != 0 && w.isSymlinkDir(dir, name)) {
				if name == ".git" {
					continue
				}
				if !w.cfg.Hidden && name[0] == '.' {
					continue
				}
				if entry.Type()&os.ModeSymlink != 0 {
					if !w.cfg.FollowSymlinks {
						continue
					}
					real, err := filepath.EvalSymlinks(filepath.Join(dir, name))
					if err != nil {
						continue
					}
					if _, seen := visitedLinks.LoadOrStore(real, true); seen {
						continue
					}
				}
				if w.ignored(gitignore, entryRel, true) {
					continue
				}
				if w.cfg.MaxDepth > 0 && depth+1 >= w.cfg.MaxDepth {
					continue
				}

				subDir := filepath.Join(dir, name)
				subRel := entryRel
				subDepth := depth + 1
				// TryGo keeps the walk parallel up to the limit and falls
				// back to inline recursion when every slot is busy, so
				// nested spawns can never deadlock the group.
				if !g.TryGo(func() error { return walkDir(subDir, subRel, subDepth) }) {
					if err := walkDir(subDir, subRel, subDepth); err != nil {
						return err
					}
				}
				continue
			}

			if !w.cfg.Hidden && name[0] == '.' {
				continue
			}
			if w.ignored(gitignore, entryRel, false) {
				continue
			}

			if !emit(item.NewPathItem(entryRel)) {
				return nil
			}
		}
		return nil
	}

	g.Go(func() error { return walkDir(root, "", 0) })
	return g.Wait()
}

// ignored checks the configured globs and gitignore patterns against a
// root-relative path.
func (w *Walk) ignored(gitignore *config.GitignoreParser, rel string, isDir bool) bool {
	slashRel := filepath.ToSlash(rel)
	for _, pattern := range w.cfg.Ignore {
		if ok, _ := doublestar.Match(pattern, slashRel); ok {
			return true
		}
		if isDir {
			if ok, _ := doublestar.Match(pattern, slashRel+"/"); ok {
				return true
			}
		}
	}
	if gitignore != nil && gitignore.ShouldIgnore(slashRel, isDir) {
		return true
	}
	return false
}

// loadGitignore assembles one parser from the configured gitignore sources,
// in ascending precedence: global excludes, ancestor .gitignore files,
// the root's .gitignore, then .git/info/exclude.
func (w *Walk) loadGitignore(root string) *config.GitignoreParser {
	if !w.cfg.GitIgnore && !w.cfg.GitGlobal && !w.cfg.GitExclude {
		return nil
	}

	parser := config.NewGitignoreParser()

	if w.cfg.GitGlobal {
		if configDir, err := os.UserConfigDir(); err == nil {
			_ = parser.LoadFile(filepath.Join(configDir, "git", "ignore"))
		}
	}

	if w.cfg.GitIgnore && w.cfg.Parents {
		for _, dir := range ancestorsOf(root) {
			_ = parser.LoadFile(filepath.Join(dir, ".gitignore"))
		}
	}

	if w.cfg.GitIgnore {
		_ = parser.LoadGitignore(root)
	}

	if w.cfg.GitExclude {
		_ = parser.LoadFile(filepath.Join(root, ".git", "info", "exclude"))
	}

	return parser
}

// ancestorsOf returns root's ancestor directories, outermost first.
func ancestorsOf(root string) []string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil
	}

	var ancestors []string
	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		ancestors = append(ancestors, dir)
		if dir == filepath.Dir(dir) {
			break
		}
	}

	// Reverse so the outermost ancestor loads first and deeper files win.
	for i, j := 0, len(ancestors)-1; i < j; i, j = i+1, j-1 {
		ancestors[i], ancestors[j] = ancestors[j], ancestors[i]
	}
	return ancestors
}

// isSymlinkDir reports whether the symlink dir/name resolves to a directory.
func (w *Walk) isSymlinkDir(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && info.IsDir()
}

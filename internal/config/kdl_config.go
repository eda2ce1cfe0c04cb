package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL attempts to load configuration from a .flowfilter.kdl file in the
// given directory. Returns (nil, nil) when no config file exists.
func LoadKDL(projectRoot string) (*Config, error) {
	kdlPath := filepath.Join(projectRoot, ".flowfilter.kdl")

	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read .flowfilter.kdl: %v", err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}

	// Ensure root path is absolute for consistent path handling. Relative
	// roots resolve against the directory containing the .flowfilter.kdl.
	if cfg != nil && cfg.Project.Root != "" {
		var absRoot string
		if filepath.IsAbs(cfg.Project.Root) {
			absRoot = cfg.Project.Root
		} else {
			absRoot = filepath.Join(projectRoot, cfg.Project.Root)
		}
		cfg.Project.Root = filepath.Clean(absRoot)
	} else if cfg != nil {
		absRoot, err := filepath.Abs(projectRoot)
		if err == nil {
			cfg.Project.Root = absRoot
		} else {
			cfg.Project.Root = projectRoot
		}
	}

	return cfg, nil
}

// parseKDL maps a KDL document onto a Config, starting from the defaults so
// an empty file is a valid config.
func parseKDL(content string) (*Config, error) {
	defaultRoot, _ := os.Getwd()
	if defaultRoot == "" {
		defaultRoot = "."
	}

	cfg := DefaultConfig(defaultRoot)

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children { // project { root "." name "foo" }
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "match":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "case_matching":
					if s, ok := firstStringArg(cn); ok {
						cfg.Match.CaseMatching = s
					}
				case "fuzzy_algorithm":
					if s, ok := firstStringArg(cn); ok {
						cfg.Match.Algorithm = s
					}
				case "match_scope":
					if s, ok := firstStringArg(cn); ok {
						cfg.Match.Scope = s
					}
				}
			}
		case "display":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "icon":
					if s, ok := firstStringArg(cn); ok {
						cfg.Display.Icon = s
					}
				case "number":
					if v, ok := firstIntArg(cn); ok {
						cfg.Display.Number = v
					}
				case "winwidth":
					if v, ok := firstIntArg(cn); ok {
						cfg.Display.Winwidth = v
					}
				}
			}
		case "pipeline":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "threads":
					if v, ok := firstIntArg(cn); ok {
						cfg.Pipeline.Threads = v
					}
				case "debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Pipeline.DebounceMs = v
					}
				case "channel_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Pipeline.ChannelSize = v
					}
				}
			}
		case "cache":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "dir":
					if s, ok := firstStringArg(cn); ok {
						cfg.Cache.Dir = s
					}
				case "data_dir":
					if s, ok := firstStringArg(cn); ok {
						cfg.Cache.DataDir = s
					}
				case "exec_threshold":
					if v, ok := firstIntArg(cn); ok && v >= 0 {
						cfg.Cache.ExecThreshold = uint64(v)
					}
					if s, ok := firstStringArg(cn); ok {
						if sz, err := parseSize(s); err == nil && sz >= 0 {
							cfg.Cache.ExecThreshold = uint64(sz)
						}
					}
				case "walk_threshold":
					if v, ok := firstIntArg(cn); ok && v >= 0 {
						cfg.Cache.WalkThreshold = uint64(v)
					}
				case "max_age_days":
					if v, ok := firstIntArg(cn); ok {
						cfg.Cache.MaxAgeDays = v
					}
				}
			}
		case "walk":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "hidden":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Walk.Hidden = b
					}
				case "follow_symlinks":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Walk.FollowSymlinks = b
					}
				case "parents":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Walk.Parents = b
					}
				case "git_ignore":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Walk.GitIgnore = b
					}
				case "git_global":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Walk.GitGlobal = b
					}
				case "git_exclude":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Walk.GitExclude = b
					}
				case "max_depth":
					if v, ok := firstIntArg(cn); ok {
						cfg.Walk.MaxDepth = v
					}
				case "ignore":
					// Replaces the default ignore list so a project can opt
					// out of the baseline exclusions entirely.
					cfg.Walk.Ignore = collectStringArgs(cn)
				}
			}
		case "bonuses":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "file_name":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Bonuses.FileName = b
					}
				case "language":
					cfg.Bonuses.Language = append(cfg.Bonuses.Language, collectStringArgs(cn)...)
				case "recent_files":
					cfg.Bonuses.RecentFiles = append(cfg.Bonuses.RecentFiles, collectStringArgs(cn)...)
				}
			}
		case "ignore":
			cfg.Walk.Ignore = append(cfg.Walk.Ignore, collectStringArgs(n)...)
		}
	}

	cfg.EnrichIgnoreWithBuildArtifacts()

	return cfg, nil
}

// Helper functions leveraging the kdl-go document model.
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}
func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}
func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	// First try to collect from arguments (for inline format)
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	// If no arguments, collect from children (for block format like
	// ignore { "pattern" }). In KDL block format, bare strings are child
	// nodes where the node name is the string value.
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}

	return out
}
func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}

// parseSize handles count strings like "100K", "30000", "1M"
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "M"):
		multiplier = 1_000_000
		numStr = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "K"):
		multiplier = 1_000
		numStr = strings.TrimSuffix(s, "K")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, err
	}

	return num * multiplier, nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// ConfigFileName is the project configuration file looked up in a directory.
const ConfigFileName = ".pathfinder.kdl"

// LoadKDL loads configuration from <dir>/.pathfinder.kdl. A missing file is
// not an error; defaults are returned.
func LoadKDL(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "search":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.SearchEngineEnabled = b
					}
				case "max_results":
					if v, ok := firstIntArg(cn); ok {
						cfg.MaxResults = v
					}
				case "min_query_length":
					if v, ok := firstIntArg(cn); ok {
						cfg.MinQueryLength = v
					}
				case "result_score_threshold":
					if v, ok := firstFloatArg(cn); ok {
						cfg.ResultScoreThreshold = v
					}
				case "timeout_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.SearchTimeout = time.Duration(v) * time.Millisecond
					}
				case "case_sensitive":
					if b, ok := firstBoolArg(cn); ok {
						cfg.CaseSensitiveSearch = b
					}
				case "prefer_directories":
					if b, ok := firstBoolArg(cn); ok {
						cfg.PreferDirectories = b
					}
				case "preferred_extensions":
					if exts := collectStringArgs(cn); len(exts) > 0 {
						cfg.PreferredExtensions = exts
					}
				}
			}
		case "fuzzy":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.FuzzySearchEnabled = b
					}
				case "min_similarity":
					if v, ok := firstFloatArg(cn); ok {
						cfg.FuzzyMinSimilarity = v
					}
				}
			}
		case "cache":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "size":
					if v, ok := firstIntArg(cn); ok {
						cfg.CacheSize = v
					}
				case "ttl_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.CacheTTL = time.Duration(v) * time.Millisecond
					}
				}
			}
		case "index":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "batch_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.IndexingBatchSize = v
					}
				case "max_files":
					if v, ok := firstIntArg(cn); ok {
						cfg.MaxIndexedFiles = v
					}
				case "max_depth":
					if v, ok := firstIntArg(cn); ok {
						cfg.MaxIndexDepth = v
					}
				case "hidden_files":
					if b, ok := firstBoolArg(cn); ok {
						cfg.IndexHiddenFiles = b
					}
				case "follow_symlinks":
					if b, ok := firstBoolArg(cn); ok {
						cfg.FollowSymlinks = b
					}
				case "watch":
					if b, ok := firstBoolArg(cn); ok {
						cfg.WatchMode = b
					}
				case "watch_debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.WatchDebounce = time.Duration(v) * time.Millisecond
					}
				case "exclude":
					if patterns := collectStringArgs(cn); len(patterns) > 0 {
						cfg.ExcludedPatterns = append(cfg.ExcludedPatterns, patterns...)
					}
				}
			}
		case "ranking":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "recency_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Ranking.RecencyWeight = v
					}
				case "frequency_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Ranking.FrequencyWeight = v
					}
				case "proximity_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Ranking.ProximityWeight = v
					}
				case "extension":
					// extension "rs" 1.2
					if ext, ok := firstStringArg(cn); ok {
						if w, ok := secondFloatArg(cn); ok {
							cfg.Ranking.ExtensionWeights[strings.TrimPrefix(ext, ".")] = w
						}
					}
				}
			}
		}
	}

	cfg.ExcludedPatterns = dedupePatterns(cfg.ExcludedPatterns)
	return cfg, nil
}

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

func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func secondFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) < 2 {
		return 0, false
	}
	switch v := n.Arguments[1].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// collectStringArgs gathers strings from inline arguments, or from child
// nodes for block form: exclude { "node_modules"; ".git" }
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, cn := range n.Children {
			if name := nodeName(cn); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func dedupePatterns(patterns []string) []string {
	seen := make(map[string]bool, len(patterns))
	out := patterns[:0]
	for _, p := range patterns {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

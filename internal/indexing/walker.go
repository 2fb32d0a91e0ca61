package indexing

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/pathfinder/internal/config"
	"github.com/standardbeagle/pathfinder/internal/logging"
)

var (
	errCancelled = errors.New("walk cancelled")
	errFileLimit = errors.New("indexed file limit reached")
)

// walker performs the depth-first traversal, accumulating file paths into
// chunks and handing full chunks to flush. Per-entry errors are logged and
// skipped; only a failure at the root aborts the walk.
type walker struct {
	cfg       *config.Config
	log       *logging.Logger
	cancel    <-chan struct{}
	chunkSize int

	flush      func(batch []string) error
	discovered func(n int64)

	batch   []string
	indexed int64
	visited map[string]bool // resolved dirs, guards symlink cycles
}

func (w *walker) walk(root string) error {
	if err := w.walkDir(root, 0, true); err != nil {
		if err == errFileLimit {
			return nil
		}
		return err
	}
	return nil
}

func (w *walker) walkDir(dir string, depth int, isRoot bool) error {
	if w.cancelled() {
		return errCancelled
	}
	if w.cfg.MaxIndexDepth > 0 && depth > w.cfg.MaxIndexDepth {
		return nil
	}

	if w.cfg.FollowSymlinks {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			if w.visited == nil {
				w.visited = make(map[string]bool)
			}
			if w.visited[resolved] {
				return nil
			}
			w.visited[resolved] = true
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if isRoot {
			return err
		}
		w.log.Warnf("skipping unreadable directory %s: %v", dir, err)
		return nil
	}

	for _, entry := range entries {
		if w.cancelled() {
			return errCancelled
		}

		name := entry.Name()
		full := filepath.Join(dir, name)

		if !w.cfg.IndexHiddenFiles && strings.HasPrefix(name, ".") {
			continue
		}
		if w.excluded(full, name) {
			continue
		}

		entryType := entry.Type()
		if entryType&fs.ModeSymlink != 0 {
			if !w.cfg.FollowSymlinks {
				continue
			}
			info, err := os.Stat(full)
			if err != nil {
				w.log.Warnf("skipping broken symlink %s: %v", full, err)
				continue
			}
			if info.IsDir() {
				if err := w.walkDir(full, depth+1, false); err != nil {
					return err
				}
				continue
			}
			if err := w.addFile(full); err != nil {
				return err
			}
			continue
		}

		if entry.IsDir() {
			if err := w.walkDir(full, depth+1, false); err != nil {
				return err
			}
			continue
		}
		if !entryType.IsRegular() {
			continue
		}
		if err := w.addFile(full); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) addFile(path string) error {
	if w.cfg.MaxIndexedFiles > 0 && w.indexed+int64(len(w.batch)) >= int64(w.cfg.MaxIndexedFiles) {
		w.log.Warnf("reached max_indexed_files limit of %d, stopping walk", w.cfg.MaxIndexedFiles)
		return errFileLimit
	}
	w.discovered(1)
	w.batch = append(w.batch, path)
	if len(w.batch) >= w.chunkSize {
		return w.flushPending()
	}
	return nil
}

// flushPending submits the accumulated batch, if any.
func (w *walker) flushPending() error {
	if len(w.batch) == 0 {
		return nil
	}
	batch := w.batch
	w.batch = nil
	if err := w.flush(batch); err != nil {
		return err
	}
	w.indexed += int64(len(batch))
	return nil
}

func (w *walker) cancelled() bool {
	select {
	case <-w.cancel:
		return true
	default:
		return false
	}
}

func (w *walker) excluded(path, name string) bool {
	return matchesExclusion(w.cfg.ExcludedPatterns, path, name)
}

// matchesExclusion applies exclusion patterns: glob-looking patterns match
// with doublestar against the slash path and the bare name, anything else
// is a substring match.
func matchesExclusion(patterns []string, path, name string) bool {
	if len(patterns) == 0 {
		return false
	}
	slashPath := filepath.ToSlash(path)
	for _, pattern := range patterns {
		if isGlobPattern(pattern) {
			if ok, err := doublestar.Match(pattern, slashPath); err == nil && ok {
				return true
			}
			if ok, err := doublestar.Match(pattern, name); err == nil && ok {
				return true
			}
			continue
		}
		if strings.Contains(slashPath, pattern) {
			return true
		}
	}
	return false
}

func isGlobPattern(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

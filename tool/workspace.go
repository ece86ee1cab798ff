package tool

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Option configures the workspace tools.
type Option func(*workspace)

type workspace struct {
	dir         string
	maxFileSize int64
	maxResults  int
	maxOutput   int
	bashTimeout time.Duration
	excludes    []string
}

// WithMaxFileSize sets the maximum file size for read and write operations.
// Default is 10MB.
func WithMaxFileSize(bytes int64) Option {
	return func(w *workspace) {
		w.maxFileSize = bytes
	}
}

// WithMaxResults limits the number of glob_search results. Default is 100.
func WithMaxResults(n int) Option {
	return func(w *workspace) {
		w.maxResults = n
	}
}

// WithMaxOutput caps the bytes of command output returned by bash.
// Default is 30000.
func WithMaxOutput(n int) Option {
	return func(w *workspace) {
		w.maxOutput = n
	}
}

// WithBashTimeout sets the default bash timeout. Default is 2 minutes.
func WithBashTimeout(d time.Duration) Option {
	return func(w *workspace) {
		w.bashTimeout = d
	}
}

// WithExcludePatterns sets glob patterns skipped by glob_search and
// list_dir recursion. Defaults to .git and node_modules.
func WithExcludePatterns(patterns ...string) Option {
	return func(w *workspace) {
		w.excludes = patterns
	}
}

func newWorkspace(dir string, opts []Option) *workspace {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	w := &workspace{
		dir:         filepath.Clean(dir),
		maxFileSize: 10 * 1024 * 1024,
		maxResults:  100,
		maxOutput:   30000,
		bashTimeout: 2 * time.Minute,
		excludes:    []string{"**/.git/**", "**/node_modules/**"},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// resolve maps a relative or absolute path onto the workspace and rejects
// paths that escape it.
func (w *workspace) resolve(path string) (string, error) {
	if path == "" {
		path = "."
	}
	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(w.dir, path)
	}
	full = filepath.Clean(full)

	rel, err := filepath.Rel(w.dir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside workspace %q", path, w.dir)
	}
	return full, nil
}

// rel returns path relative to the workspace, using forward slashes.
func (w *workspace) rel(path string) string {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// WorkspaceTools returns the built-in tools confined to dir: read_file,
// write_file, edit_file, list_dir, glob_search and bash.
func WorkspaceTools(dir string, opts ...Option) []Tool {
	w := newWorkspace(dir, opts)
	return []Tool{
		w.readFileTool(),
		w.writeFileTool(),
		w.editFileTool(),
		w.listDirTool(),
		w.globSearchTool(),
		w.bashTool(),
	}
}

// FileTools returns only the file tools, without glob_search and bash.
func FileTools(dir string, opts ...Option) []Tool {
	w := newWorkspace(dir, opts)
	return []Tool{
		w.readFileTool(),
		w.writeFileTool(),
		w.editFileTool(),
		w.listDirTool(),
	}
}

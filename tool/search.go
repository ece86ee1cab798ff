package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// matchAny reports whether rel, a slash-separated workspace path, matches
// any glob. Rooted with a leading slash so "**/x/**" also matches top-level x.
func matchAny(globs []glob.Glob, rel string) bool {
	for _, g := range globs {
		if g.Match(rel) || g.Match("/"+rel) {
			return true
		}
	}
	return false
}

type globSearchArgs struct {
	Pattern string `json:"pattern" desc:"Glob pattern for file paths, e.g. **/*.go or src/*.{ts,tsx}" required:"true"`
	Path    string `json:"path" desc:"Directory to search in, relative to the workspace (default: workspace root)"`
	Query   string `json:"query" desc:"Optional regular expression; when set, matching lines are returned instead of file names"`
}

type searchMatch struct {
	File    string `json:"file"`
	Line    int    `json:"line,omitempty"`
	Content string `json:"content,omitempty"`
}

func (w *workspace) globSearchTool() Tool {
	return Func("glob_search", "Find files in the workspace by glob pattern, optionally searching their contents with a regular expression.",
		func(ctx context.Context, args globSearchArgs) (string, error) {
			root, err := w.resolve(args.Path)
			if err != nil {
				return "", err
			}
			g, err := glob.Compile(args.Pattern, '/')
			if err != nil {
				return "", fmt.Errorf("invalid glob %q: %w", args.Pattern, err)
			}
			excluded, err := compileGlobs(w.excludes)
			if err != nil {
				return "", err
			}

			var re *regexp.Regexp
			if args.Query != "" {
				if re, err = regexp.Compile(args.Query); err != nil {
					return "", err
				}
			}

			var matches []searchMatch
			truncated := false

			err = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
				if err != nil {
					return nil // skip unreadable entries
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				rel := w.rel(p)
				if d.IsDir() {
					if p != root && matchAny(excluded, rel+"/") {
						return filepath.SkipDir
					}
					return nil
				}
				if matchAny(excluded, rel) {
					return nil
				}

				// Match relative to the search root so "*.go" works in subdirectories.
				local, _ := filepath.Rel(root, p)
				if !g.Match(filepath.ToSlash(local)) && !g.Match(rel) {
					return nil
				}

				if re == nil {
					matches = append(matches, searchMatch{File: rel})
				} else {
					matches = append(matches, grepFile(p, rel, re, w.maxResults-len(matches))...)
				}
				if len(matches) >= w.maxResults {
					truncated = true
					return filepath.SkipAll
				}
				return nil
			})
			if err != nil {
				return "", err
			}

			out, err := json.Marshal(struct {
				Pattern   string        `json:"pattern"`
				Count     int           `json:"count"`
				Truncated bool          `json:"truncated,omitempty"`
				Matches   []searchMatch `json:"matches"`
			}{args.Pattern, len(matches), truncated, matches})
			if err != nil {
				return "", err
			}
			return string(out), nil
		})
}

// grepFile returns up to limit lines of path matching re.
func grepFile(path, rel string, re *regexp.Regexp, limit int) []searchMatch {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var matches []searchMatch
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() && len(matches) < limit {
		lineNum++
		line := scanner.Text()
		if !re.MatchString(line) {
			continue
		}
		if len(line) > 200 {
			line = line[:200] + "..."
		}
		matches = append(matches, searchMatch{File: rel, Line: lineNum, Content: strings.TrimSpace(line)})
	}
	return matches
}

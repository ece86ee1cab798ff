package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type readFileArgs struct {
	Path      string `json:"path" desc:"Path to the file, relative to the workspace" required:"true"`
	StartLine *int   `json:"start_line" desc:"1-based line number to start reading from"`
	EndLine   *int   `json:"end_line" desc:"1-based line number to stop reading at (inclusive)"`
}

// readLineRange reads lines start..end (1-based, inclusive) from r.
// A nil bound means the start or end of the file.
func readLineRange(r io.Reader, startLine, endLine *int, maxSize int64) (string, error) {
	start := 1
	if startLine != nil {
		start = *startLine
	}
	if start < 1 {
		return "", fmt.Errorf("start_line must be >= 1, got %d", start)
	}

	end := -1
	if endLine != nil {
		end = *endLine
		if end < start {
			return "", fmt.Errorf("end_line (%d) must be >= start_line (%d)", end, start)
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), int(maxSize))

	var b strings.Builder
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum < start {
			continue
		}
		if end > 0 && lineNum > end {
			break
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(scanner.Text())
		if int64(b.Len()) > maxSize {
			return "", fmt.Errorf("line range content exceeds maximum size %d", maxSize)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if lineNum < start {
		return "", fmt.Errorf("start_line %d is beyond file length (%d lines)", start, lineNum)
	}
	return b.String(), nil
}

func (w *workspace) readFileTool() Tool {
	return Func("read_file", "Read the contents of a file in the workspace. Use start_line and end_line to read part of a large file.",
		func(ctx context.Context, args readFileArgs) (string, error) {
			path, err := w.resolve(args.Path)
			if err != nil {
				return "", err
			}

			info, err := os.Stat(path)
			if err != nil {
				return "", err
			}
			if info.IsDir() {
				return "", fmt.Errorf("%s is a directory", args.Path)
			}

			f, err := os.Open(path)
			if err != nil {
				return "", err
			}
			defer f.Close()

			if args.StartLine != nil || args.EndLine != nil {
				return readLineRange(f, args.StartLine, args.EndLine, w.maxFileSize)
			}

			if info.Size() > w.maxFileSize {
				return "", fmt.Errorf("file size %d exceeds maximum %d; read a line range instead", info.Size(), w.maxFileSize)
			}
			content, err := io.ReadAll(f)
			if err != nil {
				return "", err
			}
			return string(content), nil
		})
}

type writeFileArgs struct {
	Path    string `json:"path" desc:"Path to the file, relative to the workspace" required:"true"`
	Content string `json:"content" desc:"Content to write" required:"true"`
	Mode    string `json:"mode" desc:"Write mode (default overwrite)" enum:"overwrite,append"`
}

func (w *workspace) writeFileTool() Tool {
	return Func("write_file", "Write content to a file in the workspace, creating parent directories as needed.",
		func(ctx context.Context, args writeFileArgs) (string, error) {
			path, err := w.resolve(args.Path)
			if err != nil {
				return "", err
			}
			if int64(len(args.Content)) > w.maxFileSize {
				return "", fmt.Errorf("content size %d exceeds maximum %d", len(args.Content), w.maxFileSize)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return "", err
			}

			flag := os.O_CREATE | os.O_TRUNC | os.O_WRONLY
			if args.Mode == "append" {
				flag = os.O_APPEND | os.O_CREATE | os.O_WRONLY
			}
			f, err := os.OpenFile(path, flag, 0o644)
			if err != nil {
				return "", err
			}
			defer f.Close()

			n, err := f.WriteString(args.Content)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Wrote %d bytes to %s", n, w.rel(path)), nil
		})
}

type editFileArgs struct {
	Path       string `json:"path" desc:"Path to the file, relative to the workspace" required:"true"`
	OldString  string `json:"old_string" desc:"Exact text to replace" required:"true"`
	NewString  string `json:"new_string" desc:"Replacement text" required:"true"`
	ReplaceAll bool   `json:"replace_all" desc:"Replace every occurrence instead of requiring a unique match"`
}

// replaceString replaces old with repl in text. Without all, old must occur
// exactly once.
func replaceString(text, old, repl string, all bool) (string, int, error) {
	if old == "" {
		return "", 0, fmt.Errorf("old_string must not be empty")
	}
	count := strings.Count(text, old)
	switch {
	case count == 0:
		return "", 0, fmt.Errorf("old_string not found")
	case count > 1 && !all:
		return "", 0, fmt.Errorf("old_string occurs %d times; add context to make it unique or set replace_all", count)
	}
	if all {
		return strings.ReplaceAll(text, old, repl), count, nil
	}
	return strings.Replace(text, old, repl, 1), 1, nil
}

func (w *workspace) editFileTool() Tool {
	return Func("edit_file", "Replace exact text in a file in the workspace.",
		func(ctx context.Context, args editFileArgs) (string, error) {
			path, err := w.resolve(args.Path)
			if err != nil {
				return "", err
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return "", err
			}
			if int64(len(content)) > w.maxFileSize {
				return "", fmt.Errorf("file size %d exceeds maximum %d", len(content), w.maxFileSize)
			}

			updated, n, err := replaceString(string(content), args.OldString, args.NewString, args.ReplaceAll)
			if err != nil {
				return "", fmt.Errorf("%s: %w", args.Path, err)
			}
			if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
				return "", err
			}
			return fmt.Sprintf("Replaced %d occurrence(s) in %s", n, w.rel(path)), nil
		})
}

type listDirArgs struct {
	Path      string `json:"path" desc:"Directory to list, relative to the workspace (default: workspace root)"`
	Recursive bool   `json:"recursive" desc:"Include subdirectories"`
}

type dirEntry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size,omitempty"`
}

func (w *workspace) listDirTool() Tool {
	return Func("list_dir", "List the contents of a directory in the workspace.",
		func(ctx context.Context, args listDirArgs) (string, error) {
			root, err := w.resolve(args.Path)
			if err != nil {
				return "", err
			}
			excluded, err := compileGlobs(w.excludes)
			if err != nil {
				return "", err
			}

			var entries []dirEntry
			if args.Recursive {
				err = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
					if err != nil {
						return err
					}
					if p == root {
						return nil
					}
					if err := ctx.Err(); err != nil {
						return err
					}
					rel := w.rel(p)
					if matchAny(excluded, rel) || (d.IsDir() && matchAny(excluded, rel+"/")) {
						if d.IsDir() {
							return filepath.SkipDir
						}
						return nil
					}
					entries = append(entries, newDirEntry(rel, d))
					return nil
				})
			} else {
				var des []os.DirEntry
				des, err = os.ReadDir(root)
				for _, d := range des {
					entries = append(entries, newDirEntry(w.rel(filepath.Join(root, d.Name())), d))
				}
			}
			if err != nil {
				return "", err
			}

			out, err := json.Marshal(struct {
				Path    string     `json:"path"`
				Count   int        `json:"count"`
				Entries []dirEntry `json:"entries"`
			}{w.rel(root), len(entries), entries})
			if err != nil {
				return "", err
			}
			return string(out), nil
		})
}

func newDirEntry(rel string, d os.DirEntry) dirEntry {
	e := dirEntry{Path: rel, IsDir: d.IsDir()}
	if !d.IsDir() {
		if info, err := d.Info(); err == nil {
			e.Size = info.Size()
		}
	}
	return e
}
